// Command purge-scripts deletes every script together with its reviews, page
// data and stored file.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"sort"

	"github.com/iliyamo/script-review-portal/internal/config"
	"github.com/iliyamo/script-review-portal/internal/ops"
	"github.com/iliyamo/script-review-portal/internal/repository"
	"github.com/iliyamo/script-review-portal/internal/service"
)

func main() {
	yes := flag.Bool("yes", false, "confirm deletion of every script")
	dryRun := flag.Bool("dry-run", false, "list scripts without deleting")
	flag.Parse()

	lg := ops.Env("purge-scripts")
	defer func() { _ = lg.Sync() }()
	db := ops.OpenDB()
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	scripts := repository.NewScriptRepo(db)
	ids, err := scripts.ListIDs(ctx)
	if err != nil {
		log.Fatalf("list scripts: %v", err)
	}
	if len(ids) == 0 {
		ops.OK(os.Stdout, "nothing to purge")
		return
	}
	if *dryRun || !*yes {
		for _, id := range ids {
			ops.Info(os.Stdout, "  %s", id)
		}
		ops.Warn(os.Stdout, "%s would be deleted; rerun with -yes to purge", ops.Plural(len(ids), "script", "scripts"))
		return
	}

	files, err := service.NewObjectStore(config.LoadStorageConfig())
	if err != nil {
		log.Fatalf("object store: %v", err)
	}
	p := &service.Purger{Scripts: scripts, Files: files, Log: lg}
	res, err := p.PurgeAll(ctx)
	if err != nil && res == nil {
		log.Fatalf("purge: %v", err)
	}

	failed := make([]string, 0, len(res.Failed))
	for id := range res.Failed {
		failed = append(failed, id)
	}
	sort.Strings(failed)
	for _, id := range failed {
		ops.Fail(os.Stdout, "%s: %v", id, res.Failed[id])
	}
	ops.OK(os.Stdout, "deleted %s (%d already gone)", ops.Plural(res.Deleted, "script", "scripts"), res.Missing)
	if err != nil {
		log.Fatalf("purge interrupted: %v", err)
	}
	if len(failed) > 0 {
		os.Exit(1)
	}
}
