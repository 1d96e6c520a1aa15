// Command delete-script removes a single script, falling back to the cascade
// when its review data blocks a plain delete.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"github.com/iliyamo/script-review-portal/internal/config"
	"github.com/iliyamo/script-review-portal/internal/ops"
	"github.com/iliyamo/script-review-portal/internal/repository"
	"github.com/iliyamo/script-review-portal/internal/service"
)

func main() {
	id := flag.String("id", "", "script id")
	flag.Parse()
	if *id == "" {
		flag.Usage()
		os.Exit(2)
	}

	lg := ops.Env("delete-script")
	defer func() { _ = lg.Sync() }()
	db := ops.OpenDB()
	defer db.Close()

	files, err := service.NewObjectStore(config.LoadStorageConfig())
	if err != nil {
		log.Fatalf("object store: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	p := &service.Purger{Scripts: repository.NewScriptRepo(db), Files: files, Log: lg}
	deleted, err := p.ForceDelete(ctx, *id)
	if err != nil {
		log.Fatalf("delete %s: %v", *id, err)
	}
	if !deleted {
		ops.Warn(os.Stdout, "script %s not found", *id)
		os.Exit(1)
	}
	ops.OK(os.Stdout, "script %s deleted", *id)
}
