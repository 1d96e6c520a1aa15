// Command audit-reviews prints every script next to its judge and review and
// flags rows that break the status rules.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"github.com/iliyamo/script-review-portal/internal/jobs"
	"github.com/iliyamo/script-review-portal/internal/ops"
	"github.com/iliyamo/script-review-portal/internal/repository"
)

func main() {
	strict := flag.Bool("strict", false, "exit 1 when inconsistencies are found")
	flag.Parse()

	lg := ops.Env("audit-reviews")
	defer func() { _ = lg.Sync() }()
	db := ops.OpenDB()
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	rep, err := jobs.Audit(ctx, repository.NewAuditRepo(db))
	if err != nil {
		log.Fatalf("audit: %v", err)
	}
	n, err := ops.RenderAudit(os.Stdout, rep)
	if err != nil {
		log.Fatalf("render: %v", err)
	}
	if *strict && n > 0 {
		os.Exit(1)
	}
}
