// Command sample-script generates a screenplay PDF, uploads it and records a
// paid script for it, ready to be assigned.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"github.com/iliyamo/script-review-portal/internal/config"
	"github.com/iliyamo/script-review-portal/internal/model"
	"github.com/iliyamo/script-review-portal/internal/ops"
	"github.com/iliyamo/script-review-portal/internal/repository"
	"github.com/iliyamo/script-review-portal/internal/service"
)

func main() {
	title := flag.String("title", "Night Harbour", "script title")
	author := flag.String("author", "Sample Writer", "author name")
	email := flag.String("email", "writer@example.com", "author email")
	pages := flag.Int("pages", 5, "page count")
	tierID := flag.String("tier", service.TopTier, "tier id or name")
	flag.Parse()

	tier, ok := service.LookupTier(*tierID)
	if !ok {
		log.Fatalf("unknown tier %q", *tierID)
	}

	lg := ops.Env("sample-script")
	defer func() { _ = lg.Sync() }()
	db := ops.OpenDB()
	defer db.Close()

	files, err := service.NewObjectStore(config.LoadStorageConfig())
	if err != nil {
		log.Fatalf("object store: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	body, err := ops.SamplePDF(*title, *author, *pages)
	if err != nil {
		log.Fatalf("render: %v", err)
	}
	up, err := (&service.Uploader{Store: files}).Upload(ctx, *title+".pdf", body)
	if err != nil {
		log.Fatalf("upload: %v", err)
	}
	ops.Info(os.Stdout, "uploaded %s (%s)", up.FileKey, ops.Plural(up.PageCount, "page", "pages"))

	s := &model.Script{
		Title:           *title,
		AuthorName:      *author,
		AuthorEmail:     *email,
		FileName:        up.FileName,
		FileURL:         up.FileURL,
		FileKey:         up.FileKey,
		PageCount:       up.PageCount,
		AmountCents:     tier.Price,
		TierID:          tier.ID,
		TierName:        tier.Name,
		TierDescription: tier.Description,
		PaymentStatus:   model.PaymentPaid,
	}
	if err := repository.NewScriptRepo(db).Create(ctx, s); err != nil {
		if derr := files.Delete(ctx, up.FileKey); derr != nil {
			ops.Warn(os.Stdout, "cleanup of %s failed: %v", up.FileKey, derr)
		}
		log.Fatalf("create script: %v", err)
	}
	ops.OK(os.Stdout, "script %s created (%s tier)", s.ID, tier.Name)
}
