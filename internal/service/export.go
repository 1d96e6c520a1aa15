package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/iliyamo/script-review-portal/internal/export"
	"github.com/iliyamo/script-review-portal/internal/metrics"
	"github.com/iliyamo/script-review-portal/internal/model"
	"github.com/iliyamo/script-review-portal/internal/policy"
)

// BlobCache stores rendered documents.
type BlobCache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, b []byte, ttl time.Duration) error
}

// RedisBlobCache is a BlobCache on Redis. A nil client disables caching.
type RedisBlobCache struct {
	RDB *redis.Client
}

func (c RedisBlobCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if c.RDB == nil {
		return nil, false, nil
	}
	b, err := c.RDB.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return b, true, nil
}

func (c RedisBlobCache) Set(ctx context.Context, key string, b []byte, ttl time.Duration) error {
	if c.RDB == nil {
		return nil
	}
	return c.RDB.Set(ctx, key, b, ttl).Err()
}

// Exporter renders submitted reviews to PDF and caches the bytes per review
// revision.
type Exporter struct {
	Scripts ScriptStore
	Reviews ReviewStore
	Pages   PageStore
	Cache   BlobCache
	TTL     time.Duration
	Log     *zap.Logger
}

// Document is a rendered export.
type Document struct {
	FileName string
	Body     []byte
}

func exportKey(rv *model.Review) string {
	return fmt.Sprintf("export:%s:%d", rv.ID, rv.UpdatedAt.UnixNano())
}

// Export renders the review of a script. Only submitted reviews of
// reviewable scripts are exported.
func (e *Exporter) Export(ctx context.Context, sess policy.Session, scriptID string) (*Document, error) {
	s, err := e.Scripts.GetByID(ctx, scriptID)
	if err != nil {
		return nil, err
	}
	if !policy.CanView(sess, s) {
		return nil, ErrForbidden
	}
	rv, err := e.Reviews.GetByScript(ctx, scriptID)
	if err != nil {
		return nil, err
	}
	if !policy.Exportable(s, rv) {
		return nil, ErrNotExportable
	}
	doc := &Document{FileName: export.FileName(s)}

	key := exportKey(rv)
	if e.Cache != nil {
		b, ok, err := e.Cache.Get(ctx, key)
		if err != nil {
			e.Log.Warn("export: cache read failed", zap.String("key", key), zap.Error(err))
		} else if ok {
			metrics.ExportsTotal.WithLabelValues("hit").Inc()
			doc.Body = b
			return doc, nil
		}
	}

	in := export.Input{Script: s, Review: rv}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		in.Pages, err = e.Pages.ListRubrics(gctx, rv.ID)
		return err
	})
	g.Go(func() (err error) {
		in.Notes, err = e.Pages.ListNotes(gctx, rv.ID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if doc.Body, err = export.Render(in, export.DefaultOptions); err != nil {
		return nil, err
	}
	metrics.ExportsTotal.WithLabelValues("miss").Inc()

	if e.Cache != nil {
		if err := e.Cache.Set(ctx, key, doc.Body, e.TTL); err != nil {
			e.Log.Warn("export: cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return doc, nil
}
