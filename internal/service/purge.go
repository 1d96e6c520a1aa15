package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/iliyamo/script-review-portal/internal/metrics"
	"github.com/iliyamo/script-review-portal/internal/model"
	"github.com/iliyamo/script-review-portal/internal/repository"
)

// PurgeStore is the script deletion surface.
type PurgeStore interface {
	GetByID(ctx context.Context, id string) (*model.Script, error)
	Delete(ctx context.Context, id string) error
	PurgeCascade(ctx context.Context, id string) (bool, error)
	ListIDs(ctx context.Context) ([]string, error)
}

// Purger removes scripts together with their review data and stored file.
type Purger struct {
	Scripts PurgeStore
	Files   ObjectStore
	Drafts  *DraftRegistry
	Reviews interface {
		GetByScript(ctx context.Context, scriptID string) (*model.Review, error)
	}
	Log *zap.Logger
}

// Purge deletes one script through the cascade. It reports whether a script
// row was removed; unknown ids are not an error.
func (p *Purger) Purge(ctx context.Context, id string) (bool, error) {
	s, err := p.Scripts.GetByID(ctx, id)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return false, err
	}
	if p.Drafts != nil && p.Reviews != nil {
		if rv, err := p.Reviews.GetByScript(ctx, id); err == nil {
			p.Drafts.EvictReview(rv.ID)
		}
	}
	deleted, err := p.Scripts.PurgeCascade(ctx, id)
	if err != nil {
		return false, err
	}
	if !deleted {
		return false, nil
	}
	p.deleted(ctx, id, s)
	return true, nil
}

func (p *Purger) deleted(ctx context.Context, id string, s *model.Script) {
	metrics.PurgedScripts.Inc()
	if s != nil && s.FileKey != "" && p.Files != nil {
		if err := p.Files.Delete(ctx, s.FileKey); err != nil {
			p.Log.Warn("purge: file delete failed", zap.String("script_id", id), zap.String("key", s.FileKey), zap.Error(err))
		}
	}
	p.Log.Info("purge: script deleted", zap.String("script_id", id))
}

// ForceDelete tries the plain delete first and falls back to the cascade
// when review rows block it.
func (p *Purger) ForceDelete(ctx context.Context, id string) (bool, error) {
	s, err := p.Scripts.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	err = p.Scripts.Delete(ctx, id)
	switch {
	case err == nil:
		p.deleted(ctx, id, s)
		return true, nil
	case errors.Is(err, repository.ErrNotFound):
		return false, nil
	case errors.Is(err, repository.ErrBlocked):
		p.Log.Info("purge: plain delete blocked, using cascade", zap.String("script_id", id))
		return p.Purge(ctx, id)
	}
	return false, err
}

// PurgeResult summarises a bulk purge.
type PurgeResult struct {
	Deleted int
	Missing int
	Failed  map[string]error
}

// PurgeAll deletes every script, continuing past individual failures.
func (p *Purger) PurgeAll(ctx context.Context) (*PurgeResult, error) {
	ids, err := p.Scripts.ListIDs(ctx)
	if err != nil {
		return nil, err
	}
	res := &PurgeResult{Failed: map[string]error{}}
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		ok, err := p.Purge(ctx, id)
		switch {
		case err != nil:
			res.Failed[id] = err
		case ok:
			res.Deleted++
		default:
			res.Missing++
		}
	}
	return res, nil
}
