package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/script-review-portal/internal/metrics"
	"github.com/iliyamo/script-review-portal/internal/rubric"
)

// DraftKey identifies one rubric form. Page 0 is the whole-script rubric.
type DraftKey struct {
	ReviewID string
	Page     int
}

// DraftRegistry keeps the live rubric forms behind the keystroke-level
// PATCH endpoints. Concurrent writers to the same key share one form, so the
// last change wins.
type DraftRegistry struct {
	mu       sync.Mutex
	forms    map[DraftKey]*rubric.Form
	debounce time.Duration
	log      *zap.Logger
}

// NewDraftRegistry returns an empty registry whose forms save after debounce.
func NewDraftRegistry(debounce time.Duration, log *zap.Logger) *DraftRegistry {
	return &DraftRegistry{forms: make(map[DraftKey]*rubric.Form), debounce: debounce, log: log}
}

// Open returns the form for key, creating it with the sheet returned by load
// on first use.
func (r *DraftRegistry) Open(key DraftKey, saver rubric.Saver, load func() (rubric.Sheet, error)) (*rubric.Form, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if f, ok := r.forms[key]; ok {
		return f, nil
	}
	initial, err := load()
	if err != nil {
		return nil, err
	}
	log := r.log.With(zap.String("review_id", key.ReviewID), zap.Int("page", key.Page))
	f := rubric.NewForm(saver, initial,
		rubric.WithDebounce(r.debounce),
		rubric.WithSaved(func(rubric.Sheet) {
			metrics.AutosaveTotal.WithLabelValues("ok").Inc()
		}),
		rubric.WithErrorHandler(func(err error) {
			metrics.AutosaveTotal.WithLabelValues("error").Inc()
			log.Error("failed to save rubric data", zap.Error(err))
		}),
	)
	r.forms[key] = f
	metrics.OpenDrafts.Set(float64(len(r.forms)))
	return f, nil
}

// Lookup returns the open form for key.
func (r *DraftRegistry) Lookup(key DraftKey) (*rubric.Form, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.forms[key]
	return f, ok
}

// Len returns the number of open forms.
func (r *DraftRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.forms)
}

// Evict closes and forgets the form for key. Pending changes are dropped.
func (r *DraftRegistry) Evict(key DraftKey) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if f, ok := r.forms[key]; ok {
		f.Close()
		delete(r.forms, key)
		metrics.OpenDrafts.Set(float64(len(r.forms)))
	}
}

// FlushPages persists every pending per-page form of a review.
func (r *DraftRegistry) FlushPages(ctx context.Context, reviewID string) error {
	for key, f := range r.snapshot() {
		if key.ReviewID != reviewID || key.Page == 0 || !f.Pending() {
			continue
		}
		if err := f.Flush(ctx); err != nil && !errors.Is(err, rubric.ErrFormClosed) {
			return err
		}
	}
	return nil
}

// EvictReview closes every form of a review.
func (r *DraftRegistry) EvictReview(reviewID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for key, f := range r.forms {
		if key.ReviewID == reviewID {
			f.Close()
			delete(r.forms, key)
		}
	}
	metrics.OpenDrafts.Set(float64(len(r.forms)))
}

// CloseReview flushes and evicts every form of a review, used when the
// review changes hands.
func (r *DraftRegistry) CloseReview(ctx context.Context, reviewID string) {
	for key, f := range r.snapshot() {
		if key.ReviewID != reviewID {
			continue
		}
		if f.Pending() {
			if err := f.Flush(ctx); err != nil && !errors.Is(err, rubric.ErrFormClosed) {
				r.log.Warn("drafts: flush on close failed",
					zap.String("review_id", key.ReviewID), zap.Int("page", key.Page), zap.Error(err))
			}
		}
		r.evictIf(key, f)
	}
}

// Sweep flushes and evicts forms untouched for longer than idle. Forms whose
// flush fails stay open so the change is not lost. It returns the number of
// evicted forms.
func (r *DraftRegistry) Sweep(ctx context.Context, idle time.Duration) int {
	cutoff := time.Now().Add(-idle)
	evicted := 0
	for key, f := range r.snapshot() {
		if f.IdleSince().After(cutoff) {
			continue
		}
		if f.Pending() {
			if err := f.Flush(ctx); err != nil && !errors.Is(err, rubric.ErrFormClosed) {
				r.log.Warn("drafts: flush before eviction failed",
					zap.String("review_id", key.ReviewID), zap.Int("page", key.Page), zap.Error(err))
				continue
			}
		}
		r.evictIf(key, f)
		evicted++
	}
	return evicted
}

// Shutdown flushes every pending form and closes them all.
func (r *DraftRegistry) Shutdown(ctx context.Context) {
	for key, f := range r.snapshot() {
		if f.Pending() {
			if err := f.Flush(ctx); err != nil && !errors.Is(err, rubric.ErrFormClosed) {
				r.log.Error("drafts: flush on shutdown failed",
					zap.String("review_id", key.ReviewID), zap.Int("page", key.Page), zap.Error(err))
			}
		}
		r.evictIf(key, f)
	}
}

func (r *DraftRegistry) snapshot() map[DraftKey]*rubric.Form {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[DraftKey]*rubric.Form, len(r.forms))
	for k, f := range r.forms {
		out[k] = f
	}
	return out
}

// evictIf removes key only while it still maps to f; a request may have
// replaced it meanwhile.
func (r *DraftRegistry) evictIf(key DraftKey, f *rubric.Form) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.forms[key]; ok && cur == f {
		f.Close()
		delete(r.forms, key)
		metrics.OpenDrafts.Set(float64(len(r.forms)))
	}
}
