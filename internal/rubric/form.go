package rubric

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"
)

// DefaultDebounce is the quiet period before a draft is auto-saved.
const DefaultDebounce = 2 * time.Second

// ErrFormClosed is returned by mutations after Submit succeeded or Close was called.
var ErrFormClosed = errors.New("rubric form closed")

// Saver persists the entire draft. It is called from timer goroutines.
type Saver interface {
	Save(ctx context.Context, draft Sheet) error
}

// SaverFunc adapts a function to Saver.
type SaverFunc func(ctx context.Context, draft Sheet) error

func (f SaverFunc) Save(ctx context.Context, draft Sheet) error { return f(ctx, draft) }

// Option configures a Form.
type Option func(*Form)

// WithDebounce overrides DefaultDebounce.
func WithDebounce(d time.Duration) Option {
	return func(f *Form) {
		if d > 0 {
			f.delay = d
		}
	}
}

// WithErrorHandler receives auto-save failures. The draft is kept as is; the
// next change re-arms the timer and tries again.
func WithErrorHandler(fn func(error)) Option {
	return func(f *Form) { f.onError = fn }
}

// WithSaved is called after every successful persist.
func WithSaved(fn func(Sheet)) Option {
	return func(f *Form) { f.onSaved = fn }
}

// WithCompletion is invoked with the submitted snapshot after Submit persisted it.
func WithCompletion(fn func(Sheet)) Option {
	return func(f *Form) { f.onComplete = fn }
}

// Form holds the in-memory draft of one rubric and auto-saves it after a
// quiet period. Every change cancels and restarts the timer, so at most one
// save happens per quiet period.
type Form struct {
	mu     sync.Mutex
	saveMu sync.Mutex // serialises Save calls so an older snapshot never lands last

	draft   Sheet
	saver   Saver
	delay   time.Duration
	timer   *time.Timer
	gen     uint64
	touched time.Time
	closed  bool

	onError    func(error)
	onSaved    func(Sheet)
	onComplete func(Sheet)
}

// NewForm seeds a form from initial (may be empty).
func NewForm(saver Saver, initial Sheet, opts ...Option) *Form {
	f := &Form{
		draft:   initial.Clone(),
		saver:   saver,
		delay:   DefaultDebounce,
		touched: time.Now(),
	}
	for _, o := range opts {
		o(f)
	}
	return f
}

// Draft returns a copy of the current draft.
func (f *Form) Draft() Sheet {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.draft.Clone()
}

// Apply changes one field and restarts the debounce timer. Out-of-range
// ratings and unknown fields are rejected without touching the draft.
func (f *Form) Apply(field string, raw json.RawMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return ErrFormClosed
	}
	next := f.draft.Clone()
	if err := next.Apply(field, raw); err != nil {
		return err
	}
	f.draft = next
	f.scheduleLocked()
	return nil
}

// Replace swaps the whole draft and restarts the timer.
func (f *Form) Replace(s Sheet) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return ErrFormClosed
	}
	f.draft = s.Clone()
	f.scheduleLocked()
	return nil
}

// Pending reports whether an auto-save is armed.
func (f *Form) Pending() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.timer != nil
}

// IdleSince returns the time of the last change.
func (f *Form) IdleSince() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.touched
}

// Flush cancels the pending timer and persists the draft now.
func (f *Form) Flush(ctx context.Context) error {
	f.saveMu.Lock()
	defer f.saveMu.Unlock()

	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return ErrFormClosed
	}
	f.cancelLocked()
	snapshot := f.draft.Clone()
	f.mu.Unlock()

	return f.persist(ctx, snapshot)
}

// Submit validates the draft and, when complete, cancels any pending
// auto-save, persists the draft one final time and invokes the completion
// callback. Validation failures never reach the saver and leave any armed
// auto-save in place. Submit does not change review status.
func (f *Form) Submit(ctx context.Context) error {
	f.saveMu.Lock()
	defer f.saveMu.Unlock()

	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return ErrFormClosed
	}
	if err := f.draft.Validate(); err != nil {
		f.mu.Unlock()
		return err
	}
	f.cancelLocked()
	snapshot := f.draft.Clone()
	f.mu.Unlock()

	if err := f.saver.Save(ctx, snapshot); err != nil {
		return err
	}
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	if f.onSaved != nil {
		f.onSaved(snapshot)
	}
	if f.onComplete != nil {
		f.onComplete(snapshot)
	}
	return nil
}

// Close stops the timer and rejects further changes.
func (f *Form) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancelLocked()
	f.closed = true
}

func (f *Form) scheduleLocked() {
	f.cancelLocked()
	f.touched = time.Now()
	gen := f.gen
	f.timer = time.AfterFunc(f.delay, func() { f.fire(gen) })
}

// cancelLocked invalidates any timer already fired but not yet running.
func (f *Form) cancelLocked() {
	f.gen++
	if f.timer != nil {
		f.timer.Stop()
		f.timer = nil
	}
}

func (f *Form) fire(gen uint64) {
	f.saveMu.Lock()
	defer f.saveMu.Unlock()

	f.mu.Lock()
	if gen != f.gen || f.closed {
		f.mu.Unlock()
		return
	}
	f.timer = nil
	if f.draft.Empty() {
		f.mu.Unlock()
		return
	}
	snapshot := f.draft.Clone()
	f.mu.Unlock()

	if err := f.persist(context.Background(), snapshot); err != nil && f.onError != nil {
		f.onError(err)
	}
}

func (f *Form) persist(ctx context.Context, snapshot Sheet) error {
	if err := f.saver.Save(ctx, snapshot); err != nil {
		return err
	}
	if f.onSaved != nil {
		f.onSaved(snapshot)
	}
	return nil
}
