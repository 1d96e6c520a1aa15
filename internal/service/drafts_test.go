package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/iliyamo/script-review-portal/internal/rubric"
)

type countingSaver struct {
	mu    sync.Mutex
	saves []rubric.Sheet
	err   error
}

func (s *countingSaver) Save(_ context.Context, d rubric.Sheet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.saves = append(s.saves, d)
	return nil
}

func (s *countingSaver) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.saves)
}

func emptyLoad() (rubric.Sheet, error) { return rubric.NewSheet(), nil }

func TestRegistryOpenReusesForm(t *testing.T) {
	reg := NewDraftRegistry(time.Hour, zap.NewNop())
	key := DraftKey{ReviewID: "r1"}
	loads := 0
	load := func() (rubric.Sheet, error) { loads++; return rubric.NewSheet(), nil }

	a, err := reg.Open(key, &countingSaver{}, load)
	require.NoError(t, err)
	b, err := reg.Open(key, &countingSaver{}, load)
	require.NoError(t, err)
	assert.Same(t, a, b)
	assert.Equal(t, 1, loads)

	_, err = reg.Open(DraftKey{ReviewID: "r1", Page: 2}, &countingSaver{}, load)
	require.NoError(t, err)
	assert.Equal(t, 2, reg.Len())
}

func TestRegistryOpenLoadError(t *testing.T) {
	reg := NewDraftRegistry(time.Hour, zap.NewNop())
	_, err := reg.Open(DraftKey{ReviewID: "r1"}, &countingSaver{}, func() (rubric.Sheet, error) {
		return rubric.Sheet{}, errors.New("boom")
	})
	require.Error(t, err)
	assert.Equal(t, 0, reg.Len())
}

func TestRegistrySweepFlushesIdleForms(t *testing.T) {
	reg := NewDraftRegistry(time.Hour, zap.NewNop())
	saver := &countingSaver{}
	f, err := reg.Open(DraftKey{ReviewID: "r1"}, saver, emptyLoad)
	require.NoError(t, err)
	require.NoError(t, f.Apply("plot_rating", json.RawMessage(`4`)))

	assert.Equal(t, 0, reg.Sweep(context.Background(), time.Hour))
	assert.Equal(t, 1, reg.Len())

	assert.Equal(t, 1, reg.Sweep(context.Background(), 0))
	assert.Equal(t, 0, reg.Len())
	require.Equal(t, 1, saver.count())
	assert.Equal(t, 4, *saver.saves[0].Rating("plot"))
	assert.ErrorIs(t, f.Apply("plot_rating", json.RawMessage(`3`)), rubric.ErrFormClosed)
}

func TestRegistrySweepKeepsFormWhenFlushFails(t *testing.T) {
	reg := NewDraftRegistry(time.Hour, zap.NewNop())
	saver := &countingSaver{err: errors.New("db down")}
	f, err := reg.Open(DraftKey{ReviewID: "r1"}, saver, emptyLoad)
	require.NoError(t, err)
	require.NoError(t, f.Apply("plot_notes", json.RawMessage(`"tight"`)))

	assert.Equal(t, 0, reg.Sweep(context.Background(), 0))
	_, ok := reg.Lookup(DraftKey{ReviewID: "r1"})
	assert.True(t, ok)
}

func TestRegistryFlushPagesAndEvictReview(t *testing.T) {
	reg := NewDraftRegistry(time.Hour, zap.NewNop())
	main, pageSaver, other := &countingSaver{}, &countingSaver{}, &countingSaver{}
	f1, _ := reg.Open(DraftKey{ReviewID: "r1"}, main, emptyLoad)
	f2, _ := reg.Open(DraftKey{ReviewID: "r1", Page: 3}, pageSaver, emptyLoad)
	f3, _ := reg.Open(DraftKey{ReviewID: "r2"}, other, emptyLoad)
	for _, f := range []*rubric.Form{f1, f2, f3} {
		require.NoError(t, f.Apply("dialogue_rating", json.RawMessage(`2`)))
	}

	require.NoError(t, reg.FlushPages(context.Background(), "r1"))
	assert.Equal(t, 0, main.count())
	assert.Equal(t, 1, pageSaver.count())
	assert.Equal(t, 0, other.count())

	reg.EvictReview("r1")
	assert.Equal(t, 1, reg.Len())
	_, ok := reg.Lookup(DraftKey{ReviewID: "r2"})
	assert.True(t, ok)
}

func TestRegistryShutdownFlushesPending(t *testing.T) {
	reg := NewDraftRegistry(time.Hour, zap.NewNop())
	saver := &countingSaver{}
	f, _ := reg.Open(DraftKey{ReviewID: "r1"}, saver, emptyLoad)
	require.NoError(t, f.Apply("theme_tone_notes", json.RawMessage(`"bleak"`)))

	reg.Shutdown(context.Background())
	assert.Equal(t, 1, saver.count())
	assert.Equal(t, 0, reg.Len())
}

func TestRegistryCloseReviewFlushesEverything(t *testing.T) {
	reg := NewDraftRegistry(time.Hour, zap.NewNop())
	main, page := &countingSaver{}, &countingSaver{}
	f1, _ := reg.Open(DraftKey{ReviewID: "r1"}, main, emptyLoad)
	f2, _ := reg.Open(DraftKey{ReviewID: "r1", Page: 1}, page, emptyLoad)
	require.NoError(t, f1.Apply("plot_rating", json.RawMessage(`5`)))
	require.NoError(t, f2.Apply("plot_rating", json.RawMessage(`1`)))

	reg.CloseReview(context.Background(), "r1")
	assert.Equal(t, 1, main.count())
	assert.Equal(t, 1, page.count())
	assert.Equal(t, 0, reg.Len())
}
