package repository

import (
	"context"
	"database/sql/driver"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/script-review-portal/internal/model"
	"github.com/iliyamo/script-review-portal/internal/rubric"
)

var regexpInsertScripts = regexp.MustCompile(`INSERT INTO scripts \(`)

func fullSheet(t *testing.T) rubric.Sheet {
	t.Helper()
	s := rubric.NewSheet()
	for _, c := range rubric.Criteria() {
		if c.Rated() {
			r := 3
			require.NoError(t, s.SetRating(c.Key, &r))
		}
		require.NoError(t, s.SetNotes(c.Key, c.Label+" notes"))
	}
	return s
}

func TestCompleteUpdatesReviewAndScriptTogether(t *testing.T) {
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	db, state := newScriptedDB(t,
		expectBegin(),
		expectExec(`UPDATE script_reviews SET status = 'completed'`, 1),
		expectExec(`UPDATE scripts SET status = \?, reviewed_at = \?, updated_at = \? WHERE id = \? AND status = 'assigned'`, 1,
			"approved", at, at, "s-1"),
		expectCommit(),
	)
	err := NewReviewRepo(db).Complete(context.Background(), Completion{
		ReviewID: "r-1", ScriptID: "s-1", Recommendation: model.RecommendApproved, Rubric: fullSheet(t), At: at,
	})
	require.NoError(t, err)
	require.NoError(t, state.verifyComplete())
}

func TestCompleteWithoutRecommendationMarksReviewed(t *testing.T) {
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	db, state := newScriptedDB(t,
		expectBegin(),
		expectExec(`UPDATE script_reviews SET status = 'completed'`, 1),
		expectExec(`UPDATE scripts SET status = \?`, 1, "reviewed", at, at, "s-1"),
		expectCommit(),
	)
	require.NoError(t, NewReviewRepo(db).Complete(context.Background(), Completion{ReviewID: "r-1", ScriptID: "s-1", Rubric: fullSheet(t), At: at}))
	require.NoError(t, state.verifyComplete())
}

func TestCompleteRollsBackWhenScriptMoved(t *testing.T) {
	db, state := newScriptedDB(t,
		expectBegin(),
		expectExec(`UPDATE script_reviews SET status = 'completed'`, 1),
		expectExec(`UPDATE scripts SET status = \?`, 0),
		expectRollback(),
	)
	err := NewReviewRepo(db).Complete(context.Background(), Completion{ReviewID: "r-1", ScriptID: "s-1", Rubric: fullSheet(t), At: time.Now()})
	assert.ErrorIs(t, err, ErrConflict)
	require.NoError(t, state.verifyComplete())
}

func TestSaveRubricBindsColumnsInOrder(t *testing.T) {
	s := rubric.NewSheet()
	four := 4
	require.NoError(t, s.SetRating("plot", &four))
	require.NoError(t, s.SetNotes("title", "Works"))

	args := make([]driver.Value, 0, len(rubric.Columns())+2)
	for _, col := range rubric.Columns() {
		switch col {
		case "title_notes":
			args = append(args, "Works")
		case "plot_rating":
			args = append(args, int64(4))
		default:
			args = append(args, nil)
		}
	}
	args = append(args, anyArg, "r-1")

	db, state := newScriptedDB(t,
		expectExec(`UPDATE script_reviews SET title_notes=\?, plot_rating=\?, plot_notes=\?.*WHERE id = \? AND status = 'in_progress'`, 1, args...),
	)
	require.NoError(t, NewReviewRepo(db).SaveRubric(context.Background(), "r-1", s))
	require.NoError(t, state.verifyComplete())
}

func TestSaveRubricOnCompletedReviewConflicts(t *testing.T) {
	db, _ := newScriptedDB(t, expectExec(`UPDATE script_reviews SET`, 0))
	assert.ErrorIs(t, NewReviewRepo(db).SaveRubric(context.Background(), "r-1", rubric.NewSheet()), ErrConflict)
}

func TestGetByScriptRoundTripsRubric(t *testing.T) {
	cols := append([]string{"id", "script_id", "judge_id", "status", "recommendation", "overall_notes"}, rubric.Columns()...)
	cols = append(cols, "created_at", "updated_at", "submitted_at")
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	row := []driver.Value{"r-1", "s-1", "j-1", "in_progress", nil, nil}
	for _, col := range rubric.Columns() {
		switch col {
		case "production_budget_rating":
			row = append(row, int64(6))
		case "plot_notes":
			row = append(row, []byte("tight"))
		default:
			row = append(row, nil)
		}
	}
	row = append(row, now, now, nil)

	db, _ := newScriptedDB(t, expectQuery(`FROM script_reviews WHERE script_id = \?`, cols, row))
	rv, err := NewReviewRepo(db).GetByScript(context.Background(), "s-1")
	require.NoError(t, err)
	assert.Equal(t, model.ReviewInProgress, rv.Status)
	assert.Equal(t, model.Recommendation(""), rv.Recommendation)
	require.NotNil(t, rv.Rubric.Rating("production_budget"))
	assert.Equal(t, 6, *rv.Rubric.Rating("production_budget"))
	assert.Equal(t, "tight", rv.Rubric.Notes("plot"))
	assert.Nil(t, rv.Rubric.Rating("plot"))
	assert.Nil(t, rv.SubmittedAt)
}

func TestCreateSecondReviewConflicts(t *testing.T) {
	db, _ := newScriptedDB(t, expectExecErr(`INSERT INTO script_reviews`, duplicateErr()))
	err := NewReviewRepo(db).Create(context.Background(), &model.Review{ScriptID: "s-1", JudgeID: "j-1"})
	assert.ErrorIs(t, err, ErrConflict)
}
