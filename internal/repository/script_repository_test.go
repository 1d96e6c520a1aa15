package repository

import (
	"context"
	"database/sql/driver"
	"errors"
	"testing"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/script-review-portal/internal/model"
)

func TestPurgeCascadeDeletesChildrenFirst(t *testing.T) {
	db, state := newScriptedDB(t,
		expectBegin(),
		expectExec(`DELETE n FROM script_page_notes n`, 4, "s-1"),
		expectExec(`DELETE pr FROM script_page_rubrics pr`, 3, "s-1"),
		expectExec(`DELETE FROM script_reviews WHERE script_id = \?`, 1, "s-1"),
		expectExec(`DELETE FROM scripts WHERE id = \?`, 1, "s-1"),
		expectCommit(),
	)

	deleted, err := NewScriptRepo(db).PurgeCascade(context.Background(), "s-1")
	require.NoError(t, err)
	assert.True(t, deleted)
	require.NoError(t, state.verifyComplete())
}

func TestPurgeCascadeUnknownIDReturnsFalse(t *testing.T) {
	db, state := newScriptedDB(t,
		expectBegin(),
		expectExec(`DELETE n FROM script_page_notes n`, 0, "missing"),
		expectExec(`DELETE pr FROM script_page_rubrics pr`, 0, "missing"),
		expectExec(`DELETE FROM script_reviews`, 0, "missing"),
		expectExec(`DELETE FROM scripts`, 0, "missing"),
		expectCommit(),
	)

	deleted, err := NewScriptRepo(db).PurgeCascade(context.Background(), "missing")
	require.NoError(t, err)
	assert.False(t, deleted)
	require.NoError(t, state.verifyComplete())
}

func TestPurgeCascadeRollsBackOnFailure(t *testing.T) {
	boom := errors.New("lock wait timeout")
	db, state := newScriptedDB(t,
		expectBegin(),
		expectExec(`DELETE n FROM script_page_notes n`, 2, "s-1"),
		expectExec(`DELETE pr FROM script_page_rubrics pr`, 0, "s-1"),
		expectExecErr(`DELETE FROM script_reviews`, boom),
		expectRollback(),
	)

	deleted, err := NewScriptRepo(db).PurgeCascade(context.Background(), "s-1")
	assert.ErrorIs(t, err, boom)
	assert.False(t, deleted)
	require.NoError(t, state.verifyComplete())
}

func TestDeleteReportsBlockedWhenReferenced(t *testing.T) {
	db, state := newScriptedDB(t,
		expectExecErr(`DELETE FROM scripts WHERE id = \?`, &mysql.MySQLError{Number: 1451, Message: "a foreign key constraint fails"}),
	)
	err := NewScriptRepo(db).Delete(context.Background(), "s-1")
	assert.ErrorIs(t, err, ErrBlocked)
	require.NoError(t, state.verifyComplete())
}

func TestDeleteUnknownIsNotFound(t *testing.T) {
	db, _ := newScriptedDB(t, expectExec(`DELETE FROM scripts`, 0, "nope"))
	assert.ErrorIs(t, NewScriptRepo(db).Delete(context.Background(), "nope"), ErrNotFound)
}

func TestAssignHandsOverDraft(t *testing.T) {
	db, state := newScriptedDB(t,
		expectBegin(),
		expectExec(`UPDATE scripts SET status = 'assigned', assigned_judge_id = \?`, 1, "j-2", anyArg, "s-1"),
		expectExec(`UPDATE script_reviews SET judge_id = \? WHERE script_id = \? AND status = 'in_progress'`, 0, "j-2", "s-1"),
		expectCommit(),
	)
	require.NoError(t, NewScriptRepo(db).Assign(context.Background(), "s-1", "j-2"))
	require.NoError(t, state.verifyComplete())
}

func TestAssignUnpaidConflicts(t *testing.T) {
	db, state := newScriptedDB(t,
		expectBegin(),
		expectExec(`UPDATE scripts SET status = 'assigned'`, 0, "j-2", anyArg, "s-1"),
		expectRollback(),
	)
	assert.ErrorIs(t, NewScriptRepo(db).Assign(context.Background(), "s-1", "j-2"), ErrConflict)
	require.NoError(t, state.verifyComplete())
}

func TestCreateRejectsStatusWithoutJudge(t *testing.T) {
	db, state := newScriptedDB(t)
	err := NewScriptRepo(db).Create(context.Background(), &model.Script{Title: "x", Status: model.ScriptAssigned})
	assert.ErrorIs(t, err, model.ErrJudgeRequired)
	require.NoError(t, state.verifyComplete())
}

func TestCreateFillsDefaults(t *testing.T) {
	db, state := newScriptedDB(t,
		&queryStep{kind: kindExec, pattern: regexpInsertScripts, result: scriptedResult{rowsAffected: 1}},
	)
	s := &model.Script{Title: "Night Shift", AuthorName: "R", AuthorEmail: "r@x.test"}
	require.NoError(t, NewScriptRepo(db).Create(context.Background(), s))
	assert.Len(t, s.ID, 36)
	assert.Equal(t, model.ScriptPending, s.Status)
	assert.Equal(t, model.PaymentPending, s.PaymentStatus)
	assert.False(t, s.CreatedAt.IsZero())
	require.NoError(t, state.verifyComplete())
}

func TestGetByIDMapsNoRows(t *testing.T) {
	db, _ := newScriptedDB(t, expectQuery(`FROM scripts WHERE id = \?`, scriptCols))
	_, err := NewScriptRepo(db).GetByID(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetByIDScansNullables(t *testing.T) {
	created := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	db, _ := newScriptedDB(t, expectQuery(`FROM scripts WHERE id = \?`, scriptCols,
		[]driver.Value{"s-1", "Night Shift", "R", "r@x.test", "", "ns.pdf", "https://cdn/ns.pdf", "scripts/s-1/ns.pdf",
			int64(90), int64(10000), "premium", "premium", "Page by page", "paid", "assigned",
			"j-1", nil, created, nil, created},
	))
	s, err := NewScriptRepo(db).GetByID(context.Background(), "s-1")
	require.NoError(t, err)
	require.NotNil(t, s.AssignedJudgeID)
	assert.Equal(t, "j-1", *s.AssignedJudgeID)
	assert.Nil(t, s.CheckoutSessionID)
	assert.Nil(t, s.ReviewedAt)
	assert.Equal(t, model.ScriptAssigned, s.Status)
	assert.Equal(t, 90, s.PageCount)
}

func TestMarkPaidIsIdempotent(t *testing.T) {
	created := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	row := []driver.Value{"s-1", "T", "A", "a@x.test", "", "", "", "",
		int64(1), int64(2500), "basic", "basic", "", "paid", "pending",
		nil, "cs_1", created, nil, created}
	db, state := newScriptedDB(t,
		expectBegin(),
		expectQuery(`WHERE checkout_session_id = \? FOR UPDATE`, scriptCols, row),
		expectCommit(),
	)
	s, changed, err := NewScriptRepo(db).MarkPaid(context.Background(), "cs_1")
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, "s-1", s.ID)
	require.NoError(t, state.verifyComplete())
}

var scriptCols = []string{"id", "title", "author_name", "author_email", "author_phone", "file_name", "file_url", "file_key",
	"page_count", "amount_cents", "tier_id", "tier_name", "tier_description", "payment_status", "status",
	"assigned_judge_id", "checkout_session_id", "created_at", "reviewed_at", "updated_at"}
