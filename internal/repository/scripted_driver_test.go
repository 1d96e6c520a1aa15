package repository

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"io"
	"regexp"
	"sync"
	"testing"
	"time"
)

type stepKind int

const (
	kindQuery stepKind = iota
	kindExec
	kindBegin
	kindCommit
	kindRollback
)

func (k stepKind) String() string {
	return [...]string{"query", "exec", "begin", "commit", "rollback"}[k]
}

// anyArg matches any bound value.
type anyArgType struct{}

var anyArg = anyArgType{}

type queryStep struct {
	kind    stepKind
	pattern *regexp.Regexp
	args    []driver.Value // nil skips the argument check
	columns []string
	rows    [][]driver.Value
	err     error
	result  driver.Result
}

func expectBegin() *queryStep    { return &queryStep{kind: kindBegin} }
func expectCommit() *queryStep   { return &queryStep{kind: kindCommit} }
func expectRollback() *queryStep { return &queryStep{kind: kindRollback} }

func expectExec(pattern string, affected int64, args ...driver.Value) *queryStep {
	return &queryStep{kind: kindExec, pattern: regexp.MustCompile(pattern), args: args, result: scriptedResult{rowsAffected: affected}}
}

func expectExecErr(pattern string, err error) *queryStep {
	return &queryStep{kind: kindExec, pattern: regexp.MustCompile(pattern), err: err}
}

func expectQuery(pattern string, columns []string, rows ...[]driver.Value) *queryStep {
	return &queryStep{kind: kindQuery, pattern: regexp.MustCompile(pattern), columns: columns, rows: rows}
}

type scriptedDB struct {
	mu    sync.Mutex
	steps []*queryStep
}

func (db *scriptedDB) next(kind stepKind, query string, args []driver.NamedValue) (*queryStep, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	if len(db.steps) == 0 {
		return nil, fmt.Errorf("unexpected %s: %s", kind, query)
	}
	step := db.steps[0]
	if step.kind != kind {
		return nil, fmt.Errorf("unexpected kind for %q: got %v want %v", query, kind, step.kind)
	}
	if step.pattern != nil && !step.pattern.MatchString(query) {
		return nil, fmt.Errorf("unexpected query: %s (want %s)", query, step.pattern)
	}
	if step.args != nil {
		if len(step.args) != len(args) {
			return nil, fmt.Errorf("unexpected arg count for %s: got %d want %d", query, len(args), len(step.args))
		}
		for i := range args {
			if step.args[i] == anyArg {
				continue
			}
			if args[i].Value != step.args[i] {
				return nil, fmt.Errorf("unexpected arg %d for %s: got %v want %v", i, query, args[i].Value, step.args[i])
			}
		}
	}
	db.steps = db.steps[1:]
	return step, nil
}

func (db *scriptedDB) verifyComplete() error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if len(db.steps) != 0 {
		return fmt.Errorf("unmet expectations: %d, next %s", len(db.steps), db.steps[0].kind)
	}
	return nil
}

type scriptedDriver struct {
	db *scriptedDB
}

func (d *scriptedDriver) Open(string) (driver.Conn, error) {
	return &scriptedConn{db: d.db}, nil
}

type scriptedConn struct {
	db *scriptedDB
}

func (c *scriptedConn) Prepare(string) (driver.Stmt, error) {
	return nil, errors.New("prepare not supported")
}

func (c *scriptedConn) Close() error { return nil }

func (c *scriptedConn) Begin() (driver.Tx, error) {
	step, err := c.db.next(kindBegin, "BEGIN", nil)
	if err != nil {
		return nil, err
	}
	if step.err != nil {
		return nil, step.err
	}
	return &scriptedTx{db: c.db}, nil
}

func (c *scriptedConn) QueryContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Rows, error) {
	step, err := c.db.next(kindQuery, query, args)
	if err != nil {
		return nil, err
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if step.err != nil {
		return nil, step.err
	}
	return &scriptedRows{columns: step.columns, rows: step.rows}, nil
}

func (c *scriptedConn) ExecContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	step, err := c.db.next(kindExec, query, args)
	if err != nil {
		return nil, err
	}
	if step.err != nil {
		return nil, step.err
	}
	if step.result != nil {
		return step.result, nil
	}
	return scriptedResult{}, nil
}

type scriptedTx struct {
	db *scriptedDB
}

func (t *scriptedTx) Commit() error {
	_, err := t.db.next(kindCommit, "COMMIT", nil)
	return err
}

func (t *scriptedTx) Rollback() error {
	_, err := t.db.next(kindRollback, "ROLLBACK", nil)
	return err
}

type scriptedResult struct {
	lastInsertID int64
	rowsAffected int64
}

func (r scriptedResult) LastInsertId() (int64, error) { return r.lastInsertID, nil }

func (r scriptedResult) RowsAffected() (int64, error) { return r.rowsAffected, nil }

type scriptedRows struct {
	columns []string
	rows    [][]driver.Value
	idx     int
}

func (r *scriptedRows) Columns() []string { return r.columns }

func (r *scriptedRows) Close() error { return nil }

func (r *scriptedRows) Next(dest []driver.Value) error {
	if r.idx >= len(r.rows) {
		return io.EOF
	}
	row := r.rows[r.idx]
	for i := range dest {
		dest[i] = nil
	}
	copy(dest, row)
	r.idx++
	return nil
}

func newScriptedDB(t *testing.T, steps ...*queryStep) (*sql.DB, *scriptedDB) {
	t.Helper()
	state := &scriptedDB{steps: steps}
	driverName := fmt.Sprintf("scripted_%s_%d", t.Name(), time.Now().UnixNano())
	sql.Register(driverName, &scriptedDriver{db: state})

	db, err := sql.Open(driverName, "")
	if err != nil {
		t.Fatalf("failed to open sql db: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	return db, state
}
