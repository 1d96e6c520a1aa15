package database

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/script-review-portal/internal/config"
	"github.com/iliyamo/script-review-portal/internal/rubric"
)

func TestSchemaOrdersParentsFirst(t *testing.T) {
	stmts := Schema()
	index := func(table string) int {
		for i, s := range stmts {
			if strings.Contains(s, "CREATE TABLE IF NOT EXISTS "+table+" ") {
				return i
			}
		}
		return -1
	}
	require.NotEqual(t, -1, index("scripts"))
	assert.Less(t, index("scripts"), index("script_reviews"))
	assert.Less(t, index("script_reviews"), index("script_page_rubrics"))
	assert.Less(t, index("script_reviews"), index("script_page_notes"))
}

func TestSchemaCarriesEveryRubricColumn(t *testing.T) {
	var reviews, pages string
	for _, s := range Schema() {
		switch {
		case strings.Contains(s, "script_reviews ("):
			reviews = s
		case strings.Contains(s, "script_page_rubrics ("):
			pages = s
		}
	}
	for _, col := range rubric.Columns() {
		assert.Contains(t, reviews, "\t"+col+" ")
		assert.Contains(t, pages, "\t"+col+" ")
	}
	assert.Contains(t, reviews, "UNIQUE KEY uq_reviews_script (script_id)")
	assert.Contains(t, pages, "UNIQUE KEY uq_page_rubrics (review_id, page_number)")
}

func TestDSN(t *testing.T) {
	dsn := DSN(config.DBConfig{User: "portal", Pass: "s3cret", Host: "db", Port: "3306", Name: "scripts"})
	assert.True(t, strings.HasPrefix(dsn, "portal:s3cret@tcp(db:3306)/scripts?"), dsn)
	assert.Contains(t, dsn, "parseTime=true")
	assert.Contains(t, dsn, "clientFoundRows=true")
	assert.Contains(t, dsn, "charset=utf8mb4")
}
