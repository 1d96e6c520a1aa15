package database

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/iliyamo/script-review-portal/internal/config"
)

// DSN renders the driver connection string. Times come back as UTC
// time.Time, and RowsAffected counts matched rows so an UPDATE that writes
// identical values still reports one row.
func DSN(c config.DBConfig) string {
	mc := mysql.NewConfig()
	mc.User = c.User
	mc.Passwd = c.Pass
	mc.Net = "tcp"
	mc.Addr = net.JoinHostPort(c.Host, c.Port)
	mc.DBName = c.Name
	mc.ParseTime = true
	mc.Loc = time.UTC
	mc.ClientFoundRows = true
	mc.Params = map[string]string{"charset": "utf8mb4"}
	return mc.FormatDSN()
}

// Open connects to MySQL and pings within ctx.
func Open(ctx context.Context, c config.DBConfig) (*sql.DB, error) {
	db, err := sql.Open("mysql", DSN(c))
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", c.Host, err)
	}
	return db, nil
}

// Migrate creates any missing table. Statements are idempotent.
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range Schema() {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate statement %d: %w", i+1, err)
		}
	}
	return nil
}
