// Package ops holds the shared plumbing of the maintenance programs under cmd/.
package ops

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/iliyamo/script-review-portal/internal/config"
	"github.com/iliyamo/script-review-portal/internal/database"
	"github.com/iliyamo/script-review-portal/internal/logger"
)

var (
	okColor   = color.New(color.FgHiGreen, color.Bold)
	warnColor = color.New(color.FgHiYellow)
	failColor = color.New(color.FgHiRed, color.Bold)
	dimColor  = color.New(color.Faint)
)

// Env loads .env when present and returns a warn-level logger for the
// service layer. Ops output goes to stdout through the printers below.
func Env(name string) *zap.Logger {
	if err := godotenv.Load(); err != nil {
		dimColor.Println("no .env file, using environment")
	}
	return logger.New(logger.Config{
		Environment: os.Getenv("APP_ENV"),
		LogLevel:    envOr("LOG_LEVEL", "warn"),
		ServiceName: name,
	})
}

// OpenDB connects with the DB_* variables or exits.
func OpenDB() *sql.DB {
	db, err := database.Open(context.Background(), config.LoadDB())
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	return db
}

// OK prints a success line.
func OK(w io.Writer, format string, args ...any) {
	okColor.Fprintf(w, "✔ "+format+"\n", args...)
}

// Warn prints a warning line.
func Warn(w io.Writer, format string, args ...any) {
	warnColor.Fprintf(w, "! "+format+"\n", args...)
}

// Fail prints a failure line.
func Fail(w io.Writer, format string, args ...any) {
	failColor.Fprintf(w, "✘ "+format+"\n", args...)
}

// Info prints a plain line.
func Info(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, format+"\n", args...)
}

func envOr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}
