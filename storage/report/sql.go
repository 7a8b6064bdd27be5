package report

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/indieinfra/ingest/config"
)

type placeholderStyle int

const (
	placeholderQuestion placeholderStyle = iota
	placeholderDollar
)

// SQLReporter writes one row per session to postgres or mysql.
type SQLReporter struct {
	db          *sql.DB
	table       string
	placeholder placeholderStyle
}

func NewSQLReporter(cfg *config.SQLReportStrategy) (*SQLReporter, error) {
	reporter, err := newSQLReporterWithDB(cfg, nil)
	if err != nil {
		return nil, err
	}

	driverName, err := resolveSQLDriverName(cfg.Driver)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(driverName, cfg.DSN)
	if err != nil {
		return nil, err
	}

	reporter.db = db

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := reporter.initSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return reporter, nil
}

func newSQLReporterWithDB(cfg *config.SQLReportStrategy, db *sql.DB) (*SQLReporter, error) {
	if cfg == nil {
		return nil, fmt.Errorf("report sql config is nil")
	}

	driverName, err := resolveSQLDriverName(cfg.Driver)
	if err != nil {
		return nil, err
	}

	placeholder := placeholderQuestion
	if driverName == "pgx" {
		placeholder = placeholderDollar
	}

	return &SQLReporter{
		db:          db,
		table:       tableName(cfg.TablePrefix),
		placeholder: placeholder,
	}, nil
}

func resolveSQLDriverName(driver string) (string, error) {
	switch strings.ToLower(driver) {
	case "postgres":
		return "pgx", nil
	case "mysql":
		return "mysql", nil
	default:
		return "", fmt.Errorf("unsupported sql driver %q", driver)
	}
}

func (r *SQLReporter) initSchema(ctx context.Context) error {
	for _, q := range r.schemaQueries() {
		if _, err := r.db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("failed to create %s: %w", r.table, err)
		}
	}
	return nil
}

// schemaQueries creates the table and its session_id index. MySQL has no
// CREATE INDEX IF NOT EXISTS, so the index is declared inline there.
func (r *SQLReporter) schemaQueries() []string {
	inlineIndex := ""
	if r.placeholder == placeholderQuestion {
		inlineIndex = fmt.Sprintf(",\nINDEX %s (session_id)", sessionIndexName(r.table))
	}

	queries := []string{fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
id VARCHAR(64) PRIMARY KEY,
session_id VARCHAR(64) NOT NULL,
owner_id VARCHAR(255) NOT NULL,
total INTEGER NOT NULL,
succeeded INTEGER NOT NULL,
failed INTEGER NOT NULL,
cancelled BOOLEAN NOT NULL DEFAULT FALSE,
errors TEXT NOT NULL,
media TEXT NOT NULL,
started_at TIMESTAMP NOT NULL,
finished_at TIMESTAMP NOT NULL%s
)`, r.table, inlineIndex)}

	if r.placeholder == placeholderDollar {
		queries = append(queries, fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s (session_id)", sessionIndexName(r.table), r.table))
	}

	return queries
}

func (r *SQLReporter) insertQuery() string {
	placeholders := make([]string, strings.Count(columns, ",")+1)
	for i := range placeholders {
		placeholders[i] = r.placeholderFor(i + 1)
	}

	return fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s)",
		r.table,
		columns,
		strings.Join(placeholders, ", "),
	)
}

func (r *SQLReporter) Record(ctx context.Context, rep Report) error {
	args, err := row(rep)
	if err != nil {
		return err
	}

	if _, err := r.db.ExecContext(ctx, r.insertQuery(), args...); err != nil {
		return fmt.Errorf("failed to record batch %s of session %s: %w", rep.BatchID, rep.SessionID, err)
	}

	return nil
}

func (r *SQLReporter) Close() error {
	if r.db == nil {
		return nil
	}
	return r.db.Close()
}

func (r *SQLReporter) placeholderFor(index int) string {
	if r.placeholder == placeholderDollar {
		return fmt.Sprintf("$%d", index)
	}

	return "?"
}
