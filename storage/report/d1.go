package report

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	cloudflare "github.com/cloudflare/cloudflare-go/v6"
	cfd1 "github.com/cloudflare/cloudflare-go/v6/d1"
	"github.com/cloudflare/cloudflare-go/v6/option"

	"github.com/indieinfra/ingest/config"
)

// D1Reporter records sessions in Cloudflare D1 via the HTTP API, using the
// same schema as SQLReporter.
type D1Reporter struct {
	cfg    *config.D1ReportStrategy
	client *cloudflare.Client
	table  string
}

// NewD1Reporter builds a reporter and ensures the schema exists.
func NewD1Reporter(cfg *config.D1ReportStrategy) (*D1Reporter, error) {
	return newD1ReporterWithClient(cfg, nil)
}

// newD1ReporterWithClient lets tests inject an HTTP client; pass nil in production.
func newD1ReporterWithClient(cfg *config.D1ReportStrategy, httpClient *http.Client) (*D1Reporter, error) {
	if cfg == nil {
		return nil, fmt.Errorf("d1 report config is nil")
	}

	r := &D1Reporter{
		cfg:    cfg,
		client: buildD1Client(cfg, httpClient),
		table:  tableName(cfg.TablePrefix),
	}

	if err := r.initSchema(context.Background()); err != nil {
		return nil, err
	}

	return r, nil
}

func buildD1Client(cfg *config.D1ReportStrategy, httpClient *http.Client) *cloudflare.Client {
	opts := []option.RequestOption{option.WithAPIToken(strings.TrimSpace(cfg.APIToken))}

	if httpClient != nil {
		opts = append(opts, option.WithHTTPClient(httpClient))
	}

	if base := strings.TrimSpace(cfg.Endpoint); base != "" {
		opts = append(opts, option.WithBaseURL(strings.TrimSuffix(base, "/")))
	}

	return cloudflare.NewClient(opts...)
}

// initSchema also serves as a connectivity and credentials check.
func (r *D1Reporter) initSchema(ctx context.Context) error {
	for _, q := range r.schemaQueries() {
		if err := r.execute(ctx, q, nil); err != nil {
			return fmt.Errorf("d1 initialization failed (check account_id, database_id, and api_token): %w", err)
		}
	}
	return nil
}

func (r *D1Reporter) schemaQueries() []string {
	return []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
id TEXT PRIMARY KEY,
session_id TEXT NOT NULL,
owner_id TEXT NOT NULL,
total INTEGER NOT NULL,
succeeded INTEGER NOT NULL,
failed INTEGER NOT NULL,
cancelled BOOLEAN NOT NULL DEFAULT FALSE,
errors TEXT NOT NULL,
media TEXT NOT NULL,
started_at TIMESTAMP NOT NULL,
finished_at TIMESTAMP NOT NULL
)`, r.table),
		fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s (session_id)", sessionIndexName(r.table), r.table),
	}
}

func (r *D1Reporter) insertQuery() string {
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", strings.Count(columns, ",")+1), ", ")
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", r.table, columns, placeholders)
}

func (r *D1Reporter) Record(ctx context.Context, rep Report) error {
	args, err := row(rep)
	if err != nil {
		return err
	}

	if err := r.execute(ctx, r.insertQuery(), args); err != nil {
		return fmt.Errorf("failed to record batch %s of session %s: %w", rep.BatchID, rep.SessionID, err)
	}

	return nil
}

func (r *D1Reporter) execute(ctx context.Context, sql string, params []any) error {
	body := cfd1.DatabaseQueryParamsBodyD1SingleQuery{Sql: cloudflare.F(sql)}
	if len(params) > 0 {
		body.Params = cloudflare.F(convertParams(params))
	}

	resp, err := r.client.D1.Database.Query(ctx, r.cfg.DatabaseID, cfd1.DatabaseQueryParams{
		AccountID: cloudflare.F(strings.TrimSpace(r.cfg.AccountID)),
		Body:      body,
	})
	if err != nil {
		return err
	}

	if resp == nil || len(resp.Result) == 0 {
		return nil
	}

	if !resp.Result[0].Success {
		return fmt.Errorf("d1 query execution failed")
	}

	return nil
}

// convertParams renders params the way D1 expects them: strings, with
// booleans as 0/1 and timestamps in RFC 3339.
func convertParams(params []any) []string {
	out := make([]string, 0, len(params))
	for _, p := range params {
		switch v := p.(type) {
		case bool:
			if v {
				out = append(out, "1")
			} else {
				out = append(out, "0")
			}
		case time.Time:
			out = append(out, v.UTC().Format(time.RFC3339))
		default:
			out = append(out, fmt.Sprint(p))
		}
	}

	return out
}
