// Package ltmpg provides a Postgres-backed implementation of the pkg/ltm
// Adapter capability, standing in for the "remote SPARQL endpoint" half of
// spec.md §4.9's "in-memory triple store or a remote SPARQL endpoint". Each
// RDF triple is a row; named graphs are a column rather than separate
// schemas, matching how jackc/pgx is used elsewhere in the pack
// (codeready-toolchain/tarsy, intelligencedev/manifold) for straightforward
// pooled SQL access.
package ltmpg

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/jidoka-ai/memengine/internal/metrics"
	"github.com/jidoka-ai/memengine/pkg/ltm"
)

// schemaSQL creates the single table this adapter needs. Connect runs it on
// every connection (it is a no-op once the table exists); the adapter does
// not manage schema versioning.
const schemaSQL = `
CREATE TABLE IF NOT EXISTS memengine_triples (
	graph     TEXT NOT NULL,
	subject   TEXT NOT NULL,
	predicate TEXT NOT NULL,
	object    JSONB NOT NULL,
	PRIMARY KEY (graph, subject, predicate)
);
`

// Adapter persists triples in Postgres via a pooled connection.
type Adapter struct {
	pool    *pgxpool.Pool
	log     zerolog.Logger
	metrics *metrics.Metrics
}

// SetMetrics attaches m so subsequent Persist calls record duration and
// outcome. m may be nil, restoring the no-op default.
func (a *Adapter) SetMetrics(m *metrics.Metrics) {
	a.metrics = m
}

// New wraps an existing pgxpool.Pool. The pool's lifecycle (Close) remains
// the caller's responsibility.
func New(pool *pgxpool.Pool, log zerolog.Logger) *Adapter {
	return &Adapter{pool: pool, log: log.With().Str("component", "ltmpg.Adapter").Logger()}
}

// Connect opens a pooled connection to dsn and ensures the schema exists.
func Connect(ctx context.Context, dsn string, log zerolog.Logger) (*Adapter, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("ltmpg: connect: %w", err)
	}
	if _, err := pool.Exec(ctx, schemaSQL); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ltmpg: create schema: %w", err)
	}
	return New(pool, log), nil
}

// Close releases the underlying pool.
func (a *Adapter) Close() {
	a.pool.Close()
}

// EnsureGraphs is a no-op beyond schema creation: Postgres rows need no
// per-graph provisioning, matching the engine-level contract that
// EnsureGraphs is idempotent.
func (a *Adapter) EnsureGraphs(ctx context.Context, graphs []ltm.NamedGraph) error {
	return nil
}

// Persist upserts memory's triples, replacing any prior row for the same
// (graph, subject, predicate) so re-persisting the same id updates content
// rather than duplicating it.
func (a *Adapter) Persist(ctx context.Context, memory ltm.Memory) (err error) {
	start := time.Now()
	defer func() { a.metrics.RecordPersist(string(memory.Graph), time.Since(start), err) }()

	triples := memory.Triples()

	tx, txErr := a.pool.Begin(ctx)
	if txErr != nil {
		return fmt.Errorf("ltmpg: begin tx: %w", txErr)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	for _, tr := range triples {
		objJSON, marshalErr := json.Marshal(tr.Object)
		if marshalErr != nil {
			return fmt.Errorf("ltmpg: marshal object for %s: %w", tr.Predicate, marshalErr)
		}
		if _, execErr := tx.Exec(ctx, `
			INSERT INTO memengine_triples (graph, subject, predicate, object)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (graph, subject, predicate) DO UPDATE SET object = EXCLUDED.object
		`, string(tr.Graph), tr.Subject, tr.Predicate, objJSON); execErr != nil {
			return fmt.Errorf("ltmpg: upsert triple: %w", execErr)
		}
	}

	if commitErr := tx.Commit(ctx); commitErr != nil {
		return fmt.Errorf("ltmpg: commit: %w", commitErr)
	}

	a.log.Debug().Str("graph", string(memory.Graph)).Str("memory_id", memory.ID).Msg("persisted memory")
	return nil
}

// Query evaluates pattern by filtering rows in Postgres on whatever
// positions are bound, then applying variable bindings in Go — the same
// semantics as pkg/ltm.Store.Query, against a durable backend.
func (a *Adapter) Query(ctx context.Context, pattern ltm.Pattern) ([]ltm.Row, error) {
	sql := `SELECT subject, predicate, object FROM memengine_triples WHERE graph = $1`
	args := []any{string(pattern.Graph)}

	if pattern.Subject.Variable == "" {
		args = append(args, fmt.Sprint(pattern.Subject.Value))
		sql += fmt.Sprintf(" AND subject = $%d", len(args))
	}
	if pattern.Predicate.Variable == "" {
		args = append(args, fmt.Sprint(pattern.Predicate.Value))
		sql += fmt.Sprintf(" AND predicate = $%d", len(args))
	}

	rows, err := a.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("ltmpg: query: %w", err)
	}
	defer rows.Close()

	var out []ltm.Row
	for rows.Next() {
		var subject, predicate string
		var objJSON []byte
		if err := rows.Scan(&subject, &predicate, &objJSON); err != nil {
			return nil, fmt.Errorf("ltmpg: scan row: %w", err)
		}
		var object any
		if err := json.Unmarshal(objJSON, &object); err != nil {
			return nil, fmt.Errorf("ltmpg: unmarshal object: %w", err)
		}

		row := ltm.Row{}
		if pattern.Subject.Variable != "" {
			row[pattern.Subject.Variable] = subject
		}
		if pattern.Predicate.Variable != "" {
			row[pattern.Predicate.Variable] = predicate
		}
		if pattern.Object.Variable != "" {
			row[pattern.Object.Variable] = object
		} else if !equalAny(pattern.Object.Value, object) {
			continue
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ltmpg: rows: %w", err)
	}
	return out, nil
}

// Clear deletes every row for graph.
func (a *Adapter) Clear(ctx context.Context, graph ltm.NamedGraph) error {
	if _, err := a.pool.Exec(ctx, `DELETE FROM memengine_triples WHERE graph = $1`, string(graph)); err != nil {
		return fmt.Errorf("ltmpg: clear %q: %w", graph, err)
	}
	return nil
}

func equalAny(a, b any) bool {
	aj, _ := json.Marshal(a)
	bj, _ := json.Marshal(b)
	return string(aj) == string(bj)
}

var _ ltm.Adapter = (*Adapter)(nil)
