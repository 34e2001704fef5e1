package loader

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"salesink/internal/db"
	"salesink/internal/provision"
	"salesink/internal/schema"
	"salesink/internal/sniff"
)

// MaxRowErrors bounds the per-row failure list carried in an Outcome.
// Counts stay exact past the bound.
const MaxRowErrors = 50

// DBTX is the statement-executing surface the load phases run against.
// Satisfied by both *pgx.Conn and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Coordinator runs reconciliation loads. Loads against the same
// destination connection are serialized; different connections may load
// concurrently.
type Coordinator struct {
	Retry db.RetryPolicy

	mu    sync.Mutex
	gates map[string]*sync.Mutex
}

// NewCoordinator returns a Coordinator using the given connect retry
// policy.
func NewCoordinator(retry db.RetryPolicy) *Coordinator {
	return &Coordinator{
		Retry: retry,
		gates: make(map[string]*sync.Mutex),
	}
}

// gate returns the serialization mutex for a destination connection.
func (c *Coordinator) gate(name string) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()
	g, ok := c.gates[name]
	if !ok {
		g = &sync.Mutex{}
		c.gates[name] = g
	}
	return g
}

// Load performs one reconciliation load: provision the table if
// missing, compute the batch window, delete the overlapping rows and
// insert the batch row by row inside a single transaction. Row failures
// are isolated and recorded; any transaction-level failure rolls back
// everything and fails the whole file. The destination connection is
// opened fresh and closed on every exit path.
func (c *Coordinator) Load(ctx context.Context, ts *schema.TableSchema, connCfg db.ConnectionConfig, records []sniff.Record) (*Outcome, error) {
	gate := c.gate(connCfg.Name)
	gate.Lock()
	defer gate.Unlock()

	log := slog.With("table", ts.Name, "connection", connCfg.Name)

	conn, err := c.Retry.Connect(ctx, connCfg)
	if err != nil {
		return nil, err
	}
	defer conn.Close(ctx)

	if _, err := provision.EnsureTable(ctx, conn, ts); err != nil {
		return nil, err
	}

	liveTypes, err := ColumnTypes(ctx, conn, ts.Name)
	if err != nil {
		return nil, err
	}

	records = ApplyRename(records, ts)
	window := ComputeWindow(records, ts)

	if dropped := unknownColumns(records, ts); len(dropped) > 0 {
		sort.Strings(dropped)
		log.Info("dropping columns the destination does not declare", "columns", dropped)
	}

	outcome := &Outcome{
		Table:      ts.Name,
		Connection: connCfg.Name,
		Stores:     []string{},
		Errors:     []RowError{},
	}
	if window != nil {
		outcome.DateRange = &DateRange{Min: window.Min, Max: window.Max}
		outcome.Stores = window.Stores
	}

	tx, err := conn.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if window == nil {
		log.Info("no date window in batch, insert-only append", "rows", len(records))
	} else {
		deleted, err := deleteOverlap(ctx, tx, ts, window, log)
		if err != nil {
			return nil, err
		}
		outcome.Deleted = deleted
	}

	if err := insertRecords(ctx, tx, ts, liveTypes, records, outcome); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	outcome.Success = true
	log.Info("load committed",
		"inserted", outcome.SuccessCount,
		"row_errors", outcome.ErrorCount,
		"deleted", outcome.Deleted,
	)
	return outcome, nil
}

// insertRecords runs the per-row insert loop. Each row executes under
// its own savepoint so one bad row never poisons the batch transaction;
// row failures are recorded in the outcome and only savepoint-machinery
// failures abort the batch.
func insertRecords(ctx context.Context, tx DBTX, ts *schema.TableSchema, liveTypes map[string]string, records []sniff.Record, outcome *Outcome) error {
	for i, rec := range records {
		rowNum := i + 1

		stmt, args, ok := buildInsert(ts, liveTypes, rec)
		if !ok {
			outcome.recordError(rowNum, "no destination columns present")
			continue
		}

		sp := fmt.Sprintf("sp_%d", i)
		if _, err := tx.Exec(ctx, "SAVEPOINT "+sp); err != nil {
			return fmt.Errorf("create savepoint: %w", err)
		}
		if _, err := tx.Exec(ctx, stmt, args...); err != nil {
			if _, rbErr := tx.Exec(ctx, "ROLLBACK TO SAVEPOINT "+sp); rbErr != nil {
				return fmt.Errorf("rollback savepoint after row %d: %w", rowNum, rbErr)
			}
			outcome.recordError(rowNum, err.Error())
			continue
		}
		if _, err := tx.Exec(ctx, "RELEASE SAVEPOINT "+sp); err != nil {
			return fmt.Errorf("release savepoint: %w", err)
		}
		outcome.SuccessCount++
	}
	return nil
}

// deleteOverlap removes existing rows covered by the batch window. With
// an empty store set the delete is scoped by date range alone, which is
// broader; that case is logged loudly.
func deleteOverlap(ctx context.Context, tx DBTX, ts *schema.TableSchema, w *Window, log *slog.Logger) (int64, error) {
	dateCol := pgx.Identifier{w.DateCol}.Sanitize()
	table := pgx.Identifier{ts.Name}.Sanitize()

	if len(w.Stores) == 0 {
		log.Warn("store set empty, deleting by date range alone",
			"date_column", w.DateCol,
			"min", w.Min,
			"max", w.Max,
		)
		tag, err := tx.Exec(ctx,
			fmt.Sprintf("DELETE FROM %s WHERE %s >= $1 AND %s <= $2", table, dateCol, dateCol),
			w.Min, w.Max)
		if err != nil {
			return 0, fmt.Errorf("delete overlap: %w", err)
		}
		return tag.RowsAffected(), nil
	}

	storeCol := pgx.Identifier{w.StoreCol}.Sanitize()
	tag, err := tx.Exec(ctx,
		fmt.Sprintf("DELETE FROM %s WHERE %s >= $1 AND %s <= $2 AND %s = ANY($3)",
			table, dateCol, dateCol, storeCol),
		w.Min, w.Max, w.Stores)
	if err != nil {
		return 0, fmt.Errorf("delete overlap: %w", err)
	}
	log.Info("deleted overlapping rows",
		"rows", tag.RowsAffected(),
		"min", w.Min,
		"max", w.Max,
		"stores", len(w.Stores),
	)
	return tag.RowsAffected(), nil
}

// recordError counts a row failure and appends it to the bounded list.
func (o *Outcome) recordError(row int, msg string) {
	o.ErrorCount++
	if len(o.Errors) < MaxRowErrors {
		o.Errors = append(o.Errors, RowError{Row: row, Message: msg})
	}
}
