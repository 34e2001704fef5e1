// Package ingest composes the pipeline one dropped file travels:
// format detection, destination resolution and the reconciliation load.
package ingest

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"salesink/internal/db"
	"salesink/internal/loader"
	"salesink/internal/resolve"
	"salesink/internal/schema"
	"salesink/internal/sniff"
)

// Ingestor runs the detect → resolve → load pipeline for one file at a
// time. Files are independent; concurrent calls are safe and only
// serialize per destination connection inside the coordinator.
type Ingestor struct {
	// SchemaPath is the registry file; empty means built-in defaults.
	// The registry is re-read per operation so edits apply to the next
	// file without a restart.
	SchemaPath  string
	Connections []db.ConnectionConfig
	Sniff       sniff.Options
	Coord       *loader.Coordinator
}

// ProcessFile pushes one file through the full pipeline and returns its
// load outcome. Any returned error is fatal for this file only.
func (g *Ingestor) ProcessFile(ctx context.Context, path string) (*loader.Outcome, error) {
	loadID := uuid.NewString()
	log := slog.With("load_id", loadID, "file", path)
	start := time.Now()

	reg, err := schema.Load(g.SchemaPath)
	if err != nil {
		return nil, err
	}

	records, header, kind, err := sniff.ReadFile(ctx, path, g.Sniff)
	if err != nil {
		return nil, err
	}
	log.Info("file parsed", "format", kind.String(), "rows", len(records))

	ts, err := resolve.Table(reg, path, header)
	if err != nil {
		return nil, err
	}
	conn, err := resolve.Connection(g.Connections, ts)
	if err != nil {
		return nil, err
	}
	log.Info("destination resolved", "table", ts.Name, "connection", conn.Name)

	outcome, err := g.Coord.Load(ctx, ts, conn, records)
	if err != nil {
		return nil, err
	}

	log.Info("file loaded",
		"inserted", outcome.SuccessCount,
		"row_errors", outcome.ErrorCount,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return outcome, nil
}
