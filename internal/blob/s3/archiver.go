package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/alanyoungcy/mirrorbot/internal/domain"
)

// multipartThreshold is the payload size above which uploads switch to the
// multipart manager.
const multipartThreshold = 8 * 1024 * 1024

// TradeArchiveStore is the narrow read surface the archiver needs. The
// Postgres CopyTradeStore satisfies it.
type TradeArchiveStore interface {
	ListSince(ctx context.Context, since time.Time) ([]domain.CopyTrade, error)
}

// Archiver uploads periodic JSONL reports of executed copy trades to object
// storage. Each report covers the window since the previous successful run.
type Archiver struct {
	writer  domain.BlobWriter
	trades  TradeArchiveStore
	audit   domain.AuditStore
	prefix  string
	logger  *slog.Logger
	lastRun time.Time
}

// NewArchiver creates an Archiver. prefix is prepended to every object key
// and may be empty. audit may be nil when no audit log is configured.
func NewArchiver(writer domain.BlobWriter, trades TradeArchiveStore, audit domain.AuditStore, prefix string, logger *slog.Logger) *Archiver {
	return &Archiver{
		writer: writer,
		trades: trades,
		audit:  audit,
		prefix: strings.Trim(prefix, "/"),
		logger: logger.With(slog.String("component", "archiver")),
	}
}

// ArchiveCopyTrades queries copy trades executed at or after since,
// serializes them to JSONL, and uploads the report. It returns the number of
// archived records; a window with no trades uploads nothing.
func (a *Archiver) ArchiveCopyTrades(ctx context.Context, since time.Time) (int64, error) {
	trades, err := a.trades.ListSince(ctx, since)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive copy trades query: %w", err)
	}
	if len(trades) == 0 {
		return 0, nil
	}

	buf, err := marshalJSONL(trades)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive copy trades marshal: %w", err)
	}

	path := a.reportPath(time.Now().UTC())
	if int64(len(buf)) > multipartThreshold {
		err = a.writer.PutMultipart(ctx, path, bytes.NewReader(buf), multipartThreshold)
	} else {
		err = a.writer.Put(ctx, path, bytes.NewReader(buf), "application/x-ndjson")
	}
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive copy trades upload: %w", err)
	}

	count := int64(len(trades))

	if a.audit != nil {
		if err := a.audit.Log(ctx, "archive.copy_trades", map[string]any{
			"path":  path,
			"count": count,
			"since": since.Format(time.RFC3339),
		}); err != nil {
			return count, fmt.Errorf("s3blob: archive copy trades audit log: %w", err)
		}
	}

	return count, nil
}

// Run archives on the given interval until the context is cancelled. Upload
// failures are logged and the window is retried on the next interval.
func (a *Archiver) Run(ctx context.Context, interval time.Duration) {
	a.lastRun = time.Now().UTC()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			count, err := a.ArchiveCopyTrades(ctx, a.lastRun)
			if err != nil {
				a.logger.Error("archive run failed", slog.String("error", err.Error()))
				continue
			}
			a.lastRun = time.Now().UTC()
			if count > 0 {
				a.logger.Info("archived copy trades", slog.Int64("count", count))
			}
		}
	}
}

// reportPath builds the object key for a report generated at the given time.
//
//	{prefix}/reports/copy_trades/2026-08-28T15-04-05Z.jsonl
func (a *Archiver) reportPath(at time.Time) string {
	name := fmt.Sprintf("reports/copy_trades/%s.jsonl", at.Format("2006-01-02T15-04-05Z"))
	if a.prefix == "" {
		return name
	}
	return a.prefix + "/" + name
}

// marshalJSONL serialises records as newline-delimited JSON.
func marshalJSONL[T any](records []T) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	for i, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return nil, fmt.Errorf("jsonl encode record %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}

// Compile-time interface check.
var _ domain.Archiver = (*Archiver)(nil)
