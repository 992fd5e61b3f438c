package pipeline

import (
	"context"

	"golang.org/x/sync/errgroup"

	"salescleanse/pkg/contracts/domain"
)

// forEachRecord applies fn to every record with bounded parallelism. Audit
// entries are collected per index and flattened in record order, so output
// stays deterministic regardless of scheduling. fn must only touch the
// record it is handed.
func forEachRecord(ctx context.Context, records []domain.Record, workers int, fn func(r *domain.Record) []domain.AuditEntry) ([]domain.AuditEntry, error) {
	if workers < 1 {
		workers = 1
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	perRecord := make([][]domain.AuditEntry, len(records))
	for i := range records {
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			perRecord[i] = fn(&records[i])
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	entries := make([]domain.AuditEntry, 0)
	for _, recordEntries := range perRecord {
		entries = append(entries, recordEntries...)
	}
	return entries, nil
}
