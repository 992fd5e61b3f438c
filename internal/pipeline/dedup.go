package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"salescleanse/pkg/contracts/domain"
)

// Deduplicator collapses records sharing a transaction_id down to a single
// survivor. Within a duplicate group the record with the fewest missing
// values among quantity, price, date and product_name wins; ties keep the
// first-encountered record. Rows without a transaction_id are fatal and
// move to the rejected list before grouping.
type Deduplicator struct {
	BaseStage
	logger *slog.Logger
}

// NewDeduplicator creates the duplicate removal stage
func NewDeduplicator(logger *slog.Logger) *Deduplicator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Deduplicator{
		BaseStage: NewBaseStage(StageIDDeduplicate, StageNameDeduplicate, nil),
		logger:    logger,
	}
}

// Run removes duplicates, preserving first-occurrence order of survivors
func (d *Deduplicator) Run(ctx context.Context, set *domain.RecordSet) (*domain.RecordSet, []domain.AuditEntry, error) {
	if set == nil {
		return nil, nil, ErrNilRecordSet
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	out := set.Clone()
	entries := make([]domain.AuditEntry, 0)

	kept := make([]domain.Record, 0, len(out.Records))
	keptIndex := make(map[string]int, len(out.Records))
	missingID := 0

	for _, rec := range out.Records {
		if strings.TrimSpace(rec.TransactionID) == "" {
			out.Reject(rec, domain.ReasonMissingID)
			missingID++
			continue
		}

		existing, seen := keptIndex[rec.TransactionID]
		if !seen {
			keptIndex[rec.TransactionID] = len(kept)
			kept = append(kept, rec)
			continue
		}

		current := kept[existing]
		if rec.NullFieldCount() < current.NullFieldCount() {
			// The newcomer is more complete; it takes over the
			// survivor's first-occurrence position.
			entries = append(entries, dropEntry(current, rec))
			kept[existing] = rec
		} else {
			entries = append(entries, dropEntry(rec, current))
		}
	}

	out.Records = kept

	if len(entries) > 0 || missingID > 0 {
		d.logger.InfoContext(ctx, "duplicates_removed",
			slog.Int("duplicates", len(entries)),
			slog.Int("missing_id", missingID),
			slog.Int("survivors", len(kept)))
	}

	return out, entries, nil
}

func dropEntry(dropped, kept domain.Record) domain.AuditEntry {
	return domain.NewAuditEntry(
		dropped.TransactionID,
		StageIDDeduplicate,
		"transaction_id",
		fmt.Sprintf("row %d", dropped.SourceRow),
		fmt.Sprintf("kept row %d", kept.SourceRow),
		domain.ReasonDuplicateTransactionID,
	)
}
