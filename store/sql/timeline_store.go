package sqlstore

import (
	"context"
	"fmt"
	"strings"

	"github.com/goliatone/go-orders/core"
	"github.com/uptrace/bun"
)

// TimelineStore reads the append-only audit trail written by
// OrderStore.Mutate. It never writes; entries only exist as a side effect
// of a committed transition.
type TimelineStore struct {
	db *bun.DB
}

func NewTimelineStore(db *bun.DB) (*TimelineStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	return &TimelineStore{db: db}, nil
}

func (s *TimelineStore) ListByOrder(ctx context.Context, orderID string) ([]core.TimelineEntry, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("sqlstore: timeline store is not configured")
	}
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return nil, fmt.Errorf("sqlstore: order id is required")
	}
	var records []*timelineEntryRecord
	err := s.db.NewSelect().
		Model(&records).
		Where("?TableAlias.order_id = ?", orderID).
		Order("created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	entries := make([]core.TimelineEntry, 0, len(records))
	for _, record := range records {
		entries = append(entries, timelineEntryToDomain(record))
	}
	return entries, nil
}

func timelineEntryFromDomain(entry core.TimelineEntry) *timelineEntryRecord {
	record := &timelineEntryRecord{
		ID:         entry.ID,
		OrderID:    entry.OrderID,
		FromStatus: string(entry.FromStatus),
		ToStatus:   string(entry.ToStatus),
		ActorID:    entry.ActorID,
		ActorRole:  string(entry.ActorRole),
		Note:       entry.Note,
		Metadata:   entry.Metadata,
		CreatedAt:  entry.CreatedAt,
	}
	if entry.Location != nil {
		lat := entry.Location.Lat
		lng := entry.Location.Lng
		record.Lat = &lat
		record.Lng = &lng
	}
	return record
}

func timelineEntryToDomain(record *timelineEntryRecord) core.TimelineEntry {
	if record == nil {
		return core.TimelineEntry{}
	}
	entry := core.TimelineEntry{
		ID:         record.ID,
		OrderID:    record.OrderID,
		FromStatus: core.OrderStatus(record.FromStatus),
		ToStatus:   core.OrderStatus(record.ToStatus),
		ActorID:    record.ActorID,
		ActorRole:  core.ActorRole(record.ActorRole),
		Note:       record.Note,
		Metadata:   record.Metadata,
		CreatedAt:  record.CreatedAt,
	}
	if record.Lat != nil && record.Lng != nil {
		entry.Location = &core.GeoPoint{
			Lat: *record.Lat,
			Lng: *record.Lng,
		}
	}
	return entry
}

var _ core.TimelineStore = (*TimelineStore)(nil)
