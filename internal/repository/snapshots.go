package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Simplici0/dealfinder/internal/listing"
)

const (
	snapshotsTable = "listing_snapshots"
	// Keeps every statement well under SQLite's bound-parameter limit.
	snapshotBatchSize = 100
)

var snapshotColumns = []string{
	"item_id", "title", "price", "item_url", "cpu_model", "ram", "storage", "tco", "last_updated",
}

// Snapshot is the last seen state of a listing.
type Snapshot struct {
	ItemID      string
	Title       string
	Price       *float64
	ItemURL     string
	CPUModel    string
	RAM         string
	Storage     string
	TCO         *float64
	LastUpdated time.Time
}

// Snapshots records listings returned by searches, keyed by item id.
type Snapshots struct {
	db  DBTX
	now func() time.Time
}

// NewSnapshots returns a Snapshots repository backed by db.
func NewSnapshots(db DBTX) *Snapshots {
	return &Snapshots{db: db, now: time.Now}
}

// Upsert inserts or refreshes a snapshot for every listing with an item id and
// returns how many rows were written. Repeated ids keep their first occurrence.
func (r *Snapshots) Upsert(ctx context.Context, items []listing.Derived) (int, error) {
	stamp := r.now().Unix()
	written := 0
	seen := make(map[string]struct{}, len(items))

	for start := 0; start < len(items); start += snapshotBatchSize {
		end := min(start+snapshotBatchSize, len(items))

		insert := psql.Insert(snapshotsTable).Columns(snapshotColumns...)
		rows := 0
		for _, item := range items[start:end] {
			if item.ItemID == "" {
				continue
			}
			if _, dup := seen[item.ItemID]; dup {
				continue
			}
			seen[item.ItemID] = struct{}{}
			insert = insert.Values(
				item.ItemID,
				item.Title,
				nullFloat(item.Price),
				item.ItemURL,
				item.CPUModel,
				item.RAM,
				item.Storage,
				nullFloat(item.TCO),
				stamp,
			)
			rows++
		}
		if rows == 0 {
			continue
		}

		query, args, err := insert.Suffix(`ON CONFLICT (item_id) DO UPDATE SET
			title = excluded.title,
			price = excluded.price,
			item_url = excluded.item_url,
			cpu_model = excluded.cpu_model,
			ram = excluded.ram,
			storage = excluded.storage,
			tco = excluded.tco,
			last_updated = excluded.last_updated`).ToSql()
		if err != nil {
			return written, fmt.Errorf("build snapshot upsert: %w", err)
		}
		if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
			return written, fmt.Errorf("upsert listing snapshots: %w", err)
		}
		written += rows
	}

	return written, nil
}

// Recent returns up to limit snapshots, most recently updated first.
func (r *Snapshots) Recent(ctx context.Context, limit int) ([]Snapshot, error) {
	if limit <= 0 {
		return nil, nil
	}

	query, args, err := psql.Select(snapshotColumns...).
		From(snapshotsTable).
		OrderBy("last_updated DESC", "item_id").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build snapshot query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query listing snapshots: %w", err)
	}
	defer rows.Close()

	var out []Snapshot
	for rows.Next() {
		var (
			s          Snapshot
			price, tco sql.NullFloat64
			updated    int64
		)
		if err := rows.Scan(&s.ItemID, &s.Title, &price, &s.ItemURL, &s.CPUModel, &s.RAM, &s.Storage, &tco, &updated); err != nil {
			return nil, fmt.Errorf("scan listing snapshot: %w", err)
		}
		s.Price = floatPtr(price)
		s.TCO = floatPtr(tco)
		s.LastUpdated = time.Unix(updated, 0)
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate listing snapshots: %w", err)
	}
	return out, nil
}

// Count returns the number of stored snapshots.
func (r *Snapshots) Count(ctx context.Context) (int, error) {
	query, args, err := psql.Select("COUNT(*)").From(snapshotsTable).ToSql()
	if err != nil {
		return 0, fmt.Errorf("build snapshot count: %w", err)
	}
	var n int
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count listing snapshots: %w", err)
	}
	return n, nil
}
