package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/Simplici0/dealfinder/internal/tco"
)

const defaultsTable = "tco_defaults"

// ErrInvalidAssumptions is returned when assumptions with non-numeric fields are stored.
var ErrInvalidAssumptions = errors.New("invalid assumptions")

// Defaults stores the default TCO assumptions as a singleton row.
type Defaults struct {
	db  DBTX
	now func() time.Time
}

// NewDefaults returns a Defaults repository backed by db.
func NewDefaults(db DBTX) *Defaults {
	return &Defaults{db: db, now: time.Now}
}

// Ensure inserts the singleton row when it does not exist yet and reports
// whether it did.
func (r *Defaults) Ensure(ctx context.Context, a tco.Assumptions) (bool, error) {
	a = a.Normalize()
	if err := checkAssumptions(a); err != nil {
		return false, err
	}

	var exists bool
	if err := r.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM tco_defaults WHERE id = 1)`).Scan(&exists); err != nil {
		return false, fmt.Errorf("check tco defaults existence: %w", err)
	}
	if exists {
		return false, nil
	}

	query, args, err := psql.Insert(defaultsTable).
		Columns(append([]string{"id"}, append(tco.Fields, "updated_at")...)...).
		Values(append([]any{1}, append(assumptionArgs(a), r.now().Unix())...)...).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build tco defaults insert: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return false, fmt.Errorf("insert tco defaults singleton: %w", err)
	}
	return true, nil
}

// Get returns the stored defaults. found is false when the singleton row is missing.
func (r *Defaults) Get(ctx context.Context) (a tco.Assumptions, found bool, err error) {
	query, args, err := psql.Select(tco.Fields...).From(defaultsTable).Where(sq.Eq{"id": 1}).ToSql()
	if err != nil {
		return tco.Assumptions{}, false, fmt.Errorf("build tco defaults query: %w", err)
	}

	err = r.db.QueryRowContext(ctx, query, args...).Scan(
		&a.KWhCost,
		&a.LifespanYears,
		&a.ShippingCostTCPU,
		&a.ShippingCostNonTCPU,
		&a.RequiredRAMGB,
		&a.RAMUpgradeFlatCost,
		&a.RequiredStorageGB,
		&a.StorageUpgradeFlatCost,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return tco.Assumptions{}, false, nil
	}
	if err != nil {
		return tco.Assumptions{}, false, fmt.Errorf("query tco defaults: %w", err)
	}
	return a.Normalize(), true, nil
}

// Update overwrites the singleton row, creating it when missing. It reports
// whether any stored value changed.
func (r *Defaults) Update(ctx context.Context, a tco.Assumptions) (bool, error) {
	a = a.Normalize()
	if err := checkAssumptions(a); err != nil {
		return false, err
	}

	current, found, err := r.Get(ctx)
	if err != nil {
		return false, err
	}
	if !found {
		return r.Ensure(ctx, a)
	}
	if current == a {
		return false, nil
	}

	set := make(map[string]any, len(tco.Fields)+1)
	values := a.Values()
	for _, f := range tco.Fields {
		set[f] = values[f]
	}
	set["updated_at"] = r.now().Unix()

	query, args, err := psql.Update(defaultsTable).SetMap(set).Where(sq.Eq{"id": 1}).ToSql()
	if err != nil {
		return false, fmt.Errorf("build tco defaults update: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return false, fmt.Errorf("update tco defaults: %w", err)
	}
	return true, nil
}

func assumptionArgs(a tco.Assumptions) []any {
	values := a.Values()
	args := make([]any, 0, len(tco.Fields))
	for _, f := range tco.Fields {
		args = append(args, values[f])
	}
	return args
}

func checkAssumptions(a tco.Assumptions) error {
	if invalid := a.InvalidFields(); len(invalid) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidAssumptions, strings.Join(invalid, ", "))
	}
	return nil
}
