package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"delivery-realtime/internal/domain/driver"
	"delivery-realtime/internal/ports"

	"github.com/jackc/pgx/v5"
)

// DriverRepo reads and updates the drivers table. Calls join the
// transaction in ctx when there is one.
type DriverRepo struct {
	db DBTX
}

// NewDriverRepo constructs a DriverRepo over db.
func NewDriverRepo(db DBTX) ports.DriverRepository {
	return &DriverRepo{db: db}
}

const driverColumns = `id, name, email, status, COALESCE(current_order_id, ''), latitude, longitude, created_at, updated_at`

func scanDriver(row pgx.Row) (*driver.Driver, error) {
	var out driver.Driver
	var status string
	err := row.Scan(
		&out.ID, &out.Name, &out.Email, &status, &out.CurrentOrderID,
		&out.Latitude, &out.Longitude, &out.CreatedAt, &out.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, driver.ErrDriverNotFound
	}
	if err != nil {
		return nil, err
	}
	out.Status = driver.DriverStatus(status)
	return &out, nil
}

// GetByID returns one driver or driver.ErrDriverNotFound.
func (repo *DriverRepo) GetByID(ctx context.Context, driverID string) (*driver.Driver, error) {
	return scanDriver(on(ctx, repo.db).QueryRow(ctx, `SELECT `+driverColumns+` FROM drivers WHERE id = $1`, driverID))
}

// Update writes the non-nil fields of upd and returns the updated row.
func (repo *DriverRepo) Update(ctx context.Context, driverID string, upd driver.Update) (*driver.Driver, error) {
	query, args, err := buildDriverUpdate(driverID, upd)
	if err != nil {
		return nil, err
	}
	return scanDriver(on(ctx, repo.db).QueryRow(ctx, query, args...))
}

// buildDriverUpdate renders the UPDATE for upd. ClearOrder wins over CurrentOrderID.
func buildDriverUpdate(driverID string, upd driver.Update) (string, []any, error) {
	if upd.Empty() {
		return "", nil, driver.ErrEmptyUpdate
	}

	var sets []string
	args := []any{driverID}
	add := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}

	if upd.Status != nil {
		if !upd.Status.Valid() {
			return "", nil, driver.ErrInvalidDriverStatus
		}
		add("status", upd.Status.String())
	}
	switch {
	case upd.ClearOrder:
		sets = append(sets, "current_order_id = NULL")
	case upd.CurrentOrderID != nil:
		add("current_order_id", *upd.CurrentOrderID)
	}
	sets = append(sets, "updated_at = NOW()")

	query := `UPDATE drivers SET ` + strings.Join(sets, ", ") + ` WHERE id = $1 RETURNING ` + driverColumns
	return query, args, nil
}
