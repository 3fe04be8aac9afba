package postgres

import (
	"context"
	"errors"
	"testing"

	"delivery-realtime/internal/domain/driver"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildDriverUpdate(t *testing.T) {
	busy := driver.DriverStatusBusy
	order := "O1"

	query, args, err := buildDriverUpdate("D1", driver.Update{Status: &busy, CurrentOrderID: &order})
	require.NoError(t, err)
	assert.Contains(t, query, "SET status = $2, current_order_id = $3, updated_at = NOW() WHERE id = $1")
	assert.Equal(t, []any{"D1", "BUSY", "O1"}, args)
}

func TestBuildDriverUpdateClearOrderWins(t *testing.T) {
	order := "O1"
	upd := driver.StatusUpdate(driver.DriverStatusAvailable)
	upd.CurrentOrderID = &order
	upd.ClearOrder = true

	query, args, err := buildDriverUpdate("D1", upd)
	require.NoError(t, err)
	assert.Contains(t, query, "current_order_id = NULL")
	assert.Equal(t, []any{"D1", "AVAILABLE"}, args)
}

func TestBuildDriverUpdateRejects(t *testing.T) {
	_, _, err := buildDriverUpdate("D1", driver.Update{})
	assert.ErrorIs(t, err, driver.ErrEmptyUpdate)

	bogus := driver.DriverStatus("NAPPING")
	_, _, err = buildDriverUpdate("D1", driver.Update{Status: &bogus})
	assert.ErrorIs(t, err, driver.ErrInvalidDriverStatus)
}

type recRow struct{ err error }

func (r recRow) Scan(...any) error { return r.err }

// recDB answers every statement as if no row matched.
type recDB struct {
	name  string
	calls *[]string
}

func (d recDB) Exec(_ context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
	*d.calls = append(*d.calls, d.name)
	return pgconn.NewCommandTag("UPDATE 0"), nil
}

func (d recDB) Query(context.Context, string, ...any) (pgx.Rows, error) {
	*d.calls = append(*d.calls, d.name)
	return nil, errors.New("not used")
}

func (d recDB) QueryRow(context.Context, string, ...any) pgx.Row {
	*d.calls = append(*d.calls, d.name)
	return recRow{err: pgx.ErrNoRows}
}

// fakeTx routes statements to its recDB; the rest of pgx.Tx is unused.
type fakeTx struct {
	pgx.Tx
	db recDB
}

func (t fakeTx) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return t.db.Exec(ctx, sql, args...)
}

func (t fakeTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return t.db.Query(ctx, sql, args...)
}

func (t fakeTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return t.db.QueryRow(ctx, sql, args...)
}

func TestReposJoinTransactionInContext(t *testing.T) {
	var calls []string
	pool := recDB{name: "pool", calls: &calls}
	tx := fakeTx{db: recDB{name: "tx", calls: &calls}}

	drivers := NewDriverRepo(pool)
	notifications := NewNotificationRepo(pool)

	_, err := drivers.GetByID(context.Background(), "D1")
	assert.ErrorIs(t, err, driver.ErrDriverNotFound)

	txCtx := context.WithValue(context.Background(), txKey{}, pgx.Tx(tx))
	_, err = drivers.GetByID(txCtx, "D1")
	assert.ErrorIs(t, err, driver.ErrDriverNotFound)

	err = notifications.MarkDelivered(txCtx, "N1")
	assert.ErrorIs(t, err, ErrNotificationNotFound)

	assert.Equal(t, []string{"pool", "tx", "tx"}, calls)
}
