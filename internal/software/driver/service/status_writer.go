package service

import (
	"context"
	"errors"

	"delivery-realtime/internal/domain/driver"
	"delivery-realtime/internal/general/logger"
	"delivery-realtime/internal/general/worker"
	"delivery-realtime/internal/ports"
)

// StatusWriter persists driver status changes on the worker pool and
// announces them on the bus. Jobs are keyed by driver so writes for one
// driver land in the order they were made. The pool should carry nothing
// but status writes: a job stuck on another dependency would hold up every
// driver that hashes to its worker.
type StatusWriter struct {
	logger  *logger.Logger
	uow     ports.UnitOfWork
	drivers ports.DriverRepository
	events  ports.EventPublisher // optional
	pool    *worker.Pool
}

var _ ports.DriverStatusWriter = (*StatusWriter)(nil)

// NewStatusWriter builds a writer. events may be nil.
func NewStatusWriter(log *logger.Logger, uow ports.UnitOfWork, drivers ports.DriverRepository, events ports.EventPublisher, pool *worker.Pool) *StatusWriter {
	return &StatusWriter{logger: log, uow: uow, drivers: drivers, events: events, pool: pool}
}

// WriteStatus queues the update and returns at once. Failures are logged by the pool.
func (w *StatusWriter) WriteStatus(driverID string, upd driver.Update) {
	details := map[string]any{"driver_id": driverID}
	if upd.Status != nil {
		details["status"] = upd.Status.String()
	}

	err := w.pool.Submit(worker.Job{
		Name:    "driver_status_write",
		Key:     driverID,
		Details: details,
		Run: func(ctx context.Context) error {
			return w.write(ctx, driverID, upd, false)
		},
	})
	// a full queue is already logged by the pool
	if errors.Is(err, worker.ErrClosed) {
		w.logger.Warn(context.Background(), "driver_status_write_dropped", "Pool closed; status write not queued", map[string]any{
			"driver_id": driverID, "error": err.Error(),
		})
	}
}

// Assign records orderID against the driver on the driver's queue and waits
// for the result, so it lands after any status write already queued for that
// driver and before any queued later. The write itself runs on the pool's
// context: giving up on ctx does not cancel it.
func (w *StatusWriter) Assign(ctx context.Context, driverID, orderID string) error {
	status := driver.DriverStatusAssigned
	upd := driver.Update{Status: &status, CurrentOrderID: &orderID}

	done := make(chan error, 1)
	err := w.pool.Submit(worker.Job{
		Name:    "driver_assign_write",
		Key:     driverID,
		Details: map[string]any{"driver_id": driverID, "order_id": orderID},
		Run: func(ctx context.Context) error {
			err := w.write(ctx, driverID, upd, true)
			done <- err
			return err
		},
	})
	if err != nil {
		return err
	}

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *StatusWriter) write(ctx context.Context, driverID string, upd driver.Update, mustExist bool) error {
	var saved *driver.Driver
	err := w.uow.WithinTx(ctx, func(ctx context.Context) error {
		if mustExist {
			if _, err := w.drivers.GetByID(ctx, driverID); err != nil {
				return err
			}
		}
		var err error
		saved, err = w.drivers.Update(ctx, driverID, upd)
		return err
	})
	if err != nil {
		return err
	}

	if w.events == nil || upd.Status == nil {
		return nil
	}
	return w.events.PublishDriverStatus(ctx, driverID, saved.Status, saved.CurrentOrderID)
}
