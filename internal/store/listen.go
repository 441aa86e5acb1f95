package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
)

// Listener holds a dedicated connection on LISTEN report_events and
// hands each payload to the handler. It reconnects on connection loss
// and only returns once the context is done.
type Listener struct {
	pool   *pgxpool.Pool
	logger *logrus.Logger
}

func NewListener(pool *pgxpool.Pool, logger *logrus.Logger) *Listener {
	return &Listener{pool: pool, logger: logger}
}

func (l *Listener) Listen(ctx context.Context, handler func(payload string)) error {
	for {
		err := l.listenOnce(ctx, handler)
		if ctx.Err() != nil {
			return ctx.Err()
		}

		l.logger.WithError(err).Warn("report event listener disconnected, retrying")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Second):
		}
	}
}

func (l *Listener) listenOnce(ctx context.Context, handler func(payload string)) error {

	conn, err := l.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire listen connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, fmt.Sprintf("listen %s", ReportEventsChannel))
	if err != nil {
		return fmt.Errorf("listen %s: %w", ReportEventsChannel, err)
	}

	for {
		notification, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			return fmt.Errorf("wait for notification: %w", err)
		}

		handler(notification.Payload)
	}
}
