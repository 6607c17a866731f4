package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// ProblemsChannel is the NOTIFY channel fed by the problems trigger. The
// payload is the responsible_id of the changed row.
const ProblemsChannel = "problems_changed"

// Listener holds one pooled connection in LISTEN mode and reconnects when it drops.
type Listener struct {
	pool       *pgxpool.Pool
	channel    string
	retryDelay time.Duration
	logger     *zap.SugaredLogger
}

// NewListener creates a listener for channel.
func NewListener(pool *pgxpool.Pool, channel string, logger *zap.SugaredLogger) *Listener {
	return &Listener{pool: pool, channel: channel, retryDelay: 2 * time.Second, logger: logger}
}

// Listen calls handle with the payload of every notification until ctx is done.
func (l *Listener) Listen(ctx context.Context, handle func(payload string)) error {
	for {
		err := l.listenOnce(ctx, handle)
		if ctx.Err() != nil {
			return nil
		}
		l.logger.Warnw("Notification listener disconnected", "channel", l.channel, "error", err)

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(l.retryDelay):
		}
	}
}

func (l *Listener) listenOnce(ctx context.Context, handle func(string)) error {
	conn, err := l.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire: %w", err)
	}
	defer func() {
		// Leave the connection clean for the next pool user.
		cleanup, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_, _ = conn.Exec(cleanup, "UNLISTEN *")
		conn.Release()
	}()

	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{l.channel}.Sanitize()); err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	l.logger.Infow("Listening for notifications", "channel", l.channel)

	for {
		n, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			return err
		}
		handle(n.Payload)
	}
}
