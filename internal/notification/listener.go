// AngelaMos | 2026
// listener.go

package notification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/carterperez-dev/templates/collab-backend/internal/metrics"
)

type Publisher interface {
	Publish(ctx context.Context, userID string) error
}

// ChangeChannel is the NOTIFY channel the join_requests and
// message_digests triggers publish on.
const ChangeChannel = "notification_changes"

// Listener bridges Postgres NOTIFY payloads (affected user ids) to a
// Publisher. It holds one dedicated connection outside the pool.
type Listener struct {
	dsn       string
	backoff   time.Duration
	publisher Publisher
	logger    *slog.Logger
	listening atomic.Bool
}

var errNotListening = errors.New("notification listener not connected")

func NewListener(
	dsn string,
	backoff time.Duration,
	publisher Publisher,
	logger *slog.Logger,
) *Listener {
	if backoff <= 0 {
		backoff = 2 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Listener{
		dsn:       dsn,
		backoff:   backoff,
		publisher: publisher,
		logger:    logger,
	}
}

// Run listens until ctx is cancelled, reconnecting after failures.
func (l *Listener) Run(ctx context.Context) error {
	for {
		err := l.listen(ctx)
		if ctx.Err() != nil {
			return nil //nolint:nilerr // shutdown
		}
		l.logger.Warn("notification listener disconnected",
			"channel", ChangeChannel,
			"error", err,
			"retry_in", l.backoff,
		)

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(l.backoff):
		}
	}
}

// Ping reports whether the LISTEN connection is currently up.
func (l *Listener) Ping(context.Context) error {
	if !l.listening.Load() {
		return errNotListening
	}
	return nil
}

func (l *Listener) listen(ctx context.Context) error {
	conn, err := pgx.Connect(ctx, l.dsn)
	if err != nil {
		return fmt.Errorf("connect listener: %w", err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = conn.Close(closeCtx) //nolint:errcheck // connection is being discarded
	}()

	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{ChangeChannel}.Sanitize()); err != nil {
		return fmt.Errorf("listen %s: %w", ChangeChannel, err)
	}
	l.listening.Store(true)
	defer l.listening.Store(false)
	l.logger.Info("notification listener started", "channel", ChangeChannel)

	for {
		n, err := conn.WaitForNotification(ctx)
		if err != nil {
			return fmt.Errorf("wait for notification: %w", err)
		}
		metrics.NotificationChanges.Inc()

		if n.Payload == "" {
			continue
		}
		if err := l.publisher.Publish(ctx, n.Payload); err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			l.logger.Error("failed to publish notification change",
				"user_id", n.Payload,
				"error", err,
			)
		}
	}
}
