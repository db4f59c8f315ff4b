// AngelaMos | 2026
// service.go

package notification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/carterperez-dev/templates/collab-backend/internal/core"
	"github.com/carterperez-dev/templates/collab-backend/internal/metrics"
)

type Service struct {
	repo   Repository
	hub    Hub
	logger *slog.Logger
	now    func() time.Time
}

func NewService(repo Repository, hub Hub, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:   repo,
		hub:    hub,
		logger: logger,
		now:    time.Now,
	}
}

// Feed reads all three sources and merges them.
func (s *Service) Feed(ctx context.Context, userID string, filter Filter) (*Feed, error) {
	ctx, span := core.StartSpan(ctx, "notification.feed",
		attribute.String("filter", string(filter)),
	)
	defer span.End()

	var (
		requests []JoinRequest
		updates  []JoinRequest
		digest   Digest
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		requests, err = s.repo.ListJoinRequests(gctx, userID)
		return err
	})
	g.Go(func() error {
		var err error
		updates, err = s.repo.ListRequestUpdates(gctx, userID)
		return err
	})
	g.Go(func() error {
		var err error
		digest, err = s.repo.GetDigest(gctx, userID)
		return err
	})
	if err := g.Wait(); err != nil {
		core.SetSpanError(ctx, err)
		return nil, fmt.Errorf("read feed: %w", err)
	}

	return Merge(filter,
		FromJoinRequests(requests),
		FromRequestUpdates(updates),
		FromDigest(digest, s.now().UTC()),
	), nil
}

// Delete removes the request behind an event. Deleting the digest marks
// every conversation read instead.
func (s *Service) Delete(ctx context.Context, userID, eventID string) error {
	if eventID == "" {
		return fmt.Errorf("delete event: %w", core.ErrInvalidInput)
	}
	if eventID == DigestID {
		_, err := s.MarkDigestRead(ctx, userID)
		return err
	}
	if err := s.repo.DeleteRequest(ctx, eventID, userID); err != nil {
		return err
	}

	s.logger.Debug("notification deleted", "user_id", userID, "event_id", eventID)
	return nil
}

func (s *Service) MarkDigestRead(ctx context.Context, userID string) (int64, error) {
	cleared, err := s.repo.MarkDigestRead(ctx, userID, s.now().UTC())
	if err != nil {
		return 0, err
	}

	s.logger.Debug("unread digest cleared",
		"user_id", userID,
		"conversations", cleared,
	)
	return cleared, nil
}

func (s *Service) MarkRequestRead(ctx context.Context, userID, requestID string) error {
	if requestID == "" {
		return fmt.Errorf("mark request read: %w", core.ErrInvalidInput)
	}
	return s.repo.MarkRequestRead(ctx, requestID, userID)
}

// Subscribe delivers the current feed to fn, then a fresh full feed after
// every change signal for the user. fn is never called concurrently and
// never after the returned unsubscribe func has returned.
func (s *Service) Subscribe(
	ctx context.Context,
	userID string,
	filter Filter,
	fn func(*Feed),
) (func(), error) {
	signals, stop, err := s.hub.Subscribe(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("subscribe feed: %w", err)
	}

	feed, err := s.Feed(ctx, userID, filter)
	if err != nil {
		stop()
		return nil, err
	}
	fn(feed)

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	metrics.NotificationSubscribers.Inc()

	go func() {
		defer close(done)
		defer metrics.NotificationSubscribers.Dec()

		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-signals:
				if !ok {
					return
				}
				feed, err := s.Feed(ctx, userID, filter)
				if err != nil {
					if !errors.Is(err, context.Canceled) {
						s.logger.Error("failed to refresh notification feed",
							"user_id", userID,
							"error", err,
						)
					}
					continue
				}
				fn(feed)
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			stop()
			<-done
		})
	}, nil
}
