// AngelaMos | 2026
// service.go

package follow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/carterperez-dev/templates/collab-backend/internal/core"
	"github.com/carterperez-dev/templates/collab-backend/internal/counter"
	"github.com/carterperez-dev/templates/collab-backend/internal/metrics"
)

type Service struct {
	primitive *counter.Primitive
	repo      Repository
	logger    *slog.Logger
}

func NewService(
	primitive *counter.Primitive,
	repo Repository,
	logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{primitive: primitive, repo: repo, logger: logger}
}

func (s *Service) Follow(ctx context.Context, followerID, followingID string) error {
	err := s.apply(ctx, followerID, followingID, counter.CreateEdge)
	observe("follow", err)
	if err != nil {
		return err
	}

	s.logger.Debug("user followed",
		"follower_id", followerID,
		"following_id", followingID,
	)
	return nil
}

func (s *Service) Unfollow(ctx context.Context, followerID, followingID string) error {
	err := s.apply(ctx, followerID, followingID, counter.DeleteEdge)
	observe("unfollow", err)
	if err != nil {
		return err
	}

	s.logger.Debug("user unfollowed",
		"follower_id", followerID,
		"following_id", followingID,
	)
	return nil
}

func (s *Service) apply(
	ctx context.Context,
	followerID, followingID string,
	mode counter.EdgeMode,
) error {
	if followerID == "" || followingID == "" {
		return fmt.Errorf("%s: %w", mode, core.ErrInvalidInput)
	}
	if followerID == followingID {
		return ErrSelfFollow
	}

	var delta int64 = 1
	if mode == counter.DeleteEdge {
		delta = -1
	}

	err := s.primitive.ApplyPaired(ctx, counter.PairedWrite{
		Edge: counter.Edge{
			Table: edgeTable,
			ID:    EdgeID(followerID, followingID),
			Values: map[string]any{
				"follower_id":  followerID,
				"following_id": followingID,
			},
			Mode: mode,
		},
		A: counter.Counter{
			Table:     statsTable,
			KeyColumn: "user_id",
			Key:       followerID,
			Field:     fieldFollowing,
			Delta:     delta,
		},
		B: counter.Counter{
			Table:     statsTable,
			KeyColumn: "user_id",
			Key:       followingID,
			Field:     fieldFollowers,
			Delta:     delta,
		},
	})

	switch {
	case err == nil:
		return nil
	case errors.Is(err, counter.ErrEdgeExists):
		return ErrAlreadyFollowing
	case errors.Is(err, counter.ErrEdgeMissing):
		return ErrNotFollowing
	default:
		return fmt.Errorf("%s: %w", mode, err)
	}
}

func (s *Service) IsFollowing(ctx context.Context, followerID, followingID string) (bool, error) {
	if followerID == followingID {
		return false, nil
	}
	return s.repo.IsFollowing(ctx, followerID, followingID)
}

func (s *Service) GetStats(ctx context.Context, userID string) (*Stats, error) {
	return s.repo.GetStats(ctx, userID)
}

func (s *Service) GetFollowers(
	ctx context.Context,
	userID string,
	params ListParams,
) ([]Connection, int, error) {
	return s.repo.ListFollowers(ctx, userID, params)
}

func (s *Service) GetFollowing(
	ctx context.Context,
	userID string,
	params ListParams,
) ([]Connection, int, error) {
	return s.repo.ListFollowing(ctx, userID, params)
}

func observe(operation string, err error) {
	result := "ok"
	switch {
	case err == nil:
	case errors.Is(err, ErrAlreadyFollowing), errors.Is(err, ErrNotFollowing), errors.Is(err, ErrSelfFollow):
		result = "rejected"
	default:
		result = "error"
	}
	metrics.FollowOperations.WithLabelValues(operation, result).Inc()
}
