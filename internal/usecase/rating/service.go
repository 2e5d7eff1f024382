package rating

import (
	"context"
	"math"

	"github.com/cinescope/movie_reviewer/internal/domain"
	"github.com/cinescope/movie_reviewer/internal/pkg/logger"
)

// ReviewSource is the slice of the review store the aggregator reads.
type ReviewSource interface {
	GetByMovie(movieID string) []*domain.Review
}

// RatingCache caches computed movie ratings.
type RatingCache interface {
	GetMovieRating(ctx context.Context, movieID string) (float64, error)
	SetMovieRating(ctx context.Context, movieID string, rating float64) error
	InvalidateMovieRating(ctx context.Context, movieID string) error
}

// Service computes movie rating aggregates. The mean is always taken over
// every review indexed for the movie, legacy included, regardless of who is
// asking: visibility filtering is a presentation concern for listings, not
// for aggregates.
type Service struct {
	store  ReviewSource
	cache  RatingCache
	logger *logger.Logger
}

// NewService creates a new rating service
func NewService(store ReviewSource, cache RatingCache, log *logger.Logger) *Service {
	return &Service{
		store:  store,
		cache:  cache,
		logger: log,
	}
}

// AverageRating returns the movie's mean rating rounded to 2 decimal
// places, or nil when the movie has no reviews at all - no reviews is not a
// zero rating.
func (s *Service) AverageRating(ctx context.Context, movieID string) (*float64, error) {
	if cached, err := s.cache.GetMovieRating(ctx, movieID); err == nil {
		s.logger.Debugf("Cache hit for movie %s rating", movieID)
		return &cached, nil
	}

	avg := s.compute(movieID)
	if avg == nil {
		return nil, nil
	}
	if err := s.cache.SetMovieRating(ctx, movieID, *avg); err != nil {
		s.logger.Warnf("Failed to cache rating for movie %s: %v", movieID, err)
	}
	return avg, nil
}

// Recompute recalculates a movie's rating and refreshes the cache, used by
// the rating worker when review events arrive.
func (s *Service) Recompute(ctx context.Context, movieID string) error {
	avg := s.compute(movieID)
	if avg == nil {
		if err := s.cache.InvalidateMovieRating(ctx, movieID); err != nil {
			return err
		}
		s.logger.Debugf("Movie %s has no reviews, rating cache cleared", movieID)
		return nil
	}
	if err := s.cache.SetMovieRating(ctx, movieID, *avg); err != nil {
		return err
	}
	s.logger.WithFields(map[string]interface{}{
		"movie_id": movieID,
		"rating":   *avg,
	}).Info("Recomputed movie rating")
	return nil
}

func (s *Service) compute(movieID string) *float64 {
	reviews := s.store.GetByMovie(movieID)
	if len(reviews) == 0 {
		return nil
	}
	sum := 0
	for _, r := range reviews {
		sum += r.Rating
	}
	avg := math.Round(float64(sum)/float64(len(reviews))*100) / 100
	return &avg
}
