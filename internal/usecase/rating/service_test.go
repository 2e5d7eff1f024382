package rating

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cinescope/movie_reviewer/internal/domain"
	"github.com/cinescope/movie_reviewer/internal/pkg/logger"
)

var testLogger = logger.New("test")

// stubSource returns fixed review sets per movie.
type stubSource struct {
	byMovie map[string][]*domain.Review
}

func (s stubSource) GetByMovie(movieID string) []*domain.Review {
	return s.byMovie[movieID]
}

// memoryCache is an in-process RatingCache for the tests.
type memoryCache struct {
	ratings map[string]float64
}

func newMemoryCache() *memoryCache {
	return &memoryCache{ratings: make(map[string]float64)}
}

func (c *memoryCache) GetMovieRating(_ context.Context, movieID string) (float64, error) {
	rating, ok := c.ratings[movieID]
	if !ok {
		return 0, domain.ErrNotFound
	}
	return rating, nil
}

func (c *memoryCache) SetMovieRating(_ context.Context, movieID string, rating float64) error {
	c.ratings[movieID] = rating
	return nil
}

func (c *memoryCache) InvalidateMovieRating(_ context.Context, movieID string) error {
	delete(c.ratings, movieID)
	return nil
}

func reviewsWithRatings(ratings ...int) []*domain.Review {
	reviews := make([]*domain.Review, len(ratings))
	for i, r := range ratings {
		reviews[i] = &domain.Review{ID: "r", MovieID: "movie_001", Rating: r}
	}
	return reviews
}

func TestAverageRating_MeanRoundedToTwoDecimals(t *testing.T) {
	source := stubSource{byMovie: map[string][]*domain.Review{
		"movie_001": reviewsWithRatings(5, 3, 4),
		"movie_002": reviewsWithRatings(5, 4),
		"movie_003": reviewsWithRatings(1, 1, 2),
	}}
	svc := NewService(source, newMemoryCache(), testLogger)

	avg, err := svc.AverageRating(context.Background(), "movie_001")
	require.NoError(t, err)
	require.NotNil(t, avg)
	assert.Equal(t, 4.0, *avg)

	avg, err = svc.AverageRating(context.Background(), "movie_002")
	require.NoError(t, err)
	require.NotNil(t, avg)
	assert.Equal(t, 4.5, *avg)

	avg, err = svc.AverageRating(context.Background(), "movie_003")
	require.NoError(t, err)
	require.NotNil(t, avg)
	assert.Equal(t, 1.33, *avg) // 4/3 rounded
}

func TestAverageRating_NoReviewsIsNilNotZero(t *testing.T) {
	svc := NewService(stubSource{byMovie: map[string][]*domain.Review{}}, newMemoryCache(), testLogger)

	avg, err := svc.AverageRating(context.Background(), "movie_404")
	require.NoError(t, err)
	assert.Nil(t, avg)
}

func TestAverageRating_ServesFromCache(t *testing.T) {
	cache := newMemoryCache()
	require.NoError(t, cache.SetMovieRating(context.Background(), "movie_001", 2.75))

	// The source disagrees with the cache; the cached value wins until it
	// is invalidated.
	source := stubSource{byMovie: map[string][]*domain.Review{
		"movie_001": reviewsWithRatings(5, 5),
	}}
	svc := NewService(source, cache, testLogger)

	avg, err := svc.AverageRating(context.Background(), "movie_001")
	require.NoError(t, err)
	require.NotNil(t, avg)
	assert.Equal(t, 2.75, *avg)
}

func TestRecompute(t *testing.T) {
	cache := newMemoryCache()
	source := stubSource{byMovie: map[string][]*domain.Review{
		"movie_001": reviewsWithRatings(5, 3, 4),
	}}
	svc := NewService(source, cache, testLogger)

	require.NoError(t, svc.Recompute(context.Background(), "movie_001"))
	assert.Equal(t, 4.0, cache.ratings["movie_001"])

	// A movie whose last review disappeared gets its cache entry cleared
	// rather than a stale or zero value.
	cache.ratings["movie_002"] = 3.5
	require.NoError(t, svc.Recompute(context.Background(), "movie_002"))
	_, ok := cache.ratings["movie_002"]
	assert.False(t, ok)
}
