package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/cinescope/movie_reviewer/internal/domain"
)

// RedisCache caches computed movie ratings and visibility-filtered review
// pages. Review pages are keyed by viewer as well, since two viewers with
// different block sets see different lists.
type RedisCache struct {
	client         *redis.Client
	movieRatingTTL time.Duration
	reviewsListTTL time.Duration
}

// NewRedisCache creates a new Redis cache instance
func NewRedisCache(client *redis.Client, movieRatingTTL, reviewsListTTL time.Duration) *RedisCache {
	return &RedisCache{
		client:         client,
		movieRatingTTL: movieRatingTTL,
		reviewsListTTL: reviewsListTTL,
	}
}

func (c *RedisCache) movieRatingKey(movieID string) string {
	return fmt.Sprintf("movie:%s:rating", movieID)
}

// GetMovieRating retrieves a cached movie rating.
func (c *RedisCache) GetMovieRating(ctx context.Context, movieID string) (float64, error) {
	val, err := c.client.Get(ctx, c.movieRatingKey(movieID)).Float64()
	if err != nil {
		if err == redis.Nil {
			return 0, domain.ErrNotFound
		}
		return 0, err
	}
	return val, nil
}

// SetMovieRating stores a movie rating in cache.
func (c *RedisCache) SetMovieRating(ctx context.Context, movieID string, rating float64) error {
	return c.client.Set(ctx, c.movieRatingKey(movieID), rating, c.movieRatingTTL).Err()
}

// InvalidateMovieRating removes a movie rating from cache.
func (c *RedisCache) InvalidateMovieRating(ctx context.Context, movieID string) error {
	return c.client.Del(ctx, c.movieRatingKey(movieID)).Err()
}

func (c *RedisCache) reviewsListKey(movieID, viewer string, limit, offset int) string {
	if viewer == "" {
		viewer = "anon"
	}
	return fmt.Sprintf("movie:%s:reviews:viewer:%s:limit:%d:offset:%d", movieID, viewer, limit, offset)
}

func (c *RedisCache) movieCacheKeysSet(movieID string) string {
	return fmt.Sprintf("movie:%s:cache_keys", movieID)
}

// GetReviewsList retrieves a cached review page for a movie and viewer.
func (c *RedisCache) GetReviewsList(ctx context.Context, movieID, viewer string, limit, offset int) ([]*domain.Review, error) {
	val, err := c.client.Get(ctx, c.reviewsListKey(movieID, viewer, limit, offset)).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}

	var reviews []*domain.Review
	if err := json.Unmarshal([]byte(val), &reviews); err != nil {
		return nil, err
	}
	return reviews, nil
}

// SetReviewsList stores a review page and tracks its key in a per-movie SET
// so invalidation can find every cached page.
func (c *RedisCache) SetReviewsList(ctx context.Context, movieID, viewer string, limit, offset int, reviews []*domain.Review) error {
	key := c.reviewsListKey(movieID, viewer, limit, offset)
	trackingKey := c.movieCacheKeysSet(movieID)

	data, err := json.Marshal(reviews)
	if err != nil {
		return err
	}

	pipe := c.client.Pipeline()
	pipe.Set(ctx, key, data, c.reviewsListTTL)
	pipe.SAdd(ctx, trackingKey, key)
	pipe.Expire(ctx, trackingKey, c.reviewsListTTL)
	_, err = pipe.Exec(ctx)
	return err
}

// InvalidateReviewsList removes all cached review pages for a movie.
func (c *RedisCache) InvalidateReviewsList(ctx context.Context, movieID string) error {
	trackingKey := c.movieCacheKeysSet(movieID)

	keys, err := c.client.SMembers(ctx, trackingKey).Result()
	if err != nil && err != redis.Nil {
		return err
	}

	if len(keys) > 0 {
		keys = append(keys, trackingKey)
		return c.client.Unlink(ctx, keys...).Err()
	}
	return nil
}

// InvalidateAllMovieCache invalidates every cache entry for a movie.
func (c *RedisCache) InvalidateAllMovieCache(ctx context.Context, movieID string) error {
	if err := c.InvalidateMovieRating(ctx, movieID); err != nil && err != redis.Nil {
		return err
	}
	if err := c.InvalidateReviewsList(ctx, movieID); err != nil && err != redis.Nil {
		return err
	}
	return nil
}
