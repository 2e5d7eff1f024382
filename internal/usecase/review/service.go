package review

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/cinescope/movie_reviewer/internal/domain"
	"github.com/cinescope/movie_reviewer/internal/pkg/logger"
	pkgvalidator "github.com/cinescope/movie_reviewer/internal/pkg/validator"
)

// EventPublisher defines the interface for publishing events
type EventPublisher interface {
	Publish(ctx context.Context, subject string, data []byte) error
}

// ListCache caches visibility-filtered review pages per movie and viewer.
type ListCache interface {
	GetReviewsList(ctx context.Context, movieID, viewer string, limit, offset int) ([]*domain.Review, error)
	SetReviewsList(ctx context.Context, movieID, viewer string, limit, offset int, reviews []*domain.Review) error
	InvalidateAllMovieCache(ctx context.Context, movieID string) error
}

// Users is the slice of the user directory the review service needs: admin
// lookup for ownership overrides and the social graph for filtering.
type Users interface {
	Get(userID string) (*domain.User, error)
	IncrementReviewCount(userID string) error
	domain.SocialGraph
}

// ReviewEvent represents an event related to a review
type ReviewEvent struct {
	EventType string         `json:"event_type"`
	Timestamp time.Time      `json:"timestamp"`
	MovieID   string         `json:"movie_id"`
	Review    *domain.Review `json:"review,omitempty"`
}

// CreateInput is the validated input for creating a review.
type CreateInput struct {
	MovieID    string `json:"movie_id" validate:"required"`
	Rating     int    `json:"rating" validate:"required,min=1,max=5"`
	ReviewText string `json:"review_text"`
	ReviewDate string `json:"review_date"`
}

// Service handles review business logic: ownership and legacy-immutability
// rules, visibility filtering, caching, and event publishing. The store
// itself has no authorization logic; it lives here.
type Service struct {
	store     domain.ReviewStore
	movies    domain.MovieCatalog
	users     Users
	cache     ListCache
	publisher EventPublisher
	validate  *validator.Validate
	logger    *logger.Logger
}

// NewService creates a new review service
func NewService(
	store domain.ReviewStore,
	movies domain.MovieCatalog,
	users Users,
	cache ListCache,
	publisher EventPublisher,
	log *logger.Logger,
) *Service {
	return &Service{
		store:     store,
		movies:    movies,
		users:     users,
		cache:     cache,
		publisher: publisher,
		validate:  pkgvalidator.Get(),
		logger:    log,
	}
}

// Create stores a new review authored by userID.
func (s *Service) Create(ctx context.Context, userID string, input CreateInput) (*domain.Review, error) {
	if err := s.validate.Struct(input); err != nil {
		s.logger.Error("Review validation failed", err)
		return nil, domain.ErrInvalidInput
	}
	if s.users.UserStatus(userID).Suspended {
		return nil, domain.ErrSuspended
	}
	if !s.movies.Exists(input.MovieID) {
		return nil, fmt.Errorf("movie %s: %w", input.MovieID, domain.ErrNotFound)
	}

	created, err := s.store.Create(input.MovieID, userID, input.Rating, input.ReviewText, input.ReviewDate)
	if err != nil {
		if !errors.Is(err, domain.ErrDuplicateReview) {
			s.logger.Error("Failed to create review", err)
		}
		return nil, err
	}

	if err := s.users.IncrementReviewCount(userID); err != nil {
		s.logger.Warnf("Failed to bump review count for user %s: %v", userID, err)
	}
	s.invalidate(ctx, input.MovieID)
	s.publishEvent(ctx, "review.created", input.MovieID, created)

	s.logger.WithFields(map[string]interface{}{
		"review_id": created.ID,
		"movie_id":  created.MovieID,
		"rating":    created.Rating,
	}).Info("Review created successfully")

	return created, nil
}

// Get retrieves a single review by id.
func (s *Service) Get(reviewID string) (*domain.Review, error) {
	return s.store.Get(reviewID)
}

// ListByMovie returns a visibility-filtered page of a movie's reviews for
// the given viewer ("" means unauthenticated), plus the filtered total.
func (s *Service) ListByMovie(ctx context.Context, movieID, viewer string, limit, offset int) ([]*domain.Review, int, error) {
	if !s.movies.Exists(movieID) {
		return nil, 0, fmt.Errorf("movie %s: %w", movieID, domain.ErrNotFound)
	}
	limit, offset = clampPage(limit, offset)

	visible := FilterVisible(s.store.GetByMovie(movieID), viewer, s.users)
	total := len(visible)

	if cached, err := s.cache.GetReviewsList(ctx, movieID, viewer, limit, offset); err == nil {
		s.logger.Debugf("Cache hit for movie %s reviews (viewer=%q limit=%d offset=%d)", movieID, viewer, limit, offset)
		return cached, total, nil
	}

	page := paginate(visible, limit, offset)
	if err := s.cache.SetReviewsList(ctx, movieID, viewer, limit, offset, page); err != nil {
		s.logger.Warnf("Failed to cache reviews for movie %s: %v", movieID, err)
	}
	return page, total, nil
}

// ListByUser returns a visibility-filtered page of a user's reviews.
func (s *Service) ListByUser(ctx context.Context, userID, viewer string, limit, offset int) ([]*domain.Review, int, error) {
	if _, err := s.users.Get(userID); err != nil {
		return nil, 0, fmt.Errorf("user %s: %w", userID, err)
	}
	limit, offset = clampPage(limit, offset)

	visible := FilterVisible(s.store.GetByUser(userID), viewer, s.users)
	return paginate(visible, limit, offset), len(visible), nil
}

// Update applies a partial update on behalf of requesterID. Legacy reviews
// are immutable; platform reviews may be edited by their author or an admin.
func (s *Service) Update(ctx context.Context, requesterID, reviewID string, update domain.ReviewUpdate) (*domain.Review, error) {
	if err := s.validate.Struct(update); err != nil {
		return nil, domain.ErrInvalidInput
	}

	current, err := s.store.Get(reviewID)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(requesterID, current); err != nil {
		return nil, err
	}

	updated, err := s.store.Update(reviewID, update)
	if err != nil {
		s.logger.Error("Failed to update review", err)
		return nil, err
	}

	s.invalidate(ctx, updated.MovieID)
	s.publishEvent(ctx, "review.updated", updated.MovieID, updated)

	s.logger.WithFields(map[string]interface{}{
		"review_id": reviewID,
		"movie_id":  updated.MovieID,
	}).Info("Review updated successfully")

	return updated, nil
}

// Delete removes a review on behalf of requesterID, with the same
// authorization rules as Update.
func (s *Service) Delete(ctx context.Context, requesterID, reviewID string) error {
	current, err := s.store.Get(reviewID)
	if err != nil {
		return err
	}
	if err := s.authorize(requesterID, current); err != nil {
		return err
	}

	if err := s.store.Delete(reviewID); err != nil {
		s.logger.Error("Failed to delete review", err)
		return err
	}

	s.invalidate(ctx, current.MovieID)
	s.publishEvent(ctx, "review.deleted", current.MovieID, current)

	s.logger.WithFields(map[string]interface{}{
		"review_id": reviewID,
		"movie_id":  current.MovieID,
	}).Info("Review deleted successfully")

	return nil
}

// DeleteByMovie cascades deletion of a movie's non-legacy reviews, called
// when the movie itself is removed from the catalog.
func (s *Service) DeleteByMovie(ctx context.Context, movieID string) (int, error) {
	deleted, err := s.store.DeleteByMovie(movieID)
	if err != nil {
		return deleted, err
	}
	s.invalidate(ctx, movieID)
	s.publishEvent(ctx, "review.deleted", movieID, nil)
	s.logger.Infof("Cascade deleted %d reviews for movie %s", deleted, movieID)
	return deleted, nil
}

// DeleteByUser cascades deletion of a user's reviews, called when the
// account is removed.
func (s *Service) DeleteByUser(ctx context.Context, userID string) (int, error) {
	affected := make(map[string]struct{})
	for _, r := range s.store.GetByUser(userID) {
		affected[r.MovieID] = struct{}{}
	}

	deleted, err := s.store.DeleteByUser(userID)
	if err != nil {
		return deleted, err
	}
	for movieID := range affected {
		s.invalidate(ctx, movieID)
		s.publishEvent(ctx, "review.deleted", movieID, nil)
	}
	s.logger.Infof("Cascade deleted %d reviews for user %s", deleted, userID)
	return deleted, nil
}

// Compact triggers an explicit operation-log compaction.
func (s *Service) Compact() (int, error) {
	return s.store.Compact()
}

// authorize enforces the write rules the store deliberately does not:
// legacy reviews are immutable, everything else is author-or-admin.
func (s *Service) authorize(requesterID string, target *domain.Review) error {
	if target.IsLegacy() {
		return domain.ErrLegacyReview
	}
	if target.Author() == requesterID {
		return nil
	}
	requester, err := s.users.Get(requesterID)
	if err == nil && requester.IsAdmin {
		return nil
	}
	return domain.ErrForbidden
}

func (s *Service) invalidate(ctx context.Context, movieID string) {
	// Stale cache would show deleted reviews and wrong ratings
	if err := s.cache.InvalidateAllMovieCache(ctx, movieID); err != nil {
		s.logger.Warnf("Failed to invalidate cache for movie %s: %v", movieID, err)
	}
}

// publishEvent publishes a review event (non-blocking)
func (s *Service) publishEvent(ctx context.Context, eventType, movieID string, review *domain.Review) {
	event := ReviewEvent{
		EventType: eventType,
		Timestamp: time.Now(),
		MovieID:   movieID,
		Review:    review,
	}

	data, err := json.Marshal(event)
	if err != nil {
		s.logger.Errorf(err, "Failed to marshal %s event for movie %s", eventType, movieID)
		return
	}

	// Publish in background to avoid blocking
	go func() {
		if err := s.publisher.Publish(context.Background(), "reviews.events", data); err != nil {
			s.logger.Errorf(err, "Failed to publish %s event for movie %s", eventType, movieID)
		}
	}()
}

func clampPage(limit, offset int) (int, int) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func paginate(reviews []*domain.Review, limit, offset int) []*domain.Review {
	if offset >= len(reviews) {
		return []*domain.Review{}
	}
	end := offset + limit
	if end > len(reviews) {
		end = len(reviews)
	}
	return reviews[offset:end]
}
