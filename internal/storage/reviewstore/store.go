// Package reviewstore holds the in-memory materialized view of all reviews.
// The view is built at startup by seeding the immutable legacy import and
// replaying the operation log, and is kept consistent with the log by
// appending every mutation before committing it to memory. Secondary indexes
// by movie and by user are maintained incrementally on every mutation.
package reviewstore

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cinescope/movie_reviewer/internal/domain"
	"github.com/cinescope/movie_reviewer/internal/pkg/logger"
	"github.com/cinescope/movie_reviewer/internal/storage/oplog"
)

const idPrefix = "review_"

// Store is the process-wide review store. All mutations run under a single
// exclusive lock so that the duplicate-review check, id allocation, and log
// append form one atomic critical section.
type Store struct {
	mu sync.RWMutex

	log       *oplog.Log
	threshold int
	logger    *logger.Logger

	reviews  map[string]*domain.Review
	byMovie  map[string][]string
	byUser   map[string][]string
	nextID   int
	opsSince int
}

// New builds the materialized view: legacy reviews are seeded first (they
// live outside the operation log), then the log is replayed with
// last-writer-wins semantics. If the existing log already exceeds the
// compaction threshold it is compacted before serving traffic.
func New(log *oplog.Log, legacyReviews []domain.Review, threshold int, lg *logger.Logger) (*Store, error) {
	if threshold <= 0 {
		threshold = 100
	}
	s := &Store{
		log:       log,
		threshold: threshold,
		logger:    lg,
		reviews:   make(map[string]*domain.Review),
		byMovie:   make(map[string][]string),
		byUser:    make(map[string][]string),
	}

	for i := range legacyReviews {
		review := legacyReviews[i]
		s.commit(&review)
	}

	entries, err := log.Replay()
	if err != nil {
		return nil, fmt.Errorf("replay operation log: %w", err)
	}
	for _, entry := range entries {
		switch entry.Op {
		case oplog.OpCreate, oplog.OpUpdate:
			review := entry.Review
			s.commit(&review)
		case oplog.OpDelete:
			s.evict(entry.Review.ID)
		}
	}

	lg.WithFields(map[string]interface{}{
		"legacy_reviews": len(legacyReviews),
		"log_entries":    len(entries),
		"live_reviews":   len(s.reviews),
	}).Info("Review store loaded")

	if log.Len() > threshold {
		discarded, err := s.compactLocked()
		if err != nil {
			return nil, fmt.Errorf("startup compaction: %w", err)
		}
		lg.Infof("Startup compaction discarded %d log entries", discarded)
	}

	return s, nil
}

// Create stores a new platform review. The whole sequence - duplicate check,
// id allocation, log append, memory commit - runs under the write lock.
func (s *Store) Create(movieID, userID string, rating int, text, date string) (*domain.Review, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, rid := range s.byUser[userID] {
		if existing, ok := s.reviews[rid]; ok && existing.MovieID == movieID {
			return nil, domain.ErrDuplicateReview
		}
	}

	if date == "" {
		date = time.Now().Format(time.RFC3339)
	}
	uid := userID
	review := &domain.Review{
		ID:         fmt.Sprintf("%s%06d", idPrefix, s.nextID),
		MovieID:    movieID,
		UserID:     &uid,
		Rating:     rating,
		ReviewText: domain.TruncateText(text),
		ReviewDate: date,
	}

	if err := s.log.Append(oplog.OpCreate, *review); err != nil {
		return nil, err
	}
	s.commit(review)
	s.noteMutation()

	clone := *review
	return &clone, nil
}

// Get retrieves a review by id.
func (s *Store) Get(reviewID string) (*domain.Review, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	review, ok := s.reviews[reviewID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	clone := *review
	return &clone, nil
}

// GetByMovie returns copies of all reviews for a movie, in index order.
func (s *Store) GetByMovie(movieID string) []*domain.Review {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collect(s.byMovie[movieID])
}

// GetByUser returns copies of all reviews written by a user.
func (s *Store) GetByUser(userID string) []*domain.Review {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collect(s.byUser[userID])
}

// Update applies a partial update and logs the resulting state. Only the
// fields set on the update are touched; updated text is re-truncated.
func (s *Store) Update(reviewID string, update domain.ReviewUpdate) (*domain.Review, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.reviews[reviewID]
	if !ok {
		return nil, domain.ErrNotFound
	}

	updated := *current
	if update.Rating != nil {
		updated.Rating = *update.Rating
	}
	if update.ReviewText != nil {
		updated.ReviewText = domain.TruncateText(*update.ReviewText)
	}
	if update.ReviewDate != nil {
		updated.ReviewDate = *update.ReviewDate
	}

	if err := s.log.Append(oplog.OpUpdate, updated); err != nil {
		return nil, err
	}
	*current = updated
	s.noteMutation()

	clone := updated
	return &clone, nil
}

// Delete removes a review from the primary map and both indexes.
func (s *Store) Delete(reviewID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deleteLocked(reviewID)
}

// DeleteByMovie cascades deletion of all non-legacy reviews for a movie.
// Legacy reviews have no live account behind them and stay untouched.
func (s *Store) DeleteByMovie(movieID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := append([]string(nil), s.byMovie[movieID]...)
	deleted := 0
	for _, rid := range ids {
		review, ok := s.reviews[rid]
		if !ok || review.IsLegacy() {
			continue
		}
		if err := s.deleteLocked(rid); err != nil {
			return deleted, err
		}
		deleted++
	}
	return deleted, nil
}

// DeleteByUser cascades deletion of all reviews written by a user, used when
// an account is removed.
func (s *Store) DeleteByUser(userID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := append([]string(nil), s.byUser[userID]...)
	deleted := 0
	for _, rid := range ids {
		if err := s.deleteLocked(rid); err != nil {
			return deleted, err
		}
		deleted++
	}
	return deleted, nil
}

// Compact rewrites the operation log to one create entry per live non-legacy
// review and returns the number of entries discarded.
func (s *Store) Compact() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.compactLocked()
}

// Count returns the number of live reviews, legacy included.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.reviews)
}

// LogLen returns the current number of entries in the operation log.
func (s *Store) LogLen() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.log.Len()
}

// Close flushes and closes the underlying operation log.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.log.Close()
}

func (s *Store) deleteLocked(reviewID string) error {
	review, ok := s.reviews[reviewID]
	if !ok {
		return domain.ErrNotFound
	}
	if err := s.log.Append(oplog.OpDelete, domain.Review{ID: reviewID, MovieID: review.MovieID, Rating: review.Rating}); err != nil {
		return err
	}
	s.evict(reviewID)
	s.noteMutation()
	return nil
}

// commit upserts a review into the primary map and both indexes, and bumps
// the id counter past every id it sees so deleted ids are never recycled.
func (s *Store) commit(review *domain.Review) {
	if prev, ok := s.reviews[review.ID]; ok {
		// Upsert of an existing id replaces state in place; indexes only
		// need fixing if the movie reference changed.
		if prev.MovieID != review.MovieID {
			s.byMovie[prev.MovieID] = remove(s.byMovie[prev.MovieID], review.ID)
			s.byMovie[review.MovieID] = append(s.byMovie[review.MovieID], review.ID)
		}
		*prev = *review
		return
	}

	s.reviews[review.ID] = review
	s.byMovie[review.MovieID] = append(s.byMovie[review.MovieID], review.ID)
	if review.UserID != nil {
		s.byUser[*review.UserID] = append(s.byUser[*review.UserID], review.ID)
	}

	if n, ok := idSuffix(review.ID); ok && n >= s.nextID {
		s.nextID = n + 1
	}
}

func (s *Store) evict(reviewID string) {
	review, ok := s.reviews[reviewID]
	if !ok {
		return
	}
	delete(s.reviews, reviewID)
	s.byMovie[review.MovieID] = remove(s.byMovie[review.MovieID], reviewID)
	if len(s.byMovie[review.MovieID]) == 0 {
		delete(s.byMovie, review.MovieID)
	}
	if review.UserID != nil {
		s.byUser[*review.UserID] = remove(s.byUser[*review.UserID], reviewID)
		if len(s.byUser[*review.UserID]) == 0 {
			delete(s.byUser, *review.UserID)
		}
	}
}

func (s *Store) noteMutation() {
	s.opsSince++
	if s.opsSince < s.threshold {
		return
	}
	discarded, err := s.compactLocked()
	if err != nil {
		// The log still holds full history, so replay stays correct; the
		// next mutation retries compaction.
		s.logger.Error("Automatic compaction failed", err)
		return
	}
	s.logger.Infof("Automatic compaction discarded %d log entries", discarded)
}

func (s *Store) compactLocked() (int, error) {
	live := make([]domain.Review, 0, len(s.reviews))
	for _, review := range s.reviews {
		if review.IsLegacy() {
			continue // legacy reviews are never persisted to the log
		}
		live = append(live, *review)
	}
	sort.Slice(live, func(i, j int) bool { return live[i].ID < live[j].ID })

	discarded, err := s.log.Compact(live)
	if err != nil {
		return 0, err
	}
	s.opsSince = 0
	return discarded, nil
}

func (s *Store) collect(ids []string) []*domain.Review {
	reviews := make([]*domain.Review, 0, len(ids))
	for _, rid := range ids {
		if review, ok := s.reviews[rid]; ok {
			clone := *review
			reviews = append(reviews, &clone)
		}
	}
	return reviews
}

func idSuffix(id string) (int, bool) {
	raw, ok := strings.CutPrefix(id, idPrefix)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

func remove(ids []string, id string) []string {
	for i, candidate := range ids {
		if candidate == id {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}
