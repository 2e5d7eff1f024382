package domain

// MaxReviewTextLen is the maximum stored length of review text, in runes.
// Longer text is truncated at write time, on both create and update.
const MaxReviewTextLen = 250

// Review represents a movie review. Platform-authored reviews carry a
// UserID; legacy reviews imported from the IMDB export carry no UserID and
// keep the original reviewer name in IMDBUsername instead. A review is
// legacy exactly when UserID is nil.
type Review struct {
	ID           string  `json:"review_id"`
	MovieID      string  `json:"movie_id" validate:"required"`
	UserID       *string `json:"user_id,omitempty"`
	IMDBUsername string  `json:"imdb_username,omitempty"`
	Rating       int     `json:"rating" validate:"required,min=1,max=5"`
	ReviewText   string  `json:"review_text"`
	ReviewDate   string  `json:"review_date"`
}

// IsLegacy reports whether the review comes from the immutable legacy
// import. Legacy reviews are never mutated, deleted, or visibility-filtered.
func (r *Review) IsLegacy() bool {
	return r.UserID == nil
}

// Author returns the review's user id, or "" for legacy reviews.
func (r *Review) Author() string {
	if r.UserID == nil {
		return ""
	}
	return *r.UserID
}

// TruncateText enforces the stored text length limit.
func TruncateText(text string) string {
	runes := []rune(text)
	if len(runes) <= MaxReviewTextLen {
		return text
	}
	return string(runes[:MaxReviewTextLen])
}

// ReviewUpdate carries a partial update of a review. Nil fields are left
// unchanged.
type ReviewUpdate struct {
	Rating     *int    `json:"rating,omitempty" validate:"omitempty,min=1,max=5"`
	ReviewText *string `json:"review_text,omitempty"`
	ReviewDate *string `json:"review_date,omitempty"`
}

// ReviewStore is the interface of the materialized review store consumed by
// the usecase layer. All mutating operations are durably logged before the
// in-memory state changes.
type ReviewStore interface {
	// Create stores a new platform review. Fails with ErrDuplicateReview
	// if the user already has a live review for the movie.
	Create(movieID, userID string, rating int, text, date string) (*Review, error)

	// Get retrieves a review by id. Fails with ErrNotFound if absent.
	Get(reviewID string) (*Review, error)

	// GetByMovie returns copies of all reviews for a movie, in index order.
	GetByMovie(movieID string) []*Review

	// GetByUser returns copies of all reviews written by a user.
	GetByUser(userID string) []*Review

	// Update applies a partial update. Fails with ErrNotFound if absent.
	Update(reviewID string, update ReviewUpdate) (*Review, error)

	// Delete removes a review. Fails with ErrNotFound if absent.
	Delete(reviewID string) error

	// DeleteByMovie removes all non-legacy reviews for a movie and returns
	// the number deleted. Legacy reviews are permanent historical record.
	DeleteByMovie(movieID string) (int, error)

	// DeleteByUser removes all reviews written by a user and returns the
	// number deleted.
	DeleteByUser(userID string) (int, error)

	// Compact rewrites the operation log to one entry per live review and
	// returns the number of log entries discarded.
	Compact() (int, error)
}
