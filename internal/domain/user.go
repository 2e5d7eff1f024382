package domain

import "time"

// User represents a platform account. Social relationships (following,
// followers, blocked users) are stored as id sets on both sides so that
// lookups never need a reverse scan; blocking in particular is symmetric.
type User struct {
	ID           string    `json:"userid"`
	Username     string    `json:"username" validate:"required,min=1,max=100"`
	Email        string    `json:"email" validate:"required,email"`
	PasswordHash string    `json:"-"`
	Reputation   int       `json:"reputation"`
	CreationDate time.Time `json:"creation_date"`
	TotalReviews int       `json:"total_reviews"`
	IsAdmin      bool      `json:"is_admin"`
	IsSuspended  bool      `json:"is_suspended"`
	Following    []string  `json:"following"`
	Followers    []string  `json:"followers"`
	BlockedUsers []string  `json:"blocked_users"`
	Favorites    []string  `json:"favorites"`
}

// HasBlocked reports whether the user's blocked set contains other.
func (u *User) HasBlocked(other string) bool {
	for _, id := range u.BlockedUsers {
		if id == other {
			return true
		}
	}
	return false
}

// UserStatus is the narrow social-graph view the visibility filter needs
// about one review author.
type UserStatus struct {
	Suspended bool
	Blocked   map[string]struct{}
}

// SocialGraph is the collaborator interface consulted by the visibility
// filter. Blocking is symmetric at the storage layer, so a single per-user
// blocked set answers both directions.
type SocialGraph interface {
	// UserStatus returns the suspension flag and blocked set for a user.
	// Unknown users get a zero status, not an error: reviews referencing a
	// since-deleted account should not break listing.
	UserStatus(userID string) UserStatus
}

// UserDirectory is the account-management interface of the user store.
type UserDirectory interface {
	Create(user *User, password string) (*User, error)
	Get(userID string) (*User, error)
	GetByEmail(email string) (*User, error)
	GetAll() []*User
	Update(user *User) error
	Delete(userID string) error
	Authenticate(email, password string) (*User, error)

	Follow(followerID, followeeID string) error
	Unfollow(followerID, followeeID string) error
	Block(blockerID, blockedID string) error
	Unblock(blockerID, blockedID string) error
	Suspend(userID string) error
	Reactivate(userID string) error
	ToggleFavorite(userID, movieID string) (bool, error)

	SocialGraph
}
