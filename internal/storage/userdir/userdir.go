// Package userdir is the flat-file user directory. The full dataset is
// loaded into memory at startup and the file is rewritten on every mutation,
// the same load/mutate/rewrite pattern as the movie catalog. It doubles as
// the social graph consulted by the review visibility filter.
package userdir

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode"

	"golang.org/x/crypto/bcrypt"

	"github.com/cinescope/movie_reviewer/internal/domain"
	"github.com/cinescope/movie_reviewer/internal/pkg/logger"
)

var header = []string{
	"userid", "username", "email", "password_hash", "reputation",
	"creation_date", "is_admin", "is_suspended", "total_reviews",
	"following", "followers", "blocked_users", "favorites",
}

// Directory is a file-backed user store.
type Directory struct {
	mu      sync.RWMutex
	path    string
	logger  *logger.Logger
	users   map[string]*domain.User
	order   []string
	counter int
}

// Open loads users.csv at path. A missing file starts an empty directory.
func Open(path string, lg *logger.Logger) (*Directory, error) {
	d := &Directory{
		path:    path,
		logger:  lg,
		users:   make(map[string]*domain.User),
		counter: 1,
	}
	if err := d.load(); err != nil {
		return nil, err
	}
	lg.Infof("Loaded %d users from %s", len(d.users), path)
	return d, nil
}

// Create registers a new account. Emails are unique across the directory.
func (d *Directory) Create(user *domain.User, password string) (*domain.User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, existing := range d.users {
		if existing.Email == user.Email {
			return nil, fmt.Errorf("email already registered: %w", domain.ErrAlreadyExists)
		}
	}
	if err := validatePassword(password); err != nil {
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	created := *user
	created.ID = fmt.Sprintf("user_%03d", d.counter)
	d.counter++
	created.PasswordHash = string(hash)
	if created.Reputation == 0 {
		created.Reputation = 3
	}
	if created.CreationDate.IsZero() {
		created.CreationDate = time.Now()
	}

	d.users[created.ID] = &created
	d.order = append(d.order, created.ID)
	if err := d.save(); err != nil {
		return nil, err
	}

	clone := created
	return &clone, nil
}

// Get retrieves a user by id.
func (d *Directory) Get(userID string) (*domain.User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	user, ok := d.users[userID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	clone := *user
	return &clone, nil
}

// GetByEmail retrieves a user by email address.
func (d *Directory) GetByEmail(email string) (*domain.User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, user := range d.users {
		if user.Email == email {
			clone := *user
			return &clone, nil
		}
	}
	return nil, domain.ErrNotFound
}

// GetAll returns all users in creation order.
func (d *Directory) GetAll() []*domain.User {
	d.mu.RLock()
	defer d.mu.RUnlock()
	users := make([]*domain.User, 0, len(d.order))
	for _, id := range d.order {
		if user, ok := d.users[id]; ok {
			clone := *user
			users = append(users, &clone)
		}
	}
	return users
}

// Update rewrites a user's profile fields. Relationship sets and password
// hash are managed through their own operations and are preserved as stored.
func (d *Directory) Update(user *domain.User) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	current, ok := d.users[user.ID]
	if !ok {
		return domain.ErrNotFound
	}
	if user.Email != current.Email {
		for _, existing := range d.users {
			if existing.ID != user.ID && existing.Email == user.Email {
				return fmt.Errorf("email already registered: %w", domain.ErrAlreadyExists)
			}
		}
	}
	current.Username = user.Username
	current.Email = user.Email
	current.Reputation = user.Reputation
	current.IsAdmin = user.IsAdmin
	return d.save()
}

// Delete removes an account and every reference to it in other users'
// relationship sets.
func (d *Directory) Delete(userID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.users[userID]; !ok {
		return domain.ErrNotFound
	}
	delete(d.users, userID)
	d.order = removeID(d.order, userID)
	for _, other := range d.users {
		other.Following = removeID(other.Following, userID)
		other.Followers = removeID(other.Followers, userID)
		other.BlockedUsers = removeID(other.BlockedUsers, userID)
	}
	return d.save()
}

// Authenticate verifies an email/password pair.
func (d *Directory) Authenticate(email, password string) (*domain.User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, user := range d.users {
		if user.Email != email {
			continue
		}
		if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
			return nil, domain.ErrUnauthorized
		}
		clone := *user
		return &clone, nil
	}
	return nil, domain.ErrUnauthorized
}

// Follow makes follower follow followee.
func (d *Directory) Follow(followerID, followeeID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if followerID == followeeID {
		return fmt.Errorf("cannot follow yourself: %w", domain.ErrInvalidInput)
	}
	follower, followee, err := d.pair(followerID, followeeID)
	if err != nil {
		return err
	}
	if contains(follower.Following, followeeID) {
		return nil
	}
	follower.Following = append(follower.Following, followeeID)
	followee.Followers = append(followee.Followers, followerID)
	return d.save()
}

// Unfollow removes a follow relationship.
func (d *Directory) Unfollow(followerID, followeeID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	follower, followee, err := d.pair(followerID, followeeID)
	if err != nil {
		return err
	}
	follower.Following = removeID(follower.Following, followeeID)
	followee.Followers = removeID(followee.Followers, followerID)
	return d.save()
}

// Block records a block. Blocking is symmetric at the storage layer: both
// users end up in each other's blocked set, so visibility filtering only
// ever needs one lookup direction. Any follow relationship between the two
// is severed.
func (d *Directory) Block(blockerID, blockedID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if blockerID == blockedID {
		return fmt.Errorf("cannot block yourself: %w", domain.ErrInvalidInput)
	}
	blocker, blocked, err := d.pair(blockerID, blockedID)
	if err != nil {
		return err
	}
	if !contains(blocker.BlockedUsers, blockedID) {
		blocker.BlockedUsers = append(blocker.BlockedUsers, blockedID)
	}
	if !contains(blocked.BlockedUsers, blockerID) {
		blocked.BlockedUsers = append(blocked.BlockedUsers, blockerID)
	}
	blocker.Following = removeID(blocker.Following, blockedID)
	blocker.Followers = removeID(blocker.Followers, blockedID)
	blocked.Following = removeID(blocked.Following, blockerID)
	blocked.Followers = removeID(blocked.Followers, blockerID)
	return d.save()
}

// Unblock removes a block from both sides.
func (d *Directory) Unblock(blockerID, blockedID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	blocker, blocked, err := d.pair(blockerID, blockedID)
	if err != nil {
		return err
	}
	blocker.BlockedUsers = removeID(blocker.BlockedUsers, blockedID)
	blocked.BlockedUsers = removeID(blocked.BlockedUsers, blockerID)
	return d.save()
}

// Suspend marks an account as suspended. Suspended authors' reviews are
// hidden by the visibility filter.
func (d *Directory) Suspend(userID string) error {
	return d.setSuspended(userID, true)
}

// Reactivate lifts a suspension.
func (d *Directory) Reactivate(userID string) error {
	return d.setSuspended(userID, false)
}

func (d *Directory) setSuspended(userID string, suspended bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	user, ok := d.users[userID]
	if !ok {
		return domain.ErrNotFound
	}
	user.IsSuspended = suspended
	return d.save()
}

// ToggleFavorite adds or removes a movie from the user's favorites and
// reports whether the movie is a favorite afterwards.
func (d *Directory) ToggleFavorite(userID, movieID string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	user, ok := d.users[userID]
	if !ok {
		return false, domain.ErrNotFound
	}
	if contains(user.Favorites, movieID) {
		user.Favorites = removeID(user.Favorites, movieID)
		return false, d.save()
	}
	user.Favorites = append(user.Favorites, movieID)
	return true, d.save()
}

// UserStatus implements domain.SocialGraph. Unknown users get a zero status
// so that reviews referencing removed accounts still list.
func (d *Directory) UserStatus(userID string) domain.UserStatus {
	d.mu.RLock()
	defer d.mu.RUnlock()

	user, ok := d.users[userID]
	if !ok {
		return domain.UserStatus{}
	}
	blocked := make(map[string]struct{}, len(user.BlockedUsers))
	for _, id := range user.BlockedUsers {
		blocked[id] = struct{}{}
	}
	return domain.UserStatus{Suspended: user.IsSuspended, Blocked: blocked}
}

// IncrementReviewCount bumps the user's total review counter.
func (d *Directory) IncrementReviewCount(userID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	user, ok := d.users[userID]
	if !ok {
		return domain.ErrNotFound
	}
	user.TotalReviews++
	return d.save()
}

func (d *Directory) pair(aID, bID string) (*domain.User, *domain.User, error) {
	a, ok := d.users[aID]
	if !ok {
		return nil, nil, fmt.Errorf("user %s: %w", aID, domain.ErrNotFound)
	}
	b, ok := d.users[bID]
	if !ok {
		return nil, nil, fmt.Errorf("user %s: %w", bID, domain.ErrNotFound)
	}
	return a, b, nil
}

func (d *Directory) load() error {
	file, err := os.Open(d.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("open user directory: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = len(header)
	for line := 1; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("user directory %s line %d: %w", d.path, line, err)
		}
		if line == 1 {
			continue
		}
		user, err := decode(record)
		if err != nil {
			return fmt.Errorf("user directory %s line %d: %w", d.path, line, err)
		}
		d.users[user.ID] = user
		d.order = append(d.order, user.ID)
		if n, ok := strings.CutPrefix(user.ID, "user_"); ok {
			if num, err := strconv.Atoi(n); err == nil && num >= d.counter {
				d.counter = num + 1
			}
		}
	}
	return nil
}

// save rewrites the whole file through a temp file and rename, matching the
// operation log's crash behavior: a failed rewrite leaves the old file.
func (d *Directory) save() error {
	if err := os.MkdirAll(filepath.Dir(d.path), 0o755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(d.path), "users-*.csv")
	if err != nil {
		return fmt.Errorf("create user temp file: %w", err)
	}
	tmpPath := tmp.Name()

	w := csv.NewWriter(tmp)
	if err := w.Write(header); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write user header: %w", err)
	}
	for _, id := range d.order {
		user, ok := d.users[id]
		if !ok {
			continue
		}
		if err := w.Write(encode(user)); err != nil {
			tmp.Close()
			os.Remove(tmpPath)
			return fmt.Errorf("write user %s: %w", id, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("flush user directory: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close user temp file: %w", err)
	}
	if err := os.Rename(tmpPath, d.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("swap user directory: %w", err)
	}
	return nil
}

func encode(u *domain.User) []string {
	return []string{
		u.ID,
		u.Username,
		u.Email,
		u.PasswordHash,
		strconv.Itoa(u.Reputation),
		u.CreationDate.Format(time.RFC3339),
		strconv.FormatBool(u.IsAdmin),
		strconv.FormatBool(u.IsSuspended),
		strconv.Itoa(u.TotalReviews),
		strings.Join(u.Following, ","),
		strings.Join(u.Followers, ","),
		strings.Join(u.BlockedUsers, ","),
		strings.Join(u.Favorites, ","),
	}
}

func decode(record []string) (*domain.User, error) {
	reputation, err := strconv.Atoi(record[4])
	if err != nil {
		return nil, fmt.Errorf("invalid reputation %q: %w", record[4], err)
	}
	creationDate, err := time.Parse(time.RFC3339, record[5])
	if err != nil {
		return nil, fmt.Errorf("invalid creation date %q: %w", record[5], err)
	}
	totalReviews, err := strconv.Atoi(record[8])
	if err != nil {
		return nil, fmt.Errorf("invalid review count %q: %w", record[8], err)
	}
	return &domain.User{
		ID:           record[0],
		Username:     record[1],
		Email:        record[2],
		PasswordHash: record[3],
		Reputation:   reputation,
		CreationDate: creationDate,
		IsAdmin:      record[6] == "true",
		IsSuspended:  record[7] == "true",
		TotalReviews: totalReviews,
		Following:    splitSet(record[9]),
		Followers:    splitSet(record[10]),
		BlockedUsers: splitSet(record[11]),
		Favorites:    splitSet(record[12]),
	}, nil
}

func splitSet(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func validatePassword(password string) error {
	var hasUpper, hasLower, hasDigit, hasSpecial bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			hasSpecial = true
		}
	}
	if len(password) < 8 || !hasUpper || !hasLower || !hasDigit || !hasSpecial {
		return fmt.Errorf("password must be at least 8 characters with upper, lower, digit and special characters: %w", domain.ErrInvalidInput)
	}
	return nil
}

func contains(ids []string, id string) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}

func removeID(ids []string, id string) []string {
	for i, candidate := range ids {
		if candidate == id {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}
