package user

import (
	"context"
	"errors"

	"github.com/go-playground/validator/v10"

	"github.com/cinescope/movie_reviewer/internal/domain"
	"github.com/cinescope/movie_reviewer/internal/pkg/logger"
	"github.com/cinescope/movie_reviewer/internal/pkg/session"
	pkgvalidator "github.com/cinescope/movie_reviewer/internal/pkg/validator"
)

// ReviewCascader deletes a removed user's reviews.
type ReviewCascader interface {
	DeleteByUser(ctx context.Context, userID string) (int, error)
}

// RegisterInput is the validated input for account registration.
type RegisterInput struct {
	Username string `json:"username" validate:"required,min=1,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

// UpdateInput is the validated input for profile updates.
type UpdateInput struct {
	Username *string `json:"username,omitempty" validate:"omitempty,min=1,max=100"`
	Email    *string `json:"email,omitempty" validate:"omitempty,email"`
}

// Service handles account, session, and social-graph operations.
type Service struct {
	users    domain.UserDirectory
	sessions *session.Manager
	reviews  ReviewCascader
	validate *validator.Validate
	logger   *logger.Logger
}

// NewService creates a new user service
func NewService(users domain.UserDirectory, sessions *session.Manager, reviews ReviewCascader, log *logger.Logger) *Service {
	return &Service{
		users:    users,
		sessions: sessions,
		reviews:  reviews,
		validate: pkgvalidator.Get(),
		logger:   log,
	}
}

// Register creates a new account.
func (s *Service) Register(input RegisterInput) (*domain.User, error) {
	if err := s.validate.Struct(input); err != nil {
		return nil, domain.ErrInvalidInput
	}
	created, err := s.users.Create(&domain.User{
		Username: input.Username,
		Email:    input.Email,
	}, input.Password)
	if err != nil {
		return nil, err
	}
	s.logger.Infof("Registered user %s (%s)", created.ID, created.Username)
	return created, nil
}

// Login authenticates an email/password pair and issues a session token.
// Suspended accounts cannot log in.
func (s *Service) Login(email, password string) (*domain.User, string, error) {
	user, err := s.users.Authenticate(email, password)
	if err != nil {
		return nil, "", err
	}
	if user.IsSuspended {
		return nil, "", domain.ErrSuspended
	}
	token := s.sessions.Create(user.ID)
	s.logger.Infof("User %s logged in", user.ID)
	return user, token, nil
}

// Logout invalidates a session token.
func (s *Service) Logout(token string) {
	if s.sessions.Delete(token) {
		s.logger.Debug("Session deleted")
	}
}

// Get retrieves a user by id.
func (s *Service) Get(userID string) (*domain.User, error) {
	return s.users.Get(userID)
}

// GetAll returns all users.
func (s *Service) GetAll() []*domain.User {
	return s.users.GetAll()
}

// Update edits a profile. Users may edit themselves; admins may edit anyone.
func (s *Service) Update(requesterID, userID string, input UpdateInput) (*domain.User, error) {
	if err := s.validate.Struct(input); err != nil {
		return nil, domain.ErrInvalidInput
	}
	if err := s.requireSelfOrAdmin(requesterID, userID); err != nil {
		return nil, err
	}

	user, err := s.users.Get(userID)
	if err != nil {
		return nil, err
	}
	if input.Username != nil {
		user.Username = *input.Username
	}
	if input.Email != nil {
		user.Email = *input.Email
	}
	if err := s.users.Update(user); err != nil {
		return nil, err
	}
	s.logger.Infof("Updated user %s", userID)
	return user, nil
}

// Delete removes an account, its sessions, and all of its reviews.
func (s *Service) Delete(ctx context.Context, requesterID, userID string) error {
	if err := s.requireSelfOrAdmin(requesterID, userID); err != nil {
		return err
	}

	deleted, err := s.reviews.DeleteByUser(ctx, userID)
	if err != nil {
		return err
	}
	if err := s.users.Delete(userID); err != nil {
		return err
	}
	s.sessions.DeleteByUser(userID)
	s.logger.Infof("Deleted user %s and %d of their reviews", userID, deleted)
	return nil
}

// Follow makes requester follow userID.
func (s *Service) Follow(requesterID, userID string) error {
	return s.users.Follow(requesterID, userID)
}

// Unfollow removes a follow relationship.
func (s *Service) Unfollow(requesterID, userID string) error {
	return s.users.Unfollow(requesterID, userID)
}

// Block records a (symmetric) block of userID by requester.
func (s *Service) Block(requesterID, userID string) error {
	return s.users.Block(requesterID, userID)
}

// Unblock removes a block.
func (s *Service) Unblock(requesterID, userID string) error {
	return s.users.Unblock(requesterID, userID)
}

// Suspend suspends an account. Admin only; active sessions are revoked and
// the visibility filter hides the account's reviews until reactivation.
func (s *Service) Suspend(requesterID, userID string) error {
	if err := s.requireAdmin(requesterID); err != nil {
		return err
	}
	if err := s.users.Suspend(userID); err != nil {
		return err
	}
	s.sessions.DeleteByUser(userID)
	s.logger.Infof("Suspended user %s", userID)
	return nil
}

// Reactivate lifts a suspension. Admin only.
func (s *Service) Reactivate(requesterID, userID string) error {
	if err := s.requireAdmin(requesterID); err != nil {
		return err
	}
	if err := s.users.Reactivate(userID); err != nil {
		return err
	}
	s.logger.Infof("Reactivated user %s", userID)
	return nil
}

// ToggleFavorite flips a movie's presence in the user's favorites.
func (s *Service) ToggleFavorite(userID, movieID string) (bool, error) {
	return s.users.ToggleFavorite(userID, movieID)
}

func (s *Service) requireSelfOrAdmin(requesterID, userID string) error {
	if requesterID == userID {
		return nil
	}
	return s.requireAdmin(requesterID)
}

func (s *Service) requireAdmin(requesterID string) error {
	requester, err := s.users.Get(requesterID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrForbidden
		}
		return err
	}
	if !requester.IsAdmin {
		return domain.ErrForbidden
	}
	return nil
}
