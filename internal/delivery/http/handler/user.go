package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/cinescope/movie_reviewer/internal/delivery/http/middleware"
	"github.com/cinescope/movie_reviewer/internal/delivery/http/request"
	"github.com/cinescope/movie_reviewer/internal/delivery/http/response"
	"github.com/cinescope/movie_reviewer/internal/domain"
	"github.com/cinescope/movie_reviewer/internal/pkg/logger"
	"github.com/cinescope/movie_reviewer/internal/pkg/session"
	"github.com/cinescope/movie_reviewer/internal/usecase/user"
)

// UserHandler handles HTTP requests for accounts, sessions, and the
// social graph
type UserHandler struct {
	service    *user.Service
	sessionTTL time.Duration
	logger     *logger.Logger
}

// NewUserHandler creates a new user handler
func NewUserHandler(service *user.Service, sessionTTL time.Duration, log *logger.Logger) *UserHandler {
	return &UserHandler{
		service:    service,
		sessionTTL: sessionTTL,
		logger:     log,
	}
}

// RegisterRequest represents the request body for registration
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest represents the request body for login
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UpdateUserRequest represents the request body for profile updates
type UpdateUserRequest struct {
	Username *string `json:"username,omitempty"`
	Email    *string `json:"email,omitempty"`
}

// Register handles POST /api/v1/auth/register
// @Summary Register a new account
// @Description Create an account. Passwords must be at least 8 characters with upper, lower, digit, and special characters.
// @Tags Auth
// @Accept json
// @Produce json
// @Param user body RegisterRequest true "Account details"
// @Success 201 {object} map[string]interface{} "Account created"
// @Failure 400 {object} map[string]string "Invalid input or email already registered"
// @Router /auth/register [post]
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := request.DecodeJSON(r, &req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	created, err := h.service.Register(user.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		h.handleError(w, err)
		return
	}

	response.Created(w, created)
}

// Login handles POST /api/v1/auth/login
// @Summary Log in
// @Description Authenticate with email and password. Sets a session cookie on success.
// @Tags Auth
// @Accept json
// @Produce json
// @Param credentials body LoginRequest true "Credentials"
// @Success 200 {object} map[string]interface{} "Authenticated user"
// @Failure 401 {object} map[string]string "Invalid credentials"
// @Failure 403 {object} map[string]string "Account is suspended"
// @Router /auth/login [post]
func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := request.DecodeJSON(r, &req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	authenticated, token, err := h.service.Login(req.Email, req.Password)
	if err != nil {
		h.handleError(w, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     session.CookieName,
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(h.sessionTTL),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	response.Success(w, authenticated)
}

// Logout handles POST /api/v1/auth/logout
// @Summary Log out
// @Description Revoke the current session and clear the session cookie.
// @Tags Auth
// @Produce json
// @Success 204 "Logged out"
// @Router /auth/logout [post]
func (h *UserHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(session.CookieName); err == nil {
		h.service.Logout(cookie.Value)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     session.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	response.NoContent(w)
}

// List handles GET /api/v1/users
// @Summary List users
// @Tags Users
// @Produce json
// @Success 200 {object} map[string]interface{} "List of users"
// @Router /users [get]
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	response.Success(w, h.service.GetAll())
}

// GetByID handles GET /api/v1/users/:id
// @Summary Get a user
// @Tags Users
// @Produce json
// @Param id path string true "User ID"
// @Success 200 {object} map[string]interface{} "User profile"
// @Failure 404 {object} map[string]string "User not found"
// @Router /users/{id} [get]
func (h *UserHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, err := request.GetStringParam(r, "id")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid user ID")
		return
	}

	found, err := h.service.Get(id)
	if err != nil {
		h.handleError(w, err)
		return
	}

	response.Success(w, found)
}

// Update handles PUT /api/v1/users/:id
// @Summary Update a profile
// @Description Update username or email. Users may update only their own profile; admins may update anyone's.
// @Tags Users
// @Accept json
// @Produce json
// @Param id path string true "User ID"
// @Param user body UpdateUserRequest true "Fields to update"
// @Success 200 {object} map[string]interface{} "Updated profile"
// @Failure 403 {object} map[string]string "Not your profile"
// @Failure 404 {object} map[string]string "User not found"
// @Router /users/{id} [put]
func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	requesterID, _ := middleware.UserID(r.Context())

	id, err := request.GetStringParam(r, "id")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid user ID")
		return
	}

	var req UpdateUserRequest
	if err := request.DecodeJSON(r, &req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	updated, err := h.service.Update(requesterID, id, user.UpdateInput{
		Username: req.Username,
		Email:    req.Email,
	})
	if err != nil {
		h.handleError(w, err)
		return
	}

	response.Success(w, updated)
}

// Delete handles DELETE /api/v1/users/:id
// @Summary Delete an account
// @Description Delete an account and cascade-delete its reviews and sessions. Self or admin only.
// @Tags Users
// @Produce json
// @Param id path string true "User ID"
// @Success 204 "Account deleted"
// @Failure 403 {object} map[string]string "Not your account"
// @Failure 404 {object} map[string]string "User not found"
// @Router /users/{id} [delete]
func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	requesterID, _ := middleware.UserID(r.Context())

	id, err := request.GetStringParam(r, "id")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid user ID")
		return
	}

	if err := h.service.Delete(r.Context(), requesterID, id); err != nil {
		h.handleError(w, err)
		return
	}

	response.NoContent(w)
}

// Follow handles POST /api/v1/users/:id/follow
// @Summary Follow a user
// @Tags Users
// @Produce json
// @Param id path string true "User ID to follow"
// @Success 204 "Now following"
// @Failure 400 {object} map[string]string "Cannot follow yourself"
// @Failure 404 {object} map[string]string "User not found"
// @Router /users/{id}/follow [post]
func (h *UserHandler) Follow(w http.ResponseWriter, r *http.Request) {
	h.socialAction(w, r, h.service.Follow)
}

// Unfollow handles DELETE /api/v1/users/:id/follow
// @Summary Unfollow a user
// @Tags Users
// @Produce json
// @Param id path string true "User ID to unfollow"
// @Success 204 "No longer following"
// @Failure 404 {object} map[string]string "User not found"
// @Router /users/{id}/follow [delete]
func (h *UserHandler) Unfollow(w http.ResponseWriter, r *http.Request) {
	h.socialAction(w, r, h.service.Unfollow)
}

// Block handles POST /api/v1/users/:id/block
// @Summary Block a user
// @Description Block a user. Blocking is symmetric and severs any follow relationship in both directions.
// @Tags Users
// @Produce json
// @Param id path string true "User ID to block"
// @Success 204 "Blocked"
// @Failure 404 {object} map[string]string "User not found"
// @Router /users/{id}/block [post]
func (h *UserHandler) Block(w http.ResponseWriter, r *http.Request) {
	h.socialAction(w, r, h.service.Block)
}

// Unblock handles DELETE /api/v1/users/:id/block
// @Summary Unblock a user
// @Tags Users
// @Produce json
// @Param id path string true "User ID to unblock"
// @Success 204 "Unblocked"
// @Failure 404 {object} map[string]string "User not found"
// @Router /users/{id}/block [delete]
func (h *UserHandler) Unblock(w http.ResponseWriter, r *http.Request) {
	h.socialAction(w, r, h.service.Unblock)
}

// Suspend handles POST /api/v1/users/:id/suspend
// @Summary Suspend an account
// @Description Suspend an account and revoke its sessions. Admin only.
// @Tags Admin
// @Produce json
// @Param id path string true "User ID to suspend"
// @Success 204 "Suspended"
// @Failure 403 {object} map[string]string "Admin access required"
// @Failure 404 {object} map[string]string "User not found"
// @Router /users/{id}/suspend [post]
func (h *UserHandler) Suspend(w http.ResponseWriter, r *http.Request) {
	h.socialAction(w, r, h.service.Suspend)
}

// Reactivate handles DELETE /api/v1/users/:id/suspend
// @Summary Reactivate an account
// @Description Lift an account suspension. Admin only.
// @Tags Admin
// @Produce json
// @Param id path string true "User ID to reactivate"
// @Success 204 "Reactivated"
// @Failure 403 {object} map[string]string "Admin access required"
// @Failure 404 {object} map[string]string "User not found"
// @Router /users/{id}/suspend [delete]
func (h *UserHandler) Reactivate(w http.ResponseWriter, r *http.Request) {
	h.socialAction(w, r, h.service.Reactivate)
}

// socialAction runs a (requester, target) operation shared by the
// follow/block/suspend endpoints.
func (h *UserHandler) socialAction(w http.ResponseWriter, r *http.Request, action func(requesterID, userID string) error) {
	requesterID, _ := middleware.UserID(r.Context())

	id, err := request.GetStringParam(r, "id")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid user ID")
		return
	}

	if err := action(requesterID, id); err != nil {
		h.handleError(w, err)
		return
	}

	response.NoContent(w)
}

// handleError handles service layer errors and returns appropriate HTTP responses
func (h *UserHandler) handleError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		response.Error(w, http.StatusNotFound, "User not found")
	case errors.Is(err, domain.ErrAlreadyExists):
		response.Error(w, http.StatusBadRequest, "Email is already registered")
	case errors.Is(err, domain.ErrInvalidInput):
		response.Error(w, http.StatusBadRequest, "Invalid input")
	case errors.Is(err, domain.ErrUnauthorized):
		response.Error(w, http.StatusUnauthorized, "Invalid credentials")
	case errors.Is(err, domain.ErrSuspended):
		response.Error(w, http.StatusForbidden, "Account is suspended")
	case errors.Is(err, domain.ErrForbidden):
		response.Error(w, http.StatusForbidden, "You are not allowed to perform this action")
	default:
		h.logger.Error("Internal error in user handler", err)
		response.Error(w, http.StatusInternalServerError, "Internal server error")
	}
}
