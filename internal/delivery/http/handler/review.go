package handler

import (
	"errors"
	"net/http"

	"github.com/cinescope/movie_reviewer/internal/delivery/http/middleware"
	"github.com/cinescope/movie_reviewer/internal/delivery/http/request"
	"github.com/cinescope/movie_reviewer/internal/delivery/http/response"
	"github.com/cinescope/movie_reviewer/internal/domain"
	"github.com/cinescope/movie_reviewer/internal/pkg/logger"
	"github.com/cinescope/movie_reviewer/internal/usecase/review"
)

// ReviewHandler handles HTTP requests for reviews
type ReviewHandler struct {
	service *review.Service
	logger  *logger.Logger
}

// NewReviewHandler creates a new review handler
func NewReviewHandler(service *review.Service, log *logger.Logger) *ReviewHandler {
	return &ReviewHandler{
		service: service,
		logger:  log,
	}
}

// CreateReviewRequest represents the request body for creating a review
type CreateReviewRequest struct {
	MovieID    string `json:"movie_id" validate:"required"`
	Rating     int    `json:"rating" validate:"required,min=1,max=5"`
	ReviewText string `json:"review_text"`
	ReviewDate string `json:"review_date"`
}

// UpdateReviewRequest represents the request body for updating a review.
// All fields are optional; absent fields keep their current value.
type UpdateReviewRequest struct {
	Rating     *int    `json:"rating,omitempty"`
	ReviewText *string `json:"review_text,omitempty"`
	ReviewDate *string `json:"review_date,omitempty"`
}

// Create handles POST /api/v1/reviews
// @Summary Create a new review
// @Description Create a review for a movie as the authenticated user. One review per user per movie.
// @Tags Reviews
// @Accept json
// @Produce json
// @Param review body CreateReviewRequest true "Review details"
// @Success 201 {object} map[string]interface{} "Review created successfully"
// @Failure 400 {object} map[string]string "Invalid request body or duplicate review"
// @Failure 401 {object} map[string]string "Authentication required"
// @Failure 404 {object} map[string]string "Movie not found"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /reviews [post]
func (h *ReviewHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())

	var req CreateReviewRequest
	if err := request.DecodeJSON(r, &req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	created, err := h.service.Create(r.Context(), userID, review.CreateInput{
		MovieID:    req.MovieID,
		Rating:     req.Rating,
		ReviewText: req.ReviewText,
		ReviewDate: req.ReviewDate,
	})
	if err != nil {
		h.handleError(w, err)
		return
	}

	response.Created(w, created)
}

// GetByID handles GET /api/v1/reviews/:id
// @Summary Get a review
// @Description Get a single review by its id.
// @Tags Reviews
// @Produce json
// @Param id path string true "Review ID"
// @Success 200 {object} map[string]interface{} "Review"
// @Failure 404 {object} map[string]string "Review not found"
// @Router /reviews/{id} [get]
func (h *ReviewHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, err := request.GetStringParam(r, "id")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid review ID")
		return
	}

	found, err := h.service.Get(id)
	if err != nil {
		h.handleError(w, err)
		return
	}

	response.Success(w, found)
}

// Update handles PUT /api/v1/reviews/:id
// @Summary Update a review
// @Description Update a review's rating, text, or date. Only the author or an admin may update; imported reviews are immutable.
// @Tags Reviews
// @Accept json
// @Produce json
// @Param id path string true "Review ID"
// @Param review body UpdateReviewRequest true "Fields to update"
// @Success 200 {object} map[string]interface{} "Review updated successfully"
// @Failure 400 {object} map[string]string "Invalid request"
// @Failure 403 {object} map[string]string "Not the author, or the review is immutable"
// @Failure 404 {object} map[string]string "Review not found"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /reviews/{id} [put]
func (h *ReviewHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())

	id, err := request.GetStringParam(r, "id")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid review ID")
		return
	}

	var req UpdateReviewRequest
	if err := request.DecodeJSON(r, &req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	updated, err := h.service.Update(r.Context(), userID, id, domain.ReviewUpdate{
		Rating:     req.Rating,
		ReviewText: req.ReviewText,
		ReviewDate: req.ReviewDate,
	})
	if err != nil {
		h.handleError(w, err)
		return
	}

	response.Success(w, updated)
}

// Delete handles DELETE /api/v1/reviews/:id
// @Summary Delete a review
// @Description Delete a review. Only the author or an admin may delete; imported reviews are immutable.
// @Tags Reviews
// @Produce json
// @Param id path string true "Review ID"
// @Success 204 "Review deleted successfully"
// @Failure 403 {object} map[string]string "Not the author, or the review is immutable"
// @Failure 404 {object} map[string]string "Review not found"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /reviews/{id} [delete]
func (h *ReviewHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())

	id, err := request.GetStringParam(r, "id")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid review ID")
		return
	}

	if err := h.service.Delete(r.Context(), userID, id); err != nil {
		h.handleError(w, err)
		return
	}

	response.NoContent(w)
}

// GetByMovieID handles GET /api/v1/movies/:id/reviews
// @Summary Get reviews for a movie
// @Description Get a paginated list of a movie's reviews, filtered by the viewer's social graph. Results are cached.
// @Tags Reviews
// @Produce json
// @Param id path string true "Movie ID"
// @Param limit query int false "Number of items per page (max 100)" default(20)
// @Param offset query int false "Number of items to skip" default(0)
// @Success 200 {object} map[string]interface{} "Paginated list of reviews"
// @Failure 404 {object} map[string]string "Movie not found"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /movies/{id}/reviews [get]
func (h *ReviewHandler) GetByMovieID(w http.ResponseWriter, r *http.Request) {
	movieID, err := request.GetStringParam(r, "id")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid movie ID")
		return
	}

	viewer, _ := middleware.UserID(r.Context())
	limit, offset := request.GetPaginationParams(r)

	reviews, total, err := h.service.ListByMovie(r.Context(), movieID, viewer, limit, offset)
	if err != nil {
		h.handleError(w, err)
		return
	}

	response.Paginated(w, reviews, total, limit, offset)
}

// GetByUserID handles GET /api/v1/users/:id/reviews
// @Summary Get reviews by a user
// @Description Get a paginated list of a user's reviews, filtered by the viewer's social graph.
// @Tags Reviews
// @Produce json
// @Param id path string true "User ID"
// @Param limit query int false "Number of items per page (max 100)" default(20)
// @Param offset query int false "Number of items to skip" default(0)
// @Success 200 {object} map[string]interface{} "Paginated list of reviews"
// @Failure 404 {object} map[string]string "User not found"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /users/{id}/reviews [get]
func (h *ReviewHandler) GetByUserID(w http.ResponseWriter, r *http.Request) {
	userID, err := request.GetStringParam(r, "id")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid user ID")
		return
	}

	viewer, _ := middleware.UserID(r.Context())
	limit, offset := request.GetPaginationParams(r)

	reviews, total, err := h.service.ListByUser(r.Context(), userID, viewer, limit, offset)
	if err != nil {
		h.handleError(w, err)
		return
	}

	response.Paginated(w, reviews, total, limit, offset)
}

// Compact handles POST /api/v1/admin/reviews/compact
// @Summary Compact the review operation log
// @Description Rewrite the operation log to one entry per live review. Admin only.
// @Tags Admin
// @Produce json
// @Success 200 {object} map[string]interface{} "Number of log entries discarded"
// @Failure 403 {object} map[string]string "Admin access required"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /admin/reviews/compact [post]
func (h *ReviewHandler) Compact(w http.ResponseWriter, r *http.Request) {
	discarded, err := h.service.Compact()
	if err != nil {
		h.handleError(w, err)
		return
	}

	response.Success(w, map[string]int{"discarded": discarded})
}

// handleError handles service layer errors and returns appropriate HTTP responses
func (h *ReviewHandler) handleError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		response.Error(w, http.StatusNotFound, "Review, movie, or user not found")
	case errors.Is(err, domain.ErrDuplicateReview):
		response.Error(w, http.StatusBadRequest, "You have already reviewed this movie")
	case errors.Is(err, domain.ErrInvalidInput):
		response.Error(w, http.StatusBadRequest, "Invalid input")
	case errors.Is(err, domain.ErrLegacyReview):
		response.Error(w, http.StatusForbidden, "Imported reviews cannot be modified")
	case errors.Is(err, domain.ErrForbidden):
		response.Error(w, http.StatusForbidden, "You are not allowed to modify this review")
	case errors.Is(err, domain.ErrSuspended):
		response.Error(w, http.StatusForbidden, "Account is suspended")
	case errors.Is(err, domain.ErrUnauthorized):
		response.Error(w, http.StatusUnauthorized, "Authentication required")
	default:
		h.logger.Error("Internal error in review handler", err)
		response.Error(w, http.StatusInternalServerError, "Internal server error")
	}
}
