package handler

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/cinescope/movie_reviewer/internal/delivery/http/middleware"
	"github.com/cinescope/movie_reviewer/internal/delivery/http/request"
	"github.com/cinescope/movie_reviewer/internal/delivery/http/response"
	"github.com/cinescope/movie_reviewer/internal/domain"
	"github.com/cinescope/movie_reviewer/internal/pkg/logger"
	pkgvalidator "github.com/cinescope/movie_reviewer/internal/pkg/validator"
	"github.com/cinescope/movie_reviewer/internal/usecase/rating"
	"github.com/cinescope/movie_reviewer/internal/usecase/review"
)

// FavoriteToggler flips a movie in and out of a user's favorites.
type FavoriteToggler interface {
	ToggleFavorite(userID, movieID string) (bool, error)
}

// MovieHandler handles HTTP requests for the movie catalog
type MovieHandler struct {
	catalog   domain.MovieCatalogAdmin
	ratings   *rating.Service
	reviews   *review.Service
	favorites FavoriteToggler
	validate  *validator.Validate
	logger    *logger.Logger
}

// NewMovieHandler creates a new movie handler
func NewMovieHandler(
	catalog domain.MovieCatalogAdmin,
	ratings *rating.Service,
	reviews *review.Service,
	favorites FavoriteToggler,
	log *logger.Logger,
) *MovieHandler {
	return &MovieHandler{
		catalog:   catalog,
		ratings:   ratings,
		reviews:   reviews,
		favorites: favorites,
		validate:  pkgvalidator.Get(),
		logger:    log,
	}
}

// CreateMovieRequest represents the request body for adding a movie
type CreateMovieRequest struct {
	Title       string `json:"title" validate:"required,min=1,max=255"`
	Genre       string `json:"genre"`
	Year        int    `json:"year" validate:"omitempty,min=1888"`
	Description string `json:"description"`
}

// List handles GET /api/v1/movies
// @Summary List movies
// @Description Get all movies in the catalog.
// @Tags Movies
// @Produce json
// @Success 200 {object} map[string]interface{} "List of movies"
// @Router /movies [get]
func (h *MovieHandler) List(w http.ResponseWriter, r *http.Request) {
	response.Success(w, h.catalog.GetAll())
}

// GetByID handles GET /api/v1/movies/:id
// @Summary Get a movie
// @Description Get a single movie by its id.
// @Tags Movies
// @Produce json
// @Param id path string true "Movie ID"
// @Success 200 {object} map[string]interface{} "Movie"
// @Failure 404 {object} map[string]string "Movie not found"
// @Router /movies/{id} [get]
func (h *MovieHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, err := request.GetStringParam(r, "id")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid movie ID")
		return
	}

	movie, err := h.catalog.Get(id)
	if err != nil {
		h.handleError(w, err)
		return
	}

	response.Success(w, movie)
}

// Create handles POST /api/v1/movies
// @Summary Add a movie
// @Description Add a movie to the catalog. Admin only.
// @Tags Movies
// @Accept json
// @Produce json
// @Param movie body CreateMovieRequest true "Movie details"
// @Success 201 {object} map[string]interface{} "Movie created successfully"
// @Failure 400 {object} map[string]string "Invalid request body"
// @Failure 403 {object} map[string]string "Admin access required"
// @Router /movies [post]
func (h *MovieHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateMovieRequest
	if err := request.DecodeJSON(r, &req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid input")
		return
	}

	created, err := h.catalog.Create(&domain.Movie{
		Title:       req.Title,
		Genre:       req.Genre,
		Year:        req.Year,
		Description: req.Description,
	})
	if err != nil {
		h.handleError(w, err)
		return
	}

	response.Created(w, created)
}

// Delete handles DELETE /api/v1/movies/:id
// @Summary Delete a movie
// @Description Remove a movie from the catalog and cascade-delete its platform reviews. Admin only.
// @Tags Movies
// @Produce json
// @Param id path string true "Movie ID"
// @Success 204 "Movie deleted successfully"
// @Failure 403 {object} map[string]string "Admin access required"
// @Failure 404 {object} map[string]string "Movie not found"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /movies/{id} [delete]
func (h *MovieHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := request.GetStringParam(r, "id")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid movie ID")
		return
	}

	if !h.catalog.Exists(id) {
		response.Error(w, http.StatusNotFound, "Movie not found")
		return
	}

	// Remove the reviews first so a crash between the two steps leaves no
	// reviews pointing at a missing movie.
	if _, err := h.reviews.DeleteByMovie(r.Context(), id); err != nil {
		h.handleError(w, err)
		return
	}
	if err := h.catalog.Delete(id); err != nil {
		h.handleError(w, err)
		return
	}

	response.NoContent(w)
}

// GetRating handles GET /api/v1/movies/:id/rating
// @Summary Get a movie's average rating
// @Description Get the average rating across all of a movie's reviews, rounded to two decimals. Null when the movie has no reviews.
// @Tags Movies
// @Produce json
// @Param id path string true "Movie ID"
// @Success 200 {object} map[string]interface{} "Average rating"
// @Failure 404 {object} map[string]string "Movie not found"
// @Router /movies/{id}/rating [get]
func (h *MovieHandler) GetRating(w http.ResponseWriter, r *http.Request) {
	id, err := request.GetStringParam(r, "id")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid movie ID")
		return
	}

	if !h.catalog.Exists(id) {
		response.Error(w, http.StatusNotFound, "Movie not found")
		return
	}

	avg, err := h.ratings.AverageRating(r.Context(), id)
	if err != nil {
		h.handleError(w, err)
		return
	}

	response.Success(w, map[string]interface{}{
		"movie_id":       id,
		"average_rating": avg,
	})
}

// ToggleFavorite handles POST /api/v1/movies/:id/favorite
// @Summary Toggle a favorite
// @Description Add the movie to the authenticated user's favorites, or remove it if already present.
// @Tags Movies
// @Produce json
// @Param id path string true "Movie ID"
// @Success 200 {object} map[string]interface{} "Favorite state after the toggle"
// @Failure 401 {object} map[string]string "Authentication required"
// @Failure 404 {object} map[string]string "Movie not found"
// @Router /movies/{id}/favorite [post]
func (h *MovieHandler) ToggleFavorite(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())

	id, err := request.GetStringParam(r, "id")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid movie ID")
		return
	}
	if !h.catalog.Exists(id) {
		response.Error(w, http.StatusNotFound, "Movie not found")
		return
	}

	favorited, err := h.favorites.ToggleFavorite(userID, id)
	if err != nil {
		h.handleError(w, err)
		return
	}

	response.Success(w, map[string]interface{}{
		"movie_id":  id,
		"favorited": favorited,
	})
}

// handleError handles service layer errors and returns appropriate HTTP responses
func (h *MovieHandler) handleError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		response.Error(w, http.StatusNotFound, "Movie not found")
	case errors.Is(err, domain.ErrAlreadyExists):
		response.Error(w, http.StatusBadRequest, "Movie already exists")
	case errors.Is(err, domain.ErrInvalidInput):
		response.Error(w, http.StatusBadRequest, "Invalid input")
	default:
		h.logger.Error("Internal error in movie handler", err)
		response.Error(w, http.StatusInternalServerError, "Internal server error")
	}
}
