package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cinescope/movie_reviewer/internal/delivery/http/middleware"
	"github.com/cinescope/movie_reviewer/internal/domain"
	"github.com/cinescope/movie_reviewer/internal/pkg/logger"
	"github.com/cinescope/movie_reviewer/internal/storage/oplog"
	"github.com/cinescope/movie_reviewer/internal/storage/reviewstore"
	"github.com/cinescope/movie_reviewer/internal/usecase/review"
)

var testLogger = logger.New("test")

// stubCatalog reports a fixed set of movie ids as existing.
type stubCatalog struct {
	movies map[string]bool
}

func (c stubCatalog) Exists(movieID string) bool { return c.movies[movieID] }

func (c stubCatalog) Get(movieID string) (*domain.Movie, error) {
	if !c.movies[movieID] {
		return nil, domain.ErrNotFound
	}
	return &domain.Movie{ID: movieID, Title: movieID}, nil
}

// stubUsers is a minimal review.Users implementation.
type stubUsers struct {
	users map[string]*domain.User
}

func (s stubUsers) Get(userID string) (*domain.User, error) {
	u, ok := s.users[userID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return u, nil
}

func (s stubUsers) IncrementReviewCount(string) error { return nil }

func (s stubUsers) UserStatus(string) domain.UserStatus { return domain.UserStatus{} }

// noopCache always misses.
type noopCache struct{}

func (noopCache) GetReviewsList(context.Context, string, string, int, int) ([]*domain.Review, error) {
	return nil, domain.ErrNotFound
}
func (noopCache) SetReviewsList(context.Context, string, string, int, int, []*domain.Review) error {
	return nil
}
func (noopCache) InvalidateAllMovieCache(context.Context, string) error { return nil }

// noopPublisher drops events.
type noopPublisher struct{}

func (noopPublisher) Publish(context.Context, string, []byte) error { return nil }

func newTestHandler(t *testing.T) *ReviewHandler {
	t.Helper()
	log, err := oplog.Open(filepath.Join(t.TempDir(), "reviews.csv"))
	require.NoError(t, err)
	store, err := reviewstore.New(log, nil, 100, testLogger)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	users := stubUsers{users: map[string]*domain.User{
		"user_001": {ID: "user_001", Username: "alice"},
		"user_002": {ID: "user_002", Username: "bob"},
	}}
	catalog := stubCatalog{movies: map[string]bool{"movie_001": true}}
	service := review.NewService(store, catalog, users, noopCache{}, noopPublisher{}, testLogger)
	return NewReviewHandler(service, testLogger)
}

func authenticatedRequest(method, target, userID string, body []byte) *http.Request {
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req = req.WithContext(middleware.WithUserID(req.Context(), userID))
	}
	return req
}

func withURLParam(req *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func createTestReview(t *testing.T, h *ReviewHandler, userID string) string {
	t.Helper()
	body, _ := json.Marshal(CreateReviewRequest{MovieID: "movie_001", Rating: 5, ReviewText: "Great"})
	w := httptest.NewRecorder()
	h.Create(w, authenticatedRequest(http.MethodPost, "/api/v1/reviews", userID, body))
	require.Equal(t, http.StatusCreated, w.Code)

	var response struct {
		Data domain.Review `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	return response.Data.ID
}

func TestReviewHandler_Create_Success(t *testing.T) {
	h := newTestHandler(t)

	body, _ := json.Marshal(CreateReviewRequest{MovieID: "movie_001", Rating: 5, ReviewText: "Great"})
	w := httptest.NewRecorder()
	h.Create(w, authenticatedRequest(http.MethodPost, "/api/v1/reviews", "user_001", body))

	assert.Equal(t, http.StatusCreated, w.Code)

	var response map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Contains(t, response, "data")
}

func TestReviewHandler_Create_InvalidJSON(t *testing.T) {
	h := newTestHandler(t)

	w := httptest.NewRecorder()
	h.Create(w, authenticatedRequest(http.MethodPost, "/api/v1/reviews", "user_001", []byte("invalid json")))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	var response map[string]string
	json.Unmarshal(w.Body.Bytes(), &response)
	assert.Contains(t, response["error"], "Invalid request body")
}

func TestReviewHandler_Create_UnknownMovie(t *testing.T) {
	h := newTestHandler(t)

	body, _ := json.Marshal(CreateReviewRequest{MovieID: "movie_404", Rating: 5})
	w := httptest.NewRecorder()
	h.Create(w, authenticatedRequest(http.MethodPost, "/api/v1/reviews", "user_001", body))

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestReviewHandler_Create_Duplicate(t *testing.T) {
	h := newTestHandler(t)
	createTestReview(t, h, "user_001")

	body, _ := json.Marshal(CreateReviewRequest{MovieID: "movie_001", Rating: 2})
	w := httptest.NewRecorder()
	h.Create(w, authenticatedRequest(http.MethodPost, "/api/v1/reviews", "user_001", body))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	var response map[string]string
	json.Unmarshal(w.Body.Bytes(), &response)
	assert.Contains(t, response["error"], "already reviewed")
}

func TestReviewHandler_Update_ForbiddenForStranger(t *testing.T) {
	h := newTestHandler(t)
	id := createTestReview(t, h, "user_001")

	body, _ := json.Marshal(UpdateReviewRequest{})
	req := authenticatedRequest(http.MethodPut, "/api/v1/reviews/"+id, "user_002", body)
	w := httptest.NewRecorder()
	h.Update(w, withURLParam(req, "id", id))

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestReviewHandler_Update_Success(t *testing.T) {
	h := newTestHandler(t)
	id := createTestReview(t, h, "user_001")

	rating := 2
	body, _ := json.Marshal(UpdateReviewRequest{Rating: &rating})
	req := authenticatedRequest(http.MethodPut, "/api/v1/reviews/"+id, "user_001", body)
	w := httptest.NewRecorder()
	h.Update(w, withURLParam(req, "id", id))

	assert.Equal(t, http.StatusOK, w.Code)

	var response struct {
		Data domain.Review `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, 2, response.Data.Rating)
}

func TestReviewHandler_Delete(t *testing.T) {
	h := newTestHandler(t)
	id := createTestReview(t, h, "user_001")

	req := authenticatedRequest(http.MethodDelete, "/api/v1/reviews/"+id, "user_001", nil)
	w := httptest.NewRecorder()
	h.Delete(w, withURLParam(req, "id", id))
	assert.Equal(t, http.StatusNoContent, w.Code)

	// A second delete reports not found.
	req = authenticatedRequest(http.MethodDelete, "/api/v1/reviews/"+id, "user_001", nil)
	w = httptest.NewRecorder()
	h.Delete(w, withURLParam(req, "id", id))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestReviewHandler_GetByMovieID(t *testing.T) {
	h := newTestHandler(t)
	createTestReview(t, h, "user_001")
	createTestReview(t, h, "user_002")

	req := authenticatedRequest(http.MethodGet, "/api/v1/movies/movie_001/reviews?limit=1&offset=0", "", nil)
	w := httptest.NewRecorder()
	h.GetByMovieID(w, withURLParam(req, "id", "movie_001"))

	assert.Equal(t, http.StatusOK, w.Code)

	var response struct {
		Data       []domain.Review `json:"data"`
		Pagination map[string]int  `json:"pagination"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Len(t, response.Data, 1)
	assert.Equal(t, 2, response.Pagination["total"])
	assert.Equal(t, 1, response.Pagination["limit"])
}

func TestReviewHandler_Compact_ReportsDiscardedEntries(t *testing.T) {
	h := newTestHandler(t)
	id := createTestReview(t, h, "user_001")

	// The create row plus one update row compact down to a single create.
	rating := 3
	body, _ := json.Marshal(UpdateReviewRequest{Rating: &rating})
	req := authenticatedRequest(http.MethodPut, "/api/v1/reviews/"+id, "user_001", body)
	w := httptest.NewRecorder()
	h.Update(w, withURLParam(req, "id", id))
	require.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	h.Compact(w, authenticatedRequest(http.MethodPost, "/api/v1/admin/reviews/compact", "user_001", nil))

	assert.Equal(t, http.StatusOK, w.Code)

	var response struct {
		Data map[string]int `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, 1, response.Data["discarded"])
}

func TestReviewHandler_GetByMovieID_UnknownMovie(t *testing.T) {
	h := newTestHandler(t)

	req := authenticatedRequest(http.MethodGet, "/api/v1/movies/movie_404/reviews", "", nil)
	w := httptest.NewRecorder()
	h.GetByMovieID(w, withURLParam(req, "id", "movie_404"))

	assert.Equal(t, http.StatusNotFound, w.Code)
}
