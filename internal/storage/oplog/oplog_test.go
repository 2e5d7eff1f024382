package oplog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cinescope/movie_reviewer/internal/domain"
)

func platformReview(id, movieID, userID string, rating int, text string) domain.Review {
	return domain.Review{
		ID:         id,
		MovieID:    movieID,
		UserID:     &userID,
		Rating:     rating,
		ReviewText: text,
		ReviewDate: "2024-01-15",
	}
}

func TestLog_AppendAndReplay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reviews.csv")

	log, err := Open(path)
	require.NoError(t, err)
	defer log.Close()

	assert.Equal(t, 0, log.Len())

	r1 := platformReview("review_000000", "movie_001", "user_001", 5, "Loved it")
	r2 := platformReview("review_000001", "movie_002", "user_002", 2, "Not for me")

	require.NoError(t, log.Append(OpCreate, r1))
	require.NoError(t, log.Append(OpCreate, r2))
	r1.Rating = 4
	require.NoError(t, log.Append(OpUpdate, r1))
	require.NoError(t, log.Append(OpDelete, domain.Review{ID: r2.ID, MovieID: r2.MovieID, Rating: r2.Rating}))

	assert.Equal(t, 4, log.Len())

	entries, err := log.Replay()
	require.NoError(t, err)
	require.Len(t, entries, 4)

	assert.Equal(t, OpCreate, entries[0].Op)
	assert.Equal(t, "review_000000", entries[0].Review.ID)
	require.NotNil(t, entries[0].Review.UserID)
	assert.Equal(t, "user_001", *entries[0].Review.UserID)
	assert.Equal(t, 5, entries[0].Review.Rating)

	assert.Equal(t, OpUpdate, entries[2].Op)
	assert.Equal(t, 4, entries[2].Review.Rating)

	assert.Equal(t, OpDelete, entries[3].Op)
	assert.Equal(t, "review_000001", entries[3].Review.ID)
}

func TestLog_ReopenPreservesEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reviews.csv")

	log, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, log.Append(OpCreate, platformReview("review_000000", "movie_001", "user_001", 3, "fine")))
	require.NoError(t, log.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	assert.Equal(t, 1, reopened.Len())

	require.NoError(t, reopened.Append(OpCreate, platformReview("review_000001", "movie_001", "user_002", 4, "good")))
	assert.Equal(t, 2, reopened.Len())
}

func TestLog_CommasAndQuotesSurviveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reviews.csv")

	log, err := Open(path)
	require.NoError(t, err)
	defer log.Close()

	text := `Great pacing, "unusual" ending, 10/10`
	require.NoError(t, log.Append(OpCreate, platformReview("review_000000", "movie_001", "user_001", 5, text)))

	entries, err := log.Replay()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, text, entries[0].Review.ReviewText)
}

func TestLog_Compact(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reviews.csv")

	log, err := Open(path)
	require.NoError(t, err)
	defer log.Close()

	r1 := platformReview("review_000000", "movie_001", "user_001", 5, "great")
	r2 := platformReview("review_000001", "movie_001", "user_002", 1, "bad")
	require.NoError(t, log.Append(OpCreate, r1))
	require.NoError(t, log.Append(OpCreate, r2))
	r1.Rating = 3
	require.NoError(t, log.Append(OpUpdate, r1))
	require.NoError(t, log.Append(OpDelete, domain.Review{ID: r2.ID}))

	discarded, err := log.Compact([]domain.Review{r1})
	require.NoError(t, err)
	assert.Equal(t, 3, discarded)
	assert.Equal(t, 1, log.Len())

	entries, err := log.Replay()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, OpCreate, entries[0].Op)
	assert.Equal(t, "review_000000", entries[0].Review.ID)
	assert.Equal(t, 3, entries[0].Review.Rating)

	// The log must stay appendable after the file swap.
	require.NoError(t, log.Append(OpCreate, platformReview("review_000002", "movie_002", "user_003", 4, "solid")))
	assert.Equal(t, 2, log.Len())
}

func TestLog_OpenFailsOnUnknownOperation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reviews.csv")
	content := "operation,review_id,movie_id,user_id,imdb_username,rating,review_text,review_date\n" +
		"upsert,review_000000,movie_001,user_001,,5,text,2024-01-15\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	_, err := Open(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown operation")
}

func TestLog_OpenFailsOnMalformedRating(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reviews.csv")
	content := "operation,review_id,movie_id,user_id,imdb_username,rating,review_text,review_date\n" +
		"create,review_000000,movie_001,user_001,,five,text,2024-01-15\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	_, err := Open(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid rating")
}

func TestLog_OpenFailsOnWrongColumnCount(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reviews.csv")
	content := "operation,review_id,movie_id,user_id,imdb_username,rating,review_text,review_date\n" +
		"create,review_000000,movie_001\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	_, err := Open(path)
	require.Error(t, err)
}

func TestLog_LegacyRowsHaveNilUserID(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reviews.csv")

	log, err := Open(path)
	require.NoError(t, err)
	defer log.Close()

	require.NoError(t, log.Append(OpCreate, domain.Review{
		ID:           "review_000000",
		MovieID:      "movie_001",
		IMDBUsername: "moviefan42",
		Rating:       4,
	}))

	entries, err := log.Replay()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Nil(t, entries[0].Review.UserID)
	assert.Equal(t, "moviefan42", entries[0].Review.IMDBUsername)
}
