package legacy

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cinescope/movie_reviewer/internal/domain"
)

func writeExport(t *testing.T, rows ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "imdb_reviews.csv")
	content := "Date,User,Rating,Text,MovieTitle\n" + strings.Join(rows, "\n") + "\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_MissingFileYieldsNoReviews(t *testing.T) {
	reviews, err := Load(filepath.Join(t.TempDir(), "absent.csv"), nil)
	require.NoError(t, err)
	assert.Empty(t, reviews)
}

func TestLoad_NormalizesRows(t *testing.T) {
	path := writeExport(t,
		"2019-06-01,moviefan42,8,An instant classic,The Matrix",
		"2020-02-14,cinephile,3,Fell asleep twice,The Matrix",
	)

	reviews, err := Load(path, map[string]string{"The Matrix": "movie_007"})
	require.NoError(t, err)
	require.Len(t, reviews, 2)

	first := reviews[0]
	assert.Equal(t, "review_000000", first.ID)
	assert.Nil(t, first.UserID)
	assert.True(t, first.IsLegacy())
	assert.Equal(t, "moviefan42", first.IMDBUsername)
	assert.Equal(t, "movie_007", first.MovieID)
	assert.Equal(t, 4, first.Rating) // 8/2
	assert.Equal(t, "An instant classic", first.ReviewText)
	assert.Equal(t, "2019-06-01", first.ReviewDate)

	second := reviews[1]
	assert.Equal(t, "review_000001", second.ID)
	assert.Equal(t, 2, second.Rating) // round(3/2)
}

func TestLoad_RatingTransform(t *testing.T) {
	tests := []struct {
		raw  string
		want int
	}{
		{"0", 1},  // clamped up
		{"1", 1},  // round(0.5) = 1 under round-half-away
		{"2", 1},  // 1.0
		{"5", 3},  // round(2.5) = 3
		{"7", 4},  // round(3.5) = 4
		{"10", 5}, // 5.0
		{"11", 5}, // clamped down
		{"9.4", 5},
		{"garbage", 3}, // unparsable defaults to neutral
		{"", 3},
	}

	for _, tt := range tests {
		path := writeExport(t, "2019-06-01,someone,"+tt.raw+",text,Unknown Movie")
		reviews, err := Load(path, nil)
		require.NoError(t, err)
		require.Len(t, reviews, 1)
		assert.Equalf(t, tt.want, reviews[0].Rating, "raw rating %q", tt.raw)
	}
}

func TestLoad_TruncatesLongText(t *testing.T) {
	long := strings.Repeat("é", 300)
	path := writeExport(t, "2019-06-01,someone,6,"+long+",Unknown Movie")

	reviews, err := Load(path, nil)
	require.NoError(t, err)
	require.Len(t, reviews, 1)
	assert.Equal(t, domain.MaxReviewTextLen, len([]rune(reviews[0].ReviewText)))
}

func TestLoad_UnresolvedTitleKeepsRawTitle(t *testing.T) {
	path := writeExport(t, "2019-06-01,someone,6,text,Some Obscure Film")

	reviews, err := Load(path, map[string]string{"The Matrix": "movie_007"})
	require.NoError(t, err)
	require.Len(t, reviews, 1)
	assert.Equal(t, "Some Obscure Film", reviews[0].MovieID)
}

func TestLoad_ShortRowsGetDefaults(t *testing.T) {
	path := writeExport(t, "2019-06-01,someone")

	reviews, err := Load(path, nil)
	require.NoError(t, err)
	require.Len(t, reviews, 1)
	assert.Equal(t, 3, reviews[0].Rating)
	assert.Empty(t, reviews[0].ReviewText)
	assert.Empty(t, reviews[0].MovieID)
}
