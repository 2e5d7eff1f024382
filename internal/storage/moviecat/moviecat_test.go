package moviecat

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cinescope/movie_reviewer/internal/domain"
	"github.com/cinescope/movie_reviewer/internal/pkg/logger"
)

var testLogger = logger.New("test")

func openCatalog(t *testing.T) (*Catalog, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "movies.csv")
	catalog, err := Open(path, testLogger)
	require.NoError(t, err)
	return catalog, path
}

func TestCatalog_CreateAndGet(t *testing.T) {
	catalog, _ := openCatalog(t)

	created, err := catalog.Create(&domain.Movie{Title: "The Matrix", Genre: "Sci-Fi", Year: 1999})
	require.NoError(t, err)
	assert.Equal(t, "movie_001", created.ID)

	second, err := catalog.Create(&domain.Movie{Title: "Alien", Genre: "Horror", Year: 1979})
	require.NoError(t, err)
	assert.Equal(t, "movie_002", second.ID)

	assert.True(t, catalog.Exists("movie_001"))
	assert.False(t, catalog.Exists("movie_999"))

	got, err := catalog.Get("movie_001")
	require.NoError(t, err)
	assert.Equal(t, "The Matrix", got.Title)

	_, err = catalog.Get("movie_999")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	all := catalog.GetAll()
	require.Len(t, all, 2)
	assert.Equal(t, "movie_001", all[0].ID)
	assert.Equal(t, "movie_002", all[1].ID)
}

func TestCatalog_PersistsAcrossReopen(t *testing.T) {
	catalog, path := openCatalog(t)
	_, err := catalog.Create(&domain.Movie{Title: "The Matrix", Genre: "Sci-Fi", Year: 1999})
	require.NoError(t, err)

	reopened, err := Open(path, testLogger)
	require.NoError(t, err)

	got, err := reopened.Get("movie_001")
	require.NoError(t, err)
	assert.Equal(t, 1999, got.Year)

	// The id counter resumes past the stored movies.
	next, err := reopened.Create(&domain.Movie{Title: "Alien", Year: 1979})
	require.NoError(t, err)
	assert.Equal(t, "movie_002", next.ID)
}

func TestCatalog_Delete(t *testing.T) {
	catalog, _ := openCatalog(t)
	created, err := catalog.Create(&domain.Movie{Title: "The Matrix", Year: 1999})
	require.NoError(t, err)

	require.NoError(t, catalog.Delete(created.ID))
	assert.False(t, catalog.Exists(created.ID))
	assert.ErrorIs(t, catalog.Delete(created.ID), domain.ErrNotFound)
}

func TestCatalog_TitleIndex(t *testing.T) {
	catalog, _ := openCatalog(t)
	_, err := catalog.Create(&domain.Movie{Title: "  The Matrix  ", Year: 1999})
	require.NoError(t, err)

	index := catalog.TitleIndex()
	assert.Equal(t, "movie_001", index["The Matrix"])
}
