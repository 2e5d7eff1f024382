// Package moviecat is the flat-file movie catalog, the collaborator the
// review layer consults to validate movie references. Same load/mutate/
// rewrite pattern as the user directory.
package moviecat

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/cinescope/movie_reviewer/internal/domain"
	"github.com/cinescope/movie_reviewer/internal/pkg/logger"
)

var header = []string{"movie_id", "title", "genre", "year", "description"}

// Catalog is a file-backed movie store.
type Catalog struct {
	mu      sync.RWMutex
	path    string
	logger  *logger.Logger
	movies  map[string]*domain.Movie
	order   []string
	counter int
}

// Open loads movies.csv at path. A missing file starts an empty catalog.
func Open(path string, lg *logger.Logger) (*Catalog, error) {
	c := &Catalog{
		path:    path,
		logger:  lg,
		movies:  make(map[string]*domain.Movie),
		counter: 1,
	}
	if err := c.load(); err != nil {
		return nil, err
	}
	lg.Infof("Loaded %d movies from %s", len(c.movies), path)
	return c, nil
}

// Exists implements domain.MovieCatalog.
func (c *Catalog) Exists(movieID string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.movies[movieID]
	return ok
}

// Get retrieves a movie by id.
func (c *Catalog) Get(movieID string) (*domain.Movie, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	movie, ok := c.movies[movieID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	clone := *movie
	return &clone, nil
}

// GetAll returns all movies in catalog order.
func (c *Catalog) GetAll() []*domain.Movie {
	c.mu.RLock()
	defer c.mu.RUnlock()
	movies := make([]*domain.Movie, 0, len(c.order))
	for _, id := range c.order {
		if movie, ok := c.movies[id]; ok {
			clone := *movie
			movies = append(movies, &clone)
		}
	}
	return movies
}

// Create adds a movie with a generated id.
func (c *Catalog) Create(movie *domain.Movie) (*domain.Movie, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	created := *movie
	created.ID = fmt.Sprintf("movie_%03d", c.counter)
	c.counter++
	c.movies[created.ID] = &created
	c.order = append(c.order, created.ID)
	if err := c.save(); err != nil {
		return nil, err
	}
	clone := created
	return &clone, nil
}

// Delete removes a movie. Cascading its reviews is the review service's job.
func (c *Catalog) Delete(movieID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.movies[movieID]; !ok {
		return domain.ErrNotFound
	}
	delete(c.movies, movieID)
	c.order = remove(c.order, movieID)
	return c.save()
}

// TitleIndex returns a trimmed-title to movie-id mapping, used by the legacy
// import to resolve free-text movie titles against the catalog.
func (c *Catalog) TitleIndex() map[string]string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	index := make(map[string]string, len(c.movies))
	for id, movie := range c.movies {
		index[strings.TrimSpace(movie.Title)] = id
	}
	return index
}

func (c *Catalog) load() error {
	file, err := os.Open(c.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("open movie catalog: %w", err)
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
			return fmt.Errorf("movie catalog %s line %d: %w", c.path, line, err)
		}
		if line == 1 {
			continue
		}
		year, err := strconv.Atoi(record[3])
		if err != nil {
			return fmt.Errorf("movie catalog %s line %d: invalid year %q", c.path, line, record[3])
		}
		movie := &domain.Movie{
			ID:          record[0],
			Title:       record[1],
			Genre:       record[2],
			Year:        year,
			Description: record[4],
		}
		c.movies[movie.ID] = movie
		c.order = append(c.order, movie.ID)
		if n, ok := strings.CutPrefix(movie.ID, "movie_"); ok {
			if num, err := strconv.Atoi(n); err == nil && num >= c.counter {
				c.counter = num + 1
			}
		}
	}
	return nil
}

func (c *Catalog) save() error {
	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(c.path), "movies-*.csv")
	if err != nil {
		return fmt.Errorf("create movie temp file: %w", err)
	}
	tmpPath := tmp.Name()

	w := csv.NewWriter(tmp)
	if err := w.Write(header); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write movie header: %w", err)
	}
	for _, id := range c.order {
		movie, ok := c.movies[id]
		if !ok {
			continue
		}
		record := []string{movie.ID, movie.Title, movie.Genre, strconv.Itoa(movie.Year), movie.Description}
		if err := w.Write(record); err != nil {
			tmp.Close()
			os.Remove(tmpPath)
			return fmt.Errorf("write movie %s: %w", id, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("flush movie catalog: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close movie temp file: %w", err)
	}
	if err := os.Rename(tmpPath, c.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("swap movie catalog: %w", err)
	}
	return nil
}

func remove(ids []string, id string) []string {
	for i, candidate := range ids {
		if candidate == id {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}
