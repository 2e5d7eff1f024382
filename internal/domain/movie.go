package domain

// Movie represents a catalog entry.
type Movie struct {
	ID          string `json:"movie_id"`
	Title       string `json:"title" validate:"required,min=1,max=255"`
	Genre       string `json:"genre"`
	Year        int    `json:"year" validate:"omitempty,min=1888"`
	Description string `json:"description"`
}

// MovieCatalog is the collaborator interface the review layer uses to
// validate foreign keys before writing a review.
type MovieCatalog interface {
	Exists(movieID string) bool
	Get(movieID string) (*Movie, error)
}

// MovieCatalogAdmin extends MovieCatalog with the catalog-management
// operations exposed over the admin surface.
type MovieCatalogAdmin interface {
	MovieCatalog
	GetAll() []*Movie
	Create(movie *Movie) (*Movie, error)
	Delete(movieID string) error
}
