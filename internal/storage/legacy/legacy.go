// Package legacy loads the immutable third-party IMDB review export and
// normalizes it into the platform review shape. The export is read once at
// startup and never rewritten by this subsystem; the reviews it yields carry
// no user id and are treated as permanent historical record.
package legacy

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/cinescope/movie_reviewer/internal/domain"
)

// Export column layout, as produced by the original dataset download.
const (
	colDate = iota
	colUser
	colRating
	colText
	colMovieTitle
)

const defaultRating = 3

// Load reads the export at path and returns one normalized review per row.
// titleToMovieID maps catalog movie titles to ids; rows whose title has no
// catalog entry keep the raw title as their movie id so the review is still
// stored, just unresolved. A missing export file yields no reviews.
func Load(path string, titleToMovieID map[string]string) ([]domain.Review, error) {
	file, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open legacy export: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1 // export rows vary in trailing columns

	var reviews []domain.Review
	row := -1 // header is row -1, data rows start at 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("legacy export %s: %w", path, err)
		}
		if row == -1 {
			row++
			continue
		}

		reviews = append(reviews, normalize(record, row, titleToMovieID))
		row++
	}
	return reviews, nil
}

func normalize(record []string, row int, titleToMovieID map[string]string) domain.Review {
	review := domain.Review{
		ID:     fmt.Sprintf("review_%06d", row),
		Rating: defaultRating,
	}

	if len(record) > colDate {
		review.ReviewDate = strings.TrimSpace(record[colDate])
	}
	if len(record) > colUser {
		review.IMDBUsername = strings.TrimSpace(record[colUser])
	}
	if len(record) > colRating {
		review.Rating = normalizeRating(record[colRating])
	}
	if len(record) > colText {
		review.ReviewText = domain.TruncateText(record[colText])
	}
	if len(record) > colMovieTitle {
		title := strings.TrimSpace(record[colMovieTitle])
		if id, ok := titleToMovieID[title]; ok {
			review.MovieID = id
		} else {
			review.MovieID = title
		}
	}
	return review
}

// normalizeRating rescales the export's 0-10 rating to the platform's 1-5
// scale: halve, round, clamp. Unparsable input defaults to a neutral 3.
func normalizeRating(raw string) int {
	value, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return defaultRating
	}
	rating := int(math.Round(value / 2))
	if rating < 1 {
		rating = 1
	}
	if rating > 5 {
		rating = 5
	}
	return rating
}
