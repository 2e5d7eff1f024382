package review

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cinescope/movie_reviewer/internal/domain"
)

// stubGraph answers UserStatus lookups from fixed maps.
type stubGraph struct {
	suspended map[string]bool
	blocked   map[string]map[string]struct{}
}

func (g stubGraph) UserStatus(userID string) domain.UserStatus {
	return domain.UserStatus{
		Suspended: g.suspended[userID],
		Blocked:   g.blocked[userID],
	}
}

func blockSet(ids ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

func platform(id, author string, rating int) *domain.Review {
	uid := author
	return &domain.Review{ID: id, MovieID: "movie_001", UserID: &uid, Rating: rating}
}

func imported(id, username string, rating int) *domain.Review {
	return &domain.Review{ID: id, MovieID: "movie_001", IMDBUsername: username, Rating: rating}
}

func ids(reviews []*domain.Review) []string {
	out := make([]string, len(reviews))
	for i, r := range reviews {
		out[i] = r.ID
	}
	return out
}

func TestFilterVisible(t *testing.T) {
	// movie_001 has a review from u1 (rating 5), a review from the
	// suspended u2 (rating 2), and an imported review (rating 4).
	reviews := []*domain.Review{
		platform("review_000010", "u1", 5),
		platform("review_000011", "u2", 2),
		imported("review_000000", "moviefan42", 4),
	}
	graph := stubGraph{
		suspended: map[string]bool{"u2": true},
		blocked: map[string]map[string]struct{}{
			"u3": blockSet("u1"),
			"u1": blockSet("u3"),
		},
	}

	t.Run("anonymous viewer sees all but suspended", func(t *testing.T) {
		got := FilterVisible(reviews, "", graph)
		assert.Equal(t, []string{"review_000010", "review_000000"}, ids(got))
	})

	t.Run("blocking hides in both directions", func(t *testing.T) {
		// u3 blocked u1, so u3 loses u1's review and only the import
		// remains.
		got := FilterVisible(reviews, "u3", graph)
		assert.Equal(t, []string{"review_000000"}, ids(got))

		// Symmetrically u1 must not see anything authored by u3.
		withU3 := append([]*domain.Review{platform("review_000012", "u3", 3)}, reviews...)
		got = FilterVisible(withU3, "u1", graph)
		assert.Equal(t, []string{"review_000010", "review_000000"}, ids(got))
	})

	t.Run("authors see their own reviews", func(t *testing.T) {
		got := FilterVisible(reviews, "u1", graph)
		assert.Equal(t, []string{"review_000010", "review_000000"}, ids(got))
	})

	t.Run("one-directional block still hides", func(t *testing.T) {
		// Only the author's side knows about the block; the viewer's set
		// is empty.
		oneWay := stubGraph{
			suspended: map[string]bool{},
			blocked: map[string]map[string]struct{}{
				"u1": blockSet("u4"),
			},
		}
		got := FilterVisible(reviews, "u4", oneWay)
		assert.Equal(t, []string{"review_000011", "review_000000"}, ids(got))
	})

	t.Run("input order preserved", func(t *testing.T) {
		shuffled := []*domain.Review{reviews[2], reviews[0]}
		got := FilterVisible(shuffled, "", graph)
		assert.Equal(t, []string{"review_000000", "review_000010"}, ids(got))
	})

	t.Run("input slice not mutated", func(t *testing.T) {
		before := ids(reviews)
		FilterVisible(reviews, "u3", graph)
		assert.Equal(t, before, ids(reviews))
	})

	t.Run("unknown viewer gets the anonymous view", func(t *testing.T) {
		got := FilterVisible(reviews, "ghost", graph)
		assert.Equal(t, []string{"review_000010", "review_000000"}, ids(got))
	})
}
