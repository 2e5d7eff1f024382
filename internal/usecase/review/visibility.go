package review

import (
	"github.com/cinescope/movie_reviewer/internal/domain"
)

// FilterVisible removes reviews the given viewer must not see and preserves
// input order. Reviews by suspended authors are hidden from everyone. An
// authenticated viewer additionally loses reviews from anyone in their
// blocked set - blocking is symmetric at the storage layer, but both
// directions are checked so the result does not depend on that property.
// Legacy reviews have no live account behind them and always pass.
//
// The filter is pure: it never mutates the store or the input slice.
func FilterVisible(reviews []*domain.Review, viewer string, graph domain.SocialGraph) []*domain.Review {
	visible := make([]*domain.Review, 0, len(reviews))

	var viewerBlocked map[string]struct{}
	if viewer != "" {
		viewerBlocked = graph.UserStatus(viewer).Blocked
	}

	for _, r := range reviews {
		if r.IsLegacy() {
			visible = append(visible, r)
			continue
		}
		author := r.Author()
		status := graph.UserStatus(author)
		if status.Suspended {
			continue
		}
		if viewer != "" {
			if _, blocked := viewerBlocked[author]; blocked {
				continue
			}
			if _, blocked := status.Blocked[viewer]; blocked {
				continue
			}
		}
		visible = append(visible, r)
	}
	return visible
}
