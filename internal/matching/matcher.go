// Package matching selects which musicians are notified about an event.
// It contains selection policy only; candidate fetching is delegated to a
// repository and distance math to the geo package.
package matching

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"musomatch/backend/internal/geo"
	"musomatch/backend/internal/models"

	"github.com/google/uuid"
)

// CandidateSource returns musicians whose instrument set intersects the
// given instruments and who have a non-null location. The poster is
// excluded at the query level; the matcher re-checks regardless.
type CandidateSource interface {
	FindCandidates(ctx context.Context, instruments []string, excludeUserID uuid.UUID) ([]models.UserProfile, error)
}

type Matcher struct {
	users  CandidateSource
	logger *slog.Logger
}

func New(users CandidateSource, logger *slog.Logger) *Matcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Matcher{users: users, logger: logger}
}

// Match returns the candidates eligible for the event, closest first.
// Events with no required instruments or an unresolved location return
// ErrUnmatchable so callers can tell "not matchable" apart from an empty
// successful match.
func (m *Matcher) Match(ctx context.Context, event models.Event) ([]models.MatchResult, error) {
	if len(event.InstrumentsNeeded) == 0 || event.Location.IsZero() {
		return nil, fmt.Errorf("event %s: %w", event.ID, models.ErrUnmatchable)
	}

	candidates, err := m.users.FindCandidates(ctx, event.InstrumentsNeeded, event.PosterID)
	if err != nil {
		return nil, fmt.Errorf("fetch candidates: %v: %w", err, models.ErrTransient)
	}

	results := make([]models.MatchResult, 0, len(candidates))
	for _, candidate := range candidates {
		if candidate.ID == event.PosterID {
			continue
		}
		if candidate.Role != models.RoleMusician || candidate.Location == nil {
			continue
		}
		if !hasOverlap(candidate.Instruments, event.InstrumentsNeeded) {
			// Malformed stored data; skip the candidate, not the batch.
			m.logger.Warn("candidate_skipped", "user_id", candidate.ID, "reason", "no_instrument_overlap")
			continue
		}
		radius := candidate.SearchRadiusMiles
		if radius <= 0 {
			radius = models.DefaultSearchRadiusMiles
		}
		distance := geo.DistanceMiles(*candidate.Location, event.Location)
		if !geo.WithinRadius(*candidate.Location, event.Location, radius) {
			continue
		}
		results = append(results, models.MatchResult{UserID: candidate.ID, DistanceMiles: distance})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].DistanceMiles != results[j].DistanceMiles {
			return results[i].DistanceMiles < results[j].DistanceMiles
		}
		return results[i].UserID.String() < results[j].UserID.String()
	})
	return results, nil
}

func hasOverlap(a, b []string) bool {
	for _, x := range a {
		for _, y := range b {
			if x == y {
				return true
			}
		}
	}
	return false
}
