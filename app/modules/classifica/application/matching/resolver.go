package matching

import (
	"errors"
	"slices"
	"strings"

	classificadomain "github.com/Black-And-White-Club/pinfall-import/app/modules/classifica/domain"
	"github.com/Black-And-White-Club/pinfall-import/config"
)

// ErrNoNameMatch marks a result that no registry player is close enough to.
// It is never returned from the pipeline; the candidate is left unmatched.
var ErrNoNameMatch = errors.New("no name match")

// Thresholds are the distance tiers. A distance below AutoAccept is a
// match, below Review it is offered as a suggestion, otherwise rejected.
type Thresholds struct {
	AutoAccept float64
	Review     float64
}

// ThresholdsFromConfig copies the matching section of the configuration.
func ThresholdsFromConfig(cfg config.MatchingConfig) Thresholds {
	return Thresholds{AutoAccept: cfg.AutoAcceptDistance, Review: cfg.ReviewDistance}
}

// Tier classifies a distance.
func (t Thresholds) Tier(distance float64) classificadomain.Tier {
	switch {
	case distance < t.AutoAccept:
		return classificadomain.TierAutoAccept
	case distance < t.Review:
		return classificadomain.TierReview
	default:
		return classificadomain.TierReject
	}
}

type indexEntry struct {
	player classificadomain.Player
	keys   playerKeys
}

// Match is the closest registry player for a name.
type Match struct {
	Player   classificadomain.Player
	Distance float64
}

// Resolver searches a snapshot of the player registry. It is safe for
// concurrent use once built.
type Resolver struct {
	entries    []indexEntry
	byID       map[string]classificadomain.Player
	thresholds Thresholds
	dist       distanceFunc
}

// NewResolver indexes players. Entries are kept sorted by player id so the
// outcome never depends on the order the registry was read in.
func NewResolver(players []classificadomain.Player, thresholds Thresholds) *Resolver {
	r := &Resolver{
		entries:    make([]indexEntry, 0, len(players)),
		byID:       make(map[string]classificadomain.Player, len(players)),
		thresholds: thresholds,
		dist:       levenshteinDistance(),
	}
	for _, p := range players {
		if _, dup := r.byID[p.ID]; dup {
			continue
		}
		r.byID[p.ID] = p
		r.entries = append(r.entries, indexEntry{player: p, keys: keysOf(p)})
	}
	slices.SortFunc(r.entries, func(a, b indexEntry) int {
		return strings.Compare(a.player.ID, b.player.ID)
	})
	return r
}

// Len returns the number of indexed players.
func (r *Resolver) Len() int { return len(r.entries) }

// Player looks up a registry player by id.
func (r *Resolver) Player(id string) (classificadomain.Player, bool) {
	p, ok := r.byID[id]
	return p, ok
}

// Best returns the closest player to name. Ties keep the smaller id.
func (r *Resolver) Best(name string) (Match, bool) {
	tokens := NameTokens(name)
	if len(tokens) == 0 || len(r.entries) == 0 {
		return Match{}, false
	}

	best := Match{Distance: 2}
	for _, e := range r.entries {
		if d := nameDistance(r.dist, tokens, e.keys); d < best.Distance {
			best = Match{Player: e.player, Distance: d}
		}
	}
	return best, true
}

// Resolve annotates one extracted result with its registry match.
func (r *Resolver) Resolve(result classificadomain.ExtractedResult) classificadomain.MatchCandidate {
	candidate := classificadomain.MatchCandidate{
		Result:   result,
		Distance: 1,
		Tier:     classificadomain.TierReject,
	}

	best, ok := r.Best(result.AthleteName)
	if !ok {
		return candidate
	}

	candidate.Distance = best.Distance
	candidate.Tier = r.thresholds.Tier(best.Distance)
	switch candidate.Tier {
	case classificadomain.TierAutoAccept:
		id, name := best.Player.ID, best.Player.DisplayName()
		candidate.PlayerID = &id
		candidate.MatchedDisplayName = &name
		candidate.IsMatched = true
	case classificadomain.TierReview:
		candidate.Suggestion = &classificadomain.PlayerSuggestion{
			PlayerID:    best.Player.ID,
			DisplayName: best.Player.DisplayName(),
			Distance:    best.Distance,
		}
	}
	return candidate
}

// ResolveAll resolves every result in order.
func (r *Resolver) ResolveAll(results []classificadomain.ExtractedResult) []classificadomain.MatchCandidate {
	out := make([]classificadomain.MatchCandidate, len(results))
	for i, res := range results {
		out[i] = r.Resolve(res)
	}
	return out
}
