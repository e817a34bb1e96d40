package matching

import (
	"slices"

	classificadomain "github.com/Black-And-White-Club/pinfall-import/app/modules/classifica/domain"
)

// ApplyOverrides replaces automatic matches with reviewer decisions.
// Overrides are keyed by scraped name, matched exactly first and then by
// folded name key. An empty player id forces the row unmatched. Overrides
// naming a player that is not in the registry are returned as invalid and
// ignored. The input slice is not modified.
func (r *Resolver) ApplyOverrides(candidates []classificadomain.MatchCandidate, overrides map[string]string) ([]classificadomain.MatchCandidate, []string) {
	out := slices.Clone(candidates)
	if len(overrides) == 0 {
		return out, nil
	}

	names := make([]string, 0, len(overrides))
	for name := range overrides {
		names = append(names, name)
	}
	slices.Sort(names)

	var invalid []string
	exact := make(map[string]string, len(overrides))
	folded := make(map[string]string, len(overrides))
	for _, name := range names {
		id := overrides[name]
		if id != "" {
			if _, ok := r.byID[id]; !ok {
				invalid = append(invalid, name)
				continue
			}
		}
		exact[name] = id
		if key := NameKey(name); key != "" {
			if _, taken := folded[key]; !taken {
				folded[key] = id
			}
		}
	}

	for i, c := range out {
		id, ok := exact[c.Result.AthleteName]
		if !ok {
			id, ok = folded[NameKey(c.Result.AthleteName)]
		}
		if !ok {
			continue
		}
		out[i] = r.override(c, id)
	}
	return out, invalid
}

func (r *Resolver) override(c classificadomain.MatchCandidate, playerID string) classificadomain.MatchCandidate {
	c.Overridden = true
	c.Tier = classificadomain.TierManual
	c.Suggestion = nil

	if playerID == "" {
		c.PlayerID = nil
		c.MatchedDisplayName = nil
		c.IsMatched = false
		return c
	}

	p := r.byID[playerID]
	name := p.DisplayName()
	c.PlayerID = &playerID
	c.MatchedDisplayName = &name
	c.IsMatched = true
	return c
}
