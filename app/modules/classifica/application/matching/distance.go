// Package matching resolves scraped athlete names to registry players.
package matching

import (
	"strings"

	classificadomain "github.com/Black-And-White-Club/pinfall-import/app/modules/classifica/domain"
	"github.com/Black-And-White-Club/pinfall-import/internal/textfold"
	"github.com/adrg/strutil"
	"github.com/adrg/strutil/metrics"
)

// NameTokens splits a scraped name into folded word keys: upper case,
// no diacritics, letters only. Words that fold to nothing are dropped.
func NameTokens(name string) []string {
	var tokens []string
	for _, word := range strings.Fields(name) {
		if key := textfold.Letters(word); key != "" {
			tokens = append(tokens, key)
		}
	}
	return tokens
}

// NameKey is the compact comparison key of a scraped name.
func NameKey(name string) string {
	return strings.Join(NameTokens(name), "")
}

// playerKeys holds the folded name parts of one registry player.
type playerKeys struct {
	surname  string
	forename string
}

func keysOf(p classificadomain.Player) playerKeys {
	return playerKeys{
		surname:  textfold.Letters(p.LastName),
		forename: textfold.Letters(p.FirstName),
	}
}

// surnameFirst and forenameFirst are the two whole-name keys.
func (k playerKeys) surnameFirst() string  { return k.surname + k.forename }
func (k playerKeys) forenameFirst() string { return k.forename + k.surname }

// distanceFunc measures two folded keys on a 0..1 scale, 0 = identical.
type distanceFunc func(a, b string) float64

func levenshteinDistance() distanceFunc {
	lev := metrics.NewLevenshtein()
	return func(a, b string) float64 {
		if a == b {
			return 0
		}
		return 1 - strutil.Similarity(a, b, lev)
	}
}

// nameDistance compares scraped tokens with a player. The whole-key
// distance alone lets a longer surname hide inside the joined key
// ("ROSSINI" vs "ROSSI"), so the result is the larger of the whole-key
// distance and the best alignment of the tokens onto surname and forename.
func nameDistance(dist distanceFunc, tokens []string, k playerKeys) float64 {
	if len(tokens) == 0 {
		return 1
	}
	joined := strings.Join(tokens, "")
	whole := min(dist(joined, k.surnameFirst()), dist(joined, k.forenameFirst()))

	if len(tokens) < 2 || k.surname == "" || k.forename == "" {
		return whole
	}

	aligned := 1.0
	for split := 1; split < len(tokens); split++ {
		head := strings.Join(tokens[:split], "")
		tail := strings.Join(tokens[split:], "")
		aligned = min(aligned,
			max(dist(head, k.surname), dist(tail, k.forename)),
			max(dist(head, k.forename), dist(tail, k.surname)),
		)
	}
	return max(whole, aligned)
}
