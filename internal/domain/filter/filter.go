package filter

import (
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/kailas-cloud/geogrub/internal/domain"
)

// All disables the cuisine or price predicate.
const All = "All"

// priceTiers maps the price selector to provider price levels.
var priceTiers = map[string]int{
	"$":    1,
	"$$":   2,
	"$$$":  3,
	"$$$$": 4,
}

// Cuisines lists the cuisine choices offered to users, "All" first.
var Cuisines = []string{
	All, "Italian", "Chinese", "Japanese", "Mexican", "Indian", "Thai", "Mediterranean",
	"French", "American", "Korean", "Vietnamese", "Greek", "Spanish", "Lebanese", "Turkish",
	"Caribbean", "Brazilian", "German", "British", "Fusion",
}

// Criteria selects a subset of a result set. The zero value behaves like
// {All, All, false}.
type Criteria struct {
	Cuisine string
	Price   string
	OpenNow bool
}

// Everything is the identity criteria.
var Everything = Criteria{Cuisine: All, Price: All}

// ParseCriteria validates raw selector values. Empty strings mean All.
func ParseCriteria(cuisine, price string, openNow bool) (Criteria, error) {
	cuisine = strings.TrimSpace(cuisine)
	price = strings.TrimSpace(price)
	if isAll(cuisine) && isAll(price) && !openNow {
		return Everything, nil
	}
	if cuisine == "" {
		cuisine = All
	}
	if price == "" {
		price = All
	}
	if price != All {
		if _, ok := priceTiers[price]; !ok {
			return Criteria{}, fmt.Errorf("%w: price must be All, $, $$, $$$ or $$$$, got %q",
				domain.ErrInvalidInput, price)
		}
	}
	return Criteria{Cuisine: cuisine, Price: price, OpenNow: openNow}, nil
}

// IsIdentity reports whether the criteria pass every summary.
func (c Criteria) IsIdentity() bool {
	return isAll(c.Cuisine) && isAll(c.Price) && !c.OpenNow
}

// Matches reports whether a single summary passes all three predicates.
func (c Criteria) Matches(p domain.PlaceSummary) bool {
	if !isAll(c.Price) {
		tier, ok := priceTiers[c.Price]
		if !ok || p.PriceLevel == nil || *p.PriceLevel != tier {
			return false
		}
	}
	if c.OpenNow && (p.OpenNow == nil || !*p.OpenNow) {
		return false
	}
	if !isAll(c.Cuisine) && !hasType(p.Types, c.Cuisine) {
		return false
	}
	return true
}

// Apply returns the summaries matching c in input order. The input slice is
// never modified; the result is always a fresh slice.
func Apply(results []domain.PlaceSummary, c Criteria) []domain.PlaceSummary {
	out := make([]domain.PlaceSummary, 0, len(results))
	for _, p := range results {
		if c.Matches(p) {
			out = append(out, p)
		}
	}
	return out
}

// Pick returns a uniformly random summary, false when results is empty.
// A nil rng uses the global source.
func Pick(results []domain.PlaceSummary, rng *rand.Rand) (domain.PlaceSummary, bool) {
	if len(results) == 0 {
		return domain.PlaceSummary{}, false
	}
	var i int
	if rng != nil {
		i = rng.IntN(len(results))
	} else {
		i = rand.IntN(len(results))
	}
	return results[i], true
}

func isAll(s string) bool {
	return s == "" || s == All
}

func hasType(types []string, cuisine string) bool {
	for _, t := range types {
		if strings.EqualFold(t, cuisine) {
			return true
		}
	}
	return false
}
