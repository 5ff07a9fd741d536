// Package match scores free-text product names against catalog entries.
// Scoring runs through fixed tiers: exact, substring, stemmed token
// overlap, and finally Levenshtein distance.
package match

import (
	"sort"
	"strings"

	"pedidos-app/internal/models"
	"pedidos-app/internal/textnorm"
)

// Match statuses reported to the intake flow.
const (
	StatusExact    = "exact"
	StatusSimilar  = "similar"
	StatusNotFound = "not_found"
)

const (
	// MatchThreshold is the minimum score to offer a candidate during
	// order intake; SuggestThreshold is the looser autocomplete cutoff.
	MatchThreshold   = 75
	SuggestThreshold = 60

	maxMatchSuggestions = 5
	maxAutoSuggestions  = 10
)

// Suggestion is a scored catalog candidate.
type Suggestion struct {
	ID         uint    `json:"id"`
	Name       string  `json:"name"`
	Score      int     `json:"score"`
	CategoryID uint    `json:"category_id"`
	SalePrice  float64 `json:"sale_price"`
	Unit       string  `json:"unit"`
}

// Result resolves one free-text name against the catalog.
type Result struct {
	Status      string          `json:"match_status"`
	Product     *models.Product `json:"product"`
	Suggestions []Suggestion    `json:"suggestions"`
}

// Score returns a similarity in [0,100], 100 meaning exact after
// normalization. Empty input on either side scores 0.
func Score(query, target string) int {
	q := textnorm.Normalize(query)
	t := textnorm.Normalize(target)
	if q == "" || t == "" {
		return 0
	}
	if q == t {
		return 100
	}
	if strings.Contains(t, q) {
		// Short substrings are weak evidence.
		if len(q) >= 3 {
			return 90
		}
		return 80
	}

	qs := stemSet(strings.Fields(q))
	ts := stemSet(strings.Fields(t))
	if len(qs) > 0 && len(ts) > 0 {
		inter := 0
		for tok := range qs {
			if ts[tok] {
				inter++
			}
		}
		union := len(qs) + len(ts) - inter
		jacc := float64(inter) / float64(union)
		if jacc >= 0.66 || inter == len(qs) || inter == len(ts) {
			return 85
		}
		if jacc >= 0.4 {
			return 75
		}
	}

	dist := levenshtein(q, t)
	maxLen := len(q)
	if len(t) > maxLen {
		maxLen = len(t)
	}
	return 100 * (maxLen - dist) / maxLen
}

// Match scans active products in catalog order. A score of 100 is an
// immediate exact match; otherwise candidates scoring >= MatchThreshold
// become ranked suggestions (top 5, stable order on ties).
func Match(name string, products []models.Product) Result {
	suggestions := []Suggestion{}
	for i := range products {
		p := &products[i]
		score := Score(name, p.Name)
		if score == 100 {
			return Result{Status: StatusExact, Product: p, Suggestions: []Suggestion{}}
		}
		if score >= MatchThreshold {
			suggestions = append(suggestions, toSuggestion(p, score))
		}
	}
	sort.SliceStable(suggestions, func(i, j int) bool { return suggestions[i].Score > suggestions[j].Score })
	if len(suggestions) > maxMatchSuggestions {
		suggestions = suggestions[:maxMatchSuggestions]
	}
	status := StatusNotFound
	if len(suggestions) > 0 {
		status = StatusSimilar
	}
	return Result{Status: status, Suggestions: suggestions}
}

// Suggest is the autocomplete mode: lower threshold, up to 10 results, no
// exact short-circuit.
func Suggest(query string, products []models.Product) []Suggestion {
	suggestions := []Suggestion{}
	for i := range products {
		p := &products[i]
		if score := Score(query, p.Name); score >= SuggestThreshold {
			suggestions = append(suggestions, toSuggestion(p, score))
		}
	}
	sort.SliceStable(suggestions, func(i, j int) bool { return suggestions[i].Score > suggestions[j].Score })
	if len(suggestions) > maxAutoSuggestions {
		suggestions = suggestions[:maxAutoSuggestions]
	}
	return suggestions
}

func toSuggestion(p *models.Product, score int) Suggestion {
	return Suggestion{
		ID:         p.ID,
		Name:       p.Name,
		Score:      score,
		CategoryID: p.CategoryID,
		SalePrice:  p.SalePrice,
		Unit:       p.Unit,
	}
}

// Tokens that look plural but are not.
var singularExceptions = map[string]bool{"hass": true}

// singularize applies a naive Spanish plural stripper so "tomates" and
// "tomate" land on the same stem.
func singularize(tok string) string {
	if len(tok) < 3 || singularExceptions[tok] {
		return tok
	}
	if strings.HasSuffix(tok, "es") && len(tok) > 4 {
		return tok[:len(tok)-2]
	}
	if strings.HasSuffix(tok, "s") && len(tok) > 3 {
		return tok[:len(tok)-1]
	}
	return tok
}

func stemSet(tokens []string) map[string]bool {
	set := make(map[string]bool, len(tokens))
	for _, tok := range tokens {
		set[singularize(tok)] = true
	}
	return set
}

// levenshtein computes edit distance with a rolling single row.
func levenshtein(a, b string) int {
	if a == b {
		return 0
	}
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}
	prev := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		curr := make([]int, 0, len(rb)+1)
		curr = append(curr, i)
		for j := 1; j <= len(rb); j++ {
			cost := 0
			if ra[i-1] != rb[j-1] {
				cost = 1
			}
			ins := curr[j-1] + 1
			del := prev[j] + 1
			sub := prev[j-1] + cost
			m := ins
			if del < m {
				m = del
			}
			if sub < m {
				m = sub
			}
			curr = append(curr, m)
		}
		prev = curr
	}
	return prev[len(rb)]
}
