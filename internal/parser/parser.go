// Package parser turns free-form order text (typically pasted WhatsApp
// messages) into draft line items. It is deliberately tolerant: a line is
// never rejected, the worst case is a single named item of quantity 1.
package parser

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"pedidos-app/internal/models"
	"pedidos-app/internal/textnorm"
)

// Item is a draft line item with the product name still unresolved.
type Item struct {
	Qty          float64 `json:"qty"`
	Unit         string  `json:"unit"`
	ProductName  string  `json:"product_name"`
	CustomerName string  `json:"customer_name"`
	RawText      string  `json:"raw_text"`
	LineNumber   int     `json:"line_number"`
}

// Result is the outcome of parsing a whole pasted document.
type Result struct {
	Items     []Item   `json:"items"`
	Customers []string `json:"customers"`
	RawText   string   `json:"raw_text"`
}

var (
	trailingComma = regexp.MustCompile(`,\s*$`)
	standaloneK   = regexp.MustCompile(`\bk\b`)
	standaloneGr  = regexp.MustCompile(`\bgr\b`)
	fillerDeMid   = regexp.MustCompile(`\s+de\s+`)
	fillerDeEnd   = regexp.MustCompile(`\s+de$`)
	fillerDeStart = regexp.MustCompile(`^de\s+`)
)

// linePattern pairs a regexp with a handler building the parsed triple from
// its capture groups. Patterns are tried in order, most specific first.
type linePattern struct {
	re    *regexp.Regexp
	apply func(m []string) (qty float64, unit, name string)
}

// Quantity before the product name, e.g. "2kg tomate".
var patternsBefore = []linePattern{
	{
		regexp.MustCompile(`^(?:medio|media)\s+(?:kg|kilo|kilos)\s+(.+)$`),
		func(m []string) (float64, string, string) { return 0.5, models.UnitKG, m[1] },
	},
	{
		regexp.MustCompile(`^(\d+)\s*g\s+(.+)$`),
		func(m []string) (float64, string, string) {
			grams, _ := strconv.ParseFloat(m[1], 64)
			return grams / 1000.0, models.UnitKG, m[2]
		},
	},
	{
		regexp.MustCompile(`^(\d+(?:[.,]\d+)?)\s*(?:kg|kilo|kilos)\s+(.+)$`),
		func(m []string) (float64, string, string) { return parseQty(m[1]), models.UnitKG, m[2] },
	},
	{
		regexp.MustCompile(`^(\d+(?:[.,]\d+)?)\s*(?:uni|unidad|unidades|u)\s+(.+)$`),
		func(m []string) (float64, string, string) { return parseQty(m[1]), models.UnitUnit, m[2] },
	},
	// Bare number defaults to count, never weight.
	{
		regexp.MustCompile(`^(\d+(?:[.,]\d+)?)\s+(.+)$`),
		func(m []string) (float64, string, string) { return parseQty(m[1]), models.UnitUnit, m[2] },
	},
}

// Quantity after the product name, e.g. "tomate 2kg".
var patternsAfter = []linePattern{
	{
		regexp.MustCompile(`^(.+?)\s+(?:medio|media)\s+(?:kg|kilo|kilos)$`),
		func(m []string) (float64, string, string) { return 0.5, models.UnitKG, m[1] },
	},
	{
		regexp.MustCompile(`^(.+?)\s+(\d+)\s*g$`),
		func(m []string) (float64, string, string) {
			grams, _ := strconv.ParseFloat(m[2], 64)
			return grams / 1000.0, models.UnitKG, m[1]
		},
	},
	{
		regexp.MustCompile(`^(.+?)\s+(\d+(?:[.,]\d+)?)\s*(?:kg|kilo|kilos)$`),
		func(m []string) (float64, string, string) { return parseQty(m[2]), models.UnitKG, m[1] },
	},
	{
		regexp.MustCompile(`^(.+?)\s+(\d+(?:[.,]\d+)?)\s*(?:uni|unidad|unidades|u)$`),
		func(m []string) (float64, string, string) { return parseQty(m[2]), models.UnitUnit, m[1] },
	},
	{
		regexp.MustCompile(`^(.+?)\s+(\d+(?:[.,]\d+)?)$`),
		func(m []string) (float64, string, string) { return parseQty(m[2]), models.UnitUnit, m[1] },
	},
}

// ParseOrderText parses a whole document. Lines ending in ":" name the
// customer for the item lines that follow; lines starting with "#" are
// comments. Customers come back sorted alphabetically.
func ParseOrderText(text string) Result {
	res := Result{Items: []Item{}, Customers: []string{}, RawText: text}
	seen := map[string]bool{}
	current := ""

	for i, raw := range strings.Split(strings.TrimSpace(text), "\n") {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if strings.HasSuffix(line, ":") {
			name := strings.TrimSpace(strings.ReplaceAll(line, ":", ""))
			if name != "" {
				current = name
				seen[name] = true
			}
			continue
		}

		itemText := line
		if strings.HasPrefix(line, "-") || strings.HasPrefix(line, "•") {
			itemText = strings.TrimSpace(strings.TrimLeft(line, "-•"))
		}

		it := parseItemLine(itemText)
		it.CustomerName = current
		it.LineNumber = i + 1
		res.Items = append(res.Items, it)
	}

	for name := range seen {
		res.Customers = append(res.Customers, name)
	}
	sort.Strings(res.Customers)
	return res
}

// parseItemLine never fails; when no pattern matches it falls back to one
// unit of the whole cleaned line.
func parseItemLine(text string) Item {
	original := text

	cleaned := trailingComma.ReplaceAllString(strings.TrimSpace(text), "")
	cleaned = textnorm.Normalize(cleaned)
	cleaned = standaloneK.ReplaceAllString(cleaned, "kg")
	cleaned = standaloneGr.ReplaceAllString(cleaned, "g")
	cleaned = fillerDeMid.ReplaceAllString(cleaned, " ")
	cleaned = fillerDeEnd.ReplaceAllString(cleaned, "")
	cleaned = fillerDeStart.ReplaceAllString(cleaned, "")

	for _, tier := range [][]linePattern{patternsBefore, patternsAfter} {
		for _, p := range tier {
			if m := p.re.FindStringSubmatch(cleaned); m != nil {
				qty, unit, name := p.apply(m)
				return Item{Qty: qty, Unit: unit, ProductName: cleanName(name), RawText: original}
			}
		}
	}

	return Item{Qty: 1.0, Unit: models.UnitUnit, ProductName: cleanName(cleaned), RawText: original}
}

func cleanName(name string) string {
	name = trailingComma.ReplaceAllString(strings.TrimSpace(name), "")
	name = fillerDeEnd.ReplaceAllString(name, "")
	return strings.TrimSpace(name)
}

// parseQty accepts both "." and "," as decimal separator.
func parseQty(s string) float64 {
	f, _ := strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64)
	return f
}
