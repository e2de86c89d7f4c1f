package services

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"medellin-listings/models"
	"medellin-listings/utils"
)

var (
	// numberRegexp captures the first number, with its grouping separators
	numberRegexp = regexp.MustCompile(`\d[\d.,]*`)
	// rangeRegexp spots "desde - hasta" style prices
	rangeRegexp = regexp.MustCompile(`\d\s*-\s*\$?\s*\d`)
)

// Cleaner normalises scraped RawListings before they are written to a
// listing file, so the Record Loader only ever sees plain decimals.
type Cleaner struct {
	logger *utils.Logger
}

// NewCleaner creates a Cleaner with the given logger.
func NewCleaner(logger *utils.Logger) *Cleaner {
	return &Cleaner{logger: logger}
}

// Clean drops listings without an id or a usable price, removes repeated
// ids within the run and rewrites the numeric fields as plain decimals.
func (c *Cleaner) Clean(raw []*models.RawListing) []*models.RawListing {
	seen := make(map[string]struct{})
	result := make([]*models.RawListing, 0, len(raw))

	for _, r := range raw {
		id := strings.TrimSpace(r.PropertyID)
		if id == "" {
			c.logger.Warn("[cleaner] Dropping listing with empty id: %s", r.Link)
			continue
		}

		if _, dup := seen[id]; dup {
			c.logger.Debug("[cleaner] Duplicate id skipped: %s", id)
			continue
		}
		seen[id] = struct{}{}

		price := ParsePrice(r.SalePrice)
		if price <= 0 {
			c.logger.Debug("[cleaner] %s: unusable price %q", id, r.SalePrice)
			continue
		}

		cleaned := *r
		cleaned.PropertyID = id
		cleaned.SalePrice = formatDecimal(price)
		cleaned.Area = formatDecimal(ParseArea(r.Area))
		cleaned.AreaC = formatDecimal(ParseArea(r.AreaC))
		cleaned.AdminPrice = formatDecimal(ParsePrice(r.AdminPrice))
		cleaned.City = normaliseText(r.City)
		cleaned.Zone = normaliseText(r.Zone)
		cleaned.Neighborhood = normaliseText(r.Neighborhood)
		cleaned.CommonNeighborhood = normaliseText(r.CommonNeighborhood)
		cleaned.CompanyName = normaliseText(r.CompanyName)
		cleaned.PropertyState = normaliseText(r.PropertyState)
		cleaned.BuiltTime = normaliseText(r.BuiltTime)
		result = append(result, &cleaned)
	}

	c.logger.Info("[cleaner] Cleaned %d → %d listings (dropped %d)",
		len(raw), len(result), len(raw)-len(result))
	return result
}

// ParsePrice extracts a peso amount. A price range yields 0.
// Examples:
//
//	"$ 450.000.000"  → 450000000
//	"$1.250.000,50"  → 1250000.5
//	"450000000"      → 450000000
func ParsePrice(raw string) float64 {
	if rangeRegexp.MatchString(raw) {
		return 0
	}
	return parseLocalNumber(raw)
}

// ParseArea extracts square metres from strings such as "120 m²" or "85,5 m2".
func ParseArea(raw string) float64 {
	return parseLocalNumber(raw)
}

// parseLocalNumber reads the first number in s, accepting both Colombian
// (1.234,5) and English (1,234.5) grouping. A bare decimal such as a JSON
// number ("85.125") is taken as is.
func parseLocalNumber(s string) float64 {
	if v, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0
		}
		return v
	}

	match := numberRegexp.FindString(s)
	match = strings.TrimRight(match, ".,")
	if match == "" {
		return 0
	}

	dots, commas := strings.Count(match, "."), strings.Count(match, ",")
	switch {
	case dots > 0 && commas > 0:
		if strings.LastIndex(match, ",") > strings.LastIndex(match, ".") {
			match = strings.ReplaceAll(match, ".", "")
			match = strings.Replace(match, ",", ".", 1)
		} else {
			match = strings.ReplaceAll(match, ",", "")
		}
	case dots > 1 || (dots == 1 && groupedThousands(match, ".")):
		match = strings.ReplaceAll(match, ".", "")
	case commas > 1 || (commas == 1 && groupedThousands(match, ",")):
		match = strings.ReplaceAll(match, ",", "")
	case commas == 1:
		match = strings.Replace(match, ",", ".", 1)
	}

	v, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return 0
	}
	return v
}

// groupedThousands reports whether the single separator in s is followed by
// exactly three digits, i.e. it groups thousands rather than marking decimals.
func groupedThousands(s, sep string) bool {
	return len(s)-strings.LastIndex(s, sep)-1 == 3
}

func formatDecimal(v float64) string {
	if v <= 0 {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// normaliseText strips leading/trailing whitespace and collapses internal whitespace.
func normaliseText(s string) string {
	s = strings.TrimSpace(s)
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return unicode.IsSpace(r)
	})
	return strings.Join(fields, " ")
}
