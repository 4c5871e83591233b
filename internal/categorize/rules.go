package categorize

import (
	"net/url"
	"strings"

	"github.com/clearpath-data/rehab-enricher/internal/enrich"
)

// Path keyword tables. Matching is on path segments, their hyphen/underscore
// parts, and short n-grams of those parts, so "/levels-of-care" matches the
// multi-word keyword as written.
var keywordRules = map[enrich.Category][]string{
	enrich.CategoryAdmissions: {
		"admission", "admissions", "intake", "admit", "get-started",
		"getting-started", "what-to-bring", "checklist",
	},
	enrich.CategoryPrograms: {
		"program", "programs", "treatment", "treatments", "detox", "iop",
		"php", "mat", "residential", "inpatient", "outpatient", "rehab",
		"levels-of-care", "therapy", "therapies", "recovery", "aftercare",
	},
	enrich.CategoryAbout: {
		"about", "about-us", "mission", "team", "staff", "faq", "faqs",
		"contact", "contact-us", "story", "leadership", "why-us", "reviews",
		"testimonials", "accreditation",
	},
	enrich.CategoryInsurance: {
		"insurance", "payers", "payer", "in-network", "coverage", "payment",
		"payments", "financing", "cost", "costs", "pricing", "self-pay",
		"verify-insurance", "verify-benefits", "benefits",
	},
	enrich.CategoryCampuses: {
		"location", "locations", "campus", "campuses", "facility",
		"facilities", "tour", "tours", "amenities", "visiting",
		"directions", "map",
	},
	enrich.CategoryParentCompany: {
		"corporate", "parent-company", "our-family", "brands", "careers-corporate",
	},
}

// HeuristicScore rates a URL's path against each category's keyword table.
// Returns the best category, its confidence in [0,1], and whether another
// category tied (ambiguous). A URL with no keyword hits comes back as
// CategoryUnknown with zero confidence.
func HeuristicScore(rawURL string) (enrich.Category, float64, bool) {
	tokens := pathTokens(rawURL)
	if len(tokens) == 0 {
		return enrich.CategoryUnknown, 0, false
	}

	hits := make(map[enrich.Category]int)
	for cat, words := range keywordRules {
		for _, w := range words {
			for _, t := range tokens {
				if t == w {
					hits[cat]++
				}
			}
		}
	}
	if len(hits) == 0 {
		return enrich.CategoryUnknown, 0, false
	}

	best := enrich.CategoryUnknown
	bestHits := 0
	tied := false
	// Iterate in fixed priority order so equal-hit ties are deterministic.
	for _, cat := range enrich.ExtractableCategories() {
		h := hits[cat]
		if h > bestHits {
			best, bestHits, tied = cat, h, false
		} else if h == bestHits && h > 0 {
			tied = true
		}
	}

	conf := 0.6 + 0.2*float64(bestHits-1)
	if conf > 0.95 {
		conf = 0.95
	}
	if tied {
		conf /= 2
	}
	return best, conf, tied
}

// pathTokens splits a URL path into lowercase tokens and token bigrams, so
// multi-word keywords like "levels-of-care" match as written.
func pathTokens(rawURL string) []string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil
	}
	path := strings.ToLower(strings.Trim(u.EscapedPath(), "/"))
	if path == "" {
		return nil
	}

	var tokens []string
	for _, seg := range strings.Split(path, "/") {
		parts := strings.FieldsFunc(seg, func(r rune) bool {
			return r == '-' || r == '_' || r == '.'
		})
		tokens = append(tokens, seg)
		tokens = append(tokens, parts...)
		for i := 0; i+1 < len(parts); i++ {
			tokens = append(tokens, parts[i]+"-"+parts[i+1])
		}
		for i := 0; i+2 < len(parts); i++ {
			tokens = append(tokens, parts[i]+"-"+parts[i+1]+"-"+parts[i+2])
		}
	}
	return tokens
}
