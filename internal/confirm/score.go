package confirm

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/clearpath-data/rehab-enricher/internal/seed"
)

// Corporate suffixes and filler words carry no identity signal.
var stopTokens = map[string]bool{
	"llc": true, "inc": true, "corp": true, "co": true, "ltd": true,
	"the": true, "of": true, "and": true, "at": true, "a": true,
	"center": true, "centers": true, "llp": true, "pllc": true,
}

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// Score rates how likely a fetched page is the seed organization's official
// site. The score combines name-token overlap in the page text and title,
// address/phone evidence, and whether the domain itself carries name tokens.
// Result is in [0,1]; the evidence string quotes the best matching line.
func Score(s seed.Seed, pageURL, title, text string) (float64, string) {
	lowText := strings.ToLower(text)
	lowTitle := strings.ToLower(title)
	tokens := nameTokens(s.LegalName)

	nameScore := tokenOverlap(tokens, lowText+" "+lowTitle)
	addrScore, evidence := addressEvidence(s, lowText)
	domScore := domainScore(tokens, pageURL)

	score := 0.5*nameScore + 0.3*addrScore + 0.2*domScore
	if evidence == "" {
		evidence = bestLine(tokens, text)
	}
	return score, evidence
}

func nameTokens(name string) []string {
	raw := strings.Fields(strings.ToLower(name))
	out := make([]string, 0, len(raw))
	for _, t := range raw {
		t = nonAlnum.ReplaceAllString(t, "")
		if t == "" || stopTokens[t] {
			continue
		}
		out = append(out, t)
	}
	return out
}

func tokenOverlap(tokens []string, haystack string) float64 {
	if len(tokens) == 0 {
		return 0
	}
	hits := 0
	for _, t := range tokens {
		if strings.Contains(haystack, t) {
			hits++
		}
	}
	return float64(hits) / float64(len(tokens))
}

// addressEvidence checks for zip, phone digits, city and state in page text.
func addressEvidence(s seed.Seed, lowText string) (float64, string) {
	checks := 0
	hits := 0
	evidence := ""

	if zip := zip5(s.PostalCode); zip != "" {
		checks++
		if strings.Contains(lowText, zip) {
			hits++
			evidence = lineContaining(lowText, zip)
		}
	}
	if phone := digitsOnly(s.Phone); len(phone) >= 10 {
		checks++
		if strings.Contains(digitsOnly(lowText), phone) {
			hits++
		}
	}
	if city := strings.ToLower(strings.TrimSpace(s.City)); city != "" {
		checks++
		if strings.Contains(lowText, city) {
			hits++
			if evidence == "" {
				evidence = lineContaining(lowText, city)
			}
		}
	}
	if state := strings.ToLower(strings.TrimSpace(s.State)); state != "" {
		checks++
		if containsWord(lowText, state) {
			hits++
		}
	}

	if checks == 0 {
		return 0, ""
	}
	return float64(hits) / float64(checks), evidence
}

func domainScore(tokens []string, pageURL string) float64 {
	u, err := url.Parse(pageURL)
	if err != nil || len(tokens) == 0 {
		return 0
	}
	host := nonAlnum.ReplaceAllString(strings.ToLower(u.Hostname()), "")
	hits := 0
	for _, t := range tokens {
		if strings.Contains(host, t) {
			hits++
		}
	}
	return float64(hits) / float64(len(tokens))
}

func zip5(postal string) string {
	d := digitsOnly(postal)
	if len(d) >= 5 {
		return d[:5]
	}
	return ""
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func containsWord(text, word string) bool {
	for _, f := range strings.FieldsFunc(text, func(r rune) bool {
		return !(r >= 'a' && r <= 'z') && !(r >= '0' && r <= '9')
	}) {
		if f == word {
			return true
		}
	}
	return false
}

func lineContaining(text, needle string) string {
	for _, line := range strings.Split(text, "\n") {
		if strings.Contains(line, needle) {
			line = strings.TrimSpace(line)
			if len(line) > 200 {
				line = line[:200]
			}
			return line
		}
	}
	return ""
}

func bestLine(tokens []string, text string) string {
	bestHits := 0
	best := ""
	for _, line := range strings.Split(strings.ToLower(text), "\n") {
		hits := 0
		for _, t := range tokens {
			if strings.Contains(line, t) {
				hits++
			}
		}
		if hits > bestHits {
			bestHits = hits
			best = strings.TrimSpace(line)
		}
	}
	if len(best) > 200 {
		best = best[:200]
	}
	return best
}
