// Package merge combines partial records and the organization seed into the
// final enriched record. Merging is deterministic: partials are visited in
// fixed category-priority order, a field is only overwritten by a strictly
// higher confidence, and every populated field records its provenance.
package merge

import (
	"sort"
	"time"

	"github.com/clearpath-data/rehab-enricher/internal/enrich"
	"github.com/clearpath-data/rehab-enricher/internal/seed"
)

// Merge builds the enriched record. Partials may cover any subset of
// categories; fields no partial supplies stay absent. Nothing is fabricated
// beyond what extractors supplied plus the seed identity.
func Merge(s seed.Seed, runID, confirmedURL string, partials []*enrich.PartialRecord, now time.Time) *enrich.Record {
	m := &merger{rec: &enrich.Record{
		NPI:          s.NPI,
		LegalName:    s.LegalName,
		ConfirmedURL: confirmedURL,
		Provenance:   make(map[string]enrich.Provenance),
		RunID:        runID,
		GeneratedAt:  now,
	}}

	for _, p := range orderByPriority(partials) {
		switch p.Category {
		case enrich.CategoryAdmissions:
			m.applyAdmissions(p)
		case enrich.CategoryPrograms:
			m.applyPrograms(p)
		case enrich.CategoryAbout:
			m.applyAbout(p)
		case enrich.CategoryInsurance:
			m.applyInsurance(p)
		case enrich.CategoryCampuses:
			m.applyCampuses(p)
		case enrich.CategoryParentCompany:
			m.applyParentCompany(p)
		}
	}
	return m.rec
}

// orderByPriority sorts a copy of the partials into category-priority order,
// dropping nils, so merge output never depends on extractor completion order.
func orderByPriority(partials []*enrich.PartialRecord) []*enrich.PartialRecord {
	out := make([]*enrich.PartialRecord, 0, len(partials))
	for _, p := range partials {
		if p != nil {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return enrich.DefaultPriority(out[i].Category) < enrich.DefaultPriority(out[j].Category)
	})
	return out
}

type merger struct {
	rec *enrich.Record
}

// wins reports whether a value at conf may claim the field. Earlier (higher
// priority) partials win ties because overwrite requires strictly greater
// confidence.
func (m *merger) wins(field string, conf float64) bool {
	existing, ok := m.rec.Provenance[field]
	if !ok {
		return true
	}
	return conf > existing.Confidence
}

func (m *merger) mark(field string, p *enrich.PartialRecord) {
	m.rec.Provenance[field] = enrich.Provenance{
		SourceURL:  primarySource(p),
		Category:   p.Category,
		Confidence: p.Confidence,
	}
}

func primarySource(p *enrich.PartialRecord) string {
	if len(p.SourceURLs) > 0 {
		return p.SourceURLs[0]
	}
	return ""
}

func (m *merger) setString(field string, dst *string, val string, p *enrich.PartialRecord) {
	if val == "" || !m.wins(field, p.Confidence) {
		return
	}
	*dst = val
	m.mark(field, p)
}

func (m *merger) applyAdmissions(p *enrich.PartialRecord) {
	if p.Admissions != nil && m.wins("admissions", p.Confidence) {
		info := *p.Admissions
		m.rec.Admissions = &info
		m.mark("admissions", p)
	}
	if p.Admissions != nil {
		m.setString("phone", &m.rec.Phone, p.Admissions.Phone, p)
		m.setString("email", &m.rec.Email, p.Admissions.Email, p)
	}
	m.applyInsurance(p)
}

func (m *merger) applyPrograms(p *enrich.PartialRecord) {
	if len(p.Programs) > 0 && m.wins("programs", p.Confidence) {
		m.rec.Programs = append([]enrich.Program(nil), p.Programs...)
		m.mark("programs", p)
	}
}

func (m *merger) applyAbout(p *enrich.PartialRecord) {
	a := p.About
	if a == nil {
		return
	}
	m.setString("name", &m.rec.Name, a.Name, p)
	m.setString("description", &m.rec.Description, a.Description, p)
	m.setString("tagline", &m.rec.Tagline, a.Tagline, p)
	m.setString("website_url", &m.rec.WebsiteURL, a.WebsiteURL, p)
	m.setString("phone", &m.rec.Phone, a.Phone, p)
	m.setString("email", &m.rec.Email, a.Email, p)
	m.setString("city", &m.rec.City, a.City, p)
	m.setString("state", &m.rec.State, a.State, p)
	m.setString("postal_code", &m.rec.PostalCode, a.PostalCode, p)
	m.setString("country", &m.rec.Country, a.Country, p)
	if a.YearFounded != 0 && m.wins("year_founded", p.Confidence) {
		m.rec.YearFounded = a.YearFounded
		m.mark("year_founded", p)
	}
	if a.NonProfit != nil && m.wins("non_profit", p.Confidence) {
		v := *a.NonProfit
		m.rec.NonProfit = &v
		m.mark("non_profit", p)
	}
	if a.ParentCompanyName != "" && m.wins("parent_company", p.Confidence) {
		m.rec.ParentCompany = &enrich.ParentCompany{Name: a.ParentCompanyName}
		m.mark("parent_company", p)
	}
}

func (m *merger) applyInsurance(p *enrich.PartialRecord) {
	if len(p.InsurancePayers) > 0 && m.wins("insurance_payers", p.Confidence) {
		m.rec.InsurancePayers = append([]enrich.InsurancePayer(nil), p.InsurancePayers...)
		m.mark("insurance_payers", p)
	}
}

func (m *merger) applyCampuses(p *enrich.PartialRecord) {
	if len(p.Campuses) > 0 && m.wins("campuses", p.Confidence) {
		m.rec.Campuses = append([]enrich.Campus(nil), p.Campuses...)
		m.mark("campuses", p)
	}
}

func (m *merger) applyParentCompany(p *enrich.PartialRecord) {
	if p.ParentCompany != nil && m.wins("parent_company", p.Confidence) {
		pc := *p.ParentCompany
		m.rec.ParentCompany = &pc
		m.mark("parent_company", p)
	}
}
