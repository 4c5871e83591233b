package extract

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/clearpath-data/rehab-enricher/internal/enrich"
	"google.golang.org/genai"
)

// Response schemas per category. Every schema carries a self-reported
// "confidence" alongside the category payload; decode clamps it to [0,1].

var str = &genai.Schema{Type: genai.TypeString}
var num = &genai.Schema{Type: genai.TypeNumber}
var integer = &genai.Schema{Type: genai.TypeInteger}
var boolean = &genai.Schema{Type: genai.TypeBoolean}

func objectSchema(props map[string]*genai.Schema, required ...string) *genai.Schema {
	props["confidence"] = num
	return &genai.Schema{
		Type:       genai.TypeObject,
		Properties: props,
		Required:   append([]string{"confidence"}, required...),
	}
}

var programSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"slug":         str,
		"display_name": str,
	},
	Required: []string{"slug", "display_name"},
}

var payerSchema = &genai.Schema{
	Type:       genai.TypeObject,
	Properties: map[string]*genai.Schema{"name": str},
	Required:   []string{"name"},
}

var campusSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"name": str, "slug": str, "street": str, "city": str, "state": str,
		"postal_code": str, "country": str, "phone": str, "time_zone": str,
		"visiting_hours": str, "beds_total": integer,
		"latitude": num, "longitude": num,
	},
	Required: []string{"name"},
}

var parentCompanySchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"name": str, "website_url": str, "description": str,
		"headquarters_city": str, "headquarters_state": str,
	},
	Required: []string{"name"},
}

func categorySchema(cat enrich.Category) *genai.Schema {
	switch cat {
	case enrich.CategoryAdmissions:
		return objectSchema(map[string]*genai.Schema{
			"phone": str, "email": str, "process_summary": str,
			"accepts_walk_ins":    boolean,
			"verify_benefits_url": str,
			"insurance_payers":    {Type: genai.TypeArray, Items: payerSchema},
		})
	case enrich.CategoryPrograms:
		return objectSchema(map[string]*genai.Schema{
			"programs": {Type: genai.TypeArray, Items: programSchema},
		}, "programs")
	case enrich.CategoryAbout:
		return objectSchema(map[string]*genai.Schema{
			"name": str, "legal_name": str, "description": str, "tagline": str,
			"website_url": str, "phone": str, "email": str, "city": str,
			"state": str, "postal_code": str, "country": str,
			"year_founded": integer, "non_profit": boolean,
			"parent_company_name": str,
		})
	case enrich.CategoryInsurance:
		return objectSchema(map[string]*genai.Schema{
			"insurance_payers": {Type: genai.TypeArray, Items: payerSchema},
		}, "insurance_payers")
	case enrich.CategoryCampuses:
		return objectSchema(map[string]*genai.Schema{
			"campuses": {Type: genai.TypeArray, Items: campusSchema},
		}, "campuses")
	case enrich.CategoryParentCompany:
		return objectSchema(map[string]*genai.Schema{
			"parent_company": parentCompanySchema,
		})
	}
	return nil
}

// Wire shapes mirror the schemas above.

type admissionsWire struct {
	Confidence        float64                 `json:"confidence"`
	Phone             string                  `json:"phone"`
	Email             string                  `json:"email"`
	ProcessSummary    string                  `json:"process_summary"`
	AcceptsWalkIns    *bool                   `json:"accepts_walk_ins"`
	VerifyBenefitsURL string                  `json:"verify_benefits_url"`
	InsurancePayers   []enrich.InsurancePayer `json:"insurance_payers"`
}

type programsWire struct {
	Confidence float64          `json:"confidence"`
	Programs   []enrich.Program `json:"programs"`
}

type aboutWire struct {
	Confidence float64 `json:"confidence"`
	enrich.AboutInfo
}

type insuranceWire struct {
	Confidence      float64                 `json:"confidence"`
	InsurancePayers []enrich.InsurancePayer `json:"insurance_payers"`
}

type campusesWire struct {
	Confidence float64         `json:"confidence"`
	Campuses   []enrich.Campus `json:"campuses"`
}

type parentCompanyWire struct {
	Confidence    float64               `json:"confidence"`
	ParentCompany *enrich.ParentCompany `json:"parent_company"`
}

// decodeResponse validates the capability's JSON against the category schema
// and builds a partial record. A decode or validation error triggers the
// caller's single stricter retry. (nil, nil) means the response was valid but
// carried no evidence.
func decodeResponse(cat enrich.Category, raw []byte, sourceURLs []string) (*enrich.PartialRecord, error) {
	pr := &enrich.PartialRecord{Category: cat, SourceURLs: sourceURLs}

	switch cat {
	case enrich.CategoryAdmissions:
		var w admissionsWire
		if err := strictUnmarshal(raw, &w); err != nil {
			return nil, err
		}
		pr.Confidence = clamp01(w.Confidence)
		pr.InsurancePayers = validPayers(w.InsurancePayers)
		info := &enrich.AdmissionsInfo{
			Phone:             strings.TrimSpace(w.Phone),
			Email:             strings.TrimSpace(w.Email),
			ProcessSummary:    strings.TrimSpace(w.ProcessSummary),
			AcceptsWalkIns:    w.AcceptsWalkIns,
			VerifyBenefitsURL: strings.TrimSpace(w.VerifyBenefitsURL),
		}
		if *info == (enrich.AdmissionsInfo{}) && len(pr.InsurancePayers) == 0 {
			return nil, nil
		}
		pr.Admissions = info

	case enrich.CategoryPrograms:
		var w programsWire
		if err := strictUnmarshal(raw, &w); err != nil {
			return nil, err
		}
		pr.Confidence = clamp01(w.Confidence)
		for _, p := range w.Programs {
			slug := strings.TrimSpace(p.Slug)
			name := strings.TrimSpace(p.DisplayName)
			if slug == "" || name == "" {
				return nil, fmt.Errorf("program entry missing slug or display_name")
			}
			pr.Programs = append(pr.Programs, enrich.Program{Slug: slug, DisplayName: name})
		}
		if len(pr.Programs) == 0 {
			return nil, nil
		}

	case enrich.CategoryAbout:
		var w aboutWire
		if err := strictUnmarshal(raw, &w); err != nil {
			return nil, err
		}
		pr.Confidence = clamp01(w.Confidence)
		info := w.AboutInfo
		if info == (enrich.AboutInfo{}) {
			return nil, nil
		}
		pr.About = &info

	case enrich.CategoryInsurance:
		var w insuranceWire
		if err := strictUnmarshal(raw, &w); err != nil {
			return nil, err
		}
		pr.Confidence = clamp01(w.Confidence)
		pr.InsurancePayers = validPayers(w.InsurancePayers)
		if len(pr.InsurancePayers) == 0 {
			return nil, nil
		}

	case enrich.CategoryCampuses:
		var w campusesWire
		if err := strictUnmarshal(raw, &w); err != nil {
			return nil, err
		}
		pr.Confidence = clamp01(w.Confidence)
		for _, c := range w.Campuses {
			if strings.TrimSpace(c.Name) == "" {
				return nil, fmt.Errorf("campus entry missing name")
			}
			pr.Campuses = append(pr.Campuses, c)
		}
		if len(pr.Campuses) == 0 {
			return nil, nil
		}

	case enrich.CategoryParentCompany:
		var w parentCompanyWire
		if err := strictUnmarshal(raw, &w); err != nil {
			return nil, err
		}
		pr.Confidence = clamp01(w.Confidence)
		if w.ParentCompany == nil || strings.TrimSpace(w.ParentCompany.Name) == "" {
			return nil, nil
		}
		pr.ParentCompany = w.ParentCompany

	default:
		return nil, fmt.Errorf("no extractor for category %q", cat)
	}

	return pr, nil
}

// strictUnmarshal rejects fields outside the declared schema, so a response
// that invents keys fails validation and triggers the stricter retry.
func strictUnmarshal(raw []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("schema validation: %w", err)
	}
	return nil
}

func validPayers(in []enrich.InsurancePayer) []enrich.InsurancePayer {
	var out []enrich.InsurancePayer
	seen := make(map[string]bool)
	for _, p := range in {
		name := strings.TrimSpace(p.Name)
		if name == "" || seen[strings.ToLower(name)] {
			continue
		}
		seen[strings.ToLower(name)] = true
		out = append(out, enrich.InsurancePayer{Name: name})
	}
	return out
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
