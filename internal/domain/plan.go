package domain

import (
	"sort"
	"strings"
)

// PlanFields are the attributes an admin sets when scheduling work.
type PlanFields struct {
	RiskLevel        RiskLevel
	BusinessImpact   string
	Recommendation   string
	Department       string
	AssigneeName     string
	PlannedStartDate string
	TargetEndDate    string
}

// FieldErrors maps a field name to the reason it was rejected.
type FieldErrors map[string]string

func (f FieldErrors) Error() string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+f[k])
	}
	return "invalid fields: " + strings.Join(parts, ", ")
}

// Normalize trims free text and applies the MEDIUM risk default used when an
// admin leaves the risk selector untouched.
func (p PlanFields) Normalize() PlanFields {
	p.BusinessImpact = strings.TrimSpace(p.BusinessImpact)
	p.Recommendation = strings.TrimSpace(p.Recommendation)
	p.Department = strings.TrimSpace(p.Department)
	p.AssigneeName = strings.TrimSpace(p.AssigneeName)
	p.PlannedStartDate = strings.TrimSpace(p.PlannedStartDate)
	p.TargetEndDate = strings.TrimSpace(p.TargetEndDate)
	if strings.TrimSpace(string(p.RiskLevel)) == "" {
		p.RiskLevel = RiskLevelMedium
	}
	return p
}

// Validate checks that a plan is complete. Call it before submitting a plan;
// a nil result means every field is present and well formed.
func (p PlanFields) Validate() error {
	errs := FieldErrors{}
	if _, err := ParseRiskLevel(string(p.RiskLevel)); err != nil {
		errs["risk_level"] = "must be one of LOW, MEDIUM, HIGH, CRITICAL"
	}
	required := map[string]string{
		"business_impact": p.BusinessImpact,
		"recommendation":  p.Recommendation,
		"department":      p.Department,
		"assignee_name":   p.AssigneeName,
	}
	for name, value := range required {
		if strings.TrimSpace(value) == "" {
			errs[name] = "required"
		}
	}
	for name, value := range map[string]string{
		"planned_start_date": p.PlannedStartDate,
		"target_end_date":    p.TargetEndDate,
	} {
		switch {
		case strings.TrimSpace(value) == "":
			errs[name] = "required"
		case !ValidDate(value):
			errs[name] = "must be a YYYY-MM-DD date"
		}
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}
