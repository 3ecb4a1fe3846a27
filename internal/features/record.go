package features

import "strings"

// Education is the highest degree tier found in a document.
type Education string

const (
	EducationUnknown  Education = "Unknown"
	EducationBachelor Education = "Bachelor's"
	EducationMaster   Education = "Master's"
	EducationPhD      Education = "PhD"
)

// Rank orders education tiers: Unknown 0, Bachelor's 1, Master's 2, PhD 3.
func (e Education) Rank() int {
	switch e {
	case EducationPhD:
		return 3
	case EducationMaster:
		return 2
	case EducationBachelor:
		return 1
	default:
		return 0
	}
}

// Record is the feature summary of one document.
type Record struct {
	ExperienceYears int       `json:"experience_years"`
	Education       Education `json:"education"`
	Skills          []string  `json:"skills"`
	Certifications  int       `json:"certifications"`
}

// Vector returns the features in model order:
// experience, education rank, skill count, certification count.
func (r Record) Vector() [4]float64 {
	return [4]float64{
		float64(r.ExperienceYears),
		float64(r.Education.Rank()),
		float64(len(r.Skills)),
		float64(r.Certifications),
	}
}

func (r Record) HasSkill(skill string) bool {
	skill = strings.ToLower(strings.TrimSpace(skill))
	for _, s := range r.Skills {
		if s == skill {
			return true
		}
	}
	return false
}
