package features

import "strings"

// DefaultCertifications are always counted in addition to caller supplied ones.
var DefaultCertifications = []string{
	"aws certified developer",
	"google cloud certified",
	"pmp",
	"azure",
}

// Vocabulary holds the recruiter supplied terms matched against document text.
type Vocabulary struct {
	Skills         []string
	Certifications []string
}

// NewVocabulary normalises skills and merges custom certifications into the defaults.
func NewVocabulary(skills, certifications []string) Vocabulary {
	return Vocabulary{
		Skills:         Normalize(skills),
		Certifications: Normalize(append(append([]string{}, DefaultCertifications...), certifications...)),
	}
}

// Normalize lowercases and trims terms, dropping empties and duplicates while
// keeping first-seen order.
func Normalize(terms []string) []string {
	seen := make(map[string]struct{}, len(terms))
	out := make([]string, 0, len(terms))
	for _, term := range terms {
		term = strings.ToLower(strings.TrimSpace(term))
		if term == "" {
			continue
		}
		if _, ok := seen[term]; ok {
			continue
		}
		seen[term] = struct{}{}
		out = append(out, term)
	}
	return out
}

// SplitTerms parses a comma separated term list.
func SplitTerms(s string) []string {
	return Normalize(strings.Split(s, ","))
}
