// Package features turns normalised document text into a comparable feature record.
package features

import (
	"errors"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/spigell/resume-screener/internal/fuzzy"
)

// ErrEmptyText is returned when there is no text to extract features from.
// Callers must report the document as failed instead of scoring an empty record.
var ErrEmptyText = errors.New("no text to extract features from")

var (
	numericExperience = regexp.MustCompile(`\b(\d+)\s*\+?\s*(?:years|yrs)\b`)
	wordExperience    = regexp.MustCompile(`\b([a-z]+(?:-[a-z]+)?)\s+(?:years|yrs)\b`)
)

var educationTiers = []struct {
	level Education
	terms []string
}{
	{level: EducationPhD, terms: []string{"phd", "doctor of philosophy"}},
	{level: EducationMaster, terms: []string{"master", "msc", "m.tech", "mtech"}},
	{level: EducationBachelor, terms: []string{"bachelor", "bsc", "b.tech", "btech"}},
}

// Extractor runs the four feature extractions against a fixed vocabulary.
type Extractor struct {
	vocab     Vocabulary
	threshold float64
}

type Option func(*Extractor)

// WithThreshold overrides the fuzzy similarity a term needs to match.
func WithThreshold(threshold float64) Option {
	return func(e *Extractor) {
		if threshold > 0 {
			e.threshold = threshold
		}
	}
}

func NewExtractor(vocab Vocabulary, opts ...Option) *Extractor {
	e := &Extractor{
		vocab:     vocab,
		threshold: fuzzy.DefaultThreshold,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Extractor) Vocabulary() Vocabulary {
	return e.vocab
}

// Extract builds the feature record for a document text.
func (e *Extractor) Extract(text string) (*Record, error) {
	text = strings.ToLower(text)
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyText
	}

	return &Record{
		ExperienceYears: ExtractExperience(text),
		Education:       ExtractEducation(text),
		Skills:          ExtractSkills(text, e.vocab.Skills, e.threshold),
		Certifications:  CountCertifications(text, e.vocab.Certifications, e.threshold),
	}, nil
}

// ExtractExperience returns the largest number of years claimed anywhere in
// text, written either as digits ("7+ yrs") or as a word ("five years").
func ExtractExperience(text string) int {
	best := 0

	for _, m := range numericExperience.FindAllStringSubmatch(text, -1) {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		best = max(best, n)
	}

	for _, m := range wordExperience.FindAllStringSubmatch(text, -1) {
		n, err := wordToNumber(m[1])
		if err != nil {
			continue
		}
		best = max(best, n)
	}

	return best
}

// ExtractEducation returns the highest tier whose terms appear verbatim in text.
func ExtractEducation(text string) Education {
	for _, tier := range educationTiers {
		for _, term := range tier.terms {
			if strings.Contains(text, term) {
				return tier.level
			}
		}
	}
	return EducationUnknown
}

// ExtractSkills returns the sorted, deduplicated vocabulary skills found in text.
func ExtractSkills(text string, skills []string, threshold float64) []string {
	found := make(map[string]struct{})
	for _, skill := range skills {
		skill = strings.ToLower(strings.TrimSpace(skill))
		if skill == "" {
			continue
		}
		if fuzzy.Matches(skill, text, threshold) {
			found[skill] = struct{}{}
		}
	}

	out := make([]string, 0, len(found))
	for skill := range found {
		out = append(out, skill)
	}
	sort.Strings(out)
	return out
}

// CountCertifications returns how many distinct certification terms match text.
// A term repeated in the text counts once.
func CountCertifications(text string, certifications []string, threshold float64) int {
	return len(ExtractSkills(text, certifications, threshold))
}
