package filtering

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/resume-screener/internal/features"
	"github.com/spigell/resume-screener/internal/scoring"
)

type requiredSkillsFilter struct {
	disabled bool
	reason   string
	skills   []string
}

// NewRequiredSkills creates a filter that keeps only candidates having every required skill.
func NewRequiredSkills() Filter {
	return &requiredSkillsFilter{}
}

func (f *requiredSkillsFilter) Name() string { return "required_skills" }

func (f *requiredSkillsFilter) Disable(reason string) {
	f.disabled = true
	f.reason = reason
}

func (f *requiredSkillsFilter) IsEnabled() bool { return !f.disabled }

// Validate rejects required skills that are not part of the vocabulary:
// records can only ever contain vocabulary terms.
func (f *requiredSkillsFilter) Validate(cfg *Config) error {
	f.skills = nil
	if cfg == nil {
		return nil
	}

	f.skills = features.Normalize(cfg.RequiredSkills)
	if len(cfg.Vocabulary) == 0 {
		return nil
	}

	vocabulary := features.Normalize(cfg.Vocabulary)
	var unknown []string
	for _, skill := range f.skills {
		if !slices.Contains(vocabulary, skill) {
			unknown = append(unknown, skill)
		}
	}
	if len(unknown) > 0 {
		return fmt.Errorf("required skills are not in the skill vocabulary: %s", strings.Join(unknown, ", "))
	}
	return nil
}

func (f *requiredSkillsFilter) Apply(_ context.Context, deps Deps, r scoring.Ranking) (scoring.Ranking, Step, error) {
	initial := r.Len()
	if len(f.skills) == 0 {
		return r, Step{Initial: initial, Dropped: 0, Left: initial}, nil
	}

	kept, dropped := keep(r, func(c scoring.Scored) bool {
		for _, skill := range f.skills {
			if !c.Record.HasSkill(skill) {
				return false
			}
		}
		return true
	})
	if deps.Logger != nil && len(dropped) > 0 {
		deps.Logger.Info("excluding candidates missing required skills",
			zap.Strings("required_skills", f.skills),
			zap.Strings("excluded_documents", dropped),
			zap.Int("candidates_left", kept.Len()),
		)
	}

	return kept, Step{Initial: initial, Dropped: len(dropped), Left: kept.Len()}, nil
}

func (f *requiredSkillsFilter) Status() Status {
	details := map[string]string{}
	if len(f.skills) > 0 {
		details["skills"] = strings.Join(f.skills, ",")
	}
	return Status{Name: f.Name(), Enabled: f.IsEnabled(), Reason: f.reason, Details: details}
}
