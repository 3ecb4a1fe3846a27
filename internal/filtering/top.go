package filtering

import (
	"context"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/spigell/resume-screener/internal/scoring"
)

type topFilter struct {
	disabled bool
	reason   string
	n        int
}

// NewTop creates a filter that keeps the n best candidates. Zero keeps everything.
func NewTop() Filter {
	return &topFilter{}
}

func (f *topFilter) Name() string { return "top" }

func (f *topFilter) Disable(reason string) {
	f.disabled = true
	f.reason = reason
}

func (f *topFilter) IsEnabled() bool { return !f.disabled }

func (f *topFilter) Validate(cfg *Config) error {
	f.n = 0
	if cfg != nil {
		f.n = cfg.Top
	}
	if f.n < 0 {
		return fmt.Errorf("top must not be negative (got %d)", f.n)
	}
	return nil
}

func (f *topFilter) Apply(_ context.Context, deps Deps, r scoring.Ranking) (scoring.Ranking, Step, error) {
	initial := r.Len()
	kept := r.Top(f.n)

	if deps.Logger != nil && kept.Len() < initial {
		deps.Logger.Info("keeping top candidates",
			zap.Int("top", f.n),
			zap.Strings("excluded_documents", r[kept.Len():].IDs()),
		)
	}

	return kept, Step{Initial: initial, Dropped: initial - kept.Len(), Left: kept.Len()}, nil
}

func (f *topFilter) Status() Status {
	details := map[string]string{}
	if f.n > 0 {
		details["top"] = strconv.Itoa(f.n)
	}
	return Status{Name: f.Name(), Enabled: f.IsEnabled(), Reason: f.reason, Details: details}
}
