// Package scoring combines feature records into weighted scores and a stable ranking.
package scoring

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"

	"go.uber.org/zap"

	"github.com/spigell/resume-screener/internal/features"
)

// ErrNegativeWeight is returned by Weights.Validate.
var ErrNegativeWeight = errors.New("weight must not be negative")

// Weights are recruiter tunable coefficients, conventionally summing to 100.
type Weights struct {
	Experience     float64 `mapstructure:"experience" json:"experience"`
	Education      float64 `mapstructure:"education" json:"education"`
	Skills         float64 `mapstructure:"skills" json:"skills"`
	Certifications float64 `mapstructure:"certifications" json:"certifications"`
}

// DefaultWeights splits the score evenly between the four features.
func DefaultWeights() Weights {
	return Weights{Experience: 25, Education: 25, Skills: 25, Certifications: 25}
}

// Validate rejects negative weights. The sum is not checked.
func (w Weights) Validate() error {
	for _, f := range []struct {
		name  string
		value float64
	}{
		{"experience", w.Experience},
		{"education", w.Education},
		{"skills", w.Skills},
		{"certifications", w.Certifications},
	} {
		if f.value < 0 {
			return fmt.Errorf("%s: %w (got %v)", f.name, ErrNegativeWeight, f.value)
		}
	}
	return nil
}

// Contributions holds each feature's share of a score before the division by 100.
type Contributions struct {
	Experience     float64 `json:"experience"`
	Education      float64 `json:"education"`
	Skills         float64 `json:"skills"`
	Certifications float64 `json:"certifications"`
}

func (c Contributions) Total() float64 {
	return c.Experience + c.Education + c.Skills + c.Certifications
}

// Contribute returns the weighted terms of a record.
func Contribute(r features.Record, w Weights) Contributions {
	return Contributions{
		Experience:     float64(r.ExperienceYears) * w.Experience,
		Education:      float64(r.Education.Rank()) * w.Education,
		Skills:         float64(len(r.Skills)) * w.Skills,
		Certifications: float64(r.Certifications) * w.Certifications,
	}
}

// Score is the weighted sum of the record's features divided by 100.
func Score(r features.Record, w Weights) float64 {
	return Contribute(r, w).Total() / 100
}

// Candidate is one record submitted for ranking.
type Candidate struct {
	DocumentID string
	Record     features.Record
}

// Scored is a ranked candidate. Predicted is set only when a predictor ran successfully.
type Scored struct {
	DocumentID string          `json:"document_id"`
	Record     features.Record `json:"record"`
	Score      float64         `json:"score"`
	Predicted  *float64        `json:"predicted,omitempty"`
}

// Ranking is ordered by score, highest first.
type Ranking []Scored

func (r Ranking) Len() int {
	return len(r)
}

// IDs returns the document ids in rank order.
func (r Ranking) IDs() []string {
	ids := make([]string, 0, len(r))
	for _, c := range r {
		ids = append(ids, c.DocumentID)
	}
	return ids
}

// Top returns at most n leading candidates; n <= 0 keeps everything.
func (r Ranking) Top(n int) Ranking {
	if n <= 0 || n >= len(r) {
		return r
	}
	return r[:n]
}

type rankOptions struct {
	predictor Predictor
	logger    *zap.Logger
}

type RankOption func(*rankOptions)

// WithPredictor reports an external model score next to every candidate.
// The predicted value never changes Score or the order.
func WithPredictor(p Predictor) RankOption {
	return func(o *rankOptions) {
		o.predictor = p
	}
}

func WithLogger(logger *zap.Logger) RankOption {
	return func(o *rankOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// Rank scores every candidate and sorts by score descending. Candidates with
// equal scores keep their submission order.
func Rank(ctx context.Context, batch []Candidate, w Weights, opts ...RankOption) Ranking {
	o := &rankOptions{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(o)
	}

	ranking := make(Ranking, 0, len(batch))
	for _, c := range batch {
		scored := Scored{
			DocumentID: c.DocumentID,
			Record:     c.Record,
			Score:      Score(c.Record, w),
		}

		if o.predictor != nil {
			predicted, err := o.predictor.Predict(ctx, c.Record.Vector())
			if err != nil {
				o.logger.Warn("predictor failed",
					zap.String("document_id", c.DocumentID),
					zap.Error(err),
				)
			} else {
				scored.Predicted = &predicted
			}
		}

		ranking = append(ranking, scored)
	}

	slices.SortStableFunc(ranking, func(a, b Scored) int {
		return cmp.Compare(b.Score, a.Score)
	})

	return ranking
}
