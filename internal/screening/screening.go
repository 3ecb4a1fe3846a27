// Package screening runs the acquisition and extraction of a batch of documents
// on a bounded worker pool and ranks the documents that produced a record.
package screening

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spigell/resume-screener/internal/acquire"
	"github.com/spigell/resume-screener/internal/document"
	"github.com/spigell/resume-screener/internal/features"
	"github.com/spigell/resume-screener/internal/logger"
	"github.com/spigell/resume-screener/internal/scoring"
)

// Status is the terminal state of one document in a run.
type Status string

const (
	StatusScored    Status = "scored"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

type textAcquirer interface {
	Acquire(ctx context.Context, doc *document.Document) (*acquire.Text, error)
	AcquireOCR(ctx context.Context, doc *document.Document) (*acquire.Text, error)
}

type featureExtractor interface {
	Extract(text string) (*features.Record, error)
}

// Outcome is the per-document result. Record is nil unless the document was scored.
type Outcome struct {
	DocumentID string
	Kind       document.Kind
	Text       *acquire.Text
	Record     *features.Record
	Err        error
	// Warning wraps acquire.ErrLowConfidence when the text stayed short after every attempt.
	Warning      error
	SecondaryOCR bool
	Duration     time.Duration
}

func (o Outcome) Status() Status {
	switch {
	case o.Err != nil && (errors.Is(o.Err, context.Canceled) || errors.Is(o.Err, context.DeadlineExceeded)):
		return StatusCancelled
	case o.Err != nil || o.Record == nil:
		return StatusFailed
	default:
		return StatusScored
	}
}

// Result holds the outcomes in input order and the ranking of scored documents.
type Result struct {
	RunID    string
	Outcomes []Outcome
	Ranking  scoring.Ranking
}

// Failures returns the outcomes that were not scored, in input order.
func (r *Result) Failures() []Outcome {
	var failed []Outcome
	for _, o := range r.Outcomes {
		if o.Status() != StatusScored {
			failed = append(failed, o)
		}
	}
	return failed
}

// Outcome returns the outcome of a document by id.
func (r *Result) Outcome(id string) (Outcome, bool) {
	for _, o := range r.Outcomes {
		if o.DocumentID == id {
			return o, true
		}
	}
	return Outcome{}, false
}

type Screener struct {
	acquirer     textAcquirer
	extractor    featureExtractor
	weights      scoring.Weights
	concurrency  int
	secondaryOCR bool
	predictor    scoring.Predictor
	metrics      *Metrics
	logger       *zap.Logger
}

type Option func(*Screener)

// WithConcurrency bounds the number of documents processed at once.
func WithConcurrency(n int) Option {
	return func(s *Screener) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithSecondaryOCR toggles one forced OCR attempt for low confidence text.
func WithSecondaryOCR(enabled bool) Option {
	return func(s *Screener) { s.secondaryOCR = enabled }
}

func WithPredictor(p scoring.Predictor) Option {
	return func(s *Screener) { s.predictor = p }
}

func WithMetrics(m *Metrics) Option {
	return func(s *Screener) { s.metrics = m }
}

func WithLogger(l *zap.Logger) Option {
	return func(s *Screener) {
		if l != nil {
			s.logger = l
		}
	}
}

func New(acquirer textAcquirer, extractor featureExtractor, weights scoring.Weights, opts ...Option) *Screener {
	s := &Screener{
		acquirer:     acquirer,
		extractor:    extractor,
		weights:      weights,
		concurrency:  runtime.NumCPU(),
		secondaryOCR: true,
		logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run screens docs and ranks the ones that produced a record. A failing
// document never aborts the batch. When ctx is cancelled the partial result is
// returned together with ctx.Err().
func (s *Screener) Run(ctx context.Context, docs []*document.Document) (*Result, error) {
	result := &Result{
		RunID:    uuid.NewString(),
		Outcomes: make([]Outcome, len(docs)),
	}

	log := logger.WithFields(s.logger, zap.String(logger.FieldRunID, result.RunID))
	log.Info("screening started",
		zap.Int("documents", len(docs)),
		zap.Int("concurrency", s.concurrency),
		zap.Bool("secondary_ocr", s.secondaryOCR),
	)

	var g errgroup.Group
	g.SetLimit(s.concurrency)

	for i, doc := range docs {
		if err := ctx.Err(); err != nil {
			result.Outcomes[i] = interrupted(doc, err)
			continue
		}

		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				result.Outcomes[i] = interrupted(doc, err)
				return nil
			}
			result.Outcomes[i] = s.screen(ctx, log, doc)
			return nil
		})
	}

	_ = g.Wait()

	candidates := make([]scoring.Candidate, 0, len(docs))
	for _, o := range result.Outcomes {
		s.metrics.observe(o)
		if o.Status() == StatusScored {
			candidates = append(candidates, scoring.Candidate{DocumentID: o.DocumentID, Record: *o.Record})
		}
	}

	rankOpts := []scoring.RankOption{scoring.WithLogger(log)}
	if s.predictor != nil {
		rankOpts = append(rankOpts, scoring.WithPredictor(s.predictor))
	}
	result.Ranking = scoring.Rank(ctx, candidates, s.weights, rankOpts...)

	log.Info("screening finished",
		zap.Int("scored", len(candidates)),
		zap.Int("not_scored", len(docs)-len(candidates)),
	)

	if err := ctx.Err(); err != nil {
		return result, err
	}
	return result, nil
}

func (s *Screener) screen(ctx context.Context, runLog *zap.Logger, doc *document.Document) Outcome {
	if doc == nil {
		return Outcome{Err: errors.New("document is required")}
	}

	start := time.Now()
	log := logger.WithFields(runLog, logger.DocumentFields(doc.ID, string(doc.Kind))...)

	out := s.process(ctx, log, doc)
	out.Duration = time.Since(start)
	return out
}

func (s *Screener) process(ctx context.Context, log *zap.Logger, doc *document.Document) Outcome {
	out := Outcome{DocumentID: doc.ID, Kind: doc.Kind}

	text, err := s.acquirer.Acquire(ctx, doc)
	if err != nil {
		out.Err = err
		log.Warn("text could not be extracted", zap.Error(err))
		return out
	}

	// Text that already came from OCR is not recognised a second time.
	if text.LowConfidence && s.secondaryOCR && doc.Kind != document.KindWord && text.Method != acquire.MethodOCR {
		out.SecondaryOCR = true
		log.Debug("text below minimum length, running secondary ocr", zap.Int("length", text.Len()))

		retry, err := s.acquirer.AcquireOCR(ctx, doc)
		switch {
		case err != nil && ctx.Err() != nil:
			out.Err = ctx.Err()
			return out
		case err != nil:
			log.Debug("secondary ocr produced no text", zap.Error(err))
		case retry.Len() > text.Len():
			text = retry
		}
	}

	out.Text = text
	if text.LowConfidence {
		out.Warning = fmt.Errorf("%w: %d characters", acquire.ErrLowConfidence, text.Len())
		log.Warn("low confidence text", zap.Int("length", text.Len()), zap.String("method", string(text.Method)))
	}

	record, err := s.extractor.Extract(text.Content)
	if err != nil {
		out.Err = fmt.Errorf("extract features: %w", err)
		log.Warn("features could not be extracted", zap.Error(err))
		return out
	}

	out.Record = record
	log.Debug("document screened",
		zap.Int("experience_years", record.ExperienceYears),
		zap.String("education", string(record.Education)),
		zap.Strings("skills", record.Skills),
		zap.Int("certifications", record.Certifications),
	)

	return out
}

func interrupted(doc *document.Document, err error) Outcome {
	if doc == nil {
		return Outcome{Err: err}
	}
	return Outcome{DocumentID: doc.ID, Kind: doc.Kind, Err: err}
}
