package screening

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spigell/resume-screener/internal/acquire"
	"github.com/spigell/resume-screener/internal/document"
	"github.com/spigell/resume-screener/internal/features"
	"github.com/spigell/resume-screener/internal/scoring"
)

type fakeAcquirer struct {
	mu       sync.Mutex
	texts    map[string]*acquire.Text
	ocr      map[string]*acquire.Text
	errs     map[string]error
	ocrCalls []string

	inFlight atomic.Int32
	maxSeen  atomic.Int32
	delay    time.Duration
}

func (f *fakeAcquirer) Acquire(ctx context.Context, doc *document.Document) (*acquire.Text, error) {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		seen := f.maxSeen.Load()
		if n <= seen || f.maxSeen.CompareAndSwap(seen, n) {
			break
		}
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}

	if err, ok := f.errs[doc.ID]; ok {
		return nil, err
	}
	if text, ok := f.texts[doc.ID]; ok {
		return text, nil
	}
	return nil, acquire.ErrExtractionFailed
}

func (f *fakeAcquirer) AcquireOCR(ctx context.Context, doc *document.Document) (*acquire.Text, error) {
	f.mu.Lock()
	f.ocrCalls = append(f.ocrCalls, doc.ID)
	f.mu.Unlock()

	if text, ok := f.ocr[doc.ID]; ok {
		return text, nil
	}
	return nil, acquire.ErrExtractionFailed
}

func layerText(content string) *acquire.Text {
	return &acquire.Text{Content: content, Method: acquire.MethodTextLayer, Pages: 1, LowConfidence: len(strings.TrimSpace(content)) < acquire.DefaultMinTextLength}
}

func newExtractor() *features.Extractor {
	return features.NewExtractor(features.NewVocabulary([]string{"python", "react", "go"}, nil))
}

func docs(ids ...string) []*document.Document {
	out := make([]*document.Document, 0, len(ids))
	for _, id := range ids {
		out = append(out, &document.Document{ID: id, Kind: document.KindPDF, Data: []byte(id)})
	}
	return out
}

const (
	seniorText = "senior engineer, 10 years of python and react, phd in computer science, pmp and azure certified"
	midText    = "backend developer with 5 years experience in go and python, master of science in informatics"
	juniorText = "junior developer, 1 year of react, bachelor of arts, eager to learn and grow in a product team"
)

func TestRunRanksScoredDocumentsAndKeepsFailures(t *testing.T) {
	acq := &fakeAcquirer{
		texts: map[string]*acquire.Text{
			"junior.pdf": layerText(juniorText),
			"senior.pdf": layerText(seniorText),
			"mid.pdf":    layerText(midText),
		},
	}

	s := New(acq, newExtractor(), scoring.DefaultWeights(), WithConcurrency(2))
	result, err := s.Run(context.Background(), docs("junior.pdf", "broken.pdf", "senior.pdf", "mid.pdf"))
	require.NoError(t, err)

	assert.NotEmpty(t, result.RunID)
	assert.Equal(t, []string{"senior.pdf", "mid.pdf", "junior.pdf"}, result.Ranking.IDs())

	require.Len(t, result.Outcomes, 4)
	assert.Equal(t, "broken.pdf", result.Outcomes[1].DocumentID)

	failures := result.Failures()
	require.Len(t, failures, 1)
	assert.Equal(t, StatusFailed, failures[0].Status())
	assert.Nil(t, failures[0].Record)
	assert.ErrorIs(t, failures[0].Err, acquire.ErrExtractionFailed)

	senior, ok := result.Outcome("senior.pdf")
	require.True(t, ok)
	assert.Equal(t, StatusScored, senior.Status())
	assert.Equal(t, 10, senior.Record.ExperienceYears)
	assert.Equal(t, features.EducationPhD, senior.Record.Education)
	assert.Empty(t, acq.ocrCalls)
}

func TestRunSecondaryOCRKeepsLongerText(t *testing.T) {
	acq := &fakeAcquirer{
		texts: map[string]*acquire.Text{
			"scan.pdf":  layerText("python"),
			"short.pdf": layerText("react developer"),
		},
		ocr: map[string]*acquire.Text{
			"scan.pdf":  {Content: seniorText, Method: acquire.MethodOCR, Pages: 2},
			"short.pdf": {Content: "react", Method: acquire.MethodOCR, Pages: 1, LowConfidence: true},
		},
	}

	s := New(acq, newExtractor(), scoring.DefaultWeights(), WithConcurrency(1))
	result, err := s.Run(context.Background(), docs("scan.pdf", "short.pdf"))
	require.NoError(t, err)

	scan, _ := result.Outcome("scan.pdf")
	assert.True(t, scan.SecondaryOCR)
	assert.Equal(t, acquire.MethodOCR, scan.Text.Method)
	assert.NoError(t, scan.Warning)
	assert.Equal(t, 10, scan.Record.ExperienceYears)

	short, _ := result.Outcome("short.pdf")
	assert.True(t, short.SecondaryOCR)
	assert.Equal(t, acquire.MethodTextLayer, short.Text.Method)
	assert.ErrorIs(t, short.Warning, acquire.ErrLowConfidence)
	assert.Equal(t, StatusScored, short.Status())

	assert.ElementsMatch(t, []string{"scan.pdf", "short.pdf"}, acq.ocrCalls)
}

func TestRunSkipsSecondaryOCR(t *testing.T) {
	acq := &fakeAcquirer{
		texts: map[string]*acquire.Text{
			"cv.docx": {Content: "go developer", Method: acquire.MethodWord, LowConfidence: true},
			"cv.pdf":  layerText("python"),
		},
	}

	wordDoc := &document.Document{ID: "cv.docx", Kind: document.KindWord}
	s := New(acq, newExtractor(), scoring.DefaultWeights())
	_, err := s.Run(context.Background(), []*document.Document{wordDoc})
	require.NoError(t, err)
	assert.Empty(t, acq.ocrCalls)

	s = New(acq, newExtractor(), scoring.DefaultWeights(), WithSecondaryOCR(false))
	result, err := s.Run(context.Background(), docs("cv.pdf"))
	require.NoError(t, err)
	assert.Empty(t, acq.ocrCalls)
	assert.ErrorIs(t, result.Outcomes[0].Warning, acquire.ErrLowConfidence)
}

func TestRunDoesNotRepeatOCR(t *testing.T) {
	acq := &fakeAcquirer{
		texts: map[string]*acquire.Text{
			"scan.png": {Content: "python, 2 years", Method: acquire.MethodOCR, Pages: 1, LowConfidence: true},
			"scan.pdf": {Content: "react", Method: acquire.MethodOCR, Pages: 3, LowConfidence: true},
		},
		ocr: map[string]*acquire.Text{
			"scan.png": {Content: seniorText, Method: acquire.MethodOCR, Pages: 1},
			"scan.pdf": {Content: seniorText, Method: acquire.MethodOCR, Pages: 3},
		},
	}

	image := &document.Document{ID: "scan.png", Kind: document.KindImage}
	pdf := &document.Document{ID: "scan.pdf", Kind: document.KindPDF}

	result, err := New(acq, newExtractor(), scoring.DefaultWeights()).Run(context.Background(), []*document.Document{image, pdf})
	require.NoError(t, err)
	assert.Empty(t, acq.ocrCalls)

	for _, out := range result.Outcomes {
		assert.False(t, out.SecondaryOCR, out.DocumentID)
		assert.ErrorIs(t, out.Warning, acquire.ErrLowConfidence, out.DocumentID)
		assert.Equal(t, StatusScored, out.Status(), out.DocumentID)
	}
	png, ok := result.Outcome("scan.png")
	require.True(t, ok)
	assert.Equal(t, []string{"python"}, png.Record.Skills)
}

func TestRunHonoursConcurrencyLimit(t *testing.T) {
	texts := map[string]*acquire.Text{}
	var ids []string
	for i := range 8 {
		id := string(rune('a'+i)) + ".pdf"
		ids = append(ids, id)
		texts[id] = layerText(midText)
	}

	acq := &fakeAcquirer{texts: texts, delay: 10 * time.Millisecond}
	s := New(acq, newExtractor(), scoring.DefaultWeights(), WithConcurrency(3))

	result, err := s.Run(context.Background(), docs(ids...))
	require.NoError(t, err)
	assert.Equal(t, 8, result.Ranking.Len())
	assert.LessOrEqual(t, acq.maxSeen.Load(), int32(3))
	// equal scores keep input order
	assert.Equal(t, ids, result.Ranking.IDs())
}

func TestRunCancelled(t *testing.T) {
	acq := &fakeAcquirer{texts: map[string]*acquire.Text{"a.pdf": layerText(midText)}}
	s := New(acq, newExtractor(), scoring.DefaultWeights())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := s.Run(ctx, docs("a.pdf", "b.pdf"))
	require.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, result)
	assert.Zero(t, result.Ranking.Len())
	for _, o := range result.Outcomes {
		assert.Equal(t, StatusCancelled, o.Status())
	}
}

func TestRunExtractionFailureIsReported(t *testing.T) {
	acq := &fakeAcquirer{
		texts: map[string]*acquire.Text{"blank.pdf": {Content: "   ", Method: acquire.MethodTextLayer, LowConfidence: true}},
	}

	core, logs := observer.New(zap.WarnLevel)
	s := New(acq, newExtractor(), scoring.DefaultWeights(), WithSecondaryOCR(false), WithLogger(zap.New(core)))

	result, err := s.Run(context.Background(), docs("blank.pdf"))
	require.NoError(t, err)

	out := result.Outcomes[0]
	assert.Equal(t, StatusFailed, out.Status())
	assert.ErrorIs(t, out.Err, features.ErrEmptyText)
	assert.Equal(t, 1, logs.FilterMessage("features could not be extracted").Len())
}

type constPredictor float64

func (p constPredictor) Predict(context.Context, [4]float64) (float64, error) {
	return float64(p), nil
}

func TestRunReportsPrediction(t *testing.T) {
	acq := &fakeAcquirer{texts: map[string]*acquire.Text{"a.pdf": layerText(midText)}}
	s := New(acq, newExtractor(), scoring.DefaultWeights(), WithPredictor(constPredictor(42)))

	result, err := s.Run(context.Background(), docs("a.pdf"))
	require.NoError(t, err)
	require.NotNil(t, result.Ranking[0].Predicted)
	assert.InDelta(t, 42, *result.Ranking[0].Predicted, 1e-9)
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics, err := NewMetrics(reg)
	require.NoError(t, err)

	acq := &fakeAcquirer{
		texts: map[string]*acquire.Text{
			"ok.pdf":  layerText(midText),
			"low.pdf": layerText("python"),
		},
		errs: map[string]error{"bad.pdf": errors.New("corrupt")},
	}

	s := New(acq, newExtractor(), scoring.DefaultWeights(), WithMetrics(metrics))
	_, err = s.Run(context.Background(), docs("ok.pdf", "low.pdf", "bad.pdf"))
	require.NoError(t, err)

	assert.InDelta(t, 2, testutil.ToFloat64(metrics.documents.WithLabelValues(string(StatusScored))), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.documents.WithLabelValues(string(StatusFailed))), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(metrics.methods.WithLabelValues(string(acquire.MethodTextLayer))), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.secondaryOCR), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.lowConf), 0)

	path := filepath.Join(t.TempDir(), "screening.prom")
	require.NoError(t, metrics.WriteTextfile(path))
	assert.FileExists(t, path)

	_, err = NewMetrics(reg)
	assert.Error(t, err)
}
