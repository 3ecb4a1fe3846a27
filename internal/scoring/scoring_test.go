package scoring

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spigell/resume-screener/internal/features"
)

func record(exp int, edu features.Education, skills []string, certs int) features.Record {
	return features.Record{ExperienceYears: exp, Education: edu, Skills: skills, Certifications: certs}
}

func TestScore(t *testing.T) {
	t.Parallel()

	r := record(4, features.EducationMaster, []string{"go", "sql", "react"}, 1)

	// (4*25 + 2*25 + 3*25 + 1*25) / 100
	assert.InDelta(t, 2.5, Score(r, DefaultWeights()), 1e-9)
	assert.InDelta(t, 0, Score(r, Weights{}), 1e-9)
}

func TestScoreLinearInEachWeight(t *testing.T) {
	t.Parallel()

	r := record(6, features.EducationPhD, []string{"go"}, 2)
	base := Weights{Experience: 10, Education: 20, Skills: 30, Certifications: 40}
	doubled := base
	doubled.Experience *= 2

	before := Contribute(r, base)
	after := Contribute(r, doubled)

	assert.InDelta(t, 2*before.Experience, after.Experience, 1e-9)
	assert.InDelta(t, before.Education, after.Education, 1e-9)
	assert.InDelta(t, Score(r, base)+before.Experience/100, Score(r, doubled), 1e-9)
}

func TestWeightsValidate(t *testing.T) {
	t.Parallel()

	require.NoError(t, DefaultWeights().Validate())
	require.NoError(t, Weights{Experience: 300}.Validate())

	err := Weights{Skills: -1}.Validate()
	require.ErrorIs(t, err, ErrNegativeWeight)
	assert.Contains(t, err.Error(), "skills")
}

func TestRankOrdersByScoreDescending(t *testing.T) {
	t.Parallel()

	w := Weights{Experience: 100}
	batch := []Candidate{
		{DocumentID: "a", Record: record(10, features.EducationUnknown, nil, 0)},
		{DocumentID: "b", Record: record(30, features.EducationUnknown, nil, 0)},
		{DocumentID: "c", Record: record(20, features.EducationUnknown, nil, 0)},
	}

	ranking := Rank(context.Background(), batch, w)

	assert.Equal(t, []string{"b", "c", "a"}, ranking.IDs())
	assert.Equal(t, []float64{30, 20, 10}, []float64{ranking[0].Score, ranking[1].Score, ranking[2].Score})
}

func TestRankKeepsSubmissionOrderOnTies(t *testing.T) {
	t.Parallel()

	w := DefaultWeights()
	batch := []Candidate{
		{DocumentID: "first", Record: record(2, features.EducationBachelor, nil, 0)},
		{DocumentID: "top", Record: record(9, features.EducationPhD, nil, 0)},
		{DocumentID: "second", Record: record(1, features.EducationMaster, nil, 0)},
		{DocumentID: "third", Record: record(3, features.EducationUnknown, nil, 0)},
	}

	ranking := Rank(context.Background(), batch, w)

	assert.Equal(t, []string{"top", "first", "second", "third"}, ranking.IDs())
	assert.Equal(t, []string{"top", "first"}, ranking.Top(2).IDs())
	assert.Len(t, ranking.Top(0), 4)
}

type fixedPredictor struct {
	value float64
	err   error
	calls int
}

func (p *fixedPredictor) Predict(_ context.Context, _ [4]float64) (float64, error) {
	p.calls++
	return p.value, p.err
}

func TestRankReportsPredictionSeparately(t *testing.T) {
	t.Parallel()

	p := &fixedPredictor{value: 0.75}
	batch := []Candidate{{DocumentID: "a", Record: record(1, features.EducationUnknown, nil, 0)}}

	ranking := Rank(context.Background(), batch, DefaultWeights(), WithPredictor(p))

	require.Len(t, ranking, 1)
	require.NotNil(t, ranking[0].Predicted)
	assert.InDelta(t, 0.75, *ranking[0].Predicted, 1e-9)
	assert.InDelta(t, 0.25, ranking[0].Score, 1e-9)
	assert.Equal(t, 1, p.calls)
}

func TestRankLogsPredictorFailure(t *testing.T) {
	t.Parallel()

	core, observed := observer.New(zapcore.WarnLevel)
	p := &fixedPredictor{err: errors.New("model offline")}
	batch := []Candidate{{DocumentID: "a", Record: record(1, features.EducationUnknown, nil, 0)}}

	ranking := Rank(context.Background(), batch, DefaultWeights(), WithPredictor(p), WithLogger(zap.New(core)))

	require.Len(t, ranking, 1)
	assert.Nil(t, ranking[0].Predicted)
	require.Equal(t, 1, observed.Len())
	assert.Equal(t, "a", observed.All()[0].ContextMap()["document_id"])
}
