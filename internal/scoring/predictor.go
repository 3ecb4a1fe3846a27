package scoring

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/mitchellh/mapstructure"
)

// Predictor is an externally trained model scoring the feature vector
// [experience, education rank, skill count, certification count].
type Predictor interface {
	Predict(ctx context.Context, features [4]float64) (float64, error)
}

// LinearPredictor is intercept + coefficients · features.
type LinearPredictor struct {
	Intercept    float64   `mapstructure:"intercept"`
	Coefficients []float64 `mapstructure:"coefficients"`
}

func (p *LinearPredictor) Predict(_ context.Context, features [4]float64) (float64, error) {
	if len(p.Coefficients) != len(features) {
		return 0, fmt.Errorf("model has %d coefficients, want %d", len(p.Coefficients), len(features))
	}

	out := p.Intercept
	for i, f := range features {
		out += p.Coefficients[i] * f
	}
	return out, nil
}

// LoadLinearPredictor reads a JSON model file such as
// {"intercept": 1.5, "coefficients": [0.4, 2, 1, "0.5"]}.
// Numeric strings are accepted.
func LoadLinearPredictor(path string) (*LinearPredictor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading model file: %w", err)
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing model file %q: %w", path, err)
	}

	return DecodeLinearPredictor(raw)
}

// DecodeLinearPredictor builds a model from loosely typed data.
func DecodeLinearPredictor(raw map[string]any) (*LinearPredictor, error) {
	if raw == nil {
		return nil, errors.New("model definition is empty")
	}

	var model LinearPredictor
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &model,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
	})
	if err != nil {
		return nil, err
	}

	if err := decoder.Decode(raw); err != nil {
		return nil, fmt.Errorf("decoding model: %w", err)
	}

	if len(model.Coefficients) != 4 {
		return nil, fmt.Errorf("model needs 4 coefficients, got %d", len(model.Coefficients))
	}

	return &model, nil
}
