package cmd

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/spigell/resume-screener/internal/acquire"
	"github.com/spigell/resume-screener/internal/fuzzy"
	"github.com/spigell/resume-screener/internal/scoring"
	"github.com/spigell/resume-screener/internal/secrets"
)

const (
	ocrProviderGemini    = "gemini"
	ocrProviderTesseract = "tesseract"
	ocrProviderNone      = "none"

	geminiKeyHint = "set ocr.gemini.api-key-file, ocr.gemini.api-key, GEMINI_API_KEY_FILE or GEMINI_API_KEY"
)

var errGeminiKeyMissing = errors.New("gemini api key is not configured (" + geminiKeyHint + ")")

type Config struct {
	Input          []string        `mapstructure:"input" validate:"required,min=1,dive,required"`
	Weights        scoring.Weights `mapstructure:"weights"`
	Skills         []string        `mapstructure:"skills"`
	Certifications []string        `mapstructure:"certifications"`
	Concurrency    int             `mapstructure:"concurrency" validate:"gte=0"`
	MinTextLength  int             `mapstructure:"min-text-length" validate:"gte=1"`
	SecondaryOCR   bool            `mapstructure:"secondary-ocr"`
	FuzzyThreshold float64         `mapstructure:"fuzzy-threshold" validate:"gt=0,lte=100"`
	Timeout        time.Duration   `mapstructure:"timeout" validate:"gte=0"`
	OCR            OCRConfig       `mapstructure:"ocr"`
	Predictor      PredictorConfig `mapstructure:"predictor"`
	Filters        FiltersConfig   `mapstructure:"filters"`
	MetricsFile    string          `mapstructure:"metrics-file"`
}

type OCRConfig struct {
	Provider  string          `mapstructure:"provider" validate:"oneof=gemini tesseract none"`
	Tesseract TesseractConfig `mapstructure:"tesseract"`
	Gemini    GeminiConfig    `mapstructure:"gemini"`
}

type TesseractConfig struct {
	Binary   string `mapstructure:"binary"`
	Language string `mapstructure:"language"`
}

type GeminiConfig struct {
	APIKey       string `mapstructure:"api-key"`
	APIKeyFile   string `mapstructure:"api-key-file"`
	Model        string `mapstructure:"model"`
	MaxRetries   int    `mapstructure:"max-retries" validate:"gte=0"`
	MaxLogLength int    `mapstructure:"max-log-length" validate:"gte=0"`
}

// keySource lists where the API key may come from, file first.
func (c GeminiConfig) keySource() secrets.Source {
	return secrets.Source{
		Name:  "gemini api key",
		File:  c.APIKeyFile,
		Value: c.APIKey,
		Env:   "GEMINI_API_KEY",
	}
}

type PredictorConfig struct {
	ModelFile string `mapstructure:"model-file"`
}

type FiltersConfig struct {
	MinimumScore   float64  `mapstructure:"minimum-score" validate:"gte=0"`
	RequiredSkills []string `mapstructure:"required-skills"`
	Top            int      `mapstructure:"top" validate:"gte=0"`
}

func setDefaults(v *viper.Viper) {
	weights := scoring.DefaultWeights()
	v.SetDefault("weights.experience", weights.Experience)
	v.SetDefault("weights.education", weights.Education)
	v.SetDefault("weights.skills", weights.Skills)
	v.SetDefault("weights.certifications", weights.Certifications)

	v.SetDefault("min-text-length", acquire.DefaultMinTextLength)
	v.SetDefault("secondary-ocr", true)
	v.SetDefault("fuzzy-threshold", fuzzy.DefaultThreshold)

	v.SetDefault("ocr.provider", ocrProviderTesseract)
	v.SetDefault("ocr.tesseract.binary", "tesseract")
	v.SetDefault("ocr.tesseract.language", "eng")
	v.SetDefault("ocr.gemini.model", "gemini-2.5-flash")
	v.SetDefault("ocr.gemini.max-retries", 3)
}

func getConfig() (*Config, error) {
	return loadConfig(viper.GetViper())
}

// loadConfig decodes and validates the configuration held by v.
func loadConfig(v *viper.Viper) (*Config, error) {
	var config Config
	err := v.Unmarshal(&config, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		commaSeparatedHook(),
	)))
	if err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}

	config.OCR.Provider = strings.ToLower(strings.TrimSpace(config.OCR.Provider))

	if err := validator.New(validator.WithRequiredStructEnabled()).Struct(&config); err != nil {
		var invalid validator.ValidationErrors
		if errors.As(err, &invalid) {
			return nil, fmt.Errorf("invalid config: %s", describeValidation(invalid))
		}
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	if err := config.Weights.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: weights: %w", err)
	}

	if config.OCR.Provider == ocrProviderGemini && !config.OCR.Gemini.keySource().Configured() {
		return nil, fmt.Errorf("invalid config: %w", errGeminiKeyMissing)
	}

	return &config, nil
}

// commaSeparatedHook lets list options be given as "a, b, c".
func commaSeparatedHook() mapstructure.DecodeHookFuncType {
	return func(from reflect.Type, to reflect.Type, data any) (any, error) {
		if from.Kind() != reflect.String || to != reflect.TypeOf([]string{}) {
			return data, nil
		}

		var out []string
		for _, part := range strings.Split(data.(string), ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		return out, nil
	}
}

func describeValidation(errs validator.ValidationErrors) string {
	msgs := make([]string, 0, len(errs))
	for _, e := range errs {
		field := strings.TrimPrefix(e.Namespace(), "Config.")
		if e.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s must satisfy %s=%s (got %v)", field, e.Tag(), e.Param(), e.Value()))
			continue
		}
		msgs = append(msgs, fmt.Sprintf("%s is %s", field, e.Tag()))
	}
	return strings.Join(msgs, "; ")
}
