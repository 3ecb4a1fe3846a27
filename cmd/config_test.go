package cmd

import (
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spigell/resume-screener/internal/scoring"
)

func readConfig(t *testing.T, content string) *viper.Viper {
	t.Helper()

	v := viper.New()
	setDefaults(v)
	v.SetConfigType("yaml")
	require.NoError(t, v.ReadConfig(strings.NewReader(content)))
	return v
}

func TestLoadConfig(t *testing.T) {
	v := readConfig(t, `
input: ["resumes/**/*.pdf"]
skills: "python, React ,,go"
certifications: [oci, ceh]
timeout: 2m
weights:
  experience: 40
ocr:
  provider: Gemini
  gemini:
    api-key-file: /run/secrets/gemini
filters:
  required-skills: python
  top: 5
`)

	config, err := loadConfig(v)
	require.NoError(t, err)

	assert.Equal(t, []string{"resumes/**/*.pdf"}, config.Input)
	assert.Equal(t, []string{"python", "React", "go"}, config.Skills)
	assert.Equal(t, []string{"oci", "ceh"}, config.Certifications)
	assert.Equal(t, 2*time.Minute, config.Timeout)
	assert.Equal(t, scoring.Weights{Experience: 40, Education: 25, Skills: 25, Certifications: 25}, config.Weights)
	assert.Equal(t, "gemini", config.OCR.Provider)
	assert.Equal(t, "/run/secrets/gemini", config.OCR.Gemini.APIKeyFile)
	assert.Equal(t, "gemini-2.5-flash", config.OCR.Gemini.Model)
	assert.Equal(t, []string{"python"}, config.Filters.RequiredSkills)
	assert.Equal(t, 5, config.Filters.Top)

	assert.Equal(t, 50, config.MinTextLength)
	assert.True(t, config.SecondaryOCR)
	assert.InDelta(t, 85.0, config.FuzzyThreshold, 0)
}

func TestLoadConfigDefaultsToTesseract(t *testing.T) {
	config, err := loadConfig(readConfig(t, `input: [cv.pdf]`))
	require.NoError(t, err)

	assert.Equal(t, ocrProviderTesseract, config.OCR.Provider)
	assert.Equal(t, "tesseract", config.OCR.Tesseract.Binary)
	assert.Equal(t, "eng", config.OCR.Tesseract.Language)
	assert.Equal(t, scoring.DefaultWeights(), config.Weights)
}

func TestLoadConfigRequiresGeminiKey(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")

	_, err := loadConfig(readConfig(t, "input: [a.pdf]\nocr: {provider: gemini}"))
	require.ErrorIs(t, err, errGeminiKeyMissing)

	config, err := loadConfig(readConfig(t, "input: [a.pdf]\nocr: {provider: gemini, gemini: {api-key: inline}}"))
	require.NoError(t, err)
	assert.Equal(t, "inline", config.OCR.Gemini.keySource().Value)

	t.Setenv("GEMINI_API_KEY", "from-env")
	_, err = loadConfig(readConfig(t, "input: [a.pdf]\nocr: {provider: gemini}"))
	require.NoError(t, err)
}

func TestLoadConfigRejectsInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{name: "no input", content: `skills: python`, want: "Input"},
		{name: "negative weight", content: "input: [a.pdf]\nweights: {skills: -1}", want: "must not be negative"},
		{name: "unknown provider", content: "input: [a.pdf]\nocr: {provider: abbyy}", want: "OCR.Provider"},
		{name: "threshold above 100", content: "input: [a.pdf]\nfuzzy-threshold: 120", want: "FuzzyThreshold"},
		{name: "negative top", content: "input: [a.pdf]\nfilters: {top: -1}", want: "Filters.Top"},
		{name: "bad timeout", content: "input: [a.pdf]\ntimeout: soon", want: "decoding config"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := loadConfig(readConfig(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
