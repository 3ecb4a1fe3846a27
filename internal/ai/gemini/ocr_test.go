package gemini

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"google.golang.org/genai"

	"github.com/spigell/resume-screener/internal/acquire"
)

type stubGenerator struct {
	output string
	err    error
	system string
	parts  []*genai.Part
}

func (s *stubGenerator) Generate(ctx context.Context, system string, parts []*genai.Part) (string, error) {
	s.system = system
	s.parts = parts
	return s.output, s.err
}

func (s *stubGenerator) Model() string { return "stub-model" }

func TestRecognizerSendsImageInline(t *testing.T) {
	gen := &stubGenerator{output: "Jane Doe\nPython developer"}
	r := NewRecognizer(gen, 0, zaptest.NewLogger(t))

	img := acquire.Image{Data: []byte("\x89PNG\r\n\x1a\n"), MIMEType: "image/png", Page: 2}
	text, err := r.Recognize(context.Background(), img)
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe\nPython developer", text)

	assert.Equal(t, ocrPrompt, gen.system)
	require.Len(t, gen.parts, 2)
	require.NotNil(t, gen.parts[1].InlineData)
	assert.Equal(t, "image/png", gen.parts[1].InlineData.MIMEType)
	assert.Equal(t, img.Data, gen.parts[1].InlineData.Data)

	assert.Equal(t, "gemini", r.Provider())
	assert.Equal(t, "stub-model", r.Model())
}

func TestRecognizerDetectsMissingMIMEType(t *testing.T) {
	gen := &stubGenerator{output: "text"}
	r := NewRecognizer(gen, 0, nil)

	_, err := r.Recognize(context.Background(), acquire.Image{Data: []byte("\xff\xd8\xff\xe0\x00\x10JFIF\x00")})
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", gen.parts[1].InlineData.MIMEType)
}

func TestRecognizerCleansResponse(t *testing.T) {
	tests := []struct {
		name   string
		output string
		want   string
	}{
		{name: "fenced", output: "```text\nMSc Physics\n```", want: "MSc Physics"},
		{name: "bare fence", output: "```\nPMP\n```", want: "PMP"},
		{name: "no text marker", output: "NO_TEXT", want: ""},
		{name: "plain", output: "  7 years  ", want: "7 years"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRecognizer(&stubGenerator{output: tt.output}, 0, nil)
			got, err := r.Recognize(context.Background(), acquire.Image{Data: []byte{1}, MIMEType: "image/png"})
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRecognizerPropagatesErrors(t *testing.T) {
	boom := errors.New("boom")
	r := NewRecognizer(&stubGenerator{err: boom}, 0, nil)

	_, err := r.Recognize(context.Background(), acquire.Image{Data: []byte{1}, MIMEType: "image/png"})
	require.ErrorIs(t, err, boom)

	_, err = r.Recognize(context.Background(), acquire.Image{})
	require.Error(t, err)
}

var _ acquire.OCR = (*Recognizer)(nil)
