package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/resume-screener/internal/acquire"
	"github.com/spigell/resume-screener/internal/ai/gemini"
	"github.com/spigell/resume-screener/internal/features"
	"github.com/spigell/resume-screener/internal/filtering"
	"github.com/spigell/resume-screener/internal/logger"
	"github.com/spigell/resume-screener/internal/report"
	"github.com/spigell/resume-screener/internal/screening"
	"github.com/spigell/resume-screener/internal/scoring"
	"github.com/spigell/resume-screener/internal/secrets"
)

const (
	PromptShowRanking       = "Show ranking"
	PromptBreakdown         = "Show score breakdown"
	PromptReportByEducation = "Report by education"
	PromptResultsToFile     = "Dump results to file"
	PromptExit              = "Exit"
	PromptBack              = "back"
)

var errExit = errors.New("exit requested")

var prompt = promptui.Select{
	Label: "What next?",
	Items: []string{PromptShowRanking, PromptBreakdown, PromptReportByEducation, PromptResultsToFile, PromptExit},
}

var rankCmd = &cobra.Command{
	Use:   "rank [files...]",
	Short: "Extract features from resumes and rank them",
	Long: "Extract features from resumes and rank them.\n" +
		"Files are taken from the arguments and from the input patterns of the config file.",
	Run: func(cmd *cobra.Command, args []string) {
		rank(cmd, args)
	},
}

func init() {
	rootCmd.AddCommand(rankCmd)

	rankCmd.Flags().BoolP("auto-approve", "y", false, "print the ranking and exit without asking")
	rankCmd.Flags().StringP("skills", "s", "", "comma separated skills to look for")
	rankCmd.Flags().String("certifications", "", "comma separated certifications counted in addition to the defaults")
	rankCmd.Flags().IntP("top", "n", 0, "number of top candidates to keep (0 keeps all)")
	rankCmd.Flags().String("ocr", "", "ocr provider: gemini, tesseract or none")
	rankCmd.Flags().IntP("concurrency", "c", 0, "documents processed at once (default is the number of CPUs)")
	rankCmd.Flags().String("metrics-file", "", "write prometheus metrics of the run to this file")

	viper.BindPFlag("skills", rankCmd.Flags().Lookup("skills"))
	viper.BindPFlag("certifications", rankCmd.Flags().Lookup("certifications"))
	viper.BindPFlag("filters.top", rankCmd.Flags().Lookup("top"))
	viper.BindPFlag("ocr.provider", rankCmd.Flags().Lookup("ocr"))
	viper.BindPFlag("concurrency", rankCmd.Flags().Lookup("concurrency"))
	viper.BindPFlag("metrics-file", rankCmd.Flags().Lookup("metrics-file"))
}

// rank is the main command for the cli.
func rank(cmd *cobra.Command, args []string) {
	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	// Positional files stand in for the input patterns.
	if len(args) > 0 {
		viper.Set("input", args)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	logger.Info("starting the resume-screener", zap.String("version", version))

	// do not bother error since there is a valid parseable config
	pretty, _ := json.MarshalIndent(config, "", "  ")
	logger.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, config.Timeout)
		defer cancel()
	}

	fsys := afero.NewOsFs()
	paths, err := discover(fsys, config.Input)
	if err != nil {
		logger.Fatal("discovering input files", zap.Error(err))
	}

	docs, err := loadDocuments(fsys, paths, logger)
	if err != nil {
		logger.Fatal("reading input files", zap.Error(err))
	}

	if len(docs) == 0 {
		logger.Info("exiting", zap.String("reason", "no documents found"))
		return
	}

	logger.Info("documents found", zap.Int("count", len(docs)))

	screener, metrics, err := newScreener(ctx, config, logger)
	if err != nil {
		logger.Fatal("preparing the screener", zap.Error(err))
	}

	result, err := screener.Run(ctx, docs)
	if err != nil {
		logger.Warn("screening interrupted, continuing with partial results", zap.Error(err))
	}

	if config.MetricsFile != "" {
		if err := metrics.WriteTextfile(config.MetricsFile); err != nil {
			logger.Warn("writing metrics file", zap.Error(err))
		}
	}

	if err := report.Warnings(os.Stdout, result.Outcomes); err != nil {
		logger.Fatal("printing warnings", zap.Error(err))
	}

	steps := filtering.Defaults()
	ranking, err := filtering.Run(ctx, &filtering.Config{
		MinimumScore:   config.Filters.MinimumScore,
		RequiredSkills: config.Filters.RequiredSkills,
		Top:            config.Filters.Top,
		Vocabulary:     config.Skills,
	}, filtering.Deps{Logger: logger}, steps, result.Ranking)
	if err != nil {
		logger.Fatal("filtering failed", zap.Error(err))
	}

	for _, status := range filtering.Describe(steps) {
		logger.Debug("filter status", zap.String("name", status.Name), zap.Bool("enabled", status.Enabled), zap.Any("details", status.Details))
	}

	if ranking.Len() == 0 {
		logger.Info("exiting", zap.String("reason", "no candidates left after filters"))
		return
	}

	if cmd.Flag("auto-approve").Value.String() == "true" {
		if err := report.Ranking(os.Stdout, ranking); err != nil {
			logger.Fatal("printing ranking", zap.Error(err))
		}
		return
	}

	for {
		_, action, err := prompt.Run()
		if err != nil {
			logger.Fatal("exiting", zap.Error(err))
		}

		logger.Info("current ranking", zap.Int("count", ranking.Len()))

		if err := handleAction(action, logger, config, result, ranking); err != nil {
			if errors.Is(err, errExit) {
				return
			}
			logger.Fatal("exiting", zap.Error(err))
		}
	}
}

func handleAction(action string, logger *zap.Logger, config *Config, result *screening.Result, ranking scoring.Ranking) error {
	switch action {
	case PromptShowRanking:
		return report.Ranking(os.Stdout, ranking)
	case PromptBreakdown:
		return breakdown(ranking, config.Weights)
	case PromptReportByEducation:
		pretty, _ := json.MarshalIndent(report.ByEducation(ranking), "", "  ")
		logger.Info(string(pretty), zap.Int("candidates count", ranking.Len()))
		return nil
	case PromptResultsToFile:
		filename, err := report.DumpToTmpFile(result)
		if err != nil {
			return fmt.Errorf("dump results to file: %w", err)
		}
		logger.Info("dumping result to file", zap.String("filename", filename))
		return nil
	case PromptExit:
		logger.Info("exiting", zap.String("reason", "got exit from prompt"))
		return errExit
	default:
		return fmt.Errorf("invalid action: %s", action)
	}
}

func breakdown(ranking scoring.Ranking, weights scoring.Weights) error {
	for {
		items := make([]string, 0, ranking.Len()+1)
		for i, c := range ranking {
			items = append(items, fmt.Sprintf("%d %s / %.2f", i+1, c.DocumentID, c.Score))
		}

		candidatePrompt := promptui.Select{
			Label: "Choose a candidate and press ENTER",
			Items: append(items, PromptBack),
		}

		idx, selected, err := candidatePrompt.Run()
		if err != nil {
			return err
		}

		if selected == PromptBack {
			return nil
		}

		if err := report.Breakdown(os.Stdout, ranking[idx], weights); err != nil {
			return err
		}
	}
}

// newScreener wires the acquisition backends, the extractor and the metrics for a run.
func newScreener(ctx context.Context, config *Config, logger *zap.Logger) (*screening.Screener, *screening.Metrics, error) {
	ocr, err := newOCR(ctx, config.OCR, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("building ocr: %w", err)
	}

	acqOpts := []acquire.Option{
		acquire.WithMinTextLength(config.MinTextLength),
		acquire.WithLogger(logger),
	}
	if ocr != nil {
		acqOpts = append(acqOpts, acquire.WithOCR(ocr))
	}

	vocab := features.NewVocabulary(config.Skills, config.Certifications)
	if len(vocab.Skills) == 0 {
		logger.Warn("no skills configured, skill scores will be zero",
			zap.String("hint", "set 'skills' in the configuration file or pass --skills"),
		)
	}

	extractor := features.NewExtractor(vocab, features.WithThreshold(config.FuzzyThreshold))
	acquirer := acquire.New(acqOpts...)

	logger.Debug("screening configured",
		zap.Int("min_text_length", acquirer.MinTextLength()),
		zap.Int("skills", len(extractor.Vocabulary().Skills)),
		zap.Int("certifications", len(extractor.Vocabulary().Certifications)),
		zap.Float64("fuzzy_threshold", config.FuzzyThreshold),
	)

	metrics, err := screening.NewMetrics(prometheus.NewRegistry())
	if err != nil {
		return nil, nil, err
	}

	opts := []screening.Option{
		screening.WithConcurrency(config.Concurrency),
		screening.WithSecondaryOCR(config.SecondaryOCR && ocr != nil),
		screening.WithMetrics(metrics),
		screening.WithLogger(logger),
	}

	if path := strings.TrimSpace(config.Predictor.ModelFile); path != "" {
		predictor, err := scoring.LoadLinearPredictor(path)
		if err != nil {
			return nil, nil, fmt.Errorf("loading predictor: %w", err)
		}
		opts = append(opts, screening.WithPredictor(predictor))
	}

	return screening.New(acquirer, extractor, config.Weights, opts...), metrics, nil
}

// newOCR returns the configured OCR backend, or nil when OCR is disabled.
func newOCR(ctx context.Context, cfg OCRConfig, logger *zap.Logger) (acquire.OCR, error) {
	switch cfg.Provider {
	case ocrProviderNone:
		logger.Info("ocr disabled, scanned documents will not produce text")
		return nil, nil
	case ocrProviderTesseract:
		return acquire.NewTesseract(cfg.Tesseract.Binary, cfg.Tesseract.Language), nil
	case ocrProviderGemini:
		return newGeminiOCR(ctx, cfg.Gemini, logger)
	default:
		return nil, fmt.Errorf("unsupported ocr provider: %s", cfg.Provider)
	}
}

func newGeminiOCR(ctx context.Context, cfg GeminiConfig, log *zap.Logger) (acquire.OCR, error) {
	apiKey, err := secrets.Load(cfg.keySource())
	if err != nil {
		return nil, fmt.Errorf("%w (%s)", err, geminiKeyHint)
	}

	ocrLogger := logger.WithOCRFields(log, ocrProviderGemini, cfg.Model).With(
		zap.Int("ai_retry_attempts", cfg.MaxRetries),
	)

	generator, err := gemini.NewGenerator(ctx, apiKey, cfg.Model, cfg.MaxRetries, ocrLogger)
	if err != nil {
		return nil, err
	}

	return gemini.NewRecognizer(generator, cfg.MaxLogLength, ocrLogger), nil
}
