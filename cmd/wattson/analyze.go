package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/wattsonlabs/wattson/internal/capability"
	"github.com/wattsonlabs/wattson/internal/config"
	"github.com/wattsonlabs/wattson/internal/orchestrator"
	"github.com/wattsonlabs/wattson/internal/retry"
	"github.com/wattsonlabs/wattson/pkg/models"
)

var (
	analyzeMode     string
	analyzeMeter    string
	analyzeJSON     bool
	analyzeDebugLog string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [bill files...]",
	Short: "Analyze one or more utility bills",
	Long: `Analyze runs each bill file through the full pipeline and prints the
results. All bills in one invocation share a session, so their records are
numbered consecutively.

Bill format is inferred from the file extension: .txt bills are sent as
text, .png/.jpg/.jpeg/.gif/.webp as images. An optional meter readings file
(--meter) supplies historical consumption data, which enables baseline-aware
anomaly detection.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeMode, "mode", "", "Execution mode: sequential, parallel, or hybrid")
	analyzeCmd.Flags().StringVar(&analyzeMeter, "meter", "", "YAML file with historical meter readings")
	analyzeCmd.Flags().BoolVar(&analyzeJSON, "json", false, "Print records as JSON")
	analyzeCmd.Flags().StringVar(&analyzeDebugLog, "debug-log", "", "Write debug output to this file")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	mode, err := resolveMode(cfg)
	if err != nil {
		return err
	}

	meterSeries, err := loadMeterSeries(analyzeMeter)
	if err != nil {
		return err
	}

	analyzer, client, cleanup, err := buildAnalyzer(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sessionID := analyzer.NewSession()
	defer analyzer.CloseSession(sessionID)

	for _, path := range args {
		req, err := requestFromFile(path, mode, meterSeries)
		if err != nil {
			return err
		}

		record, err := analyzer.Submit(ctx, sessionID, req)
		if err != nil {
			return fmt.Errorf("analyze %s: %w", path, err)
		}

		if analyzeJSON {
			if err := printRecordJSON(record); err != nil {
				return err
			}
			continue
		}
		printRecord(path, record)
	}

	if !analyzeJSON && len(args) > 1 {
		records, err := analyzer.SessionRecords(sessionID)
		if err != nil {
			return err
		}
		printSessionSummary(records)
	}
	if !analyzeJSON {
		printUsage(client.Tracker())
	}

	return nil
}

// printUsage reports token consumption for the invocation.
func printUsage(tracker *capability.TokenTracker) {
	calls := tracker.Calls()
	if calls == 0 {
		return
	}
	in, out := tracker.Total()
	fmt.Printf("\ntokens: %d in / %d out across %d calls (~$%.2f)\n", in, out, calls, tracker.Cost())
}

// printSessionSummary renders the aggregate view over a multi-bill session.
func printSessionSummary(records []models.AnalysisRecord) {
	degraded := 0
	savings := 0.0
	for _, record := range records {
		if record.Degraded {
			degraded++
		}
		if result, ok := record.Result(models.StageRecommendation); ok && result.OK() {
			if set, ok := result.Payload.(*models.RecommendationSet); ok {
				savings += set.Summary.PotentialAnnualSavingsUSD
			}
		}
	}

	color.New(color.Bold).Printf("\nsession: %d bills analyzed", len(records))
	if degraded > 0 {
		fmt.Printf(", %s", color.YellowString("%d degraded", degraded))
	}
	if savings > 0 {
		fmt.Printf(", potential annual savings %s", color.GreenString("$%.0f", savings))
	}
	fmt.Println()
}

// resolveMode picks the execution mode from the flag or the config default.
func resolveMode(cfg *config.Config) (models.ExecutionMode, error) {
	raw := analyzeMode
	if raw == "" {
		raw = cfg.Defaults.Mode
	}
	if raw == "" {
		return models.ModeHybrid, nil
	}
	return models.ParseMode(raw)
}

// buildAnalyzer wires the capability client, retry policy, and session store.
func buildAnalyzer(cfg *config.Config) (*orchestrator.Analyzer, *capability.Client, func(), error) {
	apiKey := ""
	if !cfg.Anthropic.UseBedrock {
		key, err := config.GetAPIKey(cfg)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("%w\n\nSet ANTHROPIC_API_KEY or run: wattson config anthropic.api_key <key>", err)
		}
		apiKey = key
	}

	client, err := capability.NewClient(capability.ClientConfig{
		Model:         anthropic.Model(cfg.Anthropic.Model),
		APIKey:        apiKey,
		UseAWSBedrock: cfg.Anthropic.UseBedrock,
		AWSRegion:     cfg.Anthropic.AWSRegion,
		AWSProfile:    cfg.Anthropic.AWSProfile,
	})
	if err != nil {
		return nil, nil, nil, fmt.Errorf("create capability client: %w", err)
	}

	logPath := analyzeDebugLog
	if logPath == "" {
		logPath = cfg.Logging.DebugLog
	}
	logger, err := orchestrator.NewDebugLogger(logPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("open debug log: %w", err)
	}

	analyzer, err := orchestrator.NewAnalyzer(orchestrator.Options{
		Invoker: client,
		Policy:  retry.NewPolicy(cfg.Retry.MaxAttempts, cfg.Retry.BaseDelay, cfg.Retry.MaxDelay),
		Logger:  logger,
	})
	if err != nil {
		logger.Close()
		return nil, nil, nil, err
	}

	cleanup := func() {
		in, out := client.Tracker().Total()
		logger.Log("model %s usage: %d calls, %d input / %d output tokens (~$%.2f)",
			client.Model(), client.Tracker().Calls(), in, out, client.Tracker().Cost())
		logger.Close()
	}
	return analyzer, client, cleanup, nil
}

// requestFromFile builds an analysis request from a bill file path.
func requestFromFile(path string, mode models.ExecutionMode, meterSeries []models.MeterReading) (*models.AnalysisRequest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read bill %s: %w", path, err)
	}

	req := &models.AnalysisRequest{
		Mode:        mode,
		MeterSeries: meterSeries,
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt", ".text", "":
		req.Media = models.MediaText
		req.BillText = string(data)
	case ".png", ".jpg", ".jpeg", ".gif", ".webp":
		req.Media = models.MediaImage
		req.BillRaw = data
	case ".pdf":
		req.Media = models.MediaPDF
		req.BillRaw = data
	default:
		return nil, fmt.Errorf("unsupported bill file type: %s", path)
	}

	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("bill %s: %w", path, err)
	}
	return req, nil
}

// loadMeterSeries reads historical readings from a YAML file.
func loadMeterSeries(path string) ([]models.MeterReading, error) {
	if path == "" {
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read meter file: %w", err)
	}

	var readings []models.MeterReading
	if err := yaml.Unmarshal(data, &readings); err != nil {
		return nil, fmt.Errorf("parse meter file %s: %w", path, err)
	}
	return readings, nil
}

func printRecordJSON(record *models.AnalysisRecord) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(record)
}

// printRecord renders one analysis record for the terminal.
func printRecord(path string, record *models.AnalysisRecord) {
	header := color.New(color.Bold)
	header.Printf("\n%s (record %d, %s mode, %s)\n", path, record.Sequence, record.Mode, record.Duration.Round(0))

	if record.Degraded {
		color.Yellow("  degraded result: one or more stages failed")
	} else {
		fmt.Printf("  overall confidence: %.2f\n", record.OverallConfidence)
	}

	for _, result := range record.Results {
		attempts := record.Attempts(result.Stage)
		if result.OK() {
			fmt.Printf("  %s %-17s confidence %.2f", color.GreenString("✓"), result.Stage, result.Confidence)
		} else {
			fmt.Printf("  %s %-17s %s: %s", color.RedString("✗"), result.Stage, result.Failure.Kind, result.Failure.Message)
		}
		if attempts > 1 {
			fmt.Printf(" (%d attempts)", attempts)
		}
		fmt.Println()
	}

	printRecommendations(record)
}

func printRecommendations(record *models.AnalysisRecord) {
	result, ok := record.Result(models.StageRecommendation)
	if !ok || !result.OK() {
		return
	}
	set, ok := result.Payload.(*models.RecommendationSet)
	if !ok || len(set.Recommendations) == 0 {
		return
	}

	fmt.Println()
	for _, rec := range set.Recommendations {
		fmt.Printf("  %d. %s", rec.Priority, color.New(color.Bold).Sprint(rec.Title))
		if rec.EstimatedAnnualSavingsUSD > 0 {
			fmt.Printf(" (~$%.0f/yr, %s)", rec.EstimatedAnnualSavingsUSD, rec.ImplementationDifficulty)
		}
		fmt.Println()
		if rec.Description != "" {
			fmt.Printf("     %s\n", rec.Description)
		}
	}
	if set.Summary.PotentialAnnualSavingsUSD > 0 {
		fmt.Printf("\n  potential annual savings: %s\n",
			color.GreenString("$%.0f", set.Summary.PotentialAnnualSavingsUSD))
	}
}
