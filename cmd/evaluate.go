package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/manifoldco/promptui"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/ydhoon/policy-ranker/internal/engine"
	"github.com/ydhoon/policy-ranker/internal/logger"
	"github.com/ydhoon/policy-ranker/internal/policy"
)

const (
	PromptExit              = "Exit"
	PromptReportByCategory  = "Report validated policies by category"
	PromptOutcomesToFile    = "Dump outcomes to file"
	PromptAppendToBlocklist = "Append excluded policies to blocklist"
)

var errExit = errors.New("exit requested")

var prompt = promptui.Select{
	Label: "What next?",
	Items: []string{PromptReportByCategory, PromptOutcomesToFile, PromptAppendToBlocklist, PromptExit},
}

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Run the validation and ranking pipeline over retrieved candidates",
	Run: func(cmd *cobra.Command, _ []string) {
		evaluate(cmd)
	},
}

func init() {
	rootCmd.AddCommand(evaluateCmd)

	evaluateCmd.Flags().StringP("candidates", "c", "", "JSON file with retrieved candidate records")
	evaluateCmd.Flags().StringP("profile", "p", "", "JSON file with the user profile")
	evaluateCmd.Flags().StringP("reference-date", "r", "", "evaluation reference date (YYYY-MM-DD), defaults to today")
	evaluateCmd.Flags().StringP("blocklist-file", "b", "", "special file with policies to exclude. Default is unset.")
	evaluateCmd.Flags().BoolP("print-only", "y", false, "print outcomes as JSON and exit without the interactive prompt")

	viper.BindPFlag("candidates-file", evaluateCmd.Flags().Lookup("candidates"))
	viper.BindPFlag("profile-file", evaluateCmd.Flags().Lookup("profile"))
	viper.BindPFlag("reference-date", evaluateCmd.Flags().Lookup("reference-date"))
	viper.BindPFlag("blocklist-file", evaluateCmd.Flags().Lookup("blocklist-file"))
}

// evaluate is the main command for the cli.
func evaluate(cmd *cobra.Command) {
	ctx := context.Background()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	logger.Info("starting the policy-ranker", zap.String("version", version))

	// do not bother error since there is a valid parseable config
	pretty, _ := json.MarshalIndent(config, "", "  ")
	logger.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	if config == nil {
		logger.Fatal("config is required")
	}

	if config.CandidatesFile == "" {
		logger.Fatal("candidates file is required, set it with --candidates or the 'candidates-file' key")
	}
	if config.ProfileFile == "" {
		logger.Fatal("profile file is required, set it with --profile or the 'profile-file' key")
	}

	candidates, err := readCandidates(config.CandidatesFile)
	if err != nil {
		logger.Fatal("reading candidates", zap.Error(err))
	}
	logger.Info("loaded candidates", zap.Int("count", len(candidates)))

	profile, err := readProfile(config.ProfileFile)
	if err != nil {
		logger.Fatal("reading profile", zap.Error(err))
	}

	referenceDate, err := resolveReferenceDate(config)
	if err != nil {
		logger.Fatal("resolving reference date", zap.Error(err))
	}
	logger.Info("evaluating", zap.String("reference_date", referenceDate.Format("2006-01-02")))

	blocklist, err := loadBlocklist(config)
	if err != nil {
		logger.Fatal("loading blocklist", zap.Error(err))
	}

	cfg := engine.Config{Blocklist: blocklist}
	if config.Engine != nil {
		cfg.ClosureKeywords = config.Engine.ClosureKeywords
		cfg.RecencyFloorYears = config.Engine.RecencyFloorYears
		cfg.CorroborationQuorum = config.Engine.CorroborationQuorum
		cfg.MaxLogLength = config.Engine.MaxLogLength
	}

	result, err := engine.New(cfg, logger).Evaluate(ctx, candidates, profile, referenceDate)
	if err != nil {
		logger.Fatal("evaluation failed", zap.Error(err))
	}

	if cmd.Flag("print-only").Value.String() == "true" {
		pretty, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			logger.Fatal("encoding result", zap.Error(err))
		}
		fmt.Println(string(pretty))
		return
	}

	for {
		logger.Info("current outcomes",
			zap.Int("validated", result.Summary.Validated),
			zap.Int("excluded", result.Summary.Excluded),
		)

		_, action, err := prompt.Run()
		if err != nil {
			logger.Fatal("exiting", zap.Error(err))
		}

		if err := handleAction(action, logger, config, result); err != nil {
			if errors.Is(err, errExit) {
				return
			}
			logger.Fatal("exiting", zap.Error(err))
		}
	}
}

func handleAction(action string, logger *zap.Logger, config *Config, result *engine.Result) error {
	switch action {
	case PromptExit:
		logger.Info("exiting", zap.String("reason", "got exit from prompt"))
		return errExit
	case PromptReportByCategory:
		pretty, _ := json.MarshalIndent(result.ReportByCategory(), "", "  ")
		logger.Info(string(pretty), zap.Int("validated count", result.Summary.Validated))
		return nil
	case PromptOutcomesToFile:
		filename, err := result.DumpToTmpFile()
		if err != nil {
			return fmt.Errorf("dump results to file: %w", err)
		}
		logger.Info("dumping result to file", zap.String("filename", filename))
		return nil
	case PromptAppendToBlocklist:
		return appendToBlocklist(logger, config, result)
	default:
		return fmt.Errorf("invalid action: %s", action)
	}
}

func appendToBlocklist(logger *zap.Logger, config *Config, result *engine.Result) error {
	path := strings.TrimSpace(config.BlocklistFile)
	if path == "" {
		return errors.New("blocklist file is not configured, set it with --blocklist-file")
	}

	blocked := &policy.BlockedPolicies{}
	if _, err := os.Stat(path); err == nil {
		existing, err := policy.GetBlockedPoliciesFromFile(path)
		if err != nil {
			return err
		}
		blocked = existing
	}

	blocked.Add(result.ExcludedNames(), "excluded during review", time.Now().UTC())

	if err := blocked.ToFile(path); err != nil {
		return err
	}

	logger.Info("appended to blocklist file",
		zap.String("filename", path),
		zap.Int("excluded", result.Summary.Excluded),
	)
	return nil
}

// readCandidates accepts either a bare JSON array of records or the retrieval
// layer's envelope object carrying the records under "items".
func readCandidates(path string) ([]policy.RawCandidate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var candidates []policy.RawCandidate
	if err := json.Unmarshal(data, &candidates); err == nil {
		return candidates, nil
	}

	var envelope map[string]any
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("decoding %q: %w", path, err)
	}

	items, ok := envelope["items"]
	if !ok {
		return nil, fmt.Errorf("decoding %q: expected an array of records or an object with an 'items' key", path)
	}

	cfg := &mapstructure.DecoderConfig{
		Metadata: nil,
		Result:   &candidates,
		TagName:  "json",
		// JSON numbers surface as float64 in the envelope map.
		WeaklyTypedInput: true,
	}
	decoder, _ := mapstructure.NewDecoder(cfg)
	if err := decoder.Decode(items); err != nil {
		return nil, fmt.Errorf("decoding items in %q: %w", path, err)
	}

	return candidates, nil
}

func readProfile(path string) (*policy.UserProfile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var profile policy.UserProfile
	if err := json.Unmarshal(data, &profile); err != nil {
		return nil, fmt.Errorf("decoding %q: %w", path, err)
	}
	return &profile, nil
}

// resolveReferenceDate picks the caller-supplied date, falling back to
// today's calendar date. The engine itself never consults the clock.
func resolveReferenceDate(config *Config) (time.Time, error) {
	raw := strings.TrimSpace(config.ReferenceDate)
	if raw == "" {
		now := time.Now().UTC()
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC), nil
	}

	date, ok := policy.ParseDate(raw)
	if !ok {
		return time.Time{}, fmt.Errorf("unparseable reference date %q, expected YYYY-MM-DD", raw)
	}
	return date, nil
}

func loadBlocklist(config *Config) (*policy.BlockedPolicies, error) {
	path := strings.TrimSpace(config.BlocklistFile)
	if path == "" {
		return nil, nil
	}

	blocked, err := policy.GetBlockedPoliciesFromFile(path)
	if err != nil {
		return nil, fmt.Errorf("getting blocked policies from file: %w", err)
	}
	return blocked, nil
}
