package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/gigflow/gigwatch/internal/ai"
	"github.com/gigflow/gigwatch/internal/ai/gemini"
	"github.com/gigflow/gigwatch/internal/catalog"
	"github.com/gigflow/gigwatch/internal/gig"
	"github.com/gigflow/gigwatch/internal/logger"
	"github.com/gigflow/gigwatch/internal/secrets"
)

const (
	PromptReportByPlatform = "Report by platform"
	PromptDumpToFile       = "Dump matches to file"
	PromptAIAssessment     = "Ask AI about a match"
	PromptExit             = "Exit"
	PromptBack             = "back"
)

var errExit = errors.New("exit requested")

var matchesPrompt = promptui.Select{
	Label: "What next?",
	Items: []string{PromptReportByPlatform, PromptDumpToFile, PromptAIAssessment, PromptExit},
}

var matchesCmd = &cobra.Command{
	Use:   "matches",
	Short: "Rank the gig feed against your profile and browse the results",
	Run: func(cmd *cobra.Command, _ []string) {
		runMatches(cmd)
	},
}

func init() {
	rootCmd.AddCommand(matchesCmd)

	matchesCmd.Flags().StringP("platform", "p", "", "only gigs from this platform")
	matchesCmd.Flags().IntP("min-score", "m", 0, "only gigs with at least this match score")
	matchesCmd.Flags().StringP("sort", "s", catalog.SortByMatch, "sort order: match, date or budget")
}

func runMatches(cmd *cobra.Command) {
	ctx := context.Background()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	profile, err := validateConfig(config)
	if err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}

	gateway, err := buildGateway(ctx, config, logger)
	if err != nil {
		logger.Fatal("building catalog gateway", zap.Error(err))
	}

	filters := matchFilters(cmd)
	matches := gateway.GetMatchingGigs(profile, filters)
	if len(matches) == 0 {
		logger.Info("exiting", zap.String("reason", "no gigs matched the filters"))
		return
	}

	logTopMatches(logger, matches)

	advisor := prepareAdvisor(ctx, config.AI, logger)

	for {
		_, action, err := matchesPrompt.Run()
		if err != nil {
			logger.Fatal("exiting", zap.Error(err))
		}

		if err := handleMatchesAction(ctx, action, logger, profile, matches, advisor); err != nil {
			if errors.Is(err, errExit) {
				return
			}
			logger.Fatal("exiting", zap.Error(err))
		}
	}
}

func matchFilters(cmd *cobra.Command) catalog.Filters {
	filters := catalog.Filters{SortBy: catalog.SortByMatch}
	if cmd == nil {
		return filters
	}

	filters.Platform, _ = cmd.Flags().GetString("platform")
	filters.MinScore, _ = cmd.Flags().GetInt("min-score")
	if sortBy, _ := cmd.Flags().GetString("sort"); sortBy != "" {
		filters.SortBy = sortBy
	}

	return filters
}

func handleMatchesAction(ctx context.Context, action string, logger *zap.Logger, profile *gig.UserProfile, matches []*gig.MatchResult, advisor ai.Advisor) error {
	switch action {
	case PromptReportByPlatform:
		gigs := matchedGigs(matches)
		for platform, entries := range gigs.ReportByPlatform() {
			logger.Info("platform report",
				zap.String("platform", platform),
				zap.Int("count", len(entries)),
				zap.Any("gigs", entries),
			)
		}
		return nil
	case PromptDumpToFile:
		filename, err := matchedGigs(matches).DumpToTmpFile()
		if err != nil {
			return fmt.Errorf("dump matches to file: %w", err)
		}
		logger.Info("dumped matches to file", zap.String("filename", filename))
		return nil
	case PromptAIAssessment:
		if advisor == nil {
			logger.Warn("ai advisor is not configured, enable it in the ai section of the config")
			return nil
		}
		return assessMatch(ctx, logger, profile, matches, advisor)
	case PromptExit:
		logger.Info("exiting", zap.String("reason", "got exit from prompt"))
		return errExit
	default:
		return fmt.Errorf("invalid action: %s", action)
	}
}

func assessMatch(ctx context.Context, logger *zap.Logger, profile *gig.UserProfile, matches []*gig.MatchResult, advisor ai.Advisor) error {
	items := make([]string, 0, len(matches)+1)
	for _, match := range matches {
		items = append(items, fmt.Sprintf("%d %s / %s / %s", match.Score, match.Title, match.Platform, match.Budget))
	}

	selectPrompt := promptui.Select{
		Label: "Choose a match and press ENTER",
		Items: append(items, PromptBack),
	}

	idx, selected, err := selectPrompt.Run()
	if err != nil {
		return err
	}
	if selected == PromptBack {
		return nil
	}

	match := matches[idx]

	assessment, err := advisor.Assess(ctx, profile, match)
	if err != nil {
		logger.Warn("ai assessment failed",
			zap.String("gig_id", match.ID),
			zap.Error(err),
		)
		return nil
	}

	logger.Info("ai assessment",
		zap.String("gig_id", match.ID),
		zap.Bool("fit", assessment.Fit),
		zap.Float64("ai_score", assessment.Score),
		zap.String("reason", assessment.Reason),
		zap.String("suggested_message", assessment.Message),
	)

	return nil
}

func matchedGigs(matches []*gig.MatchResult) *gig.Gigs {
	gigs := &gig.Gigs{Items: make([]*gig.Gig, 0, len(matches))}
	for _, match := range matches {
		g := match.Gig
		gigs.Items = append(gigs.Items, &g)
	}
	return gigs
}

func prepareAdvisor(ctx context.Context, config *AIConfig, zl *zap.Logger) ai.Advisor {
	if config == nil || !config.Enabled {
		return nil
	}

	provider := strings.TrimSpace(strings.ToLower(config.Provider))
	if provider != "" && provider != "gemini" {
		zl.Warn("unsupported ai provider, skipping advisor", zap.String("provider", config.Provider))
		return nil
	}

	if config.Gemini == nil {
		zl.Warn("gemini configuration is required when the ai advisor is enabled")
		return nil
	}

	apiKey, err := secrets.Load(secrets.Source{
		Name: "gemini api key",
		File: config.Gemini.APIKeyFile,
	})
	if err != nil {
		zl.Warn("skipping ai advisor", zap.Error(err), zap.String("hint", "set ai.gemini.api-key-file"))
		return nil
	}

	generator, err := gemini.NewGenerator(ctx, apiKey, config.Gemini.Model)
	if err != nil {
		zl.Warn("skipping ai advisor", zap.Error(err))
		return nil
	}

	advisorLogger := logger.WithAdvisorFields(zl, "gemini", generator.Model())

	return gemini.NewAdvisor(generator, advisorLogger, config.MinimumFitScore, config.Gemini.MaxLogLength)
}
