package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/gigflow/gigwatch/internal/cache"
	"github.com/gigflow/gigwatch/internal/catalog"
	"github.com/gigflow/gigwatch/internal/events"
	"github.com/gigflow/gigwatch/internal/gig"
	"github.com/gigflow/gigwatch/internal/logger"
	"github.com/gigflow/gigwatch/internal/matching"
	"github.com/gigflow/gigwatch/internal/secrets"
	"github.com/gigflow/gigwatch/internal/subscription"
	"github.com/gigflow/gigwatch/internal/transport"
	"github.com/gigflow/gigwatch/internal/utils"
)

const defaultRefreshInterval = 5 * time.Minute

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Connect to the alert server and watch for gigs matching your profile",
	Run: func(cmd *cobra.Command, _ []string) {
		watch(cmd)
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func watch(_ *cobra.Command) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	logger.Info("starting gigwatch", zap.String("version", version))

	// do not bother error since there is a valid parseable config
	pretty, _ := json.MarshalIndent(config, "", "  ")
	logger.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	profile, err := validateConfig(config)
	if err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}

	gateway, err := buildGateway(ctx, config, logger)
	if err != nil {
		logger.Fatal("building catalog gateway", zap.Error(err))
	}

	bus := events.NewBus(logger)
	registerEventLogging(bus, logger)

	var alerts *transport.Client
	if config.WebsocketURL == "" {
		logger.Info("websocket url not configured, real-time alerts disabled")
	} else {
		alerts = transport.New(ctx, config.WebsocketURL, config.UserID, bus, logger)

		sync := subscription.New(alerts, logger)
		sync.Bind(bus)

		alerts.Connect()
		sync.Apply(profile)
	}

	interval := defaultRefreshInterval
	if config.RefreshIntervalSeconds > 0 {
		interval = time.Duration(config.RefreshIntervalSeconds) * time.Second
	}

	filters := catalog.Filters{SortBy: catalog.SortByMatch}
	for {
		matches := gateway.GetMatchingGigs(profile, filters)
		logTopMatches(logger, matches)

		if err := utils.WaitFor(ctx, interval); err != nil {
			break
		}
	}

	if alerts != nil {
		alerts.Disconnect()
	}

	logger.Info("exiting", zap.String("reason", "shutdown requested"))
}

func validateConfig(config *Config) (*gig.UserProfile, error) {
	if config == nil {
		return nil, errors.New("config is required")
	}
	if config.UserID == "" {
		return nil, errors.New("user-id is required")
	}
	if config.Profile == nil || len(config.Profile.Skills) == 0 {
		return nil, errors.New("profile with at least one skill is required to rank gigs")
	}

	profile := config.Profile
	if profile.ID == "" {
		profile.ID = config.UserID
	}

	return profile, nil
}

func buildGateway(ctx context.Context, config *Config, logger *zap.Logger) (*catalog.Gateway, error) {
	var client *catalog.Client
	if config.APIBaseURL != "" {
		token := ""
		if config.APITokenFile != "" {
			var err error
			token, err = secrets.Load(secrets.Source{
				Name: "catalog api token",
				File: config.APITokenFile,
			})
			if err != nil {
				return nil, err
			}
		}

		timeout := time.Duration(config.RequestTimeoutSeconds) * time.Second
		client = catalog.NewClient(ctx, logger, config.APIBaseURL, token, timeout)
	} else {
		logger.Info("api base url not configured, serving the built-in dataset")
	}

	scorer := matching.NewScorer(logger)

	return catalog.NewGateway(client, scorer, cache.New(cache.DefaultTTL), logger)
}

func registerEventLogging(bus *events.Bus, logger *zap.Logger) {
	bus.Subscribe(events.KindGigAlert, func(e events.Event) {
		alert := e.(events.GigAlert)
		logger.Info("new gig alert",
			zap.String("gig_id", alert.Gig.ID),
			zap.String("title", alert.Gig.Title),
			zap.String("platform", alert.Gig.Platform),
			zap.String("budget", alert.Gig.Budget),
			zap.String("url", alert.Gig.URL),
		)
	})

	bus.Subscribe(events.KindApplicationUpdate, func(e events.Event) {
		update := e.(events.ApplicationUpdate)
		logger.Info(applicationStatusMessage(update),
			zap.String("application_id", update.ApplicationID),
			zap.String("status", update.Status),
		)
	})

	bus.Subscribe(events.KindSystemNotification, func(e events.Event) {
		notification := e.(events.SystemNotification)
		switch notification.Level {
		case "warning":
			logger.Warn(notification.Message)
		case "error":
			logger.Error(notification.Message)
		default:
			logger.Info(notification.Message)
		}
	})

	bus.Subscribe(events.KindConnected, func(events.Event) {
		logger.Info("alert connection established")
	})

	bus.Subscribe(events.KindDisconnected, func(events.Event) {
		logger.Info("alert connection lost")
	})
}

func applicationStatusMessage(update events.ApplicationUpdate) string {
	switch update.Status {
	case "interviewing":
		return fmt.Sprintf("you have been selected for an interview for %q", update.GigTitle)
	case "hired":
		return fmt.Sprintf("you have been hired for %q", update.GigTitle)
	case "rejected":
		return fmt.Sprintf("your application for %q was not selected", update.GigTitle)
	default:
		return fmt.Sprintf("your application for %q has been updated", update.GigTitle)
	}
}

func logTopMatches(logger *zap.Logger, matches []*gig.MatchResult) {
	logger.Info("ranked gig matches", zap.Int("count", len(matches)))

	top := matches
	if len(top) > 5 {
		top = top[:5]
	}
	for _, match := range top {
		logger.Info("match",
			zap.Int("score", match.Score),
			zap.String("title", match.Title),
			zap.String("platform", match.Platform),
			zap.String("budget", match.Budget),
		)
	}
}
