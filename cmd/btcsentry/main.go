package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/marketsentry/btcsentry/internal/config"
	"github.com/marketsentry/btcsentry/internal/delta"
	"github.com/marketsentry/btcsentry/internal/engine"
	"github.com/marketsentry/btcsentry/internal/logger"
	"github.com/marketsentry/btcsentry/internal/models"
	"github.com/marketsentry/btcsentry/internal/storage"
	"github.com/marketsentry/btcsentry/internal/telegram"
)

var configPath = flag.String("config", "configs/config.yaml", "Path to configuration file")

// rotateEvery is the number of poll cycles between history rotations.
const rotateEvery = 120

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger.Init(cfg.Logging.Level, cfg.Logging.Format)
	logger.Info("Configuration loaded from %s", *configPath)

	store, err := storage.New(
		cfg.Storage.MaxDecisions,
		cfg.Storage.DBPath,
	)
	if err != nil {
		logger.Fatal("Failed to initialize storage: %v", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("Failed to close storage: %v", err)
		}
	}()

	deltaClient := delta.NewClient(
		cfg.Delta.APIURL,
		cfg.Delta.ProductSymbol,
		cfg.Delta.Timeout,
		cfg.Delta.MaxRetries,
		cfg.Delta.RetryDelayBase,
	)

	loc, err := time.LoadLocation(cfg.Engine.Timezone)
	if err != nil {
		logger.Fatal("Failed to load timezone %s: %v", cfg.Engine.Timezone, err)
	}

	eng := engine.New(deltaClient, store, engine.NewClock(loc), engine.Config{
		MoveThresholdPct:  cfg.Engine.MoveThresholdPct,
		AMCaptureTime:     cfg.Engine.AMCaptureTime,
		PMCaptureTime:     cfg.Engine.PMCaptureTime,
		UpTargetPremium:   cfg.Engine.UpTargetPremium,
		UpTargetLots:      cfg.Engine.UpTargetLots,
		DownTargetPremium: cfg.Engine.DownTargetPremium,
		DownTargetLots:    cfg.Engine.DownTargetLots,
	})

	var telegramClient *telegram.Client
	if cfg.Telegram.Enabled {
		telegramClient, err = telegram.NewClient(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Telegram.MaxRetries, cfg.Telegram.RetryDelayBase)
		if err != nil {
			logger.Fatal("Failed to initialize Telegram client: %v", err)
		}
		logger.Info("Telegram client initialized successfully")
	} else {
		logger.Debug("Telegram notifications disabled")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info("Shutdown signal received, cleaning up...")
		cancel()
	}()

	if cfg.Telegram.Enabled && telegramClient != nil {
		telegramClient.ListenForCommands(ctx)
	}

	logger.Info("Starting evaluation service (interval: %v, threshold: %.1f%%, captures: %s/%s %s)",
		cfg.PollInterval,
		cfg.Engine.MoveThresholdPct,
		cfg.Engine.AMCaptureTime,
		cfg.Engine.PMCaptureTime,
		cfg.Engine.Timezone,
	)

	ticker := time.NewTicker(cfg.PollInterval)
	defer ticker.Stop()

	var (
		lastStatus          models.Status
		lastDirection       models.Direction
		consecutiveFailures int
		cycleCount          int
	)

	runCycle := func() {
		decision := eng.Evaluate(ctx)

		switch decision.Status {
		case models.StatusError:
			consecutiveFailures++
			logger.Error("Evaluation cycle failed [%s]: %s", decision.ErrorKind, decision.Message)
			if consecutiveFailures == 1 && cfg.Telegram.Enabled && telegramClient != nil {
				if sendErr := telegramClient.SendError(errorFromDecision(decision)); sendErr != nil {
					logger.Warn("Failed to send error notification to Telegram: %v", sendErr)
				}
			}
		default:
			if consecutiveFailures > 0 && cfg.Telegram.Enabled && telegramClient != nil {
				if sendErr := telegramClient.SendRecovery(consecutiveFailures); sendErr != nil {
					logger.Warn("Failed to send recovery notification to Telegram: %v", sendErr)
				}
			}
			consecutiveFailures = 0
		}

		if decision.Status == models.StatusAlert {
			logger.Info("ALERT %s: %s", decision.Direction, decision.Message)
		} else {
			logger.Debug("Cycle result %s: %s", decision.Status, decision.Message)
		}

		// Persist only status/direction transitions; repeating every
		// steady cycle at sub-second polling would flood the history.
		transition := decision.Status != lastStatus || decision.Direction != lastDirection
		if transition {
			if err := store.AddDecision(&decision); err != nil {
				logger.Warn("Failed to persist decision: %v", err)
			}
		}

		if decision.Status == models.StatusAlert && transition &&
			cfg.Telegram.Enabled && telegramClient != nil {
			if err := telegramClient.SendAlert(decision); err != nil {
				logger.Error("Failed to send alert notification: %v", err)
			} else {
				logger.Info("Sent alert notification (%s, %.2f%%)", decision.Direction, decision.MovePercent)
			}
		}

		lastStatus = decision.Status
		lastDirection = decision.Direction

		cycleCount++
		if cycleCount%rotateEvery == 0 {
			if err := store.RotateDecisions(); err != nil {
				logger.Warn("Failed to rotate decision history: %v", err)
			}
		}
	}

	logger.Debug("Running initial evaluation cycle")
	runCycle()

	for {
		select {
		case <-ctx.Done():
			logger.Info("Service stopped")
			return

		case <-ticker.C:
			runCycle()
		}
	}
}

type decisionError struct {
	kind    string
	message string
}

func (e *decisionError) Error() string {
	return e.kind + ": " + e.message
}

func errorFromDecision(d models.Decision) error {
	return &decisionError{kind: d.ErrorKind, message: d.Message}
}
