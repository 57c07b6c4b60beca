package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"arbflow/config"
	"arbflow/internal/backtest"
	"arbflow/internal/symbols"
	"arbflow/logger"
	"arbflow/models"
	"arbflow/writer"
)

func main() {
	log := logger.GetLogger()

	// Load environment variables from .env if present
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.WithError(err).Warn("Error loading .env file")
	}

	configPath := flag.String("config", "config/config.yml", "Path to configuration file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.WithError(err).Error("Failed to load configuration")
		os.Exit(1)
	}

	if err := log.Configure(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output, cfg.Logging.MaxAge); err != nil {
		log.WithError(err).Error("Failed to configure logger")
		os.Exit(1)
	}

	log.WithFields(logger.Fields{
		"service": cfg.Arbflow.Name,
		"version": cfg.Arbflow.Version,
	}).Info("starting arbflow")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger.StartReport(ctx, log, 30*time.Second)

	// A second signal kills the process outright; the first one cancels
	// the replay loop so the run finishes with whatever it has.
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		log.WithFields(logger.Fields{"signal": sig.String()}).Info("shutdown signal received, cancelling run")
		cancel()
	}()

	runner := backtest.NewRunner(cfg)
	if err := runner.Initialize(ctx); err != nil {
		log.WithError(err).Error("failed to initialize backtest")
		os.Exit(1)
	}

	started := time.Now()
	if err := runner.Run(ctx); err != nil {
		log.WithError(err).Error("backtest run failed")
		os.Exit(1)
	}
	orders := runner.Finalize()

	if cfg.Writer.WriteBars || cfg.Writer.WriteOrder {
		aw, err := writer.NewArtifactWriter(cfg.Writer, runner.RunID())
		if err != nil {
			log.WithError(err).Error("failed to create artifact writer")
			os.Exit(1)
		}
		if cfg.Writer.WriteBars {
			for sym, sb := range runner.Bars() {
				if _, err := aw.WriteBars(symbols.ToUpbit(sym), models.MarketUpbit, sb.Quote); err != nil {
					log.WithError(err).Error("failed to write quote bars")
					os.Exit(1)
				}
				base, err := runner.BaseInQuoteCurrency(sym)
				if err != nil {
					log.WithError(err).Error("failed to convert base bars")
					os.Exit(1)
				}
				if _, err := aw.WriteBars(symbols.ToBinance(sym), models.MarketBinance, base); err != nil {
					log.WithError(err).Error("failed to write base bars")
					os.Exit(1)
				}
			}
		}
		if cfg.Writer.WriteOrder {
			if _, err := aw.WriteOrders(orders); err != nil {
				log.WithError(err).Error("failed to write order history")
				os.Exit(1)
			}
		}
	}

	log.WithFields(logger.Fields{
		"run_id":  runner.RunID(),
		"orders":  len(orders),
		"balance": runner.Trader().Account().Balance().String(),
		"elapsed": time.Since(started).String(),
	}).Info("arbflow finished")
}
