package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"drumtrack-service/internal/alarm"
	"drumtrack-service/internal/api"
	"drumtrack-service/internal/clock"
	"drumtrack-service/internal/config"
	"drumtrack-service/internal/db"
	"drumtrack-service/internal/events"
	"drumtrack-service/internal/lifecycle"
	"drumtrack-service/internal/logging"
	"drumtrack-service/internal/mes"
	"drumtrack-service/internal/notify"
	"drumtrack-service/internal/proof"
	"drumtrack-service/internal/recorder"
	"drumtrack-service/internal/scheduler"
	"drumtrack-service/internal/uploader"
	"drumtrack-service/internal/ws"
)

func main() {
	// Load config
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.Logging.Dir, cfg.Logging.Level)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}

	// Connect to database
	dbConn, err := db.New(cfg.DB.DSN)
	if err != nil {
		logger.Errorf("Failed to connect to database: %v", err)
		log.Fatalf("Database connection failed: %v", err)
	}
	defer dbConn.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Shared tracking state and clock estimate
	clk := clock.NewEstimator()
	sctx := scheduler.NewContext(cfg.Drum.ID)

	// Presentation channels
	hub := ws.NewHub(logger)
	bus := events.NewPublisher(cfg.Kafka.Broker, cfg.Kafka.Topic, logger)
	defer bus.Close()
	tg := notify.NewTelegram(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Telegram.RateLimit, logger)
	fanout := events.NewFanout(cfg.Drum.ID, hub, bus, tg, dbConn, logger)

	// Alert scheduler
	sounder := alarm.NewTerminal(hub, cfg.Drum.ID, logger)
	sched := scheduler.New(sctx, clk, sounder, fanout, logger,
		time.Duration(cfg.Scheduler.TickSeconds)*time.Second, cfg.Scheduler.AlertLeadSeconds)

	// Proof-of-action collaborators
	var up uploader.Uploader = uploader.Noop{}
	if cfg.S3.Bucket != "" {
		s3up, err := uploader.NewS3Uploader(ctx, cfg.S3.Region, cfg.S3.Endpoint,
			cfg.S3.AccessKey, cfg.S3.SecretKey, cfg.S3.Bucket, cfg.Drum.ID)
		if err != nil {
			log.Fatalf("S3 uploader init failed: %v", err)
		}
		up = s3up
	} else {
		logger.Warnf("No S3 bucket configured, proof uploads will fail until one is set")
	}
	cam := recorder.NewTerminalRecorder(cfg.Recorder.TerminalURL)
	mesClient := mes.NewHTTPClient(cfg.MES.BaseURL)

	// Poll loop
	life := lifecycle.New(mesClient, sctx, clk, sched, fanout, logger, cfg.Drum.ID,
		time.Duration(cfg.Scheduler.InspectionSeconds)*time.Second, cfg.Scheduler.MaxTimeRecord)

	proofSvc := proof.New(cam, up, dbConn, sched, mesClient, logger, cfg.Drum.ID, life.MaxTimeRecord)

	var wg sync.WaitGroup
	fanout.Start(ctx, &wg)
	sched.Start(ctx, &wg)
	life.Run(ctx, &wg)

	// Start API server
	handler := api.NewHandler(dbConn, logger, sctx, clk, life, proofSvc, hub, cfg.Drum.ID)
	router := api.NewRouter(logger, cfg, handler)
	go func() {
		logger.Infof("Starting API server on %s", cfg.API.Port)
		if err := router.Run(cfg.API.Port); err != nil {
			logger.Errorf("API server failed: %v", err)
		}
	}()

	// Handle graceful shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c
	logger.Infof("Shutting down...")
	cancel()
	wg.Wait()
	logger.Infof("Service stopped")
}
