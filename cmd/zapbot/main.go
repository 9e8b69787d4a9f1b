package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"zapbot/internal/bus"
	"zapbot/internal/config"
	"zapbot/internal/engine"
	"zapbot/internal/logging"
	"zapbot/internal/server"
	"zapbot/internal/wa"
)

const (
	messageLogCap = 200
	replyLogCap   = 100

	startRetryInterval = 5 * time.Second
)

func main() {
	_ = godotenv.Load()
	logging.Init(os.Getenv("LOG_LEVEL"))
	log := logging.Named("main")

	port := envOr("PORT", "3000")
	dbURI := envOr("ZAPBOT_DB", "file:zapbot.db?_foreign_keys=on")
	cfgDir := envOr("ZAPBOT_CONFIG_DIR", ".")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	manager := config.NewManager(cfgDir, logging.Named("config"))
	observers := bus.New(logging.Named("bus"))

	guard := engine.NewLoopGuard(engine.DefaultLoopGuardTTL)
	go guard.Run(ctx, engine.DefaultLoopGuardTTL)

	messages := engine.NewLog[engine.MessageRecord](messageLogCap)
	replies := engine.NewLog[engine.ReplyRecord](replyLogCap)

	session := wa.NewSession(dbURI, observers, logging.Named("session"))
	pipeline := engine.NewPipeline(engine.Deps{
		Store:    manager,
		Gateway:  session,
		Matcher:  engine.NewMatcher(logging.Named("matcher")),
		Guard:    guard,
		Messages: messages,
		Replies:  replies,
		Bus:      observers,
		Log:      logging.Named("pipeline"),
	})
	session.SetPipeline(pipeline)

	srv := server.New(":"+port, server.Deps{
		Manager:   manager,
		Bot:       session,
		Bus:       observers,
		Messages:  messages,
		Replies:   replies,
		StaticDir: "public",
		Log:       logging.Named("server"),
	})

	// Bring the session up with the server; keep retrying so a flaky first
	// connect does not require a manual dashboard start.
	go func() {
		for {
			err := session.Start(ctx)
			if err == nil || err == wa.ErrAlreadyRunning {
				return
			}
			log.Error().Err(err).Dur("retry_in", startRetryInterval).Msg("session start failed")
			select {
			case <-ctx.Done():
				return
			case <-time.After(startRetryInterval):
			}
		}
	}()

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Run() }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info().Str("signal", sig.String()).Msg("shutting down")
	case err := <-errCh:
		if err != nil {
			log.Error().Err(err).Msg("server failed")
		}
	}

	cancel()
	session.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown failed")
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
