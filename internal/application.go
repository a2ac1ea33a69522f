package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/rocketscienceinc/neon-tictactoe/internal/config"
	"github.com/rocketscienceinc/neon-tictactoe/internal/repository"
	"github.com/rocketscienceinc/neon-tictactoe/internal/repository/storage"
	"github.com/rocketscienceinc/neon-tictactoe/internal/service"
	"github.com/rocketscienceinc/neon-tictactoe/internal/transport/gemini"
	"github.com/rocketscienceinc/neon-tictactoe/internal/usecase"
	"github.com/rocketscienceinc/neon-tictactoe/transport/rest"
	"github.com/rocketscienceinc/neon-tictactoe/transport/websocket"
	"golang.org/x/sync/errgroup"
)

var ErrAddrNotFound = errors.New("redis address string is empty")

// RunApp - runs the application.
func RunApp(logger *slog.Logger, conf *config.Config) error {
	log := logger.With("component", "app")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	sessions, err := newSessionStorage(ctx, conf)
	if err != nil {
		return err
	}

	defer func() {
		if err := sessions.close(); err != nil {
			log.Error("could not close storage", "error", err)
		}
	}()

	generator, err := newGenerator(ctx, log, conf)
	if err != nil {
		return err
	}

	botService := service.NewBotService(logger, generator, conf.Bot.FallbackTaunt)
	hub := websocket.NewHub(logger)

	gameManager := usecase.NewGameManager(logger, sessions.repo, botService, hub, usecase.Options{
		MinThinkDelay: conf.Bot.MinThinkDelay,
		BotTimeout:    conf.Gemini.Timeout,
	})
	defer gameManager.Close()

	errg, ctx := errgroup.WithContext(ctx)

	if sessions.run != nil {
		errg.Go(func() error { return sessions.run(ctx) })
	}

	errg.Go(func() error {
		log.Info("Starting HTTP server", "port", conf.HTTPPort)

		router := rest.NewRouter(rest.NewHandlers(logger, gameManager))
		if err := rest.Start(ctx, conf.HTTPPort, router); err != nil {
			return fmt.Errorf("HTTP server error: %w", err)
		}

		return nil
	})

	errg.Go(func() error {
		log.Info("Starting WebSocket server", "port", conf.SocketPort)

		wsServer := websocket.New(logger, gameManager, hub)
		if err := wsServer.Start(ctx, conf.SocketPort); err != nil {
			return fmt.Errorf("WebSocket server error: %w", err)
		}

		return nil
	})

	err = errg.Wait()

	log.Info("Application stopped, shutting down")

	return err
}

type sessionStorage struct {
	repo  repository.SessionRepository
	run   func(ctx context.Context) error
	close func() error
}

func newSessionStorage(ctx context.Context, conf *config.Config) (*sessionStorage, error) {
	if conf.Storage == config.StorageMemory {
		memory := repository.NewMemorySessionRepository(conf.SessionTTL)

		return &sessionStorage{
			repo:  memory,
			run:   func(ctx context.Context) error { return memory.Run(ctx, conf.SessionSweep) },
			close: func() error { return nil },
		}, nil
	}

	if conf.Redis.Host == "" {
		return nil, ErrAddrNotFound
	}

	redisStorage, err := storage.NewRedisStorage(ctx, conf.Redis.GetRedisAddr())
	if err != nil {
		return nil, fmt.Errorf("could not connect to redis storage: %w", err)
	}

	return &sessionStorage{
		repo:  repository.NewSessionRepository(redisStorage, conf.SessionTTL),
		close: redisStorage.Close,
	}, nil
}

// newGenerator returns nil when no API key is configured, which makes the bot play fallback moves only.
func newGenerator(ctx context.Context, log *slog.Logger, conf *config.Config) (service.Generator, error) {
	if conf.Gemini.APIKey == "" {
		log.Warn("no API key configured, the bot will play random moves")
		return nil, nil
	}

	client, err := gemini.New(ctx, conf.Gemini.APIKey, conf.Gemini.Model)
	if err != nil {
		return nil, fmt.Errorf("could not create gemini client: %w", err)
	}

	log.Info("Gemini client ready", "model", client.Model())

	return client, nil
}
