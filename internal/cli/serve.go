package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"quizlive/internal/config"
	"quizlive/internal/domain"
	"quizlive/internal/engine"
	"quizlive/internal/infra/memory"
	"quizlive/internal/infra/postgres"
	infraredis "quizlive/internal/infra/redis"
	"quizlive/internal/pubsub"
	transport "quizlive/internal/transport/http"
)

// NewServeCmd builds the CLI subcommand to start the server.
func NewServeCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the live quiz server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger := newLogger(cfg.Log.Level)

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var redisClient *goredis.Client
	if cfg.Redis.Addr != "" {
		redisClient = goredis.NewClient(&goredis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
	}

	var store engine.SessionStore
	var loader interface {
		LoadContent(ctx context.Context, gameID string) (domain.GameContent, error)
	}
	if pool != nil {
		store = postgres.NewRecordStore(pool)
		loader = postgres.NewContentLoader(pool)
	} else {
		memStore := memory.NewRecordStore()
		seedDemo(memStore)
		store = memStore
		loader = memory.NewStaticContentLoader(demoContent())
	}

	contentTTL := config.Duration(cfg.Content.TTL, 10*time.Minute)
	var content engine.ContentRepository
	if redisClient != nil {
		content = infraredis.NewContentRepository(redisClient, loader, contentTTL)
	} else {
		content = memory.NewContentRepository(loader, contentTTL)
	}

	var broker pubsub.Broker
	if redisClient != nil {
		broker = infraredis.NewBroker(redisClient, logger)
	} else {
		broker = memory.NewBroker()
	}

	orch := engine.New(store, content, broker, engine.Config{
		LeaderboardWindow: config.Duration(cfg.Session.LeaderboardWindow, engine.DefaultLeaderboardWindow),
		Logger:            logger,
	})
	defer orch.Close()

	wsHandler := transport.NewWSHandler(orch, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws/host", wsHandler.ServeHost)
	mux.HandleFunc("/ws/play", wsHandler.ServePlay)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		logger.Info().Str("port", finalPort).Msg("starting quizlive server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		logger.Info().Msg("shutting down server")
	case <-ctx.Done():
		logger.Info().Msg("context canceled, shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(os.Stdout).Level(lvl).With().Timestamp().Logger()
}

// seedDemo makes the no-database mode playable out of the box.
func seedDemo(store *memory.RecordStore) {
	store.SeedSession(domain.Session{
		ID:     "session-1",
		GameID: "game-1",
		Status: domain.StatusPending,
	})
}

func demoContent() map[string]domain.GameContent {
	return map[string]domain.GameContent{
		"game-1": {
			Game: domain.Game{
				ID:       "game-1",
				Title:    "Warm-up Trivia",
				Settings: domain.GameSettings{TimeLimit: 30},
			},
			Questions: []domain.Question{
				{
					ID:     "q1",
					GameID: "game-1",
					Index:  0,
					Prompt: "What is 2 + 2?",
					Type:   domain.QuestionMultipleChoice,
					Choices: []domain.Choice{
						{ID: "c1", Text: "3"},
						{ID: "c2", Text: "4"},
						{ID: "c3", Text: "5"},
					},
				},
				{
					ID:     "q2",
					GameID: "game-1",
					Index:  1,
					Prompt: "Match each capital to its country",
					Type:   domain.QuestionMatching,
					Choices: []domain.Choice{
						{ID: "paris", Text: "Paris"},
						{ID: "rome", Text: "Rome"},
					},
				},
			},
			Answers: []domain.ReferenceAnswer{
				{QuestionID: "q1", CorrectChoiceID: "c2"},
			},
		},
	}
}
