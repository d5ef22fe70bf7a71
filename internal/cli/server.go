package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"puzzler-quiz-service/internal/app"
	"puzzler-quiz-service/internal/config"
	"puzzler-quiz-service/internal/domain"
	"puzzler-quiz-service/internal/infra/file"
	"puzzler-quiz-service/internal/infra/memory"
	pgsource "puzzler-quiz-service/internal/infra/postgres"
	redisinfra "puzzler-quiz-service/internal/infra/redis"
	transport "puzzler-quiz-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz engine server",
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

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}
	redisTTL := config.TTLDuration(cfg.Redis.TTL, 10*time.Minute)

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
	}

	var source memory.PuzzleSource = memory.NewStaticPuzzleSource(samplePuzzles())
	switch {
	case pool != nil:
		source = pgsource.NewPuzzleSource(pool)
	case cfg.Catalog.PackPath != "":
		source = file.NewPuzzleSource(cfg.Catalog.PackPath)
	}

	catalogTTL := config.TTLDuration(cfg.Catalog.TTL, 10*time.Minute)
	var catalogs app.CatalogRepository
	if redisClient != nil {
		catalogs = redisinfra.NewCatalogRepository(redisClient, source, catalogTTL)
	} else {
		catalogs = memory.NewCatalogCache(source, catalogTTL)
	}

	var store app.SessionRepository
	if redisClient != nil {
		store = redisinfra.NewSessionStore(redisClient, redisTTL)
	} else {
		store = memory.NewSessionStore()
	}

	inactivity := config.TTLDuration(cfg.Session.InactivityTimeout, 30*time.Minute)
	sweepEvery := config.TTLDuration(cfg.Session.SweepInterval, time.Minute)
	service := app.NewQuizService(store, catalogs, inactivity, nil)
	wsHandler := transport.NewWSHandler(service)

	// Fail fast on a bad catalog instead of at the first request.
	if _, err := catalogs.Catalog(ctx); err != nil {
		return err
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws", wsHandler.ServeWS)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	sweeperDone := make(chan struct{})
	sweeperStop := make(chan struct{})
	go func() {
		defer close(sweeperDone)
		ticker := time.NewTicker(sweepEvery)
		defer ticker.Stop()
		for {
			select {
			case now := <-ticker.C:
				if n := service.SweepExpired(now); n > 0 {
					log.Printf("expired %d idle sessions", n)
				}
			case <-sweeperStop:
				return
			}
		}
	}()

	go func() {
		log.Printf("starting puzzler quiz engine on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	close(sweeperStop)
	<-sweeperDone

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// samplePuzzles is a minimal built-in pack; point catalog.packPath or
// postgres.url at real content in production.
func samplePuzzles() []domain.Puzzle {
	return []domain.Puzzle{
		{
			ID:       "smart-cast-thread",
			Category: "concurrency",
			Prompt: "var obj: Any = \"Kotlin\"\n" +
				"if (obj is String) {\n" +
				"    Thread { obj = 42 }.start()\n" +
				"    println(obj.length)\n" +
				"}",
			Choices:     []string{"prints 6", "throws ClassCastException", "prints 42", "will not compile"},
			Correct:     []int{3},
			Explanation: "The smart cast is rejected: obj is captured by a closure that mutates it.",
		},
		{
			ID:       "foreach-return",
			Category: "basics",
			Prompt: "val items = listOf(1.0, 2.0, 3.0)\n" +
				"items.forEach {\n" +
				"    if (it == 3.0) return\n" +
				"    print(\"%.0f\".format(it))\n" +
				"}\n" +
				"print(\"done\")",
			Choices:     []string{"123done", "12done", "12", "will not compile"},
			Correct:     []int{2},
			Explanation: "return inside the lambda is non-local: it exits the enclosing function before \"done\".",
		},
		{
			ID:          "valid-operators",
			Category:    "operators",
			Prompt:      "Which of these can be declared as operator functions?",
			Choices:     []string{"plus", "equals", "times"},
			Correct:     []int{0, 1, 2},
			MultiSelect: true,
			Explanation: "All three are in the operator convention set.",
		},
	}
}
