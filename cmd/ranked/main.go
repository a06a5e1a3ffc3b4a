package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/docopt/docopt-go"
	"github.com/rs/zerolog"

	"github.com/alphabot-ai/ranked/internal/api"
	"github.com/alphabot-ai/ranked/internal/auth"
	"github.com/alphabot-ai/ranked/internal/config"
	"github.com/alphabot-ai/ranked/internal/logging"
	"github.com/alphabot-ai/ranked/internal/moderation"
	"github.com/alphabot-ai/ranked/internal/notify"
	"github.com/alphabot-ai/ranked/internal/push"
	"github.com/alphabot-ai/ranked/internal/ratelimit"
	"github.com/alphabot-ai/ranked/internal/social"
	"github.com/alphabot-ai/ranked/internal/store"
)

const RankedVersion = "0.1.0"

func main() {
	usage := `Ranked backend.

Configuration is read from the file named by RANKED_CONFIG, then from the
environment.

Usage:
    ranked serve
    ranked repair
    ranked token <uid> [--ttl=<ttl>]

Options:
    -h --help      Show this screen.
    --version      Show version.
    --ttl=<ttl>    Token lifetime [default: 24h].`

	opts, err := docopt.ParseArgs(usage, os.Args[1:], RankedVersion)
	if err != nil {
		panic(err)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log, err := logging.New().Level(cfg.LogLevel).Format(cfg.LogFormat).Make()
	if err != nil {
		fmt.Fprintf(os.Stderr, "logging: %v\n", err)
		os.Exit(1)
	}

	if serve_, _ := opts.Bool("serve"); serve_ {
		serve(cfg, log)
	} else if repair_, _ := opts.Bool("repair"); repair_ {
		repair(cfg, log)
	} else if token_, _ := opts.Bool("token"); token_ {
		token(cfg, log, opts)
	}
}

type app struct {
	store    *store.SQLiteStore
	social   *social.Service
	filter   *moderation.Filter
	verifier *auth.Verifier
}

func newApp(cfg *config.Config, log zerolog.Logger) *app {
	sqliteStore, err := store.NewSQLiteStore(cfg.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DatabasePath).Msg("failed to initialize database")
	}

	var relay push.Relay = push.Discard{}
	if cfg.PushEndpoint != "" {
		relay = push.NewHTTPRelay(cfg.PushEndpoint, cfg.PushTimeout)
	}

	verifier, err := auth.NewVerifier(cfg.TokenSecret, cfg.TokenIssuer, cfg.TokenAudience)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize token verifier")
	}

	notifier := notify.New(sqliteStore, relay, log)
	filter := moderation.NewFilter(log)

	return &app{
		store:    sqliteStore,
		social:   social.NewService(sqliteStore, notifier, filter, log),
		filter:   filter,
		verifier: verifier,
	}
}

func serve(cfg *config.Config, log zerolog.Logger) {
	a := newApp(cfg, log)
	defer a.store.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.FilterWordsPath != "" {
		if err := a.filter.Watch(ctx, cfg.FilterWordsPath); err != nil {
			log.Fatal().Err(err).Str("path", cfg.FilterWordsPath).Msg("failed to load filter words")
		}
	}

	limiter := ratelimit.NewMemoryLimiter()
	go limiter.RunCleanup(ctx, 5*time.Minute)

	policy := ratelimit.NewPolicy(limiter, cfg.RateLimitWindow, map[ratelimit.Action]int{
		ratelimit.ActionFollow:  cfg.FollowRateLimit,
		ratelimit.ActionReact:   cfg.ReactionRateLimit,
		ratelimit.ActionComment: cfg.CommentRateLimit,
		ratelimit.ActionRanking: cfg.RankingRateLimit,
		ratelimit.ActionReport:  cfg.ReportRateLimit,
	})

	apiHandler := api.NewHandler(a.social, a.store, a.verifier, policy, cfg, log)
	mux := http.NewServeMux()
	apiHandler.Register(mux)

	addr := cfg.Addr()
	log.Info().Str("addr", addr).Str("version", RankedVersion).Msg("starting ranked")

	server := &http.Server{
		Addr:         addr,
		Handler:      api.LogRequests(log)(mux),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server error")
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	// Give outstanding requests 30 seconds to complete
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}

// repair runs the follower list sweep once and prints the report.
func repair(cfg *config.Config, log zerolog.Logger) {
	a := newApp(cfg, log)
	defer a.store.Close()

	report, err := a.social.CleanupFollowerCounts(context.Background())
	if err != nil {
		log.Fatal().Err(err).Msg("repair failed")
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.Encode(report)
}

// token prints a signed identity token, for local testing against a server
// that shares the same secret.
func token(cfg *config.Config, log zerolog.Logger, opts docopt.Opts) {
	uid, _ := opts.String("<uid>")
	ttlStr, _ := opts.String("--ttl")
	ttl, err := time.ParseDuration(ttlStr)
	if err != nil {
		log.Fatal().Err(err).Str("ttl", ttlStr).Msg("invalid ttl")
	}

	verifier, err := auth.NewVerifier(cfg.TokenSecret, cfg.TokenIssuer, cfg.TokenAudience)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize token verifier")
	}
	signed, err := verifier.Issue(uid, ttl)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to sign token")
	}
	fmt.Println(signed)
}
