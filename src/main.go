package main

import (
	"context"
	"errors"
	"html/template"
	"net/http"
	"os"
	"time"
	_ "time/tzdata"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	"wheelofmeals/src/config"
	"wheelofmeals/src/db"
	"wheelofmeals/src/graceful"
	"wheelofmeals/src/handlers"
	"wheelofmeals/src/places"
	"wheelofmeals/src/session"
	"wheelofmeals/src/token"
	"wheelofmeals/src/types"
)

const (
	shutdownTimeout = 10 * time.Second
	evictInterval   = 5 * time.Minute
)

func main() {
	log := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}
	log = newLogger(cfg)

	ctx, cancel := graceful.Context(context.Background(), log)
	defer cancel()

	journal, closeJournal, err := openJournal(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Str("backend", cfg.JournalBackend).Msg("Could not open pick journal")
	}
	defer closeJournal()

	if cfg.Places.APIKey == "" {
		log.Warn().Msg("GOOGLE_PLACES_API_KEY is not set, every search will fail with a config error")
	}
	client := places.New(cfg.Places, places.WithLogger(log))
	registry := session.NewRegistry(client, log.With().Str("component", "session").Logger())
	go registry.RunEviction(ctx, evictInterval, session.DefaultIdleTimeout)

	tmpl, err := handlers.LoadTemplate(cfg.TemplatePath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.TemplatePath).Msg("Could not load template")
	}

	issuer := token.NewIssuer(cfg.SigningKey, cfg.Users)
	if len(cfg.Users) == 0 {
		log.Warn().Msg("AUTH_USERS is empty, nobody can obtain a token")
	}

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handleKit(log, registry, journal, tmpl, issuer),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Shutdown did not complete")
		}
	}()

	log.Info().Str("addr", cfg.HTTPAddr).Str("journal", cfg.JournalBackend).Msg("Server started")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error().Err(err).Msg("Server failed")
		return
	}
	log.Info().Msg("Server stopped")
}

func newLogger(cfg config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	out := zerolog.New(os.Stdout)
	if cfg.LogPretty {
		out = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen})
	}
	return out.Level(level).With().Timestamp().Logger()
}

// openJournal connects the configured pick store and, when a Kafka broker is set,
// fans picks out to it as well.
func openJournal(ctx context.Context, cfg config.Config, log zerolog.Logger) (types.PickStore, func(), error) {
	var (
		store   types.PickStore
		closers []func()
	)

	switch cfg.JournalBackend {
	case config.BackendElastic:
		es, err := db.NewElasticStore(cfg.ElasticURL, cfg.ElasticIndex, log)
		if err != nil {
			return nil, nil, err
		}
		if err := es.EnsureIndex(ctx); err != nil {
			es.Stop()
			return nil, nil, err
		}
		store = es
		closers = append(closers, es.Stop)
	case config.BackendPostgres:
		pg, err := db.NewPostgresStore(ctx, cfg.Postgres)
		if err != nil {
			return nil, nil, err
		}
		store = pg
		closers = append(closers, func() {
			if err := pg.Close(); err != nil {
				log.Warn().Err(err).Msg("Closing postgres")
			}
		})
	default:
		store = db.NewMemoryStore(db.DefaultMemoryLimit)
	}

	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	if cfg.KafkaBroker == "" {
		return store, closeAll, nil
	}

	sink := db.NewKafkaSink(cfg.KafkaBroker, cfg.KafkaTopic)
	closers = append(closers, func() {
		if err := sink.Close(); err != nil {
			log.Warn().Err(err).Msg("Closing kafka writer")
		}
	})
	log.Info().Str("broker", cfg.KafkaBroker).Str("topic", cfg.KafkaTopic).Msg("Publishing picks to kafka")
	return db.Tee(store, sink), closeAll, nil
}

func handleKit(log zerolog.Logger, registry *session.Registry, journal types.PickStore, tmpl *template.Template, issuer *token.Issuer) http.Handler {
	mux := http.NewServeMux()
	handlers.New(registry, journal, tmpl).Register(mux, issuer)

	var h http.Handler = mux
	h = hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
		hlog.FromRequest(r).Info().
			Str("method", r.Method).
			Stringer("url", r.URL).
			Int("status", status).
			Int("size", size).
			Dur("duration", duration).
			Msg("Request")
	})(h)
	h = hlog.RemoteAddrHandler("ip")(h)
	h = hlog.RequestIDHandler("req_id", "Request-Id")(h)
	h = hlog.NewHandler(log)(h)
	return h
}
