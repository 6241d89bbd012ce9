// Package config reads service settings from the environment, optionally seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"wheelofmeals/src/db"
	"wheelofmeals/src/places"
)

const (
	BackendNone     = "none"
	BackendMemory   = "memory"
	BackendElastic  = "elastic"
	BackendPostgres = "postgres"
)

type Config struct {
	HTTPAddr     string
	TemplatePath string

	Places places.Config

	SigningKey []byte
	// Users maps user names to bcrypt password hashes.
	Users map[string]string

	JournalBackend string
	ElasticURL     string
	ElasticIndex   string
	Postgres       db.PostgresConfig
	KafkaBroker    string
	KafkaTopic     string

	LogLevel  string
	LogPretty bool
}

// Load applies the given .env files (".env" when none are named; a missing file is not
// an error) and then reads the process environment.
func Load(files ...string) (Config, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load env file: %w", err)
	}
	return FromLookup(os.LookupEnv)
}

func FromLookup(lookup func(string) (string, bool)) (Config, error) {
	e := env{lookup: lookup}

	cfg := Config{
		HTTPAddr:     e.str("HTTP_ADDR", ":8888"),
		TemplatePath: e.str("TEMPLATE_PATH", "./src/templates/template.html"),
		Places: places.Config{
			APIKey:         e.str("GOOGLE_PLACES_API_KEY", ""),
			Endpoint:       e.str("PLACES_ENDPOINT", places.DefaultEndpoint),
			PhotoBaseURL:   e.str("PLACES_PHOTO_BASE_URL", places.DefaultPhotoBaseURL),
			Timeout:        e.duration("PLACES_TIMEOUT", places.DefaultTimeout),
			PageSize:       e.integer("PLACES_PAGE_SIZE", places.DefaultPageSize),
			PhotoMaxWidth:  e.integer("PLACES_PHOTO_MAX_WIDTH", places.DefaultPhotoMaxPx),
			PhotoMaxHeight: e.integer("PLACES_PHOTO_MAX_HEIGHT", places.DefaultPhotoMaxPx),
		},
		SigningKey:     []byte(e.str("JWT_SIGNING_KEY", "")),
		Users:          e.users("AUTH_USERS"),
		JournalBackend: strings.ToLower(e.str("JOURNAL_BACKEND", BackendNone)),
		ElasticURL:     e.str("ELASTIC_URL", "http://localhost:9200"),
		ElasticIndex:   e.str("ELASTIC_INDEX", "picks"),
		Postgres: db.PostgresConfig{
			Host:     e.str("DB_HOST", "localhost"),
			Port:     e.integer("DB_PORT", 5432),
			User:     e.str("DB_USER", "wheelofmeals"),
			Password: e.str("DB_PASSWORD", "wheelofmeals"),
			Name:     e.str("DB_NAME", "wheelofmeals"),
			SSLMode:  e.str("DB_SSLMODE", "disable"),
		},
		KafkaBroker: e.str("KAFKA_BROKER", ""),
		KafkaTopic:  e.str("KAFKA_TOPIC", "picks"),
		LogLevel:    e.str("LOG_LEVEL", "info"),
		LogPretty:   e.boolean("LOG_PRETTY", false),
	}

	if len(e.errs) > 0 {
		return Config{}, errors.Join(e.errs...)
	}
	if len(cfg.SigningKey) == 0 {
		return Config{}, errors.New("JWT_SIGNING_KEY environment variable is not set")
	}
	switch cfg.JournalBackend {
	case BackendNone, BackendMemory:
		// Picks are kept in process memory only.
		cfg.JournalBackend = BackendMemory
	case BackendElastic, BackendPostgres:
	default:
		return Config{}, fmt.Errorf("JOURNAL_BACKEND %q is not one of none, memory, elastic, postgres", cfg.JournalBackend)
	}
	return cfg, nil
}

type env struct {
	lookup func(string) (string, bool)
	errs   []error
}

func (e *env) str(key, fallback string) string {
	if v, ok := e.lookup(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return fallback
}

func (e *env) integer(key string, fallback int) int {
	v := e.str(key, "")
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return n
}

func (e *env) boolean(key string, fallback bool) bool {
	v := e.str(key, "")
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return b
}

func (e *env) duration(key string, fallback time.Duration) time.Duration {
	v := e.str(key, "")
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return d
}

// users parses "name:hash,name:hash".
func (e *env) users(key string) map[string]string {
	users := make(map[string]string)
	for _, entry := range strings.Split(e.str(key, ""), ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		name, hash, ok := strings.Cut(entry, ":")
		if !ok || name == "" || hash == "" {
			e.errs = append(e.errs, fmt.Errorf("%s: malformed entry %q", key, entry))
			continue
		}
		users[name] = hash
	}
	return users
}
