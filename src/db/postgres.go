package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"wheelofmeals/src/types"
)

type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
}

func (c PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(ctx context.Context, cfg PostgresConfig) (*PostgresStore, error) {
	db, err := sql.Open("pgx", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("open postgres connection: %w", err)
	}

	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	store := &PostgresStore{db: db}
	if err := store.ensureSchema(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func (s *PostgresStore) SavePick(ctx context.Context, p types.Pick) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO picks (id, username, restaurant_id, name, address, price_display, rating,
			origin_lat, origin_lng, radius_meters, reason, picked_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO NOTHING`,
		p.ID, p.User, p.RestaurantID, p.Name, p.Address, p.PriceDisplay, p.Rating,
		p.Origin.Lat, p.Origin.Lng, p.RadiusMeters, p.Reason, p.PickedAt,
	)
	if err != nil {
		return fmt.Errorf("insert pick %s: %w", p.ID, err)
	}
	return nil
}

const pickColumns = `id, username, restaurant_id, name, address, price_display, rating,
	origin_lat, origin_lng, radius_meters, reason, picked_at`

func (s *PostgresStore) GetPicks(ctx context.Context, user string, limit, offset int) ([]types.Pick, int, error) {
	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM picks WHERE username = $1`, user).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count picks: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+pickColumns+`
		FROM picks
		WHERE username = $1
		ORDER BY picked_at DESC
		LIMIT $2 OFFSET $3`, user, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("select picks: %w", err)
	}
	picks, err := scanPicks(rows)
	if err != nil {
		return nil, 0, err
	}
	return picks, total, nil
}

// GetNearbyPicks orders by equirectangular distance, which is accurate enough at city scale.
func (s *PostgresStore) GetNearbyPicks(ctx context.Context, user string, origin types.GeoPoint, limit int) ([]types.Pick, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+pickColumns+`
		FROM picks
		WHERE username = $1
		ORDER BY power(origin_lat - $2, 2) + power((origin_lng - $3) * cos(radians($2)), 2)
		LIMIT $4`, user, origin.Lat, origin.Lng, limit)
	if err != nil {
		return nil, fmt.Errorf("select nearby picks: %w", err)
	}
	return scanPicks(rows)
}

func scanPicks(rows *sql.Rows) ([]types.Pick, error) {
	defer rows.Close()

	var picks []types.Pick
	for rows.Next() {
		var p types.Pick
		if err := rows.Scan(
			&p.ID, &p.User, &p.RestaurantID, &p.Name, &p.Address, &p.PriceDisplay, &p.Rating,
			&p.Origin.Lat, &p.Origin.Lng, &p.RadiusMeters, &p.Reason, &p.PickedAt,
		); err != nil {
			return nil, fmt.Errorf("scan pick: %w", err)
		}
		picks = append(picks, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate picks: %w", err)
	}
	return picks, nil
}

func (s *PostgresStore) ensureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS picks (
			id TEXT PRIMARY KEY,
			username TEXT NOT NULL,
			restaurant_id TEXT NOT NULL,
			name TEXT NOT NULL DEFAULT '',
			address TEXT NOT NULL DEFAULT '',
			price_display TEXT NOT NULL DEFAULT '',
			rating DOUBLE PRECISION NOT NULL DEFAULT 0,
			origin_lat DOUBLE PRECISION NOT NULL,
			origin_lng DOUBLE PRECISION NOT NULL,
			radius_meters DOUBLE PRECISION NOT NULL,
			reason TEXT NOT NULL,
			picked_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_picks_username_picked_at ON picks(username, picked_at DESC);
	`)
	if err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}
