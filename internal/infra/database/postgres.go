package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/arklim/account-service/internal/infra/config"
)

// PoolConfig translates settings into a pgx pool config. Zero values keep
// the pgx defaults. A non-empty schema goes first on search_path.
func PoolConfig(cfg config.PostgresSettings) (*pgxpool.Config, error) {
	pc, err := pgxpool.ParseConfig(cfg.DSN("postgres"))
	if err != nil {
		return nil, fmt.Errorf("parse pgx pool config: %w", err)
	}

	setIfPositive(&pc.MaxConns, cfg.MaxConns)
	setIfPositive(&pc.MinConns, cfg.MinConns)
	setIfPositive(&pc.MaxConnLifetime, cfg.MaxConnLifetime)
	setIfPositive(&pc.MaxConnIdleTime, cfg.MaxConnIdleTime)
	setIfPositive(&pc.HealthCheckPeriod, cfg.HealthCheckPeriod)

	if cfg.Schema != "" {
		if pc.ConnConfig.RuntimeParams == nil {
			pc.ConnConfig.RuntimeParams = map[string]string{}
		}
		pc.ConnConfig.RuntimeParams["search_path"] = cfg.Schema + ",public"
	}
	return pc, nil
}

func setIfPositive[T ~int32 | ~int64](dst *T, v T) {
	if v > 0 {
		*dst = v
	}
}

func NewPostgresPool(ctx context.Context, cfg config.PostgresSettings, log *zap.Logger) (*pgxpool.Pool, error) {
	pc, err := PoolConfig(cfg)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	log.Info("connected to postgres",
		zap.String("host", cfg.Host),
		zap.Int("port", cfg.Port),
		zap.String("database", cfg.Database),
		zap.String("schema", cfg.Schema),
		zap.Int32("max_conns", pc.MaxConns),
	)
	return pool, nil
}

// EnsureSchema creates the configured schema so migrations land inside it.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool, schema string) error {
	if schema == "" {
		return nil
	}
	if _, err := pool.Exec(ctx, "CREATE SCHEMA IF NOT EXISTS "+pgx.Identifier{schema}.Sanitize()); err != nil {
		return fmt.Errorf("create schema %s: %w", schema, err)
	}
	return nil
}
