package database

import (
	"testing"
	"time"

	"github.com/arklim/account-service/internal/infra/config"
)

func TestPoolConfigAppliesSettings(t *testing.T) {
	pc, err := PoolConfig(config.PostgresSettings{
		Host:            "db",
		Port:            5432,
		User:            "account",
		Password:        "pw",
		Database:        "accounts",
		SSLMode:         "disable",
		Schema:          "account",
		MaxConns:        7,
		MaxConnLifetime: 10 * time.Minute,
	})
	if err != nil {
		t.Fatalf("PoolConfig returned error: %v", err)
	}

	if pc.MaxConns != 7 {
		t.Fatalf("expected max conns 7, got %d", pc.MaxConns)
	}
	if pc.MaxConnLifetime != 10*time.Minute {
		t.Fatalf("expected lifetime 10m, got %v", pc.MaxConnLifetime)
	}
	if got := pc.ConnConfig.RuntimeParams["search_path"]; got != "account,public" {
		t.Fatalf("unexpected search_path %q", got)
	}
	if pc.ConnConfig.Host != "db" || pc.ConnConfig.Database != "accounts" {
		t.Fatalf("unexpected connection target %s/%s", pc.ConnConfig.Host, pc.ConnConfig.Database)
	}
}

func TestPoolConfigKeepsDefaultsForZeroValues(t *testing.T) {
	pc, err := PoolConfig(config.PostgresSettings{Host: "db", Port: 5432, User: "u", Database: "d", SSLMode: "disable"})
	if err != nil {
		t.Fatalf("PoolConfig returned error: %v", err)
	}

	if pc.MaxConns <= 0 {
		t.Fatalf("expected pgx default max conns, got %d", pc.MaxConns)
	}
	if _, ok := pc.ConnConfig.RuntimeParams["search_path"]; ok {
		t.Fatalf("search_path should stay unset without a schema")
	}
}

func TestPoolConfigAcceptsReservedCharactersInPassword(t *testing.T) {
	pc, err := PoolConfig(config.PostgresSettings{
		Host:     "db",
		Port:     5432,
		User:     "account",
		Password: "p@ss/w?rd#1",
		Database: "accounts",
		SSLMode:  "disable",
	})
	if err != nil {
		t.Fatalf("PoolConfig returned error: %v", err)
	}
	if pc.ConnConfig.Password != "p@ss/w?rd#1" || pc.ConnConfig.Host != "db" {
		t.Fatalf("unexpected connection config %s@%s", pc.ConnConfig.User, pc.ConnConfig.Host)
	}
}
