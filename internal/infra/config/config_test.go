package config

import (
	"net/url"
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("ACCOUNT_APP_ENV", "development")
	t.Setenv("ACCOUNT_SEARCH_SYNC_POLICY", "strict")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Search.SyncPolicy != "strict" {
		t.Fatalf("expected strict sync policy, got %q", cfg.Search.SyncPolicy)
	}
	if cfg.Account.PictureMaxSize != 3*1024*1024 {
		t.Fatalf("expected 3MiB picture limit, got %d", cfg.Account.PictureMaxSize)
	}
	if cfg.Postgres.MaxConnLifetime <= 0 {
		t.Fatalf("expected a positive connection lifetime, got %v", cfg.Postgres.MaxConnLifetime)
	}
	if cfg.Argon2.KeyLength == 0 || cfg.Argon2.SaltLength == 0 {
		t.Fatalf("expected argon2 defaults, got %+v", cfg.Argon2)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("ACCOUNT_APP_PORT", "9090")
	t.Setenv("ACCOUNT_SEARCH_SYNC_POLICY", "lenient")
	t.Setenv("ACCOUNT_RATE_LIMIT_WINDOW_DURATION", "2m")
	t.Setenv("ACCOUNT_APP_ENV", "development")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.App.Port != 9090 {
		t.Fatalf("expected port 9090, got %d", cfg.App.Port)
	}
	if cfg.Search.SyncPolicy != "lenient" {
		t.Fatalf("expected lenient sync policy, got %q", cfg.Search.SyncPolicy)
	}
	if cfg.RateLimit.WindowDuration != 2*time.Minute {
		t.Fatalf("expected 2m window, got %v", cfg.RateLimit.WindowDuration)
	}
}

func TestLoadRejectsUnknownSyncPolicy(t *testing.T) {
	t.Setenv("ACCOUNT_SEARCH_SYNC_POLICY", "eventually")

	if _, err := Load(); err == nil || !strings.Contains(err.Error(), "sync_policy") {
		t.Fatalf("expected sync_policy error, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name    string
		cfg     AppConfig
		wantErr bool
	}{
		{
			name: "development without signing key",
			cfg: AppConfig{
				App:    AppSettings{Env: "development"},
				Search: SearchSettings{SyncPolicy: "strict"},
			},
		},
		{
			name: "production without signing key",
			cfg: AppConfig{
				App:    AppSettings{Env: "production"},
				Search: SearchSettings{SyncPolicy: "lenient"},
			},
			wantErr: true,
		},
		{
			name: "production with signing key",
			cfg: AppConfig{
				App:    AppSettings{Env: "production"},
				Search: SearchSettings{SyncPolicy: "strict"},
				JWT:    JWTSettings{SigningKey: "secret"},
			},
		},
		{
			name: "empty sync policy",
			cfg: AppConfig{
				App: AppSettings{Env: "development"},
			},
			wantErr: true,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate()
			if tc.wantErr && err == nil {
				t.Fatalf("expected error")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestPostgresDSN(t *testing.T) {
	s := PostgresSettings{
		Host:     "db",
		Port:     5433,
		User:     "account",
		Password: "pw",
		Database: "accounts",
		SSLMode:  "disable",
	}

	got := s.DSN("pgx5")
	want := "pgx5://account:pw@db:5433/accounts?sslmode=disable"
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestPostgresDSNEscapesCredentials(t *testing.T) {
	s := PostgresSettings{
		Host:     "db",
		Port:     5432,
		User:     "svc@accounts",
		Password: "p@ss/w?rd#1:x",
		Database: "accounts",
		SSLMode:  "require",
	}

	u, err := url.Parse(s.DSN("postgres"))
	if err != nil {
		t.Fatalf("DSN does not parse: %v", err)
	}
	pw, _ := u.User.Password()
	if u.User.Username() != s.User || pw != s.Password {
		t.Fatalf("credentials did not round-trip: %q / %q", u.User.Username(), pw)
	}
	if u.Host != "db:5432" || u.Path != "/accounts" || u.Query().Get("sslmode") != "require" {
		t.Fatalf("unexpected DSN target %s", u.Redacted())
	}
}
