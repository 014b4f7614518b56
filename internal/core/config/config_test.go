package config

import (
	"os"
	"testing"
	"time"
)

func TestHMACSecrets(t *testing.T) {
	// Clean environment
	os.Unsetenv("PK_HMAC_SECRET")
	os.Unsetenv("PK_HMAC_SECRET_1")
	os.Unsetenv("PK_HMAC_SECRET_2")

	t.Run("single secret", func(t *testing.T) {
		os.Setenv("PK_HMAC_SECRET", "0123456789abcdef0123456789abcdef:dGVzdHNlY3JldDEyMzQ1Njc4OTBhYmNkZWZnaGlqa2xtbm9w")
		defer os.Unsetenv("PK_HMAC_SECRET")

		secrets, err := HMACSecrets()
		if err != nil {
			t.Fatalf("HMACSecrets failed: %v", err)
		}
		if len(secrets) != 1 {
			t.Errorf("expected 1 secret, got %d", len(secrets))
		}
		if _, ok := secrets["0123456789abcdef0123456789abcdef"]; !ok {
			t.Errorf("secret_id not found in map")
		}
	})

	t.Run("multiple numbered secrets", func(t *testing.T) {
		os.Setenv("PK_HMAC_SECRET_1", "0123456789abcdef0123456789abcdef:dGVzdHNlY3JldDEyMzQ1Njc4OTBhYmNkZWZnaGlqa2xtbm9w")
		os.Setenv("PK_HMAC_SECRET_2", "fedcba9876543210fedcba9876543210:YW5vdGhlcnNlY3JldDEyMzQ1Njc4OTBhYmNkZWZnaGlqa2xtbm9w")
		defer os.Unsetenv("PK_HMAC_SECRET_1")
		defer os.Unsetenv("PK_HMAC_SECRET_2")

		secrets, err := HMACSecrets()
		if err != nil {
			t.Fatalf("HMACSecrets failed: %v", err)
		}
		if len(secrets) != 2 {
			t.Errorf("expected 2 secrets, got %d", len(secrets))
		}
	})

	t.Run("invalid format", func(t *testing.T) {
		os.Setenv("PK_HMAC_SECRET", "invalid_format")
		defer os.Unsetenv("PK_HMAC_SECRET")

		_, err := HMACSecrets()
		if err == nil {
			t.Error("expected error for invalid format")
		}
	})

	t.Run("invalid secret_id length", func(t *testing.T) {
		os.Setenv("PK_HMAC_SECRET", "short:dGVzdHNlY3JldDEyMzQ1Njc4OTBhYmNkZWZnaGlqa2xtbm9w")
		defer os.Unsetenv("PK_HMAC_SECRET")

		_, err := HMACSecrets()
		if err == nil {
			t.Error("expected error for short secret_id")
		}
	})

	t.Run("non-hex secret_id", func(t *testing.T) {
		os.Setenv("PK_HMAC_SECRET", "0123456789abcdefGHIJKLMNOPQRSTUV:dGVzdHNlY3JldDEyMzQ1Njc4OTBhYmNkZWZnaGlqa2xtbm9w")
		defer os.Unsetenv("PK_HMAC_SECRET")

		_, err := HMACSecrets()
		if err == nil {
			t.Error("expected error for non-hex secret_id")
		}
	})

	t.Run("duplicate secret_id in numbered secrets", func(t *testing.T) {
		os.Setenv("PK_HMAC_SECRET_1", "0123456789abcdef0123456789abcdef:dGVzdHNlY3JldDEyMzQ1Njc4OTBhYmNkZWZnaGlqa2xtbm9w")
		os.Setenv("PK_HMAC_SECRET_2", "0123456789abcdef0123456789abcdef:YW5vdGhlcnNlY3JldDEyMzQ1Njc4OTBhYmNkZWZnaGlqa2xtbm9w")
		defer os.Unsetenv("PK_HMAC_SECRET_1")
		defer os.Unsetenv("PK_HMAC_SECRET_2")

		_, err := HMACSecrets()
		if err == nil {
			t.Error("expected error for duplicate secret_id")
		}
	})

	t.Run("duplicate secret_id between single and numbered", func(t *testing.T) {
		os.Setenv("PK_HMAC_SECRET", "0123456789abcdef0123456789abcdef:dGVzdHNlY3JldDEyMzQ1Njc4OTBhYmNkZWZnaGlqa2xtbm9w")
		os.Setenv("PK_HMAC_SECRET_1", "0123456789abcdef0123456789abcdef:YW5vdGhlcnNlY3JldDEyMzQ1Njc4OTBhYmNkZWZnaGlqa2xtbm9w")
		defer os.Unsetenv("PK_HMAC_SECRET")
		defer os.Unsetenv("PK_HMAC_SECRET_1")

		_, err := HMACSecrets()
		if err == nil {
			t.Error("expected error for duplicate secret_id between PK_HMAC_SECRET and PK_HMAC_SECRET_1")
		}
	})
}

func TestLoadConfig(t *testing.T) {
	// Clean environment
	os.Unsetenv("PK_API_HOST")
	os.Unsetenv("PK_API_PORT")

	t.Run("defaults", func(t *testing.T) {
		cfg, err := LoadConfig("")
		if err != nil {
			t.Fatalf("LoadConfig failed: %v", err)
		}
		if cfg.API.Host != "0.0.0.0" {
			t.Errorf("expected host 0.0.0.0, got %s", cfg.API.Host)
		}
		if cfg.API.Port != 50051 {
			t.Errorf("expected port 50051, got %d", cfg.API.Port)
		}
		if cfg.API.MetricsPort != 9090 {
			t.Errorf("expected metrics_port 9090, got %d", cfg.API.MetricsPort)
		}
		if cfg.API.MaxConnections != 1000 {
			t.Errorf("expected max_connections 1000, got %d", cfg.API.MaxConnections)
		}
		if cfg.API.RequestTimeout != 30*time.Second {
			t.Errorf("expected timeout 30s, got %v", cfg.API.RequestTimeout)
		}
		if cfg.API.DataDir != "./data" {
			t.Errorf("expected data_dir ./data, got %s", cfg.API.DataDir)
		}
		if cfg.Database.URL != "" {
			t.Errorf("expected empty database url, got %s", cfg.Database.URL)
		}
		if cfg.Log.Level != "info" || cfg.Log.Format != "json" {
			t.Errorf("expected info/json logging, got %s/%s", cfg.Log.Level, cfg.Log.Format)
		}
		if cfg.Tracing.Enabled {
			t.Error("expected tracing disabled")
		}
	})

	t.Run("environment override", func(t *testing.T) {
		t.Setenv("PK_API_PORT", "9999")
		t.Setenv("PK_API_HOST", "127.0.0.1")
		t.Setenv("PK_DATABASE_URL", "sqlite://promo.db")
		t.Setenv("PK_LOG_LEVEL", "DEBUG")

		cfg, err := LoadConfig("")
		if err != nil {
			t.Fatalf("LoadConfig failed: %v", err)
		}
		if cfg.API.Port != 9999 {
			t.Errorf("expected port 9999, got %d", cfg.API.Port)
		}
		if cfg.API.Host != "127.0.0.1" {
			t.Errorf("expected host 127.0.0.1, got %s", cfg.API.Host)
		}
		if cfg.Database.URL != "sqlite://promo.db" {
			t.Errorf("expected database url sqlite://promo.db, got %s", cfg.Database.URL)
		}
		if cfg.Log.Level != "debug" {
			t.Errorf("expected log level debug, got %s", cfg.Log.Level)
		}
	})

	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"invalid port range", "PK_API_PORT", "70000"},
		{"invalid negative values", "PK_API_MAX_CONNECTIONS", "-1"},
		{"invalid timeout", "PK_API_REQUEST_TIMEOUT", "0s"},
		{"invalid log format", "PK_LOG_FORMAT", "xml"},
		{"invalid database url", "PK_DATABASE_URL", "not a url"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			if _, err := LoadConfig(""); err == nil {
				t.Errorf("expected error for %s=%s", tt.key, tt.value)
			}
		})
	}

}

func TestValidate(t *testing.T) {
	cfg := Default()
	if err := Validate(cfg); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}

	cfg.API.Port = 0
	if err := Validate(cfg); err == nil {
		t.Error("expected error for port 0")
	}
}

func TestValidate_DatabaseURL(t *testing.T) {
	tests := []struct {
		url     string
		wantErr bool
	}{
		{"", false},
		{"sqlite://promo.db", false},
		{"sqlite://data/promo.db", false},
		{"sqlite:///var/lib/promo.db", false},
		{"postgres://u:p@h/db", false},
		{"postgresql://u:p@h:5432/db?sslmode=disable", false},
		{"sqlite://", true},
		{"postgres:///db", true},
		{"mysql://u:p@h/db", true},
		{"not a url", true},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			cfg := Default()
			cfg.Database.URL = tt.url
			err := Validate(cfg)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate(%q) error = %v, wantErr %v", tt.url, err, tt.wantErr)
			}
		})
	}
}

func TestIsLowerHex(t *testing.T) {
	tests := map[string]bool{
		"0123abcdef": true,
		"":           false,
		"ABCDEF":     false,
		"xyz":        false,
	}
	for in, want := range tests {
		if got := IsLowerHex(in); got != want {
			t.Errorf("IsLowerHex(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestParseHMACSecret(t *testing.T) {
	t.Run("valid base64", func(t *testing.T) {
		secret, err := ParseHMACSecret("dGVzdHNlY3JldDEyMzQ1Njc4OTBhYmNkZWZnaGlqa2xtbm9w")
		if err != nil {
			t.Fatalf("ParseHMACSecret failed: %v", err)
		}
		if len(secret) < 32 {
			t.Errorf("secret too short: %d bytes", len(secret))
		}
	})

	t.Run("invalid base64", func(t *testing.T) {
		_, err := ParseHMACSecret("not-valid-base64!!!")
		if err == nil {
			t.Error("expected error for invalid base64")
		}
	})

	t.Run("secret too short", func(t *testing.T) {
		_, err := ParseHMACSecret("c2hvcnQ=") // "short" in base64
		if err == nil {
			t.Error("expected error for secret < 32 bytes")
		}
	})
}

func TestParseHMACSecretWithID(t *testing.T) {
	t.Run("valid format", func(t *testing.T) {
		secretID, secret, err := ParseHMACSecretWithID("0123456789abcdef0123456789abcdef:dGVzdHNlY3JldDEyMzQ1Njc4OTBhYmNkZWZnaGlqa2xtbm9w")
		if err != nil {
			t.Fatalf("ParseHMACSecretWithID failed: %v", err)
		}
		if secretID != "0123456789abcdef0123456789abcdef" {
			t.Errorf("unexpected secret_id: %s", secretID)
		}
		if len(secret) == 0 {
			t.Error("secret should not be empty")
		}
	})

	t.Run("missing colon", func(t *testing.T) {
		_, _, err := ParseHMACSecretWithID("0123456789abcdef0123456789abcdef")
		if err == nil {
			t.Error("expected error for missing colon")
		}
	})

	t.Run("invalid secret_id length", func(t *testing.T) {
		_, _, err := ParseHMACSecretWithID("tooshort:dGVzdHNlY3JldDEyMzQ1Njc4OTBhYmNkZWZnaGlqa2xtbm9w")
		if err == nil {
			t.Error("expected error for short secret_id")
		}
	})

	t.Run("non-hex chars in secret_id", func(t *testing.T) {
		_, _, err := ParseHMACSecretWithID("0123456789abcdefGHIJKLMNOPQRSTUV:dGVzdHNlY3JldDEyMzQ1Njc4OTBhYmNkZWZnaGlqa2xtbm9w")
		if err == nil {
			t.Error("expected error for non-hex secret_id")
		}
	})
}
