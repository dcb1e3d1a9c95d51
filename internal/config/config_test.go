package config

import "testing"

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("REDIS_ADDR", "")
	t.Setenv("SUBMIT_PER_MINUTE", "")
	t.Setenv("SUBMIT_PER_DAY", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Port != "8080" {
		t.Errorf("Port = %q, want %q", cfg.Port, "8080")
	}
	if cfg.RedisAddr != "localhost:6379" {
		t.Errorf("RedisAddr = %q, want localhost:6379", cfg.RedisAddr)
	}
	if cfg.SubmitPerMinute != 10 || cfg.SubmitPerDay != 200 {
		t.Errorf("limits = %d/%d, want 10/200", cfg.SubmitPerMinute, cfg.SubmitPerDay)
	}
}

func TestLoad_CustomValues(t *testing.T) {
	t.Setenv("PORT", "3000")
	t.Setenv("DATABASE_URL", "postgres://localhost/lightsout")
	t.Setenv("REDIS_ADDR", "redis:6380")
	t.Setenv("SUBMIT_PER_MINUTE", "5")
	t.Setenv("SUBMIT_PER_DAY", "50")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Port != "3000" {
		t.Errorf("Port = %q, want %q", cfg.Port, "3000")
	}
	if cfg.DatabaseURL != "postgres://localhost/lightsout" {
		t.Errorf("DatabaseURL = %q", cfg.DatabaseURL)
	}
	if cfg.RedisAddr != "redis:6380" {
		t.Errorf("RedisAddr = %q, want redis:6380", cfg.RedisAddr)
	}
}

func TestValidate_RejectsBadLimits(t *testing.T) {
	cfg := Config{RedisAddr: "localhost:6379", SubmitPerMinute: 0, SubmitPerDay: 100}
	if err := cfg.Validate(); err == nil {
		t.Error("zero per-minute limit should fail validation")
	}

	cfg = Config{RedisAddr: "localhost:6379", SubmitPerMinute: 50, SubmitPerDay: 10}
	if err := cfg.Validate(); err == nil {
		t.Error("day limit below minute limit should fail validation")
	}
}
