package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/MikeSquared-Agency/Evergreen/internal/cluster"
	"github.com/MikeSquared-Agency/Evergreen/internal/scoring"
)

var envVars = []string{
	"EVERGREEN_PORT", "EVERGREEN_METRICS_PORT", "EVERGREEN_ADMIN_TOKEN",
	"EVERGREEN_DATABASE_URL", "EVERGREEN_HERMES_URL", "EVERGREEN_RUN_TIMEOUT_MS",
	"EVERGREEN_DEFAULT_SEED", "EVERGREEN_POLICY_INDICATORS", "EVERGREEN_SIS_BASIS",
	"EVERGREEN_CLUSTER_K", "EVERGREEN_ELBOW_STRATEGY", "EVERGREEN_PARETO_ALGORITHM",
	"EVERGREEN_RECOMMEND_MODE", "EVERGREEN_RECOMMEND_PRIORITY", "EVERGREEN_RECOMMEND_TOP_N",
	"EVERGREEN_LOG_LEVEL",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envVars {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != 8700 {
		t.Errorf("expected port 8700, got %d", cfg.Server.Port)
	}
	if cfg.Server.MetricsPort != 8701 {
		t.Errorf("expected metrics port 8701, got %d", cfg.Server.MetricsPort)
	}
	if cfg.Hermes.URL != "nats://localhost:4222" {
		t.Errorf("expected nats URL, got %s", cfg.Hermes.URL)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("expected log level 'info', got '%s'", cfg.Logging.Level)
	}
	if cfg.RunTimeout() != time.Minute {
		t.Errorf("expected RunTimeout 1m, got %v", cfg.RunTimeout())
	}

	opts, err := cfg.PipelineOptions()
	if err != nil {
		t.Fatalf("PipelineOptions failed: %v", err)
	}
	if !reflect.DeepEqual(opts.Indicators, scoring.DefaultIndicators()) {
		t.Errorf("expected default indicators, got %v", opts.Indicators)
	}
	if !reflect.DeepEqual(opts.Features, scoring.DefaultFeatures()) {
		t.Errorf("expected default features, got %v", opts.Features)
	}
	if opts.Basis != scoring.BasisNormalized {
		t.Errorf("expected normalized basis, got %q", opts.Basis)
	}
	if opts.K != 0 {
		t.Errorf("expected elbow-chosen k, got %d", opts.K)
	}
	if opts.Elbow.Strategy != cluster.StrategyGeometric || opts.Elbow.MaxK != 10 || opts.Elbow.Trials != 3 {
		t.Errorf("unexpected elbow options %+v", opts.Elbow)
	}
	if opts.Pareto != scoring.ParetoPairwise {
		t.Errorf("expected pairwise pareto, got %q", opts.Pareto)
	}
	if opts.Recommend.Mode != scoring.ModeRanked || opts.Recommend.TopN != 10 {
		t.Errorf("unexpected recommend options %+v", opts.Recommend)
	}
}

func TestLoadFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("EVERGREEN_PORT", "9000")
	t.Setenv("EVERGREEN_METRICS_PORT", "9001")
	t.Setenv("EVERGREEN_ADMIN_TOKEN", "secret-token")
	t.Setenv("EVERGREEN_DATABASE_URL", "postgres://localhost/evergreen_test")
	t.Setenv("EVERGREEN_HERMES_URL", "nats://nats:4222")
	t.Setenv("EVERGREEN_RUN_TIMEOUT_MS", "2000")
	t.Setenv("EVERGREEN_DEFAULT_SEED", "7")
	t.Setenv("EVERGREEN_POLICY_INDICATORS", "rating, eco_flag")
	t.Setenv("EVERGREEN_CLUSTER_K", "3")
	t.Setenv("EVERGREEN_ELBOW_STRATEGY", "rate")
	t.Setenv("EVERGREEN_PARETO_ALGORITHM", "sweep")
	t.Setenv("EVERGREEN_RECOMMEND_MODE", "categorized")
	t.Setenv("EVERGREEN_RECOMMEND_PRIORITY", "0.25")
	t.Setenv("EVERGREEN_RECOMMEND_TOP_N", "5")
	t.Setenv("EVERGREEN_LOG_LEVEL", "debug")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != 9000 {
		t.Errorf("expected port 9000, got %d", cfg.Server.Port)
	}
	if cfg.Server.MetricsPort != 9001 {
		t.Errorf("expected metrics port 9001, got %d", cfg.Server.MetricsPort)
	}
	if cfg.Server.AdminToken != "secret-token" {
		t.Errorf("expected admin token 'secret-token', got '%s'", cfg.Server.AdminToken)
	}
	if cfg.Database.URL != "postgres://localhost/evergreen_test" {
		t.Errorf("expected database URL, got '%s'", cfg.Database.URL)
	}
	if cfg.Hermes.URL != "nats://nats:4222" {
		t.Errorf("expected hermes URL, got '%s'", cfg.Hermes.URL)
	}
	if cfg.RunTimeout() != 2*time.Second {
		t.Errorf("expected run timeout 2s, got %v", cfg.RunTimeout())
	}
	if cfg.Runner.DefaultSeed != 7 {
		t.Errorf("expected seed 7, got %d", cfg.Runner.DefaultSeed)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("expected log level 'debug', got '%s'", cfg.Logging.Level)
	}

	opts, err := cfg.PipelineOptions()
	if err != nil {
		t.Fatalf("PipelineOptions failed: %v", err)
	}
	want := []scoring.Indicator{scoring.IndicatorRating, scoring.IndicatorEcoFlag}
	if !reflect.DeepEqual(opts.Indicators, want) {
		t.Errorf("expected %v, got %v", want, opts.Indicators)
	}
	if opts.K != 3 {
		t.Errorf("expected k 3, got %d", opts.K)
	}
	if opts.Elbow.Strategy != cluster.StrategyRate {
		t.Errorf("expected rate strategy, got %q", opts.Elbow.Strategy)
	}
	if opts.Pareto != scoring.ParetoSweep {
		t.Errorf("expected sweep, got %q", opts.Pareto)
	}
	if opts.Recommend.Mode != scoring.ModeCategorized || opts.Recommend.Priority != 0.25 || opts.Recommend.TopN != 5 {
		t.Errorf("unexpected recommend options %+v", opts.Recommend)
	}
}

func TestLoadFromFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "evergreen.yaml")
	data := []byte(`
server:
  port: 9100
pipeline:
  sis_basis: raw
  cluster:
    strategy: fixed
    fixed_k: 4
    features: [sis, carbon]
  recommend:
    mode: pareto_first
`)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.Port != 9100 {
		t.Errorf("expected port 9100, got %d", cfg.Server.Port)
	}
	if cfg.Server.MetricsPort != 8701 {
		t.Errorf("expected default metrics port to survive, got %d", cfg.Server.MetricsPort)
	}

	opts, err := cfg.PipelineOptions()
	if err != nil {
		t.Fatalf("PipelineOptions failed: %v", err)
	}
	if opts.Basis != scoring.BasisRaw {
		t.Errorf("expected raw basis, got %q", opts.Basis)
	}
	if opts.Elbow.Strategy != cluster.StrategyFixed || opts.Elbow.FixedK != 4 {
		t.Errorf("unexpected elbow options %+v", opts.Elbow)
	}
	if !reflect.DeepEqual(opts.Features, []scoring.Feature{scoring.FeatureSIS, scoring.FeatureCarbon}) {
		t.Errorf("unexpected features %v", opts.Features)
	}
	if opts.Recommend.Mode != scoring.ModeParetoFirst {
		t.Errorf("expected pareto_first, got %q", opts.Recommend.Mode)
	}
}

func TestLoadRejectsInvalidPipeline(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"unknown mode", map[string]string{"EVERGREEN_RECOMMEND_MODE": "random"}},
		{"unknown strategy", map[string]string{"EVERGREEN_ELBOW_STRATEGY": "silhouette"}},
		{"unknown indicator", map[string]string{"EVERGREEN_POLICY_INDICATORS": "rating,price"}},
		{"priority out of range", map[string]string{"EVERGREEN_RECOMMEND_PRIORITY": "1.5"}},
		{"negative k", map[string]string{"EVERGREEN_CLUSTER_K": "-1"}},
		{"fixed without k", map[string]string{"EVERGREEN_ELBOW_STRATEGY": "fixed"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if _, err := Load(""); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	clearEnv(t)
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
