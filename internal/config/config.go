package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/MikeSquared-Agency/Evergreen/internal/cluster"
	"github.com/MikeSquared-Agency/Evergreen/internal/pipeline"
	"github.com/MikeSquared-Agency/Evergreen/internal/scoring"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Hermes   HermesConfig   `yaml:"hermes"`
	Runner   RunnerConfig   `yaml:"runner"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	Logging  LoggingConfig  `yaml:"logging"`
}

type ServerConfig struct {
	Port        int    `yaml:"port"`
	MetricsPort int    `yaml:"metrics_port"`
	AdminToken  string `yaml:"admin_token"`
}

type DatabaseConfig struct {
	URL string `yaml:"url"`
}

type HermesConfig struct {
	URL string `yaml:"url"`
}

type RunnerConfig struct {
	RunTimeoutMs int   `yaml:"run_timeout_ms"`
	DefaultSeed  int64 `yaml:"default_seed"`
}

// PipelineConfig mirrors pipeline.Options with plain strings so it can be
// read from YAML and the environment.
type PipelineConfig struct {
	PolicyIndicators []string        `yaml:"policy_indicators"`
	SISBasis         string          `yaml:"sis_basis"`
	Cluster          ClusterConfig   `yaml:"cluster"`
	Pareto           ParetoConfig    `yaml:"pareto"`
	Recommend        RecommendConfig `yaml:"recommend"`
}

type ClusterConfig struct {
	K             int      `yaml:"k"`
	MaxK          int      `yaml:"max_k"`
	Trials        int      `yaml:"trials"`
	MaxIter       int      `yaml:"max_iter"`
	Strategy      string   `yaml:"strategy"`
	RateThreshold float64  `yaml:"rate_threshold"`
	FixedK        int      `yaml:"fixed_k"`
	Features      []string `yaml:"features"`
}

type ParetoConfig struct {
	Algorithm string `yaml:"algorithm"`
}

type RecommendConfig struct {
	Mode     string  `yaml:"mode"`
	Priority float64 `yaml:"priority"`
	TopN     int     `yaml:"top_n"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func (c *Config) RunTimeout() time.Duration {
	return time.Duration(c.Runner.RunTimeoutMs) * time.Millisecond
}

// PipelineOptions converts the pipeline section into validated core options.
func (c *Config) PipelineOptions() (pipeline.Options, error) {
	p := c.Pipeline
	var opts pipeline.Options

	for _, s := range p.PolicyIndicators {
		ind, err := scoring.ParseIndicator(s)
		if err != nil {
			return opts, fmt.Errorf("pipeline.policy_indicators: %w", err)
		}
		opts.Indicators = append(opts.Indicators, ind)
	}
	basis, err := scoring.ParseBasis(p.SISBasis)
	if err != nil {
		return opts, fmt.Errorf("pipeline.sis_basis: %w", err)
	}
	opts.Basis = basis

	for _, s := range p.Cluster.Features {
		f, err := scoring.ParseFeature(s)
		if err != nil {
			return opts, fmt.Errorf("pipeline.cluster.features: %w", err)
		}
		opts.Features = append(opts.Features, f)
	}
	if p.Cluster.K < 0 {
		return opts, fmt.Errorf("pipeline.cluster.k: must not be negative, got %d", p.Cluster.K)
	}
	opts.K = p.Cluster.K
	strategy, err := cluster.ParseStrategy(p.Cluster.Strategy)
	if err != nil {
		return opts, fmt.Errorf("pipeline.cluster.strategy: %w", err)
	}
	if strategy == cluster.StrategyFixed && p.Cluster.FixedK < 1 {
		return opts, fmt.Errorf("pipeline.cluster.fixed_k: must be at least 1 for the fixed strategy")
	}
	opts.Elbow = cluster.ElbowOptions{
		MaxK:          p.Cluster.MaxK,
		Trials:        p.Cluster.Trials,
		MaxIter:       p.Cluster.MaxIter,
		Strategy:      strategy,
		RateThreshold: p.Cluster.RateThreshold,
		FixedK:        p.Cluster.FixedK,
	}

	algo, err := scoring.ParseParetoAlgorithm(p.Pareto.Algorithm)
	if err != nil {
		return opts, fmt.Errorf("pipeline.pareto.algorithm: %w", err)
	}
	opts.Pareto = algo

	mode, err := scoring.ParseMode(p.Recommend.Mode)
	if err != nil {
		return opts, fmt.Errorf("pipeline.recommend.mode: %w", err)
	}
	if p.Recommend.Priority < 0 || p.Recommend.Priority > 1 {
		return opts, fmt.Errorf("pipeline.recommend.priority: must be within [0,1], got %v", p.Recommend.Priority)
	}
	opts.Recommend = scoring.RecommendOptions{
		Mode:     mode,
		Priority: p.Recommend.Priority,
		TopN:     p.Recommend.TopN,
	}
	return opts, nil
}

// Validate checks every section that has constraints beyond its type.
func (c *Config) Validate() error {
	if _, err := c.PipelineOptions(); err != nil {
		return err
	}
	if c.Runner.RunTimeoutMs < 0 {
		return fmt.Errorf("runner.run_timeout_ms: must not be negative")
	}
	return nil
}

func Load(path string) (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:        8700,
			MetricsPort: 8701,
		},
		Hermes: HermesConfig{
			URL: "nats://localhost:4222",
		},
		Runner: RunnerConfig{
			RunTimeoutMs: 60000,
			DefaultSeed:  42,
		},
		Pipeline: PipelineConfig{
			PolicyIndicators: []string{"rating", "recycling", "eco_flag"},
			SISBasis:         "normalized",
			Cluster: ClusterConfig{
				MaxK:          cluster.DefaultMaxK,
				Trials:        cluster.DefaultTrials,
				MaxIter:       cluster.DefaultMaxIter,
				Strategy:      "geometric",
				RateThreshold: cluster.DefaultRateThreshold,
				Features:      []string{"sis", "environmental", "policy", "price"},
			},
			Pareto: ParetoConfig{
				Algorithm: "pairwise",
			},
			Recommend: RecommendConfig{
				Mode:     "ranked",
				Priority: 0.7,
				TopN:     10,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnv(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("EVERGREEN_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = n
		}
	}
	if v := os.Getenv("EVERGREEN_METRICS_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Server.MetricsPort = n
		}
	}
	if v := os.Getenv("EVERGREEN_ADMIN_TOKEN"); v != "" {
		cfg.Server.AdminToken = v
	}
	if v := os.Getenv("EVERGREEN_DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv("EVERGREEN_HERMES_URL"); v != "" {
		cfg.Hermes.URL = v
	}
	if v := os.Getenv("EVERGREEN_RUN_TIMEOUT_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Runner.RunTimeoutMs = n
		}
	}
	if v := os.Getenv("EVERGREEN_DEFAULT_SEED"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Runner.DefaultSeed = n
		}
	}
	if v := os.Getenv("EVERGREEN_POLICY_INDICATORS"); v != "" {
		cfg.Pipeline.PolicyIndicators = splitList(v)
	}
	if v := os.Getenv("EVERGREEN_SIS_BASIS"); v != "" {
		cfg.Pipeline.SISBasis = v
	}
	if v := os.Getenv("EVERGREEN_CLUSTER_K"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Pipeline.Cluster.K = n
		}
	}
	if v := os.Getenv("EVERGREEN_ELBOW_STRATEGY"); v != "" {
		cfg.Pipeline.Cluster.Strategy = v
	}
	if v := os.Getenv("EVERGREEN_PARETO_ALGORITHM"); v != "" {
		cfg.Pipeline.Pareto.Algorithm = v
	}
	if v := os.Getenv("EVERGREEN_RECOMMEND_MODE"); v != "" {
		cfg.Pipeline.Recommend.Mode = v
	}
	if v := os.Getenv("EVERGREEN_RECOMMEND_PRIORITY"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Pipeline.Recommend.Priority = f
		}
	}
	if v := os.Getenv("EVERGREEN_RECOMMEND_TOP_N"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Pipeline.Recommend.TopN = n
		}
	}
	if v := os.Getenv("EVERGREEN_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
