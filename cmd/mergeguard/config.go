package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/mergeguard/mergeguard"
	badgercache "github.com/mergeguard/mergeguard/badger"
	"github.com/mergeguard/mergeguard/chroma"
	"github.com/mergeguard/mergeguard/gemini"
	"github.com/mergeguard/mergeguard/git"
	"github.com/mergeguard/mergeguard/github"
	"github.com/mergeguard/mergeguard/gitignore"
	"github.com/mergeguard/mergeguard/gitlab"
	"github.com/mergeguard/mergeguard/jsonl"
	"github.com/mergeguard/mergeguard/treesitter"
)

// fileConfig is the on-disk YAML configuration: host wiring plus the
// analysis options.
type fileConfig struct {
	Host string `yaml:"host"` // "github" or "gitlab"

	GitHub struct {
		Owner      string `yaml:"owner"`
		Repo       string `yaml:"repo"`
		Token      string `yaml:"token"`
		AppID      string `yaml:"app_id"`
		AppKeyPath string `yaml:"app_key_path"`
		BaseURL    string `yaml:"base_url"`
	} `yaml:"github"`

	GitLab struct {
		Project string `yaml:"project"`
		Token   string `yaml:"token"`
		BaseURL string `yaml:"base_url"`
	} `yaml:"gitlab"`

	// DecisionsLog is the path to the append-only decisions JSONL file.
	DecisionsLog string `yaml:"decisions_log"`

	// RepoPath is a local clone used for churn history; empty disables the
	// churn signal.
	RepoPath string `yaml:"repo_path"`

	// CacheDir overrides the default cache location. "none" disables the
	// cache entirely.
	CacheDir string `yaml:"cache_dir"`

	Analysis mergeguard.Config `yaml:"analysis"`
}

// loadConfig reads the YAML file, filling analysis defaults for absent keys.
func loadConfig(path string) (*fileConfig, error) {
	cfg := &fileConfig{}
	cfg.Analysis = mergeguard.DefaultConfig()
	cfg.DecisionsLog = ".mergeguard/decisions.jsonl"

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("configuration file %s not found", path)
		}
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if err := cfg.Analysis.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// buildEngine assembles the engine and its collaborators from configuration.
// The host client is returned alongside for comment/status publishing. The
// returned cleanup releases the cache database.
func buildEngine(ctx context.Context, cfg *fileConfig) (*mergeguard.Engine, mergeguard.HostClient, func(), error) {
	host, err := buildHost(ctx, cfg)
	if err != nil {
		return nil, nil, nil, err
	}

	opts := []mergeguard.Option{
		mergeguard.WithSimilarity(chroma.Similarity),
		mergeguard.WithGlob(gitignore.Glob),
		mergeguard.WithLogger(slog.Default()),
	}
	if len(cfg.Analysis.IgnoredPaths) > 0 {
		opts = append(opts, mergeguard.WithIgnoreMatcher(gitignore.NewMatcher(cfg.Analysis.IgnoredPaths)))
	}

	cleanup := func() {}
	if cfg.CacheDir != "none" {
		dir := cfg.CacheDir
		if dir == "" {
			dir = badgercache.DefaultCacheDir()
		}
		cache, err := badgercache.Open(dir)
		if err != nil {
			slog.Warn("cache unavailable, continuing without it", "dir", dir, "error", err)
		} else {
			opts = append(opts, mergeguard.WithCache(cache))
			cleanup = func() { _ = cache.Close() }
		}
	}

	if apiKey := os.Getenv("GEMINI_API_KEY"); apiKey != "" {
		client, err := gemini.NewClient(ctx, apiKey)
		if err != nil {
			slog.Warn("adjudicator unavailable", "error", err)
		} else {
			opts = append(opts, mergeguard.WithAdjudicator(gemini.NewAdjudicator(client, gemini.DefaultModel)))
		}
	}

	if cfg.RepoPath != "" {
		opts = append(opts, mergeguard.WithChurn(git.NewChurnProvider(cfg.RepoPath)))
	}

	engine, err := mergeguard.NewEngine(
		host,
		treesitter.NewExtractor(),
		jsonl.NewStore(cfg.DecisionsLog),
		cfg.Analysis,
		opts...,
	)
	if err != nil {
		cleanup()
		return nil, nil, nil, err
	}
	return engine, host, cleanup, nil
}

func buildHost(ctx context.Context, cfg *fileConfig) (mergeguard.HostClient, error) {
	switch cfg.Host {
	case "", "github":
		return github.New(ctx, github.Config{
			Owner:      cfg.GitHub.Owner,
			Repo:       cfg.GitHub.Repo,
			Token:      firstNonEmpty(cfg.GitHub.Token, os.Getenv("GITHUB_TOKEN")),
			AppID:      cfg.GitHub.AppID,
			AppKeyPath: cfg.GitHub.AppKeyPath,
			BaseURL:    cfg.GitHub.BaseURL,
			Logger:     slog.Default(),
		})
	case "gitlab":
		return gitlab.New(gitlab.Config{
			Project: cfg.GitLab.Project,
			Token:   firstNonEmpty(cfg.GitLab.Token, os.Getenv("GITLAB_TOKEN")),
			BaseURL: cfg.GitLab.BaseURL,
			Logger:  slog.Default(),
		})
	default:
		return nil, fmt.Errorf("unknown host %q (want github or gitlab)", cfg.Host)
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
