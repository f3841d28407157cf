// Package config resolves mailorder configuration from its three layers:
// YAML config file, environment variables, then CLI flags, in increasing
// precedence. Every resolved value remembers where it came from so
// "mailorder config show" can explain the effective configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

type ValueSource string

const (
	SourceUnknown ValueSource = "unknown"
	SourceConfig  ValueSource = "config"
	SourceEnv     ValueSource = "env"
	SourceCLI     ValueSource = "cli"
	SourceDefault ValueSource = "default"
)

type ResolvedValue struct {
	Value  string      `json:"value"`
	Source ValueSource `json:"source"`
	From   string      `json:"from,omitempty"`
}

type ResolveOptions struct {
	ConfigPath string
	CLIDBPath  string
	CLIAccount string
	CLIVendors string
}

type ResolvedConfig struct {
	ConfigPath string `json:"config_path"`

	DBPath      ResolvedValue `json:"db_path"`
	Account     ResolvedValue `json:"account"`
	VendorsFile ResolvedValue `json:"vendors_file"`

	// Allowlist boosts vendor confidence for known-good senders.
	Allowlist       []string    `json:"allowlist,omitempty"`
	AllowlistSource ValueSource `json:"allowlist_source,omitempty"`
}

type fileConfig struct {
	DBPath      string   `yaml:"db_path"`
	Account     string   `yaml:"account"`
	VendorsFile string   `yaml:"vendors_file"`
	Allowlist   []string `yaml:"allowlist"`
}

func DefaultConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".mailorder", "config.yaml")
}

// Baseline values before any config layer applies. The db path default
// matches the store's own fallback so "config show" reports the path the
// store would actually open.
const (
	defaultDBPath  = "~/.mailorder/mailorder.db"
	defaultAccount = "default"
)

func ResolveConfig(opts ResolveOptions) (ResolvedConfig, error) {
	path := strings.TrimSpace(opts.ConfigPath)
	if path == "" {
		path = DefaultConfigPath()
	}

	out := ResolvedConfig{
		ConfigPath: path,
		DBPath:     ResolvedValue{Value: defaultDBPath, Source: SourceDefault},
		Account:    ResolvedValue{Value: defaultAccount, Source: SourceDefault},
	}

	cfg, err := loadConfig(path)
	if err != nil {
		return out, err
	}

	if cfg != nil {
		apply(&out.DBPath, cfg.DBPath, SourceConfig, path)
		apply(&out.Account, cfg.Account, SourceConfig, path)
		apply(&out.VendorsFile, cfg.VendorsFile, SourceConfig, path)
		if len(cfg.Allowlist) > 0 {
			out.Allowlist = cfg.Allowlist
			out.AllowlistSource = SourceConfig
		}
	}

	applyEnv(&out.DBPath, "MAILORDER_DB")
	applyEnv(&out.DBPath, "MAILORDER_DB_PATH")
	applyEnv(&out.Account, "MAILORDER_ACCOUNT")
	applyEnv(&out.VendorsFile, "MAILORDER_VENDORS")
	if v := strings.TrimSpace(os.Getenv("MAILORDER_ALLOWLIST")); v != "" {
		out.Allowlist = splitList(v)
		out.AllowlistSource = SourceEnv
	}

	apply(&out.DBPath, opts.CLIDBPath, SourceCLI, "--db")
	apply(&out.Account, opts.CLIAccount, SourceCLI, "--account")
	apply(&out.VendorsFile, opts.CLIVendors, SourceCLI, "--vendors")

	if out.DBPath.Value != "" {
		out.DBPath.Value = expandUserPath(out.DBPath.Value)
	}
	if out.VendorsFile.Value != "" {
		out.VendorsFile.Value = expandUserPath(out.VendorsFile.Value)
	}

	return out, nil
}

func apply(dst *ResolvedValue, raw string, source ValueSource, from string) {
	v := strings.TrimSpace(raw)
	if v == "" {
		return
	}
	*dst = ResolvedValue{Value: v, Source: source, From: from}
}

func applyEnv(dst *ResolvedValue, envKey string) {
	if v := strings.TrimSpace(os.Getenv(envKey)); v != "" {
		*dst = ResolvedValue{Value: v, Source: SourceEnv, From: envKey}
	}
}

func loadConfig(path string) (*fileConfig, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	var cfg fileConfig
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return &cfg, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func expandUserPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}
