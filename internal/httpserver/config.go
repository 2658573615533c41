package httpserver

import (
	"fmt"
	"strings"

	"github.com/kk-boop/simu/internal/config"
)

// Config holds the supervisor's environment-derived settings. Bind and
// TemplatesDir are the two variables spec §6 requires; the rest are
// ambient additions (see SPEC_FULL.md §2).
type Config struct {
	Bind         string
	TemplatesDir string
	HelperPath   string
	Exclude      []string
	RateLimit    float64
	AllowRoot    bool
}

// LoadConfig reads SIMU_BIND, SIMU_TEMPLATES, and the optional SIMU_EXCLUDE,
// SIMU_RATE_LIMIT, SIMU_HELPER_PATH, SIMU_ALLOW_ROOT variables, each also
// honoring a "_FILE" sibling per internal/config's convention.
func LoadConfig() (Config, error) {
	var cfg Config
	var err error

	if cfg.Bind, err = config.String("SIMU_BIND", "tcp:0.0.0.0:8080"); err != nil {
		return cfg, fmt.Errorf("SIMU_BIND: %w", err)
	}
	if cfg.TemplatesDir, err = config.String("SIMU_TEMPLATES", "./templates"); err != nil {
		return cfg, fmt.Errorf("SIMU_TEMPLATES: %w", err)
	}
	if cfg.HelperPath, err = config.String("SIMU_HELPER_PATH", ""); err != nil {
		return cfg, fmt.Errorf("SIMU_HELPER_PATH: %w", err)
	}
	if cfg.Exclude, err = config.StringList("SIMU_EXCLUDE"); err != nil {
		return cfg, fmt.Errorf("SIMU_EXCLUDE: %w", err)
	}
	if cfg.RateLimit, err = config.Float64("SIMU_RATE_LIMIT", 0); err != nil {
		return cfg, fmt.Errorf("SIMU_RATE_LIMIT: %w", err)
	}
	if cfg.AllowRoot, err = config.Bool("SIMU_ALLOW_ROOT", false); err != nil {
		return cfg, fmt.Errorf("SIMU_ALLOW_ROOT: %w", err)
	}
	return cfg, nil
}

// ParseBind splits a SIMU_BIND value of the form "tcp:host:port" or
// "unix:/abs/path" into its network and address parts.
func ParseBind(bind string) (network, address string, err error) {
	parts := strings.SplitN(bind, ":", 2)
	if len(parts) != 2 {
		return "", "", fmt.Errorf("malformed SIMU_BIND %q: expected proto:address", bind)
	}
	network = strings.ToLower(parts[0])
	address = parts[1]
	switch network {
	case "tcp":
		return "tcp", address, nil
	case "unix":
		return "unix", address, nil
	default:
		return "", "", fmt.Errorf("unknown protocol %q in SIMU_BIND", network)
	}
}
