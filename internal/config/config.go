package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Discovery modes.
const (
	ModeEager = "eager"
	ModeLazy  = "lazy"
)

// Config holds all environment-based configuration for contentd and
// contentctl.
type Config struct {
	// Environment controls log format.
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL"`

	// ContentRoot holds both document trees. PostsDir and TutorialsDir are
	// relative to it.
	ContentRoot  string `env:"CONTENT_ROOT" envDefault:"content"`
	PostsDir     string `env:"POSTS_DIR" envDefault:"blog"`
	TutorialsDir string `env:"TUTORIALS_DIR" envDefault:"learn"`

	// DefaultCategory is assigned to tutorials stored directly under the
	// tutorial root.
	DefaultCategory string `env:"DEFAULT_CATEGORY" envDefault:"general"`

	// SiteAuthor is the author used when frontmatter names none. A value
	// from SITE_FILE takes precedence when this is left empty.
	SiteAuthor string `env:"SITE_AUTHOR"`

	// SiteFile is an optional YAML file describing navigation categories
	// and subscription tiers.
	SiteFile string `env:"SITE_FILE"`

	// Discovery tuning.
	DiscoveryMode        string        `env:"DISCOVERY_MODE" envDefault:"eager"`
	DiscoveryConcurrency int           `env:"DISCOVERY_CONCURRENCY" envDefault:"8"`
	DiscoveryReadTimeout time.Duration `env:"DISCOVERY_READ_TIMEOUT" envDefault:"5s"`
	StrictSlugs          bool          `env:"STRICT_SLUGS" envDefault:"false"`
	IncludeDrafts        bool          `env:"INCLUDE_DRAFTS" envDefault:"false"`

	// HTTP server.
	ListenAddr  string `env:"LISTEN_ADDR" envDefault:":8080"`
	EnableMCP   bool   `env:"ENABLE_MCP" envDefault:"false"`
	EnableWatch bool   `env:"ENABLE_WATCH" envDefault:"false"`

	// APIKeys lists "user:tier:bcrypt_hash" entries, comma separated.
	APIKeys string `env:"API_KEYS"`

	// IndexPath is where contentctl writes the persisted content index.
	IndexPath string `env:"INDEX_PATH" envDefault:"content-index.db"`

	// Optional rendered-HTML cache.
	RedisAddr      string        `env:"REDIS_ADDR"`
	RedisPassword  string        `env:"REDIS_PASSWORD"`
	RenderCacheTTL time.Duration `env:"RENDER_CACHE_TTL" envDefault:"10m"`
}

// warnInsecureEnvFile checks whether the .env file (if present) has
// overly permissive permissions. API key hashes live there.
func warnInsecureEnvFile() {
	if runtime.GOOS == "windows" {
		return
	}

	info, err := os.Stat(".env")
	if err != nil {
		return
	}

	mode := info.Mode().Perm()
	if mode&0o077 != 0 {
		log.Printf("WARNING: .env file has insecure permissions %04o; recommended 0600", mode)
	}
}

// Load reads configuration from environment variables.
// It first attempts to load a .env file if present, then parses env vars.
func Load() (*Config, error) {
	_ = godotenv.Load()

	warnInsecureEnvFile()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	cfg.DiscoveryMode = strings.ToLower(strings.TrimSpace(cfg.DiscoveryMode))

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	absRoot, err := filepath.Abs(cfg.ContentRoot)
	if err != nil {
		return nil, fmt.Errorf("resolving content root to absolute path: %w", err)
	}

	cfg.ContentRoot = absRoot

	return cfg, nil
}

func (c *Config) validate() error {
	if c.ContentRoot == "" {
		return fmt.Errorf("CONTENT_ROOT must not be empty")
	}

	for name, dir := range map[string]string{"POSTS_DIR": c.PostsDir, "TUTORIALS_DIR": c.TutorialsDir} {
		if dir == "" {
			return fmt.Errorf("%s must not be empty", name)
		}

		if filepath.IsAbs(dir) || strings.Contains(dir, "..") {
			return fmt.Errorf("%s must be a relative path inside CONTENT_ROOT", name)
		}
	}

	if filepath.Clean(c.PostsDir) == filepath.Clean(c.TutorialsDir) {
		return fmt.Errorf("POSTS_DIR and TUTORIALS_DIR must differ")
	}

	if c.DefaultCategory == "" || strings.Contains(c.DefaultCategory, "/") {
		return fmt.Errorf("DEFAULT_CATEGORY must be a single non-empty path segment")
	}

	if c.DiscoveryMode != ModeEager && c.DiscoveryMode != ModeLazy {
		return fmt.Errorf("DISCOVERY_MODE must be %q or %q, got %q", ModeEager, ModeLazy, c.DiscoveryMode)
	}

	if c.DiscoveryConcurrency < 1 {
		return fmt.Errorf("DISCOVERY_CONCURRENCY must be at least 1")
	}

	if c.DiscoveryReadTimeout <= 0 {
		return fmt.Errorf("DISCOVERY_READ_TIMEOUT must be positive")
	}

	if _, err := c.ParseAPIKeys(); err != nil {
		return err
	}

	return nil
}

// IsProduction returns true when the environment is set to production.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// PostsRoot returns the slash-separated posts directory relative to the
// content root.
func (c *Config) PostsRoot() string {
	return filepath.ToSlash(filepath.Clean(c.PostsDir))
}

// TutorialsRoot returns the slash-separated tutorials directory relative
// to the content root.
func (c *Config) TutorialsRoot() string {
	return filepath.ToSlash(filepath.Clean(c.TutorialsDir))
}

// APIKeyEntry holds one configured API key: the user it identifies, the
// subscription tier it grants and the bcrypt hash of the secret.
type APIKeyEntry struct {
	UserID string
	Tier   string
	Hash   string
}

// ParseAPIKeys parses the API_KEYS string.
// Format: "user1:tier1:hash1,user2:tier2:hash2"
// bcrypt hashes never contain ':' so the split is unambiguous.
func (c *Config) ParseAPIKeys() ([]APIKeyEntry, error) {
	if c.APIKeys == "" {
		return nil, nil
	}

	seen := make(map[string]struct{})

	var entries []APIKeyEntry

	for _, item := range strings.Split(c.APIKeys, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}

		parts := strings.SplitN(item, ":", 3)
		if len(parts) != 3 {
			return nil, fmt.Errorf("invalid API key entry %d (want user:tier:hash)", len(entries)+1)
		}

		userID, tier, hash := parts[0], parts[1], parts[2]
		if userID == "" || tier == "" || hash == "" {
			return nil, fmt.Errorf("empty user, tier or hash in API key entry %d", len(entries)+1)
		}

		if !strings.HasPrefix(hash, "$2") {
			return nil, fmt.Errorf("API key entry %d is not a bcrypt hash", len(entries)+1)
		}

		if _, dup := seen[userID]; dup {
			return nil, fmt.Errorf("duplicate user %q in API_KEYS", userID)
		}

		seen[userID] = struct{}{}
		entries = append(entries, APIKeyEntry{UserID: userID, Tier: strings.ToLower(tier), Hash: hash})
	}

	return entries, nil
}
