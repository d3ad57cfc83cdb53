package config

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// RuntimeConfig holds derived runtime values that other packages may query
// at runtime (populated during startup after merging env+file).
type RuntimeConfig struct {
	SigningKeys map[string]struct{}
}

var (
	runtimeMu  sync.RWMutex
	runtimeCfg *RuntimeConfig
)

// SetRuntime sets the canonical runtime config used by the running server.
func SetRuntime(rc *RuntimeConfig) {
	runtimeMu.Lock()
	defer runtimeMu.Unlock()
	runtimeCfg = rc
}

// GetSigningKeys returns a copy of configured identity signing keys.
func GetSigningKeys() map[string]struct{} {
	runtimeMu.RLock()
	defer runtimeMu.RUnlock()
	out := map[string]struct{}{}
	if runtimeCfg == nil || runtimeCfg.SigningKeys == nil {
		return out
	}
	for k := range runtimeCfg.SigningKeys {
		out[k] = struct{}{}
	}
	return out
}

type Config struct {
	Server struct {
		Address string `yaml:"address"`
		Port    int    `yaml:"port"`
		TLS     struct {
			CertFile string `yaml:"cert_file"`
			KeyFile  string `yaml:"key_file"`
		} `yaml:"tls"`
	} `yaml:"server"`
	Storage struct {
		DBPath string `yaml:"db_path"`
	} `yaml:"storage"`
	Security struct {
		CORS struct {
			AllowedOrigins []string `yaml:"allowed_origins"`
		} `yaml:"cors"`
		RateLimit struct {
			RPS   float64 `yaml:"rps"`
			Burst int     `yaml:"burst"`
		} `yaml:"rate_limit"`
		IPWhitelist []string `yaml:"ip_whitelist"`
		// SigningKeys are shared secrets used to mint and verify identity
		// signatures handed out at login.
		SigningKeys []string `yaml:"signing_keys"`
	} `yaml:"security"`
	Relay struct {
		Endpoint string `yaml:"endpoint"`
		APIKey   string `yaml:"api_key"`
		// IncludeHistory sends the whole transcript instead of only the
		// latest user message.
		IncludeHistory bool `yaml:"include_history"`
		Stream         struct {
			ChunkChars int `yaml:"chunk_chars"`
			IntervalMs int `yaml:"interval_ms"`
		} `yaml:"stream"`
	} `yaml:"relay"`
	Speech struct {
		Enabled bool `yaml:"enabled"`
		// SpeakCommand is the synthesis binary probed at startup; empty
		// means probe well-known candidates (say, espeak, flite).
		SpeakCommand string `yaml:"speak_command"`
		// ListenCommand is a recognizer that prints transcript lines on
		// stdout; no default is probed when empty.
		ListenCommand  string   `yaml:"listen_command"`
		Language       string   `yaml:"language"`
		PreferredVoice []string `yaml:"preferred_voices"`
	} `yaml:"speech"`
	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"` // text|json
	} `yaml:"logging"`
}

// Addr returns host:port for the HTTP server.
func (c *Config) Addr() string {
	addr := c.Server.Address
	if addr == "" {
		addr = "0.0.0.0"
	}
	p := c.Server.Port
	if p == 0 {
		p = 8080
	}
	return fmt.Sprintf("%s:%d", addr, p)
}

// Load reads and decodes a YAML config file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s", path)
		}
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ParseCommandFlags defines and parses command-line flags and returns their
// values along with a map indicating which flags were explicitly set.
func ParseCommandFlags() (addr string, dbPath string, cfgPath string, setFlags map[string]bool) {
	addrPtr := flag.String("addr", ":8080", "HTTP listen address")
	dbPtr := flag.String("db", "./.database", "Pebble DB path")
	cfgPtr := flag.String("config", "./config.yaml", "Path to config file")
	flag.Parse()
	setFlags = map[string]bool{}
	flag.Visit(func(f *flag.Flag) { setFlags[f.Name] = true })
	return *addrPtr, *dbPtr, *cfgPtr, setFlags
}

// ResolveConfigPath picks the config file path: an explicit flag wins, then
// the VOXD_CONFIG env var, then the provided default.
func ResolveConfigPath(flagVal string, flagSet bool) string {
	if flagSet {
		return flagVal
	}
	if p := strings.TrimSpace(os.Getenv("VOXD_CONFIG")); p != "" {
		return p
	}
	return flagVal
}

// LoadEnvOverrides applies environment overrides onto the provided cfg and
// reports whether any env vars were used.
func LoadEnvOverrides(cfg *Config) bool {
	used := false
	if v := strings.TrimSpace(os.Getenv("VOXD_ADDR")); v != "" {
		if host, port, ok := SplitHostPort(v); ok {
			cfg.Server.Address = host
			cfg.Server.Port = port
			used = true
		}
	}
	if v := strings.TrimSpace(os.Getenv("VOXD_DB_PATH")); v != "" {
		cfg.Storage.DBPath = v
		used = true
	}
	if v := strings.TrimSpace(os.Getenv("VOXD_RELAY_API_KEY")); v != "" {
		cfg.Relay.APIKey = v
		used = true
	}
	if v := strings.TrimSpace(os.Getenv("VOXD_RELAY_ENDPOINT")); v != "" {
		cfg.Relay.Endpoint = v
		used = true
	}
	if v := strings.TrimSpace(os.Getenv("VOXD_SIGNING_KEYS")); v != "" {
		cfg.Security.SigningKeys = splitCSV(v)
		used = true
	}
	if v := strings.TrimSpace(os.Getenv("VOXD_LOG_LEVEL")); v != "" {
		cfg.Logging.Level = v
		used = true
	}
	return used
}

func splitCSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// SplitHostPort splits "host:port" with a numeric port; host may be empty.
func SplitHostPort(s string) (string, int, bool) {
	i := strings.LastIndex(s, ":")
	if i < 0 {
		return "", 0, false
	}
	p, err := strconv.Atoi(s[i+1:])
	if err != nil {
		return "", 0, false
	}
	return s[:i], p, true
}
