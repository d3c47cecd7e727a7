package config

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Flags carries command-line values that override file and env settings.
type Flags struct {
	ConfigPath string
	Addr       string
	DBPath     string
	TLSCert    string
	TLSKey     string
}

// ParseConfigFlags registers and parses the process flags.
func ParseConfigFlags() Flags {
	var f Flags
	flag.StringVar(&f.ConfigPath, "config", "", "path to YAML config file")
	flag.StringVar(&f.Addr, "addr", "", "listen address (host:port)")
	flag.StringVar(&f.DBPath, "db", "", "path to the database directory")
	flag.StringVar(&f.TLSCert, "tls-cert", "", "path to TLS certificate")
	flag.StringVar(&f.TLSKey, "tls-key", "", "path to TLS key")
	flag.Parse()
	return f
}

// EffectiveConfigResult is the merged configuration after file, env and
// flag resolution, plus a note on where the file came from.
type EffectiveConfigResult struct {
	Config       Config
	Addr         string
	DBPath       string
	ConfigSource string
}

// ResolveConfigPath returns the config file path to load: the flag wins,
// then DESKCHAT_CONFIG, then ./deskchat.yaml if present.
func ResolveConfigPath(flagPath string) string {
	if flagPath != "" {
		return flagPath
	}
	if p := os.Getenv("DESKCHAT_CONFIG"); p != "" {
		return p
	}
	if _, err := os.Stat("deskchat.yaml"); err == nil {
		return "deskchat.yaml"
	}
	return ""
}

// LoadConfigFile parses the YAML file at path into a Config.
func LoadConfigFile(path string) (Config, error) {
	var cfg Config
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// ApplyEnvOverrides overlays DESKCHAT_* environment variables onto cfg.
func ApplyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DESKCHAT_ADDR"); v != "" {
		host, port, ok := splitHostPort(v)
		if ok {
			cfg.Server.Address = host
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("DESKCHAT_DB_PATH"); v != "" {
		cfg.Server.DBPath = v
	}
	if v := os.Getenv("DESKCHAT_TLS_CERT"); v != "" {
		cfg.Server.TLS.CertFile = v
	}
	if v := os.Getenv("DESKCHAT_TLS_KEY"); v != "" {
		cfg.Server.TLS.KeyFile = v
	}
	if v := os.Getenv("DESKCHAT_TOKEN_SECRETS"); v != "" {
		cfg.Security.Token.Secrets = splitList(v)
	}
	if v := os.Getenv("DESKCHAT_TOKEN_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Security.Token.TTL = Duration(d)
		}
	}
	if v := os.Getenv("DESKCHAT_CORS_ORIGINS"); v != "" {
		cfg.Security.CORS.AllowedOrigins = splitList(v)
	}
	if v := os.Getenv("DESKCHAT_IP_WHITELIST"); v != "" {
		cfg.Security.IPWhitelist = splitList(v)
	}
	if v := os.Getenv("DESKCHAT_RATE_RPS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Security.RateLimit.RPS = f
		}
	}
	if v := os.Getenv("DESKCHAT_RATE_BURST"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Security.RateLimit.Burst = n
		}
	}
	if v := os.Getenv("DESKCHAT_SYSTEM_PROMPT"); v != "" {
		cfg.Chat.SystemPrompt = v
	}
	if v := os.Getenv("DESKCHAT_LLM_BASE_URL"); v != "" {
		cfg.LLM.BaseURL = v
	}
	if v := os.Getenv("DESKCHAT_LLM_MODEL"); v != "" {
		cfg.LLM.Model = v
	}
	if v := os.Getenv("DESKCHAT_LLM_API_KEY"); v != "" {
		cfg.LLM.APIKey = v
	} else if cfg.LLM.APIKey == "" {
		cfg.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if v := os.Getenv("DESKCHAT_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

// LoadEffective merges file, env and flag configuration. Flags win over
// env, env wins over file.
func LoadEffective(f Flags) (EffectiveConfigResult, error) {
	var res EffectiveConfigResult

	path := ResolveConfigPath(f.ConfigPath)
	if path != "" {
		cfg, err := LoadConfigFile(path)
		if err != nil {
			return res, err
		}
		res.Config = cfg
		res.ConfigSource = path
	} else {
		res.ConfigSource = "defaults"
	}

	ApplyEnvOverrides(&res.Config)

	if f.Addr != "" {
		host, port, ok := splitHostPort(f.Addr)
		if ok {
			res.Config.Server.Address = host
			res.Config.Server.Port = port
		}
	}
	if f.DBPath != "" {
		res.Config.Server.DBPath = f.DBPath
	}
	if f.TLSCert != "" {
		res.Config.Server.TLS.CertFile = f.TLSCert
	}
	if f.TLSKey != "" {
		res.Config.Server.TLS.KeyFile = f.TLSKey
	}

	applyDefaults(&res.Config)
	res.Addr = res.Config.Addr()
	res.DBPath = res.Config.Server.DBPath
	return res, nil
}

const (
	// DefaultSystemPrompt seeds stored system prompt when none has been set.
	DefaultSystemPrompt = "You are a helpful customer support assistant. Provide concise, accurate answers."
	// DefaultApology is returned when the completion backend is unreachable.
	DefaultApology = "I'm sorry, I'm having trouble connecting to my knowledge base right now. Please try again later."
)

func applyDefaults(cfg *Config) {
	if cfg.Server.DBPath == "" {
		cfg.Server.DBPath = "./data"
	}
	if cfg.Security.RateLimit.RPS == 0 {
		cfg.Security.RateLimit.RPS = 20
	}
	if cfg.Security.RateLimit.Burst == 0 {
		cfg.Security.RateLimit.Burst = 40
	}
	if cfg.Security.Token.TTL == 0 {
		cfg.Security.Token.TTL = Duration(24 * time.Hour)
	}
	if cfg.Security.MaxBodyBytes == 0 {
		cfg.Security.MaxBodyBytes = SizeBytes(1 << 20)
	}
	if cfg.Chat.SystemPrompt == "" {
		cfg.Chat.SystemPrompt = DefaultSystemPrompt
	}
	if cfg.Chat.HistoryWindow == 0 {
		cfg.Chat.HistoryWindow = 10
	}
	if cfg.Chat.ReplyDelay == 0 {
		cfg.Chat.ReplyDelay = Duration(500 * time.Millisecond)
	}
	if cfg.Chat.Apology == "" {
		cfg.Chat.Apology = DefaultApology
	}
	if cfg.LLM.Model == "" {
		cfg.LLM.Model = "gpt-4o-mini"
	}
	if cfg.LLM.Timeout == 0 {
		cfg.LLM.Timeout = Duration(30 * time.Second)
	}
	if cfg.LLM.MaxTokens == 0 {
		cfg.LLM.MaxTokens = 800
	}
	if cfg.LLM.Temperature == 0 {
		cfg.LLM.Temperature = 0.7
	}
	if cfg.Retention.Cron == "" {
		cfg.Retention.Cron = "0 3 * * *"
	}
	if cfg.Retention.Period == 0 {
		cfg.Retention.Period = Duration(90 * 24 * time.Hour)
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func splitHostPort(s string) (string, int, bool) {
	i := strings.LastIndex(s, ":")
	if i < 0 {
		return "", 0, false
	}
	host := s[:i]
	port, err := strconv.Atoi(s[i+1:])
	if err != nil {
		return "", 0, false
	}
	if host == "" {
		host = "0.0.0.0"
	}
	return host, port, true
}
