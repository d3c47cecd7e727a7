package app

import (
	"errors"
	"fmt"
	"strings"

	"deskchat/pkg/config"
)

// validateConfig fails fast on configurations that would only surface as
// runtime errors later.
func validateConfig(cfg *config.Config) error {
	if len(cfg.Security.Token.Secrets) == 0 {
		return errors.New("security.token.secrets must contain at least one secret (or set DESKCHAT_TOKEN_SECRETS)")
	}
	for i, s := range cfg.Security.Token.Secrets {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("security.token.secrets[%d] is empty", i)
		}
	}
	cert, key := cfg.Server.TLS.CertFile, cfg.Server.TLS.KeyFile
	if (cert == "") != (key == "") {
		return errors.New("server.tls requires both cert_file and key_file")
	}
	if cfg.Security.RateLimit.RPS < 0 || cfg.Security.RateLimit.Burst < 0 {
		return errors.New("security.rate_limit values must not be negative")
	}
	if cfg.Chat.HistoryWindow < 1 {
		return errors.New("chat.history_window must be at least 1")
	}
	if cfg.Server.DBPath == "" {
		return errors.New("server.db_path is required")
	}
	return nil
}
