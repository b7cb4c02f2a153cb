package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix prefixes every environment variable read by parseEnv,
// e.g. GOPHAUTH_SECRET_KEY.
const EnvPrefix = "GOPHAUTH"

// parseEnv overlays config with GOPHAUTH_* variables. Unset variables leave
// the current value untouched.
func parseEnv(config *Config) error {
	if err := envconfig.Process(EnvPrefix, config); err != nil {
		return fmt.Errorf("parse environment: %w", err)
	}
	return nil
}
