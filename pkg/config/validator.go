package config

import (
	"fmt"
	"net/url"

	"github.com/easyengine/ee-dash/pkg/utils"
)

// Validate checks the values a run cannot start without.
func (c *Config) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("please provide a Dashboard API key using the --api=<token:key> flag")
	}
	if c.Organization == "" {
		return fmt.Errorf("please provide a Dashboard organization name using the --org=<org-name> flag")
	}

	u, err := url.Parse(c.APIURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid Dashboard API URL %q", c.APIURL)
	}

	for name, version := range map[string]string{
		"min_php_version":     c.MinPHPVersion,
		"default_php_version": c.DefaultPHPVersion,
	} {
		if _, err := utils.CanonicalVersion(version); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}

	if c.BreakerThreshold == 0 {
		return fmt.Errorf("breaker_threshold must be at least 1")
	}
	return nil
}
