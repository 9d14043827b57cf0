// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Kanri Contributors

package config

import (
	"github.com/samber/oops"
	"gopkg.in/yaml.v3"
)

const redacted = "<redacted>"

// Redacted returns the configuration as nested maps with secrets masked
// and durations in their string form.
func (c *Config) Redacted() map[string]any {
	secret := ""
	if c.Auth.Secret != "" {
		secret = redacted
	}
	dbURL := ""
	if c.Database.URL != "" {
		dbURL = redacted
	}
	origins := c.CORS.AllowedOrigins
	if origins == nil {
		origins = []string{}
	}
	return map[string]any{
		"http":     map[string]any{"addr": c.HTTP.Addr},
		"metrics":  map[string]any{"addr": c.Metrics.Addr},
		"database": map[string]any{"url": dbURL},
		"log":      map[string]any{"format": c.Log.Format, "level": c.Log.Level},
		"auth": map[string]any{
			"secret":        secret,
			"access_ttl":    c.Auth.AccessTTL.String(),
			"refresh_ttl":   c.Auth.RefreshTTL.String(),
			"hasher":        c.Auth.Hasher,
			"bcrypt_cost":   c.Auth.BcryptCost,
			"cookie_secure": c.Auth.CookieSecure,
		},
		"cors":  map[string]any{"allowed_origins": origins},
		"store": c.Store,
	}
}

// YAML renders Redacted as a YAML document.
func (c *Config) YAML() ([]byte, error) {
	out, err := yaml.Marshal(c.Redacted())
	if err != nil {
		return nil, oops.Code("CONFIG_RENDER_FAILED").Wrap(err)
	}
	return out, nil
}
