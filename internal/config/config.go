// Package config builds the process-wide configuration exactly once, from
// environment variables and command-line overrides. Core packages never
// read the environment themselves; they receive this struct.
package config

import (
	"fmt"
	"time"

	"github.com/creasty/defaults"
	"github.com/spf13/viper"

	"ldapadm/internal/ldap"
)

// EnvPrefix is the prefix of every environment variable the tool reads,
// e.g. LDAPADM_DOMAIN, LDAPADM_ADMIN_PASSWORD.
const EnvPrefix = "LDAPADM"

// Config is the resolved configuration for one invocation.
type Config struct {
	// Connection
	URL     string        // Full connection URI; takes precedence over Host/Port
	Host    string        // Directory host
	Port    int           `default:"389"` // Directory port, used with Host
	Domain  string        // Dotted domain; source of the default base DN
	Base    string        // Base DN; derived from Domain when empty
	Timeout time.Duration `default:"30s"`

	// Identity
	AdminDN       string // Administrator bind DN; defaults to cn=admin,<base>
	AdminPassword string
	BindDN        string // Explicit bind DN override
	BindPassword  string

	// Kerberos
	KerberosRealm  string
	KerberosKeytab string
	KerberosConfig string

	// Behavior
	Debug bool
}

// Load reads the environment into a Config. Flag overrides are applied by
// the caller afterwards; Resolve finalizes derived fields.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	cfg := &Config{
		URL:            v.GetString("URL"),
		Host:           v.GetString("HOST"),
		Port:           v.GetInt("PORT"),
		Domain:         v.GetString("DOMAIN"),
		Base:           v.GetString("BASE"),
		AdminDN:        v.GetString("ADMIN_DN"),
		AdminPassword:  v.GetString("ADMIN_PASSWORD"),
		KerberosRealm:  v.GetString("KERBEROS_REALM"),
		KerberosKeytab: v.GetString("KERBEROS_KEYTAB"),
		KerberosConfig: v.GetString("KERBEROS_CONFIG"),
	}

	if err := defaults.Set(cfg); err != nil {
		return nil, fmt.Errorf("failed to apply configuration defaults: %w", err)
	}

	return cfg, nil
}

// Resolve fills the fields that derive from others. It is idempotent and
// must run after all overrides have been applied.
func (c *Config) Resolve() error {
	if c.Base == "" {
		if c.Domain == "" {
			return fmt.Errorf("no base DN: set --base, %s_BASE, or %s_DOMAIN", EnvPrefix, EnvPrefix)
		}
		c.Base = ldap.BaseFromDomain(c.Domain)
	}

	if c.AdminDN == "" {
		c.AdminDN = "cn=admin," + c.Base
	}

	if c.BindDN == "" {
		c.BindDN = c.AdminDN
	}
	if c.BindPassword == "" {
		c.BindPassword = c.AdminPassword
	}

	if c.URL == "" && c.Host == "" && c.Domain == "" {
		return fmt.Errorf("no server: set --url, --host, %s_URL, %s_HOST, or %s_DOMAIN", EnvPrefix, EnvPrefix, EnvPrefix)
	}

	return nil
}

// Connection builds the directory connection configuration.
func (c *Config) Connection() *ldap.ConnectionConfig {
	conn := &ldap.ConnectionConfig{
		Host:           c.Host,
		Port:           c.Port,
		Domain:         c.Domain,
		Timeout:        c.Timeout,
		BindDN:         c.BindDN,
		Password:       c.BindPassword,
		KerberosRealm:  c.KerberosRealm,
		KerberosKeytab: c.KerberosKeytab,
		KerberosConfig: c.KerberosConfig,
	}
	if c.URL != "" {
		conn.URLs = []string{c.URL}
	}
	if err := defaults.Set(conn); err != nil {
		// Defaults on ConnectionConfig only fail on malformed tags
		panic(err)
	}
	return conn
}
