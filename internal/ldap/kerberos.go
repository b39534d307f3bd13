package ldap

import (
	"fmt"
	"os"
	"strings"

	"github.com/go-ldap/ldap/v3"
	"github.com/go-ldap/ldap/v3/gssapi"
	krb5client "github.com/jcmturner/gokrb5/v8/client"
)

// kerberosBind performs GSSAPI authentication on an LDAP connection.
func kerberosBind(conn *ldap.Conn, cfg *ConnectionConfig, server *ServerInfo) error {
	if err := validateKerberosConfig(cfg); err != nil {
		return fmt.Errorf("kerberos configuration error: %w", err)
	}

	gssapiClient, err := newGSSAPIClient(cfg)
	if err != nil {
		return fmt.Errorf("failed to create GSSAPI client: %w", err)
	}
	defer func() {
		_ = gssapiClient.DeleteSecContext()
	}()

	spn, err := servicePrincipal(cfg, server)
	if err != nil {
		return fmt.Errorf("failed to build service principal: %w", err)
	}

	if err := conn.GSSAPIBind(gssapiClient, spn, ""); err != nil {
		return fmt.Errorf("GSSAPI bind failed: %w", err)
	}

	return nil
}

// newGSSAPIClient creates a GSSAPI client from the configuration.
// Priority order: explicit credential cache, default cache, explicit keytab,
// default keytab, password.
func newGSSAPIClient(cfg *ConnectionConfig) (ldap.GSSAPIClient, error) {
	krb5confPath := cfg.KerberosConfig
	if krb5confPath == "" {
		krb5confPath = "/etc/krb5.conf"
	}

	if !fileExists(krb5confPath) {
		return nil, fmt.Errorf("kerberos configuration file not found at %s", krb5confPath)
	}

	principal := kerberosPrincipal(cfg)

	if cfg.KerberosCCache != "" && fileExists(cfg.KerberosCCache) {
		return gssapi.NewClientFromCCache(cfg.KerberosCCache, krb5confPath, krb5client.DisablePAFXFAST(true))
	}

	if defaultCCache := defaultCCachePath(); fileExists(defaultCCache) {
		return gssapi.NewClientFromCCache(defaultCCache, krb5confPath, krb5client.DisablePAFXFAST(true))
	}

	if cfg.KerberosKeytab != "" && fileExists(cfg.KerberosKeytab) {
		return gssapi.NewClientWithKeytab(principal, cfg.KerberosRealm, cfg.KerberosKeytab, krb5confPath, krb5client.DisablePAFXFAST(true))
	}

	if principal != "" {
		if defaultKeytab := defaultKeytabPath(); fileExists(defaultKeytab) {
			return gssapi.NewClientWithKeytab(principal, cfg.KerberosRealm, defaultKeytab, krb5confPath, krb5client.DisablePAFXFAST(true))
		}
	}

	if principal != "" && cfg.Password != "" {
		return gssapi.NewClientWithPassword(principal, cfg.KerberosRealm, cfg.Password, krb5confPath, krb5client.DisablePAFXFAST(true))
	}

	return nil, fmt.Errorf("no suitable credentials found for Kerberos authentication")
}

// kerberosPrincipal derives the principal name from the bind identity,
// dropping any @REALM suffix.
func kerberosPrincipal(cfg *ConnectionConfig) string {
	principal := cfg.BindDN
	if idx := strings.Index(principal, "@"); idx >= 0 {
		principal = principal[:idx]
	}
	return principal
}

// servicePrincipal constructs the LDAP SPN for the target server. An
// explicit KerberosSPN overrides the automatic construction.
func servicePrincipal(cfg *ConnectionConfig, server *ServerInfo) (string, error) {
	if cfg.KerberosSPN != "" {
		return cfg.KerberosSPN, nil
	}

	if server == nil || server.Host == "" {
		return "", fmt.Errorf("server host is required for service principal")
	}

	return fmt.Sprintf("ldap/%s", server.Host), nil
}

// validateKerberosConfig checks that a GSSAPI bind can be attempted.
func validateKerberosConfig(cfg *ConnectionConfig) error {
	if cfg == nil {
		return fmt.Errorf("configuration cannot be nil")
	}

	if cfg.KerberosRealm == "" {
		return fmt.Errorf("kerberos realm is required for GSSAPI authentication")
	}

	hasCCache := (cfg.KerberosCCache != "" && fileExists(cfg.KerberosCCache)) || fileExists(defaultCCachePath())
	hasKeytab := (cfg.KerberosKeytab != "" && fileExists(cfg.KerberosKeytab)) || fileExists(defaultKeytabPath())
	hasPassword := cfg.BindDN != "" && cfg.Password != ""

	if !hasCCache && !hasKeytab && !hasPassword {
		return fmt.Errorf("no Kerberos credentials available: provide a credential cache, keytab, or principal and password")
	}

	return nil
}

// defaultCCachePath returns the default credential cache location.
func defaultCCachePath() string {
	if ccache := os.Getenv("KRB5CCNAME"); ccache != "" {
		return strings.TrimPrefix(ccache, "FILE:")
	}
	return fmt.Sprintf("/tmp/krb5cc_%d", os.Getuid())
}

// defaultKeytabPath returns the default keytab location.
func defaultKeytabPath() string {
	if keytab := os.Getenv("KRB5_KTNAME"); keytab != "" {
		return strings.TrimPrefix(keytab, "FILE:")
	}
	return "/etc/krb5.keytab"
}

// fileExists checks if a file exists and is readable.
func fileExists(path string) bool {
	if path == "" {
		return false
	}
	file, err := os.Open(path)
	if err != nil {
		return false
	}
	_ = file.Close()
	return true
}
