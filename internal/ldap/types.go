package ldap

import (
	"crypto/tls"
	"time"

	"github.com/go-ldap/ldap/v3"
)

// ConnectionConfig holds everything needed to reach and authenticate
// against the directory. It is built once at process start and passed
// explicitly; nothing in this package reads the environment.
type ConnectionConfig struct {
	// Connection settings
	URLs    []string      // Direct LDAP URLs (override domain discovery)
	Host    string        // Explicit host (overrides SRV discovery)
	Port    int           `default:"389"` // Port used with Host
	Domain  string        // Domain for SRV discovery and base DN derivation
	Timeout time.Duration `default:"30s"` // Network timeout

	// Authentication settings
	BindDN   string // DN for simple bind
	Password string // Password for simple bind

	// Kerberos settings (GSSAPI bind is used when Realm is set)
	KerberosRealm  string // Kerberos realm
	KerberosKeytab string // Path to keytab file
	KerberosCCache string // Path to credential cache
	KerberosConfig string // Path to krb5.conf
	KerberosSPN    string // Explicit service principal override

	// TLS settings
	TLSConfig *tls.Config // Custom TLS configuration
	UseTLS    bool        // Upgrade plain connections with StartTLS
	SkipTLS   bool        // Never negotiate TLS

	// Retry settings for the connect phase
	MaxRetries     int           `default:"3"`
	InitialBackoff time.Duration `default:"500ms"`
	MaxBackoff     time.Duration `default:"30s"`
	BackoffFactor  float64       `default:"2.0"`
}

// ServerInfo describes one resolved directory server.
type ServerInfo struct {
	Host     string
	Port     int
	UseTLS   bool
	Priority int
	Weight   int
	Source   string // "srv", "config", "fallback"
}

// AuthMethod defines how a session authenticates.
type AuthMethod int

const (
	AuthMethodSimpleBind AuthMethod = iota // DN/password authentication
	AuthMethodKerberos                     // GSSAPI/Kerberos authentication
	AuthMethodAnonymous                    // No credentials at all
)

// String returns the string representation of the authentication method.
func (a AuthMethod) String() string {
	switch a {
	case AuthMethodSimpleBind:
		return "simple"
	case AuthMethodKerberos:
		return "kerberos"
	case AuthMethodAnonymous:
		return "anonymous"
	default:
		return "unknown"
	}
}

// AuthMethod determines the authentication method from the configuration.
// Kerberos takes precedence over simple bind.
func (c *ConnectionConfig) AuthMethod() AuthMethod {
	if c.KerberosRealm != "" {
		return AuthMethodKerberos
	}
	if c.BindDN != "" {
		return AuthMethodSimpleBind
	}
	return AuthMethodAnonymous
}

// SearchScope defines LDAP search scope.
type SearchScope int

const (
	ScopeBaseObject SearchScope = iota
	ScopeSingleLevel
	ScopeWholeSubtree
)

// String returns the string representation of the scope.
func (s SearchScope) String() string {
	switch s {
	case ScopeBaseObject:
		return "base"
	case ScopeSingleLevel:
		return "one"
	case ScopeWholeSubtree:
		return "sub"
	default:
		return "unknown"
	}
}

// SearchRequest encapsulates LDAP search parameters.
type SearchRequest struct {
	BaseDN     string
	Scope      SearchScope
	Filter     string
	Attributes []string
	SizeLimit  int
	TimeLimit  time.Duration
}

// SearchResult contains search results.
type SearchResult struct {
	Entries []*ldap.Entry
}

// Attributes is the attribute map used for entry creation: attribute name
// to ordered value list.
type Attributes map[string][]string

// AddRequest encapsulates LDAP add parameters.
type AddRequest struct {
	DN         string
	Attributes Attributes
}

// ModOp is the kind of a single modify operation.
type ModOp int

const (
	ModAdd ModOp = iota
	ModReplace
	ModDelete
)

// String returns the LDIF changetype keyword for the operation.
func (op ModOp) String() string {
	switch op {
	case ModAdd:
		return "add"
	case ModReplace:
		return "replace"
	case ModDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// Mod is one (operation, attribute, values) triple of a modify change.
// A modify request carries an ordered sequence of these; order is preserved
// all the way to the wire.
type Mod struct {
	Op     ModOp
	Attr   string
	Values []string
}

// ModifyRequest encapsulates LDAP modify parameters.
type ModifyRequest struct {
	DN   string
	Mods []Mod
}

// Conn is the minimal directory operation surface the admin layer depends
// on. *Session implements it against a live server; tests substitute fakes.
type Conn interface {
	Add(req *AddRequest) error
	Modify(req *ModifyRequest) error
	Delete(dn string) error
	Search(req *SearchRequest) (*SearchResult, error)
}

// ConnectionError represents connection-phase errors.
type ConnectionError struct {
	message   string
	retryable bool
	cause     error
}

func (e *ConnectionError) Error() string {
	if e.cause != nil {
		return e.message + ": " + e.cause.Error()
	}
	return e.message
}

func (e *ConnectionError) IsRetryable() bool {
	return e.retryable
}

func (e *ConnectionError) Unwrap() error {
	return e.cause
}

// NewConnectionError creates a new connection error.
func NewConnectionError(message string, retryable bool, cause error) *ConnectionError {
	return &ConnectionError{
		message:   message,
		retryable: retryable,
		cause:     cause,
	}
}
