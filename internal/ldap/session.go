package ldap

import (
	"context"
	"fmt"
	"time"

	"github.com/go-ldap/ldap/v3"
	"github.com/sirupsen/logrus"
)

// Session is one bound connection to a directory server. A command
// invocation opens at most one session, uses it for every operation it
// performs, and releases it before returning on every path.
type Session struct {
	conn   *ldap.Conn
	config *ConnectionConfig
	server *ServerInfo
	log    *logrus.Entry
}

// Connect resolves a server, dials it and authenticates according to the
// configuration. Server resolution order: explicit URLs, explicit host and
// port, SRV discovery from the domain.
//
// Only the connect phase retries; once a session is established, failed
// operations are reported as-is.
func Connect(ctx context.Context, config *ConnectionConfig, log *logrus.Entry) (*Session, error) {
	if config == nil {
		return nil, fmt.Errorf("connection configuration is required")
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}

	servers, err := resolveServers(ctx, config, log)
	if err != nil {
		return nil, err
	}

	var lastErr error
	backoff := config.InitialBackoff

	for attempt := 0; attempt <= config.MaxRetries; attempt++ {
		for _, server := range servers {
			session, err := connectSingle(config, server, log)
			if err != nil {
				log.WithFields(logrus.Fields{
					"server":  ServerInfoToURL(server),
					"attempt": attempt + 1,
					"error":   err.Error(),
				}).Debug("connection attempt failed")
				lastErr = err
				continue
			}
			return session, nil
		}

		if attempt < config.MaxRetries {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
				backoff = min(time.Duration(float64(backoff)*config.BackoffFactor), config.MaxBackoff)
			}
		}
	}

	return nil, NewConnectionError("failed to connect after retries", true, lastErr)
}

// resolveServers determines which servers to try, in order.
func resolveServers(ctx context.Context, config *ConnectionConfig, log *logrus.Entry) ([]*ServerInfo, error) {
	if len(config.URLs) > 0 {
		servers := make([]*ServerInfo, 0, len(config.URLs))
		for _, url := range config.URLs {
			server, err := ParseLDAPURL(url)
			if err != nil {
				return nil, fmt.Errorf("invalid LDAP URL %s: %w", url, err)
			}
			servers = append(servers, server)
		}
		return servers, nil
	}

	if config.Host != "" {
		port := config.Port
		if port == 0 {
			port = 389
		}
		return []*ServerInfo{{
			Host:   config.Host,
			Port:   port,
			UseTLS: port == 636,
			Source: "config",
		}}, nil
	}

	if config.Domain != "" {
		discoveryCtx, cancel := context.WithTimeout(ctx, config.Timeout)
		defer cancel()
		return NewSRVDiscovery(log).DiscoverServers(discoveryCtx, config.Domain)
	}

	return nil, fmt.Errorf("no server configured: set a URL, host, or domain")
}

// connectSingle dials one server and authenticates the connection.
func connectSingle(config *ConnectionConfig, server *ServerInfo, log *logrus.Entry) (*Session, error) {
	url := ServerInfoToURL(server)

	var conn *ldap.Conn
	var err error

	if server.UseTLS {
		conn, err = ldap.DialURL(url, ldap.DialWithTLSConfig(config.TLSConfig))
	} else {
		conn, err = ldap.DialURL(url)
		if err == nil && config.UseTLS && !config.SkipTLS {
			err = conn.StartTLS(config.TLSConfig)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", url, err)
	}

	if config.Timeout > 0 {
		conn.SetTimeout(config.Timeout)
	}

	session := &Session{
		conn:   conn,
		config: config,
		server: server,
		log:    log,
	}

	if err := session.authenticate(); err != nil {
		conn.Close()
		return nil, err
	}

	log.WithFields(logrus.Fields{
		"server":      url,
		"auth_method": config.AuthMethod().String(),
	}).Debug("session established")

	return session, nil
}

// authenticate binds the connection according to the configured method.
func (s *Session) authenticate() error {
	switch s.config.AuthMethod() {
	case AuthMethodKerberos:
		return kerberosBind(s.conn, s.config, s.server)
	case AuthMethodSimpleBind:
		if err := s.conn.Bind(s.config.BindDN, s.config.Password); err != nil {
			return NewLDAPError("bind", err)
		}
		return nil
	default:
		if err := s.conn.UnauthenticatedBind(""); err != nil {
			return NewLDAPError("bind", err)
		}
		return nil
	}
}

// BoundDN returns the DN the session authenticated as. Empty for
// anonymous and Kerberos sessions.
func (s *Session) BoundDN() string {
	if s.config.AuthMethod() == AuthMethodSimpleBind {
		return s.config.BindDN
	}
	return ""
}

// Close releases the connection. Safe to call on every exit path.
func (s *Session) Close() {
	if s.conn != nil {
		s.conn.Close()
		s.conn = nil
	}
}

// Add creates a new directory entry.
func (s *Session) Add(req *AddRequest) error {
	if req == nil {
		return fmt.Errorf("add request cannot be nil")
	}

	ldapReq := ldap.NewAddRequest(req.DN, nil)
	for attr, values := range req.Attributes {
		ldapReq.Attribute(attr, values)
	}

	s.log.WithField("dn", req.DN).Debug("add entry")

	if err := s.conn.Add(ldapReq); err != nil {
		le := NewLDAPError("add", err)
		le.DN = req.DN
		return le
	}
	return nil
}

// Modify applies an ordered sequence of modify operations to an entry.
func (s *Session) Modify(req *ModifyRequest) error {
	if req == nil {
		return fmt.Errorf("modify request cannot be nil")
	}

	ldapReq := ldap.NewModifyRequest(req.DN, nil)
	for _, mod := range req.Mods {
		switch mod.Op {
		case ModAdd:
			ldapReq.Add(mod.Attr, mod.Values)
		case ModReplace:
			ldapReq.Replace(mod.Attr, mod.Values)
		case ModDelete:
			ldapReq.Delete(mod.Attr, mod.Values)
		}
	}

	s.log.WithFields(logrus.Fields{
		"dn":   req.DN,
		"mods": len(req.Mods),
	}).Debug("modify entry")

	if err := s.conn.Modify(ldapReq); err != nil {
		le := NewLDAPError("modify", err)
		le.DN = req.DN
		return le
	}
	return nil
}

// Delete removes a directory entry.
func (s *Session) Delete(dn string) error {
	if dn == "" {
		return fmt.Errorf("DN cannot be empty")
	}

	s.log.WithField("dn", dn).Debug("delete entry")

	if err := s.conn.Del(ldap.NewDelRequest(dn, nil)); err != nil {
		le := NewLDAPError("delete", err)
		le.DN = dn
		return le
	}
	return nil
}

// Search performs a directory search.
func (s *Session) Search(req *SearchRequest) (*SearchResult, error) {
	if req == nil {
		return nil, fmt.Errorf("search request cannot be nil")
	}

	ldapReq := ldap.NewSearchRequest(
		req.BaseDN,
		int(req.Scope),
		ldap.NeverDerefAliases,
		req.SizeLimit,
		int(req.TimeLimit.Seconds()),
		false,
		req.Filter,
		req.Attributes,
		nil,
	)

	s.log.WithFields(logrus.Fields{
		"base_dn": req.BaseDN,
		"scope":   req.Scope.String(),
		"filter":  req.Filter,
	}).Debug("search")

	result, err := s.conn.Search(ldapReq)
	if err != nil {
		le := NewLDAPError("search", err)
		le.DN = req.BaseDN
		return nil, le
	}

	return &SearchResult{Entries: result.Entries}, nil
}
