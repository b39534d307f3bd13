package ldap

import (
	"context"
	"fmt"
	"net"
	"sort"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
)

// SRVDiscovery handles DNS SRV record discovery for directory servers.
type SRVDiscovery struct {
	resolver *net.Resolver
	log      *logrus.Entry
}

// NewSRVDiscovery creates a new SRV discovery instance.
func NewSRVDiscovery(log *logrus.Entry) *SRVDiscovery {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &SRVDiscovery{
		resolver: net.DefaultResolver,
		log:      log,
	}
}

// DiscoverServers discovers LDAP servers for a domain using SRV records.
// Lookup order: _ldaps._tcp.<domain> (preferred), then _ldap._tcp.<domain>.
// When no SRV records exist the domain itself is used on standard ports.
func (d *SRVDiscovery) DiscoverServers(ctx context.Context, domain string) ([]*ServerInfo, error) {
	if domain == "" {
		return nil, fmt.Errorf("domain cannot be empty")
	}

	var allServers []*ServerInfo

	srvRecords := []struct {
		service string
		useTLS  bool
	}{
		{"_ldaps._tcp." + domain, true},
		{"_ldap._tcp." + domain, false},
	}

	for _, record := range srvRecords {
		servers, err := d.lookupSRV(ctx, record.service, record.useTLS)
		if err != nil {
			d.log.WithFields(logrus.Fields{
				"service": record.service,
				"error":   err.Error(),
			}).Debug("SRV lookup failed, continuing to next service")
			continue
		}
		allServers = append(allServers, servers...)

		// Prefer LDAPS servers when found; do not look further
		if record.useTLS && len(servers) > 0 {
			break
		}
	}

	if len(allServers) == 0 {
		d.log.WithField("domain", domain).Debug("no SRV records found, using fallback servers")
		return d.createFallbackServers(domain), nil
	}

	d.sortServersByPriority(allServers)

	d.log.WithFields(logrus.Fields{
		"domain":       domain,
		"server_count": len(allServers),
	}).Debug("server discovery completed")

	return allServers, nil
}

// lookupSRV performs SRV record lookup for a specific service.
func (d *SRVDiscovery) lookupSRV(ctx context.Context, service string, useTLS bool) ([]*ServerInfo, error) {
	_, srvRecords, err := d.resolver.LookupSRV(ctx, "", "", service)
	if err != nil {
		return nil, fmt.Errorf("SRV lookup failed for %s: %w", service, err)
	}

	if len(srvRecords) == 0 {
		return nil, fmt.Errorf("no SRV records found for %s", service)
	}

	var servers []*ServerInfo
	for _, srv := range srvRecords {
		servers = append(servers, &ServerInfo{
			Host:     strings.TrimSuffix(srv.Target, "."),
			Port:     int(srv.Port),
			UseTLS:   useTLS,
			Priority: int(srv.Priority),
			Weight:   int(srv.Weight),
			Source:   "srv",
		})
	}

	return servers, nil
}

// createFallbackServers targets the domain itself on the standard ports.
func (d *SRVDiscovery) createFallbackServers(domain string) []*ServerInfo {
	return []*ServerInfo{
		{Host: domain, Port: 636, UseTLS: true, Priority: 0, Weight: 100, Source: "fallback"},
		{Host: domain, Port: 389, UseTLS: false, Priority: 1, Weight: 100, Source: "fallback"},
	}
}

// sortServersByPriority sorts servers by priority and weight per RFC 2782.
func (d *SRVDiscovery) sortServersByPriority(servers []*ServerInfo) {
	sort.Slice(servers, func(i, j int) bool {
		if servers[i].Priority != servers[j].Priority {
			return servers[i].Priority < servers[j].Priority
		}
		return servers[i].Weight > servers[j].Weight
	})
}

// ServerInfoToURL converts ServerInfo to an LDAP URL.
func ServerInfoToURL(server *ServerInfo) string {
	scheme := "ldap"
	if server.UseTLS {
		scheme = "ldaps"
	}
	return fmt.Sprintf("%s://%s:%d", scheme, server.Host, server.Port)
}

// ParseLDAPURL parses an ldap:// or ldaps:// URL into ServerInfo.
func ParseLDAPURL(url string) (*ServerInfo, error) {
	if url == "" {
		return nil, fmt.Errorf("URL cannot be empty")
	}

	var useTLS bool
	switch {
	case strings.HasPrefix(url, "ldaps://"):
		useTLS = true
		url = strings.TrimPrefix(url, "ldaps://")
	case strings.HasPrefix(url, "ldap://"):
		url = strings.TrimPrefix(url, "ldap://")
	default:
		return nil, fmt.Errorf("unsupported scheme, must be ldap:// or ldaps://")
	}

	// Strip any path component
	if idx := strings.Index(url, "/"); idx >= 0 {
		url = url[:idx]
	}

	host := url
	port := 389
	if useTLS {
		port = 636
	}

	if strings.Contains(url, ":") {
		h, portStr, err := net.SplitHostPort(url)
		if err != nil {
			return nil, fmt.Errorf("invalid URL format: %w", err)
		}
		p, err := strconv.Atoi(portStr)
		if err != nil || p <= 0 || p > 65535 {
			return nil, fmt.Errorf("invalid port in URL: %s", portStr)
		}
		host = h
		port = p
	}

	if host == "" {
		return nil, fmt.Errorf("URL has no host")
	}

	return &ServerInfo{
		Host:     host,
		Port:     port,
		UseTLS:   useTLS,
		Source:   "config",
		Priority: 0,
		Weight:   100,
	}, nil
}
