package ldap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLDAPURL(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		wantHost string
		wantPort int
		wantTLS  bool
		wantErr  bool
	}{
		{
			name:     "plain with default port",
			url:      "ldap://ldap.example.com",
			wantHost: "ldap.example.com",
			wantPort: 389,
		},
		{
			name:     "tls with default port",
			url:      "ldaps://ldap.example.com",
			wantHost: "ldap.example.com",
			wantPort: 636,
			wantTLS:  true,
		},
		{
			name:     "explicit port",
			url:      "ldap://ldap.example.com:10389",
			wantHost: "ldap.example.com",
			wantPort: 10389,
		},
		{
			name:     "path component is ignored",
			url:      "ldap://ldap.example.com:389/dc=example,dc=com",
			wantHost: "ldap.example.com",
			wantPort: 389,
		},
		{
			name:    "unsupported scheme",
			url:     "http://ldap.example.com",
			wantErr: true,
		},
		{
			name:    "empty",
			url:     "",
			wantErr: true,
		},
		{
			name:    "bad port",
			url:     "ldap://host:notaport",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server, err := ParseLDAPURL(tt.url)

			if tt.wantErr {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.wantHost, server.Host)
			assert.Equal(t, tt.wantPort, server.Port)
			assert.Equal(t, tt.wantTLS, server.UseTLS)
		})
	}
}

func TestServerInfoToURL(t *testing.T) {
	assert.Equal(t, "ldap://host:389", ServerInfoToURL(&ServerInfo{Host: "host", Port: 389}))
	assert.Equal(t, "ldaps://host:636", ServerInfoToURL(&ServerInfo{Host: "host", Port: 636, UseTLS: true}))
}

func TestSortServersByPriority(t *testing.T) {
	servers := []*ServerInfo{
		{Host: "c", Priority: 10, Weight: 50},
		{Host: "a", Priority: 0, Weight: 10},
		{Host: "d", Priority: 10, Weight: 100},
		{Host: "b", Priority: 0, Weight: 20},
	}

	d := NewSRVDiscovery(nil)
	d.sortServersByPriority(servers)

	hosts := make([]string, 0, len(servers))
	for _, s := range servers {
		hosts = append(hosts, s.Host)
	}

	// Lower priority first, higher weight first within a priority.
	assert.Equal(t, []string{"b", "a", "d", "c"}, hosts)
}

func TestCreateFallbackServers(t *testing.T) {
	d := NewSRVDiscovery(nil)
	servers := d.createFallbackServers("example.com")

	require.Len(t, servers, 2)
	assert.Equal(t, 636, servers[0].Port)
	assert.True(t, servers[0].UseTLS)
	assert.Equal(t, 389, servers[1].Port)
	assert.False(t, servers[1].UseTLS)
	for _, s := range servers {
		assert.Equal(t, "example.com", s.Host)
		assert.Equal(t, "fallback", s.Source)
	}
}
