package manifest

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewServerInfo(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		m        Manifest
		scope    Scope
		expected ServerInfo
	}{
		{
			name: "defaults",
			m:    Manifest{},
			expected: ServerInfo{
				ID:            "com.example.a",
				Name:          DefaultName,
				Version:       DefaultVersion,
				TransportType: TransportUnknown,
				Scope:         ScopeUser,
				InstallDir:    "/i/com.example.a",
			},
			scope: ScopeUser,
		},
		{
			name: "manifest values win, stale id ignored",
			m: Manifest{
				ID:         "stale.id",
				Name:       "A",
				Version:    "2.0.0",
				Transports: []Transport{NewSSETransport("https://h/sse")},
				InstallDir: "/elsewhere",
			},
			scope: ScopeSystem,
			expected: ServerInfo{
				ID:            "com.example.a",
				Name:          "A",
				Version:       "2.0.0",
				TransportType: TransportSSE,
				Scope:         ScopeSystem,
				InstallDir:    "/elsewhere",
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got := NewServerInfo("com.example.a", tc.m, tc.scope, "/i/com.example.a/manifest.json")
			require.Equal(t, tc.expected, got)
		})
	}
}

func TestParseScope(t *testing.T) {
	t.Parallel()

	s, err := ParseScope(" System ")
	require.NoError(t, err)
	require.Equal(t, ScopeSystem, s)
	require.True(t, s.IsSystem())

	s, err = ParseScope("user")
	require.NoError(t, err)
	require.Equal(t, ScopeUser, s)
	require.False(t, s.IsSystem())

	_, err = ParseScope("global")
	require.Error(t, err)

	require.Equal(t, []Scope{ScopeUser, ScopeSystem}, Scopes())
}
