package vault

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestURLFor(t *testing.T) {
	tests := []struct {
		name         string
		address      string
		port         int
		tlsAvailable bool
		expected     string
	}{
		{"plain http before tls", "10.0.0.5", 8200, false, "http://10.0.0.5:8200"},
		{"https once tls provisioned", "10.0.0.5", 8200, true, "https://10.0.0.5:8200"},
		{"cluster port", "10.0.0.5", 8201, false, "http://10.0.0.5:8201"},
		{"hostname address", "vault-0.internal", 8200, true, "https://vault-0.internal:8200"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.expected, URLFor(tt.address, tt.port, tt.tlsAvailable))
		})
	}
}

func TestAddrHelpers(t *testing.T) {
	require.Equal(t, "http://10.0.0.5:8200", APIAddr("10.0.0.5", false))
	require.Equal(t, "https://10.0.0.5:8200", APIAddr("10.0.0.5", true))
	require.Equal(t, "http://10.0.0.5:8201", ClusterAddr("10.0.0.5", false))
	require.Equal(t, "https://10.0.0.5:8201", ClusterAddr("10.0.0.5", true))
}

func TestLocalAdminURLIsLoopback(t *testing.T) {
	require.Equal(t, "http://127.0.0.1:8220", LocalAdminURL)
}

func TestTLSAvailable(t *testing.T) {
	t.Run("false when no path configured", func(t *testing.T) {
		require.False(t, TLSAvailable(""))
	})

	t.Run("false when the file does not exist", func(t *testing.T) {
		require.False(t, TLSAvailable(filepath.Join(t.TempDir(), "absent.crt")))
	})

	t.Run("false when the path is a directory", func(t *testing.T) {
		require.False(t, TLSAvailable(t.TempDir()))
	})

	t.Run("true once the certificate exists", func(t *testing.T) {
		certFile := filepath.Join(t.TempDir(), "vault.crt")
		require.NoError(t, os.WriteFile(certFile, []byte("certificate"), 0o600))

		require.True(t, TLSAvailable(certFile))
	})
}
