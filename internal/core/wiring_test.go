package core

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"vault-bootstrap/internal/config"
)

func TestAdvertisedURLs(t *testing.T) {
	cfg := &config.Config{
		Binding: config.Binding{
			AccessAddress:  "10.0.0.5",
			ClusterAddress: "10.0.0.6",
		},
	}

	t.Run("plain http before the certificate is provisioned", func(t *testing.T) {
		apiURL, clusterURL, err := NewWiring(cfg).AdvertisedURLs()

		require.NoError(t, err)
		require.Equal(t, "http://10.0.0.5:8200", apiURL)
		require.Equal(t, "http://10.0.0.6:8201", clusterURL)
	})

	t.Run("https once the certificate exists on disk", func(t *testing.T) {
		certFile := filepath.Join(t.TempDir(), "vault.crt")
		require.NoError(t, os.WriteFile(certFile, []byte("certificate"), 0o600))

		tlsCfg := *cfg
		tlsCfg.TLSCertFile = certFile

		apiURL, clusterURL, err := NewWiring(&tlsCfg).AdvertisedURLs()

		require.NoError(t, err)
		require.Equal(t, "https://10.0.0.5:8200", apiURL)
		require.Equal(t, "https://10.0.0.6:8201", clusterURL)
	})

	t.Run("missing certificate file stays on http", func(t *testing.T) {
		missingCfg := *cfg
		missingCfg.TLSCertFile = filepath.Join(t.TempDir(), "absent.crt")

		apiURL, _, err := NewWiring(&missingCfg).AdvertisedURLs()

		require.NoError(t, err)
		require.Equal(t, "http://10.0.0.5:8200", apiURL)
	})
}
