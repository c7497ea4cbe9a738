package vault

import (
	"fmt"
	"os"
)

const (
	// LocalAdminURL is the fixed loopback endpoint used for all local
	// administrative operations (initialize, unseal, provisioning).
	LocalAdminURL = "http://127.0.0.1:8220"

	APIPort     = 8200
	ClusterPort = 8201
)

// URLFor builds a server URL for the given address and port. The protocol
// is https once TLS has been provisioned, plain http before that.
func URLFor(address string, port int, tlsAvailable bool) string {
	protocol := "http"
	if tlsAvailable {
		protocol = "https"
	}
	return fmt.Sprintf("%s://%s:%d", protocol, address, port)
}

// APIAddr is the peer-facing API URL for an address.
func APIAddr(address string, tlsAvailable bool) string {
	return URLFor(address, APIPort, tlsAvailable)
}

// ClusterAddr is the cluster-replication URL for an address.
func ClusterAddr(address string, tlsAvailable bool) string {
	return URLFor(address, ClusterPort, tlsAvailable)
}

// TLSAvailable reports whether the server's TLS certificate has been
// provisioned at path. Peer-facing URLs switch to https once it exists.
func TLSAvailable(path string) bool {
	if path == "" {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
