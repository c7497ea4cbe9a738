package bootstrap

import "fmt"

// Names of the charm-managed access entities. The charm- prefix partitions
// everything this agent manages from operator-created entities.
const (
	CharmAccessRole = "local-charm-access"
	CharmPolicyName = "local-charm-policy"

	charmTokenTTL    = "60s"
	charmTokenMaxTTL = "60s"
	localOnlyCIDR    = "127.0.0.1/32"
)

// CharmPolicy grants exactly the rights the local agent needs: manage
// charm- prefixed policies, approle roles and secret backend mounts, and
// discover each of those namespaces.
const CharmPolicy = `
# Allow managment of policies starting with charm- prefix
path "sys/policy/charm-*" {
  capabilities = ["create", "read", "update", "delete"]
}

# Allow discovery of all policies
path "sys/policy/" {
  capabilities = ["list"]
}

# Allow management of approle's with charm- prefix
path "auth/approle/role/charm-*" {
  capabilities = ["create", "read", "update", "delete", "list"]
}

# Allow discovery of approles
path "auth/approle/role" {
  capabilities = ["read"]
}
path "auth/approle/role/" {
  capabilities = ["list"]
}

# Allow charm- prefixes secrets backends to be mounted and managed
path "sys/mounts/charm-*" {
  capabilities = ["create", "read", "update", "delete", "sudo"]
}

# Allow discovery of secrets backends
path "sys/mounts" {
  capabilities = ["read"]
}
path "sys/mounts/" {
  capabilities = ["list"]
}`

// HostScopedBackendPolicy grants a consumer exclusive access to its own
// hostname-keyed namespace under a secret backend.
func HostScopedBackendPolicy(backend, hostname string) string {
	return fmt.Sprintf(`
path "%s/%s/*" {
  capabilities = ["create", "read", "update", "delete", "list"]
}
`, backend, hostname)
}

// SharedBackendPolicy grants a consumer pooled access to the whole secret
// namespace of a backend.
func SharedBackendPolicy(backend string) string {
	return fmt.Sprintf(`
path "%s/*" {
  capabilities = ["create", "read", "update", "delete", "list"]
}
`, backend)
}
