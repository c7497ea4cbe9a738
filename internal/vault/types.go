package vault

// ServerHealth mirrors the JSON body of GET /v1/sys/health. The field
// names are part of the server's wire contract and must not change.
type ServerHealth struct {
	Initialized   bool   `json:"initialized"`
	Sealed        bool   `json:"sealed"`
	Standby       bool   `json:"standby"`
	ServerTimeUTC int64  `json:"server_time_utc"`
	Version       string `json:"version"`
	ClusterName   string `json:"cluster_name"`
	ClusterID     string `json:"cluster_id"`
}

// InitResult is the outcome of initializing a fresh server. The keys are
// returned in server order; submitting them in the same order keeps the
// unseal progress output readable.
type InitResult struct {
	RootToken string   `json:"root_token"`
	Keys      []string `json:"keys"`
}

// SealProgress is the seal status reported after submitting an unseal key.
type SealProgress struct {
	Sealed    bool `json:"sealed"`
	Threshold int  `json:"t"`
	Shares    int  `json:"n"`
	Progress  int  `json:"progress"`
}

// RoleSpec enumerates the recognized approle fields. It replaces the
// free-form option map the server API accepts so that typos in option
// names fail at compile time rather than silently server-side.
type RoleSpec struct {
	TokenTTL     string
	TokenMaxTTL  string
	Policies     []string
	BindSecretID bool
	BoundCIDRs   []string
}
