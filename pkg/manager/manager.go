// Package manager defines the contract for the configuration and secret
// stores that back the container entrypoints. The persistence helpers
// never talk to a specific store implementation (Consul, Kubernetes
// configmaps, Vault); they receive a Manager and read or write opaque
// key-value pairs through it.
package manager

// Store provides access to an opaque key-value store. Missing keys
// return an empty string with a nil error; errors are reserved for
// store-level failures.
type Store interface {
	Get(key string) (string, error)
	Set(key, value string) error
}

// Manager aggregates the two stores every entrypoint works with: the
// shared configuration store and the secret store.
type Manager struct {
	Config Store
	Secret Store
}

// New creates a Manager from explicit store implementations.
func New(config, secret Store) *Manager {
	return &Manager{Config: config, Secret: secret}
}
