package secret

// SecretStore stores sensitive values such as the storage password outside
// the config file.
type SecretStore interface {
	// Set stores a secret value under the given key.
	Set(key string, value []byte) error

	// Get retrieves the secret value for the given key.
	// Returns empty slice and nil error if key does not exist.
	Get(key string) ([]byte, error)

	// Delete removes the secret for the given key.
	Delete(key string) error
}

// StorageKey is the key the storage password is kept under for driver.
func StorageKey(driver string) string {
	return "storage." + driver
}
