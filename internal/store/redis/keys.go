package redis

const (
	// KeyPrefix namespaces every key outpost writes.
	KeyPrefix = "outpost:"
	// DefaultRegistryKey holds the whole registry as one JSON array.
	DefaultRegistryKey = KeyPrefix + "registry:entries"
)

// RegistryKey returns key, or the default registry key when key is empty.
func RegistryKey(key string) string {
	if key == "" {
		return DefaultRegistryKey
	}
	return key
}
