package env

import (
	"os"
	"strings"
)

// Prefix namespaces every canteen variable.
const Prefix = "CANTEEN_"

// Get returns CANTEEN_<key>, then the bare key, then fallback. Blank values
// count as unset.
func Get(key, fallback string) string {
	for _, name := range []string{Prefix + key, key} {
		if val := strings.TrimSpace(os.Getenv(name)); val != "" {
			return val
		}
	}
	return fallback
}
