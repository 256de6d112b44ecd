package env

import "os"

// Get returns the value of the given environment variable or a fallback.
// A MEDIMANDI_-prefixed variant wins over the bare name so deployments can
// scope overrides without clobbering shared process environment.
func Get(key, fallback string) string {
	if val := os.Getenv("MEDIMANDI_" + key); val != "" {
		return val
	}
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}
