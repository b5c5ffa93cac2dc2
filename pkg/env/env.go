package env

import "os"

// Get reads key from the process environment, returning fallback when the
// variable is unset or blank.
func Get(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}
