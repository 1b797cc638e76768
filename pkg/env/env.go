// Package env reads process environment variables with fallbacks. Most
// configuration flows through the typed config package; this is for the few
// knobs read before config is loaded, such as the log format.
package env

import "os"

// Get returns the named environment variable, or fallback when it is unset
// or empty.
func Get(key, fallback string) string {
	val, ok := os.LookupEnv(key)
	if !ok || val == "" {
		return fallback
	}
	return val
}
