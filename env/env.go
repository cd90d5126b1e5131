// Package env reads configuration from environment variables with typed
// fallbacks. Unset or unparseable values yield the supplied default.
package env

import (
	"os"
	"strconv"
	"time"
)

func orDefault[T any](key string, defaultValue T, parse func(string) (T, error)) T {
	envVal := os.Getenv(key)
	if envVal == "" {
		return defaultValue
	}
	v, err := parse(envVal)
	if err != nil {
		return defaultValue
	}
	return v
}

func StringOrDefault(key, defaultValue string) string {
	if envVal := os.Getenv(key); envVal != "" {
		return envVal
	}
	return defaultValue
}

func BoolOrDefault(key string, defaultValue bool) bool {
	return orDefault(key, defaultValue, strconv.ParseBool)
}

func IntOrDefault(key string, defaultValue int) int {
	return orDefault(key, defaultValue, strconv.Atoi)
}

// DurationOrDefault parses the value with time.ParseDuration.
func DurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	return orDefault(key, defaultValue, time.ParseDuration)
}
