package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

func Config(envVar string) string {
	// A missing .env file is fine when the variables come from the
	// process environment.
	_ = godotenv.Load()

	envVarValue := os.Getenv(envVar)
	if envVarValue == "" {
		fmt.Fprintf(os.Stderr, "%s not set\n", envVar)
		os.Exit(1)
	}

	return envVarValue
}

// Optional reads an env var and falls back to def when it is unset or empty.
// Unlike Config it never terminates the process.
func Optional(envVar, def string) string {
	_ = godotenv.Load()

	if v := os.Getenv(envVar); v != "" {
		return v
	}
	return def
}

func optionalCents(envVar string, def int64) int64 {
	raw := Optional(envVar, "")
	if raw == "" {
		return def
	}

	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v < 0 {
		fmt.Fprintf(os.Stderr, "%s must be a non-negative integer amount of cents, got %q\n", envVar, raw)
		os.Exit(1)
	}
	return v
}
