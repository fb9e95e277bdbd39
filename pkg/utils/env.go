package utils

import (
	"os"
	"strings"
)

func ParseWithFallback(envName string, fallback string) string {
	result, ok := os.LookupEnv(envName)
	if !ok || strings.TrimSpace(result) == "" {
		return fallback
	}

	return strings.TrimSpace(result)
}
