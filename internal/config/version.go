package config

import (
	"os"
	"strings"
)

// Version is set at build time via -ldflags "-X .../config.Version=..."
var Version = ""

// GetVersion returns the version from the build, the APP_VERSION environment
// variable, or the VERSION file in the working tree, in that order.
func GetVersion() string {
	if Version != "" {
		return Version
	}
	if envVersion := os.Getenv("APP_VERSION"); envVersion != "" {
		return envVersion
	}
	if content, err := os.ReadFile("VERSION"); err == nil {
		if v := strings.TrimSpace(string(content)); v != "" {
			return v
		}
	}
	return "0.1.0"
}
