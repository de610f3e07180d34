package conf

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

// Version is set at build time
var Version = "development"

// PrintVersion shows Binary Build info
func PrintVersion() {
	fmt.Printf("agbridge %s (%s/%s, %s)\n", Version, runtime.GOOS, runtime.GOARCH, runtime.Version())
}

// GetHome returns the directory where agbridge looks for its profile file
func GetHome() string {
	if home := os.Getenv(HomeEnvVar); home != "" {
		return home
	}
	userHome, err := os.UserHomeDir()
	if err == nil {
		return filepath.Join(userHome, ".agbridge")
	}
	wd, err := os.Getwd()
	if err != nil {
		return "."
	}
	return wd
}

// DefaultPropertiesPath is where the team server client stores connection profiles
func DefaultPropertiesPath() string {
	userHome, err := os.UserHomeDir()
	if err != nil {
		return ".aggressor.prop"
	}
	return filepath.Join(userHome, ".aggressor.prop")
}

// DefaultProfilePath is the agbridge YAML profile
func DefaultProfilePath() string {
	return filepath.Join(GetHome(), "agbridge.yaml")
}
