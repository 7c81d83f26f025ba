package config

import (
	"os"
	"path/filepath"
	"runtime"
)

const (
	appName = "anchor"
	// EnvDataDir overrides the default data directory.
	EnvDataDir = "ANCHOR_DIR"
)

// ResolveDataDir picks the data directory: an explicit flag value, then
// $ANCHOR_DIR, then DefaultDataDir.
func ResolveDataDir(flag string) string {
	if flag != "" {
		return flag
	}
	if dir := os.Getenv(EnvDataDir); dir != "" {
		return dir
	}
	return DefaultDataDir()
}

// DefaultDataDir returns the OS-appropriate default data directory.
//
//   - macOS:   ~/Library/Application Support/anchor
//   - Linux:   $XDG_DATA_HOME/anchor (fallback ~/.local/share/anchor)
//   - Windows: %LOCALAPPDATA%\anchor (fallback %APPDATA%\anchor)
func DefaultDataDir() string {
	return dataDirForOS(runtime.GOOS)
}

func dataDirForOS(goos string) string {
	home, _ := os.UserHomeDir()

	switch goos {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", appName)
	case "windows":
		for _, env := range []string{"LOCALAPPDATA", "APPDATA"} {
			if dir := os.Getenv(env); dir != "" {
				return filepath.Join(dir, appName)
			}
		}
		return filepath.Join(home, appName)
	default: // linux, freebsd, etc.
		if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
			return filepath.Join(dir, appName)
		}
		return filepath.Join(home, ".local", "share", appName)
	}
}
