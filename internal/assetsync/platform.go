package assetsync

import (
	"fmt"
	"runtime"
)

// Platform returns the release platform name for a GOOS/GOARCH pair,
// e.g. "Linux_64-bit" or "macOS_arm64".
func Platform(goos, goarch string) string {
	var osName string
	switch goos {
	case "windows":
		osName = "Windows"
	case "darwin":
		osName = "macOS"
	default:
		osName = "Linux"
	}
	var arch string
	switch goarch {
	case "amd64":
		arch = "64-bit"
	case "arm64", "arm":
		arch = "arm64"
	default:
		arch = "386"
	}
	return osName + "_" + arch
}

// ReleaseFile returns the archive name of a linter release.
func ReleaseFile(version, goos, goarch string) string {
	ext := "tar.gz"
	if goos == "windows" {
		ext = "zip"
	}
	return fmt.Sprintf("vale_%s_%s.%s", version, Platform(goos, goarch), ext)
}

// ExecutableName returns the linter executable name for goos.
func ExecutableName(goos string) string {
	if goos == "windows" {
		return "vale.exe"
	}
	return "vale"
}

// HostExecutableName returns ExecutableName for the running platform.
func HostExecutableName() string {
	return ExecutableName(runtime.GOOS)
}
