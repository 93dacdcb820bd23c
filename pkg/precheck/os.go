package precheck

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/easyengine/ee-dash/pkg/shell"
)

// OSFamily represents different Linux distribution families
type OSFamily string

const (
	OSFamilyDebian  OSFamily = "debian"
	OSFamilyUbuntu  OSFamily = "ubuntu"
	OSFamilyUnknown OSFamily = "unknown"
)

// OSInfo contains detected operating system information
type OSInfo struct {
	Family  OSFamily
	Name    string
	Version string
}

// String returns a human-readable representation of the OS
func (info *OSInfo) String() string {
	return fmt.Sprintf("%s %s (%s)", info.Name, info.Version, info.Family)
}

// DetectOS reads /etc/os-release and falls back to lsb_release when the
// file is missing or carries no ID.
func DetectOS(ctx context.Context, exec shell.Executor, osReleasePath string) (*OSInfo, error) {
	data, err := os.ReadFile(osReleasePath)
	if err == nil {
		if info := parseOSRelease(string(data)); info.Name != "" {
			return info, nil
		}
	}

	id, err := exec.Run(ctx, "lsb_release -i")
	if err != nil {
		return nil, fmt.Errorf("failed to read OS information: %w", err)
	}
	release, err := exec.Run(ctx, "lsb_release -r")
	if err != nil {
		return nil, fmt.Errorf("failed to read OS information: %w", err)
	}
	if !id.OK() || !release.OK() {
		return nil, fmt.Errorf("failed to read OS information: lsb_release exited with status %d", max(id.ReturnCode, release.ReturnCode))
	}

	return parseLSBRelease(id.Stdout, release.Stdout), nil
}

// parseOSRelease parses the /etc/os-release content
func parseOSRelease(content string) *OSInfo {
	info := &OSInfo{
		Family: OSFamilyUnknown,
	}

	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "ID=") {
			info.Name = strings.Trim(strings.TrimPrefix(line, "ID="), `"`)
		} else if strings.HasPrefix(line, "VERSION_ID=") {
			info.Version = strings.Trim(strings.TrimPrefix(line, "VERSION_ID="), `"`)
		}
	}

	// Derivatives (ID_LIKE=debian) are deliberately not matched
	info.Family = familyOf(info.Name)
	return info
}

// parseLSBRelease parses "Distributor ID:\tUbuntu" and "Release:\t22.04".
func parseLSBRelease(idOut, releaseOut string) *OSInfo {
	name := strings.TrimSpace(idOut)
	if i := strings.Index(name, ":"); i >= 0 {
		name = strings.TrimSpace(name[i+1:])
	}
	version := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(releaseOut), "Release:"))

	return &OSInfo{
		Family:  familyOf(name),
		Name:    strings.ToLower(name),
		Version: version,
	}
}

func familyOf(name string) OSFamily {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "ubuntu":
		return OSFamilyUbuntu
	case "debian":
		return OSFamilyDebian
	default:
		return OSFamilyUnknown
	}
}
