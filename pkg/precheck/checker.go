// Package precheck decides whether this host may be registered at all.
// Nothing here has side effects.
package precheck

import (
	"context"
	"errors"
	"fmt"
	"os"

	"golang.org/x/sys/unix"

	"github.com/easyengine/ee-dash/pkg/shell"
	"github.com/easyengine/ee-dash/pkg/utils"
)

// ErrUnsupported is wrapped by every precheck failure.
var ErrUnsupported = errors.New("host is not eligible for Dashboard integration")

// MinimumVersions is the oldest supported release per distribution.
var MinimumVersions = map[OSFamily]string{
	OSFamilyUbuntu: "22.04",
	OSFamilyDebian: "12",
}

// Checker runs the environment prechecks.
type Checker struct {
	exec          shell.Executor
	OSReleasePath string
	InventoryPath string
	RequireRoot   bool

	euid func() int
}

// NewChecker creates a Checker with production paths.
func NewChecker(exec shell.Executor, inventoryPath string) *Checker {
	return &Checker{
		exec:          exec,
		OSReleasePath: "/etc/os-release",
		InventoryPath: inventoryPath,
		RequireRoot:   true,
		euid:          unix.Geteuid,
	}
}

// Check returns an error wrapping ErrUnsupported when the OS family is not
// Ubuntu or Debian, its release is older than MinimumVersions, the process is
// not root, or EasyEngine's database is missing.
func (c *Checker) Check(ctx context.Context) (*OSInfo, error) {
	info, err := DetectOS(ctx, c.exec, c.OSReleasePath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupported, err)
	}

	minimum, ok := MinimumVersions[info.Family]
	if !ok {
		return info, fmt.Errorf("%w: Dashboard integration is only supported on Ubuntu or Debian, found %q", ErrUnsupported, info.Name)
	}

	cmp, err := utils.CompareVersions(info.Version, minimum)
	if err != nil {
		return info, fmt.Errorf("%w: cannot read %s release %q", ErrUnsupported, info.Name, info.Version)
	}
	if cmp < 0 {
		return info, fmt.Errorf("%w: Dashboard integration is only supported on %s %s or later, found %s",
			ErrUnsupported, info.Family, minimum, info.Version)
	}

	if c.RequireRoot && c.euid() != 0 {
		return info, fmt.Errorf("%w: must be run as root", ErrUnsupported)
	}

	if c.InventoryPath != "" {
		if _, err := os.Stat(c.InventoryPath); err != nil {
			return info, fmt.Errorf("%w: EasyEngine database not found at %s", ErrUnsupported, c.InventoryPath)
		}
	}

	return info, nil
}
