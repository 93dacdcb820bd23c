package identity

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sys/unix"

	"github.com/easyengine/ee-dash/pkg/shell"
	"github.com/easyengine/ee-dash/pkg/utils"
)

// SystemHostname reads the kernel hostname and changes it with hostnamectl.
type SystemHostname struct {
	exec shell.Executor
}

// NewSystemHostname creates a SystemHostname that runs hostnamectl via exec.
func NewSystemHostname(exec shell.Executor) *SystemHostname {
	return &SystemHostname{exec: exec}
}

// Current returns the node name reported by uname(2).
func (h *SystemHostname) Current() (string, error) {
	var uts unix.Utsname
	if err := unix.Uname(&uts); err != nil {
		return "", fmt.Errorf("failed to read hostname: %w", err)
	}
	return unix.ByteSliceToString(uts.Nodename[:]), nil
}

// Set persistently renames the host. This mutates host state and is not
// undone if the run fails later.
func (h *SystemHostname) Set(ctx context.Context, name string) error {
	res, err := h.exec.Run(ctx, "hostnamectl set-hostname "+utils.ShellQuote(name))
	if err != nil {
		return fmt.Errorf("failed to set hostname: %w", err)
	}
	if !res.OK() {
		return fmt.Errorf("hostnamectl exited with status %d: %s", res.ReturnCode, strings.TrimSpace(res.Stderr))
	}
	return nil
}
