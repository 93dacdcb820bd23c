// Package ee drives the EasyEngine command line for per-site operations
// that must run inside a site's containers.
package ee

import (
	"context"
	"fmt"
	"strings"

	"github.com/easyengine/ee-dash/pkg/shell"
	"github.com/easyengine/ee-dash/pkg/utils"
)

// CLI wraps the ee binary.
type CLI struct {
	exec   shell.Executor
	binary string
}

// NewCLI creates a CLI that runs binary through exec. An empty binary means "ee".
func NewCLI(exec shell.Executor, binary string) *CLI {
	if binary == "" {
		binary = "ee"
	}
	return &CLI{exec: exec, binary: binary}
}

// EnableSite starts the containers of a disabled site.
func (c *CLI) EnableSite(ctx context.Context, domain string) error {
	return c.run(ctx, "enable site", fmt.Sprintf("%s site enable %s", c.binary, utils.ShellQuote(domain)))
}

// DisableSite stops the containers of a site.
func (c *CLI) DisableSite(ctx context.Context, domain string) error {
	return c.run(ctx, "disable site", fmt.Sprintf("%s site disable %s", c.binary, utils.ShellQuote(domain)))
}

// Shell runs command inside the site's PHP container and returns its trimmed
// stdout. A non-zero exit status is an error.
func (c *CLI) Shell(ctx context.Context, domain, command string) (string, error) {
	line := fmt.Sprintf("%s shell %s --skip-tty --command=%s",
		c.binary, utils.ShellQuote(domain), utils.ShellQuote(command))

	res, err := c.exec.Run(ctx, line)
	if err != nil {
		return "", utils.NewError("site shell "+domain, err)
	}
	if !res.OK() {
		return strings.TrimSpace(res.Stdout), utils.NewError("site shell "+domain,
			fmt.Errorf("exit status %d", res.ReturnCode),
			utils.TruncateString(strings.TrimSpace(res.Stderr), 200))
	}
	return strings.TrimSpace(res.Stdout), nil
}

func (c *CLI) run(ctx context.Context, operation, line string) error {
	res, err := c.exec.Run(ctx, line)
	if err != nil {
		return utils.NewError(operation, err)
	}
	if !res.OK() {
		return utils.NewError(operation, fmt.Errorf("exit status %d", res.ReturnCode),
			utils.TruncateString(strings.TrimSpace(res.Stderr), 200))
	}
	return nil
}
