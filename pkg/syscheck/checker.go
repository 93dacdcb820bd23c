// Package syscheck reports whether the host tools ee-dash shells out to are
// installed.
package syscheck

import (
	"context"
	"strings"

	"github.com/easyengine/ee-dash/pkg/shell"
	"github.com/easyengine/ee-dash/pkg/utils"
)

// Requirement represents a host tool
type Requirement struct {
	Name        string
	Command     string
	Required    bool
	Installed   bool
	Version     string
	InstallHint string
}

// CheckResult holds the results of system checks
type CheckResult struct {
	Requirements []Requirement
	AllRequired  bool
}

// SystemChecker checks host tools through an executor
type SystemChecker struct {
	exec     shell.Executor
	eeBinary string
}

// NewSystemChecker creates a new system checker. eeBinary is the EasyEngine
// command line, "ee" when empty.
func NewSystemChecker(exec shell.Executor, eeBinary string) *SystemChecker {
	if eeBinary == "" {
		eeBinary = "ee"
	}
	return &SystemChecker{exec: exec, eeBinary: eeBinary}
}

// Requirements lists the tools init depends on.
func (s *SystemChecker) Requirements() []Requirement {
	return []Requirement{
		{
			Name:        "EasyEngine",
			Command:     s.eeBinary + " cli version",
			Required:    true,
			InstallHint: "Install EasyEngine: https://easyengine.io/docs/getting-started/",
		},
		{
			Name:        "Docker",
			Command:     "docker --version",
			Required:    true,
			InstallHint: "EasyEngine sites run in Docker; reinstall EasyEngine",
		},
		{
			Name:        "hostnamectl",
			Command:     "hostnamectl --version",
			Required:    false,
			InstallHint: "Needed only when init has to rename the server (apt install systemd)",
		},
		{
			Name:        "lsb_release",
			Command:     "lsb_release -v",
			Required:    false,
			InstallHint: "Needed only when /etc/os-release is missing (apt install lsb-release)",
		},
	}
}

// CheckAll checks every requirement
func (s *SystemChecker) CheckAll(ctx context.Context) *CheckResult {
	reqs := s.Requirements()
	result := &CheckResult{
		Requirements: make([]Requirement, 0, len(reqs)),
		AllRequired:  true,
	}

	for _, req := range reqs {
		req.Installed, req.Version = s.checkRequirement(ctx, req)
		result.Requirements = append(result.Requirements, req)

		if req.Required && !req.Installed {
			result.AllRequired = false
		}
	}

	return result
}

func (s *SystemChecker) checkRequirement(ctx context.Context, req Requirement) (bool, string) {
	res, err := s.exec.Run(ctx, req.Command)
	if err != nil || !res.OK() {
		return false, ""
	}
	output := res.Stdout
	if strings.TrimSpace(output) == "" {
		output = res.Stderr
	}
	return true, extractVersion(output)
}

// extractVersion returns the first non-empty line of a version banner
func extractVersion(output string) string {
	for _, line := range strings.Split(output, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return utils.TruncateString(line, 80)
		}
	}
	return "unknown"
}
