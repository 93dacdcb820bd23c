package registration

import (
	"context"

	"github.com/easyengine/ee-dash/pkg/dashboard"
	"github.com/easyengine/ee-dash/pkg/formatter"
	"github.com/easyengine/ee-dash/pkg/sshkeys"
)

// ServerRegistrar submits the server record once per run.
type ServerRegistrar struct {
	dash               Dashboard
	out                *formatter.Output
	authorizedKeysPath string
	automationKey      string
	dryRun             bool
}

// NewServerRegistrar creates a ServerRegistrar. The automation key is
// installed into authorizedKeysPath before the record is submitted.
func NewServerRegistrar(dash Dashboard, out *formatter.Output, authorizedKeysPath, automationKey string, dryRun bool) *ServerRegistrar {
	return &ServerRegistrar{
		dash:               dash,
		out:                out,
		authorizedKeysPath: authorizedKeysPath,
		automationKey:      automationKey,
		dryRun:             dryRun,
	}
}

// Register installs the automation key and submits server. A failure is
// reported as a warning and returned; it never ends the run. In a dry run
// nothing is written or sent and the outcome is ServerPlanned.
func (r *ServerRegistrar) Register(ctx context.Context, server dashboard.ServerRecord) (ServerOutcome, error) {
	if r.dryRun {
		r.out.Log("Dry run: would add the automation key to %s and submit server:", r.authorizedKeysPath)
		printYAML(r.out, server)
		return ServerPlanned, nil
	}

	added, err := sshkeys.EnsureAuthorizedKey(r.authorizedKeysPath, r.automationKey)
	switch {
	case err != nil:
		r.out.Warning("Could not install the Dashboard SSH key: %v", err)
	case added:
		r.out.Log("Added the Dashboard SSH key to %s", r.authorizedKeysPath)
	default:
		r.out.Debug("Dashboard SSH key already present in %s", r.authorizedKeysPath)
	}

	if err := r.dash.AddServer(ctx, server); err != nil {
		r.out.Warning("Failed to integrate server with the Dashboard: %v", err)
		return ServerFailed, err
	}

	r.out.Success("Server integrated with the Dashboard successfully. Please wait for sometime for site data to populate on the Dashboard.")
	return ServerRegistered, nil
}
