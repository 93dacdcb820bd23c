// Package registration reconciles this server and its sites with the
// Dashboard: one forward push per run, with existence re-checked live every
// time so that re-runs never create duplicates.
package registration

import (
	"context"

	"github.com/easyengine/ee-dash/pkg/audit"
	"github.com/easyengine/ee-dash/pkg/dashboard"
	"github.com/easyengine/ee-dash/pkg/formatter"
	"github.com/easyengine/ee-dash/pkg/inventory"
	"github.com/easyengine/ee-dash/pkg/telemetry"
	"github.com/easyengine/ee-dash/pkg/utils"
)

// Workflow sequences prechecks, identity resolution, server registration and
// the per-site loop.
type Workflow struct {
	Prechecks Prechecker
	Identity  IdentityResolver
	Dashboard Dashboard
	Inventory Inventory
	Builder   *Builder
	Servers   *ServerRegistrar
	Sites     *SiteRegistrar
	Output    *formatter.Output

	// Audit receives one activity per outcome; nil disables it.
	Audit audit.Logger

	Organization string

	runID string
}

// Run executes the workflow. The returned error is always a *FatalError;
// server and per-site failures are only reported.
func (w *Workflow) Run(ctx context.Context, ipFlag, hostnameFlag string) (*Report, error) {
	ctx, span := telemetry.StartSpan(ctx, "registration.run")
	defer span.End()

	w.runID = audit.GenerateID()
	telemetry.SetAttribute(ctx, "run.id", w.runID)
	w.record(&audit.Activity{Type: audit.ActivityRunStarted})

	report, err := w.run(ctx, ipFlag, hostnameFlag)
	if err != nil {
		telemetry.RecordError(ctx, err)
		w.record(&audit.Activity{Type: audit.ActivityRunFailed, Error: err.Error()})
		return report, err
	}
	w.record(&audit.Activity{
		Type: audit.ActivityRunCompleted,
		Metadata: map[string]any{
			"synced":  len(report.Synced),
			"planned": len(report.Planned),
			"skipped": len(report.Skipped),
			"failed":  len(report.Failures.Errors),
		},
	})
	return report, nil
}

func (w *Workflow) run(ctx context.Context, ipFlag, hostnameFlag string) (*Report, error) {
	info, err := w.Prechecks.Check(ctx)
	if err != nil {
		return nil, fatal("precheck", err)
	}
	w.Output.Debug("Operating system: %s", info)

	id, err := w.Identity.Resolve(ctx, ipFlag, hostnameFlag)
	if err != nil {
		return nil, fatal("identity", err)
	}
	telemetry.SetAttribute(ctx, "server.hostname", id.Hostname)
	telemetry.SetAttribute(ctx, "server.public_ipv4", id.IP)

	report := newReport()
	server := dashboard.ServerRecord{
		Hostname:     id.Hostname,
		PublicIPv4:   id.IP,
		Organization: w.Organization,
	}

	serverActivity := &audit.Activity{Server: server.Hostname, Resource: server.PublicIPv4}
	if w.Dashboard.ServerExists(ctx, server.PublicIPv4) {
		w.Output.Log("Server with IP %s already exists on the Dashboard. Skipping server addition.", server.PublicIPv4)
		report.Server = ServerSkipped
		serverActivity.Type = audit.ActivityServerSkipped
	} else {
		outcome, err := w.Servers.Register(ctx, server)
		report.Server = outcome
		switch outcome {
		case ServerFailed:
			serverActivity.Type = audit.ActivityServerFailed
			serverActivity.Error = err.Error()
		case ServerPlanned:
			serverActivity.Type = audit.ActivityServerPlanned
		default:
			serverActivity.Type = audit.ActivityServerRegistered
		}
	}
	w.record(serverActivity)

	sites, err := w.Inventory.Sites(ctx)
	if err != nil {
		return report, fatal("inventory", err)
	}

	for _, site := range sites {
		if ctx.Err() != nil {
			return report, fatal("interrupted", ctx.Err())
		}

		siteActivity := &audit.Activity{Server: server.Hostname, Resource: site.Domain}
		w.syncSite(ctx, site, server.Hostname, report, siteActivity)
		w.record(siteActivity)
	}

	return report, nil
}

func (w *Workflow) syncSite(ctx context.Context, site inventory.Site, hostname string, report *Report, activity *audit.Activity) {
	rec, err := w.Builder.Build(ctx, site, hostname)
	if err != nil {
		if skip, ok := AsSkip(err); ok {
			report.Skipped[site.Domain] = skip.Reason
			activity.Type = audit.ActivitySiteSkipped
			activity.Reason = string(skip.Reason)
			return
		}
		report.Failures.Add(utils.NewError(site.Domain, err))
		activity.Type = audit.ActivitySiteFailed
		activity.Error = err.Error()
		return
	}

	activity.Metadata = map[string]any{"site_type": rec.SiteType, "php_version": rec.PHPVersion}
	submitted, err := w.Sites.Register(ctx, *rec)
	switch {
	case err != nil:
		report.Failures.Add(utils.NewError(site.Domain, err))
		activity.Type = audit.ActivitySiteFailed
		activity.Error = err.Error()
	case !submitted:
		report.Planned = append(report.Planned, site.Domain)
		activity.Type = audit.ActivitySitePlanned
	default:
		report.Synced = append(report.Synced, site.Domain)
		activity.Type = audit.ActivitySiteRegistered
	}
}

// record writes activity to the audit log. Audit failures never affect the run.
func (w *Workflow) record(activity *audit.Activity) {
	if w.Audit == nil {
		return
	}
	activity.RunID = w.runID
	activity.Organization = w.Organization
	if err := w.Audit.Log(activity); err != nil {
		w.Output.Debug("Could not write audit log: %v", err)
	}
}
