package registration

import (
	"context"

	"gopkg.in/yaml.v3"

	"github.com/easyengine/ee-dash/pkg/dashboard"
	"github.com/easyengine/ee-dash/pkg/formatter"
)

// SiteRegistrar submits one site record.
type SiteRegistrar struct {
	dash   Dashboard
	out    *formatter.Output
	dryRun bool
}

// NewSiteRegistrar creates a SiteRegistrar.
func NewSiteRegistrar(dash Dashboard, out *formatter.Output, dryRun bool) *SiteRegistrar {
	return &SiteRegistrar{dash: dash, out: out, dryRun: dryRun}
}

// Register submits site and reports whether it was sent. Failures are
// reported at error level, unlike the server registrar's warning, but the
// caller moves on to the next site.
func (r *SiteRegistrar) Register(ctx context.Context, site dashboard.SiteRecord) (bool, error) {
	if r.dryRun {
		r.out.Log("Dry run: would submit site %s:", site.Domain)
		printYAML(r.out, site)
		return false, nil
	}

	if err := r.dash.AddSite(ctx, site); err != nil {
		r.out.Error("Failed to integrate site %s with the Dashboard: %v", site.Domain, err)
		return false, err
	}

	r.out.Success("Site %s integrated with the Dashboard successfully.", site.Domain)
	return true, nil
}

func printYAML(out *formatter.Output, v any) {
	data, err := yaml.Marshal(v)
	if err != nil {
		out.Warning("Could not render payload: %v", err)
		return
	}
	out.Plain("%s", data)
}
