package registration

import (
	"fmt"

	"github.com/easyengine/ee-dash/pkg/formatter"
	"github.com/easyengine/ee-dash/pkg/utils"
)

// ServerOutcome is what happened to the server record.
type ServerOutcome string

const (
	ServerRegistered ServerOutcome = "registered"
	ServerSkipped    ServerOutcome = "already registered"
	ServerFailed     ServerOutcome = "registration failed"
	ServerPlanned    ServerOutcome = "not submitted (dry run)"
)

// Report summarises a run.
type Report struct {
	Server   ServerOutcome
	Synced   []string
	Planned  []string
	Skipped  map[string]SkipReason
	Failures utils.MultiError
}

func newReport() *Report {
	return &Report{Skipped: make(map[string]SkipReason)}
}

// Print writes the summary. Per-site failures do not change the exit status,
// so this is the operator's view of which domains did not sync.
func (r *Report) Print(out *formatter.Output) {
	out.Section("Summary")
	out.KeyValue("Server", string(r.Server))
	out.KeyValue("Sites synced", fmt.Sprintf("%d", len(r.Synced)))
	if len(r.Planned) > 0 {
		out.KeyValue("Sites not submitted (dry run)", fmt.Sprintf("%d", len(r.Planned)))
		out.List(r.Planned...)
	}
	out.KeyValue("Sites skipped", fmt.Sprintf("%d", len(r.Skipped)))
	out.KeyValue("Sites failed", fmt.Sprintf("%d", len(r.Failures.Errors)))
	if r.Failures.HasErrors() {
		out.Plain("%s\n", r.Failures.Error())
	}
}
