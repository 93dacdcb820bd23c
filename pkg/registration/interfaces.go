package registration

import (
	"context"

	"github.com/easyengine/ee-dash/pkg/dashboard"
	"github.com/easyengine/ee-dash/pkg/identity"
	"github.com/easyengine/ee-dash/pkg/inventory"
	"github.com/easyengine/ee-dash/pkg/precheck"
)

// Dashboard is the remote side of the workflow.
type Dashboard interface {
	ServerExists(ctx context.Context, ip string) bool
	SiteExists(ctx context.Context, domain string) bool
	AddServer(ctx context.Context, server dashboard.ServerRecord) error
	AddSite(ctx context.Context, site dashboard.SiteRecord) error
}

// Inventory lists local sites and their stored credentials.
type Inventory interface {
	Sites(ctx context.Context) ([]inventory.Site, error)
	Site(ctx context.Context, domain string) (*inventory.Site, error)
	AuthCount(ctx context.Context, domain string) (int, error)
}

// SiteControl toggles sites and runs commands inside them.
type SiteControl interface {
	EnableSite(ctx context.Context, domain string) error
	DisableSite(ctx context.Context, domain string) error
	Shell(ctx context.Context, domain, command string) (string, error)
}

// IdentityResolver produces the server's public address and hostname.
type IdentityResolver interface {
	Resolve(ctx context.Context, ipFlag, hostnameFlag string) (*identity.Identity, error)
}

// Prechecker validates the host before any network work.
type Prechecker interface {
	Check(ctx context.Context) (*precheck.OSInfo, error)
}
