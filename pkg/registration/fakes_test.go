package registration

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/easyengine/ee-dash/pkg/dashboard"
	"github.com/easyengine/ee-dash/pkg/identity"
	"github.com/easyengine/ee-dash/pkg/inventory"
	"github.com/easyengine/ee-dash/pkg/precheck"
)

// fakeDashboard remembers what was added, so a second run sees the records
// of the first.
type fakeDashboard struct {
	mu          sync.Mutex
	servers     map[string]bool
	sites       map[string]bool
	addedServer []dashboard.ServerRecord
	addedSites  []dashboard.SiteRecord
	serverErr   error
	siteErr     map[string]error
}

func newFakeDashboard() *fakeDashboard {
	return &fakeDashboard{
		servers: make(map[string]bool),
		sites:   make(map[string]bool),
		siteErr: make(map[string]error),
	}
}

func (d *fakeDashboard) ServerExists(ctx context.Context, ip string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.servers[ip]
}

func (d *fakeDashboard) SiteExists(ctx context.Context, domain string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.sites[domain]
}

func (d *fakeDashboard) AddServer(ctx context.Context, server dashboard.ServerRecord) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.addedServer = append(d.addedServer, server)
	if d.serverErr != nil {
		return d.serverErr
	}
	d.servers[server.PublicIPv4] = true
	return nil
}

func (d *fakeDashboard) AddSite(ctx context.Context, site dashboard.SiteRecord) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.addedSites = append(d.addedSites, site)
	if err := d.siteErr[site.Domain]; err != nil {
		return err
	}
	d.sites[site.Domain] = true
	return nil
}

type fakeInventory struct {
	sites   []inventory.Site
	details map[string]*inventory.Site
	auths   map[string]int
}

func (f *fakeInventory) Sites(ctx context.Context) ([]inventory.Site, error) {
	return f.sites, nil
}

func (f *fakeInventory) Site(ctx context.Context, domain string) (*inventory.Site, error) {
	return f.details[domain], nil
}

func (f *fakeInventory) AuthCount(ctx context.Context, domain string) (int, error) {
	return f.auths[domain], nil
}

// fakeSiteControl tracks the enabled flag of each site and answers shell
// commands from a table.
type fakeSiteControl struct {
	enabled map[string]bool
	calls   []string
	shell   map[string]string
}

func newFakeSiteControl() *fakeSiteControl {
	return &fakeSiteControl{
		enabled: make(map[string]bool),
		shell:   make(map[string]string),
	}
}

func (f *fakeSiteControl) EnableSite(ctx context.Context, domain string) error {
	f.calls = append(f.calls, "enable "+domain)
	f.enabled[domain] = true
	return nil
}

func (f *fakeSiteControl) DisableSite(ctx context.Context, domain string) error {
	f.calls = append(f.calls, "disable "+domain)
	f.enabled[domain] = false
	return nil
}

func (f *fakeSiteControl) Shell(ctx context.Context, domain, command string) (string, error) {
	f.calls = append(f.calls, "shell "+domain+" "+command)
	if !f.enabled[domain] {
		return "", fmt.Errorf("site %s is disabled", domain)
	}
	return f.shell[domain+"|"+command], nil
}

type fakePrechecks struct {
	err error
}

func (f fakePrechecks) Check(ctx context.Context) (*precheck.OSInfo, error) {
	return &precheck.OSInfo{Family: precheck.OSFamilyUbuntu, Name: "ubuntu", Version: "24.04"}, f.err
}

type fakeIdentity struct {
	id  *identity.Identity
	err error
}

func (f fakeIdentity) Resolve(ctx context.Context, ipFlag, hostnameFlag string) (*identity.Identity, error) {
	return f.id, f.err
}

// siteDir creates a site directory, with a docker-compose.yml unless
// withDescriptor is false.
func siteDir(t *testing.T, withDescriptor bool) string {
	t.Helper()
	dir := t.TempDir()
	if withDescriptor {
		compose := "services:\n  php:\n    image: easyengine/php\n  nginx:\n    image: easyengine/nginx\n"
		if err := os.WriteFile(filepath.Join(dir, DescriptorFile), []byte(compose), 0644); err != nil {
			t.Fatalf("write descriptor: %v", err)
		}
	}
	return dir
}

// addSite registers site in the inventory both as listed and as looked up.
func (f *fakeInventory) addSite(site inventory.Site) {
	if f.details == nil {
		f.details = make(map[string]*inventory.Site)
	}
	f.sites = append(f.sites, site)
	detail := site
	f.details[site.Domain] = &detail
}
