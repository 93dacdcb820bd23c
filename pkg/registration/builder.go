package registration

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/easyengine/ee-dash/pkg/dashboard"
	"github.com/easyengine/ee-dash/pkg/formatter"
	"github.com/easyengine/ee-dash/pkg/inventory"
	"github.com/easyengine/ee-dash/pkg/telemetry"
	"github.com/easyengine/ee-dash/pkg/utils"
)

const (
	// DescriptorFile must exist in a site's directory for it to be registered.
	DescriptorFile = "docker-compose.yml"

	siteTypeStatic = "html"
	siteTypeWP     = "wp"
	phpLatest      = "latest"
)

var phpVersionPattern = regexp.MustCompile(`PHP (\d+\.\d+)`)

// baselineSubTypes are app subtypes that mean "not a multisite".
var baselineSubTypes = map[string]bool{
	"":     true,
	"wp":   true,
	"php":  true,
	"html": true,
}

// BuilderOptions configures a Builder.
type BuilderOptions struct {
	Organization      string
	ContainerWebRoot  string
	MinPHPVersion     string
	DefaultPHPVersion string

	// DryRun leaves disabled sites untouched.
	DryRun bool
}

// Builder turns a local site into the record submitted to the Dashboard.
type Builder struct {
	dash  Dashboard
	inv   Inventory
	sites SiteControl
	out   *formatter.Output
	opts  BuilderOptions
}

// NewBuilder creates a Builder.
func NewBuilder(dash Dashboard, inv Inventory, sites SiteControl, out *formatter.Output, opts BuilderOptions) *Builder {
	return &Builder{dash: dash, inv: inv, sites: sites, out: out, opts: opts}
}

// Build derives the SiteRecord for site, or returns a *SkipError when the
// site must not be submitted. A disabled site is enabled for the duration of
// the call so commands can run inside it, and is disabled again on every
// return path. In a dry run it is left disabled and "latest" PHP resolves to
// the default version.
func (b *Builder) Build(ctx context.Context, site inventory.Site, hostname string) (*dashboard.SiteRecord, error) {
	ctx, span := telemetry.TraceSite(ctx, site.Domain)
	defer span.End()

	// In a dry run a disabled site stays disabled, so nothing can be run
	// inside it.
	inspect := site.Enabled || !b.opts.DryRun
	switch {
	case site.Enabled:
	case b.opts.DryRun:
		b.out.Log("Dry run: %s is disabled; not enabling it to read its PHP version or table prefix.", site.Domain)
	default:
		b.out.Debug("Temporarily enabling %s", site.Domain)
		if err := b.sites.EnableSite(ctx, site.Domain); err != nil {
			b.out.Warning("Could not enable %s for inspection: %v", site.Domain, err)
		}
		defer func() {
			// The caller's context may already be cancelled here; the
			// site must still be put back the way it was.
			if err := b.sites.DisableSite(context.WithoutCancel(ctx), site.Domain); err != nil {
				b.out.Error("Failed to disable %s again: %v", site.Domain, err)
			}
		}()
	}

	info, err := b.inv.Site(ctx, site.Domain)
	if err != nil || info == nil {
		if err != nil {
			b.out.Debug("%v", err)
		}
		b.out.Warning("Could not retrieve site information for: %s.", site.Domain)
		return nil, &SkipError{Domain: site.Domain, Reason: SkipNoMetadata}
	}

	descriptor := filepath.Join(info.FSPath, DescriptorFile)
	if _, err := os.Stat(descriptor); err != nil {
		b.out.Warning("%s file not found for site: %s. Skipping.", DescriptorFile, site.Domain)
		return nil, &SkipError{Domain: site.Domain, Reason: SkipNoDescriptor}
	}
	b.logServices(descriptor)

	if b.dash.SiteExists(ctx, site.Domain) {
		b.out.Log("Site %s already exists on the Dashboard. Skipping site addition.", site.Domain)
		return nil, &SkipError{Domain: site.Domain, Reason: SkipExists}
	}

	var tablePrefix string
	if info.Type == siteTypeWP && inspect {
		tablePrefix = b.tablePrefix(ctx, site.Domain)
	}

	phpVersion := info.PHPVersion
	switch {
	case phpVersion != phpLatest:
	case inspect:
		phpVersion = b.resolveLatestPHP(ctx, site.Domain)
	default:
		phpVersion = b.opts.DefaultPHPVersion
	}

	b.out.Log("Checking for existing auths for site: %s", site.Domain)
	auths, err := b.inv.AuthCount(ctx, site.Domain)
	if err != nil {
		b.out.Warning("Could not read auths for %s: %v", site.Domain, err)
	}
	b.out.Debug("Existing auths: %d", auths)

	rec := &dashboard.SiteRecord{
		Domain:          site.Domain,
		Server:          hostname,
		SiteType:        info.Type,
		Organization:    b.opts.Organization,
		Enabled:         site.Enabled,
		AliasDomains:    NormalizeAliases(info.AliasDomains, site.Domain),
		SSL:             info.HasSSL(),
		HTTPBasicAuth:   auths > 0,
		AdminTools:      info.AdminTools,
		Mailhog:         info.Mailhog,
		PHPVersion:      phpVersion,
		PublicDirectory: PublicDirectory(info.ContainerFSPath, b.opts.ContainerWebRoot),
		EnableDatabase:  info.DBName != "",
		RedisCache:      info.RedisCache,
		Multisite:       Multisite(info.AppSubType),
		TablePrefix:     tablePrefix,
	}

	if data, err := json.MarshalIndent(rec, "", "  "); err == nil {
		b.out.Debug("Site data: %s", data)
	}

	if info.Type != siteTypeStatic && !b.phpSupported(phpVersion) {
		b.out.Warning("Skipping site %s integration with the Dashboard as PHP version is less than %s.",
			site.Domain, b.opts.MinPHPVersion)
		return nil, &SkipError{Domain: site.Domain, Reason: SkipPHPVersion}
	}

	return rec, nil
}

func (b *Builder) tablePrefix(ctx context.Context, domain string) string {
	prefix, err := b.sites.Shell(ctx, domain, "wp config get table_prefix")
	if err != nil {
		b.out.Debug("Reading table prefix for %s: %v", domain, err)
	}
	return strings.TrimSpace(prefix)
}

func (b *Builder) resolveLatestPHP(ctx context.Context, domain string) string {
	output, err := b.sites.Shell(ctx, domain, "php -v")
	if err != nil {
		b.out.Debug("Reading PHP version for %s: %v", domain, err)
	}
	if version, ok := ParsePHPVersion(output); ok {
		return version
	}
	b.out.Debug("Could not determine PHP version for site %s. Using default version %s.", domain, b.opts.DefaultPHPVersion)
	return b.opts.DefaultPHPVersion
}

// phpSupported reports whether version is at least the minimum. Versions
// that cannot be compared are treated as unsupported.
func (b *Builder) phpSupported(version string) bool {
	cmp, err := utils.CompareVersions(version, b.opts.MinPHPVersion)
	if err != nil {
		b.out.Debug("Cannot compare PHP version %q: %v", version, err)
		return false
	}
	return cmp >= 0
}

// logServices lists the compose services of a site at debug level. The
// descriptor's content does not affect eligibility.
func (b *Builder) logServices(path string) {
	if !b.out.IsVerbose() {
		return
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return
	}
	services, err := composeServices(data)
	if err != nil {
		b.out.Debug("Could not parse %s: %v", path, err)
		return
	}
	b.out.Debug("Services in %s: %s", path, strings.Join(services, ", "))
}

func composeServices(data []byte) ([]string, error) {
	var compose struct {
		Services map[string]yaml.Node `yaml:"services"`
	}
	if err := yaml.Unmarshal(data, &compose); err != nil {
		return nil, err
	}
	if compose.Services == nil {
		return nil, errors.New("no services section")
	}
	names := make([]string, 0, len(compose.Services))
	for name := range compose.Services {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// ParsePHPVersion extracts "major.minor" from `php -v` output.
func ParsePHPVersion(output string) (string, bool) {
	m := phpVersionPattern.FindStringSubmatch(output)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// NormalizeAliases splits a comma-separated alias list, trims each entry,
// drops empty entries and the site's own domain, and joins the rest with commas.
func NormalizeAliases(aliases, domain string) string {
	var kept []string
	for _, alias := range utils.SplitTrim(aliases, ",") {
		if alias != domain {
			kept = append(kept, alias)
		}
	}
	return strings.Join(kept, ",")
}

// PublicDirectory strips the container web root from a site's container
// path, leaving a relative directory ("" for the web root itself).
func PublicDirectory(containerPath, webRoot string) string {
	dir := strings.TrimPrefix(containerPath, webRoot)
	return strings.TrimLeft(dir, "/")
}

// Multisite returns 0 for baseline subtypes and the raw subtype otherwise.
func Multisite(appSubType string) any {
	if baselineSubTypes[appSubType] {
		return 0
	}
	return appSubType
}
