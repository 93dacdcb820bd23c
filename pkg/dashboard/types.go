package dashboard

// Dashboard API methods, relative to the API base URL.
const (
	MethodServerList = "easydash.easydash.doctype.server.server.get_server_list"
	MethodAddServer  = "easydash.easydash.doctype.server.server.add_server"
	MethodSiteList   = "easydash.easydash.doctype.site.site.get_site_list"
	MethodAddSite    = "easydash.easydash.doctype.site.site.add_site"
)

// ServerRecord is the server payload. The Dashboard identifies a server by
// PublicIPv4 within Organization.
type ServerRecord struct {
	Hostname     string `json:"hostname" yaml:"hostname"`
	PublicIPv4   string `json:"public_ipv4" yaml:"public_ipv4"`
	Organization string `json:"organization" yaml:"organization"`
}

// SiteRecord is the site payload. The Dashboard identifies a site by Domain
// within Organization.
type SiteRecord struct {
	Domain          string `json:"domain" yaml:"domain"`
	Server          string `json:"server" yaml:"server"`
	SiteType        string `json:"site_type" yaml:"site_type"`
	Organization    string `json:"organization" yaml:"organization"`
	Enabled         bool   `json:"enabled" yaml:"enabled"`
	AliasDomains    string `json:"alias_domains" yaml:"alias_domains"`
	SSL             bool   `json:"ssl" yaml:"ssl"`
	HTTPBasicAuth   bool   `json:"http_basic_auth" yaml:"http_basic_auth"`
	AdminTools      int64  `json:"admin_tools" yaml:"admin_tools"`
	Mailhog         int64  `json:"mailhog" yaml:"mailhog"`
	PHPVersion      string `json:"php_version" yaml:"php_version"`
	PublicDirectory string `json:"public_directory" yaml:"public_directory"`
	EnableDatabase  bool   `json:"enable_database" yaml:"enable_database"`
	RedisCache      int64  `json:"redis_cache" yaml:"redis_cache"`
	// Multisite is the integer 0 for single-site apps, otherwise the
	// EasyEngine app subtype string (e.g. "subdom", "subdir").
	Multisite   any    `json:"multisite" yaml:"multisite"`
	TablePrefix string `json:"table_prefix" yaml:"table_prefix"`
}

type listRequest struct {
	Organization string `json:"organization"`
}
