// Package config holds the settings of one ee-dash run. Values are layered
// by viper: flags, then EE_DASH_* environment variables (a .env file may
// provide them), then the config file, then the defaults below.
package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/easyengine/ee-dash/pkg/audit"
	"github.com/easyengine/ee-dash/pkg/inventory"
	"github.com/easyengine/ee-dash/pkg/sshkeys"
)

// Config is the resolved settings of one run.
type Config struct {
	APIKey       string
	Organization string
	IP           string
	Hostname     string

	// APIURL is the Dashboard method base, always ending in "/".
	APIURL string

	DryRun   bool
	Verbose  bool
	NoColor  bool
	EEBinary string

	InventoryPath      string
	AuthorizedKeysPath string
	AutomationKey      string
	ContainerWebRoot   string
	AuditDir           string

	MinPHPVersion     string
	DefaultPHPVersion string

	IPServiceURL     string
	IPServiceTimeout time.Duration
	RequestTimeout   time.Duration
	BreakerThreshold uint32

	// MaxPrompts bounds how often an invalid IP or hostname is asked for
	// again; zero keeps asking.
	MaxPrompts uint64
}

// Viper keys
const (
	KeyAPI               = "api"
	KeyOrg               = "org"
	KeyIP                = "ip"
	KeyHostname          = "hostname"
	KeyAPIURL            = "api_url"
	KeyDryRun            = "dry_run"
	KeyVerbose           = "verbose"
	KeyNoColor           = "no_color"
	KeyEEBinary          = "ee_binary"
	KeyInventoryPath     = "inventory_path"
	KeyAuthorizedKeys    = "authorized_keys"
	KeyAutomationKey     = "automation_key"
	KeyContainerWebRoot  = "container_web_root"
	KeyAuditDir          = "audit_dir"
	KeyMinPHPVersion     = "min_php_version"
	KeyDefaultPHPVersion = "default_php_version"
	KeyIPServiceURL      = "ip_service_url"
	KeyIPServiceTimeout  = "ip_service_timeout"
	KeyRequestTimeout    = "request_timeout"
	KeyBreakerThreshold  = "breaker_threshold"
	KeyMaxPrompts        = "max_prompts"
)

// Defaults
const (
	DefaultAPIURL            = "https://dash.easyengine.io/api/method/"
	DefaultInventoryPath     = inventory.DefaultPath
	DefaultAuthorizedKeys    = sshkeys.DefaultAuthorizedKeysPath
	DefaultAutomationKey     = sshkeys.AutomationKey
	DefaultContainerWebRoot  = "/var/www/htdocs"
	DefaultAuditDir          = audit.DefaultDir
	DefaultMinPHPVersion     = "8.1"
	DefaultPHPVersion        = "8.2"
	DefaultIPServiceURL      = "https://api.ipify.org"
	DefaultIPServiceTimeout  = 15 * time.Second
	DefaultRequestTimeout    = 30 * time.Second
	DefaultBreakerThreshold  = 5
	DefaultConfigFile        = "/opt/easyengine/config/ee-dash.yaml"
	EnvPrefix                = "EE_DASH"
)

// SetDefaults registers the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyAPIURL, DefaultAPIURL)
	v.SetDefault(KeyEEBinary, "ee")
	v.SetDefault(KeyInventoryPath, DefaultInventoryPath)
	v.SetDefault(KeyAuthorizedKeys, DefaultAuthorizedKeys)
	v.SetDefault(KeyAutomationKey, DefaultAutomationKey)
	v.SetDefault(KeyContainerWebRoot, DefaultContainerWebRoot)
	v.SetDefault(KeyAuditDir, DefaultAuditDir)
	v.SetDefault(KeyMinPHPVersion, DefaultMinPHPVersion)
	v.SetDefault(KeyDefaultPHPVersion, DefaultPHPVersion)
	v.SetDefault(KeyIPServiceURL, DefaultIPServiceURL)
	v.SetDefault(KeyIPServiceTimeout, DefaultIPServiceTimeout)
	v.SetDefault(KeyRequestTimeout, DefaultRequestTimeout)
	v.SetDefault(KeyBreakerThreshold, DefaultBreakerThreshold)
	v.SetDefault(KeyMaxPrompts, 0)
}

// FromViper builds a Config from v, trimming every string value and
// normalising APIURL.
func FromViper(v *viper.Viper) *Config {
	get := func(key string) string {
		return strings.TrimSpace(v.GetString(key))
	}

	return &Config{
		APIKey:             get(KeyAPI),
		Organization:       get(KeyOrg),
		IP:                 get(KeyIP),
		Hostname:           get(KeyHostname),
		APIURL:             NormalizeAPIURL(get(KeyAPIURL)),
		DryRun:             v.GetBool(KeyDryRun),
		Verbose:            v.GetBool(KeyVerbose),
		NoColor:            v.GetBool(KeyNoColor),
		EEBinary:           get(KeyEEBinary),
		InventoryPath:      get(KeyInventoryPath),
		AuthorizedKeysPath: get(KeyAuthorizedKeys),
		AutomationKey:      get(KeyAutomationKey),
		ContainerWebRoot:   get(KeyContainerWebRoot),
		AuditDir:           get(KeyAuditDir),
		MinPHPVersion:      get(KeyMinPHPVersion),
		DefaultPHPVersion:  get(KeyDefaultPHPVersion),
		IPServiceURL:       get(KeyIPServiceURL),
		IPServiceTimeout:   v.GetDuration(KeyIPServiceTimeout),
		RequestTimeout:     v.GetDuration(KeyRequestTimeout),
		BreakerThreshold:   v.GetUint32(KeyBreakerThreshold),
		MaxPrompts:         v.GetUint64(KeyMaxPrompts),
	}
}

// NormalizeAPIURL makes sure the URL ends with exactly one slash.
func NormalizeAPIURL(url string) string {
	if url == "" {
		url = DefaultAPIURL
	}
	return strings.TrimRight(url, "/") + "/"
}
