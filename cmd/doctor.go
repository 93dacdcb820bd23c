package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/easyengine/ee-dash/pkg/config"
	"github.com/easyengine/ee-dash/pkg/dashboard"
	"github.com/easyengine/ee-dash/pkg/formatter"
	"github.com/easyengine/ee-dash/pkg/identity"
	"github.com/easyengine/ee-dash/pkg/inventory"
	"github.com/easyengine/ee-dash/pkg/precheck"
	"github.com/easyengine/ee-dash/pkg/shell"
	"github.com/easyengine/ee-dash/pkg/sshkeys"
	"github.com/easyengine/ee-dash/pkg/syscheck"
)

var doctorSkipRemote bool

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check whether this server is ready for Dashboard integration",
	Long: `Run the checks that ee-dash init depends on without changing anything.

Checks performed:
  - Configuration (API key, organization, config file)
  - Operating system, privileges and the EasyEngine database
  - Host tools (ee, docker, hostnamectl, lsb_release)
  - Dashboard SSH key in authorized_keys
  - Dashboard API access and public IP detection (skip with --skip-remote)

Examples:
  ee-dash doctor --api=xxx:yyy --org=Acme
  ee-dash doctor --skip-remote`,
	Args: cobra.NoArgs,
	RunE: runDoctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)

	flags := doctorCmd.Flags()
	flags.BoolVar(&doctorSkipRemote, "skip-remote", false, "skip Dashboard and IP service checks")
	flags.String("api", "", "Dashboard API key")
	flags.String("org", "", "Dashboard organization")
	flags.String("api-url", config.DefaultAPIURL, "Dashboard API base URL")
}

type checkResult struct {
	status  string // "PASS", "WARN", "FAIL"
	message string
	fix     string
}

func runDoctor(cmd *cobra.Command, args []string) error {
	// init owns the viper bindings for these flags; doctor only overrides
	// them when they were passed explicitly.
	for flag, key := range map[string]string{"api": config.KeyAPI, "org": config.KeyOrg, "api-url": config.KeyAPIURL} {
		if f := cmd.Flags().Lookup(flag); f.Changed {
			viper.Set(key, f.Value.String())
		}
	}

	cfg := config.FromViper(viper.GetViper())
	out := formatter.New(cfg.Verbose, cfg.NoColor)
	ctx := cmd.Context()
	passed, warned, failed := 0, 0, 0

	record := func(r checkResult) {
		switch r.status {
		case "PASS":
			passed++
		case "WARN":
			warned++
		case "FAIL":
			failed++
		}
		line := fmt.Sprintf("  [%s] %s", r.status, r.message)
		if r.fix != "" {
			line += fmt.Sprintf(" (Fix: %s)", r.fix)
		}
		out.Plain("%s\n", line)
	}

	out.Section("Configuration")
	configOK := checkConfig(record, cfg)

	out.Section("Host")
	exec := shell.NewLocal()
	checkHost(ctx, record, exec, cfg)

	out.Section("Tools")
	checkTools(ctx, record, exec, cfg)

	out.Section("SSH Keys")
	checkAutomationKey(record, cfg)

	out.Section("Dashboard")
	switch {
	case doctorSkipRemote:
		out.Plain("  [SKIP] Skipped (--skip-remote)\n")
	case !configOK:
		out.Plain("  [SKIP] Skipped (configuration incomplete)\n")
	default:
		checkDashboard(ctx, record, cfg)
	}

	out.Plain("\nSummary: %d passed, %d warning(s), %d failed\n", passed, warned, failed)
	if failed > 0 {
		return fmt.Errorf("doctor found %d issue(s)", failed)
	}
	return nil
}

func checkConfig(record func(checkResult), cfg *config.Config) bool {
	if _, err := os.Stat(viper.ConfigFileUsed()); err == nil {
		record(checkResult{"PASS", "Config file: " + viper.ConfigFileUsed(), ""})
	} else {
		record(checkResult{"PASS", "Config file: none (using flags and environment)", ""})
	}

	if err := cfg.Validate(); err != nil {
		record(checkResult{"FAIL", fmt.Sprintf("Settings: %v", err), "Pass --api and --org or set EE_DASH_API and EE_DASH_ORG"})
		return false
	}
	record(checkResult{"PASS", fmt.Sprintf("Settings: organization %s, API %s", cfg.Organization, cfg.APIURL), ""})
	return true
}

func checkHost(ctx context.Context, record func(checkResult), exec shell.Executor, cfg *config.Config) {
	info, err := precheck.NewChecker(exec, cfg.InventoryPath).Check(ctx)
	if err != nil {
		record(checkResult{"FAIL", err.Error(), ""})
		return
	}
	record(checkResult{"PASS", "Operating system: " + info.String(), ""})

	store := inventory.New(cfg.InventoryPath)
	defer store.Close()

	sites, err := store.Sites(ctx)
	if err != nil {
		record(checkResult{"FAIL", fmt.Sprintf("EasyEngine database: %v", err), ""})
		return
	}
	enabled := 0
	for _, s := range sites {
		if s.Enabled {
			enabled++
		}
	}
	record(checkResult{"PASS", fmt.Sprintf("EasyEngine database: %d site(s), %d enabled", len(sites), enabled), ""})
}

func checkTools(ctx context.Context, record func(checkResult), exec shell.Executor, cfg *config.Config) {
	for _, req := range syscheck.NewSystemChecker(exec, cfg.EEBinary).CheckAll(ctx).Requirements {
		switch {
		case req.Installed:
			record(checkResult{"PASS", fmt.Sprintf("%s: %s", req.Name, req.Version), ""})
		case req.Required:
			record(checkResult{"FAIL", req.Name + ": not installed", req.InstallHint})
		default:
			record(checkResult{"WARN", req.Name + ": not installed", req.InstallHint})
		}
	}
}

func checkAutomationKey(record func(checkResult), cfg *config.Config) {
	ok, err := sshkeys.HasAuthorizedKey(cfg.AuthorizedKeysPath, cfg.AutomationKey)
	switch {
	case err != nil:
		record(checkResult{"FAIL", fmt.Sprintf("Dashboard key: %v", err), ""})
	case ok:
		record(checkResult{"PASS", "Dashboard key: present in " + cfg.AuthorizedKeysPath, ""})
	default:
		record(checkResult{"WARN", "Dashboard key: not in " + cfg.AuthorizedKeysPath, "ee-dash init adds it"})
	}
}

func checkDashboard(ctx context.Context, record func(checkResult), cfg *config.Config) {
	quiet := formatter.New(false, true)
	dash := dashboard.NewClient(dashboard.Options{
		APIURL:       cfg.APIURL,
		APIKey:       cfg.APIKey,
		Organization: cfg.Organization,
		Timeout:      cfg.RequestTimeout,
		Output:       quiet,
	})

	if err := dash.CheckAccess(ctx); err != nil {
		record(checkResult{"FAIL", fmt.Sprintf("API access: %v", err), "Check the API key and organization name"})
		return
	}
	record(checkResult{"PASS", "API access: organization " + cfg.Organization, ""})

	ip, err := identity.NewIPService(cfg.IPServiceURL, cfg.IPServiceTimeout).PublicIPv4(ctx)
	if err != nil {
		record(checkResult{"WARN", fmt.Sprintf("Public IP: %v", err), "Pass --ip to ee-dash init"})
		return
	}
	if dash.ServerExists(ctx, ip) {
		record(checkResult{"PASS", fmt.Sprintf("Server %s: registered", ip), ""})
	} else {
		record(checkResult{"WARN", fmt.Sprintf("Server %s: not registered", ip), "Run ee-dash init"})
	}
}
