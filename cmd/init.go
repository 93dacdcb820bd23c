package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/easyengine/ee-dash/pkg/audit"
	"github.com/easyengine/ee-dash/pkg/config"
	"github.com/easyengine/ee-dash/pkg/dashboard"
	"github.com/easyengine/ee-dash/pkg/ee"
	"github.com/easyengine/ee-dash/pkg/formatter"
	"github.com/easyengine/ee-dash/pkg/identity"
	"github.com/easyengine/ee-dash/pkg/inventory"
	"github.com/easyengine/ee-dash/pkg/precheck"
	"github.com/easyengine/ee-dash/pkg/prompt"
	"github.com/easyengine/ee-dash/pkg/registration"
	"github.com/easyengine/ee-dash/pkg/resilience"
	"github.com/easyengine/ee-dash/pkg/shell"
	"github.com/easyengine/ee-dash/pkg/telemetry"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Register this server and its sites on the Dashboard",
	Long: `Register this server on the Dashboard and push every local site the
Dashboard does not know about yet.

The server is identified by its public IPv4 address and sites by their
domain, both within the given organization. If the hostname of this machine
is not a valid FQDN you will be asked for one, and it will be applied to the
machine with hostnamectl.

Examples:
  ee-dash init --api=xxx:yyy --org=Acme
  ee-dash init --api=xxx:yyy --org=Acme --ip=203.0.113.5 --hostname=web1.example.com
  ee-dash init --api=xxx:yyy --org=Acme --dry-run`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)

	flags := initCmd.Flags()
	flags.String("api", "", "Dashboard API key")
	flags.String("org", "", "Dashboard organization the server is added to")
	flags.String("ip", "", "public IPv4 address of the server (default: auto-detect)")
	flags.String("hostname", "", "FQDN hostname of the server")
	flags.String("api-url", config.DefaultAPIURL, "Dashboard API base URL")
	flags.Bool("dry-run", false, "print the records that would be submitted instead of submitting them")

	viper.BindPFlag(config.KeyAPI, flags.Lookup("api"))
	viper.BindPFlag(config.KeyOrg, flags.Lookup("org"))
	viper.BindPFlag(config.KeyIP, flags.Lookup("ip"))
	viper.BindPFlag(config.KeyHostname, flags.Lookup("hostname"))
	viper.BindPFlag(config.KeyAPIURL, flags.Lookup("api-url"))
	viper.BindPFlag(config.KeyDryRun, flags.Lookup("dry-run"))
}

func runInit(cmd *cobra.Command, args []string) error {
	cfg := config.FromViper(viper.GetViper())
	if err := cfg.Validate(); err != nil {
		return err
	}

	out := formatter.New(cfg.Verbose, cfg.NoColor)
	out.Debug("dash init start")

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tcfg := telemetry.DefaultConfig()
	tcfg.ServiceVersion = Version
	tcfg.Organization = cfg.Organization
	if err := telemetry.Init(tcfg); err != nil {
		out.Warning("Tracing disabled: %v", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = telemetry.Shutdown(shutdownCtx)
	}()

	exec := shell.NewLocal()

	store := inventory.New(cfg.InventoryPath)
	defer store.Close()

	resolver := identity.NewResolver(
		identity.NewIPService(cfg.IPServiceURL, cfg.IPServiceTimeout),
		identity.NewSystemHostname(exec),
		prompt.NewTerminal(),
		out,
	)
	resolver.ApplyHostname = !cfg.DryRun
	resolver.MaxPrompts = cfg.MaxPrompts

	breaker := resilience.NewDashboardBreaker(cfg.BreakerThreshold, func(name, from, to string) {
		out.Debug("Circuit breaker %s: %s -> %s", name, from, to)
		if to == "open" {
			out.Warning("Dashboard API failed %d times in a row; still trying the remaining sites.", cfg.BreakerThreshold)
		}
	})
	dash := dashboard.NewClient(dashboard.Options{
		APIURL:       cfg.APIURL,
		APIKey:       cfg.APIKey,
		Organization: cfg.Organization,
		Timeout:      cfg.RequestTimeout,
		Breaker:      breaker,
		Output:       out,
	})

	var activity audit.Logger = audit.NewNoOpLogger()
	if cfg.AuditDir != "" && !cfg.DryRun {
		fl, err := audit.NewFileLogger(cfg.AuditDir)
		if err != nil {
			out.Warning("Activity log disabled: %v", err)
		} else {
			activity = fl
		}
	}
	defer activity.Close()

	wf := &registration.Workflow{
		Prechecks: precheck.NewChecker(exec, cfg.InventoryPath),
		Identity:  resolver,
		Dashboard: dash,
		Inventory: store,
		Builder: registration.NewBuilder(dash, store, ee.NewCLI(exec, cfg.EEBinary), out, registration.BuilderOptions{
			Organization:      cfg.Organization,
			ContainerWebRoot:  cfg.ContainerWebRoot,
			MinPHPVersion:     cfg.MinPHPVersion,
			DefaultPHPVersion: cfg.DefaultPHPVersion,
			DryRun:            cfg.DryRun,
		}),
		Servers:      registration.NewServerRegistrar(dash, out, cfg.AuthorizedKeysPath, cfg.AutomationKey, cfg.DryRun),
		Sites:        registration.NewSiteRegistrar(dash, out, cfg.DryRun),
		Output:       out,
		Audit:        activity,
		Organization: cfg.Organization,
	}

	report, err := wf.Run(ctx, cfg.IP, cfg.Hostname)
	if report != nil {
		report.Print(out)
	}
	if err != nil {
		return err
	}

	out.Debug("dash init end")
	return nil
}
