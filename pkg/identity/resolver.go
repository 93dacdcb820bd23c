// Package identity determines the public IPv4 address and FQDN under which
// the server is registered.
package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/easyengine/ee-dash/pkg/formatter"
	"github.com/easyengine/ee-dash/pkg/prompt"
	"github.com/easyengine/ee-dash/pkg/resilience"
)

// ErrInvalidIPFlag is returned when the operator supplied an address that is
// not a dotted-quad IPv4 address.
var ErrInvalidIPFlag = errors.New("invalid --ip value")

// IPDiscoverer finds the host's public IPv4 address.
type IPDiscoverer interface {
	PublicIPv4(ctx context.Context) (string, error)
}

// HostnameManager reads and changes the machine hostname.
type HostnameManager interface {
	Current() (string, error)
	Set(ctx context.Context, name string) error
}

// Identity is the resolved address and name of this server.
type Identity struct {
	IP       string
	Hostname string
	// HostnameChanged is set when the machine was renamed during resolution.
	HostnameChanged bool
}

// Resolver resolves the server identity from flags, auto-detection and the operator.
type Resolver struct {
	ips      IPDiscoverer
	hosts    HostnameManager
	prompter prompt.Prompter
	out      *formatter.Output

	// MaxPrompts bounds each re-prompt loop; zero asks until the input is valid.
	MaxPrompts uint64
	// ApplyHostname controls whether an entered hostname is set on the machine.
	ApplyHostname bool
}

// NewResolver creates a Resolver.
func NewResolver(ips IPDiscoverer, hosts HostnameManager, prompter prompt.Prompter, out *formatter.Output) *Resolver {
	return &Resolver{
		ips:      ips,
		hosts:    hosts,
		prompter: prompter,
		out:      out,

		ApplyHostname: true,
	}
}

// Resolve returns the server identity. An explicit ipFlag must be valid. An
// empty ipFlag falls back to the external IP service and then to the operator.
// A valid hostnameFlag is accepted as-is; otherwise the current hostname is
// offered for confirmation, and failing that the operator is asked until a
// valid FQDN is entered, which is then applied to the machine.
//
// Errors are prompt.ErrAborted, prompt.ErrNotInteractive or ErrInvalidIPFlag;
// all of them should end the run.
func (r *Resolver) Resolve(ctx context.Context, ipFlag, hostnameFlag string) (*Identity, error) {
	ip, err := r.resolveIP(ctx, strings.TrimSpace(ipFlag))
	if err != nil {
		return nil, err
	}

	id := &Identity{IP: ip}
	if err := r.resolveHostname(ctx, strings.TrimSpace(hostnameFlag), id); err != nil {
		return nil, err
	}
	return id, nil
}

func (r *Resolver) resolveIP(ctx context.Context, ipFlag string) (string, error) {
	if ipFlag != "" {
		if !IsValidIPv4(ipFlag) {
			return "", fmt.Errorf("%w: %q is not an IPv4 address", ErrInvalidIPFlag, ipFlag)
		}
		return ipFlag, nil
	}

	ip, err := r.ips.PublicIPv4(ctx)
	if err == nil {
		r.out.Debug("Detected public IP address %s", ip)
		return ip, nil
	}
	r.out.Warning("%v", err)

	err = resilience.Reprompt(ctx, r.MaxPrompts, func() error {
		answer, err := r.prompter.Input(ctx, "Please enter the public IP address of the server: ")
		if err != nil {
			return err
		}
		if !IsValidIPv4(answer) {
			r.out.Warning("Invalid IP address. Please enter a valid IPv4 address.")
			return resilience.ErrInvalidInput
		}
		ip = answer
		return nil
	})
	if err != nil {
		return "", err
	}
	return ip, nil
}

func (r *Resolver) resolveHostname(ctx context.Context, hostnameFlag string, id *Identity) error {
	if hostnameFlag != "" {
		if name, ok := NormalizeFQDN(hostnameFlag); ok {
			id.Hostname = name
			return nil
		}
		r.out.Warning("Ignoring --hostname=%s: not a valid FQDN.", hostnameFlag)
	}

	current, err := r.hosts.Current()
	if err != nil {
		r.out.Warning("%v", err)
	}
	if name, ok := NormalizeFQDN(current); ok {
		confirmed, err := r.prompter.Confirm(ctx, fmt.Sprintf("Is the hostname %s correct?", name), false)
		if err != nil {
			return err
		}
		if confirmed {
			id.Hostname = name
			return nil
		}
	}

	var entered string
	err = resilience.Reprompt(ctx, r.MaxPrompts, func() error {
		answer, err := r.prompter.Input(ctx, "Please enter the FQDN hostname of the server: ")
		if err != nil {
			return err
		}
		name, ok := NormalizeFQDN(answer)
		if !ok {
			r.out.Warning("Invalid hostname. Please enter a valid FQDN hostname.")
			return resilience.ErrInvalidInput
		}
		entered = name
		return nil
	})
	if err != nil {
		return err
	}

	id.Hostname = entered
	if !r.ApplyHostname {
		r.out.Log("Not changing the machine hostname; using %s for this run.", entered)
		return nil
	}
	r.out.Log("Setting the hostname of this server to %s", entered)
	if err := r.hosts.Set(ctx, entered); err != nil {
		r.out.Warning("Could not apply hostname %s: %v", entered, err)
		return nil
	}
	id.HostnameChanged = true
	return nil
}
