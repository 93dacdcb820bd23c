package precheck

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/easyengine/ee-dash/pkg/shell"
)

type lsbExecutor struct {
	id, release string
	calls       int
}

func (e *lsbExecutor) Run(ctx context.Context, command string) (shell.Result, error) {
	e.calls++
	switch command {
	case "lsb_release -i":
		return shell.Result{Stdout: e.id}, nil
	case "lsb_release -r":
		return shell.Result{Stdout: e.release}, nil
	}
	return shell.Result{ReturnCode: 127}, nil
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func newTestChecker(t *testing.T, osRelease string, euid int) *Checker {
	t.Helper()
	c := NewChecker(&lsbExecutor{}, writeFile(t, "ee.sqlite", ""))
	c.OSReleasePath = writeFile(t, "os-release", osRelease)
	c.euid = func() int { return euid }
	return c
}

func TestParseOSRelease(t *testing.T) {
	info := parseOSRelease("NAME=\"Ubuntu\"\nID=ubuntu\nID_LIKE=debian\nVERSION_ID=\"22.04\"\n")
	if info.Family != OSFamilyUbuntu || info.Name != "ubuntu" || info.Version != "22.04" {
		t.Errorf("info = %+v", info)
	}

	mint := parseOSRelease("ID=linuxmint\nID_LIKE=\"ubuntu debian\"\nVERSION_ID=\"21.3\"\n")
	if mint.Family != OSFamilyUnknown {
		t.Errorf("derivative matched as %s", mint.Family)
	}
}

func TestParseLSBRelease(t *testing.T) {
	info := parseLSBRelease("Distributor ID:\tDebian\n", "Release:\t12\n")
	if info.Family != OSFamilyDebian || info.Name != "debian" || info.Version != "12" {
		t.Errorf("info = %+v", info)
	}
}

func TestDetectOSFallsBackToLSB(t *testing.T) {
	exec := &lsbExecutor{id: "Distributor ID:\tUbuntu\n", release: "Release:\t24.04\n"}
	info, err := DetectOS(context.Background(), exec, filepath.Join(t.TempDir(), "missing"))
	if err != nil {
		t.Fatalf("DetectOS: %v", err)
	}
	if info.Family != OSFamilyUbuntu || info.Version != "24.04" || exec.calls != 2 {
		t.Errorf("info = %+v, calls = %d", info, exec.calls)
	}
}

func TestCheck(t *testing.T) {
	tests := []struct {
		name      string
		osRelease string
		euid      int
		wantErr   string
	}{
		{"ubuntu 22.04", "ID=ubuntu\nVERSION_ID=\"22.04\"\n", 0, ""},
		{"ubuntu 24.04", "ID=ubuntu\nVERSION_ID=\"24.04\"\n", 0, ""},
		{"debian 12", "ID=debian\nVERSION_ID=\"12\"\n", 0, ""},
		{"ubuntu 20.04", "ID=ubuntu\nVERSION_ID=\"20.04\"\n", 0, "or later"},
		{"debian 11", "ID=debian\nVERSION_ID=\"11\"\n", 0, "or later"},
		{"centos", "ID=\"centos\"\nVERSION_ID=\"9\"\n", 0, "only supported on Ubuntu or Debian"},
		{"not root", "ID=ubuntu\nVERSION_ID=\"22.04\"\n", 1000, "root"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newTestChecker(t, tt.osRelease, tt.euid).Check(context.Background())
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Check: %v", err)
				}
				return
			}
			if !errors.Is(err, ErrUnsupported) || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Check() error = %v, want %q", err, tt.wantErr)
			}
		})
	}
}

func TestCheckMissingInventory(t *testing.T) {
	c := newTestChecker(t, "ID=ubuntu\nVERSION_ID=\"22.04\"\n", 0)
	c.InventoryPath = filepath.Join(t.TempDir(), "ee.sqlite")

	_, err := c.Check(context.Background())
	if !errors.Is(err, ErrUnsupported) || !strings.Contains(err.Error(), "database not found") {
		t.Errorf("Check() error = %v", err)
	}
}
