package sshkeys

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestEnsureAuthorizedKeyCreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".ssh", "authorized_keys")

	added, err := EnsureAuthorizedKey(path, AutomationKey)
	if err != nil {
		t.Fatalf("EnsureAuthorizedKey: %v", err)
	}
	if !added {
		t.Error("key not reported as added")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != AutomationKey+"\n" {
		t.Errorf("file = %q", data)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("mode = %v, want 0600", info.Mode().Perm())
	}
}

func TestEnsureAuthorizedKeyIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "authorized_keys")
	for i := 0; i < 2; i++ {
		if _, err := EnsureAuthorizedKey(path, AutomationKey); err != nil {
			t.Fatalf("EnsureAuthorizedKey #%d: %v", i+1, err)
		}
	}
	data, _ := os.ReadFile(path)
	if n := strings.Count(string(data), "ssh-ed25519"); n != 1 {
		t.Errorf("key present %d times", n)
	}
}

func TestEnsureAuthorizedKeyMatchesKeyMaterial(t *testing.T) {
	path := filepath.Join(t.TempDir(), "authorized_keys")
	fields := strings.Fields(AutomationKey)
	existing := `no-pty,from="10.0.0.0/8" ` + fields[0] + " " + fields[1] + " dashboard@old\n"
	if err := os.WriteFile(path, []byte(existing), 0600); err != nil {
		t.Fatal(err)
	}

	added, err := EnsureAuthorizedKey(path, AutomationKey)
	if err != nil {
		t.Fatalf("EnsureAuthorizedKey: %v", err)
	}
	if added {
		t.Error("key with same material but different options was added again")
	}
}

func TestEnsureAuthorizedKeyAppendsNewline(t *testing.T) {
	path := filepath.Join(t.TempDir(), "authorized_keys")
	other := "ssh-ed25519 AAAAC3NzaC1lZDI1NTE5AAAAIOMqqnkVzrm0SdG6UOoqKLsabgH5C9okWi0dh2l9GKJl admin@laptop"
	if err := os.WriteFile(path, []byte(other), 0600); err != nil {
		t.Fatal(err)
	}

	if _, err := EnsureAuthorizedKey(path, AutomationKey); err != nil {
		t.Fatalf("EnsureAuthorizedKey: %v", err)
	}
	data, _ := os.ReadFile(path)
	want := other + "\n" + AutomationKey + "\n"
	if string(data) != want {
		t.Errorf("file = %q, want %q", data, want)
	}
}

func TestEnsureAuthorizedKeyRejectsInvalidKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "authorized_keys")
	if _, err := EnsureAuthorizedKey(path, "not a key"); err == nil {
		t.Fatal("invalid key accepted")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("file created for an invalid key")
	}
}

func TestHasAuthorizedKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "authorized_keys")

	if ok, err := HasAuthorizedKey(path, AutomationKey); err != nil || ok {
		t.Fatalf("HasAuthorizedKey on missing file = %v, %v", ok, err)
	}
	if _, err := EnsureAuthorizedKey(path, AutomationKey); err != nil {
		t.Fatal(err)
	}
	if ok, err := HasAuthorizedKey(path, AutomationKey); err != nil || !ok {
		t.Errorf("HasAuthorizedKey = %v, %v", ok, err)
	}
}
