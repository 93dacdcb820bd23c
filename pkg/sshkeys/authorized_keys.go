// Package sshkeys maintains the host's authorized_keys file.
package sshkeys

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/crypto/ssh"
)

// AutomationKey is the public key the Dashboard uses to manage registered servers.
const AutomationKey = "ssh-ed25519 AAAAC3NzaC1lZDI1NTE5AAAAILbESQqRcGdwnn/u1BkDCD9rDiFqgDhTHBHIIasaDpWV EasyEngine"

// DefaultAuthorizedKeysPath is root's authorized_keys file.
const DefaultAuthorizedKeysPath = "/root/.ssh/authorized_keys"

// EnsureAuthorizedKey appends authorizedKey to the file at path unless an
// equivalent key is already present. A key matches when a line contains the
// exact text or parses to the same key material (comments and options are
// ignored). It reports whether the file was modified.
func EnsureAuthorizedKey(path, authorizedKey string) (bool, error) {
	authorizedKey = strings.TrimSpace(authorizedKey)
	want, _, _, _, err := ssh.ParseAuthorizedKey([]byte(authorizedKey))
	if err != nil {
		return false, fmt.Errorf("invalid public key: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return false, fmt.Errorf("failed to read %s: %w", path, err)
	}

	if containsKey(data, authorizedKey, want) {
		return false, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return false, fmt.Errorf("failed to create %s: %w", filepath.Dir(path), err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		return false, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	var buf bytes.Buffer
	if len(data) > 0 && data[len(data)-1] != '\n' {
		buf.WriteByte('\n')
	}
	buf.WriteString(authorizedKey)
	buf.WriteByte('\n')

	if _, err := f.Write(buf.Bytes()); err != nil {
		return false, fmt.Errorf("failed to append key to %s: %w", path, err)
	}
	return true, nil
}

// HasAuthorizedKey reports whether the file at path already holds a key
// equivalent to authorizedKey. A missing file holds no keys.
func HasAuthorizedKey(path, authorizedKey string) (bool, error) {
	authorizedKey = strings.TrimSpace(authorizedKey)
	want, _, _, _, err := ssh.ParseAuthorizedKey([]byte(authorizedKey))
	if err != nil {
		return false, fmt.Errorf("invalid public key: %w", err)
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return containsKey(data, authorizedKey, want), nil
}

func containsKey(data []byte, text string, want ssh.PublicKey) bool {
	wantBytes := want.Marshal()

	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.Contains(line, text) {
			return true
		}
		pk, _, _, _, err := ssh.ParseAuthorizedKey([]byte(line))
		if err != nil {
			continue
		}
		if bytes.Equal(pk.Marshal(), wantBytes) {
			return true
		}
	}
	return false
}
