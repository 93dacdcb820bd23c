package shell

import (
	"context"
	"testing"
)

func TestLocalRun(t *testing.T) {
	res, err := NewLocal().Run(context.Background(), "echo out; echo err >&2; exit 3")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Stdout != "out\n" || res.Stderr != "err\n" {
		t.Errorf("stdout = %q, stderr = %q", res.Stdout, res.Stderr)
	}
	if res.ReturnCode != 3 || res.OK() {
		t.Errorf("ReturnCode = %d", res.ReturnCode)
	}
}

func TestLocalRunMissingShell(t *testing.T) {
	l := &Local{Shell: "/nonexistent/sh"}
	if _, err := l.Run(context.Background(), "true"); err == nil {
		t.Fatal("Run succeeded without a shell")
	}
}
