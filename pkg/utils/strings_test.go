package utils

import "testing"

func TestCompareVersions(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"22.04", "22.04", 0},
		{"24.04", "22.04", 1},
		{"20.04", "22.04", -1},
		{"12", "12", 0},
		{"11", "12", -1},
		{"12.5", "12", 1},
		{"8.10", "8.1", 1},
		{"8.0", "8.1", -1},
		{"7.4", "8.1", -1},
	}
	for _, tt := range tests {
		got, err := CompareVersions(tt.a, tt.b)
		if err != nil {
			t.Fatalf("CompareVersions(%q, %q): %v", tt.a, tt.b, err)
		}
		if got != tt.want {
			t.Errorf("CompareVersions(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestCompareVersionsRejectsGarbage(t *testing.T) {
	for _, v := range []string{"", "latest", "8.x", "-1"} {
		if _, err := CompareVersions(v, "8.1"); err == nil {
			t.Errorf("CompareVersions(%q) succeeded", v)
		}
	}
}

func TestCanonicalVersion(t *testing.T) {
	got, err := CanonicalVersion("22.04")
	if err != nil || got != "v22.4" {
		t.Errorf("CanonicalVersion(22.04) = %q, %v", got, err)
	}
}

func TestSplitTrim(t *testing.T) {
	got := SplitTrim(" a.com ,, b.com,", ",")
	if len(got) != 2 || got[0] != "a.com" || got[1] != "b.com" {
		t.Errorf("SplitTrim = %q", got)
	}
	if got := SplitTrim("", ","); len(got) != 0 {
		t.Errorf("SplitTrim(\"\") = %q", got)
	}
}

func TestShellQuote(t *testing.T) {
	if got := ShellQuote("it's"); got != `'it'"'"'s'` {
		t.Errorf("ShellQuote = %s", got)
	}
}

func TestTruncateString(t *testing.T) {
	if got := TruncateString("abcdefgh", 6); got != "abc..." {
		t.Errorf("TruncateString = %q", got)
	}
	if got := TruncateString("abc", 6); got != "abc" {
		t.Errorf("TruncateString = %q", got)
	}
}
