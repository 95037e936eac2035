package gateway

import (
	"bytes"
	"strings"
	"testing"
)

func TestBrowserCommand(t *testing.T) {
	tests := []struct {
		goos    string
		wantBin string
		wantErr bool
	}{
		{goos: "linux", wantBin: "xdg-open"},
		{goos: "freebsd", wantBin: "xdg-open"},
		{goos: "darwin", wantBin: "open"},
		{goos: "windows", wantBin: "rundll32"},
		{goos: "plan9", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.goos, func(t *testing.T) {
			cmd, err := browserCommand(tt.goos, "https://example.com")
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error for unsupported platform")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !strings.HasSuffix(cmd.Path, tt.wantBin) && cmd.Args[0] != tt.wantBin {
				t.Errorf("expected %s, got %v", tt.wantBin, cmd.Args)
			}
			if cmd.Args[len(cmd.Args)-1] != "https://example.com" {
				t.Errorf("expected URL as last argument, got %v", cmd.Args)
			}
		})
	}
}

func TestPrintNavigator(t *testing.T) {
	var buf bytes.Buffer
	n := PrintNavigator{Out: &buf}

	if err := n.Navigate("https://tenant.example.com/authorize?x=1"); err != nil {
		t.Fatalf("Navigate failed: %v", err)
	}
	if !strings.Contains(buf.String(), "https://tenant.example.com/authorize?x=1") {
		t.Errorf("expected URL in output, got %q", buf.String())
	}
}

func TestNavigatorFunc(t *testing.T) {
	var got string
	n := NavigatorFunc(func(u string) error {
		got = u
		return nil
	})
	if err := n.Navigate("https://x"); err != nil {
		t.Fatalf("Navigate failed: %v", err)
	}
	if got != "https://x" {
		t.Errorf("expected https://x, got %q", got)
	}
}
