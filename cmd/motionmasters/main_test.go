package main

import (
	"flag"
	"os"
	"path/filepath"
	"testing"

	"github.com/urfave/cli/v2"
)

func newContext(t *testing.T, args ...string) *cli.Context {
	t.Helper()

	set := flag.NewFlagSet("test", flag.ContinueOnError)
	set.String(flagConfig, filepath.Join(t.TempDir(), "absent.yaml"), "")
	set.Int(flagCamera, 0, "")
	set.String(flagAddr, "", "")
	set.Bool(flagWindow, false, "")
	set.Bool(flagTray, false, "")
	set.Bool(flagDebug, false, "")
	if err := set.Parse(args); err != nil {
		t.Fatalf("parse flags: %v", err)
	}
	return cli.NewContext(cli.NewApp(), set, nil)
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := loadConfig(newContext(t))
	if err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}
	if !cfg.Server.Enabled || cfg.Server.Addr != "127.0.0.1:8080" {
		t.Errorf("Server = %+v", cfg.Server)
	}
	if cfg.Window.Enabled || cfg.Tray {
		t.Error("window and tray should be off by default")
	}
}

func TestLoadConfig_Flags(t *testing.T) {
	cfg, err := loadConfig(newContext(t, "--camera", "3", "--window", "--tray", "--addr", ":9000"))
	if err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}
	if cfg.Camera.DeviceID != 3 {
		t.Errorf("DeviceID = %d, want 3", cfg.Camera.DeviceID)
	}
	if !cfg.Window.Enabled || !cfg.Tray {
		t.Error("window and tray flags were not applied")
	}
	if cfg.Server.Addr != ":9000" {
		t.Errorf("Addr = %q, want :9000", cfg.Server.Addr)
	}
}

func TestLoadConfig_EmptyAddrDisablesServer(t *testing.T) {
	cfg, err := loadConfig(newContext(t, "--addr", ""))
	if err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}
	if cfg.Server.Enabled {
		t.Error("empty --addr should disable the server")
	}
}

func TestLoadConfig_FileThenFlags(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("camera:\n  device_id: 1\ntray: true\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := loadConfig(newContext(t, "--config", path, "--tray=false"))
	if err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}
	if cfg.Camera.DeviceID != 1 {
		t.Errorf("DeviceID = %d, want 1 from file", cfg.Camera.DeviceID)
	}
	if cfg.Tray {
		t.Error("flag should override the file")
	}
}

func TestBrowserURL(t *testing.T) {
	tests := []struct {
		addr string
		want string
	}{
		{":8080", "http://127.0.0.1:8080"},
		{"localhost:9000", "http://localhost:9000"},
	}
	for _, tt := range tests {
		if got := browserURL(tt.addr); got != tt.want {
			t.Errorf("browserURL(%q) = %q, want %q", tt.addr, got, tt.want)
		}
	}
}
