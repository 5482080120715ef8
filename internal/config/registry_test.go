package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"
)

func TestGetConfigDir(t *testing.T) {
	configDir, err := GetConfigDir()
	if err != nil {
		t.Fatalf("GetConfigDir() error = %v", err)
	}
	if !strings.Contains(configDir, "glucometer") {
		t.Errorf("GetConfigDir() = %v, should contain 'glucometer'", configDir)
	}

	switch runtime.GOOS {
	case "windows":
		if !strings.Contains(configDir, "AppData") && !strings.Contains(configDir, "Local") {
			t.Errorf("Windows config dir should contain 'AppData' or 'Local', got: %v", configDir)
		}
	case "darwin":
		if !strings.Contains(configDir, ".config") {
			t.Errorf("macOS config dir should contain '.config', got: %v", configDir)
		}
	}
}

func TestGetConfigDirXDG(t *testing.T) {
	if runtime.GOOS == "windows" || runtime.GOOS == "darwin" {
		t.Skip("XDG_CONFIG_HOME only applies on Linux")
	}
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")
	got, err := GetConfigDir()
	if err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join("/tmp/xdg", "glucometer"); got != want {
		t.Errorf("GetConfigDir() = %q, want %q", got, want)
	}
}

func TestGetConfigPathEnv(t *testing.T) {
	t.Setenv(PathEnvVar, "/etc/glucometer.yaml")
	got, err := GetConfigPath()
	if err != nil {
		t.Fatal(err)
	}
	if got != "/etc/glucometer.yaml" {
		t.Errorf("GetConfigPath() = %q", got)
	}
}

func TestNewRegistry(t *testing.T) {
	reg := NewRegistry()

	if reg.Version != 1 {
		t.Errorf("NewRegistry().Version = %v, want 1", reg.Version)
	}
	if reg.Devices == nil {
		t.Error("NewRegistry().Devices should not be nil")
	}
	if reg.Store.Driver != "memory" {
		t.Errorf("NewRegistry().Store.Driver = %q, want memory", reg.Store.Driver)
	}
	if reg.Protocol.StrictEntries || reg.Protocol.FailOnChecksumMismatch {
		t.Error("protocol policy should default to lenient")
	}
	if reg.Feed.Listen != ":8470" {
		t.Errorf("NewRegistry().Feed.Listen = %q", reg.Feed.Listen)
	}
}

func TestRegistryDevices(t *testing.T) {
	reg := NewRegistry()

	d1 := reg.EnsureDevice("kitchen")
	if d1 == nil {
		t.Fatal("EnsureDevice() returned nil")
	}
	if d2 := reg.EnsureDevice("kitchen"); d1 != d2 {
		t.Error("EnsureDevice() should return same instance for same name")
	}

	reg.SetDevice("bedroom", "/dev/ttyUSB1", "abbott", 9600)
	if got := reg.DeviceNames(); len(got) != 2 || got[0] != "bedroom" || got[1] != "kitchen" {
		t.Errorf("DeviceNames() = %v", got)
	}

	before := time.Now()
	reg.RecordRead("bedroom", 42)
	d := reg.GetDevice("bedroom")
	if d.LastInserted != 42 || d.LastRead.Before(before) {
		t.Errorf("RecordRead() = %+v", d)
	}

	if !reg.RemoveDevice("kitchen") || reg.RemoveDevice("kitchen") {
		t.Error("RemoveDevice() should succeed exactly once")
	}
	if reg.GetDevice("kitchen") != nil {
		t.Error("GetDevice() should return nil after removal")
	}
}

func TestRegistryValidate(t *testing.T) {
	dialects := []string{"abbott", "abfr"}

	tests := []struct {
		name    string
		mutate  func(*Registry)
		wantErr bool
	}{
		{name: "defaults", mutate: func(*Registry) {}},
		{name: "valid device", mutate: func(r *Registry) { r.SetDevice("a", "/dev/ttyUSB0", "abfr", 0) }},
		{name: "missing port", mutate: func(r *Registry) { r.SetDevice("a", "", "abfr", 0) }, wantErr: true},
		{name: "unknown dialect", mutate: func(r *Registry) { r.SetDevice("a", "/dev/ttyUSB0", "onetouch", 0) }, wantErr: true},
		{name: "negative baud", mutate: func(r *Registry) { r.SetDevice("a", "/dev/ttyUSB0", "abfr", -1) }, wantErr: true},
		{name: "postgres without dsn", mutate: func(r *Registry) { r.Store.Driver = "postgres" }, wantErr: true},
		{name: "postgres with dsn", mutate: func(r *Registry) { r.Store = &StoreConfig{Driver: "postgres", DSN: "postgres://x"} }},
		{name: "unknown store", mutate: func(r *Registry) { r.Store.Driver = "sqlite" }, wantErr: true},
		{name: "negative timeout", mutate: func(r *Registry) { r.Protocol.IdleTimeout = -time.Second }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := NewRegistry()
			tt.mutate(reg)
			err := reg.Validate(dialects)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestRegistrySaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	reg := NewRegistry()
	reg.SetDevice("kitchen", "/dev/ttyUSB0", "abfr", 0)
	reg.Store = &StoreConfig{Driver: "postgres", DSN: "postgres://localhost/glucose"}
	reg.Protocol.StrictEntries = true
	reg.Protocol.IdleTimeout = 30 * time.Second
	reg.Feed.Advertise = false

	if err := reg.SaveFile(path); err != nil {
		t.Fatalf("SaveFile() error = %v", err)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("temporary file should not remain after save")
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if runtime.GOOS != "windows" && info.Mode().Perm() != 0600 {
		t.Errorf("config file mode = %v, want 0600", info.Mode().Perm())
	}

	loaded, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}

	d := loaded.GetDevice("kitchen")
	if d == nil || d.Port != "/dev/ttyUSB0" || d.Dialect != "abfr" {
		t.Errorf("device = %+v", d)
	}
	if loaded.Store.DSN != "postgres://localhost/glucose" {
		t.Errorf("Store.DSN = %q", loaded.Store.DSN)
	}
	if !loaded.Protocol.StrictEntries || loaded.Protocol.IdleTimeout != 30*time.Second {
		t.Errorf("Protocol = %+v", loaded.Protocol)
	}
	if loaded.Feed.Advertise {
		t.Error("Feed.Advertise should round trip as false")
	}
}

func TestLoadFileMissing(t *testing.T) {
	reg, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if reg.Version != CurrentVersion {
		t.Errorf("Version = %d", reg.Version)
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr bool
	}{
		{name: "minimal", yaml: "version: 1\n"},
		{name: "duration string", yaml: "version: 1\nprotocol:\n  idle_timeout: 1m30s\n"},
		{name: "wrong version", yaml: "version: 2\n", wantErr: true},
		{name: "missing version", yaml: "devices: {}\n", wantErr: true},
		{name: "invalid yaml", yaml: "version: [", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg, err := Parse([]byte(tt.yaml))
			if (err != nil) != tt.wantErr {
				t.Fatalf("Parse() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if reg.Store == nil || reg.Protocol == nil || reg.Feed == nil || reg.Devices == nil {
				t.Error("Parse() should fill missing sections")
			}
		})
	}

	reg, _ := Parse([]byte("version: 1\nprotocol:\n  idle_timeout: 1m30s\n"))
	if reg.Protocol.IdleTimeout != 90*time.Second {
		t.Errorf("IdleTimeout = %v, want 1m30s", reg.Protocol.IdleTimeout)
	}
}

func TestCreateDefaultConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	SetConfigPath(path)
	defer SetConfigPath("")

	got, err := CreateDefaultConfig()
	if err != nil {
		t.Fatalf("CreateDefaultConfig() error = %v", err)
	}
	if got != path {
		t.Errorf("CreateDefaultConfig() path = %q, want %q", got, path)
	}
	if _, err := CreateDefaultConfig(); err == nil {
		t.Error("CreateDefaultConfig() should refuse to overwrite")
	}

	reg, err := LoadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if reg.GetDevice("kitchen") == nil {
		t.Error("default config should contain the example device")
	}
}
