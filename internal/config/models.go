package config

import (
	"fmt"
	"sort"
	"time"
)

// CurrentVersion is the only config file version understood
const CurrentVersion = 1

// Registry represents the entire configuration file
type Registry struct {
	Version  int                `yaml:"version"`
	Devices  map[string]*Device `yaml:"devices,omitempty"` // Keyed by user-chosen name
	Store    *StoreConfig       `yaml:"store,omitempty"`
	Protocol *ProtocolConfig    `yaml:"protocol,omitempty"`
	Feed     *FeedConfig        `yaml:"feed,omitempty"`
}

// Device is one meter attached to a serial port
type Device struct {
	Port     string `yaml:"port"`                // e.g. /dev/ttyUSB0
	Dialect  string `yaml:"dialect"`             // abfr or abbott
	BaudRate int    `yaml:"baud_rate,omitempty"` // 0 means the dialect default

	LastRead     time.Time `yaml:"last_read,omitempty"`
	LastInserted int       `yaml:"last_inserted,omitempty"`
}

// StoreConfig selects where committed measurements go
type StoreConfig struct {
	Driver string `yaml:"driver"`        // memory or postgres
	DSN    string `yaml:"dsn,omitempty"` // postgres connection string
}

// ProtocolConfig holds the session policy switches
type ProtocolConfig struct {
	StrictEntries          bool          `yaml:"strict_entries"`
	FailOnChecksumMismatch bool          `yaml:"fail_on_checksum_mismatch"`
	IdleTimeout            time.Duration `yaml:"idle_timeout,omitempty"` // 0 disables
}

// FeedConfig configures the live WebSocket feed
type FeedConfig struct {
	Listen    string `yaml:"listen"`
	Advertise bool   `yaml:"advertise"`
	Name      string `yaml:"name,omitempty"` // mDNS instance name, hostname when empty

	// Browser origins allowed to subscribe besides the feed's own host; "*" allows any
	AllowedOrigins []string `yaml:"allowed_origins,omitempty"`
}

func defaultStore() *StoreConfig {
	return &StoreConfig{Driver: "memory"}
}

func defaultProtocol() *ProtocolConfig {
	return &ProtocolConfig{}
}

func defaultFeed() *FeedConfig {
	return &FeedConfig{Listen: ":8470", Advertise: true}
}

// NewRegistry creates a new Registry with default values.
func NewRegistry() *Registry {
	return &Registry{
		Version:  CurrentVersion,
		Devices:  make(map[string]*Device),
		Store:    defaultStore(),
		Protocol: defaultProtocol(),
		Feed:     defaultFeed(),
	}
}

// fillDefaults initializes sections missing from a loaded file
func (r *Registry) fillDefaults() {
	if r.Devices == nil {
		r.Devices = make(map[string]*Device)
	}
	if r.Store == nil {
		r.Store = defaultStore()
	}
	if r.Protocol == nil {
		r.Protocol = defaultProtocol()
	}
	if r.Feed == nil {
		r.Feed = defaultFeed()
	}
}

// GetDevice retrieves a device by name.
// Returns nil if the device doesn't exist in the registry.
func (r *Registry) GetDevice(name string) *Device {
	return r.Devices[name]
}

// EnsureDevice returns the named device, creating an empty entry if needed
func (r *Registry) EnsureDevice(name string) *Device {
	if r.Devices == nil {
		r.Devices = make(map[string]*Device)
	}
	if device, exists := r.Devices[name]; exists {
		return device
	}
	device := &Device{}
	r.Devices[name] = device
	return device
}

// SetDevice adds or updates a device
func (r *Registry) SetDevice(name, port, dialect string, baud int) *Device {
	device := r.EnsureDevice(name)
	device.Port = port
	device.Dialect = dialect
	device.BaudRate = baud
	return device
}

// RemoveDevice deletes a device. Returns false if it did not exist.
func (r *Registry) RemoveDevice(name string) bool {
	if _, ok := r.Devices[name]; !ok {
		return false
	}
	delete(r.Devices, name)
	return true
}

// RecordRead stamps a device with the outcome of its last successful read
func (r *Registry) RecordRead(name string, inserted int) {
	device := r.EnsureDevice(name)
	device.LastRead = time.Now()
	device.LastInserted = inserted
}

// DeviceNames returns the device names sorted alphabetically
func (r *Registry) DeviceNames() []string {
	names := make([]string, 0, len(r.Devices))
	for name := range r.Devices {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Validate checks devices against the known dialect names and the store
// settings for consistency
func (r *Registry) Validate(dialects []string) error {
	known := make(map[string]bool, len(dialects))
	for _, d := range dialects {
		known[d] = true
	}

	for _, name := range r.DeviceNames() {
		d := r.Devices[name]
		if d.Port == "" {
			return fmt.Errorf("device %q: port is required", name)
		}
		if !known[d.Dialect] {
			return fmt.Errorf("device %q: unknown dialect %q", name, d.Dialect)
		}
		if d.BaudRate < 0 {
			return fmt.Errorf("device %q: invalid baud rate %d", name, d.BaudRate)
		}
	}

	switch r.Store.Driver {
	case "memory":
	case "postgres":
		if r.Store.DSN == "" {
			return fmt.Errorf("store: postgres driver requires a dsn")
		}
	default:
		return fmt.Errorf("store: unknown driver %q", r.Store.Driver)
	}

	if r.Protocol.IdleTimeout < 0 {
		return fmt.Errorf("protocol: idle_timeout must not be negative")
	}
	return nil
}
