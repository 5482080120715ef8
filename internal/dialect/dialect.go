// Package dialect holds the catalog of FreeStyle protocol variants.
//
// A dialect is the device-specific part of the protocol: the memory dump
// command, the serial line speed, and the sorted device and firmware tables.
// Everything else (grammar, checksum, state machine) is shared. The catalog is
// embedded from catalog/dialects.yaml and loaded once.
package dialect

import (
	_ "embed"
	"fmt"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/muurk/glucometer/internal/protocol"
)

//go:embed catalog/dialects.yaml
var catalogYAML []byte

// Dialect describes one device family's variant of the line protocol
type Dialect struct {
	// Name is the dialect identifier and the device label written to storage
	Name string

	// Description is a human-readable summary
	Description string

	// Command is written once to request the memory dump
	Command string

	// BaudRate of the serial link
	BaudRate int

	// MaxEntries is the largest batch the device may announce
	MaxEntries int

	// Devices maps serial-prefix lines to device identities
	Devices *protocol.Table[protocol.DeviceIdentity]

	// Firmware maps software revision lines to firmware revisions
	Firmware *protocol.Table[protocol.FirmwareRevision]
}

// Catalog holds all known dialects
type Catalog struct {
	dialects []*Dialect
	index    map[string]*Dialect
}

// YAML shapes
type catalogFile struct {
	Dialects []dialectDoc `yaml:"dialects"`
}

type dialectDoc struct {
	Name        string     `yaml:"name"`
	Description string     `yaml:"description"`
	Command     string     `yaml:"command"`
	BaudRate    int        `yaml:"baud_rate"`
	MaxEntries  int        `yaml:"max_entries"`
	Devices     []tableDoc `yaml:"devices"`
	Firmware    []tableDoc `yaml:"firmware"`
}

type tableDoc struct {
	Key string `yaml:"key"`
	Tag string `yaml:"tag"`
}

var (
	defaultCatalog     *Catalog
	defaultCatalogOnce sync.Once
	defaultCatalogErr  error
)

// LoadCatalog returns the embedded catalog.
// Safe to call multiple times; the catalog is parsed only once.
func LoadCatalog() (*Catalog, error) {
	defaultCatalogOnce.Do(func() {
		defaultCatalog, defaultCatalogErr = ParseCatalog(catalogYAML)
	})
	return defaultCatalog, defaultCatalogErr
}

// ParseCatalog decodes and validates a catalog document
func ParseCatalog(data []byte) (*Catalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse dialect catalog: %w", err)
	}
	if len(file.Dialects) == 0 {
		return nil, fmt.Errorf("dialect catalog is empty")
	}

	c := &Catalog{index: make(map[string]*Dialect)}
	for _, doc := range file.Dialects {
		d, err := doc.build()
		if err != nil {
			return nil, fmt.Errorf("dialect %q: %w", doc.Name, err)
		}
		if _, dup := c.index[d.Name]; dup {
			return nil, fmt.Errorf("dialect %q defined twice", d.Name)
		}
		c.dialects = append(c.dialects, d)
		c.index[d.Name] = d
	}
	return c, nil
}

func (s dialectDoc) build() (*Dialect, error) {
	if s.Name == "" {
		return nil, fmt.Errorf("missing name")
	}
	if s.Command == "" {
		return nil, fmt.Errorf("missing command")
	}
	if s.MaxEntries < 1 || s.MaxEntries > protocol.MaxEntries {
		return nil, fmt.Errorf("max_entries must be 1-%d, got %d", protocol.MaxEntries, s.MaxEntries)
	}
	if s.BaudRate <= 0 {
		return nil, fmt.Errorf("invalid baud_rate %d", s.BaudRate)
	}

	devEntries := make([]protocol.TableEntry[protocol.DeviceIdentity], 0, len(s.Devices))
	for _, e := range s.Devices {
		id, err := protocol.ParseDeviceIdentity(e.Tag)
		if err != nil {
			return nil, err
		}
		devEntries = append(devEntries, protocol.TableEntry[protocol.DeviceIdentity]{Key: e.Key, Value: id})
	}
	devices, err := protocol.NewTable(devEntries...)
	if err != nil {
		return nil, fmt.Errorf("devices: %w", err)
	}

	fwEntries := make([]protocol.TableEntry[protocol.FirmwareRevision], 0, len(s.Firmware))
	for _, e := range s.Firmware {
		rev, err := protocol.ParseFirmwareRevision(e.Tag)
		if err != nil {
			return nil, err
		}
		fwEntries = append(fwEntries, protocol.TableEntry[protocol.FirmwareRevision]{Key: e.Key, Value: rev})
	}
	firmware, err := protocol.NewTable(fwEntries...)
	if err != nil {
		return nil, fmt.Errorf("firmware: %w", err)
	}

	return &Dialect{
		Name:        s.Name,
		Description: s.Description,
		Command:     s.Command,
		BaudRate:    s.BaudRate,
		MaxEntries:  s.MaxEntries,
		Devices:     devices,
		Firmware:    firmware,
	}, nil
}

// Get returns the dialect with the given name
func (c *Catalog) Get(name string) (*Dialect, bool) {
	d, ok := c.index[name]
	return d, ok
}

// List returns all dialects in catalog order
func (c *Catalog) List() []*Dialect {
	result := make([]*Dialect, len(c.dialects))
	copy(result, c.dialects)
	return result
}

// Names returns the dialect names sorted alphabetically
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.dialects))
	for _, d := range c.dialects {
		names = append(names, d.Name)
	}
	sort.Strings(names)
	return names
}
