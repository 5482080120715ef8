package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"gopkg.in/yaml.v3"
)

const (
	appName    = "glucometer"
	configFile = "config.yaml"

	// PathEnvVar overrides the config file location
	PathEnvVar = "GLUCOMETER_CONFIG"
)

var (
	// Global registry instance (loaded lazily)
	globalRegistry     *Registry
	globalRegistryOnce sync.Once
	globalRegistryErr  error

	// Set by SetConfigPath, takes precedence over the environment
	pathOverride string

	// Mutex for thread-safe file operations
	fileMutex sync.Mutex
)

// GetConfigDir returns the OS-appropriate configuration directory:
//   - Linux: $XDG_CONFIG_HOME/glucometer or $HOME/.config/glucometer
//   - macOS: $HOME/.config/glucometer
//   - Windows: %LOCALAPPDATA%\glucometer
func GetConfigDir() (string, error) {
	switch runtime.GOOS {
	case "windows":
		if localAppData := os.Getenv("LOCALAPPDATA"); localAppData != "" {
			return filepath.Join(localAppData, appName), nil
		}
		userProfile := os.Getenv("USERPROFILE")
		if userProfile == "" {
			return "", fmt.Errorf("cannot determine user profile directory (LOCALAPPDATA and USERPROFILE not set)")
		}
		return filepath.Join(userProfile, "AppData", "Local", appName), nil

	case "darwin":
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("cannot determine home directory: %w", err)
		}
		return filepath.Join(homeDir, ".config", appName), nil

	default:
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, appName), nil
		}
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("cannot determine home directory: %w", err)
		}
		return filepath.Join(homeDir, ".config", appName), nil
	}
}

// SetConfigPath makes every later load and save use path.
// Must be called before the first LoadRegistry.
func SetConfigPath(path string) {
	fileMutex.Lock()
	defer fileMutex.Unlock()
	pathOverride = path
}

// GetConfigPath returns the full path to the configuration file
func GetConfigPath() (string, error) {
	if pathOverride != "" {
		return pathOverride, nil
	}
	if env := os.Getenv(PathEnvVar); env != "" {
		return env, nil
	}
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, configFile), nil
}

// LoadRegistry loads the configuration registry from disk.
// If the file doesn't exist, returns a new default registry.
// Thread-safe - multiple calls will return the same instance.
func LoadRegistry() (*Registry, error) {
	globalRegistryOnce.Do(func() {
		var path string
		path, globalRegistryErr = GetConfigPath()
		if globalRegistryErr != nil {
			globalRegistryErr = fmt.Errorf("failed to get config path: %w", globalRegistryErr)
			return
		}
		globalRegistry, globalRegistryErr = LoadFile(path)
	})
	return globalRegistry, globalRegistryErr
}

// LoadFile reads a registry from path. A missing file yields defaults.
func LoadFile(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return NewRegistry(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes and version-checks a registry document
func Parse(data []byte) (*Registry, error) {
	var registry Registry
	if err := yaml.Unmarshal(data, &registry); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if registry.Version != CurrentVersion {
		return nil, fmt.Errorf("unsupported config version: %d (expected %d)", registry.Version, CurrentVersion)
	}
	registry.fillDefaults()
	return &registry, nil
}

// Save writes the registry to the configured path
func (r *Registry) Save() error {
	configPath, err := GetConfigPath()
	if err != nil {
		return fmt.Errorf("failed to get config path: %w", err)
	}
	return r.SaveFile(configPath)
}

// SaveFile writes the registry to path.
// Performs an atomic write to prevent corruption on crash.
func (r *Registry) SaveFile(path string) error {
	fileMutex.Lock()
	defer fileMutex.Unlock()

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte(`# glucometer configuration
#
# devices:  meters to read, keyed by name (port, dialect, baud_rate)
# store:    memory or postgres (dsn holds the connection string)
# protocol: strict_entries, fail_on_checksum_mismatch, idle_timeout
# feed:     WebSocket listen address and mDNS advertisement
#
# Location: ` + path + `

`)
	data = append(header, data...)

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write temporary config file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to save config file: %w", err)
	}
	return nil
}

// ReloadRegistry reloads the registry from disk, discarding any in-memory changes.
func ReloadRegistry() (*Registry, error) {
	globalRegistryOnce = sync.Once{}
	return LoadRegistry()
}

// CreateDefaultConfig writes a starter configuration with one example meter
func CreateDefaultConfig() (string, error) {
	path, err := GetConfigPath()
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(path); err == nil {
		return path, fmt.Errorf("config file already exists: %s", path)
	}

	registry := NewRegistry()
	registry.SetDevice("kitchen", "/dev/ttyUSB0", "abfr", 0)
	return path, registry.SaveFile(path)
}
