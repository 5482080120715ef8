// Package config manages the glucometer configuration file.
//
// The file is YAML and lists the meters to read, where committed
// measurements are stored, the session policy, and the live feed settings:
//
//	version: 1
//	devices:
//	  kitchen:
//	    port: /dev/ttyUSB0
//	    dialect: abfr
//	store:
//	  driver: postgres
//	  dsn: postgres://glucometer@localhost/glucometer
//	protocol:
//	  strict_entries: false
//	  fail_on_checksum_mismatch: false
//	  idle_timeout: 30s
//	feed:
//	  listen: ":8470"
//	  advertise: true
//
// # Configuration File Location
//
//   - $GLUCOMETER_CONFIG, when set
//   - Linux: $XDG_CONFIG_HOME/glucometer/config.yaml or $HOME/.config/glucometer/config.yaml
//   - macOS: $HOME/.config/glucometer/config.yaml
//   - Windows: %LOCALAPPDATA%\glucometer\config.yaml
//
// A missing file is not an error; defaults are used. Saves are atomic
// (temp file and rename). The global registry is loaded once with sync.Once.
package config
