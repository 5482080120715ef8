package discovery

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"
)

// Feed is a glucometer live feed found on the network
type Feed struct {
	// Instance is the advertised service instance name
	Instance string

	// Hostname is the mDNS hostname of the reader
	Hostname string

	// IP is the IPv4 address, or IPv6 when no IPv4 was advertised
	IP string

	// Port is the feed's TCP port
	Port int

	// Metadata holds the TXT records ("path", "version", "dialects")
	Metadata map[string]string

	// DiscoveredAt is when the feed was discovered
	DiscoveredAt time.Time
}

// String returns a human-readable string representation of the feed
func (f *Feed) String() string {
	return fmt.Sprintf("glucometer feed %q (%s) at %s", f.Instance, f.Hostname, net.JoinHostPort(f.IP, strconv.Itoa(f.Port)))
}

// Path returns the WebSocket path, "/feed" when not advertised
func (f *Feed) Path() string {
	p := f.GetMetadata("path")
	if p == "" {
		return DefaultPath
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return p
}

// URL returns the WebSocket URL of the feed
func (f *Feed) URL() string {
	return "ws://" + net.JoinHostPort(f.IP, strconv.Itoa(f.Port)) + f.Path()
}

// Dialects returns the dialects the reader was configured with
func (f *Feed) Dialects() []string {
	v := f.GetMetadata("dialects")
	if v == "" {
		return nil
	}
	return strings.Split(v, ",")
}

// GetMetadata retrieves a metadata value by key, or returns empty string if not found
func (f *Feed) GetMetadata(key string) string {
	if f.Metadata == nil {
		return ""
	}
	return f.Metadata[key]
}
