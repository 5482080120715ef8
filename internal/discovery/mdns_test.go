package discovery

import (
	"net"
	"testing"
	"time"

	"github.com/grandcat/zeroconf"
)

func entry(instance, host string, port int, v4, v6 []net.IP, txt ...string) *zeroconf.ServiceEntry {
	e := zeroconf.NewServiceEntry(instance, ServiceType, ServiceDomain)
	e.HostName = host
	e.Port = port
	e.AddrIPv4 = v4
	e.AddrIPv6 = v6
	e.Text = txt
	return e
}

func TestParseServiceEntry(t *testing.T) {
	tests := []struct {
		name     string
		entry    *zeroconf.ServiceEntry
		wantNil  bool
		wantIP   string
		wantPort int
	}{
		{
			name:     "IPv4 feed",
			entry:    entry("kitchen", "pi.local.", 8470, []net.IP{net.ParseIP("192.168.4.16")}, nil, "path=/feed"),
			wantIP:   "192.168.4.16",
			wantPort: 8470,
		},
		{
			name:     "IPv6 only feed",
			entry:    entry("kitchen", "pi.local.", 8470, nil, []net.IP{net.ParseIP("fe80::1")}),
			wantIP:   "fe80::1",
			wantPort: 8470,
		},
		{
			name:     "prefers IPv4",
			entry:    entry("kitchen", "pi.local.", 9000, []net.IP{net.ParseIP("10.0.0.5")}, []net.IP{net.ParseIP("fe80::2")}),
			wantIP:   "10.0.0.5",
			wantPort: 9000,
		},
		{
			name:    "no address",
			entry:   entry("kitchen", "pi.local.", 8470, nil, nil),
			wantNil: true,
		},
		{
			name:    "no port",
			entry:   entry("kitchen", "pi.local.", 0, []net.IP{net.ParseIP("10.0.0.5")}, nil),
			wantNil: true,
		},
		{
			name:    "no instance",
			entry:   entry("", "pi.local.", 8470, []net.IP{net.ParseIP("10.0.0.5")}, nil),
			wantNil: true,
		},
		{
			name:    "nil entry",
			entry:   nil,
			wantNil: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			feed := parseServiceEntry(tt.entry)

			if tt.wantNil {
				if feed != nil {
					t.Errorf("parseServiceEntry() = %v, want nil", feed)
				}
				return
			}
			if feed == nil {
				t.Fatal("parseServiceEntry() = nil, want feed")
			}
			if feed.IP != tt.wantIP {
				t.Errorf("feed.IP = %v, want %v", feed.IP, tt.wantIP)
			}
			if feed.Port != tt.wantPort {
				t.Errorf("feed.Port = %v, want %v", feed.Port, tt.wantPort)
			}
			if feed.Instance != tt.entry.Instance {
				t.Errorf("feed.Instance = %v, want %v", feed.Instance, tt.entry.Instance)
			}
			if time.Since(feed.DiscoveredAt) > time.Second {
				t.Errorf("feed.DiscoveredAt is not recent: %v", feed.DiscoveredAt)
			}
		})
	}
}

func TestParseServiceEntryMetadata(t *testing.T) {
	txt := TXTRecords("/feed", "1.2.0", []string{"abfr", "abbott"})
	feed := parseServiceEntry(entry("kitchen", "pi.local.", 8470, []net.IP{net.ParseIP("192.168.4.16")}, nil, append(txt, "flag")...))
	if feed == nil {
		t.Fatal("parseServiceEntry() = nil, want feed")
	}

	expected := map[string]string{
		"path":     "/feed",
		"version":  "1.2.0",
		"dialects": "abfr,abbott",
		"flag":     "",
	}
	if len(feed.Metadata) != len(expected) {
		t.Errorf("feed.Metadata has %d entries, want %d", len(feed.Metadata), len(expected))
	}
	for key, want := range expected {
		if got, ok := feed.Metadata[key]; !ok || got != want {
			t.Errorf("feed.Metadata[%q] = %q, %v; want %q", key, got, ok, want)
		}
	}

	dialects := feed.Dialects()
	if len(dialects) != 2 || dialects[0] != "abfr" || dialects[1] != "abbott" {
		t.Errorf("Dialects() = %v", dialects)
	}
}

func TestNewScanner(t *testing.T) {
	scanner := NewScanner()
	if scanner.Timeout != DefaultScanTimeout {
		t.Errorf("scanner.Timeout = %v, want %v", scanner.Timeout, DefaultScanTimeout)
	}
}

func TestTXTRecordsWithoutDialects(t *testing.T) {
	txt := TXTRecords("/feed", "dev", nil)
	if len(txt) != 2 {
		t.Errorf("TXTRecords() = %v", txt)
	}
}
