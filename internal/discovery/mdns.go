package discovery

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/grandcat/zeroconf"
	"go.uber.org/zap"

	"github.com/muurk/glucometer/internal/logging"
)

const (
	// ServiceType is the mDNS service type of a glucometer feed
	ServiceType = "_glucometer._tcp"

	// ServiceDomain is the mDNS domain (typically "local.")
	ServiceDomain = "local."

	// DefaultScanTimeout is the default timeout for feed discovery
	DefaultScanTimeout = 5 * time.Second

	// DefaultPath is the WebSocket path of the feed
	DefaultPath = "/feed"
)

// Advertiser keeps a feed registered until Shutdown
type Advertiser struct {
	server *zeroconf.Server
}

// Advertise registers a feed on every multicast interface.
// txt entries are "key=value" strings.
func Advertise(instance string, port int, txt []string) (*Advertiser, error) {
	server, err := zeroconf.Register(instance, ServiceType, ServiceDomain, port, txt, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to register mDNS service: %w", err)
	}
	logging.Info("Advertising feed",
		zap.String("instance", instance),
		zap.String("service", ServiceType),
		zap.Int("port", port),
	)
	return &Advertiser{server: server}, nil
}

// Shutdown withdraws the advertisement
func (a *Advertiser) Shutdown() {
	if a != nil && a.server != nil {
		a.server.Shutdown()
	}
}

// Scanner handles mDNS feed discovery
type Scanner struct {
	// Timeout is the maximum time to wait for feed discovery
	Timeout time.Duration
}

// NewScanner creates a new mDNS scanner with default settings
func NewScanner() *Scanner {
	return &Scanner{
		Timeout: DefaultScanTimeout,
	}
}

// Scan returns every feed that answered within the timeout
func (s *Scanner) Scan(ctx context.Context) ([]*Feed, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	var (
		mu    sync.Mutex
		feeds []*Feed
		seen  = make(map[string]bool)
	)

	entries := make(chan *zeroconf.ServiceEntry)
	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create mDNS resolver: %w", err)
	}

	go func() {
		for entry := range entries {
			feed := parseServiceEntry(entry)
			if feed == nil {
				continue
			}
			mu.Lock()
			if !seen[feed.Instance] {
				seen[feed.Instance] = true
				feeds = append(feeds, feed)
			}
			mu.Unlock()
		}
	}()

	if err := resolver.Browse(ctx, ServiceType, ServiceDomain, entries); err != nil {
		return nil, fmt.Errorf("failed to browse for mDNS services: %w", err)
	}

	<-ctx.Done()

	mu.Lock()
	defer mu.Unlock()
	out := make([]*Feed, len(feeds))
	copy(out, feeds)
	return out, nil
}

// WaitForFeed returns the first feed whose instance name matches, or any
// feed when instance is empty
func (s *Scanner) WaitForFeed(ctx context.Context, instance string) (*Feed, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	entries := make(chan *zeroconf.ServiceEntry)
	found := make(chan *Feed, 1)

	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create mDNS resolver: %w", err)
	}

	go func() {
		for entry := range entries {
			feed := parseServiceEntry(entry)
			if feed != nil && (instance == "" || feed.Instance == instance) {
				select {
				case found <- feed:
				default:
				}
				cancel()
				return
			}
		}
	}()

	if err := resolver.Browse(ctx, ServiceType, ServiceDomain, entries); err != nil {
		return nil, fmt.Errorf("failed to browse for mDNS services: %w", err)
	}

	select {
	case feed := <-found:
		return feed, nil
	case <-ctx.Done():
		select {
		case feed := <-found:
			return feed, nil
		default:
		}
		if instance == "" {
			return nil, fmt.Errorf("no glucometer feed found within %s", s.Timeout)
		}
		return nil, fmt.Errorf("feed %q not found within %s", instance, s.Timeout)
	}
}

// parseServiceEntry converts a zeroconf service entry to a Feed.
// Returns nil for entries without an instance name, address or port.
func parseServiceEntry(entry *zeroconf.ServiceEntry) *Feed {
	if entry == nil || entry.Instance == "" || entry.Port == 0 {
		return nil
	}

	// Prefer IPv4
	var ip string
	if len(entry.AddrIPv4) > 0 {
		ip = entry.AddrIPv4[0].String()
	} else if len(entry.AddrIPv6) > 0 {
		ip = entry.AddrIPv6[0].String()
	}
	if ip == "" {
		return nil
	}

	metadata := make(map[string]string)
	for _, txt := range entry.Text {
		key, value, _ := strings.Cut(txt, "=")
		metadata[key] = value
	}

	return &Feed{
		Instance:     entry.Instance,
		Hostname:     entry.HostName,
		IP:           ip,
		Port:         entry.Port,
		Metadata:     metadata,
		DiscoveredAt: time.Now(),
	}
}

// TXTRecords builds the TXT entries a feed advertises
func TXTRecords(path, version string, dialects []string) []string {
	txt := []string{"path=" + path, "version=" + version}
	if len(dialects) > 0 {
		txt = append(txt, "dialects="+strings.Join(dialects, ","))
	}
	return txt
}
