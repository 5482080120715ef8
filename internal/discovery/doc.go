// Package discovery advertises and finds glucometer live feeds on the LAN.
//
// A reader running with the feed enabled registers a "_glucometer._tcp" mDNS
// service whose TXT records carry the WebSocket path and the configured
// dialects. Other machines browse for that service type to locate feeds
// without knowing addresses in advance:
//
//	feeds, err := discovery.NewScanner().Scan(ctx)
//	for _, f := range feeds {
//	    fmt.Println(f.Instance, f.URL())
//	}
//
// Requires multicast on the local segment (UDP 5353).
package discovery
