package tuner

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/grandcat/zeroconf"
)

// DiscoveredHost is a networked tuner advertised over mDNS.
type DiscoveredHost struct {
	Instance  string // advertised name, e.g. "rtl_tcp on attic-roof"
	Hostname  string // DNS hostname, e.g. "attic-roof.local."
	Addresses []net.IP
	Port      int
	TXT       []string
}

// DefaultServiceType is the mDNS service type advertised by rtl_tcp-compatible
// network SDR relays.
const DefaultServiceType = "_rtl_tcp._tcp"

// DiscoverTuners performs a blocking mDNS browse for serviceType (defaulting
// to DefaultServiceType when empty) and returns cleaned, deduplicated host
// entries within timeout.
func DiscoverTuners(timeout time.Duration, serviceType string) ([]DiscoveredHost, error) {
	if serviceType == "" {
		serviceType = DefaultServiceType
	}
	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("mdns resolver: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	entries := make(chan *zeroconf.ServiceEntry)
	resultMap := make(map[string]DiscoveredHost)

	done := make(chan struct{})
	go func() {
		for {
			select {
			case e, ok := <-entries:
				if !ok {
					close(done)
					return
				}
				if e == nil {
					continue
				}
				addrs := make([]net.IP, 0, len(e.AddrIPv4)+len(e.AddrIPv6))
				addrs = append(addrs, e.AddrIPv4...)
				addrs = append(addrs, e.AddrIPv6...)
				key := fmt.Sprintf("%s|%d", e.HostName, e.Port)
				resultMap[key] = DiscoveredHost{
					Instance:  cleanInstance(e.Instance),
					Hostname:  e.HostName,
					Addresses: addrs,
					Port:      e.Port,
					TXT:       append([]string{}, e.Text...),
				}
			case <-ctx.Done():
				close(done)
				return
			}
		}
	}()

	if err := resolver.Browse(ctx, serviceType, "local.", entries); err != nil {
		return nil, fmt.Errorf("mdns browse: %w", err)
	}
	<-done

	out := make([]DiscoveredHost, 0, len(resultMap))
	for _, h := range resultMap {
		out = append(out, h)
	}
	return out, nil
}

func cleanInstance(s string) string {
	return strings.ReplaceAll(s, `\ `, " ")
}

// DialDiscovered opens an RTLTCPTuner for the first address of host.
func DialDiscovered(host DiscoveredHost) (*RTLTCPTuner, error) {
	if len(host.Addresses) == 0 {
		return nil, fmt.Errorf("host %s has no resolved addresses", host.Hostname)
	}
	addr := fmt.Sprintf("%s:%d", host.Addresses[0], host.Port)
	return NewRTLTCPTuner(addr), nil
}
