// Package discovery finds touchpad receivers on the local network using
// mDNS service records.
package discovery

import (
	"context"
	"fmt"
	"net"
	"sort"
	"strconv"
	"time"

	"github.com/grandcat/zeroconf"
)

const (
	// Service is the DNS-SD service type receivers register under
	Service = "_touchpad._tcp"
	Domain  = "local."

	// DefaultBrowseTimeout bounds a Browse call without a deadline
	DefaultBrowseTimeout = 3 * time.Second
)

// Receiver is a receiver found on the network
type Receiver struct {
	Instance string
	Host     string
	Port     int
	IPs      []string
	Text     []string
}

// Target returns a target string usable as the client's target setting.
// An IPv4 address is preferred over the host name.
func (r Receiver) Target() string {
	host := r.Host
	if len(r.IPs) > 0 {
		host = r.IPs[0]
	}
	return "ws://" + net.JoinHostPort(host, strconv.Itoa(r.Port))
}

func (r Receiver) String() string {
	return fmt.Sprintf("%s (%s)", r.Instance, r.Target())
}

// Advertiser publishes this receiver until Shutdown
type Advertiser struct {
	server *zeroconf.Server
}

// Advertise registers instance on port. txt carries optional key=value
// records such as the service version.
func Advertise(instance string, port int, txt []string) (*Advertiser, error) {
	server, err := zeroconf.Register(instance, Service, Domain, port, txt, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to advertise %s: %w", instance, err)
	}
	return &Advertiser{server: server}, nil
}

// Shutdown withdraws the advertisement
func (a *Advertiser) Shutdown() {
	if a != nil && a.server != nil {
		a.server.Shutdown()
	}
}

// Browse lists receivers that answer before ctx is done. A ctx without a
// deadline is bounded by DefaultBrowseTimeout.
func Browse(ctx context.Context) ([]Receiver, error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, DefaultBrowseTimeout)
		defer cancel()
	}

	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create resolver: %w", err)
	}

	entries := make(chan *zeroconf.ServiceEntry)
	done := make(chan []Receiver, 1)
	go func() {
		done <- collect(ctx, entries)
	}()

	if err := resolver.Browse(ctx, Service, Domain, entries); err != nil {
		return nil, fmt.Errorf("failed to browse: %w", err)
	}

	return <-done, nil
}

// collect drains entries until the resolver closes the channel or ctx is
// done. Duplicate answers for one instance are merged.
func collect(ctx context.Context, entries <-chan *zeroconf.ServiceEntry) []Receiver {
	byInstance := make(map[string]*Receiver)
loop:
	for {
		select {
		case e, ok := <-entries:
			if !ok {
				break loop
			}
			if e != nil {
				merge(byInstance, e)
			}
		case <-ctx.Done():
			break loop
		}
	}

	receivers := make([]Receiver, 0, len(byInstance))
	for _, r := range byInstance {
		receivers = append(receivers, *r)
	}
	sort.Slice(receivers, func(i, j int) bool {
		return receivers[i].Instance < receivers[j].Instance
	})
	return receivers
}

func merge(byInstance map[string]*Receiver, e *zeroconf.ServiceEntry) {
	r, ok := byInstance[e.Instance]
	if !ok {
		r = &Receiver{Instance: e.Instance}
		byInstance[e.Instance] = r
	}
	r.Host = e.HostName
	r.Port = e.Port
	r.Text = e.Text
	for _, ip := range e.AddrIPv4 {
		r.IPs = appendUnique(r.IPs, ip.String())
	}
}

func appendUnique(list []string, s string) []string {
	for _, v := range list {
		if v == s {
			return list
		}
	}
	return append(list, s)
}

// LocalIPs returns the IPv4 addresses of the interfaces that are up
func LocalIPs() ([]string, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}
	var ips []string
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			var ip net.IP
			switch v := addr.(type) {
			case *net.IPNet:
				ip = v.IP
			case *net.IPAddr:
				ip = v.IP
			}
			if ip == nil || ip.IsLoopback() {
				continue
			}
			if ip = ip.To4(); ip != nil {
				ips = append(ips, ip.String())
			}
		}
	}
	return ips, nil
}
