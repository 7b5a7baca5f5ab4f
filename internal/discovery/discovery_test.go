package discovery

import (
	"context"
	"net"
	"testing"

	"github.com/grandcat/zeroconf"
)

func entry(instance, host string, port int, ips ...string) *zeroconf.ServiceEntry {
	e := zeroconf.NewServiceEntry(instance, Service, Domain)
	e.HostName = host
	e.Port = port
	for _, ip := range ips {
		e.AddrIPv4 = append(e.AddrIPv4, net.ParseIP(ip))
	}
	return e
}

func TestCollectMergesAnswers(t *testing.T) {
	entries := make(chan *zeroconf.ServiceEntry, 8)
	entries <- entry("living-room", "htpc.local.", 8765, "192.168.1.20")
	entries <- entry("desk", "desk.local.", 9000)
	entries <- entry("living-room", "htpc.local.", 8765, "192.168.1.20", "10.0.0.5")
	entries <- nil
	close(entries)

	got := collect(context.Background(), entries)
	if len(got) != 2 {
		t.Fatalf("Expected 2 receivers, got %+v", got)
	}
	if got[0].Instance != "desk" || got[1].Instance != "living-room" {
		t.Errorf("Expected receivers sorted by instance, got %+v", got)
	}
	if len(got[1].IPs) != 2 {
		t.Errorf("Expected merged addresses, got %v", got[1].IPs)
	}
}

func TestReceiverTarget(t *testing.T) {
	tests := []struct {
		r    Receiver
		want string
	}{
		{Receiver{Host: "htpc.local.", Port: 8765, IPs: []string{"192.168.1.20"}}, "ws://192.168.1.20:8765"},
		{Receiver{Host: "desk.local.", Port: 9000}, "ws://desk.local.:9000"},
	}
	for _, tt := range tests {
		if got := tt.r.Target(); got != tt.want {
			t.Errorf("Target() = %q, want %q", got, tt.want)
		}
	}
}

func TestLocalIPs(t *testing.T) {
	ips, err := LocalIPs()
	if err != nil {
		t.Skipf("No interfaces: %v", err)
	}
	for _, ip := range ips {
		if parsed := net.ParseIP(ip); parsed == nil || parsed.To4() == nil || parsed.IsLoopback() {
			t.Errorf("Unexpected address %q", ip)
		}
	}
}
