// Package firewall opens the receiver port in the host firewall where the
// platform needs it. Only Windows blocks inbound connections by default.
package firewall

import (
	"fmt"
	"strconv"
	"strings"
)

// DefaultRuleName names the inbound rule created for the receiver
const DefaultRuleName = "Touchpad Receiver"

// ruleCommand is the PowerShell script that replaces the rule with one
// allowing inbound TCP on port
func ruleCommand(name string, port int) string {
	return fmt.Sprintf(
		"Remove-NetFirewallRule -DisplayName '%s' -ErrorAction SilentlyContinue; "+
			"New-NetFirewallRule -DisplayName '%s' -Direction Inbound -LocalPort %d -Protocol TCP -Action Allow -Profile Any",
		name, name, port,
	)
}

// ruleMatches reports whether netsh output shows an allow rule named name
// for port
func ruleMatches(output, name string, port int) bool {
	if !strings.Contains(output, name) || !strings.Contains(output, "Allow") {
		return false
	}
	for _, line := range strings.Split(output, "\n") {
		key, value, ok := strings.Cut(line, ":")
		if !ok || strings.TrimSpace(key) != "LocalPort" {
			continue
		}
		for _, p := range strings.Split(value, ",") {
			if strings.TrimSpace(p) == strconv.Itoa(port) {
				return true
			}
		}
	}
	return false
}
