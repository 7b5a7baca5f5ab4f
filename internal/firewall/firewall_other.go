//go:build !windows

package firewall

// IsAdmin is always false outside Windows
func IsAdmin() bool {
	return false
}

// EnsureRule does nothing; other platforms do not block the port by default
func EnsureRule(name string, port int) error {
	return nil
}
