//go:build windows

package firewall

import (
	"fmt"
	"log"
	"os/exec"

	"golang.org/x/sys/windows"
)

// IsAdmin reports whether the process runs with administrative rights
func IsAdmin() bool {
	var token windows.Token
	h, _ := windows.GetCurrentProcess()
	if err := windows.OpenProcessToken(h, windows.TOKEN_QUERY, &token); err != nil {
		return false
	}
	defer token.Close()

	var sid *windows.SID
	err := windows.AllocateAndInitializeSid(
		&windows.SECURITY_NT_AUTHORITY,
		2,
		windows.SECURITY_BUILTIN_DOMAIN_RID,
		windows.DOMAIN_ALIAS_RID_ADMINS,
		0, 0, 0, 0, 0, 0,
		&sid,
	)
	if err != nil {
		return false
	}
	defer windows.FreeSid(sid)

	member, err := token.IsMember(sid)
	return err == nil && member
}

// EnsureRule makes sure inbound TCP on port is allowed. Without admin
// rights it asks for elevation and returns without waiting.
func EnsureRule(name string, port int) error {
	out, err := exec.Command("netsh", "advfirewall", "firewall", "show", "rule", "name="+name).CombinedOutput()
	if err == nil && ruleMatches(string(out), name, port) {
		log.Printf("Firewall: Rule '%s' allows port %d", name, port)
		return nil
	}
	log.Printf("Firewall: Creating rule '%s' for port %d", name, port)

	script := ruleCommand(name, port)
	if IsAdmin() {
		if out, err := exec.Command("powershell", "-NoProfile", "-Command", script).CombinedOutput(); err != nil {
			return fmt.Errorf("failed to create firewall rule: %w (output: %s)", err, out)
		}
		return nil
	}

	verb, _ := windows.UTF16PtrFromString("runas")
	exe, _ := windows.UTF16PtrFromString("powershell.exe")
	args, _ := windows.UTF16PtrFromString(fmt.Sprintf("-NoProfile -WindowStyle Hidden -Command \"%s\"", script))
	if err := windows.ShellExecute(0, verb, exe, args, nil, windows.SW_HIDE); err != nil {
		return fmt.Errorf("failed to request elevation: %w", err)
	}
	log.Println("Firewall: Elevation requested, confirm the prompt to open the port")
	return nil
}
