// Package autostart starts the receiver when the user logs in.
package autostart

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"text/template"
)

const label = "io.touchpad.server"

const macLaunchAgent = `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
    <key>Label</key>
    <string>{{.Label}}</string>
    <key>ProgramArguments</key>
    <array>
        <string>{{.Exec}}</string>
{{- range .Args}}
        <string>{{.}}</string>
{{- end}}
    </array>
    <key>RunAtLoad</key>
    <true/>
    <key>KeepAlive</key>
    <false/>
</dict>
</plist>
`

const xdgDesktopEntry = `[Desktop Entry]
Type=Application
Name=Touchpad Receiver
Exec={{.Command}}
X-GNOME-Autostart-enabled=true
NoDisplay=true
`

const windowsStartup = "@echo off\r\nstart \"\" {{.Command}}\r\n"

// Launcher registers a command to run at login
type Launcher struct {
	GOOS string

	// Home is the user home directory. On Windows, AppData is used instead.
	Home    string
	AppData string

	Exec string
	Args []string
}

// New creates a launcher for the running executable with args
func New(args []string) (*Launcher, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("failed to get executable path: %w", err)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}
	return &Launcher{
		GOOS:    runtime.GOOS,
		Home:    home,
		AppData: os.Getenv("APPDATA"),
		Exec:    exe,
		Args:    args,
	}, nil
}

// Path returns the file that registers the launcher
func (l *Launcher) Path() (string, error) {
	switch l.GOOS {
	case "darwin":
		return filepath.Join(l.Home, "Library", "LaunchAgents", label+".plist"), nil
	case "windows":
		if l.AppData == "" {
			return "", fmt.Errorf("APPDATA is not set")
		}
		return filepath.Join(l.AppData, "Microsoft", "Windows", "Start Menu", "Programs", "Startup", "touchpad-server.cmd"), nil
	case "linux", "freebsd", "openbsd", "netbsd":
		dir := os.Getenv("XDG_CONFIG_HOME")
		if dir == "" {
			dir = filepath.Join(l.Home, ".config")
		}
		return filepath.Join(dir, "autostart", "touchpad-server.desktop"), nil
	default:
		return "", fmt.Errorf("unsupported platform: %s", l.GOOS)
	}
}

// Enable writes the launcher file
func (l *Launcher) Enable() error {
	path, err := l.Path()
	if err != nil {
		return err
	}

	var text string
	switch l.GOOS {
	case "darwin":
		text = macLaunchAgent
	case "windows":
		text = windowsStartup
	default:
		text = xdgDesktopEntry
	}
	tmpl, err := template.New("autostart").Parse(text)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return tmpl.Execute(f, struct {
		Label   string
		Exec    string
		Args    []string
		Command string
	}{label, l.Exec, l.Args, l.command()})
}

// Disable removes the launcher file
func (l *Launcher) Disable() error {
	path, err := l.Path()
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// IsEnabled reports whether the launcher file exists
func (l *Launcher) IsEnabled() bool {
	path, err := l.Path()
	if err != nil {
		return false
	}
	_, err = os.Stat(path)
	return err == nil
}

// command joins the executable and arguments into one quoted command line
func (l *Launcher) command() string {
	parts := make([]string, 0, len(l.Args)+1)
	for _, s := range append([]string{l.Exec}, l.Args...) {
		if strings.ContainsAny(s, " \t\"") {
			s = `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
		}
		parts = append(parts, s)
	}
	return strings.Join(parts, " ")
}
