// Touchpad Server - reference receiver for touchpad surfaces
// Accepts surface connections and logs the input they send
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strconv"
	"syscall"

	"github.com/gin-gonic/gin"

	"github.com/michalowskil/lovelace-touchpad-card/internal/autostart"
	"github.com/michalowskil/lovelace-touchpad-card/internal/config"
	"github.com/michalowskil/lovelace-touchpad-card/internal/discovery"
	"github.com/michalowskil/lovelace-touchpad-card/internal/firewall"
	"github.com/michalowskil/lovelace-touchpad-card/internal/server"
	"github.com/michalowskil/lovelace-touchpad-card/internal/tray"
)

var (
	version     = "0.1.0"
	host        = flag.String("host", "0.0.0.0", "Listen address")
	port        = flag.Int("port", server.DefaultPort, "Listen port")
	scrollScale = flag.Float64("scroll-scale", server.DefaultScrollScale, "Wheel units per scroll pixel")
	name        = flag.String("name", "", "Name advertised on the local network (default host name)")
	noMDNS      = flag.Bool("no-mdns", false, "Do not advertise on the local network")
	withTray    = flag.Bool("tray", false, "Show a system tray icon")
	noFirewall  = flag.Bool("no-firewall", false, "Do not add a Windows firewall rule for the port")
	autoStart   = flag.String("autostart", "", "Start at login: enable, disable or status")
	logPath     = flag.String("log", "", "Log file (default touchpad-server.log in the config directory with -tray)")
	debug       = flag.Bool("debug", false, "Enable gin debug output")
	showVer     = flag.Bool("version", false, "Show version")
)

func main() {
	flag.Parse()

	if *showVer {
		fmt.Printf("touchpad-server version %s\n", version)
		return
	}

	if *autoStart != "" {
		handleAutostart(*autoStart)
		return
	}

	if f := openLog(*logPath, *withTray); f != nil {
		defer f.Close()
	}

	if !*debug {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	addr := net.JoinHostPort(*host, strconv.Itoa(*port))

	var t *tray.Tray
	if *withTray {
		t = tray.New(addr, cancel)
	}

	if runtime.GOOS == "windows" && !*noFirewall {
		go func() {
			if err := firewall.EnsureRule(firewall.DefaultRuleName, *port); err != nil {
				log.Printf("Firewall warning: %v", err)
			}
		}()
	}

	srv := server.New(server.Options{
		Addr:        addr,
		ScrollScale: *scrollScale,
		OnClients: func(n int) {
			if t != nil {
				t.SetClients(n)
			}
		},
	})

	log.Printf("--- Network Interfaces ---")
	if ips, err := discovery.LocalIPs(); err == nil {
		for _, ip := range ips {
			log.Printf("  ws://%s:%d", ip, *port)
		}
	}
	log.Printf("--------------------------")

	if !*noMDNS {
		instance := *name
		if instance == "" {
			instance, _ = os.Hostname()
		}
		adv, err := discovery.Advertise(instance, *port, []string{"version=" + version})
		if err != nil {
			log.Printf("Warning: %v", err)
		} else {
			log.Printf("Advertising %q as %s", instance, discovery.Service)
			defer adv.Shutdown()
		}
	}

	if t == nil {
		if err := srv.Run(ctx); err != nil && ctx.Err() == nil {
			log.Fatalf("Server error: %v", err)
		}
		log.Println("Server stopped")
		return
	}

	// The tray owns the main goroutine
	go func() {
		if err := srv.Run(ctx); err != nil && ctx.Err() == nil {
			log.Printf("Server error: %v", err)
		}
		t.Stop()
	}()
	t.Run()
	cancel()
	log.Println("Server stopped")
}

// openLog copies the log to a file. A tray receiver often has no console,
// so it gets a default file.
func openLog(path string, withTray bool) *os.File {
	if path == "" {
		if !withTray {
			return nil
		}
		dir, err := config.DefaultDir()
		if err != nil {
			log.Printf("Warning: no log directory: %v", err)
			return nil
		}
		path = filepath.Join(dir, "touchpad-server.log")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		log.Printf("Warning: failed to create log directory: %v", err)
		return nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		log.Printf("Warning: failed to open log file: %v", err)
		return nil
	}
	log.SetOutput(io.MultiWriter(os.Stderr, f))
	log.Printf("Logging to %s", path)
	return f
}

// handleAutostart registers the receiver with the flags of this invocation
func handleAutostart(action string) {
	var args []string
	flag.Visit(func(f *flag.Flag) {
		if f.Name != "autostart" {
			args = append(args, "-"+f.Name+"="+f.Value.String())
		}
	})

	l, err := autostart.New(args)
	if err != nil {
		log.Fatalf("Autostart: %v", err)
	}
	path, _ := l.Path()

	switch action {
	case "enable":
		if err := l.Enable(); err != nil {
			log.Fatalf("Autostart: failed to enable: %v", err)
		}
		fmt.Printf("Autostart enabled (%s)\n", path)
	case "disable":
		if err := l.Disable(); err != nil {
			log.Fatalf("Autostart: failed to disable: %v", err)
		}
		fmt.Println("Autostart disabled")
	case "status":
		fmt.Printf("Autostart enabled: %v\n", l.IsEnabled())
	default:
		log.Fatalf("Autostart: unknown action %q (use enable, disable or status)", action)
	}
}
