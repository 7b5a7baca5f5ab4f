// Touchpad - remote touchpad client
// Turns a terminal into a touch surface that drives a receiver over WebSocket
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/gdamore/tcell/v2"

	"github.com/michalowskil/lovelace-touchpad-card/internal/clock"
	"github.com/michalowskil/lovelace-touchpad-card/internal/config"
	"github.com/michalowskil/lovelace-touchpad-card/internal/discovery"
	"github.com/michalowskil/lovelace-touchpad-card/internal/loop"
	"github.com/michalowskil/lovelace-touchpad-card/internal/session"
	"github.com/michalowskil/lovelace-touchpad-card/internal/termhost"
	"github.com/michalowskil/lovelace-touchpad-card/internal/transport"
	"github.com/michalowskil/lovelace-touchpad-card/internal/uistate"
)

var (
	version    = "0.1.0"
	target     = flag.String("target", "", "Receiver address, e.g. 192.168.1.20:8765 or wss://host/ws")
	configPath = flag.String("config", "", "Path to config.json")
	view       = flag.String("view", "", "View name; toggles are kept per target and view")
	discover   = flag.Bool("discover", false, "List receivers on the local network")
	save       = flag.Bool("save", false, "Store -target and -view in the config file")
	logPath    = flag.String("log", "", "Log file (default touchpad.log next to the config)")
	showVer    = flag.Bool("version", false, "Show version")
)

func main() {
	flag.Parse()

	if *showVer {
		fmt.Printf("touchpad version %s\n", version)
		return
	}

	if *discover {
		listReceivers()
		return
	}

	cfgMgr, err := config.NewManager(*configPath)
	if err != nil {
		log.Fatalf("Failed to initialize config: %v", err)
	}
	if err := cfgMgr.Load(); err != nil {
		log.Printf("Warning: failed to load config: %v", err)
	}

	cfg := applyFlags(cfgMgr.Get())
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v (use -target or -discover)", err)
	}
	if *save {
		cfgMgr.Set(cfg)
		if err := cfgMgr.Save(); err != nil {
			log.Fatalf("Failed to save config: %v", err)
		}
	}

	logFile := openLog(cfgMgr.Path())
	if logFile != nil {
		defer logFile.Close()
	}

	run(cfgMgr, cfg)
}

// applyFlags overrides file values with command line values
func applyFlags(cfg config.Config) config.Config {
	if *target != "" {
		cfg.Target = *target
	}
	if *view != "" {
		cfg.View = *view
	}
	return cfg
}

func listReceivers() {
	fmt.Println("Searching for receivers...")
	receivers, err := discovery.Browse(context.Background())
	if err != nil {
		log.Fatalf("Discovery failed: %v", err)
	}
	if len(receivers) == 0 {
		fmt.Println("No receivers found on the local network.")
		return
	}
	for _, r := range receivers {
		fmt.Printf("%s\n  -target %s\n", r.Instance, r.Target())
	}
}

// openLog moves logging off the terminal, which is owned by the surface
func openLog(cfgPath string) *os.File {
	path := *logPath
	if path == "" {
		path = filepath.Join(filepath.Dir(cfgPath), "touchpad.log")
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
	log.SetOutput(f)
	return f
}

func run(cfgMgr *config.Manager, cfg config.Config) {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	l := loop.New(256)
	post := func(fn func()) { l.Post(fn) }

	statePath := cfg.StatePath
	if statePath == "" {
		statePath = filepath.Join(filepath.Dir(cfgMgr.Path()), "state.json")
	}
	store := uistate.NewStore(uistate.NewFile(statePath), nil)

	screen, err := tcell.NewScreen()
	if err != nil {
		log.Fatalf("Failed to open terminal: %v", err)
	}
	if err := screen.Init(); err != nil {
		log.Fatalf("Failed to initialize terminal: %v", err)
	}
	defer screen.Fini()

	url, _ := cfg.URL()
	host := termhost.New(screen, termhost.Options{
		Title:  url,
		Post:   post,
		OnQuit: cancel,
	})

	sess := session.New(session.Options{
		Clock:   clock.NewReal(post),
		Sockets: transport.NewWSFactory(post, nil),
		Store:   store,
		Host:    host,
		OnStatus: func(st transport.Status) {
			if cfgMgr.Get().ShowStatus {
				host.SetStatus(st)
			}
		},
		OnState: host.SetState,
	})

	l.Post(func() {
		if err := sess.Start(cfg); err != nil {
			log.Printf("Session: %v", err)
			cancel()
			return
		}
		host.Attach(sess)
	})

	// Edits to the config file restart the session with the new values
	cfgMgr.RegisterChangeCallback(func() {
		next := applyFlags(cfgMgr.Get())
		l.Post(func() {
			if err := sess.Start(next); err != nil {
				log.Printf("Session: keeping previous configuration: %v", err)
			}
		})
	})
	go func() {
		if err := cfgMgr.Watch(ctx); err != nil && ctx.Err() == nil {
			log.Printf("Config: watch stopped: %v", err)
		}
	}()

	go host.Run(ctx)

	if err := l.Run(ctx); err != nil && ctx.Err() == nil {
		log.Printf("Loop stopped: %v", err)
	}

	// The loop has stopped, so the session is no longer shared
	sess.Close()
	log.Println("Touchpad stopped")
}
