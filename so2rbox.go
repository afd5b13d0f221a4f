package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	c "lautenbacher.net/so2rbox/config"
	"lautenbacher.net/so2rbox/controller"
	"lautenbacher.net/so2rbox/logging"
	pl "lautenbacher.net/so2rbox/platform"
	"lautenbacher.net/so2rbox/transport"
)

// How long to wait for the platform to come up.
const readyTimeout = 10 * time.Second

type App struct {
	ossignal    chan os.Signal
	newPlatform func(*c.Config, chan os.Signal) pl.Platform
	platform    pl.Platform
	transport   *transport.Transport
	loop        *controller.Loop
	loopCancel  context.CancelFunc
	loopWg      sync.WaitGroup
	server      *http.Server
	serverWg    sync.WaitGroup
}

func NewApp(ossignal chan os.Signal) *App {
	return &App{
		ossignal:    ossignal,
		newPlatform: newPlatform,
	}
}

func newPlatform(conf *c.Config, ossignal chan os.Signal) pl.Platform {
	if conf.RealHW {
		return pl.NewRaspberryPiPlatform(conf)
	}
	return pl.NewTUIPlatform(conf, ossignal)
}

func main() {
	realp := flag.Bool("real", false, "run on the Raspberry Pi hardware instead of the TUI simulation")
	cfile := flag.String("config", c.CONFILE, "config file to use")
	flag.Parse()

	conf, err := c.ReadConfig(*cfile, *realp)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(2)
	}

	// The TUI takes over the terminal, logs wait for its log pane.
	if err := logging.Init(!conf.RealHW, conf.LogConfig()); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialise logging: %v\n", err)
		os.Exit(2)
	}

	ossignal := make(chan os.Signal, 1)
	signal.Notify(ossignal, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)

	code := NewApp(ossignal).Run(conf)
	logging.Close()
	os.Exit(code)
}

// Run brings the box up with conf and serves until an exit signal arrives.
// SIGHUP and changes of the config file restart everything with the
// re-read configuration.
func (a *App) Run(conf *c.Config) int {
	watchCtx, stopWatch := context.WithCancel(context.Background())
	defer stopWatch()
	go func() {
		err := c.Watch(watchCtx, conf.Configfile, c.DefaultDebounce, func() { a.signal(syscall.SIGHUP) })
		if err != nil {
			slog.Error("Config watcher stopped", "error", err)
		}
	}()

	if err := a.initialise(conf); err != nil {
		slog.Error("Failed to start", "error", err)
		a.shutdown()
		return 1
	}

	for sig := range a.ossignal {
		if sig != syscall.SIGHUP {
			slog.Info("Shutting down", "signal", sig.String())
			a.shutdown()
			return 0
		}

		slog.Info("Reloading configuration", "file", conf.Configfile)
		newConf, err := c.ReadConfig(conf.Configfile, conf.RealHW)
		if err != nil {
			slog.Error("Keeping current configuration", "error", err)
			continue
		}
		a.shutdown()
		logging.SetLevel(newConf.LogConfig().Level)
		conf = newConf
		if err := a.initialise(conf); err != nil {
			slog.Error("Failed to restart", "error", err)
			a.shutdown()
			return 1
		}
	}
	return 0
}

func (a *App) initialise(conf *c.Config) error {
	a.platform = a.newPlatform(conf, a.ossignal)
	if err := a.platform.Start(); err != nil {
		return fmt.Errorf("failed to start platform: %w", err)
	}
	select {
	case <-a.platform.Ready():
	case <-time.After(readyTimeout):
		return errors.New("platform did not become ready")
	}

	opts := conf.TransportOptions()
	tr, err := transport.New(a.platform.Peripheral(), opts)
	if err != nil {
		return fmt.Errorf("failed to create transport: %w", err)
	}
	if err := tr.Init(); err != nil {
		return err
	}
	a.transport = tr

	handler, err := controller.NewHandler(conf.Controller.Mode, opts.Terminator)
	if err != nil {
		return err
	}
	a.loop = controller.NewLoop(tr, a.platform, handler, conf.Controller)

	ctx, cancel := context.WithCancel(context.Background())
	a.loopCancel = cancel
	a.loopWg.Add(1)
	go func() {
		defer a.loopWg.Done()
		if err := a.loop.Run(ctx); err != nil {
			slog.Error("Control loop failed", "error", err)
			a.signal(os.Interrupt)
		}
	}()

	if conf.Web.Enabled {
		a.startWebServer(conf)
	}

	slog.Info("SO2R box running", "realHW", conf.RealHW, "mode", conf.Controller.Mode,
		"buffer", opts.Capacity, "tick", conf.Controller.TickInterval)
	return nil
}

func (a *App) shutdown() {
	if a.loopCancel != nil {
		a.loopCancel()
		a.loopWg.Wait()
		a.loopCancel = nil
	}
	a.stopWebServer()
	if a.platform != nil {
		a.platform.Stop()
		a.platform = nil
	}
}

func (a *App) signal(sig os.Signal) {
	select {
	case a.ossignal <- sig:
	default:
		slog.Debug("Signal dropped, one is already pending", "signal", sig.String())
	}
}

func (a *App) startWebServer(conf *c.Config) {
	mux := http.NewServeMux()
	mux.Handle("/api/config", c.ConfigHandler(conf.Configfile))
	mux.HandleFunc("/api/status", a.statusHandler)

	a.server = &http.Server{
		Addr:    conf.Web.Address,
		Handler: mux,
	}
	a.serverWg.Add(1)
	go func() {
		defer a.serverWg.Done()
		slog.Info("Starting web server", "address", conf.Web.Address)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Web server failed", "error", err)
		}
	}()
}

func (a *App) stopWebServer() {
	if a.server == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := a.server.Shutdown(ctx); err != nil {
		slog.Error("Web server shutdown failed", "error", err)
	}
	a.serverWg.Wait()
	a.server = nil
}

type status struct {
	Outputs pl.LineState    `json:"outputs"`
	Inputs  pl.LineState    `json:"inputs"`
	Stats   transport.Stats `json:"stats"`
}

func (a *App) statusHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	st := status{
		Outputs: a.platform.Outputs(),
		Inputs:  a.platform.LineEvents().Value().Inputs,
		Stats:   a.loop.Stats(),
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(st); err != nil {
		slog.Error("Failed to encode status", "error", err)
	}
}
