// Command simu-supervisor is the unprivileged, long-running half of the
// privilege-separation pipeline: it accepts HTTP requests, frames them as
// helper requests, and spawns the simu-helper binary (cmd/simu-helper)
// next to itself to satisfy each one.
package main

import (
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"

	"github.com/kk-boop/simu/internal/config"
	"github.com/kk-boop/simu/internal/httpserver"
	"github.com/kk-boop/simu/internal/procsup"
	"github.com/kk-boop/simu/internal/runtimeutil"
	"github.com/kk-boop/simu/internal/simlog"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	logLevel, err := config.String("SIMU_LOG_LEVEL", "INFO")
	if err != nil {
		return fmt.Errorf("SIMU_LOG_LEVEL: %w", err)
	}
	logFile, err := config.String("SIMU_LOG_FILE", "")
	if err != nil {
		return fmt.Errorf("SIMU_LOG_FILE: %w", err)
	}
	lg, err := simlog.NewStderrLogger(logFile)
	if err != nil {
		return fmt.Errorf("initialize logger: %w", err)
	}
	defer lg.Close()
	if err := lg.SetLevelString(logLevel); err != nil {
		return fmt.Errorf("SIMU_LOG_LEVEL: %w", err)
	}
	simlog.PrintOSInfo(lg)

	if prev, tuned := runtimeutil.TuneGOMAXPROCS(4); tuned {
		lg.Info("tuned GOMAXPROCS", simlog.KV("from", prev), simlog.KV("to", 4))
	}

	if syslogAddr, err := config.String("SIMU_SYSLOG_ADDR", ""); err != nil {
		return fmt.Errorf("SIMU_SYSLOG_ADDR: %w", err)
	} else if syslogAddr != "" {
		relay, err := simlog.NewSyslogRelay(syslogAddr)
		if err != nil {
			return fmt.Errorf("connect syslog relay: %w", err)
		}
		if err := lg.AddWriter(relay); err != nil {
			return fmt.Errorf("attach syslog relay: %w", err)
		}
	}

	cfg, err := httpserver.LoadConfig()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	if cfg.HelperPath == "" {
		cfg.HelperPath, err = defaultHelperPath()
		if err != nil {
			return err
		}
	}

	driver := procsup.NewDriver(cfg.HelperPath, lg)
	srv, err := httpserver.NewServer(cfg, driver, lg)
	if err != nil {
		return fmt.Errorf("build HTTP server: %w", err)
	}
	defer srv.Close()

	network, address, err := httpserver.ParseBind(cfg.Bind)
	if err != nil {
		return fmt.Errorf("SIMU_BIND: %w", err)
	}
	listener, err := net.Listen(network, address)
	if err != nil {
		return fmt.Errorf("listen on %s %s: %w", network, address, err)
	}

	lg.Info("binding", simlog.KV("network", network), simlog.KV("address", address))

	httpSrv := &http.Server{Handler: srv}
	serveErr := make(chan error, 1)
	go func() { serveErr <- httpSrv.Serve(listener) }()

	select {
	case err := <-serveErr:
		return fmt.Errorf("http server exited: %w", err)
	case sig := <-runtimeutil.GetQuitChannel():
		lg.Info("shutting down", simlog.KV("signal", sig.String()))
		return httpSrv.Close()
	}
}

// defaultHelperPath resolves the colocated-binary convention of spec.md
// §4.2: the helper lives next to the supervisor under a fixed name, never
// resolved via $PATH.
func defaultHelperPath() (string, error) {
	self, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("resolve own executable path: %w", err)
	}
	return filepath.Join(filepath.Dir(self), "simu-helper"), nil
}
