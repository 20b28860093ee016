// Command cpdlcd runs the CPDLC relay server: it loads a configuration
// file, builds a TLS context and the engine's supporting state, and drives
// the event loop until interrupted.
package main

import (
	"context"
	"crypto/tls"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/cpdlc-go/cpdlcd/certificates"
	"github.com/cpdlc-go/cpdlcd/internal/config"
	"github.com/cpdlc-go/cpdlcd/internal/logging"
	"github.com/cpdlc-go/cpdlcd/internal/metrics"
	"github.com/cpdlc-go/cpdlcd/internal/relay"
)

const defaultConfigPath = "/etc/cpdlcd/cpdlcd.conf"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		configPath string
		foreground bool
		portFlag   int
	)

	cmd := &cobra.Command{
		Use:   "cpdlcd",
		Short: "CPDLC relay server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(configPath, foreground, portFlag)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to configuration file")
	cmd.Flags().BoolVarP(&foreground, "foreground", "d", false, "run in the foreground (the process never daemonizes itself; without -d it only logs that fact)")
	cmd.Flags().IntVarP(&portFlag, "port", "p", 0, "override the configured listener port (1..65535)")

	return cmd
}

func run(configPath string, foreground bool, portOverride int) error {
	cfg, err := config.Parse(configPath, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "cpdlcd: configuration error: %v\n", err)
		return err
	}

	log := logging.New(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat}, os.Stderr)

	if portOverride != 0 {
		if portOverride < 1 || portOverride > 65535 {
			err := fmt.Errorf("port override %d out of range 1..65535", portOverride)
			log.WithError(err).Error("startup failed")
			return err
		}
		cfg.Listeners = overridePort(cfg.Listeners, portOverride)
	}

	tlsCfg, err := buildTLSConfig(cfg)
	if err != nil {
		log.WithError(err).Error("failed to build TLS context")
		return err
	}

	atc := newATCRegistry(cfg)

	var blocklist *relay.Blocklist
	if cfg.Blocklist != "" {
		blocklist = relay.NewBlocklist(log)
		if err := blocklist.Load(cfg.Blocklist); err != nil {
			log.WithError(err).Error("failed to load blocklist")
			return err
		}
		if err := blocklist.Watch(); err != nil {
			log.WithError(err).Warn("blocklist hot-reload unavailable")
		}
	}

	queue := relay.NewQueue(cfg.QueueMaxBytes, cfg.QueueTTL)
	collectors := metrics.New(prometheus.NewRegistry())

	engine := relay.NewEngine(atc, queue, blocklist, log, collectors)
	for _, addr := range cfg.Listeners {
		l, err := relay.NewListener(addr, tlsCfg)
		if err != nil {
			log.WithError(err).WithField("addr", addr).Error("failed to bind listener")
			return err
		}
		if err := engine.AddListener(l); err != nil {
			log.WithError(err).WithField("addr", addr).Error("failed to register listener")
			return err
		}
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if !foreground {
		log.Info("daemonizing is left to the process supervisor; running in the foreground")
	}

	engine.Run(ctx)
	return nil
}

func newATCRegistry(cfg *config.Config) *relay.ATCRegistry {
	atc := relay.NewATCRegistry()
	for _, name := range cfg.ATCNames {
		_ = atc.Add(relay.Callsign(name))
	}
	return atc
}

func overridePort(listeners []string, port int) []string {
	out := make([]string, len(listeners))
	for i, addr := range listeners {
		host := addr
		if idx := lastColon(addr); idx >= 0 {
			host = addr[:idx]
		}
		out[i] = fmt.Sprintf("%s:%d", host, port)
	}
	return out
}

func lastColon(s string) int {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == ':' {
			return i
		}
	}
	return -1
}

func buildTLSConfig(cfg *config.Config) (*tls.Config, error) {
	tc := certificates.New()
	tc.SetVersionMin(tls.VersionTLS12)
	tc.SetVersionMax(tls.VersionTLS13)

	if err := tc.AddCertificatePairFile(cfg.KeyFile, cfg.CertFile); err != nil {
		return nil, fmt.Errorf("loading server certificate: %w", err)
	}
	if cfg.CAFile != "" {
		if err := tc.AddRootCAFile(cfg.CAFile); err != nil {
			return nil, fmt.Errorf("loading CA file: %w", err)
		}
	}

	return tc.TLS(""), nil
}
