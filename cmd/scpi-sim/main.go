// Command scpi-sim runs a simulated SCPI instrument.
//
// The simulator listens on a raw TCP socket, answers the instrument
// configuration protocol (HEADER/VERBOSE modes, parameter sets and
// queries, bulk settings dump, *IDN?) from a seeded settings tree, and
// announces itself on the local network via mDNS so scpi-shell's
// discover command can find it. Traffic is logged as structured events
// through slog, with rotating log files.
//
// Usage:
//
//	scpi-sim [flags]
//
// Flags:
//
//	-config string      YAML configuration file
//	-port int           Listen port (overrides config; default 5025)
//	-log-dir string     Log directory (overrides config; empty = stderr only)
//	-transcript string  CBOR transcript file for scpi-log (overrides config)
//
// Configuration file:
//
//	instrument:
//	  manufacturer: SCPI Protocol
//	  model: SIM-1000
//	  serial: SN0001
//	  firmware: 1.0.0
//	network:
//	  port: 5025
//	  advertise: true
//	logging:
//	  dir: /var/log/scpi-sim
//	  max_size_mb: 10
//	  max_backups: 5
//	  max_age_days: 28
//	  transcript: /var/log/scpi-sim/traffic.cborlog
//	seed:
//	  ACQUIRE:MODE: SAMPLE
//	  ACQUIRE:NUMAVG: "16"
//	  TRIG:LEVEL: "0.5"
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"gopkg.in/natefinch/lumberjack.v2"
	"gopkg.in/yaml.v3"

	"github.com/scpi-protocol/scpi-go/internal/sim"
	"github.com/scpi-protocol/scpi-go/pkg/discovery"
	scpilog "github.com/scpi-protocol/scpi-go/pkg/log"
	"github.com/scpi-protocol/scpi-go/pkg/transport"
)

// Config is the simulator configuration file layout.
type Config struct {
	Instrument InstrumentConfig  `yaml:"instrument"`
	Network    NetworkConfig     `yaml:"network"`
	Logging    LoggingConfig     `yaml:"logging"`
	Seed       map[string]string `yaml:"seed"`
}

// InstrumentConfig holds the simulated identity.
type InstrumentConfig struct {
	Manufacturer string `yaml:"manufacturer"`
	Model        string `yaml:"model"`
	Serial       string `yaml:"serial"`
	Firmware     string `yaml:"firmware"`
}

// NetworkConfig holds listener and discovery settings.
type NetworkConfig struct {
	Port      int    `yaml:"port"`
	Advertise bool   `yaml:"advertise"`
	Interface string `yaml:"interface"`
}

// LoggingConfig holds rotating log file settings.
type LoggingConfig struct {
	Dir        string `yaml:"dir"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`

	// Transcript is a CBOR transcript file capturing all protocol
	// traffic, readable with scpi-log. Empty disables it.
	Transcript string `yaml:"transcript"`
}

// defaultConfig returns the configuration used when no file is given.
func defaultConfig() Config {
	return Config{
		Instrument: InstrumentConfig{
			Manufacturer: "SCPI Protocol",
			Model:        "SIM-1000",
			Serial:       "SN0001",
			Firmware:     "1.0.0",
		},
		Network: NetworkConfig{
			Port:      transport.DefaultPort,
			Advertise: true,
		},
		Logging: LoggingConfig{
			MaxSizeMB:  10,
			MaxBackups: 5,
			MaxAgeDays: 28,
		},
		Seed: map[string]string{
			"ACQUIRE:MODE":   "SAMPLE",
			"ACQUIRE:NUMAVG": "16",
			"TRIG:LEVEL":     "0.5",
			"TRIG:SOURCE":    "CH1",
			"CH1:SCALE":      "0.1",
			"CH1:POSITION":   "0",
		},
	}
}

// loadConfig reads and merges the YAML configuration file.
func loadConfig(path string) (Config, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return cfg, nil
}

func main() {
	configFile := flag.String("config", "", "YAML configuration file")
	port := flag.Int("port", 0, "listen port (overrides config)")
	logDir := flag.String("log-dir", "", "log directory (overrides config)")
	transcript := flag.String("transcript", "", "CBOR transcript file (overrides config)")
	flag.Parse()

	cfg, err := loadConfig(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "scpi-sim: %v\n", err)
		os.Exit(1)
	}
	if *port != 0 {
		cfg.Network.Port = *port
	}
	if *logDir != "" {
		cfg.Logging.Dir = *logDir
	}
	if *transcript != "" {
		cfg.Logging.Transcript = *transcript
	}

	if err := run(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "scpi-sim: %v\n", err)
		os.Exit(1)
	}
}

func run(cfg Config) error {
	logger := newLogger(cfg.Logging)

	// Protocol traffic goes to slog; with a transcript configured it
	// additionally fans out to a CBOR file for scpi-log.
	var protoLogger scpilog.Logger = scpilog.NewSlogAdapter(logger)
	if cfg.Logging.Transcript != "" {
		fl, err := scpilog.NewFileLogger(cfg.Logging.Transcript)
		if err != nil {
			return fmt.Errorf("opening transcript %s: %w", cfg.Logging.Transcript, err)
		}
		defer fl.Close()
		protoLogger = scpilog.NewMultiLogger(protoLogger, fl)
	}

	instrument := sim.New(sim.Config{
		Manufacturer: cfg.Instrument.Manufacturer,
		Model:        cfg.Instrument.Model,
		Serial:       cfg.Instrument.Serial,
		Firmware:     cfg.Instrument.Firmware,
		Seed:         cfg.Seed,
	})

	server, err := transport.NewServer(transport.ServerConfig{
		Address: fmt.Sprintf(":%d", cfg.Network.Port),
		Handler: instrument,
		Logger:  protoLogger,
		OnConnect: func(connID string) {
			logger.Info("client connected", "conn_id", connID)
		},
		OnDisconnect: func(connID string) {
			logger.Info("client disconnected", "conn_id", connID)
		},
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := server.Start(ctx); err != nil {
		return err
	}
	defer server.Stop()

	logger.Info("simulator listening",
		"addr", server.Addr().String(),
		"model", cfg.Instrument.Model,
		"serial", cfg.Instrument.Serial)

	if cfg.Network.Advertise {
		advertiser := discovery.NewAdvertiser(discovery.AdvertiserConfig{
			Interface: cfg.Network.Interface,
		})
		err := advertiser.Advertise(&discovery.InstrumentInfo{
			Port:         uint16(cfg.Network.Port),
			Manufacturer: cfg.Instrument.Manufacturer,
			Model:        cfg.Instrument.Model,
			Serial:       cfg.Instrument.Serial,
			Firmware:     cfg.Instrument.Firmware,
		})
		if err != nil {
			logger.Warn("mDNS advertising failed", "err", err)
		} else {
			defer advertiser.Stop()
			logger.Info("advertising via mDNS", "service", discovery.ServiceTypeSCPIRaw)
		}
	}

	<-ctx.Done()
	logger.Info("shutting down")
	return nil
}

// newLogger builds the slog logger, with rotation when a log directory
// is configured.
func newLogger(cfg LoggingConfig) *slog.Logger {
	var w io.Writer = os.Stderr
	if cfg.Dir != "" {
		w = io.MultiWriter(os.Stderr, &lumberjack.Logger{
			Filename:   cfg.Dir + "/scpi-sim.log",
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   true,
		})
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))
}
