package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	ddns "github.com/krets/cloudflare-ddns"
)

var config = struct {
	KeyFile string
	IP      string
	Iface   string
	Setup   bool
	Verbose bool
}{}

func init() {
	flag.StringVar(&config.KeyFile, "k", filepath.Join(os.Getenv("HOME"), ".cloudflare"), "Path to cloudflare API credentials file")
	flag.StringVar(&config.IP, "ip", "", "IP address to set, skipping discovery")
	flag.StringVar(&config.Iface, "iface", "", "Resolve the IP from a local interface instead of web services")
	flag.BoolVar(&config.Setup, "setup", false, "Interactively store a cloudflare API token")
	flag.BoolVar(&config.Verbose, "v", false, "Enable verbose logging")
}

func main() {
	flag.Parse()

	logger := newLogger(config.Verbose)
	defer logger.Sync()

	if err := run(logger); err != nil {
		logger.Fatal("run failed", zap.Error(err))
	}
}

func newLogger(verbose bool) *zap.Logger {
	cfg := zap.NewProductionConfig()
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.OutputPaths = []string{"stdout"}

	logger, err := cfg.Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %s\n", err)
		os.Exit(1)
	}
	return logger.With(zap.String("runId", uuid.New().String()))
}

func run(logger *zap.Logger) error {
	if config.Setup {
		return runSetup(logger)
	}

	cfg, err := ddns.LoadConfig()
	if err != nil {
		return err
	}
	if cfg.APIToken == "" {
		key, err := readKey(config.KeyFile)
		if err != nil {
			return fmt.Errorf("error reading key: %w", err)
		}
		cfg.APIToken = key
		logger.Debug("read key from key file", zap.String("path", config.KeyFile))
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	logger.Debug("config is valid", zap.String("fqdn", cfg.FQDN()))

	options := []ddns.Option{
		ddns.UsingCloudflare(cfg),
		ddns.WithLogger(logger),
	}
	switch {
	case config.IP != "":
		options = append(options, ddns.UsingResolver(ddns.FromString(config.IP)))
	case config.Iface != "":
		options = append(options, ddns.UsingResolver(ddns.InterfaceResolver(config.Iface)))
	}

	updater, err := ddns.New(cfg.FQDN(), options...)
	if err != nil {
		return fmt.Errorf("error creating updater: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	result, err := updater.Run(ctx)
	if err != nil {
		return err
	}

	switch result.Outcome {
	case ddns.OutcomeUpToDate:
		logger.Info("current IP matches record",
			zap.String("fqdn", result.FQDN),
			zap.String("ip", result.IP))
	case ddns.OutcomeUpdated:
		logger.Info("successfully updated record",
			zap.String("fqdn", result.FQDN),
			zap.String("ip", result.IP))
	case ddns.OutcomeNoRecord:
		logger.Warn("no A record found", zap.String("fqdn", result.FQDN))
	}
	return nil
}

func readKey(path string) (key string, err error) {
	if err := verifyPermissions(path); err != nil {
		return "", err
	}

	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("error reading key: %w", err)
	}
	defer f.Close()

	r := bufio.NewReader(f)
	keyb, _, err := r.ReadLine()
	if err != nil {
		return "", fmt.Errorf("error reading line: %w", err)
	}
	return string(keyb), nil
}

func verifyPermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("error checking keyfile permissions: %w", err)
	}

	perms := info.Mode().Perm()
	// Error messages will state that we want 0600,
	// but we'll also accept 0400 which is even more restricted.
	// The file might be provided by some secrets managing software as readonly.
	if perms != 0600 && perms != 0400 {
		return fmt.Errorf("invalid permissions for \"%s\": expected file permissions \"-rw-------\"; found \"%s\"", path, fs.FileMode(perms))
	}

	return nil
}
