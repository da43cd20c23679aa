package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"rxremind/internal/capture"
	"rxremind/internal/config"
	appLog "rxremind/internal/log"
	"rxremind/internal/notify"
	"rxremind/internal/reminder"
	"rxremind/internal/store"
	"rxremind/internal/web"
)

const version = "0.1.0"

type flagConfig struct {
	configPath string
	listen     string
	memory     bool
	once       bool
	printID    string
}

func main() {
	flags := parseFlags()

	conf, err := config.Load(flags.configPath)
	if err != nil {
		if conf == nil {
			appLog.Error("failed to load config", err, "config_path", flags.configPath)
			os.Exit(1)
		}
		// defaults are usable even if they could not be written
		appLog.Warn("running with default config", "config_path", flags.configPath, "error", err.Error())
	}
	if flags.listen != "" {
		conf.Listen = flags.listen
	}

	appLog.Setup(appLog.Options{
		Level:      conf.Log.Level,
		File:       conf.Log.File,
		MaxSizeMB:  conf.Log.MaxSizeMB,
		MaxBackups: conf.Log.MaxBackups,
	})
	appLog.Info("rxremind starting", "version", version)
	appLog.Info("effective config",
		"listen", conf.Listen,
		"data_file", conf.DataFile,
		"memory", flags.memory,
		"dispatch", conf.Dispatch,
		"refill_time", conf.RefillTime,
		"once", flags.once,
		"print", flags.printID,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var st reminder.Store
	if flags.memory {
		st = store.NewMemory()
	} else {
		st = store.NewFile(conf.DataFile)
	}
	mgr := reminder.NewManager(st)

	dispatcher := notify.NewDispatcher(mgr, notify.LogNotifier{}, notify.Options{
		Spec:       conf.Dispatch,
		RefillTime: conf.RefillTime,
		Now:        mgr.Now,
	})

	switch {
	case flags.once:
		n, err := dispatcher.Tick(ctx, mgr.Now())
		if err != nil {
			appLog.Error("dispatch failed", err)
			os.Exit(1)
		}
		appLog.Info("dispatch done", "sent", n)
		return
	case flags.printID != "":
		if err := runPrint(ctx, conf, mgr, flags.printID); err != nil {
			appLog.Error("print failed", err, "id", flags.printID)
			os.Exit(1)
		}
		return
	}

	if err := dispatcher.Start(ctx); err != nil {
		appLog.Error("failed to start dispatcher", err)
		os.Exit(1)
	}

	srv := web.NewServer(conf, mgr)
	if err := srv.ListenAndServe(ctx); err != nil {
		appLog.Error("HTTP server failed", err)
		os.Exit(1)
	}

	// let the dispatcher goroutine log its shutdown
	time.Sleep(100 * time.Millisecond)
	appLog.Info("rxremind exiting")
}

// runPrint serves the print page in-process and has headless Chromium turn
// it into a PDF under cfg.Print.OutputDir.
func runPrint(ctx context.Context, cfg *config.Config, mgr *reminder.Manager, id string) error {
	if _, err := mgr.Prescription(ctx, id); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// listen before Chromium navigates
	ln, err := net.Listen("tcp", cfg.Listen)
	if err != nil {
		return err
	}
	srv := web.NewServer(cfg, mgr)
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ctx, ln) }()

	target, err := printURL(cfg, id)
	if err != nil {
		return err
	}
	out := filepath.Join(cfg.Print.OutputDir, id+".pdf")

	printErr := capture.PrintPDF(ctx, capture.PrintOptions{
		URL:        target,
		OutputPath: out,
		Timeout:    time.Duration(cfg.Print.TimeoutSeconds) * time.Second,
	})

	cancel()
	if err := <-errCh; err != nil {
		return errors.Join(printErr, fmt.Errorf("http server: %w", err))
	}
	return printErr
}

func printURL(cfg *config.Config, id string) (string, error) {
	u, err := url.Parse(cfg.PrintBaseURL())
	if err != nil {
		return "", fmt.Errorf("invalid print base URL: %w", err)
	}
	u = u.JoinPath("print", "prescriptions", id)
	if cfg.BasicAuth != nil && cfg.BasicAuth.Username != "" {
		u.User = url.UserPassword(cfg.BasicAuth.Username, cfg.BasicAuth.Password)
	}
	return u.String(), nil
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "/etc/rxremind/config.yaml", "Path to config file")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.BoolVar(&cfg.memory, "memory", false, "Keep data in memory instead of the data file")
	flag.BoolVar(&cfg.once, "once", false, "Run one dispatch tick and exit")
	flag.StringVar(&cfg.printID, "print", "", "Print the prescription with this ID to PDF and exit")

	flag.Parse()

	return cfg
}
