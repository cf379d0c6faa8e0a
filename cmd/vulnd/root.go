package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"vulnd/internal/bundle"
	"vulnd/internal/config"
	"vulnd/internal/detector"
	"vulnd/internal/httpapi"
	"vulnd/pkg/types"
)

// options collects flag/env/config-file inputs. Flag defaults come from
// environment variables; an optional config file fills in whatever the
// command line left untouched.
type options struct {
	configPath   string
	addr         string
	bundleDir    string
	seqLen       int
	device       string
	ortLibrary   string
	logLevel     string
	maxBodyBytes int64
	corsEnabled  bool
	corsOrigins  string
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "vulnd",
		Short:         "ML-based source code vulnerability detection service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	pf := root.PersistentFlags()
	pf.StringVar(&opts.configPath, "config", "", "Optional config file (.yaml/.json/.toml); flags win over file values")
	pf.StringVar(&opts.bundleDir, "bundle-dir", envOr("VULND_BUNDLE_DIR", "./model"), "Directory holding model.onnx and vocab.txt")
	pf.IntVar(&opts.seqLen, "seq-len", detector.DefaultSeqLen, "Fixed token sequence length (must match training)")
	pf.StringVar(&opts.device, "device", envOr("VULND_DEVICE", "auto"), "Compute device: auto|cuda|cpu")
	pf.StringVar(&opts.ortLibrary, "ort-library", os.Getenv("ONNXRUNTIME_SHARED_LIBRARY_PATH"), "Path to the onnxruntime shared library")
	pf.StringVar(&opts.logLevel, "log-level", envOr("VULND_LOG_LEVEL", "info"), "Log level: debug|info|warn|error")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Load the model and serve the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, opts)
		},
	}
	sf := serveCmd.Flags()
	sf.StringVar(&opts.addr, "addr", envOr("VULND_ADDR", ":8000"), "HTTP listen address, e.g. :8000")
	sf.Int64Var(&opts.maxBodyBytes, "max-body-bytes", 0, "Maximum request body size in bytes (0 = default 1MiB)")
	sf.BoolVar(&opts.corsEnabled, "cors", os.Getenv("VULND_CORS_ORIGINS") != "", "Enable CORS for the configured origins")
	sf.StringVar(&opts.corsOrigins, "cors-origins", os.Getenv("VULND_CORS_ORIGINS"), "Comma-separated list of allowed CORS origins")
	root.AddCommand(serveCmd)

	analyzeCmd := &cobra.Command{
		Use:   "analyze <file>",
		Short: "Classify one local file and print the verdict as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(cmd, opts, args[0])
		},
	}
	root.AddCommand(analyzeCmd)

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the service version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), detector.Version)
		},
	})

	return root
}

// applyConfigFile merges file values beneath flags: a file value is used
// only when the corresponding flag was not set on the command line.
func applyConfigFile(cmd *cobra.Command, opts *options) error {
	if opts.configPath == "" {
		return nil
	}
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	f := cmd.Flags()
	if !f.Changed("addr") && cfg.Addr != "" {
		opts.addr = cfg.Addr
	}
	if !f.Changed("bundle-dir") && cfg.BundleDir != "" {
		opts.bundleDir = cfg.BundleDir
	}
	if !f.Changed("seq-len") && cfg.SeqLen > 0 {
		opts.seqLen = cfg.SeqLen
	}
	if !f.Changed("device") && cfg.Device != "" {
		opts.device = cfg.Device
	}
	if !f.Changed("ort-library") && cfg.OrtLibrary != "" {
		opts.ortLibrary = cfg.OrtLibrary
	}
	if !f.Changed("log-level") && cfg.LogLevel != "" {
		opts.logLevel = cfg.LogLevel
	}
	if !f.Changed("max-body-bytes") && cfg.MaxBodyBytes > 0 {
		opts.maxBodyBytes = cfg.MaxBodyBytes
	}
	if !f.Changed("cors") && cfg.CORSEnabled {
		opts.corsEnabled = true
	}
	if !f.Changed("cors-origins") && len(cfg.CORSOrigins) > 0 {
		opts.corsOrigins = strings.Join(cfg.CORSOrigins, ",")
	}
	return nil
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(os.Stderr).With().Timestamp().Logger().Level(lvl)
}

// loadDetector is the shared startup path for serve and analyze: resolve
// the bundle, pick a device, and load atomically. Any error here is fatal
// to the caller before any traffic is accepted.
func loadDetector(opts *options) (*detector.Detector, error) {
	dev, err := detector.ParseDevice(opts.device)
	if err != nil {
		return nil, err
	}
	b, err := bundle.Resolve(opts.bundleDir)
	if err != nil {
		return nil, fmt.Errorf("resolve model bundle: %w", err)
	}
	det, err := detector.Load(detector.Config{
		ModelPath:   b.ModelPath,
		VocabPath:   b.VocabPath,
		SeqLen:      opts.seqLen,
		Device:      dev,
		LibraryPath: opts.ortLibrary,
	})
	if err != nil {
		return nil, fmt.Errorf("load model: %w", err)
	}
	return det, nil
}

func runServe(cmd *cobra.Command, opts *options) error {
	if err := applyConfigFile(cmd, opts); err != nil {
		return err
	}
	logger := newLogger(opts.logLevel)

	logger.Info().Str("bundle_dir", opts.bundleDir).Str("device", opts.device).Msg("loading model")
	det, err := loadDetector(opts)
	if err != nil {
		// Startup failure is fatal: we return before ever listening.
		return err
	}
	defer det.Close()
	logger.Info().Str("device", string(det.BoundDevice())).Str("model", detector.ModelName).Msg("model ready")

	httpapi.SetLogger(logger)
	httpapi.SetMaxBodyBytes(opts.maxBodyBytes)
	httpapi.SetCORSOptions(opts.corsEnabled, splitCSV(opts.corsOrigins))

	baseCtx, baseCancel := context.WithCancel(context.Background())
	defer baseCancel()
	httpapi.SetBaseContext(baseCtx)

	srv := &http.Server{Addr: opts.addr, Handler: httpapi.NewMux(det)}
	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", opts.addr).Msg("vulnd listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	// Graceful shutdown (Ctrl+C / SIGTERM)
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case sig := <-stop:
		logger.Info().Str("signal", sig.String()).Msg("shutting down")
	}
	baseCancel()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown error")
	}
	return nil
}

func runAnalyze(cmd *cobra.Command, opts *options, path string) error {
	if err := applyConfigFile(cmd, opts); err != nil {
		return err
	}
	code, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	det, err := loadDetector(opts)
	if err != nil {
		return err
	}
	defer det.Close()

	res, err := det.Analyze(cmd.Context(), string(code))
	if err != nil {
		return err
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(types.AnalyzeResponse{
		IsVulnerable: res.Vulnerable,
		Confidence:   res.Confidence,
		Prediction:   res.Label,
		Filename:     path,
	})
}

// splitCSV splits a comma-separated list, trimming whitespace and
// dropping empty items.
func splitCSV(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
