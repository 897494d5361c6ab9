package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/OCAP2/droneview/internal/config"
	"github.com/OCAP2/droneview/internal/dispatcher"
	"github.com/OCAP2/droneview/internal/logging"
	intOtel "github.com/OCAP2/droneview/internal/otel"
	"github.com/OCAP2/droneview/internal/session"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

// module defs - BuildDate can be set at build time via ldflags
var (
	CurrentVersion string = "0.0.1"
	BuildDate      string = "unknown"

	AppName string = "droneview"
)

// global variables
var (
	// SlogManager handles all slog-based logging
	SlogManager *logging.SlogManager

	// Logger is the slog logger (convenience reference)
	Logger *slog.Logger

	// OTelProvider handles OpenTelemetry
	OTelProvider *intOtel.Provider

	LogFilePath string
	logFile     *lumberjack.Logger
	otelLogFile *lumberjack.Logger

	SessionStartTime time.Time = time.Now()

	sessionCtx = session.NewContext()

	// stdout receives command output such as the metrics table
	stdout io.Writer = os.Stdout
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:])
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string) int {
	SlogManager = logging.NewSlogManager()
	if err := SlogManager.Setup(logging.Options{File: os.Stderr, Level: "info"}); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", AppName, err)
		return 1
	}
	Logger = SlogManager.Logger()

	d, err := dispatcher.New(logProxy{})
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", AppName, err)
		return 1
	}
	registerCommands(d)

	if len(args) == 0 {
		usage(os.Stderr, d)
		return 2
	}
	switch args[0] {
	case "help", "-h", "--help":
		usage(stdout, d)
		return 0
	}

	err = d.Dispatch(ctx, dispatcher.Event{
		Command:   args[0],
		Args:      args[1:],
		Timestamp: time.Now(),
	})
	shutdown()

	switch {
	case err == nil, errors.Is(err, pflag.ErrHelp):
		return 0
	case !d.HasHandler(args[0]):
		fmt.Fprintf(os.Stderr, "%s: %v\n\n", AppName, err)
		usage(os.Stderr, d)
		return 2
	default:
		fmt.Fprintf(os.Stderr, "%s: %v\n", AppName, err)
		return 1
	}
}

func registerCommands(d *dispatcher.Dispatcher) {
	d.Register("record", recordCommand,
		dispatcher.Summary("run the simulation and record what the drone camera sees"),
		dispatcher.Logged())
	d.Register("aggregate", aggregateCommand,
		dispatcher.Summary("aggregate a trajectory table into interval metrics"),
		dispatcher.Logged())
	d.Register("spacetime", spacetimeCommand,
		dispatcher.Summary("plot a time-space diagram from a trajectory table"),
		dispatcher.Logged())
	d.Register("geojson", geojsonCommand,
		dispatcher.Summary("export a trajectory table as GeoJSON tracks"),
		dispatcher.Logged())
	d.Register("version", versionCommand,
		dispatcher.Summary("print the version"))
}

func usage(w io.Writer, d *dispatcher.Dispatcher) {
	fmt.Fprintf(w, "Usage: %s <command> [flags] [args]\n\nCommands:\n", AppName)
	for _, c := range d.Commands() {
		fmt.Fprintf(w, "  %-10s %s\n", c.Name, c.Summary)
	}
	fmt.Fprintf(w, "\nRun '%s <command> --help' for the flags of a command.\n", AppName)
}

// logProxy forwards dispatcher logs to whatever Logger is current, since
// logging is reconfigured once a command has parsed its flags.
type logProxy struct{}

func (logProxy) Debug(msg string, kv ...any) { Logger.Debug(msg, kv...) }
func (logProxy) Info(msg string, kv ...any)  { Logger.Info(msg, kv...) }
func (logProxy) Error(msg string, kv ...any) { Logger.Error(msg, kv...) }

// setup parses the command flags, loads the config file, binds flags over
// it and switches logging to the configured outputs.
func setup(fs *pflag.FlagSet, args []string, keys map[string]string) error {
	configDir := fs.String("config", ".", "directory containing "+config.FileName)
	fs.String("log-level", "", "log level: debug, info, warn or error")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfgErr := config.Load(*configDir)
	if cfgErr != nil {
		config.LoadDefaults()
	}

	bound := map[string]string{"log-level": "logLevel"}
	for k, v := range keys {
		bound[k] = v
	}
	if err := config.BindFlags(fs, bound); err != nil {
		return err
	}

	if err := setupLogging(); err != nil {
		return err
	}

	if cfgErr != nil {
		Logger.Warn("Failed to load config, using defaults!", "error", cfgErr)
	} else {
		Logger.Info("Loaded config", "dir", *configDir)
	}
	return nil
}

func setupLogging() error {
	logsDir := viper.GetString("logsDir")
	if err := os.MkdirAll(logsDir, 0755); err != nil {
		return fmt.Errorf("create logs dir: %w", err)
	}

	LogFilePath = logging.LogFilePath(logsDir, AppName, SessionStartTime)
	logFile = logging.NewRotatingFile(LogFilePath)

	otelCfg := config.GetOTelConfig()
	var otelLogProvider *sdklog.LoggerProvider
	if otelCfg.Enabled {
		otelLogFile = logging.NewRotatingFile(strings.TrimSuffix(LogFilePath, ".log") + ".otel.log")
		var err error
		OTelProvider, err = intOtel.New(intOtel.Config{
			Enabled:        otelCfg.Enabled,
			ServiceName:    otelCfg.ServiceName,
			ServiceVersion: CurrentVersion,
			BatchTimeout:   otelCfg.BatchTimeout,
			LogWriter:      otelLogFile,
			Endpoint:       otelCfg.Endpoint,
			Insecure:       otelCfg.Insecure,
		})
		if err != nil {
			Logger.Error("Failed to initialize OTel provider", "error", err)
		} else {
			otelLogProvider = OTelProvider.LoggerProvider()
		}
	}

	var graylogAddress string
	if viper.GetBool("graylog.enabled") {
		graylogAddress = viper.GetString("graylog.address")
	}

	err := SlogManager.Setup(logging.Options{
		File:           io.MultiWriter(os.Stderr, logFile),
		Level:          viper.GetString("logLevel"),
		Provider:       otelLogProvider,
		GraylogAddress: graylogAddress,
		Context:        sessionCtx.LogAttrs,
	})
	if err != nil {
		return fmt.Errorf("setup logging: %w", err)
	}
	Logger = SlogManager.Logger()
	Logger.Debug("Logging to file", "path", LogFilePath)
	if OTelProvider != nil && otelCfg.Endpoint != "" {
		Logger.Info("OTel provider initialized", "endpoint", otelCfg.Endpoint)
	}
	return nil
}

func shutdown() {
	if OTelProvider != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := OTelProvider.Shutdown(ctx); err != nil {
			Logger.Warn("Failed to shut down OTel provider", "error", err)
		}
		cancel()
		OTelProvider = nil
	}
	if SlogManager != nil {
		_ = SlogManager.Close()
	}
	for _, f := range []*lumberjack.Logger{logFile, otelLogFile} {
		if f != nil {
			_ = f.Close()
		}
	}
	logFile, otelLogFile = nil, nil
}

// logWriter is the current log file, for the zerolog-based managers.
func logWriter() io.Writer {
	if logFile == nil {
		return io.Discard
	}
	return logFile
}

func versionCommand(_ context.Context, _ dispatcher.Event) error {
	_, err := fmt.Fprintf(stdout, "%s %s (built %s)\n", AppName, CurrentVersion, BuildDate)
	return err
}
