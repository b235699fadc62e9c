package app

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	server "drop-and-dodge/server"
	servernet "drop-and-dodge/server/internal/net"
	"drop-and-dodge/server/internal/observability"
	"drop-and-dodge/server/internal/telemetry"
	"drop-and-dodge/server/logging"
	loggingSinks "drop-and-dodge/server/logging/sinks"
)

type Config struct {
	Addr          string
	Logger        telemetry.Logger
	Observability observability.Config
}

func Run(ctx context.Context, cfg Config) error {
	telemetryLogger := cfg.Logger
	if telemetryLogger == nil {
		telemetryLogger = telemetry.WrapLogger(log.Default())
	}

	fallbackLogger := log.Default()
	if provider, ok := telemetryLogger.(interface{ StandardLogger() *log.Logger }); ok {
		if candidate := provider.StandardLogger(); candidate != nil {
			fallbackLogger = candidate
		}
	}

	logConfig := logging.DefaultConfig()
	if raw := os.Getenv("LOG_SINKS"); raw != "" {
		var enabled []string
		for _, name := range strings.Split(raw, ",") {
			if trimmed := strings.TrimSpace(name); trimmed != "" {
				enabled = append(enabled, trimmed)
			}
		}
		if len(enabled) > 0 {
			logConfig.EnabledSinks = enabled
		}
	}
	if raw := os.Getenv("LOG_JSON_PATH"); raw != "" {
		logConfig.JSON.FilePath = raw
		if !logConfig.HasSink(logging.SinkJSON) {
			logConfig.EnabledSinks = append(logConfig.EnabledSinks, logging.SinkJSON)
		}
	}

	namedSinks, closeSinkFiles, err := buildSinks(logConfig)
	if err != nil {
		return err
	}
	defer closeSinkFiles()

	router, err := logging.NewRouter(logging.ClockFunc(time.Now), logConfig, namedSinks)
	if err != nil {
		return fmt.Errorf("failed to construct logging router: %w", err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if cerr := router.Close(closeCtx); cerr != nil {
			telemetryLogger.Printf("failed to close logging router: %v", cerr)
		}
	}()

	hubCfg := server.DefaultHubConfig()
	hubCfg.Logger = telemetryLogger

	if raw := os.Getenv("SUBMIT_RATE_LIMIT_PER_SECOND"); raw != "" {
		if value, err := strconv.ParseInt(raw, 10, 64); err == nil {
			hubCfg.Gate.SubmitsPerSecond = value
		} else {
			telemetryLogger.Printf("invalid SUBMIT_RATE_LIMIT_PER_SECOND=%q: %v", raw, err)
		}
	}
	if raw := os.Getenv("SUBMIT_RATE_LIMIT_BURST"); raw != "" {
		if value, err := strconv.ParseInt(raw, 10, 64); err == nil {
			hubCfg.Gate.SubmitBurst = value
		} else {
			telemetryLogger.Printf("invalid SUBMIT_RATE_LIMIT_BURST=%q: %v", raw, err)
		}
	}
	if raw := os.Getenv("REPLAY_FILTER_SESSIONS"); raw != "" {
		if value, err := strconv.ParseUint(raw, 10, 32); err == nil {
			hubCfg.Gate.ExpectedSessions = uint(value)
		} else {
			telemetryLogger.Printf("invalid REPLAY_FILTER_SESSIONS=%q: %v", raw, err)
		}
	}
	if raw := os.Getenv("VERDICT_JOURNAL_CAPACITY"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil {
			hubCfg.JournalCapacity = value
		} else {
			telemetryLogger.Printf("invalid VERDICT_JOURNAL_CAPACITY=%q: %v", raw, err)
		}
	}
	if raw := os.Getenv("VERDICT_JOURNAL_MAX_AGE"); raw != "" {
		if value, err := time.ParseDuration(raw); err == nil {
			hubCfg.JournalMaxAge = value
		} else {
			telemetryLogger.Printf("invalid VERDICT_JOURNAL_MAX_AGE=%q: %v", raw, err)
		}
	}

	observabilityCfg := cfg.Observability
	if raw := os.Getenv("ENABLE_PPROF_TRACE"); raw != "" {
		if value, err := strconv.ParseBool(raw); err == nil {
			observabilityCfg.EnablePprofTrace = value
		} else {
			telemetryLogger.Printf("invalid ENABLE_PPROF_TRACE=%q: %v", raw, err)
		}
	}

	hub, err := server.NewHubWithConfig(hubCfg, router)
	if err != nil {
		return fmt.Errorf("failed to construct hub: %w", err)
	}

	handler := servernet.NewHTTPHandler(hub, servernet.HTTPHandlerConfig{
		Logger:        fallbackLogger,
		Observability: observabilityCfg,
		RouterStats:   router.Stats,
	})

	addr := cfg.Addr
	if addr == "" {
		addr = ":8080"
	}

	srv := &http.Server{Addr: addr, Handler: handler}
	telemetryLogger.Printf("server listening on %s", srv.Addr)

	if err := srv.ListenAndServe(); err != nil {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// buildSinks materializes the sinks named in the config. The returned closer
// releases any log files that were opened; it is safe to call when no file
// sink is configured.
func buildSinks(cfg logging.Config) ([]logging.NamedSink, func(), error) {
	var namedSinks []logging.NamedSink
	var jsonFile *os.File
	closeFiles := func() {
		if jsonFile != nil {
			jsonFile.Close()
		}
	}

	for _, name := range cfg.EnabledSinks {
		switch name {
		case logging.SinkConsole:
			namedSinks = append(namedSinks, logging.NamedSink{
				Name: name,
				Sink: loggingSinks.NewConsole(os.Stdout, cfg.Console),
			})
		case logging.SinkJSON:
			writer := io.Writer(os.Stdout)
			if cfg.JSON.FilePath != "" {
				file, err := os.OpenFile(cfg.JSON.FilePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
				if err != nil {
					closeFiles()
					return nil, nil, fmt.Errorf("failed to open log file %s: %w", cfg.JSON.FilePath, err)
				}
				jsonFile = file
				writer = file
			}
			namedSinks = append(namedSinks, logging.NamedSink{
				Name: name,
				Sink: loggingSinks.NewJSON(writer, cfg.JSON.FlushInterval),
			})
		case logging.SinkMemory:
			namedSinks = append(namedSinks, logging.NamedSink{
				Name: name,
				Sink: loggingSinks.NewMemory(),
			})
		}
	}

	return namedSinks, closeFiles, nil
}
