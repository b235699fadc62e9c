package net

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	stdnet "net"
	nethttp "net/http"
	"net/http/pprof"
	"time"

	"drop-and-dodge/server"
	"drop-and-dodge/server/internal/net/intake"
	"drop-and-dodge/server/internal/net/ws"
	"drop-and-dodge/server/internal/observability"
	"drop-and-dodge/server/logging"
	"drop-and-dodge/server/session"
)

type HTTPHandlerConfig struct {
	Logger        *log.Logger
	Observability observability.Config
	// RouterStats reports the logging router's queue counters for
	// /diagnostics. Nil when no router is attached.
	RouterStats func() logging.RouterStats
}

// Verdicts surfaced per /diagnostics call.
const diagnosticsJournalWindow = 32

func NewHTTPHandler(hub *server.Hub, cfg HTTPHandlerConfig) nethttp.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}

	mux := nethttp.NewServeMux()

	mux.HandleFunc("/health", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("ok"))
	})

	mux.HandleFunc("/diagnostics", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		stats := logging.RouterStats{}
		if cfg.RouterStats != nil {
			stats = cfg.RouterStats()
		}

		payload := struct {
			Status     string `json:"status"`
			ServerTime int64  `json:"serverTime"`
			Telemetry  any    `json:"telemetry"`
			Journal    any    `json:"journal"`
			Logging    struct {
				EventsTotal  uint64 `json:"eventsTotal"`
				DroppedTotal uint64 `json:"droppedTotal"`
			} `json:"logging"`
		}{
			Status:     "ok",
			ServerTime: time.Now().UnixMilli(),
			Telemetry:  hub.TelemetrySnapshot(),
			Journal:    hub.DiagnosticsJournal(diagnosticsJournalWindow),
		}
		payload.Logging.EventsTotal = stats.EventsTotal
		payload.Logging.DroppedTotal = stats.DroppedTotal

		data, err := json.Marshal(payload)
		if err != nil {
			httpError(w, "failed to encode", nethttp.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write(data)
	})

	mux.HandleFunc("/session/submit", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if r.Method != nethttp.MethodPost {
			httpError(w, "method not allowed", nethttp.StatusMethodNotAllowed)
			return
		}
		if r.Body == nil {
			httpError(w, "invalid payload", nethttp.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		var doc session.SubmitSessionDocument
		if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
			httpError(w, "invalid payload", nethttp.StatusBadRequest)
			return
		}

		verdict, err := hub.SubmitSession(r.Context(), clientAddress(r), doc)
		if err != nil {
			httpError(w, server.RejectReasonFor(err), submitStatusCode(err))
			return
		}

		data, err := json.Marshal(verdict)
		if err != nil {
			httpError(w, "failed to encode", nethttp.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write(data)
	})

	mux.HandleFunc("/anticheat/thresholds", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		switch r.Method {
		case nethttp.MethodGet:
			data, err := json.Marshal(hub.PerformanceThresholds())
			if err != nil {
				httpError(w, "failed to encode", nethttp.StatusInternalServerError)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			w.Write(data)

		case nethttp.MethodPut:
			opts := hub.PerformanceThresholds()

			type thresholdsRequest struct {
				BaseSpeedTolerance           *float64 `json:"baseSpeedTolerance"`
				BaseProximityTolerancePx     *float64 `json:"baseProximityTolerancePx"`
				StutterToleranceMs           *int64   `json:"stutterToleranceMs"`
				LowFpsThreshold              *float64 `json:"lowFpsThreshold"`
				ConfidenceThreshold          *float64 `json:"confidenceThreshold"`
				PerformanceAdjustmentEnabled *bool    `json:"performanceAdjustmentEnabled"`
				MaxSpeedMultiplier           *float64 `json:"maxSpeedMultiplier"`
				MaxProximityMultiplier       *float64 `json:"maxProximityMultiplier"`
				MaxTimeWindowExtensionMs     *int64   `json:"maxTimeWindowExtensionMs"`
			}

			if r.Body != nil {
				defer r.Body.Close()
				var req thresholdsRequest
				decoder := json.NewDecoder(r.Body)
				if err := decoder.Decode(&req); err != nil && err != io.EOF {
					httpError(w, "invalid payload", nethttp.StatusBadRequest)
					return
				}
				if req.BaseSpeedTolerance != nil {
					opts.BaseSpeedTolerance = *req.BaseSpeedTolerance
				}
				if req.BaseProximityTolerancePx != nil {
					opts.BaseProximityTolerancePx = *req.BaseProximityTolerancePx
				}
				if req.StutterToleranceMs != nil {
					opts.StutterToleranceMs = *req.StutterToleranceMs
				}
				if req.LowFpsThreshold != nil {
					opts.LowFpsThreshold = *req.LowFpsThreshold
				}
				if req.ConfidenceThreshold != nil {
					opts.ConfidenceThreshold = *req.ConfidenceThreshold
				}
				if req.PerformanceAdjustmentEnabled != nil {
					opts.PerformanceAdjustmentEnabled = *req.PerformanceAdjustmentEnabled
				}
				if req.MaxSpeedMultiplier != nil {
					opts.MaxSpeedMultiplier = *req.MaxSpeedMultiplier
				}
				if req.MaxProximityMultiplier != nil {
					opts.MaxProximityMultiplier = *req.MaxProximityMultiplier
				}
				if req.MaxTimeWindowExtensionMs != nil {
					opts.MaxTimeWindowExtensionMs = *req.MaxTimeWindowExtensionMs
				}
			}

			applied := hub.SetPerformanceThresholds(r.Context(), opts)

			response := struct {
				Status     string `json:"status"`
				Thresholds any    `json:"thresholds"`
			}{
				Status:     "ok",
				Thresholds: applied,
			}

			data, err := json.Marshal(response)
			if err != nil {
				httpError(w, "failed to encode", nethttp.StatusInternalServerError)
				return
			}

			w.Header().Set("Content-Type", "application/json")
			w.Write(data)

		default:
			httpError(w, "method not allowed", nethttp.StatusMethodNotAllowed)
		}
	})

	wsHandler := ws.NewHandler(hub, ws.HandlerConfig{Logger: logger})
	mux.HandleFunc("/ws", wsHandler.Handle)

	if cfg.Observability.EnablePprofTrace {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	}

	return mux
}

func submitStatusCode(err error) int {
	switch {
	case errors.Is(err, intake.ErrThrottled):
		return nethttp.StatusTooManyRequests
	case errors.Is(err, intake.ErrDuplicateSession):
		return nethttp.StatusConflict
	default:
		return nethttp.StatusBadRequest
	}
}

// clientAddress keys rate limiting by host so every socket from one machine
// shares a bucket.
func clientAddress(r *nethttp.Request) string {
	host, _, err := stdnet.SplitHostPort(r.RemoteAddr)
	if err != nil || host == "" {
		return r.RemoteAddr
	}
	return host
}

func httpError(w nethttp.ResponseWriter, msg string, code int) {
	nethttp.Error(w, msg, code)
}
