package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mchmarny/advscorer/pkg/config"
	"github.com/mchmarny/advscorer/pkg/metrics"
	"github.com/mchmarny/advscorer/pkg/score"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v3"
)

const (
	serverShutdownWaitSeconds = 5
	serverTimeoutSeconds      = 300
	serverMaxHeaderBytes      = 20
	serverMaxBodyBytes        = 64 << 20
	serverPortDefault         = 8080
)

var (
	portFlag = &cli.IntFlag{
		Name:  "port",
		Usage: "Port on which the server will listen",
		Value: serverPortDefault,
	}

	serverCmd = &cli.Command{
		Name:    "server",
		Aliases: []string{"serve"},
		Usage:   "Start local HTTP server exposing the transform API and metrics",
		Action:  cmdStartServer,
		Flags: []cli.Flag{
			portFlag,
		},
	}
)

// transformRequest is the body of POST /transform. Params and workers
// fall back to the server configuration when omitted.
type transformRequest struct {
	Params  *score.Params  `json:"params,omitempty"`
	Workers int            `json:"workers,omitempty"`
	Records []score.Record `json:"records"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func cmdStartServer(ctx context.Context, cmd *cli.Command) error {
	cfg := getConfig(cmd)
	port := cmd.Int(portFlag.Name)
	address := fmt.Sprintf("127.0.0.1:%d", port)

	metrics.Init()

	s := &http.Server{
		Addr:           address,
		Handler:        makeRouter(cfg.Config),
		ReadTimeout:    serverTimeoutSeconds * time.Second,
		WriteTimeout:   serverTimeoutSeconds * time.Second,
		MaxHeaderBytes: 1 << serverMaxHeaderBytes,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	slog.Info("server started", "address", fmt.Sprintf("http://%s", address))

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("error starting server: %w", err)
		}
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), serverShutdownWaitSeconds*time.Second)
	defer cancel()

	if err := s.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("error shutting down server", "error", err)
	}
	slog.Info("server stopped")
	return nil
}

func makeRouter(c *config.Config) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /transform", transformAPIHandler(c))
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	return mux
}

func transformAPIHandler(c *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req transformRequest
		dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, serverMaxBodyBytes))
		if err := dec.Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, &errorResponse{Error: fmt.Sprintf("invalid request: %v", err)})
			return
		}

		p := c.Params
		if req.Params != nil {
			p = *req.Params
		}
		workers := c.Workers
		if req.Workers != 0 {
			workers = req.Workers
		}

		scores, advWeights, restricted := score.Columns(req.Records)
		res, err := transform(r.Context(), scores, advWeights, restricted, p, workers)
		if err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, score.ErrContractViolation) {
				status = http.StatusBadRequest
			}
			slog.Error("transform failed", "error", err)
			writeJSON(w, status, &errorResponse{Error: err.Error()})
			return
		}

		writeJSON(w, http.StatusOK, res)
	}
}

// writeJSON encodes v before sending the header so an encoding failure
// still reaches the client as a 500.
func writeJSON(w http.ResponseWriter, status int, v any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
		http.Error(w, fmt.Sprintf("failed to encode response: %v", err), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := buf.WriteTo(w); err != nil {
		slog.Error("failed to write response", "error", err)
	}
}
