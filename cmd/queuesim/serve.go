package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"

	"github.com/GoSim-25-26J-441/queue-sim/internal/export"
	"github.com/GoSim-25-26J-441/queue-sim/internal/simd"
	"github.com/GoSim-25-26J-441/queue-sim/pkg/config"
	"github.com/GoSim-25-26J-441/queue-sim/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the simulation daemon (HTTP and gRPC)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg := a.cfg

			httpLis, err := net.Listen("tcp", cfg.Server.HTTPAddr)
			if err != nil {
				return fmt.Errorf("listen for HTTP on %s: %w", cfg.Server.HTTPAddr, err)
			}
			grpcLis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
			if err != nil {
				httpLis.Close()
				return fmt.Errorf("listen for gRPC on %s: %w", cfg.Server.GRPCAddr, err)
			}

			d, err := newDaemon(ctx, cfg)
			if err != nil {
				httpLis.Close()
				grpcLis.Close()
				return err
			}
			return d.serve(ctx, httpLis, grpcLis)
		},
	}

	fs := cmd.Flags()
	defaults := config.DefaultConfig()
	fs.String("http-addr", defaults.Server.HTTPAddr, "HTTP listen address")
	fs.String("grpc-addr", defaults.Server.GRPCAddr, "gRPC listen address")
	mustBind(a.v, "server.http_addr", fs.Lookup("http-addr"))
	mustBind(a.v, "server.grpc_addr", fs.Lookup("grpc-addr"))
	return cmd
}

// daemon wires the run store, executor and both transports
type daemon struct {
	sinks    *export.MultiWriter
	notifier *simd.Notifier
	executor *simd.RunExecutor
	httpSrv  *http.Server
	grpcSrv  *grpc.Server
}

func newDaemon(ctx context.Context, cfg config.Config) (*daemon, error) {
	sinks, err := openSinks(ctx, cfg.Export)
	if err != nil {
		return nil, err
	}

	store := simd.NewRunStore(cfg.Server.MaxRuns)
	notifier := simd.NewNotifier()
	executor := simd.NewRunExecutor(store, notifier, sinks)
	service := simd.NewService(store, executor, cfg.Server.CallbackSecret)

	// TODO: add TLS and authentication options to the gRPC listener before exposing it publicly.
	grpcSrv := grpc.NewServer()
	simd.RegisterQueueSimServer(grpcSrv, simd.NewQueueSimGRPCServer(service))

	httpSrv := &http.Server{
		Handler:           simd.NewHTTPServer(service).Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	return &daemon{
		sinks:    sinks,
		notifier: notifier,
		executor: executor,
		httpSrv:  httpSrv,
		grpcSrv:  grpcSrv,
	}, nil
}

// serve blocks until ctx is cancelled or a listener fails, then shuts down
func (d *daemon) serve(ctx context.Context, httpLis, grpcLis net.Listener) error {
	ctx, stop := context.WithCancel(ctx)
	defer stop()

	errs := make(chan error, 2)
	go func() {
		logger.Info("gRPC server listening", "addr", grpcLis.Addr().String())
		if err := d.grpcSrv.Serve(grpcLis); err != nil {
			errs <- fmt.Errorf("gRPC server: %w", err)
			stop()
		}
	}()
	go func() {
		logger.Info("HTTP server listening", "addr", httpLis.Addr().String())
		if err := d.httpSrv.Serve(httpLis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs <- fmt.Errorf("HTTP server: %w", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("Shutdown requested")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var shutdownErrs []error
	if err := d.httpSrv.Shutdown(shutdownCtx); err != nil {
		shutdownErrs = append(shutdownErrs, fmt.Errorf("HTTP shutdown: %w", err))
	}
	d.grpcSrv.GracefulStop()
	if err := d.executor.Shutdown(shutdownCtx); err != nil {
		shutdownErrs = append(shutdownErrs, fmt.Errorf("executor shutdown: %w", err))
	}
	if err := d.sinks.Close(); err != nil {
		shutdownErrs = append(shutdownErrs, fmt.Errorf("close sinks: %w", err))
	}

	select {
	case err := <-errs:
		shutdownErrs = append([]error{err}, shutdownErrs...)
	default:
	}
	if err := errors.Join(shutdownErrs...); err != nil {
		return err
	}
	logger.Info("Server stopped")
	return nil
}
