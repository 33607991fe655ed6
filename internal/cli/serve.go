package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	httpadapter "github.com/aretw0/stepwise/pkg/adapters/http"
	mcpadapter "github.com/aretw0/stepwise/pkg/adapters/mcp"
	"github.com/aretw0/stepwise/pkg/loader"
	"github.com/aretw0/stepwise/pkg/observability"
	"github.com/aretw0/stepwise/pkg/session"
)

// Services is the wiring shared by the HTTP and MCP front ends.
type Services struct {
	Service  *session.Service
	Streams  *httpadapter.StreamManager
	Registry *prometheus.Registry
	Backend  *Backend
}

// Close releases the backend.
func (s *Services) Close() error {
	return s.Backend.Close()
}

// BuildServices loads the survey once and wires the session service with
// persistence, metrics, logging hooks and the SSE change feed.
func BuildServices(ctx context.Context, app *App, locator string) (*Services, error) {
	survey, err := loader.New(nil, loader.WithLogger(app.Logger)).Load(ctx, locator)
	if err != nil {
		return nil, err
	}

	backend, err := OpenBackend(ctx, app.Config, app.Logger)
	if err != nil {
		return nil, err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := observability.NewMetrics(registry)

	managerOpts := []session.Option{
		session.WithLockTTL(app.Config.LockTTL),
		session.WithLogger(app.Logger),
	}
	if backend.Locker != nil {
		managerOpts = append(managerOpts, session.WithLocker(backend.Locker))
	}
	manager := session.NewManager(backend.Store, managerOpts...)

	streams := httpadapter.NewStreamManager(app.Logger)
	svc := session.NewService(survey, manager,
		session.WithHooks(metrics.Hooks().Merge(observability.LoggingHooks(app.Logger))),
		session.WithSubmissionSink(backend.Sink),
		session.WithChangeListener(streams.Notify),
		session.WithServiceLogger(app.Logger),
	)

	return &Services{Service: svc, Streams: streams, Registry: registry, Backend: backend}, nil
}

// Serve runs the HTTP API until ctx is cancelled.
func Serve(ctx context.Context, app *App, locator string, port int) error {
	services, err := BuildServices(ctx, app, locator)
	if err != nil {
		return err
	}
	defer services.Close()

	handler := httpadapter.NewHandler(services.Service,
		httpadapter.WithStreams(services.Streams),
		httpadapter.WithMetrics(promhttp.HandlerFor(services.Registry, promhttp.HandlerOpts{})),
		httpadapter.WithMaxInputSize(app.Config.MaxInputSize),
		httpadapter.WithLogger(app.Logger),
	)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		app.Logger.Info("http server listening", "addr", srv.Addr, "survey", services.Service.Survey().ID, "store", services.Backend.Name)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	app.Logger.Info("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// MCP transports.
const (
	TransportStdio = "stdio"
	TransportSSE   = "sse"
)

// ServeMCP exposes the survey as MCP tools over the chosen transport.
func ServeMCP(ctx context.Context, app *App, locator, transport string, port int) error {
	services, err := BuildServices(ctx, app, locator)
	if err != nil {
		return err
	}
	defer services.Close()

	srv := mcpadapter.NewServer(services.Service,
		mcpadapter.WithLogger(app.Logger),
		mcpadapter.WithMaxInputSize(app.Config.MaxInputSize),
	)

	switch transport {
	case TransportStdio, "":
		return srv.ServeStdio()
	case TransportSSE:
		return srv.ServeSSE(ctx, port)
	default:
		return fmt.Errorf("unknown transport %q (want %s or %s)", transport, TransportStdio, TransportSSE)
	}
}
