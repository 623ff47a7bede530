package daemon

import (
	"context"
	stdErrors "errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/hashicorp/go-hclog"

	"github.com/dmcp-project/dmcp/internal/api"
	"github.com/dmcp-project/dmcp/internal/cmd"
	"github.com/dmcp-project/dmcp/internal/errors"
)

// readHeaderTimeout bounds how long a client may take to send request headers.
const readHeaderTimeout = 10 * time.Second

// APIServer serves the read-only view of installed servers over HTTP.
// NewAPIServer should be used to create instances of APIServer.
type APIServer struct {
	logger          hclog.Logger
	catalog         api.ServerCatalog
	addr            string
	cors            CORSConfig
	shutdownTimeout time.Duration
}

// NewAPIServer creates a new API server with the provided dependencies and options.
func NewAPIServer(deps APIDependencies, opt ...APIOption) (*APIServer, error) {
	if err := deps.Validate(); err != nil {
		return nil, fmt.Errorf("invalid dependencies for API server: %w", err)
	}

	apiOpts, err := NewAPIOptions(opt...)
	if err != nil {
		return nil, fmt.Errorf("invalid API options: %w", err)
	}

	return &APIServer{
		logger:          deps.Logger.Named("api"),
		catalog:         deps.Catalog,
		addr:            deps.Addr,
		cors:            apiOpts.CORS,
		shutdownTimeout: apiOpts.ShutdownTimeout,
	}, nil
}

// Handler builds the HTTP handler serving every API route.
// The returned prefix is the path under which the routes are mounted (e.g. "/api/v1").
func (a *APIServer) Handler() (http.Handler, string, error) {
	mux := chi.NewMux()
	mux.Use(middleware.StripSlashes)

	if a.cors.Enabled() {
		a.logger.Info("Enabling CORS", "origins", a.cors.Origins)
		mux.Use(cors.Handler(a.corsOptions()))
	}

	router := humachi.New(mux, huma.DefaultConfig("dmcp API", cmd.Version()))

	huma.NewErrorWithContext = errorHandler(a.logger)

	prefix, err := api.RegisterRoutes(router, a.catalog)
	if err != nil {
		return nil, "", err
	}

	return mux, prefix, nil
}

// Start binds the configured address and serves until ctx is canceled or serving fails.
// Cancellation triggers a graceful shutdown and returns ctx.Err().
func (a *APIServer) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", a.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", a.addr, err)
	}

	return a.Serve(ctx, ln)
}

// Serve serves on ln until ctx is canceled or serving fails. ln is closed on return.
func (a *APIServer) Serve(ctx context.Context, ln net.Listener) error {
	handler, prefix, err := a.Handler()
	if err != nil {
		_ = ln.Close()
		return err
	}

	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("Starting API server", "address", ln.Addr().String(), "prefix", prefix)
		err := srv.Serve(ln)
		if stdErrors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		errCh <- err
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
	defer cancel()

	a.logger.Info("Shutting down API server")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Warn("API server shutdown", "error", err)
	}

	return ctx.Err()
}

// corsOptions translates the configured origins into go-chi/cors options.
// A wildcard origin replaces every other origin.
func (a *APIServer) corsOptions() cors.Options {
	origins := a.cors.Origins
	if a.cors.AllowsAny() {
		origins = []string{corsWildcard}
	}

	return cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   corsMethods(),
		AllowedHeaders:   corsHeaders(),
		AllowCredentials: false,
		MaxAge:           int(a.cors.MaxAge.Seconds()),
	}
}

// mapError maps dmcp domain errors to HTTP status codes.
//
// The kinds from internal/errors are matched rather than every specific error,
// so a new specific error gets the status of the kind it wraps.
//
// Mapping:
//   - 400: ErrInvalidInput (including ErrSourceExists, ErrUnsupportedTransport)
//   - 404: ErrNotFound (including ErrServerNotFound, ErrConfigKeyNotFound)
//   - 502: ErrNetwork, ErrExternalProcess
//   - 500: anything else (ErrIO, ErrSerialization, unexpected errors)
func mapError(logger hclog.Logger, err error) huma.StatusError {
	switch {
	case stdErrors.Is(err, errors.ErrInvalidInput):
		return huma.Error400BadRequest(err.Error())
	case stdErrors.Is(err, errors.ErrNotFound):
		return huma.Error404NotFound(err.Error())
	case stdErrors.Is(err, errors.ErrNetwork), stdErrors.Is(err, errors.ErrExternalProcess):
		logger.Error("Dependency failure", "error", err)
		return huma.Error502BadGateway("Upstream failure", err)
	case stdErrors.Is(err, errors.ErrSerialization):
		logger.Error("Unreadable installation state", "error", err)
		return huma.Error500InternalServerError("Unreadable installation state", err)
	default:
		logger.Error("Unexpected error serving installation state", "error", err)
		return huma.Error500InternalServerError("Internal server error", err)
	}
}

// errorHandler routes handler failures through mapError.
// Errors raised by huma itself (validation, malformed requests) keep their original status.
func errorHandler(logger hclog.Logger) func(_ huma.Context, status int, msg string, errs ...error) huma.StatusError {
	return func(_ huma.Context, status int, msg string, errs ...error) huma.StatusError {
		if status != http.StatusInternalServerError {
			return huma.NewError(status, msg, errs...)
		}

		switch len(errs) {
		case 0:
			return huma.NewError(status, msg)
		case 1:
			return mapError(logger, errs[0])
		default:
			return mapError(logger, stdErrors.Join(errs...))
		}
	}
}
