package daemon

import (
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const (
	// DefaultShutdownTimeout is the time allowed for in-flight requests when the server stops.
	DefaultShutdownTimeout = 5 * time.Second

	// DefaultCORSMaxAge is how long browsers may cache a preflight response.
	DefaultCORSMaxAge = 5 * time.Minute

	corsWildcard = "*"
)

// APIOptions contains optional configuration for the API server.
// NewAPIOptions should be used to create instances of APIOptions.
type APIOptions struct {
	// CORS configuration for browser clients.
	CORS CORSConfig

	// ShutdownTimeout specifies how long to wait for graceful shutdown.
	ShutdownTimeout time.Duration
}

// CORSConfig describes which browser origins may read the API.
// The API never accepts credentials and only serves safe methods.
type CORSConfig struct {
	// Origins allowed to call the API. Empty disables CORS handling.
	Origins []string

	// MaxAge specifies how long browsers can cache preflight responses.
	MaxAge time.Duration
}

// Enabled reports whether any origin has been allowed.
func (c CORSConfig) Enabled() bool {
	return len(c.Origins) > 0
}

// AllowsAny reports whether the wildcard origin was configured.
func (c CORSConfig) AllowsAny() bool {
	for _, o := range c.Origins {
		if o == corsWildcard {
			return true
		}
	}
	return false
}

// APIOption defines a functional option for configuring APIOptions.
// Options are applied in order, with later options overriding earlier ones.
type APIOption func(*APIOptions) error

// NewAPIOptions creates APIOptions with defaults, then applies opts in order.
func NewAPIOptions(opts ...APIOption) (APIOptions, error) {
	options := APIOptions{
		CORS:            CORSConfig{MaxAge: DefaultCORSMaxAge},
		ShutdownTimeout: DefaultShutdownTimeout,
	}

	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&options); err != nil {
			return APIOptions{}, err
		}
	}

	return options, nil
}

// WithCORSOrigins allows exactly the given origins. Blank entries are ignored, so an empty or blank
// list leaves CORS disabled.
func WithCORSOrigins(origins []string) APIOption {
	return func(o *APIOptions) error {
		var cleaned []string
		for _, origin := range origins {
			origin = strings.TrimSpace(origin)
			if origin == "" {
				continue
			}
			if origin != corsWildcard && !strings.Contains(origin, "://") {
				return fmt.Errorf("invalid CORS origin '%s': expected scheme://host[:port] or '*'", origin)
			}
			cleaned = append(cleaned, strings.TrimSuffix(origin, "/"))
		}
		o.CORS.Origins = cleaned
		return nil
	}
}

// WithCORSMaxAge sets how long browsers can cache preflight responses.
func WithCORSMaxAge(maxAge time.Duration) APIOption {
	return func(o *APIOptions) error {
		if maxAge < 0 {
			return fmt.Errorf("CORS max age cannot be negative, got %v", maxAge)
		}
		o.CORS.MaxAge = maxAge
		return nil
	}
}

// WithShutdownTimeout configures how long to wait for graceful shutdown.
func WithShutdownTimeout(timeout time.Duration) APIOption {
	return func(o *APIOptions) error {
		if timeout <= 0 {
			return fmt.Errorf("shutdown timeout must be positive, got %v", timeout)
		}
		o.ShutdownTimeout = timeout
		return nil
	}
}

// corsMethods are the methods a browser may use against the read-only API.
func corsMethods() []string {
	return []string{http.MethodGet, http.MethodHead, http.MethodOptions}
}

// corsHeaders are the request headers a browser may send.
func corsHeaders() []string {
	return []string{"Accept", "Accept-Language", "Content-Language", "Content-Type"}
}

// validateAddr checks that addr is a "host:port" string with a usable port.
func validateAddr(addr string) error {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Errorf("invalid address format: %w", err)
	}

	if port == "" {
		return fmt.Errorf("address missing port")
	}

	if n, err := strconv.Atoi(port); err == nil {
		if n < 0 || n > 65535 {
			return fmt.Errorf("invalid address port: %s", port)
		}
	} else if _, err := net.LookupPort("tcp", port); err != nil {
		return fmt.Errorf("invalid address port: %s", port)
	}

	if strings.ContainsAny(host, " \t") {
		return fmt.Errorf("invalid address host: '%s'", host)
	}

	return nil
}
