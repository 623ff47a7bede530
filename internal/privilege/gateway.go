package privilege

import (
	"context"
	"fmt"
	"io"
	"os"
)

// Gateway relaunches the current command line under a Runner.
// NewGateway should be used to create instances of Gateway.
type Gateway struct {
	runner  Runner
	options GatewayOptions
}

// NewGateway returns a Gateway relaunching through runner.
func NewGateway(runner Runner, opt ...GatewayOption) (*Gateway, error) {
	if runner == nil {
		return nil, fmt.Errorf("privilege gateway requires a runner")
	}

	opts, err := NewGatewayOptions(opt...)
	if err != nil {
		return nil, err
	}

	return &Gateway{runner: runner, options: opts}, nil
}

// ReExec relaunches the identical command line elevated and exits with the child's status.
// When the broker cannot be run at all, guidance is written to stderr and the process exits with status 1.
// It only returns when the configured exit function returns (as in tests).
func (g *Gateway) ReExec(ctx context.Context) {
	exe, err := g.options.Executable()
	if err != nil {
		g.fail(fmt.Errorf("cannot get executable path: %w", err))
		return
	}

	op := RelaunchSelf{
		Executable: exe,
		Args:       g.options.Args,
		Env:        g.preservedEnv(),
	}

	code, err := g.runner.Run(ctx, op)
	if err != nil {
		g.fail(err)
		return
	}

	g.options.Exit(code)
}

func (g *Gateway) fail(err error) {
	_, _ = fmt.Fprintf(g.options.Stderr, "Error: elevation failed: %v\n", err)
	_, _ = fmt.Fprintln(g.options.Stderr, "Make sure polkit is installed. You can also try: sudo dmcp ...")
	g.options.Exit(1)
}

// preservedEnv returns KEY=VALUE entries for the preserved variables which are set.
func (g *Gateway) preservedEnv() []string {
	var env []string
	for _, name := range g.options.PreserveEnv {
		if v, ok := g.options.LookupEnv(name); ok {
			env = append(env, name+"="+v)
		}
	}
	return env
}

// GatewayOptions configures a Gateway.
// NewGatewayOptions should be used to create instances of GatewayOptions.
type GatewayOptions struct {
	// Args are the command line arguments (excluding the program name) to relaunch with.
	Args []string

	// PreserveEnv names the environment variables forwarded to the elevated process.
	PreserveEnv []string

	Executable func() (string, error)
	LookupEnv  func(string) (string, bool)
	Exit       func(int)
	Stderr     io.Writer
}

// GatewayOption defines a functional option for configuring GatewayOptions.
type GatewayOption func(*GatewayOptions) error

// NewGatewayOptions creates GatewayOptions from the current process, then applies opts in order.
func NewGatewayOptions(opt ...GatewayOption) (GatewayOptions, error) {
	opts := GatewayOptions{
		Args:        os.Args[1:],
		PreserveEnv: DefaultPreservedEnv(),
		Executable:  os.Executable,
		LookupEnv:   os.LookupEnv,
		Exit:        os.Exit,
		Stderr:      os.Stderr,
	}

	for _, o := range opt {
		if o == nil {
			continue
		}
		if err := o(&opts); err != nil {
			return GatewayOptions{}, err
		}
	}

	return opts, nil
}

// DefaultPreservedEnv returns the variables which locate the invoking user's home and XDG directories.
func DefaultPreservedEnv() []string {
	return []string{"HOME", "XDG_CONFIG_HOME", "XDG_DATA_HOME"}
}

// WithArgs sets the arguments to relaunch with.
func WithArgs(args []string) GatewayOption {
	return func(o *GatewayOptions) error {
		o.Args = args
		return nil
	}
}

// WithPreservedEnv adds environment variable names to forward to the elevated process.
func WithPreservedEnv(names ...string) GatewayOption {
	return func(o *GatewayOptions) error {
		o.PreserveEnv = append(o.PreserveEnv, names...)
		return nil
	}
}

// WithExecutable sets the function used to locate the running executable.
func WithExecutable(fn func() (string, error)) GatewayOption {
	return func(o *GatewayOptions) error {
		if fn == nil {
			return fmt.Errorf("executable function cannot be nil")
		}
		o.Executable = fn
		return nil
	}
}

// WithLookupEnv sets the function used to read environment variables.
func WithLookupEnv(fn func(string) (string, bool)) GatewayOption {
	return func(o *GatewayOptions) error {
		if fn == nil {
			return fmt.Errorf("lookup env function cannot be nil")
		}
		o.LookupEnv = fn
		return nil
	}
}

// WithExit sets the function called with the final exit status.
func WithExit(fn func(int)) GatewayOption {
	return func(o *GatewayOptions) error {
		if fn == nil {
			return fmt.Errorf("exit function cannot be nil")
		}
		o.Exit = fn
		return nil
	}
}

// WithStderr sets where elevation failure guidance is written.
func WithStderr(w io.Writer) GatewayOption {
	return func(o *GatewayOptions) error {
		if w == nil {
			return fmt.Errorf("stderr writer cannot be nil")
		}
		o.Stderr = w
		return nil
	}
}
