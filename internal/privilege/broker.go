package privilege

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/hashicorp/go-hclog"

	dmcperrors "github.com/dmcp-project/dmcp/internal/errors"
)

// DefaultBrokerProgram is the elevation broker used when none is configured.
const DefaultBrokerProgram = "pkexec"

// Runner runs an Operation with elevated privileges and reports its exit status.
// A non-nil error means the operation could not be run at all.
type Runner interface {
	Run(ctx context.Context, op Operation) (int, error)
}

// Broker is a Runner which prefixes each operation with an elevation program such as pkexec.
// NewBroker should be used to create instances of Broker.
type Broker struct {
	program string
	logger  hclog.Logger
	stdin   io.Reader
	stdout  io.Writer
	stderr  io.Writer
}

// NewBroker returns a Broker running operations under program (DefaultBrokerProgram when empty).
// The child process inherits the standard streams so the broker can prompt for authentication.
func NewBroker(program string, logger hclog.Logger) *Broker {
	program = strings.TrimSpace(program)
	if program == "" {
		program = DefaultBrokerProgram
	}
	if logger == nil {
		logger = hclog.NewNullLogger()
	}

	return &Broker{
		program: program,
		logger:  logger.Named("broker"),
		stdin:   os.Stdin,
		stdout:  os.Stdout,
		stderr:  os.Stderr,
	}
}

// Program returns the broker executable.
func (b *Broker) Program() string {
	return b.program
}

// Run executes the operation synchronously and returns the child's exit code.
func (b *Broker) Run(ctx context.Context, op Operation) (int, error) {
	argv := op.Argv()
	b.logger.Debug("Running elevated operation", "broker", b.program, "argv", argv)

	cmd := exec.CommandContext(ctx, b.program, argv...)
	cmd.Stdin = b.stdin
	cmd.Stdout = b.stdout
	cmd.Stderr = b.stderr

	err := cmd.Run()
	if err == nil {
		return 0, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		b.logger.Debug("Elevated operation exited", "broker", b.program, "code", exitErr.ExitCode())
		return exitErr.ExitCode(), nil
	}

	return -1, fmt.Errorf("%w: %s: %w", dmcperrors.ErrExternalProcess, b.program, err)
}
