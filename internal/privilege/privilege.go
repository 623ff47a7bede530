// Package privilege provides the narrow seam through which dmcp touches system-scope state
// without itself running as root: a capability check, a small set of operations which can be
// run under an elevation broker (pkexec by default), and relaunching the whole command elevated.
package privilege

import (
	"os"
	"strings"
)

// Checker reports whether the current process has elevated privileges.
type Checker interface {
	IsElevated() bool
}

// EffectiveUser checks elevation using the effective user ID of the process.
type EffectiveUser struct{}

// IsElevated returns true when the process runs as root.
func (EffectiveUser) IsElevated() bool {
	return os.Geteuid() == 0
}

// Fixed is a Checker with a predetermined answer.
type Fixed bool

// IsElevated returns the fixed value.
func (f Fixed) IsElevated() bool {
	return bool(f)
}

// Operation is a command which can be run under the elevation broker.
type Operation interface {
	// Argv returns the command line handed to the broker (excluding the broker itself).
	Argv() []string
}

// RelaunchSelf runs the dmcp executable again, with Env passed through env(1)
// so the elevated process resolves the invoking user's paths.
type RelaunchSelf struct {
	Executable string
	Args       []string
	// Env holds KEY=VALUE entries.
	Env []string
}

// CopyFile copies Src over Dst.
type CopyFile struct {
	Src string
	Dst string
}

// RemoveTree recursively removes Path.
type RemoveTree struct {
	Path string
}

func (o RelaunchSelf) Argv() []string {
	argv := make([]string, 0, 2+len(o.Env)+len(o.Args))
	argv = append(argv, "env")
	argv = append(argv, o.Env...)
	argv = append(argv, o.Executable)
	return append(argv, o.Args...)
}

func (o CopyFile) Argv() []string {
	return []string{"cp", o.Src, o.Dst}
}

func (o RemoveTree) Argv() []string {
	return []string{"rm", "-rf", o.Path}
}

func (o RelaunchSelf) String() string {
	return strings.Join(o.Argv(), " ")
}

func (o CopyFile) String() string {
	return strings.Join(o.Argv(), " ")
}

func (o RemoveTree) String() string {
	return strings.Join(o.Argv(), " ")
}
