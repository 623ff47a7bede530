// Package perms provides centralized file and directory permission constants
// for the on-disk install state managed by dmcp.
package perms

import "os"

// File permission constants.
const (
	// RegularFile permissions for files that every user may read (index, manifests, source lists).
	// Mode 0644: owner read/write, group read, others read.
	RegularFile os.FileMode = 0o644

	// SecureFile permissions for files that only the owner may read (the dmcp log file).
	// Temp files handed to the elevated copy stay RegularFile, since the copy takes their mode.
	// Mode 0600: owner read/write only, no group or other access.
	SecureFile os.FileMode = 0o600
)

// Directory permission constants.
const (
	// RegularDir permissions for install directories and their parents.
	// System scope installs are read by every user, so this is also used there.
	// Mode 0755: owner read/write/execute, group read/execute, others read/execute.
	RegularDir os.FileMode = 0o755

	// SecureDir permissions for private scratch directories (the staging root holding clones).
	// Mode 0700: owner read/write/execute only, no group or other access.
	SecureDir os.FileMode = 0o700
)
