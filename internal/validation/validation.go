// Package validation checks command-line inputs before any work starts.
package validation

import (
	"fmt"
	"os"
	"strings"
)

// IsValidPath checks that path exists and is a regular file or a directory.
func IsValidPath(path string) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("path is empty")
	}
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return fmt.Errorf("path does not exist: %s", path)
	}
	if err != nil {
		return fmt.Errorf("error checking path %s: %w", path, err)
	}

	if !info.IsDir() && !info.Mode().IsRegular() {
		return fmt.Errorf("path %s is neither a file nor a directory", path)
	}

	return nil
}

// IsValidOutputFormat checks format against the supported list, ignoring case.
// An empty format is accepted and means the command's default.
func IsValidOutputFormat(format string, supported ...string) error {
	if format == "" {
		return nil
	}
	for _, s := range supported {
		if strings.EqualFold(format, s) {
			return nil
		}
	}
	return fmt.Errorf("unsupported output format: %s. Supported formats are '%s'", format, strings.Join(supported, "', '"))
}

// IsValidFilePermissions rejects modes that give other users any access.
// Config files may hold tokens and connection strings.
func IsValidFilePermissions(mode os.FileMode) error {
	if mode&0007 != 0 {
		return fmt.Errorf("file permissions are too permissive: %s. Recommended 0600 or 0640", mode.Perm().String())
	}
	return nil
}
