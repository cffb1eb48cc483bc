// Package fileutil holds small file helpers used when staging merge inputs.
package fileutil

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// CopyFile copies src to dst, creating dst's parent directories and keeping the
// source permissions.
func CopyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return err
	}

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	// OpenFile's mode is filtered by the umask; set it explicitly.
	return os.Chmod(dst, info.Mode().Perm())
}

// AppendLine appends one line to path, creating it if needed. The line is
// written with a single call so concurrent appenders do not interleave.
func AppendLine(path, line string) error {
	if strings.ContainsAny(line, "\r\n") {
		return fmt.Errorf("line contains a line break: %q", line)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		return err
	}
	if _, err := f.WriteString(line + "\n"); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
