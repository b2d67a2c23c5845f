// Copyright © 2018 Intel Corporation
//
// SPDX-License-Identifier: GPL-3.0-only

// Package utils holds small generic helpers shared across the daemon
// and its clients that don't belong to any one domain package.
package utils

import (
	"fmt"
	"os"
	"os/user"
	"path"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"
	"unsafe"

	"github.com/diskdevmgr/ddm/ddmerrors"
)

// MkdirAll is os.MkdirAll but is a no-op (and returns nil) when path
// already exists.
func MkdirAll(path string, perm os.FileMode) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	if err := os.MkdirAll(path, perm); err != nil {
		return ddmerrors.Errorf("mkdir %s: %v", path, err)
	}

	return nil
}

// CopyFile copies src to dest, preserving src's permission bits.
func CopyFile(src string, dest string) error {
	destDir := filepath.Dir(dest)

	srcInfo, err := os.Stat(src)
	if err != nil {
		if os.IsNotExist(err) {
			return ddmerrors.New(ddmerrors.NotFound, "no such file: %s", src)
		}
		return ddmerrors.Wrap(err)
	}

	if _, err = os.Stat(destDir); err != nil {
		if os.IsNotExist(err) {
			return ddmerrors.New(ddmerrors.NotFound, "no such dest directory: %s", destDir)
		}
		return ddmerrors.Wrap(err)
	}

	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}

	return os.WriteFile(dest, data, srcInfo.Mode()&os.ModePerm)
}

// FileExists reports whether filePath exists. It returns a non-nil
// error only for failures other than "not found".
func FileExists(filePath string) (bool, error) {
	_, err := os.Stat(filePath)
	if err == nil {
		return true, nil
	}

	if os.IsNotExist(err) {
		return false, nil
	}

	return true, err
}

// VerifyRootUser returns a non-empty error message if the current
// process is not running as root.
func VerifyRootUser() string {
	progName := path.Base(os.Args[0])

	u, err := user.Current()
	if err != nil {
		return fmt.Sprintf("%s must run as the 'root' user (user=UNKNOWN)", progName)
	}

	if u.Uid != "0" {
		return fmt.Sprintf("%s must run as the 'root' user (user=%s)", progName, u.Uid)
	}

	return ""
}

// IsRoot reports whether the current user is root (UID 0).
func IsRoot() bool {
	u, err := user.Current()
	return err == nil && u.Uid == "0"
}

// StringSliceContains reports whether sl contains str.
func StringSliceContains(sl []string, str string) bool {
	for _, curr := range sl {
		if curr == str {
			return true
		}
	}
	return false
}

// IntSliceContains reports whether is contains value.
func IntSliceContains(is []int, value int) bool {
	for _, curr := range is {
		if curr == value {
			return true
		}
	}
	return false
}

// IsCheckCoverage reports whether the CHECK_COVERAGE environment
// variable is set.
func IsCheckCoverage() bool {
	return os.Getenv("CHECK_COVERAGE") != ""
}

// IsStdoutTTY reports whether stdout is attached to a terminal.
func IsStdoutTTY() bool {
	var termios syscall.Termios

	fd := os.Stdout.Fd()
	ptr := uintptr(unsafe.Pointer(&termios))
	_, _, err := syscall.Syscall6(syscall.SYS_IOCTL, fd, syscall.TCGETS, ptr, 0, 0, 0)

	return err == 0
}

// ExpandVariables replaces every occurrence of $var and ${var} in str
// with the value vars holds for var; names match case-sensitively, and
// str is returned unchanged if none match.
func ExpandVariables(vars map[string]string, str string) string {
	for k, v := range vars {
		for _, rep := range []string{fmt.Sprintf("$%s", k), fmt.Sprintf("${%s}", k)} {
			str = strings.ReplaceAll(str, rep, v)
		}
	}

	return str
}

// GOOS reports the runtime's operating system, exposed here so plugins
// can gate OS-specific behavior without importing "runtime" directly.
func GOOS() string {
	return runtime.GOOS
}
