// Package conf locates the daemon's on-disk resources: its disk-system
// module directory, log file, lock file and control socket.
package conf

import (
	"os"
	"path/filepath"
	"strings"
)

const (
	// LogFile is the daemon's default log file name.
	LogFile = "ddmd.log"

	// LockFile is the single-instance guard file name.
	LockFile = "ddmd.lock"

	// SocketFile is the boundary API's unix domain socket file name.
	SocketFile = "ddmd.sock"

	// ModuleDirName is the directory name, under the module search
	// path, holding disk-system plugin binaries/descriptors.
	ModuleDirName = "disk_systems"

	// DefaultStateDir is the system-wide default runtime state
	// directory when none is configured.
	DefaultStateDir = "/var/lib/ddm"

	// DefaultModuleDir is the system-wide default disk-system module
	// search path.
	DefaultModuleDir = "/usr/lib/ddm/disk_systems"

	// sourcePath is this module's path within a checked-out source tree,
	// used to find development resources when not installed.
	sourcePath = "src/github.com/diskdevmgr/ddm"
)

func isRunningFromSourceTree() (bool, string, error) {
	src, err := os.Executable()
	if err != nil {
		return false, src, err
	}
	src, err = filepath.Abs(filepath.Dir(src))
	if err != nil {
		return false, src, err
	}

	return !strings.HasPrefix(src, "/usr/bin") && !strings.HasPrefix(src, "/usr/sbin"), src, nil
}

func lookupDefaultDir(defaultDir, devSubdir string) (string, error) {
	isSourceTree, sourcePathAbs, err := isRunningFromSourceTree()
	if err != nil {
		return "", err
	}

	if isSourceTree {
		sourceRoot := strings.Replace(sourcePathAbs, "bin", filepath.Join(sourcePath, devSubdir), 1)
		return sourceRoot, nil
	}

	return defaultDir, nil
}

// LookupStateDir returns the runtime state directory (lock file,
// socket, persisted layout cache) to use when none was configured
// explicitly.
func LookupStateDir() (string, error) {
	return lookupDefaultDir(DefaultStateDir, "var")
}

// LookupModuleDir returns the disk-system plugin search path to use
// when none was configured explicitly.
func LookupModuleDir() (string, error) {
	return lookupDefaultDir(DefaultModuleDir, filepath.Join("etc", ModuleDirName))
}

// SocketPath joins stateDir with the boundary API socket file name.
func SocketPath(stateDir string) string {
	return filepath.Join(stateDir, SocketFile)
}

// LockPath joins stateDir with the single-instance lock file name.
func LockPath(stateDir string) string {
	return filepath.Join(stateDir, LockFile)
}

// LogPath joins stateDir with the default log file name.
func LogPath(stateDir string) string {
	return filepath.Join(stateDir, LogFile)
}
