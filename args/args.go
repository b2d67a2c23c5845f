// Package args parses command-line flags for the ddmd daemon and its
// ddmctl/ddmtop clients.
package args

import (
	"fmt"

	flag "github.com/spf13/pflag"

	"github.com/diskdevmgr/ddm/conf"
	"github.com/diskdevmgr/ddm/ddmlog"
)

// DaemonArgs holds the parsed flags for the ddmd daemon.
type DaemonArgs struct {
	Version     bool
	Foreground  bool
	StateDir    string
	ModuleDir   string
	SocketFile  string
	LockFile    string
	LogFile     string
	LogLevel    int
	UseJournal  bool
	NoLockGuard bool
}

// ParseDaemonArgs parses os.Args into a DaemonArgs, filling in default
// resource paths from conf when the user didn't override them.
func ParseDaemonArgs() (*DaemonArgs, error) {
	a := &DaemonArgs{}

	stateDir, err := conf.LookupStateDir()
	if err != nil {
		return nil, err
	}
	moduleDir, err := conf.LookupModuleDir()
	if err != nil {
		return nil, err
	}

	flag.BoolVarP(&a.Version, "version", "v", false, "print the daemon version")
	flag.BoolVarP(&a.Foreground, "foreground", "f", false, "run in the foreground instead of daemonizing")
	flag.StringVar(&a.StateDir, "state-dir", stateDir, "runtime state directory (lock file, socket, layout cache)")
	flag.StringVar(&a.ModuleDir, "module-dir", moduleDir, "disk-system plugin search path")
	flag.StringVar(&a.SocketFile, "socket", "", "boundary API unix socket path (default <state-dir>/ddmd.sock)")
	flag.StringVar(&a.LockFile, "lock-file", "", "single-instance lock file path (default <state-dir>/ddmd.lock)")
	flag.StringVar(&a.LogFile, "log-file", "", "log file path (default <state-dir>/ddmd.log)")
	flag.IntVarP(&a.LogLevel, "log-level", "l", ddmlog.LevelInfo,
		fmt.Sprintf("%d (verbose) .. %d (error)", ddmlog.LevelVerbose, ddmlog.LevelError))
	flag.BoolVar(&a.UseJournal, "journal", true, "also mirror log entries to the systemd journal")
	flag.BoolVar(&a.NoLockGuard, "no-lock-guard", false, "skip the single-instance lock file guard (testing only)")

	flag.Parse()

	if a.SocketFile == "" {
		a.SocketFile = conf.SocketPath(a.StateDir)
	}
	if a.LockFile == "" {
		a.LockFile = conf.LockPath(a.StateDir)
	}
	if a.LogFile == "" {
		a.LogFile = conf.LogPath(a.StateDir)
	}

	return a, nil
}

// ClientArgs holds the parsed flags shared by ddmctl and ddmtop.
type ClientArgs struct {
	SocketFile string
	Verbose    bool
	Args       []string
}

// ParseClientArgs parses os.Args for a boundary API client.
func ParseClientArgs() (*ClientArgs, error) {
	a := &ClientArgs{}

	stateDir, err := conf.LookupStateDir()
	if err != nil {
		return nil, err
	}

	flag.StringVar(&a.SocketFile, "socket", conf.SocketPath(stateDir), "boundary API unix socket path")
	flag.BoolVarP(&a.Verbose, "verbose", "V", false, "enable verbose output")

	flag.Parse()
	a.Args = flag.Args()

	return a, nil
}
