// Command ddmd is the disk device manager daemon: it owns the device
// and partition registry, loads the disk-system plugins this process
// ships, and serves boundary.API to ddmctl/ddmtop over a unix socket.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path"
	"syscall"
	"time"

	"github.com/nightlyone/lockfile"

	"github.com/diskdevmgr/ddm/args"
	"github.com/diskdevmgr/ddm/boundary"
	"github.com/diskdevmgr/ddm/cmd/ddmd/httpapi"
	"github.com/diskdevmgr/ddm/ddmlog"
	"github.com/diskdevmgr/ddm/diskplugins/extsim"
	"github.com/diskdevmgr/ddm/diskplugins/mbrsim"
	"github.com/diskdevmgr/ddm/disksystem"
	"github.com/diskdevmgr/ddm/manager"
	"github.com/diskdevmgr/ddm/notify"
)

var lock lockfile.Lockfile

func fatal(err error) {
	if lock != "" {
		if lErr := lock.Unlock(); lErr != nil {
			fmt.Printf("ddmd: cannot unlock %q, reason: %v\n", lock, lErr)
		}
	}
	ddmlog.ErrorError(err)
	os.Exit(1)
}

// registerBuiltinDiskSystems wires in the disk-system plugins this
// daemon ships, in priority order. There is no dynamic module loader:
// a plugin is a disksystem.DiskSystem value compiled into the binary.
func registerBuiltinDiskSystems(registry *disksystem.Registry) {
	registry.Register(mbrsim.New())
	registry.Register(extsim.New())
}

func main() {
	a, err := args.ParseDaemonArgs()
	if err != nil {
		fmt.Fprintf(os.Stderr, "ddmd: %v\n", err)
		os.Exit(1)
	}

	if a.Version {
		fmt.Println(path.Base(os.Args[0]) + ": ddmd")
		return
	}

	f, err := ddmlog.SetOutputFile(a.LogFile)
	if err != nil {
		fatal(err)
	}
	defer func() { _ = f.Close() }()

	ddmlog.SetLevel(a.LogLevel)
	ddmlog.UseJournal(a.UseJournal)
	ddmlog.Info("ddmd: starting, state dir %q, socket %q", a.StateDir, a.SocketFile)
	if !a.Foreground {
		// Go's runtime cannot safely fork(2) after it has started
		// threads, so --foreground=false relies on a process
		// supervisor (systemd, runit) to background and restart us
		// rather than ddmd daemonizing itself.
		ddmlog.Info("ddmd: not forking; expecting a process supervisor to background this unit")
	}

	if !a.NoLockGuard {
		lock, err = lockfile.New(a.LockFile)
		if err != nil {
			fmt.Printf("ddmd: cannot initialize lock %q, reason: %v\n", a.LockFile, err)
			os.Exit(1)
		}
		if err := lock.TryLock(); err != nil {
			fmt.Printf("ddmd: cannot lock %q, reason: %v\n", a.LockFile, err)
			os.Exit(1)
		}
		defer func() { _ = lock.Unlock() }()
	}

	if err := os.MkdirAll(a.StateDir, 0o755); err != nil {
		fatal(err)
	}

	registry := disksystem.NewRegistry()
	registerBuiltinDiskSystems(registry)

	bus := notify.NewBus()
	mgr := manager.New(a.StateDir, registry, bus)
	mgr.RescanDiskSystems()

	api := boundary.New(mgr, registry)
	daemon := httpapi.New(api, a.SocketFile)
	if err := daemon.Start(); err != nil {
		fatal(err)
	}

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	mediaCtx, stopMediaChecker := context.WithCancel(context.Background())
	go mgr.RunMediaChecker(mediaCtx, 5*time.Second)

	if err := ddmlog.NotifyReady(); err != nil {
		ddmlog.Warning("ddmd: notify ready: %v", err)
	}

	sig := <-sigs
	ddmlog.Info("ddmd: received %v, shutting down", sig)
	stopMediaChecker()

	if err := ddmlog.NotifyStopping(); err != nil {
		ddmlog.Warning("ddmd: notify stopping: %v", err)
	}
	if err := daemon.Stop(5 * time.Second); err != nil {
		ddmlog.Error("ddmd: shutdown: %v", err)
	}
}
