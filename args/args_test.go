package args

import (
	"os"
	"testing"

	flag "github.com/spf13/pflag"
)

func resetFlags() {
	flag.CommandLine = flag.NewFlagSet(os.Args[0], flag.ExitOnError)
}

func TestParseDaemonArgsDefaults(t *testing.T) {
	resetFlags()
	os.Args = []string{"ddmd"}

	a, err := ParseDaemonArgs()
	if err != nil {
		t.Fatalf("ParseDaemonArgs: %v", err)
	}

	if a.SocketFile == "" || a.LockFile == "" || a.LogFile == "" {
		t.Errorf("expected default resource paths to be filled in, got %+v", a)
	}
	if a.Foreground {
		t.Error("expected Foreground=false by default")
	}
}

func TestParseDaemonArgsOverridesSocket(t *testing.T) {
	resetFlags()
	os.Args = []string{"ddmd", "--socket", "/tmp/custom.sock", "--foreground"}

	a, err := ParseDaemonArgs()
	if err != nil {
		t.Fatalf("ParseDaemonArgs: %v", err)
	}

	if a.SocketFile != "/tmp/custom.sock" {
		t.Errorf("SocketFile = %q, want /tmp/custom.sock", a.SocketFile)
	}
	if !a.Foreground {
		t.Error("expected Foreground=true")
	}
}

func TestParseClientArgs(t *testing.T) {
	resetFlags()
	os.Args = []string{"ddmctl", "-V", "list", "/"}

	a, err := ParseClientArgs()
	if err != nil {
		t.Fatalf("ParseClientArgs: %v", err)
	}

	if !a.Verbose {
		t.Error("expected Verbose=true")
	}
	if len(a.Args) != 2 || a.Args[0] != "list" || a.Args[1] != "/" {
		t.Errorf("Args = %v", a.Args)
	}
}
