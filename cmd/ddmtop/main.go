// Command ddmtop is an interactive clui/termbox-go front end for
// ddmd's boundary API, browsing registered devices and editing their
// partition trees through a shadow team.
package main

import (
	"fmt"
	"os"

	"github.com/diskdevmgr/ddm/args"
	"github.com/diskdevmgr/ddm/ddmclient"
	"github.com/diskdevmgr/ddm/ddmlog"
	"github.com/diskdevmgr/ddm/tui"
)

func main() {
	a, err := args.ParseClientArgs()
	if err != nil {
		fmt.Fprintf(os.Stderr, "ddmtop: %v\n", err)
		os.Exit(1)
	}

	if a.Verbose {
		ddmlog.SetLevel(ddmlog.LevelVerbose)
	}

	client := ddmclient.NewClient(a.SocketFile)
	if err := tui.New(client).Run(); err != nil {
		fmt.Fprintf(os.Stderr, "ddmtop: %v\n", err)
		os.Exit(1)
	}
}
