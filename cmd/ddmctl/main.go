// Command ddmctl is a scriptable one-shot client for ddmd's boundary
// API: each invocation runs a single subcommand against the unix
// socket and exits, making it suitable for shell scripts and systemd
// unit ExecStartPre/Post hooks rather than interactive use (that's
// ddmtop's job).
package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/diskdevmgr/ddm/args"
	"github.com/diskdevmgr/ddm/ddmclient"
	"github.com/diskdevmgr/ddm/ddmlog"
	"github.com/diskdevmgr/ddm/serialize"
)

type command func(c *ddmclient.Client, operands []string) error

var commands = map[string]command{
	"list":           cmdList,
	"show":           cmdShow,
	"shadow":         cmdShadow,
	"commit":         cmdCommit,
	"cancel":         cmdCancel,
	"set-name":       cmdSetName,
	"set-type":       cmdSetType,
	"set-parameters": cmdSetParameters,
	"resize":         cmdResize,
	"create-child":   cmdCreateChild,
	"delete-child":   cmdDeleteChild,
	"defragment":     cmdDefragment,
	"queue-status":   cmdQueueStatus,
	"queue-pause":    cmdQueuePause,
	"queue-continue": cmdQueueContinue,
	"queue-cancel":   cmdQueueCancel,
}

func main() {
	a, err := args.ParseClientArgs()
	if err != nil {
		fmt.Fprintf(os.Stderr, "ddmctl: %v\n", err)
		os.Exit(1)
	}

	if a.Verbose {
		ddmlog.SetLevel(ddmlog.LevelVerbose)
	}

	if len(a.Args) == 0 {
		fmt.Fprintln(os.Stderr, "ddmctl: usage: ddmctl [flags] <command> [args...]")
		fmt.Fprintln(os.Stderr, "commands:", commandNames())
		os.Exit(2)
	}

	cmd, ok := commands[a.Args[0]]
	if !ok {
		fmt.Fprintf(os.Stderr, "ddmctl: unknown command %q\ncommands: %s\n", a.Args[0], commandNames())
		os.Exit(2)
	}

	client := ddmclient.NewClient(a.SocketFile)
	if err := cmd(client, a.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "ddmctl: %s: %v\n", a.Args[0], err)
		os.Exit(1)
	}
}

func commandNames() string {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	return fmt.Sprint(names)
}

func parseInt32(s string) (int32, error) {
	v, err := strconv.ParseInt(s, 10, 32)
	return int32(v), err
}

func parseInt64(s string) (int64, error) {
	return strconv.ParseInt(s, 10, 64)
}

func cmdList(c *ddmclient.Client, operands []string) error {
	ids, err := c.ListDevices()
	if err != nil {
		return err
	}
	for _, id := range ids {
		fmt.Println(id)
	}
	return nil
}

func printTree(n *serialize.Node, depth int) {
	indent := ""
	for i := 0; i < depth; i++ {
		indent += "  "
	}
	fmt.Printf("%s[%d] %s type=%s size=%d offset=%d status=%s\n",
		indent, n.ID, n.Name, n.Type, n.Size, n.Offset, n.Status)
	for _, child := range n.Children {
		printTree(child, depth+1)
	}
}

func cmdShow(c *ddmclient.Client, operands []string) error {
	if len(operands) < 1 {
		return fmt.Errorf("usage: show <device-id> [shadow]")
	}
	deviceID, err := parseInt32(operands[0])
	if err != nil {
		return err
	}
	shadow := len(operands) > 1 && operands[1] == "shadow"

	tree, err := c.GetDeviceTree(deviceID, shadow)
	if err != nil {
		return err
	}
	printTree(tree, 0)
	return nil
}

func cmdShadow(c *ddmclient.Client, operands []string) error {
	if len(operands) < 1 {
		return fmt.Errorf("usage: shadow <device-id>")
	}
	deviceID, err := parseInt32(operands[0])
	if err != nil {
		return err
	}
	teamID, err := c.PrepareModifications(deviceID)
	if err != nil {
		return err
	}
	fmt.Println(teamID)
	return nil
}

func cmdCommit(c *ddmclient.Client, operands []string) error {
	if len(operands) < 2 {
		return fmt.Errorf("usage: commit <device-id> <team-id>")
	}
	deviceID, err := parseInt32(operands[0])
	if err != nil {
		return err
	}
	teamID, err := parseInt64(operands[1])
	if err != nil {
		return err
	}
	return c.CommitModifications(deviceID, teamID)
}

func cmdCancel(c *ddmclient.Client, operands []string) error {
	if len(operands) < 1 {
		return fmt.Errorf("usage: cancel <team-id>")
	}
	teamID, err := parseInt64(operands[0])
	if err != nil {
		return err
	}
	return c.CancelModifications(teamID)
}

func parseNodeEdit(operands []string) (teamID int64, nodeID int32, counter int64, value string, err error) {
	if len(operands) < 4 {
		err = fmt.Errorf("usage: <team-id> <node-id> <counter> <value>")
		return
	}
	if teamID, err = parseInt64(operands[0]); err != nil {
		return
	}
	if nodeID, err = parseInt32(operands[1]); err != nil {
		return
	}
	if counter, err = parseInt64(operands[2]); err != nil {
		return
	}
	value = operands[3]
	return
}

func cmdSetName(c *ddmclient.Client, operands []string) error {
	teamID, nodeID, counter, value, err := parseNodeEdit(operands)
	if err != nil {
		return err
	}
	return c.SetName(teamID, nodeID, counter, value)
}

func cmdSetType(c *ddmclient.Client, operands []string) error {
	teamID, nodeID, counter, value, err := parseNodeEdit(operands)
	if err != nil {
		return err
	}
	return c.SetType(teamID, nodeID, counter, value)
}

func cmdSetParameters(c *ddmclient.Client, operands []string) error {
	teamID, nodeID, counter, value, err := parseNodeEdit(operands)
	if err != nil {
		return err
	}
	return c.SetParameters(teamID, nodeID, counter, value)
}

func cmdResize(c *ddmclient.Client, operands []string) error {
	teamID, nodeID, counter, value, err := parseNodeEdit(operands)
	if err != nil {
		return err
	}
	size, err := parseInt64(value)
	if err != nil {
		return err
	}
	return c.Resize(teamID, nodeID, counter, size)
}

func cmdCreateChild(c *ddmclient.Client, operands []string) error {
	if len(operands) < 6 {
		return fmt.Errorf("usage: create-child <team-id> <parent-id> <counter> <offset> <size> <type> [parameters]")
	}
	teamID, err := parseInt64(operands[0])
	if err != nil {
		return err
	}
	parentID, err := parseInt32(operands[1])
	if err != nil {
		return err
	}
	counter, err := parseInt64(operands[2])
	if err != nil {
		return err
	}
	offset, err := parseInt64(operands[3])
	if err != nil {
		return err
	}
	size, err := parseInt64(operands[4])
	if err != nil {
		return err
	}
	typ := operands[5]
	params := ""
	if len(operands) > 6 {
		params = operands[6]
	}
	id, err := c.CreateChildPartition(teamID, parentID, counter, offset, size, typ, params)
	if err != nil {
		return err
	}
	fmt.Println(id)
	return nil
}

func cmdDeleteChild(c *ddmclient.Client, operands []string) error {
	if len(operands) < 4 {
		return fmt.Errorf("usage: delete-child <team-id> <parent-id> <counter> <index>")
	}
	teamID, err := parseInt64(operands[0])
	if err != nil {
		return err
	}
	parentID, err := parseInt32(operands[1])
	if err != nil {
		return err
	}
	counter, err := parseInt64(operands[2])
	if err != nil {
		return err
	}
	index, err := strconv.Atoi(operands[3])
	if err != nil {
		return err
	}
	return c.DeleteChildPartition(teamID, parentID, counter, index)
}

func cmdDefragment(c *ddmclient.Client, operands []string) error {
	if len(operands) < 2 {
		return fmt.Errorf("usage: defragment <device-id> <partition-id>")
	}
	deviceID, err := parseInt32(operands[0])
	if err != nil {
		return err
	}
	partitionID, err := parseInt32(operands[1])
	if err != nil {
		return err
	}
	queueID, err := c.DefragmentPartition(deviceID, partitionID)
	if err != nil {
		return err
	}
	fmt.Println(queueID)
	return nil
}

func cmdQueueStatus(c *ddmclient.Client, operands []string) error {
	if len(operands) < 1 {
		return fmt.Errorf("usage: queue-status <queue-id>")
	}
	queueID, err := parseInt64(operands[0])
	if err != nil {
		return err
	}
	status, err := c.QueueProgress(queueID)
	if err != nil {
		return err
	}
	fmt.Println(status)
	return nil
}

func cmdQueuePause(c *ddmclient.Client, operands []string) error {
	if len(operands) < 1 {
		return fmt.Errorf("usage: queue-pause <queue-id>")
	}
	queueID, err := parseInt64(operands[0])
	if err != nil {
		return err
	}
	return c.PauseQueue(queueID)
}

func cmdQueueContinue(c *ddmclient.Client, operands []string) error {
	if len(operands) < 1 {
		return fmt.Errorf("usage: queue-continue <queue-id>")
	}
	queueID, err := parseInt64(operands[0])
	if err != nil {
		return err
	}
	return c.ContinueQueue(queueID)
}

func cmdQueueCancel(c *ddmclient.Client, operands []string) error {
	if len(operands) < 1 {
		return fmt.Errorf("usage: queue-cancel <queue-id> [reverse]")
	}
	queueID, err := parseInt64(operands[0])
	if err != nil {
		return err
	}
	reverse := len(operands) > 1 && operands[1] == "reverse"
	return c.CancelQueue(queueID, reverse)
}
