package httpapi

import (
	"net/http"
	"strconv"

	"github.com/diskdevmgr/ddm/boundary"
	"github.com/diskdevmgr/ddm/ddmerrors"
	"github.com/diskdevmgr/ddm/disksystem"
)

var cmdDiskSystems = &Command{
	Path: "/v1/disk-systems",
	GET:  getDiskSystems,
}

var cmdDiskSystemFind = &Command{
	Path: "/v1/disk-systems/find",
	GET:  findDiskSystem,
}

var cmdSupports = &Command{
	Path: "/v1/partitions/{id}/supports",
	GET:  getSupports,
}

func getDiskSystems(d *Daemon, r *http.Request) Response {
	var infos []boundary.DiskSystemInfo
	cookie := d.api.NewDiskSystemCookie()
	for {
		info, ok, err := d.api.GetNextDiskSystemInfo(cookie)
		if err != nil {
			return errorResponse(err)
		}
		if !ok {
			break
		}
		infos = append(infos, info)
	}
	return syncResponse(infos)
}

func findDiskSystem(d *Daemon, r *http.Request) Response {
	name := r.URL.Query().Get("name")
	if name == "" {
		return errorResponse(ddmerrors.New(ddmerrors.BadValue, "name is required"))
	}
	info, err := d.api.FindDiskSystem(name)
	if err != nil {
		return errorResponse(err)
	}
	return syncResponse(info)
}

func getSupports(d *Daemon, r *http.Request) Response {
	id, err := intParam(r, "id")
	if err != nil {
		return errorResponse(err)
	}
	op, err := parseOperation(r.URL.Query().Get("op"))
	if err != nil {
		return errorResponse(err)
	}
	supported, whileMounted, err := d.api.Supports(id, op)
	if err != nil {
		return errorResponse(err)
	}
	return syncResponse(map[string]interface{}{
		"supported":     supported,
		"while_mounted": whileMounted,
	})
}

var operationNames = map[string]disksystem.Operation{
	"resize":                 disksystem.OpResize,
	"resize_child":           disksystem.OpResizeChild,
	"move":                   disksystem.OpMove,
	"move_child":             disksystem.OpMoveChild,
	"set_name":               disksystem.OpSetName,
	"set_content_name":       disksystem.OpSetContentName,
	"set_type":               disksystem.OpSetType,
	"set_parameters":         disksystem.OpSetParameters,
	"set_content_parameters": disksystem.OpSetContentParameters,
	"create_child":           disksystem.OpCreateChild,
	"delete_child":           disksystem.OpDeleteChild,
	"initialize":             disksystem.OpInitialize,
	"initialize_child":       disksystem.OpInitializeChild,
	"defragment":             disksystem.OpDefragment,
	"repair":                 disksystem.OpRepair,
}

func parseOperation(name string) (disksystem.Operation, error) {
	op, ok := operationNames[name]
	if !ok {
		return 0, ddmerrors.New(ddmerrors.BadValue, "unknown operation %q", name)
	}
	return op, nil
}

func parseInt64Query(r *http.Request, name string) (int64, error) {
	v := r.URL.Query().Get(name)
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, ddmerrors.New(ddmerrors.BadValue, "%s must be an integer, got %q", name, v)
	}
	return n, nil
}
