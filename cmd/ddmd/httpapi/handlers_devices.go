package httpapi

import (
	"net/http"
	"strconv"

	"github.com/diskdevmgr/ddm/ddmerrors"
	"github.com/diskdevmgr/ddm/serialize"
	"github.com/gorilla/mux"
)

var cmdDevices = &Command{
	Path: "/v1/devices",
	GET:  getDevices,
	POST: postDevices,
}

var cmdDevice = &Command{
	Path:   "/v1/devices/{id}",
	GET:    getDevice,
	DELETE: deleteDevice,
}

var cmdPartitionFind = &Command{
	Path: "/v1/partitions/find",
	GET:  findPartition,
}

var cmdDeviceFind = &Command{
	Path: "/v1/devices/find",
	GET:  findDevice,
}

var cmdPartitionableSpaces = &Command{
	Path: "/v1/partitions/{id}/partitionable-spaces",
	GET:  getPartitionableSpaces,
}

var cmdFileDevices = &Command{
	Path: "/v1/file-devices",
	POST: postFileDevice,
}

var cmdFileDevice = &Command{
	Path: "/v1/file-devices/{id}",
	PUT:  putUnregisterFileDevice,
}

func intParam(r *http.Request, name string) (int32, error) {
	v := mux.Vars(r)[name]
	n, err := strconv.ParseInt(v, 10, 32)
	if err != nil {
		return 0, ddmerrors.New(ddmerrors.BadValue, "%s must be an integer, got %q", name, v)
	}
	return int32(n), nil
}

func getDevices(d *Daemon, r *http.Request) Response {
	cookie := d.api.NewDeviceCookie()
	var ids []int32
	for {
		id, ok := d.api.GetNextDiskDeviceID(cookie)
		if !ok {
			break
		}
		ids = append(ids, id)
	}
	return syncResponse(ids)
}

func postDevices(d *Daemon, r *http.Request) Response {
	path := r.URL.Query().Get("path")
	if path == "" {
		return errorResponse(ddmerrors.New(ddmerrors.BadValue, "path is required"))
	}
	id, created, err := d.api.CreateDiskDevice(path)
	if err != nil {
		return errorResponse(err)
	}
	return syncResponse(map[string]interface{}{"id": id, "created": created})
}

func getDevice(d *Daemon, r *http.Request) Response {
	id, err := intParam(r, "id")
	if err != nil {
		return errorResponse(err)
	}
	deviceOnly := r.URL.Query().Get("device_only") == "true"
	wantShadow := r.URL.Query().Get("shadow") == "true"
	return respondWithSize(r, func() (interface{}, error) {
		tree, err := d.api.GetDiskDeviceData(id, deviceOnly, wantShadow)
		if err != nil {
			return nil, err
		}
		return serialize.ToNode(tree), nil
	})
}

func findDevice(d *Daemon, r *http.Request) Response {
	path := r.URL.Query().Get("path")
	if path == "" {
		return errorResponse(ddmerrors.New(ddmerrors.BadValue, "path is required"))
	}
	id, err := d.api.FindDiskDevice(path)
	if err != nil {
		return errorResponse(err)
	}
	return syncResponse(map[string]interface{}{"id": id})
}

func deleteDevice(d *Daemon, r *http.Request) Response {
	id, err := intParam(r, "id")
	if err != nil {
		return errorResponse(err)
	}
	if err := d.api.DeleteDiskDevice(id); err != nil {
		return errorResponse(err)
	}
	return syncResponse(nil)
}

func findPartition(d *Daemon, r *http.Request) Response {
	path := r.URL.Query().Get("path")
	if path == "" {
		return errorResponse(ddmerrors.New(ddmerrors.BadValue, "path is required"))
	}
	id, err := d.api.FindPartition(path)
	if err != nil {
		return errorResponse(err)
	}
	return syncResponse(map[string]interface{}{"id": id})
}

func getPartitionableSpaces(d *Daemon, r *http.Request) Response {
	id, err := intParam(r, "id")
	if err != nil {
		return errorResponse(err)
	}
	counter, err := strconv.ParseInt(r.URL.Query().Get("counter"), 10, 64)
	if err != nil {
		return errorResponse(ddmerrors.New(ddmerrors.BadValue, "counter must be an integer"))
	}
	spaces, err := d.api.GetPartitionableSpaces(id, counter)
	if err != nil {
		return errorResponse(err)
	}
	return syncResponse(spaces)
}

func postFileDevice(d *Daemon, r *http.Request) Response {
	path := r.URL.Query().Get("path")
	if path == "" {
		return errorResponse(ddmerrors.New(ddmerrors.BadValue, "path is required"))
	}
	id, err := d.api.RegisterFileDevice(path)
	if err != nil {
		return errorResponse(err)
	}
	return syncResponse(map[string]interface{}{"id": id})
}

func putUnregisterFileDevice(d *Daemon, r *http.Request) Response {
	id, err := intParam(r, "id")
	if err != nil {
		return errorResponse(err)
	}
	if r.URL.Query().Get("action") != "unregister" {
		return errorResponse(ddmerrors.New(ddmerrors.BadValue, "unsupported action"))
	}
	if err := d.api.UnregisterFileDevice(id); err != nil {
		return errorResponse(err)
	}
	return syncResponse(nil)
}
