package httpapi

import (
	"net/http"
	"strconv"

	"github.com/diskdevmgr/ddm/ddmerrors"
	"github.com/gorilla/mux"
)

var cmdDefragment = &Command{
	Path: "/v1/partitions/{id}/defragment",
	POST: postDefragment,
}

var cmdRepair = &Command{
	Path: "/v1/partitions/{id}/repair",
	POST: postRepair,
}

var cmdQueue = &Command{
	Path: "/v1/queues/{queue}",
	GET:  getQueue,
}

var cmdQueueProgress = &Command{
	Path: "/v1/queues/{queue}/progress",
	GET:  getQueueProgress,
}

var cmdQueuePause = &Command{
	Path: "/v1/queues/{queue}/pause",
	POST: postQueuePause,
}

var cmdQueueContinue = &Command{
	Path: "/v1/queues/{queue}/continue",
	POST: postQueueContinue,
}

var cmdQueueCancel = &Command{
	Path: "/v1/queues/{queue}/cancel",
	POST: postQueueCancel,
}

func queueParam(r *http.Request) (int64, error) {
	v := mux.Vars(r)["queue"]
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, ddmerrors.New(ddmerrors.BadValue, "queue must be an integer, got %q", v)
	}
	return n, nil
}

func postDefragment(d *Daemon, r *http.Request) Response {
	partitionID, err := intParam(r, "id")
	if err != nil {
		return errorResponse(err)
	}
	deviceID, err := parseInt32Query(r, "device")
	if err != nil {
		return errorResponse(err)
	}
	queueID, err := d.api.DefragmentPartition(deviceID, partitionID, nil)
	if err != nil {
		return errorResponse(err)
	}
	return syncResponse(map[string]interface{}{"queue": queueID})
}

func postRepair(d *Daemon, r *http.Request) Response {
	partitionID, err := intParam(r, "id")
	if err != nil {
		return errorResponse(err)
	}
	deviceID, err := parseInt32Query(r, "device")
	if err != nil {
		return errorResponse(err)
	}
	checkOnly := r.URL.Query().Get("check_only") == "true"
	queueID, err := d.api.RepairPartition(deviceID, partitionID, checkOnly, nil)
	if err != nil {
		return errorResponse(err)
	}
	return syncResponse(map[string]interface{}{"queue": queueID})
}

func getQueue(d *Daemon, r *http.Request) Response {
	queueID, err := queueParam(r)
	if err != nil {
		return errorResponse(err)
	}
	jobs, err := d.api.GetDiskDeviceJobInfo(queueID)
	if err != nil {
		return errorResponse(err)
	}
	return syncResponse(jobs)
}

func getQueueProgress(d *Daemon, r *http.Request) Response {
	queueID, err := queueParam(r)
	if err != nil {
		return errorResponse(err)
	}
	status, err := d.api.GetDiskDeviceJobProgressInfo(queueID)
	if err != nil {
		return errorResponse(err)
	}
	return syncResponse(map[string]interface{}{"status": status.String()})
}

func postQueuePause(d *Daemon, r *http.Request) Response {
	queueID, err := queueParam(r)
	if err != nil {
		return errorResponse(err)
	}
	if err := d.api.PauseDiskDeviceJob(queueID); err != nil {
		return errorResponse(err)
	}
	return syncResponse(nil)
}

func postQueueContinue(d *Daemon, r *http.Request) Response {
	queueID, err := queueParam(r)
	if err != nil {
		return errorResponse(err)
	}
	if err := d.api.ContinueDiskDeviceJob(queueID); err != nil {
		return errorResponse(err)
	}
	return syncResponse(nil)
}

func postQueueCancel(d *Daemon, r *http.Request) Response {
	queueID, err := queueParam(r)
	if err != nil {
		return errorResponse(err)
	}
	reverse := r.URL.Query().Get("reverse") == "true"
	if err := d.api.CancelDiskDeviceJob(queueID, reverse); err != nil {
		return errorResponse(err)
	}
	return syncResponse(nil)
}
