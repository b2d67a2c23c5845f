package httpapi

import (
	"net/http"
	"strconv"

	"github.com/diskdevmgr/ddm/ddmerrors"
	"github.com/diskdevmgr/ddm/disksystem"
	"github.com/gorilla/mux"
)

var cmdShadow = &Command{
	Path: "/v1/devices/{id}/shadow",
	POST: postPrepareModifications,
}

var cmdTeam = &Command{
	Path:   "/v1/teams/{team}",
	POST:   postCommitModifications,
	DELETE: deleteCancelModifications,
}

var cmdTeamModified = &Command{
	Path: "/v1/devices/{id}/modified",
	GET:  getIsModified,
}

var cmdNodeValidate = &Command{
	Path: "/v1/teams/{team}/nodes/{node}/validate",
	POST: postValidateEdit,
}

var cmdNodeEdit = &Command{
	Path: "/v1/teams/{team}/nodes/{node}/edit",
	POST: postApplyEdit,
}

var cmdChildren = &Command{
	Path: "/v1/teams/{team}/nodes/{node}/children",
	POST: postCreateChildPartition,
}

var cmdChild = &Command{
	Path:   "/v1/teams/{team}/nodes/{node}/children/{index}",
	DELETE: deleteChildPartition,
}

func teamParam(r *http.Request) (int64, error) {
	v := mux.Vars(r)["team"]
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, ddmerrors.New(ddmerrors.BadValue, "team must be an integer, got %q", v)
	}
	return n, nil
}

func nodeParam(r *http.Request) (int32, error) {
	v := mux.Vars(r)["node"]
	n, err := strconv.ParseInt(v, 10, 32)
	if err != nil {
		return 0, ddmerrors.New(ddmerrors.BadValue, "node must be an integer, got %q", v)
	}
	return int32(n), nil
}

func postPrepareModifications(d *Daemon, r *http.Request) Response {
	id, err := intParam(r, "id")
	if err != nil {
		return errorResponse(err)
	}
	teamID, err := d.api.PrepareDiskDeviceModifications(id)
	if err != nil {
		return errorResponse(err)
	}
	return syncResponse(map[string]interface{}{"team": teamID})
}

func postCommitModifications(d *Daemon, r *http.Request) Response {
	deviceID, err := parseInt32Query(r, "device")
	if err != nil {
		return errorResponse(err)
	}
	teamID, err := teamParam(r)
	if err != nil {
		return errorResponse(err)
	}
	if err := d.api.CommitDiskDeviceModifications(deviceID, teamID, nil); err != nil {
		return errorResponse(err)
	}
	return syncResponse(map[string]interface{}{"team": teamID})
}

func deleteCancelModifications(d *Daemon, r *http.Request) Response {
	teamID, err := teamParam(r)
	if err != nil {
		return errorResponse(err)
	}
	if err := d.api.CancelDiskDeviceModifications(teamID); err != nil {
		return errorResponse(err)
	}
	return syncResponse(nil)
}

func getIsModified(d *Daemon, r *http.Request) Response {
	id, err := intParam(r, "id")
	if err != nil {
		return errorResponse(err)
	}
	modified, err := d.api.IsDiskDeviceModified(id)
	if err != nil {
		return errorResponse(err)
	}
	return syncResponse(map[string]interface{}{"modified": modified})
}

// editRequest is the wire shape of a typed-mutator or validate_* call
// (spec §6.2): the aspect being touched (op), the node's presented
// change counter, and whichever of the named fields that aspect reads.
type editRequest struct {
	Op      string `json:"op"`
	Counter int64  `json:"counter"`

	Name              string `json:"name,omitempty"`
	Type              string `json:"type,omitempty"`
	Parameters        string `json:"parameters,omitempty"`
	ContentName       string `json:"content_name,omitempty"`
	ContentParameters string `json:"content_parameters,omitempty"`
	Offset            int64  `json:"offset,omitempty"`
	Size              int64  `json:"size,omitempty"`
	ChildIndex        int    `json:"child_index,omitempty"`
	CheckOnly         bool   `json:"check_only,omitempty"`
}

func (er editRequest) params() *disksystem.Params {
	return &disksystem.Params{
		Offset:            er.Offset,
		Size:              er.Size,
		ChildIndex:        er.ChildIndex,
		Name:              er.Name,
		Type:              er.Type,
		Parameters:        er.Parameters,
		ContentName:       er.ContentName,
		ContentParameters: er.ContentParameters,
		CheckOnly:         er.CheckOnly,
	}
}

func postValidateEdit(d *Daemon, r *http.Request) Response {
	teamID, err := teamParam(r)
	if err != nil {
		return errorResponse(err)
	}
	nodeID, err := nodeParam(r)
	if err != nil {
		return errorResponse(err)
	}
	var req editRequest
	if err := decodeJSON(r, &req); err != nil {
		return errorResponse(err)
	}
	op, err := parseOperation(req.Op)
	if err != nil {
		return errorResponse(err)
	}
	params := req.params()
	if err := d.api.ValidateEdit(teamID, nodeID, op, params); err != nil {
		return errorResponse(err)
	}
	return syncResponse(params)
}

func postApplyEdit(d *Daemon, r *http.Request) Response {
	teamID, err := teamParam(r)
	if err != nil {
		return errorResponse(err)
	}
	nodeID, err := nodeParam(r)
	if err != nil {
		return errorResponse(err)
	}
	var req editRequest
	if err := decodeJSON(r, &req); err != nil {
		return errorResponse(err)
	}

	var applyErr error
	switch req.Op {
	case "set_name":
		applyErr = d.api.SetPartitionName(teamID, nodeID, req.Counter, req.Name)
	case "set_type":
		applyErr = d.api.SetPartitionType(teamID, nodeID, req.Counter, req.Type)
	case "set_parameters":
		applyErr = d.api.SetPartitionParameters(teamID, nodeID, req.Counter, req.Parameters)
	case "set_content_name":
		applyErr = d.api.SetContentName(teamID, nodeID, req.Counter, req.ContentName)
	case "set_content_parameters":
		applyErr = d.api.SetContentParameters(teamID, nodeID, req.Counter, req.ContentParameters)
	case "resize":
		applyErr = d.api.ResizePartition(teamID, nodeID, req.Counter, req.Size)
	case "resize_content":
		applyErr = d.api.ResizeContent(teamID, nodeID, req.Counter, req.Size)
	case "move":
		applyErr = d.api.MovePartition(teamID, nodeID, req.Counter, req.Offset)
	case "initialize":
		applyErr = d.api.InitializePartition(teamID, nodeID, req.Counter, req.Type, req.ContentName, req.ContentParameters)
	case "uninitialize":
		applyErr = d.api.UninitializePartition(teamID, nodeID, req.Counter)
	default:
		return errorResponse(ddmerrors.New(ddmerrors.BadValue, "unknown edit op %q", req.Op))
	}
	if applyErr != nil {
		return errorResponse(applyErr)
	}
	return syncResponse(nil)
}

func postCreateChildPartition(d *Daemon, r *http.Request) Response {
	teamID, err := teamParam(r)
	if err != nil {
		return errorResponse(err)
	}
	parentID, err := nodeParam(r)
	if err != nil {
		return errorResponse(err)
	}
	var req editRequest
	if err := decodeJSON(r, &req); err != nil {
		return errorResponse(err)
	}
	childID, err := d.api.CreateChildPartition(teamID, parentID, req.Counter, req.Offset, req.Size, req.Type, req.Parameters)
	if err != nil {
		return errorResponse(err)
	}
	return syncResponse(map[string]interface{}{"id": childID})
}

func deleteChildPartition(d *Daemon, r *http.Request) Response {
	teamID, err := teamParam(r)
	if err != nil {
		return errorResponse(err)
	}
	parentID, err := nodeParam(r)
	if err != nil {
		return errorResponse(err)
	}
	index, err := strconv.Atoi(mux.Vars(r)["index"])
	if err != nil {
		return errorResponse(ddmerrors.New(ddmerrors.BadValue, "index must be an integer"))
	}
	counter, err := parseInt64Query(r, "counter")
	if err != nil {
		return errorResponse(err)
	}
	if err := d.api.DeletePartition(teamID, parentID, counter, index); err != nil {
		return errorResponse(err)
	}
	return syncResponse(nil)
}
