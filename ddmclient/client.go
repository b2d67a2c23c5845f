// Package ddmclient is the shared boundary API client for every
// out-of-process consumer of ddmd: tui dials it for the interactive
// browser, ddmctl for scripted one-shot commands. Both get the same
// wire semantics (ddmerrors.Kind round-tripped over JSON) without
// either pulling in the other's dependencies.
package ddmclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/diskdevmgr/ddm/ddmerrors"
	"github.com/diskdevmgr/ddm/serialize"
)

// Client is a thin wrapper over ddmd's gorilla/mux HTTP surface
// (cmd/ddmd/httpapi): every method here mirrors one route, decoding
// the {"status":"sync","result":...}/{"status":"error",...} envelope
// response.go writes and translating the latter back into a
// ddmerrors.Error so callers can ddmerrors.Is/KindOf it the same way
// an in-process boundary.API caller would.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

// NewClient returns a Client dialing the ddmd boundary API over the
// unix socket at socketPath, the same one httpapi.Daemon binds.
func NewClient(socketPath string) *Client {
	return &Client{
		BaseURL: "http://ddmd",
		HTTP: &http.Client{
			Timeout: 10 * time.Second,
			Transport: &http.Transport{
				DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
					var d net.Dialer
					return d.DialContext(ctx, "unix", socketPath)
				},
			},
		},
	}
}

type apiEnvelope struct {
	Status string          `json:"status"`
	Result json.RawMessage `json:"result"`
	Error  struct {
		Kind    string `json:"kind"`
		Message string `json:"message"`
	} `json:"error"`
}

func kindFromWire(s string) ddmerrors.Kind {
	kinds := []ddmerrors.Kind{
		ddmerrors.Unknown, ddmerrors.NotFound, ddmerrors.BadValue, ddmerrors.NotAllowed,
		ddmerrors.Busy, ddmerrors.BufferOverflow, ddmerrors.NoMemory, ddmerrors.NameTooLong,
		ddmerrors.InitFailed, ddmerrors.ModuleLoadFailed, ddmerrors.ValidationFailed,
		ddmerrors.JobFailed, ddmerrors.Canceled, ddmerrors.Reversed,
	}
	for _, k := range kinds {
		if k.String() == s {
			return k
		}
	}
	return ddmerrors.Unknown
}

func (c *Client) do(method, path string, query url.Values, body interface{}, out interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewReader(data)
	}

	u := c.BaseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequest(method, u, reqBody)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	var env apiEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("ddmd: decoding response from %s: %w", path, err)
	}

	if env.Status == "error" {
		return ddmerrors.New(kindFromWire(env.Error.Kind), "%s", env.Error.Message)
	}

	if out != nil && len(env.Result) > 0 {
		if err := json.Unmarshal(env.Result, out); err != nil {
			return err
		}
	}
	return nil
}

// ListDevices returns every registered device id (GET /v1/devices).
func (c *Client) ListDevices() ([]int32, error) {
	var ids []int32
	if err := c.do(http.MethodGet, "/v1/devices", nil, nil, &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

// GetDeviceTree fetches a device's partition tree
// (GET /v1/devices/{id}) as the JSON-safe serialize.Node view.
func (c *Client) GetDeviceTree(deviceID int32, shadow bool) (*serialize.Node, error) {
	q := url.Values{}
	if shadow {
		q.Set("shadow", "true")
	}
	var node serialize.Node
	if err := c.do(http.MethodGet, fmt.Sprintf("/v1/devices/%d", deviceID), q, nil, &node); err != nil {
		return nil, err
	}
	return &node, nil
}

// PrepareModifications opens a shadow editing team for deviceID
// (POST /v1/devices/{id}/shadow).
func (c *Client) PrepareModifications(deviceID int32) (teamID int64, err error) {
	var out struct {
		Team int64 `json:"team"`
	}
	path := fmt.Sprintf("/v1/devices/%d/shadow", deviceID)
	if err := c.do(http.MethodPost, path, nil, nil, &out); err != nil {
		return 0, err
	}
	return out.Team, nil
}

// CommitModifications compiles and executes teamID's shadow tree for
// deviceID (POST /v1/teams/{team}?device={id}).
func (c *Client) CommitModifications(deviceID int32, teamID int64) error {
	q := url.Values{"device": {strconv.Itoa(int(deviceID))}}
	path := fmt.Sprintf("/v1/teams/%d", teamID)
	return c.do(http.MethodPost, path, q, nil, nil)
}

// CancelModifications discards teamID's shadow tree
// (DELETE /v1/teams/{team}).
func (c *Client) CancelModifications(teamID int64) error {
	return c.do(http.MethodDelete, fmt.Sprintf("/v1/teams/%d", teamID), nil, nil, nil)
}

type editRequest struct {
	Op                string `json:"op"`
	Counter           int64  `json:"counter"`
	Name              string `json:"name,omitempty"`
	Type              string `json:"type,omitempty"`
	Parameters        string `json:"parameters,omitempty"`
	ContentName       string `json:"content_name,omitempty"`
	ContentParameters string `json:"content_parameters,omitempty"`
	Offset            int64  `json:"offset,omitempty"`
	Size              int64  `json:"size,omitempty"`
	CheckOnly         bool   `json:"check_only,omitempty"`
}

func (c *Client) applyEdit(teamID int64, nodeID int32, req editRequest) error {
	path := fmt.Sprintf("/v1/teams/%d/nodes/%d/edit", teamID, nodeID)
	return c.do(http.MethodPost, path, nil, req, nil)
}

// SetName applies a set_name edit to nodeID within teamID.
func (c *Client) SetName(teamID int64, nodeID int32, counter int64, name string) error {
	return c.applyEdit(teamID, nodeID, editRequest{Op: "set_name", Counter: counter, Name: name})
}

// SetType applies a set_type edit to nodeID within teamID.
func (c *Client) SetType(teamID int64, nodeID int32, counter int64, typ string) error {
	return c.applyEdit(teamID, nodeID, editRequest{Op: "set_type", Counter: counter, Type: typ})
}

// SetParameters applies a set_parameters edit to nodeID within teamID.
func (c *Client) SetParameters(teamID int64, nodeID int32, counter int64, params string) error {
	return c.applyEdit(teamID, nodeID, editRequest{Op: "set_parameters", Counter: counter, Parameters: params})
}

// Resize applies a resize edit (moves the partition boundary) to
// nodeID within teamID.
func (c *Client) Resize(teamID int64, nodeID int32, counter int64, size int64) error {
	return c.applyEdit(teamID, nodeID, editRequest{Op: "resize", Counter: counter, Size: size})
}

// Initialize formats nodeID within teamID with the given filesystem
// type and content parameters.
func (c *Client) Initialize(teamID int64, nodeID int32, counter int64, typ, contentName, contentParams string) error {
	return c.applyEdit(teamID, nodeID, editRequest{
		Op: "initialize", Counter: counter, Type: typ,
		ContentName: contentName, ContentParameters: contentParams,
	})
}

// CreateChildPartition creates a new child under parentID within
// teamID (POST /v1/teams/{team}/nodes/{node}/children).
func (c *Client) CreateChildPartition(teamID int64, parentID int32, counter, offset, size int64, typ, params string) (int32, error) {
	path := fmt.Sprintf("/v1/teams/%d/nodes/%d/children", teamID, parentID)
	req := editRequest{Counter: counter, Offset: offset, Size: size, Type: typ, Parameters: params}
	var out struct {
		ID int32 `json:"id"`
	}
	if err := c.do(http.MethodPost, path, nil, req, &out); err != nil {
		return 0, err
	}
	return out.ID, nil
}

// DeleteChildPartition removes parentID's child at index
// (DELETE /v1/teams/{team}/nodes/{node}/children/{index}?counter=).
func (c *Client) DeleteChildPartition(teamID int64, parentID int32, counter int64, index int) error {
	path := fmt.Sprintf("/v1/teams/%d/nodes/%d/children/%d", teamID, parentID, index)
	q := url.Values{"counter": {strconv.FormatInt(counter, 10)}}
	return c.do(http.MethodDelete, path, q, nil, nil)
}

// DefragmentPartition queues a defragment job against a real
// (non-shadow) partition (POST /v1/partitions/{id}/defragment).
func (c *Client) DefragmentPartition(deviceID, partitionID int32) (queueID int64, err error) {
	path := fmt.Sprintf("/v1/partitions/%d/defragment", partitionID)
	q := url.Values{"device": {strconv.Itoa(int(deviceID))}}
	var out struct {
		Queue int64 `json:"queue"`
	}
	if err := c.do(http.MethodPost, path, q, nil, &out); err != nil {
		return 0, err
	}
	return out.Queue, nil
}

// QueueProgress polls a job queue's current status string
// (GET /v1/queues/{queue}/progress).
func (c *Client) QueueProgress(queueID int64) (string, error) {
	var out struct {
		Status string `json:"status"`
	}
	path := fmt.Sprintf("/v1/queues/%d/progress", queueID)
	if err := c.do(http.MethodGet, path, nil, nil, &out); err != nil {
		return "", err
	}
	return out.Status, nil
}

// PauseQueue pauses a running job queue (POST /v1/queues/{queue}/pause).
func (c *Client) PauseQueue(queueID int64) error {
	return c.do(http.MethodPost, fmt.Sprintf("/v1/queues/%d/pause", queueID), nil, nil, nil)
}

// ContinueQueue resumes a paused job queue
// (POST /v1/queues/{queue}/continue).
func (c *Client) ContinueQueue(queueID int64) error {
	return c.do(http.MethodPost, fmt.Sprintf("/v1/queues/%d/continue", queueID), nil, nil, nil)
}

// CancelQueue cancels a job queue, optionally reversing jobs already
// applied (POST /v1/queues/{queue}/cancel?reverse=true).
func (c *Client) CancelQueue(queueID int64, reverse bool) error {
	q := url.Values{}
	if reverse {
		q.Set("reverse", "true")
	}
	return c.do(http.MethodPost, fmt.Sprintf("/v1/queues/%d/cancel", queueID), q, nil, nil)
}
