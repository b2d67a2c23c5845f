package ddmclient

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/diskdevmgr/ddm/ddmerrors"
)

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return &Client{BaseURL: srv.URL, HTTP: srv.Client()}
}

func TestListDevicesDecodesSyncEnvelope(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/v1/devices" {
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"status": "sync",
			"result": []int32{1, 2, 3},
		})
	})

	ids, err := c.ListDevices()
	if err != nil {
		t.Fatalf("ListDevices: %v", err)
	}
	if len(ids) != 3 || ids[0] != 1 || ids[2] != 3 {
		t.Fatalf("ids = %v", ids)
	}
}

func TestErrorEnvelopeMapsBackToDdmerrorsKind(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"status": "error",
			"error":  map[string]string{"kind": "NotFound", "message": "no such device"},
		})
	})

	_, err := c.GetDeviceTree(99, false)
	if err == nil {
		t.Fatalf("expected an error")
	}
	if ddmerrors.KindOf(err) != ddmerrors.NotFound {
		t.Fatalf("kind = %v, want NotFound", ddmerrors.KindOf(err))
	}
	if !strings.Contains(err.Error(), "no such device") {
		t.Fatalf("message = %q, want it to mention %q", err.Error(), "no such device")
	}
}

func TestGetDeviceTreeDecodesNode(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("shadow") != "true" {
			t.Fatalf("expected shadow=true, got %q", r.URL.RawQuery)
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"status": "sync",
			"result": map[string]interface{}{"id": 7, "kind": "physical", "name": "root"},
		})
	})

	node, err := c.GetDeviceTree(7, true)
	if err != nil {
		t.Fatalf("GetDeviceTree: %v", err)
	}
	if node.ID != 7 || node.Name != "root" {
		t.Fatalf("node = %+v", node)
	}
}

func TestPrepareModificationsReturnsTeamID(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/devices/5/shadow" {
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"status": "sync",
			"result": map[string]interface{}{"team": 42},
		})
	})

	team, err := c.PrepareModifications(5)
	if err != nil {
		t.Fatalf("PrepareModifications: %v", err)
	}
	if team != 42 {
		t.Fatalf("team = %d, want 42", team)
	}
}

func TestSetNamePostsEditRequest(t *testing.T) {
	var decoded editRequest
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/teams/1/nodes/2/edit" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&decoded); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"status": "sync"})
	})

	if err := c.SetName(1, 2, 9, "home"); err != nil {
		t.Fatalf("SetName: %v", err)
	}
	if decoded.Op != "set_name" || decoded.Counter != 9 || decoded.Name != "home" {
		t.Fatalf("decoded = %+v", decoded)
	}
}

func TestDeleteChildPartitionSendsCounterQuery(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete || r.URL.Path != "/v1/teams/1/nodes/2/children/3" {
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if r.URL.Query().Get("counter") != "9" {
			t.Fatalf("counter query = %q", r.URL.Query().Get("counter"))
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"status": "sync"})
	})

	if err := c.DeleteChildPartition(1, 2, 9, 3); err != nil {
		t.Fatalf("DeleteChildPartition: %v", err)
	}
}

func TestQueueProgressDecodesStatus(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/queues/4/progress" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"status": "sync",
			"result": map[string]interface{}{"status": "running"},
		})
	})

	status, err := c.QueueProgress(4)
	if err != nil {
		t.Fatalf("QueueProgress: %v", err)
	}
	if status != "running" {
		t.Fatalf("status = %q, want running", status)
	}
}
