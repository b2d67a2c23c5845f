package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/diskdevmgr/ddm/ddmerrors"
)

// Response is anything that can write itself to an HTTP response,
// mirroring the retrieved pack's device-daemon shape: a Command's
// GET/PUT/POST returns one of these instead of writing to the
// ResponseWriter directly, so tests can call ServeHTTP against a
// recorder without a real listener.
type Response interface {
	http.Handler
}

type respFunc func(w http.ResponseWriter, r *http.Request)

func (f respFunc) ServeHTTP(w http.ResponseWriter, r *http.Request) { f(w, r) }

type envelope struct {
	Status string      `json:"status"`
	Result interface{} `json:"result,omitempty"`
}

type errorEnvelope struct {
	Status string    `json:"status"`
	Error  errorBody `json:"error"`
}

type errorBody struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

type overflowEnvelope struct {
	Status     string `json:"status"`
	NeededSize int    `json:"needed_size"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// syncResponse wraps a successful result in the daemon's standard
// envelope (spec §6.2's HTTP expansion).
func syncResponse(v interface{}) Response {
	return respFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, envelope{Status: "sync", Result: v})
	})
}

// bufferOverflowResponse reports that the caller's declared buffer was
// too small, carrying the size that would have sufficed — deliberately
// a 200 with a distinguishing "status" field rather than a 424, per
// spec §6.2's HTTP expansion, since BufferOverflow is an ordinary
// negotiated outcome of get_disk_device_data, not a transport failure.
func bufferOverflowResponse(neededSize int) Response {
	return respFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, overflowEnvelope{Status: "buffer_overflow", NeededSize: neededSize})
	})
}

// errorResponse maps err's ddmerrors.Kind to an HTTP status and writes
// the {"status":"error",...} envelope.
func errorResponse(err error) Response {
	return respFunc(func(w http.ResponseWriter, r *http.Request) {
		kind := ddmerrors.KindOf(err)
		writeJSON(w, statusForKind(kind), errorEnvelope{
			Status: "error",
			Error:  errorBody{Kind: kind.String(), Message: err.Error()},
		})
	})
}

// respondWithSize implements get_disk_device_data's buffer-sizing
// contract (spec §6.2): fetch honors the caller's declared "size" query
// parameter by marshaling the result first and comparing against it,
// reporting BufferOverflow with the byte count actually needed instead
// of truncating or erroring outright — a caller with no size opinion
// simply omits the parameter and always gets the full payload.
func respondWithSize(r *http.Request, fetch func() (interface{}, error)) Response {
	v, err := fetch()
	if err != nil {
		return errorResponse(err)
	}

	sizeParam := r.URL.Query().Get("size")
	if sizeParam == "" {
		return syncResponse(v)
	}
	declared, err := strconv.Atoi(sizeParam)
	if err != nil {
		return errorResponse(ddmerrors.New(ddmerrors.BadValue, "size must be an integer"))
	}

	buf, err := json.Marshal(v)
	if err != nil {
		return errorResponse(ddmerrors.Wrap(err))
	}
	if len(buf) > declared {
		return bufferOverflowResponse(len(buf))
	}
	return syncResponse(v)
}

func decodeJSON(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return ddmerrors.New(ddmerrors.BadValue, "malformed request body: %v", err)
	}
	return nil
}

func parseInt32Query(r *http.Request, name string) (int32, error) {
	v := r.URL.Query().Get(name)
	n, err := strconv.ParseInt(v, 10, 32)
	if err != nil {
		return 0, ddmerrors.New(ddmerrors.BadValue, "%s must be an integer, got %q", name, v)
	}
	return int32(n), nil
}

func statusForKind(kind ddmerrors.Kind) int {
	switch kind {
	case ddmerrors.NotFound:
		return http.StatusNotFound
	case ddmerrors.BadValue, ddmerrors.NameTooLong:
		return http.StatusBadRequest
	case ddmerrors.NotAllowed:
		return http.StatusForbidden
	case ddmerrors.Busy:
		return http.StatusConflict
	case ddmerrors.ValidationFailed:
		return http.StatusUnprocessableEntity
	case ddmerrors.BufferOverflow, ddmerrors.NoMemory, ddmerrors.InitFailed, ddmerrors.ModuleLoadFailed, ddmerrors.JobFailed:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
