package httpapi

import "net/http"

var cmdDevicePublish = &Command{
	Path: "/v1/devices/{id}/publish",
	POST: postPublish,
}

func postPublish(d *Daemon, r *http.Request) Response {
	id, err := intParam(r, "id")
	if err != nil {
		return errorResponse(err)
	}
	switch r.URL.Query().Get("action") {
	case "unpublish":
		err = d.api.UnpublishDevice(id)
	case "republish":
		err = d.api.RepublishDevice(id)
	default:
		err = d.api.PublishDevice(id)
	}
	if err != nil {
		return errorResponse(err)
	}
	return syncResponse(nil)
}
