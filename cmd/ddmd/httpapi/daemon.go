// Package httpapi exposes boundary.API over a unix-socket HTTP
// surface, grounded on the retrieved pack's device-daemon shape: a
// table of Commands, each a path plus one handler func per verb,
// registered onto a gorilla/mux Router and served over a
// net.Listener rather than the usual TCP one (spec §6.2's HTTP
// expansion of the wire table).
package httpapi

import (
	"context"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/diskdevmgr/ddm/boundary"
	"github.com/diskdevmgr/ddm/ddmlog"
	"github.com/gorilla/mux"
)

// Command binds a URL path to up to one handler per HTTP verb, mirroring
// the retrieved pack's command-table daemons: routing dispatches on
// path and method, and each handler is a plain function rather than an
// http.Handler so it can return a Response value for uniform logging
// and error-enveloping at a single call site.
type Command struct {
	Path string

	GET    func(d *Daemon, r *http.Request) Response
	POST   func(d *Daemon, r *http.Request) Response
	PUT    func(d *Daemon, r *http.Request) Response
	DELETE func(d *Daemon, r *http.Request) Response

	d *Daemon
}

func (c *Command) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var handler func(d *Daemon, r *http.Request) Response
	switch r.Method {
	case http.MethodGet:
		handler = c.GET
	case http.MethodPost:
		handler = c.POST
	case http.MethodPut:
		handler = c.PUT
	case http.MethodDelete:
		handler = c.DELETE
	}
	if handler == nil {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	rsp := handler(c.d, r)
	rsp.ServeHTTP(w, r)
}

// Daemon serves the boundary API over a unix socket.
type Daemon struct {
	api    *boundary.API
	router *mux.Router
	server *http.Server

	socketPath string
	listener   net.Listener
}

// New builds a Daemon bound to api, listening on socketPath once
// Start is called.
func New(api *boundary.API, socketPath string) *Daemon {
	d := &Daemon{api: api, socketPath: socketPath, router: mux.NewRouter()}
	d.addRoutes()
	d.server = &http.Server{Handler: d.router}
	return d
}

func (d *Daemon) addRoutes() {
	for _, cmd := range allCommands {
		cmd.d = d
		d.router.Handle(cmd.Path, cmd).Methods(cmd.methods()...)
	}
}

func (c *Command) methods() []string {
	var methods []string
	if c.GET != nil {
		methods = append(methods, http.MethodGet)
	}
	if c.POST != nil {
		methods = append(methods, http.MethodPost)
	}
	if c.PUT != nil {
		methods = append(methods, http.MethodPut)
	}
	if c.DELETE != nil {
		methods = append(methods, http.MethodDelete)
	}
	return methods
}

// Start removes any stale socket file left by a prior crashed run,
// binds socketPath, and begins serving in the background.
func (d *Daemon) Start() error {
	_ = os.Remove(d.socketPath)

	l, err := net.Listen("unix", d.socketPath)
	if err != nil {
		return err
	}
	d.listener = l

	go func() {
		if err := d.server.Serve(l); err != nil && err != http.ErrServerClosed {
			ddmlog.Error("httpapi: serve failed: %v", err)
		}
	}()
	ddmlog.Info("httpapi: listening on %s", d.socketPath)
	return nil
}

// Stop gracefully shuts the daemon down within timeout.
func (d *Daemon) Stop(timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	err := d.server.Shutdown(ctx)
	_ = os.Remove(d.socketPath)
	return err
}
