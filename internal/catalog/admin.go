package catalog

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/tailscale/tailsql/server/tailsql"
	"tailscale.com/tsweb"

	"github.com/banshee-data/nusconv/internal/httputil"
)

// AttachAdminRoutes mounts the tsweb debug index with a tailsql console
// over the catalog and JSON endpoints for runs.
func (c *Catalog) AttachAdminRoutes(mux *http.ServeMux) error {
	debug := tsweb.Debugger(mux)
	tsql, err := tailsql.NewServer(tailsql.Options{
		RoutePrefix: "/debug/tailsql/",
	})
	if err != nil {
		return fmt.Errorf("failed to create tailsql server: %w", err)
	}
	tsql.SetDB("sqlite://"+c.path, c.db, &tailsql.DBOptions{
		Label: "Conversion catalog",
	})
	debug.Handle("tailsql/", "SQL live debugging", tsql.NewMux())
	debug.Handle("runs", "Recent conversion runs (JSON)", http.HandlerFunc(c.handleRuns))

	mux.HandleFunc("/api/runs", c.handleRuns)
	mux.HandleFunc("/api/runs/", c.handleRun)
	return nil
}

func (c *Catalog) handleRuns(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			httputil.BadRequest(w, "invalid limit")
			return
		}
		limit = n
	}
	runs, err := c.ListRuns(limit)
	if err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}
	httputil.WriteJSONOK(w, runs)
}

// handleRun serves /api/runs/<id> and /api/runs/<id>/scenes.
func (c *Catalog) handleRun(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/runs/"), "/")
	id, sub, _ := strings.Cut(rest, "/")
	if id == "" {
		c.handleRuns(w, r)
		return
	}

	run, err := c.GetRun(id)
	if errors.Is(err, ErrRunNotFound) {
		httputil.NotFound(w, err.Error())
		return
	}
	if err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}

	switch sub {
	case "":
		httputil.WriteJSONOK(w, run)
	case "scenes":
		scenes, err := c.SceneStats(id)
		if err != nil {
			httputil.InternalServerError(w, err.Error())
			return
		}
		httputil.WriteJSONOK(w, scenes)
	default:
		httputil.NotFound(w, "unknown resource "+sub)
	}
}
