package server

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/loykin/tracklink/internal/link"
	"github.com/loykin/tracklink/internal/tracker"
)

// Router provides embeddable HTTP handlers for link management, position
// ingestion and the observer websocket.
// Endpoints:
//   POST   {basePath}/links              body: {"name": "..."} (name optional)
//   GET    {basePath}/links
//   GET    {basePath}/links/:id
//   PUT    {basePath}/links/:id          body: {"name": "..."}
//   DELETE {basePath}/links/:id
//   GET    {basePath}/links/:id/history
//   POST   {basePath}/links/:id/location body: coords JSON
//   GET    {basePath}/ws                 websocket upgrade for observers
// basePath may be empty or start with '/'; no trailing slash.

type Router struct {
	trk      *tracker.Tracker
	basePath string
	logger   *slog.Logger
}

// NewRouter constructs a new Router with configurable basePath.
// Example basePath: "/api" results in /api/links, /api/ws, etc.
func NewRouter(trk *tracker.Tracker, basePath string, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{trk: trk, basePath: sanitizeBase(basePath), logger: logger}
}

// Handler returns an http.Handler powered by gin that can be mounted in any server/mux.
func (r *Router) Handler() http.Handler {
	g := gin.New()
	g.Use(gin.Recovery())
	group := g.Group(r.basePath)
	group.POST("/links", r.handleCreate)
	group.GET("/links", r.handleList)
	group.GET("/links/:id", r.handleGet)
	group.PUT("/links/:id", r.handleRename)
	group.DELETE("/links/:id", r.handleDelete)
	group.GET("/links/:id/history", r.handleHistory)
	group.POST("/links/:id/location", r.handleIngest)
	group.GET("/ws", r.handleWS)
	return g
}

// NewServer starts a standalone HTTP server on addr using this router.
func NewServer(addr, basePath string, trk *tracker.Tracker, logger *slog.Logger) (*http.Server, error) {
	r := NewRouter(trk, basePath, logger)
	server := &http.Server{
		Addr:              addr,
		Handler:           r.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	go func() { _ = server.ListenAndServe() }()
	return server, nil
}

// --- Handlers ---

type errorResp struct {
	Error string `json:"error"`
}

type okResp struct {
	OK bool `json:"ok"`
}

type nameReq struct {
	Name string `json:"name"`
}

func (r *Router) handleCreate(c *gin.Context) {
	var req nameReq
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			writeJSON(c, http.StatusBadRequest, errorResp{Error: "invalid JSON: " + err.Error()})
			return
		}
	}
	l, err := r.trk.CreateLink(req.Name)
	if err != nil {
		writeJSON(c, http.StatusInternalServerError, errorResp{Error: err.Error()})
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"id": l.ID, "name": l.Name, "link": "/track/" + l.ID})
}

func (r *Router) handleList(c *gin.Context) {
	writeJSON(c, http.StatusOK, r.trk.Links())
}

func (r *Router) handleGet(c *gin.Context) {
	l, err := r.trk.Link(c.Param("id"))
	if err != nil {
		r.writeError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, l)
}

func (r *Router) handleRename(c *gin.Context) {
	var req nameReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: "invalid JSON: " + err.Error()})
		return
	}
	if req.Name == "" {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: "name required"})
		return
	}
	l, err := r.trk.RenameLink(c.Param("id"), req.Name)
	if err != nil {
		r.writeError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, l)
}

func (r *Router) handleDelete(c *gin.Context) {
	if err := r.trk.DeleteLink(c.Param("id")); err != nil {
		r.writeError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, okResp{OK: true})
}

func (r *Router) handleHistory(c *gin.Context) {
	samples, err := r.trk.History(c.Param("id"))
	if err != nil {
		r.writeError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, samples)
}

func (r *Router) handleIngest(c *gin.Context) {
	var coords link.Coords
	if err := c.ShouldBindJSON(&coords); err != nil {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: "invalid JSON: " + err.Error()})
		return
	}
	if _, err := r.trk.Ingest(c.Request.Context(), c.Param("id"), coords); err != nil {
		r.writeError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, okResp{OK: true})
}

// writeError maps the error taxonomy onto status codes: unknown ids are 404 so
// callers can tell them apart from storage failures, which are 500.
func (r *Router) writeError(c *gin.Context, err error) {
	if errors.Is(err, link.ErrNotFound) {
		writeJSON(c, http.StatusNotFound, errorResp{Error: "Link not found"})
		return
	}
	r.logger.Error("request failed", "path", c.FullPath(), "error", err)
	writeJSON(c, http.StatusInternalServerError, errorResp{Error: err.Error()})
}
