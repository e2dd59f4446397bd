// Package server wires the session, storage, and codec packages into the
// HTTP surface a sender or receiver actually talks to: two mutually
// exclusive routers, a runtime that binds and exposes them, and a shutdown
// coordinator that drains in-flight transfers before exiting.
package server

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/archdrop/archdrop/internal/apierr"
	"github.com/archdrop/archdrop/internal/observability"
	"github.com/archdrop/archdrop/internal/session"
)

// Deps bundles everything a handler needs: the single session this server
// instance serves, the registry of in-progress per-file state (receive
// side), and the ambient logger/metrics.
type Deps struct {
	Session  *session.Session
	Registry *session.Registry
	Log      *observability.Logger
	Metrics  *observability.Metrics
}

func newRouter(deps *Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), apierr.Recover(deps.Log.Zerolog()))

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodHead, http.MethodOptions},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})

	return r
}

// BuildSendRouter wires the /send/:token endpoints a sender's process
// exposes to a single receiving client.
func BuildSendRouter(deps *Deps) *gin.Engine {
	r := newRouter(deps)
	h := &sendHandlers{Deps: deps}

	send := r.Group("/send/:token")
	send.GET("/manifest", h.manifest)
	send.GET("/:fileIndex/chunk/:chunkIndex", h.chunk)
	send.GET("/:fileIndex/hash", h.hash)
	send.POST("/complete", h.complete)

	return r
}

// BuildReceiveRouter wires the /receive/:token endpoints a receiving
// process exposes to a single uploading client.
func BuildReceiveRouter(deps *Deps) *gin.Engine {
	r := newRouter(deps)
	h := &receiveHandlers{Deps: deps}

	recv := r.Group("/receive/:token")
	recv.POST("/manifest", h.manifest)
	recv.POST("/chunk", h.chunk)
	recv.POST("/finalize", h.finalize)
	recv.POST("/complete", h.complete)

	return r
}
