package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/punchcard-hq/punchcard/internal/platform/logx"
)

// serviceName labels traces emitted by the HTTP layer.
const serviceName = "punchcard"

// Server wraps the gin engine and its HTTP listener.
type Server struct {
	engine *gin.Engine
	http   *http.Server
	log    logx.Logger
}

// NewServer builds the router with middleware and all tracking routes.
func NewServer(addr string, handler *Handler, log logx.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(
		gin.Recovery(),
		otelgin.Middleware(serviceName),
		RequestID(),
		RequestLogger(log),
	)

	engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	group := engine.Group("/time-tracking")
	{
		group.POST("/shifts/start", handler.StartShift)
		group.POST("/shifts/end", handler.EndShift)
		group.POST("/breaks/start", handler.StartBreak)
		group.POST("/breaks/end", handler.StopBreak)
		group.GET("/stats/:year/:month", handler.MonthStats)
		group.GET("/stats/:year/:month/:workerId", handler.WorkerMonthStats)
		group.POST("/maintenance/rebuild-projections", handler.RebuildProjections)
	}

	return &Server{
		engine: engine,
		http: &http.Server{
			Addr:              addr,
			Handler:           engine,
			ReadHeaderTimeout: 10 * time.Second,
		},
		log: log,
	}
}

// Handler exposes the router for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// ListenAndServe blocks serving requests until Shutdown or failure.
func (s *Server) ListenAndServe() error {
	return s.http.ListenAndServe()
}

// Shutdown drains in-flight requests until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}
