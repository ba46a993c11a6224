package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/beacon/internal/logging"
)

// StatusProvider exposes the transport state surfaced on /status.
// Satisfied by *transport.Transport.
type StatusProvider interface {
	SessionID() string
	Len() int
}

// Server is the agent's local debug endpoint: health, Prometheus metrics,
// and a transport status snapshot. It binds to loopback by default and is
// not part of the delivery path.
type Server struct {
	router *gin.Engine
	addr   string
	log    *logging.Logger
}

// New creates the debug server.
func New(addr string, status StatusProvider, gatherer prometheus.Gatherer, log *logging.Logger) *Server {
	if log == nil {
		log = logging.NewNop()
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	start := time.Now()

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	router.GET("/status", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"session_id":     status.SessionID(),
			"buffer_len":     status.Len(),
			"uptime_seconds": int64(time.Since(start).Seconds()),
		})
	})

	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	return &Server{
		router: router,
		addr:   addr,
		log:    log.Component("server"),
	}
}

// Run starts the server and blocks until it fails or the process exits.
func (s *Server) Run() error {
	s.log.Info("debug server listening", zap.String("addr", s.addr))
	return s.router.Run(s.addr)
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}
