// Package webserver exposes the console API: operator auth, session
// control, snapshots, route geometry and the live WebSocket feed.
package webserver

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stratum-ops/opsdeck/src/config"
	"github.com/stratum-ops/opsdeck/src/console/session"
	"github.com/stratum-ops/opsdeck/src/telemetry"
	"gorm.io/gorm"
)

// New builds the API router.
func New(cfg config.Config, db *gorm.DB, rdb *redis.Client, sess *session.Session, hub *telemetry.Hub) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	attachRoutes(r, cfg, db, rdb, sess, hub)
	return r
}

// Server runs the router under the lifecycle manager.
type Server struct {
	srv *http.Server
}

func NewServer(port string, handler http.Handler) *Server {
	return &Server{srv: &http.Server{Addr: ":" + port, Handler: handler}}
}

// Name implements the lifecycle module interface.
func (s *Server) Name() string { return "webserver" }

// Start begins serving in the background. Listen errors after startup
// are fatal; the console is useless without its API.
func (s *Server) Start(ctx context.Context) error {
	go func() {
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("webserver: %v", err)
		}
	}()
	log.Printf("webserver: listening on %s", s.srv.Addr)
	return nil
}

// Stop drains in-flight requests and shuts the listener down.
func (s *Server) Stop(ctx context.Context) {
	shutCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	_ = s.srv.Shutdown(shutCtx)
}
