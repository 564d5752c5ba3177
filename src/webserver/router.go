package webserver

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stratum-ops/opsdeck/src/config"
	"github.com/stratum-ops/opsdeck/src/console/session"
	"github.com/stratum-ops/opsdeck/src/telemetry"
	"gorm.io/gorm"
)

func attachRoutes(r *gin.Engine, cfg config.Config, db *gorm.DB, rdb *redis.Client, sess *session.Session, hub *telemetry.Hub) {
	// Add CORS middleware
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{cfg.CORSOrigin},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
	}))

	authH := NewAuth(rdb, []byte(cfg.JWTSecret), []byte(cfg.OperatorKey))
	consoleH := NewConsole(sess)
	routesH := NewRoutes(db)
	liveH := NewLive(sess, hub)

	authLimiter := NewRateLimiter(10, time.Minute)

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"running": sess.Running(),
			"clients": hub.ClientCount(),
		})
	})

	// The live feed is read-only; dashboards attach before operators
	// log in.
	r.GET("/v1/live", liveH.Serve)

	v1 := r.Group("/v1")
	{
		auth := v1.Group("/auth")
		auth.Use(RateLimitMiddleware(authLimiter))
		{
			auth.POST("/challenge", authH.Challenge)
			auth.POST("/verify", authH.Verify)
		}

		secured := v1.Group("")
		secured.Use(JWTMiddleware([]byte(cfg.JWTSecret)))
		{
			secured.POST("/session/start", consoleH.Start)
			secured.POST("/session/stop", consoleH.Stop)
			secured.POST("/session/reset", consoleH.Reset)
			secured.POST("/agents/:id/run", consoleH.RunAgent)
			secured.PUT("/context", consoleH.SetContext)
			secured.GET("/snapshot", consoleH.Snapshot)
			secured.GET("/routes", routesH.List)
			secured.GET("/routes/:id/path", routesH.Path)
		}
	}
}
