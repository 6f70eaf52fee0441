package http

import (
	"context"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/avheld/coview/internal/adapters/signal"
	"github.com/avheld/coview/internal/app"
	"github.com/avheld/coview/internal/config"
	"github.com/avheld/coview/internal/domain"
)

func genClientToken() string {
	return uuid.NewString()
}

// ClientTokenMiddleware gives every browser context a stable connection
// identity cookie; the websocket controller keys sessions on it.
func ClientTokenMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, _ := c.Cookie("ct")
		if token == "" {
			token = genClientToken()
			c.SetCookie("ct", token, 3600*24*7, "/", "", false, true)
		}
		c.Set("client_token", token)
		c.Next()
	}
}

func SetupRouter(ctx context.Context, cfg *config.Config, orch *app.Orchestrator, prom prometheus.Gatherer) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	store := cookie.NewStore([]byte(cfg.Secret))
	r.Use(sessions.Sessions("CoViewSessions", store))
	r.Use(ClientTokenMiddleware())

	r.Static("/static", cfg.StaticPath)
	r.GET("/", func(c *gin.Context) {
		c.File(cfg.StaticPath + "/index.html")
	})

	if prom != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(prom, promhttp.HandlerOpts{})))
	}

	log.Info().Str("module", "adapters.http").Str("static", cfg.StaticPath).Msg("router setup")

	api := r.Group("/api")

	// Room discovery.
	api.GET("/rooms", func(c *gin.Context) {
		c.JSON(http.StatusOK, orch.ListRooms())
	})

	api.GET("/history/:room", func(c *gin.Context) {
		msgs, err := orch.RecentChat(domain.RoomID(c.Param("room")), 50)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "history unavailable"})
			return
		}
		c.JSON(http.StatusOK, msgs)
	})

	chat := signal.NewChatLimiter(cfg.ChatRate, cfg.ChatBurst)
	ctrl := signal.NewGatewayWSController(orch, chat, cfg.ReadLimit, cfg.PingPeriod)
	api.GET("/ws/signal", func(c *gin.Context) {
		log.Info().Str("module", "adapters.http").Str("conn", c.GetString("client_token")).Msg("ws signal endpoint hit")
		ctrl.HandleSignal(ctx, c)
	})

	return r
}
