package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"waitlist-server/internal/admin/auth"
	adminHandler "waitlist-server/internal/admin/handler"
	campaignHandler "waitlist-server/internal/campaigns/handler"
	"waitlist-server/internal/config"
	"waitlist-server/internal/observability"
	unsubscribeHandler "waitlist-server/internal/unsubscribe/handler"
	waitlistHandler "waitlist-server/internal/waitlist/handler"
)

type API struct {
	router             *gin.RouterGroup
	cfg                config.WaitlistConfig
	logger             *observability.Logger
	waitlistHandler    waitlistHandler.Handler
	unsubscribeHandler unsubscribeHandler.Handler
	adminHandler       adminHandler.Handler
	campaignHandler    campaignHandler.Handler
}

func New(router *gin.RouterGroup, cfg config.WaitlistConfig, logger *observability.Logger,
	waitlist waitlistHandler.Handler, unsubscribe unsubscribeHandler.Handler,
	admin adminHandler.Handler, campaigns campaignHandler.Handler) API {
	return API{
		router:             router,
		cfg:                cfg,
		logger:             logger,
		waitlistHandler:    waitlist,
		unsubscribeHandler: unsubscribe,
		adminHandler:       admin,
		campaignHandler:    campaigns,
	}
}

func (a *API) RegisterRoutes() {
	a.Health()
	apiGroup := a.router.Group("/api")
	{
		apiGroup.POST("/waitlist", a.waitlistHandler.HandleSubmit)
		apiGroup.GET("/unsubscribe", a.unsubscribeHandler.HandleGet)
		apiGroup.POST("/unsubscribe", a.unsubscribeHandler.HandlePost)
	}
	adminGroup := apiGroup.Group("/admin", auth.Middleware(a.cfg, a.logger))
	{
		adminGroup.GET("/waitlist", a.adminHandler.HandleList)
		adminGroup.GET("/stats", a.adminHandler.HandleStats)
		adminGroup.POST("/beta/invite", a.adminHandler.HandleInviteBeta)
		adminGroup.POST("/beta/set-active", a.adminHandler.HandleSetBetaActive)
		adminGroup.POST("/campaigns/preview", a.campaignHandler.HandlePreview)
		adminGroup.POST("/campaigns/send", a.campaignHandler.HandleSend)
		adminGroup.GET("/campaigns/:id", a.campaignHandler.HandleGetCampaign)
		adminGroup.GET("/campaigns/:id/recipients", a.campaignHandler.HandleListRecipients)
	}
}

func (a *API) Health() {
	a.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "ok"})
	})
}
