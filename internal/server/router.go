package server

import (
	host "auction-site/internal/hostService"
	handler "auction-site/services/auction/handler"

	"github.com/gin-gonic/gin"
)

// SetupRouter configures all Gin routes for the application
func SetupRouter(h *host.Host) *gin.Engine {
	router := gin.New() // New router without default middleware for full control over middleware and logging

	router.Use(gin.Recovery())          // recover from panics
	router.Use(RequestLoggerMiddleware) // custom request logging

	siteHandler := handler.NewAuctionSiteHandler(h)

	sites := router.Group("/sites")
	{
		sites.POST("", siteHandler.CreateSiteHandler)
		sites.GET("", siteHandler.GetSiteInfosHandler)
		sites.DELETE("/:site", siteHandler.DeleteSiteHandler)
		sites.POST("/:site/users", siteHandler.CreateUserHandler)
		sites.GET("/:site/users", siteHandler.ListUsersHandler)
		sites.DELETE("/:site/users/:username", siteHandler.DeleteUserHandler)
		sites.GET("/:site/users/:username/won", siteHandler.WonAuctionsHandler)
		sites.POST("/:site/login", siteHandler.LoginHandler)
		sites.GET("/:site/sessions", siteHandler.ListSessionsHandler)
		sites.GET("/:site/auctions", siteHandler.ListAuctionsHandler)
	}

	sessions := router.Group("/sessions")
	{
		sessions.POST("/:session_id/logout", siteHandler.LogoutHandler)
		sessions.POST("/:session_id/auctions", siteHandler.CreateAuctionHandler)
	}

	auctions := router.Group("/auctions")
	{
		auctions.POST("/:auction_id/bids", siteHandler.PlaceBidHandler)
		auctions.GET("/:auction_id/price", siteHandler.CurrentPriceHandler)
		auctions.GET("/:auction_id/winner", siteHandler.CurrentWinnerHandler)
		auctions.DELETE("/:auction_id", siteHandler.DeleteAuctionHandler)
	}

	return router
}
