package handler

import (
	"fmt"
	"net/http"
	"time"

	host "auction-site/internal/hostService"
	model "auction-site/internal/models"
	"auction-site/services/auction/helpers"
	"auction-site/utils"

	"github.com/gin-gonic/gin"
)

// AuctionSiteHandler exposes the host, site, session, auction and user
// operations over HTTP.
type AuctionSiteHandler struct {
	host *host.Host
}

func NewAuctionSiteHandler(h *host.Host) *AuctionSiteHandler {
	return &AuctionSiteHandler{host: h}
}

func (h *AuctionSiteHandler) fail(c *gin.Context, handlerName string, err error) {
	status, message := helpers.MapErrorToHTTP(err)
	utils.JSONError(c, status, fmt.Errorf("%s: %w", message, err), message)
	utils.Warn(handlerName+": request failed", map[string]any{
		"handler": handlerName,
		"error":   err.Error(),
	})
}

// CreateSiteHandler handles POST /sites
func (h *AuctionSiteHandler) CreateSiteHandler(c *gin.Context) {
	var req helpers.CreateSiteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "CreateSiteHandler", err)
		return
	}

	if err := h.host.CreateSite(req.Name, req.Timezone, req.SessionExpirationSeconds, req.MinimumBidIncrement); err != nil {
		h.fail(c, "CreateSiteHandler", err)
		return
	}

	utils.JSONResponse(c, http.StatusCreated, gin.H{"name": req.Name}, "site created successfully")
	helpers.LogSuccess("CreateSiteHandler", "site created successfully", map[string]any{"site": req.Name})
}

// GetSiteInfosHandler handles GET /sites
func (h *AuctionSiteHandler) GetSiteInfosHandler(c *gin.Context) {
	infos, err := h.host.GetSiteInfos()
	if err != nil {
		h.fail(c, "GetSiteInfosHandler", err)
		return
	}
	utils.JSONResponse(c, http.StatusOK, infos, "sites retrieved successfully")
}

// DeleteSiteHandler handles DELETE /sites/:site
func (h *AuctionSiteHandler) DeleteSiteHandler(c *gin.Context) {
	name := c.Param("site")
	svc, err := h.host.LoadSite(name)
	if err != nil {
		h.fail(c, "DeleteSiteHandler", err)
		return
	}
	if err := svc.Delete(); err != nil {
		h.fail(c, "DeleteSiteHandler", err)
		return
	}
	h.host.DropSite(name)

	utils.JSONResponse(c, http.StatusOK, nil, "site deleted successfully")
	helpers.LogSuccess("DeleteSiteHandler", "site deleted successfully", map[string]any{"site": name})
}

// CreateUserHandler handles POST /sites/:site/users
func (h *AuctionSiteHandler) CreateUserHandler(c *gin.Context) {
	var req helpers.CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "CreateUserHandler", err)
		return
	}

	svc, err := h.host.LoadSite(c.Param("site"))
	if err != nil {
		h.fail(c, "CreateUserHandler", err)
		return
	}
	if err := svc.CreateUser(req.Username, req.Password); err != nil {
		h.fail(c, "CreateUserHandler", err)
		return
	}

	utils.JSONResponse(c, http.StatusCreated, gin.H{"username": req.Username}, "user created successfully")
	helpers.LogSuccess("CreateUserHandler", "user created successfully", map[string]any{
		"site":     c.Param("site"),
		"username": req.Username,
	})
}

// ListUsersHandler handles GET /sites/:site/users
func (h *AuctionSiteHandler) ListUsersHandler(c *gin.Context) {
	svc, err := h.host.LoadSite(c.Param("site"))
	if err != nil {
		h.fail(c, "ListUsersHandler", err)
		return
	}
	users, err := svc.ListUsers()
	if err != nil {
		h.fail(c, "ListUsersHandler", err)
		return
	}
	utils.JSONResponse(c, http.StatusOK, users, "users retrieved successfully")
}

// DeleteUserHandler handles DELETE /sites/:site/users/:username
func (h *AuctionSiteHandler) DeleteUserHandler(c *gin.Context) {
	svc, err := h.host.LoadSite(c.Param("site"))
	if err != nil {
		h.fail(c, "DeleteUserHandler", err)
		return
	}
	if err := svc.Users().Delete(svc.Site(), c.Param("username")); err != nil {
		h.fail(c, "DeleteUserHandler", err)
		return
	}
	utils.JSONResponse(c, http.StatusOK, nil, "user deleted successfully")
	helpers.LogSuccess("DeleteUserHandler", "user deleted successfully", map[string]any{
		"site":     c.Param("site"),
		"username": c.Param("username"),
	})
}

// WonAuctionsHandler handles GET /sites/:site/users/:username/won
func (h *AuctionSiteHandler) WonAuctionsHandler(c *gin.Context) {
	svc, err := h.host.LoadSite(c.Param("site"))
	if err != nil {
		h.fail(c, "WonAuctionsHandler", err)
		return
	}
	won, err := svc.Users().WonAuctions(svc.Site(), c.Param("username"))
	if err != nil {
		h.fail(c, "WonAuctionsHandler", err)
		return
	}
	utils.JSONResponse(c, http.StatusOK, auctionResponses(won), "won auctions retrieved successfully")
}

// LoginHandler handles POST /sites/:site/login
func (h *AuctionSiteHandler) LoginHandler(c *gin.Context) {
	var req helpers.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "LoginHandler", err)
		return
	}

	svc, err := h.host.LoadSite(c.Param("site"))
	if err != nil {
		h.fail(c, "LoginHandler", err)
		return
	}
	session, err := svc.Login(req.Username, req.Password)
	if err != nil {
		h.fail(c, "LoginHandler", err)
		return
	}
	if session == nil {
		utils.JSONError(c, http.StatusUnauthorized, fmt.Errorf("invalid credentials"), "invalid credentials")
		return
	}

	resp := helpers.SessionResponse{
		SessionID:  session.ID(),
		ValidUntil: session.ValidUntil.UTC().Format(time.RFC3339),
	}
	utils.JSONResponse(c, http.StatusOK, resp, "login successful")
	helpers.LogSuccess("LoginHandler", "login successful", map[string]any{
		"site":     c.Param("site"),
		"username": req.Username,
	})
}

// ListSessionsHandler handles GET /sites/:site/sessions
func (h *AuctionSiteHandler) ListSessionsHandler(c *gin.Context) {
	svc, err := h.host.LoadSite(c.Param("site"))
	if err != nil {
		h.fail(c, "ListSessionsHandler", err)
		return
	}
	sessions, err := svc.ListSessions()
	if err != nil {
		h.fail(c, "ListSessionsHandler", err)
		return
	}

	resp := make([]helpers.SessionResponse, 0, len(sessions))
	for _, s := range sessions {
		resp = append(resp, helpers.SessionResponse{
			SessionID:  s.ID(),
			ValidUntil: s.ValidUntil.UTC().Format(time.RFC3339),
		})
	}
	utils.JSONResponse(c, http.StatusOK, resp, "sessions retrieved successfully")
}

// ListAuctionsHandler handles GET /sites/:site/auctions
func (h *AuctionSiteHandler) ListAuctionsHandler(c *gin.Context) {
	svc, err := h.host.LoadSite(c.Param("site"))
	if err != nil {
		h.fail(c, "ListAuctionsHandler", err)
		return
	}
	auctions, err := svc.ListAuctions(c.Query("only_not_ended") == "true")
	if err != nil {
		h.fail(c, "ListAuctionsHandler", err)
		return
	}
	utils.JSONResponse(c, http.StatusOK, auctionResponses(auctions), "auctions retrieved successfully")
}

// LogoutHandler handles POST /sessions/:session_id/logout
func (h *AuctionSiteHandler) LogoutHandler(c *gin.Context) {
	sessionID := c.Param("session_id")
	if err := h.host.Sessions().Logout(sessionID); err != nil {
		h.fail(c, "LogoutHandler", err)
		return
	}
	utils.JSONResponse(c, http.StatusOK, nil, "logout successful")
	helpers.LogSuccess("LogoutHandler", "logout successful", map[string]any{"session_id": sessionID})
}

// CreateAuctionHandler handles POST /sessions/:session_id/auctions
func (h *AuctionSiteHandler) CreateAuctionHandler(c *gin.Context) {
	var req helpers.CreateAuctionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "CreateAuctionHandler", err)
		return
	}

	auc, err := h.host.Engine().Create(c.Param("session_id"), req.Description, req.EndsOn, req.StartingPrice)
	if err != nil {
		h.fail(c, "CreateAuctionHandler", err)
		return
	}

	utils.JSONResponse(c, http.StatusCreated, auctionResponse(auc), "auction created successfully")
	helpers.LogSuccess("CreateAuctionHandler", "auction created successfully", map[string]any{
		"auction_id": auc.ID,
		"site":       auc.Site,
		"seller":     auc.Seller,
	})
}

// PlaceBidHandler handles POST /auctions/:auction_id/bids
func (h *AuctionSiteHandler) PlaceBidHandler(c *gin.Context) {
	var req helpers.PlaceBidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "PlaceBidHandler", err)
		return
	}

	auctionID := c.Param("auction_id")
	accepted, err := h.host.Engine().Bid(req.SessionID, auctionID, req.Offer)
	if err != nil {
		h.fail(c, "PlaceBidHandler", err)
		return
	}

	utils.JSONResponse(c, http.StatusOK, helpers.BidResponse{Accepted: accepted}, "bid processed")
	helpers.LogSuccess("PlaceBidHandler", "bid processed", map[string]any{
		"auction_id": auctionID,
		"accepted":   accepted,
		"offer":      req.Offer,
	})
}

// CurrentPriceHandler handles GET /auctions/:auction_id/price
func (h *AuctionSiteHandler) CurrentPriceHandler(c *gin.Context) {
	price, err := h.host.Engine().CurrentPrice(c.Param("auction_id"))
	if err != nil {
		h.fail(c, "CurrentPriceHandler", err)
		return
	}
	utils.JSONResponse(c, http.StatusOK, helpers.PriceResponse{CurrentPrice: price}, "current price retrieved successfully")
}

// CurrentWinnerHandler handles GET /auctions/:auction_id/winner
func (h *AuctionSiteHandler) CurrentWinnerHandler(c *gin.Context) {
	winner, err := h.host.Engine().CurrentWinner(c.Param("auction_id"))
	if err != nil {
		h.fail(c, "CurrentWinnerHandler", err)
		return
	}
	utils.JSONResponse(c, http.StatusOK, helpers.WinnerResponse{CurrentWinner: winner}, "current winner retrieved successfully")
}

// DeleteAuctionHandler handles DELETE /auctions/:auction_id
func (h *AuctionSiteHandler) DeleteAuctionHandler(c *gin.Context) {
	auctionID := c.Param("auction_id")
	if err := h.host.Engine().Delete(auctionID); err != nil {
		h.fail(c, "DeleteAuctionHandler", err)
		return
	}
	utils.JSONResponse(c, http.StatusOK, nil, "auction deleted successfully")
	helpers.LogSuccess("DeleteAuctionHandler", "auction deleted successfully", map[string]any{"auction_id": auctionID})
}

func auctionResponse(a model.Auction) helpers.AuctionResponse {
	return helpers.AuctionResponse{
		AuctionID:     a.ID,
		Site:          a.Site,
		Seller:        a.Seller,
		CurrentPrice:  a.CurrentPrice,
		Description:   a.Description,
		EndsOn:        a.EndsOn.UTC().Format(time.RFC3339),
		CurrentWinner: a.CurrentWinner,
	}
}

func auctionResponses(auctions []model.Auction) []helpers.AuctionResponse {
	resp := make([]helpers.AuctionResponse, 0, len(auctions))
	for _, a := range auctions {
		resp = append(resp, auctionResponse(a))
	}
	return resp
}
