package httpserver

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/MarkoPoloResearchLab/cartowl/pkg/board"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type httpHandler struct {
	logger  *zap.Logger
	service *board.Service
	cfg     Config
}

func (handler *httpHandler) handleHealth(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{"status": "ok", "app": appName})
}

func (handler *httpHandler) handleListSections(ctx *gin.Context) {
	sections, err := handler.service.UnlockedSections(ctx.Request.Context())
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	payload := make([]sectionPayload, 0, len(sections))
	for _, section := range sections {
		payload = append(payload, mapSectionPayload(section))
	}
	ctx.JSON(http.StatusOK, payload)
}

func (handler *httpHandler) handleListLegend(ctx *gin.Context) {
	entries, err := handler.service.LegendEntries(ctx.Request.Context())
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	payload := make([]legendPayload, 0, len(entries))
	for _, entry := range entries {
		payload = append(payload, mapLegendPayload(entry))
	}
	ctx.JSON(http.StatusOK, payload)
}

func (handler *httpHandler) handleCreateRequest(ctx *gin.Context) {
	var request createRequestPayload
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("expected JSON body"))
		return
	}
	if request.PlayerName == "" {
		ctx.JSON(http.StatusBadRequest, errorResponse("player_name required"))
		return
	}
	if request.X == nil || request.Y == nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("x and y required"))
		return
	}
	playerName, err := board.NewPlayerName(request.PlayerName)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("player_name required"))
		return
	}
	key, err := board.NewSectionKey(*request.X, *request.Y, request.Width, request.Height)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("width and height must be positive"))
		return
	}
	created, err := handler.service.CreateRequest(ctx.Request.Context(), board.RequestInput{
		PlayerName: playerName,
		Message:    request.Message,
		Key:        key,
	})
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, mapRequestPayload(created))
}

func (handler *httpHandler) handleLogin(ctx *gin.Context) {
	var request loginPayload
	if err := ctx.ShouldBindJSON(&request); err != nil || request.Password == "" {
		ctx.JSON(http.StatusBadRequest, errorResponse("Password required"))
		return
	}
	if err := handler.service.AuthenticateAdmin(ctx.Request.Context(), request.Password); err != nil {
		switch {
		case errors.Is(err, board.ErrUnauthorized):
			ctx.JSON(http.StatusUnauthorized, errorResponse("Invalid password"))
		case errors.Is(err, board.ErrConfiguration):
			ctx.JSON(http.StatusInternalServerError, errorResponse("Admin password not configured"))
		default:
			handler.respondError(ctx, err)
		}
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"token": handler.cfg.AdminToken})
}

func (handler *httpHandler) handleListRequests(ctx *gin.Context) {
	requests, err := handler.service.ListRequests(ctx.Request.Context())
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	payload := make([]requestPayload, 0, len(requests))
	for _, request := range requests {
		payload = append(payload, mapRequestPayload(request))
	}
	ctx.JSON(http.StatusOK, payload)
}

func (handler *httpHandler) handleResolveRequest(ctx *gin.Context) {
	var request resolvePayload
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("expected JSON body"))
		return
	}
	action, err := board.ParseReviewAction(request.Action)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("action must be approve or reject"))
		return
	}
	id, err := board.NewRequestID(ctx.Param("id"))
	if err != nil {
		ctx.JSON(http.StatusNotFound, errorResponse("Not found"))
		return
	}
	resolved, err := handler.service.ResolveRequest(ctx.Request.Context(), id, action)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, mapRequestPayload(resolved))
}

func (handler *httpHandler) handleUnlockSection(ctx *gin.Context) {
	var request unlockSectionPayload
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("expected JSON body"))
		return
	}
	if request.X == nil || request.Y == nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("x and y required"))
		return
	}
	key, err := board.NewSectionKey(*request.X, *request.Y, request.Width, request.Height)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("width and height must be positive"))
		return
	}
	section, err := handler.service.UnlockSection(ctx.Request.Context(), key)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, mapSectionPayload(section))
}

func (handler *httpHandler) handleListPlayers(ctx *gin.Context) {
	players, err := handler.service.ListPlayers(ctx.Request.Context())
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	payload := make([]playerPayload, 0, len(players))
	for _, player := range players {
		payload = append(payload, mapPlayerPayload(player))
	}
	ctx.JSON(http.StatusOK, payload)
}

func (handler *httpHandler) handleCreatePlayer(ctx *gin.Context) {
	var request createPlayerPayload
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("expected JSON body"))
		return
	}
	name, err := board.NewPlayerName(request.Name)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("name required"))
		return
	}
	balance, err := board.NewGoldAmount(request.GoldBalance)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("gold_balance must not be negative"))
		return
	}
	player, err := handler.service.CreatePlayer(ctx.Request.Context(), name, balance)
	if err != nil {
		if errors.Is(err, board.ErrDuplicatePlayerName) {
			ctx.JSON(http.StatusConflict, errorResponse("player name already taken"))
			return
		}
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, mapPlayerPayload(player))
}

func (handler *httpHandler) handleUpdatePlayer(ctx *gin.Context) {
	id, ok := pathID(ctx)
	if !ok {
		return
	}
	var request updatePlayerPayload
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("expected JSON body"))
		return
	}
	balance, err := board.NewGoldAmount(request.GoldBalance)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("gold_balance must not be negative"))
		return
	}
	player, err := handler.service.SetPlayerGold(ctx.Request.Context(), id, balance)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, mapPlayerPayload(player))
}

func (handler *httpHandler) handleCreateLegendEntry(ctx *gin.Context) {
	var request legendEntryPayload
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("expected JSON body"))
		return
	}
	entry, err := handler.service.CreateLegendEntry(ctx.Request.Context(), request.Symbol, request.Label, request.Description)
	if err != nil {
		if errors.Is(err, board.ErrValidation) {
			ctx.JSON(http.StatusBadRequest, errorResponse("symbol and label required"))
			return
		}
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, mapLegendPayload(entry))
}

func (handler *httpHandler) handleUpdateLegendEntry(ctx *gin.Context) {
	id, ok := pathID(ctx)
	if !ok {
		return
	}
	var request legendEntryPayload
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("expected JSON body"))
		return
	}
	entry, err := handler.service.UpdateLegendEntry(ctx.Request.Context(), board.LegendEntry{
		ID:          id,
		Symbol:      request.Symbol,
		Label:       request.Label,
		Description: request.Description,
	})
	if err != nil {
		if errors.Is(err, board.ErrValidation) {
			ctx.JSON(http.StatusBadRequest, errorResponse("symbol and label required"))
			return
		}
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, mapLegendPayload(entry))
}

func (handler *httpHandler) handleDeleteLegendEntry(ctx *gin.Context) {
	id, ok := pathID(ctx)
	if !ok {
		return
	}
	if err := handler.service.DeleteLegendEntry(ctx.Request.Context(), id); err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.Status(http.StatusNoContent)
}

// respondError translates domain errors at the boundary. Unrecognized
// failures become a generic 500 with no internal detail leaked.
func (handler *httpHandler) respondError(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, board.ErrValidation):
		ctx.JSON(http.StatusBadRequest, errorResponse("validation failed"))
	case errors.Is(err, board.ErrInvalidAction):
		ctx.JSON(http.StatusBadRequest, errorResponse("action must be approve or reject"))
	case errors.Is(err, board.ErrNotFound):
		ctx.JSON(http.StatusNotFound, errorResponse("Not found"))
	case errors.Is(err, board.ErrUnauthorized):
		ctx.JSON(http.StatusUnauthorized, errorResponse("Unauthorized"))
	case errors.Is(err, board.ErrConflict):
		ctx.JSON(http.StatusConflict, errorResponse("request already resolved"))
	case errors.Is(err, board.ErrConfiguration):
		handler.logger.Error("configuration fault", zap.Error(err))
		ctx.JSON(http.StatusInternalServerError, errorResponse("server misconfigured"))
	default:
		handler.logger.Error("unexpected failure", zap.Error(err))
		ctx.JSON(http.StatusInternalServerError, errorResponse("internal error"))
	}
}

func pathID(ctx *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil {
		ctx.JSON(http.StatusNotFound, errorResponse("Not found"))
		return 0, false
	}
	return id, true
}

type createRequestPayload struct {
	PlayerName string `json:"player_name"`
	Message    string `json:"message"`
	X          *int   `json:"x"`
	Y          *int   `json:"y"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
}

type loginPayload struct {
	Password string `json:"password"`
}

type resolvePayload struct {
	Action string `json:"action"`
}

type unlockSectionPayload struct {
	X      *int `json:"x"`
	Y      *int `json:"y"`
	Width  int  `json:"width"`
	Height int  `json:"height"`
}

type createPlayerPayload struct {
	Name        string `json:"name"`
	GoldBalance int64  `json:"gold_balance"`
}

type updatePlayerPayload struct {
	GoldBalance int64 `json:"gold_balance"`
}

type legendEntryPayload struct {
	Symbol      string `json:"symbol"`
	Label       string `json:"label"`
	Description string `json:"description"`
}

type sectionPayload struct {
	X          int        `json:"x"`
	Y          int        `json:"y"`
	Width      int        `json:"width"`
	Height     int        `json:"height"`
	IsUnlocked bool       `json:"is_unlocked"`
	UnlockedAt *time.Time `json:"unlocked_at"`
}

type playerPayload struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	GoldBalance int64  `json:"gold_balance"`
}

type legendPayload struct {
	ID          int64  `json:"id"`
	Symbol      string `json:"symbol"`
	Label       string `json:"label"`
	Description string `json:"description"`
}

type requestPayload struct {
	ID         string    `json:"id"`
	PlayerName string    `json:"player_name"`
	PlayerID   *int64    `json:"player_id"`
	Message    string    `json:"message"`
	X          int       `json:"x"`
	Y          int       `json:"y"`
	Width      int       `json:"width"`
	Height     int       `json:"height"`
	GoldCost   int64     `json:"gold_cost"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
}

func mapSectionPayload(section board.Section) sectionPayload {
	return sectionPayload{
		X:          section.Key.X,
		Y:          section.Key.Y,
		Width:      section.Key.Width,
		Height:     section.Key.Height,
		IsUnlocked: section.Unlocked,
		UnlockedAt: section.UnlockedAt,
	}
}

func mapPlayerPayload(player board.Player) playerPayload {
	return playerPayload{
		ID:          player.ID,
		Name:        player.Name,
		GoldBalance: player.GoldBalance.Int64(),
	}
}

func mapLegendPayload(entry board.LegendEntry) legendPayload {
	return legendPayload{
		ID:          entry.ID,
		Symbol:      entry.Symbol,
		Label:       entry.Label,
		Description: entry.Description,
	}
}

func mapRequestPayload(request board.Request) requestPayload {
	return requestPayload{
		ID:         request.ID.String(),
		PlayerName: request.PlayerName,
		PlayerID:   request.PlayerID,
		Message:    request.Message,
		X:          request.Key.X,
		Y:          request.Key.Y,
		Width:      request.Key.Width,
		Height:     request.Key.Height,
		GoldCost:   request.GoldCost.Int64(),
		Status:     request.Status.String(),
		CreatedAt:  request.CreatedAt,
	}
}
