package server

import (
	"encoding/json"
	"net/http"

	openapi "github.com/swaggest/openapi-go"
	"github.com/swaggest/openapi-go/openapi3"
)

// ErrorResponse is returned for all error responses.
type ErrorResponse struct {
	Error string `json:"error"`
}

// HealthResponse maps check names to their status.
type HealthResponse map[string]struct {
	Status string `json:"status"`
}

func newOpenAPISpec() *openapi3.Spec {
	r := openapi3.NewReflector()
	r.Spec.Info.Title = "Duck Hunt API"
	r.Spec.Info.Version = "0.1.0"
	r.Spec.Info.WithDescription("Backend API for the Duck Hunt scavenger hunt game.")

	// GET /healthz
	getHealthz, _ := r.NewOperationContext(http.MethodGet, "/healthz")
	getHealthz.SetSummary("Health check")
	getHealthz.SetDescription("Returns the health status of backend dependencies.")
	getHealthz.AddRespStructure(HealthResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	getHealthz.AddRespStructure(HealthResponse{}, openapi.WithHTTPStatus(http.StatusServiceUnavailable))
	_ = r.AddOperation(getHealthz)

	// POST /api/at-level/{levelID}
	postAtLevel, _ := r.NewOperationContext(http.MethodPost, "/api/at-level/{levelID}")
	postAtLevel.SetSummary("Submit level arrival")
	postAtLevel.SetDescription("Reports that the team reached a level. The literal ID \"current\" reports state, including the caller's conversation at the current level, without submitting. Requires X-User-Id and X-Team-Id headers.")
	postAtLevel.AddRespStructure(CurrentState{}, openapi.WithHTTPStatus(http.StatusOK))
	postAtLevel.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	postAtLevel.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	_ = r.AddOperation(postAtLevel)

	// POST /api/finish-game/{endSequence}
	postFinish, _ := r.NewOperationContext(http.MethodPost, "/api/finish-game/{endSequence}")
	postFinish.SetSummary("Finish the game")
	postFinish.SetDescription("Completes the final level when the end sequence matches and all other levels are done. Requires X-User-Id and X-Team-Id headers.")
	postFinish.AddRespStructure(ProgressState{}, openapi.WithHTTPStatus(http.StatusOK))
	postFinish.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusForbidden))
	postFinish.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	_ = r.AddOperation(postFinish)

	// POST /api/message
	postMessage, _ := r.NewOperationContext(http.MethodPost, "/api/message")
	postMessage.SetSummary("Send a chat message")
	postMessage.SetDescription("Sends one user message to the current level's persona and returns the reply. Requires X-User-Id and X-Team-Id headers.")
	postMessage.AddReqStructure(MessageRequest{})
	postMessage.AddRespStructure(MessageResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	postMessage.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	postMessage.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusServiceUnavailable))
	postMessage.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadGateway))
	_ = r.AddOperation(postMessage)

	// POST /api/clear-chat
	postClear, _ := r.NewOperationContext(http.MethodPost, "/api/clear-chat")
	postClear.SetSummary("Clear the current chat")
	postClear.SetDescription("Deletes the caller's conversation with the current level's persona. Requires X-User-Id and X-Team-Id headers.")
	postClear.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusOK))
	postClear.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	_ = r.AddOperation(postClear)

	// POST /api/ping-coordinates
	postPing, _ := r.NewOperationContext(http.MethodPost, "/api/ping-coordinates")
	postPing.SetSummary("Report device coordinates")
	postPing.SetDescription("Records the player's current position for the dashboard. Requires X-User-Id and X-Team-Id headers.")
	postPing.AddReqStructure(CoordinateRequest{})
	postPing.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusOK))
	postPing.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	_ = r.AddOperation(postPing)

	// GET /api/dashboard/progress
	getProgress, _ := r.NewOperationContext(http.MethodGet, "/api/dashboard/progress")
	getProgress.SetSummary("Team progress")
	getProgress.SetDescription("Returns completed/total level counts per team. Pass the game ID as the game query parameter.")
	getProgress.AddRespStructure([]TeamProgress{}, openapi.WithHTTPStatus(http.StatusOK))
	getProgress.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(getProgress)

	// GET /api/dashboard/coordinates
	getCoords, _ := r.NewOperationContext(http.MethodGet, "/api/dashboard/coordinates")
	getCoords.SetSummary("Latest coordinates")
	getCoords.SetDescription("Returns the most recent coordinate per player. Pass the game ID as the game query parameter.")
	getCoords.AddRespStructure([]LatestCoordinate{}, openapi.WithHTTPStatus(http.StatusOK))
	getCoords.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(getCoords)

	// GET /api/dashboard/events
	getEvents, _ := r.NewOperationContext(http.MethodGet, "/api/dashboard/events")
	getEvents.SetSummary("SSE event stream")
	getEvents.SetDescription("Server-Sent Events stream of progress and difficulty events. Pass the game ID as the game query parameter.")
	getEvents.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusOK),
		openapi.WithContentType("text/event-stream"))
	_ = r.AddOperation(getEvents)

	// POST /api/admin/games
	createGame, _ := r.NewOperationContext(http.MethodPost, "/api/admin/games")
	createGame.SetSummary("Create game")
	createGame.SetDescription("Creates a game, assigns per-team level sequences, and returns team and level links. Requires X-Api-Key header.")
	createGame.AddReqStructure(AdminGameRequest{})
	createGame.AddRespStructure(AdminGameDetail{}, openapi.WithHTTPStatus(http.StatusCreated))
	createGame.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	createGame.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	_ = r.AddOperation(createGame)

	// GET /api/admin/games/{gameID}
	getGame, _ := r.NewOperationContext(http.MethodGet, "/api/admin/games/{gameID}")
	getGame.SetSummary("Get game")
	getGame.SetDescription("Returns a game with teams and their level sequences. Requires X-Api-Key header.")
	getGame.AddRespStructure(AdminGameDetail{}, openapi.WithHTTPStatus(http.StatusOK))
	getGame.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	getGame.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	_ = r.AddOperation(getGame)

	// DELETE /api/admin/games/{gameID}
	deleteGame, _ := r.NewOperationContext(http.MethodDelete, "/api/admin/games/{gameID}")
	deleteGame.SetSummary("End game")
	deleteGame.SetDescription("Ends a game and removes it and its teams from all reads. Requires X-Api-Key header.")
	deleteGame.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusOK))
	deleteGame.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	deleteGame.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	_ = r.AddOperation(deleteGame)

	// PUT /api/admin/levels/{levelID}
	putLevel, _ := r.NewOperationContext(http.MethodPut, "/api/admin/levels/{levelID}")
	putLevel.SetSummary("Upload level definition")
	putLevel.SetDescription("Stores the persona, location, and clue document for a level. Requires X-Api-Key header.")
	putLevel.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusOK))
	putLevel.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	putLevel.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	putLevel.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	_ = r.AddOperation(putLevel)

	return r.Spec
}

func handleOpenAPI() http.HandlerFunc {
	spec := newOpenAPISpec()
	data, _ := json.MarshalIndent(spec, "", "  ")

	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	}
}
