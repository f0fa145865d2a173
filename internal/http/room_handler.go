package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"pollpulse/internal/domain/identity"
	"pollpulse/internal/domain/room"
	"pollpulse/internal/metrics"
	"pollpulse/internal/platform/apperr"
	"pollpulse/internal/worker"
)

type createRoomRequest struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Options     []string `json:"options"`
	// Deadline is RFC 3339.
	Deadline string `json:"deadline"`
}

type voteRequest struct {
	OptionIndex   *int   `json:"optionIndex"`
	VoterID       string `json:"voterId"`
	Justification string `json:"justification"`
}

// handleCreateRoom godoc
// @Summary Create a decision room
// @Tags rooms
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param body body createRoomRequest true "room"
// @Success 201 {object} room.Room
// @Failure 400 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Router /api/v1/rooms [post]
func (h *Handler) handleCreateRoom(w http.ResponseWriter, r *http.Request) {
	var req createRoomRequest
	if err := decodeJSON(r, &req); err != nil {
		errorResponse(w, apperr.BadRequest("invalid_body", "invalid request body", err))
		return
	}

	var deadline time.Time
	if strings.TrimSpace(req.Deadline) != "" {
		t, err := time.Parse(time.RFC3339, req.Deadline)
		if err != nil {
			errorResponse(w, apperr.BadRequest("invalid_deadline", "deadline must be an RFC 3339 timestamp", err))
			return
		}
		deadline = t
	}

	rm, err := h.roomSvc.Create(r.Context(), room.CreateInput{
		CreatorID:   userIDFromCtx(r),
		Title:       req.Title,
		Description: req.Description,
		Options:     req.Options,
		Deadline:    deadline,
	})
	if err != nil {
		errorResponse(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, rm)
}

// handleGetRoom godoc
// @Summary Get a room
// @Tags rooms
// @Produce json
// @Param id path string true "room id"
// @Success 200 {object} room.Room
// @Failure 404 {object} map[string]string
// @Router /api/v1/rooms/{id} [get]
func (h *Handler) handleGetRoom(w http.ResponseWriter, r *http.Request) {
	rm, err := h.roomSvc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		errorResponse(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rm)
}

// handleListRooms godoc
// @Summary List rooms created by a user
// @Tags rooms
// @Produce json
// @Param userId query string true "creator id"
// @Success 200 {array} room.Summary
// @Failure 400 {object} map[string]string
// @Router /api/v1/rooms [get]
func (h *Handler) handleListRooms(w http.ResponseWriter, r *http.Request) {
	h.listByCreator(w, r, r.URL.Query().Get("userId"))
}

// handleListMyRooms godoc
// @Summary List rooms created by the caller
// @Tags rooms
// @Security BearerAuth
// @Produce json
// @Success 200 {array} room.Summary
// @Router /api/v1/rooms/mine [get]
func (h *Handler) handleListMyRooms(w http.ResponseWriter, r *http.Request) {
	h.listByCreator(w, r, userIDFromCtx(r))
}

func (h *Handler) listByCreator(w http.ResponseWriter, r *http.Request, creatorID string) {
	rooms, err := h.roomSvc.ListByCreator(r.Context(), creatorID)
	if err != nil {
		errorResponse(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rooms)
}

// handleVote godoc
// @Summary Cast a vote
// @Description Guests are identified by the X-Guest-ID header. A new id is
// @Description minted and returned in the same header when none is sent.
// @Tags rooms
// @Accept json
// @Produce json
// @Param id path string true "room id"
// @Param body body voteRequest true "ballot"
// @Success 200 {object} map[string]string
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Failure 429 {object} map[string]string
// @Router /api/v1/rooms/{id}/vote [post]
func (h *Handler) handleVote(w http.ResponseWriter, r *http.Request) {
	var req voteRequest
	if err := decodeJSON(r, &req); err != nil {
		errorResponse(w, apperr.BadRequest("invalid_body", "invalid request body", err))
		return
	}
	// an absent index is out of range; the room state decides which rejection wins
	optionIndex := -1
	if req.OptionIndex != nil {
		optionIndex = *req.OptionIndex
	}

	newID := h.newGuestID
	if newID == nil {
		newID = identity.NewGuestID
	}
	voterID, minted := identity.Resolve(sessionFromRequest(r, req.VoterID), newID)
	if minted {
		w.Header().Set(guestIDHeader, voterID)
	}

	roomID := chi.URLParam(r, "id")
	if err := h.roomSvc.Vote(r.Context(), roomID, optionIndex, voterID, req.Justification); err != nil {
		metrics.IncVoteRejected(room.KindOf(err).String())
		errorResponse(w, err)
		return
	}

	ev := worker.VoteEvent{RoomID: roomID, OptionIndex: optionIndex, At: time.Now().UTC()}
	select {
	case h.voteCh <- ev:
	default:
		slogLogger.Warn("vote event dropped", "room_id", roomID)
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Vote recorded"})
}

// handleResults godoc
// @Summary Room results
// @Description Only the room creator may read results.
// @Tags rooms
// @Security BearerAuth
// @Produce json
// @Param id path string true "room id"
// @Success 200 {array} room.Result
// @Failure 403 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /api/v1/rooms/{id}/results [get]
func (h *Handler) handleResults(w http.ResponseWriter, r *http.Request) {
	results, err := h.roomSvc.Results(r.Context(), chi.URLParam(r, "id"), userIDFromCtx(r))
	if err != nil {
		errorResponse(w, err)
		return
	}
	writeJSON(w, http.StatusOK, results)
}
