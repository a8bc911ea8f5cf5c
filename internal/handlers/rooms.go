package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/jason-s-yu/virus/internal/auth"
	"github.com/jason-s-yu/virus/internal/database"
	"github.com/jason-s-yu/virus/internal/room"
)

type seatRequest struct {
	RoomID     string `json:"roomId"`
	PlayerID   string `json:"playerId"`
	PlayerName string `json:"playerName"`
}

type seatResponse struct {
	Room  room.Info `json:"room"`
	Token string    `json:"token"`
}

func decodeSeatRequest(r *http.Request) (seatRequest, error) {
	var req seatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return req, err
	}
	if req.PlayerID == "" {
		return req, errors.New("playerId is required")
	}
	return req, nil
}

// CreateRoomHandler opens a room hosted by the caller and returns a session token.
func (s *Server) CreateRoomHandler(w http.ResponseWriter, r *http.Request) {
	req, err := decodeSeatRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	rm, err := s.Registry.CreateRoom(req.RoomID, req.PlayerID, req.PlayerName)
	switch {
	case errors.Is(err, room.ErrRoomExists):
		writeError(w, http.StatusConflict, "room_exists", err.Error())
		return
	case err != nil:
		writeError(w, http.StatusServiceUnavailable, "unavailable", err.Error())
		return
	}
	s.respondSeat(w, http.StatusCreated, rm, req.PlayerID)
}

// JoinRoomHandler seats the caller in an existing room.
func (s *Server) JoinRoomHandler(w http.ResponseWriter, r *http.Request) {
	req, err := decodeSeatRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	rm, err := s.Registry.JoinRoom(req.RoomID, req.PlayerID, req.PlayerName)
	if err != nil {
		var joinErr *room.JoinError
		switch {
		case errors.Is(err, room.ErrRoomNotFound):
			writeError(w, http.StatusNotFound, "room_not_found", "That room does not exist.")
		case errors.As(err, &joinErr):
			writeError(w, http.StatusConflict, joinErr.Reason, joinMessage(joinErr.Reason))
		default:
			writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		}
		return
	}
	s.respondSeat(w, http.StatusOK, rm, req.PlayerID)
}

func joinMessage(reason string) string {
	switch reason {
	case room.ReasonRoomFull:
		return "That room is full."
	case room.ReasonGameAlreadyStarted:
		return "That game has already started."
	}
	return "Cannot join that room."
}

func (s *Server) respondSeat(w http.ResponseWriter, status int, rm *room.Room, playerID string) {
	token, err := s.Tokens.CreateJWT(auth.Seat{PlayerID: playerID, RoomID: rm.ID})
	if err != nil {
		s.logger.WithError(err).Error("failed to sign session token")
		writeError(w, http.StatusInternalServerError, "internal", "could not issue a session token")
		return
	}
	writeJSON(w, status, seatResponse{Room: rm.Info(), Token: token})
}

// GetRoomHandler describes a room.
func (s *Server) GetRoomHandler(w http.ResponseWriter, r *http.Request) {
	rm, ok := s.Registry.GetRoom(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "room_not_found", "That room does not exist.")
		return
	}
	writeJSON(w, http.StatusOK, rm.Info())
}

// RoomHistoryHandler lists archived results for a room code. It works for
// rooms that have already been collected.
func (s *Server) RoomHistoryHandler(w http.ResponseWriter, r *http.Request) {
	if s.Archive == nil {
		writeError(w, http.StatusNotFound, "archive_disabled", "Game history is not enabled on this server.")
		return
	}
	limit := 10
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 100 {
			writeError(w, http.StatusBadRequest, "bad_request", "limit must be between 1 and 100")
			return
		}
		limit = n
	}
	results, err := s.Archive.RecentResults(r.Context(), room.NormalizeCode(r.PathValue("id")), limit)
	if err != nil {
		s.logger.WithError(err).Error("failed to read game history")
		writeError(w, http.StatusInternalServerError, "internal", "could not read game history")
		return
	}
	if results == nil {
		results = []database.GameResult{}
	}
	writeJSON(w, http.StatusOK, results)
}
