package chat

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

// Handler exposes the room service over HTTP and websockets.
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(router chi.Router) {
	router.Post("/api/join", h.handleJoin)
	router.Post("/api/messages", h.handleGroupMessage)
	router.Post("/api/messages/private", h.handlePrivateMessage)
	router.Post("/api/keys", h.handleKeyUpdate)
	router.Get("/api/users", h.handleGetUsers)
	router.Get("/api/history/room", h.handleRoomHistory)
	router.Get("/api/history/private", h.handlePrivateHistory)
	router.Post("/api/polls", h.handleCreatePoll)
	router.Post("/api/polls/{poll_id}/vote", h.handleVote)
	router.Get("/api/polls", h.handleGetPolls)
	router.Get("/api/ws", h.handleWebsocket)
}

func (h *Handler) handleJoin(w http.ResponseWriter, req *http.Request) {
	var joinReq JoinRequest
	if err := json.NewDecoder(req.Body).Decode(&joinReq); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	resp, err := h.svc.Join(joinReq.Name)
	if err != nil {
		switch {
		case errors.Is(err, ErrNameRequired):
			http.Error(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, ErrRoomFull):
			http.Error(w, err.Error(), http.StatusConflict)
		default:
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}

	json.NewEncoder(w).Encode(resp)
}

func (h *Handler) handleGroupMessage(w http.ResponseWriter, req *http.Request) {
	var msgReq GroupMessageRequest
	if err := json.NewDecoder(req.Body).Decode(&msgReq); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	messageID, err := h.svc.SubmitGroup(msgReq.SenderID, msgReq.Ciphertext)
	if err != nil {
		http.Error(w, err.Error(), submitStatus(err))
		return
	}

	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(&SubmitResponse{MessageID: messageID})
}

func (h *Handler) handlePrivateMessage(w http.ResponseWriter, req *http.Request) {
	var msgReq PrivateMessageRequest
	if err := json.NewDecoder(req.Body).Decode(&msgReq); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	messageID, err := h.svc.SubmitPrivate(msgReq.SenderID, msgReq.To, msgReq.Ciphertext)
	if err != nil {
		http.Error(w, err.Error(), submitStatus(err))
		return
	}

	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(&SubmitResponse{MessageID: messageID})
}

func (h *Handler) handleKeyUpdate(w http.ResponseWriter, req *http.Request) {
	var keyReq KeyUpdateRequest
	if err := json.NewDecoder(req.Body).Decode(&keyReq); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	user, err := h.svc.UpdateKey(keyReq.UserID, keyReq.PublicKey)
	if err != nil {
		if errors.Is(err, ErrUnknownUser) {
			http.Error(w, err.Error(), http.StatusNotFound)
		} else {
			http.Error(w, err.Error(), http.StatusBadRequest)
		}
		return
	}

	json.NewEncoder(w).Encode(user)
}

func (h *Handler) handleGetUsers(w http.ResponseWriter, req *http.Request) {
	json.NewEncoder(w).Encode(h.svc.Directory.List())
}

func (h *Handler) handleRoomHistory(w http.ResponseWriter, req *http.Request) {
	history, err := h.svc.RoomHistory(historyLimit(req))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	json.NewEncoder(w).Encode(history)
}

func (h *Handler) handlePrivateHistory(w http.ResponseWriter, req *http.Request) {
	user1 := req.URL.Query().Get("user")
	user2 := req.URL.Query().Get("with")
	if user1 == "" || user2 == "" {
		http.Error(w, "user and with query parameters are required", http.StatusBadRequest)
		return
	}

	history, err := h.svc.PrivateHistory(user1, user2, historyLimit(req))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	json.NewEncoder(w).Encode(history)
}

func (h *Handler) handleCreatePoll(w http.ResponseWriter, req *http.Request) {
	var pollReq struct {
		UserID   string   `json:"userId"`
		Question string   `json:"question"`
		Options  []string `json:"options"`
	}
	if err := json.NewDecoder(req.Body).Decode(&pollReq); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	poll, err := h.svc.CreatePoll(pollReq.UserID, pollReq.Question, pollReq.Options)
	if err != nil {
		if errors.Is(err, ErrUnknownUser) {
			http.Error(w, err.Error(), http.StatusNotFound)
		} else {
			http.Error(w, err.Error(), http.StatusBadRequest)
		}
		return
	}

	json.NewEncoder(w).Encode(poll)
}

func (h *Handler) handleVote(w http.ResponseWriter, req *http.Request) {
	pollID := chi.URLParam(req, "poll_id")

	var voteReq struct {
		UserID   string `json:"userId"`
		OptionID string `json:"optionId"`
	}
	if err := json.NewDecoder(req.Body).Decode(&voteReq); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	poll, err := h.svc.Vote(pollID, voteReq.UserID, voteReq.OptionID)
	if err != nil {
		switch {
		case errors.Is(err, ErrUnknownPoll), errors.Is(err, ErrUnknownUser):
			http.Error(w, err.Error(), http.StatusNotFound)
		default:
			http.Error(w, err.Error(), http.StatusBadRequest)
		}
		return
	}

	json.NewEncoder(w).Encode(poll)
}

func (h *Handler) handleGetPolls(w http.ResponseWriter, req *http.Request) {
	json.NewEncoder(w).Encode(h.svc.Polls.List())
}

// handleWebsocket attaches a live connection for the given user. The read
// loop only watches for the peer going away; all traffic flows server to
// client. Closing the socket marks the user as having left the room.
func (h *Handler) handleWebsocket(w http.ResponseWriter, req *http.Request) {
	userID := req.URL.Query().Get("user")
	if _, ok := h.svc.Directory.Get(userID); !ok {
		http.Error(w, ErrUnknownUser.Error(), http.StatusNotFound)
		return
	}

	conn, err := h.svc.Hub.Attach(userID, w, req)
	if err != nil {
		// Upgrade already wrote the error response.
		return
	}

	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
		// A connection replaced by a reconnect must not mark the user as
		// having left.
		if h.svc.Hub.Detach(userID, conn) {
			h.svc.Leave(userID)
		}
	}()
}

func submitStatus(err error) int {
	if errors.Is(err, ErrUnknownUser) {
		return http.StatusNotFound
	}
	return http.StatusBadRequest
}

func historyLimit(req *http.Request) int {
	limit, err := strconv.Atoi(req.URL.Query().Get("limit"))
	if err != nil || limit <= 0 {
		return 0
	}
	return limit
}
