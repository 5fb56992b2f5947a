package endpoints

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"livechat-backend/internal/api/middleware"
	"livechat-backend/internal/dto"
	internaljwt "livechat-backend/internal/jwt"
	"livechat-backend/internal/model"
	"livechat-backend/internal/service/livechat"
)

type LivechatEndpoints interface {
	Rooms(http.ResponseWriter, *http.Request) error
	Agents(http.ResponseWriter, *http.Request) error
	Availability(http.ResponseWriter, *http.Request) error
}

type LivechatPaths struct {
	RoomsPrefix  string
	AgentsPrefix string
}

type livechatEndpoints struct {
	services *livechat.Services
	paths    LivechatPaths
}

func NewLivechatEndpoints(services *livechat.Services, prefix string) LivechatEndpoints {
	base := strings.TrimRight(prefix, "/")
	return NewLivechatEndpointsWithPaths(services, LivechatPaths{
		RoomsPrefix:  base + "/rooms/",
		AgentsPrefix: base + "/agents/",
	})
}

func NewLivechatEndpointsWithPaths(services *livechat.Services, paths LivechatPaths) LivechatEndpoints {
	return &livechatEndpoints{services: services, paths: paths}
}

// Rooms serves /rooms/{id}/transfer, /rooms/{id}/return and /rooms/{id}/history.
func (h *livechatEndpoints) Rooms(w http.ResponseWriter, r *http.Request) error {
	roomID, action, err := splitResource(r.URL.Path, h.paths.RoomsPrefix)
	if err != nil {
		return err
	}

	switch action {
	case "transfer":
		return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
			http.MethodPost: func(w http.ResponseWriter, r *http.Request) error { return h.handleTransfer(w, r, roomID) },
		})
	case "return":
		return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
			http.MethodPost: func(w http.ResponseWriter, r *http.Request) error { return h.handleReturn(w, r, roomID) },
		})
	case "history":
		return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
			http.MethodGet: func(w http.ResponseWriter, r *http.Request) error { return h.handleHistory(w, r, roomID) },
		})
	default:
		return &HTTPError{StatusCode: http.StatusNotFound, Message: "Not found", ErrorLog: fmt.Errorf("unknown room action %q", action)}
	}
}

// Agents serves /agents/{id}/forward, /agents/{id}/status and /agents/{id}/presence. Agents may
// only act on themselves.
func (h *livechatEndpoints) Agents(w http.ResponseWriter, r *http.Request) error {
	agentID, action, err := splitResource(r.URL.Path, h.paths.AgentsPrefix)
	if err != nil {
		return err
	}
	caller, err := requireAgent(r)
	if err != nil {
		return err
	}
	if caller.ID != agentID {
		return &HTTPError{
			StatusCode: http.StatusForbidden,
			Message:    "Agents can only manage their own chats and status",
			ErrorLog:   fmt.Errorf("agent %s acting on %s", caller.ID, agentID),
		}
	}

	switch action {
	case "forward":
		return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
			http.MethodPost: func(w http.ResponseWriter, r *http.Request) error { return h.handleForward(w, r, agentID) },
		})
	case "status":
		return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
			http.MethodPut: func(w http.ResponseWriter, r *http.Request) error { return h.handleSetStatus(w, r, agentID) },
		})
	case "presence":
		return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
			http.MethodPut: func(w http.ResponseWriter, r *http.Request) error { return h.handlePresence(w, r, agentID) },
		})
	default:
		return &HTTPError{StatusCode: http.StatusNotFound, Message: "Not found", ErrorLog: fmt.Errorf("unknown agent action %q", action)}
	}
}

func (h *livechatEndpoints) Availability(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodGet: h.handleAvailability,
	})
}

func (h *livechatEndpoints) handleTransfer(w http.ResponseWriter, r *http.Request, roomID string) error {
	caller, err := requireAgent(r)
	if err != nil {
		return err
	}

	var req dto.TransferRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}
	if strings.TrimSpace(req.DepartmentID) == "" && strings.TrimSpace(req.AgentID) == "" {
		return &HTTPError{StatusCode: http.StatusBadRequest, Message: "departmentId or agentId is required", ErrorLog: errors.New("empty transfer target")}
	}

	ctx := r.Context()
	room, visitor, err := h.services.LoadRoom(ctx, roomID)
	if err != nil {
		return err
	}
	actor, err := h.services.Actor(ctx, caller.ID, room)
	if err != nil {
		return err
	}

	data := livechat.TransferData{
		RoomID:        room.RoomID,
		TransferredBy: &actor,
		DepartmentID:  req.DepartmentID,
		Scope:         req.Scope,
		Comment:       req.Comment,
		ClientAction:  true,
	}
	if agentID := strings.TrimSpace(req.AgentID); agentID != "" {
		target, err := h.services.Directory.GetAgent(ctx, agentID)
		if err != nil {
			if errors.Is(err, livechat.ErrNotFound) {
				return &HTTPError{StatusCode: http.StatusNotFound, Message: "agent not found", Reason: livechat.ReasonInvalidUser, ErrorLog: err}
			}
			return err
		}
		data.TransferredTo = &model.TransferTarget{ID: target.UserID, Username: target.Username, Name: target.Name}
	}

	ok, err := h.services.Transfers.Transfer(ctx, room, visitor, data)
	if err != nil {
		return err
	}
	return WriteJSON(w, http.StatusOK, dto.TransferResponse{RoomID: room.RoomID, Transferred: ok})
}

func (h *livechatEndpoints) handleReturn(w http.ResponseWriter, r *http.Request, roomID string) error {
	caller, err := requireAgent(r)
	if err != nil {
		return err
	}

	var req dto.ReturnRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}

	ctx := r.Context()
	room, _, err := h.services.LoadRoom(ctx, roomID)
	if err != nil {
		return err
	}
	actor, err := h.services.Actor(ctx, caller.ID, room)
	if err != nil {
		return err
	}

	ok, err := h.services.Transfers.ReturnRoomAsInquiry(ctx, room, req.DepartmentID, &livechat.TransferData{
		TransferredBy: &actor,
		Comment:       req.Comment,
	})
	if err != nil {
		return err
	}
	return WriteJSON(w, http.StatusOK, dto.ReturnResponse{RoomID: room.RoomID, Returned: ok})
}

func (h *livechatEndpoints) handleHistory(w http.ResponseWriter, r *http.Request, roomID string) error {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	messages, err := h.services.RoomHistory(r.Context(), roomID, limit)
	if err != nil {
		return err
	}

	resp := dto.RoomHistoryResponse{RoomID: roomID, Entries: make([]model.TransferHistory, 0, len(messages))}
	for _, msg := range messages {
		if msg.TransferData != nil {
			resp.Entries = append(resp.Entries, *msg.TransferData)
		}
	}
	return WriteJSON(w, http.StatusOK, resp)
}

func (h *livechatEndpoints) handleForward(w http.ResponseWriter, r *http.Request, agentID string) error {
	report, err := h.services.Transfers.ForwardOpenChats(r.Context(), agentID)
	if err != nil {
		return err
	}
	return WriteJSON(w, http.StatusOK, dto.ForwardResponse{
		AgentID:     agentID,
		Attempted:   report.Attempted,
		Transferred: report.Transferred,
		Skipped:     report.Skipped,
		Declined:    report.Declined,
		Failed:      report.Failed,
	})
}

func (h *livechatEndpoints) handleSetStatus(w http.ResponseWriter, r *http.Request, agentID string) error {
	var req dto.SetStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}

	ctx := r.Context()
	allowed, err := h.services.Status.AllowChangeToAvailable(ctx, agentID, req.Status)
	if err != nil {
		return err
	}
	if !allowed {
		return &HTTPError{
			StatusCode: http.StatusConflict,
			Message:    "Agent cannot become available outside business hours",
			Reason:     "outside-business-hours",
			ErrorLog:   fmt.Errorf("agent %s blocked by business hours", agentID),
		}
	}

	modified, err := h.services.Status.SetStatus(ctx, agentID, req.Status)
	if err != nil {
		return err
	}
	return WriteJSON(w, http.StatusOK, dto.SetStatusResponse{AgentID: agentID, Status: req.Status, Modified: modified})
}

func (h *livechatEndpoints) handlePresence(w http.ResponseWriter, r *http.Request, agentID string) error {
	var req dto.PresenceRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}
	switch req.Status {
	case model.UserStatusOnline, model.UserStatusAway, model.UserStatusBusy, model.UserStatusOffline:
	default:
		return &HTTPError{StatusCode: http.StatusBadRequest, Message: "Invalid presence status", ErrorLog: fmt.Errorf("presence %q", req.Status)}
	}

	if err := h.services.Status.NotifyAgentStatusChanged(r.Context(), agentID, req.Status); err != nil {
		return err
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

func (h *livechatEndpoints) handleAvailability(w http.ResponseWriter, r *http.Request) error {
	q := r.URL.Query()
	departmentID := strings.TrimSpace(q.Get("department"))
	agentID := strings.TrimSpace(q.Get("agent"))
	skipFallback := queryBool(q.Get("skipFallback"))

	var (
		online bool
		err    error
	)
	if agentID != "" {
		online, err = h.services.Availability.IsOnline(r.Context(), departmentID, agentID, skipFallback)
	} else {
		online, err = h.services.Availability.Online(r.Context(), departmentID, queryBool(q.Get("skipNoAgentSetting")), skipFallback)
	}
	if err != nil {
		return err
	}
	return WriteJSON(w, http.StatusOK, dto.AvailabilityResponse{DepartmentID: departmentID, AgentID: agentID, Online: online})
}

func requireAgent(r *http.Request) (internaljwt.Agent, error) {
	agent, ok := middleware.AgentFromContext(r.Context())
	if !ok || agent.ID == "" {
		return internaljwt.Agent{}, &HTTPError{StatusCode: http.StatusUnauthorized, Message: "Unauthorized", ErrorLog: errors.New("no agent in request context")}
	}
	return agent, nil
}

func queryBool(v string) bool {
	b, _ := strconv.ParseBool(v)
	return b
}
