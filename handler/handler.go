// Package handler routes API Gateway requests to the stores. Each route
// authenticates the caller, validates the minimal shape of the payload,
// invokes exactly one store operation and translates its result or typed
// failure into a transport response.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-lambda-go/events"

	"coachmotion-backend/internal/auth"
	"coachmotion-backend/internal/domain"
	"coachmotion-backend/internal/ids"
	"coachmotion-backend/internal/integrations/videorooms"
	"coachmotion-backend/internal/repository"
)

// defaultRecentLimit caps the limit query parameter on the message listing
// route when no RECENT_MESSAGE_LIMIT is configured.
const defaultRecentLimit = 50

// Verifier authenticates an inbound bearer token.
type Verifier interface {
	Verify(ctx context.Context, token string) (auth.Identity, error)
}

// ProfileStore is the profile repository surface consumed by the handler.
type ProfileStore interface {
	Save(ctx context.Context, p domain.Profile) (domain.Profile, error)
	Get(ctx context.Context, userID string) (*domain.Profile, error)
	Update(ctx context.Context, userID string, u domain.ProfileUpdate) (domain.Profile, error)
}

// ScheduleStore is the session repository surface consumed by the handler.
type ScheduleStore interface {
	Create(ctx context.Context, sess domain.Session) (domain.Session, error)
	QueryByCoach(ctx context.Context, coachID, startDate, endDate string) ([]domain.Session, error)
	UpdateStatus(ctx context.Context, sessionID string, status domain.SessionStatus, requestingUserID string) (domain.Session, error)
}

// ChatStore is the transcript repository surface consumed by the handler.
type ChatStore interface {
	Append(ctx context.Context, msg domain.ChatMessage) (domain.ChatMessage, error)
	ListAll(ctx context.Context, sessionID string) ([]domain.ChatMessage, error)
	ListRecent(ctx context.Context, sessionID string, limit int) ([]domain.ChatMessage, error)
}

// InsightStore is the insight repository surface consumed by the handler.
type InsightStore interface {
	Append(ctx context.Context, in domain.Insight) (domain.Insight, error)
	ListForSession(ctx context.Context, sessionID string) ([]domain.Insight, error)
}

// RoomProvisioner creates video rooms for newly scheduled sessions.
type RoomProvisioner interface {
	CreateRoom(ctx context.Context, name string, maxParticipants int, sessionEnd time.Time) (videorooms.Room, error)
}

type Handler struct {
	verifier    Verifier
	profiles    ProfileStore
	schedule    ScheduleStore
	chat        ChatStore
	insights    InsightStore
	rooms       RoomProvisioner
	recentLimit int
}

// NewHandler wires the route handlers. recentMessageLimit caps the limit
// query parameter on the message listing route; zero or negative selects the
// default.
func NewHandler(verifier Verifier, profiles ProfileStore, schedule ScheduleStore, chat ChatStore, insights InsightStore, rooms RoomProvisioner, recentMessageLimit int) (*Handler, error) {
	if verifier == nil {
		return nil, errors.New("handler: verifier must not be nil")
	}
	if profiles == nil || schedule == nil || chat == nil || insights == nil {
		return nil, errors.New("handler: all stores must not be nil")
	}
	if rooms == nil {
		return nil, errors.New("handler: room provisioner must not be nil")
	}
	if recentMessageLimit <= 0 {
		recentMessageLimit = defaultRecentLimit
	}
	return &Handler{
		verifier:    verifier,
		profiles:    profiles,
		schedule:    schedule,
		chat:        chat,
		insights:    insights,
		rooms:       rooms,
		recentLimit: recentMessageLimit,
	}, nil
}

type errorResponse struct {
	Error  string `json:"error"`
	Reason string `json:"reason,omitempty"`
}

type sessionRequest struct {
	StartsAt        string             `json:"startsAt"`
	ClientIDs       []string           `json:"clientIds"`
	SessionType     domain.SessionType `json:"sessionType"`
	DurationMinutes int                `json:"durationMinutes"`
}

type statusRequest struct {
	Status domain.SessionStatus `json:"status"`
}

type messageRequest struct {
	Content     string             `json:"content"`
	MessageType domain.MessageType `json:"messageType"`
	SenderID    string             `json:"senderId,omitempty"`
	SenderName  string             `json:"senderName,omitempty"`
	Metadata    map[string]any     `json:"metadata,omitempty"`
}

// Handle is the Lambda entrypoint for all API Gateway routes.
func (h *Handler) Handle(ctx context.Context, event events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	corrID := correlationID(event.Headers)

	identity, err := h.verifier.Verify(ctx, bearerToken(event.Headers))
	if err != nil {
		if errors.Is(err, auth.ErrUnauthenticated) {
			return respond(http.StatusUnauthorized, errorResponse{Error: "UNAUTHENTICATED"}, corrID), nil
		}
		slog.Error("identity verification failed", "err", err, "correlationId", corrID)
		return respond(http.StatusInternalServerError, errorResponse{Error: "INTERNAL"}, corrID), nil
	}

	segments := pathSegments(event.Path)
	route := event.HTTPMethod + " " + routePattern(segments)

	switch route {
	case "GET /profile":
		return h.getProfile(ctx, identity, corrID)
	case "PATCH /profile":
		return h.updateProfile(ctx, identity, event.Body, corrID)
	case "POST /sessions":
		return h.createSession(ctx, identity, event.Body, corrID)
	case "GET /sessions":
		return h.listSessions(ctx, identity, event.QueryStringParameters, corrID)
	case "POST /sessions/{id}/status":
		return h.updateSessionStatus(ctx, identity, segments[1], event.Body, corrID)
	case "GET /sessions/{id}/messages":
		return h.listMessages(ctx, segments[1], event.QueryStringParameters, corrID)
	case "POST /sessions/{id}/messages":
		return h.appendMessage(ctx, identity, segments[1], event.Body, corrID)
	case "GET /sessions/{id}/insights":
		return h.listInsights(ctx, segments[1], corrID)
	case "POST /sessions/{id}/insights":
		return h.appendInsight(ctx, segments[1], event.Body, corrID)
	}
	return respond(http.StatusNotFound, errorResponse{Error: "NOT_FOUND", Reason: "unknown_route"}, corrID), nil
}

// getProfile fetches the caller's profile, provisioning one from the
// authenticated identity when absent. Get never writes; the save-then-refetch
// sequence is this handler's explicit choice.
func (h *Handler) getProfile(ctx context.Context, identity auth.Identity, corrID string) (events.APIGatewayProxyResponse, error) {
	p, err := h.profiles.Get(ctx, identity.UserID)
	if err != nil {
		return storeErrorResponse(err, corrID), nil
	}
	if p == nil {
		if _, err := h.profiles.Save(ctx, domain.Profile{
			UserID:   identity.UserID,
			Email:    identity.Email,
			FullName: identity.FullName,
		}); err != nil {
			return storeErrorResponse(err, corrID), nil
		}
		if p, err = h.profiles.Get(ctx, identity.UserID); err != nil {
			return storeErrorResponse(err, corrID), nil
		}
	}
	return respond(http.StatusOK, p, corrID), nil
}

func (h *Handler) updateProfile(ctx context.Context, identity auth.Identity, body, corrID string) (events.APIGatewayProxyResponse, error) {
	var update domain.ProfileUpdate
	if err := json.Unmarshal([]byte(body), &update); err != nil {
		return respond(http.StatusBadRequest, errorResponse{Error: "INVALID_ARGUMENT", Reason: "malformed_body"}, corrID), nil
	}
	p, err := h.profiles.Update(ctx, identity.UserID, update)
	if err != nil {
		return storeErrorResponse(err, corrID), nil
	}
	return respond(http.StatusOK, p, corrID), nil
}

func (h *Handler) createSession(ctx context.Context, identity auth.Identity, body, corrID string) (events.APIGatewayProxyResponse, error) {
	var req sessionRequest
	if err := json.Unmarshal([]byte(body), &req); err != nil {
		return respond(http.StatusBadRequest, errorResponse{Error: "INVALID_ARGUMENT", Reason: "malformed_body"}, corrID), nil
	}
	if req.SessionType != domain.SessionSingle && req.SessionType != domain.SessionGroup {
		return respond(http.StatusBadRequest, errorResponse{Error: "INVALID_ARGUMENT", Reason: "session_type_unknown"}, corrID), nil
	}
	startsAt, err := time.Parse(time.RFC3339, req.StartsAt)
	if err != nil {
		return respond(http.StatusBadRequest, errorResponse{Error: "INVALID_ARGUMENT", Reason: "starts_at_invalid"}, corrID), nil
	}

	sessionID := ids.NewToken()
	sessionEnd := startsAt.Add(time.Duration(req.DurationMinutes) * time.Minute)
	room, err := h.rooms.CreateRoom(ctx, "session-"+sessionID, len(req.ClientIDs)+1, sessionEnd)
	if err != nil {
		slog.Error("room provisioning failed", "err", err, "correlationId", corrID)
		return respond(http.StatusBadGateway, errorResponse{Error: "UPSTREAM_ERROR", Reason: "room_provisioning"}, corrID), nil
	}

	created, err := h.schedule.Create(ctx, domain.Session{
		CoachID:         identity.UserID,
		StartsAt:        ids.Timestamp(startsAt),
		SessionID:       sessionID,
		ClientIDs:       req.ClientIDs,
		SessionType:     req.SessionType,
		DurationMinutes: req.DurationMinutes,
		RoomName:        room.Name,
	})
	if err != nil {
		return storeErrorResponse(err, corrID), nil
	}
	return respond(http.StatusCreated, created, corrID), nil
}

func (h *Handler) listSessions(ctx context.Context, identity auth.Identity, params map[string]string, corrID string) (events.APIGatewayProxyResponse, error) {
	sessions, err := h.schedule.QueryByCoach(ctx, identity.UserID, params["start"], params["end"])
	if err != nil {
		if repository.IsSchemaMissing(err) {
			return respond(http.StatusOK, []domain.Session{}, corrID), nil
		}
		return storeErrorResponse(err, corrID), nil
	}
	return respond(http.StatusOK, sessions, corrID), nil
}

func (h *Handler) updateSessionStatus(ctx context.Context, identity auth.Identity, sessionID, body, corrID string) (events.APIGatewayProxyResponse, error) {
	var req statusRequest
	if err := json.Unmarshal([]byte(body), &req); err != nil {
		return respond(http.StatusBadRequest, errorResponse{Error: "INVALID_ARGUMENT", Reason: "malformed_body"}, corrID), nil
	}
	sess, err := h.schedule.UpdateStatus(ctx, sessionID, req.Status, identity.UserID)
	if err != nil {
		return storeErrorResponse(err, corrID), nil
	}
	return respond(http.StatusOK, sess, corrID), nil
}

func (h *Handler) listMessages(ctx context.Context, sessionID string, params map[string]string, corrID string) (events.APIGatewayProxyResponse, error) {
	var msgs []domain.ChatMessage
	var err error
	if raw, ok := params["limit"]; ok {
		limit, convErr := strconv.Atoi(raw)
		if convErr != nil || limit <= 0 {
			return respond(http.StatusBadRequest, errorResponse{Error: "INVALID_ARGUMENT", Reason: "limit_invalid"}, corrID), nil
		}
		if limit > h.recentLimit {
			limit = h.recentLimit
		}
		msgs, err = h.chat.ListRecent(ctx, sessionID, limit)
	} else {
		msgs, err = h.chat.ListAll(ctx, sessionID)
	}
	if err != nil {
		if repository.IsSchemaMissing(err) {
			return respond(http.StatusOK, []domain.ChatMessage{}, corrID), nil
		}
		return storeErrorResponse(err, corrID), nil
	}
	return respond(http.StatusOK, msgs, corrID), nil
}

func (h *Handler) appendMessage(ctx context.Context, identity auth.Identity, sessionID, body, corrID string) (events.APIGatewayProxyResponse, error) {
	var req messageRequest
	if err := json.Unmarshal([]byte(body), &req); err != nil {
		return respond(http.StatusBadRequest, errorResponse{Error: "INVALID_ARGUMENT", Reason: "malformed_body"}, corrID), nil
	}
	// Message-type validation is this layer's job, by contract with the store.
	if !domain.ValidMessageType(req.MessageType) {
		return respond(http.StatusBadRequest, errorResponse{Error: "INVALID_ARGUMENT", Reason: "message_type_unknown"}, corrID), nil
	}
	if strings.TrimSpace(req.Content) == "" {
		return respond(http.StatusBadRequest, errorResponse{Error: "INVALID_ARGUMENT", Reason: "content_required"}, corrID), nil
	}

	senderID := identity.UserID
	senderName := identity.FullName
	if req.MessageType == domain.MessageAIAgent && req.SenderID != "" {
		senderID = req.SenderID
		senderName = req.SenderName
	}
	msg, err := h.chat.Append(ctx, domain.ChatMessage{
		SessionID:   sessionID,
		SenderID:    senderID,
		SenderName:  senderName,
		Content:     req.Content,
		MessageType: req.MessageType,
		Metadata:    req.Metadata,
	})
	if err != nil {
		return storeErrorResponse(err, corrID), nil
	}
	return respond(http.StatusCreated, msg, corrID), nil
}

func (h *Handler) listInsights(ctx context.Context, sessionID, corrID string) (events.APIGatewayProxyResponse, error) {
	insights, err := h.insights.ListForSession(ctx, sessionID)
	if err != nil {
		if repository.IsSchemaMissing(err) {
			return respond(http.StatusOK, []domain.Insight{}, corrID), nil
		}
		return storeErrorResponse(err, corrID), nil
	}
	return respond(http.StatusOK, insights, corrID), nil
}

func (h *Handler) appendInsight(ctx context.Context, sessionID, body, corrID string) (events.APIGatewayProxyResponse, error) {
	var in domain.Insight
	if err := json.Unmarshal([]byte(body), &in); err != nil {
		return respond(http.StatusBadRequest, errorResponse{Error: "INVALID_ARGUMENT", Reason: "malformed_body"}, corrID), nil
	}
	in.SessionID = sessionID
	saved, err := h.insights.Append(ctx, in)
	if err != nil {
		return storeErrorResponse(err, corrID), nil
	}
	return respond(http.StatusCreated, saved, corrID), nil
}

// storeErrorResponse maps the repository error taxonomy to transport status
// codes. SchemaMissing reaching this point means a write path hit a missing
// table, which is fatal.
func storeErrorResponse(err error, corrID string) events.APIGatewayProxyResponse {
	var re *repository.Error
	if !errors.As(err, &re) {
		slog.Error("unexpected store error", "err", err, "correlationId", corrID)
		return respond(http.StatusInternalServerError, errorResponse{Error: "INTERNAL"}, corrID)
	}

	status := http.StatusInternalServerError
	switch re.Code {
	case repository.ErrorInvalidArgument:
		status = http.StatusBadRequest
	case repository.ErrorNotFound:
		status = http.StatusNotFound
	case repository.ErrorForbidden:
		status = http.StatusForbidden
	case repository.ErrorSchemaMissing, repository.ErrorBackendUnavailable:
		slog.Error("store backend failure", "code", string(re.Code), "err", err, "correlationId", corrID)
	}
	return respond(status, errorResponse{Error: string(re.Code), Reason: re.Reason}, corrID)
}

func respond(status int, body any, corrID string) events.APIGatewayProxyResponse {
	payload, err := json.Marshal(body)
	if err != nil {
		payload = []byte(`{"error":"INTERNAL"}`)
		status = http.StatusInternalServerError
	}
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers: map[string]string{
			"Content-Type":     "application/json",
			"X-Correlation-Id": corrID,
		},
		Body: string(payload),
	}
}

func correlationID(headers map[string]string) string {
	for k, v := range headers {
		if strings.EqualFold(k, "x-correlation-id") && v != "" {
			return v
		}
	}
	return ids.NewToken()
}

func bearerToken(headers map[string]string) string {
	for k, v := range headers {
		if strings.EqualFold(k, "authorization") {
			return strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(v), "Bearer "))
		}
	}
	return ""
}

func pathSegments(path string) []string {
	return strings.FieldsFunc(path, func(r rune) bool { return r == '/' })
}

// routePattern collapses a concrete path into its route shape, e.g.
// /sessions/abc/messages -> sessions/{id}/messages.
func routePattern(segments []string) string {
	switch len(segments) {
	case 1:
		return "/" + segments[0]
	case 3:
		if segments[0] == "sessions" {
			return "/sessions/{id}/" + segments[2]
		}
	}
	return "/" + strings.Join(segments, "/")
}
