package http

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/google/uuid"

	otelx "github.com/adaptivelabs/quizhub/internal/adapter/otel"
	"github.com/adaptivelabs/quizhub/internal/domain/event"
	"github.com/adaptivelabs/quizhub/internal/domain/quiz"
	"github.com/adaptivelabs/quizhub/internal/hub"
	"github.com/adaptivelabs/quizhub/internal/port/backplane"
	"github.com/adaptivelabs/quizhub/internal/resilience"
	"github.com/adaptivelabs/quizhub/internal/service"
)

// Handlers holds the HTTP handler dependencies.
type Handlers struct {
	Hub       *hub.Hub
	Snapshots *service.Snapshot
	Backplane backplane.Backplane
	Breaker   *resilience.Breaker
	Metrics   *otelx.Metrics
}

// PublishEvent handles POST /api/v1/rooms/{roomID}/events. The body is the
// wire event itself; it is validated, broadcast to the room, and returned
// to every member byte-for-byte.
func (h *Handlers) PublishEvent(w http.ResponseWriter, r *http.Request) {
	roomID := urlParam(r, "roomID")
	if roomID == "" {
		writeError(w, http.StatusBadRequest, "room id is required")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
		return
	}

	ev, err := event.Decode(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid event: "+err.Error())
		return
	}

	ctx, span := otelx.StartPublishSpan(r.Context(), roomID, ev.Type)
	defer span.End()

	h.Hub.Publish(ctx, roomID, ev.Raw)
	if ev.Type == event.TypeQuizData && h.Snapshots != nil {
		h.Snapshots.Store(ctx, roomID, ev.Raw)
	}
	if h.Metrics != nil {
		h.Metrics.EventsPublished.Add(ctx, 1)
	}

	writeJSON(w, http.StatusAccepted, map[string]string{
		"room_id": roomID,
		"type":    ev.Type,
	})
}

// PublishQuiz handles POST /api/v1/quizzes. The quiz is validated, given
// IDs and a time limit where missing, and broadcast as a QUIZ_DATA event
// to the room named by its quiz_id.
func (h *Handlers) PublishQuiz(w http.ResponseWriter, r *http.Request) {
	q, ok := readJSON[quiz.Quiz](w, r)
	if !ok {
		return
	}

	if err := q.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if q.QuizID == "" {
		q.QuizID = uuid.NewString()
	}
	if q.TimeLimitSeconds == 0 {
		q.TimeLimitSeconds = quiz.DefaultTimeLimitSeconds
	}
	for i := range q.Questions {
		if q.Questions[i].ID == "" {
			q.Questions[i].ID = uuid.NewString()
		}
	}

	data, err := encodeQuizEvent(&q)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to encode quiz")
		return
	}

	ctx, span := otelx.StartPublishSpan(r.Context(), q.QuizID, event.TypeQuizData)
	defer span.End()

	h.Hub.Publish(ctx, q.QuizID, data)
	if h.Snapshots != nil {
		h.Snapshots.Store(ctx, q.QuizID, data)
	}
	if h.Metrics != nil {
		h.Metrics.EventsPublished.Add(ctx, 1)
	}

	writeJSON(w, http.StatusCreated, q)
}

// encodeQuizEvent wraps a quiz in the QUIZ_DATA wire envelope.
func encodeQuizEvent(q *quiz.Quiz) ([]byte, error) {
	raw, err := json.Marshal(q)
	if err != nil {
		return nil, err
	}
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}
	return event.Encode(event.TypeQuizData, fields)
}

// ListRooms handles GET /api/v1/rooms: active rooms with their local
// member counts.
func (h *Handlers) ListRooms(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"rooms":       h.Hub.Rooms(),
		"connections": h.Hub.ConnectionCount(),
	})
}

// DropSnapshot handles DELETE /api/v1/rooms/{roomID}/snapshot, clearing
// the room's stored quiz state after a quiz ends.
func (h *Handlers) DropSnapshot(w http.ResponseWriter, r *http.Request) {
	roomID := urlParam(r, "roomID")
	if roomID == "" {
		writeError(w, http.StatusBadRequest, "room id is required")
		return
	}
	if h.Snapshots != nil {
		h.Snapshots.Drop(r.Context(), roomID)
	}
	w.WriteHeader(http.StatusNoContent)
}

// Health handles GET /health. The service reports degraded rather than
// down while the backplane is unreachable; local delivery still works.
func (h *Handlers) Health(w http.ResponseWriter, _ *http.Request) {
	status := "ok"
	backplaneStatus := "connected"
	if h.Backplane == nil || !h.Backplane.IsConnected() {
		status = "degraded"
		backplaneStatus = "disconnected"
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":      status,
		"backplane":   backplaneStatus,
		"breaker":     h.Breaker.State(),
		"connections": h.Hub.ConnectionCount(),
	})
}
