package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/dukerupert/memotime/internal/model"
	"github.com/dukerupert/memotime/internal/store"
	"github.com/dukerupert/memotime/internal/websocket"
)

type TimerHandler struct {
	timerStore *store.TimerStore
	hub        *websocket.Hub
	logger     *slog.Logger
}

func NewTimerHandler(ts *store.TimerStore, hub *websocket.Hub, logger *slog.Logger) *TimerHandler {
	return &TimerHandler{timerStore: ts, hub: hub, logger: logger}
}

// timerRequest leaves end_time null for a timer that is still running.
type timerRequest struct {
	TaskName  string     `json:"task_name"`
	StartTime *timestamp `json:"start_time"`
	EndTime   *timestamp `json:"end_time"`
}

func (req timerRequest) input() (model.TimerInput, string) {
	name := strings.TrimSpace(req.TaskName)
	if name == "" {
		return model.TimerInput{}, "task_name is required"
	}
	if req.StartTime == nil {
		return model.TimerInput{}, "start_time is required"
	}
	return model.TimerInput{
		TaskName:  name,
		StartTime: req.StartTime.Time,
		EndTime:   req.EndTime.ptr(),
	}, ""
}

func (h *TimerHandler) decode(w http.ResponseWriter, r *http.Request) (model.TimerInput, bool) {
	var req timerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return model.TimerInput{}, false
	}
	in, problem := req.input()
	if problem != "" {
		writeError(w, http.StatusUnprocessableEntity, problem)
		return model.TimerInput{}, false
	}
	return in, true
}

func (h *TimerHandler) Create(w http.ResponseWriter, r *http.Request) {
	in, ok := h.decode(w, r)
	if !ok {
		return
	}

	id, err := h.timerStore.Create(r.Context(), in)
	if err != nil {
		h.logger.Error("failed to create timer", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create timer")
		return
	}

	h.hub.Publish(websocket.EntityTimer, websocket.ActionCreated, id)

	writeJSON(w, http.StatusCreated, createdResponse{Message: "Timer created successfully", ID: id})
}

func (h *TimerHandler) List(w http.ResponseWriter, r *http.Request) {
	timers, err := h.timerStore.List(r.Context())
	if err != nil {
		h.logger.Error("failed to list timers", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list timers")
		return
	}
	writeTimers(w, timers)
}

func (h *TimerHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid id")
		return
	}

	timer, err := h.timerStore.GetByID(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to get timer", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get timer")
		return
	}
	if timer == nil {
		writeError(w, http.StatusNotFound, "Timer not found")
		return
	}
	writeJSON(w, http.StatusOK, timer)
}

// Update reports success even when the id does not exist.
func (h *TimerHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid id")
		return
	}
	in, ok := h.decode(w, r)
	if !ok {
		return
	}

	updated, err := h.timerStore.Update(r.Context(), id, in)
	if err != nil {
		h.logger.Error("failed to update timer", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update timer")
		return
	}
	if updated {
		h.hub.Publish(websocket.EntityTimer, websocket.ActionUpdated, id)
	} else {
		h.logger.Debug("update matched no timer", "id", id)
	}

	writeMessage(w, http.StatusOK, "Timer updated successfully")
}

// Delete reports success even when the id does not exist.
func (h *TimerHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid id")
		return
	}

	deleted, err := h.timerStore.Delete(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to delete timer", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete timer")
		return
	}
	if deleted {
		h.hub.Publish(websocket.EntityTimer, websocket.ActionDeleted, id)
	} else {
		h.logger.Debug("delete matched no timer", "id", id)
	}

	writeMessage(w, http.StatusOK, "Timer deleted successfully")
}

func (h *TimerHandler) Active(w http.ResponseWriter, r *http.Request) {
	timers, err := h.timerStore.Active(r.Context())
	if err != nil {
		h.logger.Error("failed to list active timers", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list active timers")
		return
	}
	writeTimers(w, timers)
}

func (h *TimerHandler) TotalDuration(w http.ResponseWriter, r *http.Request) {
	taskName, err := requiredQuery(r, "task_name")
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	total, err := h.timerStore.TotalDuration(r.Context(), taskName)
	if err != nil {
		h.logger.Error("failed to sum durations", "task_name", taskName, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to calculate total duration")
		return
	}
	writeJSON(w, http.StatusOK, map[string]*int64{"total_duration_seconds": total})
}

func (h *TimerHandler) AverageDuration(w http.ResponseWriter, r *http.Request) {
	avg, err := h.timerStore.AverageDuration(r.Context())
	if err != nil {
		h.logger.Error("failed to average durations", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to calculate average duration")
		return
	}
	writeJSON(w, http.StatusOK, map[string]*float64{"average_duration_seconds": avg})
}

func (h *TimerHandler) Range(w http.ResponseWriter, r *http.Request) {
	startStr, err := requiredQuery(r, "start")
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	endStr, err := requiredQuery(r, "end")
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	start, err := parseTimestamp(startStr)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "start: "+err.Error())
		return
	}
	end, err := parseTimestamp(endStr)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "end: "+err.Error())
		return
	}

	timers, err := h.timerStore.Range(r.Context(), start, end)
	if err != nil {
		h.logger.Error("failed to list timers in range", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list timers in range")
		return
	}
	writeTimers(w, timers)
}

func writeTimers(w http.ResponseWriter, timers []model.Timer) {
	if timers == nil {
		timers = []model.Timer{}
	}
	writeJSON(w, http.StatusOK, timers)
}
