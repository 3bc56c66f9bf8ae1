// Package handler is the thin HTTP layer over the wizard controller. It
// decodes requests, delegates, and translates coded errors; no business
// logic lives here.
package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"medboard/internal/platform/middleware"
	"medboard/internal/registration/models"
	vmodels "medboard/internal/verification/models"
	"medboard/internal/wizard"
	id "medboard/pkg/domain"
	dErrors "medboard/pkg/domain-errors"
	"medboard/pkg/platform/httputil"
)

// Handler handles registration wizard endpoints.
type Handler struct {
	wizard *wizard.Controller
	logger *slog.Logger
}

// New creates a registration Handler.
func New(controller *wizard.Controller, logger *slog.Logger) *Handler {
	return &Handler{wizard: controller, logger: logger}
}

// Register mounts the wizard routes on the chi router.
func (h *Handler) Register(r chi.Router) {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recovery(h.logger))
	router.Use(middleware.Logger(h.logger))
	router.Use(middleware.Device)

	router.Post("/registration/sessions", h.handleStart)
	router.Post("/registration/sessions/resume", h.handleResume)
	router.Route("/registration/sessions/{sessionID}", func(r chi.Router) {
		r.Get("/", h.handleState)
		r.Delete("/", h.handleReset)
		r.Patch("/data", h.handleUpdateData)
		r.Post("/next", h.handleNext)
		r.Post("/previous", h.handlePrevious)
		r.Post("/jump", h.handleJump)
		r.Post("/verification/{channel}/send", h.handleSendCode)
		r.Post("/verification/{channel}/confirm", h.handleConfirmCode)
		r.Post("/license-check", h.handleLicenseCheck)
		r.Post("/identity", h.handleIdentityRefresh)
		r.Post("/submit", h.handleSubmit)
	})

	r.Mount("/", router)
}

type startResponse struct {
	Session     *models.RegistrationSession `json:"session"`
	ResumeToken string                      `json:"resume_token"`
}

func (h *Handler) handleStart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	result, err := h.wizard.Start(ctx, middleware.GetDevice(ctx))
	if err != nil {
		h.writeError(w, r, "start session", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, startResponse{
		Session:     result.Session,
		ResumeToken: result.ResumeToken,
	})
}

func (h *Handler) handleResume(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ResumeToken string `json:"resume_token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	result, err := h.wizard.Resume(r.Context(), req.ResumeToken)
	if err != nil {
		h.writeError(w, r, "resume session", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, startResponse{
		Session:     result.Session,
		ResumeToken: result.ResumeToken,
	})
}

func (h *Handler) handleState(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	snapshot, err := h.wizard.State(r.Context(), sessionID)
	if err != nil {
		h.writeError(w, r, "load state", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, snapshot)
}

func (h *Handler) handleUpdateData(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := h.sessionID(w, r)
	if !ok {
		return
	}

	var partial models.RegistrationData
	if err := json.NewDecoder(r.Body).Decode(&partial); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	sess, err := h.wizard.UpdateData(r.Context(), sessionID, partial)
	if err != nil {
		h.writeError(w, r, "update data", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, sess)
}

func (h *Handler) handleNext(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	result, err := h.wizard.GoToNextStep(r.Context(), sessionID)
	if err != nil {
		h.writeError(w, r, "advance step", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) handlePrevious(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	result, err := h.wizard.GoToPreviousStep(r.Context(), sessionID)
	if err != nil {
		h.writeError(w, r, "retreat step", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) handleJump(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := h.sessionID(w, r)
	if !ok {
		return
	}

	var req struct {
		Step models.Step `json:"step"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	result, err := h.wizard.JumpToStep(r.Context(), sessionID, req.Step)
	if err != nil {
		h.writeError(w, r, "jump step", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) handleSendCode(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	channel := vmodels.Channel(chi.URLParam(r, "channel"))
	if !vmodels.IsChannel(channel) {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "unknown verification channel"))
		return
	}

	result, err := h.wizard.SendCode(r.Context(), sessionID, channel)
	if err != nil {
		if dErrors.Is(err, dErrors.CodeCooldownActive) {
			w.Header().Set("Retry-After", result.NextAllowedAt.UTC().Format(time.RFC1123))
		}
		h.writeError(w, r, "send code", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) handleConfirmCode(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	channel := vmodels.Channel(chi.URLParam(r, "channel"))
	if !vmodels.IsChannel(channel) {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "unknown verification channel"))
		return
	}

	var req struct {
		Code string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	result, err := h.wizard.ConfirmCode(r.Context(), sessionID, channel, req.Code)
	if err != nil {
		h.writeError(w, r, "confirm code", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) handleLicenseCheck(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	result, err := h.wizard.CheckLicense(r.Context(), sessionID)
	if err != nil {
		h.writeError(w, r, "check license", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) handleIdentityRefresh(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := h.sessionID(w, r)
	if !ok {
		return
	}

	var req struct {
		ReferenceID string `json:"reference_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	result, err := h.wizard.RefreshIdentityStatus(r.Context(), sessionID, req.ReferenceID)
	if err != nil {
		h.writeError(w, r, "refresh identity", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	profileID, err := h.wizard.Submit(r.Context(), sessionID)
	if err != nil {
		h.writeError(w, r, "submit registration", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, map[string]string{"profile_id": profileID.String()})
}

func (h *Handler) handleReset(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	if err := h.wizard.Reset(r.Context(), sessionID); err != nil {
		h.writeError(w, r, "reset session", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) sessionID(w http.ResponseWriter, r *http.Request) (id.SessionID, bool) {
	sessionID, err := id.ParseSessionID(chi.URLParam(r, "sessionID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid session id"))
		return id.SessionID{}, false
	}
	return sessionID, true
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		h.logger.ErrorContext(r.Context(), "wizard operation failed",
			"request_id", middleware.GetRequestID(r.Context()),
			"op", op,
			"error", err.Error(),
		)
	}
	httputil.WriteError(w, err)
}
