package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"dcatwiz/internal/config"
	"dcatwiz/internal/logging"
	"dcatwiz/internal/services"
	"dcatwiz/internal/wizard"
	"dcatwiz/internal/workflow"
)

const maxRequestBody = 1 << 20

type apiServer struct {
	bind   string
	token  string
	logger *slog.Logger
	daemon *Daemon

	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) *apiServer {
	srv := &apiServer{
		bind:   strings.TrimSpace(cfg.Paths.APIBind),
		token:  strings.TrimSpace(cfg.Paths.APIToken),
		logger: logger.With(logging.FieldComponent, "api-server"),
		daemon: d,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/status", srv.handleDaemonStatus)
	mux.HandleFunc("GET /api/workflows", srv.handleList)
	mux.HandleFunc("POST /api/workflows", srv.auth(srv.handleIntake))
	mux.HandleFunc("GET /api/workflows/{id}/status", srv.handleStatus)
	mux.HandleFunc("POST /api/workflows/{id}/restart", srv.auth(srv.handleRestart))
	mux.HandleFunc("GET /api/workflows/{id}/review", srv.handleReview)
	mux.HandleFunc("POST /api/workflows/{id}/review", srv.auth(srv.handleSaveReview))
	mux.HandleFunc("POST /api/workflows/{id}/generate", srv.auth(srv.handleGenerate))
	mux.HandleFunc("GET /api/workflows/{id}/translation", srv.handleTranslation)
	mux.HandleFunc("POST /api/workflows/{id}/translation", srv.auth(srv.handleSaveTranslations))
	mux.HandleFunc("POST /api/workflows/{id}/translate", srv.auth(srv.handleMachineTranslate))
	mux.HandleFunc("GET /api/workflows/{id}/contact", srv.handleContact)
	mux.HandleFunc("POST /api/workflows/{id}/contact", srv.auth(srv.handleSaveContact))
	mux.HandleFunc("GET /api/workflows/{id}/document", srv.handleDocument)
	mux.HandleFunc("POST /api/workflows/{id}/submit", srv.auth(srv.handleSubmit))
	mux.HandleFunc("DELETE /api/workflows/{id}", srv.auth(srv.handleAbandon))

	srv.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv
}

func (s *apiServer) start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", "error", err)
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("api server listening", "address", listener.Addr().String())
	return nil
}

func (s *apiServer) stop() {
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

func (s *apiServer) addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *apiServer) handleDaemonStatus(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.daemon.Status())
}

type listResponse struct {
	Workflows []wizard.WorkflowSummary `json:"workflows"`
}

func (s *apiServer) handleList(w http.ResponseWriter, r *http.Request) {
	summaries := s.daemon.controller.List(r.Context())
	s.writeJSON(w, http.StatusOK, listResponse{Workflows: summaries})
}

type intakeRequest struct {
	SourceURL  string `json:"source_url"`
	LandingURL string `json:"landing_url"`
}

func (s *apiServer) handleIntake(w http.ResponseWriter, r *http.Request) {
	var req intakeRequest
	if !s.decode(w, r, &req) {
		return
	}
	result, err := s.daemon.controller.Intake(r.Context(), req.SourceURL, req.LandingURL)
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, result)
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	view, err := s.daemon.controller.Status(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, view)
}

func (s *apiServer) handleRestart(w http.ResponseWriter, r *http.Request) {
	result, err := s.daemon.controller.Restart(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

func (s *apiServer) handleReview(w http.ResponseWriter, r *http.Request) {
	view, err := s.daemon.controller.Review(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, view)
}

type reviewRequest struct {
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	Keywords     []string `json:"keywords"`
	ThemeCodes   []string `json:"theme_codes"`
	PublisherID  string   `json:"publisher_id"`
	AccessRights string   `json:"access_rights"`
	License      string   `json:"license"`
}

func (s *apiServer) handleSaveReview(w http.ResponseWriter, r *http.Request) {
	var req reviewRequest
	if !s.decode(w, r, &req) {
		return
	}
	view, err := s.daemon.controller.SaveReview(r.Context(), r.PathValue("id"), workflow.ReviewInput{
		Title:        req.Title,
		Description:  req.Description,
		Keywords:     req.Keywords,
		ThemeCodes:   req.ThemeCodes,
		PublisherID:  req.PublisherID,
		AccessRights: req.AccessRights,
		License:      req.License,
	})
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, view)
}

func (s *apiServer) handleGenerate(w http.ResponseWriter, r *http.Request) {
	view, err := s.daemon.controller.Generate(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, view)
}

func (s *apiServer) handleTranslation(w http.ResponseWriter, r *http.Request) {
	view, err := s.daemon.controller.Translation(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, view)
}

func (s *apiServer) handleSaveTranslations(w http.ResponseWriter, r *http.Request) {
	var edited workflow.Translations
	if !s.decode(w, r, &edited) {
		return
	}
	view, err := s.daemon.controller.SaveTranslations(r.Context(), r.PathValue("id"), edited)
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, view)
}

func (s *apiServer) handleMachineTranslate(w http.ResponseWriter, r *http.Request) {
	view, err := s.daemon.controller.MachineTranslate(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, view)
}

func (s *apiServer) handleContact(w http.ResponseWriter, r *http.Request) {
	view, err := s.daemon.controller.Contact(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, view)
}

func (s *apiServer) handleSaveContact(w http.ResponseWriter, r *http.Request) {
	var contact workflow.ContactPoint
	if !s.decode(w, r, &contact) {
		return
	}
	view, err := s.daemon.controller.SaveContact(r.Context(), r.PathValue("id"), contact)
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, view)
}

func (s *apiServer) handleDocument(w http.ResponseWriter, r *http.Request) {
	view, err := s.daemon.controller.Document(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, view)
}

type submitRequest struct {
	Token string `json:"token"`
}

func (s *apiServer) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if !s.decode(w, r, &req) {
		return
	}
	result, err := s.daemon.controller.Submit(r.Context(), r.PathValue("id"), req.Token)
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, result)
}

func (s *apiServer) handleAbandon(w http.ResponseWriter, r *http.Request) {
	if err := s.daemon.controller.Abandon(r.Context(), r.PathValue("id")); err != nil {
		s.writeFailure(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *apiServer) decode(w http.ResponseWriter, r *http.Request, dest any) bool {
	body := http.MaxBytesReader(w, r.Body, maxRequestBody)
	defer body.Close()
	if err := json.NewDecoder(body).Decode(dest); err != nil && !errors.Is(err, io.EOF) {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return false
	}
	return true
}

type failureResponse struct {
	Error    string `json:"error"`
	Redirect string `json:"redirect,omitempty"`
}

// writeFailure translates domain errors into response codes. Guard failures
// and expired workflows carry the wizard step the client should navigate to.
func (s *apiServer) writeFailure(w http.ResponseWriter, err error) {
	var guardErr *workflow.GuardError
	if errors.As(err, &guardErr) {
		s.writeJSON(w, http.StatusConflict, failureResponse{
			Error:    guardErr.Reason,
			Redirect: guardErr.Redirect.String(),
		})
		return
	}

	status := http.StatusInternalServerError
	redirect := ""
	switch {
	case errors.Is(err, services.ErrExpired):
		status = http.StatusGone
		redirect = workflow.StageIntake.String()
	case errors.Is(err, services.ErrValidation), errors.Is(err, services.ErrConfiguration):
		status = http.StatusBadRequest
	case errors.Is(err, services.ErrUnauthorized):
		status = http.StatusUnauthorized
	case errors.Is(err, services.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, services.ErrTimeout):
		status = http.StatusGatewayTimeout
	case errors.Is(err, services.ErrTransient), errors.Is(err, services.ErrExternalService):
		status = http.StatusBadGateway
	}
	s.writeJSON(w, status, failureResponse{Error: err.Error(), Redirect: redirect})
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", "error", err)
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, failureResponse{Error: message})
}
