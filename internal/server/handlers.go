package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"refgate/internal/commitstatus"
	"refgate/internal/project"
	"refgate/internal/security"

	"github.com/go-chi/chi/v5"
)

const (
	MaxPayloadBytes     = 1_000_000 // 1 MB
	DefaultDeploysLimit = 10        // Number of deploys returned by the deploys endpoint
	MaxDeploysLimit     = 100

	tagRefPrefix = "refs/tags/"
)

// statusResponse is the body of the status endpoint
type statusResponse struct {
	Project   string                `json:"project"`
	Stage     string                `json:"stage,omitempty"`
	Reference string                `json:"reference"`
	State     string                `json:"state"`
	Passing   bool                  `json:"passing"`
	Statuses  []commitstatus.Status `json:"statuses"`
}

// pushPayload is the part of a GitHub push event refgate reads
type pushPayload struct {
	Ref     string `json:"ref"`
	Deleted bool   `json:"deleted"`
}

// HandleHealth handles health check requests
func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"status":        "ok",
		"projects":      s.Registry.List(),
		"project_count": s.Registry.Count(),
	}

	s.respondJSON(w, http.StatusOK, response)
}

// HandleStatus resolves the commit status of ?ref= for a project, optionally
// scoped to a stage
func (s *Server) HandleStatus(w http.ResponseWriter, r *http.Request) {
	proj, ok := s.lookupProject(w, r)
	if !ok {
		return
	}

	reference, ok := s.referenceParam(w, r)
	if !ok {
		return
	}

	var stage *project.Stage
	if stageName := chi.URLParam(r, "stageName"); stageName != "" {
		stage, ok = proj.Stage(stageName)
		if !ok {
			s.respondJSON(w, http.StatusNotFound, map[string]string{"error": "Unknown stage"})
			return
		}
	}

	var deployID int64
	if raw := r.URL.Query().Get("deploy_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id < 0 {
			s.respondJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid deploy_id"})
			return
		}
		deployID = id
	}

	result, err := s.Resolver.Resolve(r.Context(), commitstatus.Request{
		Project:   proj,
		Stage:     stage,
		Reference: reference,
		DeployID:  deployID,
	})
	if err != nil {
		s.Logger.Error("Failed to resolve commit status", "error", err, "project", proj.Name, "reference", reference)
		s.respondJSON(w, http.StatusBadGateway, map[string]string{"error": "Failed to resolve commit status"})
		return
	}

	response := statusResponse{
		Project:   proj.Name,
		Reference: reference,
		State:     result.State,
		Passing:   result.Passing(),
		Statuses:  result.Display(reference),
	}
	if stage != nil {
		response.Stage = stage.Name
	}

	s.respondJSON(w, http.StatusOK, response)
}

// HandleExpireCache drops the cached provider status of ?ref=
func (s *Server) HandleExpireCache(w http.ResponseWriter, r *http.Request) {
	proj, ok := s.lookupProject(w, r)
	if !ok {
		return
	}

	reference, ok := s.referenceParam(w, r)
	if !ok {
		return
	}

	if err := s.Resolver.ExpireCache(r.Context(), proj, reference); err != nil {
		s.Logger.Error("Failed to expire cache", "error", err, "project", proj.Name, "reference", reference)
		s.respondJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to expire cache"})
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]string{"message": "Cache expired", "reference": reference})
}

// HandleDeploys lists the most recent deploys of a project
func (s *Server) HandleDeploys(w http.ResponseWriter, r *http.Request) {
	proj, ok := s.lookupProject(w, r)
	if !ok {
		return
	}

	if s.History == nil {
		s.respondJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "History not available"})
		return
	}

	limit := DefaultDeploysLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > MaxDeploysLimit {
			s.respondJSON(w, http.StatusBadRequest, map[string]string{"error": fmt.Sprintf("limit must be between 1 and %d", MaxDeploysLimit)})
			return
		}
		limit = n
	}

	deploys, err := s.History.ListDeploys(r.Context(), proj.Name, limit)
	if err != nil {
		s.Logger.Error("Failed to list deploys", "error", err, "project", proj.Name)
		s.respondJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to fetch deploys"})
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"project": proj.Name,
		"deploys": deploys,
	})
}

// HandleWebhook handles GitHub push webhooks. Tags are the only versioned
// references, and a push to one means it moved or was deleted, so its cached
// status is expired.
func (s *Server) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	proj, ok := s.lookupProject(w, r)
	if !ok {
		return
	}

	if proj.Secret == "" {
		s.respondJSON(w, http.StatusNotFound, map[string]string{"error": "Webhook not configured"})
		return
	}

	// ContentLength can be -1 if not set; the LimitReader below covers that case
	if r.ContentLength > MaxPayloadBytes {
		s.respondJSON(w, http.StatusRequestEntityTooLarge, map[string]string{"error": "Payload too large"})
		return
	}

	if r.Header.Get("Content-Type") != "application/json" {
		s.respondJSON(w, http.StatusUnsupportedMediaType, map[string]string{"error": "Invalid content type"})
		return
	}

	if r.Header.Get("X-GitHub-Event") != "push" {
		s.respondJSON(w, http.StatusOK, map[string]string{"message": "Ignoring non-push event"})
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, MaxPayloadBytes))
	if err != nil {
		s.Logger.Error("Failed to read request body", "error", err, "project", proj.Name)
		s.respondJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to read payload"})
		return
	}

	signature := r.Header.Get("X-Hub-Signature-256")
	if !VerifySignature(body, signature, proj.Secret) {
		s.Logger.Warn("Invalid webhook signature", "project", proj.Name)
		s.respondJSON(w, http.StatusForbidden, map[string]string{"error": "Invalid signature"})
		return
	}

	var payload pushPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		s.Logger.Error("Failed to parse JSON payload", "error", err, "project", proj.Name)
		s.respondJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid JSON payload"})
		return
	}

	if payload.Ref == "" {
		s.respondJSON(w, http.StatusOK, map[string]string{"message": "Missing ref, skipping"})
		return
	}

	if !strings.HasPrefix(payload.Ref, tagRefPrefix) {
		s.respondJSON(w, http.StatusOK, map[string]string{"message": "Not a tag push, skipping"})
		return
	}

	tag := strings.TrimPrefix(payload.Ref, tagRefPrefix)
	if err := security.ValidateReference(tag); err != nil {
		s.Logger.Warn("Invalid tag in push event", "project", proj.Name, "ref", payload.Ref, "error", err)
		s.respondJSON(w, http.StatusBadRequest, map[string]string{"error": fmt.Sprintf("Invalid tag: %v", err)})
		return
	}

	if err := s.Resolver.ExpireCache(r.Context(), proj, tag); err != nil {
		s.Logger.Error("Failed to expire cache", "error", err, "project", proj.Name, "reference", tag)
		s.respondJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to expire cache"})
		return
	}

	s.Logger.Info("tag push expired cached status", "project", proj.Name, "tag", tag, "deleted", payload.Deleted)
	s.respondJSON(w, http.StatusOK, map[string]string{"message": "Cache expired", "reference": tag})
}

// lookupProject validates the projectName URL parameter and loads the project.
// It writes the error response itself when it returns false.
func (s *Server) lookupProject(w http.ResponseWriter, r *http.Request) (*project.Project, bool) {
	projectName := chi.URLParam(r, "projectName")

	if err := security.ValidateProjectName(projectName); err != nil {
		s.Logger.Warn("Invalid project name in request", "project", projectName, "path", r.URL.Path, "error", err)
		s.respondJSON(w, http.StatusBadRequest, map[string]string{"error": fmt.Sprintf("Invalid project name: %v", err)})
		return nil, false
	}

	proj, err := s.Registry.Get(projectName)
	if err != nil {
		s.respondJSON(w, http.StatusNotFound, map[string]string{"error": "Unknown project"})
		return nil, false
	}

	return proj, true
}

func (s *Server) referenceParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	reference := r.URL.Query().Get("ref")
	if reference == "" {
		s.respondJSON(w, http.StatusBadRequest, map[string]string{"error": "Missing ref parameter"})
		return "", false
	}

	if err := security.ValidateReference(reference); err != nil {
		s.Logger.Warn("Invalid reference in request", "reference", reference, "error", err)
		s.respondJSON(w, http.StatusBadRequest, map[string]string{"error": fmt.Sprintf("Invalid reference: %v", err)})
		return "", false
	}

	return reference, true
}

// respondJSON sends a JSON response
func (s *Server) respondJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.Logger.Error("Failed to encode JSON response", "error", err)
	}
}
