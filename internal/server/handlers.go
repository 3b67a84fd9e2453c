package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"path"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/hyperjump/tally/internal/artifact"
	"github.com/hyperjump/tally/internal/export"
	"github.com/hyperjump/tally/internal/exporter"
	"github.com/hyperjump/tally/internal/models"
	"github.com/hyperjump/tally/internal/queue"
	"github.com/hyperjump/tally/internal/storage"
)

// exportingMessage is the acknowledgement returned when an export is accepted.
const exportingMessage = "Exporting..."

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type exportAccepted struct {
	ID     string          `json:"id"`
	Status string          `json:"status"`
	State  models.JobState `json:"state"`
	Target string          `json:"target"`
}

func (s *Server) handleCreateExport(w http.ResponseWriter, r *http.Request) {
	var opts exporter.Options
	if err := json.NewDecoder(r.Body).Decode(&opts); err != nil && !errors.Is(err, io.EOF) {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.logger.Debug("export request", zap.String("mode", opts.Mode), zap.String("target", opts.Target))

	h, err := s.exports.Trigger(r.Context(), opts)
	if err != nil {
		var cfgErr *export.ConfigurationError
		switch {
		case errors.As(err, &cfgErr):
			s.respondError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, queue.ErrQueueFull), errors.Is(err, queue.ErrClosed):
			s.respondError(w, http.StatusServiceUnavailable, err.Error())
		default:
			s.logger.Error("export trigger failed", zap.Error(err))
			s.respondError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	st, _ := s.exports.Status(h.ID())
	w.Header().Set("Location", "/api/v1/exports/"+h.ID())
	s.respondJSON(w, http.StatusAccepted, exportAccepted{
		ID:     h.ID(),
		Status: exportingMessage,
		State:  st.State,
		Target: st.Target,
	})
}

func (s *Server) handleGetExport(w http.ResponseWriter, r *http.Request) {
	st, ok := s.exports.Status(chi.URLParam(r, "id"))
	if !ok {
		s.respondError(w, http.StatusNotFound, "export not found")
		return
	}
	s.respondJSON(w, http.StatusOK, st)
}

func (s *Server) handleDownloadExport(w http.ResponseWriter, r *http.Request) {
	st, ok := s.exports.Status(chi.URLParam(r, "id"))
	if !ok {
		s.respondError(w, http.StatusNotFound, "export not found")
		return
	}
	if st.State != models.JobCompleted {
		s.respondError(w, http.StatusConflict, "export is "+string(st.State))
		return
	}
	p, err := s.artifacts.Path(st.Target)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+path.Base(st.Target)+`"`)
	http.ServeFile(w, r, p)
}

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var input models.UserInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	input.Name = strings.TrimSpace(input.Name)
	input.Email = strings.TrimSpace(input.Email)
	if input.Name == "" || input.Email == "" {
		s.respondError(w, http.StatusBadRequest, "name and email are required")
		return
	}
	u := &models.User{ID: input.ID, Name: input.Name, Email: input.Email}
	if err := s.storage.CreateUser(r.Context(), u); err != nil {
		s.logger.Error("create user failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusCreated, u)
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.storage.FetchAll(r.Context())
	if err != nil {
		s.logger.Error("list users failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if users == nil {
		users = []*models.User{}
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"users": users, "count": len(users)})
}

func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid user id")
		return
	}
	s.logger.Debug("delete user request", zap.Int64("id", id))
	if err := s.storage.DeleteUser(r.Context(), id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "user not found")
			return
		}
		s.logger.Error("delete user failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	users, err := s.storage.CountUsers(r.Context())
	if err != nil {
		s.logger.Error("status: count users failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	resp := map[string]interface{}{
		"users": users,
	}
	if s.pending != nil {
		resp["pending_jobs"] = s.pending()
	}
	if list, err := s.artifacts.List(); err == nil {
		resp["artifacts"] = len(list)
	}

	configInfo := map[string]interface{}{}
	if s.config != nil {
		configInfo["default_target"] = s.config.Export.DefaultTarget
		configInfo["default_mode"] = s.config.Export.DefaultMode
		configInfo["workers"] = s.config.Queue.Workers
		configInfo["database_path"] = s.config.Storage.DatabasePath
		configInfo["artifact_dir"] = s.config.Storage.ArtifactDir
		if s.config.Schedule.Cron != "" {
			configInfo["schedule"] = s.config.Schedule.Cron
		}

		diskBytes, err := artifact.DiskUsageBytes(s.config.Storage.DatabasePath, s.config.Storage.ArtifactDir)
		if err == nil {
			resp["disk_usage_bytes"] = diskBytes
		}
	}
	resp["config"] = configInfo
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
