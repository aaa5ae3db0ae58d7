package app

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"buffwatch/internal/domain"
	"buffwatch/internal/ingest"
)

// buildHTTPServer wires router with frame ingest, controls, and health endpoints.
// Params: none.
// Returns: setup error.
func (s *Service) buildHTTPServer() error {
	if !s.cfg.HTTP.Enabled {
		return nil
	}

	mux := http.NewServeMux()
	mux.HandleFunc(s.cfg.HTTP.HealthPath, func(writer http.ResponseWriter, _ *http.Request) {
		writer.WriteHeader(http.StatusOK)
		_, _ = writer.Write([]byte("ok"))
	})
	mux.HandleFunc(s.cfg.HTTP.ReadyPath, func(writer http.ResponseWriter, _ *http.Request) {
		if !s.readyFlag.Load() {
			writer.WriteHeader(http.StatusServiceUnavailable)
			_, _ = writer.Write([]byte("not-ready"))
			return
		}
		writer.WriteHeader(http.StatusOK)
		_, _ = writer.Write([]byte("ready"))
	})
	mux.Handle(s.cfg.HTTP.FramePath, ingest.NewHTTPHandler(s.runtime, s.cfg.HTTP.MaxBodyBytes))

	mux.HandleFunc("GET /surfaces", s.handleSurfaces)
	mux.HandleFunc("GET /status", s.handleStatus)
	mux.HandleFunc("GET /settings", s.handleSettings)
	mux.HandleFunc("PATCH /settings", s.handlePatchSettings)
	mux.HandleFunc("GET /modules", s.handleModules)
	mux.HandleFunc("POST /modules/{module}/mute", s.handleToggleModule)
	mux.HandleFunc("PUT /modules/{module}/enabled", s.handleModuleEnabled)
	mux.HandleFunc("GET /modules/{module}/config", s.handleModuleConfig)
	mux.HandleFunc("PATCH /modules/{module}/config", s.handlePatchModuleConfig)
	mux.HandleFunc("DELETE /players/{module}/{entity}/mute", s.handleUnmutePlayer)
	mux.HandleFunc("PUT /blacklist/{territory}", s.handleBlacklist(true))
	mux.HandleFunc("DELETE /blacklist/{territory}", s.handleBlacklist(false))

	s.httpSrv = &http.Server{
		Addr:              s.cfg.HTTP.Listen,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return nil
}

func (s *Service) handleSurfaces(writer http.ResponseWriter, _ *http.Request) {
	writeJSON(writer, http.StatusOK, s.runtime.Views())
}

func (s *Service) handleStatus(writer http.ResponseWriter, _ *http.Request) {
	writeJSON(writer, http.StatusOK, s.runtime.Snapshot())
}

func (s *Service) handleSettings(writer http.ResponseWriter, _ *http.Request) {
	writeJSON(writer, http.StatusOK, s.runtime.Settings())
}

func (s *Service) handlePatchSettings(writer http.ResponseWriter, request *http.Request) {
	body, ok := s.readBody(writer, request)
	if !ok {
		return
	}
	settings, err := s.runtime.PatchSettings(request.Context(), body)
	if err != nil {
		writeError(writer, err)
		return
	}
	writeJSON(writer, http.StatusOK, settings)
}

func (s *Service) handleModules(writer http.ResponseWriter, _ *http.Request) {
	writeJSON(writer, http.StatusOK, s.runtime.Modules())
}

func (s *Service) handleToggleModule(writer http.ResponseWriter, request *http.Request) {
	muted, err := s.runtime.ToggleModule(request.PathValue("module"))
	if err != nil {
		writeError(writer, err)
		return
	}
	writeJSON(writer, http.StatusOK, map[string]bool{"muted": muted})
}

func (s *Service) handleModuleEnabled(writer http.ResponseWriter, request *http.Request) {
	body, ok := s.readBody(writer, request)
	if !ok {
		return
	}
	enabled, err := strconv.ParseBool(strings.TrimSpace(string(body)))
	if err != nil {
		http.Error(writer, "body must be true or false", http.StatusBadRequest)
		return
	}
	if err := s.runtime.SetModuleEnabled(request.Context(), request.PathValue("module"), enabled); err != nil {
		writeError(writer, err)
		return
	}
	writeJSON(writer, http.StatusOK, map[string]bool{"enabled": enabled})
}

func (s *Service) handleModuleConfig(writer http.ResponseWriter, request *http.Request) {
	body, err := s.runtime.ModuleConfig(request.PathValue("module"))
	if err != nil {
		writeError(writer, err)
		return
	}
	writeRawJSON(writer, body)
}

func (s *Service) handlePatchModuleConfig(writer http.ResponseWriter, request *http.Request) {
	patch, ok := s.readBody(writer, request)
	if !ok {
		return
	}
	body, err := s.runtime.PatchModuleConfig(request.Context(), request.PathValue("module"), patch)
	if err != nil {
		writeError(writer, err)
		return
	}
	writeRawJSON(writer, body)
}

func (s *Service) handleUnmutePlayer(writer http.ResponseWriter, request *http.Request) {
	entity, err := strconv.ParseUint(request.PathValue("entity"), 0, 64)
	if err != nil {
		http.Error(writer, "invalid entity id", http.StatusBadRequest)
		return
	}
	if err := s.runtime.UnsuppressPlayer(request.PathValue("module"), domain.EntityID(entity)); err != nil {
		writeError(writer, err)
		return
	}
	writer.WriteHeader(http.StatusNoContent)
}

func (s *Service) handleBlacklist(add bool) http.HandlerFunc {
	return func(writer http.ResponseWriter, request *http.Request) {
		territory, err := strconv.ParseUint(request.PathValue("territory"), 10, 32)
		if err != nil {
			http.Error(writer, "invalid territory id", http.StatusBadRequest)
			return
		}
		var changed bool
		if add {
			changed, err = s.runtime.BlacklistAdd(request.Context(), uint32(territory))
		} else {
			changed, err = s.runtime.BlacklistRemove(request.Context(), uint32(territory))
		}
		if err != nil {
			writeError(writer, err)
			return
		}
		writeJSON(writer, http.StatusOK, map[string]bool{"changed": changed})
	}
}

// readBody reads bounded request body.
// Params: response writer for error replies and request.
// Returns: body and false when a reply was already written.
func (s *Service) readBody(writer http.ResponseWriter, request *http.Request) ([]byte, bool) {
	request.Body = http.MaxBytesReader(writer, request.Body, s.cfg.HTTP.MaxBodyBytes)
	body, err := io.ReadAll(request.Body)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			http.Error(writer, "payload too large", http.StatusRequestEntityTooLarge)
			return nil, false
		}
		http.Error(writer, "read body failed", http.StatusBadRequest)
		return nil, false
	}
	return body, true
}

func writeError(writer http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrUnknownModule):
		http.Error(writer, err.Error(), http.StatusNotFound)
	case errors.Is(err, ErrPersist):
		http.Error(writer, err.Error(), http.StatusInternalServerError)
	default:
		http.Error(writer, err.Error(), http.StatusBadRequest)
	}
}

func writeJSON(writer http.ResponseWriter, status int, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		http.Error(writer, "encode response failed", http.StatusInternalServerError)
		return
	}
	writer.Header().Set("Content-Type", "application/json")
	writer.WriteHeader(status)
	_, _ = writer.Write(body)
}

func writeRawJSON(writer http.ResponseWriter, body []byte) {
	writer.Header().Set("Content-Type", "application/json")
	writer.WriteHeader(http.StatusOK)
	_, _ = writer.Write(body)
}
