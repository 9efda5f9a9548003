package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/filenest/backend/internal/catalog"
	"github.com/filenest/backend/internal/snapshot"
	"github.com/go-chi/chi/v5"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

func (s *Server) root(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Welcome to FileNest API",
		"version": APIVersion,
	})
}

func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	n := 0
	if s.sessions != nil {
		n = s.sessions.Len()
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "sessions": n})
}

type searchResponse struct {
	Results []catalog.File `json:"results"`
	Total   int            `json:"total"`
}

func (s *Server) search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	sizeMin, err := parseSize(q.Get("size_min"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "size_min must be an integer")
		return
	}
	sizeMax, err := parseSize(q.Get("size_max"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "size_max must be an integer")
		return
	}

	results := s.store.Search(catalog.Query{
		Text:     q.Get("q"),
		FileType: q.Get("file_type"),
		SizeMin:  sizeMin,
		SizeMax:  sizeMax,
	})
	writeJSON(w, http.StatusOK, searchResponse{Results: results, Total: len(results)})
}

func parseSize(raw string) (int64, error) {
	if raw == "" {
		return 0, nil
	}
	return strconv.ParseInt(raw, 10, 64)
}

func (s *Server) suggestions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{
		"suggestions": s.store.Suggestions(r.URL.Query().Get("q")),
	})
}

type networkStatsResponse struct {
	TotalPeers      int                `json:"totalPeers"`
	OnlinePeers     int                `json:"onlinePeers"`
	TotalFiles      int                `json:"totalFiles"`
	AvailableFiles  int                `json:"availableFiles"`
	NetworkHealth   int                `json:"networkHealth"`
	AvgResponseTime int                `json:"avgResponseTime"`
	Host            snapshot.HostStats `json:"host"`
	Status          snapshot.Status    `json:"status"`
	HostError       string             `json:"hostError,omitempty"`
}

func (s *Server) networkStats(w http.ResponseWriter, r *http.Request) {
	snap, err := s.source.Snapshot(r.Context())
	if err != nil {
		slog.Warn("network stats unavailable", "error", err)
		writeError(w, http.StatusServiceUnavailable, "network stats unavailable")
		return
	}

	resp := networkStatsResponse{
		TotalPeers:      snap.TotalPeers,
		OnlinePeers:     snap.OnlinePeers,
		TotalFiles:      snap.TotalFiles,
		AvailableFiles:  snap.AvailableFiles,
		NetworkHealth:   snap.NetworkHealth,
		AvgResponseTime: snap.AvgResponseTime,
		Host:            snap.Host,
		Status:          snap.Status,
	}
	if p, ok := s.source.(interface{ LastProbeError() string }); ok {
		resp.HostError = p.LastProbeError()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) peers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]catalog.Peer{"peers": s.store.Peers()})
}

type uploadedFile struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Type   string `json:"type"`
	Size   int64  `json:"size"`
	Status string `json:"status"`
}

func (s *Server) upload(w http.ResponseWriter, r *http.Request) {
	var req catalog.UploadRequest
	if r.Body != nil {
		err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req)
		if err != nil && !errors.Is(err, io.EOF) {
			writeError(w, http.StatusBadRequest, "invalid upload request")
			return
		}
	}

	f := s.store.Upload(req)
	slog.Info("file uploaded", "file_id", f.ID, "name", f.Name, "size", f.Size)
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "File uploaded successfully",
		"file": uploadedFile{
			ID:     f.ID,
			Name:   f.Name,
			Type:   f.Type,
			Size:   f.Size,
			Status: "uploaded",
		},
	})
}

func (s *Server) download(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	f, ok := s.store.File(id)
	if !ok {
		writeError(w, http.StatusNotFound, "File not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":     "Download started",
		"file":        f,
		"downloadUrl": "/download/" + id,
	})
}
