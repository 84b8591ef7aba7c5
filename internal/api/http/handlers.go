package apihttp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"clipstream/internal/domain"
	"clipstream/internal/urlinfo"
)

type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	var body errorResponse
	body.Error.Code = code
	body.Error.Message = message
	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

type createDownloadRequest struct {
	// Text is free-form message text; the URL is extracted from it.
	Text string `json:"text"`
	// Fallback raises the size ceiling, waives the quality-degradation
	// rejection and bypasses the allowlist.
	Fallback bool `json:"fallback"`
}

// handleCreateDownload admits a task, reports its queue position in the
// X-Queue-Position header, and streams the finished artifact back. Failures
// surface as a typed JSON error; the pipeline reason string is passed
// through verbatim.
func (s *Server) handleCreateDownload(w http.ResponseWriter, r *http.Request) {
	var req createDownloadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid JSON body")
		return
	}

	info := urlinfo.Find(req.Text, s.allowlist)
	switch {
	case info.TotalURLs == 0:
		writeError(w, http.StatusBadRequest, "no_urls", "no URLs found")
		return
	case info.TotalURLs > 1:
		writeError(w, http.StatusBadRequest, "multiple_urls", "downloading more than one video at a time is unsupported")
		return
	case !info.Allowed && !req.Fallback:
		writeError(w, http.StatusBadRequest, "unsupported_url",
			fmt.Sprintf("URL is unsupported; supported websites: %s", strings.Join(s.allowlist.Sites(), ", ")))
		return
	}

	if s.disk != nil && s.disk.Low() {
		writeError(w, http.StatusServiceUnavailable, "low_disk_space", "not enough disk space to accept new tasks")
		return
	}

	// Reserve a queue position before replying so concurrent status calls
	// cannot undercount this task, then reconcile via Enqueue.
	position := s.manager.TentativeEnqueue()
	task := domain.Task{
		ID:             uuid.NewString(),
		URL:            info.URL,
		EnableFallback: req.Fallback,
		Done:           make(chan domain.TaskResult, 1),
	}

	s.wsHub.Broadcast("accepted", map[string]any{
		"taskId":   task.ID,
		"url":      task.URL,
		"position": position,
	})

	started := time.Now()
	s.manager.Enqueue(task)

	select {
	case result := <-task.Done:
		s.recordResult(task, req.Fallback, result, started)
		s.respondResult(w, task, position, result)
	case <-r.Context().Done():
		// The client went away. The worker owns the send half and will
		// deliver into the buffered channel; drain it in the background so
		// the artifact is always released and the outcome still recorded.
		go func() {
			result := <-task.Done
			s.recordResult(task, req.Fallback, result, started)
			if result.Output != nil {
				_ = result.Output.Close()
			}
		}()
	}
}

func (s *Server) respondResult(w http.ResponseWriter, task domain.Task, position int, result domain.TaskResult) {
	if result.Err != nil {
		writeError(w, http.StatusUnprocessableEntity, errorCode(result.Err), result.Err.Error())
		return
	}

	output := result.Output
	defer func() {
		if err := output.Close(); err != nil {
			s.logger.Warn("output cleanup failed",
				slog.String("taskId", task.ID),
				slog.String("error", err.Error()),
			)
		}
	}()

	file, err := os.Open(output.VideoPath)
	if err != nil {
		s.logger.Error("artifact open failed",
			slog.String("taskId", task.ID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "internal_error", "artifact unavailable")
		return
	}
	defer file.Close()

	header := w.Header()
	header.Set("Content-Type", "video/mp4")
	header.Set("Content-Disposition", `attachment; filename="`+task.ID+`.mp4"`)
	header.Set("X-Queue-Position", strconv.Itoa(position))
	header.Set("X-Video-Duration", strconv.Itoa(output.Metadata.DurationSeconds))
	header.Set("X-Video-Width", strconv.Itoa(output.Metadata.Width))
	header.Set("X-Video-Height", strconv.Itoa(output.Metadata.Height))
	header.Set("X-Video-Bitrate", strconv.Itoa(output.Metadata.BitrateKbps))
	if output.Reduced {
		// Lets the caller render the bitrate-reduction warning.
		header.Set("X-Video-Reduced-Bitrate", strconv.Itoa(output.ReducedKbps))
	}
	if info, err := file.Stat(); err == nil {
		header.Set("Content-Length", strconv.FormatInt(info.Size(), 10))
	}

	if _, err := io.Copy(w, file); err != nil {
		s.logger.Warn("artifact streaming interrupted",
			slog.String("taskId", task.ID),
			slog.String("error", err.Error()),
		)
	}
}

// recordResult persists the outcome (best-effort) and notifies WebSocket
// subscribers.
func (s *Server) recordResult(task domain.Task, fallback bool, result domain.TaskResult, started time.Time) {
	event := map[string]any{"taskId": task.ID, "url": task.URL}
	entry := domain.HistoryEntry{
		TaskID:     task.ID,
		URL:        task.URL,
		Fallback:   fallback,
		TookMs:     time.Since(started).Milliseconds(),
		FinishedAt: time.Now().UTC(),
	}

	if result.Err != nil {
		entry.Reason = result.Err.Error()
		event["error"] = entry.Reason
		s.wsHub.Broadcast("failed", event)
	} else {
		entry.Succeeded = true
		entry.Metadata = result.Output.Metadata
		entry.ReducedKbps = result.Output.ReducedKbps
		if result.Output.Reduced {
			event["reducedKbps"] = result.Output.ReducedKbps
		}
		s.wsHub.Broadcast("completed", event)
	}

	if s.history == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.history.Insert(ctx, entry); err != nil {
		s.logger.Warn("history insert failed",
			slog.String("taskId", task.ID),
			slog.String("error", err.Error()),
		)
	}
}

// errorCode maps pipeline failures onto stable API error codes.
func errorCode(err error) string {
	var extractionErr *domain.ExtractionError
	var sizeErr *domain.SizeLimitError
	var qualityErr *domain.QualityDegradationError
	var transcodeErr *domain.TranscodeError

	switch {
	case errors.As(err, &extractionErr):
		return "extraction_failed"
	case errors.As(err, &sizeErr):
		return "size_limit_exceeded"
	case errors.As(err, &qualityErr):
		return "quality_degradation"
	case errors.As(err, &transcodeErr):
		return "transcode_failed"
	default:
		return "processing_failed"
	}
}

func (s *Server) handleQueue(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]int{"size": s.manager.QueueSize()})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeError(w, http.StatusNotFound, "history_disabled", "download history is not configured")
		return
	}
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			limit = parsed
		}
	}
	entries, err := s.history.ListRecent(r.Context(), limit)
	if err != nil {
		s.logger.Error("history list failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "internal_error", "could not list history")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
