package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"speech-feedback-service/internal/app"
	"speech-feedback-service/internal/service/audio"
	"speech-feedback-service/internal/service/feedback"
	"speech-feedback-service/internal/service/pipeline"
	"speech-feedback-service/internal/service/submission"
	"speech-feedback-service/internal/store"
)

const (
	defaultMaxUploadBytes = 25 << 20
	multipartOverhead     = 1 << 20
)

// uploadFormats maps accepted upload content types to decoder formats.
var uploadFormats = map[string]audio.Format{
	"audio/wav":                audio.FormatWAV,
	"audio/x-wav":              audio.FormatWAV,
	"audio/wave":               audio.FormatWAV,
	"audio/vnd.wave":           audio.FormatWAV,
	"audio/mpeg":               audio.FormatMP3,
	"audio/mp3":                audio.FormatMP3,
	"application/octet-stream": audio.FormatAuto,
}

type handlers struct {
	app *app.Application
}

// analyzeResponse is the report with its submission ID alongside.
type analyzeResponse struct {
	ID string `json:"id"`
	feedback.Report
}

func (h *handlers) analyze(w http.ResponseWriter, req *http.Request) {
	maxBytes := h.maxUploadBytes()
	req.Body = http.MaxBytesReader(w, req.Body, maxBytes+multipartOverhead)

	file, header, err := req.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("upload exceeds %d bytes", maxBytes))
			return
		}
		writeError(w, http.StatusBadRequest, "multipart field \"file\" is required")
		return
	}
	defer file.Close()

	format, ok := uploadFormat(header.Header.Get("Content-Type"))
	if !ok {
		writeError(w, http.StatusBadRequest, "Only WAV, MP3 or raw 16-bit PCM files are supported")
		return
	}

	data, err := io.ReadAll(io.LimitReader(file, maxBytes+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Error reading file: %v", err))
		return
	}
	if int64(len(data)) > maxBytes {
		writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("upload exceeds %d bytes", maxBytes))
		return
	}

	res := h.app.Pipeline.SubmitAs(req.Context(), data, format)
	if !res.OK() {
		status := statusFor(res.Err)
		if status >= http.StatusInternalServerError {
			captureError(req, res.Err, "analyze failed at stage "+res.Stage)
		}
		writeError(w, status, res.Err.Error())
		return
	}

	writeJSON(w, http.StatusOK, analyzeResponse{ID: res.ID, Report: *res.Report})
}

func (h *handlers) getReport(w http.ResponseWriter, req *http.Request) {
	if h.app.Reports == nil || !h.app.Reports.Enabled() {
		writeError(w, http.StatusServiceUnavailable, "report store is not configured")
		return
	}

	id := chi.URLParam(req, "id")
	if !submission.Valid(id) {
		writeError(w, http.StatusBadRequest, "invalid submission id")
		return
	}

	sr, err := h.app.Reports.Get(req.Context(), id)
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "report not found")
		return
	case err != nil:
		log.Error().Err(err).Str("submissionId", id).Msg("Failed to load report")
		captureError(req, err, "load report")
		writeError(w, http.StatusInternalServerError, "failed to load report")
		return
	}

	writeJSON(w, http.StatusOK, sr)
}

func (h *handlers) maxUploadBytes() int64 {
	if h.app.Cfg != nil && h.app.Cfg.Audio.MaxBytes > 0 {
		return h.app.Cfg.Audio.MaxBytes
	}
	return defaultMaxUploadBytes
}

// uploadFormat resolves a part content type. A missing type is sniffed.
func uploadFormat(contentType string) (audio.Format, bool) {
	if contentType == "" {
		return audio.FormatAuto, true
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return "", false
	}
	f, ok := uploadFormats[mediaType]
	return f, ok
}

func statusFor(err error) int {
	switch pipeline.Classify(err) {
	case pipeline.ClassInvalidAudio:
		return http.StatusBadRequest
	case pipeline.ClassTranscription:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
