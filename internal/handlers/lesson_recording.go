package handlers

import (
	"net/http"

	"github.com/coursehub/apiserver/internal/services"
	"github.com/go-chi/chi/v5"
)

const (
	maxMultipartMemory = 32 << 20
	maxRecordingBytes  = 512 << 20
	formFieldRecording = "recording"
)

// LessonRecordingHandler accepts recording uploads for lessons.
type LessonRecordingHandler struct {
	recordings *services.LessonRecordings
}

func NewLessonRecordingHandler(recordings *services.LessonRecordings) *LessonRecordingHandler {
	return &LessonRecordingHandler{recordings: recordings}
}

// LessonRecordingRouter registers the upload route under /lessons/{id}.
func LessonRecordingRouter(r chi.Router, handler *LessonRecordingHandler) {
	r.Put("/recording", handler.Upload)
}

// Upload stores the multipart "recording" file and returns the updated lesson.
func (h *LessonRecordingHandler) Upload(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusNotFound, msgNotFound)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxRecordingBytes+maxMultipartMemory)
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	file, header, err := r.FormFile(formFieldRecording)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:  msgValidation,
			Fields: map[string]string{formFieldRecording: "no file was submitted"},
		})
		return
	}
	defer file.Close()

	if header.Size > maxRecordingBytes {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:  msgValidation,
			Fields: map[string]string{formFieldRecording: "uploaded file too large"},
		})
		return
	}

	lesson, err := h.recordings.Attach(r.Context(), IdentityFromContext(r.Context()), id, services.Recording{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Body:        file,
	})
	if err != nil {
		writeServiceError(w, r, err, msgNotFound)
		return
	}
	writeJSON(w, http.StatusOK, lesson)
}
