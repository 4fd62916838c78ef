package handler

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"docuchat/internal/app"
	"docuchat/internal/ingest"
	"docuchat/internal/transport/http/response"
)

type DocumentHandler struct {
	documentService *app.DocumentService
	maxUploadBytes  int64
}

func NewDocumentHandler(documentService *app.DocumentService, maxUploadBytes int64) *DocumentHandler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = 10 << 20
	}
	return &DocumentHandler{documentService: documentService, maxUploadBytes: maxUploadBytes}
}

// Upload accepts a multipart form with a "file" part, registers the
// document and dispatches ingestion to the background worker. The response
// is 202 with the pending document; status is polled via the list endpoint.
func (h *DocumentHandler) Upload(c *gin.Context) {
	sessionID := c.Param("id")

	file, err := c.FormFile("file")
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "missing file")
		return
	}
	if file.Size > h.maxUploadBytes {
		response.Error(c, http.StatusRequestEntityTooLarge, response.CodePayloadTooLarge, "file too large")
		return
	}

	mimeType := declaredMimeType(file.Header.Get("Content-Type"), file.Filename)
	if !ingest.SupportedMime(mimeType) {
		response.Error(c, http.StatusUnsupportedMediaType, response.CodeUnsupportedFormat,
			"unsupported file type: only PDF and plain text are accepted")
		return
	}

	f, err := file.Open()
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "failed to open file")
		return
	}
	defer f.Close()

	content, err := io.ReadAll(f)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "failed to read file")
		return
	}

	doc, err := h.documentService.Upload(c.Request.Context(), app.UploadInput{
		SessionID: sessionID,
		Filename:  filepath.Base(file.Filename),
		MimeType:  mimeType,
		Content:   content,
	})
	if err != nil {
		switch {
		case errors.Is(err, app.ErrSessionNotFound):
			response.Error(c, http.StatusNotFound, response.CodeSessionNotFound, err.Error())
		case errors.Is(err, ingest.ErrUnsupportedFormat):
			response.Error(c, http.StatusUnsupportedMediaType, response.CodeUnsupportedFormat, err.Error())
		case errors.Is(err, app.ErrInvalidInput):
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "upload failed")
		}
		return
	}
	response.Accepted(c, doc)
}

func (h *DocumentHandler) List(c *gin.Context) {
	docs, err := h.documentService.List(c.Request.Context(), c.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, app.ErrSessionNotFound):
			response.Error(c, http.StatusNotFound, response.CodeSessionNotFound, err.Error())
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "list documents failed")
		}
		return
	}
	response.OK(c, docs)
}

// declaredMimeType normalizes the part's Content-Type, falling back to the
// file extension when the client sent none or a generic octet-stream.
func declaredMimeType(contentType, filename string) string {
	if mt, _, err := mime.ParseMediaType(contentType); err == nil &&
		mt != "" && mt != "application/octet-stream" {
		return mt
	}
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return ingest.MimePDF
	case ".txt":
		return ingest.MimeText
	}
	return contentType
}
