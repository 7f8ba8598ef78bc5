package transport

import (
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"ecommerce/pkg/infrastructure/storage"
)

type presignRequest struct {
	Path        string `json:"path" validate:"required,max=200"`
	Filename    string `json:"filename" validate:"required,max=200"`
	ContentType string `json:"contentType" validate:"required"`
}

func (s *server) fileRoutes(r *mux.Router) {
	r.HandleFunc("/upload/{key:.+}", s.streamFile).Methods(http.MethodGet)
	r.Handle("/files/presign", s.admin(s.presignUpload)).Methods(http.MethodPost)
	r.Handle("/files/url", s.customer(s.downloadURL)).Methods(http.MethodGet)
}

func (s *server) streamFile(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["key"]
	object, err := s.files.Get(r.Context(), key)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			writeJSON(w, http.StatusNotFound, payload{"message": "file not found"})
			return
		}
		writeError(w, r, err)
		return
	}
	defer object.Body.Close()

	contentType := object.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cross-Origin-Resource-Policy", "cross-origin")
	if object.ContentLength > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(object.ContentLength, 10))
	}
	if _, err := io.Copy(w, object.Body); err != nil {
		log.WithError(err).WithField("key", key).Warn("stream file interrupted")
	}
}

func (s *server) presignUpload(w http.ResponseWriter, r *http.Request) {
	var req presignRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if !imageTypes[req.ContentType] {
		writeError(w, r, badRequest("Invalid file type"))
		return
	}
	if strings.Contains(req.Path, "..") || strings.ContainsAny(req.Filename, "/\\") {
		writeError(w, r, badRequest("invalid path"))
		return
	}

	url, key, err := s.files.PresignUpload(r.Context(), strings.Trim(req.Path, "/"), req.Filename, req.ContentType)
	if err != nil {
		writeError(w, r, err)
		return
	}
	done(w, http.StatusOK, payload{"url": url, "key": key})
}

func (s *server) downloadURL(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("key")
	if key == "" {
		writeError(w, r, badRequest("key is required"))
		return
	}
	url, err := s.files.PresignDownload(r.Context(), key)
	if err != nil {
		writeError(w, r, err)
		return
	}
	done(w, http.StatusOK, payload{"url": url})
}
