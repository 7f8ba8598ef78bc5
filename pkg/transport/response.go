package transport

import (
	"encoding/json"
	"net/http"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"ecommerce/pkg/domain/model"
)

type payload map[string]interface{}

// requestError is a malformed request caught before it reaches a service.
type requestError struct {
	msg     string
	details []string
}

func (e *requestError) Error() string { return e.msg }

func badRequest(msg string, details ...string) error {
	return &requestError{msg: msg, details: details}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.WithField("err", err).Error("write response")
	}
}

// done writes the success envelope with extra top level fields.
func done(w http.ResponseWriter, status int, fields payload) {
	body := payload{"message": "Done"}
	for k, v := range fields {
		body[k] = v
	}
	writeJSON(w, status, body)
}

func statusOf(err error) int {
	var reqErr *requestError
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &reqErr):
		return http.StatusBadRequest
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, model.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, model.ErrBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, model.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, model.ErrForbidden):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusOf(err)
	body := payload{"message": err.Error()}

	var reqErr *requestError
	if errors.As(err, &reqErr) && len(reqErr.details) > 0 {
		body["details"] = reqErr.details
	}
	if status == http.StatusInternalServerError {
		log.WithError(err).WithFields(log.Fields{
			"method": r.Method,
			"url":    r.URL.String(),
		}).Error("request failed")
		body["message"] = "internal server error"
	}
	writeJSON(w, status, body)
}
