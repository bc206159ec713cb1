package rest

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/hyfoxus/bank-rest/internal/domain"
	"github.com/sirupsen/logrus"
)

// Problem is an RFC 7807 problem detail
type Problem struct {
	Type      string            `json:"type"`
	Title     string            `json:"title"`
	Status    int               `json:"status"`
	Detail    string            `json:"detail,omitempty"`
	Kind      string            `json:"kind,omitempty"`
	Details   map[string]string `json:"details,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

// statusFor maps a domain error kind to its HTTP status
func statusFor(kind domain.ErrorKind) int {
	switch kind {
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindForbidden:
		return http.StatusForbidden
	case domain.KindInvalidArgument:
		return http.StatusBadRequest
	case domain.KindInvalidState, domain.KindInsufficientFunds:
		return http.StatusUnprocessableEntity
	case domain.KindConflict:
		return http.StatusConflict
	case domain.KindLockTimeout, domain.KindUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders err as a problem detail. Internal errors never leak their message.
func writeError(w http.ResponseWriter, log logrus.FieldLogger, err error) {
	kind := domain.KindOf(err)
	status := statusFor(kind)

	p := Problem{
		Type:      "about:blank",
		Title:     http.StatusText(status),
		Status:    status,
		Timestamp: time.Now().UTC(),
	}

	var de *domain.Error
	if status == http.StatusInternalServerError || !errors.As(err, &de) {
		log.WithError(err).Error("request failed")
		p.Detail = "Unexpected error occurred"
	} else {
		p.Kind = string(de.Kind)
		p.Detail = de.Message
		p.Details = de.Details
	}

	writeProblem(w, p)
}

func writeProblem(w http.ResponseWriter, p Problem) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(p.Status)
	_ = json.NewEncoder(w).Encode(p)
}

func writeStatus(w http.ResponseWriter, status int, detail string) {
	writeProblem(w, Problem{
		Type:      "about:blank",
		Title:     http.StatusText(status),
		Status:    status,
		Detail:    detail,
		Timestamp: time.Now().UTC(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// decodeJSON reads a single JSON body into v, rejecting unknown fields
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return domain.NewError(domain.KindInvalidArgument, "malformed request body").Wrap(err)
	}
	return nil
}
