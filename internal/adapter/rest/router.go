package rest

import (
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/hyfoxus/bank-rest/internal/domain"
	"github.com/hyfoxus/bank-rest/internal/usecase/blockrequest"
	"github.com/hyfoxus/bank-rest/internal/usecase/card"
	"github.com/hyfoxus/bank-rest/internal/usecase/transfer"
	"github.com/hyfoxus/bank-rest/internal/usecase/user"
	"github.com/sirupsen/logrus"
)

// TokenVerifier resolves a bearer token to the principal it was issued for
type TokenVerifier interface {
	Verify(raw string) (domain.Principal, error)
}

// TokenIssuer signs tokens for authenticated users
type TokenIssuer interface {
	Issue(user *domain.User) (string, error)
}

// Handler serves the REST API over the use cases
type Handler struct {
	Transfers *transfer.TransferService
	Cards     *card.CardService
	Requests  *blockrequest.RequestService
	Users     *user.UserService
	Verifier  TokenVerifier
	Issuer    TokenIssuer
	Log       logrus.FieldLogger
}

// NewHandler creates a new Handler instance
func NewHandler(
	transfers *transfer.TransferService,
	cards *card.CardService,
	requests *blockrequest.RequestService,
	users *user.UserService,
	verifier TokenVerifier,
	issuer TokenIssuer,
	log logrus.FieldLogger,
) *Handler {
	return &Handler{
		Transfers: transfers,
		Cards:     cards,
		Requests:  requests,
		Users:     users,
		Verifier:  verifier,
		Issuer:    issuer,
		Log:       log,
	}
}

// Router builds the route table
func (h *Handler) Router() *mux.Router {
	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeStatus(w, http.StatusNotFound, "no such route")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeStatus(w, http.StatusMethodNotAllowed, "method not allowed")
	})
	r.Use(h.accessLog)

	// Public routes
	r.HandleFunc("/healthz", h.Health).Methods(http.MethodGet)
	r.HandleFunc("/api/auth/login", h.Login).Methods(http.MethodPost)

	// Protected routes
	api := r.PathPrefix("/api").Subrouter()
	api.Use(h.authenticate)

	me := api.PathPrefix("/me").Subrouter()
	me.HandleFunc("/transfers", h.Transfer).Methods(http.MethodPost)
	me.HandleFunc("/cards", h.ListMyCards).Methods(http.MethodGet)
	me.HandleFunc("/cards/{id}", h.GetCard).Methods(http.MethodGet)
	me.HandleFunc("/cards/{id}/transfers", h.ListCardTransfers).Methods(http.MethodGet)
	me.HandleFunc("/requests/block", h.RequestBlock).Methods(http.MethodPost)

	admin := api.PathPrefix("/admin").Subrouter()
	admin.Use(requireAdmin)
	admin.HandleFunc("/requests", h.ListPendingRequests).Methods(http.MethodGet)
	admin.HandleFunc("/requests/{id}/complete", h.CompleteRequest).Methods(http.MethodPost)
	admin.HandleFunc("/cards", h.ListCards).Methods(http.MethodGet)
	admin.HandleFunc("/cards/{userId}", h.IssueCard).Methods(http.MethodPost)
	admin.HandleFunc("/cards/{id}", h.GetCard).Methods(http.MethodGet)
	admin.HandleFunc("/cards/{id}/status", h.UpdateCardStatus).Methods(http.MethodPatch)
	admin.HandleFunc("/cards/{id}/balance", h.UpdateCardBalance).Methods(http.MethodPatch)
	admin.HandleFunc("/cards/{id}", h.DeleteCard).Methods(http.MethodDelete)
	admin.HandleFunc("/users", h.CreateUser).Methods(http.MethodPost)

	return r
}

// authenticate installs the principal from the bearer token
func (h *Handler) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" || !strings.HasPrefix(header, "Bearer ") {
			writeStatus(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		principal, err := h.Verifier.Verify(header)
		if err != nil {
			writeStatus(w, http.StatusUnauthorized, "invalid token")
			return
		}
		next.ServeHTTP(w, r.WithContext(domain.ContextWithPrincipal(r.Context(), principal)))
	})
}

func requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, _ := domain.PrincipalFromContext(r.Context())
		if !p.IsAdmin() {
			writeStatus(w, http.StatusForbidden, "You don't have permission to access this resource.")
			return
		}
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (h *Handler) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		h.Log.WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   rec.status,
			"duration": time.Since(start).String(),
		}).Debug("http request")
	})
}
