// Package api exposes the two-factor workflow over HTTP.
//
// The caller's identity comes from the X-User-ID header, which a trusted
// session layer in front of this service is expected to set. The only route
// that does not need it is POST /2fa/login/verify, which authenticates with a
// pending-login token instead.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"

	"github.com/dmitrymomot/twofactor/pkg/logger"
	"github.com/dmitrymomot/twofactor/pkg/qrcode"
	"github.com/dmitrymomot/twofactor/pkg/twofactor"
)

// UserIDHeader carries the authenticated user id.
const UserIDHeader = "X-User-ID"

// TwoFactor is the workflow consumed by the handlers. *twofactor.Service implements it.
type TwoFactor interface {
	Status(ctx context.Context, userID string) (*twofactor.Status, error)
	Enable(ctx context.Context, userID, accountLabel string) (*twofactor.Enrollment, error)
	Verify(ctx context.Context, userID, code string) error
	Disable(ctx context.Context, userID, code string) error
	RegenerateBackupCodes(ctx context.Context, userID, code string) ([]string, error)
	ValidateLogin(ctx context.Context, userID, code string) (*twofactor.LoginResult, error)
	IssuePendingToken(userID string) (string, error)
	VerifyPendingToken(token string) (string, bool)
}

type Handler struct {
	svc     TwoFactor
	cfg     Config
	log     *slog.Logger
	metrics *Metrics
}

// Option configures Handler.
type Option func(*Handler)

func WithLogger(l *slog.Logger) Option {
	return func(h *Handler) {
		if l != nil {
			h.log = l
		}
	}
}

func WithMetrics(m *Metrics) Option {
	return func(h *Handler) { h.metrics = m }
}

func NewHandler(svc TwoFactor, cfg Config, opts ...Option) *Handler {
	if cfg.QRSize <= 0 {
		cfg.QRSize = qrcode.DefaultSize
	}
	h := &Handler{
		svc: svc,
		cfg: cfg,
		log: logger.Discard(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Routes mounts the two-factor endpoints under /2fa on r.
func (h *Handler) Routes(r chi.Router) {
	if len(h.cfg.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: h.cfg.CORSOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Content-Type", UserIDHeader, middleware.RequestIDHeader},
			MaxAge:         300,
		}))
	}

	limited := func(r chi.Router) {
		if h.cfg.CodeRateLimit > 0 {
			r.Use(httprate.LimitByIP(h.cfg.CodeRateLimit, time.Minute))
		}
	}

	r.Route("/2fa", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(requireUser)
			r.Get("/status", h.status)
			r.Post("/enable", h.enable)
			r.Post("/login/pending", h.loginPending)

			r.Group(func(r chi.Router) {
				limited(r)
				r.Post("/verify", h.verify)
				r.Post("/disable", h.disable)
				r.Post("/backup-codes", h.regenerate)
			})
		})

		r.Group(func(r chi.Router) {
			limited(r)
			r.Post("/login/verify", h.loginVerify)
		})
	})
}

// Router builds a standalone router with request ids, recovery and the
// two-factor routes. Extra handlers, such as probes, can be mounted on it.
func (h *Handler) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(h.observeRequests)
	h.Routes(r)
	return r
}

type userKey struct{}

func requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := strings.TrimSpace(r.Header.Get(UserIDHeader))
		if userID == "" {
			writeJSON(w, http.StatusUnauthorized, errorResponse{
				Error:     twofactor.ErrMissingUserID.Error(),
				RequestID: middleware.GetReqID(r.Context()),
			})
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userKey{}, userID)))
	})
}

func userFrom(ctx context.Context) string {
	id, _ := ctx.Value(userKey{}).(string)
	return id
}

func (h *Handler) observeRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.metrics == nil {
			next.ServeHTTP(w, r)
			return
		}
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := chi.RouteContext(r.Context()).RoutePattern()
		if route == "" {
			route = "unmatched"
		}
		h.metrics.RequestDurations.
			WithLabelValues(r.Method, route, strconv.Itoa(ww.Status())).
			Observe(time.Since(start).Seconds())
	})
}

type codeRequest struct {
	Code string `json:"code"`
}

type enableRequest struct {
	AccountLabel string `json:"account_label"`
}

type enableResponse struct {
	*twofactor.Enrollment
	QRCode string `json:"qr_code"`
}

type backupCodesResponse struct {
	BackupCodes []string `json:"backup_codes"`
}

type pendingResponse struct {
	Required     bool   `json:"required"`
	PendingToken string `json:"pending_token,omitempty"`
}

type loginVerifyRequest struct {
	PendingToken string `json:"pending_token"`
	Code         string `json:"code"`
}

type loginVerifyResponse struct {
	UserID string           `json:"user_id"`
	Method twofactor.Method `json:"method"`
}

func (h *Handler) status(w http.ResponseWriter, r *http.Request) {
	st, err := h.svc.Status(r.Context(), userFrom(r.Context()))
	if err != nil {
		h.fail(w, r, "status", err)
		return
	}
	h.ok(w, "status", http.StatusOK, st)
}

func (h *Handler) enable(w http.ResponseWriter, r *http.Request) {
	var req enableRequest
	if err := decodeJSON(r, &req); err != nil {
		h.fail(w, r, "enable", err)
		return
	}

	userID := userFrom(r.Context())
	enrollment, err := h.svc.Enable(r.Context(), userID, strings.TrimSpace(req.AccountLabel))
	if err != nil {
		h.fail(w, r, "enable", err)
		return
	}

	qr, err := qrcode.GenerateBase64Image(enrollment.URI, h.cfg.QRSize)
	if err != nil {
		h.fail(w, r, "enable", err)
		return
	}
	h.ok(w, "enable", http.StatusCreated, enableResponse{Enrollment: enrollment, QRCode: qr})
}

func (h *Handler) verify(w http.ResponseWriter, r *http.Request) {
	var req codeRequest
	if err := decodeJSON(r, &req); err != nil {
		h.fail(w, r, "verify", err)
		return
	}
	if err := h.svc.Verify(r.Context(), userFrom(r.Context()), req.Code); err != nil {
		h.fail(w, r, "verify", err)
		return
	}
	h.ok(w, "verify", http.StatusNoContent, nil)
}

func (h *Handler) disable(w http.ResponseWriter, r *http.Request) {
	var req codeRequest
	if err := decodeJSON(r, &req); err != nil {
		h.fail(w, r, "disable", err)
		return
	}
	if err := h.svc.Disable(r.Context(), userFrom(r.Context()), req.Code); err != nil {
		h.fail(w, r, "disable", err)
		return
	}
	h.ok(w, "disable", http.StatusNoContent, nil)
}

func (h *Handler) regenerate(w http.ResponseWriter, r *http.Request) {
	var req codeRequest
	if err := decodeJSON(r, &req); err != nil {
		h.fail(w, r, "regenerate_backup_codes", err)
		return
	}
	codes, err := h.svc.RegenerateBackupCodes(r.Context(), userFrom(r.Context()), req.Code)
	if err != nil {
		h.fail(w, r, "regenerate_backup_codes", err)
		return
	}
	h.ok(w, "regenerate_backup_codes", http.StatusOK, backupCodesResponse{BackupCodes: codes})
}

// loginPending is called by the session layer once the password was accepted.
// A pending token is issued only when the user has two-factor enabled.
func (h *Handler) loginPending(w http.ResponseWriter, r *http.Request) {
	userID := userFrom(r.Context())
	st, err := h.svc.Status(r.Context(), userID)
	if err != nil {
		h.fail(w, r, "login_pending", err)
		return
	}
	if !st.Enabled || !st.Verified {
		h.ok(w, "login_pending", http.StatusOK, pendingResponse{Required: false})
		return
	}

	token, err := h.svc.IssuePendingToken(userID)
	if err != nil {
		h.fail(w, r, "login_pending", err)
		return
	}
	h.ok(w, "login_pending", http.StatusOK, pendingResponse{Required: true, PendingToken: token})
}

func (h *Handler) loginVerify(w http.ResponseWriter, r *http.Request) {
	var req loginVerifyRequest
	if err := decodeJSON(r, &req); err != nil {
		h.fail(w, r, "login_verify", err)
		return
	}

	userID, ok := h.svc.VerifyPendingToken(req.PendingToken)
	if !ok {
		h.fail(w, r, "login_verify", errLoginExpired)
		return
	}

	res, err := h.svc.ValidateLogin(r.Context(), userID, req.Code)
	if err != nil {
		h.fail(w, r, "login_verify", err)
		return
	}
	h.ok(w, "login_verify", http.StatusOK, loginVerifyResponse{UserID: userID, Method: res.Method})
}
