package httpapi

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	app "github.com/R3E-Network/vybe_engagement/internal/app"
	"github.com/R3E-Network/vybe_engagement/internal/app/auth"
	"github.com/R3E-Network/vybe_engagement/internal/app/domain/wallet"
	"github.com/R3E-Network/vybe_engagement/internal/app/metrics"
	"github.com/R3E-Network/vybe_engagement/internal/app/services/transfers"
	apperrors "github.com/R3E-Network/vybe_engagement/internal/errors"
	"github.com/R3E-Network/vybe_engagement/internal/httputil"
	"github.com/R3E-Network/vybe_engagement/internal/middleware"
	"github.com/R3E-Network/vybe_engagement/internal/resilience"
	"github.com/R3E-Network/vybe_engagement/pkg/logger"
)

// IdempotencyHeader carries the caller's retry key for tips.
const IdempotencyHeader = "Idempotency-Key"

// Options configures the HTTP surface.
type Options struct {
	Log            *logger.Logger
	RateLimiter    *middleware.RateLimiter
	AllowedOrigins []string
	AuditSize      int
	// StoreBreaker, when set, is reported by /health.
	StoreBreaker *resilience.Breaker
}

// handler bundles HTTP endpoints for the application services.
type handler struct {
	app     *app.Application
	audit   *auditLog
	breaker *resilience.Breaker
	log     *logger.Logger
}

// NewHandler returns the full REST API: /health and /metrics are public,
// everything under /v1 requires a bearer token.
func NewHandler(application *app.Application, opts Options) http.Handler {
	log := opts.Log
	if log == nil {
		log = logger.NewDefault("httpapi")
	}
	h := &handler{
		app:   application,
		audit:   newAuditLog(opts.AuditSize, logAuditSink{log: log.Named("audit")}),
		breaker: opts.StoreBreaker,
		log:     log,
	}

	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteError(w, apperrors.ErrNotFound)
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteErrorResponse(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed", nil)
	})
	r.HandleFunc("/health", h.health).Methods(http.MethodGet)
	r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)

	api := r.PathPrefix("/v1").Subrouter()
	api.Use(middleware.NewAuthMiddleware(application.Identity, log.Named("auth"), nil).Handler)
	if opts.RateLimiter != nil {
		api.Use(opts.RateLimiter.Handler)
	}

	api.HandleFunc("/wallet", h.getWallet).Methods(http.MethodGet)
	api.HandleFunc("/wallet/transfers", h.listTransfers).Methods(http.MethodGet)
	api.HandleFunc("/tips", h.sendTip).Methods(http.MethodPost)

	api.HandleFunc("/users/{id}", h.getProfile).Methods(http.MethodGet)
	api.HandleFunc("/users/{id}/follow", h.follow).Methods(http.MethodPut)
	api.HandleFunc("/users/{id}/follow", h.unfollow).Methods(http.MethodDelete)
	api.HandleFunc("/users/{id}/follow", h.isFollowing).Methods(http.MethodGet)
	api.HandleFunc("/users/{id}/counts", h.profileCounts).Methods(http.MethodGet)
	api.HandleFunc("/users/{id}/followers", h.followers).Methods(http.MethodGet)
	api.HandleFunc("/users/{id}/following", h.following).Methods(http.MethodGet)

	api.HandleFunc("/posts/likes", h.likeState).Methods(http.MethodPost)
	api.HandleFunc("/posts/{id}/like", h.like).Methods(http.MethodPut)
	api.HandleFunc("/posts/{id}/like", h.unlike).Methods(http.MethodDelete)
	api.HandleFunc("/posts/{id}/counts", h.postCounts).Methods(http.MethodGet)
	api.HandleFunc("/posts/{id}/tips", h.postTips).Methods(http.MethodGet)
	api.HandleFunc("/posts/{id}/comments", h.listComments).Methods(http.MethodGet)
	api.HandleFunc("/posts/{id}/comments", h.appendComment).Methods(http.MethodPost)

	admin := api.PathPrefix("/admin").Subrouter()
	admin.Use(middleware.RequireRole(auth.RoleAdmin, auth.RoleService), h.audit.middleware)
	admin.HandleFunc("/wallets/{id}/deposit", h.deposit).Methods(http.MethodPost)
	admin.HandleFunc("/wallets/supply", h.supply).Methods(http.MethodGet)
	admin.HandleFunc("/counters/reconcile", h.reconcile).Methods(http.MethodPost)
	admin.HandleFunc("/audit", h.listAudit).Methods(http.MethodGet)

	var out http.Handler = r
	out = middleware.NewCORSMiddleware(opts.AllowedOrigins).Handler(out)
	out = middleware.MetricsMiddleware()(out)
	out = middleware.LoggingMiddleware(log.Named("http"))(out)
	return out
}

// health reports "degraded" while the store breaker is open; the process is
// still serving and callers get STORE_UNAVAILABLE until it recovers.
func (h *handler) health(w http.ResponseWriter, _ *http.Request) {
	body := map[string]any{
		"status":   "ok",
		"services": h.app.Descriptors(),
	}
	if h.breaker != nil {
		state := h.breaker.State()
		body["store"] = state.String()
		if state == resilience.Open {
			body["status"] = "degraded"
		}
	}
	httputil.WriteJSON(w, http.StatusOK, body)
}

// wallet ---------------------------------------------------------------------

func (h *handler) getWallet(w http.ResponseWriter, r *http.Request) {
	actor, err := auth.RequireActor(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	wal, err := h.app.Wallets.GetOrCreate(r.Context(), actor.ID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, wal)
}

func (h *handler) listTransfers(w http.ResponseWriter, r *http.Request) {
	actor, err := auth.RequireActor(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	limit, err := queryLimit(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	history, err := h.app.Transfers.History(r.Context(), actor.ID, limit)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"transfers": history})
}

func (h *handler) sendTip(w http.ResponseWriter, r *http.Request) {
	actor, err := auth.RequireActor(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var payload struct {
		To     string              `json:"to"`
		Amount decimal.Decimal     `json:"amount"`
		Kind   wallet.TransferKind `json:"kind"`
		PostID string              `json:"post_id"`
	}
	if err := httputil.ReadJSON(r, &payload); err != nil {
		httputil.WriteError(w, err)
		return
	}

	tr, err := h.app.Transfers.Transfer(r.Context(), transfers.Request{
		From:           actor.ID,
		To:             payload.To,
		Amount:         payload.Amount,
		Kind:           payload.Kind,
		PostID:         payload.PostID,
		IdempotencyKey: r.Header.Get(IdempotencyHeader),
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, tr)
}

func (h *handler) postTips(w http.ResponseWriter, r *http.Request) {
	total, err := h.app.Transfers.PostTipTotal(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, total)
}

// profiles and graph ---------------------------------------------------------

func (h *handler) getProfile(w http.ResponseWriter, r *http.Request) {
	p, err := h.app.Identity.Profile(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, p)
}

func (h *handler) follow(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, "following", h.app.Graph.Follow, true)
}

func (h *handler) unfollow(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, "following", h.app.Graph.Unfollow, false)
}

func (h *handler) like(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, "liked", h.app.Graph.Like, true)
}

func (h *handler) unlike(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, "liked", h.app.Graph.Unlike, false)
}

type toggleFunc func(ctx context.Context, subjectID, objectID string) (bool, error)

func (h *handler) toggle(w http.ResponseWriter, r *http.Request, field string, fn toggleFunc, state bool) {
	actor, err := auth.RequireActor(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	changed, err := fn(r.Context(), actor.ID, mux.Vars(r)["id"])
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{field: state, "changed": changed})
}

func (h *handler) isFollowing(w http.ResponseWriter, r *http.Request) {
	actor, err := auth.RequireActor(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	ok, err := h.app.Graph.IsFollowing(r.Context(), actor.ID, mux.Vars(r)["id"])
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]bool{"following": ok})
}

func (h *handler) profileCounts(w http.ResponseWriter, r *http.Request) {
	counts, err := h.app.Counters.ProfileCounts(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, counts)
}

func (h *handler) followers(w http.ResponseWriter, r *http.Request) {
	limit, err := queryLimit(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	edges, err := h.app.Graph.Followers(r.Context(), mux.Vars(r)["id"], limit)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"followers": edges})
}

func (h *handler) following(w http.ResponseWriter, r *http.Request) {
	limit, err := queryLimit(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	edges, err := h.app.Graph.Following(r.Context(), mux.Vars(r)["id"], limit)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"following": edges})
}

func (h *handler) likeState(w http.ResponseWriter, r *http.Request) {
	actor, err := auth.RequireActor(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var payload struct {
		PostIDs []string `json:"post_ids"`
	}
	if err := httputil.ReadJSON(r, &payload); err != nil {
		httputil.WriteError(w, err)
		return
	}
	state, err := h.app.Graph.LikeState(r.Context(), actor.ID, payload.PostIDs)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, state)
}

func (h *handler) postCounts(w http.ResponseWriter, r *http.Request) {
	counts, err := h.app.Counters.PostCounts(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, counts)
}

// comments -------------------------------------------------------------------

func (h *handler) listComments(w http.ResponseWriter, r *http.Request) {
	limit, err := queryLimit(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	before, err := queryInt(r, "before")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	page, err := h.app.Comments.List(r.Context(), mux.Vars(r)["id"], before, limit)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, page)
}

func (h *handler) appendComment(w http.ResponseWriter, r *http.Request) {
	actor, err := auth.RequireActor(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var payload struct {
		Body string `json:"body"`
	}
	if err := httputil.ReadJSON(r, &payload); err != nil {
		httputil.WriteError(w, err)
		return
	}
	c, err := h.app.Comments.Append(r.Context(), actor.ID, mux.Vars(r)["id"], payload.Body)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, c)
}

// admin ----------------------------------------------------------------------

func (h *handler) deposit(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Amount decimal.Decimal `json:"amount"`
	}
	if err := httputil.ReadJSON(r, &payload); err != nil {
		httputil.WriteError(w, err)
		return
	}
	ownerID := strings.TrimSpace(mux.Vars(r)["id"])
	if ownerID == "" {
		httputil.WriteError(w, apperrors.ErrInvalidParty)
		return
	}
	// the owner only becomes a known party once the deposit is valid
	if !wallet.ValidAmount(payload.Amount) {
		httputil.WriteError(w, apperrors.ErrInvalidAmount)
		return
	}
	if err := h.app.Identity.EnsureProfile(r.Context(), auth.Actor{ID: ownerID}); err != nil {
		httputil.WriteError(w, err)
		return
	}
	wal, err := h.app.Wallets.Deposit(r.Context(), ownerID, payload.Amount)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, wal)
}

func (h *handler) supply(w http.ResponseWriter, r *http.Request) {
	total, err := h.app.Wallets.TotalSupply(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"total_supply": total})
}

func (h *handler) reconcile(w http.ResponseWriter, r *http.Request) {
	report, err := h.app.Reconciler.RunOnce(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, report)
}

func (h *handler) listAudit(w http.ResponseWriter, r *http.Request) {
	limit, err := queryLimit(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"entries": h.audit.listLimit(limit)})
}

func queryLimit(r *http.Request) (int, error) {
	n, err := queryInt(r, "limit")
	return int(n), err
}

func queryInt(r *http.Request, name string) (int64, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n < 0 {
		return 0, apperrors.InvalidInput(name, "must be a non-negative integer")
	}
	return n, nil
}
