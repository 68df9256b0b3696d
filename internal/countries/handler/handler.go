// Package handler exposes the country endpoints over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"atlas/internal/countries/models"
	dErrors "atlas/pkg/domain-errors"
	"atlas/pkg/platform/httputil"
	"atlas/pkg/platform/middleware/request"
)

// Fixed messages returned for server-side failures, one per endpoint.
const (
	MsgListFailed   = "Failed to fetch countries"
	MsgDetailFailed = "Failed to fetch country details"
	MsgRegionFailed = "Failed to filter countries by region"
	MsgSearchFailed = "Failed to search countries"
	MsgInvalidCode  = "Invalid country code"
	MsgNotFound     = "Country not found"
)

const (
	defaultPage  = 1
	defaultLimit = 20
)

type Service interface {
	ListPage(ctx context.Context, page, limit int) ([]models.Country, error)
	GetByCode(ctx context.Context, code string) (*models.Country, error)
	ListByRegion(ctx context.Context, region string) ([]models.Country, error)
	Search(ctx context.Context, params models.SearchParams) ([]models.Country, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// Register mounts the country routes. The literal segments are registered
// before the {code} catch-all.
func (h *Handler) Register(r chi.Router) {
	r.Route("/countries", func(r chi.Router) {
		r.Get("/", h.HandleList)
		r.Get("/search", h.HandleSearch)
		r.Get("/region/{region}", h.HandleRegion)
		r.Get("/{code}", h.HandleDetail)
	})
}

// HandleList implements GET /countries?page=&limit=.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	page := httputil.PositiveIntQuery(r, "page", defaultPage)
	limit := httputil.PositiveIntQuery(r, "limit", defaultLimit)

	countries, err := h.service.ListPage(ctx, page, limit)
	if err != nil {
		h.fail(ctx, w, err, MsgListFailed, "page", page, "limit", limit)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, countries)
}

// HandleDetail implements GET /countries/{code}.
func (h *Handler) HandleDetail(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req := &models.CodeRequest{Code: chi.URLParam(r, "code")}
	if err := httputil.PrepareRequest(req); err != nil {
		h.logger.DebugContext(ctx, "rejected country code",
			"code", req.Code,
			"error", err,
			"request_id", request.RequestIDFrom(ctx),
		)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInvalidInput, MsgInvalidCode), MsgDetailFailed)
		return
	}

	country, err := h.service.GetByCode(ctx, req.Code)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeNotFound) {
			httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeNotFound, MsgNotFound), MsgDetailFailed)
			return
		}
		h.fail(ctx, w, err, MsgDetailFailed, "code", req.Code)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, country)
}

// HandleRegion implements GET /countries/region/{region}.
func (h *Handler) HandleRegion(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	region := chi.URLParam(r, "region")

	countries, err := h.service.ListByRegion(ctx, region)
	if err != nil {
		h.fail(ctx, w, err, MsgRegionFailed, "region", region)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, countries)
}

// HandleSearch implements GET /countries/search?name=&capital=&region=&timezone=.
func (h *Handler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()
	params := models.SearchParams{
		Name:     q.Get("name"),
		Capital:  q.Get("capital"),
		Region:   q.Get("region"),
		Timezone: q.Get("timezone"),
	}

	countries, err := h.service.Search(ctx, params)
	if err != nil {
		h.fail(ctx, w, err, MsgSearchFailed, "params", params)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, countries)
}

// fail logs a server-side failure and writes the endpoint's fixed message.
func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, err error, msg string, attrs ...any) {
	attrs = append(attrs,
		"error", err,
		"code", dErrors.CodeOf(err),
		"request_id", request.RequestIDFrom(ctx),
	)
	h.logger.ErrorContext(ctx, msg, attrs...)
	httputil.WriteError(w, err, msg)
}
