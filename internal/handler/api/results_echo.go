package api

import (
	"errors"
	"time"

	"ConflictVol/internal/domain/models"
	"ConflictVol/internal/usecase"
	"ConflictVol/pkg/cache"
	xhttp "ConflictVol/pkg/http"
	xlogger "ConflictVol/pkg/logger"

	"github.com/labstack/echo/v4"
)

// ResultsEchoHandler serves the resident evaluation results over HTTP.
type ResultsEchoHandler struct {
	logger   *xlogger.Logger
	eval     *usecase.EvaluateUseCase
	cache    cache.Service
	cacheTTL time.Duration
}

func NewResultsEchoHandler(logger *xlogger.Logger, eval *usecase.EvaluateUseCase, c cache.Service, ttl time.Duration) *ResultsEchoHandler {
	return &ResultsEchoHandler{logger: logger, eval: eval, cache: c, cacheTTL: ttl}
}

func (h *ResultsEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/v1")
	g.GET("/commodities", h.Commodities)
	g.GET("/forecasts/:commodity", h.Forecasts)
	g.GET("/losses/:commodity", h.Losses)
	g.GET("/summary/:commodity", h.Summary)
	g.GET("/dm/:commodity", h.DM)
}

// Commodities lists commodities with results available.
func (h *ResultsEchoHandler) Commodities(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.eval.Commodities())
}

type forecastsRequest struct {
	Commodity string `param:"commodity" validate:"required"`
	Model     string `query:"model"`
}

// Forecasts returns forecast records for one commodity, optionally filtered to
// one model.
func (h *ResultsEchoHandler) Forecasts(c echo.Context) error {
	req := &forecastsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	res, ok := h.eval.Result(req.Commodity)
	if !ok {
		return xhttp.NotFoundResponse(c, "unknown commodity")
	}
	if req.Model != "" {
		records, ok := res.Forecasts[req.Model]
		if !ok {
			return xhttp.NotFoundResponse(c, "unknown model")
		}
		return xhttp.SuccessResponse(c, records)
	}
	return xhttp.SuccessResponse(c, res.Forecasts)
}

// Losses returns per-date losses for one commodity.
func (h *ResultsEchoHandler) Losses(c echo.Context) error {
	req := &forecastsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	res, ok := h.eval.Result(req.Commodity)
	if !ok {
		return xhttp.NotFoundResponse(c, "unknown commodity")
	}
	if req.Model != "" {
		records, ok := res.Losses[req.Model]
		if !ok {
			return xhttp.NotFoundResponse(c, "unknown model")
		}
		return xhttp.SuccessResponse(c, records)
	}
	return xhttp.SuccessResponse(c, res.Losses)
}

type summaryRequest struct {
	Commodity string `param:"commodity" validate:"required"`
}

// Summary returns the per-model loss summaries for one commodity.
func (h *ResultsEchoHandler) Summary(c echo.Context) error {
	req := &summaryRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	key := cache.Key("summary", req.Commodity)
	var cached []models.LossSummary
	if err := h.cacheGet(c, key, &cached); err == nil {
		return xhttp.SuccessResponse(c, cached)
	}

	res, ok := h.eval.Result(req.Commodity)
	if !ok {
		return xhttp.NotFoundResponse(c, "unknown commodity")
	}
	h.cacheSet(c, key, res.Summaries)
	return xhttp.SuccessResponse(c, res.Summaries)
}

type dmRequest struct {
	Commodity string `param:"commodity" validate:"required"`
	ModelA    string `query:"a"`
	ModelB    string `query:"b"`
}

// DM returns the Diebold-Mariano comparisons for one commodity, optionally
// restricted to one model pair.
func (h *ResultsEchoHandler) DM(c echo.Context) error {
	req := &dmRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	key := cache.Key("dm", req.Commodity, req.ModelA, req.ModelB)
	var cached []models.DMResult
	if err := h.cacheGet(c, key, &cached); err == nil {
		return xhttp.SuccessResponse(c, cached)
	}

	res, ok := h.eval.Result(req.Commodity)
	if !ok {
		return xhttp.NotFoundResponse(c, "unknown commodity")
	}
	out := res.DM
	if req.ModelA != "" && req.ModelB != "" {
		out = out[:0:0]
		for _, dm := range res.DM {
			if (dm.ModelA == req.ModelA && dm.ModelB == req.ModelB) ||
				(dm.ModelA == req.ModelB && dm.ModelB == req.ModelA) {
				out = append(out, dm)
			}
		}
		if len(out) == 0 {
			return xhttp.NotFoundResponse(c, "unknown model pair")
		}
	}
	h.cacheSet(c, key, out)
	return xhttp.SuccessResponse(c, out)
}

func (h *ResultsEchoHandler) cacheGet(c echo.Context, key string, dest interface{}) error {
	if h.cache == nil {
		return cache.ErrCacheMiss
	}
	err := h.cache.Get(c.Request().Context(), key, dest)
	if err != nil && !errors.Is(err, cache.ErrCacheMiss) {
		h.logger.Warn("cache get error", xlogger.String("key", key), xlogger.Error(err))
	}
	return err
}

func (h *ResultsEchoHandler) cacheSet(c echo.Context, key string, value interface{}) {
	if h.cache == nil {
		return
	}
	if err := h.cache.Set(c.Request().Context(), key, value, h.cacheTTL); err != nil {
		h.logger.Warn("cache set error", xlogger.String("key", key), xlogger.Error(err))
	}
}
