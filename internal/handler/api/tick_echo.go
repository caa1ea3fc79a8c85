package api

import (
	"context"
	"errors"
	"net/http"
	"sort"

	"StratTick/internal/domain/models"
	domrepo "StratTick/internal/domain/repository"
	"StratTick/internal/services/registry"
	"StratTick/internal/usecase"
	xhttp "StratTick/pkg/http"
	xlogger "StratTick/pkg/logger"

	"github.com/labstack/echo/v4"
)

// RegistryReloader exposes the live registry and its file reload.
type RegistryReloader interface {
	Current() *registry.Registry
	Reload() (*registry.Registry, error)
}

// HealthCheck checks one dependency.
type HealthCheck func(ctx context.Context) error

// TickEchoHandler serves the inspection and control API.
type TickEchoHandler struct {
	logger   *xlogger.Logger
	registry RegistryReloader
	cycle    usecase.CycleRunner
	batches  domrepo.BatchReader
	checks   map[string]HealthCheck
}

func NewTickEchoHandler(
	logger *xlogger.Logger,
	reg RegistryReloader,
	cycle usecase.CycleRunner,
	batches domrepo.BatchReader,
	checks map[string]HealthCheck,
) *TickEchoHandler {
	if logger == nil {
		logger = xlogger.Nop()
	}
	return &TickEchoHandler{logger: logger, registry: reg, cycle: cycle, batches: batches, checks: checks}
}

func (h *TickEchoHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.Health)

	g := e.Group("/api")
	g.GET("/registry", h.Registry)
	g.POST("/registry/reload", h.ReloadRegistry)
	g.GET("/due", h.Due)
	g.POST("/cycles", h.RunCycle)
	g.GET("/batches/latest", h.LatestBatch)
	g.GET("/batches/:at", h.BatchByCycle)
}

func (h *TickEchoHandler) Health(c echo.Context) error {
	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	status := make(map[string]string, len(names))
	healthy := true
	for _, name := range names {
		if err := h.checks[name](c.Request().Context()); err != nil {
			status[name] = err.Error()
			healthy = false
			continue
		}
		status[name] = "ok"
	}
	if !healthy {
		return xhttp.DataResponse(c, http.StatusServiceUnavailable, status)
	}
	return xhttp.SuccessResponse(c, status)
}

func (h *TickEchoHandler) Registry(c echo.Context) error {
	reg := h.registry.Current()
	return xhttp.SuccessResponse(c, models.RegistryResponse{
		LoadedAt:   reg.LoadedAt(),
		Enabled:    reg.EnabledCount(),
		Strategies: reg.Specs(),
	})
}

func (h *TickEchoHandler) ReloadRegistry(c echo.Context) error {
	reg, err := h.registry.Reload()
	if err != nil {
		h.logger.Error("registry reload error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.UnprocessableError("registry reload failed").WithError(err).WithParam("reason", err.Error()))
	}
	return xhttp.SuccessResponse(c, models.ReloadResponse{Strategies: reg.Len(), Enabled: reg.EnabledCount()})
}

func (h *TickEchoHandler) Due(c echo.Context) error {
	req := &models.DueRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	at, ok := xhttp.ParseTime(req.At)
	if !ok {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestErrorf("cannot parse instant %q", req.At))
	}

	due, err := usecase.Due(at, h.registry.Current().Specs())
	if err != nil {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError(err.Error()))
	}
	return xhttp.SuccessResponse(c, models.DueResponse{At: at, Strategies: due})
}

func (h *TickEchoHandler) RunCycle(c echo.Context) error {
	req := &models.RunCycleRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	at, ok := xhttp.ParseTime(req.At)
	if !ok {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestErrorf("cannot parse instant %q", req.At))
	}

	batch, err := h.cycle.Run(c.Request().Context(), at)
	if err != nil {
		appErr := cycleError(err)
		if batch != nil {
			// The cycle ran but publishing failed.
			appErr.WithParam("batch", batch)
		}
		return xhttp.AppErrorResponse(c, appErr)
	}
	return xhttp.SuccessResponse(c, batch)
}

func (h *TickEchoHandler) LatestBatch(c echo.Context) error {
	if h.batches == nil {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundError("batch history is disabled"))
	}
	b, err := h.batches.Latest(c.Request().Context())
	if err != nil {
		return xhttp.AppErrorResponse(c, h.batchError(err))
	}
	return xhttp.SuccessResponse(c, b)
}

func (h *TickEchoHandler) BatchByCycle(c echo.Context) error {
	req := &models.BatchRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if h.batches == nil {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundError("batch history is disabled"))
	}
	at, ok := xhttp.ParseTime(req.At)
	if !ok {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestErrorf("cannot parse instant %q", req.At))
	}

	b, err := h.batches.ByCycle(c.Request().Context(), at)
	if err != nil {
		return xhttp.AppErrorResponse(c, h.batchError(err))
	}
	return xhttp.SuccessResponse(c, b)
}

func (h *TickEchoHandler) batchError(err error) *xhttp.AppError {
	if errors.Is(err, models.ErrBatchNotFound) {
		return xhttp.NotFoundError(err.Error())
	}
	h.logger.Error("batch read error", xlogger.Error(err))
	return xhttp.InternalError("batch read failed").WithError(err)
}

func cycleError(err error) *xhttp.AppError {
	var invalid *models.InvalidInstantError
	var integrity *models.DataIntegrityError
	switch {
	case errors.As(err, &invalid):
		return xhttp.BadRequestError(err.Error())
	case errors.As(err, &integrity):
		return xhttp.UnprocessableError(err.Error())
	case errors.Is(err, models.ErrCycleClaimed):
		return xhttp.ConflictError(err.Error())
	default:
		return xhttp.InternalError(err.Error()).WithError(err)
	}
}
