package access

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/physiokit/portal-api/internal/handler"
	"github.com/physiokit/portal-api/internal/middleware"
	"github.com/physiokit/portal-api/internal/model"
	"github.com/physiokit/portal-api/internal/registry"
	"github.com/physiokit/portal-api/internal/service/access"
	"github.com/physiokit/portal-api/pkg/httputil"
)

type Handler struct {
	service access.AccessService
}

func NewHandler(service access.AccessService) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	patients := r.Group("/patients")
	{
		patients.GET("/:id/access", h.GetAccess)
		patients.PATCH("/:id/access/overrides", h.UpdateOverrides)
		patients.PATCH("/:id/access/full-access", h.ToggleFullAccess)
	}

	accessGroup := r.Group("/access")
	{
		accessGroup.PATCH("/overrides/apply-to-all", h.ApplyOverridesToAll)
	}

	reg := r.Group("/registry")
	{
		reg.GET("/modules", h.ListModules)
		reg.GET("/permissions", h.ListPermissions)
	}
}

func (h *Handler) GetAccess(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid patient ID"))
		return
	}

	report, err := h.service.ResolveAccess(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(report))
}

func (h *Handler) UpdateOverrides(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid patient ID"))
		return
	}

	var req model.UpdateOverridesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	overrides, err := h.service.UpdateOverrides(c.Request.Context(), actorFromContext(c), id, req.Overrides)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(model.UpdateOverridesResponse{
		Overrides: overrides,
	}))
}

func (h *Handler) ToggleFullAccess(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid patient ID"))
		return
	}

	// An empty body means "flip"; a body with a value means "set".
	var req model.FullAccessRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	var resp *model.FullAccessResponse
	if req.Value != nil {
		resp, err = h.service.SetFullAccessOverride(c.Request.Context(), actorFromContext(c), id, *req.Value)
	} else {
		resp, err = h.service.ToggleFullAccess(c.Request.Context(), actorFromContext(c), id)
	}
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(resp))
}

func (h *Handler) ApplyOverridesToAll(c *gin.Context) {
	var req model.UpdateOverridesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	var clinicID *uuid.UUID
	if raw := c.Query("clinic_id"); raw != "" {
		parsed, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid clinic ID"))
			return
		}
		clinicID = &parsed
	}

	resp, err := h.service.ApplyOverridesToAll(c.Request.Context(), actorFromContext(c), clinicID, req.Overrides)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(resp))
}

func (h *Handler) ListModules(c *gin.Context) {
	c.JSON(http.StatusOK, handler.NewSuccessResponse(registry.Modules()))
}

func (h *Handler) ListPermissions(c *gin.Context) {
	c.JSON(http.StatusOK, handler.NewSuccessResponse(registry.Permissions()))
}

func actorFromContext(c *gin.Context) access.Actor {
	actor := access.Actor{}
	if v, ok := c.Get(middleware.ContextUserID); ok {
		if id, ok := v.(uuid.UUID); ok {
			actor.ID = id
		}
	}
	if v, ok := c.Get(middleware.ContextClinicID); ok {
		if id, ok := v.(uuid.UUID); ok {
			actor.ClinicID = id
		}
	}
	return actor
}
