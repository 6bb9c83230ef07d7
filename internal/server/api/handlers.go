package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/dustin/go-humanize"
	"github.com/labstack/echo/v4"

	"canopy/internal/core"
	"canopy/internal/server/service"
)

// PasswordHeader carries the password of a protected namespace.
const PasswordHeader = "X-Namespace-Password"

// Handler contains the HTTP handlers for the Canopy API.
type Handler struct {
	svc *service.NamespaceService
}

// NewHandler creates a new handler with the given service dependency.
func NewHandler(svc *service.NamespaceService) *Handler {
	return &Handler{svc: svc}
}

type createNamespaceRequest struct {
	Name     string `json:"name"`
	Password string `json:"password"`
}

// HandleCreate handles POST /api/namespaces.
func (h *Handler) HandleCreate(c echo.Context) error {
	var req createNamespaceRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}

	result, err := h.svc.CreateNamespace(c.Request().Context(), req.Name, req.Password)
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(http.StatusCreated, result)
}

// HandleImport handles POST /api/namespaces/import.
// Accepts a multipart form with a "file" field and optional "name" and
// "password" fields.
func (h *Handler) HandleImport(c echo.Context) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "file is required (use form field 'file')",
		})
	}

	src, err := fileHeader.Open()
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error": "failed to read uploaded file",
		})
	}
	defer src.Close()

	result, err := h.svc.ImportNamespace(
		c.Request().Context(),
		c.FormValue("name"),
		src,
		fileHeader.Size,
		c.FormValue("password"),
	)
	if err != nil {
		return mapServiceError(c, err)
	}

	return c.JSON(http.StatusCreated, result)
}

// HandleInfo handles GET /api/namespaces/:id.
// Returns namespace metadata without touching the tree.
func (h *Handler) HandleInfo(c echo.Context) error {
	info, err := h.svc.GetInfo(c.Request().Context(), c.Param("id"))
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(http.StatusOK, info)
}

// HandleDelete handles DELETE /api/namespaces/:id/:token.
func (h *Handler) HandleDelete(c echo.Context) error {
	if err := h.svc.DeleteNamespace(c.Request().Context(), c.Param("id"), c.Param("token")); err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"message": "namespace deleted successfully",
	})
}

// HandleTree handles GET /api/namespaces/:id/tree.
func (h *Handler) HandleTree(c echo.Context) error {
	snap, err := h.svc.Tree(c.Request().Context(), c.Param("id"), password(c))
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(http.StatusOK, snap)
}

// HandleStat handles GET /api/namespaces/:id/nodes?path=.
func (h *Handler) HandleStat(c echo.Context) error {
	view, err := h.svc.Stat(c.Request().Context(), c.Param("id"), password(c), c.QueryParam("path"))
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(http.StatusOK, view)
}

// HandleExport handles GET /api/namespaces/:id/export?path=.
// Serves the subtree as a ZIP skeleton attachment.
func (h *Handler) HandleExport(c echo.Context) error {
	data, filename, err := h.svc.Export(c.Request().Context(), c.Param("id"), password(c), c.QueryParam("path"))
	if err != nil {
		return mapServiceError(c, err)
	}

	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
	return c.Blob(http.StatusOK, "application/zip", data)
}

func (h *Handler) HandleMkdir(c echo.Context) error {
	return mutate(c, http.StatusCreated, h.svc.Mkdir)
}

func (h *Handler) HandleCreateFile(c echo.Context) error {
	return mutate(c, http.StatusCreated, h.svc.CreateFile)
}

func (h *Handler) HandleCreateLink(c echo.Context) error {
	return mutate(c, http.StatusCreated, h.svc.CreateLink)
}

func (h *Handler) HandleRename(c echo.Context) error {
	return mutate(c, http.StatusOK, h.svc.Rename)
}

func (h *Handler) HandleMove(c echo.Context) error {
	return mutate(c, http.StatusOK, h.svc.Move)
}

func (h *Handler) HandleResize(c echo.Context) error {
	return mutate(c, http.StatusOK, h.svc.Resize)
}

func (h *Handler) HandleWritable(c echo.Context) error {
	return mutate(c, http.StatusOK, h.svc.SetWritable)
}

// HandleTerminate handles POST /api/namespaces/:id/terminate.
func (h *Handler) HandleTerminate(c echo.Context) error {
	var req service.TerminateRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := h.svc.Terminate(c.Request().Context(), c.Param("id"), password(c), req); err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "node terminated"})
}

// HandleHealth handles GET /health.
func (h *Handler) HandleHealth(c echo.Context) error {
	status := "healthy"
	namespaces := "unknown"

	stats, err := h.svc.GetStats(c.Request().Context())
	if err != nil {
		status = "degraded"
	} else {
		namespaces = humanize.Comma(stats.ActiveNamespaces)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"status":     status,
		"namespaces": namespaces,
	})
}

// HandleStats handles GET /api/stats.
// Returns aggregate server statistics.
func (h *Handler) HandleStats(c echo.Context) error {
	stats, err := h.svc.GetStats(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error": "failed to retrieve stats",
		})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"total_namespaces":  stats.TotalNamespaces,
		"active_namespaces": stats.ActiveNamespaces,
		"total_accesses":    stats.TotalAccesses,
		"total_nodes":       stats.TotalNodes,
		"disk_usage_bytes":  stats.DiskUsage,
		"disk_usage_human":  humanize.IBytes(stats.DiskUsage),
	})
}

// mutate binds the JSON body into R, runs op against the namespace in the
// path and answers with the changed entry.
func mutate[R any](c echo.Context, status int, op func(ctx context.Context, id, password string, req R) (*core.Entry, error)) error {
	var req R
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	entry, err := op(c.Request().Context(), c.Param("id"), password(c), req)
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(status, entry)
}

func password(c echo.Context) string {
	return c.Request().Header.Get(PasswordHeader)
}

// mapServiceError translates service and namespace errors into HTTP responses.
func mapServiceError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, service.ErrNamespaceNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "namespace not found"})
	case errors.Is(err, service.ErrExpired):
		return c.JSON(http.StatusGone, echo.Map{"error": "namespace has expired"})
	case errors.Is(err, service.ErrPasswordRequired):
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "password_required"})
	case errors.Is(err, service.ErrInvalidPassword):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "invalid password"})
	case errors.Is(err, service.ErrInvalidToken):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "invalid deletion token"})
	case errors.Is(err, service.ErrArchiveTooLarge):
		return c.JSON(http.StatusRequestEntityTooLarge, echo.Map{"error": err.Error()})
	case errors.Is(err, service.ErrInvalidArchive):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid or corrupt ZIP file"})
	case errors.Is(err, service.ErrLimitReached):
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "namespace limit reached, try again later"})
	case errors.Is(err, service.ErrInvalidRequest):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})

	case errors.Is(err, core.ErrNotFound), errors.Is(err, core.ErrArgumentNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": err.Error()})
	case errors.Is(err, core.ErrNotWritable):
		return c.JSON(http.StatusForbidden, echo.Map{"error": err.Error()})
	case errors.Is(err, core.ErrNameNotAvailable),
		errors.Is(err, core.ErrDirectoryNotEmpty),
		errors.Is(err, core.ErrLoopedDirectory):
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
	case errors.Is(err, core.ErrReferenceDeleted):
		return c.JSON(http.StatusGone, echo.Map{"error": err.Error()})
	case errors.Is(err, core.ErrInvalidArgument):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal server error"})
	}
}
