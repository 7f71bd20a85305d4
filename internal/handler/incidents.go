package handler

import (
	"net/http"

	"helpdesk/internal/dto"
	"helpdesk/internal/middleware"
	"helpdesk/internal/service"

	"github.com/gin-gonic/gin"
)

type IncidentsHandler struct{ svc service.IncidentService }

func NewIncidentsHandler(svc service.IncidentService) *IncidentsHandler {
	return &IncidentsHandler{svc: svc}
}

// List handles GET /incidents. Admins see every incident; everyone else only
// their office's.
func (h *IncidentsHandler) List(c *gin.Context) {
	resp, err := h.svc.List(c.Request.Context(), middleware.GetIdentity(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Create handles POST /incidents (multipart, optional "files" field).
func (h *IncidentsHandler) Create(c *gin.Context) {
	var req dto.CreateIncidentRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Formulario invalido"})
		return
	}

	var files []service.UploadedFile
	if c.ContentType() == "multipart/form-data" {
		var ok bool
		if files, ok = readUploads(c); !ok {
			return
		}
	}

	resp, err := h.svc.Create(c.Request.Context(), middleware.GetIdentity(c), req, files)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// Get handles GET /incidents/:id.
func (h *IncidentsHandler) Get(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	resp, err := h.svc.Get(c.Request.Context(), middleware.GetIdentity(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Update handles PATCH /incidents/:id (partial field patch).
func (h *IncidentsHandler) Update(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req dto.UpdateIncidentRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Update(c.Request.Context(), middleware.GetIdentity(c), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// AddFiles handles PATCH /incidents/:id/files (multipart append).
func (h *IncidentsHandler) AddFiles(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	files, ok := readUploads(c)
	if !ok {
		return
	}
	resp, err := h.svc.AddFiles(c.Request.Context(), middleware.GetIdentity(c), id, files)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// RemoveFile handles DELETE /incidents/:id/files with body {public_id}.
func (h *IncidentsHandler) RemoveFile(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req dto.RemoveFileRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.RemoveFile(c.Request.Context(), middleware.GetIdentity(c), id, req.PublicID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Delete handles DELETE /incidents/:id.
func (h *IncidentsHandler) Delete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), middleware.GetIdentity(c), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Incidencia eliminada"})
}
