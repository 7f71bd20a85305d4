package handler

import (
	"io"
	"net/http"

	"helpdesk/internal/apierror"
	"helpdesk/internal/service"
	"helpdesk/internal/storage"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

var validate = validator.New()

// bindAndValidate binds JSON body and runs go-playground/validator tags.
// Returns false and writes the error response if validation fails —
// the caller should return immediately without writing another response.
func bindAndValidate(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, apierror.Response{Message: "JSON invalido: " + err.Error()})
		return false
	}
	if err := validate.Struct(req); err != nil {
		fields := make(map[string]string)
		for _, fe := range err.(validator.ValidationErrors) {
			fields[fe.Field()] = fe.Tag()
		}
		c.JSON(http.StatusBadRequest, apierror.ResponseOf(apierror.ValidationFields(fields)))
		return false
	}
	return true
}

// respondError maps a service error onto the wire envelope. 5xx causes are
// additionally attached to the context so the error middleware logs them.
func respondError(c *gin.Context, err error) {
	status := apierror.StatusOf(err)
	if status >= http.StatusInternalServerError {
		_ = c.Error(err)
	}
	c.JSON(status, apierror.ResponseOf(err))
}

// parseID reads a uuid path parameter, answering 404 on garbage — an
// unparseable id can never name an existing record.
func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, apierror.ResponseOf(apierror.NotFound("Recurso no encontrado")))
		return uuid.Nil, false
	}
	return id, true
}

// readUploads buffers the multipart "files" field. Size and count caps are
// enforced here so oversized bodies never reach the store adapter.
func readUploads(c *gin.Context) ([]service.UploadedFile, bool) {
	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.ResponseOf(apierror.Validation("Formulario multipart invalido")))
		return nil, false
	}
	headers := form.File["files"]
	if len(headers) > storage.MaxFiles {
		c.JSON(http.StatusBadRequest, apierror.ResponseOf(apierror.Validation("Maximo 10 archivos por solicitud")))
		return nil, false
	}

	files := make([]service.UploadedFile, 0, len(headers))
	for _, fh := range headers {
		if fh.Size > storage.MaxFileSize {
			c.JSON(http.StatusBadRequest, apierror.ResponseOf(
				apierror.Validation("El archivo "+fh.Filename+" supera los 10MB")))
			return nil, false
		}
		f, err := fh.Open()
		if err != nil {
			respondError(c, apierror.Internal(err))
			return nil, false
		}
		content, err := io.ReadAll(io.LimitReader(f, storage.MaxFileSize+1))
		f.Close()
		if err != nil {
			respondError(c, apierror.Internal(err))
			return nil, false
		}
		files = append(files, service.UploadedFile{Name: fh.Filename, Content: content})
	}
	return files, true
}
