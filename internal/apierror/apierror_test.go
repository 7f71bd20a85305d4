package apierror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusOf(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, StatusOf(Validation("x")))
	assert.Equal(t, http.StatusUnauthorized, StatusOf(Unauthorized("x")))
	assert.Equal(t, http.StatusForbidden, StatusOf(Forbidden("x")))
	assert.Equal(t, http.StatusNotFound, StatusOf(NotFound("x")))
	assert.Equal(t, http.StatusConflict, StatusOf(Conflict("x")))
	assert.Equal(t, http.StatusInternalServerError, StatusOf(Store("x", errors.New("boom"))))
	assert.Equal(t, http.StatusInternalServerError, StatusOf(Internal(errors.New("boom"))))

	// Unclassified errors default to 500.
	assert.Equal(t, http.StatusInternalServerError, StatusOf(errors.New("raw")))
}

func TestInternalHidesCause(t *testing.T) {
	cause := errors.New("pq: connection refused")
	err := Internal(cause)

	resp := ResponseOf(err)
	assert.Equal(t, "Error interno del servidor", resp.Message)
	assert.NotContains(t, resp.Message, "connection refused")

	// The cause stays reachable for logging.
	assert.ErrorIs(t, err, cause)
}

func TestWrappedErrorsKeepTheirKind(t *testing.T) {
	err := fmt.Errorf("while updating: %w", Conflict("version mismatch"))
	assert.Equal(t, KindConflict, KindOf(err))
	assert.Equal(t, http.StatusConflict, StatusOf(err))
}

func TestValidationFieldsCarriesDetails(t *testing.T) {
	err := ValidationFields(map[string]string{"email": "required"})
	resp := ResponseOf(err)
	assert.Equal(t, "required", resp.Errors["email"])
}
