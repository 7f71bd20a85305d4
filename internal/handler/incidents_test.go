package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"helpdesk/internal/apierror"
	"helpdesk/internal/dto"
	"helpdesk/internal/middleware"
	"helpdesk/internal/model"
	"helpdesk/internal/service"
	"helpdesk/internal/session"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testCookie = "sid-test.signature"

// stubSessions resolves the fixed test cookie to a canned identity.
type stubSessions struct{ identity session.Identity }

func (s *stubSessions) Create(context.Context, session.Identity) (string, error) {
	return testCookie, nil
}

func (s *stubSessions) Get(_ context.Context, cookieValue string) (*session.Identity, error) {
	if cookieValue != testCookie {
		return nil, session.ErrNotFound
	}
	id := s.identity
	return &id, nil
}

func (s *stubSessions) Destroy(context.Context, string) error { return nil }

// stubIncidentService records arguments and returns canned responses.
type stubIncidentService struct {
	resp     *dto.IncidentResponse
	listResp []dto.IncidentResponse
	err      error

	gotUpdate   *dto.UpdateIncidentRequest
	gotFiles    []service.UploadedFile
	gotPublicID string
	gotCreate   *dto.CreateIncidentRequest
}

func (s *stubIncidentService) List(context.Context, session.Identity) ([]dto.IncidentResponse, error) {
	return s.listResp, s.err
}

func (s *stubIncidentService) Create(_ context.Context, _ session.Identity, req dto.CreateIncidentRequest, files []service.UploadedFile) (*dto.IncidentResponse, error) {
	s.gotCreate = &req
	s.gotFiles = files
	return s.resp, s.err
}

func (s *stubIncidentService) Get(context.Context, session.Identity, uuid.UUID) (*dto.IncidentResponse, error) {
	return s.resp, s.err
}

func (s *stubIncidentService) Update(_ context.Context, _ session.Identity, _ uuid.UUID, req dto.UpdateIncidentRequest) (*dto.IncidentResponse, error) {
	s.gotUpdate = &req
	return s.resp, s.err
}

func (s *stubIncidentService) AddFiles(_ context.Context, _ session.Identity, _ uuid.UUID, files []service.UploadedFile) (*dto.IncidentResponse, error) {
	s.gotFiles = files
	return s.resp, s.err
}

func (s *stubIncidentService) RemoveFile(_ context.Context, _ session.Identity, _ uuid.UUID, publicID string) (*dto.IncidentResponse, error) {
	s.gotPublicID = publicID
	return s.resp, s.err
}

func (s *stubIncidentService) Delete(context.Context, session.Identity, uuid.UUID) error {
	return s.err
}

func newIncidentsRouter(svc service.IncidentService, identity session.Identity) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewIncidentsHandler(svc)
	grp := r.Group("/api/v1/incidents", middleware.SessionAuth(&stubSessions{identity: identity}))
	grp.GET("", h.List)
	grp.POST("", h.Create)
	grp.GET("/:id", h.Get)
	grp.PATCH("/:id", h.Update)
	grp.DELETE("/:id", h.Delete)
	grp.PATCH("/:id/files", h.AddFiles)
	grp.DELETE("/:id/files", h.RemoveFile)
	return r
}

func doRequest(r *gin.Engine, method, target, contentType string, body *bytes.Buffer, authed bool) *httptest.ResponseRecorder {
	if body == nil {
		body = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, target, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if authed {
		req.AddCookie(&http.Cookie{Name: session.CookieName, Value: testCookie})
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func testIdentity() session.Identity {
	return session.Identity{UserID: uuid.New(), Name: "Ana", Email: "ana@example.com",
		Role: model.RoleUser, Office: "Malaga"}
}

func TestIncidentsRequireSession(t *testing.T) {
	r := newIncidentsRouter(&stubIncidentService{}, testIdentity())

	w := doRequest(r, http.MethodGet, "/api/v1/incidents", "", nil, false)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// A wrong cookie value is as good as none.
	req := httptest.NewRequest(http.MethodGet, "/api/v1/incidents", nil)
	req.AddCookie(&http.Cookie{Name: session.CookieName, Value: "forged.cookie"})
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestListIncidentsOK(t *testing.T) {
	svc := &stubIncidentService{listResp: []dto.IncidentResponse{
		{ID: uuid.NewString(), Title: "Printer down", Status: "Pendiente"},
		{ID: uuid.NewString(), Title: "No network", Status: "Resuelto"},
	}}
	r := newIncidentsRouter(svc, testIdentity())

	w := doRequest(r, http.MethodGet, "/api/v1/incidents", "", nil, true)
	require.Equal(t, http.StatusOK, w.Code)

	var got []dto.IncidentResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Len(t, got, 2)
	assert.Equal(t, "Printer down", got[0].Title)
}

func TestCreateIncidentMultipart(t *testing.T) {
	svc := &stubIncidentService{resp: &dto.IncidentResponse{Title: "Printer down", Status: "Pendiente"}}
	r := newIncidentsRouter(svc, testIdentity())

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("title", "Printer down"))
	require.NoError(t, mw.WriteField("description", "No toner"))
	require.NoError(t, mw.WriteField("priority", "Alta"))
	fw, err := mw.CreateFormFile("files", "foto.jpg")
	require.NoError(t, err)
	_, err = fw.Write([]byte("jpeg-bytes"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	w := doRequest(r, http.MethodPost, "/api/v1/incidents", mw.FormDataContentType(), &buf, true)
	require.Equal(t, http.StatusCreated, w.Code)

	require.NotNil(t, svc.gotCreate)
	assert.Equal(t, "Printer down", svc.gotCreate.Title)
	assert.Equal(t, "Alta", svc.gotCreate.Priority)
	require.Len(t, svc.gotFiles, 1)
	assert.Equal(t, "foto.jpg", svc.gotFiles[0].Name)
	assert.Equal(t, []byte("jpeg-bytes"), svc.gotFiles[0].Content)
}

func TestUpdateIncidentBadIDIs404(t *testing.T) {
	r := newIncidentsRouter(&stubIncidentService{}, testIdentity())

	body := bytes.NewBufferString(`{"title":"x"}`)
	w := doRequest(r, http.MethodPatch, "/api/v1/incidents/not-a-uuid", "application/json", body, true)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "Recurso no encontrado")
}

func TestUpdateIncidentForbiddenStatusChange(t *testing.T) {
	svc := &stubIncidentService{err: apierror.Forbidden("No tienes permiso para cambiar el estado de la incidencia")}
	r := newIncidentsRouter(svc, testIdentity())

	body := bytes.NewBufferString(`{"status":"Resuelto"}`)
	w := doRequest(r, http.MethodPatch, "/api/v1/incidents/"+uuid.NewString(), "application/json", body, true)
	assert.Equal(t, http.StatusForbidden, w.Code)

	require.NotNil(t, svc.gotUpdate)
	require.NotNil(t, svc.gotUpdate.Status)
	assert.Equal(t, "Resuelto", *svc.gotUpdate.Status)
}

func TestRemoveFileRequiresPublicIDField(t *testing.T) {
	svc := &stubIncidentService{}
	r := newIncidentsRouter(svc, testIdentity())

	body := bytes.NewBufferString(`{}`)
	w := doRequest(r, http.MethodDelete, "/api/v1/incidents/"+uuid.NewString()+"/files", "application/json", body, true)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, svc.gotPublicID) // validation stops before the service
}

func TestRemoveFilePassesPublicID(t *testing.T) {
	svc := &stubIncidentService{resp: &dto.IncidentResponse{}}
	r := newIncidentsRouter(svc, testIdentity())

	body := bytes.NewBufferString(`{"public_id":"helpdesk-uploads/a.jpg"}`)
	w := doRequest(r, http.MethodDelete, "/api/v1/incidents/"+uuid.NewString()+"/files", "application/json", body, true)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "helpdesk-uploads/a.jpg", svc.gotPublicID)
}

func TestDeleteIncidentConflictSurfacesAs409(t *testing.T) {
	svc := &stubIncidentService{err: apierror.Conflict("La incidencia fue modificada por otra operacion")}
	r := newIncidentsRouter(svc, testIdentity())

	w := doRequest(r, http.MethodDelete, "/api/v1/incidents/"+uuid.NewString(), "", nil, true)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestInternalErrorsUseGenericMessage(t *testing.T) {
	svc := &stubIncidentService{err: apierror.Internal(assert.AnError)}
	r := newIncidentsRouter(svc, testIdentity())

	w := doRequest(r, http.MethodGet, "/api/v1/incidents", "", nil, true)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "Error interno del servidor")
	assert.NotContains(t, w.Body.String(), assert.AnError.Error())
}

func TestTooManyFilesRejected(t *testing.T) {
	svc := &stubIncidentService{resp: &dto.IncidentResponse{}}
	r := newIncidentsRouter(svc, testIdentity())

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for i := 0; i < 11; i++ {
		fw, err := mw.CreateFormFile("files", "f"+strings.Repeat("x", i)+".jpg")
		require.NoError(t, err)
		_, err = fw.Write([]byte("x"))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	w := doRequest(r, http.MethodPatch, "/api/v1/incidents/"+uuid.NewString()+"/files", mw.FormDataContentType(), &buf, true)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Nil(t, svc.gotFiles)
}
