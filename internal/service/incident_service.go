package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"helpdesk/internal/apierror"
	"helpdesk/internal/dto"
	"helpdesk/internal/model"
	"helpdesk/internal/repository"
	"helpdesk/internal/session"
	"helpdesk/internal/storage"
	"helpdesk/internal/worker"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// UploadedFile is a file received in a multipart request, fully buffered.
// The 10MB cap is enforced before anything reaches the service.
type UploadedFile struct {
	Name    string
	Content []byte
}

// Notifier enqueues async lifecycle notifications (implemented by
// worker.Dispatcher). May be nil in tests.
type Notifier interface {
	EnqueueNotify(ctx context.Context, payload worker.NotifyPayload)
}

// IncidentService enforces validation, defaults, role-scoped visibility, and
// attachment-list reconciliation with the attachment store.
type IncidentService interface {
	List(ctx context.Context, caller session.Identity) ([]dto.IncidentResponse, error)
	Create(ctx context.Context, caller session.Identity, req dto.CreateIncidentRequest, files []UploadedFile) (*dto.IncidentResponse, error)
	Get(ctx context.Context, caller session.Identity, id uuid.UUID) (*dto.IncidentResponse, error)
	Update(ctx context.Context, caller session.Identity, id uuid.UUID, req dto.UpdateIncidentRequest) (*dto.IncidentResponse, error)
	AddFiles(ctx context.Context, caller session.Identity, id uuid.UUID, files []UploadedFile) (*dto.IncidentResponse, error)
	RemoveFile(ctx context.Context, caller session.Identity, id uuid.UUID, publicID string) (*dto.IncidentResponse, error)
	Delete(ctx context.Context, caller session.Identity, id uuid.UUID) error
}

type incidentService struct {
	repo     repository.IncidentRepository
	store    storage.AttachmentStore
	notifier Notifier
}

func NewIncidentService(repo repository.IncidentRepository, store storage.AttachmentStore, notifier Notifier) IncidentService {
	return &incidentService{repo: repo, store: store, notifier: notifier}
}

// mapIncident converts a model to a DTO response.
func mapIncident(inc *model.Incident) *dto.IncidentResponse {
	return &dto.IncidentResponse{
		ID:          inc.ID.String(),
		Title:       inc.Title,
		Description: inc.Description,
		Office:      inc.Office,
		Name:        inc.Name,
		Email:       inc.Email,
		Priority:    string(inc.Priority),
		Status:      string(inc.Status),
		Files:       []model.Attachment(inc.Files),
		CreatedAt:   inc.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// visibleTo applies the office scope: admins see everything, everyone else
// only their own office.
func visibleTo(caller session.Identity, inc *model.Incident) bool {
	return caller.Role == model.RoleAdmin || inc.Office == caller.Office
}

func (s *incidentService) List(ctx context.Context, caller session.Identity) ([]dto.IncidentResponse, error) {
	var (
		incidents []model.Incident
		err       error
	)
	if caller.Role == model.RoleAdmin {
		incidents, err = s.repo.List(ctx)
	} else {
		incidents, err = s.repo.ListByOffice(ctx, caller.Office)
	}
	if err != nil {
		return nil, apierror.Internal(err)
	}
	result := make([]dto.IncidentResponse, 0, len(incidents))
	for i := range incidents {
		result = append(result, *mapIncident(&incidents[i]))
	}
	return result, nil
}

func (s *incidentService) Create(ctx context.Context, caller session.Identity, req dto.CreateIncidentRequest, files []UploadedFile) (*dto.IncidentResponse, error) {
	title := strings.TrimSpace(req.Title)
	description := strings.TrimSpace(req.Description)
	if title == "" || description == "" {
		return nil, apierror.Validation("El titulo y la descripcion son requeridos")
	}

	priority := model.DefaultPriority
	if req.Priority != "" {
		priority = model.Priority(req.Priority)
		if !priority.Valid() {
			return nil, apierror.Validation("Prioridad no valida")
		}
	}

	if err := validateUploads(files); err != nil {
		return nil, err
	}

	uploaded, err := s.uploadAll(ctx, files)
	if err != nil {
		return nil, err
	}

	inc := &model.Incident{
		Title:       title,
		Description: description,
		Office:      caller.Office,
		Name:        caller.Name,
		Email:       caller.Email,
		Priority:    priority,
		Status:      model.StatusPendiente,
		Files:       uploaded,
	}
	if err := s.repo.Create(ctx, inc); err != nil {
		s.cleanupUploads(ctx, uploaded)
		return nil, apierror.Internal(err)
	}

	if s.notifier != nil {
		s.notifier.EnqueueNotify(ctx, worker.NotifyPayload{
			Event:         "created",
			IncidentID:    inc.ID.String(),
			Title:         inc.Title,
			Office:        inc.Office,
			ReporterName:  inc.Name,
			ReporterEmail: inc.Email,
		})
	}
	return mapIncident(inc), nil
}

func (s *incidentService) Get(ctx context.Context, caller session.Identity, id uuid.UUID) (*dto.IncidentResponse, error) {
	inc, err := s.load(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	return mapIncident(inc), nil
}

func (s *incidentService) Update(ctx context.Context, caller session.Identity, id uuid.UUID, req dto.UpdateIncidentRequest) (*dto.IncidentResponse, error) {
	// The role-based field lock fires before anything else: a "user" may
	// never touch status, even on an incident that turns out not to exist.
	if req.HasStatus() && caller.Role == model.RoleUser {
		return nil, apierror.Forbidden("No tienes permiso para cambiar el estado de la incidencia")
	}

	inc, err := s.load(ctx, caller, id)
	if err != nil {
		return nil, err
	}

	fields := map[string]any{}
	if req.Title != nil {
		if strings.TrimSpace(*req.Title) == "" {
			return nil, apierror.Validation("El titulo no puede estar vacio")
		}
		fields["title"] = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		if strings.TrimSpace(*req.Description) == "" {
			return nil, apierror.Validation("La descripcion no puede estar vacia")
		}
		fields["description"] = strings.TrimSpace(*req.Description)
	}
	if req.Priority != nil {
		p := model.Priority(*req.Priority)
		if !p.Valid() {
			return nil, apierror.Validation("Prioridad no valida")
		}
		fields["priority"] = string(p)
	}

	resolved := false
	if req.HasStatus() {
		next := model.Status(*req.Status)
		if !next.Valid() {
			return nil, apierror.Validation("Estado no valido")
		}
		if !inc.Status.CanTransitionTo(next) {
			return nil, apierror.Validation(fmt.Sprintf(
				"Transicion de estado no permitida: %s a %s", inc.Status, next))
		}
		fields["status"] = string(next)
		resolved = next == model.StatusResuelto && inc.Status != model.StatusResuelto
	}

	if len(fields) == 0 {
		return mapIncident(inc), nil
	}

	if err := s.persist(ctx, inc, fields); err != nil {
		return nil, err
	}

	updated, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, apierror.Internal(err)
	}

	if resolved && s.notifier != nil {
		s.notifier.EnqueueNotify(ctx, worker.NotifyPayload{
			Event:         "resolved",
			IncidentID:    updated.ID.String(),
			Title:         updated.Title,
			Office:        updated.Office,
			ReporterName:  updated.Name,
			ReporterEmail: updated.Email,
		})
	}
	return mapIncident(updated), nil
}

func (s *incidentService) AddFiles(ctx context.Context, caller session.Identity, id uuid.UUID, files []UploadedFile) (*dto.IncidentResponse, error) {
	if len(files) == 0 {
		return nil, apierror.Validation("No se han proporcionado archivos")
	}
	if err := validateUploads(files); err != nil {
		return nil, err
	}

	inc, err := s.load(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	if len(inc.Files)+len(files) > storage.MaxFiles {
		return nil, apierror.Validation(fmt.Sprintf(
			"Una incidencia admite como maximo %d archivos", storage.MaxFiles))
	}

	uploaded, err := s.uploadAll(ctx, files)
	if err != nil {
		return nil, err
	}

	// Append only — existing descriptors are never replaced.
	merged := append(append([]model.Attachment{}, inc.Files...), uploaded...)
	if err := s.persist(ctx, inc, map[string]any{"files": toJSONSlice(merged)}); err != nil {
		s.cleanupUploads(ctx, uploaded)
		return nil, err
	}
	return s.Get(ctx, caller, id)
}

func (s *incidentService) RemoveFile(ctx context.Context, caller session.Identity, id uuid.UUID, publicID string) (*dto.IncidentResponse, error) {
	if strings.TrimSpace(publicID) == "" {
		return nil, apierror.Validation("public_id es requerido")
	}

	inc, err := s.load(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	idx := inc.FindFile(publicID)
	if idx < 0 {
		return nil, apierror.NotFound("Archivo no encontrado en la incidencia")
	}

	// Remote deletion must succeed before the local reference is dropped;
	// the reverse order would strand a live object with no reference left
	// to retry with.
	if err := s.store.Delete(ctx, publicID); err != nil {
		return nil, apierror.Store("Error al eliminar el archivo del almacen", err)
	}

	remaining := make([]model.Attachment, 0, len(inc.Files)-1)
	remaining = append(remaining, inc.Files[:idx]...)
	remaining = append(remaining, inc.Files[idx+1:]...)
	if err := s.persist(ctx, inc, map[string]any{"files": toJSONSlice(remaining)}); err != nil {
		return nil, err
	}
	return s.Get(ctx, caller, id)
}

func (s *incidentService) Delete(ctx context.Context, caller session.Identity, id uuid.UUID) error {
	inc, err := s.load(ctx, caller, id)
	if err != nil {
		return err
	}

	// Every attachment goes first. On the first failure the record stays
	// intact so the remaining references survive for a retry.
	for _, f := range inc.Files {
		if err := s.store.Delete(ctx, f.PublicID); err != nil {
			return apierror.Store(
				fmt.Sprintf("No se pudo eliminar el archivo %q del almacen", f.PublicID), err)
		}
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apierror.NotFound("Incidencia no encontrada")
		}
		return apierror.Internal(err)
	}
	return nil
}

// load fetches an incident and applies the visibility rule.
func (s *incidentService) load(ctx context.Context, caller session.Identity, id uuid.UUID) (*model.Incident, error) {
	inc, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierror.NotFound("Incidencia no encontrada")
		}
		return nil, apierror.Internal(err)
	}
	if !visibleTo(caller, inc) {
		return nil, apierror.Forbidden("No tienes acceso a incidencias de otra oficina")
	}
	return inc, nil
}

// persist writes a version-checked partial update, translating repository
// sentinels into the API error taxonomy.
func (s *incidentService) persist(ctx context.Context, inc *model.Incident, fields map[string]any) error {
	err := s.repo.UpdateFields(ctx, inc.ID, inc.Version, fields)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return apierror.NotFound("Incidencia no encontrada")
	case errors.Is(err, repository.ErrVersionConflict):
		return apierror.Conflict("La incidencia fue modificada por otra operacion")
	default:
		return apierror.Internal(err)
	}
}

// uploadAll pushes every file to the store. Any single failure aborts the
// whole batch; objects already uploaded are destroyed best-effort so the
// store does not accumulate unreferenced objects.
func (s *incidentService) uploadAll(ctx context.Context, files []UploadedFile) ([]model.Attachment, error) {
	uploaded := make([]model.Attachment, 0, len(files))
	for _, f := range files {
		att, err := s.store.Upload(ctx, f.Name, f.Content)
		if err != nil {
			s.cleanupUploads(ctx, uploaded)
			return nil, apierror.Store(
				fmt.Sprintf("Error al subir el archivo %q", f.Name), err)
		}
		uploaded = append(uploaded, att)
	}
	return uploaded, nil
}

func (s *incidentService) cleanupUploads(ctx context.Context, uploaded []model.Attachment) {
	for _, att := range uploaded {
		if err := s.store.Delete(ctx, att.PublicID); err != nil {
			log.Error().Err(err).Str("public_id", att.PublicID).
				Msg("incident_service: orphan cleanup failed")
		}
	}
}

func toJSONSlice(files []model.Attachment) datatypes.JSONSlice[model.Attachment] {
	return datatypes.NewJSONSlice(files)
}

func validateUploads(files []UploadedFile) error {
	if len(files) > storage.MaxFiles {
		return apierror.Validation(fmt.Sprintf("Maximo %d archivos por solicitud", storage.MaxFiles))
	}
	for _, f := range files {
		if !storage.AllowedExtension(f.Name) {
			return apierror.Validation(fmt.Sprintf("Tipo de archivo no permitido: %s", storage.Ext(f.Name)))
		}
		if len(f.Content) > storage.MaxFileSize {
			return apierror.Validation(fmt.Sprintf("El archivo %q supera los 10MB", f.Name))
		}
	}
	return nil
}
