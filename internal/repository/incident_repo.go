package repository

import (
	"context"
	"errors"

	"helpdesk/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrVersionConflict is returned when a version-checked write finds the row
// was mutated by a concurrent request. Callers may re-read and retry.
var ErrVersionConflict = errors.New("incident modified concurrently")

type IncidentRepository interface {
	Create(ctx context.Context, inc *model.Incident) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Incident, error)
	List(ctx context.Context) ([]model.Incident, error)
	ListByOffice(ctx context.Context, office string) ([]model.Incident, error)
	// UpdateFields applies a partial patch guarded by the optimistic-lock
	// version: the write only lands if the row still carries expectedVersion.
	UpdateFields(ctx context.Context, id uuid.UUID, expectedVersion int, fields map[string]any) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type incidentRepo struct{ db *gorm.DB }

func NewIncidentRepository(db *gorm.DB) IncidentRepository { return &incidentRepo{db: db} }

func (r *incidentRepo) Create(ctx context.Context, inc *model.Incident) error {
	return r.db.WithContext(ctx).Create(inc).Error
}

func (r *incidentRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Incident, error) {
	var inc model.Incident
	if err := r.db.WithContext(ctx).First(&inc, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &inc, nil
}

func (r *incidentRepo) List(ctx context.Context) ([]model.Incident, error) {
	var incidents []model.Incident
	err := r.db.WithContext(ctx).Order("created_at DESC").Find(&incidents).Error
	return incidents, err
}

func (r *incidentRepo) ListByOffice(ctx context.Context, office string) ([]model.Incident, error) {
	var incidents []model.Incident
	err := r.db.WithContext(ctx).
		Where("office = ?", office).
		Order("created_at DESC").
		Find(&incidents).Error
	return incidents, err
}

func (r *incidentRepo) UpdateFields(ctx context.Context, id uuid.UUID, expectedVersion int, fields map[string]any) error {
	fields["version"] = gorm.Expr("version + 1")
	res := r.db.WithContext(ctx).Model(&model.Incident{}).
		Where("id = ? AND version = ?", id, expectedVersion).
		Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		// Distinguish a vanished row from a concurrent writer.
		var count int64
		if err := r.db.WithContext(ctx).Model(&model.Incident{}).
			Where("id = ?", id).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return gorm.ErrRecordNotFound
		}
		return ErrVersionConflict
	}
	return nil
}

func (r *incidentRepo) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Delete(&model.Incident{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
