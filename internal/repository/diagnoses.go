package repository

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"clinicdesk/internal/models"
)

type DiagnosisRepository struct {
	client Doer
}

func NewDiagnosisRepository(client Doer) *DiagnosisRepository {
	return &DiagnosisRepository{client: client}
}

func (r *DiagnosisRepository) List(ctx context.Context) ([]models.Diagnosis, error) {
	var out []models.Diagnosis
	if err := r.client.Do(ctx, authed(http.MethodGet, "diagnoses/", nil), &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *DiagnosisRepository) ListByPatient(ctx context.Context, patientID string) ([]models.Diagnosis, error) {
	var out []models.Diagnosis
	if err := r.client.Do(ctx, authed(http.MethodGet, "diagnoses/patient/"+url.PathEscape(patientID), nil), &out); err != nil {
		return nil, err
	}
	return out, nil
}

type NewDiagnosis struct {
	PatientID     string
	DiagnosisName string
	Description   string
	DiagnosisDate time.Time
}

func (r *DiagnosisRepository) Create(ctx context.Context, in NewDiagnosis) (models.Diagnosis, error) {
	date := in.DiagnosisDate
	if date.IsZero() {
		date = time.Now()
	}
	body := models.Diagnosis{
		PatientID:     models.RefTo(in.PatientID),
		DiagnosisName: in.DiagnosisName,
		Description:   in.Description,
		DiagnosisDate: date.UTC(),
	}

	var created models.Diagnosis
	if err := r.client.Do(ctx, authed(http.MethodPost, "diagnoses/", body), &created); err != nil {
		return models.Diagnosis{}, err
	}
	return created, nil
}

// UpdateDescription is the only edit the backend accepts on a diagnosis.
func (r *DiagnosisRepository) UpdateDescription(ctx context.Context, id string, description string) (models.Diagnosis, error) {
	body := map[string]string{"description": description}

	var updated models.Diagnosis
	if err := r.client.Do(ctx, authed(http.MethodPut, "diagnoses/"+url.PathEscape(id), body), &updated); err != nil {
		return models.Diagnosis{}, err
	}
	return updated, nil
}
