package repository

import (
	"context"
	"net/http"
	"net/url"

	"clinicdesk/internal/models"
)

type PatientRepository struct {
	client Doer
}

func NewPatientRepository(client Doer) *PatientRepository {
	return &PatientRepository{client: client}
}

func (r *PatientRepository) List(ctx context.Context) ([]models.Patient, error) {
	var patients []models.Patient
	if err := r.client.Do(ctx, authed(http.MethodGet, "patients/", nil), &patients); err != nil {
		return nil, err
	}
	return patients, nil
}

func (r *PatientRepository) Create(ctx context.Context, patient models.Patient) (models.Patient, error) {
	var created models.Patient
	if err := r.client.Do(ctx, authed(http.MethodPost, "patients/", patient), &created); err != nil {
		return models.Patient{}, err
	}
	return created, nil
}

func (r *PatientRepository) Get(ctx context.Context, id string) (models.Patient, error) {
	var patient models.Patient
	if err := r.client.Do(ctx, authed(http.MethodGet, "patients/"+url.PathEscape(id), nil), &patient); err != nil {
		return models.Patient{}, err
	}
	return patient, nil
}

// SearchByPhone matches on the digits the backend stores; the phone is sent as typed.
func (r *PatientRepository) SearchByPhone(ctx context.Context, phone string) ([]models.Patient, error) {
	var patients []models.Patient
	if err := r.client.Do(ctx, authed(http.MethodGet, "patients/search/"+url.PathEscape(phone), nil), &patients); err != nil {
		return nil, err
	}
	return patients, nil
}
