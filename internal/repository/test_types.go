package repository

import (
	"context"
	"net/http"
	"net/url"

	"clinicdesk/internal/models"
)

type TestTypeRepository struct {
	client Doer
}

func NewTestTypeRepository(client Doer) *TestTypeRepository {
	return &TestTypeRepository{client: client}
}

func (r *TestTypeRepository) List(ctx context.Context) ([]models.TestType, error) {
	var types []models.TestType
	if err := r.client.Do(ctx, authed(http.MethodGet, "test-types/", nil), &types); err != nil {
		return nil, err
	}
	return types, nil
}

func (r *TestTypeRepository) Create(ctx context.Context, name string) (models.TestType, error) {
	var created models.TestType
	if err := r.client.Do(ctx, authed(http.MethodPost, "test-types/", models.TestType{Name: name}), &created); err != nil {
		return models.TestType{}, err
	}
	return created, nil
}

func (r *TestTypeRepository) Update(ctx context.Context, id string, name string) (models.TestType, error) {
	var updated models.TestType
	if err := r.client.Do(ctx, authed(http.MethodPut, "test-types/"+url.PathEscape(id), models.TestType{Name: name}), &updated); err != nil {
		return models.TestType{}, err
	}
	return updated, nil
}

func (r *TestTypeRepository) Delete(ctx context.Context, id string) error {
	return r.client.Do(ctx, authed(http.MethodDelete, "test-types/"+url.PathEscape(id), nil), nil)
}
