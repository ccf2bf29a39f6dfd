// Package repository is the data access layer: typed clients for the backend's clinic
// resources. Every call carries the stored bearer token.
package repository

import (
	"context"

	"clinicdesk/internal/api"
)

// Doer is the slice of api.Client the repositories need.
type Doer interface {
	Do(ctx context.Context, req api.Request, out any) error
	Fetch(ctx context.Context, req api.Request) (api.Response, error)
}

func authed(method, path string, body any) api.Request {
	return api.Request{Method: method, Path: path, Body: body, Auth: true}
}
