package itslanguage

import (
	"context"
	"net/http"
)

// BasicAuthService provides basic auth credential operations.
type BasicAuthService struct {
	client *Client
}

// newBasicAuthService creates a new basic auth service.
func newBasicAuthService(client *Client) *BasicAuthService {
	return &BasicAuthService{client: client}
}

// Create registers basic auth credentials for a tenant.
//
// Principal and credentials are generated by the API when empty. The returned
// value keeps the local credentials unless the API supplied new ones.
func (s *BasicAuthService) Create(ctx context.Context, auth *BasicAuth) (*BasicAuth, error) {
	if auth == nil {
		return nil, &InvalidArgumentError{Name: "basicAuth"}
	}
	if err := auth.Validate(); err != nil {
		return nil, err
	}

	req := struct {
		TenantID    string `json:"tenantId"`
		Principal   string `json:"principal,omitempty"`
		Credentials string `json:"credentials,omitempty"`
	}{
		TenantID:    auth.TenantID,
		Principal:   auth.Principal,
		Credentials: auth.Credentials,
	}

	var resp BasicAuth
	if err := s.client.http.request(ctx, http.MethodPost, "/basicauths", req, &resp); err != nil {
		return nil, err
	}

	out := *auth
	out.Principal = resp.Principal
	out.Created = resp.Created
	out.Updated = resp.Updated
	if resp.Credentials != "" {
		out.Credentials = resp.Credentials
	}
	return &out, nil
}
