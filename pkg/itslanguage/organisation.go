package itslanguage

import (
	"context"
	"net/http"
	"net/url"
)

// OrganisationService provides organisation operations.
type OrganisationService struct {
	client *Client
}

// newOrganisationService creates a new organisation service.
func newOrganisationService(client *Client) *OrganisationService {
	return &OrganisationService{client: client}
}

// Create creates an organisation. An empty ID lets the API generate one.
func (s *OrganisationService) Create(ctx context.Context, org *Organisation) (*Organisation, error) {
	if org == nil {
		return nil, &InvalidArgumentError{Name: "organisation"}
	}
	if err := org.Validate(); err != nil {
		return nil, err
	}

	req := struct {
		ID   *string `json:"id"`
		Name string  `json:"name"`
	}{
		Name: org.Name,
	}
	if org.ID != "" {
		req.ID = &org.ID
	}

	var resp Organisation
	if err := s.client.http.request(ctx, http.MethodPost, "/organisations", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Get returns an organisation by id.
func (s *OrganisationService) Get(ctx context.Context, id string) (*Organisation, error) {
	if id == "" {
		return nil, &MissingFieldError{Field: "organisationId"}
	}

	var resp Organisation
	if err := s.client.http.request(ctx, http.MethodGet, "/organisations/"+url.PathEscape(id), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// List returns all organisations visible to the credentials.
func (s *OrganisationService) List(ctx context.Context) ([]Organisation, error) {
	var resp []Organisation
	if err := s.client.http.request(ctx, http.MethodGet, "/organisations", nil, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}
