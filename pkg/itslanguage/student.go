package itslanguage

import (
	"context"
	"net/http"
	"net/url"
)

// StudentService provides student operations.
type StudentService struct {
	client *Client
}

// newStudentService creates a new student service.
func newStudentService(client *Client) *StudentService {
	return &StudentService{client: client}
}

func studentsPath(orgID string) string {
	return "/organisations/" + url.PathEscape(orgID) + "/students"
}

// Create creates a student in its organisation.
func (s *StudentService) Create(ctx context.Context, student *Student) (*Student, error) {
	if student == nil {
		return nil, &InvalidArgumentError{Name: "student"}
	}
	if err := student.Validate(); err != nil {
		return nil, err
	}

	var resp Student
	if err := s.client.http.request(ctx, http.MethodPost, studentsPath(student.OrganisationID), student, &resp); err != nil {
		return nil, err
	}
	resp.OrganisationID = student.OrganisationID
	return &resp, nil
}

// Get returns a student of an organisation.
func (s *StudentService) Get(ctx context.Context, orgID, id string) (*Student, error) {
	if orgID == "" {
		return nil, &MissingFieldError{Field: "organisationId"}
	}
	if id == "" {
		return nil, &MissingFieldError{Field: "studentId"}
	}

	var resp Student
	if err := s.client.http.request(ctx, http.MethodGet, studentsPath(orgID)+"/"+url.PathEscape(id), nil, &resp); err != nil {
		return nil, err
	}
	resp.OrganisationID = orgID
	return &resp, nil
}

// List returns all students of an organisation.
func (s *StudentService) List(ctx context.Context, orgID string) ([]Student, error) {
	if orgID == "" {
		return nil, &MissingFieldError{Field: "organisationId"}
	}

	var resp []Student
	if err := s.client.http.request(ctx, http.MethodGet, studentsPath(orgID), nil, &resp); err != nil {
		return nil, err
	}
	for i := range resp {
		resp[i].OrganisationID = orgID
	}
	return resp, nil
}
