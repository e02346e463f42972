package itslanguage

import (
	"context"
	"net/http"
	"net/url"
)

const choiceChallengesPath = "/challenges/choice"

// ChoiceChallengeService provides choice challenge operations.
type ChoiceChallengeService struct {
	client *Client
}

// newChoiceChallengeService creates a new choice challenge service.
func newChoiceChallengeService(client *Client) *ChoiceChallengeService {
	return &ChoiceChallengeService{client: client}
}

// Create creates a choice challenge.
func (s *ChoiceChallengeService) Create(ctx context.Context, challenge *ChoiceChallenge) (*ChoiceChallenge, error) {
	if challenge == nil {
		return nil, &InvalidArgumentError{Name: "challenge"}
	}
	if err := challenge.Validate(); err != nil {
		return nil, err
	}

	var resp ChoiceChallenge
	if err := s.client.http.request(ctx, http.MethodPost, choiceChallengesPath, challenge, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Get returns a choice challenge.
func (s *ChoiceChallengeService) Get(ctx context.Context, id string) (*ChoiceChallenge, error) {
	if id == "" {
		return nil, &MissingFieldError{Field: "challengeId"}
	}

	var resp ChoiceChallenge
	if err := s.client.http.request(ctx, http.MethodGet, choiceChallengesPath+"/"+url.PathEscape(id), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// List returns choice challenges matching filters. A nil filter lists all.
func (s *ChoiceChallengeService) List(ctx context.Context, filters url.Values) ([]ChoiceChallenge, error) {
	var resp []ChoiceChallenge
	if err := s.client.http.requestQuery(ctx, choiceChallengesPath, filters, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}
