package itslanguage

import (
	"context"
	"io"
	"net/http"
	"net/url"
)

// SpeechChallengeService provides speech challenge operations.
type SpeechChallengeService struct {
	client *Client
}

// newSpeechChallengeService creates a new speech challenge service.
func newSpeechChallengeService(client *Client) *SpeechChallengeService {
	return &SpeechChallengeService{client: client}
}

func speechChallengesPath(orgID string) string {
	return "/organisations/" + url.PathEscape(orgID) + "/challenges/speech"
}

// Create creates a speech challenge. referenceAudio is optional.
func (s *SpeechChallengeService) Create(ctx context.Context, challenge *SpeechChallenge, referenceAudio io.Reader) (*SpeechChallenge, error) {
	if challenge == nil {
		return nil, &InvalidArgumentError{Name: "challenge"}
	}
	if err := challenge.Validate(); err != nil {
		return nil, err
	}

	fields := map[string]string{
		"id":    challenge.ID,
		"topic": challenge.Topic,
	}

	var resp SpeechChallenge
	err := s.client.http.uploadFile(ctx, speechChallengesPath(challenge.OrganisationID),
		"referenceAudio", "referenceAudio.wav", referenceAudio, fields, &resp)
	if err != nil {
		return nil, err
	}
	resp.OrganisationID = challenge.OrganisationID
	return &resp, nil
}

// Get returns a speech challenge of an organisation.
func (s *SpeechChallengeService) Get(ctx context.Context, orgID, id string) (*SpeechChallenge, error) {
	if orgID == "" {
		return nil, &MissingFieldError{Field: "organisationId"}
	}
	if id == "" {
		return nil, &MissingFieldError{Field: "challengeId"}
	}

	var resp SpeechChallenge
	if err := s.client.http.request(ctx, http.MethodGet, speechChallengesPath(orgID)+"/"+url.PathEscape(id), nil, &resp); err != nil {
		return nil, err
	}
	resp.OrganisationID = orgID
	return &resp, nil
}

// List returns all speech challenges of an organisation.
func (s *SpeechChallengeService) List(ctx context.Context, orgID string) ([]SpeechChallenge, error) {
	if orgID == "" {
		return nil, &MissingFieldError{Field: "organisationId"}
	}

	var resp []SpeechChallenge
	if err := s.client.http.request(ctx, http.MethodGet, speechChallengesPath(orgID), nil, &resp); err != nil {
		return nil, err
	}
	for i := range resp {
		resp[i].OrganisationID = orgID
	}
	return resp, nil
}
