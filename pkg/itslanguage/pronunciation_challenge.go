package itslanguage

import (
	"context"
	"io"
	"net/http"
	"net/url"
)

const pronunciationChallengesPath = "/challenges/pronunciation"

// PronunciationChallengeService provides pronunciation challenge operations
// in the organisation derived from the OAuth2 scope.
type PronunciationChallengeService struct {
	client *Client
}

// newPronunciationChallengeService creates a new pronunciation challenge service.
func newPronunciationChallengeService(client *Client) *PronunciationChallengeService {
	return &PronunciationChallengeService{client: client}
}

// Create creates a pronunciation challenge with its reference audio.
func (s *PronunciationChallengeService) Create(ctx context.Context, challenge *PronunciationChallenge, audio io.Reader) (*PronunciationChallenge, error) {
	if challenge == nil {
		return nil, &InvalidArgumentError{Name: "challenge"}
	}
	if audio == nil {
		return nil, &InvalidArgumentError{Name: "audio"}
	}
	if err := challenge.Validate(); err != nil {
		return nil, err
	}

	fields := map[string]string{
		"id":            challenge.ID,
		"transcription": challenge.Transcription,
	}

	var resp PronunciationChallenge
	err := s.client.http.uploadFile(ctx, pronunciationChallengesPath,
		"referenceAudio", "referenceAudio.wav", audio, fields, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// Get returns a pronunciation challenge.
func (s *PronunciationChallengeService) Get(ctx context.Context, id string) (*PronunciationChallenge, error) {
	if id == "" {
		return nil, &MissingFieldError{Field: "challengeId"}
	}

	var resp PronunciationChallenge
	if err := s.client.http.request(ctx, http.MethodGet, pronunciationChallengesPath+"/"+url.PathEscape(id), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// List returns all pronunciation challenges.
func (s *PronunciationChallengeService) List(ctx context.Context) ([]PronunciationChallenge, error) {
	var resp []PronunciationChallenge
	if err := s.client.http.request(ctx, http.MethodGet, pronunciationChallengesPath, nil, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// Delete deletes a pronunciation challenge.
func (s *PronunciationChallengeService) Delete(ctx context.Context, id string) error {
	if id == "" {
		return &MissingFieldError{Field: "challengeId"}
	}
	return s.client.http.request(ctx, http.MethodDelete, pronunciationChallengesPath+"/"+url.PathEscape(id), nil, nil)
}
