package itslanguage

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// SpeechRecordingService provides speech recording operations.
type SpeechRecordingService struct {
	client *Client
}

// newSpeechRecordingService creates a new speech recording service.
func newSpeechRecordingService(client *Client) *SpeechRecordingService {
	return &SpeechRecordingService{client: client}
}

// speechRecordingResponse is the wire form of a recording.
type speechRecordingResponse struct {
	ID        string    `json:"id"`
	Created   time.Time `json:"created"`
	Updated   time.Time `json:"updated"`
	AudioURL  string    `json:"audioUrl"`
	StudentID string    `json:"studentId"`
}

func (s *SpeechRecordingService) fromResponse(orgID, challengeID string, r *speechRecordingResponse) SpeechRecording {
	return SpeechRecording{
		ID:          r.ID,
		ChallengeID: challengeID,
		Student:     Student{ID: r.StudentID, OrganisationID: orgID},
		AudioURL:    s.client.withAccessToken(r.AudioURL),
		Created:     r.Created,
		Updated:     r.Updated,
	}
}

func recordingsPath(challengeID string) string {
	return "/challenges/speech/" + url.PathEscape(challengeID) + "/recordings"
}

// Get returns a recording of a speech challenge.
func (s *SpeechRecordingService) Get(ctx context.Context, orgID, challengeID, id string) (*SpeechRecording, error) {
	if orgID == "" {
		return nil, &MissingFieldError{Field: "organisationId"}
	}
	if challengeID == "" {
		return nil, &MissingFieldError{Field: "challengeId"}
	}
	if id == "" {
		return nil, &MissingFieldError{Field: "recordingId"}
	}

	var resp speechRecordingResponse
	if err := s.client.http.request(ctx, http.MethodGet, recordingsPath(challengeID)+"/"+url.PathEscape(id), nil, &resp); err != nil {
		return nil, err
	}
	rec := s.fromResponse(orgID, challengeID, &resp)
	return &rec, nil
}

// List returns all recordings of a speech challenge.
func (s *SpeechRecordingService) List(ctx context.Context, orgID, challengeID string) ([]SpeechRecording, error) {
	if orgID == "" {
		return nil, &MissingFieldError{Field: "organisationId"}
	}
	if challengeID == "" {
		return nil, &MissingFieldError{Field: "challengeId"}
	}

	var resp []speechRecordingResponse
	if err := s.client.http.request(ctx, http.MethodGet, recordingsPath(challengeID), nil, &resp); err != nil {
		return nil, err
	}
	recs := make([]SpeechRecording, len(resp))
	for i := range resp {
		recs[i] = s.fromResponse(orgID, challengeID, &resp[i])
	}
	return recs, nil
}

// DownloadAudio streams the audio of a recording. The caller must close the
// returned reader.
func (s *SpeechRecordingService) DownloadAudio(ctx context.Context, rec *SpeechRecording) (io.ReadCloser, error) {
	if rec == nil {
		return nil, &InvalidArgumentError{Name: "recording"}
	}
	if rec.AudioURL == "" {
		return nil, &MissingFieldError{Field: "recording.audioUrl"}
	}
	return s.client.http.download(ctx, rec.AudioURL)
}

// StartStreaming streams a new recording for challenge from rec over the
// client's RPC channel. See RecordingStreamer.StartStreaming.
func (s *SpeechRecordingService) StartStreaming(ctx context.Context, challenge *SpeechChallenge, rec Recorder) (*RecordingStream, error) {
	return s.client.streamer.StartStreaming(ctx, challenge, rec)
}

// withAccessToken appends the OAuth2 token to an audio URL so it can be
// fetched without an Authorization header.
func (c *Client) withAccessToken(audioURL string) string {
	if audioURL == "" || c.config.oauth2Token == "" {
		return audioURL
	}
	sep := "?"
	if strings.Contains(audioURL, "?") {
		sep = "&"
	}
	return audioURL + sep + "access_token=" + url.QueryEscape(c.config.oauth2Token)
}
