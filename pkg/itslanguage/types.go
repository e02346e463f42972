package itslanguage

import "time"

// Organisation is a tenant-scoped group of students and challenges.
type Organisation struct {
	ID      string    `json:"id"`
	Name    string    `json:"name" validate:"required"`
	Created time.Time `json:"created,omitzero"`
	Updated time.Time `json:"updated,omitzero"`
}

// BasicAuth is a principal/credentials pair for a tenant.
// Credentials are generated by the API when left empty.
type BasicAuth struct {
	TenantID    string    `json:"tenantId" validate:"required"`
	Principal   string    `json:"principal,omitempty"`
	Credentials string    `json:"credentials,omitempty"`
	Created     time.Time `json:"created,omitzero"`
	Updated     time.Time `json:"updated,omitzero"`
}

// Student belongs to an organisation.
type Student struct {
	ID             string    `json:"id,omitempty"`
	OrganisationID string    `json:"organisationId" validate:"required"`
	FirstName      string    `json:"firstName,omitempty"`
	LastName       string    `json:"lastName,omitempty"`
	Gender         string    `json:"gender,omitempty" validate:"omitempty,oneof=male female"`
	BirthYear      int       `json:"birthYear,omitempty" validate:"omitempty,gte=1900"`
	Created        time.Time `json:"created,omitzero"`
	Updated        time.Time `json:"updated,omitzero"`
}

// SpeechChallenge is a prompt students record an answer to.
type SpeechChallenge struct {
	ID                string    `json:"id,omitempty"`
	OrganisationID    string    `json:"organisationId" validate:"required"`
	Topic             string    `json:"topic,omitempty"`
	ReferenceAudioURL string    `json:"referenceAudioUrl,omitempty"`
	Created           time.Time `json:"created,omitzero"`
	Updated           time.Time `json:"updated,omitzero"`
}

// SpeechRecording is a student's recorded answer to a SpeechChallenge.
type SpeechRecording struct {
	ID string `json:"id"`

	// ChallengeID is the id of the speech challenge recorded against.
	ChallengeID string `json:"challenge"`

	// Student who made the recording. When streaming, only OrganisationID
	// is known.
	Student Student `json:"student"`

	AudioURL string    `json:"audioUrl,omitempty"`
	Created  time.Time `json:"created,omitzero"`
	Updated  time.Time `json:"updated,omitzero"`
}

// PronunciationChallenge is a reference transcription with reference audio.
type PronunciationChallenge struct {
	ID                string    `json:"id,omitempty"`
	Transcription     string    `json:"transcription" validate:"required"`
	ReferenceAudioURL string    `json:"referenceAudioUrl,omitempty"`
	Status            string    `json:"status,omitempty"`
	Created           time.Time `json:"created,omitzero"`
	Updated           time.Time `json:"updated,omitzero"`
}

// ChoiceChallenge is a question with a fixed set of spoken answers.
type ChoiceChallenge struct {
	ID       string    `json:"id,omitempty"`
	Question string    `json:"question,omitempty"`
	Choices  []string  `json:"choices" validate:"required,min=1,dive,required"`
	Status   string    `json:"status,omitempty"`
	Created  time.Time `json:"created,omitzero"`
	Updated  time.Time `json:"updated,omitzero"`
}

// AudioParameters describes the PCM layout of the streamed audio.
type AudioParameters struct {
	Channels    int `json:"channels"`
	SampleWidth int `json:"sampleWidth"`
	SampleRate  int `json:"sampleRate"`
}

// AudioSpec is reported by a Recorder and forwarded verbatim to init_audio.
type AudioSpec struct {
	AudioFormat     string          `json:"audioFormat"`
	AudioParameters AudioParameters `json:"audioParameters"`
}
