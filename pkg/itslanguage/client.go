package itslanguage

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/joggienl/itslanguage-go/pkg/wamp"
)

const (
	// DefaultAPIURL is the default ITSLanguage REST API base URL.
	DefaultAPIURL = "https://api.itslanguage.nl"

	// DefaultWSURL is the default ITSLanguage WAMP router URL.
	DefaultWSURL = "wss://ws.itslanguage.nl:443/ws"

	// DefaultTimeout is the default request timeout.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxRetries is the default maximum number of retries.
	DefaultMaxRetries = 2

	// DefaultRealm is the WAMP realm joined by Connect.
	DefaultRealm = "default"
)

// Client is the ITSLanguage API client.
type Client struct {
	// Organisations provides organisation operations.
	Organisations *OrganisationService

	// BasicAuths provides basic auth credential operations.
	BasicAuths *BasicAuthService

	// Students provides student operations.
	Students *StudentService

	// SpeechChallenges provides speech challenge operations.
	SpeechChallenges *SpeechChallengeService

	// SpeechRecordings provides speech recording operations, including
	// streaming a new recording over the RPC channel.
	SpeechRecordings *SpeechRecordingService

	// PronunciationChallenges provides pronunciation challenge operations.
	PronunciationChallenges *PronunciationChallengeService

	// ChoiceChallenges provides choice challenge operations.
	ChoiceChallenges *ChoiceChallengeService

	config   *clientConfig
	http     *httpClient
	streamer *RecordingStreamer

	mu      sync.Mutex
	session *wamp.Session
}

// clientConfig holds the client configuration.
type clientConfig struct {
	apiURL       string
	wsURL        string
	oauth2Token  string
	principal    string
	credentials  string
	httpClient   *http.Client
	timeout      time.Duration
	maxRetries   int
	logger       *slog.Logger
	channel      RPCChannel
	serializer   wamp.Serializer
	readyTimeout time.Duration
}

// Option is a function that configures the client.
type Option func(*clientConfig)

// WithAPIURL sets a custom REST API base URL.
func WithAPIURL(url string) Option {
	return func(c *clientConfig) {
		c.apiURL = url
	}
}

// WithWSURL sets a custom WAMP router URL used by Connect.
func WithWSURL(url string) Option {
	return func(c *clientConfig) {
		c.wsURL = url
	}
}

// WithOAuth2Token authenticates REST requests with a bearer token. The token
// is also the WAMP ticket and is appended to audio download URLs.
func WithOAuth2Token(token string) Option {
	return func(c *clientConfig) {
		c.oauth2Token = token
	}
}

// WithBasicAuth authenticates REST requests with HTTP basic auth.
// It is ignored when an OAuth2 token is set.
func WithBasicAuth(principal, credentials string) Option {
	return func(c *clientConfig) {
		c.principal = principal
		c.credentials = credentials
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *clientConfig) {
		c.httpClient = client
	}
}

// WithTimeout sets the request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *clientConfig) {
		c.timeout = timeout
	}
}

// WithRetry sets the maximum number of retries for transient errors.
func WithRetry(maxRetries int) Option {
	return func(c *clientConfig) {
		c.maxRetries = maxRetries
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *clientConfig) {
		c.logger = logger
	}
}

// WithRPCChannel installs an already connected RPC channel, so Connect is
// not needed for streaming.
func WithRPCChannel(ch RPCChannel) Option {
	return func(c *clientConfig) {
		c.channel = ch
	}
}

// WithSerializer selects the WAMP serializer used by Connect.
func WithSerializer(s wamp.Serializer) Option {
	return func(c *clientConfig) {
		c.serializer = s
	}
}

// WithReadyTimeout bounds how long a recording stream waits for the recorder
// to become ready. Zero waits until the context is done.
func WithReadyTimeout(d time.Duration) Option {
	return func(c *clientConfig) {
		c.readyTimeout = d
	}
}

// NewClient creates a new ITSLanguage API client.
//
// Example:
//
//	client := itslanguage.NewClient(itslanguage.WithOAuth2Token(token))
//	org, err := client.Organisations.Get(ctx, "fb")
func NewClient(opts ...Option) *Client {
	cfg := &clientConfig{
		apiURL:     DefaultAPIURL,
		wsURL:      DefaultWSURL,
		timeout:    DefaultTimeout,
		maxRetries: DefaultMaxRetries,
	}

	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.logger == nil {
		cfg.logger = slog.Default()
	}

	c := &Client{
		config: cfg,
		http:   newHTTPClient(cfg),
		streamer: NewRecordingStreamer(cfg.channel, &StreamerConfig{
			ReadyTimeout: cfg.readyTimeout,
			Logger:       cfg.logger,
		}),
	}

	c.Organisations = newOrganisationService(c)
	c.BasicAuths = newBasicAuthService(c)
	c.Students = newStudentService(c)
	c.SpeechChallenges = newSpeechChallengeService(c)
	c.SpeechRecordings = newSpeechRecordingService(c)
	c.PronunciationChallenges = newPronunciationChallengeService(c)
	c.ChoiceChallenges = newChoiceChallengeService(c)

	return c
}

// APIURL returns the configured REST API base URL.
func (c *Client) APIURL() string {
	return c.config.apiURL
}

// WSURL returns the configured WAMP router URL.
func (c *Client) WSURL() string {
	return c.config.wsURL
}

// SessionSlot returns the recording session slot of this connection.
func (c *Client) SessionSlot() *SessionSlot {
	return c.streamer.Slot()
}

// Connect opens the WAMP session used for streaming recordings.
// It is a no-op when already connected.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session != nil && c.session.IsOpen() {
		return nil
	}

	session, err := wamp.Dial(ctx, c.config.wsURL, &wamp.Config{
		Realm:      DefaultRealm,
		Ticket:     c.config.oauth2Token,
		Serializer: c.config.serializer,
		Logger:     c.config.logger,
	})
	if err != nil {
		return &TransportError{Message: "failed to connect to " + c.config.wsURL, Err: err}
	}

	c.config.logger.Info("itslanguage: connected", "url", c.config.wsURL, "session", session.ID())
	c.session = session
	c.streamer.SetChannel(NewWAMPChannel(session))
	return nil
}

// Close closes the WAMP session opened by Connect.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session == nil {
		return nil
	}
	err := c.session.Close()
	c.session = nil
	c.streamer.SetChannel(nil)
	return err
}
