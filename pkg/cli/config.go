package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
)

const (
	// DefaultBaseDir is the base configuration directory name
	DefaultBaseDir = ".itslanguage"
	// DefaultConfigFile is the default configuration filename
	DefaultConfigFile = "config.yaml"
)

// Config represents the main configuration structure for a CLI app
type Config struct {
	// AppName is the application name (e.g., "its")
	AppName string `yaml:"-"`

	// CurrentContext is the name of the currently active context
	CurrentContext string `yaml:"current_context,omitempty"`

	// Contexts is a map of context name to context configuration
	Contexts map[string]*Context `yaml:"contexts,omitempty"`

	configPath string
}

// Context is one ITSLanguage environment: where the API lives and how to
// authenticate against it.
type Context struct {
	Name string `yaml:"name" json:"name"`

	// APIURL is the REST API base URL (optional, uses default if empty)
	APIURL string `yaml:"api_url,omitempty" json:"api_url,omitempty"`

	// WSURL is the WAMP websocket URL (optional, uses default if empty)
	WSURL string `yaml:"ws_url,omitempty" json:"ws_url,omitempty"`

	// OAuth2Token is the bearer token. It is also the WAMP ticket.
	OAuth2Token string `yaml:"oauth2_token,omitempty" json:"oauth2_token,omitempty"`

	// BasicAuth is used for administrative calls when no token is set.
	BasicAuth *BasicAuthCredentials `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`

	// Timeout is the request timeout in seconds (optional)
	Timeout int `yaml:"timeout,omitempty" json:"timeout,omitempty"`

	// MaxRetries is the maximum number of retries (optional)
	MaxRetries int `yaml:"max_retries,omitempty" json:"max_retries,omitempty"`

	// ReadyTimeout bounds the wait for the recorder in seconds (optional,
	// unbounded if zero)
	ReadyTimeout int `yaml:"ready_timeout,omitempty" json:"ready_timeout,omitempty"`

	// HistoryDir overrides where streamed recordings are indexed
	HistoryDir string `yaml:"history_dir,omitempty" json:"history_dir,omitempty"`
}

// BasicAuthCredentials are the principal and credentials of a basic auth
// account.
type BasicAuthCredentials struct {
	Principal   string `yaml:"principal" json:"principal"`
	Credentials string `yaml:"credentials" json:"credentials"`
}

// LoadConfig loads or creates configuration for the specified app
func LoadConfig(appName string) (*Config, error) {
	return LoadConfigWithPath(appName, "")
}

// LoadConfigWithPath loads configuration from a custom path
func LoadConfigWithPath(appName, customPath string) (*Config, error) {
	configPath := customPath
	if configPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		configPath = filepath.Join(home, DefaultBaseDir, appName, DefaultConfigFile)
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	cfg := &Config{
		AppName:    appName,
		Contexts:   make(map[string]*Context),
		configPath: configPath,
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, cfg.Save()
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if cfg.Contexts == nil {
		cfg.Contexts = make(map[string]*Context)
	}
	cfg.AppName = appName
	cfg.configPath = configPath

	return cfg, nil
}

// Save saves the configuration to disk. The file holds credentials and is
// written with mode 0600.
func (c *Config) Save() error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(c.configPath, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Path returns the config file path
func (c *Config) Path() string {
	return c.configPath
}

// Dir returns the config directory path
func (c *Config) Dir() string {
	return filepath.Dir(c.configPath)
}

// AddContext adds or replaces a context. The first context added becomes
// the current one.
func (c *Config) AddContext(name string, ctx *Context) error {
	ctx.Name = name
	c.Contexts[name] = ctx
	if c.CurrentContext == "" {
		c.CurrentContext = name
	}
	return c.Save()
}

// DeleteContext removes a context
func (c *Config) DeleteContext(name string) error {
	if _, ok := c.Contexts[name]; !ok {
		return fmt.Errorf("context %q not found", name)
	}
	delete(c.Contexts, name)
	if c.CurrentContext == name {
		c.CurrentContext = ""
	}
	return c.Save()
}

// UseContext sets the current context
func (c *Config) UseContext(name string) error {
	if _, ok := c.Contexts[name]; !ok {
		return fmt.Errorf("context %q not found", name)
	}
	c.CurrentContext = name
	return c.Save()
}

// GetContext returns a specific context
func (c *Config) GetContext(name string) (*Context, error) {
	ctx, ok := c.Contexts[name]
	if !ok {
		return nil, fmt.Errorf("context %q not found", name)
	}
	return ctx, nil
}

// GetCurrentContext returns the current context
func (c *Config) GetCurrentContext() (*Context, error) {
	if c.CurrentContext == "" {
		return nil, fmt.Errorf("no current context set")
	}
	return c.GetContext(c.CurrentContext)
}

// ResolveContext returns the context by name, or current context if name is empty
func (c *Config) ResolveContext(name string) (*Context, error) {
	if name == "" {
		return c.GetCurrentContext()
	}
	return c.GetContext(name)
}

// ListContexts returns all context names in sorted order
func (c *Config) ListContexts() []string {
	names := make([]string, 0, len(c.Contexts))
	for name := range c.Contexts {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// TimeoutDuration returns Timeout as a duration, zero if unset.
func (ctx *Context) TimeoutDuration() time.Duration {
	return time.Duration(ctx.Timeout) * time.Second
}

// ReadyTimeoutDuration returns ReadyTimeout as a duration, zero if unset.
func (ctx *Context) ReadyTimeoutDuration() time.Duration {
	return time.Duration(ctx.ReadyTimeout) * time.Second
}

// Masked returns a copy of ctx with secrets masked for display.
func (ctx *Context) Masked() *Context {
	cp := *ctx
	cp.OAuth2Token = MaskSecret(ctx.OAuth2Token)
	if ctx.BasicAuth != nil {
		cp.BasicAuth = &BasicAuthCredentials{
			Principal:   ctx.BasicAuth.Principal,
			Credentials: MaskSecret(ctx.BasicAuth.Credentials),
		}
	}
	return &cp
}

// MaskSecret masks a token or password for display
func MaskSecret(s string) string {
	if len(s) <= 8 {
		return strings.Repeat("*", len(s))
	}
	return s[:4] + strings.Repeat("*", len(s)-8) + s[len(s)-4:]
}
