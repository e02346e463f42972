package cli

import (
	"os"
	"path/filepath"
)

// Paths provides access to the ~/.itslanguage directory structure
type Paths struct {
	AppName string
	HomeDir string
}

// NewPaths creates a new Paths instance for the given app
func NewPaths(appName string) (*Paths, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}
	return &Paths{
		AppName: appName,
		HomeDir: home,
	}, nil
}

// BaseDir returns the base directory (~/.itslanguage)
func (p *Paths) BaseDir() string {
	return filepath.Join(p.HomeDir, DefaultBaseDir)
}

// AppDir returns the app-specific directory (~/.itslanguage/<app>)
func (p *Paths) AppDir() string {
	return filepath.Join(p.BaseDir(), p.AppName)
}

// ConfigFile returns the config file path (~/.itslanguage/<app>/config.yaml)
func (p *Paths) ConfigFile() string {
	return filepath.Join(p.AppDir(), DefaultConfigFile)
}

// DataDir returns the data directory (~/.itslanguage/<app>/data)
func (p *Paths) DataDir() string {
	return filepath.Join(p.AppDir(), "data")
}

// HistoryDir returns the recording history database directory
// (~/.itslanguage/<app>/data/history)
func (p *Paths) HistoryDir() string {
	return filepath.Join(p.DataDir(), "history")
}

// EnsureHistoryDir creates the history directory if it doesn't exist
func (p *Paths) EnsureHistoryDir() error {
	return os.MkdirAll(p.HistoryDir(), 0o755)
}
