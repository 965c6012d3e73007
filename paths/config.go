package paths

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/golang/glog"
	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
)

// ConfigFileName is the name of the configuration file inside Home.
const ConfigFileName = "ja2-asset-tool.toml"

// Config is the persistent tool configuration. Command line flags override
// it; see SetupConfigFlags.
type Config struct {
	// GameDir is the vanilla game installation, containing the Data
	// directory.
	GameDir string `toml:"game_dir"`
	// Mods are enabled mod names, highest priority first. Each lives in
	// mods/<name>/data below Home.
	Mods []string `toml:"mods"`
	// OutputDir receives converted assets.
	OutputDir string `toml:"output_dir"`
	// Jobs bounds how many archive members are converted concurrently.
	Jobs int `toml:"jobs"`

	home string
}

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig(home string) *Config {
	return &Config{
		OutputDir: "data",
		Jobs:      runtime.NumCPU(),
		home:      home,
	}
}

// LoadConfig reads ConfigFileName from home. A missing file yields the
// defaults; unknown keys are an error.
func LoadConfig(home string) (*Config, error) {
	cfg := DefaultConfig(home)
	f, err := os.Open(filepath.Join(home, ConfigFileName))
	if errors.Is(err, os.ErrNotExist) {
		glog.V(1).Infof("no %s in %q, using defaults", ConfigFileName, home)
		return cfg, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "opening config")
	}
	defer f.Close()

	dec := toml.NewDecoder(f)
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		return nil, errors.Wrapf(err, "parsing %s", f.Name())
	}
	if cfg.Jobs < 1 {
		cfg.Jobs = 1
	}
	return cfg, nil
}

// Save writes the configuration to ConfigFileName in its home directory.
func (c *Config) Save() error {
	if err := os.MkdirAll(c.home, 0o755); err != nil {
		return errors.Wrap(err, "creating home")
	}
	b, err := toml.Marshal(c)
	if err != nil {
		return errors.Wrap(err, "encoding config")
	}
	return errors.Wrap(os.WriteFile(filepath.Join(c.home, ConfigFileName), b, 0o644), "writing config")
}

// Home returns the directory the configuration was loaded from.
func (c *Config) Home() string {
	return c.home
}

// DataDir locates the game's Data directory.
func (c *Config) DataDir() (string, error) {
	if c.GameDir == "" {
		return "", errors.New("game_dir is not configured")
	}
	return Find(c.GameDir, "data")
}

// ModDirs returns the data directories of enabled mods that exist, in
// priority order.
func (c *Config) ModDirs() []string {
	var dirs []string
	for _, m := range c.Mods {
		d, err := Find(c.home, filepath.Join("mods", m, "data"))
		if err != nil {
			glog.Warningf("mod %q has no data directory: %v", m, err)
			continue
		}
		dirs = append(dirs, d)
	}
	return dirs
}
