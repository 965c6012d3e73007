package paths

import (
	"flag"
	"strings"
)

// SetupConfigFlags registers --game_dir, --output_dir, --jobs and --mods on
// fs, defaulting to the values in cfg. Parsing fs then overrides cfg in
// place.
func SetupConfigFlags(fs *flag.FlagSet, cfg *Config) {
	fs.StringVar(&cfg.GameDir, "game_dir", cfg.GameDir, "Path to the game installation")
	fs.StringVar(&cfg.OutputDir, "output_dir", cfg.OutputDir, "Directory converted assets are written to")
	fs.IntVar(&cfg.Jobs, "jobs", cfg.Jobs, "Archive members converted concurrently")
	fs.Var((*modsFlag)(&cfg.Mods), "mods", "Comma separated list of enabled mods, highest priority first")
}

type modsFlag []string

func (m *modsFlag) String() string {
	if m == nil {
		return ""
	}
	return strings.Join(*m, ",")
}

func (m *modsFlag) Set(s string) error {
	*m = nil
	for _, mod := range strings.Split(s, ",") {
		if mod = strings.TrimSpace(mod); mod != "" {
			*m = append(*m, mod)
		}
	}
	return nil
}
