package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// ConfigFileName is the name of the project-level config file.
const ConfigFileName = "srcmeta.toml"

// ConfigDirName is the name of the project-level config directory.
const ConfigDirName = ".srcmeta"

// GlobalConfigDir is the name of the global config directory inside user's config.
const GlobalConfigDir = "srcmeta"

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "SRCMETA_"

// LoadOptions selects where Load looks.
type LoadOptions struct {
	// Dir is where the project config search starts. Defaults to the
	// working directory.
	Dir string

	// File is an explicit config file applied after the environment. It
	// must exist.
	File string
}

// Load loads configuration from all layers in order of precedence:
//  1. Built-in defaults
//  2. Global user config (~/.config/srcmeta/config.toml)
//  3. Project config (.srcmeta/config.toml or srcmeta.toml)
//  4. Environment variables (SRCMETA_*)
//  5. Explicit config file
//
// CLI flags are applied separately after Load() returns. Missing files are
// skipped; files that exist but do not parse are errors.
func Load(opts LoadOptions) (*Config, error) {
	cfg := NewConfig()

	// Layer 2: Global user config
	globalCfg, err := loadConfigFile(GetGlobalConfigPath())
	if err != nil {
		return nil, err
	}
	cfg.Merge(globalCfg)

	// Layer 3: Project config
	dir := opts.Dir
	if dir == "" {
		if dir, err = os.Getwd(); err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
	}
	projectCfg, err := loadProjectConfigFrom(dir)
	if err != nil {
		return nil, err
	}
	cfg.Merge(projectCfg)

	// Layer 4: Environment variables
	if err := applyEnvironmentVariables(cfg); err != nil {
		return nil, err
	}

	// Layer 5: Explicit file
	if opts.File != "" {
		if _, err := os.Stat(opts.File); err != nil {
			return nil, fmt.Errorf("config file: %w", err)
		}
		fileCfg, err := loadConfigFile(opts.File)
		if err != nil {
			return nil, err
		}
		cfg.Merge(fileCfg)
	}

	return cfg, nil
}

// loadProjectConfigFrom looks for project configuration starting from the given directory.
func loadProjectConfigFrom(dir string) (*Config, error) {
	// Search up the directory tree for config files
	current := dir
	for {
		for _, path := range GetProjectConfigPaths(current) {
			cfg, err := loadConfigFile(path)
			if err != nil || cfg != nil {
				return cfg, err
			}
		}

		// Stop at filesystem root or repository root
		if isWorkspaceRoot(current) {
			break
		}

		parent := filepath.Dir(current)
		if parent == current {
			break
		}
		current = parent
	}

	return nil, nil
}

// isWorkspaceRoot checks if the directory is a repository root.
func isWorkspaceRoot(dir string) bool {
	markers := []string{".git", ".hg", ".svn"}
	for _, marker := range markers {
		if _, err := os.Stat(filepath.Join(dir, marker)); err == nil {
			return true
		}
	}
	return false
}

// loadConfigFile loads a configuration from a TOML file. A missing file
// yields a nil config and no error. Unknown keys are rejected.
func loadConfigFile(path string) (*Config, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	dec := toml.NewDecoder(bytes.NewReader(data)).DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		var decErr *toml.DecodeError
		if errors.As(err, &decErr) {
			row, col := decErr.Position()
			return nil, fmt.Errorf("%s:%d:%d: %s", path, row, col, decErr.Error())
		}
		var strictErr *toml.StrictMissingError
		if errors.As(err, &strictErr) {
			return nil, fmt.Errorf("%s: %s", path, strictErr.String())
		}
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return &cfg, nil
}

// applyEnvironmentVariables applies SRCMETA_* environment variables to the config.
func applyEnvironmentVariables(cfg *Config) error {
	if v := os.Getenv(EnvPrefix + "SECTION_NAME"); v != "" {
		cfg.Section.Name = v
	}
	applyBoolEnv(EnvPrefix+"NUL_SEPARATORS", &cfg.Section.NulSeparators)

	applyBoolEnv(EnvPrefix+"BACKUP_ENABLED", &cfg.Backup.Enabled)
	if v := os.Getenv(EnvPrefix + "BACKUP_SUFFIX"); v != "" {
		cfg.Backup.Suffix = v
	}
	applyBoolEnv(EnvPrefix+"BACKUP_OVERWRITE", &cfg.Backup.Overwrite)

	if v := os.Getenv(EnvPrefix + "OBJCOPY"); v != "" {
		cfg.Tools.Objcopy = v
	}
	if v := os.Getenv(EnvPrefix + "CP"); v != "" {
		cfg.Tools.Cp = v
	}

	// SRCMETA_FILE_PREFIX_MAP: comma-separated OLD=NEW rules
	if v := os.Getenv(EnvPrefix + "FILE_PREFIX_MAP"); v != "" {
		cfg.Shrink.FilePrefixMap = append(cfg.Shrink.FilePrefixMap, splitAndTrim(v)...)
	}
	applyBoolEnv(EnvPrefix+"REPORT_CONFLICTS", &cfg.Shrink.ReportConflicts)

	if v := os.Getenv(EnvPrefix + "MATCH_STRATEGY"); v != "" {
		cfg.Match.Strategy = v
	}

	// SRCMETA_INFO_FILES: comma-separated declaration files
	if v := os.Getenv(EnvPrefix + "INFO_FILES"); v != "" {
		cfg.Update.InfoFiles = append(cfg.Update.InfoFiles, splitAndTrim(v)...)
	}

	if v := os.Getenv(EnvPrefix + "VERBOSITY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%sVERBOSITY: %w", EnvPrefix, err)
		}
		cfg.Log.Verbosity = &n
	}
	if v := os.Getenv(EnvPrefix + "LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	return nil
}

// splitAndTrim splits a comma-separated string and trims whitespace.
func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}

// applyBoolEnv applies a boolean environment variable to a pointer.
func applyBoolEnv(envVar string, target **bool) {
	if v := os.Getenv(envVar); v != "" {
		v = strings.ToLower(v)
		if v == "true" || v == "1" || v == "yes" {
			t := true
			*target = &t
		} else if v == "false" || v == "0" || v == "no" {
			f := false
			*target = &f
		}
	}
}

// GetGlobalConfigPath returns the path to the global config file.
func GetGlobalConfigPath() string {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(configDir, GlobalConfigDir, "config.toml")
}

// GetProjectConfigPaths returns potential project config paths for a given directory.
func GetProjectConfigPaths(dir string) []string {
	return []string{
		filepath.Join(dir, ConfigDirName, "config.toml"),
		filepath.Join(dir, ConfigFileName),
	}
}
