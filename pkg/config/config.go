// Package config provides configuration management for srcmeta.
// It supports multi-layer configuration with precedence:
//  1. Built-in defaults (lowest priority)
//  2. Global user config (~/.config/srcmeta/config.toml)
//  3. Project config (.srcmeta/config.toml or srcmeta.toml)
//  4. Environment variables (SRCMETA_*)
//  5. Explicit config file (--config)
//  6. CLI flags (highest priority)
package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Config is the main configuration struct for srcmeta.
type Config struct {
	// Section configures where metadata lives inside a binary.
	Section SectionConfig `toml:"section"`

	// Backup configures the copy made before a binary is modified.
	Backup BackupConfig `toml:"backup"`

	// Tools names the external programs used to rewrite binaries.
	Tools ToolsConfig `toml:"tools"`

	// Shrink configures how compilation-unit documents are combined.
	Shrink MergeConfig `toml:"merge"`

	// Match configures how declared files are matched to embedded ones.
	Match MatchConfig `toml:"match"`

	// Update configures the update command.
	Update UpdateConfig `toml:"update"`

	// Log configures diagnostics.
	Log LogConfig `toml:"log"`
}

// SectionConfig holds section settings.
type SectionConfig struct {
	// Name is the section the metadata is stored in.
	Name string `toml:"name" validate:"required,printascii,excludesall=="`

	// NulSeparators writes line breaks as NUL bytes, as the compiler
	// plugin does.
	NulSeparators *bool `toml:"nul_separators"`
}

// BackupConfig holds backup settings.
type BackupConfig struct {
	Enabled   *bool  `toml:"enabled"`
	Suffix    string `toml:"suffix" validate:"required,excludesall=/"`
	Overwrite *bool  `toml:"overwrite"`
}

// ToolsConfig holds external tool paths or names.
type ToolsConfig struct {
	Objcopy string `toml:"objcopy" validate:"required"`
	Cp      string `toml:"cp" validate:"required"`
}

// MergeConfig holds merge settings.
type MergeConfig struct {
	// FilePrefixMap entries have the form OLD=NEW.
	FilePrefixMap []string `toml:"file_prefix_map" validate:"dive,contains=="`

	// ReportConflicts warns when a file appears with different checksums.
	ReportConflicts *bool `toml:"report_conflicts"`
}

// MatchConfig holds license matching settings.
type MatchConfig struct {
	// Strategy is "basename" or "suffix".
	Strategy string `toml:"strategy" validate:"oneof=basename suffix"`
}

// UpdateConfig holds update command settings.
type UpdateConfig struct {
	// InfoFiles are declaration files read in addition to --info-file.
	InfoFiles []string `toml:"info_files" validate:"dive,required"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Verbosity *int   `toml:"verbosity" validate:"omitempty,min=0,max=4"`
	Format    string `toml:"format" validate:"oneof=text json"`
}

// NewConfig creates a new Config with built-in defaults.
func NewConfig() *Config {
	trueVal := true
	falseVal := false
	verbosity := 1
	return &Config{
		Section: SectionConfig{
			Name:          ".esstra",
			NulSeparators: &trueVal,
		},
		Backup: BackupConfig{
			Enabled:   &trueVal,
			Suffix:    ".bak",
			Overwrite: &falseVal,
		},
		Tools: ToolsConfig{
			Objcopy: "objcopy",
			Cp:      "cp",
		},
		Shrink: MergeConfig{
			ReportConflicts: &falseVal,
		},
		Match: MatchConfig{
			Strategy: "basename",
		},
		Log: LogConfig{
			Verbosity: &verbosity,
			Format:    "text",
		},
	}
}

// NulSeparators reports whether embedded payloads use NUL line breaks.
func (c *Config) NulSeparators() bool {
	return c.Section.NulSeparators != nil && *c.Section.NulSeparators
}

// BackupEnabled reports whether binaries are backed up before changes.
func (c *Config) BackupEnabled() bool {
	return c.Backup.Enabled != nil && *c.Backup.Enabled
}

// OverwriteBackup reports whether an existing backup may be replaced.
func (c *Config) OverwriteBackup() bool {
	return c.Backup.Overwrite != nil && *c.Backup.Overwrite
}

// ReportConflicts reports whether checksum conflicts are logged.
func (c *Config) ReportConflicts() bool {
	return c.Shrink.ReportConflicts != nil && *c.Shrink.ReportConflicts
}

// Verbosity returns the configured log verbosity.
func (c *Config) Verbosity() int {
	if c.Log.Verbosity == nil {
		return 1
	}
	return *c.Log.Verbosity
}

// Merge merges another config into this one (other takes precedence).
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	// Merge section config
	if other.Section.Name != "" {
		c.Section.Name = other.Section.Name
	}
	if other.Section.NulSeparators != nil {
		c.Section.NulSeparators = other.Section.NulSeparators
	}

	// Merge backup config
	if other.Backup.Enabled != nil {
		c.Backup.Enabled = other.Backup.Enabled
	}
	if other.Backup.Suffix != "" {
		c.Backup.Suffix = other.Backup.Suffix
	}
	if other.Backup.Overwrite != nil {
		c.Backup.Overwrite = other.Backup.Overwrite
	}

	// Merge tools config
	if other.Tools.Objcopy != "" {
		c.Tools.Objcopy = other.Tools.Objcopy
	}
	if other.Tools.Cp != "" {
		c.Tools.Cp = other.Tools.Cp
	}

	// Prefix maps and info files accumulate across layers
	if len(other.Shrink.FilePrefixMap) > 0 {
		c.Shrink.FilePrefixMap = append(c.Shrink.FilePrefixMap, other.Shrink.FilePrefixMap...)
	}
	if other.Shrink.ReportConflicts != nil {
		c.Shrink.ReportConflicts = other.Shrink.ReportConflicts
	}

	if other.Match.Strategy != "" {
		c.Match.Strategy = other.Match.Strategy
	}

	if len(other.Update.InfoFiles) > 0 {
		c.Update.InfoFiles = append(c.Update.InfoFiles, other.Update.InfoFiles...)
	}

	// Merge log config
	if other.Log.Verbosity != nil {
		c.Log.Verbosity = other.Log.Verbosity
	}
	if other.Log.Format != "" {
		c.Log.Format = other.Log.Format
	}
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report fields by their TOML key so messages match the config file.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("toml"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks the merged configuration.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("invalid config: %w", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		key := strings.TrimPrefix(fe.Namespace(), "Config.")
		msg := fmt.Sprintf("%s: failed %q", key, fe.Tag())
		if fe.Param() != "" {
			msg += fmt.Sprintf(" (%s)", fe.Param())
		}
		msgs = append(msgs, msg)
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}
