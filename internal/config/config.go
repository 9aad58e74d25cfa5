package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds every fixed name the deploy steps depend on.
type Config struct {
	// CompilerCLI is the compiler executable (name on PATH or full path).
	CompilerCLI string `yaml:"compiler_cli"`
	// GitCLI is the git executable.
	GitCLI string `yaml:"git_cli"`
	// WorkDir is the sketch repository checkout; every other path is relative to it.
	WorkDir string `yaml:"work_dir"`
	// SketchDir is where the source file is looked up.
	SketchDir string `yaml:"sketch_dir"`
	// SourcePattern is the glob recognizing sketch sources.
	SourcePattern string `yaml:"source_pattern"`
	// BoardFQBN is the fully qualified board name passed to the compiler.
	BoardFQBN string `yaml:"board_fqbn"`
	// BuildDir is the compiler output directory.
	BuildDir string `yaml:"build_dir"`
	// ArtifactPattern is the glob recognizing compiled images in BuildDir.
	ArtifactPattern string `yaml:"artifact_pattern"`
	// FirmwareFile is the published copy of the artifact.
	FirmwareFile string `yaml:"firmware_file"`
	// VersionFile is the marker file devices poll.
	VersionFile string `yaml:"version_file"`
	// Repository is the "owner/name" identifier on the hosting remote.
	Repository string `yaml:"repository"`
	// Branch is the branch devices read from.
	Branch string `yaml:"branch"`
	// Remote is the git remote pushed to.
	Remote string `yaml:"remote"`
	// RawBaseURL is the raw-content host used to build download URLs.
	RawBaseURL string `yaml:"raw_base_url"`
	// ProbeTimeout bounds the tool version probes.
	ProbeTimeout time.Duration `yaml:"probe_timeout"`
}

const (
	// DefaultConfigFilename is the default filename for deploy settings.
	DefaultConfigFilename = "firmware-deploy.yaml"

	// DefaultFilePermissions is the default file permission for written files.
	DefaultFilePermissions = 0o644

	// DefaultProbeTimeout bounds `<tool> version` probes.
	DefaultProbeTimeout = 10 * time.Second

	defaultCompilerCLI     = "arduino-cli"
	defaultGitCLI          = "git"
	defaultWorkDir         = "."
	defaultSketchDir       = "."
	defaultSourcePattern   = "*.ino"
	defaultBoardFQBN       = "esp32:esp32:esp32"
	defaultBuildDir        = "build"
	defaultArtifactPattern = "*.bin"
	defaultFirmwareFile    = "firmware.bin"
	defaultVersionFile     = "version.txt"
	defaultRepository      = "honghuynhit/esp32-power-monitor"
	defaultBranch          = "main"
	defaultRemote          = "origin"
	defaultRawBaseURL      = "https://raw.githubusercontent.com"

	fqbnSegments = 3
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errInvalidFQBN is returned when the board name is not vendor:arch:board.
	errInvalidFQBN = errors.New("board FQBN must look like vendor:architecture:board")
	// errInvalidRepository is returned when the repository is not owner/name.
	errInvalidRepository = errors.New("repository must look like owner/name")
	// errInvalidPattern is returned for malformed glob patterns.
	errInvalidPattern = errors.New("invalid glob pattern")
)

// Default returns the settings used when no file is provided.
func Default() Config {
	return Config{
		CompilerCLI:     defaultCompilerCLI,
		GitCLI:          defaultGitCLI,
		WorkDir:         defaultWorkDir,
		SketchDir:       defaultSketchDir,
		SourcePattern:   defaultSourcePattern,
		BoardFQBN:       defaultBoardFQBN,
		BuildDir:        defaultBuildDir,
		ArtifactPattern: defaultArtifactPattern,
		FirmwareFile:    defaultFirmwareFile,
		VersionFile:     defaultVersionFile,
		Repository:      defaultRepository,
		Branch:          defaultBranch,
		Remote:          defaultRemote,
		RawBaseURL:      defaultRawBaseURL,
		ProbeTimeout:    DefaultProbeTimeout,
	}
}

// Load reads configuration from the provided path and validates it.
// Fields missing from the file keep their defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}

	cfg := Default()
	if err = yaml.Unmarshal(contents, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err = Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// LoadOrDefault behaves like Load but returns validated defaults
// when the file does not exist.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if err == nil {
		return cfg, nil
	}

	if !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	defaults := Default()

	return &defaults, nil
}

// Save writes settings to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	if err = os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate fills empty fields with defaults and checks formats.
//
//nolint:cyclop // One branch per field keeps it flat and readable.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	defaults := Default()

	fillString(&cfg.CompilerCLI, defaults.CompilerCLI)
	fillString(&cfg.GitCLI, defaults.GitCLI)
	fillString(&cfg.WorkDir, defaults.WorkDir)
	fillString(&cfg.SketchDir, defaults.SketchDir)
	fillString(&cfg.SourcePattern, defaults.SourcePattern)
	fillString(&cfg.BoardFQBN, defaults.BoardFQBN)
	fillString(&cfg.BuildDir, defaults.BuildDir)
	fillString(&cfg.ArtifactPattern, defaults.ArtifactPattern)
	fillString(&cfg.FirmwareFile, defaults.FirmwareFile)
	fillString(&cfg.VersionFile, defaults.VersionFile)
	fillString(&cfg.Repository, defaults.Repository)
	fillString(&cfg.Branch, defaults.Branch)
	fillString(&cfg.Remote, defaults.Remote)
	fillString(&cfg.RawBaseURL, defaults.RawBaseURL)

	if cfg.ProbeTimeout <= 0 {
		cfg.ProbeTimeout = defaults.ProbeTimeout
	}

	if parts := strings.Split(cfg.BoardFQBN, ":"); len(parts) < fqbnSegments || hasEmpty(parts) {
		return fmt.Errorf("%q: %w", cfg.BoardFQBN, errInvalidFQBN)
	}

	if parts := strings.Split(cfg.Repository, "/"); len(parts) != 2 || hasEmpty(parts) {
		return fmt.Errorf("%q: %w", cfg.Repository, errInvalidRepository)
	}

	for _, pattern := range []string{cfg.SourcePattern, cfg.ArtifactPattern} {
		if _, err := filepath.Match(pattern, ""); err != nil {
			return fmt.Errorf("%q: %w", pattern, errInvalidPattern)
		}
	}

	if _, err := url.ParseRequestURI(cfg.RawBaseURL); err != nil {
		return fmt.Errorf("invalid raw base URL: %w", err)
	}

	return nil
}

// Path resolves a configured relative name against WorkDir.
func (c Config) Path(name string) string {
	if filepath.IsAbs(name) {
		return filepath.Clean(name)
	}

	return filepath.Join(c.WorkDir, name)
}

// RepositoryURL is the web URL of the hosting repository.
func (c Config) RepositoryURL() string {
	return "https://github.com/" + c.Repository
}

// RawURL builds the raw-content URL devices download name from.
func (c Config) RawURL(name string) string {
	return strings.TrimRight(c.RawBaseURL, "/") + "/" + c.Repository + "/" + c.Branch + "/" + filepath.ToSlash(name)
}

func fillString(field *string, fallback string) {
	if strings.TrimSpace(*field) == "" {
		*field = fallback
	}
}

func hasEmpty(parts []string) bool {
	for _, part := range parts {
		if part == "" {
			return true
		}
	}

	return false
}
