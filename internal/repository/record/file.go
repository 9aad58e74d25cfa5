package record

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/oshokin/firmware-deploy/internal/config"
	"github.com/oshokin/firmware-deploy/internal/domain/firmware"
)

// Filename is the record name inside the build directory.
const Filename = "release.json"

// Field names of the stored struct.
const (
	fieldVersion       = "version"
	fieldSketch        = "sketch"
	fieldBoard         = "board"
	fieldArtifact      = "artifact"
	fieldFirmware      = "firmware"
	fieldSize          = "size"
	fieldChecksum      = "checksum_sha512"
	fieldBuiltAt       = "built_at"
	fieldPublished     = "published"
	fieldCommitMessage = "commit_message"
)

// FileRepository persists the release record to a JSON file on disk.
type FileRepository struct {
	// path is the filesystem location of the JSON record.
	path string
	// mu serializes access to the file.
	mu sync.Mutex
}

var (
	// ErrNotFound is returned when no build has been recorded yet.
	ErrNotFound = errors.New("release record not found")
	// errNilRelease is returned when Save gets nothing to store.
	errNilRelease = errors.New("release is not set")
)

// NewFileRepository creates a repository that reads/writes JSON at the provided path.
func NewFileRepository(path string) *FileRepository {
	return &FileRepository{
		path: filepath.Clean(path),
	}
}

// PathFor returns the record location for cfg.
func PathFor(cfg config.Config) string {
	return cfg.Path(filepath.Join(cfg.BuildDir, Filename))
}

// Path returns where the record lives.
func (r *FileRepository) Path() string {
	return r.path
}

// Load reads the record from disk.
func (r *FileRepository) Load(_ context.Context) (*firmware.Release, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	contents, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("read release record: %w", err)
	}

	var stored structpb.Struct
	if err = protojson.Unmarshal(contents, &stored); err != nil {
		return nil, fmt.Errorf("decode release record: %w", err)
	}

	return fromStruct(&stored)
}

// Save writes the record, creating the parent directory when needed.
func (r *FileRepository) Save(_ context.Context, release *firmware.Release) error {
	if release == nil {
		return errNilRelease
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	stored, err := toStruct(release)
	if err != nil {
		return fmt.Errorf("encode release record: %w", err)
	}

	marshalOptions := protojson.MarshalOptions{
		Multiline:       true,
		EmitUnpopulated: true,
	}

	data, err := marshalOptions.Marshal(stored)
	if err != nil {
		return fmt.Errorf("encode release record: %w", err)
	}

	if err = os.MkdirAll(filepath.Dir(r.path), 0o755); err != nil {
		return fmt.Errorf("create record directory: %w", err)
	}

	if err = os.WriteFile(r.path, data, config.DefaultFilePermissions); err != nil {
		return fmt.Errorf("write release record: %w", err)
	}

	return nil
}

// toStruct converts the domain Release into a protobuf Struct.
func toStruct(release *firmware.Release) (*structpb.Struct, error) {
	builtAt := ""
	if !release.BuiltAt.IsZero() {
		builtAt = release.BuiltAt.UTC().Format(time.RFC3339Nano)
	}

	return structpb.NewStruct(map[string]any{
		fieldVersion:       release.Version,
		fieldSketch:        release.Sketch,
		fieldBoard:         release.Board,
		fieldArtifact:      release.Artifact,
		fieldFirmware:      release.Firmware,
		fieldSize:          release.Size,
		fieldChecksum:      release.Checksum,
		fieldBuiltAt:       builtAt,
		fieldPublished:     release.Published,
		fieldCommitMessage: release.CommitMessage,
	})
}

// fromStruct converts a protobuf Struct back into the domain Release.
func fromStruct(stored *structpb.Struct) (*firmware.Release, error) {
	fields := stored.GetFields()

	release := &firmware.Release{
		Version:       fields[fieldVersion].GetStringValue(),
		Sketch:        fields[fieldSketch].GetStringValue(),
		Board:         fields[fieldBoard].GetStringValue(),
		Artifact:      fields[fieldArtifact].GetStringValue(),
		Firmware:      fields[fieldFirmware].GetStringValue(),
		Size:          int64(fields[fieldSize].GetNumberValue()),
		Checksum:      fields[fieldChecksum].GetStringValue(),
		Published:     fields[fieldPublished].GetBoolValue(),
		CommitMessage: fields[fieldCommitMessage].GetStringValue(),
	}

	if raw := fields[fieldBuiltAt].GetStringValue(); raw != "" {
		builtAt, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return nil, fmt.Errorf("decode build time: %w", err)
		}

		release.BuiltAt = builtAt
	}

	return release, nil
}
