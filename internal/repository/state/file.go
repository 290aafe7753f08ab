package state

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

	"github.com/cogniteev/easy-upgrade/internal/domain/release"
)

const (
	// DefaultFilePermissions is used for record files.
	DefaultFilePermissions = 0o600
	// DefaultDirPermissions is used for directories created to hold record files.
	DefaultDirPermissions = 0o755

	fieldRelease     = "release"
	fieldVersion     = "version"
	fieldChecksum    = "checksum"
	fieldInstalledAt = "installed_at"
)

// Repository defines persistence operations for an install record.
type Repository interface {
	Load(ctx context.Context) (*release.InstallRecord, error)
	Save(ctx context.Context, record *release.InstallRecord) error
}

// FileRepository persists one install record to a JSON file on disk.
type FileRepository struct {
	// path is the filesystem location of the JSON record file.
	path string
	// mu protects concurrent access to the record file.
	mu sync.Mutex
}

var (
	// ErrNotFound is returned when the record file does not exist yet.
	ErrNotFound = errors.New("install record not found")
	// errNilRecord is returned when saving a nil record.
	errNilRecord = errors.New("install record is not set")
	// errMalformedRecord is returned when a stored field has an unexpected type.
	errMalformedRecord = errors.New("malformed install record")
)

// NewFileRepository creates a repository that reads/writes JSON at the provided path.
func NewFileRepository(path string) *FileRepository {
	return &FileRepository{
		path: filepath.Clean(path),
	}
}

// Path returns the record file location.
func (r *FileRepository) Path() string {
	return r.path
}

// Load reads the record from disk.
func (r *FileRepository) Load(_ context.Context) (*release.InstallRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	contents, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("read record file: %w", err)
	}

	var msg structpb.Struct
	if err = protojson.Unmarshal(contents, &msg); err != nil {
		return nil, fmt.Errorf("decode record file: %w", err)
	}

	return fromProto(&msg)
}

// Save writes the record next to its final location, then renames it into
// place so readers never see a partial file.
func (r *FileRepository) Save(_ context.Context, record *release.InstallRecord) error {
	if record == nil {
		return errNilRecord
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	msg, err := toProto(record)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}

	marshalOptions := protojson.MarshalOptions{
		Multiline:       true,
		EmitUnpopulated: true,
	}

	data, err := marshalOptions.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}

	dir := filepath.Dir(r.path)
	if err = os.MkdirAll(dir, DefaultDirPermissions); err != nil {
		return fmt.Errorf("create record directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(r.path)+"-*")
	if err != nil {
		return fmt.Errorf("create record file: %w", err)
	}

	defer func() {
		_ = os.Remove(tmp.Name())
	}()

	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()

		return fmt.Errorf("write record file: %w", err)
	}

	if err = tmp.Chmod(DefaultFilePermissions); err != nil {
		_ = tmp.Close()

		return fmt.Errorf("chmod record file: %w", err)
	}

	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close record file: %w", err)
	}

	if err = os.Rename(tmp.Name(), r.path); err != nil {
		return fmt.Errorf("replace record file: %w", err)
	}

	return nil
}

// fromProto converts the stored struct into an InstallRecord.
func fromProto(msg *structpb.Struct) (*release.InstallRecord, error) {
	fields := msg.GetFields()
	record := &release.InstallRecord{
		Release:  fields[fieldRelease].GetStringValue(),
		Checksum: fields[fieldChecksum].GetStringValue(),
	}

	v, err := release.ParseOptionalVersion(fields[fieldVersion].GetStringValue())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errMalformedRecord, err)
	}

	record.Version = v

	if ts := fields[fieldInstalledAt].GetStringValue(); ts != "" {
		installedAt, err := time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", errMalformedRecord, err)
		}

		record.InstalledAt = installedAt
	}

	return record, nil
}

// toProto converts an InstallRecord into a struct of string fields.
func toProto(record *release.InstallRecord) (*structpb.Struct, error) {
	var installedAt string
	if !record.InstalledAt.IsZero() {
		installedAt = record.InstalledAt.UTC().Format(time.RFC3339Nano)
	}

	return structpb.NewStruct(map[string]any{
		fieldRelease:     record.Release,
		fieldVersion:     record.Version.String(),
		fieldChecksum:    record.Checksum,
		fieldInstalledAt: installedAt,
	})
}
