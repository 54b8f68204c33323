package repository

import (
	"Extensible-Homework-Helper/internal/model"
	"Extensible-Homework-Helper/internal/utils"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
)

var ErrArtifactNotFound = errors.New("artifact not found locally")

// Artifact names one locally cached file of a homework item.
type Artifact string

const (
	ArtifactText          Artifact = "text.txt"
	ArtifactAudio         Artifact = "audio.mp3"
	ArtifactTranscription Artifact = "audio.mp3.txt"
)

// ArtifactRepository keeps downloaded text, audio and transcriptions in a
// cache directory, one file per homework title and artifact.
type ArtifactRepository struct {
	dir    string
	mu     sync.RWMutex
	logger *zap.Logger
}

func NewArtifactRepository(dir string, logger *zap.Logger) (*ArtifactRepository, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir '%s': %w", dir, err)
	}
	repo := &ArtifactRepository{dir: dir, logger: logger.Named("artifacts")}
	repo.logger.Debug("repository initialized", zap.String("dir", dir))
	return repo, nil
}

func (r *ArtifactRepository) Dir() string { return r.dir }

func (r *ArtifactRepository) Path(title string, a Artifact) string {
	return filepath.Join(r.dir, utils.ArtifactName(title, string(a)))
}

func (r *ArtifactRepository) Exists(title string, a Artifact) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	info, err := os.Stat(r.Path(title, a))
	return err == nil && info.Mode().IsRegular()
}

// ReadText returns the artifact content, or ErrArtifactNotFound when it has
// not been downloaded yet.
func (r *ArtifactRepository) ReadText(title string, a Artifact) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	path := r.Path(title, a)
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", ErrArtifactNotFound, path)
		}
		return "", fmt.Errorf("read '%s': %w", path, err)
	}
	return string(b), nil
}

func (r *ArtifactRepository) WriteText(title string, a Artifact, content string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	path := r.Path(title, a)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		r.logger.Error("persist failed", zap.String("path", path), zap.Error(err))
		return "", fmt.Errorf("write '%s': %w", path, err)
	}
	r.logger.Debug("persisted", zap.String("path", path), zap.Int("chars", len([]rune(content))))
	return path, nil
}

// WriteFrom streams src into the artifact. A failed copy removes the partial
// file.
func (r *ArtifactRepository) WriteFrom(title string, a Artifact, src func(io.Writer) (int64, error)) (string, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	path := r.Path(title, a)
	f, err := os.Create(path)
	if err != nil {
		return "", 0, fmt.Errorf("create '%s': %w", path, err)
	}
	n, copyErr := src(f)
	closeErr := f.Close()
	if copyErr != nil || closeErr != nil {
		_ = os.Remove(path)
		if copyErr != nil {
			return "", n, copyErr
		}
		return "", n, fmt.Errorf("close '%s': %w", path, closeErr)
	}
	r.logger.Debug("persisted", zap.String("path", path), zap.Int64("bytes", n))
	return path, n, nil
}

const listingFile = "homework_list.json"

// WriteListing keeps the last fetched homework list so that commands working
// on local artifacts can resolve an index without logging in.
func (r *ArtifactRepository) WriteListing(records []model.HomeworkRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("encode listing: %w", err)
	}
	path := filepath.Join(r.dir, listingFile)
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write '%s': %w", path, err)
	}
	return nil
}

func (r *ArtifactRepository) ReadListing() ([]model.HomeworkRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	path := filepath.Join(r.dir, listingFile)
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s; list homework first", ErrArtifactNotFound, path)
		}
		return nil, fmt.Errorf("read '%s': %w", path, err)
	}
	var records []model.HomeworkRecord
	if err := json.Unmarshal(b, &records); err != nil {
		return nil, fmt.Errorf("parse '%s': %w", path, err)
	}
	return records, nil
}
