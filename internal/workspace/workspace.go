package workspace

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"adscribe/internal/services"
)

// Kind identifies one of the artifacts a job workspace can hold.
type Kind string

const (
	KindVideo      Kind = "video"
	KindAudio      Kind = "audio"
	KindTranscript Kind = "transcript"
)

var fileNames = map[Kind]string{
	KindVideo:      "video.mp4",
	KindAudio:      "audio.mp3",
	KindTranscript: "transcript.txt",
}

// Kinds lists artifact kinds in pipeline order.
func Kinds() []Kind {
	return []Kind{KindVideo, KindAudio, KindTranscript}
}

// ParseKind maps a user-supplied name onto a Kind.
func ParseKind(value string) (Kind, error) {
	kind := Kind(strings.ToLower(strings.TrimSpace(value)))
	if _, ok := fileNames[kind]; !ok {
		return "", services.Wrap(services.ErrValidation, "", "parse artifact kind", fmt.Sprintf("unknown kind %q", value), nil)
	}
	return kind, nil
}

// FileName is the fixed file name used for the kind inside a workspace.
func (k Kind) FileName() string {
	return fileNames[k]
}

// Handle identifies a created workspace.
type Handle struct {
	JobID string
	Dir   string
}

// Info describes an existing workspace directory.
type Info struct {
	JobID     string
	Path      string
	ModTime   time.Time
	Size      int64
	Artifacts []Kind
}

// Manager owns the per-job directories under a single root. Each job gets
// <root>/<job id>/ with at most one file per artifact kind.
type Manager struct {
	root string
}

// New returns a manager rooted at root.
func New(root string) *Manager {
	return &Manager{root: filepath.Clean(root)}
}

// Root returns the directory holding all workspaces.
func (m *Manager) Root() string {
	return m.root
}

// EnsureRoot creates the workspace root if needed.
func (m *Manager) EnsureRoot() error {
	if err := os.MkdirAll(m.root, 0o755); err != nil {
		return services.Wrap(services.ErrWorkspaceCreate, "", "ensure root", m.root, err)
	}
	return nil
}

// ValidateID rejects anything that is not a canonical UUID so job ids can never
// escape the workspace root.
func ValidateID(jobID string) error {
	parsed, err := uuid.Parse(jobID)
	if err != nil || parsed.String() != jobID {
		return services.Wrap(services.ErrValidation, "", "validate job id", fmt.Sprintf("invalid job id %q", jobID), nil)
	}
	return nil
}

// Dir returns the workspace directory for jobID.
func (m *Manager) Dir(jobID string) (string, error) {
	if err := ValidateID(jobID); err != nil {
		return "", err
	}
	return filepath.Join(m.root, jobID), nil
}

// Create makes an empty workspace for jobID.
func (m *Manager) Create(jobID string) (Handle, error) {
	dir, err := m.Dir(jobID)
	if err != nil {
		return Handle{}, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Handle{}, services.Wrap(services.ErrWorkspaceCreate, "", "create workspace", jobID, err)
	}
	return Handle{JobID: jobID, Dir: dir}, nil
}

// ArtifactPath returns where the artifact of the given kind lives. The file may
// not exist.
func (m *Manager) ArtifactPath(jobID string, kind Kind) (string, error) {
	name, ok := fileNames[kind]
	if !ok {
		return "", services.Wrap(services.ErrValidation, "", "artifact path", fmt.Sprintf("unknown kind %q", kind), nil)
	}
	dir, err := m.Dir(jobID)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, name), nil
}

// Exists reports whether the artifact is present as a regular file.
func (m *Manager) Exists(jobID string, kind Kind) bool {
	path, err := m.ArtifactPath(jobID, kind)
	if err != nil {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// WorkspaceExists reports whether the job directory is present.
func (m *Manager) WorkspaceExists(jobID string) bool {
	dir, err := m.Dir(jobID)
	if err != nil {
		return false
	}
	info, err := os.Stat(dir)
	return err == nil && info.IsDir()
}

// Remove deletes the workspace and everything in it. Removing a missing
// workspace is not an error.
func (m *Manager) Remove(jobID string) error {
	dir, err := m.Dir(jobID)
	if err != nil {
		return err
	}
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("remove workspace %s: %w", jobID, err)
	}
	return nil
}

// RemoveArtifact deletes a single artifact if present, together with the
// partial and temporary files written while producing it (yt-dlp ".part" and
// ".ytdl" files, ".partial-" transcoder output, WriteArtifact temp files).
func (m *Manager) RemoveArtifact(jobID string, kind Kind) error {
	path, err := m.ArtifactPath(jobID, kind)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove %s artifact: %w", kind, err)
	}

	dir := filepath.Dir(path)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("scan %s leftovers: %w", kind, err)
	}
	for _, entry := range entries {
		if entry.IsDir() || !isLeftoverOf(entry.Name(), kind.FileName()) {
			continue
		}
		if err := os.Remove(filepath.Join(dir, entry.Name())); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("remove %s leftover %s: %w", kind, entry.Name(), err)
		}
	}
	return nil
}

func isLeftoverOf(name, artifact string) bool {
	return strings.HasPrefix(name, artifact+".") ||
		strings.HasPrefix(name, "."+artifact+".") ||
		name == ".partial-"+artifact
}

// WriteArtifact stores data for kind through a temporary file and rename, so
// readers never observe a partially written artifact.
func (m *Manager) WriteArtifact(jobID string, kind Kind, data []byte) (string, error) {
	path, err := m.ArtifactPath(jobID, kind)
	if err != nil {
		return "", err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+kind.FileName()+".*")
	if err != nil {
		return "", fmt.Errorf("write %s artifact: %w", kind, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", fmt.Errorf("write %s artifact: %w", kind, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("close %s artifact: %w", kind, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("chmod %s artifact: %w", kind, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("commit %s artifact: %w", kind, err)
	}
	return path, nil
}

// Stat returns metadata for one artifact.
func (m *Manager) Stat(jobID string, kind Kind) (fs.FileInfo, error) {
	path, err := m.ArtifactPath(jobID, kind)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, services.Wrap(services.ErrArtifactNotFound, "", "stat artifact", fmt.Sprintf("%s for job %s", kind, jobID), nil)
		}
		return nil, fmt.Errorf("stat %s artifact: %w", kind, err)
	}
	return info, nil
}

// List returns every job workspace under the root. Entries that are not job
// directories (lock files, stray folders) are skipped.
func (m *Manager) List() ([]Info, error) {
	entries, err := os.ReadDir(m.root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("list workspaces: %w", err)
	}

	var infos []Info
	for _, entry := range entries {
		if !entry.IsDir() || ValidateID(entry.Name()) != nil {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		dirPath := filepath.Join(m.root, entry.Name())
		size, _ := dirSize(dirPath)

		var present []Kind
		for _, kind := range Kinds() {
			if m.Exists(entry.Name(), kind) {
				present = append(present, kind)
			}
		}
		infos = append(infos, Info{
			JobID:     entry.Name(),
			Path:      dirPath,
			ModTime:   info.ModTime(),
			Size:      size,
			Artifacts: present,
		})
	}
	return infos, nil
}

func dirSize(path string) (int64, error) {
	var size int64
	err := filepath.WalkDir(path, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.Type().IsRegular() {
			if info, err := d.Info(); err == nil {
				size += info.Size()
			}
		}
		return nil
	})
	return size, err
}
