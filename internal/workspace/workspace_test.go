package workspace_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"

	"adscribe/internal/services"
	"adscribe/internal/workspace"
)

func TestCreateAndArtifactPaths(t *testing.T) {
	root := t.TempDir()
	mgr := workspace.New(root)
	id := uuid.NewString()

	handle, err := mgr.Create(id)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if handle.Dir != filepath.Join(root, id) {
		t.Fatalf("unexpected dir %q", handle.Dir)
	}
	if !mgr.WorkspaceExists(id) {
		t.Fatal("expected workspace to exist")
	}

	want := map[workspace.Kind]string{
		workspace.KindVideo:      "video.mp4",
		workspace.KindAudio:      "audio.mp3",
		workspace.KindTranscript: "transcript.txt",
	}
	for kind, name := range want {
		path, err := mgr.ArtifactPath(id, kind)
		if err != nil {
			t.Fatalf("ArtifactPath(%s): %v", kind, err)
		}
		if path != filepath.Join(root, id, name) {
			t.Fatalf("ArtifactPath(%s) = %q", kind, path)
		}
		if mgr.Exists(id, kind) {
			t.Fatalf("fresh workspace should not hold %s", kind)
		}
	}
}

func TestArtifactPathRejectsBadInput(t *testing.T) {
	mgr := workspace.New(t.TempDir())
	if _, err := mgr.ArtifactPath("../../etc", workspace.KindVideo); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for traversal id, got %v", err)
	}
	if _, err := mgr.ArtifactPath(uuid.NewString(), workspace.Kind("subtitles")); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for unknown kind, got %v", err)
	}
	upper := "0B7C1F0E-5C7E-4D1A-9D4C-6F1F6F0E2A11"
	if err := workspace.ValidateID(upper); err == nil {
		t.Fatal("expected non-canonical id to be rejected")
	}
}

func TestCreateFailureIsWorkspaceCreateError(t *testing.T) {
	root := filepath.Join(t.TempDir(), "file-root")
	if err := os.WriteFile(root, []byte("x"), 0o644); err != nil {
		t.Fatalf("write blocker: %v", err)
	}
	_, err := workspace.New(root).Create(uuid.NewString())
	if !errors.Is(err, services.ErrWorkspaceCreate) {
		t.Fatalf("expected ErrWorkspaceCreate, got %v", err)
	}
}

func TestRemoveClearsAllArtifactsAndIsIdempotent(t *testing.T) {
	mgr := workspace.New(t.TempDir())
	id := uuid.NewString()
	if _, err := mgr.Create(id); err != nil {
		t.Fatalf("Create: %v", err)
	}
	for _, kind := range workspace.Kinds() {
		if _, err := mgr.WriteArtifact(id, kind, []byte(string(kind))); err != nil {
			t.Fatalf("WriteArtifact(%s): %v", kind, err)
		}
		if !mgr.Exists(id, kind) {
			t.Fatalf("expected %s to exist", kind)
		}
	}

	if err := mgr.Remove(id); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	for _, kind := range workspace.Kinds() {
		if mgr.Exists(id, kind) {
			t.Fatalf("expected %s to be gone after Remove", kind)
		}
	}
	if err := mgr.Remove(id); err != nil {
		t.Fatalf("second Remove should be a no-op, got %v", err)
	}
}

func TestRemoveArtifactClearsPartialFiles(t *testing.T) {
	mgr := workspace.New(t.TempDir())
	id := uuid.NewString()
	h, err := mgr.Create(id)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := mgr.WriteArtifact(id, workspace.KindAudio, []byte("audio")); err != nil {
		t.Fatalf("WriteArtifact: %v", err)
	}
	for _, name := range []string{"video.mp4", "video.mp4.part", "video.mp4.ytdl", "video.mp4.part-Frag3"} {
		if err := os.WriteFile(filepath.Join(h.Dir, name), []byte("x"), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}

	if err := mgr.RemoveArtifact(id, workspace.KindVideo); err != nil {
		t.Fatalf("RemoveArtifact: %v", err)
	}
	entries, err := os.ReadDir(h.Dir)
	if err != nil {
		t.Fatalf("read workspace: %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != "audio.mp3" {
		var names []string
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Fatalf("expected only audio.mp3 left, got %v", names)
	}
}

func TestWriteArtifactOverwrites(t *testing.T) {
	mgr := workspace.New(t.TempDir())
	id := uuid.NewString()
	if _, err := mgr.Create(id); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := mgr.WriteArtifact(id, workspace.KindTranscript, []byte("first")); err != nil {
		t.Fatalf("first write: %v", err)
	}
	path, err := mgr.WriteArtifact(id, workspace.KindTranscript, []byte("second"))
	if err != nil {
		t.Fatalf("second write: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read artifact: %v", err)
	}
	if string(data) != "second" {
		t.Fatalf("artifact = %q, want second", data)
	}
	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Fatalf("expected only the artifact in workspace, found %d entries", len(entries))
	}
}

func TestStatMissingArtifact(t *testing.T) {
	mgr := workspace.New(t.TempDir())
	id := uuid.NewString()
	if _, err := mgr.Create(id); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := mgr.Stat(id, workspace.KindAudio); !errors.Is(err, services.ErrArtifactNotFound) {
		t.Fatalf("expected ErrArtifactNotFound, got %v", err)
	}
}

func TestListSkipsForeignEntries(t *testing.T) {
	root := t.TempDir()
	mgr := workspace.New(root)
	id := uuid.NewString()
	if _, err := mgr.Create(id); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := mgr.WriteArtifact(id, workspace.KindVideo, []byte("video-bytes")); err != nil {
		t.Fatalf("WriteArtifact: %v", err)
	}
	if err := os.Mkdir(filepath.Join(root, "not-a-job"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(root, ".adscribe.lock"), nil, 0o644); err != nil {
		t.Fatalf("write lock: %v", err)
	}

	infos, err := mgr.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(infos) != 1 {
		t.Fatalf("expected 1 workspace, got %d", len(infos))
	}
	if infos[0].JobID != id || infos[0].Size != int64(len("video-bytes")) {
		t.Fatalf("unexpected info %+v", infos[0])
	}
	if len(infos[0].Artifacts) != 1 || infos[0].Artifacts[0] != workspace.KindVideo {
		t.Fatalf("unexpected artifacts %v", infos[0].Artifacts)
	}
}

func TestParseKind(t *testing.T) {
	kind, err := workspace.ParseKind(" Audio ")
	if err != nil || kind != workspace.KindAudio {
		t.Fatalf("ParseKind = %v, %v", kind, err)
	}
	if _, err := workspace.ParseKind("poster"); err == nil {
		t.Fatal("expected error for unknown kind")
	}
}
