package organize

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/trailscan/trailscan/internal/export"
	"github.com/trailscan/trailscan/internal/index"
)

func rec(folderID, fileID uint, path, label, shootTime string) export.Frame {
	f := export.Frame{
		File:        index.FileItem{FolderID: folderID, FileID: fileID, FilePath: path},
		TotalFrames: 1,
	}
	if label != "" {
		f.Label = &label
	}
	if shootTime != "" {
		f.ShootTime = &shootTime
	}
	return f
}

func TestPlanDerivesFileLabels(t *testing.T) {
	frames := []export.Frame{
		// Multi-frame video: person in one frame, animal in another.
		rec(1, 0, "/cam/a/clip.mp4", "Person", "2025-06-01T06:00:00Z"),
		rec(1, 0, "/cam/a/clip.mp4", "Animal", "2025-06-01T06:00:00Z"),
		rec(1, 1, "/cam/a/img.jpg", "Blank", "2025-06-01T06:00:03Z"),
	}
	errMsg := "decode failed"
	bad := export.Frame{
		File:  index.FileItem{FolderID: 1, FileID: 2, FilePath: "/cam/a/bad.mp4"},
		Error: &errMsg,
	}
	frames = append(frames, bad)

	files := Plan(frames)
	if len(files) != 2 {
		t.Fatalf("Plan() returned %d files, want 2 (error files skipped)", len(files))
	}
	if files[0].Label != "Animal" {
		t.Errorf("multi-frame label = %q, want Animal", files[0].Label)
	}
	if files[1].Label != "Blank" {
		t.Errorf("blank label = %q, want Blank", files[1].Label)
	}
	if files[0].ShootTime == nil {
		t.Error("shoot time not parsed")
	}
}

func TestClusterSequences(t *testing.T) {
	base := time.Date(2025, 6, 1, 6, 0, 0, 0, time.UTC)
	mk := func(id uint, offset time.Duration, label string) FileOrg {
		t := base.Add(offset)
		return FileOrg{FolderID: 1, FileID: id, Label: label, ShootTime: &t}
	}

	files := []FileOrg{
		mk(0, 0, "Blank"),
		mk(1, 2*time.Second, "Animal"),
		mk(2, 4*time.Second, "Blank"),
		// 30s gap starts a new sequence.
		mk(3, 34*time.Second, "Vehicle"),
		mk(4, 36*time.Second, "Blank"),
	}

	o := &Organizer{Gap: 5 * time.Second}
	seqID := 0
	got := o.Cluster(files, &seqID)
	if len(got) != 5 {
		t.Fatalf("Cluster() returned %d files, want 5", len(got))
	}

	for i := 0; i < 3; i++ {
		if got[i].SeqLabel != "Animal" {
			t.Errorf("file %d sequence label = %q, want Animal", i, got[i].SeqLabel)
		}
		if got[i].SeqID != got[0].SeqID {
			t.Errorf("file %d not in first sequence", i)
		}
	}
	for i := 3; i < 5; i++ {
		if got[i].SeqLabel != "Vehicle" {
			t.Errorf("file %d sequence label = %q, want Vehicle", i, got[i].SeqLabel)
		}
	}
	if got[3].SeqID == got[0].SeqID {
		t.Error("gap did not start a new sequence")
	}
}

func TestClusterMissingShootTime(t *testing.T) {
	files := []FileOrg{
		{FolderID: 1, FileID: 0, Label: "Animal"},
		{FolderID: 1, FileID: 1, Label: "Blank"},
	}

	o := &Organizer{}
	seqID := 0
	got := o.Cluster(files, &seqID)

	// Without timestamps every file is its own sequence and keeps its own
	// label.
	if got[0].SeqLabel != "Animal" || got[1].SeqLabel != "Blank" {
		t.Errorf("labels = %q, %q; want per-file fallback", got[0].SeqLabel, got[1].SeqLabel)
	}
	if got[0].SeqID == got[1].SeqID {
		t.Error("files without shoot time merged into one sequence")
	}
}

func TestRunMovesFiles(t *testing.T) {
	dir := t.TempDir()
	imgA := filepath.Join(dir, "IMG_0001.jpg")
	imgB := filepath.Join(dir, "IMG_0002.jpg")
	for _, p := range []string{imgA, imgB} {
		if err := os.WriteFile(p, []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
	}

	frames := []export.Frame{
		rec(1, 0, imgA, "Animal", "2025-06-01T06:00:00Z"),
		rec(1, 1, imgB, "Blank", "2025-06-01T06:00:02Z"),
	}

	o := &Organizer{Gap: 5 * time.Second}
	moves, err := o.Run(frames)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(moves) != 2 {
		t.Fatalf("planned %d moves, want 2", len(moves))
	}

	// Both captures are 2s apart: one Animal sequence.
	for _, m := range moves {
		if m.Label != "Animal" {
			t.Errorf("move label = %q, want Animal", m.Label)
		}
		if !m.Moved {
			t.Errorf("move not applied: %+v", m)
		}
	}
	if _, err := os.Stat(filepath.Join(dir, "Animal", "IMG_0001.jpg")); err != nil {
		t.Errorf("file not moved into Animal folder: %v", err)
	}
}

func TestRunDryRun(t *testing.T) {
	dir := t.TempDir()
	img := filepath.Join(dir, "IMG_0001.jpg")
	if err := os.WriteFile(img, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	o := &Organizer{DryRun: true}
	moves, err := o.Run([]export.Frame{rec(1, 0, img, "Person", "")})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(moves) != 1 || moves[0].Moved {
		t.Fatalf("dry run applied moves: %+v", moves)
	}
	if _, err := os.Stat(img); err != nil {
		t.Errorf("dry run touched the file: %v", err)
	}
}
