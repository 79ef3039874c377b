// Package organize re-files scanned media into per-label subfolders. It is
// a downstream pass over the exported artefact: consecutive captures are
// clustered into behavioural sequences by shoot-time gaps, and every file
// in a sequence moves under the sequence's highest-priority label.
package organize

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/trailscan/trailscan/internal/detect"
	"github.com/trailscan/trailscan/internal/export"
	"github.com/trailscan/trailscan/internal/util"
)

// DefaultGap is the maximum shoot-time distance between captures of one
// sequence. Motion-triggered cameras fire bursts a few seconds apart.
const DefaultGap = 5 * time.Second

// FileOrg is one file's organisation state derived from its records.
type FileOrg struct {
	FolderID  uint
	FileID    uint
	FilePath  string
	ShootTime *time.Time
	Label     string
	SeqID     int
	SeqLabel  string
}

// Move describes one planned or performed rename.
type Move struct {
	Source string
	Dest   string
	SeqID  int
	Label  string
	Moved  bool
}

// Organizer plans and applies label moves.
type Organizer struct {
	Gap    time.Duration
	DryRun bool
	Warn   func(format string, args ...any)
}

// Plan derives per-file organisation from export records. Files whose only
// records are errors carry no label and are left in place.
func Plan(frames []export.Frame) []FileOrg {
	byFile := make(map[string][]export.Frame)
	order := []string{}
	for _, f := range frames {
		key := f.File.FilePath
		if _, ok := byFile[key]; !ok {
			order = append(order, key)
		}
		byFile[key] = append(byFile[key], f)
	}

	files := make([]FileOrg, 0, len(order))
	for _, key := range order {
		recs := byFile[key]
		label := fileLabel(recs)
		if label == "" {
			continue
		}
		fo := FileOrg{
			FolderID: recs[0].File.FolderID,
			FileID:   recs[0].File.FileID,
			FilePath: recs[0].File.FilePath,
			Label:    label,
		}
		if recs[0].ShootTime != nil {
			if t, err := time.Parse(time.RFC3339, *recs[0].ShootTime); err == nil {
				fo.ShootTime = &t
			}
		}
		files = append(files, fo)
	}

	sort.Slice(files, func(i, j int) bool {
		if files[i].FolderID != files[j].FolderID {
			return files[i].FolderID < files[j].FolderID
		}
		return files[i].FileID < files[j].FileID
	})
	return files
}

// fileLabel reduces a file's records to its highest-priority label.
func fileLabel(recs []export.Frame) string {
	label := ""
	for _, r := range recs {
		if r.Label == nil {
			continue
		}
		if label == "" || detect.LabelPriority(*r.Label) < detect.LabelPriority(label) {
			label = *r.Label
		}
	}
	return label
}

// Cluster assigns sequence ids and labels within one folder's files,
// ordered by file id. Files within Gap of the previous capture join its
// sequence; a missing shoot time always starts a new sequence so files
// without timestamps degrade to per-file labels.
func (o *Organizer) Cluster(files []FileOrg, nextSeqID *int) []FileOrg {
	gap := o.Gap
	if gap <= 0 {
		gap = DefaultGap
	}

	var out []FileOrg
	seqStart := 0
	for i := range files {
		newSeq := i == 0
		if !newSeq {
			prev, cur := files[i-1].ShootTime, files[i].ShootTime
			if prev == nil || cur == nil {
				newSeq = true
			} else if d := cur.Sub(*prev); d < -gap || d > gap {
				newSeq = true
			}
		}
		if newSeq {
			if i > seqStart {
				out = append(out, sealSequence(files[seqStart:i], *nextSeqID)...)
				*nextSeqID++
			}
			seqStart = i
		}
	}
	if len(files) > seqStart {
		out = append(out, sealSequence(files[seqStart:], *nextSeqID)...)
		*nextSeqID++
	}
	return out
}

// sealSequence stamps the sequence id and its highest-priority label.
func sealSequence(seq []FileOrg, seqID int) []FileOrg {
	label := detect.LabelBlank
	for _, f := range seq {
		if detect.LabelPriority(f.Label) < detect.LabelPriority(label) {
			label = f.Label
		}
	}
	out := make([]FileOrg, len(seq))
	for i, f := range seq {
		f.SeqID = seqID
		f.SeqLabel = label
		out[i] = f
	}
	return out
}

// Run organises all files described by the artefact records and returns
// the moves performed (or planned, in dry-run mode).
func (o *Organizer) Run(frames []export.Frame) ([]Move, error) {
	files := Plan(frames)

	byFolder := make(map[uint][]FileOrg)
	folderOrder := []uint{}
	for _, f := range files {
		if _, ok := byFolder[f.FolderID]; !ok {
			folderOrder = append(folderOrder, f.FolderID)
		}
		byFolder[f.FolderID] = append(byFolder[f.FolderID], f)
	}
	sort.Slice(folderOrder, func(i, j int) bool { return folderOrder[i] < folderOrder[j] })

	var moves []Move
	seqID := 0
	for _, folder := range folderOrder {
		clustered := o.Cluster(byFolder[folder], &seqID)
		for _, f := range clustered {
			dest := filepath.Join(filepath.Dir(f.FilePath), f.SeqLabel, filepath.Base(f.FilePath))
			move := Move{Source: f.FilePath, Dest: dest, SeqID: f.SeqID, Label: f.SeqLabel}
			if !o.DryRun {
				if err := o.apply(&move); err != nil {
					if o.Warn != nil {
						o.Warn("failed to move %s: %v", f.FilePath, err)
					}
				}
			}
			moves = append(moves, move)
		}
	}
	return moves, nil
}

func (o *Organizer) apply(m *Move) error {
	if err := util.EnsureDirectory(filepath.Dir(m.Dest)); err != nil {
		return err
	}
	if util.FileExists(m.Dest) {
		return fmt.Errorf("destination already exists: %s", m.Dest)
	}
	if err := os.Rename(m.Source, m.Dest); err != nil {
		return err
	}
	m.Moved = true
	return nil
}
