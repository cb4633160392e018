// Package scratch persists annotation state for a working directory in a
// hidden JSON file that sits next to the images.
package scratch

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/menta2k/image-annotator/pkg/types"
)

// FileName is the name of the state file inside the working directory
const FileName = ".annotation_scratch"

// Header describes the directory session
type Header struct {
	ImageFiles           []string                `json:"imageFiles"`
	LastViewedFile       string                  `json:"lastViewedFile"`
	AnnotationCategories []types.AnnotationStyle `json:"annotationCategories"`
}

// Store maps an image file name to its annotations
type Store map[string][]types.Annotation

// ScratchFile is the in-memory state of one directory session.
// It is not safe for concurrent use.
type ScratchFile struct {
	WorkingDirectory string `json:"workingDirectory"`
	Header           Header `json:"header"`
	Annotations      Store  `json:"annotations"`
}

// LoadError reports why a state file could not be used
type LoadError struct {
	Path string
	Op   string // "read" or "decode"
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("scratch %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// New creates an empty scratch file for dir
func New(dir string) *ScratchFile {
	return &ScratchFile{
		WorkingDirectory: dir,
		Header: Header{
			ImageFiles:           []string{},
			AnnotationCategories: []types.AnnotationStyle{},
		},
		Annotations: Store{},
	}
}

// Load reads the state file in dir. Any read or decode failure is returned
// as a *LoadError.
func Load(dir string) (*ScratchFile, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Path: path, Op: "read", Err: err}
	}

	var sf ScratchFile
	if err := json.Unmarshal(data, &sf); err != nil {
		return nil, &LoadError{Path: path, Op: "decode", Err: err}
	}

	// The file may have been copied along with the images; the directory
	// it was loaded from wins.
	sf.WorkingDirectory = dir
	if sf.Header.ImageFiles == nil {
		sf.Header.ImageFiles = []string{}
	}
	if sf.Header.AnnotationCategories == nil {
		sf.Header.AnnotationCategories = []types.AnnotationStyle{}
	}
	if sf.Annotations == nil {
		sf.Annotations = Store{}
	}
	return &sf, nil
}

// Open starts a session for dir. A missing or corrupt state file is a fresh
// start, not an error; only a dir that is not a directory fails.
func Open(dir string) (*ScratchFile, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to open working directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("not a directory: %s", dir)
	}

	sf, err := Load(dir)
	if err == nil {
		return sf, nil
	}

	var loadErr *LoadError
	if errors.As(err, &loadErr) && errors.Is(err, os.ErrNotExist) {
		slog.Debug("no scratch file, starting fresh", "path", loadErr.Path)
	} else {
		slog.Warn("scratch file unusable, starting fresh", "path", filepath.Join(dir, FileName), "error", err)
	}
	return New(dir), nil
}

// Path returns the location of the state file
func (s *ScratchFile) Path() string {
	return filepath.Join(s.WorkingDirectory, FileName)
}

// FilePath returns the path of an image in the working directory
func (s *ScratchFile) FilePath(name string) string {
	return filepath.Join(s.WorkingDirectory, name)
}

// Save overwrites the state file with the current state. The new contents
// are written to a temporary file and renamed into place.
func (s *ScratchFile) Save() error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to encode scratch file: %w", err)
	}

	path := s.Path()
	tmp, err := os.CreateTemp(s.WorkingDirectory, FileName+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to write scratch file %s: %w", path, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write scratch file %s: %w", path, err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write scratch file %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write scratch file %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to replace scratch file %s: %w", path, err)
	}
	return nil
}

// AddAnnotation appends an annotation to fileName's list
func (s *ScratchFile) AddAnnotation(fileName string, rect types.Rectangle, style types.AnnotationStyle) {
	s.Annotations[fileName] = append(s.Annotations[fileName], types.Annotation{
		Coordinates: rect,
		Style:       style,
	})
}

// RemoveAnnotation removes the first annotation of fileName whose rectangle
// equals rect. Style is not compared. It reports whether one was removed.
func (s *ScratchFile) RemoveAnnotation(fileName string, rect types.Rectangle) bool {
	list := s.Annotations[fileName]
	for i, a := range list {
		if !a.Coordinates.Equal(rect) {
			continue
		}
		list = append(list[:i:i], list[i+1:]...)
		if len(list) == 0 {
			delete(s.Annotations, fileName)
		} else {
			s.Annotations[fileName] = list
		}
		return true
	}
	return false
}

// AnnotationsFor returns a copy of fileName's annotations, empty if none
func (s *ScratchFile) AnnotationsFor(fileName string) []types.Annotation {
	list := s.Annotations[fileName]
	out := make([]types.Annotation, len(list))
	copy(out, list)
	return out
}

// AllAnnotations returns a copy of the whole store
func (s *ScratchFile) AllAnnotations() Store {
	out := make(Store, len(s.Annotations))
	for name, list := range s.Annotations {
		out[name] = append([]types.Annotation(nil), list...)
	}
	return out
}

// FileNames returns the annotated file names in sorted order
func (s *ScratchFile) FileNames() []string {
	names := make([]string, 0, len(s.Annotations))
	for name := range s.Annotations {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SetCategories replaces the category list
func (s *ScratchFile) SetCategories(styles []types.AnnotationStyle) {
	s.Header.AnnotationCategories = append([]types.AnnotationStyle{}, styles...)
}

// Categories returns a copy of the category list
func (s *ScratchFile) Categories() []types.AnnotationStyle {
	return append([]types.AnnotationStyle{}, s.Header.AnnotationCategories...)
}

// SetImageFiles replaces the recorded directory listing
func (s *ScratchFile) SetImageFiles(names []string) {
	s.Header.ImageFiles = append([]string{}, names...)
}

// ImageFiles returns the recorded directory listing
func (s *ScratchFile) ImageFiles() []string {
	return append([]string{}, s.Header.ImageFiles...)
}

// SetLastViewedFile records the file the user was looking at
func (s *ScratchFile) SetLastViewedFile(name string) {
	s.Header.LastViewedFile = name
}

// LastViewedFile returns the file the user was last looking at
func (s *ScratchFile) LastViewedFile() string {
	return s.Header.LastViewedFile
}
