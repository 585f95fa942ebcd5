package dataset

import (
	"context"
	"encoding/json"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"cow-tagger/internal/annotation"
)

const datasetSuffix = "_dataset"

var imageExts = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
}

// FSStore is a filesystem-backed Store rooted at a dataset directory.
type FSStore struct {
	root   string
	logger *slog.Logger
}

// NewFSStore creates a store over the given root directory.
func NewFSStore(root string, logger *slog.Logger) *FSStore {
	return &FSStore{root: root, logger: logger}
}

func (s *FSStore) datasetPath(dataset string) (string, error) {
	path := filepath.Join(s.root, dataset)
	if info, err := os.Stat(path); err != nil || !info.IsDir() {
		return "", fmt.Errorf("%w: dataset %s", ErrNotFound, dataset)
	}
	return path, nil
}

// ListDatasets returns all *_dataset directories under the root with their
// image counts across both splits.
func (s *FSStore) ListDatasets() ([]Info, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("reading dataset root: %w", err)
	}

	var infos []Info
	for _, entry := range entries {
		if !entry.IsDir() || !strings.HasSuffix(entry.Name(), datasetSuffix) {
			continue
		}
		count := 0
		for _, split := range Splits() {
			names, err := listImageFiles(filepath.Join(s.root, entry.Name(), "images", string(split)))
			if err != nil {
				continue
			}
			count += len(names)
		}
		infos = append(infos, Info{Name: entry.Name(), ImageCount: count})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos, nil
}

// ListImages returns the gallery entries for a split, sorted by filename.
// Status comes from the saved JSON when one exists; otherwise the entry is
// untouched with the box count taken from the YOLO label file.
func (s *FSStore) ListImages(dataset string, split Split) ([]annotation.ImageListEntry, error) {
	dsPath, err := s.datasetPath(dataset)
	if err != nil {
		return nil, err
	}

	names, err := listImageFiles(filepath.Join(dsPath, "images", string(split)))
	if err != nil {
		return nil, err
	}

	entries := make([]annotation.ImageListEntry, 0, len(names))
	for _, name := range names {
		entry := annotation.ImageListEntry{Filename: name, Status: annotation.ImageUntouched}

		jsonPath := s.labeledPath(dsPath, split, name)
		if doc, err := readDocument(jsonPath); err == nil {
			entry = annotation.EntryFor(doc)
		} else {
			boxes, err := readYOLOBoxes(s.labelPath(dsPath, split, name))
			if err != nil && !os.IsNotExist(err) {
				s.logger.Warn("skipping unreadable label file", "image", name, "error", err)
			}
			entry.TotalBoxes = len(boxes)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// FetchImage loads and decodes an image. The decode chain tries imaging's
// registered decoders first, then falls back to a direct webp decode.
func (s *FSStore) FetchImage(ctx context.Context, dataset string, split Split, filename string) (image.Image, error) {
	dsPath, err := s.datasetPath(dataset)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path := filepath.Join(dsPath, "images", string(split), filename)
	if img, err := imaging.Open(path); err == nil {
		return img, nil
	}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: image %s", ErrNotFound, filename)
		}
		return nil, err
	}
	defer f.Close()

	if img, err := webp.Decode(f); err == nil {
		return img, nil
	}
	if _, err := f.Seek(0, 0); err != nil {
		return nil, err
	}
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", filename, err)
	}
	return img, nil
}

// FetchAnnotations returns the saved document for an image, or synthesizes
// an unlabeled one from the YOLO label file when no save exists yet.
func (s *FSStore) FetchAnnotations(ctx context.Context, dataset string, split Split, filename string) (*annotation.Document, error) {
	dsPath, err := s.datasetPath(dataset)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if doc, err := readDocument(s.labeledPath(dsPath, split, filename)); err == nil {
		return doc, nil
	}

	imgPath := filepath.Join(dsPath, "images", string(split), filename)
	cfgFile, err := os.Open(imgPath)
	if err != nil {
		return nil, fmt.Errorf("%w: image %s", ErrNotFound, filename)
	}
	cfg, _, err := image.DecodeConfig(cfgFile)
	cfgFile.Close()
	if err != nil {
		return nil, fmt.Errorf("reading dimensions of %s: %w", filename, err)
	}

	boxes, err := readYOLOBoxes(s.labelPath(dsPath, split, filename))
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("reading labels for %s: %w", filename, err)
	}

	return &annotation.Document{
		Dataset:  dataset,
		Filename: filename,
		Split:    string(split),
		Width:    cfg.Width,
		Height:   cfg.Height,
		Boxes:    boxes,
	}, nil
}

// SaveAnnotations writes the document as indented JSON under labeled_data.
func (s *FSStore) SaveAnnotations(ctx context.Context, dataset string, doc *annotation.Document) error {
	dsPath, err := s.datasetPath(dataset)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	dir := filepath.Join(dsPath, "labeled_data", doc.Split)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}

	path := filepath.Join(dir, stem(doc.Filename)+".json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	s.logger.Info("annotations saved", "dataset", dataset, "file", path, "boxes", len(doc.Boxes))
	return nil
}

func (s *FSStore) labelPath(dsPath string, split Split, filename string) string {
	return filepath.Join(dsPath, "labels", string(split), stem(filename)+".txt")
}

func (s *FSStore) labeledPath(dsPath string, split Split, filename string) string {
	return filepath.Join(dsPath, "labeled_data", string(split), stem(filename)+".json")
}

func stem(filename string) string {
	return strings.TrimSuffix(filename, filepath.Ext(filename))
}

func listImageFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if imageExts[strings.ToLower(filepath.Ext(entry.Name()))] {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

func readDocument(path string) (*annotation.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var doc annotation.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return &doc, nil
}

// readYOLOBoxes parses a YOLO label file: one "class xc yc w h" line per
// box. The class column is ignored; every box starts unlabeled.
func readYOLOBoxes(path string) ([]annotation.Box, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var boxes []annotation.Box
	for _, line := range strings.Split(string(data), "\n") {
		fields := strings.Fields(line)
		if len(fields) < 5 {
			continue
		}
		var coords [4]float64
		ok := true
		for i := 0; i < 4; i++ {
			v, err := strconv.ParseFloat(fields[i+1], 64)
			if err != nil {
				ok = false
				break
			}
			coords[i] = v
		}
		if !ok {
			continue
		}
		boxes = append(boxes, annotation.Box{YOLO: coords, Status: annotation.BoxUnlabeled})
	}
	return boxes, nil
}
