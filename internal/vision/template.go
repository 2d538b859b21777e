package vision

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"sync"
)

// Template is a reference raster for a UI element, held in grayscale.
type Template struct {
	ID   string
	Gray *image.Gray
}

func (t *Template) Size() image.Point {
	return t.Gray.Bounds().Size()
}

// TemplateStore loads template rasters from a directory and caches them by
// identifier. Identifiers are file names relative to the directory, e.g.
// "btn_solo.png".
type TemplateStore struct {
	dir string

	mu    sync.Mutex
	cache map[string]*Template
}

func NewTemplateStore(dir string) *TemplateStore {
	return &TemplateStore{
		dir:   dir,
		cache: make(map[string]*Template),
	}
}

// Load returns the template for id, reading it from disk on first use.
func (s *TemplateStore) Load(id string) (*Template, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if tpl, ok := s.cache[id]; ok {
		return tpl, nil
	}

	path := filepath.Join(s.dir, id)
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("template %s: %w", id, err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("template %s: decoding %s: %w", id, path, err)
	}

	tpl := &Template{ID: id, Gray: ToGray(img)}
	s.cache[id] = tpl

	return tpl, nil
}

// ToGray converts any image to 8-bit grayscale using the standard library
// luma conversion.
func ToGray(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok {
		return g
	}

	b := img.Bounds()
	gray := image.NewGray(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			gray.Set(x, y, img.At(x, y))
		}
	}

	return gray
}
