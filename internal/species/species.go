// Package species turns raw classifier labels into canonical iris species
// names and resolves the image shown for each of them.
package species

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/samber/lo"
)

const (
	Setosa     = "setosa"
	Versicolor = "versicolor"
	Virginica  = "virginica"
)

// Names lists the canonical species in class index order.
var Names = []string{Setosa, Versicolor, Virginica}

// IsCanonical reports whether name is one of Names.
func IsCanonical(name string) bool {
	return lo.Contains(Names, name)
}

// ShortName normalizes a label to its canonical short name. The first
// matching rule wins:
//
//   - "Iris-setosa" style text keeps the part after the last hyphen, lower-cased
//   - all-digit text is looked up in the class index table
//   - anything else is lower-cased
//
// An index outside the table is returned as the original text, so it will
// not resolve to an image.
func ShortName(l Label) string {
	text := l.String()

	if i := strings.LastIndex(text, "-"); i >= 0 {
		return strings.ToLower(text[i+1:])
	}

	if isDigits(text) {
		idx, err := strconv.Atoi(text)
		if err == nil && idx < len(Names) {
			return Names[idx]
		}
		return text
	}

	return strings.ToLower(text)
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// Resolution is the result of looking up the image for a label. Found is
// false when the short name has no mapping or the file is missing; that is
// a warning for the caller, not an error.
type Resolution struct {
	ShortName string
	Path      string
	Found     bool
}

// Resolver maps canonical species names to image files. It is immutable
// once built.
type Resolver struct {
	images map[string]string
}

// NewResolver maps every canonical species to <dir>/<name>.jpg.
func NewResolver(dir string) *Resolver {
	images := lo.SliceToMap(Names, func(name string) (string, string) {
		return name, filepath.Join(dir, name+".jpg")
	})
	return &Resolver{images: images}
}

// Path returns the mapped image path for a short name, without checking
// the filesystem.
func (r *Resolver) Path(short string) (string, bool) {
	p, ok := r.images[short]
	return p, ok
}

func (r *Resolver) Resolve(l Label) Resolution {
	short := ShortName(l)
	res := Resolution{ShortName: short}

	path, ok := r.images[short]
	if !ok {
		return res
	}

	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return res
	}

	res.Path = path
	res.Found = true
	return res
}
