package species

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestShortName(t *testing.T) {
	tests := []struct {
		name  string
		label Label
		want  string
	}{
		{"Canonical name is unchanged", TextLabel("setosa"), "setosa"},
		{"Prefixed name keeps suffix", TextLabel("Iris-versicolor"), "versicolor"},
		{"Upper case after split", TextLabel("IRIS-VIRGINICA"), "virginica"},
		{"Last hyphen wins", TextLabel("a-b-Setosa"), "setosa"},
		{"Trailing hyphen gives empty name", TextLabel("Iris-"), ""},
		{"Digit index", TextLabel("1"), "versicolor"},
		{"Zero padded index", TextLabel("02"), "virginica"},
		{"Out of table index falls back to text", TextLabel("99"), "99"},
		{"Overflowing index falls back to text", TextLabel("99999999999999999999999"), "99999999999999999999999"},
		{"Plain text is lower-cased", TextLabel("Virginica"), "virginica"},
		{"Numeric index label", IndexLabel(0), "setosa"},
		{"Unmapped numeric index", IndexLabel(7), "7"},
		{"Byte label", BytesLabel([]byte("Iris-setosa")), "setosa"},
		{"Byte label drops invalid bytes", BytesLabel([]byte{'s', 'e', 0xff, 't', 'o', 's', 'a'}), "setosa"},
		{"Empty text", TextLabel(""), ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, ShortName(tt.label))
		})
	}
}

func TestShortName_Idempotent(t *testing.T) {
	req := require.New(t)
	for _, name := range Names {
		once := ShortName(TextLabel(name))
		req.Equal(name, once)
		req.Equal(once, ShortName(TextLabel(once)))
	}
}

func TestLabel_KindAndString(t *testing.T) {
	req := require.New(t)

	raw := []byte("virginica")
	l := BytesLabel(raw)
	raw[0] = 'X'
	req.Equal(KindBytes, l.Kind())
	req.Equal("virginica", l.String(), "label must not alias the caller's buffer")

	req.Equal(KindIndex, IndexLabel(2).Kind())
	req.Equal("2", IndexLabel(2).String())
	req.Equal("text", KindText.String())
}

func TestResolver_Resolve(t *testing.T) {
	req := require.New(t)
	dir := t.TempDir()
	req.NoError(os.WriteFile(filepath.Join(dir, "setosa.jpg"), []byte{0xFF, 0xD8, 0xFF}, 0o644))
	req.NoError(os.Mkdir(filepath.Join(dir, "virginica.jpg"), 0o755))

	r := NewResolver(dir)

	res := r.Resolve(TextLabel("Iris-setosa"))
	req.True(res.Found)
	req.Equal("setosa", res.ShortName)
	req.Equal(filepath.Join(dir, "setosa.jpg"), res.Path)

	res = r.Resolve(TextLabel("versicolor"))
	req.False(res.Found, "mapped but missing on disk")
	req.Empty(res.Path)

	res = r.Resolve(TextLabel("virginica"))
	req.False(res.Found, "a directory is not an image")

	res = r.Resolve(TextLabel("99"))
	req.False(res.Found)
	req.Equal("99", res.ShortName)
}

func TestResolver_DefaultLayout(t *testing.T) {
	req := require.New(t)
	r := NewResolver("images")
	for _, name := range Names {
		p, ok := r.Path(name)
		req.True(ok)
		req.Equal("images/"+name+".jpg", filepath.ToSlash(p))
	}
	_, ok := r.Path("rose")
	req.False(ok)
	req.True(IsCanonical("setosa"))
	req.False(IsCanonical("Iris-setosa"))
}
