package theme

import (
	"embed"
	"io/fs"
	"path"
	"slices"
	"strings"
)

// bundled holds the theme CSS shipped in the binary.
//
//go:embed themes/*.css
var bundled embed.FS

// DefaultName is the name of the built-in default theme.
const DefaultName = "default"

// Bundled returns a bundled theme or partial by name. The .css suffix is
// optional.
func Bundled(name string) (string, bool) {
	if !strings.HasSuffix(name, ".css") {
		name += ".css"
	}
	data, err := bundled.ReadFile(path.Join("themes", name))
	if err != nil {
		return "", false
	}
	return string(data), true
}

// BundledNames lists bundled themes, excluding partials (names starting
// with _).
func BundledNames() []string {
	entries, err := fs.ReadDir(bundled, "themes")
	if err != nil {
		return []string{DefaultName}
	}
	var names []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, "_") || path.Ext(name) != ".css" {
			continue
		}
		names = append(names, strings.TrimSuffix(name, ".css"))
	}
	slices.Sort(names)
	return names
}
