package theme

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// importRegex matches @import "file.css"; @import 'file.css'; and @import url("file.css");
var importRegex = regexp.MustCompile(`@import\s+(?:url\s*\(\s*)?["']([^"']+)["']\s*\)?;?`)

// Theme is a resolved stylesheet.
type Theme struct {
	Name    string
	Path    string // Empty for bundled themes
	CSS     string // With imports inlined
	ModTime time.Time
}

// Bundled reports whether the theme came from the binary.
func (t *Theme) Bundled() bool {
	return t.Path == ""
}

// FromFile loads a theme from disk.
func FromFile(name, path string) (*Theme, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return &Theme{
		Name:    name,
		Path:    path,
		CSS:     InlineImports(string(data), filepath.Dir(path), nil),
		ModTime: info.ModTime(),
	}, nil
}

// FromBundle loads a bundled theme.
func FromBundle(name string) (*Theme, bool) {
	css, ok := Bundled(name)
	if !ok {
		return nil, false
	}
	return &Theme{Name: name, CSS: InlineImports(css, "", nil)}, true
}

// InlineImports replaces @import statements with the imported CSS. Paths
// resolve against baseDir and then against the bundled themes; seen breaks
// import cycles.
func InlineImports(css, baseDir string, seen map[string]bool) string {
	if seen == nil {
		seen = make(map[string]bool)
	}

	return importRegex.ReplaceAllStringFunc(css, func(stmt string) string {
		m := importRegex.FindStringSubmatch(stmt)
		if len(m) < 2 {
			return stmt
		}
		target := m[1]

		full := target
		if !filepath.IsAbs(full) && baseDir != "" {
			full = filepath.Join(baseDir, target)
		}
		if seen[full] {
			return "/* skipped circular import: " + target + " */"
		}
		seen[full] = true

		if baseDir != "" || filepath.IsAbs(target) {
			if data, err := os.ReadFile(full); err == nil {
				return "/* " + target + " */\n" + InlineImports(string(data), filepath.Dir(full), seen)
			}
		}

		if css, ok := Bundled(strings.TrimSuffix(filepath.Base(target), ".css")); ok {
			return "/* " + target + " (bundled) */\n" + InlineImports(css, "", seen)
		}
		return "/* import not found: " + target + " */"
	})
}

// Reload re-reads a file-backed theme if it changed on disk. It reports
// whether the CSS changed.
func (t *Theme) Reload() (bool, error) {
	if t.Bundled() {
		return false, nil
	}
	info, err := os.Stat(t.Path)
	if err != nil {
		return false, err
	}
	if !info.ModTime().After(t.ModTime) {
		return false, nil
	}
	data, err := os.ReadFile(t.Path)
	if err != nil {
		return false, err
	}

	css := InlineImports(string(data), filepath.Dir(t.Path), nil)
	changed := css != t.CSS
	t.CSS = css
	t.ModTime = info.ModTime()
	return changed, nil
}
