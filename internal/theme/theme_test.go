package theme

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInlineImports_NoImports(t *testing.T) {
	css := `.toast { color: red; }`
	assert.Equal(t, css, InlineImports(css, "", nil))
}

func TestInlineImports_FileImport(t *testing.T) {
	tmpDir := t.TempDir()
	err := os.WriteFile(filepath.Join(tmpDir, "_custom.css"), []byte(`:root { --custom: #ff0000; }`), 0644)
	require.NoError(t, err)

	result := InlineImports(`@import "_custom.css";
.toast { color: var(--custom); }`, tmpDir, nil)

	assert.Contains(t, result, "/* _custom.css */")
	assert.Contains(t, result, "--custom: #ff0000")
	assert.NotContains(t, result, "@import")
}

func TestInlineImports_Nested(t *testing.T) {
	tmpDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "_inner.css"), []byte(`.inner {}`), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "_outer.css"), []byte(`@import "_inner.css";
.outer {}`), 0644))

	result := InlineImports(`@import url("_outer.css");`, tmpDir, nil)

	assert.Contains(t, result, ".inner {}")
	assert.Contains(t, result, ".outer {}")
}

func TestInlineImports_Circular(t *testing.T) {
	tmpDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "_a.css"), []byte(`@import "_b.css";
.a {}`), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "_b.css"), []byte(`@import "_a.css";
.b {}`), 0644))

	result := InlineImports(`@import "_a.css";`, tmpDir, nil)

	assert.Contains(t, result, "skipped circular import")
	assert.Contains(t, result, ".a {}")
	assert.Contains(t, result, ".b {}")
}

func TestInlineImports_BundledFallback(t *testing.T) {
	result := InlineImports(`@import "_base.css";`, t.TempDir(), nil)
	assert.Contains(t, result, "(bundled)")
	assert.Contains(t, result, ".toast-container")
}

func TestInlineImports_Missing(t *testing.T) {
	result := InlineImports(`@import "_nope.css";`, t.TempDir(), nil)
	assert.Contains(t, result, "import not found: _nope.css")
}

func TestBundled(t *testing.T) {
	css, ok := Bundled("default")
	require.True(t, ok)
	assert.Contains(t, css, "@import")

	_, ok = Bundled("default.css")
	assert.True(t, ok)

	_, ok = Bundled("missing")
	assert.False(t, ok)

	names := BundledNames()
	assert.Equal(t, []string{"default", "minimal"}, names)
}

func TestFromBundle(t *testing.T) {
	th, ok := FromBundle("default")
	require.True(t, ok)
	assert.True(t, th.Bundled())
	assert.Contains(t, th.CSS, ".toast--visible")
	assert.NotContains(t, th.CSS, "@import")

	changed, err := th.Reload()
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestTheme_Reload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mine.css")
	require.NoError(t, os.WriteFile(path, []byte(`.toast { color: red; }`), 0644))

	th, err := FromFile("mine", path)
	require.NoError(t, err)
	assert.False(t, th.Bundled())

	changed, err := th.Reload()
	require.NoError(t, err)
	assert.False(t, changed)

	require.NoError(t, os.WriteFile(path, []byte(`.toast { color: blue; }`), 0644))
	future := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(path, future, future))

	changed, err = th.Reload()
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Contains(t, th.CSS, "blue")
}

func TestLoader(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "custom.css"), []byte(`@import "_base.css";
.toast { background: hotpink; }`), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "_partial.css"), []byte(`.x {}`), 0644))

	l := NewLoader(dir, nil)
	assert.Equal(t, "", l.Name())
	assert.Contains(t, l.CSS(), ".toast-container")
	assert.Equal(t, DefaultName, l.Name())

	th := l.Load("custom")
	assert.Equal(t, "custom", th.Name)
	assert.Contains(t, l.CSS(), "hotpink")
	assert.Contains(t, l.CSS(), ".toast-container")

	th = l.Load("does-not-exist")
	assert.Equal(t, DefaultName, th.Name)

	assert.Equal(t, []string{"custom", "default", "minimal"}, l.Names())
}

func TestLoader_NoUserDir(t *testing.T) {
	l := NewLoader("", nil)
	assert.Equal(t, "minimal", l.Load("minimal").Name)
	assert.Equal(t, BundledNames(), l.Names())
}

func TestWatcher_DetectsChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "live.css")
	require.NoError(t, os.WriteFile(path, []byte(`.toast { color: red; }`), 0644))
	th, err := FromFile("live", path)
	require.NoError(t, err)

	changes := make(chan string, 1)
	w := NewWatcher(th, nil)
	w.SetPollInterval(10 * time.Millisecond)
	w.SetChangeCallback(func(css string) {
		select {
		case changes <- css:
		default:
		}
	})
	w.Start(t.Context())
	defer w.Stop()

	require.NoError(t, os.WriteFile(path, []byte(`.toast { color: green; }`), 0644))
	future := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(path, future, future))

	select {
	case css := <-changes:
		assert.Contains(t, css, "green")
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not report change")
	}
}
