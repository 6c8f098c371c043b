// Package theme resolves the stylesheet injected with the toast container.
// Themes are looked up in ~/.config/toastd/themes/ first and then among the
// bundled themes; @import statements are inlined.
package theme
