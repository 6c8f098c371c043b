// Package dbus exposes the toast center on the session bus as
// io.github.jmylchreest.Toastd1, provides a client for it, and can mirror
// org.freedesktop.Notifications traffic into toasts.
package dbus
