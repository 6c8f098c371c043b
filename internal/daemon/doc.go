// Package daemon provides the main orchestration for toastd.
// It owns the toast service and wires the D-Bus, HTTP and Redis trigger
// surfaces, the history recorder, sounds, themes, metrics and configuration
// hot-reload around it.
package daemon
