package service

import "github.com/jmylchreest/xtreamctl/internal/diagnostics"

// ListDebug returns diagnostic files, newest first.
func (m *Manager) ListDebug() ([]diagnostics.Entry, error) {
	return m.debug.List()
}

// ReadDebug returns the content of a diagnostic file.
func (m *Manager) ReadDebug(name string) (string, error) {
	return m.debug.Read(name)
}

// DebugDir returns the diagnostics directory.
func (m *Manager) DebugDir() string {
	return m.debug.Dir()
}
