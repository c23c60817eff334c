package settings

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/edwinkarolczyk/Warsztat-Menager-sub000/internal/paths"
	"github.com/edwinkarolczyk/Warsztat-Menager-sub000/internal/util"
)

// AuditFileName is the JSON-lines change log kept in the logs directory.
const AuditFileName = "config_audit.jsonl"

// AutoHealUser is the audit user recorded for keys restored automatically.
const AutoHealUser = "auto-heal"

const secretMask = "***"

// AuditEntry is one line of the change log.
type AuditEntry struct {
	ID     string `json:"id"`
	TS     string `json:"ts"`
	User   string `json:"user"`
	Key    string `json:"key"`
	Before any    `json:"before"`
	After  any    `json:"after"`
}

// audit appends a change record. Failures are logged, never returned.
func (m *Manager) audit(user, key string, before, after any) {
	if m.isSecret(key) {
		before, after = mask(before), mask(after)
	}

	entry := AuditEntry{
		ID:     util.NewID(),
		TS:     util.FormatISO8601(m.clock.Now()),
		User:   user,
		Key:    key,
		Before: before,
		After:  after,
	}

	if err := appendLine(m.auditPath(), entry); err != nil {
		m.log.Warn().Err(err).Str("key", key).Msg("writing settings audit")
	}
}

func (m *Manager) isSecret(key string) bool {
	if f, ok := m.schema.Field(key); ok && f.TargetScope() == ScopeSecret {
		return true
	}
	_, ok := paths.Lookup(m.layers[layerSecrets], key)
	return ok
}

func mask(v any) any {
	if v == nil {
		return nil
	}
	return secretMask
}

func appendLine(path string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding audit entry: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return fmt.Errorf("creating audit directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0640)
	if err != nil {
		return fmt.Errorf("opening audit log: %w", err)
	}
	defer f.Close()

	_, err = f.Write(append(data, '\n'))
	return err
}
