// Package syncq stores write commands issued while the API is
// unreachable so they can be replayed later in order.
package syncq

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"time"
)

type Command struct {
	Method         string         `json:"method"`
	Path           string         `json:"path"`
	Body           map[string]any `json:"body,omitempty"`
	IdempotencyKey string         `json:"idempotency_key"`
	QueuedAt       time.Time      `json:"queued_at"`
}

func queuePath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	dir := filepath.Join(home, ".magnate")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", err
	}
	return filepath.Join(dir, "queue.json"), nil
}

func Load() ([]Command, error) {
	path, err := queuePath()
	if err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var cmds []Command
	if err := json.Unmarshal(raw, &cmds); err != nil {
		return nil, err
	}
	return cmds, nil
}

func Save(cmds []Command) error {
	path, err := queuePath()
	if err != nil {
		return err
	}
	raw, err := json.MarshalIndent(cmds, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, raw, 0o600)
}

func Push(cmd Command) error {
	cmds, err := Load()
	if err != nil {
		return err
	}
	if cmd.QueuedAt.IsZero() {
		cmd.QueuedAt = time.Now().UTC()
	}
	cmds = append(cmds, cmd)
	return Save(cmds)
}
