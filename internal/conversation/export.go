package conversation

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// exportArtifact is the on-disk shape of an exported conversation.
type exportArtifact struct {
	ExportedAt time.Time `json:"exported_at"`
	Stats      Stats     `json:"stats"`
	Turns      []Turn    `json:"turns"`
}

// Export writes the current history and stats to a timestamped JSON file in
// dir and returns the file name. The snapshot is taken once, so concurrent
// appends during the write do not tear the artifact.
func (l *Log) Export(dir string) (string, error) {
	l.mu.Lock()
	turns := make([]Turn, len(l.turns))
	copy(turns, l.turns)
	l.mu.Unlock()

	artifact := exportArtifact{
		ExportedAt: time.Now(),
		Stats:      statsOf(turns),
		Turns:      turns,
	}

	data, err := json.MarshalIndent(artifact, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshaling conversation export: %w", err)
	}

	filename := fmt.Sprintf("derby_chat_%s.json", artifact.ExportedAt.Format("20060102_150405"))
	path := filepath.Join(dir, filename)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", fmt.Errorf("writing conversation export: %w", err)
	}

	return filename, nil
}

// statsOf computes Stats over a turn snapshot without taking the lock.
func statsOf(turns []Turn) Stats {
	tmp := Log{turns: turns}
	return tmp.Stats()
}
