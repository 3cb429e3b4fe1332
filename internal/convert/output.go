package convert

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/helixir/research-graph/internal/serialize"
	"github.com/helixir/research-graph/internal/store"
)

// WriteGraphFile serializes g to path, creating parent directories. The
// file is written to a temporary name first and renamed into place.
func WriteGraphFile(path string, g *store.Graph, f serialize.Format) error {
	data, err := serialize.Marshal(g, f)
	if err != nil {
		return fmt.Errorf("failed to serialize graph: %w", err)
	}
	return writeAtomic(path, data)
}

// WriteReportFile renders the report for s to path.
func WriteReportFile(path string, s *Summary) error {
	var buf bytes.Buffer
	if err := WriteReport(&buf, s); err != nil {
		return err
	}
	return writeAtomic(path, buf.Bytes())
}

func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to set permissions on %s: %w", path, err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to move %s into place: %w", path, err)
	}
	return nil
}
