package settings

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/edwinkarolczyk/Warsztat-Menager-sub000/internal/jsonio"
	"github.com/edwinkarolczyk/Warsztat-Menager-sub000/internal/util"
)

// RollbackKeep is the backup retention used when backup.keep_last is unset.
const RollbackKeep = 10

const backupPrefix = "config_"

// backup copies the global layer into dir as config_<stamp>.json. When the
// global file does not exist yet the current in-memory layer is written
// instead. Returns the backup path.
func (m *Manager) backup(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0750); err != nil {
		return "", fmt.Errorf("creating backup directory: %w", err)
	}

	stamp := m.clock.Now().Format(util.StampFormat)
	dst := filepath.Join(dir, backupPrefix+stamp+".json")
	for i := 1; fileExists(dst); i++ {
		dst = filepath.Join(dir, fmt.Sprintf("%s%s-%d.json", backupPrefix, stamp, i))
	}

	err := copyFile(m.layerPath(layerGlobal), dst)
	if errors.Is(err, fs.ErrNotExist) {
		err = jsonio.Write(dst, m.layers[layerGlobal])
	}
	if err != nil {
		return "", fmt.Errorf("creating backup: %w", err)
	}

	m.log.Debug().Str("path", dst).Msg("settings backup created")
	return dst, nil
}

// pruneBackups keeps the newest keep backups in dir and removes the rest.
func (m *Manager) pruneBackups(dir string, keep int) {
	if keep <= 0 {
		keep = RollbackKeep
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		m.log.Warn().Err(err).Msg("reading backup directory")
		return
	}

	var names []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, backupPrefix) || filepath.Ext(name) != ".json" {
			continue
		}
		names = append(names, name)
	}
	if len(names) <= keep {
		return
	}

	// Stamps sort lexically; newest last.
	sort.Strings(names)
	for _, name := range names[:len(names)-keep] {
		path := filepath.Join(dir, name)
		if err := os.Remove(path); err != nil {
			m.log.Warn().Err(err).Str("path", path).Msg("removing old backup")
		} else {
			m.log.Debug().Str("path", path).Msg("removed old backup")
		}
	}
}

func copyFile(src, dst string) error {
	srcFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer srcFile.Close()

	dstFile, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("creating destination: %w", err)
	}
	defer dstFile.Close()

	if _, err := io.Copy(dstFile, srcFile); err != nil {
		return fmt.Errorf("copying data: %w", err)
	}
	return dstFile.Sync()
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
