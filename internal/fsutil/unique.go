package fsutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// EnsureUnique returns path unchanged when nothing exists there. Otherwise it
// appends _1.._100 to the stem until a free name is found and falls back to a
// millisecond timestamp suffix when even those are taken. File extensions are
// preserved; directory names take the suffix at the end, dots inside a folder
// name are not an extension.
func EnsureUnique(path string) string {
	info, err := os.Stat(path)
	if err != nil {
		return path
	}
	dir := filepath.Dir(path)
	ext := ""
	if !info.IsDir() {
		ext = filepath.Ext(path)
	}
	stem := strings.TrimSuffix(filepath.Base(path), ext)
	for i := 1; i <= 100; i++ {
		cand := filepath.Join(dir, fmt.Sprintf("%s_%d%s", stem, i, ext))
		if !exists(cand) {
			return cand
		}
	}
	return filepath.Join(dir, fmt.Sprintf("%s_%d%s", stem, time.Now().UnixMilli(), ext))
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
