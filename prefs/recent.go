// C:\Users\wasab\OneDrive\デスクトップ\DECOPRESS\prefs\recent.go
package prefs

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// MaxRecentFiles は最近使ったファイル一覧の上限です。
const MaxRecentFiles = 5

// RecentFiles は出力ファイルの履歴 (新しい順) をJSON配列で保存します。
type RecentFiles struct {
	path string
	mu   sync.Mutex
}

func NewRecentFiles(path string) *RecentFiles {
	return &RecentFiles{path: path}
}

func (r *RecentFiles) List() ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.load()
}

// Add は先頭に追加し、重複を取り除いて上限件数に切り詰めます。
func (r *RecentFiles) Add(path string) error {
	if path == "" {
		return nil
	}
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	files, err := r.load()
	if err != nil {
		files = nil
	}
	next := []string{path}
	for _, f := range files {
		if f != path {
			next = append(next, f)
		}
	}
	if len(next) > MaxRecentFiles {
		next = next[:MaxRecentFiles]
	}
	return r.save(next)
}

func (r *RecentFiles) Remove(path string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	files, err := r.load()
	if err != nil {
		return err
	}
	next := files[:0]
	for _, f := range files {
		if f != path {
			next = append(next, f)
		}
	}
	return r.save(next)
}

// Prune は既に存在しないファイルを一覧から外します。
func (r *RecentFiles) Prune() ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	files, err := r.load()
	if err != nil {
		return nil, err
	}
	var kept []string
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			kept = append(kept, f)
		}
	}
	if len(kept) != len(files) {
		if err := r.save(kept); err != nil {
			return nil, err
		}
	}
	return kept, nil
}

func (r *RecentFiles) load() ([]string, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to read recent files: %w", err)
	}
	var files []string
	if err := json.Unmarshal(data, &files); err != nil {
		return nil, fmt.Errorf("failed to parse recent files: %w", err)
	}
	if len(files) > MaxRecentFiles {
		files = files[:MaxRecentFiles]
	}
	return files, nil
}

func (r *RecentFiles) save(files []string) error {
	if files == nil {
		files = []string{}
	}
	data, err := json.Marshal(files)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(r.path), 0755); err != nil {
		return err
	}
	return os.WriteFile(r.path, data, 0644)
}
