package sim

import (
	"sync"

	"gopiezo/host/melody"
	"gopiezo/standalone/songs"
)

// BookLibrary serves melodies from a YAML book, reloadable while the
// simulator runs, with the built-in scores after them
type BookLibrary struct {
	path string

	mu   sync.RWMutex
	book *melody.Book
}

// LoadLibrary reads the book at path. An empty path gives only the
// built-in scores.
func LoadLibrary(path string) (*BookLibrary, error) {
	l := &BookLibrary{path: path}
	if path == "" {
		return l, nil
	}
	if err := l.Reload(); err != nil {
		return nil, err
	}
	return l, nil
}

// Reload re-reads the book. On error the previous book stays in use.
func (l *BookLibrary) Reload() error {
	if l.path == "" {
		return nil
	}
	book, err := melody.Load(l.path)
	if err != nil {
		return err
	}
	l.mu.Lock()
	l.book = book
	l.mu.Unlock()
	return nil
}

func (l *BookLibrary) Names() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var names []string
	if l.book != nil {
		names = l.book.Names()
	}
	for i := 0; i < songs.Count(); i++ {
		if s, err := songs.Builtin(i); err == nil {
			names = append(names, s.Name)
		}
	}
	return names
}

func (l *BookLibrary) Resolve(name string) ([]int, int, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return melody.Resolve(l.book, name)
}
