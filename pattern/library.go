package pattern

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/mitchellh/go-homedir"
	"github.com/pkg/errors"
)

// Library is a set of patterns addressed by name. Built-ins are always
// present; patterns loaded from disk with the same name replace them.
type Library struct {
	mu       sync.RWMutex
	patterns map[string]Pattern
	order    []string
}

// NewLibrary returns a library holding the built-in patterns.
func NewLibrary() *Library {
	l := &Library{patterns: make(map[string]Pattern)}
	for _, p := range Builtins() {
		l.Add(p)
	}
	return l
}

// Add stores p, keeping first-seen order for names.
func (l *Library) Add(p Pattern) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.patterns[p.Name]; !ok {
		l.order = append(l.order, p.Name)
	}
	l.patterns[p.Name] = p
}

// Names lists patterns in the order they were added.
func (l *Library) Names() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]string(nil), l.order...)
}

// Get looks up a pattern by name.
func (l *Library) Get(name string) (Pattern, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	p, ok := l.patterns[name]
	if !ok {
		return Pattern{}, errors.Wrapf(ErrUnknownName, "%q", name)
	}
	return p, nil
}

// Load reads a single pattern file. An unnamed pattern takes the file's base
// name.
func (l *Library) Load(path string) (Pattern, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Pattern{}, errors.Wrap(err, "read pattern")
	}
	p, err := Parse(data)
	if err != nil {
		return Pattern{}, errors.Wrapf(err, "%s", path)
	}
	if p.Name == "" {
		p.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	l.Add(p)
	return p, nil
}

// LoadDir loads every .yaml/.yml file in dir ("~" is expanded), in name
// order. A missing directory is not an error. Files that fail to parse are
// skipped and reported together.
func (l *Library) LoadDir(dir string) (int, error) {
	dir, err := homedir.Expand(dir)
	if err != nil {
		return 0, err
	}
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, errors.Wrap(err, "read pattern dir")
	}

	var files []string
	for _, e := range entries {
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if e.IsDir() || (ext != ".yaml" && ext != ".yml") {
			continue
		}
		files = append(files, e.Name())
	}
	sort.Strings(files)

	var failed []string
	loaded := 0
	for _, name := range files {
		if _, err := l.Load(filepath.Join(dir, name)); err != nil {
			failed = append(failed, err.Error())
			continue
		}
		loaded++
	}
	if len(failed) > 0 {
		return loaded, errors.Errorf("%d pattern file(s) failed: %s", len(failed), strings.Join(failed, "; "))
	}
	return loaded, nil
}
