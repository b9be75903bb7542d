package pattern

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const timestampLayout = "2006-01-02_15-04-05"

// Marshal encodes p as a YAML pattern document.
func Marshal(p Pattern) ([]byte, error) {
	data, err := yaml.Marshal(p)
	if err != nil {
		return nil, errors.Wrapf(err, "marshal pattern %q", p.Name)
	}
	return data, nil
}

// FileName returns the save name for a pattern: 2006-01-02_15-04-05_name.yaml
func FileName(name string, now time.Time) string {
	base := now.Format(timestampLayout)
	if safe := sanitizeFilename(name); safe != "" {
		base += "_" + safe
	}
	return base + ".yaml"
}

// Save writes p into dir ("~" is expanded), creating it if needed, and returns
// the file path. Earlier saves are kept; the newest sorts last so LoadDir
// lets it win.
func Save(dir string, p Pattern, now time.Time) (string, error) {
	dir, err := homedir.Expand(dir)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", errors.Wrap(err, "create pattern dir")
	}
	data, err := Marshal(p)
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, FileName(p.Name, now))
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", errors.Wrap(err, "write pattern")
	}
	return path, nil
}

// sanitizeFilename removes/replaces characters that are problematic in filenames
func sanitizeFilename(name string) string {
	r := strings.NewReplacer(
		" ", "-", "/", "-", "\\", "-", ":", "-",
		"*", "", "?", "", "\"", "", "<", "", ">", "", "|", "",
	)
	return r.Replace(strings.TrimSpace(name))
}
