package catalog

import (
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/spf13/afero"

	"github.com/kbukum/gostream/errors"
	"github.com/kbukum/gostream/logger"
	"github.com/kbukum/gostream/pipeline"
)

const resource = "file"

// Entry describes one resource in the catalog.
type Entry struct {
	Name    string    `json:"name"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"mod_time"`
}

// Catalog resolves public names to files under a root directory.
// It is safe for concurrent use as long as the underlying Fs is.
type Catalog struct {
	fs  afero.Fs
	cfg Config
	log *logger.Logger
}

// New returns a catalog over fs.
func New(fs afero.Fs, cfg Config, log *logger.Logger) *Catalog {
	cfg.ApplyDefaults()
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	return &Catalog{fs: fs, cfg: cfg, log: log.WithComponent("catalog")}
}

// NewOS returns a catalog over the host filesystem.
func NewOS(cfg Config, log *logger.Logger) *Catalog {
	return New(afero.NewOsFs(), cfg, log)
}

// Root returns the root directory.
func (c *Catalog) Root() string { return c.cfg.Root }

// EnsureRoot creates the root directory when it does not exist.
func (c *Catalog) EnsureRoot() error {
	exists, err := afero.DirExists(c.fs, c.cfg.Root)
	if err != nil {
		return fmt.Errorf("checking catalog root %s: %w", c.cfg.Root, err)
	}
	if exists {
		return nil
	}
	if err := c.fs.MkdirAll(c.cfg.Root, 0o755); err != nil {
		return fmt.Errorf("creating catalog root %s: %w", c.cfg.Root, err)
	}
	c.log.Info("Catalog root created", map[string]interface{}{"root": c.cfg.Root})
	return nil
}

// resolve maps name to a path under the root without touching the
// filesystem. Names that are not a single path element are rejected.
func (c *Catalog) resolve(name string) (string, bool) {
	if rel, ok := c.cfg.Files[name]; ok {
		if !filepath.IsLocal(rel) {
			return "", false
		}
		return filepath.Join(c.cfg.Root, rel), true
	}
	if !validName(name) {
		return "", false
	}
	return filepath.Join(c.cfg.Root, name), true
}

func validName(name string) bool {
	return name != "" && name != "." && name != ".." &&
		filepath.Base(name) == name && filepath.IsLocal(name)
}

// Lookup returns the path of an existing regular file registered as name.
// Unknown names, missing files and directories yield a NOT_FOUND error.
func (c *Catalog) Lookup(name string) (string, error) {
	path, ok := c.resolve(name)
	if !ok {
		return "", errors.NotFound(resource, name)
	}
	info, err := c.fs.Stat(path)
	if err != nil {
		if stderrors.Is(err, os.ErrNotExist) {
			return "", errors.NotFound(resource, name)
		}
		return "", errors.Internal(err).WithDetail("id", name)
	}
	if !info.Mode().IsRegular() {
		return "", errors.NotFound(resource, name)
	}
	return path, nil
}

// Open opens the resource for reading.
func (c *Catalog) Open(name string) (afero.File, error) {
	path, err := c.Lookup(name)
	if err != nil {
		return nil, err
	}
	return c.fs.Open(path)
}

// Source returns a pipeline source streaming the resource. The file is only
// opened once the pipeline pulls its first chunk.
func (c *Catalog) Source(name string) (pipeline.Source, error) {
	path, err := c.Lookup(name)
	if err != nil {
		return nil, err
	}
	return pipeline.FromFile(c.fs, path, c.cfg.ReadSize), nil
}

// Read returns the whole content of the resource.
func (c *Catalog) Read(name string) ([]byte, error) {
	path, err := c.Lookup(name)
	if err != nil {
		return nil, err
	}
	return afero.ReadFile(c.fs, path)
}

// Write creates or replaces the resource with data.
func (c *Catalog) Write(name string, data []byte) error {
	path, ok := c.resolve(name)
	if !ok {
		return errors.InvalidInput("name", fmt.Sprintf("%q is not a valid file name", name))
	}
	if err := c.fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating directory for %s: %w", name, err)
	}
	if err := afero.WriteFile(c.fs, path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", name, err)
	}
	c.log.Debug("File written", map[string]interface{}{"name": name, "bytes": len(data)})
	return nil
}

// List returns every mapped resource that exists plus the regular files
// directly under the root, sorted by name.
func (c *Catalog) List() ([]Entry, error) {
	seen := make(map[string]bool)
	var entries []Entry

	for name := range c.cfg.Files {
		path, ok := c.resolve(name)
		if !ok {
			continue
		}
		info, err := c.fs.Stat(path)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		seen[path] = true
		entries = append(entries, Entry{Name: name, Size: info.Size(), ModTime: info.ModTime()})
	}

	infos, err := afero.ReadDir(c.fs, c.cfg.Root)
	if err != nil && !stderrors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("listing %s: %w", c.cfg.Root, err)
	}
	for _, info := range infos {
		if !info.Mode().IsRegular() {
			continue
		}
		if seen[filepath.Join(c.cfg.Root, info.Name())] {
			continue
		}
		entries = append(entries, Entry{Name: info.Name(), Size: info.Size(), ModTime: info.ModTime()})
	}

	slices.SortFunc(entries, func(a, b Entry) int { return strings.Compare(a.Name, b.Name) })
	return entries, nil
}
