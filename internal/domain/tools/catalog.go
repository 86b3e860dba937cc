package tools

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/bytedance/sonic"
	"github.com/goccy/go-yaml"
	"github.com/pelletier/go-toml/v2"
)

var (
	ErrInvalidTool   = errors.New("invalid tool")
	ErrDuplicateTool = errors.New("duplicate tool")
	ErrUnknownFormat = errors.New("unknown catalog format")
)

// Tool describes an external program that can be launched for a connection
type Tool struct {
	DisplayName  string `yaml:"display_name" toml:"display_name" json:"display_name"`
	FileName     string `yaml:"file_name" toml:"file_name" json:"file_name"`
	Arguments    string `yaml:"arguments" toml:"arguments" json:"arguments"`
	WorkingDir   string `yaml:"working_dir" toml:"working_dir" json:"working_dir"`
	TryIntegrate bool   `yaml:"try_integrate" toml:"try_integrate" json:"try_integrate"`
	RunElevated  bool   `yaml:"run_elevated" toml:"run_elevated" json:"run_elevated"`
}

// Validate checks the fields required to launch the tool
func (t Tool) Validate() error {
	if strings.TrimSpace(t.DisplayName) == "" {
		return fmt.Errorf("%w: display_name is required", ErrInvalidTool)
	}
	if strings.TrimSpace(t.FileName) == "" {
		return fmt.Errorf("%w: %s: file_name is required", ErrInvalidTool, t.DisplayName)
	}
	return nil
}

// document is the on-disk shape of a catalog file
type document struct {
	Tools []Tool `yaml:"tools" toml:"tools" json:"tools"`
}

// Catalog resolves tool names to tool metadata. It is safe for concurrent use.
type Catalog struct {
	mu    sync.RWMutex
	tools map[string]Tool // keyed by display name
}

// NewCatalog creates a catalog holding the given tools
func NewCatalog(tools ...Tool) (*Catalog, error) {
	c := &Catalog{tools: make(map[string]Tool)}
	for _, t := range tools {
		if err := c.Add(t); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Add registers a tool; display names must be unique
func (c *Catalog) Add(t Tool) error {
	if err := t.Validate(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.tools[t.DisplayName]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateTool, t.DisplayName)
	}
	c.tools[t.DisplayName] = t
	return nil
}

// Lookup returns the tool with the given display name
func (c *Catalog) Lookup(name string) (Tool, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	t, ok := c.tools[name]
	return t, ok
}

// List returns all tools sorted by display name
func (c *Catalog) List() []Tool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]Tool, 0, len(c.tools))
	for _, t := range c.tools {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DisplayName < out[j].DisplayName })
	return out
}

// Len returns the number of tools
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.tools)
}

// Decode parses catalog data in the given format ("yaml", "toml" or "json")
func Decode(format string, data []byte) ([]Tool, error) {
	var doc document
	var err error

	switch strings.ToLower(format) {
	case "yaml", "yml":
		err = yaml.Unmarshal(data, &doc)
	case "toml":
		err = toml.Unmarshal(data, &doc)
	case "json":
		err = sonic.Unmarshal(data, &doc)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s catalog: %w", format, err)
	}
	return doc.Tools, nil
}

// LoadFile reads one catalog file; the format follows the extension
func LoadFile(path string) ([]Tool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}

	tools, err := Decode(strings.TrimPrefix(filepath.Ext(path), "."), data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return tools, nil
}

// Load builds a catalog from path. A file is loaded directly; a directory is
// searched with the doublestar pattern and every match is merged.
func Load(path, pattern string) (*Catalog, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat catalog: %w", err)
	}

	files := []string{path}
	if info.IsDir() {
		files, err = doublestar.FilepathGlob(filepath.Join(path, pattern))
		if err != nil {
			return nil, fmt.Errorf("glob catalog: %w", err)
		}
		sort.Strings(files)
	}

	c, _ := NewCatalog()
	for _, f := range files {
		tools, err := LoadFile(f)
		if err != nil {
			return nil, err
		}
		for _, t := range tools {
			if err := c.Add(t); err != nil {
				return nil, fmt.Errorf("%s: %w", f, err)
			}
		}
	}
	return c, nil
}
