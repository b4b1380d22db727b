// Package prompts loads the embedded prompt files used by the research strategies.
// Each file is a flat JSON object of key to prompt text; keys that take
// values are text/template templates rendered with Render.
package prompts

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"text/template"
)

//go:embed *.json
var promptFiles embed.FS

type promptFile struct {
	raw       map[string]string
	templates map[string]*template.Template
}

var (
	cache   = make(map[string]*promptFile)
	cacheMu sync.Mutex
)

// Get returns the raw prompt text for key in filename (e.g. "research.json").
func Get(filename, key string) (string, error) {
	f, err := loadFile(filename)
	if err != nil {
		return "", err
	}
	prompt, ok := f.raw[key]
	if !ok {
		return "", fmt.Errorf("prompt key %q not found in %s", key, filename)
	}
	return prompt, nil
}

// MustGet is Get for prompts that must exist; it panics otherwise.
func MustGet(filename, key string) string {
	prompt, err := Get(filename, key)
	if err != nil {
		panic(fmt.Sprintf("failed to load prompt: %v", err))
	}
	return prompt
}

// Render executes the prompt template for key with data. A field referenced
// by the template but missing from a map is an error.
func Render(filename, key string, data any) (string, error) {
	tmpl, err := lookupTemplate(filename, key)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render prompt %s/%s: %w", filename, key, err)
	}
	return buf.String(), nil
}

// MustRender is Render for built-in prompts; it panics on error.
func MustRender(filename, key string, data any) string {
	out, err := Render(filename, key, data)
	if err != nil {
		panic(fmt.Sprintf("failed to render prompt: %v", err))
	}
	return out
}

// List returns the prompt keys in filename, sorted.
func List(filename string) ([]string, error) {
	f, err := loadFile(filename)
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(f.raw))
	for key := range f.raw {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys, nil
}

// ClearCache drops parsed files and templates.
func ClearCache() {
	cacheMu.Lock()
	cache = make(map[string]*promptFile)
	cacheMu.Unlock()
}

func lookupTemplate(filename, key string) (*template.Template, error) {
	f, err := loadFile(filename)
	if err != nil {
		return nil, err
	}

	cacheMu.Lock()
	defer cacheMu.Unlock()
	if tmpl, ok := f.templates[key]; ok {
		return tmpl, nil
	}
	text, ok := f.raw[key]
	if !ok {
		return nil, fmt.Errorf("prompt key %q not found in %s", key, filename)
	}
	tmpl, err := template.New(key).Option("missingkey=error").Parse(text)
	if err != nil {
		return nil, fmt.Errorf("parse prompt %s/%s: %w", filename, key, err)
	}
	f.templates[key] = tmpl
	return tmpl, nil
}

func loadFile(filename string) (*promptFile, error) {
	cacheMu.Lock()
	defer cacheMu.Unlock()
	if f, ok := cache[filename]; ok {
		return f, nil
	}

	data, err := promptFiles.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read prompt file %s: %w", filename, err)
	}
	var raw map[string]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse prompt file %s: %w", filename, err)
	}

	f := &promptFile{raw: raw, templates: make(map[string]*template.Template)}
	cache[filename] = f
	return f, nil
}
