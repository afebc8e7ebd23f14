package manifest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Format is the encoding of a manifest document.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// Variant is the schema of a manifest document.
type Variant string

const (
	// VariantAuto picks the schema from the document's top-level keys.
	VariantAuto Variant = "auto"
	// VariantFiles is the launcher "version files" document:
	// {files: {id: {hash, path, size, url, ...}}}.
	VariantFiles Variant = "files"
	// VariantPatches is the patch-set document:
	// {patches: [...], base_paks: [...]}.
	VariantPatches Variant = "patches"
)

// Options controls how decoded entries are resolved.
type Options struct {
	Variant Variant
	// DestDir prefixes every relative destination path.
	DestDir string
	// BaseURL is joined with the pak name for patch entries without a url.
	BaseURL string
}

// FormatFromPath infers the document encoding from its file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, filepath.Ext(path))
	}
}

// Load reads and decodes the manifest file at path.
func Load(path string, opts Options) (*Manifest, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening manifest: %w", err)
	}
	defer f.Close()

	m, err := Decode(f, format, opts)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}

	return m, nil
}

// Decode parses a manifest document. Fields the schema does not name are
// kept untouched in Entry.Extra.
func Decode(r io.Reader, format Format, opts Options) (*Manifest, error) {
	doc, err := decodeDocument(r, format)
	if err != nil {
		return nil, err
	}

	variant := opts.Variant
	if variant == "" || variant == VariantAuto {
		variant = detectVariant(doc)
	}

	var entries []Entry
	switch variant {
	case VariantFiles:
		entries, err = filesEntries(doc)
	case VariantPatches:
		entries, err = patchEntries(doc, opts.BaseURL)
	default:
		return nil, fmt.Errorf("%w: variant %q", ErrUnknownFormat, variant)
	}
	if err != nil {
		return nil, err
	}

	if opts.DestDir != "" {
		for i := range entries {
			if !filepath.IsAbs(entries[i].Path) {
				entries[i].Path = filepath.Join(opts.DestDir, entries[i].Path)
			}
		}
	}

	return New(entries)
}

func decodeDocument(r io.Reader, format Format) (map[string]any, error) {
	var doc map[string]any

	switch format {
	case FormatJSON:
		d := json.NewDecoder(r)
		d.UseNumber()
		if err := d.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decoding json: %w", err)
		}
	case FormatYAML:
		b, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("reading yaml: %w", err)
		}
		var root yaml.Node
		if err := yaml.NewDecoder(bytes.NewReader(b)).Decode(&root); err != nil {
			return nil, fmt.Errorf("decoding yaml: %w", err)
		}
		v, err := yamlValue(&root)
		if err != nil {
			return nil, fmt.Errorf("decoding yaml: %w", err)
		}
		if v != nil {
			m, ok := v.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("%w: top level is %T, want a mapping", ErrUnknownFormat, v)
			}
			doc = m
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}

	if doc == nil {
		return nil, fmt.Errorf("%w: empty document", ErrUnknownFormat)
	}

	return doc, nil
}

// yamlValue converts a node tree to generic values. Numeric scalars are
// kept as json.Number holding their source text, so an unquoted digest
// like 1234e5 or 0123 reads back exactly as written.
func yamlValue(n *yaml.Node) (any, error) {
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return nil, nil
		}
		return yamlValue(n.Content[0])
	case yaml.AliasNode:
		return yamlValue(n.Alias)
	case yaml.MappingNode:
		m := make(map[string]any, len(n.Content)/2)
		for i := 0; i+1 < len(n.Content); i += 2 {
			v, err := yamlValue(n.Content[i+1])
			if err != nil {
				return nil, err
			}
			m[n.Content[i].Value] = v
		}
		return m, nil
	case yaml.SequenceNode:
		list := make([]any, 0, len(n.Content))
		for _, c := range n.Content {
			v, err := yamlValue(c)
			if err != nil {
				return nil, err
			}
			list = append(list, v)
		}
		return list, nil
	case yaml.ScalarNode:
		switch n.ShortTag() {
		case "!!int", "!!float":
			return json.Number(n.Value), nil
		case "!!str":
			return n.Value, nil
		case "!!null":
			return nil, nil
		}
		var v any
		if err := n.Decode(&v); err != nil {
			return nil, fmt.Errorf("line %d: %w", n.Line, err)
		}
		return v, nil
	default:
		return nil, fmt.Errorf("line %d: unsupported yaml node kind %d", n.Line, n.Kind)
	}
}

func detectVariant(doc map[string]any) Variant {
	if _, ok := doc["files"]; ok {
		return VariantFiles
	}
	_, patches := doc["patches"]
	_, base := doc["base_paks"]
	if patches || base {
		return VariantPatches
	}
	return ""
}

// filesEntries maps {files: {id: {...}}} to entries sorted by id.
func filesEntries(doc map[string]any) ([]Entry, error) {
	files, ok := doc["files"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: files", ErrMissingField)
	}

	ids := make([]string, 0, len(files))
	for id := range files {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	entries := make([]Entry, 0, len(ids))
	for _, id := range ids {
		obj, ok := files[id].(map[string]any)
		if !ok {
			return nil, fmt.Errorf("files[%s]: %w: object", id, ErrMissingField)
		}

		e := Entry{ID: id, Extra: make(map[string]any)}
		var err error
		for k, v := range obj {
			switch k {
			case "hash":
				e.Hash, err = str(v)
			case "path":
				e.Path, err = str(v)
			case "url":
				e.URL, err = str(v)
			case "size":
				e.Size, err = toInt64(v)
			default:
				e.Extra[k] = v
			}
			if err != nil {
				return nil, fmt.Errorf("files[%s].%s: %w", id, k, err)
			}
		}

		if err := required(e, "hash", "path", "url"); err != nil {
			return nil, fmt.Errorf("files[%s]: %w", id, err)
		}
		entries = append(entries, e)
	}

	return entries, nil
}

// patchEntries maps {base_paks: [...], patches: [...]} to entries, base
// paks first, each list in document order.
func patchEntries(doc map[string]any, baseURL string) ([]Entry, error) {
	var entries []Entry

	for _, key := range []string{"base_paks", "patches"} {
		raw, ok := doc[key]
		if !ok || raw == nil {
			continue
		}
		list, ok := raw.([]any)
		if !ok {
			return nil, fmt.Errorf("%s: %w: list", key, ErrMissingField)
		}

		for i, item := range list {
			obj, ok := item.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("%s[%d]: %w: object", key, i, ErrMissingField)
			}

			e := Entry{Extra: make(map[string]any)}
			var err error
			for k, v := range obj {
				switch k {
				case "patch_pak":
					e.Path, err = str(v)
					e.ID = e.Path
				case "md5_hash":
					e.Hash, err = str(v)
				case "pak_file_size":
					e.Size, err = toInt64(v)
				case "url":
					e.URL, err = str(v)
				default:
					e.Extra[k] = v
				}
				if err != nil {
					return nil, fmt.Errorf("%s[%d].%s: %w", key, i, k, err)
				}
			}

			if e.URL == "" && baseURL != "" && e.Path != "" {
				e.URL = strings.TrimRight(baseURL, "/") + "/" + strings.TrimLeft(filepath.ToSlash(e.Path), "/")
			}

			if err := required(e, "patch_pak", "md5_hash", "url"); err != nil {
				return nil, fmt.Errorf("%s[%d]: %w", key, i, err)
			}
			entries = append(entries, e)
		}
	}

	return entries, nil
}

// required reports the first empty core field, named as the document names it.
func required(e Entry, pathKey, hashKey, urlKey string) error {
	switch {
	case e.Path == "":
		return fmt.Errorf("%w: %s", ErrMissingField, pathKey)
	case e.Hash == "":
		return fmt.Errorf("%w: %s", ErrMissingField, hashKey)
	case e.URL == "":
		return fmt.Errorf("%w: %s", ErrMissingField, urlKey)
	}
	return nil
}

func str(v any) (string, error) {
	switch s := v.(type) {
	case string:
		return s, nil
	case json.Number:
		return string(s), nil
	case nil:
		return "", nil
	default:
		return "", fmt.Errorf("expected string, got %T", v)
	}
}

func toInt64(v any) (int64, error) {
	switch n := v.(type) {
	case json.Number:
		return n.Int64()
	case int:
		return int64(n), nil
	case int64:
		return n, nil
	case uint64:
		if n > math.MaxInt64 {
			return 0, fmt.Errorf("size %d overflows int64", n)
		}
		return int64(n), nil
	case float64:
		return int64(n), nil
	case string:
		return strconv.ParseInt(n, 10, 64)
	case nil:
		return 0, nil
	default:
		return 0, fmt.Errorf("expected number, got %T", v)
	}
}
