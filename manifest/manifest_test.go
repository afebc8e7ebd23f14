package manifest

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

const versionFiles = `{
	"version": "309402",
	"displayVersion": "1.0.3",
	"command": {"exe": "game.exe", "params": ""},
	"asset": {"current": "cn", "assets": [{"name": "cn", "value": "cn"}]},
	"files": {
		"b": {"hash": "d41d8cd98f00b204e9800998ecf8427e", "path": "Game/b.pak", "size": 0, "url": "https://cdn.example.com/b.pak", "isDownloaded": 0, "downloadedSize": 0},
		"a": {"hash": "0cc175b9c0f1b6a831c399e269772661", "path": "Game/a.pak", "size": 1, "url": "https://cdn.example.com/a.pak", "isDownloaded": 1, "downloadedSize": 1}
	}
}`

func TestDecode_FilesVariant(t *testing.T) {
	m, err := Decode(strings.NewReader(versionFiles), FormatJSON, Options{DestDir: "out"})
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	got := m.Entries()
	if len(got) != 2 {
		t.Fatalf("entries = %d, want 2", len(got))
	}

	want := Entry{
		ID:   "a",
		Path: filepath.Join("out", "Game/a.pak"),
		Hash: "0cc175b9c0f1b6a831c399e269772661",
		Size: 1,
		URL:  "https://cdn.example.com/a.pak",
	}
	if diff := cmp.Diff(want, got[0], cmpIgnoreExtra()); diff != "" {
		t.Errorf("first entry mismatch (-want +got):\n%s", diff)
	}
	if got[1].ID != "b" {
		t.Errorf("entries not sorted by id: second = %q", got[1].ID)
	}
	if _, ok := got[0].Extra["isDownloaded"]; !ok {
		t.Error("extra field isDownloaded was dropped")
	}
	if m.TotalSize() != 1 {
		t.Errorf("total size = %d, want 1", m.TotalSize())
	}
}

func TestDecode_PatchVariant(t *testing.T) {
	doc := `
base_paks:
  - patch_pak: base/0.pak
    pak_file_size: 10
    md5_hash: 0cc175b9c0f1b6a831c399e269772661
    channel: stable
patches:
  - patch_pak: patch/1.pak
    pak_file_size: 20
    md5_hash: 92eb5ffee6ae2fec3ad71c777531578f
    url: https://mirror.example.com/p1.pak
`
	m, err := Decode(strings.NewReader(doc), FormatYAML, Options{BaseURL: "https://cdn.example.com/paks/"})
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	got := m.Entries()
	want := []Entry{
		{ID: "base/0.pak", Path: "base/0.pak", Hash: "0cc175b9c0f1b6a831c399e269772661", Size: 10, URL: "https://cdn.example.com/paks/base/0.pak"},
		{ID: "patch/1.pak", Path: "patch/1.pak", Hash: "92eb5ffee6ae2fec3ad71c777531578f", Size: 20, URL: "https://mirror.example.com/p1.pak"},
	}
	if diff := cmp.Diff(want, got, cmpIgnoreExtra()); diff != "" {
		t.Errorf("entries mismatch (-want +got):\n%s", diff)
	}
	if got[0].Extra["channel"] != "stable" {
		t.Errorf("extra channel = %v, want stable", got[0].Extra["channel"])
	}
}

func TestDecode_YAMLUnquotedNumericHash(t *testing.T) {
	tests := []struct {
		name string
		hash string
	}{
		{name: "digits only", hash: "12345678901234567890123456789012"},
		{name: "digits with exponent", hash: "1234567e890123456789012345678901"},
		{name: "leading zero", hash: "0123"},
		{name: "small exponent", hash: "12e3"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			doc := "files:\n  a:\n    hash: " + tc.hash + "\n    path: a.pak\n    size: 3\n    url: https://cdn.example.com/a.pak\n"

			m, err := Decode(strings.NewReader(doc), FormatYAML, Options{})
			if err != nil {
				t.Fatalf("decode: %v", err)
			}

			got := m.Entries()[0]
			if got.Hash != tc.hash {
				t.Errorf("hash = %q, want %q", got.Hash, tc.hash)
			}
			if got.Size != 3 {
				t.Errorf("size = %d, want 3", got.Size)
			}
		})
	}
}

func TestDecode_YAMLTopLevelNotMapping(t *testing.T) {
	_, err := Decode(strings.NewReader("- a\n- b\n"), FormatYAML, Options{})
	if !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("exp ErrUnknownFormat, got: %v", err)
	}
}

func TestDecode_Errors(t *testing.T) {
	tests := []struct {
		name   string
		doc    string
		opts   Options
		expErr error
	}{
		{
			name:   "duplicate path",
			doc:    `{"files": {"a": {"hash": "x", "path": "p", "url": "u"}, "b": {"hash": "y", "path": "./p", "url": "v"}}}`,
			expErr: ErrDuplicatePath,
		},
		{
			name:   "missing url",
			doc:    `{"files": {"a": {"hash": "x", "path": "p"}}}`,
			expErr: ErrMissingField,
		},
		{
			name:   "patch without url or base",
			doc:    `{"patches": [{"patch_pak": "p", "md5_hash": "x"}]}`,
			expErr: ErrMissingField,
		},
		{
			name:   "unrecognised document",
			doc:    `{"something": 1}`,
			expErr: ErrUnknownFormat,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(tc.doc), FormatJSON, tc.opts)
			if !errors.Is(err, tc.expErr) {
				t.Errorf("exp err %v; got: %v", tc.expErr, err)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "version_files.json")
	if err := os.WriteFile(path, []byte(versionFiles), 0o644); err != nil {
		t.Fatalf("writing manifest: %v", err)
	}

	m, err := Load(path, Options{})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if m.Len() != 2 {
		t.Errorf("len = %d, want 2", m.Len())
	}

	if _, err := Load(filepath.Join(t.TempDir(), "m.toml"), Options{}); !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("exp ErrUnknownFormat for .toml, got: %v", err)
	}
}

func TestManifest_EntriesIsCopy(t *testing.T) {
	m, err := New([]Entry{{ID: "a", Path: "a"}})
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	m.Entries()[0].Path = "mutated"
	if m.Entries()[0].Path != "a" {
		t.Error("manifest entries were mutated through Entries()")
	}
}

func cmpIgnoreExtra() cmp.Option {
	return cmp.FilterPath(func(p cmp.Path) bool {
		return p.Last().String() == ".Extra"
	}, cmp.Ignore())
}
