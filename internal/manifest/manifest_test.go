package manifest

import (
	"testing"
	"time"
)

func order(v float64) *float64 { return &v }

func TestManifestSerialization(t *testing.T) {
	m := &Manifest{
		Version:     Version,
		BuildID:     "build-123",
		GeneratedAt: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
		Mode:        ModeFolders,
		OptionsHash: "abc",
		Docs: []DocMeta{
			{Slug: "index", Path: "index.md", Title: "Home", ModTime: 1700000000123, Size: 42},
			{Slug: "guide/install", Path: "guide/install.md", Folder: "guide", Title: "Install", Order: order(2)},
		},
		Folders: []string{RootChunk, "guide"},
	}

	data, err := m.ToJSON(false)
	if err != nil {
		t.Fatalf("ToJSON failed: %v", err)
	}

	restored, err := FromJSON(data)
	if err != nil {
		t.Fatalf("FromJSON failed: %v", err)
	}
	if restored.BuildID != m.BuildID {
		t.Errorf("expected BuildID %s, got %s", m.BuildID, restored.BuildID)
	}
	if restored.Mode != ModeFolders {
		t.Errorf("expected mode folders, got %s", restored.Mode)
	}
	if len(restored.Docs) != 2 || restored.Docs[0].ModTime != 1700000000123 {
		t.Errorf("docs not preserved: %+v", restored.Docs)
	}
	if restored.Docs[1].Order == nil || *restored.Docs[1].Order != 2 {
		t.Errorf("order not preserved: %+v", restored.Docs[1].Order)
	}
}

func TestFromJSON_RejectsUnknownMode(t *testing.T) {
	if _, err := FromJSON([]byte(`{"version":1,"mode":"zip","docs":[]}`)); err == nil {
		t.Fatal("expected error for unknown mode")
	}
	if _, err := FromJSON([]byte(`{not json`)); err == nil {
		t.Fatal("expected error for invalid JSON")
	}
}

func TestSort(t *testing.T) {
	docs := []DocMeta{
		{Slug: "guide/b", Folder: "guide", Title: "Beta"},
		{Slug: "api/x", Folder: "api", Title: "X"},
		{Slug: "guide/a", Folder: "guide", Title: "alpha"},
		{Slug: "guide/z", Folder: "guide", Title: "Zed", Order: order(1)},
		{Slug: "intro", Folder: "", Title: "Intro"},
		{Slug: "index", Folder: "", Title: "Home", Order: order(0)},
	}
	Sort(docs)

	want := []string{"index", "intro", "api/x", "guide/z", "guide/a", "guide/b"}
	for i, slug := range want {
		if docs[i].Slug != slug {
			t.Fatalf("position %d: expected %s, got %s", i, slug, docs[i].Slug)
		}
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		m       Manifest
		wantErr bool
	}{
		{
			name: "single ok",
			m:    Manifest{Mode: ModeSingle, Docs: []DocMeta{{Slug: "a", Path: "a.md"}}},
		},
		{
			name:    "duplicate slug",
			m:       Manifest{Mode: ModeSingle, Docs: []DocMeta{{Slug: "a", Path: "a.md"}, {Slug: "a", Path: "A.md"}}},
			wantErr: true,
		},
		{
			name:    "empty slug",
			m:       Manifest{Mode: ModeSingle, Docs: []DocMeta{{Path: "a.md"}}},
			wantErr: true,
		},
		{
			name:    "folders in single mode",
			m:       Manifest{Mode: ModeSingle, Folders: []string{RootChunk}},
			wantErr: true,
		},
		{
			name: "folders ok",
			m: Manifest{Mode: ModeFolders, Folders: []string{RootChunk, "guide"}, Docs: []DocMeta{
				{Slug: "index", Path: "index.md"},
				{Slug: "guide/a", Path: "guide/a.md", Folder: "guide"},
			}},
		},
		{
			name: "missing chunk",
			m: Manifest{Mode: ModeFolders, Folders: []string{RootChunk}, Docs: []DocMeta{
				{Slug: "guide/a", Path: "guide/a.md", Folder: "guide"},
			}},
			wantErr: true,
		},
		{
			name:    "chunk listed twice",
			m:       Manifest{Mode: ModeFolders, Folders: []string{"guide", "guide"}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.m.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestChunkNamesAndFiles(t *testing.T) {
	m := Manifest{Docs: []DocMeta{
		{Slug: "b/x", Folder: "b"},
		{Slug: "index"},
		{Slug: "b/y", Folder: "b"},
	}}
	names := m.ChunkNames()
	if len(names) != 2 || names[0] != RootChunk || names[1] != "b" {
		t.Fatalf("unexpected chunk names %v", names)
	}
	if got := ChunkFile(RootChunk); got != "content/_root.json" {
		t.Errorf("ChunkFile(_root) = %s", got)
	}
}

func TestIndexes(t *testing.T) {
	m := Manifest{Docs: []DocMeta{{Slug: "a", Path: "a.md"}, {Slug: "g/b", Path: "g/b.md", Folder: "g"}}}
	if m.Index()["g/b"].Path != "g/b.md" {
		t.Error("Index lookup failed")
	}
	if m.ByPath()["a.md"].Slug != "a" {
		t.Error("ByPath lookup failed")
	}
	if _, ok := m.Lookup("missing"); ok {
		t.Error("Lookup should miss")
	}
}
