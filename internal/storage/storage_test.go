package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/abhinav-TB/Build-Trace/pkg/types"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadObjects_BareArray(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "a.json", `[{"id":"D1","type":"door","x":4,"y":2,"material":"oak"}]`)

	store := NewStore()
	objects, err := store.LoadObjects(context.Background(), path)
	if err != nil {
		t.Fatalf("LoadObjects failed: %v", err)
	}
	if len(objects) != 1 {
		t.Fatalf("expected 1 object, got %d", len(objects))
	}
	obj := objects[0]
	if obj.ID != "D1" || obj.Type != "door" {
		t.Errorf("unexpected object: %+v", obj)
	}
	if obj.X == nil || *obj.X != 4 {
		t.Errorf("expected x=4, got %v", obj.X)
	}
	if obj.Attrs["material"] != "oak" {
		t.Errorf("extra attributes must be preserved, got %v", obj.Attrs)
	}
}

func TestLoadObjects_WrappedSnapshot(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "a.json", `{"id":"HPI-L3","objects":[{"id":"W1","type":"wall","x":0,"y":0}]}`)

	store := NewStore()
	objects, err := store.LoadObjects(context.Background(), path)
	if err != nil {
		t.Fatalf("LoadObjects failed: %v", err)
	}
	if len(objects) != 1 || objects[0].ID != "W1" {
		t.Fatalf("expected wall W1, got %+v", objects)
	}
}

func TestLoadObjects_NotASnapshot(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "a.json", `{"pairs": []}`)

	store := NewStore()
	if _, err := store.LoadObjects(context.Background(), path); err == nil {
		t.Fatal("expected an error for a non-snapshot document")
	}
}

func TestLoadObjects_MissingFile(t *testing.T) {
	store := NewStore()
	if _, err := store.LoadObjects(context.Background(), "/does/not/exist.json"); err == nil {
		t.Fatal("expected an error for a missing file")
	}
}

func TestWriteResult_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "result.json")

	x := 4.0
	y := 2.0
	cs := &types.ChangeSet{
		Added:   []types.DrawingObject{{ID: "D1", Type: "door", X: &x, Y: &y}},
		Removed: []types.DrawingObject{},
		Moved:   []types.MovedObject{},
		Summary: "Door D1 added at (4,2).",
		Stats:   types.DiffStats{AddedCount: 1, TotalChanges: 1},
	}

	store := NewStore()
	if err := store.WriteResult(context.Background(), path, cs); err != nil {
		t.Fatalf("WriteResult failed: %v", err)
	}

	objects, err := store.LoadObjects(context.Background(), path)
	if err == nil {
		_ = objects
		t.Fatal("a result document must not parse as a snapshot")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(data) == 0 {
		t.Fatal("result file is empty")
	}
}

func TestParseGSURI(t *testing.T) {
	tests := []struct {
		in     string
		bucket string
		object string
		ok     bool
	}{
		{"gs://drawings/inputs/a.json", "drawings", "inputs/a.json", true},
		{"gs://drawings", "drawings", "", true},
		{"/local/path.json", "", "", false},
		{"s3://other/scheme", "", "", false},
	}

	for _, tt := range tests {
		bucket, object, ok := parseGSURI(tt.in)
		if bucket != tt.bucket || object != tt.object || ok != tt.ok {
			t.Errorf("parseGSURI(%q) = (%q, %q, %v), want (%q, %q, %v)",
				tt.in, bucket, object, ok, tt.bucket, tt.object, tt.ok)
		}
	}
}
