package data

import (
	"errors"
	"testing"
)

func TestParsePath_RoundTrip(t *testing.T) {
	paths := []string{
		"",
		"Docs",
		"folderA/folderB/file.png",
		"Company A/Reports 2024/q1.pdf",
		"a/.hidden/b",
		"UPPER/lower/MiXeD",
	}

	for _, raw := range paths {
		vp, err := ParsePath(raw)
		if err != nil {
			t.Fatalf("ParsePath(%q) failed: %v", raw, err)
		}

		again, err := ParsePath(vp.String())
		if err != nil {
			t.Fatalf("ParsePath(%q) failed: %v", vp.String(), err)
		}

		if !again.Equal(vp) {
			t.Errorf("Round trip of %q: expected %v, got %v", raw, vp, again)
		}
		if vp.String() != raw {
			t.Errorf("Expected join %q, got %q", raw, vp.String())
		}
	}
}

func TestParsePath_TrimsOuterSeparators(t *testing.T) {
	vp, err := ParsePath("/Docs/Reports/")
	if err != nil {
		t.Fatalf("ParsePath failed: %v", err)
	}

	if vp.String() != "Docs/Reports" {
		t.Errorf("Expected 'Docs/Reports', got %q", vp.String())
	}
}

func TestParsePath_Invalid(t *testing.T) {
	for _, raw := range []string{"a//b", "a/./b", "../a", "a/.."} {
		if _, err := ParsePath(raw); !errors.Is(err, ErrInvalidPath) {
			t.Errorf("ParsePath(%q): expected ErrInvalidPath, got %v", raw, err)
		}
	}
}

func TestToKey(t *testing.T) {
	key, err := ToKey(BucketInternal, VirtualPath{"folderA", "folderB", "file.png"})
	if err != nil {
		t.Fatalf("ToKey failed: %v", err)
	}
	if key != "folderA/folderB/file.png" {
		t.Errorf("Expected 'folderA/folderB/file.png', got %q", key)
	}

	key, err = ToKey(BucketCompany, VirtualPath{})
	if err != nil {
		t.Fatalf("ToKey for root failed: %v", err)
	}
	if key != "" {
		t.Errorf("Expected empty root key, got %q", key)
	}

	invalid := []VirtualPath{
		{"a", ""},
		{"a/b"},
		{"."},
		{"a", ".."},
	}
	for _, vp := range invalid {
		if _, err := ToKey(BucketInternal, vp); !errors.Is(err, ErrInvalidPath) {
			t.Errorf("ToKey(%#v): expected ErrInvalidPath, got %v", vp, err)
		}
	}

	if _, err := ToKey(BucketContext("public"), VirtualPath{"a"}); !errors.Is(err, ErrInvalidBucket) {
		t.Errorf("Expected ErrInvalidBucket, got %v", err)
	}
}

func TestIsPrefixOf(t *testing.T) {
	tests := []struct {
		a, b string
		want bool
	}{
		{"foo", "foobar", false},
		{"foo", "foo/bar", true},
		{"foo", "foo", true},
		{"foo/bar", "foo", false},
		{"", "anything", true},
		{"", "", true},
		{"foo/", "foo/bar", false},
		{"a/b", "a/b/c/d.txt", true},
		{"a/b", "a/bc/d.txt", false},
	}

	for _, tt := range tests {
		if got := IsPrefixOf(tt.a, tt.b); got != tt.want {
			t.Errorf("IsPrefixOf(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestOverlaps(t *testing.T) {
	if !Overlaps("A", "A/B") || !Overlaps("A/B", "A") {
		t.Error("Expected ancestor and descendant to overlap")
	}
	if Overlaps("A", "AB") {
		t.Error("Expected siblings sharing a string prefix not to overlap")
	}
}

func TestParentAndBase(t *testing.T) {
	vp := MustParsePath("a/b/c.txt")

	if got := ParentOf(vp).String(); got != "a/b" {
		t.Errorf("Expected parent 'a/b', got %q", got)
	}
	if got := vp.Base(); got != "c.txt" {
		t.Errorf("Expected base 'c.txt', got %q", got)
	}
	if !(VirtualPath{}).Parent().IsRoot() {
		t.Error("Expected parent of root to be root")
	}
	if !MustParsePath("top").Parent().IsRoot() {
		t.Error("Expected parent of a top-level entry to be root")
	}

	// Join must not alias the receiver
	parent := vp.Parent()
	left := parent.Join("x")
	right := parent.Join("y")
	if left.String() != "a/b/x" || right.String() != "a/b/y" {
		t.Errorf("Join aliased its receiver: %q, %q", left, right)
	}
}

func TestReplacePrefix(t *testing.T) {
	tests := []struct {
		key, old, new, want string
	}{
		{"A", "A", "B", "B"},
		{"A/x.txt", "A", "B", "B/x.txt"},
		{"A/sub/.keep", "A", "X/Y", "X/Y/sub/.keep"},
		{"Docs/a.png", "Docs/a.png", "Docs/b.png", "Docs/b.png"},
	}

	for _, tt := range tests {
		if got := ReplacePrefix(tt.key, tt.old, tt.new); got != tt.want {
			t.Errorf("ReplacePrefix(%q, %q, %q) = %q, want %q", tt.key, tt.old, tt.new, got, tt.want)
		}
	}
}

func TestPlaceholder(t *testing.T) {
	if got := PlaceholderKey("Docs"); got != "Docs/.keep" {
		t.Errorf("Expected 'Docs/.keep', got %q", got)
	}
	if !IsPlaceholder("Docs/.keep") || !IsPlaceholder(".keep") {
		t.Error("Expected placeholder keys to be detected")
	}
	if IsPlaceholder("Docs/notes.keep") {
		t.Error("Expected regular file not to be a placeholder")
	}
}

func TestBucketCheckMutable(t *testing.T) {
	if err := BucketCompany.CheckMutable(VirtualPath{}); !errors.Is(err, ErrInvalidPath) {
		t.Errorf("Expected ErrInvalidPath for company root, got %v", err)
	}
	if err := BucketCompany.CheckMutable(VirtualPath{"acme"}); err != nil {
		t.Errorf("Expected company folder to be mutable, got %v", err)
	}
	if err := BucketInternal.CheckMutable(VirtualPath{}); err != nil {
		t.Errorf("Expected internal root to be mutable, got %v", err)
	}
}

func TestParentKey(t *testing.T) {
	tests := map[string]string{
		"a/b/c.txt": "a/b",
		"top.txt":   "",
		"":          "",
	}
	for key, want := range tests {
		if got := ParentKey(key); got != want {
			t.Errorf("ParentKey(%q) = %q, want %q", key, got, want)
		}
	}
}
