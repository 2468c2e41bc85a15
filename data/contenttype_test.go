package data

import "testing"

func TestMatchFileType(t *testing.T) {
	tests := []struct {
		contentType, filter string
		want                bool
	}{
		{"image/png", "image", true},
		{"image/png", "image/*", true},
		{"image/png", "video", false},
		{"application/pdf", "document", true},
		{"application/zip", "archive", true},
		{"text/plain; charset=utf-8", "text/plain", true},
		{"application/pdf", "application/pdf", true},
		{"application/pdf", "*", true},
		{"audio/mpeg", "image", false},
	}

	for _, tt := range tests {
		if got := MatchFileType(tt.contentType, tt.filter); got != tt.want {
			t.Errorf("MatchFileType(%q, %q) = %v, want %v", tt.contentType, tt.filter, got, tt.want)
		}
	}
}

func TestGetMIMEType(t *testing.T) {
	if got := GetMIMEType("Reports/q1.PDF"); got != ContentTypeApplicationPDF {
		t.Errorf("Expected %q, got %q", ContentTypeApplicationPDF, got)
	}
	if got := GetMIMEType("blob.unknown"); got != ContentTypeApplicationStream {
		t.Errorf("Expected %q, got %q", ContentTypeApplicationStream, got)
	}
}

func TestNormalizeTags(t *testing.T) {
	got := NormalizeTags([]string{"b", " a ", "b", "", "c"})
	want := []string{"a", "b", "c"}

	if len(got) != len(want) {
		t.Fatalf("Expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Expected %v, got %v", want, got)
		}
	}
}
