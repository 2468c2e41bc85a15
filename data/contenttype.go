package data

import (
	"path/filepath"
	"strings"
)

const (
	ContentTypeTextPlain         = "text/plain"
	ContentTypeTextHTML          = "text/html"
	ContentTypeTextCSS           = "text/css"
	ContentTypeTextJavaScript    = "text/javascript"
	ContentTypeTextCSV           = "text/csv"
	ContentTypeImageJPEG         = "image/jpeg"
	ContentTypeImagePNG          = "image/png"
	ContentTypeImageGIF          = "image/gif"
	ContentTypeImageWebP         = "image/webp"
	ContentTypeImageSVGXML       = "image/svg+xml"
	ContentTypeAudioMpeg         = "audio/mpeg"
	ContentTypeAudioWAV          = "audio/wav"
	ContentTypeAudioOGG          = "audio/ogg"
	ContentTypeVideoMP4          = "video/mp4"
	ContentTypeVideoWebM         = "video/webm"
	ContentTypeVideoQuickTime    = "video/quicktime"
	ContentTypeApplicationPDF    = "application/pdf"
	ContentTypeApplicationZip    = "application/zip"
	ContentTypeApplicationGZip   = "application/gzip"
	ContentTypeApplicationXTar   = "application/x-tar"
	ContentTypeApplicationJson   = "application/json"
	ContentTypeApplicationXML    = "application/xml"
	ContentTypeApplicationStream = "application/octet-stream"
	ContentTypeApplicationDocx   = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	ContentTypeApplicationXlsx   = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	ContentTypeApplicationPptx   = "application/vnd.openxmlformats-officedocument.presentationml.presentation"
	ContentTypeDirectory         = "application/x-directory"
)

// ExtensionToMIME maps file extensions to MIME types
var ExtensionToMIME = map[string]string{
	".txt":  ContentTypeTextPlain,
	".html": ContentTypeTextHTML,
	".css":  ContentTypeTextCSS,
	".js":   ContentTypeTextJavaScript,
	".csv":  ContentTypeTextCSV,
	".jpg":  ContentTypeImageJPEG,
	".jpeg": ContentTypeImageJPEG,
	".png":  ContentTypeImagePNG,
	".gif":  ContentTypeImageGIF,
	".webp": ContentTypeImageWebP,
	".svg":  ContentTypeImageSVGXML,
	".mp3":  ContentTypeAudioMpeg,
	".wav":  ContentTypeAudioWAV,
	".ogg":  ContentTypeAudioOGG,
	".mp4":  ContentTypeVideoMP4,
	".webm": ContentTypeVideoWebM,
	".mov":  ContentTypeVideoQuickTime,
	".pdf":  ContentTypeApplicationPDF,
	".zip":  ContentTypeApplicationZip,
	".gz":   ContentTypeApplicationGZip,
	".tar":  ContentTypeApplicationXTar,
	".json": ContentTypeApplicationJson,
	".xml":  ContentTypeApplicationXML,
	".docx": ContentTypeApplicationDocx,
	".xlsx": ContentTypeApplicationXlsx,
	".pptx": ContentTypeApplicationPptx,
}

// Categories group MIME patterns under the names used by the file type filter.
var Categories = map[string][]string{
	"image":    {"image/*"},
	"video":    {"video/*"},
	"audio":    {"audio/*"},
	"text":     {"text/*"},
	"document": {ContentTypeApplicationPDF, ContentTypeTextPlain, ContentTypeTextCSV, ContentTypeApplicationDocx, ContentTypeApplicationXlsx, ContentTypeApplicationPptx},
	"archive":  {ContentTypeApplicationZip, ContentTypeApplicationGZip, ContentTypeApplicationXTar},
}

// GetMIMEType returns the MIME type for a file extension
func GetMIMEType(path string) string {
	// Extract extension
	ext := strings.ToLower(filepath.Ext(path))

	if mimeType, exists := ExtensionToMIME[ext]; exists {
		return mimeType
	}

	// Default to octet-stream for unknown types
	return ContentTypeApplicationStream
}

// MatchFileType checks a content type against a filter value.
// The value is either a category name ("image", "document") or a MIME pattern ("image/*").
func MatchFileType(contentType, filter string) bool {
	filter = strings.ToLower(strings.TrimSpace(filter))
	if patterns, exists := Categories[filter]; exists {
		for _, pattern := range patterns {
			if MatchContentType(contentType, pattern) {
				return true
			}
		}
		return false
	}

	return MatchContentType(contentType, filter)
}

// MatchContentType checks if a content type matches a pattern with wildcard support.
// Supports wildcards like "image/*", "*/json", "*/*", or "*"
func MatchContentType(contentType string, pattern string) bool {
	// Full wildcard
	if pattern == "*" || pattern == "*/*" {
		return true
	}

	// Parameters such as "; charset=utf-8" are not part of the match
	if idx := strings.IndexByte(contentType, ';'); idx >= 0 {
		contentType = contentType[:idx]
	}
	contentType = strings.ToLower(strings.TrimSpace(contentType))

	// Exact match
	if contentType == pattern {
		return true
	}

	// Parse content type and pattern (format: type/subtype)
	contentParts := strings.Split(contentType, "/")
	patternParts := strings.Split(pattern, "/")

	// Different structure (e.g., comparing "text/plain" with "image")
	if len(contentParts) != len(patternParts) {
		return false
	}

	// Check each part with wildcard support
	for i := range patternParts {
		if patternParts[i] != "*" && patternParts[i] != contentParts[i] {
			return false
		}
	}

	return true
}
