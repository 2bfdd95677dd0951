package extractor

import (
	"path/filepath"
	"sort"
	"strings"
)

// DefaultFormat is used when a convert request names no format
const DefaultFormat = "mp3"

// OriginalCodec is the container used in original-quality mode
const OriginalCodec = "opus"

// AllowedFormats are the targets accepted in convert mode
var AllowedFormats = newSet("best", "aac", "alac", "flac", "m4a", "mp3", "opus", "vorbis", "wav")

// ThumbnailFormats are containers whose tags can carry an attached picture
var ThumbnailFormats = newSet("mp3", "mkv", "mka", "ogg", "opus", "flac", "m4a", "mp4", "m4v", "mov")

// SidecarExtensions are image files left behind when embedding fails
var SidecarExtensions = newSet(".jpg", ".jpeg", ".png", ".webp", ".gif")

var contentTypes = map[string]string{
	".mp3":    "audio/mpeg",
	".m4a":    "audio/mp4",
	".alac":   "audio/mp4",
	".aac":    "audio/aac",
	".opus":   "audio/ogg",
	".ogg":    "audio/ogg",
	".vorbis": "audio/ogg",
	".webm":   "audio/webm",
	".flac":   "audio/flac",
	".wav":    "audio/wav",
}

// Set is an immutable string set
type Set struct {
	items map[string]struct{}
}

func newSet(items ...string) Set {
	s := Set{items: make(map[string]struct{}, len(items))}
	for _, item := range items {
		s.items[item] = struct{}{}
	}
	return s
}

// Contains reports whether v is a member
func (s Set) Contains(v string) bool {
	_, ok := s.items[v]
	return ok
}

// List returns the members sorted
func (s Set) List() []string {
	out := make([]string, 0, len(s.items))
	for item := range s.items {
		out = append(out, item)
	}
	sort.Strings(out)
	return out
}

// ContentType returns the MIME type for a file name based on its extension
func ContentType(name string) string {
	if ct, ok := contentTypes[strings.ToLower(filepath.Ext(name))]; ok {
		return ct
	}
	return "application/octet-stream"
}

// IsSidecar reports whether name is a leftover thumbnail artifact
func IsSidecar(name string) bool {
	return SidecarExtensions.Contains(strings.ToLower(filepath.Ext(name)))
}
