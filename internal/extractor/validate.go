package extractor

import (
	"fmt"
	"regexp"
	"strings"
)

// DefaultHosts are accepted when no host list is configured
var DefaultHosts = []string{"youtube.com", "youtu.be"}

// URLValidator matches source URLs against a set of video hosts
type URLValidator struct {
	pattern *regexp.Regexp
}

// NewURLValidator builds a case-insensitive matcher accepting an optional
// scheme and www. prefix, one of hosts, then a non-empty path.
func NewURLValidator(hosts []string) *URLValidator {
	if len(hosts) == 0 {
		hosts = DefaultHosts
	}

	quoted := make([]string, 0, len(hosts))
	for _, h := range hosts {
		quoted = append(quoted, regexp.QuoteMeta(strings.ToLower(h)))
	}

	expr := fmt.Sprintf(`(?i)^(https?://)?(www\.)?(%s)/.+$`, strings.Join(quoted, "|"))
	return &URLValidator{pattern: regexp.MustCompile(expr)}
}

// Validate returns an InvalidInput error for empty or unrecognized URLs
func (v *URLValidator) Validate(url string) error {
	url = strings.TrimSpace(url)
	if url == "" {
		return newError(KindInvalidInput, "URL is required", nil)
	}
	if !v.pattern.MatchString(url) {
		return newError(KindInvalidInput, "Invalid or unsupported video URL", nil)
	}
	return nil
}

// ResolveFormat applies the default and checks the allowed set.
// Original-quality requests always resolve to the opus container.
func ResolveFormat(format string, original bool, fallback string) (string, error) {
	if original {
		return OriginalCodec, nil
	}

	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = fallback
	}
	if format == "" {
		format = DefaultFormat
	}

	if !AllowedFormats.Contains(format) {
		return "", newError(KindInvalidInput, fmt.Sprintf("Unsupported audio format: %s", format), nil)
	}
	return format, nil
}
