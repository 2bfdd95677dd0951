package models

// InfoRequest is the body of the info endpoint
type InfoRequest struct {
	URL string `json:"url"`
}

// DownloadRequest is the body of the download endpoint.
// Format is ignored when Original is set.
type DownloadRequest struct {
	URL      string `json:"url"`
	Original bool   `json:"original"`
	Format   string `json:"format,omitempty"`
}

// Mode names the extraction mode of a download request
func (r DownloadRequest) Mode() string {
	if r.Original {
		return ModeOriginal
	}
	return ModeConvert
}

// Extraction modes
const (
	ModeInfo     = "info"
	ModeOriginal = "original"
	ModeConvert  = "convert"
)

// VideoSummary is the preview returned by the info endpoint
type VideoSummary struct {
	Title     string        `json:"title"`
	Thumbnail string        `json:"thumbnail"`
	Duration  float64       `json:"duration"`
	Uploader  string        `json:"uploader"`
	Formats   []AudioFormat `json:"formats"`
}

// AudioFormat describes one audio-only stream offered by the source
type AudioFormat struct {
	FormatID   string   `json:"format_id"`
	Ext        string   `json:"ext"`
	ACodec     string   `json:"acodec"`
	ABR        *float64 `json:"abr,omitempty"`
	Filesize   *int64   `json:"filesize,omitempty"`
	FormatNote string   `json:"format_note,omitempty"`
}

// FormatsResponse lists the static format tables
type FormatsResponse struct {
	Allowed       []string `json:"allowed"`
	Thumbnail     []string `json:"thumbnail_capable"`
	DefaultFormat string   `json:"default"`
}

// ErrorResponse is returned for every failed request
type ErrorResponse struct {
	Error string `json:"error"`
}
