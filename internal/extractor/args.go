package extractor

import "path/filepath"

// DescriptionToComment copies the source description into the comment tag
const DescriptionToComment = "description:(?s)(?P<meta_comment>.+)"

// OutputTemplate is the file name pattern inside a workspace
const OutputTemplate = "%(title)s.%(ext)s"

// FlagGroup is a named, ordered set of command-line flags
type FlagGroup struct {
	Name  string
	Flags []string
}

// ArgBuilder composes tool arguments from flag groups. Groups are always
// emitted in this order: extract, tagging, output, behaviour, source.
type ArgBuilder struct {
	extract   FlagGroup
	tagging   FlagGroup
	output    FlagGroup
	behaviour FlagGroup
	source    FlagGroup
}

// NewArgBuilder starts a builder with the shared behaviour flags set
func NewArgBuilder() *ArgBuilder {
	return &ArgBuilder{
		behaviour: FlagGroup{Name: "behaviour", Flags: []string{"--no-warnings", "--no-playlist"}},
	}
}

// ExtractAudio selects audio extraction to codec at maximum quality
func (b *ArgBuilder) ExtractAudio(codec string) *ArgBuilder {
	b.extract = FlagGroup{Name: "extract", Flags: []string{
		"-x",
		"--audio-format", codec,
		"--audio-quality", "0",
	}}
	return b
}

// EmbedMetadata writes source tags and maps the description to a comment.
// The thumbnail flag is only added when withThumbnail is set.
func (b *ArgBuilder) EmbedMetadata(withThumbnail bool) *ArgBuilder {
	flags := []string{"--embed-metadata", "--parse-metadata", DescriptionToComment}
	if withThumbnail {
		flags = append(flags, "--embed-thumbnail")
	}
	b.tagging = FlagGroup{Name: "tagging", Flags: flags}
	return b
}

// OutputDir points the tool's output template into dir
func (b *ArgBuilder) OutputDir(dir string) *ArgBuilder {
	b.output = FlagGroup{Name: "output", Flags: []string{"-o", filepath.Join(dir, OutputTemplate)}}
	return b
}

// DumpJSON switches the tool to metadata-only mode
func (b *ArgBuilder) DumpJSON() *ArgBuilder {
	b.extract = FlagGroup{Name: "extract", Flags: []string{"--dump-json"}}
	return b
}

// Source sets the URL, always the final argument
func (b *ArgBuilder) Source(url string) *ArgBuilder {
	b.source = FlagGroup{Name: "source", Flags: []string{url}}
	return b
}

// Groups returns the non-empty groups in emission order
func (b *ArgBuilder) Groups() []FlagGroup {
	var groups []FlagGroup
	for _, g := range []FlagGroup{b.extract, b.tagging, b.output, b.behaviour, b.source} {
		if len(g.Flags) > 0 {
			groups = append(groups, g)
		}
	}
	return groups
}

// Build flattens the groups into an argument list
func (b *ArgBuilder) Build() []string {
	var args []string
	for _, g := range b.Groups() {
		args = append(args, g.Flags...)
	}
	return args
}

// InfoArgs returns the arguments for a metadata-only run
func InfoArgs(url string) []string {
	return NewArgBuilder().DumpJSON().Source(url).Build()
}

// DownloadArgs returns the arguments for fetching audio into dir.
// codec must already be resolved; original-quality mode passes OriginalCodec.
func DownloadArgs(url, codec, dir string) []string {
	return NewArgBuilder().
		ExtractAudio(codec).
		EmbedMetadata(ThumbnailFormats.Contains(codec)).
		OutputDir(dir).
		Source(url).
		Build()
}
