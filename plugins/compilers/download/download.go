// Package download serves the rendered source as a file download, with the
// file extension and MIME type derived from the layout's type.
package download

import "calingen/internal/plugin"

type sourceType struct {
	Extension   string
	ContentType string
}

// SourceTypes maps a layout type to download metadata. Unknown layout
// types fall back to the "plain" entry.
var SourceTypes = map[string]sourceType{
	"plain":    {"txt", "text/plain; charset=UTF-8"},
	"html":     {"html", "text/html; charset=UTF-8"},
	"markdown": {"md", "text/markdown; charset=UTF-8"},
	"rst":      {"rst", "text/x-rst"},
	"tex":      {"tex", "application/x-tex"},
}

// Build assembles the download artifact for a rendered source. It is
// shared with the htmlordownload compiler.
func Build(source string, layoutType string) *plugin.Artifact {
	st, ok := SourceTypes[layoutType]
	if !ok {
		st = SourceTypes["plain"]
	}
	return &plugin.Artifact{
		ContentType: st.ContentType,
		Filename:    "calingen_generated_source." + st.Extension,
		Body:        []byte(source),
	}
}

type compiler struct{}

// Compiler is the registered provider.
var Compiler = compiler{}

func (compiler) ID() string    { return "compiler.download" }
func (compiler) Title() string { return "Download Compiler" }

func (compiler) GetResponse(source string, layoutType string) (*plugin.Artifact, error) {
	return Build(source, layoutType), nil
}

func init() {
	plugin.Compilers.MustRegister(Compiler)
}
