// Package htmlordownload serves HTML sources inline and everything else
// as a file download.
package htmlordownload

import (
	"calingen/internal/plugin"
	"calingen/plugins/compilers/download"
)

type compiler struct{}

// Compiler is the registered provider.
var Compiler = compiler{}

func (compiler) ID() string    { return "compiler.htmlordownload" }
func (compiler) Title() string { return "HTML or Download Compiler" }

func (compiler) GetResponse(source string, layoutType string) (*plugin.Artifact, error) {
	if layoutType == "html" {
		return &plugin.Artifact{
			ContentType: "text/html; charset=UTF-8",
			Body:        []byte(source),
		}, nil
	}
	return download.Build(source, layoutType), nil
}

func init() {
	plugin.Compilers.MustRegister(Compiler)
}
