// Package copypaste does not compile sources at all. It wraps the
// rendered source in a minimal HTML page for manual copy and paste.
package copypaste

import (
	"bytes"
	"html/template"

	"calingen/internal/plugin"
)

var page = template.Must(template.New("copypaste").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Generated Source</title>
</head>
<body>
<p>Copy the generated source below:</p>
<pre>{{ . }}</pre>
</body>
</html>
`))

type compiler struct{}

// Compiler is the registered provider.
var Compiler = compiler{}

func (compiler) ID() string    { return "compiler.copypaste" }
func (compiler) Title() string { return "CopyPaste Compiler" }

func (compiler) GetResponse(source string, layoutType string) (*plugin.Artifact, error) {
	var buf bytes.Buffer
	if err := page.Execute(&buf, source); err != nil {
		return nil, err
	}
	return &plugin.Artifact{
		ContentType: "text/html; charset=UTF-8",
		Body:        buf.Bytes(),
	}, nil
}

func init() {
	plugin.Compilers.MustRegister(Compiler)
}
