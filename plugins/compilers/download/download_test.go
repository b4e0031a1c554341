package download

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetResponseDerivesMetadataFromLayoutType(t *testing.T) {
	tests := []struct {
		layoutType  string
		filename    string
		contentType string
	}{
		{"tex", "calingen_generated_source.tex", "application/x-tex"},
		{"html", "calingen_generated_source.html", "text/html; charset=UTF-8"},
		{"markdown", "calingen_generated_source.md", "text/markdown; charset=UTF-8"},
		{"rst", "calingen_generated_source.rst", "text/x-rst"},
		{"plain", "calingen_generated_source.txt", "text/plain; charset=UTF-8"},
	}
	for _, tt := range tests {
		t.Run(tt.layoutType, func(t *testing.T) {
			artifact, err := Compiler.GetResponse("source body", tt.layoutType)
			require.NoError(t, err)
			assert.Equal(t, tt.filename, artifact.Filename)
			assert.Equal(t, tt.contentType, artifact.ContentType)
			assert.Equal(t, "source body", string(artifact.Body))
		})
	}
}

func TestGetResponseUnknownTypeFallsBackToPlain(t *testing.T) {
	artifact, err := Compiler.GetResponse("x", "postscript")
	require.NoError(t, err)
	assert.Equal(t, "calingen_generated_source.txt", artifact.Filename)
	assert.Equal(t, "text/plain; charset=UTF-8", artifact.ContentType)
}
