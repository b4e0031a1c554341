package plugin

// Artifact is the final deliverable produced by a compiler: a body with a
// content type, optionally carrying a suggested filename for download-style
// compilers.
type Artifact struct {
	ContentType string
	// Filename, when set, asks the delivering layer to offer the body as
	// a file download under this name.
	Filename string
	Body     []byte
}

// CompilerProvider turns rendered layout source into a deliverable. The
// originating layout's type is passed along so a compiler can adjust
// content type or file extension.
type CompilerProvider interface {
	Plugin

	GetResponse(source string, layoutType string) (*Artifact, error)
}
