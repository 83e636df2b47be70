package extract

// Artifact is one uploaded payload: raw bytes plus the media type and name
// declared by the uploader. An Artifact is owned by exactly one extraction
// call and is discarded when the exchange that carried it finishes.
type Artifact struct {
	// Name is the original file name as uploaded
	Name string

	// MediaType is the declared media type, e.g. "text/csv"
	MediaType string

	// Data is the raw payload
	Data []byte

	// scratch is the transient directory holding the spooled payload. It is
	// set by the dispatcher for the duration of one extraction and removed
	// before the extraction call returns.
	scratch string
	spooled string
}

// NewArtifact creates a new artifact from uploaded bytes
func NewArtifact(name, mediaType string, data []byte) *Artifact {
	return &Artifact{
		Name:      name,
		MediaType: mediaType,
		Data:      data,
	}
}

// Scratch returns the transient scratch directory for this artifact. It is
// only non-empty while an extraction call is in flight.
func (a *Artifact) Scratch() string {
	return a.scratch
}

// SpooledPath returns the path of the payload spooled into scratch storage,
// for extractors that need a file on disk rather than bytes. Empty outside an
// extraction call.
func (a *Artifact) SpooledPath() string {
	return a.spooled
}

// Format describes the shape of an ExtractedText rendering.
type Format string

const (
	// FormatPlain is an unstructured plain-text rendering
	FormatPlain Format = "plain"

	// FormatRows is a row-oriented rendering of tabular input, one JSON
	// object per line with field order preserved
	FormatRows Format = "rows"
)

// ExtractedText is the text rendering derived from exactly one Artifact.
// It is immutable once produced.
type ExtractedText struct {
	// Text is the rendering itself
	Text string

	// Format is the shape of the rendering
	Format Format
}
