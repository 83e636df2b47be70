package extract

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// spyExtractor records the scratch paths visible during extraction
type spyExtractor struct {
	scratch string
	spooled string
	result  *ExtractedText
	err     error
}

func (s *spyExtractor) Extract(ctx context.Context, artifact *Artifact) (*ExtractedText, error) {
	s.scratch = artifact.Scratch()
	s.spooled = artifact.SpooledPath()
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

func TestDispatcherRoutesByMediaType(t *testing.T) {
	spy := &spyExtractor{result: &ExtractedText{Text: "routed", Format: FormatPlain}}
	d := NewDispatcher(WithExtractor("application/x-custom", spy))

	text, err := d.Extract(context.Background(), NewArtifact("f.bin", "application/x-custom", []byte("data")))
	require.NoError(t, err)
	assert.Equal(t, "routed", text.Text)
}

func TestDispatcherNormalizesMediaTypeParameters(t *testing.T) {
	d := NewDispatcher()

	text, err := d.Extract(context.Background(),
		NewArtifact("notes.txt", "text/plain; charset=utf-8", []byte("hello")))
	require.NoError(t, err)
	assert.Equal(t, "hello", text.Text)
}

func TestDispatcherFallsBackToPlainTextForTextTypes(t *testing.T) {
	d := NewDispatcher()

	text, err := d.Extract(context.Background(),
		NewArtifact("page.html", "text/html", []byte("<p>hi</p>")))
	require.NoError(t, err)
	assert.Equal(t, FormatPlain, text.Format)
}

func TestDispatcherRejectsUnsupportedFormat(t *testing.T) {
	d := NewDispatcher()

	_, err := d.Extract(context.Background(),
		NewArtifact("archive.zip", "application/zip", []byte("PK")))
	require.Error(t, err)

	var unsupported *UnsupportedFormatError
	require.ErrorAs(t, err, &unsupported)
	assert.Equal(t, "application/zip", unsupported.MediaType)
}

func TestDispatcherCleansScratchOnSuccess(t *testing.T) {
	spy := &spyExtractor{result: &ExtractedText{Text: "ok", Format: FormatPlain}}
	d := NewDispatcher(WithExtractor("application/x-custom", spy))

	artifact := NewArtifact("f.bin", "application/x-custom", []byte("payload"))
	_, err := d.Extract(context.Background(), artifact)
	require.NoError(t, err)

	// The extractor observed real scratch storage with the spooled payload
	require.NotEmpty(t, spy.scratch)
	require.NotEmpty(t, spy.spooled)

	// Scratch is gone and the artifact no longer references it
	_, statErr := os.Stat(spy.scratch)
	assert.True(t, os.IsNotExist(statErr))
	assert.Empty(t, artifact.Scratch())
	assert.Empty(t, artifact.SpooledPath())
}

func TestDispatcherCleansScratchOnFailure(t *testing.T) {
	spy := &spyExtractor{err: errors.New("parser exploded")}
	d := NewDispatcher(WithExtractor("application/x-custom", spy))

	artifact := NewArtifact("f.bin", "application/x-custom", []byte("payload"))
	_, err := d.Extract(context.Background(), artifact)
	require.Error(t, err)

	var extraction *ExtractionError
	require.ErrorAs(t, err, &extraction)

	_, statErr := os.Stat(spy.scratch)
	assert.True(t, os.IsNotExist(statErr))
	assert.Empty(t, artifact.Scratch())
}

func TestDispatcherIsDeterministic(t *testing.T) {
	d := NewDispatcher()
	artifact := func() *Artifact {
		return NewArtifact("data.csv", "text/csv", []byte("a,b\n1,2\n"))
	}

	first, err := d.Extract(context.Background(), artifact())
	require.NoError(t, err)
	second, err := d.Extract(context.Background(), artifact())
	require.NoError(t, err)

	assert.Equal(t, first, second)
}
