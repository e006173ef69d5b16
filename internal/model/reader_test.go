package model

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// filePathSource wraps fakeSource to additionally satisfy the optional
// "isFileSource" interface reader.go type-asserts for, so tests can
// exercise the file-vs-non-file severity split in §4.3 step 3 without
// touching the shared fakeSource used by every other test in this
// package.
type filePathSource struct {
	*fakeSource
	path string
}

func (s filePathSource) FilePath() string { return s.path }

func TestFileReaderCacheHit(t *testing.T) {
	cached := &Descriptor{ArtifactID: "cached"}
	cache := NewCache()
	require.NoError(t, cache.PutBySource("loc", TagFileModel, cached))

	fr := &FileReader{Cache: cache, Parser: &fakeParser{err: errors.New("should not be called")}}
	pc := NewProblemCollector(ValidationMinimal)
	d, err := fr.Read(context.Background(), &fakeSource{location: "loc"}, ValidationV30, false, pc)
	require.NoError(t, err)
	assert.Equal(t, "cached", d.ArtifactID)
}

// TestFileReaderLenientFallbackNonFileSourceWarns covers S6 for a source
// that isn't a local file (one with no FilePath method): the fallback
// succeeds with a WARNING, not an ERROR.
func TestFileReaderLenientFallbackNonFileSourceWarns(t *testing.T) {
	lenient := &Descriptor{ArtifactID: "recovered"}
	parser := &fakeParser{err: errors.New("strict parse failed"), lenientResult: lenient}
	fr := &FileReader{Parser: parser}
	pc := NewProblemCollector(ValidationMinimal)

	d, err := fr.Read(context.Background(), &fakeSource{location: "repo://g/a/1/a.toml", content: "x"}, ValidationV30, false, pc)
	require.NoError(t, err)
	assert.Equal(t, "recovered", d.ArtifactID)
	assert.Equal(t, 2, parser.calls, "strict attempt then lenient retry")

	require.Len(t, pc.Snapshot(), 1)
	p := pc.Snapshot()[0]
	assert.Equal(t, SeverityWarning, p.Severity)
	assert.Contains(t, p.Message, "Malformed POM ")
	assert.Contains(t, p.Message, "strict parse failed")
}

// TestFileReaderLenientFallbackFileSourceErrors covers the file-source
// branch of the same step: recovering from a malformed local file is an
// ERROR, not a WARNING.
func TestFileReaderLenientFallbackFileSourceErrors(t *testing.T) {
	lenient := &Descriptor{ArtifactID: "recovered"}
	parser := &fakeParser{err: errors.New("strict parse failed"), lenientResult: lenient}
	fr := &FileReader{Parser: parser}
	pc := NewProblemCollector(ValidationMinimal)

	src := filePathSource{fakeSource: &fakeSource{location: "/tmp/a/project.toml"}, path: "/tmp/a/project.toml"}
	d, err := fr.Read(context.Background(), src, ValidationV30, false, pc)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/a/project.toml", d.PomFile, "a local file source's path must be attached to the model")

	require.Len(t, pc.Snapshot(), 1)
	assert.Equal(t, SeverityError, pc.Snapshot()[0].Severity)
}

// TestFileReaderTotalFailureIsFatal covers the case where both the
// strict and the lenient parse fail: a single FATAL problem, and Read
// returns an error.
func TestFileReaderTotalFailureIsFatal(t *testing.T) {
	parser := &fakeParser{err: errors.New("unrecoverable")}
	fr := &FileReader{Parser: parser}
	pc := NewProblemCollector(ValidationMinimal)

	_, err := fr.Read(context.Background(), &fakeSource{location: "loc"}, ValidationV30, false, pc)
	require.Error(t, err)
	require.True(t, pc.HasFatalErrors())
}

// TestFileReaderLenientLevelSkipsStrictAttempt covers §4.3 step 2: below
// ValidationV20, parsing goes straight to lenient mode, so a parser that
// only succeeds in lenient mode is called exactly once.
func TestFileReaderLenientLevelSkipsStrictAttempt(t *testing.T) {
	parser := &fakeParser{lenientResult: &Descriptor{ArtifactID: "ok"}}
	fr := &FileReader{Parser: parser}
	pc := NewProblemCollector(ValidationMinimal)

	d, err := fr.Read(context.Background(), &fakeSource{location: "loc"}, ValidationMinimal, false, pc)
	require.NoError(t, err)
	assert.Equal(t, "ok", d.ArtifactID)
	assert.Equal(t, 1, parser.calls)
	assert.Empty(t, pc.Snapshot())
}

func TestIoErrorMessageSubstitutesEmptyError(t *testing.T) {
	assert.Equal(t, "Some input bytes do not match the file encoding.", ioErrorMessage(errors.New("")))
	assert.Equal(t, "boom", ioErrorMessage(errors.New("boom")))
}
