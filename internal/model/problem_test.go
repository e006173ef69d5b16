package model

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProblemCollectorHasErrorsRespectsGate(t *testing.T) {
	pc := NewProblemCollector(ValidationMinimal)
	pc.Add(Problem{Severity: SeverityError, Gate: GateV31, Message: "newer than current level"})
	assert.False(t, pc.HasErrors(), "a gate newer than the request level must not trip HasErrors")

	pc.Add(Problem{Severity: SeverityError, Gate: GateBase, Message: "always blocking"})
	assert.True(t, pc.HasErrors())
}

func TestProblemCollectorMonotonic(t *testing.T) {
	pc := NewProblemCollector(ValidationV30)
	pc.Add(Problem{Severity: SeverityWarning, Message: "one"})
	pc.Add(Problem{Severity: SeverityWarning, Message: "two"})
	require.Len(t, pc.Snapshot(), 2)

	snap := pc.Snapshot()
	snap[0].Message = "mutated"
	assert.Equal(t, "one", pc.Snapshot()[0].Message, "Snapshot must return a defensive copy")
}

func TestProblemTraceIncludesCause(t *testing.T) {
	cause := errors.New("underlying failure")
	p := Problem{Severity: SeverityError, Source: "g:a:1", Message: "wrapped", Cause: cause}
	assert.Contains(t, p.Trace(), "underlying failure")
	assert.NotContains(t, p.Error(), "underlying failure")
}

func TestBuildFailedError(t *testing.T) {
	pc := NewProblemCollector(ValidationMinimal)
	pc.Add(Problem{Severity: SeverityFatal, Source: "g:a:1", Message: "boom"})
	bf := newBuildFailed("g:a:1", pc)
	assert.Contains(t, bf.Error(), "g:a:1")
	assert.Contains(t, bf.Error(), "boom")
}
