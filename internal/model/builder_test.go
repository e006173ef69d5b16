package model

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// baseCollaborators wires the minimum set of collaborators every
// Builder.Build call touches unconditionally, using the package's
// shared fakes/pass-throughs.
func baseCollaborators(parser ModelProcessor, resolver ModelResolver, super *Descriptor) *Collaborators {
	return &Collaborators{
		Parser:          parser,
		ModelResolver:   resolver,
		ProfileSelector: passthroughSelector{},
		ProfileInjector: noopInjector{},
		Assembler:       passthroughAssembler{},
		Interpolator:    noopInterpolator{},
		Validator:       &fakeValidator{},
		SuperModel:      &fakeSuperModel{d: super},
	}
}

// TestBuilderSingleDescriptorEndToEnd covers S1: a parentless descriptor
// builds straight through to an effective model with no problems.
func TestBuilderSingleDescriptorEndToEnd(t *testing.T) {
	leaf := &Descriptor{GroupID: "g", ArtifactID: "leaf", Version: "1", Packaging: "jar"}
	parser := &fakeParser{result: leaf}
	resolver := &fakeResolver{}
	super := &Descriptor{Packaging: "pom"}

	req := &Request{
		ModelSource:      &fakeSource{location: "leaf.toml", content: "x"},
		ValidationLevel:  ValidationV30,
		LocationTracking: false,
		Cache:            NewCache(),
		Collaborators:    baseCollaborators(parser, resolver, super),
	}

	b := &Builder{}
	result, err := b.Build(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, result.EffectiveModel)
	assert.Equal(t, PhaseEffective, result.Phase)
	assert.Equal(t, "g:leaf:1", result.EffectiveModel.ModelID())
	assert.Equal(t, []string{"g:leaf:1", "[unknown-group-id]:[unknown-artifact-id]:[unknown-version]"}, result.ModelIDs)
	assert.Empty(t, result.Problems)
}

// TestBuilderLenientFallbackStillSucceeds covers S6: a strict parse
// failure that recovers leniently still produces an effective model,
// carrying the "Malformed POM" problem rather than failing the build.
func TestBuilderLenientFallbackStillSucceeds(t *testing.T) {
	recovered := &Descriptor{GroupID: "g", ArtifactID: "leaf", Version: "1"}
	parser := &fakeParser{err: assertErr("strict parse failed"), lenientResult: recovered}
	resolver := &fakeResolver{}
	super := &Descriptor{Packaging: "pom"}

	req := &Request{
		ModelSource:     &fakeSource{location: "repo://g/leaf/1/leaf.toml", content: "x"},
		ValidationLevel: ValidationV30,
		Cache:           NewCache(),
		Collaborators:   baseCollaborators(parser, resolver, super),
	}

	b := &Builder{}
	result, err := b.Build(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, result.EffectiveModel)

	var gotMalformed bool
	for _, p := range result.Problems {
		if p.Severity == SeverityWarning {
			assert.Contains(t, p.Message, "Malformed POM ")
			gotMalformed = true
		}
	}
	assert.True(t, gotMalformed, "expected the lenient-recovery warning to survive into the final result")
}

// TestBuilderTwoPhaseBuildStopsBeforeEffective covers the two-phase API
// (SPEC_FULL supplement 2): TwoPhaseBuilding returns PhaseRaw, and
// Continue finishes the job.
func TestBuilderTwoPhaseBuildStopsBeforeEffective(t *testing.T) {
	leaf := &Descriptor{GroupID: "g", ArtifactID: "leaf", Version: "1"}
	parser := &fakeParser{result: leaf}
	resolver := &fakeResolver{}
	super := &Descriptor{Packaging: "pom"}

	req := &Request{
		ModelSource:      &fakeSource{location: "leaf.toml", content: "x"},
		ValidationLevel:  ValidationV30,
		TwoPhaseBuilding: true,
		Cache:            NewCache(),
		Collaborators:    baseCollaborators(parser, resolver, super),
	}

	b := &Builder{}
	phase1, err := b.Build(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, PhaseRaw, phase1.Phase)

	phase2, err := b.Continue(context.Background(), req, phase1)
	require.NoError(t, err)
	assert.Equal(t, PhaseEffective, phase2.Phase)

	_, err = b.Continue(context.Background(), req, phase2)
	require.Error(t, err, "Continue on an already-effective result must be rejected")
}
