package model

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// lookupParser decodes a fixed *Descriptor per source location, so a
// single LineageWalker test can drive several distinct ancestors
// through one fakeResolver without a real codec.
type lookupParser struct {
	bySource map[string]*Descriptor
}

func (p *lookupParser) Read(ctx context.Context, r ReadCloser, opts ParseOptions) (*Descriptor, error) {
	if opts.Source == nil {
		return nil, assertErr("lookupParser: no source in ParseOptions")
	}
	d, ok := p.bySource[opts.Source.Location()]
	if !ok {
		return nil, assertErr("lookupParser: no descriptor for " + opts.Source.Location())
	}
	return d.Clone(), nil
}

type simpleErr string

func (e simpleErr) Error() string { return string(e) }

func assertErr(msg string) error { return simpleErr(msg) }

func newWalker(resolver ModelResolver, parser ModelProcessor, super *Descriptor) *LineageWalker {
	return &LineageWalker{
		Resolver:   resolver,
		Parser:     parser,
		SuperModel: &fakeSuperModel{d: super},
		ProfileEng: &ProfileEngine{Selector: passthroughSelector{}, Injector: noopInjector{}},
	}
}

func TestLineageWalkerDetectsParentCycle(t *testing.T) {
	leaf := &Descriptor{
		GroupID: "g", ArtifactID: "leaf", Version: "1", Packaging: "pom",
		Parent: &ParentReference{Coordinates: Coordinates{GroupID: "g", ArtifactID: "a-parent", Version: "1"}},
	}
	aParent := &Descriptor{
		GroupID: "g", ArtifactID: "a-parent", Version: "1", Packaging: "pom",
		Parent: &ParentReference{Coordinates: Coordinates{GroupID: "g", ArtifactID: "leaf", Version: "1"}},
	}
	backToLeaf := &Descriptor{GroupID: "g", ArtifactID: "leaf", Version: "1", Packaging: "pom"}

	resolver := &fakeResolver{bySource: map[string]Source{
		"g:a-parent:1": &fakeSource{location: "src:a-parent", content: "x"},
		"g:leaf:1":     &fakeSource{location: "src:leaf-again", content: "x"},
	}}
	parser := &lookupParser{bySource: map[string]*Descriptor{
		"src:a-parent":   aParent,
		"src:leaf-again": backToLeaf,
	}}

	walker := newWalker(resolver, parser, &Descriptor{GroupID: "[unknown-group-id]", Packaging: "pom"})
	pc := NewProblemCollector(ValidationMinimal)
	leafNode := ModelData{Source: "leaf.toml", Model: leaf, Coordinates: leaf.EffectiveCoordinates()}

	_, err := walker.Walk(context.Background(), leafNode, NewActivationContext(), &Request{}, ValidationMinimal, pc)
	require.Error(t, err)
	require.True(t, pc.HasFatalErrors())

	var found bool
	for _, p := range pc.Snapshot() {
		if p.Severity == SeverityFatal {
			assert.Contains(t, p.Message, "g:leaf:1 -> g:a-parent:1 -> g:leaf:1")
			found = true
		}
	}
	assert.True(t, found, "expected a FATAL cycle problem")
}

func TestLineageWalkerNoParentTerminatesAtSuper(t *testing.T) {
	leaf := &Descriptor{GroupID: "g", ArtifactID: "y", Version: "1"}
	super := &Descriptor{GroupID: "[unknown-group-id]", Packaging: "pom"}

	walker := newWalker(&fakeResolver{}, &lookupParser{}, super)
	pc := NewProblemCollector(ValidationMinimal)
	leafNode := ModelData{Source: "y.toml", Model: leaf, Coordinates: leaf.EffectiveCoordinates()}

	lineage, err := walker.Walk(context.Background(), leafNode, NewActivationContext(), &Request{}, ValidationMinimal, pc)
	require.NoError(t, err)
	require.Len(t, lineage, 2)
	assert.Equal(t, "g:y:1", lineage[0].ModelID())
	assert.Equal(t, super, lineage[1].Model)
}

func TestLineageWalkerInvalidAncestorPackagingEmitsError(t *testing.T) {
	leaf := &Descriptor{
		GroupID: "g", ArtifactID: "leaf", Version: "1",
		Parent: &ParentReference{Coordinates: Coordinates{GroupID: "g", ArtifactID: "par", Version: "1"}},
	}
	badParent := &Descriptor{GroupID: "g", ArtifactID: "par", Version: "1", Packaging: "jar"}

	resolver := &fakeResolver{bySource: map[string]Source{
		"g:par:1": &fakeSource{location: "src:par", content: "x"},
	}}
	parser := &lookupParser{bySource: map[string]*Descriptor{"src:par": badParent}}

	walker := newWalker(resolver, parser, &Descriptor{Packaging: "pom"})
	pc := NewProblemCollector(ValidationMinimal)
	leafNode := ModelData{Source: "leaf.toml", Model: leaf, Coordinates: leaf.EffectiveCoordinates()}

	_, err := walker.Walk(context.Background(), leafNode, NewActivationContext(), &Request{}, ValidationMinimal, pc)
	require.NoError(t, err)

	var gotError bool
	for _, p := range pc.Snapshot() {
		if p.Severity == SeverityError {
			assert.Contains(t, p.Message, "must be \"pom\"")
			gotError = true
		}
	}
	assert.True(t, gotError, "expected an ERROR for non-pom ancestor packaging")
}

// TestLineageWalkerLocalParentVersionSkewFallsBackToExternal exercises
// §4.6.1/S5: a range-declared parent whose local candidate lies outside
// the range is rejected, and external resolution is attempted instead.
func TestLineageWalkerLocalParentVersionSkewFallsBackToExternal(t *testing.T) {
	localParent := &fakeSource{location: "../pom.toml", content: "local"}
	leafSrc := &fakeSource{
		location: "leaf.toml",
		content:  "leaf",
		related:  map[string]*fakeSource{"../pom.toml": localParent},
	}

	leaf := &Descriptor{
		GroupID: "g", ArtifactID: "c", Version: "1",
		Parent: &ParentReference{
			Coordinates:  Coordinates{GroupID: "g", ArtifactID: "par", Version: "[1.0,2.0)"},
			RelativePath: "../pom.toml",
		},
	}
	localCandidate := &Descriptor{GroupID: "g", ArtifactID: "par", Version: "3.0", Packaging: "pom"}
	externalParent := &Descriptor{GroupID: "g", ArtifactID: "par", Version: "1.5", Packaging: "pom"}

	resolver := &fakeResolver{bySource: map[string]Source{
		"g:par:[1.0,2.0)": &fakeSource{location: "src:external-par", content: "x"},
	}}
	parser := &lookupParser{bySource: map[string]*Descriptor{
		"../pom.toml":       localCandidate,
		"src:external-par":  externalParent,
	}}

	walker := newWalker(resolver, parser, &Descriptor{Packaging: "pom"})
	pc := NewProblemCollector(ValidationMinimal)
	leafNode := ModelData{Source: "leaf.toml", SourceObj: leafSrc, Model: leaf, Coordinates: leaf.EffectiveCoordinates()}

	lineage, err := walker.Walk(context.Background(), leafNode, NewActivationContext(), &Request{}, ValidationMinimal, pc)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(lineage), 2)
	assert.Equal(t, "1.5", lineage[1].Model.Version, "out-of-range local parent must fall back to the external resolver")
}

// TestLineageWalkerLocalParentInRangeIsAccepted is the positive half of
// S8: a local parent whose version lies within the declared range is
// used without consulting the external resolver.
func TestLineageWalkerLocalParentInRangeIsAccepted(t *testing.T) {
	localParent := &fakeSource{location: "../pom.toml", content: "local"}
	leafSrc := &fakeSource{
		location: "leaf.toml",
		content:  "leaf",
		related:  map[string]*fakeSource{"../pom.toml": localParent},
	}
	leaf := &Descriptor{
		GroupID: "g", ArtifactID: "c", Version: "1.0",
		Parent: &ParentReference{
			Coordinates:  Coordinates{GroupID: "g", ArtifactID: "par", Version: "[1.0,2.0)"},
			RelativePath: "../pom.toml",
		},
	}
	localCandidate := &Descriptor{GroupID: "g", ArtifactID: "par", Version: "1.5", Packaging: "pom"}
	parser := &lookupParser{bySource: map[string]*Descriptor{"../pom.toml": localCandidate}}
	resolver := &fakeResolver{} // must never be consulted

	walker := newWalker(resolver, parser, &Descriptor{Packaging: "pom"})
	pc := NewProblemCollector(ValidationMinimal)
	leafNode := ModelData{Source: "leaf.toml", SourceObj: leafSrc, Model: leaf, Coordinates: leaf.EffectiveCoordinates()}

	lineage, err := walker.Walk(context.Background(), leafNode, NewActivationContext(), &Request{}, ValidationMinimal, pc)
	require.NoError(t, err)
	assert.Equal(t, "1.5", lineage[1].Model.Version)
}
