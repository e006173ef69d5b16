package model

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestImportResolverRemovesImportEntries verifies the non-cyclic path of
// §4.9: a type=pom/scope=import entry is stripped from the model's own
// dependencyManagement and its resolved management set is returned for
// the caller to merge.
func TestImportResolverRemovesImportEntries(t *testing.T) {
	d := &Descriptor{
		GroupID: "g", ArtifactID: "app", Version: "1",
		DependencyManagement: DependencyManagement{Dependencies: []Dependency{
			{Coordinates: Coordinates{GroupID: "g", ArtifactID: "literal"}, Type: "jar", Scope: "compile"},
			{Coordinates: Coordinates{GroupID: "g", ArtifactID: "bom", Version: "1.0"}, Type: "pom", Scope: "import"},
		}},
	}

	ws := &fakeWorkspaceResolver{effective: map[string]*Descriptor{
		"g:bom:1.0": {
			DependencyManagement: DependencyManagement{Dependencies: []Dependency{
				{Coordinates: Coordinates{GroupID: "g", ArtifactID: "managed", Version: "2.0"}},
			}},
		},
	}}

	ir := &ImportResolver{Workspace: ws}
	pc := NewProblemCollector(ValidationMinimal)
	imported, err := ir.Resolve(context.Background(), d, &Request{}, ValidationMinimal, NewImportChain(), pc)
	require.NoError(t, err)
	require.False(t, pc.HasErrors())

	require.Len(t, d.DependencyManagement.Dependencies, 1, "the import entry must be removed")
	assert.Equal(t, "literal", d.DependencyManagement.Dependencies[0].ArtifactID)

	require.Len(t, imported, 1)
	require.Len(t, imported[0].Dependencies, 1)
	assert.Equal(t, "managed", imported[0].Dependencies[0].ArtifactID)
}

// TestImportResolverDetectsCycle covers S4: X imports Y, Y imports X.
func TestImportResolverDetectsCycle(t *testing.T) {
	x := &Descriptor{
		GroupID: "g", ArtifactID: "x", Version: "1",
		DependencyManagement: DependencyManagement{Dependencies: []Dependency{
			{Coordinates: Coordinates{GroupID: "g", ArtifactID: "y", Version: "1"}, Type: "pom", Scope: "import"},
		}},
	}

	ir := &ImportResolver{}
	pc := NewProblemCollector(ValidationMinimal)

	// Simulate entering the import walk for x, recursing into y, then y
	// re-entering x: the chain already carries "g:x:1" when the nested
	// call for y's own dependencyManagement sees an import back to x.
	chain := NewImportChain()
	chain.push("g:x:1")
	y := &Descriptor{
		GroupID: "g", ArtifactID: "y", Version: "1",
		DependencyManagement: DependencyManagement{Dependencies: []Dependency{
			{Coordinates: Coordinates{GroupID: "g", ArtifactID: "x", Version: "1"}, Type: "pom", Scope: "import"},
		}},
	}
	_, err := ir.Resolve(context.Background(), y, &Request{}, ValidationMinimal, chain, pc)
	require.NoError(t, err)

	var gotCycle bool
	for _, p := range pc.Snapshot() {
		if p.Severity == SeverityError {
			assert.Contains(t, p.Message, "form a cycle")
			assert.Contains(t, p.Message, "g:x:1")
			gotCycle = true
		}
	}
	assert.True(t, gotCycle, "expected an import-cycle ERROR")

	// Stack discipline: x's own entry (pushed before this call) must
	// survive; the import resolver must not pop an id it didn't push.
	assert.True(t, chain.Contains("g:x:1"))

	_ = x // exercised implicitly via the cycle scenario description
}

// TestImportResolverMissingCoordinatesSkipsWithError covers §4.9 step 2.
func TestImportResolverMissingCoordinatesSkipsWithError(t *testing.T) {
	d := &Descriptor{
		DependencyManagement: DependencyManagement{Dependencies: []Dependency{
			{Coordinates: Coordinates{GroupID: "g"}, Type: "pom", Scope: "import"},
		}},
	}
	ir := &ImportResolver{}
	pc := NewProblemCollector(ValidationMinimal)
	imported, err := ir.Resolve(context.Background(), d, &Request{}, ValidationMinimal, NewImportChain(), pc)
	require.NoError(t, err)
	assert.Empty(t, imported)
	assert.True(t, pc.HasErrors())
	assert.Empty(t, d.DependencyManagement.Dependencies, "the incomplete import entry is still removed")
}

// fakeWorkspaceResolver implements WorkspaceModelResolver over a fixed
// map, for the "workspace resolution precedes repository resolution"
// step of §4.9.
type fakeWorkspaceResolver struct {
	raw       map[string]*Descriptor
	effective map[string]*Descriptor
}

func (w *fakeWorkspaceResolver) ResolveRawModel(c Coordinates) (*Descriptor, bool) {
	d, ok := w.raw[c.ModelID()]
	return d, ok
}

func (w *fakeWorkspaceResolver) ResolveEffectiveModel(c Coordinates) (*Descriptor, bool) {
	d, ok := w.effective[c.ModelID()]
	return d, ok
}
