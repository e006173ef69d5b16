package model

import (
	"context"
	"strings"

	"github.com/pkg/errors"
)

// ImportResolver is C9: imports dependency-management from type=pom
// scope=import entries, with cycle detection (§4.9).
type ImportResolver struct {
	Cache     Cache
	Workspace WorkspaceModelResolver
	Resolver  ModelResolver
	Parser    ModelProcessor
	Builder   *Builder // for the full-pipeline recursion of step 4b
}

// ImportChain tracks, in recursion order, the ModelIds currently being
// resolved for dependency-management import (§4.9's "importIds set
// carried through recursion"). Step 4b recurses through a brand-new
// top-level Builder.Build call rather than a direct function call, so a
// plain local map would reset on every hop and never actually detect a
// cycle; threading one *ImportChain through Request.ImportChain across
// that recursion is what makes invariant 3 hold.
type ImportChain struct {
	ids []string
	set map[string]bool
}

// NewImportChain returns an empty chain.
func NewImportChain() *ImportChain {
	return &ImportChain{set: map[string]bool{}}
}

// Contains reports whether id is already on the chain.
func (c *ImportChain) Contains(id string) bool { return c.set[id] }

func (c *ImportChain) push(id string) {
	c.ids = append(c.ids, id)
	c.set[id] = true
}

// pop removes the most recently pushed id (stack discipline, §4.9
// "remove the importing id from importIds on exit").
func (c *ImportChain) pop() {
	last := c.ids[len(c.ids)-1]
	c.ids = c.ids[:len(c.ids)-1]
	delete(c.set, last)
}

// path returns the chain in recursion order, oldest first.
func (c *ImportChain) path() []string {
	return append([]string(nil), c.ids...)
}

// Resolve mutates model.DependencyManagement.Dependencies in place,
// removing every type=pom/scope=import entry, and returns the
// accumulated imported management sets for the caller (EffectiveBuilder)
// to merge via DependencyManagementImporter.
func (ir *ImportResolver) Resolve(ctx context.Context, d *Descriptor, req *Request, level ValidationLevel, chain *ImportChain, pc *ProblemCollector) ([]DependencyManagement, error) {
	selfID := d.ModelID()
	if chain.Contains(selfID) {
		return nil, nil
	}
	chain.push(selfID)
	defer chain.pop()

	var kept []Dependency
	var imported []DependencyManagement

	for _, dep := range d.DependencyManagement.Dependencies {
		if dep.Type != "pom" || dep.Scope != "import" {
			kept = append(kept, dep)
			continue
		}

		if dep.GroupID == "" || dep.ArtifactID == "" || dep.Version == "" {
			pc.Add(Problem{
				Severity: SeverityError,
				Source:   selfID,
				Location: dep.Location,
				Message:  "'dependencyManagement.dependencies.dependency' for " + dep.ModelID() + " misses coordinates for import",
			})
			continue
		}

		coord := dep.Coordinates
		chainID := coord.ModelID()
		if chain.Contains(chainID) {
			path := append(chain.path(), chainID)
			pc.Add(Problem{
				Severity: SeverityError,
				Source:   selfID,
				Location: dep.Location,
				Message:  "The dependencies of type=pom and with scope=import form a cycle: " + strings.Join(path, " -> "),
			})
			continue
		}

		dm, err := ir.resolveOne(ctx, coord, req, level, chain, pc)
		if err != nil {
			pc.Wrapf(SeverityError, GateBase, err, "resolving dependencyManagement import %s", chainID)
			continue
		}
		imported = append(imported, dm)
	}

	d.DependencyManagement.Dependencies = kept
	return imported, nil
}

func (ir *ImportResolver) resolveOne(ctx context.Context, coord Coordinates, req *Request, level ValidationLevel, chain *ImportChain, pc *ProblemCollector) (DependencyManagement, error) {
	if ir.Cache != nil {
		if dm, ok := ir.Cache.GetImport(coord); ok {
			return dm, nil
		}
	}

	// 4a. Workspace resolution precedes repository resolution.
	if ir.Workspace != nil {
		if eff, ok := ir.Workspace.ResolveEffectiveModel(coord); ok {
			dm := eff.DependencyManagement
			if ir.Cache != nil {
				_ = ir.Cache.PutImport(coord, dm)
			}
			return dm, nil
		}
	}

	// 4b. Resolve via ModelResolver, recurse through the full pipeline.
	src, err := ir.Resolver.ResolveDependency(ctx, Dependency{Coordinates: coord, Type: "pom", Scope: "import"})
	if err != nil {
		return DependencyManagement{}, errors.Wrapf(err, "unresolvable import %s", coord.ModelID())
	}

	subReq := &Request{
		ModelSource:      src,
		ValidationLevel:  ValidationMinimal,
		LocationTracking: req.LocationTracking,
		SystemProperties: req.SystemProperties,
		UserProperties:   req.UserProperties,
		Cache:            req.Cache,
		Collaborators:    cloneCollaboratorsWithFreshResolver(req.Collaborators),
		// Sharing chain (not a copy) across this full-pipeline recursion
		// is what lets a multi-hop import cycle (X -> Y -> X) be detected
		// at Y's own EffectiveBuilder.Build instead of recursing forever.
		ImportChain: chain,
	}

	result, err := ir.Builder.Build(ctx, subReq)
	if err != nil {
		if bf, ok := err.(*BuildFailed); ok {
			pc.AddAll(bf.Problems)
		}
		return DependencyManagement{}, errors.Wrapf(err, "building imported model %s", coord.ModelID())
	}

	dm := DependencyManagement{}
	if result.EffectiveModel != nil {
		dm = result.EffectiveModel.DependencyManagement // 4c: nil normalizes to empty container by zero value
	}

	if ir.Cache != nil {
		_ = ir.Cache.PutImport(coord, dm)
	}
	return dm, nil
}

// cloneCollaboratorsWithFreshResolver returns a Collaborators sharing
// every field except ModelResolver, which is replaced by a fresh copy
// via NewCopy() (§4.9 step 4b: "fresh resolver via newCopy").
func cloneCollaboratorsWithFreshResolver(c *Collaborators) *Collaborators {
	cp := *c
	cp.ModelResolver = c.ModelResolver.NewCopy()
	return &cp
}
