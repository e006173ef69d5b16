package model

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sdboyer/constext"
)

// LineageWalker is C6: produces the ordered ancestor list
// L = [leafRaw, parent, grandparent, ..., super] with cycle detection
// (§4.6).
type LineageWalker struct {
	Cache       Cache
	Resolver    ModelResolver
	Workspace   WorkspaceModelResolver
	Parser      ModelProcessor
	SuperModel  SuperModelProvider
	ProfileEng  *ProfileEngine
	Validator   Validator
	// ResolveTimeout bounds each blocking external resolver call,
	// combined with the caller's context via sdboyer/constext the same
	// way deducers.go's callManager combines a per-call timeout context
	// with the long-lived deduction context.
	ResolveTimeout time.Duration
}

// Walk implements §4.6's six-step algorithm.
func (lw *LineageWalker) Walk(ctx context.Context, leaf ModelData, actCtx *ActivationContext, req *Request, level ValidationLevel, pc *ProblemCollector) ([]ModelData, error) {
	var lineage []ModelData
	visited := map[string]bool{}
	var path []string

	current := leaf
	for {
		id := current.ModelID()
		if visited[id] {
			path = append(path, id)
			pc.Add(Problem{
				Severity: SeverityFatal,
				Source:   id,
				Message:  "The parents form a cycle: " + strings.Join(path, " -> "),
			})
			return nil, errors.Errorf("parent cycle detected: %s", strings.Join(path, " -> "))
		}
		visited[id] = true
		path = append(path, id)

		if lw.Cache != nil && current.Model != nil {
			coord := current.Model.EffectiveCoordinates()
			if coord.GroupID != "" && coord.ArtifactID != "" && coord.Version != "" {
				_ = lw.Cache.PutByCoordinates(coord, TagRaw, current.Model)
			}
		}

		isLeaf := len(lineage) == 0
		if !isLeaf {
			// packaging=="pom" required on every ancestor (invariant 4).
			if current.Model.Packaging != "pom" {
				pc.Add(Problem{
					Severity: SeverityError,
					Source:   id,
					Message:  "Invalid packaging for parent POM " + id + ", must be \"pom\" but is \"" + current.Model.Packaging + "\"",
				})
			}

			pomActive, extActive := lw.ProfileEng.GetActiveProfiles(current.Model.Profiles, req.Profiles, actCtx, pc)
			activated := current.Model.Clone()
			lw.ProfileEng.InjectActive(activated, pomActive, extActive)
			current.Model = activated
		}

		lineage = append(lineage, current)

		for _, r := range current.Model.Repositories {
			_ = lw.Resolver.AddRepository(r, false)
		}

		if current.Model.Parent == nil {
			super := lw.SuperModel.SuperModel()
			superID := super.ModelID()
			if visited[superID] {
				break
			}
			lineage = append(lineage, ModelData{Source: "super-pom", Model: super, Coordinates: super.EffectiveCoordinates()})
			break
		}

		next, err := lw.resolveParent(ctx, current, req, level, pc)
		if err != nil {
			return nil, err
		}
		if next == nil {
			// Resolution exhausted without success; a FATAL/ERROR has
			// already been recorded by resolveParent.
			return nil, errors.Errorf("could not resolve parent for %s", id)
		}
		current = *next
	}

	return lineage, nil
}

// resolveParent implements §4.6.1: local resolution first, external
// fallback second.
func (lw *LineageWalker) resolveParent(ctx context.Context, node ModelData, req *Request, level ValidationLevel, pc *ProblemCollector) (*ModelData, error) {
	ref := node.Model.Parent

	if md := lw.resolveLocalParent(ctx, node, ref, pc); md != nil {
		return md, nil
	}

	return lw.resolveExternalParent(ctx, node, ref, req, level, pc)
}

// resolveLocalParent implements the "Local" path of §4.6.1.
func (lw *LineageWalker) resolveLocalParent(ctx context.Context, node ModelData, ref *ParentReference, pc *ProblemCollector) *ModelData {
	if ref.RelativePath == "" {
		return nil
	}

	relSrc, ok := relatedSourceOf(node, ref.RelativePath)
	if !ok {
		return nil
	}

	rc, err := relSrc.Open(ctx)
	if err != nil {
		return nil
	}
	defer rc.Close()

	d, err := lw.Parser.Read(ctx, rc, ParseOptions{Strict: false, Source: relSrc})
	if err != nil {
		return nil
	}

	if d.GroupID != ref.GroupID || d.ArtifactID != ref.ArtifactID {
		pc.Add(Problem{
			Severity: SeverityWarning,
			Source:   node.ModelID(),
			Message:  "Local parent " + relSrc.Location() + " declares coordinates that do not match the declared parent",
		})
		return nil
	}

	if IsVersionRange(ref.Version) {
		rng, err := ParseVersionRange(ref.Version)
		if err != nil || !rng.Contains(d.Version) {
			return nil
		}
		if !IsLiteralConstant(node.Model.Version) {
			pc.Add(Problem{Severity: SeverityFatal, Source: node.ModelID(), Message: "Version must be a constant"})
			return nil
		}
	} else if ref.Version != "" && ref.Version != d.Version {
		// version skew against a literal parent version ⇒ fallback to external.
		return nil
	}

	return &ModelData{Source: relSrc.Location(), SourceObj: relSrc, Model: d, Coordinates: d.EffectiveCoordinates()}
}

// relatedSourceOf resolves relativePath against the node's own source
// via Source.RelatedSource, if the node carries a live Source object
// (cache-derived nodes, which have no live Source, simply fail local
// resolution and fall through to the external path).
func relatedSourceOf(node ModelData, relativePath string) (Source, bool) {
	if node.SourceObj == nil {
		return nil, false
	}
	return node.SourceObj.RelatedSource(relativePath)
}

// resolveExternalParent implements the "External" path of §4.6.1.
func (lw *LineageWalker) resolveExternalParent(ctx context.Context, node ModelData, ref *ParentReference, req *Request, level ValidationLevel, pc *ProblemCollector) (*ModelData, error) {
	coord := Coordinates{GroupID: ref.GroupID, ArtifactID: ref.ArtifactID, Version: ref.Version}

	if lw.Cache != nil {
		if cached, ok := lw.Cache.GetByCoordinates(coord, TagRaw); ok {
			return &ModelData{Source: "cache:" + coord.ModelID(), Model: cached, Coordinates: coord}, nil
		}
	}

	cctx, cancel := lw.combinedContext(ctx)
	defer cancel()

	src, err := lw.Resolver.ResolveParent(cctx, *ref)
	if err != nil {
		pc.Add(Problem{
			Severity: SeverityFatal,
			Source:   node.ModelID(),
			Message:  "Non-resolvable parent POM for " + node.ModelID() + ": " + err.Error(),
			Cause:    err,
		})
		return nil, errors.Wrapf(err, "resolving parent %s", coord.ModelID())
	}

	rc, err := src.Open(cctx)
	if err != nil {
		pc.Add(Problem{Severity: SeverityFatal, Source: node.ModelID(), Message: err.Error(), Cause: err})
		return nil, errors.Wrap(err, "opening resolved parent source")
	}
	defer rc.Close()

	// Lenient request: validation level clamped to V20 (§4.6.1).
	clamped := level
	if clamped > ValidationV20 {
		clamped = ValidationV20
	}

	d, err := lw.Parser.Read(cctx, rc, ParseOptions{Strict: clamped >= ValidationV20, Source: src})
	if err != nil {
		pc.Add(Problem{Severity: SeverityFatal, Source: node.ModelID(), Message: err.Error(), Cause: err})
		return nil, errors.Wrap(err, "parsing resolved parent")
	}

	if ref.Version != "" && ref.Version != d.Version && !IsVersionRange(ref.Version) {
		if !IsLiteralConstant(node.Model.Version) {
			pc.Add(Problem{Severity: SeverityFatal, Source: node.ModelID(), Message: "Version must be a constant"})
			return nil, errors.New("version must be a constant")
		}
	}

	if lw.Cache != nil {
		_ = lw.Cache.PutByCoordinates(d.EffectiveCoordinates(), TagRaw, d)
	}

	return &ModelData{Source: src.Location(), SourceObj: src, Model: d, Coordinates: d.EffectiveCoordinates()}, nil
}

// combinedContext combines the caller's context with an internal
// resolve timeout, exactly as deducers.go's newDeductionCoordinator
// does with constext.Cons before a blocking deduction call.
func (lw *LineageWalker) combinedContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if lw.ResolveTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	octx, cancel := context.WithTimeout(context.Background(), lw.ResolveTimeout)
	cctx, combinedCancel := constext.Cons(ctx, octx)
	return cctx, func() {
		combinedCancel()
		cancel()
	}
}
