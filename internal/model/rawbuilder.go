package model

import (
	"context"

	"github.com/pkg/errors"
)

// mergeStrategy is one of {skip, pairwise-index, replace-wholesale},
// per DESIGN NOTES §9: "express [the restricted merger] as a
// configuration table mapping each field to one of these, rather than
// as method overrides." This mirrors the teacher's toml.go tomlMapper,
// which drives its decode from a small per-field table instead of a
// family of overridden methods.
type mergeStrategy int

const (
	mergeSkip mergeStrategy = iota
	mergePairwiseIndex
	mergeReplaceWholesale
)

// restrictedMergeTable is the field dispatch table for the raw-transform
// merge (§4.4). Collections carrying identity-significant location
// metadata are merged pairwise by index; purely structural collections
// are either skipped or replaced wholesale.
var restrictedMergeTable = map[string]mergeStrategy{
	"dependencies":        mergePairwiseIndex,
	"pluginDependencies":  mergePairwiseIndex,
	"profiles":            mergePairwiseIndex,
	"repositories":        mergeReplaceWholesale,
	"plugins":             mergeSkip,
	"extensions":          mergeSkip,
	"resources":           mergeSkip,
	"notifiers":           mergeSkip,
	"exclusions":          mergeSkip,
	"contributors":        mergeSkip,
	"developers":          mergeSkip,
	"licenses":            mergeSkip,
	"mailingLists":        mergeSkip,
	"executions":          mergeSkip,
	"reportSets":          mergeSkip,
}

// RawBuilder is C4: clones the file-model, optionally merges a
// build-consumer transform, and validates the raw model.
type RawBuilder struct {
	Cache     Cache
	Validator Validator
	// BuildConsumer mirrors the "build-consumer" feature flag §4.4
	// gates the transform merge on.
	BuildConsumer bool
}

// shouldMergeTransformed implements the spec's Open Question decision
// (SPEC_FULL.md): the merge is gated on locationTracking && pomFile !=
// "", not pomFile alone, since location metadata is the only reason the
// merge exists.
func (rb *RawBuilder) shouldMergeTransformed(req *Request, fileModel *Descriptor) bool {
	return rb.BuildConsumer && req.LocationTracking && fileModel.PomFile != ""
}

// Build implements §4.4.
func (rb *RawBuilder) Build(ctx context.Context, req *Request, fileModel *Descriptor, level ValidationLevel, pc *ProblemCollector) (*Descriptor, error) {
	raw := fileModel.Clone()

	if rb.shouldMergeTransformed(req, fileModel) {
		rc, err := req.ModelSource.Open(ctx)
		if err != nil {
			return nil, errors.Wrap(err, "reopening source for build-consumer transform")
		}
		transformed, err := req.Collaborators.Parser.Read(ctx, rc, ParseOptions{
			Source:            req.ModelSource,
			LocationTracking:  req.LocationTracking,
			TransformerActive: true,
		})
		rc.Close()
		if err != nil {
			return nil, errors.Wrap(err, "re-parsing for build-consumer transform")
		}
		mergeRestricted(raw, transformed)
	}

	raw.GroupID = deriveField(raw.GroupID, raw.Parent, func(p *ParentReference) string { return p.GroupID })
	raw.ArtifactID = fileModel.ArtifactID // artifactId is never inherited (invariant 1)
	raw.Version = deriveField(raw.Version, raw.Parent, func(p *ParentReference) string { return p.Version })

	if rb.Validator != nil {
		rb.Validator.ValidateRawModel(raw, level, pc)
	}
	if pc.HasFatalErrors() {
		return nil, newBuildFailed(raw.ModelID(), pc)
	}

	if rb.Cache != nil {
		coord := raw.EffectiveCoordinates()
		if coord.GroupID != "" && coord.ArtifactID != "" && coord.Version != "" {
			_ = rb.Cache.PutByCoordinates(coord, TagRaw, raw)
		}
	}

	return raw, nil
}

func deriveField(self string, parent *ParentReference, pick func(*ParentReference) string) string {
	if self != "" || parent == nil {
		return self
	}
	return pick(parent)
}

// mergeRestricted applies the field dispatch table: pairwise-index
// merge for dependencies/profiles (by equal length, per the invariant
// that raw is a clone of file before transform so counts match),
// wholesale replace for repositories, skip for everything else.
func mergeRestricted(dst, src *Descriptor) {
	if restrictedMergeTable["dependencies"] == mergePairwiseIndex {
		mergeDependenciesPairwise(dst.Dependencies, src.Dependencies)
	}
	if restrictedMergeTable["profiles"] == mergePairwiseIndex && len(dst.Profiles) == len(src.Profiles) {
		for i := range dst.Profiles {
			mergeDependenciesPairwise(dst.Profiles[i].Dependencies, src.Profiles[i].Dependencies)
		}
	}
	if restrictedMergeTable["repositories"] == mergeReplaceWholesale {
		dst.Repositories = append([]Repository(nil), src.Repositories...)
	}
	// "plugins" (build.plugins) is mergeSkip: location trackers on
	// individual plugin executions are too granular to survive a
	// pairwise merge without their own sub-table, so the transform's
	// plugin data is dropped here and the untransformed clone stands.
}

func mergeDependenciesPairwise(dst, src []Dependency) {
	if len(dst) != len(src) {
		return
	}
	for i := range dst {
		if src[i].Location != nil {
			dst[i].Location = src[i].Location
		}
	}
}
