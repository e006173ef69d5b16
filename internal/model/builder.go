package model

import (
	"context"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Builder is the top-level orchestrator: FileReader → RawBuilder →
// ProfileEngine (phase 1) → LineageWalker → ProfileEngine (per
// ancestor) → InheritanceAssembler → Interpolator → EffectiveBuilder
// (phase 2), per spec.md §2's data-flow diagram.
type Builder struct {
	Log *zap.Logger
}

// Build runs the pipeline. If req.TwoPhaseBuilding is true, it stops
// after raw+lineage+effective assembly (before path
// translation/injection/validation) and returns a Result with
// Phase == PhaseRaw; the caller then calls Continue with that result to
// finish.
func (b *Builder) Build(ctx context.Context, req *Request) (*Result, error) {
	pc := NewProblemCollector(req.ValidationLevel)

	fr := &FileReader{Parser: req.Collaborators.Parser, Cache: req.Cache}
	fileModel, err := fr.Read(ctx, req.ModelSource, req.ValidationLevel, req.LocationTracking, pc)
	if err != nil {
		return nil, err
	}
	req.Collaborators.Validator.ValidateFileModel(fileModel, req.ValidationLevel, pc)
	if pc.HasFatalErrors() {
		return nil, newBuildFailed(fileModel.ModelID(), pc)
	}

	rawBuilder := &RawBuilder{Cache: req.Cache, Validator: req.Collaborators.Validator}
	rawModel, err := rawBuilder.Build(ctx, req, fileModel, req.ValidationLevel, pc)
	if err != nil {
		return nil, err
	}
	pc.SetRootModel(rawModel.ModelID())
	b.log().Debug("raw model built", zap.String("model", rawModel.ModelID()))

	actCtx := newActivationContext(req)
	profileEng := &ProfileEngine{Selector: req.Collaborators.ProfileSelector, Injector: req.Collaborators.ProfileInjector}

	pomActive, extActive := profileEng.GetActiveProfiles(rawModel.Profiles, req.Profiles, actCtx, pc)
	leafActivated := rawModel.Clone()
	profileEng.InjectActive(leafActivated, pomActive, extActive)

	leaf := ModelData{
		Source:      req.ModelSource.Location(),
		SourceObj:   req.ModelSource,
		Model:       leafActivated,
		Coordinates: leafActivated.EffectiveCoordinates(),
	}

	walker := &LineageWalker{
		Cache:      req.Cache,
		Resolver:   req.Collaborators.ModelResolver,
		Workspace:  req.Collaborators.WorkspaceResolver,
		Parser:     req.Collaborators.Parser,
		SuperModel: req.Collaborators.SuperModel,
		ProfileEng: profileEng,
		Validator:  req.Collaborators.Validator,
	}
	lineage, err := walker.Walk(ctx, leaf, actCtx, req, req.ValidationLevel, pc)
	if err != nil {
		return nil, err
	}
	if pc.HasFatalErrors() {
		return nil, newBuildFailed(rawModel.ModelID(), pc)
	}
	b.log().Debug("lineage walked", zap.Int("ancestors", len(lineage)-1))

	assembler := &InheritanceAssembler{Assembler: req.Collaborators.Assembler}
	inherited := assembler.Assemble(lineage, pc)

	interp := &InterpolatorWrapper{Interpolator: req.Collaborators.Interpolator}
	if err := interp.Interpolate(inherited, actCtx, pc); err != nil {
		return nil, errors.Wrap(err, "interpolating model")
	}
	if pc.HasErrors() {
		return nil, newBuildFailed(inherited.ModelID(), pc)
	}

	activeProfileIDsByModel := map[string][]string{}
	for _, p := range pomActive {
		activeProfileIDsByModel[rawModel.ModelID()] = append(activeProfileIDsByModel[rawModel.ModelID()], p.ID)
	}
	externalIDs := make([]string, 0, len(extActive))
	for _, p := range extActive {
		externalIDs = append(externalIDs, p.ID)
	}

	modelIDs := make([]string, len(lineage))
	rawModels := make(map[string]*Descriptor, len(lineage))
	for i, md := range lineage {
		modelIDs[i] = md.ModelID()
		rawModels[md.ModelID()] = md.Model
	}

	result := &Result{
		Phase:                  PhaseRaw,
		FileModel:              fileModel,
		RawModel:               rawModel,
		EffectiveModel:         inherited,
		ModelIDs:               modelIDs,
		RawModels:              rawModels,
		ActivePomProfiles:      activeProfileIDsByModel,
		ActiveExternalProfiles: externalIDs,
		Problems:               pc.Snapshot(),
		lineage:                lineage,
		activationCtx:          actCtx,
	}

	if req.TwoPhaseBuilding {
		return result, nil
	}

	return b.Continue(ctx, req, result)
}

// Continue completes phase 2 on a phase-1 result (§6's "build(request,
// priorResult)"). It asserts the phase marker rather than trusting
// caller discipline silently (SPEC_FULL supplement 2).
func (b *Builder) Continue(ctx context.Context, req *Request, prior *Result) (*Result, error) {
	if prior.Phase != PhaseRaw {
		return nil, errors.Errorf("Continue called on a result already at phase %v", prior.Phase)
	}

	pc := NewProblemCollector(req.ValidationLevel)
	pc.AddAll(prior.Problems)
	pc.SetRootModel(prior.EffectiveModel.ModelID())

	eb := &EffectiveBuilder{
		PathTranslator:     req.Collaborators.PathTranslator,
		PluginManagement:   req.Collaborators.PluginManagement,
		Listener:           req.Collaborators.Listener,
		LifecycleBindings:  req.Collaborators.LifecycleBindings,
		Import:             &ImportResolver{Cache: req.Cache, Workspace: req.Collaborators.WorkspaceResolver, Resolver: req.Collaborators.ModelResolver, Parser: req.Collaborators.Parser, Builder: b},
		DepManagement:      req.Collaborators.DependencyManagement,
		Importer:           req.Collaborators.Importer,
		Normalizer:         req.Collaborators.Normalizer,
		PluginConfig:       req.Collaborators.PluginConfig,
		ReportConfig:       req.Collaborators.ReportConfig,
		ReportingConverter: req.Collaborators.ReportingConverter,
		Validator:          req.Collaborators.Validator,
	}

	effective, err := eb.Build(ctx, prior.EffectiveModel, req, req.ValidationLevel, pc)
	if err != nil {
		return nil, err
	}

	prior.EffectiveModel = effective
	prior.Phase = PhaseEffective
	prior.Problems = pc.Snapshot()
	b.log().Debug("effective model built", zap.String("model", effective.ModelID()))
	return prior, nil
}

// log returns b.Log, falling back to a no-op logger so a zero-value
// Builder never panics on a nil logger.
func (b *Builder) log() *zap.Logger {
	if b.Log == nil {
		return zap.NewNop()
	}
	return b.Log
}

func newActivationContext(req *Request) *ActivationContext {
	ctx := NewActivationContext()
	for _, id := range req.ActiveProfileIDs {
		ctx.ActiveIDs[id] = true
	}
	for _, id := range req.InactiveProfileIDs {
		ctx.InactiveIDs[id] = true
	}
	for k, v := range req.SystemProperties {
		ctx.SystemProperties[k] = v
	}
	for k, v := range req.UserProperties {
		ctx.UserProperties[k] = v
	}
	return ctx
}
