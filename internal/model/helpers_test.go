package model

import (
	"bytes"
	"context"
	"io"
)

// fakeSource is a minimal in-memory Source for unit tests that don't
// need real file I/O.
type fakeSource struct {
	location       string
	content        string
	openErr        error
	related        map[string]*fakeSource
	fromRepository bool
}

func (s *fakeSource) Location() string { return s.location }

func (s *fakeSource) Open(ctx context.Context) (ReadCloser, error) {
	if s.openErr != nil {
		return nil, s.openErr
	}
	return io.NopCloser(bytes.NewBufferString(s.content)), nil
}

func (s *fakeSource) RelatedSource(relativePath string) (Source, bool) {
	if s.related == nil {
		return nil, false
	}
	r, ok := s.related[relativePath]
	return r, ok
}

func (s *fakeSource) FromRepository() bool { return s.fromRepository }

// fakeParser decodes the fixed descriptor it was constructed with,
// ignoring the byte stream, so tests can drive FileReader/LineageWalker
// without a real codec.
type fakeParser struct {
	result  *Descriptor
	err     error
	lenientResult *Descriptor
	calls   int
}

func (p *fakeParser) Read(ctx context.Context, r ReadCloser, opts ParseOptions) (*Descriptor, error) {
	p.calls++
	if opts.Strict && p.err != nil {
		return nil, p.err
	}
	if !opts.Strict && p.lenientResult != nil {
		return p.lenientResult, nil
	}
	if p.err != nil {
		return nil, p.err
	}
	return p.result, nil
}

// fakeValidator adds no problems of its own; each validation pass
// emits only the problems it was preloaded with.
type fakeValidator struct {
	fileProblems []Problem
	rawProblems  []Problem
	effProblems  []Problem
}

func (v *fakeValidator) ValidateFileModel(d *Descriptor, level ValidationLevel, pc *ProblemCollector) {
	pc.AddAll(v.fileProblems)
}

func (v *fakeValidator) ValidateRawModel(d *Descriptor, level ValidationLevel, pc *ProblemCollector) {
	pc.AddAll(v.rawProblems)
}

func (v *fakeValidator) ValidateEffectiveModel(d *Descriptor, level ValidationLevel, pc *ProblemCollector) {
	pc.AddAll(v.effProblems)
}

// fakeSuperModel returns a fixed super descriptor.
type fakeSuperModel struct {
	d *Descriptor
}

func (s *fakeSuperModel) SuperModel() *Descriptor { return s.d }

// fakeResolver implements ModelResolver by coordinate lookup table.
type fakeResolver struct {
	bySource map[string]Source // keyed by ModelID
	err      error
	repos    []Repository
}

func (r *fakeResolver) ResolveParent(ctx context.Context, ref ParentReference) (Source, error) {
	if r.err != nil {
		return nil, r.err
	}
	src, ok := r.bySource[ref.Coordinates.ModelID()]
	if !ok {
		return nil, io.ErrUnexpectedEOF
	}
	return src, nil
}

func (r *fakeResolver) ResolveDependency(ctx context.Context, dep Dependency) (Source, error) {
	if r.err != nil {
		return nil, r.err
	}
	src, ok := r.bySource[dep.Coordinates.ModelID()]
	if !ok {
		return nil, io.ErrUnexpectedEOF
	}
	return src, nil
}

func (r *fakeResolver) AddRepository(repo Repository, replace bool) error {
	r.repos = append(r.repos, repo)
	return nil
}

func (r *fakeResolver) NewCopy() ModelResolver {
	cp := *r
	return &cp
}

// passthroughSelector (activates no profile) and noopInjector (injects
// nothing) are stand-ins for tests that don't exercise activation logic
// directly.
type passthroughSelector struct{}

func (passthroughSelector) GetActiveProfiles(profiles []Profile, ctx *ActivationContext, pc *ProblemCollector) []Profile {
	return nil
}

type noopInjector struct{}

func (noopInjector) Inject(d *Descriptor, p Profile) {}

type passthroughAssembler struct{}

func (passthroughAssembler) Assemble(parent, child *Descriptor) *Descriptor {
	merged := child.Clone()
	if merged.GroupID == "" {
		merged.GroupID = parent.GroupID
	}
	if merged.Version == "" {
		merged.Version = parent.Version
	}
	merged.Build.Plugins = append(append([]Plugin(nil), child.Build.Plugins...), parent.Build.Plugins...)
	merged.Build.PluginManagement = append(append([]Plugin(nil), child.Build.PluginManagement...), parent.Build.PluginManagement...)
	return merged
}

type noopInterpolator struct{}

func (noopInterpolator) Interpolate(d *Descriptor, sources []map[string]string, pc *ProblemCollector) error {
	return nil
}
