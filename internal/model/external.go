package model

import "context"

// The types in this file are the external collaborators spec.md §6
// declares out of scope for the core: the parser, the coordinate and
// workspace resolvers, the profile selector/injector, the interpolator,
// the normalizer/validator, and the plugin/reporting expanders. The
// core depends only on these narrow interfaces — concrete reference
// implementations live in internal/descio.

// Source is an addressable byte producer with a location string, used
// as a cache key and in diagnostics.
type Source interface {
	Location() string
	Open(ctx context.Context) (ReadCloser, error)
	// RelatedSource resolves a path relative to this source's location,
	// for local parent discovery (§4.6.1). It returns (nil, false) when
	// the source has no notion of "relative to me" (e.g. a byte buffer).
	RelatedSource(relativePath string) (Source, bool)
	// FromRepository reports whether this source was produced by a
	// ModelResolver (as opposed to a local file or literal buffer). The
	// core does not call it: LineageWalker's external-parent path reuses
	// any cached raw entry for the parent's coordinates, whatever source
	// it was read from.
	FromRepository() bool
}

// ReadCloser is the minimal byte-stream contract FileReader needs.
type ReadCloser interface {
	Read(p []byte) (n int, err error)
	Close() error
}

// ParseOptions configures a ModelProcessor.Read call (§6).
type ParseOptions struct {
	Strict            bool
	Source            Source
	LocationTracking  bool
	TransformerActive bool
}

// ModelProcessor parses a byte stream into a Descriptor (§6). It is the
// out-of-scope "parser" collaborator; internal/descio/toml.go provides
// a reference implementation.
type ModelProcessor interface {
	Read(ctx context.Context, r ReadCloser, opts ParseOptions) (*Descriptor, error)
}

// ModelResolver locates descriptors by coordinates in a repository
// (§6). newCopy() supports the per-import-recursion "fresh resolver"
// requirement of §4.9.
type ModelResolver interface {
	ResolveParent(ctx context.Context, ref ParentReference) (Source, error)
	ResolveDependency(ctx context.Context, dep Dependency) (Source, error)
	AddRepository(repo Repository, replace bool) error
	NewCopy() ModelResolver
}

// WorkspaceModelResolver locates peer descriptors on disk by
// coordinates, bypassing repository resolution entirely (§6, §4.9 step
// 4a).
type WorkspaceModelResolver interface {
	ResolveRawModel(c Coordinates) (*Descriptor, bool)
	ResolveEffectiveModel(c Coordinates) (*Descriptor, bool)
}

// ProfileSelector evaluates profile activation predicates (§6).
type ProfileSelector interface {
	GetActiveProfiles(profiles []Profile, ctx *ActivationContext, pc *ProblemCollector) []Profile
}

// ProfileInjector merges a single active profile's contribution into a
// descriptor (§6, §4.5 injectProfile).
type ProfileInjector interface {
	Inject(d *Descriptor, p Profile)
}

// Assembler composes a child descriptor from its parent with
// child-wins semantics (§6, §4.7 InheritanceAssembler).
type Assembler interface {
	Assemble(parent, child *Descriptor) *Descriptor
}

// PropertyInterpolator replaces "${expr}" occurrences in every string
// field of a descriptor (§6, §4.8).
type PropertyInterpolator interface {
	Interpolate(d *Descriptor, sources []map[string]string, pc *ProblemCollector) error
}

// Normalizer applies default-value injection (§6, §4.10 step 7).
type Normalizer interface {
	Normalize(d *Descriptor)
}

// Validator runs structural (file-level) or semantic (effective-level)
// validation (§6, §4.3 step 5, §4.10 step 9).
type Validator interface {
	ValidateFileModel(d *Descriptor, level ValidationLevel, pc *ProblemCollector)
	// ValidateRawModel checks the raw model (§4.4): the groupId/version
	// inheritance fallback has already run, so this is a distinct pass
	// from ValidateFileModel, not a second invocation of it.
	ValidateRawModel(d *Descriptor, level ValidationLevel, pc *ProblemCollector)
	ValidateEffectiveModel(d *Descriptor, level ValidationLevel, pc *ProblemCollector)
}

// PathTranslator rewrites file-path fields against the project
// directory (§6, §4.10 step 1).
type PathTranslator interface {
	Translate(d *Descriptor, projectDir string)
}

// SuperModelProvider supplies the implicit root ancestor (§4.6, §6).
type SuperModelProvider interface {
	SuperModel() *Descriptor
}

// PluginManagementInjector, DependencyManagementInjector,
// DependencyManagementImporter, LifecycleBindingsInjector,
// PluginConfigurationExpander, and ReportConfigurationExpander are the
// remaining narrow §6 collaborators EffectiveBuilder (C10) calls in
// sequence. Each mutates the descriptor in place; only
// LifecycleBindingsInjector also receives the shared collector.
type PluginManagementInjector interface {
	InjectPluginManagement(d *Descriptor)
}

type DependencyManagementInjector interface {
	InjectDependencyManagement(d *Descriptor)
}

type DependencyManagementImporter interface {
	// Import merges the accumulated imported management sets into the
	// model with first-declared-wins semantics (§4.9 step 5).
	Import(d *Descriptor, imported []DependencyManagement)
}

type LifecycleBindingsInjector interface {
	InjectBindings(d *Descriptor, pc *ProblemCollector) error
}

type PluginConfigurationExpander interface {
	ExpandPluginConfiguration(d *Descriptor)
}

type ReportConfigurationExpander interface {
	ExpandReportConfiguration(d *Descriptor)
}

// ReportingConverter converts legacy <reporting> sections into their
// site-plugin equivalent (§4.10 step 8, §6).
type ReportingConverter interface {
	ConvertReportingToSite(d *Descriptor)
}

// BuildExtensionsListener receives the BUILD_EXTENSIONS_ASSEMBLED event
// (§4.10 step 3). Implementations MUST NOT retain the collector beyond
// the call (§5).
type BuildExtensionsListener interface {
	BuildExtensionsAssembled(d *Descriptor, pc *ProblemCollector)
}
