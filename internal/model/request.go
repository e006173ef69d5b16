package model

// Collaborators groups every external, narrow-interface service the
// pipeline calls. DESIGN NOTES §9 asks for "a single configuration
// record" rather than a container; Collaborators is that record, built
// once by the caller (or by internal/descio's defaults) and shared by
// pointer across a Request.
type Collaborators struct {
	Parser               ModelProcessor
	ModelResolver        ModelResolver
	WorkspaceResolver    WorkspaceModelResolver // optional
	ProfileSelector      ProfileSelector
	ProfileInjector      ProfileInjector
	Assembler            Assembler
	Interpolator         PropertyInterpolator
	Normalizer           Normalizer
	Validator            Validator
	PathTranslator       PathTranslator
	SuperModel           SuperModelProvider
	PluginManagement     PluginManagementInjector
	DependencyManagement DependencyManagementInjector
	Importer             DependencyManagementImporter
	LifecycleBindings    LifecycleBindingsInjector // optional unless ProcessPlugins
	PluginConfig         PluginConfigurationExpander
	ReportConfig         ReportConfigurationExpander
	ReportingConverter   ReportingConverter
	Listener             BuildExtensionsListener // optional
}

// Request is the ModelBuildingRequest of §6: everything a single build
// needs, assembled once by the caller.
type Request struct {
	ModelSource Source
	PomFile     string

	ValidationLevel  ValidationLevel
	TwoPhaseBuilding bool
	ProcessPlugins   bool
	LocationTracking bool

	SystemProperties  map[string]string
	UserProperties    map[string]string
	ActiveProfileIDs  []string
	InactiveProfileIDs []string
	Profiles          []Profile // externally-supplied profiles, e.g. from settings

	Cache         Cache // optional
	Collaborators *Collaborators

	// ImportChain carries the in-progress dependency-management import
	// cycle-detection chain across the recursive full-pipeline builds
	// §4.9 step 4b performs. Nil on a top-level request; EffectiveBuilder
	// allocates one when absent.
	ImportChain *ImportChain
}

// Phase marks how far a BuildResult has progressed through the
// two-phase API (§6, SPEC_FULL supplement 2).
type Phase int

const (
	PhaseRaw Phase = iota
	PhaseEffective
)

// Result is the ModelBuildingResult of §6/§3.
type Result struct {
	Phase Phase

	FileModel      *Descriptor
	RawModel       *Descriptor
	EffectiveModel *Descriptor

	// ModelIDs[0] is the leaf; ModelIDs[last] is the super-descriptor.
	ModelIDs []string
	// RawModels maps a lineage id to its raw descriptor, for callers
	// that need an ancestor's raw form (e.g. a UI showing inheritance).
	RawModels map[string]*Descriptor

	ActivePomProfiles     map[string][]string
	ActiveExternalProfiles []string

	Problems []Problem

	// internal state threaded between phase 1 and phase 2, not part of
	// the public contract but carried on Result so build(req, prior)
	// doesn't need a second, hidden argument.
	lineage       []ModelData
	activationCtx *ActivationContext
}
