// Package model implements the multi-phase descriptor build pipeline:
// reading, profile activation, lineage resolution, inheritance,
// interpolation, dependency-management import, and effective-model
// validation.
package model

import "fmt"

// Coordinates identifies a descriptor uniquely across repositories.
type Coordinates struct {
	GroupID    string
	ArtifactID string
	Version    string
}

// ModelID renders coordinates as the printable "groupId:artifactId:version"
// form used for cache keys, lineage cycle detection, and diagnostics.
// Missing fields are replaced with a stable placeholder so the string is
// always well-formed.
func (c Coordinates) ModelID() string {
	g, a, v := c.GroupID, c.ArtifactID, c.Version
	if g == "" {
		g = "[unknown-group-id]"
	}
	if a == "" {
		a = "[unknown-artifact-id]"
	}
	if v == "" {
		v = "[unknown-version]"
	}
	return fmt.Sprintf("%s:%s:%s", g, a, v)
}

// InputLocation records where a field was declared, when location
// tracking is enabled on the request.
type InputLocation struct {
	Source string
	Line   int
	Column int
}

// ParentReference is the coordinates plus relativePath a descriptor
// declares for its parent.
type ParentReference struct {
	Coordinates
	RelativePath string
	Location     *InputLocation
}

// Dependency is a single dependency or dependencyManagement entry.
type Dependency struct {
	Coordinates
	Type     string // "jar" by default, "pom" for import entries
	Scope    string // "compile" by default, "import" for management import
	Location *InputLocation
}

// DependencyManagement holds the managed dependency set of a descriptor
// or profile.
type DependencyManagement struct {
	Dependencies []Dependency
}

// Plugin is a single build.plugins or build.pluginManagement.plugins entry.
type Plugin struct {
	GroupID    string
	ArtifactID string
	Version    string
	Location   *InputLocation
}

// Key returns the plugin's identity key for the version audit (§4.7):
// groupId:artifactId, independent of version.
func (p Plugin) Key() string {
	return p.GroupID + ":" + p.ArtifactID
}

// Build holds the build-time configuration of a descriptor or profile.
type Build struct {
	Plugins           []Plugin
	PluginManagement  []Plugin
}

// Repository is a remote or local repository declaration used to locate
// externally-resolved parents and imports.
type Repository struct {
	ID  string
	URL string
}

// Activation is a predicate over an ActivationContext. The actual
// evaluation is delegated to an external ProfileSelector (§6); this type
// only carries the raw, uninterpolated expression so it can be captured
// and restored around interpolation (§4.5).
type Activation struct {
	ActiveByDefault bool
	JDK             string
	OS              *OSActivation
	File            *FileActivation
	Property        *PropertyActivation
}

// Clone deep-copies an Activation so ProfileEngine can save a pristine
// copy before interpolation mutates the live one.
func (a *Activation) Clone() *Activation {
	if a == nil {
		return nil
	}
	cp := *a
	if a.OS != nil {
		os := *a.OS
		cp.OS = &os
	}
	if a.File != nil {
		f := *a.File
		cp.File = &f
	}
	if a.Property != nil {
		p := *a.Property
		cp.Property = &p
	}
	return &cp
}

// OSActivation matches the current operating system/architecture/version.
type OSActivation struct {
	Name, Family, Arch, Version string
}

// FileActivation matches the existence (or absence) of a file. The
// reference selector checks the path as written; a relative path is
// resolved against the process's working directory, not the project
// directory.
type FileActivation struct {
	Exists, Missing string
}

// PropertyActivation matches a system or user property by name and,
// optionally, value.
type PropertyActivation struct {
	Name, Value string
}

// Profile is a conditionally-applied descriptor fragment.
type Profile struct {
	ID                   string
	Activation           *Activation
	Properties           map[string]string
	Dependencies         []Dependency
	DependencyManagement DependencyManagement
	Build                Build
	Repositories         []Repository
}

// Descriptor is the project-declaration document: the hierarchical
// record of a project's identity, dependencies, build configuration,
// and profiles.
type Descriptor struct {
	GroupID    string
	ArtifactID string
	Version    string
	Packaging  string // defaults to "jar" when empty

	Parent *ParentReference

	Properties map[string]string

	Dependencies         []Dependency
	DependencyManagement DependencyManagement
	Build                Build
	Profiles             []Profile
	Repositories         []Repository

	// PomFile is the local path the descriptor was read from, if any.
	PomFile string
	// ProjectDirectory is the directory EffectiveBuilder translates file
	// paths against. It is not derived from PomFile: it stays empty
	// unless the parser or caller sets it, and path translation is
	// skipped while it is empty.
	ProjectDirectory string

	Locations map[string]InputLocation
}

// Clone returns a deep copy of the descriptor so callers can mutate it
// without perturbing cached or shared state (the raw ≠ file, cache
// clone-on-read/write discipline of §3/§5).
func (d *Descriptor) Clone() *Descriptor {
	if d == nil {
		return nil
	}
	cp := *d
	cp.Properties = cloneStringMap(d.Properties)
	if d.Parent != nil {
		p := *d.Parent
		cp.Parent = &p
	}
	cp.Dependencies = append([]Dependency(nil), d.Dependencies...)
	cp.DependencyManagement.Dependencies = append([]Dependency(nil), d.DependencyManagement.Dependencies...)
	cp.Build.Plugins = append([]Plugin(nil), d.Build.Plugins...)
	cp.Build.PluginManagement = append([]Plugin(nil), d.Build.PluginManagement...)
	cp.Repositories = append([]Repository(nil), d.Repositories...)
	cp.Profiles = make([]Profile, len(d.Profiles))
	for i, p := range d.Profiles {
		cp.Profiles[i] = cloneProfile(p)
	}
	cp.Locations = make(map[string]InputLocation, len(d.Locations))
	for k, v := range d.Locations {
		cp.Locations[k] = v
	}
	return &cp
}

func cloneProfile(p Profile) Profile {
	cp := p
	cp.Activation = p.Activation.Clone()
	cp.Properties = cloneStringMap(p.Properties)
	cp.Dependencies = append([]Dependency(nil), p.Dependencies...)
	cp.DependencyManagement.Dependencies = append([]Dependency(nil), p.DependencyManagement.Dependencies...)
	cp.Build.Plugins = append([]Plugin(nil), p.Build.Plugins...)
	cp.Build.PluginManagement = append([]Plugin(nil), p.Build.PluginManagement...)
	cp.Repositories = append([]Repository(nil), p.Repositories...)
	return cp
}

func cloneStringMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	cp := make(map[string]string, len(m))
	for k, v := range m {
		cp[k] = v
	}
	return cp
}

// EffectiveCoordinates derives (groupId, artifactId, version) per
// invariant 1: a field absent on self is inherited from parent.
func (d *Descriptor) EffectiveCoordinates() Coordinates {
	c := Coordinates{GroupID: d.GroupID, ArtifactID: d.ArtifactID, Version: d.Version}
	if d.Parent != nil {
		if c.GroupID == "" {
			c.GroupID = d.Parent.GroupID
		}
		if c.Version == "" {
			c.Version = d.Parent.Version
		}
	}
	return c
}

// ModelID is a convenience wrapper around EffectiveCoordinates().ModelID().
func (d *Descriptor) ModelID() string {
	return d.EffectiveCoordinates().ModelID()
}

// ActivationContext is the environment against which profile activation
// predicates and interpolation expressions are evaluated.
type ActivationContext struct {
	ActiveIDs        map[string]bool
	InactiveIDs      map[string]bool
	SystemProperties map[string]string
	UserProperties   map[string]string
	ProjectProperties map[string]string
	ProjectDirectory string
}

// NewActivationContext builds an ActivationContext with all maps
// initialized, following the construction style of the teacher's
// newRawManifest (never return an ActivationContext with nil maps a
// caller might range over).
func NewActivationContext() *ActivationContext {
	return &ActivationContext{
		ActiveIDs:         map[string]bool{},
		InactiveIDs:       map[string]bool{},
		SystemProperties:  map[string]string{},
		UserProperties:    map[string]string{},
		ProjectProperties: map[string]string{},
	}
}

// ModelData is a cache entry and lineage node: a descriptor plus the
// coordinates and source it was read from.
type ModelData struct {
	// Source is the location string of SourceObj, kept alongside it so
	// cache-derived nodes (which have no live Source object) can still
	// be labeled.
	Source    string
	SourceObj Source
	Model     *Descriptor
	Coordinates
}

// ModelID renders the node's identity for cycle detection and logging.
// It prefers the effective coordinates of Model, since a freshly-parsed
// node's Coordinates field may not yet be populated.
func (md ModelData) ModelID() string {
	if md.Model != nil {
		return md.Model.ModelID()
	}
	return md.Coordinates.ModelID()
}
