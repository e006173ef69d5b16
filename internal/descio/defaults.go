package descio

import (
	"os"
	"reflect"
	"runtime"
	"strings"

	"github.com/golang-dep/descbuild/internal/model"
)

// The types in this file are deliberately simple, spec-faithful
// reference implementations of the §6 collaborators that have no
// teacher analog (golang-dep has no profile/activation, interpolation,
// or plugin-lifecycle concept). A real deployment substitutes its own
// implementation of any of these interfaces.

// DefaultProfileSelector evaluates os/jdk/file/property activation
// against an ActivationContext, and treats activeByDefault as a
// fallback applied only when no profile matched any other rule.
type DefaultProfileSelector struct{}

func (DefaultProfileSelector) GetActiveProfiles(profiles []model.Profile, ctx *model.ActivationContext, pc *model.ProblemCollector) []model.Profile {
	var active []model.Profile
	var byDefault []model.Profile
	matchedAny := false

	for _, p := range profiles {
		if ctx.InactiveIDs[p.ID] {
			continue
		}
		if ctx.ActiveIDs[p.ID] {
			active = append(active, p)
			matchedAny = true
			continue
		}
		if p.Activation == nil {
			continue
		}
		if p.Activation.ActiveByDefault {
			byDefault = append(byDefault, p)
		}
		a := p.Activation
		hasCondition := a.JDK != "" || a.OS != nil || a.File != nil || (a.Property != nil && a.Property.Name != "")
		if hasCondition && activationMatches(a, ctx) {
			active = append(active, p)
			matchedAny = true
		}
	}

	if !matchedAny && len(byDefault) > 0 {
		return byDefault
	}
	return active
}

func activationMatches(a *model.Activation, ctx *model.ActivationContext) bool {
	if a.JDK != "" && a.JDK != runtime.Version() {
		return false
	}
	if a.OS != nil {
		if a.OS.Name != "" && a.OS.Name != runtime.GOOS {
			return false
		}
		if a.OS.Arch != "" && a.OS.Arch != runtime.GOARCH {
			return false
		}
	}
	if a.File != nil {
		if a.File.Exists != "" {
			if _, err := os.Stat(a.File.Exists); err != nil {
				return false
			}
		}
		if a.File.Missing != "" {
			if _, err := os.Stat(a.File.Missing); err == nil {
				return false
			}
		}
	}
	if a.Property != nil && a.Property.Name != "" {
		v, ok := ctx.UserProperties[a.Property.Name]
		if !ok {
			v, ok = ctx.SystemProperties[a.Property.Name]
		}
		if !ok {
			return false
		}
		if a.Property.Value != "" && v != a.Property.Value {
			return false
		}
	}
	return true
}

// DefaultProfileInjector merges a single profile's contribution into a
// descriptor: properties don't override existing keys, collections
// append.
type DefaultProfileInjector struct{}

func (DefaultProfileInjector) Inject(d *model.Descriptor, p model.Profile) {
	if d.Properties == nil {
		d.Properties = map[string]string{}
	}
	for k, v := range p.Properties {
		if _, exists := d.Properties[k]; !exists {
			d.Properties[k] = v
		}
	}
	d.Dependencies = append(d.Dependencies, p.Dependencies...)
	d.DependencyManagement.Dependencies = append(d.DependencyManagement.Dependencies, p.DependencyManagement.Dependencies...)
	d.Build.Plugins = append(d.Build.Plugins, p.Build.Plugins...)
	d.Build.PluginManagement = append(d.Build.PluginManagement, p.Build.PluginManagement...)
	d.Repositories = append(d.Repositories, p.Repositories...)
}

// DefaultAssembler merges parent into child with child-wins semantics:
// scalar fields fall back to the parent's only when the child's own is
// the zero value; collections concatenate child-then-parent-management.
type DefaultAssembler struct{}

func (DefaultAssembler) Assemble(parent, child *model.Descriptor) *model.Descriptor {
	merged := child.Clone()
	if merged.GroupID == "" {
		merged.GroupID = parent.GroupID
	}
	if merged.Version == "" {
		merged.Version = parent.Version
	}
	if merged.Packaging == "" {
		merged.Packaging = parent.Packaging
	}
	merged.Properties = mergeStringMaps(parent.Properties, merged.Properties)
	merged.Dependencies = append(append([]model.Dependency(nil), merged.Dependencies...), parent.Dependencies...)
	merged.DependencyManagement.Dependencies = append(append([]model.Dependency(nil), merged.DependencyManagement.Dependencies...), parent.DependencyManagement.Dependencies...)
	merged.Build.Plugins = append(append([]model.Plugin(nil), merged.Build.Plugins...), parent.Build.Plugins...)
	merged.Build.PluginManagement = append(append([]model.Plugin(nil), merged.Build.PluginManagement...), parent.Build.PluginManagement...)
	merged.Repositories = append(append([]model.Repository(nil), merged.Repositories...), parent.Repositories...)
	return merged
}

func mergeStringMaps(parent, child map[string]string) map[string]string {
	merged := make(map[string]string, len(parent)+len(child))
	for k, v := range parent {
		merged[k] = v
	}
	for k, v := range child {
		merged[k] = v
	}
	return merged
}

// DefaultInterpolator substitutes every "${key}" occurrence in every
// string field reachable via reflection against sources in priority
// order, leaving unresolved expressions untouched.
type DefaultInterpolator struct{}

func (DefaultInterpolator) Interpolate(d *model.Descriptor, sources []map[string]string, pc *model.ProblemCollector) error {
	interpolateValue(reflect.ValueOf(d).Elem(), sources)
	return nil
}

func interpolateValue(v reflect.Value, sources []map[string]string) {
	switch v.Kind() {
	case reflect.String:
		if v.CanSet() {
			v.SetString(interpolateString(v.String(), sources))
		}
	case reflect.Struct:
		for i := 0; i < v.NumField(); i++ {
			if v.Field(i).CanInterface() {
				interpolateValue(v.Field(i), sources)
			}
		}
	case reflect.Ptr:
		if !v.IsNil() {
			interpolateValue(v.Elem(), sources)
		}
	case reflect.Slice, reflect.Array:
		for i := 0; i < v.Len(); i++ {
			interpolateValue(v.Index(i), sources)
		}
	case reflect.Map:
		// Map values aren't addressable through reflection; skip. The
		// model's own Properties map is the interpolation *source*, not
		// a target — its keys/values are taken as literal.
	}
}

func interpolateString(s string, sources []map[string]string) string {
	var b strings.Builder
	for {
		start := strings.Index(s, "${")
		if start < 0 {
			b.WriteString(s)
			break
		}
		end := strings.Index(s[start:], "}")
		if end < 0 {
			b.WriteString(s)
			break
		}
		end += start
		b.WriteString(s[:start])
		key := s[start+2 : end]
		resolved := false
		for _, src := range sources {
			if v, ok := src[key]; ok {
				b.WriteString(v)
				resolved = true
				break
			}
		}
		if !resolved {
			b.WriteString(s[start : end+1])
		}
		s = s[end+1:]
	}
	return b.String()
}

// DefaultNormalizer injects the defaults the effective model must
// always carry (§4.10 step 7): packaging defaults to "jar", dependency
// type/scope default as the file-level parser would have applied them
// had they been declared.
type DefaultNormalizer struct{}

func (DefaultNormalizer) Normalize(d *model.Descriptor) {
	if d.Packaging == "" {
		d.Packaging = "jar"
	}
	for i := range d.Dependencies {
		if d.Dependencies[i].Type == "" {
			d.Dependencies[i].Type = "jar"
		}
		if d.Dependencies[i].Scope == "" {
			d.Dependencies[i].Scope = "compile"
		}
	}
}

// DefaultValidator implements the structural checks §4.3/§4.10 require:
// file-level presence of artifactId, and of groupId/version unless a
// parent is declared; and, at the effective level, each dependency's
// artifactId (error) and version (warning). The effective model's own
// coordinates are not checked.
type DefaultValidator struct{}

func (DefaultValidator) ValidateFileModel(d *model.Descriptor, level model.ValidationLevel, pc *model.ProblemCollector) {
	if d.ArtifactID == "" {
		pc.Add(model.Problem{
			Severity: model.SeverityError,
			Gate:     model.GateBase,
			Source:   d.ModelID(),
			Message:  "'artifactId' is missing.",
		})
	}
	if d.Parent == nil && d.GroupID == "" {
		pc.Add(model.Problem{
			Severity: model.SeverityError,
			Gate:     model.GateBase,
			Source:   d.ModelID(),
			Message:  "'groupId' is missing.",
		})
	}
	if d.Parent == nil && d.Version == "" {
		pc.Add(model.Problem{
			Severity: model.SeverityError,
			Gate:     model.GateBase,
			Source:   d.ModelID(),
			Message:  "'version' is missing.",
		})
	}
}

// ValidateRawModel checks the raw model, after RawBuilder has already
// applied the groupId/version parent-inheritance fallback (invariant 1):
// unlike ValidateFileModel, a missing groupId/version is no longer
// excused by the presence of a parent, since that's exactly what was
// just resolved. Everything else (a missing artifactId, or missing
// coordinates on a parentless descriptor) was already reported by
// ValidateFileModel and is not reported again.
func (DefaultValidator) ValidateRawModel(d *model.Descriptor, level model.ValidationLevel, pc *model.ProblemCollector) {
	if d.Parent == nil {
		return
	}
	if d.GroupID == "" {
		pc.Add(model.Problem{
			Severity: model.SeverityError,
			Gate:     model.GateBase,
			Source:   d.ModelID(),
			Message:  "'groupId' is missing.",
		})
	}
	if d.Version == "" {
		pc.Add(model.Problem{
			Severity: model.SeverityError,
			Gate:     model.GateBase,
			Source:   d.ModelID(),
			Message:  "'version' is missing.",
		})
	}
}

func (DefaultValidator) ValidateEffectiveModel(d *model.Descriptor, level model.ValidationLevel, pc *model.ProblemCollector) {
	for _, dep := range d.Dependencies {
		if dep.ArtifactID == "" {
			pc.Add(model.Problem{
				Severity: model.SeverityError,
				Gate:     model.GateBase,
				Source:   d.ModelID(),
				Message:  "'dependencies.dependency.artifactId' is missing.",
			})
		}
		if dep.Version == "" {
			pc.Add(model.Problem{
				Severity: model.SeverityWarning,
				Gate:     model.GateV20,
				Source:   d.ModelID(),
				Message:  "'dependencies.dependency.version' for " + dep.ModelID() + " is missing.",
			})
		}
	}
}

// DefaultPathTranslator rewrites a small, conventional set of path
// fields against the project directory. This spec's Descriptor has no
// path-shaped fields of its own beyond ProjectDirectory, so this is a
// no-op placeholder satisfying the interface for EffectiveBuilder step 1.
type DefaultPathTranslator struct{}

func (DefaultPathTranslator) Translate(d *model.Descriptor, projectDir string) {}

// DefaultSuperModel returns the fixed implicit root ancestor every
// lineage terminates at (§4.6).
type DefaultSuperModel struct{}

func (DefaultSuperModel) SuperModel() *model.Descriptor {
	return &model.Descriptor{
		GroupID:   "[unknown-group-id]",
		Packaging: "pom",
		Repositories: []model.Repository{
			{ID: "central", URL: "https://repo.example.invalid/central"},
		},
	}
}

// DefaultPluginManagementInjector, DefaultDependencyManagementInjector,
// DefaultLifecycleBindings, DefaultPluginConfigurationExpander,
// DefaultReportConfigurationExpander, and DefaultReportingConverter are
// no-op reference implementations: the
// spec's Non-goals exclude plugin class-loading and lifecycle binding
// content, so a real injector has nothing domain-specific to add beyond
// what InheritanceAssembler and ImportResolver already produced.
type DefaultPluginManagementInjector struct{}

func (DefaultPluginManagementInjector) InjectPluginManagement(d *model.Descriptor) {}

type DefaultDependencyManagementInjector struct{}

func (DefaultDependencyManagementInjector) InjectDependencyManagement(d *model.Descriptor) {}

// DefaultDependencyManagementImporter merges imported management sets
// with first-declared-wins semantics (§4.9 step 5): the model's own
// management entries take priority, then imports are applied in
// encounter order, each only filling coordinates not already present.
type DefaultDependencyManagementImporter struct{}

func (DefaultDependencyManagementImporter) Import(d *model.Descriptor, imported []model.DependencyManagement) {
	seen := map[string]bool{}
	for _, dep := range d.DependencyManagement.Dependencies {
		seen[dep.GroupID+":"+dep.ArtifactID] = true
	}
	for _, mgmt := range imported {
		for _, dep := range mgmt.Dependencies {
			key := dep.GroupID + ":" + dep.ArtifactID
			if seen[key] {
				continue
			}
			seen[key] = true
			d.DependencyManagement.Dependencies = append(d.DependencyManagement.Dependencies, dep)
		}
	}
}

type DefaultLifecycleBindings struct{}

func (DefaultLifecycleBindings) InjectBindings(d *model.Descriptor, pc *model.ProblemCollector) error {
	return nil
}

type DefaultPluginConfigurationExpander struct{}

func (DefaultPluginConfigurationExpander) ExpandPluginConfiguration(d *model.Descriptor) {}

type DefaultReportConfigurationExpander struct{}

func (DefaultReportConfigurationExpander) ExpandReportConfiguration(d *model.Descriptor) {}

type DefaultReportingConverter struct{}

func (DefaultReportingConverter) ConvertReportingToSite(d *model.Descriptor) {}
