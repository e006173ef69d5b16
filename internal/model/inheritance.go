package model

// InheritanceAssembler is C7: composes the descendant from the ancestor
// chain with child-wins semantics, preceded by a plugin-version audit
// (§4.7).
type InheritanceAssembler struct {
	Assembler Assembler
}

// Assemble walks lineage from super to leaf, merging parent into child
// at each step, and returns the fully-inherited leaf. lineage[0] is the
// leaf, lineage[len-1] is the super-descriptor (§4.7, §3).
func (ia *InheritanceAssembler) Assemble(lineage []ModelData, pc *ProblemCollector) *Descriptor {
	ia.auditPluginVersions(lineage, pc)

	// L[last] merged into L[last-1], then result into L[last-2], ...,
	// terminating with a fully-inherited L[0].
	child := lineage[len(lineage)-1].Model
	for i := len(lineage) - 2; i >= 0; i-- {
		child = ia.Assembler.Assemble(child, lineage[i].Model)
	}
	return child
}

// auditPluginVersions walks the lineage from the super downwards (i.e.
// lineage in reverse, since lineage[0] is the leaf), recording the
// first-seen plugin.version per plugin.key and the first-seen
// pluginManagement version. After the walk, every plugin with neither
// a direct nor a managed version is warned about.
//
// The Open Question in spec.md §9 is preserved exactly: the check in
// the source is `versions.get(key) == null` evaluated *after*
// `versions.put(key, plugin.getVersion())`, so the warning fires only
// when no declaration anywhere in the lineage supplies a version — not
// merely when the current plugin's own declaration lacks one.
func (ia *InheritanceAssembler) auditPluginVersions(lineage []ModelData, pc *ProblemCollector) {
	versions := map[string]string{}
	managedVersions := map[string]string{}
	type pending struct {
		key      string
		location *InputLocation
		source   string
	}
	var unversioned []pending

	for i := len(lineage) - 1; i >= 0; i-- {
		node := lineage[i].Model
		for _, mp := range node.Build.PluginManagement {
			if _, seen := managedVersions[mp.Key()]; !seen {
				managedVersions[mp.Key()] = mp.Version
			}
		}
		for _, p := range node.Build.Plugins {
			key := p.Key()
			if p.Version != "" {
				// versions[key] == "" covers both "never seen" (zero
				// value) and "seen but still null", so a later
				// declaration's version always fills a still-empty
				// slot — matching versions.put(key, plugin.getVersion())
				// unconditionally overwriting a null entry.
				if versions[key] == "" {
					versions[key] = p.Version
				}
				continue
			}
			if _, seen := versions[key]; !seen {
				// Record the (empty) sentinel so a later declaration's
				// version for the same key is still picked up above,
				// matching versions.put(key, null) semantics in the
				// source. Gated on presence, not value, purely to avoid
				// queuing a duplicate pending entry for the same key.
				versions[key] = ""
				unversioned = append(unversioned, pending{key: key, location: p.Location, source: node.ModelID()})
			}
		}
	}

	for _, u := range unversioned {
		if versions[u.key] != "" {
			continue
		}
		if _, managed := managedVersions[u.key]; managed && managedVersions[u.key] != "" {
			continue
		}
		pc.Add(Problem{
			Severity: SeverityWarning,
			Source:   u.source,
			Location: u.location,
			Message:  "'build.plugins.plugin.version' for " + u.key + " is missing.",
		})
	}
}
