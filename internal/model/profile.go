package model

// ProfileEngine is C5: wraps the external ProfileSelector with property
// bleed and activation save/restore, and drives injection order.
type ProfileEngine struct {
	Selector ProfileSelector
	Injector ProfileInjector
}

// GetActiveProfiles delegates to the external selector, then applies
// the external-profile properties bleed (§4.5): if any external
// profile is active, its properties are merged into a temporary map,
// overlaid by the original userProperties, and installed back as
// ctx.UserProperties.
func (pe *ProfileEngine) GetActiveProfiles(profiles []Profile, externalProfiles []Profile, ctx *ActivationContext, pc *ProblemCollector) (pomActive, externalActive []Profile) {
	pomActive = pe.Selector.GetActiveProfiles(profiles, ctx, pc)

	if len(externalProfiles) > 0 {
		externalActive = pe.Selector.GetActiveProfiles(externalProfiles, ctx, pc)
	}

	if len(externalActive) > 0 {
		bled := map[string]string{}
		for _, p := range externalActive {
			for k, v := range p.Properties {
				bled[k] = v
			}
		}
		original := ctx.UserProperties
		for k, v := range original {
			bled[k] = v
		}
		ctx.UserProperties = bled
	}

	return pomActive, externalActive
}

// InjectActive injects pom profiles first, then external profiles
// (§4.5 "injection order is active-pom-profiles first, then
// active-external-profiles").
func (pe *ProfileEngine) InjectActive(d *Descriptor, pomActive, externalActive []Profile) {
	for _, p := range pomActive {
		pe.Injector.Inject(d, p)
	}
	for _, p := range externalActive {
		pe.Injector.Inject(d, p)
	}
}

// savedActivation pairs a profile's index with its pre-interpolation
// activation expression, for the save/restore dance around
// interpolation (§4.5).
type savedActivation struct {
	index      int
	activation *Activation
}

// SaveActivations deep-clones every profile's activation expression
// before full-model interpolation runs. Interpolating activation
// breaks its semantics (e.g. file-exists predicates evaluated later
// against a different root).
func SaveActivations(profiles []Profile) []savedActivation {
	saved := make([]savedActivation, len(profiles))
	for i, p := range profiles {
		saved[i] = savedActivation{index: i, activation: p.Activation.Clone()}
	}
	return saved
}

// RestoreActivations reinstalls the saved, pristine activation
// expressions after interpolation.
func RestoreActivations(profiles []Profile, saved []savedActivation) {
	for _, s := range saved {
		if s.index < len(profiles) {
			profiles[s.index].Activation = s.activation
		}
	}
}
