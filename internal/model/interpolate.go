package model

import "strings"

// InterpolatorWrapper is C8: orchestrates full-model interpolation with
// activation save/restore, and re-interpolates the parent version
// against the same value sources afterward (§4.8).
type InterpolatorWrapper struct {
	Interpolator PropertyInterpolator
}

// Interpolate resolves "${expr}" against userProperties, the model's
// own properties, and systemProperties, in that priority, then restores
// pre-interpolation profile activations.
func (iw *InterpolatorWrapper) Interpolate(d *Descriptor, actCtx *ActivationContext, pc *ProblemCollector) error {
	saved := SaveActivations(d.Profiles)

	pomFile := d.PomFile
	sources := []map[string]string{actCtx.UserProperties, d.Properties, actCtx.SystemProperties}

	if err := iw.Interpolator.Interpolate(d, sources, pc); err != nil {
		RestoreActivations(d.Profiles, saved)
		return err
	}

	if d.Parent != nil && d.Parent.Version != "" {
		v := d.Parent.Version
		if containsExpr(v) {
			resolved, ok := resolveExpr(v, sources)
			if !ok {
				pc.Add(Problem{
					Severity: SeverityError,
					Source:   d.ModelID(),
					Message:  "Failed to interpolate parent version " + v,
				})
			} else {
				d.Parent.Version = resolved
			}
		}
	}

	d.PomFile = pomFile // preserve the original pomFile (§4.8)
	RestoreActivations(d.Profiles, saved)
	return nil
}

func containsExpr(s string) bool {
	return strings.Contains(s, "${")
}

// resolveExpr substitutes the first "${key}" expression in s against
// sources in priority order, keeping any text around it. A second or
// nested expression is left as written — the general-purpose case is
// the external PropertyInterpolator's job; this is only the narrow
// parent-version re-interpolation §4.8 calls out by name.
func resolveExpr(s string, sources []map[string]string) (string, bool) {
	start := strings.Index(s, "${")
	end := strings.Index(s, "}")
	if start < 0 || end < 0 || end < start {
		return s, false
	}
	key := s[start+2 : end]
	for _, src := range sources {
		if v, ok := src[key]; ok {
			return s[:start] + v + s[end+1:], true
		}
	}
	return s, false
}
