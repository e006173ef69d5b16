package model

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// Severity classifies a Problem's blocking weight, mirroring the
// teacher's errorLevel bitmask (errors.go) but as an ordered enum since
// Problems don't combine the way gps's warning/mustResolve/cannotResolve
// flags do.
type Severity int

const (
	SeverityWarning Severity = iota
	SeverityError
	SeverityFatal
)

func (s Severity) String() string {
	switch s {
	case SeverityWarning:
		return "WARNING"
	case SeverityError:
		return "ERROR"
	case SeverityFatal:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

// ValidationLevel is the request's strictness gate (§6).
type ValidationLevel int

const (
	ValidationMinimal ValidationLevel = iota
	ValidationV20
	ValidationV30
	ValidationV31
	ValidationV37
)

// VersionGate selects whether a Problem is emitted as blocking at the
// request's current ValidationLevel (§4.1).
type VersionGate int

const (
	GateBase VersionGate = iota
	GateV20
	GateV30
	GateV31
	GateV37
)

func (g VersionGate) level() ValidationLevel {
	switch g {
	case GateV20:
		return ValidationV20
	case GateV30:
		return ValidationV30
	case GateV31:
		return ValidationV31
	case GateV37:
		return ValidationV37
	default:
		return ValidationMinimal
	}
}

// Problem is a single diagnostic: a severity-carrying, source-located,
// version-gated message. It is distinct from a Go error — a Problem
// describes something the pipeline noticed about the *descriptor*, not
// a failure of the pipeline's own machinery.
type Problem struct {
	Severity  Severity
	Gate      VersionGate
	Source    string
	Location  *InputLocation
	Message   string
	Cause     error
}

// Error satisfies the error interface so a Problem can be returned
// directly (e.g. wrapped into a BuildFailed) without an adapter.
func (p Problem) Error() string {
	return fmt.Sprintf("[%s] %s: %s", p.Severity, p.Source, p.Message)
}

// Trace renders a deeper diagnostic than Error(), surfacing the wrapped
// cause chain when present. This supplements spec.md's bare Problem
// fields the way the teacher's traceError interface supplements
// errors.go's plain Error() strings.
func (p Problem) Trace() string {
	if p.Cause == nil {
		return p.Error()
	}
	return fmt.Sprintf("%s\n  caused by: %s", p.Error(), p.Cause)
}

// emittedAt reports whether the Problem is blocking at the given
// request validation level. A Problem whose gate is newer than the
// current level still exists in the collection, but its fail-gate does
// not trip (§4.1: "problems with a gate newer than the current level
// are demoted ... in practice the emitted severity stands, but the
// fail-gate uses the effective level").
func (p Problem) emittedAt(level ValidationLevel) bool {
	return p.Gate.level() <= level
}

// ProblemCollector accumulates diagnostics across a build request.
// Collection is monotonic (invariant 7): problems are only appended.
type ProblemCollector struct {
	problems  []Problem
	source    string
	rootModel string
	level     ValidationLevel
}

// NewProblemCollector creates a collector gated at the given validation
// level.
func NewProblemCollector(level ValidationLevel) *ProblemCollector {
	return &ProblemCollector{level: level}
}

// SetSource sets the source context attached to subsequently-added
// problems that don't carry their own.
func (pc *ProblemCollector) SetSource(ctx string) { pc.source = ctx }

// SetRootModel records the leaf model's id, used to contextualize
// messages about the overall request rather than one descriptor.
func (pc *ProblemCollector) SetRootModel(id string) { pc.rootModel = id }

// Add appends a single problem, defaulting its Source to the
// collector's current source context if unset.
func (pc *ProblemCollector) Add(p Problem) {
	if p.Source == "" {
		p.Source = pc.source
	}
	pc.problems = append(pc.problems, p)
}

// AddAll appends every problem in probs.
func (pc *ProblemCollector) AddAll(probs []Problem) {
	for _, p := range probs {
		pc.Add(p)
	}
}

// Addf is a convenience wrapper building a Problem from a severity,
// gate, and printf-style message.
func (pc *ProblemCollector) Addf(sev Severity, gate VersionGate, format string, args ...interface{}) {
	pc.Add(Problem{Severity: sev, Gate: gate, Message: fmt.Sprintf(format, args...)})
}

// Wrapf appends a Problem built from an already-occurred error,
// preserving it as Cause via github.com/pkg/errors so a caller can
// still unwrap to the original failure.
func (pc *ProblemCollector) Wrapf(sev Severity, gate VersionGate, err error, format string, args ...interface{}) {
	pc.Add(Problem{
		Severity: sev,
		Gate:     gate,
		Message:  fmt.Sprintf(format, args...),
		Cause:    errors.WithStack(err),
	})
}

// HasErrors is true when any collected problem is ERROR or FATAL and
// blocking at the collector's validation level.
func (pc *ProblemCollector) HasErrors() bool {
	for _, p := range pc.problems {
		if (p.Severity == SeverityError || p.Severity == SeverityFatal) && p.emittedAt(pc.level) {
			return true
		}
	}
	return false
}

// HasFatalErrors is true only when a blocking FATAL problem exists.
func (pc *ProblemCollector) HasFatalErrors() bool {
	for _, p := range pc.problems {
		if p.Severity == SeverityFatal && p.emittedAt(pc.level) {
			return true
		}
	}
	return false
}

// Snapshot returns a defensive copy of the accumulated problems.
func (pc *ProblemCollector) Snapshot() []Problem {
	out := make([]Problem, len(pc.problems))
	copy(out, pc.problems)
	return out
}

// BuildFailed is the error surfaced to the caller when a phase boundary
// is crossed with accumulated errors, or immediately on a FATAL
// problem (§6, §7).
type BuildFailed struct {
	ModelID  string
	Problems []Problem
}

func (e *BuildFailed) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "model build failed for %s:", e.ModelID)
	for _, p := range e.Problems {
		fmt.Fprintf(&sb, "\n  %s", p.Error())
	}
	return sb.String()
}

// newBuildFailed constructs a BuildFailed from the collector's current
// snapshot.
func newBuildFailed(modelID string, pc *ProblemCollector) *BuildFailed {
	return &BuildFailed{ModelID: modelID, Problems: pc.Snapshot()}
}
