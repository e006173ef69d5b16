package model

import (
	"context"
	"strings"

	"github.com/pkg/errors"
)

// FileReader is C3: reads a Source into a Descriptor via the external
// parser, with strict→lenient fallback (§4.3).
type FileReader struct {
	Parser ModelProcessor
	Cache  Cache
}

// Read implements §4.3's six-step algorithm.
func (fr *FileReader) Read(ctx context.Context, src Source, level ValidationLevel, locationTracking bool, pc *ProblemCollector) (*Descriptor, error) {
	// 1. Cache lookup.
	if fr.Cache != nil {
		if d, ok := fr.Cache.GetBySource(src.Location(), TagFileModel); ok {
			return d, nil
		}
	}

	strict := level >= ValidationV20

	rc, err := src.Open(ctx)
	if err != nil {
		pc.Add(Problem{Severity: SeverityFatal, Source: src.Location(), Message: ioErrorMessage(err)})
		return nil, errors.Wrapf(err, "opening %s", src.Location())
	}
	defer rc.Close()

	// 2. Parse, falling back from strict to lenient.
	d, parseErr := fr.Parser.Read(ctx, rc, ParseOptions{Strict: strict, Source: src, LocationTracking: locationTracking})
	if parseErr != nil && strict {
		rc2, reopenErr := src.Open(ctx)
		if reopenErr != nil {
			pc.Add(Problem{Severity: SeverityFatal, Source: src.Location(), Message: ioErrorMessage(reopenErr)})
			return nil, errors.Wrap(reopenErr, "reopening for lenient retry")
		}
		defer rc2.Close()

		d, parseErr = fr.Parser.Read(ctx, rc2, ParseOptions{Strict: false, Source: src, LocationTracking: locationTracking})
		if parseErr == nil {
			sev := SeverityWarning
			if isFileSource(src) {
				sev = SeverityError
			}
			pc.Add(Problem{
				Severity: sev,
				Gate:     GateV20,
				Source:   src.Location(),
				Message:  "Malformed POM " + src.Location() + ": " + parseErr.Error(),
				Cause:    parseErr,
			})
		}
	}
	if parseErr != nil {
		pc.Add(Problem{Severity: SeverityFatal, Source: src.Location(), Message: parseErr.Error(), Cause: parseErr})
		return nil, errors.Wrap(parseErr, "parsing "+src.Location())
	}

	// 4. Attach the local file path, if any.
	if fs, ok := src.(interface{ FilePath() string }); ok {
		d.PomFile = fs.FilePath()
	}

	// 5. Structural validation.
	// (left to the caller via Collaborators.Validator, since FileReader
	// has no direct Validator reference in §4.3's narrow contract — the
	// caller invokes ValidateFileModel immediately after Read and fails
	// on FATAL, matching "If any FATAL problem emerged, fail.")

	// 6. Cache and return.
	if fr.Cache != nil {
		_ = fr.Cache.PutBySource(src.Location(), TagFileModel, d)
	}
	return d, nil
}

// ioErrorMessage substitutes the spec's required message when the
// underlying error is an empty-message MalformedInputException
// equivalent (§4.3 step 3). Go has no typed encoding error with that
// exact name, so the substitution is made when the Error() string is
// empty or mentions "MalformedInput" (case-insensitive).
func ioErrorMessage(err error) string {
	msg := err.Error()
	if msg == "" || strings.Contains(strings.ToLower(msg), "malformedinput") {
		return "Some input bytes do not match the file encoding."
	}
	return msg
}

func isFileSource(src Source) bool {
	_, ok := src.(interface{ FilePath() string })
	return ok
}
