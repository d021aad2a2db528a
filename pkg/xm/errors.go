package xm

import (
	"errors"
	"fmt"
	"log"

	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fmsg"
	"github.com/Southclaws/fault/ftag"
)

// Error kinds attached to every fatal error and to every warning.
const (
	KindNotModule   ftag.Kind = "not_module"
	KindCorrupt     ftag.Kind = "corrupt"
	KindTruncated   ftag.Kind = "truncated"
	KindIO          ftag.Kind = "io"
	KindInvalid     ftag.Kind = "invalid"
	KindUnsupported ftag.Kind = "unsupported"
)

var (
	ErrNotModule          = fault.New("not a module", ftag.With(KindNotModule))
	ErrUnsupportedVariant = fault.New("unsupported save variant", ftag.With(KindUnsupported))
	ErrSnapshotLength     = fault.New("snapshot row count differs from pattern", ftag.With(KindInvalid))
)

// KindOf returns the kind tag of err, or an empty kind when err carries
// none of the kinds above.
func KindOf(err error) ftag.Kind {
	if err == nil {
		return ""
	}
	switch k := ftag.Get(err); k {
	case KindNotModule, KindCorrupt, KindTruncated, KindIO, KindInvalid, KindUnsupported:
		return k
	}
	return ""
}

// IsNotModule reports whether err is a format detection failure. Callers
// holding several candidate files move on to the next one.
func IsNotModule(err error) bool { return KindOf(err) == KindNotModule }

// IsCorrupt reports whether err is a structural failure.
func IsCorrupt(err error) bool { return KindOf(err) == KindCorrupt }

func wrapKind(err error, kind ftag.Kind, msg string) error {
	if err == nil {
		return nil
	}
	return fault.Wrap(err, ftag.With(kind), fmsg.With(msg))
}

func newKind(kind ftag.Kind, format string, args ...any) error {
	return fault.New(fmt.Sprintf(format, args...), ftag.With(kind))
}

// ioError classifies a read failure: running off the end of the stream is a
// truncation, anything else is an I/O failure.
func ioError(err error, msg string) error {
	if errors.Is(err, errShort) {
		return wrapKind(err, KindTruncated, msg)
	}
	return wrapKind(err, KindIO, msg)
}

// Warning is one recoverable condition met while loading.
type Warning struct {
	Kind    ftag.Kind
	Offset  int64
	Message string
}

func (w Warning) String() string {
	return fmt.Sprintf("%s at 0x%x: %s", w.Kind, w.Offset, w.Message)
}

// Report collects the recoverable conditions of one load.
type Report struct {
	Warnings []Warning
	logger   *log.Logger
}

func newReport(logger *log.Logger) *Report {
	return &Report{logger: logger}
}

func (r *Report) add(kind ftag.Kind, offset int64, format string, args ...any) {
	w := Warning{Kind: kind, Offset: offset, Message: fmt.Sprintf(format, args...)}
	r.Warnings = append(r.Warnings, w)
	if r.logger != nil {
		r.logger.Printf("warning: %s", w)
	}
}

// Partial reports whether some data was dropped or reset to defaults.
func (r *Report) Partial() bool {
	for _, w := range r.Warnings {
		if w.Kind == KindCorrupt || w.Kind == KindTruncated {
			return true
		}
	}
	return false
}

// Count returns the number of warnings of the given kind.
func (r *Report) Count(kind ftag.Kind) int {
	n := 0
	for _, w := range r.Warnings {
		if w.Kind == kind {
			n++
		}
	}
	return n
}
