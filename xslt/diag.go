package xslt

import (
	"errors"
	"fmt"
	"strings"

	"github.com/midbel/distance"
)

var (
	ErrUnresolved = errors.New("unresolved reference")
	ErrInternal   = errors.New("internal compiler error")
	ErrPattern    = errors.New("invalid pattern")
	ErrNoMatch    = errors.New("no template match")
	ErrMode       = errors.New("undefined mode")
	ErrStylesheet = errors.New("invalid stylesheet")
)

type Severity int8

const (
	SeverityWarning Severity = iota
	SeverityError
)

func (s Severity) String() string {
	if s == SeverityError {
		return "error"
	}
	return "warning"
}

// Diagnostic is a compilation problem attached to the template (and pattern
// branch) it was found in.
type Diagnostic struct {
	Severity
	Template string
	Pattern  string
	Err      error
}

func (d Diagnostic) Error() string {
	var str strings.Builder
	str.WriteString(d.Severity.String())
	if d.Template != "" {
		str.WriteString(" [")
		str.WriteString(d.Template)
		str.WriteString("]")
	}
	if d.Pattern != "" {
		str.WriteString(" ")
		str.WriteString(d.Pattern)
	}
	str.WriteString(": ")
	str.WriteString(d.Err.Error())
	return str.String()
}

func (d Diagnostic) Unwrap() error {
	return d.Err
}

// Diagnostics collects the problems reported while compiling a stylesheet.
// Only errors make the compilation fail.
type Diagnostics struct {
	list []Diagnostic
}

func (d *Diagnostics) Warn(tpl *Template, pattern string, err error) {
	d.report(SeverityWarning, tpl, pattern, err)
}

func (d *Diagnostics) Fail(tpl *Template, pattern string, err error) {
	d.report(SeverityError, tpl, pattern, err)
}

func (d *Diagnostics) report(sev Severity, tpl *Template, pattern string, err error) {
	diag := Diagnostic{
		Severity: sev,
		Pattern:  pattern,
		Err:      err,
	}
	if tpl != nil {
		diag.Template = tpl.Ident()
	}
	d.list = append(d.list, diag)
}

func (d *Diagnostics) All() []Diagnostic {
	return d.list
}

func (d *Diagnostics) Warnings() []Diagnostic {
	return d.filter(SeverityWarning)
}

func (d *Diagnostics) Errors() []Diagnostic {
	return d.filter(SeverityError)
}

func (d *Diagnostics) Failed() bool {
	return len(d.Errors()) > 0
}

// Err joins every error diagnostic, nil when there is none.
func (d *Diagnostics) Err() error {
	var errs []error
	for _, g := range d.Errors() {
		errs = append(errs, g)
	}
	return errors.Join(errs...)
}

func (d *Diagnostics) filter(sev Severity) []Diagnostic {
	var list []Diagnostic
	for _, g := range d.list {
		if g.Severity == sev {
			list = append(list, g)
		}
	}
	return list
}

// SuggestionError reports a reference to an unknown name with the declared
// names closest to it.
type SuggestionError struct {
	Name   string
	Others []string
	Err    error
}

func (e SuggestionError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Name, e.Err)
	if len(e.Others) > 0 {
		msg = fmt.Sprintf("%s (similar: %s)", msg, strings.Join(e.Others, ", "))
	}
	return msg
}

func (e SuggestionError) Unwrap() error {
	return e.Err
}

func suggest(name string, others []string, err error) error {
	return SuggestionError{
		Name:   name,
		Others: distance.Levenshtein(name, others),
		Err:    err,
	}
}

func errorWithContext(ctx string, err error) error {
	return fmt.Errorf("%s: %w", ctx, err)
}
