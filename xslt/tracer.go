package xslt

import (
	"io"
	"log/slog"
	"os"
)

type Tracer interface {
	Enter(*Context)
	Leave(*Context)
	Error(*Context, error)
	Compiled(*Dispatch)
	Warning(Diagnostic)
}

func NoopTracer() Tracer {
	return discardTracer{}
}

type discardTracer struct{}

func (_ discardTracer) Enter(_ *Context) {}

func (_ discardTracer) Leave(_ *Context) {}

func (_ discardTracer) Error(_ *Context, _ error) {}

func (_ discardTracer) Compiled(_ *Dispatch) {}

func (_ discardTracer) Warning(_ Diagnostic) {}

type stdioTracer struct {
	logger *slog.Logger
}

func Stdout() Tracer {
	return TraceWriter(os.Stdout)
}

func Stderr() Tracer {
	return TraceWriter(os.Stderr)
}

func TraceWriter(w io.Writer) Tracer {
	return stdioTracer{
		logger: stdioLogger(w),
	}
}

func stdioLogger(w io.Writer) *slog.Logger {
	opts := slog.HandlerOptions{
		Level: slog.LevelDebug,
	}
	return slog.New(slog.NewTextHandler(w, &opts))
}

func (t stdioTracer) Enter(ctx *Context) {
	t.logger.Debug("start template", t.args(ctx)...)
}

func (t stdioTracer) Leave(ctx *Context) {
	t.logger.Debug("done template", t.args(ctx)...)
}

func (t stdioTracer) Error(ctx *Context, err error) {
	args := append(t.args(ctx), "err", err.Error())
	t.logger.Error("error while applying template", args...)
}

func (t stdioTracer) Compiled(d *Dispatch) {
	args := []any{
		"procedure",
		d.Name,
		"branches",
		d.Branches(),
		"idkeys",
		d.idkeys.Len(),
		"node-first-element",
		d.NodeFirstElement,
		"node-first-text",
		d.NodeFirstText,
	}
	t.logger.Debug("dispatch compiled", args...)
}

func (t stdioTracer) Warning(d Diagnostic) {
	t.logger.Warn(d.Err.Error(), "template", d.Template, "pattern", d.Pattern)
}

func (t stdioTracer) args(ctx *Context) []any {
	var tpl, node string
	if ctx.Template != nil {
		tpl = ctx.Template.Ident()
	}
	if ctx.Node != nil {
		node = ctx.Node.QualifiedName()
	}
	return []any{
		"template",
		tpl,
		"node",
		node,
		"depth",
		ctx.depth,
	}
}
