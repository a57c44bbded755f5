package xpath

import (
	"io"
	"log/slog"
	"os"
)

type Tracer interface {
	Enter(string)
	Leave(string)
	Error(string, error)
}

type discardTracer struct{}

func (_ discardTracer) Enter(_ string)          {}
func (_ discardTracer) Leave(_ string)          {}
func (_ discardTracer) Error(_ string, _ error) {}

func NoopTracer() Tracer {
	return discardTracer{}
}

type stdioTracer struct {
	logger   *slog.Logger
	depth    int
	errcount int
}

func TraceStdout() Tracer {
	return TraceWriter(os.Stdout)
}

func TraceStderr() Tracer {
	return TraceWriter(os.Stderr)
}

func TraceWriter(w io.Writer) Tracer {
	opts := slog.HandlerOptions{
		Level: slog.LevelDebug,
	}
	tracer := stdioTracer{
		logger: slog.New(slog.NewTextHandler(w, &opts)),
	}
	return &tracer
}

func (t *stdioTracer) Enter(rule string) {
	t.depth++
	t.logger.Debug("start compile expr", "expression", rule, "depth", t.depth)
}

func (t *stdioTracer) Leave(rule string) {
	t.depth--
	t.logger.Debug("done compile expr", "expression", rule, "depth", t.depth)
}

func (t *stdioTracer) Error(rule string, err error) {
	t.errcount++
	t.logger.Error("compile expr failed", "expression", rule, "count", t.errcount, "err", err)
}
