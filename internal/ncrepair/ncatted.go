package ncrepair

import (
	"context"
	"fmt"

	"marineprep/internal/shell"
)

// NcattedEditor edits attributes with the NCO ncatted tool, one command per op.
type NcattedEditor struct {
	Runner shell.Runner
	Path   string // ncatted executable, "ncatted" when empty
}

func (e *NcattedEditor) Apply(ctx context.Context, path string, ops []Op) []Result {
	exe := e.Path
	if exe == "" {
		exe = "ncatted"
	}
	results := make([]Result, 0, len(ops))
	for _, op := range ops {
		res := Result{File: path, Op: op, Status: Applied}
		if _, err := e.Runner.Run(ctx, exe, NcattedArgs(op, path)...); err != nil {
			res.Status = Failed
			res.Err = err
		}
		results = append(results, res)
	}
	return results
}

// NcattedArgs returns the ncatted arguments for op. History is not appended (-h).
func NcattedArgs(op Op, path string) []string {
	var arg string
	switch op.Kind {
	case Overwrite:
		arg = fmt.Sprintf("%s,%s,o,d,%s", op.Attribute, op.Variable, formatValue(op.Value))
	default:
		arg = fmt.Sprintf("%s,%s,d,d,1.0", op.Attribute, op.Variable)
	}
	return []string{"-h", "-a", arg, path}
}

// NewEditor returns the editor for backend, "native" or "ncatted". With a
// runner, the native editor hands files it cannot rewrite to ncatted.
func NewEditor(backend, ncattedPath string, runner shell.Runner) (Editor, error) {
	switch backend {
	case "", "native":
		e := NativeEditor{}
		if runner != nil {
			e.Fallback = &NcattedEditor{Runner: runner, Path: ncattedPath}
		}
		return e, nil
	case "ncatted":
		return &NcattedEditor{Runner: runner, Path: ncattedPath}, nil
	default:
		return nil, fmt.Errorf("unknown repair backend %q", backend)
	}
}
