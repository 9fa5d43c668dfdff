// Package ncrepair removes bad fill value attributes from ocean background
// files. Each attribute is overwritten with a sentinel and then deleted.
package ncrepair

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"marineprep/internal/metrics"
)

type OpKind string

const (
	Overwrite OpKind = "overwrite"
	Delete    OpKind = "delete"
)

// Op is one attribute edit on one variable.
type Op struct {
	Kind      OpKind
	Variable  string
	Attribute string
	Value     float64 // used by Overwrite
}

func (o Op) String() string {
	if o.Kind == Overwrite {
		return fmt.Sprintf("%s %s:%s = %g", o.Kind, o.Variable, o.Attribute, o.Value)
	}
	return fmt.Sprintf("%s %s:%s", o.Kind, o.Variable, o.Attribute)
}

type Status string

const (
	Applied Status = "applied"
	Skipped Status = "skipped" // variable not in file
	Failed  Status = "failed"
)

type Result struct {
	File   string
	Op     Op
	Status Status
	Err    error
}

// Editor applies ops to a single file and returns one result per op, in order.
type Editor interface {
	Apply(ctx context.Context, path string, ops []Op) []Result
}

// Plan returns the edits for every variable and attribute pair: an overwrite
// with sentinel followed by a delete.
func Plan(variables, attributes []string, sentinel float64) []Op {
	ops := make([]Op, 0, 2*len(variables)*len(attributes))
	for _, v := range variables {
		for _, att := range attributes {
			ops = append(ops,
				Op{Kind: Overwrite, Variable: v, Attribute: att, Value: sentinel},
				Op{Kind: Delete, Variable: v, Attribute: att},
			)
		}
	}
	return ops
}

// Report collects the results of a repair run.
type Report struct {
	Results []Result
	Applied int
	Skipped int
	Failed  int
}

func (r *Report) add(res Result) {
	r.Results = append(r.Results, res)
	switch res.Status {
	case Applied:
		r.Applied++
	case Skipped:
		r.Skipped++
	case Failed:
		r.Failed++
	}
}

// Err joins the errors of all failed results, or returns nil.
func (r *Report) Err() error {
	var errs []error
	for _, res := range r.Results {
		if res.Status == Failed {
			errs = append(errs, fmt.Errorf("%s: %s: %w", res.File, res.Op, res.Err))
		}
	}
	return errors.Join(errs...)
}

// Repairer runs an Editor over a list of files.
type Repairer struct {
	Editor Editor
	Log    *zap.SugaredLogger
}

// Repair applies ops to every file. A failure on one file does not stop the
// others; everything ends up in the report.
func (r *Repairer) Repair(ctx context.Context, files []string, ops []Op) *Report {
	report := &Report{}
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			for _, op := range ops {
				report.add(Result{File: f, Op: op, Status: Failed, Err: err})
			}
			continue
		}
		for _, res := range r.Editor.Apply(ctx, f, ops) {
			report.add(res)
			metrics.RepairOps.WithLabelValues(string(res.Op.Kind), string(res.Status)).Inc()
			switch res.Status {
			case Failed:
				r.Log.Warnw("Attribute repair failed", "file", f, "op", res.Op.String(), "error", res.Err)
			default:
				r.Log.Debugw("Attribute repair", "file", f, "op", res.Op.String(), "status", res.Status)
			}
		}
	}
	r.Log.Infow("Attribute repair finished",
		"files", len(files),
		"applied", report.Applied,
		"skipped", report.Skipped,
		"failed", report.Failed,
	)
	return report
}

// formatValue renders v the way ncatted expects a double, always with a decimal point.
func formatValue(v float64) string {
	s := fmt.Sprintf("%g", v)
	if !strings.ContainsAny(s, ".eEnN") {
		s += ".0"
	}
	return s
}
