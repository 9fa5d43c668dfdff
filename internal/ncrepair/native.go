package ncrepair

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/batchatco/go-native-netcdf/netcdf"
	"github.com/batchatco/go-native-netcdf/netcdf/api"
	"github.com/batchatco/go-native-netcdf/netcdf/cdf"
	"github.com/batchatco/go-native-netcdf/netcdf/util"
)

// NativeEditor edits attributes in process. The file is read fully, the
// attribute maps are changed in memory and a classic CDF file replaces the
// original. Files whose layout a rewrite would change go to Fallback, or
// fail when it is nil.
type NativeEditor struct {
	Fallback Editor
}

type attrs struct {
	keys []string
	vals map[string]any
}

func attrsOf(m api.AttributeMap) *attrs {
	a := &attrs{vals: map[string]any{}}
	if m == nil {
		return a
	}
	for _, k := range m.Keys() {
		v, _ := m.Get(k)
		a.keys = append(a.keys, k)
		a.vals[k] = v
	}
	return a
}

func (a *attrs) set(key string, val any) {
	if _, ok := a.vals[key]; !ok {
		a.keys = append(a.keys, key)
	}
	a.vals[key] = val
}

func (a *attrs) del(key string) {
	if _, ok := a.vals[key]; !ok {
		return
	}
	delete(a.vals, key)
	for i, k := range a.keys {
		if k == key {
			a.keys = append(a.keys[:i], a.keys[i+1:]...)
			break
		}
	}
}

func (a *attrs) orderedMap() (api.AttributeMap, error) {
	om, err := util.NewOrderedMap(append([]string{}, a.keys...), a.vals)
	if err != nil {
		return nil, fmt.Errorf("failed to build attribute map: %w", err)
	}
	return om, nil
}

type dataset struct {
	global *attrs
	names  []string
	vars   map[string]*api.Variable
	attrs  map[string]*attrs
}

func readDataset(path string) (*dataset, error) {
	nc, err := netcdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer nc.Close()

	ds := &dataset{
		global: attrsOf(nc.Attributes()),
		vars:   map[string]*api.Variable{},
		attrs:  map[string]*attrs{},
	}
	for _, name := range nc.ListVariables() {
		v, err := nc.GetVariable(name)
		if err != nil {
			return nil, fmt.Errorf("failed to read variable %s from %s: %w", name, path, err)
		}
		ds.names = append(ds.names, name)
		ds.vars[name] = v
		ds.attrs[name] = attrsOf(v.Attributes)
	}
	return ds, nil
}

func (ds *dataset) write(path string) error {
	cw, err := cdf.OpenWriter(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if len(ds.global.keys) > 0 {
		global, err := ds.global.orderedMap()
		if err != nil {
			cw.Close()
			return err
		}
		if err := cw.AddGlobalAttrs(global); err != nil {
			cw.Close()
			return fmt.Errorf("failed to write global attributes: %w", err)
		}
	}
	for _, name := range ds.names {
		am, err := ds.attrs[name].orderedMap()
		if err != nil {
			cw.Close()
			return fmt.Errorf("variable %s: %w", name, err)
		}
		v := ds.vars[name]
		if err := cw.AddVar(name, api.Variable{
			Values:     v.Values,
			Dimensions: v.Dimensions,
			Attributes: am,
		}); err != nil {
			cw.Close()
			return fmt.Errorf("failed to write variable %s: %w", name, err)
		}
	}
	if err := cw.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	return nil
}

func (e NativeEditor) Apply(ctx context.Context, path string, ops []Op) []Result {
	results := make([]Result, len(ops))
	fail := func(err error) []Result {
		for i, op := range ops {
			if results[i].Status == Skipped {
				continue
			}
			results[i] = Result{File: path, Op: op, Status: Failed, Err: err}
		}
		return results
	}

	if err := ctx.Err(); err != nil {
		return fail(err)
	}
	if err := checkLayout(path); err != nil {
		if errors.Is(err, ErrUnsupportedLayout) && e.Fallback != nil {
			return e.Fallback.Apply(ctx, path, ops)
		}
		return fail(err)
	}
	ds, err := readDataset(path)
	if err != nil {
		return fail(err)
	}

	changed := false
	for i, op := range ops {
		a, ok := ds.attrs[op.Variable]
		if !ok {
			results[i] = Result{File: path, Op: op, Status: Skipped}
			continue
		}
		switch op.Kind {
		case Overwrite:
			a.set(op.Attribute, op.Value)
		case Delete:
			a.del(op.Attribute)
		default:
			results[i] = Result{File: path, Op: op, Status: Failed, Err: fmt.Errorf("unknown op %q", op.Kind)}
			continue
		}
		results[i] = Result{File: path, Op: op, Status: Applied}
		changed = true
	}
	if !changed {
		return results
	}

	tmp := path + ".repair.tmp"
	if err := ds.write(tmp); err != nil {
		os.Remove(tmp)
		return fail(err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fail(fmt.Errorf("failed to replace %s: %w", path, err))
	}
	return results
}
