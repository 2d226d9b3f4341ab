package errtag

import (
	"fmt"
	"reflect"
	"slices"
)

// Tag returns err annotated with provenance. See the package documentation
// for the strategy. Tag(nil, p) returns nil.
func Tag(err error, provenance string) error {
	if err == nil {
		return nil
	}
	if tagged, ok := reconstruct(err, provenance); ok {
		return tagged
	}
	if tagged, ok := rewrite(err, provenance); ok {
		return tagged
	}
	return wrap(err, provenance)
}

func reconstruct(err error, provenance string) (tagged error, ok bool) {
	r, isReconstructor := err.(Reconstructor)
	if !isReconstructor {
		return nil, false
	}
	defer func() {
		if recover() != nil {
			tagged, ok = nil, false
		}
	}()

	out, cerr := r.Reconstruct(prefixArgs(r.Args(), provenance, err))
	if cerr != nil || isNil(out) || reflect.TypeOf(out) != reflect.TypeOf(err) {
		return nil, false
	}
	if !copyAttrs(err, out) {
		return nil, false
	}
	return out, true
}

func rewrite(err error, provenance string) (tagged error, ok bool) {
	w, isRewriter := err.(ArgsRewriter)
	if !isRewriter {
		return nil, false
	}
	defer func() {
		if recover() != nil {
			tagged, ok = nil, false
		}
	}()

	if serr := w.SetArgs(prefixArgs(w.Args(), provenance, err)); serr != nil {
		return nil, false
	}
	return err, true
}

func wrap(err error, provenance string) error {
	return &Error{
		Provenance: provenance,
		Err:        err,
		msg:        prefix(provenance, safeString(err)),
	}
}

// prefixArgs returns a copy of args with provenance inserted into the
// message argument. A leading numeric code is left untouched and the message
// following it is prefixed instead.
func prefixArgs(args []any, provenance string, err error) []any {
	if len(args) == 0 {
		return []any{prefix(provenance, safeString(err))}
	}

	out := slices.Clone(args)
	if s, ok := out[0].(string); ok {
		out[0] = prefix(provenance, s)
		return out
	}
	if isNumeric(out[0]) {
		for i := 1; i < len(out); i++ {
			if s, ok := out[i].(string); ok {
				out[i] = prefix(provenance, s)
				return out
			}
		}
	}
	out[0] = prefix(provenance, fmt.Sprint(out[0]))
	return out
}

// copyAttrs copies every attribute of src that dst does not already carry.
func copyAttrs(src, dst error) bool {
	from, ok := src.(Attributed)
	if !ok {
		return true
	}
	attrs := from.Attrs()
	if len(attrs) == 0 {
		return true
	}
	to, ok := dst.(Attributed)
	if !ok {
		return false
	}
	existing := to.Attrs()
	for name, value := range attrs {
		if _, has := existing[name]; has {
			continue
		}
		if err := to.SetAttr(name, value); err != nil {
			return false
		}
	}
	return true
}

func prefix(provenance, msg string) string {
	return provenance + ": " + msg
}

func safeString(err error) (s string) {
	defer func() {
		if recover() != nil {
			s = fmt.Sprintf("<%T>", err)
		}
	}()
	return err.Error()
}

func isNumeric(v any) bool {
	switch reflect.ValueOf(v).Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

func isNil(err error) bool {
	if err == nil {
		return true
	}
	v := reflect.ValueOf(err)
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return v.IsNil()
	}
	return false
}
