package errtag

// StatusCodeAttr is the attribute under which provider errors carry their
// HTTP status code.
const StatusCodeAttr = "status_code"

// Attr looks up a named attribute on err or any error it wraps. The first
// Attributed error in the chain carrying the name wins.
func Attr(err error, name string) (any, bool) {
	for _, e := range chain(err) {
		a, ok := e.(Attributed)
		if !ok {
			continue
		}
		if v, has := a.Attrs()[name]; has {
			return v, true
		}
	}
	return nil, false
}

// StatusCode returns the integer "status_code" attribute of err, if any.
func StatusCode(err error) (int, bool) {
	v, ok := Attr(err, StatusCodeAttr)
	if !ok {
		return 0, false
	}
	switch code := v.(type) {
	case int:
		return code, true
	case int32:
		return int(code), true
	case int64:
		return int(code), true
	case uint:
		return int(code), true
	case float64:
		return int(code), true
	}
	return 0, false
}

// chain flattens err and everything it wraps, depth first.
func chain(err error) []error {
	var out []error
	var walk func(error)
	walk = func(e error) {
		if e == nil {
			return
		}
		out = append(out, e)
		switch u := e.(type) {
		case interface{ Unwrap() error }:
			walk(u.Unwrap())
		case interface{ Unwrap() []error }:
			for _, inner := range u.Unwrap() {
				walk(inner)
			}
		}
	}
	walk(err)
	return out
}
