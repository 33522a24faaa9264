package layout

import "reflect"

// accessor reads one named value from an instance.
type accessor struct {
	name string
	typ  reflect.Type
	get  func(v reflect.Value) reflect.Value
}

// accessorsOf collects the runtime accessors of t, keyed by exact name.
//
// Accessors are exported fields (named as by structFields) and exported
// methods taking no arguments and returning one value. A field shadows a
// method with the same name.
func accessorsOf(t reflect.Type) map[string]accessor {
	out := make(map[string]accessor)
	if t.Kind() == reflect.Interface {
		return out
	}

	for i := 0; i < t.NumMethod(); i++ {
		m := t.Method(i)
		if m.Type.NumIn() != 1 || m.Type.NumOut() != 1 {
			continue
		}
		fn := m.Func
		out[m.Name] = accessor{
			name: m.Name,
			typ:  m.Type.Out(0),
			get: func(v reflect.Value) reflect.Value {
				return fn.Call([]reflect.Value{v})[0]
			},
		}
	}

	st, ptr := structOf(t)
	if st == nil {
		return out
	}
	for _, f := range structFields(st) {
		index := f.index
		out[f.name] = accessor{
			name: f.name,
			typ:  f.typ,
			get: func(v reflect.Value) reflect.Value {
				if ptr {
					v = v.Elem()
				}
				return v.Field(index)
			},
		}
	}
	return out
}
