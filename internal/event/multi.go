package event

// Multi fans one event out to several sinks in order.
type Multi []Sink

func (m Multi) Emit(e Event) {
	for _, s := range m {
		if s != nil {
			s.Emit(e)
		}
	}
}

// Combine flattens nil sinks away and returns the simplest sink that
// reaches all of the given ones.
func Combine(sinks ...Sink) Sink {
	var out Multi
	for _, s := range sinks {
		if s != nil && s != Discard {
			out = append(out, s)
		}
	}
	switch len(out) {
	case 0:
		return Discard
	case 1:
		return out[0]
	default:
		return out
	}
}
