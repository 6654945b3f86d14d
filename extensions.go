package osrevk

// extensionSet splits requested names into required ones, whose absence is
// fatal, and wanted ones that are enabled only when available. It is used for
// instance extensions, validation layers and device extensions alike.
type extensionSet struct {
	wanted   []string
	required []string
	actual   []string
}

func newExtensionSet(actual, required, wanted []string) *extensionSet {
	return &extensionSet{
		wanted:   wanted,
		required: required,
		actual:   actual,
	}
}

func (e *extensionSet) missingRequired() []string {
	return missing(e.actual, e.required)
}

func (e *extensionSet) missingWanted() []string {
	return missing(e.actual, e.wanted)
}

// enabled returns every required name followed by the available wanted
// names, without duplicates.
func (e *extensionSet) enabled() []string {
	out := make([]string, 0, len(e.required)+len(e.wanted))
	for _, req := range e.required {
		if !contains(out, req) {
			out = append(out, req)
		}
	}
	for _, want := range e.wanted {
		if contains(e.actual, want) && !contains(out, want) {
			out = append(out, want)
		}
	}
	return out
}

func missing(actual, names []string) []string {
	var out []string
	for _, name := range names {
		if !contains(actual, name) {
			out = append(out, name)
		}
	}
	return out
}

func contains(list []string, name string) bool {
	for _, s := range list {
		if s == name {
			return true
		}
	}
	return false
}
