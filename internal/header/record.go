package header

// Lookup is an insertion-ordered keyword → Value map. Header keyword order is
// preserved so that audit output follows the source file.
type Lookup struct {
	keys []string
	vals map[string]Value
}

// NewLookup returns an empty Lookup.
func NewLookup() *Lookup { return &Lookup{vals: map[string]Value{}} }

// Set stores v under key. Re-setting a key keeps its original position.
func (l *Lookup) Set(key string, v Value) {
	if l.vals == nil {
		l.vals = map[string]Value{}
	}
	if _, ok := l.vals[key]; !ok {
		l.keys = append(l.keys, key)
	}
	l.vals[key] = v
}

// Get returns the value stored under key.
func (l *Lookup) Get(key string) (Value, bool) {
	if l == nil {
		return Value{}, false
	}
	v, ok := l.vals[key]
	return v, ok
}

// Has reports whether key is present.
func (l *Lookup) Has(key string) bool {
	_, ok := l.Get(key)
	return ok
}

// Keys returns the keys in insertion order. The slice must not be modified.
func (l *Lookup) Keys() []string {
	if l == nil {
		return nil
	}
	return l.keys
}

// Len returns the number of keys.
func (l *Lookup) Len() int {
	if l == nil {
		return 0
	}
	return len(l.keys)
}

// Record is one source file's header plus the supplemental values computed
// upstream that are not stored in the header.
type Record struct {
	// File is the source file name; records are ordered by it.
	File string
	// ID is the unique record identifier (the id column value).
	ID     string
	Header *Lookup
	Extra  *Lookup
	// Extensions are the file's table extensions, in file order.
	Extensions []Extension
}

// ExtColumn is one column of a table extension.
type ExtColumn struct {
	Name  string
	Width int
}

// Extension is a table extension of a source file with its rows already
// rendered as strings.
type Extension struct {
	Name    string
	Columns []ExtColumn
	Rows    [][]string
}

// Source identifies where a resolved value came from.
type Source uint8

const (
	FromNone Source = iota
	FromHeader
	FromExtra
)

// Resolve looks key up in the header first and then in the extra values.
func (r Record) Resolve(key string) (Value, Source) {
	if v, ok := r.Header.Get(key); ok {
		return v, FromHeader
	}
	if v, ok := r.Extra.Get(key); ok {
		return v, FromExtra
	}
	return Null(), FromNone
}

// Has reports whether key is present in either lookup.
func (r Record) Has(key string) bool {
	return r.Header.Has(key) || r.Extra.Has(key)
}

// Keys returns header keys followed by extra-only keys, in order.
func (r Record) Keys() []string {
	out := make([]string, 0, r.Header.Len()+r.Extra.Len())
	out = append(out, r.Header.Keys()...)
	for _, k := range r.Extra.Keys() {
		if !r.Header.Has(k) {
			out = append(out, k)
		}
	}
	return out
}
