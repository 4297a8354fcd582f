package geom

// QuadList stores device quads with one piece of per-quad metadata each.
// The list remembers the most general quad type it holds; each entry's
// type is supplied by the caller and never re-derived from the points.
type QuadList[T any] struct {
	quads []Quad
	meta  []T
	typ   QuadType
}

// Push appends q with metadata m.
func (l *QuadList[T]) Push(q Quad, t QuadType, m T) {
	l.quads = append(l.quads, q)
	l.meta = append(l.meta, m)
	l.typ = max(l.typ, t)
}

// Concat appends every entry of o.
func (l *QuadList[T]) Concat(o *QuadList[T]) {
	l.quads = append(l.quads, o.quads...)
	l.meta = append(l.meta, o.meta...)
	l.typ = max(l.typ, o.typ)
}

// Len returns the number of quads.
func (l *QuadList[T]) Len() int { return len(l.quads) }

// Type returns the most general type pushed so far.
func (l *QuadList[T]) Type() QuadType { return l.typ }

// At returns quad i and its metadata.
func (l *QuadList[T]) At(i int) (Quad, T) { return l.quads[i], l.meta[i] }

// Reset empties the list, keeping its storage.
func (l *QuadList[T]) Reset() {
	l.quads = l.quads[:0]
	l.meta = l.meta[:0]
	l.typ = QuadTypeRect
}
