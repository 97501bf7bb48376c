package stack

// Iterator is a forward cursor over a Stack, from top to bottom.
//
// Iterators compare equal with == when they point at the same position of the
// same stack. Popping the element an iterator points at invalidates it.
type Iterator[T any] struct {
	s   *Stack[T]
	cur *node[T]
}

// Begin returns a cursor at the top element, equal to End on an empty stack.
func (s *Stack[T]) Begin() Iterator[T] {
	return Iterator[T]{s: s, cur: s.top}
}

// End returns the past-the-bottom cursor.
func (s *Stack[T]) End() Iterator[T] {
	return Iterator[T]{s: s}
}

// Next advances the cursor one element towards the bottom.
// It panics when called on End.
func (it *Iterator[T]) Next() {
	if it.cur == nil {
		panic("stack: Next past end")
	}
	it.cur = it.cur.next
}

// Value returns a pointer to the element under the cursor.
// It panics when called on End.
func (it Iterator[T]) Value() *T {
	if it.cur == nil {
		panic("stack: Value at end")
	}
	return it.s.value(it.cur)
}

// Done reports whether the cursor has passed the bottom element.
func (it Iterator[T]) Done() bool {
	return it.cur == nil
}
