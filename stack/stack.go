package stack

import (
	"fmt"
	"iter"

	"github.com/hupe1980/fixedarena/alloc"
)

// Destroyer is implemented by element types that need to release something
// when they leave the stack.
type Destroyer interface {
	Destroy()
}

type node[T any] struct {
	next  *node[T]
	slot  int
	value T
}

// Stack is a singly linked LIFO container.
type Stack[T any] struct {
	top      *node[T]
	elems    alloc.Allocator[T]
	nodes    alloc.Allocator[node[T]]
	boxed    *slots[T] // nil when T is stored inline
	teardown func(*T)
}

// New creates an empty stack drawing node storage from a's resource.
// It panics if a is the zero Allocator.
func New[T any](a alloc.Allocator[T], opts ...Option[T]) *Stack[T] {
	if a.Resource() == nil {
		panic("stack: zero allocator")
	}

	s := &Stack[T]{
		elems: a,
		nodes: alloc.Rebind[node[T]](a),
	}
	if !alloc.PointerFree[T]() {
		s.boxed = &slots[T]{}
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Push places a copy of v on top of the stack.
//
// If node storage cannot be obtained the error from the resource is returned
// and the stack is unchanged.
func (s *Stack[T]) Push(v T) error {
	return s.Emplace(func(p *T) error {
		*p = v
		return nil
	})
}

// Emplace allocates a node and lets init construct the value in place.
//
// p points at a zero value. If init returns an error or panics, the node
// storage goes back to the resource and the stack is unchanged.
func (s *Stack[T]) Emplace(init func(p *T) error) error {
	n, err := s.nodes.Allocate(1)
	if err != nil {
		return err
	}

	linked := false
	defer func() {
		if !linked {
			s.nodes.Deallocate(n, 1)
		}
	}()

	p := &n.value
	if s.boxed != nil {
		p = new(T)
	}
	if err := init(p); err != nil {
		return fmt.Errorf("stack: construct element: %w", err)
	}
	if s.boxed != nil {
		n.slot = s.boxed.put(p)
	}

	n.next = s.top
	s.top = n
	linked = true
	return nil
}

// Pop removes the top element and tears it down. It does nothing on an empty
// stack.
func (s *Stack[T]) Pop() {
	n := s.top
	if n == nil {
		return
	}
	s.top = n.next

	p := s.value(n)
	if d, ok := any(p).(Destroyer); ok {
		d.Destroy()
	}
	if s.teardown != nil {
		s.teardown(p)
	}

	if s.boxed != nil {
		s.boxed.release(n.slot)
	}
	n.next = nil
	s.nodes.Deallocate(n, 1)
}

// Top returns a pointer to the top element. It panics on an empty stack.
func (s *Stack[T]) Top() *T {
	if s.top == nil {
		panic("stack: Top on empty stack")
	}
	return s.value(s.top)
}

// Empty reports whether the stack has no elements.
func (s *Stack[T]) Empty() bool {
	return s.top == nil
}

// Len counts the elements by walking the chain.
func (s *Stack[T]) Len() int {
	n := 0
	for cur := s.top; cur != nil; cur = cur.next {
		n++
	}
	return n
}

// Clear pops every element.
func (s *Stack[T]) Clear() {
	for s.top != nil {
		s.Pop()
	}
}

// Close pops every element, releasing all node storage. The stack stays
// usable.
func (s *Stack[T]) Close() error {
	s.Clear()
	return nil
}

// Allocator returns the allocator the stack was built with.
func (s *Stack[T]) Allocator() alloc.Allocator[T] {
	return s.elems
}

// All yields pointers to the elements from top to bottom.
func (s *Stack[T]) All() iter.Seq[*T] {
	return func(yield func(*T) bool) {
		for cur := s.top; cur != nil; cur = cur.next {
			if !yield(s.value(cur)) {
				return
			}
		}
	}
}

// Values yields copies of the elements from top to bottom.
func (s *Stack[T]) Values() iter.Seq[T] {
	return func(yield func(T) bool) {
		for cur := s.top; cur != nil; cur = cur.next {
			if !yield(*s.value(cur)) {
				return
			}
		}
	}
}

func (s *Stack[T]) value(n *node[T]) *T {
	if s.boxed != nil {
		return s.boxed.get(n.slot)
	}
	return &n.value
}

// slots keeps values that hold Go pointers where the garbage collector can
// see them.
type slots[T any] struct {
	vals []*T
	free []int
}

func (t *slots[T]) put(p *T) int {
	if k := len(t.free); k > 0 {
		i := t.free[k-1]
		t.free = t.free[:k-1]
		t.vals[i] = p
		return i
	}
	t.vals = append(t.vals, p)
	return len(t.vals) - 1
}

func (t *slots[T]) get(i int) *T {
	return t.vals[i]
}

func (t *slots[T]) release(i int) {
	t.vals[i] = nil
	t.free = append(t.free, i)
}
