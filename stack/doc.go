// Package stack provides a LIFO container whose nodes are carved from a
// memory resource through an alloc.Allocator.
//
// Every Push or Emplace allocates exactly one node and every Pop releases it,
// so the resource sees a request of the same shape for each element. That
// makes a Stack a convenient load generator for a fixed buffer arena: once
// the buffer is exhausted Push fails with the resource's out of memory error
// and the stack is left as it was.
//
// # Element Storage
//
// Values of types without Go pointers (see alloc.PointerFree) are stored inline
// in the node. Values of other types live in a slot table owned by the stack;
// the node keeps the slot index. Pointers returned by Top and by iteration stay
// valid until that element is popped.
//
// # Teardown
//
// Pop, Clear and Close tear elements down top first. If *T implements
// Destroyer its Destroy method runs, then the hook set with WithTeardown.
//
// A Stack is not safe for concurrent use, and the memory resource must outlive
// it.
package stack
