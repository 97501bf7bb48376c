// Package alloc defines the allocator capability that containers use to get
// typed storage from a memory resource.
//
// An Allocator[T] is a small copyable value that binds an element type to one
// MemoryResource. It does not own the resource; the resource must outlive
// every allocator and every allocation made through it. Two allocators are
// equal when they refer to the same resource, whatever their element types.
//
// # Garbage Collector Visibility
//
// Storage handed out by Allocate lives in memory the garbage collector does not
// scan. Values written there must not be the only reference to Go heap
// objects. PointerFree reports whether a type is safe to store without
// further care; containers keep values of other types in ordinary Go memory
// and use the arena only for their own links.
package alloc
