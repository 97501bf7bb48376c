package alloc

import (
	"fmt"
	"math"
	"reflect"
	"unsafe"
)

// MemoryResource is a byte-granular allocator.
type MemoryResource interface {
	// Allocate returns bytes of storage aligned to alignment.
	Allocate(bytes, alignment uintptr) (unsafe.Pointer, error)
	// Deallocate returns storage obtained from Allocate.
	Deallocate(p unsafe.Pointer, bytes, alignment uintptr)
	// IsEqual reports whether storage from one resource may be released
	// through the other.
	IsEqual(other MemoryResource) bool
}

// Allocator allocates storage for values of type T from a MemoryResource.
//
// The zero Allocator is not usable.
type Allocator[T any] struct {
	res MemoryResource
}

// New binds T to r.
func New[T any](r MemoryResource) Allocator[T] {
	if r == nil {
		panic("alloc: nil memory resource")
	}
	return Allocator[T]{res: r}
}

// Rebind returns an allocator for U drawing from the same resource as a.
func Rebind[U, T any](a Allocator[T]) Allocator[U] {
	return Allocator[U]{res: a.res}
}

// Same reports whether a and b draw from the same resource.
func Same[T, U any](a Allocator[T], b Allocator[U]) bool {
	if a.res == nil || b.res == nil {
		return a.res == nil && b.res == nil
	}
	return a.res.IsEqual(b.res)
}

// Resource returns the underlying memory resource.
func (a Allocator[T]) Resource() MemoryResource {
	return a.res
}

// Equal reports whether a and b draw from the same resource.
func (a Allocator[T]) Equal(b Allocator[T]) bool {
	return Same(a, b)
}

// Allocate reserves zeroed storage for n contiguous values of T aligned for T.
// It returns nil for n <= 0.
//
// The storage is not scanned by the garbage collector. T should satisfy
// PointerFree; otherwise callers must not store Go pointers through the result.
func (a Allocator[T]) Allocate(n int) (*T, error) {
	res := a.resource()
	if n <= 0 {
		return nil, nil
	}

	size, align := unsafe.Sizeof(*new(T)), unsafe.Alignof(*new(T))
	if size == 0 {
		return new(T), nil
	}
	if uintptr(n) > math.MaxUint/size {
		panic(fmt.Sprintf("alloc: %d values of %d bytes overflow the address space", n, size))
	}

	p, err := res.Allocate(size*uintptr(n), align)
	if err != nil {
		return nil, err
	}

	// Byte-wise clear: the region may hold stale data from an earlier
	// allocation and must not be read as pointers by typed stores.
	clear(unsafe.Slice((*byte)(p), size*uintptr(n)))
	return (*T)(p), nil
}

// Deallocate releases storage for n values obtained from Allocate.
func (a Allocator[T]) Deallocate(p *T, n int) {
	res := a.resource()
	if p == nil || n <= 0 {
		return
	}
	size, align := unsafe.Sizeof(*p), unsafe.Alignof(*p)
	if size == 0 {
		return
	}
	res.Deallocate(unsafe.Pointer(p), size*uintptr(n), align)
}

func (a Allocator[T]) resource() MemoryResource {
	if a.res == nil {
		panic("alloc: use of zero Allocator")
	}
	return a.res
}

// PointerFree reports whether values of T contain no Go pointers, so they
// can be stored in memory the garbage collector does not scan.
func PointerFree[T any]() bool {
	return !hasPointers(reflect.TypeFor[T]())
}

func hasPointers(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64, reflect.Complex64, reflect.Complex128:
		return false
	case reflect.Array:
		return t.Len() > 0 && hasPointers(t.Elem())
	case reflect.Struct:
		for i := range t.NumField() {
			if hasPointers(t.Field(i).Type) {
				return true
			}
		}
		return false
	default:
		// Pointer, UnsafePointer, Map, Slice, String, Chan, Func, Interface.
		return true
	}
}
