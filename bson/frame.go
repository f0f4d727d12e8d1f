package bson

import "github.com/zoobzio/granola"

// containerOverhead is the int32 length header plus the trailing terminator.
const containerOverhead = 5

// frame is the bookkeeping record for one open container.
//
// The decoder uses size and left: left is decremented by every read inside
// the container and must be exactly 1 before the terminator and 0 after it.
// The encoder uses start to patch the length header, size when the caller
// declared one, and index to name array elements.
type frame struct {
	kind  granola.Container
	size  int32
	left  int64
	start int
	index int
}

// stack is the explicit nesting record; its depth is the nesting depth.
type stack []frame

func (s *stack) push(f frame) {
	*s = append(*s, f)
}

func (s *stack) pop() frame {
	old := *s
	f := old[len(old)-1]
	*s = old[:len(old)-1]
	return f
}

// top returns the innermost open frame. It must not be called on an empty stack.
func (s stack) top() *frame {
	return &s[len(s)-1]
}

func (s stack) depth() int {
	return len(s)
}

func (s stack) empty() bool {
	return len(s) == 0
}
