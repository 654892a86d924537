// Package interp runs graphs directly: a synchronous, depth-first walk of the
// flow edges starting at entry nodes, pulling value inputs on demand.
//
// A traversal owns an instance.Frame. Data outputs are memoized in the frame
// unless their kind is impure or depends on an impure producer; outputs that
// a flow node writes (a loop index, a call result) evict memoized values
// downstream of them. Kinds that suspend register a Continuation with the
// host scheduler, which later resumes the same frame at the captured port.
package interp
