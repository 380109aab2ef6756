// Package stream implements the sequential big-endian cursor used by the
// tdata container format.
//
// Integers are fixed width and big-endian. Buffers are prefixed with a
// signed 32-bit big-endian length. Every read either returns exactly the
// requested bytes or fails with ErrTruncated; the cursor never exposes a
// partial read.
package stream
