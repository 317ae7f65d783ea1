package kvsetb

import "errors"

// ErrOOM names the buffer-growth or sub-writer allocation failure
// category. No function in this package returns it: failures of the
// sub-writers (kblock, vblock, mblock), allocation failures included,
// are returned wrapped around the sub-writer's own error.
var ErrOOM = errors.New("kvsetb: out of memory or media")

// ErrInvalid wraps malformed-input conditions: a zero-length or
// oversized key, a seqno that violates the per-key descending-order
// contract, or a nil key.
var ErrInvalid = errors.New("kvsetb: invalid input")

// ErrBug wraps internally-inconsistent call patterns that indicate a
// caller violated a contract it is responsible for enforcing itself,
// e.g. an upstream-vblock reuse hint paired with a nonzero complen.
var ErrBug = errors.New("kvsetb: internal contract violation")
