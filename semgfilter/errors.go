package semgfilter

import "errors"

// ErrChannelMismatch is returned by ProcessBlock when the block's channel
// layout does not match the session. The call fails without touching any
// session state.
var ErrChannelMismatch = errors.New("semgfilter: block layout does not match session channels")
