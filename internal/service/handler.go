package service

import "foreverclip/pkg/types"

// ChangeHandler receives every entry written as a result of a
// clipboard change, after persistence. Delivery order per handler is
// FIFO.
type ChangeHandler interface {
	HandleEntryChange(entry *types.Entry)
}
