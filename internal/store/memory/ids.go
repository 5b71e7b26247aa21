package memory

import (
	"fmt"
	"sync/atomic"
)

var idSeq atomic.Uint64

// nextID returns a store-assigned id. Ids come from a single counter, so
// allocation order matches lexicographic order, like ObjectIDs in the
// production backend.
func nextID() string {
	return fmt.Sprintf("%024x", idSeq.Add(1))
}
