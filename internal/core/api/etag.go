package api

import (
	"crypto/sha256"
	"fmt"
	"sort"
	"time"

	"github.com/solatis/promokeeper/internal/types"
)

// computeETAG hashes the sorted (id, updatedAt) pairs of a promotion list.
// Equal lists give equal tags regardless of order; any create, update or
// delete changes the tag.
func computeETAG(promotions []types.Promotion) string {
	keys := make([]string, 0, len(promotions))
	for _, p := range promotions {
		keys = append(keys, p.ID+":"+p.UpdatedAt.UTC().Format(time.RFC3339Nano))
	}
	sort.Strings(keys)

	h := sha256.New()
	for _, k := range keys {
		h.Write([]byte(k))
		h.Write([]byte{'\n'})
	}
	return fmt.Sprintf("%x", h.Sum(nil))
}
