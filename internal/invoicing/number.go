package invoicing

import (
	"fmt"
	"io"
	"time"

	"github.com/oklog/ulid/v2"
)

// NumberFunc produces an invoice number for an invoice built at now.
type NumberFunc func(now time.Time) string

// Sequential formats an owner's display sequence as INV-0001. The sequence
// must come from an atomic per-owner counter, never from counting rows.
func Sequential(seq int64) NumberFunc {
	return func(time.Time) string {
		return fmt.Sprintf("INV-%04d", seq)
	}
}

// Bulk returns collision-resistant numbers of the form
// INV-<unix millis>-<9 chars of ULID entropy>, for drafts built back to back
// within one upload. A nil entropy uses the process-wide monotonic source.
func Bulk(entropy io.Reader) NumberFunc {
	if entropy == nil {
		entropy = ulid.DefaultEntropy()
	}
	return func(now time.Time) string {
		id := ulid.MustNew(ulid.Timestamp(now), entropy)
		s := id.String()
		// The low-order characters change on every monotonic increment.
		return fmt.Sprintf("INV-%d-%s", now.UnixMilli(), s[len(s)-9:])
	}
}
