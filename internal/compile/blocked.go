package compile

import (
	"fmt"
	"strings"
)

// BlockedError reports that a render cannot start because some video
// segments reference assets that are not ready yet.
type BlockedError struct {
	SegmentIDs []string
}

func (e *BlockedError) Error() string {
	return fmt.Sprintf("render blocked: segments not ready: %s", strings.Join(e.SegmentIDs, ", "))
}
