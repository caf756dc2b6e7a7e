package btree

import (
	"fmt"

	"github.com/arbordb/arbor/common"
)

func errBadInsertf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", common.ErrBadInsert, fmt.Sprintf(format, args...))
}

func errBadRemovef(format string, args ...any) error {
	return fmt.Errorf("%w: %s", common.ErrBadRemove, fmt.Sprintf(format, args...))
}
