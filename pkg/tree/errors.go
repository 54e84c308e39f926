package tree

import (
	"errors"
	"fmt"
)

// Sentinel errors returned for invalid API usage. Operations that are merely
// not applicable (selecting in SelectionNone, navigating without focus) are
// silent no-ops and never return these.
var (
	ErrInvalidNode    = errors.New("invalid node handle")
	ErrNoNodes        = errors.New("no nodes given")
	ErrDuplicateID    = errors.New("duplicate node ID")
	ErrDetachedParent = errors.New("parent is not attached to this tree")
	ErrForeignNode    = errors.New("node belongs to another tree")
)

func opError(op string, err error) error {
	return fmt.Errorf("%s: %w", op, err)
}

// checkNodes validates a node list for operations that require at least one
// non-nil node.
func checkNodes(op string, nodes []*Node) error {
	if len(nodes) == 0 {
		return opError(op, ErrNoNodes)
	}
	for _, n := range nodes {
		if n == nil {
			return opError(op, ErrInvalidNode)
		}
	}
	return nil
}
