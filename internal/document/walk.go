package document

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// ErrPathNotFound matches every *PathNotFoundError via errors.Is.
var ErrPathNotFound = errors.New("path not found")

// PathNotFoundError reports the first segment of Path that is absent.
type PathNotFoundError struct {
	Path  []string
	Index int
}

func (e *PathNotFoundError) Error() string {
	if e.Index == len(e.Path)-1 {
		return fmt.Sprintf("key %q not found in path %s", e.Path[e.Index], JoinPath(e.Path))
	}
	return fmt.Sprintf("path %s not found (missing %s)", JoinPath(e.Path), JoinPath(e.Path[:e.Index+1]))
}

func (e *PathNotFoundError) Is(target error) bool { return target == ErrPathNotFound }

// Segment returns the missing segment.
func (e *PathNotFoundError) Segment() string { return e.Path[e.Index] }

// NotMappingError is returned when a walk needs to look up Path[Index] inside
// a node that is not a mapping. The segment cannot exist there, so it also
// matches ErrPathNotFound.
type NotMappingError struct {
	Path  []string
	Index int
	Kind  Kind
}

func (e *NotMappingError) Error() string {
	return fmt.Sprintf("cannot look up %q: %s is a %s, not a mapping",
		e.Path[e.Index], JoinPath(e.Path[:e.Index]), e.Kind)
}

func (e *NotMappingError) Is(target error) bool { return target == ErrPathNotFound }

// JoinPath renders segments for messages. The root renders as "/".
func JoinPath(segments []string) string {
	return "/" + strings.Join(segments, "/")
}

// Walk follows segments from root and returns the node reached.
//
// With createMissing, every absent segment is filled with an empty mapping
// inserted into its parent, so the walk only fails when it has to step
// through a leaf. Without it, the first absent segment is reported as a
// *PathNotFoundError and root is left untouched.
func Walk(root Value, segments []string, createMissing bool) (Value, error) {
	node := root
	for i, seg := range segments {
		m, ok := node.AsMapping()
		if !ok {
			return Value{}, &NotMappingError{Path: segments, Index: i, Kind: node.Kind()}
		}
		child, ok := m[seg]
		if !ok {
			if !createMissing {
				return Value{}, &PathNotFoundError{Path: segments, Index: i}
			}
			child = EmptyMapping()
			m[seg] = child
		}
		node = child
	}
	return node, nil
}
