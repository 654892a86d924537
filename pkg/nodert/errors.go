package nodert

import (
	"errors"
	"fmt"
)

// NodeError is the error generated code returns when a node fails. It names
// the graph and the node the failure originated from.
type NodeError struct {
	GraphID string
	NodeID  int
	Err     error
}

func (e *NodeError) Error() string {
	return fmt.Sprintf("graph %s, node %d: %v", e.GraphID, e.NodeID, e.Err)
}

func (e *NodeError) Unwrap() error { return e.Err }

// Fail wraps err with its origin. Errors that already carry an origin are
// returned unchanged so the innermost node is reported.
func Fail(graphID string, nodeID int, err error) error {
	var ne *NodeError
	if errors.As(err, &ne) {
		return err
	}
	return &NodeError{GraphID: graphID, NodeID: nodeID, Err: err}
}

// Failf is Fail with a message, used by stubs that replace bodies which
// could not be generated.
func Failf(graphID string, nodeID int, msg string) error {
	return &NodeError{GraphID: graphID, NodeID: nodeID, Err: errors.New(msg)}
}
