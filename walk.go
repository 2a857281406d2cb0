package xenstore

import (
	"context"
	"errors"
)

// Node is one entry yielded by Walk: the path, its value (empty if the
// read failed, e.g. for the root or a node without read permission), and
// its immediate children's names.
type Node struct {
	Path     string
	Value    string
	Children []string
}

// Order selects pre- or post-order traversal for Walk.
type Order int

const (
	// PreOrder yields a node before its children.
	PreOrder Order = iota
	// PostOrder yields a node after its children.
	PostOrder
)

var errWalkStop = errors.New("xenstore: walk stopped")

// Walk traverses every node beneath root, performing one List and one
// Read per node, and yields each as a Node to visit, in pre- or
// post-order. A false return from visit stops the traversal early.
// Nodes that fail Read are yielded with an empty value rather than
// aborting the walk (§4.5, "Walk").
func (c *Client) Walk(ctx context.Context, root string, order Order, visit func(Node) bool) error {
	err := c.walk(ctx, root, order, visit)
	if errors.Is(err, errWalkStop) {
		return nil
	}
	return err
}

func (c *Client) walk(ctx context.Context, path string, order Order, visit func(Node) bool) error {
	children, err := c.List(ctx, path)
	if err != nil {
		children = nil
	}

	value, err := c.Read(ctx, path)
	if err != nil {
		value = ""
	}

	node := Node{Path: path, Value: value, Children: children}

	if order == PreOrder {
		if !visit(node) {
			return errWalkStop
		}
	}

	for _, child := range children {
		childPath := "/" + child
		if path != "/" {
			childPath = path + "/" + child
		}

		if err := c.walk(ctx, childPath, order, visit); err != nil {
			return err
		}
	}

	if order == PostOrder {
		if !visit(node) {
			return errWalkStop
		}
	}

	return nil
}
