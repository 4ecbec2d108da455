// Package resource maps URL paths onto a live object graph.
//
// A tree of named nodes is registered at startup under a root. Path segments
// beyond the registered nodes are resolved by attribute lookup on the
// target of the deepest node (see object.Attr), producing transient nodes
// that live only for the request.
package resource

import (
	"errors"
	"fmt"
	"sync"

	"github.com/mnehpets/rpcserve/object"
)

// ErrNotFound is returned when a path segment resolves to nothing.
var ErrNotFound = errors.New("resource: no such child resource")

// Node is a named reference to a target. Nodes do not own their targets; a
// target must stay valid for as long as its node is reachable.
type Node struct {
	name   string
	target any
	root   bool

	mu       sync.RWMutex
	children []*Node
	index    map[string]*Node
}

// NewRoot returns an empty root node. The root has no target.
func NewRoot() *Node {
	return &Node{root: true}
}

// NewNode returns a node named name that refers to target.
func NewNode(name string, target any) *Node {
	return &Node{name: name, target: target}
}

// Put registers child under n. It panics if the child's name is empty or
// already taken, or if child is a root.
func (n *Node) Put(child *Node) {
	if child == nil || child.root {
		panic("resource: Put: child must be a non-root node")
	}
	if child.name == "" {
		panic("resource: Put: empty child name")
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	if _, exists := n.index[child.name]; exists {
		panic("resource: Put: duplicate child name: " + child.name)
	}
	if n.index == nil {
		n.index = make(map[string]*Node)
	}
	n.index[child.name] = child
	n.children = append(n.children, child)
}

// Children returns the registered children in registration order.
func (n *Node) Children() []*Node {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return append([]*Node(nil), n.children...)
}

func (n *Node) Name() string { return n.name }

func (n *Node) Target() any { return n.target }

func (n *Node) IsRoot() bool { return n.root }

// Child resolves one path segment. Registered children win over attributes
// of the target. The root answers the empty segment with itself.
func (n *Node) Child(segment string) (*Node, error) {
	if n.root && segment == "" {
		return n, nil
	}
	n.mu.RLock()
	c, ok := n.index[segment]
	n.mu.RUnlock()
	if ok {
		return c, nil
	}
	if v, ok := object.Attr(n.target, segment); ok {
		return NewNode(segment, v), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrNotFound, segment)
}

// Resolve walks path from n, one Child at a time. An empty path is n itself.
func (n *Node) Resolve(path []string) (*Node, error) {
	cur := n
	for _, seg := range path {
		next, err := cur.Child(seg)
		if err != nil {
			return nil, err
		}
		cur = next
	}
	return cur, nil
}

// Describe returns the value rendered for a GET on n: the list of
// registered resources for the root, the target itself otherwise.
func (n *Node) Describe() any {
	if !n.root {
		return n.target
	}
	children := n.Children()
	names := make([]string, 0, len(children))
	for _, c := range children {
		names = append(names, c.name)
	}
	return map[string]any{"resources": names}
}
