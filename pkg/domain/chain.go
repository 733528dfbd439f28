package domain

import (
	"encoding/json"
	"fmt"
	"iter"
)

// RootID is the identifier of the first node in every chain.
const RootID = "root"

// Chain is the linear sequence of nodes produced by a generation run.
//
// Nodes live in an arena map keyed by ID; ordering is carried entirely by
// the predecessor/successor links, so a chain survives a JSON round trip
// without depending on map iteration order. The chain is append-only and
// IDs are never reused: the first node is always "root" and every later
// node takes "node_<len>" at the moment it is appended.
//
// A Chain is not safe for concurrent use. The generation driver is the
// only writer during a run.
type Chain struct {
	nodes  map[string]*Node
	rootID string
	tailID string
}

// NewChain returns an empty chain ready for appending.
func NewChain() *Chain {
	return &Chain{nodes: make(map[string]*Node)}
}

// Len returns the number of nodes in the chain.
func (c *Chain) Len() int {
	if c == nil {
		return 0
	}
	return len(c.nodes)
}

// Root returns the first node, or nil for an empty chain.
func (c *Chain) Root() *Node {
	if c == nil || c.rootID == "" {
		return nil
	}
	return c.nodes[c.rootID]
}

// Tail returns the last node, or nil for an empty chain.
func (c *Chain) Tail() *Node {
	if c == nil || c.tailID == "" {
		return nil
	}
	return c.nodes[c.tailID]
}

// Get looks up a node by ID.
func (c *Chain) Get(id string) (*Node, bool) {
	if c == nil {
		return nil, false
	}
	n, ok := c.nodes[id]
	return n, ok
}

// Append adds a new node at the tail and returns its ID.
//
// The first node becomes "root"; subsequent nodes take "node_<len>",
// which is unique because the chain never shrinks. The previous tail's
// Successor link is the only existing field Append mutates.
func (c *Chain) Append(content, reasoning string) string {
	id := RootID
	if len(c.nodes) > 0 {
		id = fmt.Sprintf("node_%d", len(c.nodes))
	}

	node := &Node{ID: id, Content: content, Reasoning: reasoning}
	if c.tailID != "" {
		prev := c.nodes[c.tailID]
		prevID := prev.ID
		nextID := id
		prev.Successor = &nextID
		node.Predecessor = &prevID
	}

	c.nodes[id] = node
	c.tailID = id
	if c.rootID == "" {
		c.rootID = id
	}
	return id
}

// Traverse walks the chain from root to tail following successor links.
//
// The walk is lazy and restartable. A visited set guards against cycles
// in a corrupted chain: traversal stops rather than looping forever, so
// callers iterating a chain that fails Verify still terminate.
func (c *Chain) Traverse() iter.Seq[*Node] {
	return func(yield func(*Node) bool) {
		if c == nil || c.rootID == "" {
			return
		}
		visited := make(map[string]bool, len(c.nodes))
		for cur := c.nodes[c.rootID]; cur != nil && !visited[cur.ID]; {
			visited[cur.ID] = true
			if !yield(cur) {
				return
			}
			if cur.Successor == nil {
				return
			}
			cur = c.nodes[*cur.Successor]
		}
	}
}

// Window returns the last n nodes in chain order (oldest first).
// It returns the whole chain when n exceeds Len and nil when n <= 0.
func (c *Chain) Window(n int) []*Node {
	if c == nil || n <= 0 || c.tailID == "" {
		return nil
	}
	if n > len(c.nodes) {
		n = len(c.nodes)
	}

	out := make([]*Node, 0, n)
	visited := make(map[string]bool, n)
	for cur := c.nodes[c.tailID]; cur != nil && len(out) < n && !visited[cur.ID]; {
		visited[cur.ID] = true
		out = append(out, cur)
		if cur.Predecessor == nil {
			break
		}
		cur = c.nodes[*cur.Predecessor]
	}

	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// Verify checks the structural invariants of the chain:
// a single root with no predecessor, symmetric links, no cycles, and
// every node reachable from the root. It returns nil for a valid chain.
func (c *Chain) Verify() error {
	if c == nil || len(c.nodes) == 0 {
		if c != nil && c.rootID != "" {
			return fmt.Errorf("chain: root %q set on empty chain", c.rootID)
		}
		return nil
	}

	root, ok := c.nodes[c.rootID]
	if !ok {
		return fmt.Errorf("chain: root %q not found", c.rootID)
	}
	if root.Predecessor != nil {
		return fmt.Errorf("chain: root %q has a predecessor", c.rootID)
	}

	for id, n := range c.nodes {
		if n == nil {
			return fmt.Errorf("chain: node %q is nil", id)
		}
		if n.ID != id {
			return fmt.Errorf("chain: node keyed %q carries id %q", id, n.ID)
		}
	}

	visited := make(map[string]bool, len(c.nodes))
	var last *Node
	for cur := root; cur != nil; {
		if visited[cur.ID] {
			return fmt.Errorf("chain: cycle detected at %q", cur.ID)
		}
		visited[cur.ID] = true
		last = cur

		if cur.Successor == nil {
			break
		}
		next, ok := c.nodes[*cur.Successor]
		if !ok {
			return fmt.Errorf("chain: %q links to unknown successor %q", cur.ID, *cur.Successor)
		}
		if next.Predecessor == nil || *next.Predecessor != cur.ID {
			return fmt.Errorf("chain: asymmetric link between %q and %q", cur.ID, next.ID)
		}
		cur = next
	}

	if len(visited) != len(c.nodes) {
		return fmt.Errorf("chain: %d of %d nodes reachable from root", len(visited), len(c.nodes))
	}
	if last.ID != c.tailID {
		return fmt.Errorf("chain: tail is %q but walk ends at %q", c.tailID, last.ID)
	}
	return nil
}

// Clone returns a deep copy of the chain. Link pointers are reallocated
// so that mutating the copy never reaches the original.
func (c *Chain) Clone() *Chain {
	if c == nil {
		return nil
	}
	out := &Chain{
		nodes:  make(map[string]*Node, len(c.nodes)),
		rootID: c.rootID,
		tailID: c.tailID,
	}
	for id, n := range c.nodes {
		cp := *n
		if n.Predecessor != nil {
			pred := *n.Predecessor
			cp.Predecessor = &pred
		}
		if n.Successor != nil {
			succ := *n.Successor
			cp.Successor = &succ
		}
		out.nodes[id] = &cp
	}
	return out
}

// chainJSON is the persisted shape of a chain.
type chainJSON struct {
	Nodes      map[string]*Node `json:"nodes"`
	RootNodeID *string          `json:"root_node_id"`
}

// MarshalJSON serializes the chain as an object with a "nodes" arena and
// a "root_node_id" entry point (null for an empty chain).
func (c *Chain) MarshalJSON() ([]byte, error) {
	doc := chainJSON{Nodes: c.nodes}
	if doc.Nodes == nil {
		doc.Nodes = map[string]*Node{}
	}
	if c.rootID != "" {
		root := c.rootID
		doc.RootNodeID = &root
	}
	return json.Marshal(doc)
}

// UnmarshalJSON restores a chain from its persisted shape, re-derives the
// tail by walking from the root, and verifies the structural invariants.
func (c *Chain) UnmarshalJSON(data []byte) error {
	var doc chainJSON
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}

	c.nodes = doc.Nodes
	if c.nodes == nil {
		c.nodes = make(map[string]*Node)
	}
	c.rootID = ""
	c.tailID = ""
	if doc.RootNodeID != nil {
		c.rootID = *doc.RootNodeID
	}

	if c.rootID == "" {
		if len(c.nodes) > 0 {
			return fmt.Errorf("chain: %d nodes but no root_node_id", len(c.nodes))
		}
		return nil
	}

	visited := make(map[string]bool, len(c.nodes))
	for cur := c.nodes[c.rootID]; cur != nil && !visited[cur.ID]; {
		visited[cur.ID] = true
		c.tailID = cur.ID
		if cur.Successor == nil {
			break
		}
		cur = c.nodes[*cur.Successor]
	}

	return c.Verify()
}
