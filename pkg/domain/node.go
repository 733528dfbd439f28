package domain

// Node is a single generated scene in the story chain.
//
// Nodes are linked doubly: Predecessor and Successor hold the IDs of the
// neighboring nodes, or nil at the ends of the chain. The links are
// pointers so that absent links serialize as JSON null rather than "".
type Node struct {
	ID        string `json:"id"`
	Content   string `json:"content"`
	Reasoning string `json:"reasoning"`

	Predecessor *string `json:"predecessor"`
	Successor   *string `json:"successor"`
}

// IsRoot reports whether the node starts the chain.
func (n *Node) IsRoot() bool {
	return n.Predecessor == nil
}

// IsTail reports whether the node ends the chain.
func (n *Node) IsTail() bool {
	return n.Successor == nil
}
