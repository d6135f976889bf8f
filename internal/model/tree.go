package model

// TreeNode is a derived, read-only hierarchical projection of a message.
// It is rebuilt from the flat message list on every store change and is
// never mutated directly.
type TreeNode struct {
	ID       string     `json:"id"`
	Content  string     `json:"content"`
	Role     string     `json:"role"`
	Children []TreeNode `json:"children"`
}
