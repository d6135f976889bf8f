// Package tree derives a hierarchical view of a flat, time-ordered
// message list for the conversation tree rendering mode.
package tree

import (
	"github.com/gidvion/chat-core/internal/model"
)

// Build maps messages into a forest of TreeNodes. It is pure and total:
// no mutation of its input, no side effects, and structurally identical
// output for identical input.
//
// A message is a root when it has no ParentMessageID or when its parent
// is not present in the input set, so a linear history with no linkage
// degrades to one root per message rather than failing. Sibling order
// within each group follows input order, which the store keeps
// timestamp-sorted.
func Build(messages []model.Message) []model.TreeNode {
	present := make(map[string]bool, len(messages))
	for _, m := range messages {
		present[m.ID] = true
	}

	children := make(map[string][]model.Message)
	var rootMsgs []model.Message
	for _, m := range messages {
		if m.ParentMessageID == "" || !present[m.ParentMessageID] {
			rootMsgs = append(rootMsgs, m)
			continue
		}
		children[m.ParentMessageID] = append(children[m.ParentMessageID], m)
	}

	placed := make(map[string]bool, len(messages))
	roots := make([]model.TreeNode, 0, len(rootMsgs))
	for _, m := range rootMsgs {
		roots = append(roots, attach(m, children, placed))
	}
	return roots
}

// attach builds the node for msg and recursively hangs its children.
// placed guards against parent cycles in malformed input.
func attach(msg model.Message, children map[string][]model.Message, placed map[string]bool) model.TreeNode {
	placed[msg.ID] = true
	node := model.TreeNode{
		ID:       msg.ID,
		Content:  msg.Content,
		Role:     string(msg.Sender),
		Children: []model.TreeNode{},
	}
	for _, child := range children[msg.ID] {
		if placed[child.ID] {
			continue
		}
		node.Children = append(node.Children, attach(child, children, placed))
	}
	return node
}
