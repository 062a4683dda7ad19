package graph

import "container/heap"

// nodeHeap is a container/heap-backed priority queue of ready nodes. Higher
// Priority is popped first; ties break by ascending insertOrder, giving the
// scheduler deterministic admission order for otherwise-equal nodes.
type nodeHeap struct {
	items []*Node
}

func newNodeHeap() *nodeHeap {
	h := &nodeHeap{}
	heap.Init(h)
	return h
}

func (h *nodeHeap) Len() int { return len(h.items) }

func (h *nodeHeap) Less(i, j int) bool {
	a, b := h.items[i], h.items[j]
	if a.Priority != b.Priority {
		return a.Priority > b.Priority
	}
	return a.insertOrder < b.insertOrder
}

func (h *nodeHeap) Swap(i, j int) { h.items[i], h.items[j] = h.items[j], h.items[i] }

func (h *nodeHeap) Push(x any) { h.items = append(h.items, x.(*Node)) }

func (h *nodeHeap) Pop() any {
	old := h.items
	n := len(old)
	item := old[n-1]
	h.items = old[:n-1]
	return item
}

// push inserts a ready node, maintaining heap order.
func (h *nodeHeap) push(n *Node) { heap.Push(h, n) }

// pop removes and returns the highest-priority ready node.
func (h *nodeHeap) pop() *Node { return heap.Pop(h).(*Node) }
