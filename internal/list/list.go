// Tencent is pleased to support the open source community by making tnet available.
// Copyright (C) 2023 THL A29 Limited, a Tencent company. All rights reserved.
// If you have downloaded a copy of the tRPC source code from Tencent,
// please note that tnet source code is licensed under the Apache 2.0 License,
// A copy of the Apache 2.0 License can be found in the LICENSE file.

// Package list provides a generic intrusive doubly linked list for the
// unordered collections a caller layers on top of the event loop (pending
// replies, watched clients, and similar bookkeeping); the loop itself does
// not use it. The list itself stores opaque values and never interprets them;
// a Dup/Free/Match hook set lets a caller teach it how to copy, release, or
// compare the values it holds.
package list

// Direction is the traversal order of an Iterator.
type Direction int

// Traversal directions.
const (
	Head Direction = iota
	Tail
)

// Node is one element of a List. Value is opaque to the list; only the
// caller's hooks (if installed) interpret it.
type Node struct {
	prev, next *Node
	Value      interface{}
}

// Prev returns the node preceding n, or nil if n is the head.
func (n *Node) Prev() *Node { return n.prev }

// Next returns the node following n, or nil if n is the tail.
func (n *Node) Next() *Node { return n.next }

// List is a doubly linked list of Nodes with optional Dup/Free/Match hooks.
// The zero value is an empty, usable list.
type List struct {
	head, tail *Node
	length     int

	// Dup deep-copies a value when the list itself is duplicated. If nil,
	// Dup shares the original value by reference.
	Dup func(value interface{}) interface{}
	// Free releases a value when its node is removed from the list. If nil,
	// removal never touches the value (the caller owns it).
	Free func(value interface{})
	// Match reports whether value equals key, used by SearchKey. If nil,
	// SearchKey compares by pointer/interface identity.
	Match func(value, key interface{}) bool
}

// New creates an empty list.
func New() *List {
	return &List{}
}

// Len returns the number of nodes in the list.
func (l *List) Len() int { return l.length }

// Front returns the head node, or nil if the list is empty.
func (l *List) Front() *Node { return l.head }

// Back returns the tail node, or nil if the list is empty.
func (l *List) Back() *Node { return l.tail }

// Release drops every node, invoking Free on each value if set. The list is
// empty and reusable afterward.
func (l *List) Release() {
	n := l.head
	for n != nil {
		next := n.next
		if l.Free != nil {
			l.Free(n.Value)
		}
		n.prev, n.next, n.Value = nil, nil, nil
		n = next
	}
	l.head, l.tail, l.length = nil, nil, 0
}

// PushHead allocates a node for value and splices it in at the head.
func (l *List) PushHead(value interface{}) *Node {
	n := &Node{Value: value}
	if l.head == nil {
		l.head, l.tail = n, n
	} else {
		n.next = l.head
		l.head.prev = n
		l.head = n
	}
	l.length++
	return n
}

// PushTail allocates a node for value and splices it in at the tail.
func (l *List) PushTail(value interface{}) *Node {
	n := &Node{Value: value}
	if l.tail == nil {
		l.head, l.tail = n, n
	} else {
		n.prev = l.tail
		l.tail.next = n
		l.tail = n
	}
	l.length++
	return n
}

// InsertBefore allocates a node for value and splices it in immediately
// before anchor. anchor must belong to l.
func (l *List) InsertBefore(anchor *Node, value interface{}) *Node {
	if anchor == l.head {
		return l.pushHeadNode(value)
	}
	n := &Node{Value: value, prev: anchor.prev, next: anchor}
	anchor.prev.next = n
	anchor.prev = n
	l.length++
	return n
}

// InsertAfter allocates a node for value and splices it in immediately
// after anchor. anchor must belong to l.
func (l *List) InsertAfter(anchor *Node, value interface{}) *Node {
	if anchor == l.tail {
		return l.pushTailNode(value)
	}
	n := &Node{Value: value, prev: anchor, next: anchor.next}
	anchor.next.prev = n
	anchor.next = n
	l.length++
	return n
}

func (l *List) pushHeadNode(value interface{}) *Node { return l.PushHead(value) }
func (l *List) pushTailNode(value interface{}) *Node { return l.PushTail(value) }

// DeleteNode unlinks n from the list, invoking Free on its value if set.
// It cannot fail; n must belong to l.
func (l *List) DeleteNode(n *Node) {
	if n.prev != nil {
		n.prev.next = n.next
	} else {
		l.head = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	} else {
		l.tail = n.prev
	}
	if l.Free != nil {
		l.Free(n.Value)
	}
	n.prev, n.next, n.Value = nil, nil, nil
	l.length--
}

// Iterator walks a List from Head to Tail or Tail to Head. It is safe to
// call DeleteNode on the node most recently returned by Next; the iterator
// advances its cursor before handing the node back, so the removal cannot
// dangle it. Removing any other node during iteration is undefined.
type Iterator struct {
	next      *Node
	direction Direction
}

// GetIterator allocates an iterator positioned at the list's head or tail,
// depending on direction.
func (l *List) GetIterator(direction Direction) *Iterator {
	it := &Iterator{direction: direction}
	if direction == Head {
		it.next = l.head
	} else {
		it.next = l.tail
	}
	return it
}

// Rewind resets it to the list's head, without allocating.
func (l *List) Rewind(it *Iterator) {
	it.direction = Head
	it.next = l.head
}

// RewindTail resets it to the list's tail, without allocating.
func (l *List) RewindTail(it *Iterator) {
	it.direction = Tail
	it.next = l.tail
}

// Next returns the current node and advances the iterator in its direction.
// It returns nil once the traversal is exhausted.
func (it *Iterator) Next() *Node {
	current := it.next
	if current != nil {
		if it.direction == Head {
			it.next = current.next
		} else {
			it.next = current.prev
		}
	}
	return current
}

// ReleaseIterator is a no-op retained for symmetry with GetIterator; the
// iterator carries no resources beyond the struct itself.
func ReleaseIterator(*Iterator) {}

// Dup returns a new list with the same hooks. If Dup is set, every value is
// deep-copied via Dup; otherwise values are shared by reference. The
// original list is unchanged.
func (l *List) Dup() *List {
	out := &List{Dup: l.Dup, Free: l.Free, Match: l.Match}
	it := l.GetIterator(Head)
	for n := it.Next(); n != nil; n = it.Next() {
		value := n.Value
		if out.Dup != nil {
			value = out.Dup(value)
		}
		out.PushTail(value)
	}
	return out
}

// SearchKey scans from the head and returns the first node whose value
// matches key. If Match is set it calls Match(value, key); otherwise it
// compares by interface identity. It returns nil if no node matches.
func (l *List) SearchKey(key interface{}) *Node {
	it := l.GetIterator(Head)
	for n := it.Next(); n != nil; n = it.Next() {
		if l.Match != nil {
			if l.Match(n.Value, key) {
				return n
			}
		} else if n.Value == key {
			return n
		}
	}
	return nil
}

// Index returns the node at position index, counting from the head when
// index >= 0 and from the tail when index < 0 (-1 is the last node). It
// returns nil when index is out of range.
func (l *List) Index(index int) *Node {
	if index >= 0 {
		n := l.head
		for ; n != nil && index > 0; index-- {
			n = n.next
		}
		return n
	}
	index = -index - 1
	n := l.tail
	for ; n != nil && index > 0; index-- {
		n = n.prev
	}
	return n
}

// Rotate moves the current tail node to the head. It is a no-op when the
// list has fewer than two nodes.
func (l *List) Rotate() {
	if l.length <= 1 {
		return
	}
	n := l.tail
	l.tail = n.prev
	l.tail.next = nil

	l.head.prev = n
	n.next = l.head
	n.prev = nil
	l.head = n
}
