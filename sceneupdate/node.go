package sceneupdate

import (
	"image/color"
	"sync"
	"sync/atomic"

	"github.com/gogpu/flow"
)

// NodeID identifies a node within its Session.
type NodeID uint32

// Node is an element of the composed scene.
type Node interface {
	NodeID() NodeID
}

// EntityNode groups child nodes under a transform and an optional clip.
type EntityNode struct {
	id NodeID

	Label string
	// Translation is in parent space; Z orders elevated content.
	Translation [3]float64
	Scale       [2]float64
	// Rotation is about the Z axis, in radians.
	Rotation float64
	// Clip limits the children to a rectangle in the node's space.
	Clip *flow.Rect

	mu       sync.Mutex
	children []Node
}

// NodeID implements Node.
func (n *EntityNode) NodeID() NodeID { return n.id }

// AddChild appends child. Adding the same node again is allowed, which is
// how retained nodes reappear in a later frame.
func (n *EntityNode) AddChild(child Node) {
	n.mu.Lock()
	n.children = append(n.children, child)
	n.mu.Unlock()
}

// Children returns a copy of the child list.
func (n *EntityNode) Children() []Node {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]Node(nil), n.children...)
}

// DetachChildren removes every child.
func (n *EntityNode) DetachChildren() {
	n.mu.Lock()
	n.children = nil
	n.mu.Unlock()
}

// ShapeNode draws a rounded rectangle, filled with a solid colour or with
// the contents of a painted surface.
type ShapeNode struct {
	id NodeID

	Shape flow.RRect
	Color color.NRGBA
	// Texture, when set, supplies the shape's pixels.
	Texture Surface
}

// NodeID implements Node.
func (n *ShapeNode) NodeID() NodeID { return n.id }

// Session owns the scene handed to the platform compositor. Each frame is
// built under Root and handed over with Present.
type Session struct {
	nextID   atomic.Uint32
	mu       sync.Mutex
	root     *EntityNode
	presents int
}

// NewSession creates a session with an empty root.
func NewSession() *Session {
	s := &Session{}
	s.root = s.NewEntityNode()
	s.root.Label = "root"
	return s
}

// NewEntityNode allocates an entity node owned by s.
func (s *Session) NewEntityNode() *EntityNode {
	return &EntityNode{id: NodeID(s.nextID.Add(1)), Scale: [2]float64{1, 1}}
}

// NewShapeNode allocates a shape node owned by s.
func (s *Session) NewShapeNode() *ShapeNode {
	return &ShapeNode{id: NodeID(s.nextID.Add(1))}
}

// Root returns the root of the frame being built.
func (s *Session) Root() *EntityNode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.root
}

// Present hands the current scene to the compositor and starts a new,
// empty root. It returns the presented root.
func (s *Session) Present() *EntityNode {
	next := s.NewEntityNode()
	next.Label = "root"

	s.mu.Lock()
	presented := s.root
	s.root = next
	s.presents++
	n := s.presents
	s.mu.Unlock()

	flow.Logger().Debug("sceneupdate: session presented",
		"present", n, "children", len(presented.Children()))
	return presented
}

// Presents returns how many times Present has been called.
func (s *Session) Presents() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.presents
}
