package design

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/stackcanvas/engine/internal/catalog"
)

// EventType tags a store mutation broadcast to subscribers.
type EventType string

const (
	EventNodeAdded      EventType = "node_added"
	EventNodeMoved      EventType = "node_moved"
	EventNodeUpdated    EventType = "node_updated"
	EventNodesRemoved   EventType = "nodes_removed"
	EventEdgeAdded      EventType = "edge_added"
	EventEdgesRemoved   EventType = "edges_removed"
	EventCanvasCleared  EventType = "canvas_cleared"
	EventSelectionMoved EventType = "selection_changed"
)

// Event describes one applied mutation. Removal events list every id
// that went away so renderers can drop cascaded children in one pass.
type Event struct {
	Type    EventType `json:"type"`
	Node    *Node     `json:"node,omitempty"`
	Edge    *Edge     `json:"edge,omitempty"`
	NodeIDs []string  `json:"node_ids,omitempty"`
	EdgeIDs []string  `json:"edge_ids,omitempty"`
}

const eventBuffer = 64

// Store is the single source of truth for one design in progress:
// nodes, edges, selection and a dirty flag. All mutations take the
// write lock and are immediately visible to readers and subscribers.
type Store struct {
	mu  sync.RWMutex
	cat *catalog.Catalog

	nodes []Node
	edges []Edge

	selectedNode string
	selectedEdge string
	dirty        bool

	nodeSeq int
	edgeSeq int

	subMu sync.Mutex
	subs  map[int]chan Event
	subID int
}

// NewStore builds an empty store validating against the given catalog.
func NewStore(cat *catalog.Catalog) *Store {
	return &Store{cat: cat, subs: make(map[int]chan Event)}
}

// Catalog exposes the catalog the store validates against.
func (s *Store) Catalog() *catalog.Catalog { return s.cat }

// Subscribe registers an event channel. The returned cancel func must
// be called when the subscriber goes away. Slow subscribers lose
// events rather than blocking mutations.
func (s *Store) Subscribe() (<-chan Event, func()) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	id := s.subID
	s.subID++
	ch := make(chan Event, eventBuffer)
	s.subs[id] = ch
	return ch, func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		if c, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(c)
		}
	}
}

func (s *Store) publish(ev Event) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// NextNodeID reserves the next node id for the given service type.
// Ids follow <serviceID>-<seq> with a store-wide increasing sequence.
func (s *Store) NextNodeID(serviceID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nodeSeq++
	return fmt.Sprintf("%s-%d", serviceID, s.nodeSeq)
}

// NextEdgeID reserves the next edge id.
func (s *Store) NextEdgeID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.edgeSeq++
	return fmt.Sprintf("edge-%d", s.edgeSeq)
}

// AddNode inserts the node and marks the store dirty. The caller is
// responsible for placement validation; the store only refuses ids
// that already exist.
func (s *Store) AddNode(n Node) bool {
	s.mu.Lock()
	if s.indexOfNode(n.ID) >= 0 {
		s.mu.Unlock()
		return false
	}
	s.nodes = append(s.nodes, cloneNode(n))
	s.dirty = true
	s.mu.Unlock()

	added := cloneNode(n)
	s.publish(Event{Type: EventNodeAdded, Node: &added})
	return true
}

// UpdateNodeProperty overwrites one property value after checking it
// against the service schema. Unknown node ids are a silent no-op.
func (s *Store) UpdateNodeProperty(nodeID, name string, value PropertyValue) bool {
	s.mu.Lock()
	i := s.indexOfNode(nodeID)
	if i < 0 {
		s.mu.Unlock()
		return false
	}
	def, ok := s.cat.Get(s.nodes[i].ServiceID)
	if !ok {
		s.mu.Unlock()
		return false
	}
	spec, ok := def.Property(name)
	if !ok || value.Matches(spec) != nil {
		s.mu.Unlock()
		return false
	}
	if s.nodes[i].Properties == nil {
		s.nodes[i].Properties = make(map[string]PropertyValue)
	}
	s.nodes[i].Properties[name] = value
	s.dirty = true
	updated := cloneNode(s.nodes[i])
	s.mu.Unlock()

	s.publish(Event{Type: EventNodeUpdated, Node: &updated})
	return true
}

// MoveNode updates a node's stored (parent-relative) position.
func (s *Store) MoveNode(nodeID string, pos Position) bool {
	s.mu.Lock()
	i := s.indexOfNode(nodeID)
	if i < 0 {
		s.mu.Unlock()
		return false
	}
	s.nodes[i].Position = pos
	s.dirty = true
	moved := cloneNode(s.nodes[i])
	s.mu.Unlock()

	s.publish(Event{Type: EventNodeMoved, Node: &moved})
	return true
}

// Reparent moves a node under a new parent (empty for top-level) with
// the given relative position. Used when a drag ends over a container.
func (s *Store) Reparent(nodeID, parentID string, pos Position) bool {
	s.mu.Lock()
	i := s.indexOfNode(nodeID)
	if i < 0 || (parentID != "" && s.indexOfNode(parentID) < 0) {
		s.mu.Unlock()
		return false
	}
	s.nodes[i].ParentID = parentID
	s.nodes[i].Position = pos
	s.dirty = true
	moved := cloneNode(s.nodes[i])
	s.mu.Unlock()

	s.publish(Event{Type: EventNodeMoved, Node: &moved})
	return true
}

// RemoveNode deletes one node and every edge touching it. Children of
// a removed container are lifted to the removed node's parent with
// their absolute position preserved. Unknown ids are a no-op.
func (s *Store) RemoveNode(nodeID string) bool {
	s.mu.Lock()
	i := s.indexOfNode(nodeID)
	if i < 0 {
		s.mu.Unlock()
		return false
	}
	removed := s.nodes[i]
	for j := range s.nodes {
		if s.nodes[j].ParentID == nodeID {
			s.nodes[j].ParentID = removed.ParentID
			s.nodes[j].Position = s.nodes[j].Position.Add(removed.Position)
		}
	}
	s.nodes = append(s.nodes[:i], s.nodes[i+1:]...)
	edgeIDs := s.dropEdgesTouching(map[string]bool{nodeID: true})
	s.clearSelectionFor(map[string]bool{nodeID: true}, edgeIDs)
	s.dirty = true
	s.mu.Unlock()

	s.publish(Event{Type: EventNodesRemoved, NodeIDs: []string{nodeID}, EdgeIDs: edgeIDs})
	return true
}

// RemoveNodeWithChildren deletes the node, every transitive descendant
// and all edges touching any of them. Returns the removed node count.
func (s *Store) RemoveNodeWithChildren(nodeID string) int {
	s.mu.Lock()
	if s.indexOfNode(nodeID) < 0 {
		s.mu.Unlock()
		return 0
	}
	doomed := map[string]bool{nodeID: true}
	// Children may appear before parents in insertion order, so sweep
	// until the doomed set stops growing.
	for {
		grew := false
		for _, n := range s.nodes {
			if !doomed[n.ID] && n.ParentID != "" && doomed[n.ParentID] {
				doomed[n.ID] = true
				grew = true
			}
		}
		if !grew {
			break
		}
	}
	kept := s.nodes[:0]
	var nodeIDs []string
	for _, n := range s.nodes {
		if doomed[n.ID] {
			nodeIDs = append(nodeIDs, n.ID)
		} else {
			kept = append(kept, n)
		}
	}
	s.nodes = kept
	edgeIDs := s.dropEdgesTouching(doomed)
	s.clearSelectionFor(doomed, edgeIDs)
	s.dirty = true
	s.mu.Unlock()

	s.publish(Event{Type: EventNodesRemoved, NodeIDs: nodeIDs, EdgeIDs: edgeIDs})
	return len(nodeIDs)
}

// Connect appends a validated edge. Rule checks are the controller's
// job; the store still enforces its own structural invariants: both
// endpoints exist, no self-loop, one edge per unordered pair.
func (s *Store) Connect(e Edge) bool {
	s.mu.Lock()
	if e.Source == e.Target || s.indexOfNode(e.Source) < 0 || s.indexOfNode(e.Target) < 0 {
		s.mu.Unlock()
		return false
	}
	for _, ex := range s.edges {
		if (ex.Source == e.Source && ex.Target == e.Target) || (ex.Source == e.Target && ex.Target == e.Source) {
			s.mu.Unlock()
			return false
		}
	}
	s.edges = append(s.edges, e)
	s.dirty = true
	s.mu.Unlock()

	added := e
	s.publish(Event{Type: EventEdgeAdded, Edge: &added})
	return true
}

// RemoveEdge deletes one edge by id.
func (s *Store) RemoveEdge(edgeID string) bool {
	s.mu.Lock()
	found := false
	kept := s.edges[:0]
	for _, e := range s.edges {
		if e.ID == edgeID {
			found = true
			continue
		}
		kept = append(kept, e)
	}
	s.edges = kept
	if found {
		if s.selectedEdge == edgeID {
			s.selectedEdge = ""
		}
		s.dirty = true
	}
	s.mu.Unlock()

	if found {
		s.publish(Event{Type: EventEdgesRemoved, EdgeIDs: []string{edgeID}})
	}
	return found
}

// ClearCanvas resets nodes, edges and selection and clears the dirty
// flag. Id sequences keep counting so reused sessions never collide.
func (s *Store) ClearCanvas() {
	s.mu.Lock()
	s.nodes = nil
	s.edges = nil
	s.selectedNode = ""
	s.selectedEdge = ""
	s.dirty = false
	s.mu.Unlock()

	s.publish(Event{Type: EventCanvasCleared})
}

// SelectNode marks one node selected, clearing any edge selection.
func (s *Store) SelectNode(nodeID string) {
	s.mu.Lock()
	if nodeID != "" && s.indexOfNode(nodeID) < 0 {
		s.mu.Unlock()
		return
	}
	s.selectedNode = nodeID
	s.selectedEdge = ""
	s.mu.Unlock()

	s.publish(Event{Type: EventSelectionMoved, NodeIDs: selection(nodeID)})
}

// SelectEdge marks one edge selected, clearing any node selection.
func (s *Store) SelectEdge(edgeID string) {
	s.mu.Lock()
	s.selectedNode = ""
	s.selectedEdge = edgeID
	s.mu.Unlock()

	s.publish(Event{Type: EventSelectionMoved, EdgeIDs: selection(edgeID)})
}

// Selection returns the selected node id and edge id (either empty).
func (s *Store) Selection() (nodeID, edgeID string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selectedNode, s.selectedEdge
}

// Dirty reports whether the design changed since the last save.
func (s *Store) Dirty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dirty
}

// MarkSaved clears the dirty flag after a successful persist.
func (s *Store) MarkSaved() {
	s.mu.Lock()
	s.dirty = false
	s.mu.Unlock()
}

// Graph returns a deep copy of the current nodes and edges.
func (s *Store) Graph() Graph {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g := Graph{Nodes: make([]Node, 0, len(s.nodes)), Edges: make([]Edge, 0, len(s.edges))}
	for _, n := range s.nodes {
		g.Nodes = append(g.Nodes, cloneNode(n))
	}
	g.Edges = append(g.Edges, s.edges...)
	return g
}

// Node returns a copy of one node.
func (s *Store) Node(nodeID string) (Node, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.indexOfNode(nodeID)
	if i < 0 {
		return Node{}, false
	}
	return cloneNode(s.nodes[i]), true
}

// Counts returns the current node and edge counts.
func (s *Store) Counts() (nodes, edges int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.nodes), len(s.edges)
}

// Load replaces the store contents with a persisted graph and resets
// the dirty flag. Id sequences resume past the highest loaded id so
// new nodes never collide with restored ones.
func (s *Store) Load(g Graph) {
	s.mu.Lock()
	s.nodes = make([]Node, 0, len(g.Nodes))
	for _, n := range g.Nodes {
		s.nodes = append(s.nodes, cloneNode(n))
		if seq, ok := trailingSeq(n.ID); ok && seq > s.nodeSeq {
			s.nodeSeq = seq
		}
	}
	s.edges = append([]Edge(nil), g.Edges...)
	for _, e := range s.edges {
		if seq, ok := trailingSeq(e.ID); ok && seq > s.edgeSeq {
			s.edgeSeq = seq
		}
	}
	s.selectedNode = ""
	s.selectedEdge = ""
	s.dirty = false
	s.mu.Unlock()

	s.publish(Event{Type: EventCanvasCleared})
}

func (s *Store) indexOfNode(id string) int {
	for i := range s.nodes {
		if s.nodes[i].ID == id {
			return i
		}
	}
	return -1
}

// dropEdgesTouching removes every edge with an endpoint in the doomed
// set and returns the removed edge ids. Caller holds the write lock.
func (s *Store) dropEdgesTouching(doomed map[string]bool) []string {
	var removed []string
	kept := s.edges[:0]
	for _, e := range s.edges {
		if doomed[e.Source] || doomed[e.Target] {
			removed = append(removed, e.ID)
			continue
		}
		kept = append(kept, e)
	}
	s.edges = kept
	return removed
}

func (s *Store) clearSelectionFor(doomedNodes map[string]bool, doomedEdges []string) {
	if doomedNodes[s.selectedNode] {
		s.selectedNode = ""
	}
	for _, id := range doomedEdges {
		if s.selectedEdge == id {
			s.selectedEdge = ""
		}
	}
}

func cloneNode(n Node) Node {
	out := n
	if n.Size != nil {
		sz := *n.Size
		out.Size = &sz
	}
	if n.Properties != nil {
		out.Properties = make(map[string]PropertyValue, len(n.Properties))
		for k, v := range n.Properties {
			out.Properties[k] = v
		}
	}
	return out
}

func selection(id string) []string {
	if id == "" {
		return nil
	}
	return []string{id}
}

func trailingSeq(id string) (int, bool) {
	i := strings.LastIndexByte(id, '-')
	if i < 0 || i == len(id)-1 {
		return 0, false
	}
	n, err := strconv.Atoi(id[i+1:])
	if err != nil {
		return 0, false
	}
	return n, true
}
