// Package canvas translates canvas interaction events into graph store
// mutations. The controller owns no design state of its own; every
// accepted event becomes exactly one store operation, and every
// rejected event is logged and dropped without touching the store.
package canvas

import (
	"go.uber.org/zap"

	"github.com/stackcanvas/engine/internal/catalog"
	"github.com/stackcanvas/engine/internal/design"
	"github.com/stackcanvas/engine/pkg/logger"
)

// Controller applies interaction events to one design store.
type Controller struct {
	cat   *catalog.Catalog
	store *design.Store
	log   *zap.Logger
}

// NewController wires a controller to its store.
func NewController(cat *catalog.Catalog, store *design.Store) *Controller {
	return &Controller{cat: cat, store: store, log: logger.Component("canvas")}
}

// Store exposes the underlying design store.
func (c *Controller) Store() *design.Store { return c.store }

// HandleDrop places a new service instance at the given canvas
// position. The drag payload is the encoded service definition from
// drag start. The drop point is resolved against the innermost
// container beneath it; containment rules decide whether the service
// may live there. Invalid drops are logged and ignored.
func (c *Controller) HandleDrop(payload string, dropPos design.Position) (design.Node, bool) {
	def, err := c.cat.DecodePayload(payload)
	if err != nil {
		c.log.Warn("drop rejected: bad drag payload", zap.Error(err))
		return design.Node{}, false
	}

	graph := c.store.Graph()
	var (
		parentDef *catalog.ServiceDefinition
		parent    *design.Node
	)
	if hit, ok := design.FindContainerAt(&graph, c.cat, dropPos, ""); ok {
		hitDef, ok := c.cat.Get(hit.ServiceID)
		if !ok {
			c.log.Warn("drop rejected: container has unknown service",
				zap.String("container", hit.ID),
				zap.String("service", hit.ServiceID))
			return design.Node{}, false
		}
		parent = hit
		parentDef = &hitDef
	}

	if !design.ValidatePlacement(def, parentDef) {
		c.log.Warn("drop rejected: placement rules",
			zap.String("service", def.ID),
			zap.String("container", containerID(parent)))
		return design.Node{}, false
	}

	props, err := design.SeedProperties(def)
	if err != nil {
		c.log.Error("drop rejected: seeding defaults", zap.String("service", def.ID), zap.Error(err))
		return design.Node{}, false
	}

	node := design.Node{
		ID:         c.store.NextNodeID(def.ID),
		ServiceID:  def.ID,
		Position:   dropPos,
		Properties: props,
	}
	if def.IsContainer() {
		node.Size = &design.Size{Width: def.Container.Width, Height: def.Container.Height}
		node.ZIndex = def.Container.ZIndex
	}
	if parent != nil {
		node.ParentID = parent.ID
		node.Position = design.ClampIntoContainer(&graph, c.cat, *parent, dropPos, design.NodeSize(c.cat, node))
	}

	if !c.store.AddNode(node) {
		c.log.Error("drop rejected: store refused node", zap.String("node", node.ID))
		return design.Node{}, false
	}
	c.log.Info("node placed",
		zap.String("node", node.ID),
		zap.String("service", def.ID),
		zap.String("parent", node.ParentID))
	return node, true
}

// HandleConnect wires two placed nodes. The edge is accepted when the
// catalog allows the pairing in at least one direction; self-loops,
// unknown endpoints and duplicate pairs are rejected by the store.
func (c *Controller) HandleConnect(sourceID, targetID string) (design.Edge, bool) {
	src, ok := c.store.Node(sourceID)
	if !ok {
		c.log.Warn("connect rejected: unknown source", zap.String("source", sourceID))
		return design.Edge{}, false
	}
	dst, ok := c.store.Node(targetID)
	if !ok {
		c.log.Warn("connect rejected: unknown target", zap.String("target", targetID))
		return design.Edge{}, false
	}

	if !design.ConnectionAllowed(c.cat, src.ServiceID, dst.ServiceID) {
		c.log.Warn("connect rejected: no rule in either direction",
			zap.String("source_service", src.ServiceID),
			zap.String("target_service", dst.ServiceID))
		return design.Edge{}, false
	}

	edge := design.Edge{ID: c.store.NextEdgeID(), Source: sourceID, Target: targetID}
	if !c.store.Connect(edge) {
		c.log.Warn("connect rejected: structural invariant",
			zap.String("source", sourceID),
			zap.String("target", targetID))
		return design.Edge{}, false
	}
	c.log.Info("edge created",
		zap.String("edge", edge.ID),
		zap.String("source", sourceID),
		zap.String("target", targetID))
	return edge, true
}

// HandleMove finishes a node drag at a new absolute position. The node
// is re-resolved against the container under the end point, so drags
// can move nodes into, out of and between containers. Moves that would
// break containment rules are logged and ignored.
func (c *Controller) HandleMove(nodeID string, absPos design.Position) bool {
	node, ok := c.store.Node(nodeID)
	if !ok {
		return false
	}
	def, ok := c.cat.Get(node.ServiceID)
	if !ok {
		return false
	}

	graph := c.store.Graph()
	var (
		parentDef *catalog.ServiceDefinition
		parent    *design.Node
	)
	if hit, ok := design.FindContainerAt(&graph, c.cat, absPos, nodeID); ok {
		hitDef, defOK := c.cat.Get(hit.ServiceID)
		if defOK {
			parent = hit
			parentDef = &hitDef
		}
	}

	if !design.ValidatePlacement(def, parentDef) {
		c.log.Warn("move rejected: placement rules",
			zap.String("node", nodeID),
			zap.String("container", containerID(parent)))
		return false
	}

	if parent == nil {
		return c.store.Reparent(nodeID, "", absPos)
	}
	rel := design.ClampIntoContainer(&graph, c.cat, *parent, absPos, design.NodeSize(c.cat, node))
	return c.store.Reparent(nodeID, parent.ID, rel)
}

// HandleRemove deletes a node. Containers cascade to their descendants;
// leaf nodes go alone. Unknown ids are a no-op.
func (c *Controller) HandleRemove(nodeID string) bool {
	node, ok := c.store.Node(nodeID)
	if !ok {
		return false
	}
	def, ok := c.cat.Get(node.ServiceID)
	if ok && def.IsContainer() {
		removed := c.store.RemoveNodeWithChildren(nodeID)
		c.log.Info("container removed",
			zap.String("node", nodeID),
			zap.Int("removed", removed))
		return removed > 0
	}
	if c.store.RemoveNode(nodeID) {
		c.log.Info("node removed", zap.String("node", nodeID))
		return true
	}
	return false
}

// HandleRemoveEdge deletes one edge.
func (c *Controller) HandleRemoveEdge(edgeID string) bool {
	return c.store.RemoveEdge(edgeID)
}

// HandleUpdateProperty writes one property value from the properties
// panel. Schema violations and unknown ids are silently dropped.
func (c *Controller) HandleUpdateProperty(nodeID, name string, value design.PropertyValue) bool {
	if c.store.UpdateNodeProperty(nodeID, name, value) {
		return true
	}
	c.log.Warn("property update rejected",
		zap.String("node", nodeID),
		zap.String("property", name))
	return false
}

// HandleClear wipes the canvas.
func (c *Controller) HandleClear() {
	c.store.ClearCanvas()
	c.log.Info("canvas cleared")
}

// HandleSelectNode updates the node selection. An empty id clears it.
func (c *Controller) HandleSelectNode(nodeID string) {
	c.store.SelectNode(nodeID)
}

// HandleSelectEdge updates the edge selection. An empty id clears it.
func (c *Controller) HandleSelectEdge(edgeID string) {
	c.store.SelectEdge(edgeID)
}

func containerID(n *design.Node) string {
	if n == nil {
		return "canvas"
	}
	return n.ID
}
