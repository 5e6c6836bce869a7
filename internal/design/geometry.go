package design

import (
	"sort"

	"github.com/stackcanvas/engine/internal/catalog"
)

// ContainerPadding keeps dropped children clear of a container's left,
// right and bottom borders.
const ContainerPadding = 10.0

// AbsolutePosition resolves a node's canvas position by summing its
// relative position with every ancestor's. Returns false when the id is
// unknown or the parent chain is broken.
func AbsolutePosition(g *Graph, id string) (Position, bool) {
	pos := Position{}
	seen := 0
	for cur := g.NodeByID(id); cur != nil; cur = g.NodeByID(cur.ParentID) {
		pos = pos.Add(cur.Position)
		if cur.ParentID == "" {
			return pos, true
		}
		// A parent cycle would loop forever; bail past the node count.
		if seen++; seen > len(g.Nodes) {
			return Position{}, false
		}
	}
	return Position{}, false
}

// NodeSize returns the node's extent, falling back to the catalog
// container geometry when the node carries none.
func NodeSize(cat *catalog.Catalog, n Node) Size {
	if n.Size != nil {
		return *n.Size
	}
	if def, ok := cat.Get(n.ServiceID); ok && def.IsContainer() {
		return Size{Width: def.Container.Width, Height: def.Container.Height}
	}
	return Size{}
}

// NodeBounds returns a container node's absolute rectangle.
func NodeBounds(g *Graph, cat *catalog.Catalog, n Node) (Rect, bool) {
	abs, ok := AbsolutePosition(g, n.ID)
	if !ok {
		return Rect{}, false
	}
	sz := NodeSize(cat, n)
	return Rect{Min: abs, Max: Position{X: abs.X + sz.Width, Y: abs.Y + sz.Height}}, true
}

// FindContainerAt returns the innermost container whose bounds contain
// the absolute point p. Nested containers win over their ancestors, so
// a point inside a subnet resolves to the subnet, not the enclosing
// VPC. The exclude id skips a node (a container being moved must not
// land inside itself).
func FindContainerAt(g *Graph, cat *catalog.Catalog, p Position, exclude string) (*Node, bool) {
	type hit struct {
		node   *Node
		depth  int
		zIndex int
		area   float64
	}
	var hits []hit
	for i := range g.Nodes {
		n := &g.Nodes[i]
		if n.ID == exclude {
			continue
		}
		def, ok := cat.Get(n.ServiceID)
		if !ok || !def.IsContainer() {
			continue
		}
		bounds, ok := NodeBounds(g, cat, *n)
		if !ok || !bounds.Contains(p) {
			continue
		}
		hits = append(hits, hit{node: n, depth: nodeDepth(g, n.ID), zIndex: n.ZIndex, area: bounds.Area()})
	}
	if len(hits) == 0 {
		return nil, false
	}
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].depth != hits[j].depth {
			return hits[i].depth > hits[j].depth
		}
		if hits[i].zIndex != hits[j].zIndex {
			return hits[i].zIndex > hits[j].zIndex
		}
		return hits[i].area < hits[j].area
	})
	return hits[0].node, true
}

func nodeDepth(g *Graph, id string) int {
	depth := 0
	for cur := g.NodeByID(id); cur != nil && cur.ParentID != ""; cur = g.NodeByID(cur.ParentID) {
		if depth++; depth > len(g.Nodes) {
			break
		}
	}
	return depth
}

// ClampIntoContainer converts the absolute drop point into a position
// relative to the container, keeping the child clear of the header and
// the padded borders. Children larger than the free interior pin to the
// top-left corner of it.
func ClampIntoContainer(g *Graph, cat *catalog.Catalog, container Node, abs Position, child Size) Position {
	parentAbs, ok := AbsolutePosition(g, container.ID)
	if !ok {
		return abs
	}
	header := 0.0
	if def, ok := cat.Get(container.ServiceID); ok && def.IsContainer() {
		header = def.Container.HeaderHeight
	}
	parentSize := NodeSize(cat, container)

	rel := abs.Sub(parentAbs)
	minX, minY := ContainerPadding, header
	maxX := parentSize.Width - ContainerPadding - child.Width
	maxY := parentSize.Height - ContainerPadding - child.Height
	if maxX < minX {
		maxX = minX
	}
	if maxY < minY {
		maxY = minY
	}
	rel.X = clamp(rel.X, minX, maxX)
	rel.Y = clamp(rel.Y, minY, maxY)
	return rel
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
