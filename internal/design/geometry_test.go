package design

import (
	"testing"

	"github.com/stackcanvas/engine/internal/catalog"
	"github.com/stretchr/testify/require"
)

func containerNode(t *testing.T, cat *catalog.Catalog, id, serviceID, parentID string, pos Position) Node {
	t.Helper()
	def, ok := cat.Get(serviceID)
	require.True(t, ok)
	require.True(t, def.IsContainer())
	return Node{
		ID:        id,
		ServiceID: serviceID,
		ParentID:  parentID,
		Position:  pos,
		Size:      &Size{Width: def.Container.Width, Height: def.Container.Height},
		ZIndex:    def.Container.ZIndex,
	}
}

func TestAbsolutePositionSumsAncestorChain(t *testing.T) {
	cat := catalog.Default()
	g := Graph{Nodes: []Node{
		containerNode(t, cat, "vpc-1", "vpc", "", Position{X: 100, Y: 100}),
		containerNode(t, cat, "public_subnet-2", "public_subnet", "vpc-1", Position{X: 20, Y: 30}),
		{ID: "ec2-3", ServiceID: "ec2", ParentID: "public_subnet-2", Position: Position{X: 15, Y: 40}},
	}}

	abs, ok := AbsolutePosition(&g, "ec2-3")
	require.True(t, ok)
	require.Equal(t, Position{X: 135, Y: 170}, abs)

	abs, ok = AbsolutePosition(&g, "vpc-1")
	require.True(t, ok)
	require.Equal(t, Position{X: 100, Y: 100}, abs)

	_, ok = AbsolutePosition(&g, "nope")
	require.False(t, ok)
}

func TestAbsolutePositionBailsOnBrokenChain(t *testing.T) {
	g := Graph{Nodes: []Node{
		{ID: "a", ServiceID: "ec2", ParentID: "gone", Position: Position{X: 5, Y: 5}},
	}}

	_, ok := AbsolutePosition(&g, "a")
	require.False(t, ok)
}

func TestFindContainerAtPrefersInnermost(t *testing.T) {
	cat := catalog.Default()
	g := Graph{Nodes: []Node{
		containerNode(t, cat, "vpc-1", "vpc", "", Position{X: 100, Y: 100}),
		containerNode(t, cat, "public_subnet-2", "public_subnet", "vpc-1", Position{X: 20, Y: 40}),
	}}

	// Inside the subnet: the subnet wins over the enclosing VPC.
	hit, ok := FindContainerAt(&g, cat, Position{X: 150, Y: 160}, "")
	require.True(t, ok)
	require.Equal(t, "public_subnet-2", hit.ID)

	// Inside the VPC but outside the subnet.
	hit, ok = FindContainerAt(&g, cat, Position{X: 700, Y: 500}, "")
	require.True(t, ok)
	require.Equal(t, "vpc-1", hit.ID)

	// Open canvas.
	_, ok = FindContainerAt(&g, cat, Position{X: 10, Y: 10}, "")
	require.False(t, ok)

	// A container never hosts itself.
	_, ok = FindContainerAt(&g, cat, Position{X: 150, Y: 160}, "public_subnet-2")
	require.True(t, ok)
	hit, _ = FindContainerAt(&g, cat, Position{X: 150, Y: 160}, "public_subnet-2")
	require.Equal(t, "vpc-1", hit.ID)
}

func TestClampIntoContainerMatchesDropScenario(t *testing.T) {
	cat := catalog.Default()
	vpc := containerNode(t, cat, "vpc-1", "vpc", "", Position{X: 100, Y: 100})
	g := Graph{Nodes: []Node{vpc}}

	subnetDef, _ := cat.Get("public_subnet")
	child := Size{Width: subnetDef.Container.Width, Height: subnetDef.Container.Height}

	// Drop at absolute (120,130) inside a VPC at (100,100): relative
	// (20,30) survives the clamp untouched.
	rel := ClampIntoContainer(&g, cat, vpc, Position{X: 120, Y: 130}, child)
	require.Equal(t, Position{X: 20, Y: 30}, rel)

	// Too close to the top-left corner: pushed past padding and header.
	rel = ClampIntoContainer(&g, cat, vpc, Position{X: 101, Y: 102}, child)
	require.Equal(t, Position{X: ContainerPadding, Y: 30}, rel)

	// Hanging over the bottom-right edge: pulled back inside.
	rel = ClampIntoContainer(&g, cat, vpc, Position{X: 880, Y: 590}, child)
	require.Equal(t, Position{X: 800 - ContainerPadding - 360, Y: 500 - ContainerPadding - 240}, rel)
}

func TestClampIntoContainerOversizedChildPinsToCorner(t *testing.T) {
	cat := catalog.Default()
	sub := containerNode(t, cat, "public_subnet-1", "public_subnet", "", Position{X: 0, Y: 0})
	g := Graph{Nodes: []Node{sub}}

	rel := ClampIntoContainer(&g, cat, sub, Position{X: 300, Y: 200}, Size{Width: 1000, Height: 1000})
	require.Equal(t, Position{X: ContainerPadding, Y: 30}, rel)
}

func TestValidatePlacementRequiredParent(t *testing.T) {
	cat := catalog.Default()
	subnet, _ := cat.Get("public_subnet")
	vpc, _ := cat.Get("vpc")
	s3, _ := cat.Get("s3")

	// Subnets only ever nest in a VPC.
	require.True(t, ValidatePlacement(subnet, &vpc))
	require.False(t, ValidatePlacement(subnet, nil))
	require.False(t, ValidatePlacement(subnet, &subnet))
	require.False(t, ValidatePlacement(subnet, &s3))
}

func TestValidatePlacementSubnetRules(t *testing.T) {
	cat := catalog.Default()
	pub, _ := cat.Get("public_subnet")
	priv, _ := cat.Get("private_subnet")
	vpc, _ := cat.Get("vpc")

	cases := []struct {
		service string
		inPub   bool
		inPriv  bool
	}{
		{"ec2", true, true},
		{"alb", true, false},
		{"lambda", false, true},
		{"rds", false, true},
	}
	for _, tc := range cases {
		svc, ok := cat.Get(tc.service)
		require.True(t, ok)
		require.Equal(t, tc.inPub, ValidatePlacement(svc, &pub), "%s in public subnet", tc.service)
		require.Equal(t, tc.inPriv, ValidatePlacement(svc, &priv), "%s in private subnet", tc.service)

		// Non-subnet targets leave subnet-ruled services unrestricted.
		require.True(t, ValidatePlacement(svc, nil), "%s on open canvas", tc.service)
		require.True(t, ValidatePlacement(svc, &vpc), "%s directly in vpc", tc.service)
	}
}

func TestConnectionAllowedEitherDirection(t *testing.T) {
	cat := catalog.Default()

	// alb lists ec2; ec2 does not list alb. Either direction accepts.
	require.True(t, ConnectionAllowed(cat, "alb", "ec2"))
	require.True(t, ConnectionAllowed(cat, "ec2", "alb"))

	// No rule in either direction.
	require.False(t, ConnectionAllowed(cat, "rds", "s3"))
	require.False(t, ConnectionAllowed(cat, "vpc", "ec2"))
}
