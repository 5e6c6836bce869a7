package catalog

import (
	"testing"

	"github.com/stretchr/testify/require"
	appErr "github.com/stackcanvas/engine/pkg/errors"
)

func TestDefaultCatalogLoads(t *testing.T) {
	c := Default()
	require.NotNil(t, c)

	services := c.Services()
	require.NotEmpty(t, services)

	// Every cross-reference must resolve.
	for _, def := range services {
		if def.RequiredParent != "" {
			parent, ok := c.Get(def.RequiredParent)
			require.True(t, ok, "service %s references unknown parent", def.ID)
			require.True(t, parent.IsContainer())
		}
		for _, target := range def.ConnectsTo {
			_, ok := c.Get(target)
			require.True(t, ok, "service %s references unknown target %s", def.ID, target)
		}
	}
}

func TestContainerDefinitions(t *testing.T) {
	c := Default()

	vpc, ok := c.Get("vpc")
	require.True(t, ok)
	require.True(t, vpc.IsContainer())
	require.Empty(t, vpc.RequiredParent)

	pub, ok := c.Get("public_subnet")
	require.True(t, ok)
	require.True(t, pub.IsContainer())
	require.Equal(t, "vpc", pub.RequiredParent)

	// Subnets layer above the VPC so nested drops hit them first.
	require.Less(t, vpc.Container.ZIndex, pub.Container.ZIndex)

	for _, def := range c.Containers() {
		require.True(t, def.IsContainer())
	}
}

func TestCanConnectIsDirectional(t *testing.T) {
	c := Default()

	require.True(t, c.CanConnect("ec2", "rds"))
	require.False(t, c.CanConnect("rds", "ec2"))
	require.False(t, c.CanConnect("s3", "rds"))
	require.False(t, c.CanConnect("nope", "rds"))
}

func TestDragPayloadRoundTrip(t *testing.T) {
	c := Default()
	def, ok := c.Get("ec2")
	require.True(t, ok)

	payload, err := EncodePayload(def)
	require.NoError(t, err)

	decoded, err := c.DecodePayload(payload)
	require.NoError(t, err)
	require.Equal(t, def.ID, decoded.ID)
	require.Equal(t, def.TerraformType, decoded.TerraformType)
}

func TestDecodePayloadRejectsGarbage(t *testing.T) {
	c := Default()

	_, err := c.DecodePayload("{not json")
	require.Error(t, err)
	require.True(t, appErr.IsCode(err, appErr.CodeInvalid))

	_, err = c.DecodePayload(`{"id":"mainframe"}`)
	require.Error(t, err)
	require.True(t, appErr.IsCode(err, appErr.CodeUnsupported))
}

func TestLoadRejectsBrokenDefinitions(t *testing.T) {
	_, err := loadFrom([]byte(`
services:
  - id: widget
    name: Widget
    category: compute
    terraform_type: aws_widget
    required_parent: missing
`))
	require.Error(t, err)

	_, err = loadFrom([]byte(`
services:
  - id: widget
    name: Widget
    category: compute
    terraform_type: aws_widget
    properties:
      - name: mode
        kind: select
        default: a
`))
	require.Error(t, err, "select property without options must be rejected")
}
