package generator

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/stackcanvas/engine/internal/catalog"
	"github.com/stackcanvas/engine/internal/design"
)

// webAppGraph models the canonical three-tier design: a VPC holding a
// public and a private subnet, an ALB and an EC2 instance in the
// public subnet, an RDS instance in the private one, an S3 bucket on
// the open canvas, and edges alb->ec2, ec2->rds, ec2->s3.
func webAppGraph(t *testing.T) design.Graph {
	t.Helper()
	size := func(w, h float64) *design.Size { return &design.Size{Width: w, Height: h} }
	return design.Graph{
		Nodes: []design.Node{
			{ID: "vpc-1", ServiceID: "vpc", Position: design.Position{X: 100, Y: 100}, Size: size(800, 500), ZIndex: -20},
			{ID: "public_subnet-2", ServiceID: "public_subnet", ParentID: "vpc-1", Position: design.Position{X: 20, Y: 40}, Size: size(360, 240), ZIndex: -10},
			{ID: "private_subnet-3", ServiceID: "private_subnet", ParentID: "vpc-1", Position: design.Position{X: 410, Y: 40}, Size: size(360, 240), ZIndex: -10},
			{ID: "alb-4", ServiceID: "alb", ParentID: "public_subnet-2", Position: design.Position{X: 20, Y: 40}},
			{ID: "ec2-5", ServiceID: "ec2", ParentID: "public_subnet-2", Position: design.Position{X: 120, Y: 40}, Properties: map[string]design.PropertyValue{
				"instance_type": design.SelectValue("m5.large"),
			}},
			{ID: "rds-6", ServiceID: "rds", ParentID: "private_subnet-3", Position: design.Position{X: 40, Y: 60}},
			{ID: "s3-7", ServiceID: "s3", Position: design.Position{X: 950, Y: 120}, Properties: map[string]design.PropertyValue{
				"versioning": design.BoolValue(true),
			}},
		},
		Edges: []design.Edge{
			{ID: "edge-1", Source: "alb-4", Target: "ec2-5"},
			{ID: "edge-2", Source: "ec2-5", Target: "rds-6"},
			{ID: "edge-3", Source: "ec2-5", Target: "s3-7"},
		},
	}
}

func fileContent(t *testing.T, fs FileSet, path string) string {
	t.Helper()
	f, ok := fs.Lookup(path)
	require.True(t, ok, "expected %s in %v", path, fs.Paths())
	return string(f.Content)
}

func TestTerraformModularLayout(t *testing.T) {
	fs, err := NewTerraform().Generate(webAppGraph(t), catalog.Default())
	require.NoError(t, err)

	for _, path := range []string{
		"main.tf", "variables.tf", "versions.tf", "outputs.tf",
		"modules/network/main.tf", "modules/network/outputs.tf",
		"modules/compute/main.tf", "modules/compute/variables.tf",
		"modules/database/main.tf",
		"modules/storage/main.tf",
	} {
		_, ok := fs.Lookup(path)
		require.True(t, ok, "missing %s in %v", path, fs.Paths())
	}
}

func TestTerraformResourcesAndContainment(t *testing.T) {
	cat := catalog.Default()
	fs, err := NewTerraform().Generate(webAppGraph(t), cat)
	require.NoError(t, err)

	network := fileContent(t, fs, "modules/network/main.tf")
	require.Contains(t, network, `resource "aws_vpc" "vpc_1"`)
	require.Contains(t, network, `resource "aws_subnet" "public_subnet_2"`)
	require.Contains(t, network, `resource "aws_subnet" "private_subnet_3"`)
	// Subnets reference their VPC directly inside the module.
	require.Contains(t, network, "aws_vpc.vpc_1.id")
	require.Contains(t, network, "map_public_ip_on_launch")

	compute := fileContent(t, fs, "modules/compute/main.tf")
	require.Contains(t, compute, `resource "aws_instance" "ec2_5"`)
	require.Contains(t, compute, `resource "aws_lb" "alb_4"`)
	// Cross-module containment goes through a module variable.
	require.Contains(t, compute, "var.public_subnet_2_id")
	require.Contains(t, fileContent(t, fs, "modules/compute/variables.tf"), `variable "public_subnet_2_id"`)
	require.Contains(t, fileContent(t, fs, "modules/network/outputs.tf"), `output "public_subnet_2_id"`)

	// The user's property edit wins over the catalog default.
	require.Contains(t, compute, "m5.large")
	require.NotContains(t, compute, "t3.micro")

	storage := fileContent(t, fs, "modules/storage/main.tf")
	require.Contains(t, storage, `resource "aws_s3_bucket" "s3_7"`)
	require.Contains(t, storage, `resource "aws_s3_bucket_versioning" "s3_7_versioning"`)

	root := fileContent(t, fs, "main.tf")
	require.Contains(t, root, `module "network"`)
	require.Contains(t, root, `module "compute"`)
	require.Contains(t, root, "module.network.public_subnet_2_id")
	// Plain edges across modules become module-level dependencies.
	require.Contains(t, root, "depends_on")
	require.Contains(t, root, "module.database")

	// Network is emitted before the modules depending on it.
	require.Less(t, strings.Index(root, `module "network"`), strings.Index(root, `module "compute"`))
}

func TestTerraformSameModuleEdgeBecomesDependsOn(t *testing.T) {
	fs, err := NewTerraform().Generate(webAppGraph(t), catalog.Default())
	require.NoError(t, err)

	// alb->ec2 stays inside the compute module.
	compute := fileContent(t, fs, "modules/compute/main.tf")
	require.Contains(t, compute, "depends_on")
	require.Contains(t, compute, "aws_instance.ec2_5")
}

func TestTerraformIdempotent(t *testing.T) {
	cat := catalog.Default()
	g := webAppGraph(t)

	first, err := NewTerraform().Generate(g, cat)
	require.NoError(t, err)
	second, err := NewTerraform().Generate(g, cat)
	require.NoError(t, err)

	require.Equal(t, first, second, "unchanged graph must generate byte-identical output")
}

func TestTerraformEmptyGraph(t *testing.T) {
	fs, err := NewTerraform().Generate(design.Graph{}, catalog.Default())
	require.NoError(t, err)

	require.Equal(t, []string{"main.tf", "variables.tf", "versions.tf"}, fs.Paths())
	require.Contains(t, fileContent(t, fs, "versions.tf"), "required_providers")
}

func TestTerraformMissingPropertiesFallBackToDefaults(t *testing.T) {
	g := design.Graph{Nodes: []design.Node{
		// No property map at all.
		{ID: "ec2-1", ServiceID: "ec2"},
		// A malformed value for a known property.
		{ID: "rds-2", ServiceID: "rds", Properties: map[string]design.PropertyValue{
			"allocated_storage": design.TextValue("lots"),
		}},
	}}

	fs, err := NewTerraform().Generate(g, catalog.Default())
	require.NoError(t, err)

	compute := fileContent(t, fs, "modules/compute/main.tf")
	require.Contains(t, compute, "t3.micro")
	require.Contains(t, compute, "ami-0c02fb55956c7d316")

	database := fileContent(t, fs, "modules/database/main.tf")
	require.Contains(t, database, "allocated_storage")
	require.Contains(t, database, "20")
}

func TestTerraformSkipsUnknownServices(t *testing.T) {
	g := design.Graph{Nodes: []design.Node{
		{ID: "ec2-1", ServiceID: "ec2"},
		{ID: "mainframe-2", ServiceID: "mainframe"},
	}}

	fs, err := NewTerraform().Generate(g, catalog.Default())
	require.NoError(t, err)

	compute := fileContent(t, fs, "modules/compute/main.tf")
	require.Contains(t, compute, "ec2_1")
	require.NotContains(t, compute, "mainframe")
}
