package generator

import (
	"sort"

	"github.com/hashicorp/hcl/v2/hclwrite"
	"github.com/zclconf/go-cty/cty"

	"github.com/stackcanvas/engine/internal/catalog"
	"github.com/stackcanvas/engine/internal/design"
)

// emitCtx carries everything one resource emission needs.
type emitCtx struct {
	b    *tfBuild
	mod  *tfModule
	node design.Node
	def  catalog.ServiceDefinition
}

func (c *emitCtx) name() string { return ResourceName(c.node.ID) }

func (c *emitCtx) text(prop string) string    { return propText(c.def, c.node, prop) }
func (c *emitCtx) number(prop string) float64 { return propNumber(c.def, c.node, prop) }
func (c *emitCtx) boolean(prop string) bool   { return propBool(c.def, c.node, prop) }

// parentRef sets attr to a reference to the parent container's id,
// wiring module variables when the parent lives in another module.
func (c *emitCtx) parentRef(body *hclwrite.Body, attr string) bool {
	if c.node.ParentID == "" {
		return false
	}
	trav, ok := c.b.refNode(c.mod, c.node.ParentID, "id")
	if !ok {
		return false
	}
	body.SetAttributeTraversal(attr, trav)
	return true
}

// parentRefList sets attr to a single-element list referencing the
// parent container's id.
func (c *emitCtx) parentRefList(body *hclwrite.Body, attr string) bool {
	if c.node.ParentID == "" {
		return false
	}
	trav, ok := c.b.refNode(c.mod, c.node.ParentID, "id")
	if !ok {
		return false
	}
	body.SetAttributeRaw(attr, hclwrite.TokensForTuple([]hclwrite.Tokens{
		hclwrite.TokensForTraversal(trav),
	}))
	return true
}

// dependOnParent records the containment as a dependency when the
// resource has no natural attribute to carry the reference.
func (c *emitCtx) dependOnParent() {
	if c.node.ParentID == "" {
		return
	}
	parentModule, ok := c.b.moduleOf[c.node.ParentID]
	if !ok {
		return
	}
	if parentModule == c.mod.name {
		c.b.sameDeps[c.node.ID] = append(c.b.sameDeps[c.node.ID], c.b.addr[c.node.ParentID])
		return
	}
	c.mod.deps[parentModule] = true
}

// finish writes tags and accumulated depends_on entries shared by all
// resource kinds.
func (c *emitCtx) finish(body *hclwrite.Body) {
	body.SetAttributeRaw("tags", hclwrite.TokensForFunctionCall("merge",
		hclwrite.TokensForTraversal(traversalFor("var.default_tags", "")),
		hclwrite.TokensForValue(cty.ObjectVal(map[string]cty.Value{
			"Name": cty.StringVal(c.node.ID),
		})),
	))

	deps := c.b.sameDeps[c.node.ID]
	if len(deps) == 0 {
		return
	}
	uniq := make(map[string]bool, len(deps))
	var addrs []string
	for _, d := range deps {
		if !uniq[d] {
			uniq[d] = true
			addrs = append(addrs, d)
		}
	}
	sort.Strings(addrs)
	tokens := make([]hclwrite.Tokens, len(addrs))
	for i, a := range addrs {
		tokens[i] = hclwrite.TokensForTraversal(traversalFor(a, ""))
	}
	body.SetAttributeRaw("depends_on", hclwrite.TokensForTuple(tokens))
}

// emitResource writes the resource block for one node. Unknown service
// ids fall back to a bare resource carrying only tags, so a stale
// catalog never breaks generation.
func emitResource(c *emitCtx, fileBody *hclwrite.Body) {
	block := fileBody.AppendNewBlock("resource", []string{c.def.TerraformType, c.name()})
	body := block.Body()

	switch c.def.ID {
	case "vpc":
		emitVPC(c, body)
	case "public_subnet", "private_subnet":
		emitSubnet(c, body)
	case "ec2":
		emitEC2(c, body)
	case "alb":
		emitALB(c, body)
	case "lambda":
		emitLambda(c, body)
	case "rds":
		emitRDS(c, body)
	case "s3":
		emitS3(c, body, fileBody)
	default:
		emitGeneric(c, body)
	}

	c.finish(body)
}

func emitVPC(c *emitCtx, body *hclwrite.Body) {
	setString(body, "cidr_block", c.text("cidr_block"))
	body.SetAttributeValue("enable_dns_support", cty.BoolVal(c.boolean("enable_dns_support")))
	body.SetAttributeValue("enable_dns_hostnames", cty.BoolVal(c.boolean("enable_dns_support")))
}

func emitSubnet(c *emitCtx, body *hclwrite.Body) {
	c.parentRef(body, "vpc_id")
	setString(body, "cidr_block", c.text("cidr_block"))
	setString(body, "availability_zone", c.text("availability_zone"))
	if c.def.SubnetRole == "public" {
		body.SetAttributeValue("map_public_ip_on_launch", cty.BoolVal(true))
	}
}

func emitEC2(c *emitCtx, body *hclwrite.Body) {
	setString(body, "ami", c.text("ami"))
	setString(body, "instance_type", c.text("instance_type"))
	body.SetAttributeValue("monitoring", cty.BoolVal(c.boolean("monitoring")))
	c.parentRef(body, "subnet_id")
}

func emitALB(c *emitCtx, body *hclwrite.Body) {
	body.SetAttributeValue("name", cty.StringVal(c.node.ID))
	body.SetAttributeValue("load_balancer_type", cty.StringVal("application"))
	body.SetAttributeValue("internal", cty.BoolVal(c.boolean("internal")))
	setNumber(body, "port", c.number("port"))
	c.parentRefList(body, "subnets")
}

func emitLambda(c *emitCtx, body *hclwrite.Body) {
	body.SetAttributeValue("function_name", cty.StringVal(c.node.ID))
	setString(body, "runtime", c.text("runtime"))
	setString(body, "handler", c.text("handler"))
	setNumber(body, "memory_size", c.number("memory_size"))
	setNumber(body, "timeout", c.number("timeout"))
	body.SetAttributeValue("filename", cty.StringVal(c.name()+".zip"))
	if c.node.ParentID != "" {
		if trav, ok := c.b.refNode(c.mod, c.node.ParentID, "id"); ok {
			vpcCfg := body.AppendNewBlock("vpc_config", nil)
			vpcCfg.Body().SetAttributeRaw("subnet_ids", hclwrite.TokensForTuple([]hclwrite.Tokens{
				hclwrite.TokensForTraversal(trav),
			}))
		}
	}
}

func emitRDS(c *emitCtx, body *hclwrite.Body) {
	body.SetAttributeValue("identifier", cty.StringVal(c.node.ID))
	setString(body, "engine", c.text("engine"))
	setString(body, "instance_class", c.text("instance_class"))
	setNumber(body, "allocated_storage", c.number("allocated_storage"))
	body.SetAttributeValue("multi_az", cty.BoolVal(c.boolean("multi_az")))
	body.SetAttributeValue("skip_final_snapshot", cty.BoolVal(true))
	c.dependOnParent()
}

func emitS3(c *emitCtx, body *hclwrite.Body, fileBody *hclwrite.Body) {
	bucket := c.text("bucket_name")
	if bucket == "" {
		bucket = c.node.ID
	}
	body.SetAttributeValue("bucket", cty.StringVal(bucket))
	body.SetAttributeValue("force_destroy", cty.BoolVal(c.boolean("force_destroy")))

	if c.boolean("versioning") {
		fileBody.AppendNewline()
		ver := fileBody.AppendNewBlock("resource", []string{"aws_s3_bucket_versioning", c.name() + "_versioning"})
		vb := ver.Body()
		vb.SetAttributeTraversal("bucket", traversalFor(c.b.addr[c.node.ID], "id"))
		cfg := vb.AppendNewBlock("versioning_configuration", nil)
		cfg.Body().SetAttributeValue("status", cty.StringVal("Enabled"))
	}
}

// emitGeneric renders every known property verbatim for service types
// without a dedicated emitter.
func emitGeneric(c *emitCtx, body *hclwrite.Body) {
	for _, spec := range c.def.Properties {
		v := nodeProp(c.def, c.node, spec.Name)
		switch spec.Kind {
		case catalog.PropertyNumber:
			setNumber(body, spec.Name, v.Number)
		case catalog.PropertyBoolean:
			body.SetAttributeValue(spec.Name, cty.BoolVal(v.Bool))
		default:
			setString(body, spec.Name, v.Text)
		}
	}
	c.dependOnParent()
}
