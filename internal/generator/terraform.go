package generator

import (
	"math"
	"sort"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclwrite"
	"github.com/zclconf/go-cty/cty"

	"github.com/stackcanvas/engine/internal/catalog"
	"github.com/stackcanvas/engine/internal/design"
)

// Terraform renders a modular Terraform project: a root configuration
// that instantiates one child module per populated service category
// (network, compute, database, storage) and wires identifiers between
// them through module variables and outputs.
type Terraform struct{}

// NewTerraform builds the Terraform generator.
func NewTerraform() *Terraform { return &Terraform{} }

// Name implements Generator.
func (*Terraform) Name() string { return "terraform" }

// tfModule accumulates one child module while resources are emitted.
type tfModule struct {
	name    string
	file    *hclwrite.File
	count   int
	vars    map[string]bool   // cross-module inputs
	outputs map[string]string // output name -> source address incl. attribute
	wires   map[string]string // variable name -> root-side module reference
	deps    map[string]bool   // module-level dependencies from plain edges
}

type tfBuild struct {
	graph    *design.Graph
	cat      *catalog.Catalog
	modules  map[string]*tfModule
	addr     map[string]string // node id -> type.name address
	moduleOf map[string]string // node id -> module name
	sameDeps map[string][]string
}

// Generate implements Generator.
func (t *Terraform) Generate(g design.Graph, cat *catalog.Catalog) (FileSet, error) {
	nodes := sortedNodes(g, cat)
	edges := sortedEdges(g)

	b := &tfBuild{
		graph:    &g,
		cat:      cat,
		modules:  make(map[string]*tfModule),
		addr:     make(map[string]string),
		moduleOf: make(map[string]string),
		sameDeps: make(map[string][]string),
	}

	for _, n := range nodes {
		def, _ := cat.Get(n.ServiceID)
		b.addr[n.ID] = def.TerraformType + "." + ResourceName(n.ID)
		b.moduleOf[n.ID] = def.Category
	}

	// Plain edges become dependency wiring: resource-level depends_on
	// inside a module, module-level depends_on across modules.
	for _, e := range edges {
		srcMod, dstMod := b.moduleOf[e.Source], b.moduleOf[e.Target]
		if srcMod == dstMod {
			b.sameDeps[e.Source] = append(b.sameDeps[e.Source], b.addr[e.Target])
			continue
		}
		b.module(srcMod).deps[dstMod] = true
	}

	for _, n := range nodes {
		def, _ := cat.Get(n.ServiceID)
		mod := b.module(def.Category)
		ctx := &emitCtx{b: b, mod: mod, node: n, def: def}
		if mod.count > 0 {
			mod.file.Body().AppendNewline()
		}
		emitResource(ctx, mod.file.Body())
		mod.count++
	}

	var fs FileSet
	fs = append(fs, File{Path: "versions.tf", Content: versionsTF()})
	fs = append(fs, File{Path: "variables.tf", Content: rootVariablesTF()})
	fs = append(fs, File{Path: "main.tf", Content: b.rootMainTF()})
	if out := b.rootOutputsTF(); len(out) > 0 {
		fs = append(fs, File{Path: "outputs.tf", Content: out})
	}
	for _, name := range b.moduleNames() {
		mod := b.modules[name]
		fs = append(fs, File{Path: "modules/" + name + "/main.tf", Content: mod.file.Bytes()})
		if vars := mod.variablesTF(); len(vars) > 0 {
			fs = append(fs, File{Path: "modules/" + name + "/variables.tf", Content: vars})
		}
		if outs := mod.outputsTF(); len(outs) > 0 {
			fs = append(fs, File{Path: "modules/" + name + "/outputs.tf", Content: outs})
		}
	}
	fs.Sort()
	return fs, nil
}

func (b *tfBuild) module(name string) *tfModule {
	if m, ok := b.modules[name]; ok {
		return m
	}
	m := &tfModule{
		name:    name,
		file:    hclwrite.NewEmptyFile(),
		vars:    make(map[string]bool),
		outputs: make(map[string]string),
		wires:   make(map[string]string),
		deps:    make(map[string]bool),
	}
	b.modules[name] = m
	return m
}

func (b *tfBuild) moduleNames() []string {
	names := make([]string, 0, len(b.modules))
	for name := range b.modules {
		names = append(names, name)
	}
	sortCanonical(names)
	return names
}

// refNode returns a traversal addressing another node's attribute. A
// reference within the same module resolves directly; across modules
// it goes through a module variable backed by an output on the other
// side, with the root wiring the two together.
func (b *tfBuild) refNode(from *tfModule, targetID, attr string) (hcl.Traversal, bool) {
	addr, ok := b.addr[targetID]
	if !ok {
		return nil, false
	}
	targetModule := b.moduleOf[targetID]
	if targetModule == from.name {
		return traversalFor(addr, attr), true
	}
	varName := ResourceName(targetID) + "_" + attr
	from.vars[varName] = true
	from.wires[varName] = targetModule
	b.module(targetModule).outputs[varName] = addr + "." + attr
	return hcl.Traversal{
		hcl.TraverseRoot{Name: "var"},
		hcl.TraverseAttr{Name: varName},
	}, true
}

func (b *tfBuild) rootMainTF() []byte {
	f := hclwrite.NewEmptyFile()
	body := f.Body()

	names := b.moduleNames()
	ordered, acyclic := resolveModuleOrder(names, b.moduleDeps())
	for i, name := range ordered {
		mod := b.modules[name]
		if i > 0 {
			body.AppendNewline()
		}
		block := body.AppendNewBlock("module", []string{name})
		mb := block.Body()
		mb.SetAttributeValue("source", cty.StringVal("./modules/"+name))

		wireNames := make([]string, 0, len(mod.wires))
		for v := range mod.wires {
			wireNames = append(wireNames, v)
		}
		sort.Strings(wireNames)
		for _, v := range wireNames {
			mb.SetAttributeTraversal(v, hcl.Traversal{
				hcl.TraverseRoot{Name: "module"},
				hcl.TraverseAttr{Name: mod.wires[v]},
				hcl.TraverseAttr{Name: v},
			})
		}

		if acyclic && len(mod.deps) > 0 {
			depNames := make([]string, 0, len(mod.deps))
			for d := range mod.deps {
				depNames = append(depNames, d)
			}
			sortCanonical(depNames)
			tokens := make([]hclwrite.Tokens, len(depNames))
			for i, d := range depNames {
				tokens[i] = hclwrite.TokensForTraversal(hcl.Traversal{
					hcl.TraverseRoot{Name: "module"},
					hcl.TraverseAttr{Name: d},
				})
			}
			mb.SetAttributeRaw("depends_on", hclwrite.TokensForTuple(tokens))
		}
	}
	return f.Bytes()
}

func (b *tfBuild) moduleDeps() map[string]map[string]bool {
	deps := make(map[string]map[string]bool, len(b.modules))
	for name, mod := range b.modules {
		set := make(map[string]bool)
		for d := range mod.deps {
			set[d] = true
		}
		// Variable wiring is a dependency too.
		for _, src := range mod.wires {
			set[src] = true
		}
		deps[name] = set
	}
	return deps
}

func (b *tfBuild) rootOutputsTF() []byte {
	f := hclwrite.NewEmptyFile()
	body := f.Body()
	wrote := false
	for _, name := range b.moduleNames() {
		mod := b.modules[name]
		outNames := make([]string, 0, len(mod.outputs))
		for o := range mod.outputs {
			outNames = append(outNames, o)
		}
		sort.Strings(outNames)
		for _, o := range outNames {
			if wrote {
				body.AppendNewline()
			}
			block := body.AppendNewBlock("output", []string{o})
			block.Body().SetAttributeTraversal("value", hcl.Traversal{
				hcl.TraverseRoot{Name: "module"},
				hcl.TraverseAttr{Name: name},
				hcl.TraverseAttr{Name: o},
			})
			wrote = true
		}
	}
	if !wrote {
		return nil
	}
	return f.Bytes()
}

func (m *tfModule) variablesTF() []byte {
	if len(m.vars) == 0 {
		return nil
	}
	names := make([]string, 0, len(m.vars))
	for v := range m.vars {
		names = append(names, v)
	}
	sort.Strings(names)

	f := hclwrite.NewEmptyFile()
	body := f.Body()
	for i, v := range names {
		if i > 0 {
			body.AppendNewline()
		}
		block := body.AppendNewBlock("variable", []string{v})
		block.Body().SetAttributeValue("type", cty.StringVal("string"))
	}
	return f.Bytes()
}

func (m *tfModule) outputsTF() []byte {
	if len(m.outputs) == 0 {
		return nil
	}
	names := make([]string, 0, len(m.outputs))
	for o := range m.outputs {
		names = append(names, o)
	}
	sort.Strings(names)

	f := hclwrite.NewEmptyFile()
	body := f.Body()
	for i, o := range names {
		if i > 0 {
			body.AppendNewline()
		}
		block := body.AppendNewBlock("output", []string{o})
		block.Body().SetAttributeTraversal("value", traversalFor(m.outputs[o], ""))
	}
	return f.Bytes()
}

func versionsTF() []byte {
	f := hclwrite.NewEmptyFile()
	body := f.Body()

	tf := body.AppendNewBlock("terraform", nil)
	tf.Body().SetAttributeValue("required_version", cty.StringVal(">= 1.0"))
	prov := tf.Body().AppendNewBlock("required_providers", nil)
	prov.Body().SetAttributeValue("aws", cty.ObjectVal(map[string]cty.Value{
		"source":  cty.StringVal("hashicorp/aws"),
		"version": cty.StringVal("~> 5.0"),
	}))

	body.AppendNewline()
	provider := body.AppendNewBlock("provider", []string{"aws"})
	provider.Body().SetAttributeTraversal("region", hcl.Traversal{
		hcl.TraverseRoot{Name: "var"},
		hcl.TraverseAttr{Name: "aws_region"},
	})
	return f.Bytes()
}

func rootVariablesTF() []byte {
	f := hclwrite.NewEmptyFile()
	body := f.Body()

	region := body.AppendNewBlock("variable", []string{"aws_region"})
	region.Body().SetAttributeValue("description", cty.StringVal("AWS region"))
	region.Body().SetAttributeValue("type", cty.StringVal("string"))
	region.Body().SetAttributeValue("default", cty.StringVal("us-east-1"))

	body.AppendNewline()
	tags := body.AppendNewBlock("variable", []string{"default_tags"})
	tags.Body().SetAttributeValue("description", cty.StringVal("Tags applied to every resource"))
	tags.Body().SetAttributeValue("type", cty.StringVal("map(string)"))
	tags.Body().SetAttributeValue("default", cty.MapVal(map[string]cty.Value{
		"ManagedBy": cty.StringVal("stackcanvas"),
	}))
	return f.Bytes()
}

// traversalFor splits a dotted resource address into a traversal,
// optionally appending one more attribute step.
func traversalFor(addr, attr string) hcl.Traversal {
	var t hcl.Traversal
	start := 0
	push := func(part string) {
		if part == "" {
			return
		}
		if len(t) == 0 {
			t = append(t, hcl.TraverseRoot{Name: part})
		} else {
			t = append(t, hcl.TraverseAttr{Name: part})
		}
	}
	for i := 0; i < len(addr); i++ {
		if addr[i] == '.' {
			push(addr[start:i])
			start = i + 1
		}
	}
	push(addr[start:])
	if attr != "" {
		t = append(t, hcl.TraverseAttr{Name: attr})
	}
	return t
}

func setNumber(body *hclwrite.Body, name string, v float64) {
	if v == math.Trunc(v) {
		body.SetAttributeValue(name, cty.NumberIntVal(int64(v)))
		return
	}
	body.SetAttributeValue(name, cty.NumberFloatVal(v))
}

func setString(body *hclwrite.Body, name, v string) {
	if v != "" {
		body.SetAttributeValue(name, cty.StringVal(v))
	}
}
