package generator

import (
	"bytes"
	"sort"
	"strconv"
	"strings"
	"text/template"

	"github.com/stackcanvas/engine/internal/catalog"
	"github.com/stackcanvas/engine/internal/design"
	appErr "github.com/stackcanvas/engine/pkg/errors"
)

// Language selects the source language of a generated Pulumi program.
type Language string

const (
	LangTypeScript Language = "typescript"
	LangPython     Language = "python"
)

// ParseLanguage normalizes a user-supplied language selector. The
// empty string defaults to TypeScript.
func ParseLanguage(s string) (Language, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "ts", "typescript":
		return LangTypeScript, nil
	case "py", "python":
		return LangPython, nil
	default:
		return "", appErr.Newf(appErr.CodeUnsupported, "unsupported pulumi language %q", s)
	}
}

// Ext returns the component file extension for the language.
func (l Language) Ext() string {
	if l == LangPython {
		return ".py"
	}
	return ".ts"
}

// Runtime returns the Pulumi.yaml runtime name.
func (l Language) Runtime() string {
	if l == LangPython {
		return "python"
	}
	return "nodejs"
}

// Pulumi renders a Pulumi program: a project manifest, an entrypoint
// instantiating every component, and one component file per node under
// components/. Both languages produce the same resource topology.
type Pulumi struct {
	Language    Language
	ProjectName string
}

// NewPulumi builds a Pulumi generator for the given language.
func NewPulumi(lang Language) *Pulumi {
	return &Pulumi{Language: lang, ProjectName: "stackcanvas-project"}
}

// Name implements Generator.
func (*Pulumi) Name() string { return "pulumi" }

// pKind tags one rendered constructor argument value.
type pKind int

const (
	pString pKind = iota
	pBool
	pNumber
	pRef
	pRefList
	pNameTags
	pVersioning
)

type pArg struct {
	ts, py string // argument name per language
	kind   pKind
	s      string
	b      bool
	n      float64
	ref    string
}

type component struct {
	nodeID  string
	varName string
	ctorTS  string
	ctorPy  string
	args    []pArg
	refs    []string // imported sibling components
	deps    []string // explicit dependencies from edges
}

// Generate implements Generator.
func (p *Pulumi) Generate(g design.Graph, cat *catalog.Catalog) (FileSet, error) {
	comps := buildComponents(g, cat)

	var fs FileSet
	fs = append(fs, File{Path: "Pulumi.yaml", Content: p.projectYAML()})
	switch p.Language {
	case LangPython:
		fs = append(fs, File{Path: "__main__.py", Content: renderEntryPy(comps)})
		fs = append(fs, File{Path: "requirements.txt", Content: []byte(requirementsTxt)})
		fs = append(fs, File{Path: "components/__init__.py", Content: []byte{}})
		for _, c := range comps {
			fs = append(fs, File{Path: "components/" + c.varName + ".py", Content: renderComponentPy(c)})
		}
	default:
		fs = append(fs, File{Path: "index.ts", Content: renderEntryTS(comps)})
		fs = append(fs, File{Path: "package.json", Content: p.packageJSON()})
		fs = append(fs, File{Path: "tsconfig.json", Content: []byte(tsconfigJSON)})
		for _, c := range comps {
			fs = append(fs, File{Path: "components/" + c.varName + ".ts", Content: renderComponentTS(c)})
		}
	}
	fs.Sort()
	return fs, nil
}

// pulumiCtor maps a service to its constructor in both languages.
func pulumiCtor(def catalog.ServiceDefinition) (ts, py string, ok bool) {
	switch def.ID {
	case "vpc":
		return "aws.ec2.Vpc", "aws.ec2.Vpc", true
	case "public_subnet", "private_subnet":
		return "aws.ec2.Subnet", "aws.ec2.Subnet", true
	case "ec2":
		return "aws.ec2.Instance", "aws.ec2.Instance", true
	case "alb":
		return "aws.lb.LoadBalancer", "aws.lb.LoadBalancer", true
	case "lambda":
		return "aws.lambda.Function", "aws.lambda_.Function", true
	case "rds":
		return "aws.rds.Instance", "aws.rds.Instance", true
	case "s3":
		return "aws.s3.Bucket", "aws.s3.Bucket", true
	default:
		return "", "", false
	}
}

func buildComponents(g design.Graph, cat *catalog.Catalog) []component {
	nodes := sortedNodes(g, cat)

	included := make(map[string]string, len(nodes)) // node id -> var name
	for _, n := range nodes {
		def, _ := cat.Get(n.ServiceID)
		if _, _, ok := pulumiCtor(def); ok {
			included[n.ID] = ResourceName(n.ID)
		}
	}

	deps := make(map[string][]string)
	for _, e := range sortedEdges(g) {
		src, okS := included[e.Source]
		dst, okT := included[e.Target]
		if okS && okT {
			deps[src] = append(deps[src], dst)
		}
	}

	var comps []component
	for _, n := range nodes {
		def, _ := cat.Get(n.ServiceID)
		ctorTS, ctorPy, ok := pulumiCtor(def)
		if !ok {
			continue
		}
		c := component{
			nodeID:  n.ID,
			varName: included[n.ID],
			ctorTS:  ctorTS,
			ctorPy:  ctorPy,
		}

		parentVar := ""
		if n.ParentID != "" {
			parentVar = included[n.ParentID]
		}

		switch def.ID {
		case "vpc":
			c.arg("cidrBlock", "cidr_block", strArg(propText(def, n, "cidr_block")))
			c.arg("enableDnsSupport", "enable_dns_support", boolArg(propBool(def, n, "enable_dns_support")))
			c.arg("enableDnsHostnames", "enable_dns_hostnames", boolArg(propBool(def, n, "enable_dns_support")))
		case "public_subnet", "private_subnet":
			if parentVar != "" {
				c.arg("vpcId", "vpc_id", refArg(parentVar+".id"))
				c.refs = append(c.refs, parentVar)
			}
			c.arg("cidrBlock", "cidr_block", strArg(propText(def, n, "cidr_block")))
			c.arg("availabilityZone", "availability_zone", strArg(propText(def, n, "availability_zone")))
			if def.SubnetRole == "public" {
				c.arg("mapPublicIpOnLaunch", "map_public_ip_on_launch", boolArg(true))
			}
		case "ec2":
			c.arg("ami", "ami", strArg(propText(def, n, "ami")))
			c.arg("instanceType", "instance_type", strArg(propText(def, n, "instance_type")))
			c.arg("monitoring", "monitoring", boolArg(propBool(def, n, "monitoring")))
			if parentVar != "" {
				c.arg("subnetId", "subnet_id", refArg(parentVar+".id"))
				c.refs = append(c.refs, parentVar)
			}
		case "alb":
			c.arg("loadBalancerType", "load_balancer_type", strArg("application"))
			c.arg("internal", "internal", boolArg(propBool(def, n, "internal")))
			if parentVar != "" {
				c.arg("subnets", "subnets", refListArg(parentVar+".id"))
				c.refs = append(c.refs, parentVar)
			}
		case "lambda":
			c.arg("name", "name", strArg(n.ID))
			c.arg("runtime", "runtime", strArg(propText(def, n, "runtime")))
			c.arg("handler", "handler", strArg(propText(def, n, "handler")))
			c.arg("memorySize", "memory_size", numArg(propNumber(def, n, "memory_size")))
			c.arg("timeout", "timeout", numArg(propNumber(def, n, "timeout")))
			if parentVar != "" {
				c.deps = append(c.deps, parentVar)
			}
		case "rds":
			c.arg("identifier", "identifier", strArg(n.ID))
			c.arg("engine", "engine", strArg(propText(def, n, "engine")))
			c.arg("instanceClass", "instance_class", strArg(propText(def, n, "instance_class")))
			c.arg("allocatedStorage", "allocated_storage", numArg(propNumber(def, n, "allocated_storage")))
			c.arg("multiAz", "multi_az", boolArg(propBool(def, n, "multi_az")))
			c.arg("skipFinalSnapshot", "skip_final_snapshot", boolArg(true))
			if parentVar != "" {
				c.deps = append(c.deps, parentVar)
			}
		case "s3":
			bucket := propText(def, n, "bucket_name")
			if bucket == "" {
				bucket = n.ID
			}
			c.arg("bucket", "bucket", strArg(bucket))
			c.arg("forceDestroy", "force_destroy", boolArg(propBool(def, n, "force_destroy")))
			if propBool(def, n, "versioning") {
				c.arg("versioning", "versioning", pArg{kind: pVersioning})
			}
		}
		c.arg("tags", "tags", pArg{kind: pNameTags})

		c.deps = append(c.deps, deps[c.varName]...)
		c.refs = dedupSorted(append(c.refs, c.deps...))
		c.deps = dedupSorted(c.deps)
		comps = append(comps, c)
	}
	return comps
}

func (c *component) arg(ts, py string, a pArg) {
	a.ts, a.py = ts, py
	c.args = append(c.args, a)
}

func strArg(s string) pArg       { return pArg{kind: pString, s: s} }
func boolArg(b bool) pArg        { return pArg{kind: pBool, b: b} }
func numArg(n float64) pArg      { return pArg{kind: pNumber, n: n} }
func refArg(ref string) pArg     { return pArg{kind: pRef, ref: ref} }
func refListArg(ref string) pArg { return pArg{kind: pRefList, ref: ref} }

func dedupSorted(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	sort.Strings(in)
	out := in[:1]
	for _, s := range in[1:] {
		if s != out[len(out)-1] {
			out = append(out, s)
		}
	}
	return out
}

func formatNumber(n float64) string {
	return strconv.FormatFloat(n, 'f', -1, 64)
}

// --- TypeScript rendering ---

func (a pArg) renderTS(nodeID string) string {
	switch a.kind {
	case pString:
		return a.ts + ": " + strconv.Quote(a.s)
	case pBool:
		return a.ts + ": " + strconv.FormatBool(a.b)
	case pNumber:
		return a.ts + ": " + formatNumber(a.n)
	case pRef:
		return a.ts + ": " + a.ref
	case pRefList:
		return a.ts + ": [" + a.ref + "]"
	case pNameTags:
		return "tags: { Name: " + strconv.Quote(nodeID) + " }"
	case pVersioning:
		return "versioning: { enabled: true }"
	}
	return ""
}

var componentTmplTS = template.Must(template.New("componentTS").Parse(
	`import * as aws from "@pulumi/aws";
{{- range .Imports }}
import { {{ . }} } from "./{{ . }}";
{{- end }}

export const {{ .VarName }} = new {{ .Ctor }}({{ .NodeID }}, {
{{- range .Args }}
    {{ . }},
{{- end }}
}{{ if .Deps }}, { dependsOn: [{{ .Deps }}] }{{ end }});
`))

func renderComponentTS(c component) []byte {
	args := make([]string, len(c.args))
	for i, a := range c.args {
		args[i] = a.renderTS(c.nodeID)
	}
	var buf bytes.Buffer
	_ = componentTmplTS.Execute(&buf, map[string]any{
		"Imports": c.refs,
		"VarName": c.varName,
		"Ctor":    c.ctorTS,
		"NodeID":  strconv.Quote(c.nodeID),
		"Args":    args,
		"Deps":    strings.Join(c.deps, ", "),
	})
	return buf.Bytes()
}

var entryTmplTS = template.Must(template.New("entryTS").Parse(
	`{{- range . }}
import { {{ .VarName }} } from "./components/{{ .VarName }}";
{{- end }}
{{ range . }}
export const {{ .VarName }}_id = {{ .VarName }}.id;
{{- end }}
`))

func renderEntryTS(comps []component) []byte {
	if len(comps) == 0 {
		return []byte("// Empty design: no resources to declare.\nexport {};\n")
	}
	type entry struct{ VarName string }
	entries := make([]entry, len(comps))
	for i, c := range comps {
		entries[i] = entry{VarName: c.varName}
	}
	var buf bytes.Buffer
	_ = entryTmplTS.Execute(&buf, entries)
	return bytes.TrimLeft(buf.Bytes(), "\n")
}

// --- Python rendering ---

func (a pArg) renderPy(nodeID string) string {
	switch a.kind {
	case pString:
		return a.py + "=" + strconv.Quote(a.s)
	case pBool:
		if a.b {
			return a.py + "=True"
		}
		return a.py + "=False"
	case pNumber:
		return a.py + "=" + formatNumber(a.n)
	case pRef:
		return a.py + "=" + a.ref
	case pRefList:
		return a.py + "=[" + a.ref + "]"
	case pNameTags:
		return `tags={"Name": ` + strconv.Quote(nodeID) + `}`
	case pVersioning:
		return `versioning={"enabled": True}`
	}
	return ""
}

var componentTmplPy = template.Must(template.New("componentPy").Parse(
	`import pulumi_aws as aws
{{- if .NeedsPulumi }}
import pulumi
{{- end }}
{{- range .Imports }}
from components.{{ . }} import {{ . }}
{{- end }}

{{ .VarName }} = {{ .Ctor }}(
    {{ .NodeID }},
{{- range .Args }}
    {{ . }},
{{- end }}
{{- if .Deps }}
    opts=pulumi.ResourceOptions(depends_on=[{{ .Deps }}]),
{{- end }}
)
`))

func renderComponentPy(c component) []byte {
	args := make([]string, len(c.args))
	for i, a := range c.args {
		args[i] = a.renderPy(c.nodeID)
	}
	var buf bytes.Buffer
	_ = componentTmplPy.Execute(&buf, map[string]any{
		"Imports":     c.refs,
		"NeedsPulumi": len(c.deps) > 0,
		"VarName":     c.varName,
		"Ctor":        c.ctorPy,
		"NodeID":      strconv.Quote(c.nodeID),
		"Args":        args,
		"Deps":        strings.Join(c.deps, ", "),
	})
	return buf.Bytes()
}

var entryTmplPy = template.Must(template.New("entryPy").Parse(
	`import pulumi
{{- range . }}
from components.{{ .VarName }} import {{ .VarName }}
{{- end }}

{{ range . }}pulumi.export("{{ .VarName }}_id", {{ .VarName }}.id)
{{ end }}`))

func renderEntryPy(comps []component) []byte {
	if len(comps) == 0 {
		return []byte("# Empty design: no resources to declare.\n")
	}
	type entry struct{ VarName string }
	entries := make([]entry, len(comps))
	for i, c := range comps {
		entries[i] = entry{VarName: c.varName}
	}
	var buf bytes.Buffer
	_ = entryTmplPy.Execute(&buf, entries)
	return buf.Bytes()
}

// --- project scaffolding ---

var projectTmpl = template.Must(template.New("pulumiYAML").Parse(
	`name: {{ .Name }}
runtime: {{ .Runtime }}
description: Infrastructure design exported from StackCanvas
`))

func (p *Pulumi) projectYAML() []byte {
	name := p.ProjectName
	if name == "" {
		name = "stackcanvas-project"
	}
	var buf bytes.Buffer
	_ = projectTmpl.Execute(&buf, map[string]string{
		"Name":    name,
		"Runtime": p.Language.Runtime(),
	})
	return buf.Bytes()
}

var packageTmpl = template.Must(template.New("packageJSON").Parse(
	`{
    "name": "{{ .Name }}",
    "main": "index.ts",
    "devDependencies": {
        "@types/node": "^18",
        "typescript": "^5.0.0"
    },
    "dependencies": {
        "@pulumi/aws": "^6.0.0",
        "@pulumi/pulumi": "^3.0.0"
    }
}
`))

func (p *Pulumi) packageJSON() []byte {
	name := p.ProjectName
	if name == "" {
		name = "stackcanvas-project"
	}
	var buf bytes.Buffer
	_ = packageTmpl.Execute(&buf, map[string]string{"Name": name})
	return buf.Bytes()
}

const tsconfigJSON = `{
    "compilerOptions": {
        "strict": true,
        "outDir": "bin",
        "target": "es2020",
        "module": "commonjs",
        "moduleResolution": "node",
        "sourceMap": true,
        "experimentalDecorators": true,
        "pretty": true,
        "noFallthroughCasesInSwitch": true,
        "noImplicitReturns": true,
        "forceConsistentCasingInFileNames": true
    },
    "files": ["index.ts"]
}
`

const requirementsTxt = `pulumi>=3.0.0,<4.0.0
pulumi-aws>=6.0.0,<7.0.0
`
