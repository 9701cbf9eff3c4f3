package xsd

import (
	"context"
	"strconv"
	"strings"

	"github.com/beevik/etree"
	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

// DefaultMaxDepth bounds the expansion of self referencing definitions.
const DefaultMaxDepth = 25

type Option func(*compiler)

// WithMaxDepth overrides DefaultMaxDepth.
func WithMaxDepth(depth int) Option {
	return func(c *compiler) {
		c.maxDepth = depth
	}
}

// WithRoot selects the top level element used as the tree root. By default
// the first top level element is used.
func WithRoot(name string) Option {
	return func(c *compiler) {
		c.rootName = name
	}
}

type occurs struct {
	min int
	max int
}

var once = occurs{min: 1, max: 1}

func (o occurs) times(p occurs) occurs {
	r := occurs{min: o.min * p.min, max: Unbounded}
	if o.max != Unbounded && p.max != Unbounded {
		r.max = o.max * p.max
	}
	return r
}

type compiler struct {
	ctx      context.Context
	maxDepth int
	rootName string

	complexTypes    map[string]*etree.Element
	simpleTypes     map[string]*etree.Element
	groups          map[string]*etree.Element
	attributeGroups map[string]*etree.Element
	elements        map[string]*etree.Element

	// named definitions currently being applied, guards group and base type cycles
	active map[string]bool

	truncated []string
}

// Compile builds a Tree from an XSD document. Definitions nested deeper than
// the depth guard are truncated, which is not an error; see Tree.Truncated.
func Compile(ctx context.Context, src []byte, opts ...Option) (*Tree, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(src); err != nil {
		return nil, errors.Errorf("reading schema: %w", err)
	}

	schema := doc.Root()
	if schema == nil || schema.Tag != "schema" {
		return nil, errors.New("schema document has no schema element")
	}

	c := &compiler{
		ctx:             ctx,
		maxDepth:        DefaultMaxDepth,
		complexTypes:    map[string]*etree.Element{},
		simpleTypes:     map[string]*etree.Element{},
		groups:          map[string]*etree.Element{},
		attributeGroups: map[string]*etree.Element{},
		elements:        map[string]*etree.Element{},
		active:          map[string]bool{},
	}
	for _, opt := range opts {
		opt(c)
	}

	rootDecl := c.register(schema)
	if rootDecl == nil {
		return nil, errors.Errorf("schema declares no top level element named %q", c.rootName)
	}

	root := c.buildNode(rootDecl, nil, once, 0)
	tree := newTree(root)
	tree.truncated = c.truncated

	zerolog.Ctx(ctx).Debug().
		Str("root", root.Name).
		Int("complex_types", len(c.complexTypes)).
		Int("simple_types", len(c.simpleTypes)).
		Int("groups", len(c.groups)+len(c.attributeGroups)).
		Int("truncated", len(c.truncated)).
		Msg("compiled schema tree")

	return tree, nil
}

// register records every named top level definition so that references can
// point forward. It returns the root element declaration.
func (c *compiler) register(schema *etree.Element) *etree.Element {
	var root *etree.Element
	for _, el := range schema.ChildElements() {
		name := el.SelectAttrValue("name", "")
		if name == "" {
			continue
		}
		switch el.Tag {
		case "complexType":
			c.complexTypes[name] = el
		case "simpleType":
			c.simpleTypes[name] = el
		case "group":
			c.groups[name] = el
		case "attributeGroup":
			c.attributeGroups[name] = el
		case "element":
			c.elements[name] = el
			if root == nil && (c.rootName == "" || c.rootName == name) {
				root = el
			}
		}
	}
	return root
}

func (c *compiler) buildNode(decl *etree.Element, parent *Node, occ occurs, depth int) *Node {
	if ref := decl.SelectAttrValue("ref", ""); ref != "" {
		if target, ok := c.elements[localName(ref)]; ok {
			occ = occ.times(readOccurs(decl))
			decl = target
		}
	} else {
		occ = occ.times(readOccurs(decl))
	}

	node := newNode(decl.SelectAttrValue("name", ""), parent)
	node.MinOccurs = occ.min
	node.MaxOccurs = occ.max
	node.Doc = documentation(decl)

	typeName := localName(decl.SelectAttrValue("type", ""))
	node.TypeName = typeName

	if depth > c.maxDepth {
		c.truncate(node)
		return node
	}

	// group and base type cycles are tracked per element
	saved := c.active
	c.active = map[string]bool{}
	defer func() { c.active = saved }()

	if ct, ok := c.complexTypes[typeName]; ok {
		if node.Doc == "" {
			node.Doc = documentation(ct)
		}
		c.applyComplexType(node, ct, depth+1)
	}

	for _, child := range decl.ChildElements() {
		if child.Tag == "complexType" {
			c.applyComplexType(node, child, depth+1)
		}
	}

	return node
}

func (c *compiler) applyComplexType(node *Node, ct *etree.Element, depth int) {
	for _, child := range ct.ChildElements() {
		switch child.Tag {
		case "sequence", "choice", "all":
			c.applyParticle(node, child, once, depth+1)
		case "group":
			c.applyGroup(node, child, once, depth+1)
		case "attribute":
			c.addAttribute(node, child)
		case "attributeGroup":
			c.applyAttributeGroup(node, localName(child.SelectAttrValue("ref", "")))
		case "simpleContent", "complexContent":
			c.applyContent(node, child, depth)
		}
	}
}

func (c *compiler) applyContent(node *Node, content *etree.Element, depth int) {
	for _, derivation := range content.ChildElements() {
		if derivation.Tag != "extension" && derivation.Tag != "restriction" {
			continue
		}
		base := localName(derivation.SelectAttrValue("base", ""))
		if baseType, ok := c.complexTypes[base]; ok && derivation.Tag == "extension" {
			key := "type:" + base
			if !c.active[key] {
				c.active[key] = true
				if node.Doc == "" {
					node.Doc = documentation(baseType)
				}
				c.applyComplexType(node, baseType, depth)
				delete(c.active, key)
			}
		}
		c.applyComplexType(node, derivation, depth)
	}
}

func (c *compiler) applyParticle(node *Node, particle *etree.Element, outer occurs, depth int) {
	occ := outer.times(readOccurs(particle))
	if particle.Tag == "choice" && len(particle.ChildElements()) > 1 {
		occ.min = 0
	}

	for _, child := range particle.ChildElements() {
		switch child.Tag {
		case "element":
			if depth > c.maxDepth {
				c.truncate(node)
				return
			}
			childNode := c.buildNode(child, node, occ, depth+1)
			if childNode.Name != "" {
				node.addChild(childNode)
			}
		case "sequence", "choice", "all":
			c.applyParticle(node, child, occ, depth+1)
		case "group":
			c.applyGroup(node, child, occ, depth+1)
		}
	}
}

func (c *compiler) applyGroup(node *Node, ref *etree.Element, outer occurs, depth int) {
	name := localName(ref.SelectAttrValue("ref", ""))
	group, ok := c.groups[name]
	if !ok {
		return
	}
	key := "group:" + name
	if c.active[key] {
		return
	}
	c.active[key] = true
	defer delete(c.active, key)

	occ := outer.times(readOccurs(ref))
	for _, child := range group.ChildElements() {
		switch child.Tag {
		case "sequence", "choice", "all":
			c.applyParticle(node, child, occ, depth+1)
		}
	}
}

func (c *compiler) applyAttributeGroup(node *Node, name string) {
	group, ok := c.attributeGroups[name]
	if !ok {
		return
	}
	key := "attributeGroup:" + name
	if c.active[key] {
		return
	}
	c.active[key] = true
	defer delete(c.active, key)

	for _, child := range group.ChildElements() {
		switch child.Tag {
		case "attribute":
			c.addAttribute(node, child)
		case "attributeGroup":
			c.applyAttributeGroup(node, localName(child.SelectAttrValue("ref", "")))
		}
	}
}

func (c *compiler) addAttribute(node *Node, decl *etree.Element) {
	name := decl.SelectAttrValue("name", "")
	if name == "" {
		return
	}
	typeName := localName(decl.SelectAttrValue("type", ""))
	attr := &Attribute{
		Name:     name,
		TypeName: typeName,
		Required: decl.SelectAttrValue("use", "") == "required",
		Doc:      documentation(decl),
	}

	if st, ok := c.simpleTypes[typeName]; ok {
		attr.Enumeration = enumeration(st)
		if attr.Doc == "" {
			attr.Doc = documentation(st)
		}
	}
	for _, child := range decl.ChildElements() {
		if child.Tag == "simpleType" {
			attr.Enumeration = append(attr.Enumeration, enumeration(child)...)
		}
	}

	node.addAttribute(attr)
}

func (c *compiler) truncate(node *Node) {
	path := strings.Join(node.Path(), "/")
	c.truncated = append(c.truncated, path)
	zerolog.Ctx(c.ctx).Debug().Str("path", path).Int("max_depth", c.maxDepth).Msg("schema recursion depth reached, truncating")
}

func readOccurs(el *etree.Element) occurs {
	o := once
	if v := el.SelectAttrValue("minOccurs", ""); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			o.min = n
		}
	}
	if v := el.SelectAttrValue("maxOccurs", ""); v != "" {
		if v == "unbounded" {
			o.max = Unbounded
		} else if n, err := strconv.Atoi(v); err == nil {
			o.max = n
		}
	}
	return o
}

// enumeration collects every enumeration facet below a simple type, in
// document order. Unions of restrictions are flattened.
func enumeration(st *etree.Element) []string {
	var values []string
	var walk func(el *etree.Element)
	walk = func(el *etree.Element) {
		for _, child := range el.ChildElements() {
			if child.Tag == "enumeration" {
				values = append(values, child.SelectAttrValue("value", ""))
				continue
			}
			walk(child)
		}
	}
	walk(st)
	return values
}

// documentation returns the english annotation of a declaration. Untagged
// documentation is used when no english text exists.
func documentation(el *etree.Element) string {
	var fallback string
	for _, ann := range el.ChildElements() {
		if ann.Tag != "annotation" {
			continue
		}
		for _, doc := range ann.ChildElements() {
			if doc.Tag != "documentation" {
				continue
			}
			text := strings.TrimSpace(charData(doc))
			if text == "" {
				continue
			}
			lang := ""
			for _, a := range doc.Attr {
				if a.Space == "xml" && a.Key == "lang" {
					lang = a.Value
				}
			}
			if lang == "en" {
				return text
			}
			if lang == "" && fallback == "" {
				fallback = text
			}
		}
	}
	return fallback
}

func charData(el *etree.Element) string {
	var sb strings.Builder
	for _, tok := range el.Child {
		if cd, ok := tok.(*etree.CharData); ok {
			sb.WriteString(cd.Data)
		}
	}
	return sb.String()
}

func localName(qname string) string {
	if i := strings.LastIndexByte(qname, ':'); i >= 0 {
		return qname[i+1:]
	}
	return qname
}
