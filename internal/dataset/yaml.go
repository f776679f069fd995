package dataset

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Definition file format:
//
//	datasets:
//	  AuthorData:
//	    storable: authors          # optional explicit target name
//	    depends: [PublisherData]   # optional; references imply dependencies
//	    rows:
//	      frank:
//	        first_name: Frank
//	  BookData:
//	    rows:
//	      dune:
//	        title: Dune
//	        author_id: {$ref: AuthorData.frank.id}
//
// Parsing works on yaml.Node directly rather than map types so that row
// and column declaration order is preserved - Go maps would scramble it
// and load order is a correctness requirement.

// Load reads and parses a YAML definition file.
// Datasets referenced via $ref become implicit dependencies; the resulting
// graph is validated for cycles before being returned.
func Load(path string) ([]*Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read definition file: %w", err)
	}
	datasets, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return datasets, nil
}

// Parse parses YAML definition bytes into datasets, in file order.
func Parse(data []byte) ([]*Dataset, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, fmt.Errorf("empty definition document")
	}

	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, nodeErr(root, "top level must be a mapping")
	}

	var dsNode *yaml.Node
	for i := 0; i < len(root.Content); i += 2 {
		key := root.Content[i]
		switch key.Value {
		case "datasets":
			dsNode = root.Content[i+1]
		default:
			// Reject unknown fields (catches typos like "dataset:")
			return nil, nodeErr(key, "unknown field %q", key.Value)
		}
	}
	if dsNode == nil {
		return nil, fmt.Errorf("datasets mapping is required")
	}
	if dsNode.Kind != yaml.MappingNode {
		return nil, nodeErr(dsNode, "datasets must be a mapping")
	}

	p := &parser{byName: make(map[string]*Dataset)}
	for i := 0; i < len(dsNode.Content); i += 2 {
		if err := p.parseDataset(dsNode.Content[i], dsNode.Content[i+1]); err != nil {
			return nil, err
		}
	}

	if err := p.linkDependencies(); err != nil {
		return nil, err
	}
	if err := ValidateGraph(p.order...); err != nil {
		return nil, err
	}
	return p.order, nil
}

type parser struct {
	order  []*Dataset
	byName map[string]*Dataset

	// pending dependency names per dataset, declared + ref-implied,
	// resolved once every dataset has been parsed
	pending map[*Dataset][]string
}

func (p *parser) parseDataset(key, node *yaml.Node) error {
	name := key.Value
	if name == "" {
		return nodeErr(key, "dataset name is required")
	}
	if _, dup := p.byName[name]; dup {
		return nodeErr(key, "duplicate dataset %q", name)
	}
	if node.Kind != yaml.MappingNode {
		return nodeErr(node, "dataset %s must be a mapping", name)
	}

	ds := New(name)
	var depNames []string
	var rowsNode *yaml.Node

	for i := 0; i < len(node.Content); i += 2 {
		k, v := node.Content[i], node.Content[i+1]
		switch k.Value {
		case "storable":
			ds.SetStorableName(v.Value)
		case "depends":
			if v.Kind != yaml.SequenceNode {
				return nodeErr(v, "dataset %s: depends must be a list", name)
			}
			for _, dep := range v.Content {
				depNames = append(depNames, dep.Value)
			}
		case "rows":
			rowsNode = v
		default:
			return nodeErr(k, "dataset %s: unknown field %q", name, k.Value)
		}
	}

	if rowsNode == nil {
		return nodeErr(node, "dataset %s: rows mapping is required", name)
	}
	if rowsNode.Kind != yaml.MappingNode {
		return nodeErr(rowsNode, "dataset %s: rows must be a mapping", name)
	}

	for i := 0; i < len(rowsNode.Content); i += 2 {
		rk, rv := rowsNode.Content[i], rowsNode.Content[i+1]
		row, refs, err := parseRow(name, rk.Value, rv)
		if err != nil {
			return err
		}
		ds.AddRow(rk.Value, row)
		for _, ref := range refs {
			if ref.Dataset != name {
				depNames = append(depNames, ref.Dataset)
			}
		}
	}

	p.order = append(p.order, ds)
	p.byName[name] = ds
	if p.pending == nil {
		p.pending = make(map[*Dataset][]string)
	}
	p.pending[ds] = depNames
	return nil
}

// linkDependencies resolves dependency names to instances once every
// dataset in the file is known, so declaration order in the file does not
// constrain reference direction.
func (p *parser) linkDependencies() error {
	for _, ds := range p.order {
		for _, name := range p.pending[ds] {
			dep, ok := p.byName[name]
			if !ok {
				return fmt.Errorf("dataset %s depends on unknown dataset %q", ds.Name(), name)
			}
			ds.DependsOn(dep)
		}
	}
	return nil
}

func parseRow(ds, key string, node *yaml.Node) (*Row, []Ref, error) {
	if node.Kind != yaml.MappingNode {
		return nil, nil, nodeErr(node, "dataset %s: row %s must be a mapping", ds, key)
	}

	cols := make([]Column, 0, len(node.Content)/2)
	for i := 0; i < len(node.Content); i += 2 {
		ck, cv := node.Content[i], node.Content[i+1]
		val, err := parseValue(ds, key, ck.Value, cv)
		if err != nil {
			return nil, nil, err
		}
		cols = append(cols, Col(ck.Value, val))
	}

	row := NewRow(cols...)
	return row, row.Refs(), nil
}

// parseValue decodes a column value: either a scalar literal or a
// single-key {$ref: Dataset.key.column} mapping.
func parseValue(ds, key, col string, node *yaml.Node) (Value, error) {
	switch node.Kind {
	case yaml.ScalarNode:
		var v any
		if err := node.Decode(&v); err != nil {
			return nil, nodeErr(node, "dataset %s: row %s: column %s: %v", ds, key, col, err)
		}
		return Lit(v), nil

	case yaml.MappingNode:
		if len(node.Content) != 2 || node.Content[0].Value != "$ref" {
			return nil, nodeErr(node, "dataset %s: row %s: column %s: mappings must be a single $ref", ds, key, col)
		}
		return parseRef(ds, key, col, node.Content[1])

	default:
		return nil, nodeErr(node, "dataset %s: row %s: column %s: unsupported value kind", ds, key, col)
	}
}

func parseRef(ds, key, col string, node *yaml.Node) (Value, error) {
	parts := strings.SplitN(node.Value, ".", 3)
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return nil, nodeErr(node, "dataset %s: row %s: column %s: $ref must be dataset.key.column, got %q",
			ds, key, col, node.Value)
	}
	return RefTo(parts[0], parts[1], parts[2]), nil
}

func nodeErr(n *yaml.Node, format string, args ...any) error {
	return fmt.Errorf("line %d: %s", n.Line, fmt.Sprintf(format, args...))
}
