// Package graph builds the entity co-occurrence network served to the
// visualization layer.
package graph

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/yberrad/newsgraph/internal/export"
)

// RelationKind selects which entity-pair relation the builder expands.
type RelationKind int

const (
	OrgToPerson RelationKind = iota
	LocToOrg
	PersonToLoc
)

// ParseKinds parses a comma-separated list of relation codes (0, 1, 2).
func ParseKinds(raw string) ([]RelationKind, error) {
	parts := strings.Split(raw, ",")
	kinds := make([]RelationKind, 0, len(parts))
	for _, part := range parts {
		switch strings.TrimSpace(part) {
		case "0":
			kinds = append(kinds, OrgToPerson)
		case "1":
			kinds = append(kinds, LocToOrg)
		case "2":
			kinds = append(kinds, PersonToLoc)
		default:
			return nil, fmt.Errorf("unknown relation kind %q", part)
		}
	}
	return kinds, nil
}

// Node classes.
const (
	ClassOrganization = "organization"
	ClassPerson       = "person"
	ClassLocation     = "location"
)

// Node is one graph vertex; Link is only set for organizations.
type Node struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Label string `json:"label"`
	Class string `json:"classes"`
	Link  string `json:"link"`
}

// Edge connects two nodes; Weight counts how many cross-product instances
// produced this (source, target) pair.
type Edge struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Weight int    `json:"weight"`
}

// Element wraps a node or an edge the way the cytoscape layer expects.
type Element struct {
	Data any `json:"data"`
}

type nodeKey struct {
	id    string
	class string
}

type edgeKey struct {
	source string
	target string
}

// builder accumulates deduplicated nodes and weighted edges.
type builder struct {
	links map[string]string

	nodeOrder []nodeKey
	nodes     map[nodeKey]Node

	edgeOrder []edgeKey
	edges     map[edgeKey]int
}

// Build expands the requested relation kinds over every merged row published
// in [day, day+24h) and returns the deduplicated nodes followed by the
// weighted edges. Nodes are unique per (id, class), first occurrence kept.
// Edges are unique per (source, target); their weight counts every generated
// pair, not just the surviving one.
func Build(rows []export.MergedRow, links map[string]string, day time.Time, kinds []RelationKind) []Element {
	start := day
	end := day.Add(24 * time.Hour)

	b := &builder{
		links: links,
		nodes: make(map[nodeKey]Node),
		edges: make(map[edgeKey]int),
	}

	for _, kind := range kinds {
		for _, row := range rows {
			if row.Date.Before(start) || !row.Date.Before(end) {
				continue
			}
			b.expand(kind, row)
		}
	}

	elements := make([]Element, 0, len(b.nodeOrder)+len(b.edgeOrder))
	for _, key := range b.nodeOrder {
		elements = append(elements, Element{Data: b.nodes[key]})
	}
	for _, key := range b.edgeOrder {
		elements = append(elements, Element{Data: Edge{
			Source: key.source,
			Target: key.target,
			Weight: b.edges[key],
		}})
	}
	return elements
}

// BuildFromFiles reads the merged table and link table from dir and builds
// the graph.
func BuildFromFiles(dir string, day time.Time, kinds []RelationKind) ([]Element, error) {
	rows, err := export.ReadMerged(filepath.Join(dir, export.MergedFile))
	if err != nil {
		return nil, err
	}
	links, err := export.ReadLinks(filepath.Join(dir, export.LinksFile))
	if err != nil {
		return nil, err
	}
	return Build(rows, links, day, kinds), nil
}

// expand emits the cross product of the row's two entity lists for the kind.
func (b *builder) expand(kind RelationKind, row export.MergedRow) {
	switch kind {
	case OrgToPerson:
		for _, org := range row.Organizations {
			for _, per := range row.Persons {
				b.addNode(org, ClassOrganization)
				b.addNode(per, ClassPerson)
				b.addEdge(org, per)
			}
		}
	case LocToOrg:
		for _, org := range row.Organizations {
			for _, loc := range row.Locations {
				b.addNode(org, ClassOrganization)
				b.addNode(loc.Name, ClassLocation)
				b.addEdge(loc.Name, org)
			}
		}
	case PersonToLoc:
		for _, per := range row.Persons {
			for _, loc := range row.Locations {
				b.addNode(per, ClassPerson)
				b.addNode(loc.Name, ClassLocation)
				b.addEdge(per, loc.Name)
			}
		}
	}
}

func (b *builder) addNode(id, class string) {
	key := nodeKey{id: id, class: class}
	if _, ok := b.nodes[key]; ok {
		return
	}

	node := Node{ID: id, Name: id, Label: id, Class: class}
	if class == ClassOrganization {
		node.Link = b.links[id]
	}

	b.nodes[key] = node
	b.nodeOrder = append(b.nodeOrder, key)
}

func (b *builder) addEdge(source, target string) {
	key := edgeKey{source: source, target: target}
	if _, ok := b.edges[key]; !ok {
		b.edgeOrder = append(b.edgeOrder, key)
	}
	b.edges[key]++
}
