package models

import (
	"context"

	"github.com/bakeledger/prodcost_backend/config"
	"gorm.io/gorm"
)

// ComponentGraph is a read-only snapshot of the recipe hierarchy, indexed by
// integer ids instead of embedded references so traversal and cycle checks
// are explicit graph walks. One snapshot is loaded per cost computation or
// posting; prices inside it never change mid-pass.
type ComponentGraph struct {
	nodes     map[int]*Node
	materials map[int]*Material
}

func LoadComponentGraph(ctx context.Context) (*ComponentGraph, error) {
	return loadComponentGraphTx(config.GetDB().WithContext(ctx))
}

func loadComponentGraphTx(tx *gorm.DB) (*ComponentGraph, error) {
	var nodes []Node
	err := tx.
		Preload("Components", func(db *gorm.DB) *gorm.DB { return db.Order("position") }).
		Find(&nodes).Error
	if err != nil {
		return nil, err
	}

	var materials []Material
	err = tx.
		Preload("Offers").Preload("Offers.Supplier").
		Find(&materials).Error
	if err != nil {
		return nil, err
	}

	graph := &ComponentGraph{
		nodes:     make(map[int]*Node, len(nodes)),
		materials: make(map[int]*Material, len(materials)),
	}
	for i := range nodes {
		graph.nodes[nodes[i].ID] = &nodes[i]
	}
	for i := range materials {
		graph.materials[materials[i].ID] = &materials[i]
	}
	return graph, nil
}

func (g *ComponentGraph) Node(id int) *Node {
	return g.nodes[id]
}

func (g *ComponentGraph) Material(id int) *Material {
	return g.materials[id]
}

// ValidateAcyclic checks that no nested-node path leads from nodeId back to
// any node already on the path. Returns a CircularReferenceError naming the
// cycle. Must pass before any cost computation on the graph is trusted.
func (g *ComponentGraph) ValidateAcyclic(nodeId int) error {
	visiting := make(map[int]bool)
	done := make(map[int]bool)
	var path []int

	var visit func(id int) error
	visit = func(id int) error {
		if done[id] {
			return nil
		}
		if visiting[id] {
			return &CircularReferenceError{Path: cyclePath(path, id)}
		}
		node := g.nodes[id]
		if node == nil {
			return nil
		}
		visiting[id] = true
		path = append(path, id)
		for _, comp := range node.Components {
			if comp.Kind != ComponentKindNested || comp.NodeRefId == nil {
				continue
			}
			if err := visit(*comp.NodeRefId); err != nil {
				return err
			}
		}
		path = path[:len(path)-1]
		visiting[id] = false
		done[id] = true
		return nil
	}

	return visit(nodeId)
}

// cyclePath trims the DFS path to the cycle itself and closes it.
func cyclePath(path []int, repeated int) []int {
	start := 0
	for i, id := range path {
		if id == repeated {
			start = i
			break
		}
	}
	cycle := make([]int, 0, len(path)-start+1)
	cycle = append(cycle, path[start:]...)
	cycle = append(cycle, repeated)
	return cycle
}
