package graph

import (
	"fmt"
	"slices"

	"github.com/tidwall/btree"
)

// RemoveRoad deletes a single road. Its queue is drained and the released
// occupants stay with the caller, which owns the vehicles.
func (n *Network) RemoveRoad(id RoadID) (*Road, error) {
	slot, ok := n.roadSlots.Get(id)
	if !ok {
		return nil, fmt.Errorf("road %d: %w", id, ErrUnknownRoad)
	}
	r := n.roads[slot]
	n.roads = slices.Delete(n.roads, slot, slot+1)
	r.retire()
	n.reindexRoads()
	n.version++
	return r, nil
}

// RemoveIntersection deletes a vertex together with every road touching it
// and returns the removed roads. Remaining roads keep resolving: indices past
// the deleted slot shift down by one through the slot table, so every road's
// endpoints stay inside [0, IntersectionCount()).
func (n *Network) RemoveIntersection(id VertexID) ([]*Road, error) {
	slot, ok := n.vertexSlots.Get(id)
	if !ok {
		return nil, fmt.Errorf("intersection %d: %w", id, ErrUnknownIntersection)
	}

	var removed []*Road
	n.roads = slices.DeleteFunc(n.roads, func(r *Road) bool {
		if r.From == id || r.To == id {
			r.retire()
			removed = append(removed, r)
			return true
		}
		return false
	})
	n.intersections = slices.Delete(n.intersections, slot, slot+1)

	n.vertexSlots.Delete(id)
	for i := slot; i < len(n.intersections); i++ {
		n.vertexSlots.Set(n.intersections[i].ID, i)
	}
	n.reindexRoads()
	n.version++
	return removed, nil
}

func (n *Network) reindexRoads() {
	n.roadSlots = btree.Map[RoadID, int]{}
	for i, r := range n.roads {
		n.roadSlots.Set(r.ID, i)
	}
}
