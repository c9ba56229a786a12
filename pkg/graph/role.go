package graph

// Role is the behaviour an intersection takes on for one tick. It is derived
// from live degree counts and never stored.
type Role int

const (
	// RoleInert has no incoming roads and does nothing.
	RoleInert Role = iota
	// RoleTerminal is an entry/exit point: it spawns onto its outgoing roads
	// and consumes whatever arrives.
	RoleTerminal
	// RolePassThrough is an unsignalized two-lane bend.
	RolePassThrough
	// RoleSignalized is a round-robin traffic light.
	RoleSignalized
)

func (r Role) String() string {
	switch r {
	case RoleInert:
		return "inert"
	case RoleTerminal:
		return "terminal"
	case RolePassThrough:
		return "pass-through"
	case RoleSignalized:
		return "signalized"
	default:
		return "unknown"
	}
}

// RoleOf classifies a vertex by its in-degree.
func RoleOf(inDegree int) Role {
	switch {
	case inDegree <= 0:
		return RoleInert
	case inDegree == 1:
		return RoleTerminal
	case inDegree == 2:
		return RolePassThrough
	default:
		return RoleSignalized
	}
}

// Role computes the current role of a vertex.
func (n *Network) Role(id VertexID) Role { return RoleOf(n.InDegree(id)) }

// Roles computes every vertex's role in one pass over the roads, keyed by ID.
func (n *Network) Roles() map[VertexID]Role {
	in := make(map[VertexID]int, len(n.intersections))
	for _, r := range n.roads {
		in[r.To]++
	}
	roles := make(map[VertexID]Role, len(n.intersections))
	for _, v := range n.intersections {
		roles[v.ID] = RoleOf(in[v.ID])
	}
	return roles
}
