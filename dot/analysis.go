package dot

import (
	"slices"
)

// Analysis reports the structural health of a captured graph: which
// entities form connected clusters, which are wired to nothing, and
// which inputs would fail on their first read.
type Analysis struct {
	// Clusters are the connected components of the wiring, treated as
	// undirected. Each cluster and the cluster list are sorted.
	Clusters [][]string `json:"clusters"`
	// Isolated lists entities with no plugs in either direction.
	Isolated []string `json:"isolated,omitempty"`
	// DanglingInputs lists inputs with neither a source nor a value.
	DanglingInputs []PortRef `json:"dangling_inputs,omitempty"`
	// Status is "healthy" when nothing above is suspicious, otherwise
	// "warnings".
	Status string `json:"status"`
}

// Analyze inspects the captured wiring. A single-entity graph with
// nothing dangling is healthy; isolation only counts against graphs
// that have other entities to connect to.
func (g *Graph) Analyze() *Analysis {
	result := &Analysis{
		Clusters: [][]string{},
		Status:   "healthy",
	}

	adj := make(map[string][]string)
	for _, e := range g.edges {
		adj[e.From.Entity] = append(adj[e.From.Entity], e.To.Entity)
		adj[e.To.Entity] = append(adj[e.To.Entity], e.From.Entity)
	}

	visited := make(map[string]bool)
	for _, name := range g.NodeNames() {
		if visited[name] {
			continue
		}
		var cluster []string
		g.collect(name, adj, visited, &cluster)
		slices.Sort(cluster)
		result.Clusters = append(result.Clusters, cluster)
		if len(cluster) == 1 && len(adj[name]) == 0 {
			result.Isolated = append(result.Isolated, name)
		}
	}

	result.DanglingInputs = g.Dangling()

	if len(result.DanglingInputs) > 0 {
		result.Status = "warnings"
	}
	if len(result.Isolated) > 0 && len(g.nodes) > 1 {
		result.Status = "warnings"
	}
	return result
}

// collect walks one connected component depth-first.
func (g *Graph) collect(node string, adj map[string][]string, visited map[string]bool, cluster *[]string) {
	visited[node] = true
	*cluster = append(*cluster, node)
	for _, neighbor := range adj[node] {
		if !visited[neighbor] {
			g.collect(neighbor, adj, visited, cluster)
		}
	}
}
