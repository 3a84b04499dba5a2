package forensics

// ContaminationGraph is a directed graph of resources. An edge A -> B means
// some session moved from A directly to B. Resources with no edges are still
// nodes.
type ContaminationGraph struct {
	nodes map[string]struct{}
	adj   map[string]*neighborSet
	edges int
}

// neighborSet keeps neighbors unique and in first-seen order.
type neighborSet struct {
	seen  map[string]struct{}
	order []string
}

func (n *neighborSet) add(to string) bool {
	if _, ok := n.seen[to]; ok {
		return false
	}
	n.seen[to] = struct{}{}
	n.order = append(n.order, to)
	return true
}

func newContaminationGraph() *ContaminationGraph {
	return &ContaminationGraph{
		nodes: make(map[string]struct{}),
		adj:   make(map[string]*neighborSet),
	}
}

func (g *ContaminationGraph) addNode(resource string) {
	if _, ok := g.nodes[resource]; ok {
		return
	}
	g.nodes[resource] = struct{}{}
}

func (g *ContaminationGraph) addEdge(from, to string) {
	g.addNode(from)
	g.addNode(to)
	set, ok := g.adj[from]
	if !ok {
		set = &neighborSet{seen: make(map[string]struct{})}
		g.adj[from] = set
	}
	if set.add(to) {
		g.edges++
	}
}

// BuildContaminationGraph derives the graph from per-session activity. Each
// session's records are put in chronological order and every change of
// target resource adds an edge from the previous resource to the new one.
// Consecutive visits to the same resource add nothing.
func BuildContaminationGraph(records []Record) *ContaminationGraph {
	g := newContaminationGraph()

	var sessions []string
	bySession := make(map[string][]Record)
	for _, r := range records {
		if _, ok := bySession[r.SessionID]; !ok {
			sessions = append(sessions, r.SessionID)
		}
		bySession[r.SessionID] = append(bySession[r.SessionID], r)
	}

	for _, id := range sessions {
		prev := ""
		for _, r := range Chronological(bySession[id]) {
			res := r.TargetResource
			if res == "" {
				continue
			}
			g.addNode(res)
			if prev != "" && prev != res {
				g.addEdge(prev, res)
			}
			prev = res
		}
	}
	return g
}

// HasNode reports whether resource was seen in any record.
func (g *ContaminationGraph) HasNode(resource string) bool {
	_, ok := g.nodes[resource]
	return ok
}

// Neighbors returns the resources reachable from resource in one step.
func (g *ContaminationGraph) Neighbors(resource string) []string {
	set, ok := g.adj[resource]
	if !ok {
		return nil
	}
	return append([]string(nil), set.order...)
}

// NodeCount returns the number of resources.
func (g *ContaminationGraph) NodeCount() int { return len(g.nodes) }

// EdgeCount returns the number of distinct directed edges.
func (g *ContaminationGraph) EdgeCount() int { return g.edges }

// Path returns a shortest path from start to target by edge count, both
// ends included. ok is false when start is not a node or target cannot be
// reached.
func (g *ContaminationGraph) Path(start, target string) (path []string, ok bool) {
	if !g.HasNode(start) {
		return nil, false
	}
	if start == target {
		return []string{start}, true
	}

	prev := map[string]string{start: ""}
	queue := []string{start}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur == target {
			return reconstructPath(prev, start, target), true
		}
		set, ok := g.adj[cur]
		if !ok {
			continue
		}
		for _, next := range set.order {
			if _, seen := prev[next]; seen {
				continue
			}
			prev[next] = cur
			queue = append(queue, next)
		}
	}
	return nil, false
}

func reconstructPath(prev map[string]string, start, target string) []string {
	var rev []string
	for cur := target; ; cur = prev[cur] {
		rev = append(rev, cur)
		if cur == start {
			break
		}
	}
	path := make([]string, len(rev))
	for i, res := range rev {
		path[len(rev)-1-i] = res
	}
	return path
}

// TraceContamination builds the contamination graph from records and
// returns a shortest path from start to target.
func TraceContamination(records []Record, start, target string) ([]string, bool) {
	return BuildContaminationGraph(records).Path(start, target)
}
