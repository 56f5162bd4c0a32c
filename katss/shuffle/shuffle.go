// Package shuffle implements the one external collaborator the
// specification treats as opaque: a length-preserving sequence shuffle
// that holds every length-klet substring's multiset of counts fixed.
//
// No library in the reference corpus provides klet-preserving
// shuffling, so this is a from-scratch implementation of the
// Altschul-Erikson algorithm: build a multigraph of (klet-1)-mer nodes
// connected by klet-mer edges, pick a uniformly random spanning-tree-
// respecting Eulerian circuit, and read the shuffled sequence off the
// walk. For klet==1 this degenerates to a uniform random permutation of
// the individual bases.
package shuffle

import "math/rand"

// Shuffle returns a klet-mer-count-preserving permutation of seq using
// rng for randomization. Sequences shorter than klet are returned
// unchanged (nothing to preserve).
func Shuffle(seq []byte, klet int, rng *rand.Rand) []byte {
	if klet <= 1 {
		return shuffleBases(seq, rng)
	}
	if len(seq) < klet {
		out := make([]byte, len(seq))
		copy(out, seq)
		return out
	}
	return eulerShuffle(seq, klet, rng)
}

func shuffleBases(seq []byte, rng *rand.Rand) []byte {
	out := make([]byte, len(seq))
	copy(out, seq)
	rng.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}

// edge is one occurrence of a klet-mer, viewed as an edge from the
// (klet-1)-mer prefix node to the (klet-1)-mer suffix node.
type edge struct {
	from, to string
	label    []byte
}

// eulerShuffle implements the Altschul-Erikson construction: every
// node's out-edges but the last are shuffled freely; the last out-edge
// of every node (other than the terminal node) is fixed by a random
// spanning tree rooted at the terminal node, guaranteeing the walk
// remains Eulerian. The resulting walk, read as overlapping (klet-1)-
// mers stitched by edge labels, reproduces every klet-mer count exactly
// and starts/ends on the same bases as seq.
func eulerShuffle(seq []byte, klet int, rng *rand.Rand) []byte {
	nodeLen := klet - 1
	n := len(seq)

	var edges []edge
	adj := make(map[string][]int) // node -> indices into edges, in original order

	for i := 0; i+klet <= n; i++ {
		from := string(seq[i : i+nodeLen])
		to := string(seq[i+1 : i+1+nodeLen])
		idx := len(edges)
		edges = append(edges, edge{from: from, to: to, label: seq[i : i+klet]})
		adj[from] = append(adj[from], idx)
	}

	if len(edges) == 0 {
		out := make([]byte, n)
		copy(out, seq)
		return out
	}

	lastNode := string(seq[n-nodeLen:])

	// Random spanning tree of last-edges directed toward lastNode,
	// built by repeated random walks (Wilson's algorithm), matching
	// the uniform-spanning-tree requirement of Altschul-Erikson.
	fixedLast := randomSpanningTreeLastEdges(edges, adj, lastNode, rng)

	// Shuffle each node's non-fixed out-edges, keeping the fixed edge
	// last.
	order := make(map[string][]int, len(adj))
	for node, idxs := range adj {
		var free []int
		fixed := fixedLast[node]
		hasFixed := fixed != -1
		for _, idx := range idxs {
			if hasFixed && idx == fixed {
				continue
			}
			free = append(free, idx)
		}
		rng.Shuffle(len(free), func(i, j int) { free[i], free[j] = free[j], free[i] })
		if hasFixed {
			free = append(free, fixed)
		}
		order[node] = free
	}

	// Walk an Eulerian circuit starting at the first node, consuming
	// each node's out-edges in the shuffled order (Hierholzer's
	// algorithm).
	cursor := make(map[string]int, len(order))
	startNode := string(seq[:nodeLen])
	walk := hierholzer(startNode, order, edges, cursor)

	out := make([]byte, 0, n)
	out = append(out, walk[0].label...)
	for _, e := range walk[1:] {
		out = append(out, e.label[nodeLen:]...)
	}
	return out
}

// randomSpanningTreeLastEdges picks, for every node with outgoing
// edges other than root, one out-edge index to be fixed as "last" such
// that following fixed edges from any node eventually reaches root --
// a directed spanning tree toward root, via random walks (Wilson's
// loop-erased random walk algorithm restricted to this small graph).
func randomSpanningTreeLastEdges(edges []edge, adj map[string][]int, root string, rng *rand.Rand) map[string]int {
	fixed := make(map[string]int)
	inTree := map[string]bool{root: true}

	nodes := make([]string, 0, len(adj))
	for node := range adj {
		nodes = append(nodes, node)
	}

	for _, start := range nodes {
		if inTree[start] {
			continue
		}
		// Loop-erased random walk from start until hitting the tree.
		path := []string{start}
		pathEdge := map[string]int{}
		cur := start
		for !inTree[cur] {
			outs := adj[cur]
			if len(outs) == 0 {
				// Dead end with no path to root; leave unfixed, the
				// caller's matching edge set has no cycle through it.
				break
			}
			choice := outs[rng.Intn(len(outs))]
			pathEdge[cur] = choice
			next := edges[choice].to
			if idx := indexOf(path, next); idx >= 0 {
				// Erase the loop.
				path = path[:idx+1]
			} else {
				path = append(path, next)
			}
			cur = next
		}
		for _, node := range path {
			if node == root {
				continue
			}
			if e, ok := pathEdge[node]; ok {
				fixed[node] = e
				inTree[node] = true
			}
		}
	}
	for node := range adj {
		if _, ok := fixed[node]; !ok {
			fixed[node] = -1
		}
	}
	return fixed
}

func indexOf(s []string, v string) int {
	for i, x := range s {
		if x == v {
			return i
		}
	}
	return -1
}

// hierholzer walks an Eulerian circuit starting at start, consuming
// each node's out-edges in the order given by order[node], via an
// explicit-stack variant of Hierholzer's algorithm so the result
// matches the shuffled per-node edge order.
func hierholzer(start string, order map[string][]int, edges []edge, cursor map[string]int) []edge {
	type frame struct {
		node    string
		viaEdge int // index into edges that led to this node; -1 for start
	}
	stack := []frame{{node: start, viaEdge: -1}}
	var circuit []int // edge indices in post-order (reverse traversal order)

	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		outs := order[top.node]
		idx := cursor[top.node]
		if idx < len(outs) {
			cursor[top.node] = idx + 1
			eIdx := outs[idx]
			stack = append(stack, frame{node: edges[eIdx].to, viaEdge: eIdx})
			continue
		}
		stack = stack[:len(stack)-1]
		if top.viaEdge >= 0 {
			circuit = append(circuit, top.viaEdge)
		}
	}

	path := make([]edge, len(circuit))
	for i, eIdx := range circuit {
		path[len(circuit)-1-i] = edges[eIdx]
	}
	return path
}
