package compiler

// unionFind is a disjoint-set forest over variable indices.
// Path compression keeps find amortized near constant.
type unionFind struct {
	parent []int
}

// add registers a new singleton set and returns its index.
func (u *unionFind) add() int {
	u.parent = append(u.parent, len(u.parent))
	return len(u.parent) - 1
}

func (u *unionFind) find(x int) int {
	root := x
	for u.parent[root] != root {
		root = u.parent[root]
	}
	for u.parent[x] != root {
		next := u.parent[x]
		u.parent[x] = root
		x = next
	}
	return root
}

// union merges the sets of a and b. The root of a's set survives so the
// caller can keep a's occurrences first. Returns (survivor, absorbed); both
// are equal when a and b were already joined.
func (u *unionFind) union(a, b int) (int, int) {
	ra, rb := u.find(a), u.find(b)
	if ra != rb {
		u.parent[rb] = ra
	}
	return ra, rb
}
