package hashindex

// bkNode is one node of a BK-tree keyed on Hamming distance between
// 64-bit perceptual hashes.
type bkNode struct {
	hash     uint64
	key      string // catalog entry key stored at this hash
	children map[int]*bkNode
}

// bkTree is a metric-space index supporting radius search under the
// discrete Hamming metric. Each HashIndex owns one tree per hash kind
// (one owned tree per hash kind, rather than a
// process-global map).
type bkTree struct {
	root *bkNode
	size int
}

func newBKTree() *bkTree { return &bkTree{} }

// Add inserts hash under key into the tree. If an identical hash already
// exists, the new key is stored in a node chained off the reserved
// child edge -1, so every key sharing that hash stays findable.
func (t *bkTree) Add(hash uint64, key string) {
	t.size++
	if t.root == nil {
		t.root = &bkNode{hash: hash, key: key, children: map[int]*bkNode{}}
		return
	}
	node := t.root
	for {
		d := hammingDistance(hash, node.hash)
		if d == 0 {
			// Same hash value reused by another catalog entry; chain it
			// off a reserved "duplicate" slot so both remain findable.
			if next, ok := node.children[-1]; ok {
				node = next
				continue
			}
			node.children[-1] = &bkNode{hash: hash, key: key, children: map[int]*bkNode{}}
			return
		}
		next, ok := node.children[d]
		if !ok {
			node.children[d] = &bkNode{hash: hash, key: key, children: map[int]*bkNode{}}
			return
		}
		node = next
	}
}

// bkMatch is one result of a radius search.
type bkMatch struct {
	Key      string
	Distance int
}

// FindWithinRadius returns every (key, distance) pair in the tree whose
// Hamming distance to target is <= radius.
func (t *bkTree) FindWithinRadius(target uint64, radius int) []bkMatch {
	if t.root == nil {
		return nil
	}
	var out []bkMatch
	var walk func(n *bkNode)
	walk = func(n *bkNode) {
		if n == nil {
			return
		}
		d := hammingDistance(target, n.hash)
		if d <= radius {
			out = append(out, bkMatch{Key: n.key, Distance: d})
		}
		// Triangle inequality: only descend into children whose edge
		// distance could still be within radius of target.
		for edge, child := range n.children {
			if edge == -1 {
				walk(child)
				continue
			}
			if edge >= d-radius && edge <= d+radius {
				walk(child)
			}
		}
	}
	walk(t.root)
	return out
}

// Len returns the number of hashes inserted into the tree.
func (t *bkTree) Len() int { return t.size }

func hammingDistance(a, b uint64) int {
	x := a ^ b
	count := 0
	for x != 0 {
		x &= x - 1
		count++
	}
	return count
}
