package grid

import "github.com/paulmach/orb"

// BucketIndex maps each cell to the shapes whose bounds touch it. It is built
// once per batch and only read afterwards, so workers share it without locks.
type BucketIndex struct {
	buckets [][]int32
}

// NewBucketIndex indexes bounds against the lattice. Entry i of bounds is
// reported as candidate i.
func NewBucketIndex(g *Grid, bounds []orb.Bound) *BucketIndex {
	ix := &BucketIndex{buckets: make([][]int32, len(g.Cells))}
	for i, b := range bounds {
		r0, r1, c0, c1, ok := g.Span(b)
		if !ok {
			continue
		}
		for r := r0; r <= r1; r++ {
			for c := c0; c <= c1; c++ {
				k := r*g.Cols + c
				ix.buckets[k] = append(ix.buckets[k], int32(i))
			}
		}
	}
	return ix
}

// Candidates returns the indexed entries whose bounds touch the cell at
// cellIndex. The slice must not be modified.
func (ix *BucketIndex) Candidates(cellIndex int) []int32 {
	if cellIndex < 0 || cellIndex >= len(ix.buckets) {
		return nil
	}
	return ix.buckets[cellIndex]
}
