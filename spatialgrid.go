package marble

import (
	"math"
	"sort"

	"github.com/akmonengine/marble/actor"
	"github.com/go-gl/mathgl/mgl64"
)

// maxCellsPerAxis bounds how many cells one body may cover along an axis.
// Larger bodies are paired against everything, like planes.
const maxCellsPerAxis = 32

// ============================================================================
// Types
// ============================================================================

// CellKey is the integer coordinate of a grid cell
type CellKey struct {
	X, Y, Z int
}

// Cell holds the indices of the bodies overlapping it
type Cell struct {
	bodyIndices []int
}

// Pair is two bodies that may be colliding. BodyA always has the lower index.
type Pair struct {
	BodyA *actor.RigidBody
	BodyB *actor.RigidBody
}

// SpatialGrid is a uniform hashed grid over bounding-sphere extents.
// Hash collisions only add candidates, they never lose one.
type SpatialGrid struct {
	cellSize float64
	cells    []Cell
	cellMask int

	// bodies too large to bin (infinite planes, huge boxes)
	unbounded []int
	// cell range per body index, valid between Clear calls
	ranges []cellRange
	seen   []bool
}

type cellRange struct {
	min, max  CellKey
	unbounded bool
}

// ============================================================================
// Constructor
// ============================================================================

// NewSpatialGrid creates a grid of cellSize cells hashed into numCells buckets
// (rounded up to a power of two).
func NewSpatialGrid(cellSize float64, numCells int) *SpatialGrid {
	if !(cellSize > 0) {
		cellSize = 1
	}
	numCells = nextPowerOfTwo(numCells)

	cells := make([]Cell, numCells)
	for i := range cells {
		cells[i].bodyIndices = make([]int, 0, 8)
	}

	return &SpatialGrid{
		cellSize: cellSize,
		cells:    cells,
		cellMask: numCells - 1,
	}
}

func nextPowerOfTwo(n int) int {
	if n <= 0 {
		return 1
	}
	n--
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n++
	return n
}

// ============================================================================
// Building
// ============================================================================

// Insert adds a body to every cell its bounding sphere touches
func (sg *SpatialGrid) Insert(bodyIndex int, body *actor.RigidBody) {
	for len(sg.ranges) <= bodyIndex {
		sg.ranges = append(sg.ranges, cellRange{})
	}

	r := sg.cellsOf(body.BoundingSphere())
	sg.ranges[bodyIndex] = r
	if r.unbounded {
		sg.unbounded = append(sg.unbounded, bodyIndex)
		return
	}

	for x := r.min.X; x <= r.max.X; x++ {
		for y := r.min.Y; y <= r.max.Y; y++ {
			for z := r.min.Z; z <= r.max.Z; z++ {
				cellIdx := sg.hashCell(CellKey{x, y, z})
				sg.cells[cellIdx].bodyIndices = append(sg.cells[cellIdx].bodyIndices, bodyIndex)
			}
		}
	}
}

func (sg *SpatialGrid) Clear() {
	for i := range sg.cells {
		sg.cells[i].bodyIndices = sg.cells[i].bodyIndices[:0]
	}
	sg.unbounded = sg.unbounded[:0]
	sg.ranges = sg.ranges[:0]
}

// cellsOf returns the cell range covered by a bounding sphere
func (sg *SpatialGrid) cellsOf(sphere actor.BoundingSphere) cellRange {
	if sphere.IsInfinite() || math.IsNaN(sphere.Radius) {
		return cellRange{unbounded: true}
	}

	extent := mgl64.Vec3{sphere.Radius, sphere.Radius, sphere.Radius}
	lo := sphere.Center.Sub(extent)
	hi := sphere.Center.Add(extent)

	for i := 0; i < 3; i++ {
		if math.IsNaN(lo[i]) || math.IsNaN(hi[i]) {
			return cellRange{unbounded: true}
		}
		// also keeps the float to int conversion in range
		if math.Abs(lo[i]/sg.cellSize) > 1e9 || math.Abs(hi[i]/sg.cellSize) > 1e9 {
			return cellRange{unbounded: true}
		}
		if (hi[i]-lo[i])/sg.cellSize > maxCellsPerAxis {
			return cellRange{unbounded: true}
		}
	}

	return cellRange{min: sg.worldToCell(lo), max: sg.worldToCell(hi)}
}

// ============================================================================
// Queries
// ============================================================================

// FindPairs returns every candidate pair sharing a cell, plus every pair
// involving an unbounded body, ordered by body index. accept filters pairs;
// nil accepts all.
func (sg *SpatialGrid) FindPairs(bodies []*actor.RigidBody, accept func(a, b *actor.RigidBody) bool) []Pair {
	pairs := make([]Pair, 0, len(bodies)/2)
	if cap(sg.seen) < len(bodies) {
		sg.seen = make([]bool, len(bodies))
	}
	seen := sg.seen[:len(bodies)]
	candidates := make([]int, 0, 16)

	for bodyIdx := 0; bodyIdx < len(bodies) && bodyIdx < len(sg.ranges); bodyIdx++ {
		candidates = candidates[:0]
		mark := func(otherIdx int) {
			// (A,B) and (B,A) are the same pair
			if otherIdx <= bodyIdx || seen[otherIdx] {
				return
			}
			seen[otherIdx] = true
			candidates = append(candidates, otherIdx)
		}

		r := sg.ranges[bodyIdx]
		if r.unbounded {
			for otherIdx := bodyIdx + 1; otherIdx < len(bodies); otherIdx++ {
				mark(otherIdx)
			}
		} else {
			for x := r.min.X; x <= r.max.X; x++ {
				for y := r.min.Y; y <= r.max.Y; y++ {
					for z := r.min.Z; z <= r.max.Z; z++ {
						for _, otherIdx := range sg.cells[sg.hashCell(CellKey{x, y, z})].bodyIndices {
							mark(otherIdx)
						}
					}
				}
			}
			for _, otherIdx := range sg.unbounded {
				mark(otherIdx)
			}
		}

		sort.Ints(candidates)
		for _, otherIdx := range candidates {
			seen[otherIdx] = false

			bodyA, bodyB := bodies[bodyIdx], bodies[otherIdx]
			if accept == nil || accept(bodyA, bodyB) {
				pairs = append(pairs, Pair{BodyA: bodyA, BodyB: bodyB})
			}
		}
	}

	return pairs
}

// Query returns the indices of the bodies that may overlap sphere, sorted
func (sg *SpatialGrid) Query(sphere actor.BoundingSphere) []int {
	r := sg.cellsOf(sphere)
	if r.unbounded {
		all := make([]int, len(sg.ranges))
		for i := range all {
			all[i] = i
		}
		return all
	}

	found := make(map[int]struct{})
	for x := r.min.X; x <= r.max.X; x++ {
		for y := r.min.Y; y <= r.max.Y; y++ {
			for z := r.min.Z; z <= r.max.Z; z++ {
				for _, idx := range sg.cells[sg.hashCell(CellKey{x, y, z})].bodyIndices {
					found[idx] = struct{}{}
				}
			}
		}
	}
	for _, idx := range sg.unbounded {
		found[idx] = struct{}{}
	}

	indices := make([]int, 0, len(found))
	for idx := range found {
		indices = append(indices, idx)
	}
	sort.Ints(indices)

	return indices
}

// worldToCell converts a world position to cell coordinates
func (sg *SpatialGrid) worldToCell(pos mgl64.Vec3) CellKey {
	return CellKey{
		X: int(math.Floor(pos.X() / sg.cellSize)),
		Y: int(math.Floor(pos.Y() / sg.cellSize)),
		Z: int(math.Floor(pos.Z() / sg.cellSize)),
	}
}

// hashCell maps a cell onto a bucket index
func (sg *SpatialGrid) hashCell(key CellKey) int {
	h := (key.X * 73856093) ^ (key.Y * 19349663) ^ (key.Z * 83492791)
	return h & sg.cellMask
}
