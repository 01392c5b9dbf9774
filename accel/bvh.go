package accel

import (
	"context"
	"runtime"
	"sync"
	"time"

	"github.com/achilleasa/tiletrace/asset/compiler/bvh"
	"github.com/achilleasa/tiletrace/log"
	"github.com/achilleasa/tiletrace/types"
	"github.com/chewxy/math32"
	"golang.org/x/sync/errgroup"
)

const (
	// Max triangles grouped into a BVH leaf without attempting a split.
	maxLeafTriangles = 4

	// Triangles whose determinant falls below this threshold are parallel
	// to the ray.
	detEpsilon float32 = 1e-9

	// Rays per context cancellation check.
	cancelCheckInterval = 1024
)

// A triangle reference passed to the BVH builder.
type triangleRef struct {
	index  uint32
	bbox   [2]types.Vec3
	center types.Vec3
}

func (t *triangleRef) BBox() [2]types.Vec3 { return t.bbox }
func (t *triangleRef) Center() types.Vec3  { return t.center }

// BVH is a software accelerator backed by a SAH bounding volume hierarchy.
type BVH struct {
	logger  log.Logger
	workers int

	mu    sync.RWMutex
	nodes []bvh.Node

	// Triangle vertices ordered by leaf and the original index of each
	// triangle in the same order.
	triangles [][3]types.Vec3
	triIndex  []int32
}

// Create a new BVH accelerator that intersects rays using up to workers
// goroutines. A non-positive worker count selects the number of CPUs.
func NewBVH(workers int) *BVH {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &BVH{
		logger:  log.New("bvh"),
		workers: workers,
	}
}

func (a *BVH) Build(vertices []types.Vec3, indices []uint32, triCount int) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.nodes, a.triangles, a.triIndex = nil, nil, nil
	if err := validateGeometry(vertices, indices, triCount); err != nil {
		return err
	}

	start := time.Now()
	refs := make([]triangleRef, triCount)
	workList := make([]bvh.BoundedVolume, triCount)
	for tri := 0; tri < triCount; tri++ {
		v0, v1, v2 := vertices[indices[3*tri]], vertices[indices[3*tri+1]], vertices[indices[3*tri+2]]
		refs[tri] = triangleRef{
			index: uint32(tri),
			bbox: [2]types.Vec3{
				types.MinVec3(v0, types.MinVec3(v1, v2)),
				types.MaxVec3(v0, types.MaxVec3(v1, v2)),
			},
			center: v0.Add(v1).Add(v2).Mul(1.0 / 3.0),
		}
		workList[tri] = &refs[tri]
	}

	triangles := make([][3]types.Vec3, 0, triCount)
	triIndex := make([]int32, 0, triCount)
	nodes := bvh.Build(workList, maxLeafTriangles, func(leaf *bvh.Node, items []bvh.BoundedVolume) {
		leaf.SetPrimitives(uint32(len(triangles)), uint32(len(items)))
		for _, item := range items {
			tri := item.(*triangleRef).index
			triangles = append(triangles, [3]types.Vec3{
				vertices[indices[3*tri]],
				vertices[indices[3*tri+1]],
				vertices[indices[3*tri+2]],
			})
			triIndex = append(triIndex, int32(tri))
		}
	}, bvh.SurfaceAreaHeuristic)

	a.nodes, a.triangles, a.triIndex = nodes, triangles, triIndex
	a.logger.Infof("built BVH with %d nodes for %d triangles in %d ms", len(nodes), triCount, time.Since(start).Nanoseconds()/1e6)
	return nil
}

func (a *BVH) Intersect(ctx context.Context, rays []Ray, out []Intersection, mode Mode) error {
	if len(out) < len(rays) {
		return ErrOutputTooSmall
	}

	a.mu.RLock()
	defer a.mu.RUnlock()
	if len(a.nodes) == 0 {
		return ErrNotBuilt
	}

	bandSize := (len(rays) + a.workers - 1) / a.workers
	g, gctx := errgroup.WithContext(ctx)
	for start := 0; start < len(rays); start += bandSize {
		end := start + bandSize
		if end > len(rays) {
			end = len(rays)
		}
		g.Go(func() error {
			stack := make([]uint32, 0, 64)
			for index := start; index < end; index++ {
				if (index-start)%cancelCheckInterval == 0 {
					if err := gctx.Err(); err != nil {
						return err
					}
				}
				out[index] = a.intersectRay(&rays[index], mode, stack)
			}
			return nil
		})
	}
	return g.Wait()
}

// Traverse the tree for a single ray.
func (a *BVH) intersectRay(ray *Ray, mode Mode, stack []uint32) Intersection {
	hit := Miss()
	if !ray.Valid() {
		return hit
	}

	invDir := ray.Direction.Inv()
	tMax := ray.MaxDistance

	stack = append(stack[:0], 0)
	for len(stack) > 0 {
		node := &a.nodes[stack[len(stack)-1]]
		stack = stack[:len(stack)-1]

		if !intersectBox(node.Min, node.Max, ray.Origin, invDir, ray.MinDistance, tMax) {
			continue
		}

		if !node.IsLeaf() {
			left, right := node.GetChildNodes()
			stack = append(stack, right, left)
			continue
		}

		first, count := node.GetPrimitives()
		for tri := first; tri < first+count; tri++ {
			t, u, v, ok := intersectTriangle(ray.Origin, ray.Direction, &a.triangles[tri])
			if !ok || t <= ray.MinDistance || t >= tMax {
				continue
			}

			hit = Intersection{Distance: t, PrimitiveIndex: a.triIndex[tri], UV: types.Vec2{u, v}}
			if mode == Any {
				return hit
			}
			tMax = t
		}
	}

	return hit
}

// Slab test against an AABB, clipped to [tMin, tMax].
func intersectBox(min, max, origin, invDir types.Vec3, tMin, tMax float32) bool {
	for axis := 0; axis < 3; axis++ {
		t0 := (min[axis] - origin[axis]) * invDir[axis]
		t1 := (max[axis] - origin[axis]) * invDir[axis]
		if t0 > t1 {
			t0, t1 = t1, t0
		}

		// NaN bounds (origin on the slab plane of a parallel ray) do not clip
		if t0 > tMin {
			tMin = t0
		}
		if t1 < tMax {
			tMax = t1
		}
		if tMax < tMin {
			return false
		}
	}
	return true
}

// Möller-Trumbore ray/triangle intersection. Both triangle faces are hit.
func intersectTriangle(origin, dir types.Vec3, tri *[3]types.Vec3) (t, u, v float32, ok bool) {
	e1 := tri[1].Sub(tri[0])
	e2 := tri[2].Sub(tri[0])

	p := dir.Cross(e2)
	det := e1.Dot(p)
	if math32.Abs(det) < detEpsilon {
		return 0, 0, 0, false
	}
	invDet := 1.0 / det

	tv := origin.Sub(tri[0])
	u = tv.Dot(p) * invDet
	if u < 0 || u > 1 {
		return 0, 0, 0, false
	}

	q := tv.Cross(e1)
	v = dir.Dot(q) * invDet
	if v < 0 || u+v > 1 {
		return 0, 0, 0, false
	}

	t = e2.Dot(q) * invDet
	return t, u, v, true
}
