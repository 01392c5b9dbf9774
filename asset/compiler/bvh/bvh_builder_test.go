package bvh

import (
	"math"
	"testing"

	"github.com/achilleasa/tiletrace/types"
)

type box struct {
	min, max types.Vec3
}

func (b box) BBox() [2]types.Vec3 {
	return [2]types.Vec3{b.min, b.max}
}

func (b box) Center() types.Vec3 {
	return b.min.Add(b.max).Mul(0.5)
}

func cornerBoxes() []BoundedVolume {
	return []BoundedVolume{
		box{types.Vec3{-2, 0, -2}, types.Vec3{-1, 1, -1}},
		box{types.Vec3{1, 0, -2}, types.Vec3{2, 1, -1}},
		box{types.Vec3{-2, 0, 1}, types.Vec3{-1, 1, 2}},
		box{types.Vec3{1, 0, 1}, types.Vec3{2, 1, 2}},
	}
}

func TestLeafCallback(t *testing.T) {
	itemList := cornerBoxes()

	var cbCount = 0
	var expItemListCount = 0
	cb := func(leaf *Node, itemList []BoundedVolume) {
		cbCount++
		if len(itemList) != expItemListCount {
			t.Fatalf("expected leaf callback to be called with %d items; got %d", expItemListCount, len(itemList))
		}
	}

	var expCount = 0

	// Partition each item in a single leaf
	cbCount = 0
	expItemListCount = 1
	treeNodes := Build(itemList, 1, cb, SurfaceAreaHeuristic)

	expCount = 4
	if cbCount != expCount {
		t.Fatalf("expected leaf callback to be called %d times; called %d", expCount, cbCount)
	}
	expCount = 7
	if len(treeNodes) != expCount {
		t.Fatalf("expected bvh tree to have %d nodes; got %d", expCount, len(treeNodes))
	}

	// Partition two items in a single leaf
	cbCount = 0
	expItemListCount = 2
	treeNodes = Build(itemList, 2, cb, SurfaceAreaHeuristic)

	expCount = 2
	if cbCount != expCount {
		t.Fatalf("expected leaf callback to be called %d times; called %d", expCount, cbCount)
	}
	expCount = 3
	if len(treeNodes) != expCount {
		t.Fatalf("expected bvh tree to have %d nodes; got %d", expCount, len(treeNodes))
	}
}

func TestRootBBox(t *testing.T) {
	treeNodes := Build(cornerBoxes(), 1, func(*Node, []BoundedVolume) {}, SurfaceAreaHeuristic)

	root := treeNodes[0]
	if root.IsLeaf() {
		t.Fatal("expected root to be an interior node")
	}
	if root.Min != (types.Vec3{-2, 0, -2}) || root.Max != (types.Vec3{2, 1, 2}) {
		t.Fatalf("expected root bbox to enclose all items; got %v - %v", root.Min, root.Max)
	}

	left, right := root.GetChildNodes()
	if left == 0 || right == 0 || int(left) >= len(treeNodes) || int(right) >= len(treeNodes) {
		t.Fatalf("invalid child indices %d, %d", left, right)
	}
}

func TestUnsplittableItems(t *testing.T) {
	// Identical items cannot be separated by any split plane
	itemList := []BoundedVolume{
		box{types.Vec3{0, 0, 0}, types.Vec3{1, 1, 1}},
		box{types.Vec3{0, 0, 0}, types.Vec3{1, 1, 1}},
		box{types.Vec3{0, 0, 0}, types.Vec3{1, 1, 1}},
	}

	var leafItems int
	treeNodes := Build(itemList, 1, func(leaf *Node, items []BoundedVolume) {
		leafItems = len(items)
		leaf.SetPrimitives(0, uint32(len(items)))
	}, SurfaceAreaHeuristic)

	if len(treeNodes) != 1 || leafItems != 3 {
		t.Fatalf("expected a single leaf holding all items; got %d nodes and %d leaf items", len(treeNodes), leafItems)
	}
	if first, count := treeNodes[0].GetPrimitives(); first != 0 || count != 3 {
		t.Fatalf("expected leaf primitives (0, 3); got (%d, %d)", first, count)
	}
}

func TestSAHScores(t *testing.T) {
	itemList := cornerBoxes()

	if score := SurfaceAreaHeuristic.ScorePartition(itemList); score != 96 {
		t.Fatalf("expected partition score 96; got %f", score)
	}

	l, r, score := SurfaceAreaHeuristic.ScoreSplit(itemList, XAxis, 0)
	if l != 2 || r != 2 || score != 36 {
		t.Fatalf("expected split (2, 2, 36); got (%d, %d, %f)", l, r, score)
	}

	_, _, score = SurfaceAreaHeuristic.ScoreSplit(itemList, YAxis, 0.5)
	if score != math.MaxFloat32 {
		t.Fatalf("expected empty partition to get the worst score; got %f", score)
	}
}
