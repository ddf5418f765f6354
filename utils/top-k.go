package utils

import "cmp"

// ValIdx represents a value and its original index
type ValIdx[T cmp.Ordered] struct {
	Val   T
	Index int
}

// TopKFinder finds the k largest elements with a min-heap. Ties are won by
// the element with the lower index, so results are deterministic.
type TopKFinder[T cmp.Ordered] struct {
	minHeap []ValIdx[T]
}

// NewTopKFinder preallocates room for maxK elements
func NewTopKFinder[T cmp.Ordered](maxK int) *TopKFinder[T] {
	return &TopKFinder[T]{
		minHeap: make([]ValIdx[T], 0, max(maxK, 0)),
	}
}

// less orders the heap: the root is the weakest element kept so far
func (f *TopKFinder[T]) less(a, b ValIdx[T]) bool {
	if a.Val != b.Val {
		return a.Val < b.Val
	}
	return a.Index > b.Index
}

// FindTopK returns the indices of the k largest values of nums, largest
// first
func (f *TopKFinder[T]) FindTopK(nums []T, k int) []int {
	if k <= 0 || len(nums) == 0 {
		return []int{}
	}
	k = min(k, len(nums))

	f.minHeap = f.minHeap[:0]
	for i := 0; i < k; i++ {
		f.minHeap = append(f.minHeap, ValIdx[T]{nums[i], i})
	}
	for i := k/2 - 1; i >= 0; i-- {
		f.siftDown(i, k-1)
	}

	for i := k; i < len(nums); i++ {
		cand := ValIdx[T]{nums[i], i}
		if f.less(f.minHeap[0], cand) {
			f.minHeap[0] = cand
			f.siftDown(0, k-1)
		}
	}

	// pop in ascending order, fill from the back
	indices := make([]int, k)
	for end := k - 1; end >= 0; end-- {
		indices[end] = f.minHeap[0].Index
		f.minHeap[0] = f.minHeap[end]
		f.siftDown(0, end-1)
	}
	return indices
}

func (f *TopKFinder[T]) siftDown(root, end int) {
	for {
		child := root*2 + 1
		if child > end {
			break
		}
		if child+1 <= end && f.less(f.minHeap[child+1], f.minHeap[child]) {
			child++
		}
		if !f.less(f.minHeap[child], f.minHeap[root]) {
			break
		}
		f.minHeap[root], f.minHeap[child] = f.minHeap[child], f.minHeap[root]
		root = child
	}
}
