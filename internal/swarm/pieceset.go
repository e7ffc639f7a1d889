package swarm

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/RoaringBitmap/roaring"
)

// PieceSet is a set of piece indices. The zero value is an empty set.
type PieceSet struct {
	bm *roaring.Bitmap
}

func NewPieceSet(indices ...int) PieceSet {
	s := PieceSet{bm: roaring.New()}
	for _, idx := range indices {
		s.Add(idx)
	}
	return s
}

// ParsePieceSet builds a set from externally supplied indices, rejecting
// any that a piece index cannot hold.
func ParsePieceSet(indices []int) (PieceSet, error) {
	for _, idx := range indices {
		if !validIndex(idx) {
			return PieceSet{}, fmt.Errorf("piece set: piece index %d out of range", idx)
		}
	}
	return NewPieceSet(indices...), nil
}

func validIndex(idx int) bool {
	return idx >= 0 && uint64(idx) <= math.MaxUint32
}

// Add ignores indices outside [0, MaxUint32].
func (s *PieceSet) Add(idx int) {
	if !validIndex(idx) {
		return
	}
	if s.bm == nil {
		s.bm = roaring.New()
	}
	s.bm.Add(uint32(idx))
}

func (s PieceSet) Contains(idx int) bool {
	if s.bm == nil || !validIndex(idx) {
		return false
	}
	return s.bm.Contains(uint32(idx))
}

func (s PieceSet) Len() int {
	if s.bm == nil {
		return 0
	}
	return int(s.bm.GetCardinality())
}

// Indices returns the members in ascending order.
func (s PieceSet) Indices() []int {
	if s.bm == nil {
		return nil
	}
	out := make([]int, 0, s.bm.GetCardinality())
	it := s.bm.Iterator()
	for it.HasNext() {
		out = append(out, int(it.Next()))
	}
	return out
}

// Intersect returns a new set holding the members present in both sets.
func (s PieceSet) Intersect(other PieceSet) PieceSet {
	if s.bm == nil || other.bm == nil {
		return PieceSet{}
	}
	return PieceSet{bm: roaring.And(s.bm, other.bm)}
}

func (s PieceSet) String() string {
	return fmt.Sprint(s.Indices())
}

func (s PieceSet) MarshalJSON() ([]byte, error) {
	idx := s.Indices()
	if idx == nil {
		idx = []int{}
	}
	return json.Marshal(idx)
}

func (s *PieceSet) UnmarshalJSON(data []byte) error {
	var idx []int
	if err := json.Unmarshal(data, &idx); err != nil {
		return fmt.Errorf("piece set: %w", err)
	}
	set, err := ParsePieceSet(idx)
	if err != nil {
		return err
	}
	*s = set
	return nil
}
