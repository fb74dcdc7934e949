package objset

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestListPushWalkOrder(t *testing.T) {
	l := NewList[int]()
	l.PushBack(1)
	l.PushBack(2)
	l.PushBack(3)

	var seen []int
	l.Walk(func(v int) { seen = append(seen, v) })
	require.Equal(t, []int{1, 2, 3}, seen)
	require.Equal(t, 3, l.Size())
}

func TestListTransferDuringWalk(t *testing.T) {
	a := NewList[int]()
	b := NewList[int]()
	h1 := a.PushBack(1)
	a.PushBack(2)
	a.PushBack(3)

	var seenA []int
	// transfer element 1 to b while walking a; it must still be visited
	// exactly once in a's pass, and not revisited from b afterwards.
	first := true
	a.Walk(func(v int) {
		seenA = append(seenA, v)
		if first {
			first = false
			a.Transfer(h1, b)
		}
	})
	require.Equal(t, []int{1, 2, 3}, seenA)
	require.Equal(t, 2, a.Size())
	require.Equal(t, 1, b.Size())

	var seenB []int
	b.Walk(func(v int) { seenB = append(seenB, v) })
	require.Equal(t, []int{1}, seenB)
}

func TestListRemoveAndSlotReuse(t *testing.T) {
	l := NewList[string]()
	h1 := l.PushBack("a")
	l.PushBack("b")
	require.Equal(t, "a", l.Remove(h1))
	require.Equal(t, 1, l.Size())
	h3 := l.PushBack("c")
	require.Equal(t, Handle(0), h3) // reuses freed slot
	require.Equal(t, []string{"b", "c"}, l.Values())
}

func TestInventoryAssignUnassignReassign(t *testing.T) {
	type obj struct{ Serial }
	inv := NewInventory[*obj]()
	a := &obj{}
	b := &obj{}
	require.Equal(t, Number(1), inv.Assign(a))
	require.Equal(t, Number(2), inv.Assign(b))
	require.Equal(t, 2, inv.Count())

	got, ok := inv.Find(1)
	require.True(t, ok)
	require.Same(t, a, got)

	inv.Unassign(a)
	require.Equal(t, 1, inv.Count())
	require.Equal(t, Number(0), a.Number())

	c := &obj{}
	inv.Assign(c)
	inv.Reassign()
	all := inv.All()
	require.Len(t, all, 2)
	require.Equal(t, Number(1), all[0].Number())
	require.Equal(t, Number(2), all[1].Number())
}
