package btree

import (
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tuannm99/novatable/internal/record"
)

func ptrFor(k int32) record.Pointer {
	return record.Pointer{PageID: uint32(k / 10), Slot: int(k % 10)}
}

func newTestTree(t *testing.T, keys ...int32) *Tree {
	t.Helper()

	tr := New()
	for _, k := range keys {
		require.NoError(t, tr.Insert(record.Int(k), ptrFor(k)))
		require.NoError(t, tr.Check())
	}
	return tr
}

func seq(lo, hi int32) []int32 {
	var out []int32
	for k := lo; k <= hi; k++ {
		out = append(out, k)
	}
	return out
}

func TestTree_Empty(t *testing.T) {
	tr := New()
	require.Equal(t, 0, tr.Len())
	require.Equal(t, 0, tr.Height())
	require.Nil(t, tr.Search(record.Int(1)))
	require.False(t, tr.Delete(record.Int(1)))
	require.NoError(t, tr.Check())
	require.Equal(t, "[]", tr.String())
}

func TestTree_InsertSplitsAtMaxKeys(t *testing.T) {
	tr := newTestTree(t, 1, 2, 3, 4, 5)
	require.Equal(t, 1, tr.Height())
	require.Equal(t, "[1 2 3 4 5]", tr.String())

	require.NoError(t, tr.Insert(record.Int(6), ptrFor(6)))
	require.Equal(t, 2, tr.Height())
	require.Equal(t, "[4] | [1 2 3] [4 5 6]", tr.String())
	require.NoError(t, tr.Check())
}

func TestTree_SearchEveryKey(t *testing.T) {
	keys := seq(1, 500)
	rand.New(rand.NewPCG(7, 7)).Shuffle(len(keys), func(i, j int) { keys[i], keys[j] = keys[j], keys[i] })
	tr := newTestTree(t, keys...)

	require.Equal(t, 500, tr.Len())
	for _, k := range keys {
		p, ok := tr.Lookup(record.Int(k))
		require.True(t, ok, k)
		require.Equal(t, ptrFor(k), p)
	}
	require.Nil(t, tr.Search(record.Int(0)))
	require.Nil(t, tr.Search(record.Int(501)))
	require.Equal(t, 500, len(tr.Keys()))
	require.True(t, slices.IsSortedFunc(tr.Keys(), record.Compare))
}

func TestTree_DeleteOneKey(t *testing.T) {
	tr := newTestTree(t, seq(1, 60)...)

	require.True(t, tr.Delete(record.Int(17)))
	require.NoError(t, tr.Check())
	require.Nil(t, tr.Search(record.Int(17)))
	require.False(t, tr.Delete(record.Int(17)))

	for _, k := range seq(1, 60) {
		if k == 17 {
			continue
		}
		p, ok := tr.Lookup(record.Int(k))
		require.True(t, ok, k)
		require.Equal(t, ptrFor(k), p)
	}
}

func TestTree_RootCollapse(t *testing.T) {
	tr := newTestTree(t, 1, 2, 3, 4, 5, 6)
	require.Equal(t, 2, tr.Height())

	for _, k := range []int32{1, 2, 3} {
		require.True(t, tr.Delete(record.Int(k)))
		require.NoError(t, tr.Check())
	}
	require.Equal(t, 1, tr.Height())
	require.Equal(t, "[4 5 6]", tr.String())

	for _, k := range []int32{4, 5, 6} {
		require.True(t, tr.Delete(record.Int(k)))
		require.NoError(t, tr.Check())
	}
	require.Equal(t, 0, tr.Height())
	require.Equal(t, 0, tr.Len())

	// the arena is reused after everything was freed
	tr2 := newTestTree(t, seq(1, 40)...)
	for _, k := range seq(1, 40) {
		require.True(t, tr2.Delete(record.Int(k)))
		require.NoError(t, tr2.Check())
	}
	for _, k := range seq(1, 40) {
		require.NoError(t, tr2.Insert(record.Int(k), ptrFor(k)))
	}
	require.NoError(t, tr2.Check())
	require.Equal(t, 40, tr2.Len())
}

func TestTree_RandomOpsKeepInvariants(t *testing.T) {
	rng := rand.New(rand.NewPCG(42, 1024))
	tr := New()
	model := map[int32]bool{}

	for i := 0; i < 4000; i++ {
		k := int32(rng.IntN(300))
		if rng.IntN(3) == 0 {
			require.Equal(t, model[k], tr.Delete(record.Int(k)))
			delete(model, k)
		} else {
			require.NoError(t, tr.Insert(record.Int(k), ptrFor(k)))
			model[k] = true
		}
		require.NoError(t, tr.Check(), "op %d key %d", i, k)
		require.Equal(t, len(model), tr.Len())
	}

	for k := int32(0); k < 300; k++ {
		_, ok := tr.Lookup(record.Int(k))
		require.Equal(t, model[k], ok, k)
	}
}

func TestTree_MultiplePointersPerKey(t *testing.T) {
	tr := New()
	a := record.Pointer{PageID: 1, Slot: 0}
	b := record.Pointer{PageID: 2, Slot: 3}

	require.NoError(t, tr.Insert(record.Text("x"), a))
	require.NoError(t, tr.Insert(record.Text("x"), b))
	require.NoError(t, tr.Insert(record.Text("x"), b))
	require.Equal(t, 1, tr.Len())
	require.Equal(t, []record.Pointer{a, b}, tr.Search(record.Text("x")))

	require.True(t, tr.Remove(record.Text("x"), a))
	require.Equal(t, []record.Pointer{b}, tr.Search(record.Text("x")))
	require.False(t, tr.Remove(record.Text("x"), a))

	require.True(t, tr.Remove(record.Text("x"), b))
	require.Nil(t, tr.Search(record.Text("x")))
	require.Equal(t, 0, tr.Len())
}

func TestTree_NullKeyRejected(t *testing.T) {
	tr := New()
	require.ErrorIs(t, tr.Insert(record.Null(), record.Pointer{}), ErrNullKey)
}

func TestTree_SearchRange(t *testing.T) {
	tr := newTestTree(t, seq(1, 30)...)

	lt := tr.SearchRange(record.Int(4), true, false)
	require.Equal(t, []record.Pointer{ptrFor(1), ptrFor(2), ptrFor(3)}, lt)

	le := tr.SearchRange(record.Int(4), true, true)
	require.Len(t, le, 4)

	gt := tr.SearchRange(record.Int(27), false, false)
	require.Equal(t, []record.Pointer{ptrFor(28), ptrFor(29), ptrFor(30)}, gt)

	ge := tr.SearchRange(record.Int(27), false, true)
	require.Equal(t, ptrFor(27), ge[0])
	require.Len(t, ge, 4)

	require.Empty(t, tr.SearchRange(record.Int(0), true, true))
	require.Len(t, tr.SearchRange(record.Int(0), false, false), 30)
}

func TestTree_Predecessor(t *testing.T) {
	tr := newTestTree(t, 10, 20, 30, 40, 50, 60, 70, 80, 90)

	_, _, ok := tr.Predecessor(record.Int(10))
	require.False(t, ok)

	k, ps, ok := tr.Predecessor(record.Int(11))
	require.True(t, ok)
	require.Equal(t, record.Int(10), k)
	require.Equal(t, []record.Pointer{ptrFor(10)}, ps)

	// separators route equal keys right; the predecessor lives in the previous leaf
	for at, want := range map[int32]int32{40: 30, 70: 60, 41: 40, 1000: 90} {
		k, _, ok := tr.Predecessor(record.Int(at))
		require.True(t, ok)
		require.Equal(t, record.Int(want), k, at)
	}
}

func TestTree_PredecessorAfterDeletes(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 9))
	tr := New()
	var present []int32
	for _, k := range rng.Perm(200) {
		require.NoError(t, tr.Insert(record.Int(int32(k)), ptrFor(int32(k))))
	}
	for k := 0; k < 200; k++ {
		if k%3 == 0 {
			require.True(t, tr.Delete(record.Int(int32(k))))
		} else {
			present = append(present, int32(k))
		}
	}
	require.NoError(t, tr.Check())

	for at := int32(0); at <= 200; at++ {
		i, _ := slices.BinarySearch(present, at)
		k, _, ok := tr.Predecessor(record.Int(at))
		if i == 0 {
			require.False(t, ok, at)
			continue
		}
		require.True(t, ok, at)
		require.Equal(t, record.Int(present[i-1]), k, at)
	}
}

func BenchmarkTree_Insert(b *testing.B) {
	tr := New()
	for i := 0; i < 10000; i++ {
		_ = tr.Insert(record.Int(int32(i)), ptrFor(int32(i)))
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		k := int32(10000 + i)
		_ = tr.Insert(record.Int(k), ptrFor(k))
	}
}
