package similarity

import (
	"context"
	"fmt"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/claimlens/similarityd/internal/fingerprint"
)

// lshTestConfig forces every approximate query through the band tables.
func lshTestConfig() Config {
	cfg := DefaultConfig()
	cfg.ExhaustiveLimit = 0
	return cfg
}

func generate(text string) fingerprint.Fingerprint {
	g := fingerprint.NewGenerator(nil, nil)
	return g.Generate([]byte(text), testFeatures(), text)
}

func TestIndexAddGetRemove(t *testing.T) {
	x, err := NewIndex(DefaultConfig())
	require.NoError(t, err)

	fp := generate("hóa đơn viện phí")
	x.Add("D1", fp, Metadata{DocumentType: "invoice", Language: "vi"})

	e, ok := x.Get("D1")
	require.True(t, ok)
	assert.Equal(t, "D1", e.DocumentID)
	assert.Equal(t, "invoice", e.Metadata.DocumentType)
	assert.Equal(t, fp, e.Fingerprint)
	assert.False(t, e.InsertedAt.IsZero())
	assert.Equal(t, 1, x.Len())

	x.Remove("D1")
	_, ok = x.Get("D1")
	assert.False(t, ok)
	assert.Zero(t, x.Len())

	// Removing an absent id is a no-op, not an error.
	x.Remove("D1")
}

func TestIndexSequenceMonotonic(t *testing.T) {
	x, err := NewIndex(DefaultConfig())
	require.NoError(t, err)

	x.Add("A", generate("văn bản một"), Metadata{})
	x.Add("B", generate("văn bản hai"), Metadata{})

	a, _ := x.Get("A")
	b, _ := x.Get("B")
	assert.Less(t, a.Sequence, b.Sequence)
}

func TestIndexReplaceResyncsLSH(t *testing.T) {
	x, err := NewIndex(lshTestConfig())
	require.NoError(t, err)

	oldFp := generate("hóa đơn viện phí tháng một")
	newFp := generate("biên lai tạm ứng khác hẳn")

	x.Add("D1", oldFp, Metadata{})
	require.Contains(t, x.Candidates(oldFp, true), "D1")

	x.Add("D1", newFp, Metadata{})
	assert.Equal(t, 1, x.Len())
	assert.NotContains(t, x.Candidates(oldFp, true), "D1", "replacing an entry must drop its old band memberships")
	assert.Contains(t, x.Candidates(newFp, true), "D1")
}

func TestIndexRemovedDocumentNeverACandidate(t *testing.T) {
	x, err := NewIndex(lshTestConfig())
	require.NoError(t, err)

	fpA := generate("tài liệu thứ nhất")
	fpB := generate("tài liệu thứ nhì")
	x.Add("A", fpA, Metadata{})
	x.Add("B", fpB, Metadata{})
	x.Remove("A")

	assert.NotContains(t, x.Candidates(fpA, true), "A")
	assert.NotContains(t, x.Candidates(fpA, false), "A")
}

func TestIndexExhaustiveBelowLimit(t *testing.T) {
	cfg := DefaultConfig() // limit 1000
	x, err := NewIndex(cfg)
	require.NoError(t, err)

	x.Add("A", generate("một"), Metadata{})
	x.Add("B", generate("hai"), Metadata{})

	// Below the limit even approximate queries compare against everything,
	// including documents sharing no band with the query.
	cands := x.Candidates(generate("hoàn toàn không liên quan"), true)
	assert.ElementsMatch(t, []string{"A", "B"}, cands)
}

func TestIndexRebuildPreservesCandidates(t *testing.T) {
	x, err := NewIndex(lshTestConfig())
	require.NoError(t, err)

	fps := make([]fingerprint.Fingerprint, 0, 10)
	for i := 0; i < 10; i++ {
		fp := generate(fmt.Sprintf("chứng từ số %d nội dung riêng", i))
		fps = append(fps, fp)
		x.Add(fmt.Sprintf("doc-%d", i), fp, Metadata{})
	}

	before := make([][]string, len(fps))
	for i, fp := range fps {
		before[i] = x.Candidates(fp, true)
		sort.Strings(before[i])
	}

	cfg := lshTestConfig()
	require.NoError(t, x.Rebuild(context.Background(), cfg.Bands, cfg.RowsPerBand, cfg.HashScale))

	for i, fp := range fps {
		after := x.Candidates(fp, true)
		sort.Strings(after)
		assert.Equal(t, before[i], after, "rebuild with the same shape must preserve candidate sets")
	}
}

func TestIndexRebuildCancellable(t *testing.T) {
	x, err := NewIndex(lshTestConfig())
	require.NoError(t, err)

	fp := generate("hồ sơ bồi thường")
	x.Add("D1", fp, Metadata{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	cfg := lshTestConfig()
	err = x.Rebuild(ctx, cfg.Bands, cfg.RowsPerBand, cfg.HashScale)
	require.ErrorIs(t, err, context.Canceled)

	// The old structure stays intact on cancellation.
	assert.Contains(t, x.Candidates(fp, true), "D1")
}

func TestIndexRebuildRejectsBadShape(t *testing.T) {
	x, err := NewIndex(DefaultConfig())
	require.NoError(t, err)
	assert.ErrorIs(t, x.Rebuild(context.Background(), 0, 5, 16), ErrInvalidConfig)
}
