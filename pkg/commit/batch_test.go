package commit

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/albertocavalcante/srcmeta/pkg/metadata"
	"github.com/albertocavalcante/srcmeta/pkg/section"
	"github.com/albertocavalcante/srcmeta/pkg/section/sectiontest"
)

func TestBatch_IsolatesFailures(t *testing.T) {
	mem := sectiontest.NewMemory()
	mem.AddBinary("/bin/one", map[string][]byte{section.DefaultName: []byte(unitA)})
	mem.AddBinary("/bin/two", map[string][]byte{".text": []byte("code")})
	mem.AddBinary("/bin/three", map[string][]byte{section.DefaultName: []byte(unitA + unitB)})
	c := &Committer{IO: mem, NulSeparators: true}
	policy := DefaultBackupPolicy()

	b := &Batch{BackupSuffix: policy.Suffix}
	summary := b.Run(context.Background(), []string{"/bin/one", "/bin/two", "/bin/three"},
		func(ctx context.Context, bin string) error {
			_, err := c.Rewrite(ctx, bin, policy, metadata.Merge)
			return err
		})

	assert.Equal(t, 3, summary.Processed)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 0, summary.Skipped)
	require.Len(t, summary.Outcomes, 3)
	assert.NoError(t, summary.Outcomes[0].Err)
	assert.ErrorIs(t, summary.Outcomes[1].Err, section.ErrSectionNotFound)
	assert.NoError(t, summary.Outcomes[2].Err)

	require.Error(t, summary.Err())
	assert.ErrorIs(t, summary.Err(), section.ErrSectionNotFound)

	three, _ := mem.Section("/bin/three", section.DefaultName)
	docs, err := metadata.Decode(three)
	require.NoError(t, err)
	require.Len(t, docs, 1, "the binary after the failing one is still processed")
}

func TestBatch_SkipsBackups(t *testing.T) {
	var seen []string
	b := &Batch{BackupSuffix: ".bak"}
	summary := b.Run(context.Background(), []string{"prog", "prog.bak", "lib.so", "lib.so.bak"},
		func(_ context.Context, bin string) error {
			seen = append(seen, bin)
			return nil
		})

	assert.Equal(t, []string{"prog", "lib.so"}, seen)
	assert.Equal(t, 2, summary.Skipped)
	assert.Equal(t, 2, summary.Processed)
	assert.True(t, summary.Outcomes[1].Skipped)
	assert.NoError(t, summary.Err())
}

func TestBatch_SuffixWithoutDot(t *testing.T) {
	var seen []string
	b := &Batch{BackupSuffix: "~"}
	b.Run(context.Background(), []string{"prog", "prog~"}, func(_ context.Context, bin string) error {
		seen = append(seen, bin)
		return nil
	})
	assert.Equal(t, []string{"prog"}, seen)
}

func TestBatch_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	b := &Batch{}
	summary := b.Run(ctx, []string{"a", "b", "c"}, func(context.Context, string) error {
		calls++
		cancel()
		return nil
	})

	assert.Equal(t, 1, calls)
	assert.Equal(t, 2, summary.Failed)
	assert.True(t, errors.Is(summary.Outcomes[2].Err, context.Canceled))
}
