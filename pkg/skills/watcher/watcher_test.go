package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingRefresher struct {
	calls atomic.Int64
}

func (c *countingRefresher) Refresh(context.Context) { c.calls.Add(1) }

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func startWatcher(t *testing.T, roots []string, debounce time.Duration) (*Watcher, *countingRefresher) {
	t.Helper()
	r := &countingRefresher{}
	w := New(r, roots, WithDebounce(debounce))
	require.NoError(t, w.Start(context.Background()))
	t.Cleanup(func() { _ = w.Stop() })
	return w, r
}

func TestStartWatchesRootsAndSubdirectories(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "alpha", "SKILL.md"), "x")
	writeFile(t, filepath.Join(root, "beta", "SKILL.md"), "x")
	writeFile(t, filepath.Join(root, "notes.txt"), "x")

	w, _ := startWatcher(t, []string{root, filepath.Join(root, "missing"), ""}, 20*time.Millisecond)

	assert.True(t, w.IsRunning())
	assert.Equal(t, 3, w.WatchedCount())
}

func TestStartTwiceFails(t *testing.T) {
	w, _ := startWatcher(t, []string{t.TempDir()}, 20*time.Millisecond)
	assert.Error(t, w.Start(context.Background()))
}

func TestSkillFileChangeTriggersRefresh(t *testing.T) {
	root := t.TempDir()
	skill := filepath.Join(root, "alpha", "SKILL.md")
	writeFile(t, skill, "v1")

	_, r := startWatcher(t, []string{root}, 20*time.Millisecond)

	writeFile(t, skill, "v2")
	require.Eventually(t, func() bool { return r.calls.Load() >= 1 }, 2*time.Second, 10*time.Millisecond)
}

func TestBurstIsCoalesced(t *testing.T) {
	root := t.TempDir()
	skill := filepath.Join(root, "alpha", "SKILL.md")
	writeFile(t, skill, "v0")

	_, r := startWatcher(t, []string{root}, 300*time.Millisecond)

	for i := 0; i < 20; i++ {
		writeFile(t, skill, "v"+string(rune('a'+i)))
	}
	require.Eventually(t, func() bool { return r.calls.Load() >= 1 }, 2*time.Second, 10*time.Millisecond)
	time.Sleep(400 * time.Millisecond)
	assert.LessOrEqual(t, r.calls.Load(), int64(2))
}

func TestNewSkillDirectoryIsWatchedAndRefreshes(t *testing.T) {
	root := t.TempDir()
	w, r := startWatcher(t, []string{root}, 20*time.Millisecond)
	require.Equal(t, 1, w.WatchedCount())

	dir := filepath.Join(root, "fresh")
	require.NoError(t, os.Mkdir(dir, 0o755))
	require.Eventually(t, func() bool { return w.WatchedCount() == 2 }, 2*time.Second, 10*time.Millisecond)

	writeFile(t, filepath.Join(dir, "SKILL.md"), "x")
	require.Eventually(t, func() bool { return r.calls.Load() >= 1 }, 2*time.Second, 10*time.Millisecond)
}

func TestRemovingSkillDirectoryRefreshes(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "alpha", "SKILL.md"), "x")

	w, r := startWatcher(t, []string{root}, 20*time.Millisecond)
	require.Equal(t, 2, w.WatchedCount())

	require.NoError(t, os.RemoveAll(filepath.Join(root, "alpha")))
	require.Eventually(t, func() bool { return r.calls.Load() >= 1 }, 2*time.Second, 10*time.Millisecond)
	require.Eventually(t, func() bool { return w.WatchedCount() == 1 }, 2*time.Second, 10*time.Millisecond)
}

func TestUnrelatedFileDoesNotRefresh(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "alpha", "SKILL.md"), "x")

	_, r := startWatcher(t, []string{root}, 20*time.Millisecond)

	writeFile(t, filepath.Join(root, "alpha", "notes.txt"), "x")
	time.Sleep(200 * time.Millisecond)
	assert.Zero(t, r.calls.Load())
}

func TestRemovingRootLevelFileDoesNotRefresh(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "alpha", "SKILL.md"), "x")
	writeFile(t, filepath.Join(root, "README.md"), "x")

	_, r := startWatcher(t, []string{root}, 20*time.Millisecond)

	require.NoError(t, os.Remove(filepath.Join(root, "README.md")))
	time.Sleep(200 * time.Millisecond)
	assert.Zero(t, r.calls.Load())
}

func TestStopIsIdempotent(t *testing.T) {
	r := &countingRefresher{}
	w := New(r, []string{t.TempDir()})
	require.NoError(t, w.Start(context.Background()))

	require.NoError(t, w.Stop())
	assert.False(t, w.IsRunning())
	require.NoError(t, w.Stop())
}

func TestRequestCoalescesWhenQueued(t *testing.T) {
	w := New(&countingRefresher{}, nil)
	w.requests = make(chan struct{}, 1)
	w.request()
	w.request()
	w.request()
	assert.Len(t, w.requests, 1)
}
