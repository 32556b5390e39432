package watcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func nextChange(t *testing.T, changes <-chan Change) Change {
	t.Helper()
	select {
	case c, ok := <-changes:
		require.True(t, ok, "channel closed")
		return c
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for file change event")
		return Change{}
	}
}

func TestChangeType_String(t *testing.T) {
	assert.Equal(t, "created", ChangeCreated.String())
	assert.Equal(t, "updated", ChangeUpdated.String())
	assert.Equal(t, "deleted", ChangeDeleted.String())
	assert.Equal(t, "unknown", ChangeType(42).String())
}

func TestWatcher_Scan(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "guide.md"), "# Guide\n")
	writeFile(t, filepath.Join(root, "notes", "todo.txt"), "todo\n")
	writeFile(t, filepath.Join(root, ".git", "config"), "[core]\n")
	writeFile(t, filepath.Join(root, ".draft.md"), "# Draft\n")

	changes, err := New(root).Scan(context.Background())

	require.NoError(t, err)
	paths := make([]string, 0, len(changes))
	for _, c := range changes {
		assert.Equal(t, ChangeCreated, c.Type)
		assert.NotEmpty(t, c.Content)
		paths = append(paths, c.Path)
	}
	assert.ElementsMatch(t, []string{
		filepath.Join(root, "guide.md"),
		filepath.Join(root, "notes", "todo.txt"),
	}, paths)
}

func TestWatcher_Scan_RootErrors(t *testing.T) {
	_, err := New("/non/existent/path").Scan(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "root path error")

	file := filepath.Join(t.TempDir(), "file.md")
	writeFile(t, file, "x")
	_, err = New(file).Scan(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a directory")
}

func TestWatcher_Watch(t *testing.T) {
	t.Run("reports created, updated and deleted files", func(t *testing.T) {
		root := t.TempDir()
		w := New(root)
		defer w.Close()
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		changes, err := w.Watch(ctx)
		require.NoError(t, err)

		path := filepath.Join(root, "new.md")
		writeFile(t, path, "# New\n")
		c := nextChange(t, changes)
		assert.Equal(t, path, c.Path)
		assert.Contains(t, []ChangeType{ChangeCreated, ChangeUpdated}, c.Type)

		require.NoError(t, os.Remove(path))
		for c.Type != ChangeDeleted {
			c = nextChange(t, changes)
		}
		assert.Equal(t, path, c.Path)
	})

	t.Run("follows new subdirectories", func(t *testing.T) {
		root := t.TempDir()
		w := New(root)
		defer w.Close()
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		changes, err := w.Watch(ctx)
		require.NoError(t, err)

		sub := filepath.Join(root, "sub")
		require.NoError(t, os.Mkdir(sub, 0755))
		path := filepath.Join(sub, "deep.md")
		require.Eventually(t, func() bool {
			writeFile(t, path, "# Deep\n")
			select {
			case c := <-changes:
				return c.Path == path
			case <-time.After(100 * time.Millisecond):
				return false
			}
		}, 3*time.Second, 10*time.Millisecond)
	})

	t.Run("closes channel when context is cancelled", func(t *testing.T) {
		w := New(t.TempDir())
		defer w.Close()
		ctx, cancel := context.WithCancel(context.Background())

		changes, err := w.Watch(ctx)
		require.NoError(t, err)
		cancel()

		select {
		case _, ok := <-changes:
			assert.False(t, ok)
		case <-time.After(time.Second):
			t.Fatal("channel did not close after context cancellation")
		}
	})

	t.Run("returns error for non-existent directory", func(t *testing.T) {
		changes, err := New("/non/existent/path").Watch(context.Background())

		assert.Error(t, err)
		assert.Nil(t, changes)
	})

	t.Run("returns error when closed", func(t *testing.T) {
		w := New(t.TempDir())
		require.NoError(t, w.Close())
		require.NoError(t, w.Close())

		changes, err := w.Watch(context.Background())

		assert.ErrorIs(t, err, ErrClosed)
		assert.Nil(t, changes)
	})
}

func TestIsHidden(t *testing.T) {
	tests := []struct {
		path     string
		expected bool
	}{
		{".hidden", true},
		{"path/to/.hidden", true},
		{"/path/.hidden/file.md", true},
		{"dir/.git/config", true},
		{"file.md", false},
		{"path/to/file.md", false},
		{".", false},
		{"..", false},
		{"path/../file", false},
		{"", false},
		{"/", false},
		{"file.hidden", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.expected, isHidden(tt.path))
		})
	}
}

func TestWatcher_HiddenRelativeToRoot(t *testing.T) {
	root := filepath.Join(t.TempDir(), ".notes")
	require.NoError(t, os.Mkdir(root, 0755))
	w := New(root)

	assert.False(t, w.hidden(filepath.Join(root, "guide.md")))
	assert.True(t, w.hidden(filepath.Join(root, ".cache", "x.md")))
}

func TestHandleFsEvent(t *testing.T) {
	root := t.TempDir()
	file := filepath.Join(root, "guide.md")
	writeFile(t, file, "# Guide\n")
	hidden := filepath.Join(root, ".swap.md")
	writeFile(t, hidden, "x")
	dir := filepath.Join(root, "dir")
	require.NoError(t, os.Mkdir(dir, 0755))
	gone := filepath.Join(root, "gone.md")

	tests := []struct {
		name     string
		path     string
		op       fsnotify.Op
		expected *ChangeType
	}{
		{"create file", file, fsnotify.Create, ptr(ChangeCreated)},
		{"write file", file, fsnotify.Write, ptr(ChangeUpdated)},
		{"write and chmod", file, fsnotify.Write | fsnotify.Chmod, ptr(ChangeUpdated)},
		{"remove file", gone, fsnotify.Remove, ptr(ChangeDeleted)},
		{"rename file", gone, fsnotify.Rename, ptr(ChangeDeleted)},
		{"chmod only", file, fsnotify.Chmod, nil},
		{"create directory", dir, fsnotify.Create, nil},
		{"hidden file", hidden, fsnotify.Write, nil},
		{"write vanished file", gone, fsnotify.Write, nil},
	}

	w := New(root)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			change := w.handleFsEvent(fsnotify.Event{Name: tt.path, Op: tt.op})

			if tt.expected == nil {
				assert.Nil(t, change)
				return
			}
			require.NotNil(t, change)
			assert.Equal(t, *tt.expected, change.Type)
			assert.Equal(t, tt.path, change.Path)
			if change.Type != ChangeDeleted {
				assert.Equal(t, "# Guide\n", string(change.Content))
			}
		})
	}
}

func ptr(t ChangeType) *ChangeType {
	return &t
}
