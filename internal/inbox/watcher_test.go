package inbox

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/ShayCichocki/swarm/pkg/models"
)

func TestParseOutcomes(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    []models.Outcome
		wantErr bool
	}{
		{
			name:  "single yaml",
			input: "specialist_id: sp-1\nsuccess: true\nquality: 0.8\n",
			want:  []models.Outcome{{SpecialistID: "sp-1", Success: true, Quality: 0.8}},
		},
		{
			name:  "yaml list",
			input: "- specialist_id: sp-1\n  success: false\n  quality: 0.2\n- task_id: t1\n  approach: A\n  depositor_id: w1\n  success: true\n  quality: 0.9\n",
			want: []models.Outcome{
				{SpecialistID: "sp-1", Quality: 0.2},
				{TaskID: "t1", Approach: "A", DepositorID: "w1", Success: true, Quality: 0.9},
			},
		},
		{
			name:  "json object",
			input: `{"specialist_id":"sp-2","task_id":"t2","approach":"B","depositor_id":"w2","success":true,"quality":1}`,
			want:  []models.Outcome{{SpecialistID: "sp-2", TaskID: "t2", Approach: "B", DepositorID: "w2", Success: true, Quality: 1}},
		},
		{name: "empty", input: "  \n", wantErr: true},
		{name: "scalar", input: "hello", wantErr: true},
		{name: "syntax error", input: "{specialist_id: [", wantErr: true},
		{name: "no target", input: "success: true\nquality: 0.5\n", wantErr: true},
		{name: "quality out of range", input: "specialist_id: sp-1\nquality: 1.5\n", wantErr: true},
		{name: "wrong type", input: "specialist_id: sp-1\nquality: high\n", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseOutcomes([]byte(tt.input))
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrMalformedOutcome))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIsOutcomeFile(t *testing.T) {
	assert.True(t, isOutcomeFile("/in/a.yaml"))
	assert.True(t, isOutcomeFile("b.YML"))
	assert.True(t, isOutcomeFile("c.json"))
	assert.False(t, isOutcomeFile(".staging.yaml"))
	assert.False(t, isOutcomeFile("notes.txt"))
}

type recorder struct {
	mu       sync.Mutex
	outcomes []models.Outcome
	fail     string
}

func (r *recorder) handle(_ context.Context, o models.Outcome) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail != "" && o.SpecialistID == r.fail {
		return errors.New("rejected")
	}
	r.outcomes = append(r.outcomes, o)
	return nil
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.outcomes)
}

// drop writes content under a dotfile and renames it into place.
func drop(t *testing.T, dir, name, content string) {
	t.Helper()
	tmp := filepath.Join(dir, "."+name)
	require.NoError(t, os.WriteFile(tmp, []byte(content), 0644))
	require.NoError(t, os.Rename(tmp, filepath.Join(dir, name)))
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func TestProcessPending(t *testing.T) {
	dir := t.TempDir()
	rec := &recorder{fail: "sp-bad"}
	w, err := New(dir, rec.handle)
	require.NoError(t, err)

	drop(t, dir, "01.yaml", "specialist_id: sp-1\nsuccess: true\nquality: 0.7\n")
	drop(t, dir, "02.json", `[{"specialist_id":"sp-2","quality":0.1},{"specialist_id":"sp-3","success":true,"quality":0.9}]`)
	drop(t, dir, "03.yaml", "not: [valid")
	drop(t, dir, "04.yaml", "specialist_id: sp-bad\nquality: 0.5\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "readme.txt"), []byte("ignored"), 0644))

	n, err := w.ProcessPending(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, 3, rec.count())
	assert.Equal(t, int64(2), w.Processed())
	assert.Equal(t, int64(2), w.Failed())

	assert.True(t, exists(filepath.Join(dir, ProcessedDir, "01.yaml")))
	assert.True(t, exists(filepath.Join(dir, ProcessedDir, "02.json")))
	assert.True(t, exists(filepath.Join(dir, FailedDir, "03.yaml")))
	assert.True(t, exists(filepath.Join(dir, FailedDir, "04.yaml")))
	assert.True(t, exists(filepath.Join(dir, "readme.txt")))
}

func TestProcessPending_SkipsEmptyFiles(t *testing.T) {
	dir := t.TempDir()
	rec := &recorder{}
	w, err := New(dir, rec.handle)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "partial.yaml"), nil, 0644))

	n, err := w.ProcessPending(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.True(t, exists(filepath.Join(dir, "partial.yaml")))
}

func TestNew_NilHandler(t *testing.T) {
	_, err := New(t.TempDir(), nil)
	assert.Error(t, err)
}

func TestRun_ConsumesExistingAndNewFiles(t *testing.T) {
	defer goleak.VerifyNone(t)

	dir := t.TempDir()
	rec := &recorder{}
	w, err := New(dir, rec.handle)
	require.NoError(t, err)
	assert.Equal(t, dir, w.Dir())

	drop(t, dir, "early.yaml", "specialist_id: sp-early\nsuccess: true\nquality: 0.6\n")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	require.Eventually(t, func() bool { return rec.count() == 1 }, 5*time.Second, 10*time.Millisecond)

	drop(t, dir, "late.yaml", "task_id: t1\napproach: A\ndepositor_id: w1\nsuccess: true\nquality: 0.9\n")
	require.Eventually(t, func() bool { return rec.count() == 2 }, 5*time.Second, 10*time.Millisecond)
	require.Eventually(t, func() bool {
		return exists(filepath.Join(dir, ProcessedDir, "late.yaml"))
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.Equal(t, int64(2), w.Processed())
}
