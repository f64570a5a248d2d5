package app

import (
	"bytes"
	"crypto/rand"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/mandelsoft/vfs/pkg/memoryfs"
	"github.com/mandelsoft/vfs/pkg/vfs"
	"github.com/stretchr/testify/require"

	actx "go.hackfix.me/portcullis/app/context"
	"go.hackfix.me/portcullis/db"
)

var timeNow = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

func timeNowFn() time.Time {
	return timeNow
}

type testApp struct {
	*App
	fs             vfs.FileSystem
	stdout, stderr *safeBuffer
	env            *mockEnv
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	// A unique name per app, to avoid clashing of in-memory SQLite DBs.
	rndName := make([]byte, 12)
	_, err := rand.Read(rndName)
	require.NoError(t, err)

	// Not using just :memory: to avoid 'no such table' issue.
	// See https://github.com/mattn/go-sqlite3#faq
	d, err := db.Open(t.Context(),
		fmt.Sprintf("file:portcullis-%x?mode=memory&cache=shared", rndName), timeNowFn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })

	var (
		stdout, stderr = newSafeBuffer(), newSafeBuffer()
		env            = &mockEnv{env: map[string]string{}}
		fs             = memoryfs.New()
	)

	app, err := New("portcullis", "/config.json", "/data",
		WithTimeNow(timeNowFn),
		WithEnv(env),
		WithDB(d),
		WithContext(t.Context()),
		WithFDs(&bytes.Buffer{}, stdout, stderr),
		WithFS(fs),
		WithLogger(false),
	)
	require.NoError(t, err)

	return &testApp{App: app, fs: fs, stdout: stdout, stderr: stderr, env: env}
}

// Run executes the app with the given arguments. The output buffers are reset
// before each run, so they only contain the output of the last command.
func (ta *testApp) Run(args ...string) error {
	ta.stdout.Reset()
	ta.stderr.Reset()
	return ta.App.Run(args)
}

// mustRun is like Run, but fails the test on error.
func (ta *testApp) mustRun(t *testing.T, args ...string) {
	t.Helper()
	require.NoError(t, ta.Run(args...), "args: %v; stderr: %s", args, ta.stderr.String())
}

func (ta *testApp) writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, vfs.WriteFile(ta.fs, path, []byte(content), 0o644))
}

// tableRows splits table output into rows of whitespace-separated fields,
// skipping the header.
func tableRows(out string) [][]string {
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) < 2 {
		return nil
	}
	rows := make([][]string, 0, len(lines)-1)
	for _, l := range lines[1:] {
		rows = append(rows, strings.Fields(l))
	}
	return rows
}

type mockEnv struct {
	mx  sync.RWMutex
	env map[string]string
}

var _ actx.Environment = (*mockEnv)(nil)

func (me *mockEnv) Get(key string) string {
	me.mx.RLock()
	defer me.mx.RUnlock()
	return me.env[key]
}

func (me *mockEnv) Set(key, val string) error {
	me.mx.Lock()
	defer me.mx.Unlock()
	me.env[key] = val
	return nil
}

// safeBuffer is a thread-safe buffer.
type safeBuffer struct {
	mx  sync.RWMutex
	buf *bytes.Buffer
}

var _ io.Writer = (*safeBuffer)(nil)

func newSafeBuffer() *safeBuffer {
	return &safeBuffer{buf: &bytes.Buffer{}}
}

func (b *safeBuffer) Write(p []byte) (n int, err error) {
	b.mx.Lock()
	defer b.mx.Unlock()
	return b.buf.Write(p)
}

func (b *safeBuffer) Reset() {
	b.mx.Lock()
	defer b.mx.Unlock()
	b.buf.Reset()
}

func (b *safeBuffer) String() string {
	b.mx.RLock()
	defer b.mx.RUnlock()
	return b.buf.String()
}
