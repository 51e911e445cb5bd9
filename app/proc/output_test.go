package proc

import (
	"bytes"
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogPrefixer_Write(t *testing.T) {
	out := bytes.NewBuffer(nil)
	prefixer := NewLogPrefixer(out, "keells_vegetables_1714557600")

	n, err := prefixer.Write([]byte("first line of the output\n"))
	require.NoError(t, err)
	assert.Equal(t, 25, n)

	n, err = prefixer.Write([]byte("second line\nthird"))
	require.NoError(t, err)
	assert.Equal(t, 17, n)

	assert.Equal(t, "{keells_vegetables_1714557600} first line of the output\n"+
		"{keells_vegetables_1714557600} second line\n{keells_vegetables_1714557600} third", out.String())
}

func TestLogPrefixer_prefixFor(t *testing.T) {
	assert.Equal(t, []byte("{a_b_1} "), prefixFor("a_b_1"))
	assert.Equal(t, []byte("{supermarket_frozen-and-chilled-f...} "), prefixFor("supermarket_frozen-and-chilled-foods_1714557600"))
}

func TestLineWriter(t *testing.T) {
	var mu sync.Mutex
	lines := []string{}
	w := NewLineWriter(func(l string) {
		mu.Lock()
		defer mu.Unlock()
		lines = append(lines, l)
	})

	_, err := w.Write([]byte("first\nsec"))
	require.NoError(t, err)
	assert.Equal(t, []string{"first"}, lines)

	_, err = w.Write([]byte("ond\r\n\nbad \xff\nlast"))
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second", "bad �"}, lines)

	w.Flush()
	w.Flush()
	assert.Equal(t, []string{"first", "second", "bad �", "last"}, lines)
}

func TestLineWriter_LongLineSplit(t *testing.T) {
	lines := []string{}
	w := NewLineWriter(func(l string) { lines = append(lines, l) })

	chunk := bytes.Repeat([]byte("x"), 1000)
	for range MaxLineLen/1000 + 1 {
		_, err := w.Write(chunk)
		require.NoError(t, err)
	}
	require.Len(t, lines, 1, "line over the limit sent without newline")
	assert.Len(t, lines[0], MaxLineLen)
	assert.Less(t, len(w.partial), MaxLineLen)

	_, err := w.Write([]byte("tail\nnext\n"))
	require.NoError(t, err)
	require.Len(t, lines, 3)
	assert.Len(t, lines[1], (MaxLineLen/1000+1)*1000-MaxLineLen+len("tail"))
	assert.Equal(t, "next", lines[2])
}

func TestEnv(t *testing.T) {
	t.Setenv("CRAWL_TEST_VAR", "orig")
	env := Env(map[string]string{"CRAWL_TEST_VAR": "new", "MAX_ITEMS": "10"})
	assert.Contains(t, env, "CRAWL_TEST_VAR=new")
	assert.NotContains(t, env, "CRAWL_TEST_VAR=orig")
	assert.Contains(t, env, "MAX_ITEMS=10")
	assert.Len(t, env, len(os.Environ())+1)
}
