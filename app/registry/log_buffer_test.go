package registry

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLogBuffer(t *testing.T) {
	t.Run("keeps last lines", func(t *testing.T) {
		b := NewLogBuffer(3)
		for i := 1; i <= 5; i++ {
			b.Add(fmt.Sprintf("line %d\n", i))
		}
		assert.Equal(t, []string{"line 3", "line 4", "line 5"}, b.Lines())
		assert.Equal(t, "line 4\nline 5", b.Tail(2))
	})

	t.Run("skips empty and disabled", func(t *testing.T) {
		b := NewLogBuffer(3)
		b.Add("")
		b.Add("\r\n")
		assert.Empty(t, b.Lines())

		d := NewLogBuffer(0)
		d.Add("something")
		assert.Empty(t, d.Lines())
	})

	t.Run("invalid utf8 replaced", func(t *testing.T) {
		b := NewLogBuffer(3)
		b.Add("bad \xff byte")
		assert.Equal(t, []string{"bad � byte"}, b.Lines())
	})

	t.Run("concurrent adds", func(t *testing.T) {
		b := NewLogBuffer(DefaultLogLines)
		var wg sync.WaitGroup
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				for j := 0; j < 20; j++ {
					b.Add(fmt.Sprintf("g%d-%d", i, j))
				}
			}(i)
		}
		wg.Wait()
		assert.Len(t, b.Lines(), DefaultLogLines)
	})
}
