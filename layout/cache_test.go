package layout

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

type countingMeasurer struct {
	mu    sync.Mutex
	calls int
	cellMeasurer
}

func (m *countingMeasurer) Measure(text string, style Style) float64 {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	return m.cellMeasurer.Measure(text, style)
}

func (m *countingMeasurer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func TestCacheReusesModel(t *testing.T) {
	counter := &countingMeasurer{cellMeasurer: cellMeasurer{unit: 1}}
	fonts := Fonts{Body: counter, TextSize: 2, ID: "counting"}
	c := NewCache(0, 0)

	first := c.Layout("{日本;にほん}abc", Constraints{MaxWidth: 5}, fonts)
	calls := counter.count()
	second := c.Layout("{日本;にほん}abc", Constraints{MaxWidth: 5}, fonts)
	require.Equal(t, first, second)
	require.Equal(t, calls, counter.count())
	require.Equal(t, 1, c.Len())

	c.Layout("{日本;にほん}abc", Constraints{MaxWidth: 6}, fonts)
	require.Equal(t, 2, c.Len())

	// 对齐与行数限制不参与断行，不产生新条目。
	c.Layout("{日本;にほん}abc", Constraints{MaxWidth: 5, Align: AlignEnd, MaxLines: 1}, fonts)
	require.Equal(t, 2, c.Len())

	c.Flush()
	require.Zero(t, c.Len())
}

func TestCacheUnboundedKeysMatch(t *testing.T) {
	c := NewCache(0, 0)
	c.Layout("abc", Constraints{MaxWidth: 0}, testFonts())
	c.Layout("abc", Constraints{MaxWidth: Unbounded}, testFonts())
	require.Equal(t, 1, c.Len())
}

func TestCacheSkipsAnonymousFonts(t *testing.T) {
	c := NewCache(DefaultCacheExpiration, DefaultCacheCleanupInterval)
	fonts := testFonts()
	fonts.ID = ""
	m := c.Layout("abc", Constraints{MaxWidth: 2}, fonts)
	require.Len(t, m.Lines, 2)
	require.Zero(t, c.Len())
}

func TestNilCacheComputes(t *testing.T) {
	var c *Cache
	m := c.Layout("ab<br>c", Constraints{}, testFonts())
	require.Equal(t, []string{"ab", "c"}, lineTexts(m))
}

func TestCacheConcurrentUse(t *testing.T) {
	c := NewCache(0, 0)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				m := c.Layout("{漢字;かんじ}を読む。", Constraints{MaxWidth: 6}, testFonts())
				if len(m.Lines) == 0 {
					t.Error("empty model")
				}
			}
		}()
	}
	wg.Wait()
	require.Equal(t, 1, c.Len())
}

func TestNilCacheFlush(t *testing.T) {
	var c *Cache
	require.NotPanics(t, c.Flush)
	require.Equal(t, []string{"abc"}, lineTexts(c.Layout("abc", Constraints{}, testFonts())))
}
