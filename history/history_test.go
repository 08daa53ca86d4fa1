package history

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"megafacil/models"
)

const sampleCSV = `concurso,data,n1,n2,n3,n4,n5,n6
3,2024-01-10,5,10,15,20,25,30
1,2024-01-03,1,2,3,4,5,6
2,2024-01-06,7,8,9,10,11,12
4,2024-01-13,1,1,2,3,4,5
5,2024-01-16,0,2,3,4,5,6
6,2024-01-20,1,2,3,4,5,61
x,2024-01-23,1,2,3,4,5,6
-1,2024-01-23,1,2,3,4,5,6
7,2024-01-27,1,2,3,4,5,
`

func writeFile(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "mega_sena.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestParseCSV_FiltersAndSorts(t *testing.T) {
	draws, err := ParseCSV(strings.NewReader(sampleCSV))
	require.NoError(t, err)

	require.Len(t, draws, 3)
	assert.Equal(t, int64(1), draws[0].SequenceID)
	assert.Equal(t, int64(2), draws[1].SequenceID)
	assert.Equal(t, int64(3), draws[2].SequenceID)
	assert.Equal(t, [6]int{5, 10, 15, 20, 25, 30}, draws[2].Numbers)
	assert.Equal(t, int64(3), LastSequenceID(draws))
}

func TestParseCSV_DuplicateSequenceKeepsLast(t *testing.T) {
	content := "concurso,n1,n2,n3,n4,n5,n6\n1,1,2,3,4,5,6\n1,7,8,9,10,11,12\n"
	draws, err := ParseCSV(strings.NewReader(content))
	require.NoError(t, err)

	require.Len(t, draws, 1)
	assert.Equal(t, [6]int{7, 8, 9, 10, 11, 12}, draws[0].Numbers)
}

func TestParseCSV_MissingColumn(t *testing.T) {
	_, err := ParseCSV(strings.NewReader("concurso,n1,n2,n3,n4,n5\n1,1,2,3,4,5\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "n6")
}

func TestParseCSV_HeaderOnly(t *testing.T) {
	draws, err := ParseCSV(strings.NewReader("concurso,n1,n2,n3,n4,n5,n6\n"))
	require.NoError(t, err)
	assert.Empty(t, draws)
	assert.Equal(t, int64(0), LastSequenceID(draws))
}

func TestCSVProvider_MissingFile(t *testing.T) {
	provider := NewCSVProvider(filepath.Join(t.TempDir(), "absent.csv"))

	_, err := provider.Load(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrHistoryUnavailable))
}

func TestCSVProvider_Load(t *testing.T) {
	path := writeFile(t, t.TempDir(), sampleCSV)

	draws, err := NewCSVProvider(path).Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, draws, 3)
}

// countingProvider counts loads and returns one draw per load so reloads are visible
type countingProvider struct {
	mu    sync.Mutex
	loads int
}

func (p *countingProvider) Load(_ context.Context) ([]models.Draw, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.loads++
	return []models.Draw{{SequenceID: int64(p.loads), Numbers: [6]int{1, 2, 3, 4, 5, 6}}}, nil
}

type staticCheck struct {
	version string
	err     error
}

func (s *staticCheck) Version() (string, error) {
	return s.version, s.err
}

func TestCache_ReloadsOnlyWhenVersionChanges(t *testing.T) {
	ctx := context.Background()
	source := &countingProvider{}
	check := &staticCheck{version: "v1"}
	cache := NewCache(source, check)

	draws, err := cache.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), draws[0].SequenceID)

	_, err = cache.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, source.loads)

	check.version = "v2"
	draws, err = cache.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, source.loads)
	assert.Equal(t, int64(2), draws[0].SequenceID)
}

func TestCache_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	cache := NewCache(&countingProvider{}, &staticCheck{version: "v1"})

	draws, err := cache.Load(ctx)
	require.NoError(t, err)
	draws[0].SequenceID = 99

	again, err := cache.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), again[0].SequenceID)
}

func TestCache_PropagatesCheckError(t *testing.T) {
	check := &staticCheck{err: models.ErrHistoryUnavailable}
	_, err := NewCache(&countingProvider{}, check).Load(context.Background())
	assert.True(t, errors.Is(err, models.ErrHistoryUnavailable))
}

func TestModTimeCheck(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, sampleCSV)
	check := NewModTimeCheck(path)

	first, err := check.Version()
	require.NoError(t, err)

	same, err := check.Version()
	require.NoError(t, err)
	assert.Equal(t, first, same)

	later := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(path, later, later))
	changed, err := check.Version()
	require.NoError(t, err)
	assert.NotEqual(t, first, changed)

	_, err = NewModTimeCheck(filepath.Join(dir, "absent.csv")).Version()
	assert.True(t, errors.Is(err, models.ErrHistoryUnavailable))
}

func TestCacheWithModTimeCheck_PicksUpRewrites(t *testing.T) {
	ctx := context.Background()
	path := writeFile(t, t.TempDir(), "concurso,n1,n2,n3,n4,n5,n6\n1,1,2,3,4,5,6\n")
	cache := NewCache(NewCSVProvider(path), NewModTimeCheck(path))

	draws, err := cache.Load(ctx)
	require.NoError(t, err)
	require.Len(t, draws, 1)

	require.NoError(t, os.WriteFile(path, []byte("concurso,n1,n2,n3,n4,n5,n6\n1,1,2,3,4,5,6\n2,7,8,9,10,11,12\n"), 0o644))
	later := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(path, later, later))

	draws, err = cache.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, draws, 2)
}

func TestWatchCheck_BumpsOnWrite(t *testing.T) {
	path := writeFile(t, t.TempDir(), sampleCSV)

	check, err := NewWatchCheck(path)
	require.NoError(t, err)
	defer check.Close()

	first, err := check.Version()
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte(sampleCSV+"8,1,2,3,4,5,6\n"), 0o644))

	assert.Eventually(t, func() bool {
		v, err := check.Version()
		return err == nil && v != first
	}, 5*time.Second, 20*time.Millisecond)

	assert.NoError(t, check.Close())
	assert.NoError(t, check.Close())
}

func TestWatchCheck_IgnoresSiblingFiles(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, sampleCSV)

	check, err := NewWatchCheck(path)
	require.NoError(t, err)
	defer check.Close()

	first, err := check.Version()
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.csv"), []byte("x"), 0o644))
	time.Sleep(200 * time.Millisecond)

	v, err := check.Version()
	require.NoError(t, err)
	assert.Equal(t, first, v)
}
