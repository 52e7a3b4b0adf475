package excel

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/totvocab/internal/store"
	"github.com/example/totvocab/pkg/models"
)

func writeTempCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "words.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestImportWordsFromCSV(t *testing.T) {
	st := store.NewMemoryStore()
	ctx := context.Background()

	csv := "词语,分类,场景,发音,备注\n" +
		"汽车,交通,在马路上,qì chē,第一个交通词\n" +
		"小狗,动物,邻居家的狗,,\n" +
		"嗯嗯,没有这个分类,,,\n"
	config := DefaultImportConfig(writeTempCSV(t, csv))

	result, err := ImportWords(ctx, st, config)
	require.NoError(t, err)
	assert.Equal(t, 3, result.TotalProcessed)
	assert.Equal(t, 3, result.Created)
	assert.Equal(t, 0, result.Skipped)
	assert.Empty(t, result.Errors)

	transport, err := st.GetWordsByCategory(ctx, models.CategoryTransport)
	require.NoError(t, err)
	require.Len(t, transport, 1)
	assert.Equal(t, "汽车", transport[0].Word)
	assert.Equal(t, "在马路上", transport[0].Context)
	assert.Equal(t, "qì chē", transport[0].Pronunciation)

	// Unknown categories land in 其他
	other, err := st.GetWordsByCategory(ctx, models.CategoryOther)
	require.NoError(t, err)
	require.Len(t, other, 1)
	assert.Equal(t, "嗯嗯", other[0].Word)
}

func TestImportWordsSkipsExisting(t *testing.T) {
	st := store.NewMemoryStore()
	ctx := context.Background()

	_, err := st.AddWord(ctx, models.WordFields{Word: "汽车", Category: models.CategoryTransport})
	require.NoError(t, err)

	csv := "词语,分类\n汽车,交通\n救护车,交通\n"
	result, err := ImportWords(ctx, st, DefaultImportConfig(writeTempCSV(t, csv)))
	require.NoError(t, err)
	assert.Equal(t, 1, result.Created)
	assert.Equal(t, 1, result.Skipped)

	stats, err := st.CategoryStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats[models.CategoryTransport])
}

func TestImportWordsEmptyWordIsError(t *testing.T) {
	st := store.NewMemoryStore()

	csv := "词语,分类\n,交通\n"
	result, err := ImportWords(context.Background(), st, DefaultImportConfig(writeTempCSV(t, csv)))
	require.NoError(t, err)
	assert.Equal(t, 0, result.Created)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "word cannot be empty")
}
