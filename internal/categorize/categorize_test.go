package categorize

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hermitpopcorn/negi-ms/internal/domain"
)

func mapOf(pairs ...string) *Map {
	m := NewMap()
	for i := 0; i+1 < len(pairs); i += 2 {
		m.Set(pairs[i], pairs[i+1])
	}
	return m
}

func TestParse(t *testing.T) {
	var buf bytes.Buffer
	input := "ローソン,Food\n\n  Grab , Transport \nbroken line\na,b,c\nAmazon,Shopping\n"

	m, err := Parse(strings.NewReader(input), zerolog.New(&buf))
	require.NoError(t, err)

	var got []string
	m.Each(func(k, v string) { got = append(got, k+"="+v) })
	assert.Equal(t, []string{"ローソン=Food", "Grab=Transport", "Amazon=Shopping"}, got)
	assert.Equal(t, 2, strings.Count(buf.String(), "unexpected number of items"))
	assert.Contains(t, buf.String(), `"line":4`)
}

func TestMap_SetKeepsPosition(t *testing.T) {
	m := mapOf("a", "1", "b", "2", "a", "3")
	var got []string
	m.Each(func(k, v string) { got = append(got, k+"="+v) })
	assert.Equal(t, []string{"a=3", "b=2"}, got)
	assert.Equal(t, 2, m.Len())
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "categories.csv")
	require.NoError(t, os.WriteFile(path, []byte("Lawson,Food\n"), 0o644))

	m, err := LoadFile(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 1, m.Len())

	_, err = LoadFile(context.Background(), filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)
}

func TestMatch(t *testing.T) {
	rows := []domain.Row{
		{Index: 2, Subject: "ローソン 新宿店"},
		{Index: 3, Subject: ""},
		{Index: 4, Subject: "Grab ride", Category: "Already"},
		{Index: 5, Subject: "Unknown shop"},
		{Index: 6, Subject: "?dupof(2) ローソン 新宿店"},
	}

	got := Match(rows, mapOf("ローソン", "Food", "Grab", "Transport"))

	require.Len(t, got, 2)
	assert.Equal(t, 2, got[0].Index)
	assert.Equal(t, "Food", got[0].Category)
	assert.Equal(t, 6, got[1].Index)
	assert.Equal(t, "", rows[0].Category)
}

func TestMatch_LastKeywordWins(t *testing.T) {
	rows := []domain.Row{{Index: 2, Subject: "Amazon Prime Video"}}

	got := Match(rows, mapOf("Amazon", "Shopping", "Prime Video", "Entertainment"))
	require.Len(t, got, 1)
	assert.Equal(t, "Entertainment", got[0].Category)

	got = Match(rows, mapOf("Prime Video", "Entertainment", "Amazon", "Shopping"))
	require.Len(t, got, 1)
	assert.Equal(t, "Shopping", got[0].Category)
}

func TestMatch_Idempotent(t *testing.T) {
	m := mapOf("Lawson", "Food")
	rows := []domain.Row{{Index: 2, Subject: "Lawson"}, {Index: 3, Subject: "Other"}}

	first := Match(rows, m)
	require.Len(t, first, 1)

	for _, r := range first {
		for i := range rows {
			if rows[i].Index == r.Index {
				rows[i] = r
			}
		}
	}
	assert.Empty(t, Match(rows, m))
}
