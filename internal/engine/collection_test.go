package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/FolioDB/internal/document"
)

func newDoc() *document.Document {
	return document.New()
}

func collectDocs(t *testing.T, it *Iterator) []*document.Document {
	t.Helper()
	var docs []*document.Document
	for {
		doc, ok := it.Next()
		if !ok {
			break
		}
		docs = append(docs, doc)
	}
	require.NoError(t, it.Err())
	return docs
}

func TestNewCollectionIsEmpty(t *testing.T) {
	db := openTestDB(t)
	col, err := db.MakeCollection("kaas")
	require.NoError(t, err)

	n, err := col.Count()
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Empty(t, collectDocs(t, col.Iterate()))
}

func TestAppendSingleDocument(t *testing.T) {
	db := openTestDB(t)
	col, err := db.MakeCollection("kaas")
	require.NoError(t, err)

	require.NoError(t, col.Append(newDoc().SetBool("awesome", true)))

	n, err := col.Count()
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	docs := collectDocs(t, col.Iterate())
	require.Len(t, docs, 1)
	v, ok := docs[0].Get("awesome")
	require.True(t, ok)
	b, ok := v.Bool()
	require.True(t, ok)
	assert.True(t, b)
}

func TestAppendManyThenCount(t *testing.T) {
	db := openTestDB(t)
	col, err := db.MakeCollection("kaas")
	require.NoError(t, err)

	for i := 0; i < 4; i++ {
		require.NoError(t, col.Append(newDoc().SetBool("awesome", true)))
	}

	n, err := col.Count()
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	docs := collectDocs(t, col.Iterate())
	require.Len(t, docs, 4)
	for _, doc := range docs {
		v, ok := doc.Get("awesome")
		require.True(t, ok)
		b, _ := v.Bool()
		assert.True(t, b)
	}
}

func TestUpdateMatchingDocuments(t *testing.T) {
	db := openTestDB(t)
	col, err := db.MakeCollection("kaas")
	require.NoError(t, err)

	for i := 0; i < 4; i++ {
		require.NoError(t, col.Append(newDoc().SetBool("awesome", true)))
	}

	updated, err := col.Update(newDoc().SetBool("awesome", true), newDoc().SetBool("awesome", false))
	require.NoError(t, err)
	assert.Equal(t, 4, updated)

	n, err := col.Count()
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	for _, doc := range collectDocs(t, col.Iterate()) {
		v, ok := doc.Get("awesome")
		require.True(t, ok)
		b, _ := v.Bool()
		assert.False(t, b)
	}
}

func TestRemoveMatchingDocuments(t *testing.T) {
	db := openTestDB(t)
	col, err := db.MakeCollection("kaas")
	require.NoError(t, err)

	for i := 0; i < 4; i++ {
		require.NoError(t, col.Append(newDoc().SetBool("awesome", false)))
	}

	removed, err := col.Remove(newDoc().SetBool("awesome", false))
	require.NoError(t, err)
	assert.Equal(t, 4, removed)

	n, err := col.Count()
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Empty(t, collectDocs(t, col.Iterate()))
}

func TestUpdateOnlyTouchesMatches(t *testing.T) {
	db := openTestDB(t)
	col, err := db.MakeCollection("mixed")
	require.NoError(t, err)

	require.NoError(t, col.Append(newDoc().SetString("kind", "a").SetInt64("n", 1)))
	require.NoError(t, col.Append(newDoc().SetString("kind", "b").SetInt64("n", 2)))
	require.NoError(t, col.Append(newDoc().SetString("kind", "a").SetInt64("n", 3)))

	updated, err := col.Update(
		newDoc().SetString("kind", "a"),
		newDoc().SetString("kind", "a").SetInt64("n", 0),
	)
	require.NoError(t, err)
	assert.Equal(t, 2, updated)

	var ns []int64
	for _, doc := range collectDocs(t, col.Iterate()) {
		v, ok := doc.Get("n")
		require.True(t, ok)
		n, _ := v.Int64()
		ns = append(ns, n)
	}
	assert.Equal(t, []int64{0, 2, 0}, ns)
}

func TestRemoveReturnsZeroWithoutMatches(t *testing.T) {
	db := openTestDB(t)
	col, err := db.MakeCollection("kaas")
	require.NoError(t, err)
	require.NoError(t, col.Append(newDoc().SetBool("awesome", true)))

	removed, err := col.Remove(newDoc().SetBool("awesome", false))
	require.NoError(t, err)
	assert.Equal(t, 0, removed)

	n, err := col.Count()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestGrowingUpdateKeepsDocumentReachable(t *testing.T) {
	db := openTestDB(t)
	col, err := db.MakeCollection("kaas")
	require.NoError(t, err)

	require.NoError(t, col.Append(newDoc().SetString("name", "x")))

	updated, err := col.Update(
		newDoc().SetString("name", "x"),
		newDoc().SetString("name", "a much longer value than before").SetBool("grown", true),
	)
	require.NoError(t, err)
	assert.Equal(t, 1, updated)

	docs := collectDocs(t, col.Iterate())
	require.Len(t, docs, 1)
	v, ok := docs[0].Get("grown")
	require.True(t, ok)
	b, _ := v.Bool()
	assert.True(t, b)
}

func TestAppendOverflowsIntoBodyPages(t *testing.T) {
	db := openTestDB(t)
	col, err := db.MakeCollection("kaas")
	require.NoError(t, err)

	// A header page with a 4-byte name holds 123 slots; 130 documents
	// need a linked body page.
	const total = 130
	for i := 0; i < total; i++ {
		require.NoError(t, col.Append(newDoc().SetBool("awesome", true).SetInt64("seq", int64(i))))
	}

	n, err := col.Count()
	require.NoError(t, err)
	assert.Equal(t, total, n)

	docs := collectDocs(t, col.Iterate())
	require.Len(t, docs, total)
	for i, doc := range docs {
		v, ok := doc.Get("seq")
		require.True(t, ok)
		seq, _ := v.Int64()
		assert.Equal(t, int64(i), seq, "documents must iterate in append order")
	}

	// The header's next pointer links a body page.
	_, ok := col.header.NextReference()
	assert.True(t, ok, "expected a linked collection body page")
}

func TestIterateIsNotRestartable(t *testing.T) {
	db := openTestDB(t)
	col, err := db.MakeCollection("kaas")
	require.NoError(t, err)
	require.NoError(t, col.Append(newDoc().SetBool("awesome", true)))

	it := col.Iterate()
	_, ok := it.Next()
	require.True(t, ok)
	_, ok = it.Next()
	require.False(t, ok)
	// Exhausted iterators stay exhausted; a fresh call starts over.
	_, ok = it.Next()
	assert.False(t, ok)

	docs := collectDocs(t, col.Iterate())
	assert.Len(t, docs, 1)
}

func TestOperationsSpanBodyPages(t *testing.T) {
	db := openTestDB(t)
	col, err := db.MakeCollection("kaas")
	require.NoError(t, err)

	const total = 130
	for i := 0; i < total; i++ {
		require.NoError(t, col.Append(newDoc().SetBool("awesome", true)))
	}

	updated, err := col.Update(newDoc().SetBool("awesome", true), newDoc().SetBool("awesome", false))
	require.NoError(t, err)
	assert.Equal(t, total, updated, "update must reach documents on body pages")

	removed, err := col.Remove(newDoc().SetBool("awesome", false))
	require.NoError(t, err)
	assert.Equal(t, total, removed, "remove must reach documents on body pages")

	n, err := col.Count()
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestDocumentsPersistAcrossReopen(t *testing.T) {
	path := testPath(t)

	db, err := Open(path)
	require.NoError(t, err)
	col, err := db.MakeCollection("kaas")
	require.NoError(t, err)
	require.NoError(t, col.Append(newDoc().SetString("name", "gouda").SetInt64("age", 12)))
	require.NoError(t, db.Close())

	db, err = Open(path)
	require.NoError(t, err)
	defer db.Close()
	col, err = db.Collection("kaas")
	require.NoError(t, err)

	docs := collectDocs(t, col.Iterate())
	require.Len(t, docs, 1)
	v, ok := docs[0].Get("name")
	require.True(t, ok)
	name, _ := v.String()
	assert.Equal(t, "gouda", name)
}
