// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package article

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/pmc-harvester/pkg/types"
)

const sampleArticleSet = `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE pmc-articleset PUBLIC "-//NLM//DTD ARTICLE SET 2.0//EN" "https://dtd.nlm.nih.gov/ncbi/pmc/articleset/nlm-articleset-2.0.dtd">
<pmc-articleset>
  <article article-type="research-article">
    <front>
      <journal-meta>
        <journal-id journal-id-type="nlm-ta">Sci Rep</journal-id>
        <journal-id journal-id-type="iso-abbrev">Sci. Rep.</journal-id>
        <journal-title-group>
          <journal-title>Scientific Reports</journal-title>
        </journal-title-group>
      </journal-meta>
      <article-meta>
        <article-id pub-id-type="pmid">38000001</article-id>
        <article-id pub-id-type="pmcid">PMC1234567</article-id>
        <article-id pub-id-type="doi">10.1038/s41598-023-00001-x</article-id>
        <title-group>
          <article-title>Random <italic>forest</italic> models for sepsis</article-title>
        </title-group>
        <contrib-group>
          <contrib contrib-type="author">
            <name><surname>Smith</surname><given-names>Alice</given-names></name>
          </contrib>
          <contrib contrib-type="author">
            <name initials="BJ"><surname>Jones</surname></name>
          </contrib>
          <contrib contrib-type="author">
            <name><surname>Curie</surname></name>
          </contrib>
          <contrib contrib-type="author">
            <collab>The Consortium</collab>
          </contrib>
          <contrib contrib-type="editor">
            <name><surname>Editor</surname><given-names>Ed</given-names></name>
          </contrib>
        </contrib-group>
        <pub-date pub-type="collection"><year>2023</year></pub-date>
        <pub-date pub-type="epub"><day>14</day><month>3</month><year>2023</year></pub-date>
        <abstract>
          <sec><title>Background</title><p>Sepsis is deadly.</p></sec>
          <sec><title>Methods</title><p>We trained a forest.</p></sec>
        </abstract>
        <kwd-group>
          <kwd>random forest</kwd>
          <kwd>  </kwd>
          <kwd><italic>sepsis</italic></kwd>
        </kwd-group>
      </article-meta>
    </front>
    <body><p>Body text &amp; more.</p></body>
  </article>
</pmc-articleset>`

func TestExtract_FullDocument(t *testing.T) {
	md := Extract(sampleArticleSet)

	assert.Equal(t, "Random forest models for sepsis", md.Title)
	assert.Equal(t, "Scientific Reports", md.Journal)
	assert.Equal(t, "Scientific Reports", md.JournalTitle)
	assert.Equal(t, "Sci Rep", md.JournalNLMTA)
	assert.Equal(t, "Sci. Rep.", md.JournalISOAbbrev)
	assert.Equal(t, "38000001", md.PMID)
	assert.Equal(t, "PMC1234567", md.PMCID)
	assert.Equal(t, "10.1038/s41598-023-00001-x", md.DOI)
	assert.Equal(t, "2023", md.Year)
	assert.Equal(t, "3", md.Month)
	assert.Equal(t, "14", md.Day)
	require.NotNil(t, md.PubDate)
	assert.Equal(t, types.PubDate{Year: "2023", Month: "3", Day: "14"}, *md.PubDate)
	assert.Equal(t, []string{"Smith Alice", "Jones BJ", "Curie"}, md.Authors)
	assert.Equal(t, "Background Sepsis is deadly. Methods We trained a forest.", md.Abstract)
	assert.Equal(t, []string{"random forest", "sepsis"}, md.Keywords)
	assert.True(t, md.Identifiable())
}

func TestExtract_BareArticleRoot(t *testing.T) {
	doc := `<article><front><article-meta>
		<title-group><article-title>Bare</article-title></title-group>
	</article-meta></front></article>`

	md := Extract(doc)
	assert.Equal(t, "Bare", md.Title)
	assert.Empty(t, md.Journal)
}

func TestExtract_MalformedReturnsEmpty(t *testing.T) {
	for _, doc := range []string{
		"",
		"not xml at all",
		"<pmc-articleset><article><front>",
		"<article><front></article>",
	} {
		md := Extract(doc)
		assert.True(t, md.IsEmpty(), "Extract(%q) = %+v, want empty", doc, md)
	}
}

func TestExtract_MissingLevels(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"no article", `<pmc-articleset></pmc-articleset>`},
		{"no front", `<pmc-articleset><article><body/></article></pmc-articleset>`},
		{"empty front", `<pmc-articleset><article><front/></article></pmc-articleset>`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, Extract(tt.doc).IsEmpty())
		})
	}
}

func TestExtract_JournalOnlyWithoutArticleMeta(t *testing.T) {
	doc := `<article><front><journal-meta>
		<journal-id journal-id-type="nlm-ta">PLoS One</journal-id>
	</journal-meta></front></article>`

	md := Extract(doc)
	assert.Equal(t, "PLoS One", md.Journal)
	assert.Equal(t, "PLoS One", md.JournalNLMTA)
	assert.Empty(t, md.Title)
	assert.False(t, md.Identifiable())
}

func TestExtract_JournalFallbackPrefersISOAbbrev(t *testing.T) {
	doc := `<article><front><journal-meta>
		<journal-id journal-id-type="nlm-ta">NLM</journal-id>
		<journal-id journal-id-type="iso-abbrev">ISO</journal-id>
	</journal-meta></front></article>`

	assert.Equal(t, "ISO", Extract(doc).Journal)
}

func TestExtract_CollectionDateYieldsYearOnly(t *testing.T) {
	doc := `<article><front><article-meta>
		<pub-date pub-type="collection"><day>1</day><month>6</month><year>2021</year></pub-date>
	</article-meta></front></article>`

	md := Extract(doc)
	assert.Equal(t, "2021", md.Year)
	assert.Empty(t, md.Month)
	assert.Empty(t, md.Day)
	require.NotNil(t, md.PubDate)
	assert.Equal(t, types.PubDate{Year: "2021"}, *md.PubDate)

	data, err := json.Marshal(md)
	require.NoError(t, err)
	assert.NotContains(t, string(data), `"month"`)
	assert.NotContains(t, string(data), `"day"`)
}

func TestExtract_ElectronicDateByPublicationFormat(t *testing.T) {
	doc := `<article><front><article-meta>
		<pub-date date-type="pub" publication-format="electronic"><day>2</day><month>1</month><year>2024</year></pub-date>
	</article-meta></front></article>`

	md := Extract(doc)
	assert.Equal(t, "2024", md.Year)
	assert.Equal(t, "1", md.Month)
	assert.Equal(t, "2", md.Day)
}

func TestExtract_NoKeywordsOmitsField(t *testing.T) {
	doc := `<article><front><article-meta>
		<title-group><article-title>T</article-title></title-group>
		<kwd-group></kwd-group>
	</article-meta></front></article>`

	md := Extract(doc)
	assert.Nil(t, md.Keywords)

	data, err := json.Marshal(md)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "keywords")
}

func TestExtract_HTMLEntitiesTolerated(t *testing.T) {
	doc := `<article><front><article-meta>
		<title-group><article-title>Alpha&nbsp;beta</article-title></title-group>
	</article-meta></front></article>`

	assert.Equal(t, "Alpha\u00a0beta", Extract(doc).Title)
}

func TestPlainText(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"<p>Hello</p>", "Hello"},
		{"<a><b>one</b>\n\n  <c>two</c></a>", "one two"},
		{"  plain   text  ", "plain text"},
		{"", ""},
		{`<x attr="1"/>`, ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, PlainText(tt.in), "PlainText(%q)", tt.in)
	}
}

func TestIdentifiers(t *testing.T) {
	assert.Equal(t, "12345", NumericID("PMC12345"))
	assert.Equal(t, "12345", NumericID("12345"))
	assert.Equal(t, "12345", NumericID(" 12345 "))
	assert.Equal(t, "PMC12345", DisplayID("12345"))
	assert.Equal(t, "PMC12345", DisplayID("PMC12345"))

	assert.Equal(t, filepath.Join("out", "PMC1.json"), OutputPath("out", "1", types.FormatJSON))
	assert.Equal(t, filepath.Join("out", "PMC1.xml"), OutputPath("out", "PMC1", types.FormatXML))
	assert.Equal(t, filepath.Join("out", "PMC1.txt"), OutputPath("out", "1", types.FormatText))
}

func TestRender_Formats(t *testing.T) {
	now := time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)
	raw := []byte(sampleArticleSet)

	xmlOut, md, err := Render("1234567", raw, types.FetchOptions{Format: types.FormatXML}, now)
	require.NoError(t, err)
	assert.Nil(t, md)
	assert.Equal(t, raw, xmlOut)

	txtOut, md, err := Render("1234567", raw, types.FetchOptions{Format: types.FormatText}, now)
	require.NoError(t, err)
	assert.Nil(t, md)
	assert.Equal(t, PlainText(sampleArticleSet), string(txtOut))
	assert.NotContains(t, string(txtOut), "<")

	_, _, err = Render("1", raw, types.FetchOptions{Format: "pdf"}, now)
	assert.Error(t, err)
}

func TestRender_StructuredRecord(t *testing.T) {
	now := time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)

	out, md, err := Render("1234567", []byte(sampleArticleSet), types.FetchOptions{Format: types.FormatJSON}, now)
	require.NoError(t, err)
	require.NotNil(t, md)
	assert.Equal(t, "Random forest models for sepsis", md.Title)

	s := string(out)
	// Stable field order.
	order := []string{`"id"`, `"source"`, `"download_date"`, `"metadata"`, `"raw_document"`, `"plain_text"`}
	last := -1
	for _, key := range order {
		idx := strings.Index(s, key)
		require.GreaterOrEqual(t, idx, 0, "missing %s", key)
		assert.Greater(t, idx, last, "%s out of order", key)
		last = idx
	}

	var rec map[string]any
	require.NoError(t, json.Unmarshal(out, &rec))
	assert.Equal(t, "PMC1234567", rec["id"])
	assert.Equal(t, "PMC", rec["source"])
	assert.Equal(t, "2026-10-17T12:00:00Z", rec["download_date"])
	assert.Equal(t, sampleArticleSet, rec["raw_document"])
	assert.Contains(t, rec["plain_text"], "Body text &amp; more.")
}

func TestRender_StructuredSkipText(t *testing.T) {
	out, _, err := Render("1", []byte(sampleArticleSet), types.FetchOptions{Format: types.FormatJSON, SkipText: true}, time.Now())
	require.NoError(t, err)

	var rec map[string]any
	require.NoError(t, json.Unmarshal(out, &rec))
	_, ok := rec["plain_text"]
	assert.False(t, ok, "plain_text should be omitted")
}

func TestRender_StructuredKeepsDocumentWithEmptyMetadata(t *testing.T) {
	out, md, err := Render("9", []byte("<pmc-articleset><article/></pmc-articleset>"), types.FetchOptions{Format: types.FormatJSON}, time.Now())
	require.NoError(t, err)
	require.NotNil(t, md)
	assert.False(t, md.Identifiable())

	var rec types.ArticleRecord
	require.NoError(t, json.Unmarshal(out, &rec))
	assert.Equal(t, "PMC9", rec.ID)
	require.NotNil(t, rec.PlainText)
	assert.Empty(t, *rec.PlainText)
}

func TestWriteFile_CreatesDirectoryAndLeavesNoTemp(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "keyword")
	path := filepath.Join(dir, "PMC1.xml")

	require.False(t, Exists(path))
	require.NoError(t, WriteFile(path, []byte("<x/>")))
	assert.True(t, Exists(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "<x/>", string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
