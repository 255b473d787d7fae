// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package article turns fetched JATS documents into persisted articles: it
// extracts bibliographic metadata, derives plain text, computes the
// deterministic output path for an identifier, and writes each output format.
package article

import (
	"encoding/xml"
	"strings"

	"github.com/pdiddy/pmc-harvester/pkg/types"
)

// The structures below mirror only the JATS elements we read. Optional
// elements are pointers or slices so an absent node decodes to nil and every
// lookup short-circuits instead of failing.

type jatsRoot struct {
	XMLName  xml.Name
	Front    *jatsFront    `xml:"front"`
	Articles []jatsArticle `xml:"article"`
}

type jatsArticle struct {
	Front *jatsFront `xml:"front"`
}

type jatsFront struct {
	JournalMeta *journalMeta `xml:"journal-meta"`
	ArticleMeta *articleMeta `xml:"article-meta"`
}

type journalMeta struct {
	TitleGroup *struct {
		Title *mixedText `xml:"journal-title"`
	} `xml:"journal-title-group"`
	IDs []struct {
		Type  string `xml:"journal-id-type,attr"`
		Value string `xml:",chardata"`
	} `xml:"journal-id"`
}

type articleMeta struct {
	IDs []struct {
		Type  string `xml:"pub-id-type,attr"`
		Value string `xml:",chardata"`
	} `xml:"article-id"`
	TitleGroup *struct {
		Title *mixedText `xml:"article-title"`
	} `xml:"title-group"`
	PubDates      []pubDate      `xml:"pub-date"`
	ContribGroups []contribGroup `xml:"contrib-group"`
	Abstracts     []mixedText    `xml:"abstract"`
	KwdGroups     []struct {
		Kwds []mixedText `xml:"kwd"`
	} `xml:"kwd-group"`
}

type pubDate struct {
	PubType           string `xml:"pub-type,attr"`
	DateType          string `xml:"date-type,attr"`
	PublicationFormat string `xml:"publication-format,attr"`
	Year              string `xml:"year"`
	Month             string `xml:"month"`
	Day               string `xml:"day"`
}

func (d pubDate) electronic() bool {
	return d.PubType == "epub" || (d.DateType == "pub" && d.PublicationFormat == "electronic")
}

func (d pubDate) collection() bool {
	return d.PubType == "collection" || d.DateType == "collection"
}

type contribGroup struct {
	Contribs []struct {
		Type string      `xml:"contrib-type,attr"`
		Name *personName `xml:"name"`
	} `xml:"contrib"`
}

type personName struct {
	Initials   string `xml:"initials,attr"`
	Surname    string `xml:"surname"`
	GivenNames *struct {
		Initials string `xml:"initials,attr"`
		Value    string `xml:",chardata"`
	} `xml:"given-names"`
}

// displayName renders "surname given-names", falling back to initials and
// then to the surname alone.
func (n *personName) displayName() string {
	surname := strings.TrimSpace(n.Surname)
	var given, initials string
	if n.GivenNames != nil {
		given = strings.TrimSpace(n.GivenNames.Value)
		initials = strings.TrimSpace(n.GivenNames.Initials)
	}
	if v := strings.TrimSpace(n.Initials); v != "" {
		initials = v
	}
	switch {
	case given != "":
		return strings.TrimSpace(surname + " " + given)
	case initials != "":
		return strings.TrimSpace(surname + " " + initials)
	default:
		return surname
	}
}

// mixedText collects every text node under an element in document order,
// including text inside nested inline markup such as <italic>.
type mixedText struct {
	parts []string
}

func (t *mixedText) UnmarshalXML(d *xml.Decoder, _ xml.StartElement) error {
	depth := 0
	for {
		tok, err := d.Token()
		if err != nil {
			return err
		}
		switch tok := tok.(type) {
		case xml.StartElement:
			depth++
		case xml.EndElement:
			if depth == 0 {
				return nil
			}
			depth--
		case xml.CharData:
			t.parts = append(t.parts, string(tok))
		}
	}
}

// text concatenates the collected text nodes and trims the result.
func (t *mixedText) text() string {
	if t == nil {
		return ""
	}
	return strings.TrimSpace(strings.Join(t.parts, ""))
}

// words joins the trimmed, non-empty text nodes with single spaces.
func (t *mixedText) words() string {
	if t == nil {
		return ""
	}
	var out []string
	for _, p := range t.parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, " ")
}

// Extract parses a JATS document (either a bare <article> or a
// <pmc-articleset> wrapping one) and returns its bibliographic fields.
// Extract never fails: unparsable input yields empty Metadata, and missing
// elements simply leave their fields empty.
func Extract(raw string) types.Metadata {
	var md types.Metadata

	var root jatsRoot
	dec := xml.NewDecoder(strings.NewReader(raw))
	dec.Entity = xml.HTMLEntity
	if err := dec.Decode(&root); err != nil {
		return md
	}

	front := root.Front
	if root.XMLName.Local != "article" {
		front = nil
		if len(root.Articles) > 0 {
			front = root.Articles[0].Front
		}
	}
	if front == nil {
		return md
	}

	extractJournal(front.JournalMeta, &md)

	am := front.ArticleMeta
	if am == nil {
		return md
	}

	for _, id := range am.IDs {
		value := strings.TrimSpace(id.Value)
		switch id.Type {
		case "pmid":
			md.PMID = value
		case "pmcid":
			md.PMCID = value
		case "doi":
			md.DOI = value
		}
	}

	if am.TitleGroup != nil {
		md.Title = am.TitleGroup.Title.text()
	}

	extractDate(am.PubDates, &md)

	for _, g := range am.ContribGroups {
		for _, c := range g.Contribs {
			if c.Type != "author" || c.Name == nil {
				continue
			}
			if name := c.Name.displayName(); name != "" {
				md.Authors = append(md.Authors, name)
			}
		}
	}

	if len(am.Abstracts) > 0 {
		md.Abstract = am.Abstracts[0].words()
	}

	for _, g := range am.KwdGroups {
		for i := range g.Kwds {
			if kw := g.Kwds[i].text(); kw != "" {
				md.Keywords = append(md.Keywords, kw)
			}
		}
	}

	return md
}

func extractJournal(jm *journalMeta, md *types.Metadata) {
	if jm == nil {
		return
	}
	if jm.TitleGroup != nil {
		md.JournalTitle = jm.TitleGroup.Title.text()
	}
	for _, id := range jm.IDs {
		value := strings.TrimSpace(id.Value)
		switch id.Type {
		case "nlm-ta":
			md.JournalNLMTA = value
		case "iso-abbrev":
			md.JournalISOAbbrev = value
		}
	}

	switch {
	case md.JournalTitle != "":
		md.Journal = md.JournalTitle
	case md.JournalISOAbbrev != "":
		md.Journal = md.JournalISOAbbrev
	case md.JournalNLMTA != "":
		md.Journal = md.JournalNLMTA
	}
}

// extractDate prefers the electronic publication date. Without one it falls
// back to the collection date, keeping only its year.
func extractDate(dates []pubDate, md *types.Metadata) {
	var chosen *pubDate
	for i := range dates {
		if dates[i].electronic() {
			chosen = &dates[i]
			break
		}
	}
	if chosen != nil {
		md.Year = strings.TrimSpace(chosen.Year)
		md.Month = strings.TrimSpace(chosen.Month)
		md.Day = strings.TrimSpace(chosen.Day)
	} else {
		for i := range dates {
			if dates[i].collection() {
				md.Year = strings.TrimSpace(dates[i].Year)
				break
			}
		}
	}

	if md.Year == "" {
		return
	}
	md.PubDate = &types.PubDate{Year: md.Year, Month: md.Month, Day: md.Day}
}
