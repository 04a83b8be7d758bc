package feed

import (
	"testing"
	"time"
)

const rssFixture = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>  Example Blog </title>
    <link>https://example.com/blog/</link>
    <description>Posts</description>
    <item>
      <title>Tom &amp; Jerry</title>
      <link>https://example.com/posts/1</link>
      <pubDate>Mon, 01 Jan 2024 10:00:00 +0000</pubDate>
      <description><![CDATA[<p>First <b>post</b></p>]]></description>
    </item>
    <item>
      <title>Relative link</title>
      <link>/posts/2</link>
      <pubDate>Tue, 02 Jan 2024 10:00:00 +0000</pubDate>
    </item>
    <item>
      <title>No date</title>
      <link>https://example.com/posts/3</link>
    </item>
    <item>
      <title>Bad date</title>
      <link>https://example.com/posts/4</link>
      <pubDate>sometime last week</pubDate>
    </item>
  </channel>
</rss>`

const atomFixture = `<?xml version="1.0" encoding="utf-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <title>Atom Source</title>
  <link href="https://atom.example/"/>
  <id>urn:uuid:60a76c80-d399-11d9-b93C-0003939e0af6</id>
  <updated>2024-02-01T00:00:00Z</updated>
  <entry>
    <title>Updated only</title>
    <link href="https://atom.example/a"/>
    <id>urn:a</id>
    <updated>2024-02-01T12:00:00+02:00</updated>
    <summary>Short summary</summary>
  </entry>
  <entry>
    <title>Content only</title>
    <link href="https://atom.example/b"/>
    <id>urn:b</id>
    <published>2024-01-15T08:00:00Z</published>
    <updated>2024-01-20T08:00:00Z</updated>
    <content type="html">&lt;p&gt;Body text&lt;/p&gt;</content>
  </entry>
</feed>`

const jsonFixture = `{
  "version": "https://jsonfeed.org/version/1.1",
  "title": "JSON Source",
  "items": [
    {"id": "1", "url": "https://json.example/1", "title": "JSON item", "date_published": "2024-05-01T00:00:00Z"}
  ]
}`

func TestParseRSS(t *testing.T) {
	items, ok := Parse([]byte(rssFixture))
	if !ok {
		t.Fatal("Parse() ok = false, want true")
	}
	if len(items) != 4 {
		t.Fatalf("Parse() returned %d items, want 4", len(items))
	}

	first := items[0]
	if first.Title != "Tom & Jerry" {
		t.Errorf("Title = %q, want %q", first.Title, "Tom & Jerry")
	}
	if first.Link != "https://example.com/posts/1" {
		t.Errorf("Link = %q", first.Link)
	}
	if first.SourceTitle != "Example Blog" {
		t.Errorf("SourceTitle = %q, want %q", first.SourceTitle, "Example Blog")
	}
	if first.Description != "<p>First <b>post</b></p>" {
		t.Errorf("Description = %q", first.Description)
	}
	want := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	if !first.PublishedAt.Equal(want) {
		t.Errorf("PublishedAt = %v, want %v", first.PublishedAt, want)
	}

	if items[1].Link != "https://example.com/posts/2" {
		t.Errorf("relative link resolved to %q", items[1].Link)
	}
	if items[2].HasDate() {
		t.Errorf("item without pubDate has date %v", items[2].PublishedAt)
	}
	if items[3].HasDate() {
		t.Errorf("item with garbage pubDate has date %v", items[3].PublishedAt)
	}
}

func TestParseAtom(t *testing.T) {
	items, ok := Parse([]byte(atomFixture))
	if !ok {
		t.Fatal("Parse() ok = false, want true")
	}
	if len(items) != 2 {
		t.Fatalf("Parse() returned %d items, want 2", len(items))
	}

	if got, want := items[0].PublishedAt, time.Date(2024, 2, 1, 10, 0, 0, 0, time.UTC); !got.Equal(want) {
		t.Errorf("updated-only entry PublishedAt = %v, want %v", got, want)
	}
	if items[0].Description != "Short summary" {
		t.Errorf("Description = %q, want summary", items[0].Description)
	}
	if items[0].SourceTitle != "Atom Source" {
		t.Errorf("SourceTitle = %q", items[0].SourceTitle)
	}

	if got, want := items[1].PublishedAt, time.Date(2024, 1, 15, 8, 0, 0, 0, time.UTC); !got.Equal(want) {
		t.Errorf("published date should win over updated: got %v, want %v", got, want)
	}
	if items[1].Description != "<p>Body text</p>" {
		t.Errorf("Description should fall back to content, got %q", items[1].Description)
	}
}

func TestParseJSONFeed(t *testing.T) {
	items, ok := Parse([]byte(jsonFixture))
	if !ok {
		t.Fatal("Parse() ok = false, want true")
	}
	if len(items) != 1 {
		t.Fatalf("Parse() returned %d items, want 1", len(items))
	}
	if items[0].Link != "https://json.example/1" || items[0].SourceTitle != "JSON Source" {
		t.Errorf("unexpected item %+v", items[0])
	}
}

func TestParseFailures(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"empty", ""},
		{"whitespace", "  \n\t "},
		{"plain text", "this is not a feed at all"},
		{"html page", "<html><body><p>hello</p></body></html>"},
		{"truncated rss", `<?xml version="1.0"?><rss version="2.0"><channel><title>x</title><item><title>broken`},
		{"mismatched tag", `<rss version="2.0"><channel><title>A</title><item><title>leaked</title><link>https://a.example/1</link></titl></item></channel></rss>`},
		{"rss without channel", `<rss version="2.0"></rss>`},
		{"json without version", `{"foo":1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items, ok := Parse([]byte(tt.raw))
			if ok {
				t.Errorf("Parse() ok = true, want false (items=%v)", items)
			}
			if items != nil {
				t.Errorf("Parse() items = %v, want nil", items)
			}
		})
	}
}

func TestParseEmptyChannel(t *testing.T) {
	raw := `<?xml version="1.0"?><rss version="2.0"><channel><title>Quiet</title><link>https://quiet.example/</link></channel></rss>`

	items, ok := Parse([]byte(raw))
	if !ok {
		t.Fatal("feed without items should parse")
	}
	if len(items) != 0 {
		t.Errorf("got %d items, want 0", len(items))
	}
}

func TestParseHTMLEntities(t *testing.T) {
	raw := `<?xml version="1.0"?><rss version="2.0"><channel><title>Caf&eacute;</title>` +
		`<item><title>A&nbsp;B</title><link>https://e.example/1</link></item></channel></rss>`

	items, ok := Parse([]byte(raw))
	if !ok {
		t.Fatal("feed using HTML entities should parse")
	}
	if len(items) != 1 {
		t.Fatalf("got %d items, want 1", len(items))
	}
}

func TestParseLatin1(t *testing.T) {
	raw := append([]byte(`<?xml version="1.0" encoding="ISO-8859-1"?><rss version="2.0"><channel><title>Caf`),
		0xe9)
	raw = append(raw, []byte(`</title><item><title>x</title><link>https://l.example/1</link></item></channel></rss>`)...)

	items, ok := Parse(raw)
	if !ok {
		t.Fatal("latin-1 feed should parse")
	}
	if len(items) != 1 || items[0].SourceTitle != "Café" {
		t.Errorf("unexpected items %+v", items)
	}
}
