package arxiv

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paperdex/paperdex/internal/log"
)

const sampleFeed = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <title type="html">ArXiv Query: search_query=cat:cs.AI</title>
  <entry>
    <id>http://arxiv.org/abs/2401.12345v1</id>
    <title>Attention Is Not
 All You Need</title>
    <summary>  We revisit the role of
 attention in deep networks.  </summary>
    <published>2024-01-20T18:30:12Z</published>
    <author><name>Ada Lovelace</name></author>
    <author><name>Alan Turing</name></author>
    <category term="cs.AI"/>
    <category term="cs.LG"/>
    <link href="http://arxiv.org/abs/2401.12345v1" rel="alternate" type="text/html"/>
    <link title="pdf" href="http://arxiv.org/pdf/2401.12345v1" rel="related" type="application/pdf"/>
  </entry>
  <entry>
    <id></id>
    <title>Entry Without Id</title>
  </entry>
  <entry>
    <id>http://arxiv.org/abs/cond-mat/0001001v2</id>
    <title>Old Style Identifier</title>
    <summary>Legacy archive entry.</summary>
    <published>not-a-date</published>
    <author><name>Grace Hopper</name></author>
    <category term="cond-mat.str-el"/>
  </entry>
</feed>`

func TestParseFeed(t *testing.T) {
	papers, err := ParseFeed([]byte(sampleFeed), log.NewNop())
	require.NoError(t, err)

	// The entry without an id is skipped, not fatal.
	require.Len(t, papers, 2)

	p := papers[0]
	assert.Equal(t, "2401.12345v1", p.ArxivID)
	assert.Equal(t, "Attention Is Not All You Need", p.Title)
	assert.Equal(t, "We revisit the role of attention in deep networks.", p.Summary)
	assert.Equal(t, []string{"Ada Lovelace", "Alan Turing"}, p.Authors)
	assert.Equal(t, []string{"cs.AI", "cs.LG"}, p.Categories)
	assert.Equal(t, time.Date(2024, 1, 20, 18, 30, 12, 0, time.UTC), p.Published)
	// http is upgraded to https.
	assert.Equal(t, "https://arxiv.org/pdf/2401.12345v1", p.PDFURL)
}

func TestParseFeed_LegacyIDAndBadDate(t *testing.T) {
	papers, err := ParseFeed([]byte(sampleFeed), log.NewNop())
	require.NoError(t, err)

	p := papers[1]
	// Only the last path segment is kept, even for old-style ids.
	assert.Equal(t, "0001001v2", p.ArxivID)
	// Unparseable dates degrade to the zero time.
	assert.True(t, p.Published.IsZero())
	// No application/pdf link means no URL.
	assert.Empty(t, p.PDFURL)
}

func TestParseFeed_EmptyFeed(t *testing.T) {
	papers, err := ParseFeed([]byte(`<feed xmlns="http://www.w3.org/2005/Atom"></feed>`), log.NewNop())
	require.NoError(t, err)
	assert.Empty(t, papers)
}

func TestParseFeed_Malformed(t *testing.T) {
	_, err := ParseFeed([]byte("this is not xml"), log.NewNop())
	assert.ErrorIs(t, err, ErrParse)
}

func TestEntryArxivID(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"http://arxiv.org/abs/2401.12345v1", "2401.12345v1"},
		{"2401.12345v1", "2401.12345v1"},
		{"  ", ""},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, entryArxivID(tt.in))
	}
}
