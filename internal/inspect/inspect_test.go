package inspect

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcdonaldj/epubtidy/internal/mocks"
	"github.com/mcdonaldj/epubtidy/internal/ports"
)

const book = "/books/a.epub"

const containerDoc = `<?xml version="1.0"?>
<container version="1.0" xmlns="urn:oasis:names:tc:opendocument:xmlns:container">
  <rootfiles>
    <rootfile full-path="OEBPS/content.opf" media-type="application/oebps-package+xml"/>
  </rootfiles>
</container>`

func wellFormed() *mocks.MockArchiver {
	m := mocks.NewMockArchiver()
	m.ListResults[book] = []ports.EntryInfo{
		{Name: "mimetype", Method: 0, Size: 20},
		{Name: "META-INF/", IsDir: true},
		{Name: "META-INF/container.xml", Method: 8},
		{Name: "OEBPS/content.opf", Method: 8},
	}
	m.ReadResults[book+":mimetype"] = []byte(EPUBMimetype)
	m.ReadResults[book+":"+ContainerPath] = []byte(containerDoc)
	return m
}

func TestInspectWellFormed(t *testing.T) {
	r, err := Inspect(wellFormed(), book)
	require.NoError(t, err)

	assert.True(t, r.OK(), "problems: %v", r.Problems)
	assert.True(t, r.MimetypeFirst)
	assert.True(t, r.MimetypeStored)
	assert.Equal(t, EPUBMimetype, r.Mimetype)
	assert.Equal(t, "OEBPS/content.opf", r.OPFPath)
	assert.Equal(t, 3, r.Files())
}

func TestInspectMimetypeProblems(t *testing.T) {
	m := wellFormed()
	m.ListResults[book] = []ports.EntryInfo{
		{Name: "META-INF/container.xml", Method: 8},
		{Name: "mimetype", Method: 8},
		{Name: "OEBPS/content.opf", Method: 8},
	}
	m.ReadResults[book+":mimetype"] = []byte("application/zip")

	r, err := Inspect(m, book)
	require.NoError(t, err)

	assert.False(t, r.OK())
	assert.False(t, r.MimetypeFirst)
	assert.False(t, r.MimetypeStored)
	require.Len(t, r.Problems, 3)
	assert.Contains(t, r.Problems[0], "not the first")
	assert.Contains(t, r.Problems[1], "compressed")
	assert.Contains(t, r.Problems[2], "application/zip")
}

func TestInspectMissingMimetype(t *testing.T) {
	m := wellFormed()
	m.ListResults[book] = m.ListResults[book][1:]

	r, err := Inspect(m, book)
	require.NoError(t, err)
	require.Len(t, r.Problems, 1)
	assert.Equal(t, "no mimetype entry", r.Problems[0])
}

func TestInspectContainer(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		opf     string
		problem string
	}{
		{
			name: "prefers package media type",
			doc: `<container><rootfiles>
				<rootfile full-path="other.xml" media-type="text/xml"/>
				<rootfile full-path="OEBPS/content.opf" media-type="application/oebps-package+xml"/>
			</rootfiles></container>`,
			opf: "OEBPS/content.opf",
		},
		{
			name: "falls back to first rootfile",
			doc:  "\xef\xbb\xbf" + `<container><rootfiles><rootfile full-path=" OEBPS/content.opf "/></rootfiles></container>`,
			opf:  "OEBPS/content.opf",
		},
		{
			name:    "no rootfile",
			doc:     `<container><rootfiles/></container>`,
			problem: "has no rootfile",
		},
		{
			name:    "malformed",
			doc:     `<container>`,
			problem: "parsing META-INF/container.xml",
		},
		{
			name:    "opf missing from archive",
			doc:     `<container><rootfiles><rootfile full-path="OPS/book.opf"/></rootfiles></container>`,
			opf:     "OPS/book.opf",
			problem: "OPS/book.opf is missing",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := wellFormed()
			m.ReadResults[book+":"+ContainerPath] = []byte(tt.doc)

			r, err := Inspect(m, book)
			require.NoError(t, err)
			assert.Equal(t, tt.opf, r.OPFPath)
			if tt.problem == "" {
				assert.Empty(t, r.Problems)
				return
			}
			require.Len(t, r.Problems, 1)
			assert.True(t, strings.Contains(r.Problems[0], tt.problem), "problem %q", r.Problems[0])
		})
	}
}

func TestInspectUnreadableArchive(t *testing.T) {
	m := mocks.NewMockArchiver()
	m.Errors["List"] = ports.ErrNotAnArchive

	_, err := Inspect(m, book)
	assert.ErrorIs(t, err, ports.ErrNotAnArchive)
}
