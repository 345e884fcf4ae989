// Package inspect reports on the structure of a book without extracting it.
package inspect

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strings"

	"gitlab.com/tozd/go/errors"

	"github.com/mcdonaldj/epubtidy/internal/ports"
)

// EPUBMimetype is the content expected in the mimetype entry.
const EPUBMimetype = "application/epub+zip"

// ContainerPath is the fixed location of the container document.
const ContainerPath = "META-INF/container.xml"

const opfMediaType = "application/oebps-package+xml"

// containerXML models the container document used to locate the OPF.
type containerXML struct {
	XMLName   xml.Name   `xml:"container"`
	RootFiles []rootFile `xml:"rootfiles>rootfile"`
}

type rootFile struct {
	FullPath  string `xml:"full-path,attr"`
	MediaType string `xml:"media-type,attr"`
}

// Report describes a book's container layout.
type Report struct {
	Book           string
	Entries        []ports.EntryInfo
	MimetypeFirst  bool
	MimetypeStored bool
	Mimetype       string
	OPFPath        string
	Problems       []string
}

// OK reports whether no problems were found.
func (r Report) OK() bool {
	return len(r.Problems) == 0
}

// Files counts the non-directory entries.
func (r Report) Files() int {
	n := 0
	for _, e := range r.Entries {
		if !e.IsDir {
			n++
		}
	}
	return n
}

// Inspect lists book and checks the reserved entries. An unreadable archive
// is an error; anything else wrong with the layout is a problem in the
// report.
func Inspect(archiver ports.Archiver, book string) (Report, error) {
	r := Report{Book: book}

	entries, err := archiver.List(book)
	if err != nil {
		return r, errors.WithStack(err)
	}
	r.Entries = entries

	r.checkMimetype(archiver)
	r.findOPF(archiver)
	return r, nil
}

func (r *Report) problem(format string, args ...interface{}) {
	r.Problems = append(r.Problems, fmt.Sprintf(format, args...))
}

func (r *Report) checkMimetype(archiver ports.Archiver) {
	index := -1
	for i, e := range r.Entries {
		if e.Name == ports.MimetypeName {
			index = i
			break
		}
	}
	if index < 0 {
		r.problem("no %s entry", ports.MimetypeName)
		return
	}

	r.MimetypeFirst = index == 0
	r.MimetypeStored = r.Entries[index].Stored()
	if !r.MimetypeFirst {
		r.problem("%s is entry %d, not the first", ports.MimetypeName, index+1)
	}
	if !r.MimetypeStored {
		r.problem("%s is compressed", ports.MimetypeName)
	}

	data, err := archiver.ReadFile(r.Book, ports.MimetypeName)
	if err != nil {
		r.problem("reading %s: %s", ports.MimetypeName, err)
		return
	}
	r.Mimetype = string(data)
	if strings.TrimSpace(r.Mimetype) != EPUBMimetype {
		r.problem("%s is %q, expected %q", ports.MimetypeName, r.Mimetype, EPUBMimetype)
	}
}

func (r *Report) findOPF(archiver ports.Archiver) {
	data, err := archiver.ReadFile(r.Book, ContainerPath)
	if err != nil {
		r.problem("reading %s: %s", ContainerPath, err)
		return
	}

	path, err := parseContainer(data)
	if err != nil {
		r.problem("%s", err)
		return
	}
	r.OPFPath = path

	for _, e := range r.Entries {
		if e.Name == path {
			return
		}
	}
	r.problem("package document %s is missing", path)
}

// parseContainer returns the full-path of the OPF rootfile, preferring the
// one with the package media type.
func parseContainer(data []byte) (string, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))

	var c containerXML
	if err := xml.Unmarshal(data, &c); err != nil {
		return "", errors.Errorf("parsing %s: %w", ContainerPath, err)
	}

	var fallback string
	for _, rf := range c.RootFiles {
		fullPath := strings.TrimSpace(rf.FullPath)
		if fullPath == "" {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(rf.MediaType), opfMediaType) {
			return fullPath, nil
		}
		if fallback == "" {
			fallback = fullPath
		}
	}
	if fallback == "" {
		return "", errors.Errorf("%s has no rootfile", ContainerPath)
	}
	return fallback, nil
}
