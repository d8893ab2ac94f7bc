package parser

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

const drawingMLNS = "http://schemas.openxmlformats.org/drawingml/2006/main"

var slideRe = regexp.MustCompile(`^ppt/slides/slide(\d+)\.xml$`)

type slideFile struct {
	num  int
	file *zip.File
}

// pptxText returns the text runs of every slide, slides in presentation
// order and one line per paragraph.
func pptxText(data []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}

	var slides []slideFile
	for _, f := range zr.File {
		m := slideRe.FindStringSubmatch(f.Name)
		if m == nil {
			continue
		}
		n, _ := strconv.Atoi(m[1])
		slides = append(slides, slideFile{num: n, file: f})
	}
	if len(slides) == 0 {
		return "", fmt.Errorf("no slides in presentation")
	}
	sort.Slice(slides, func(i, j int) bool { return slides[i].num < slides[j].num })

	var sb strings.Builder
	for _, s := range slides {
		if err := slideText(s.file, &sb); err != nil {
			return "", fmt.Errorf("slide %d: %w", s.num, err)
		}
	}
	return sb.String(), nil
}

func slideText(f *zip.File, sb *strings.Builder) error {
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	dec := xml.NewDecoder(rc)
	inText := false
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Space == drawingMLNS && t.Name.Local == "t" {
				inText = true
			}
		case xml.EndElement:
			if t.Name.Space != drawingMLNS {
				continue
			}
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				sb.WriteByte('\n')
			}
		case xml.CharData:
			if inText {
				sb.Write(t)
			}
		}
	}
}
