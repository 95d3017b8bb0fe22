// Package export serializes projected tables for download: tab separated
// text for spreadsheet tools and XLSX workbooks.
package export

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/labstack/echo/v4"
)

const (
	DefaultDelimiter = "\t"
	MIMETSV          = "text/tab-separated-values"
)

// Table is a rendered table: headers followed by rows of cell text.
type Table struct {
	Headers []string
	Rows    [][]string
}

// WriteDelimited writes t with every cell in double quotes (embedded quotes
// doubled), cells joined by delim and rows joined by "\n". There is no
// trailing newline. An empty delim means DefaultDelimiter.
func WriteDelimited(w io.Writer, t Table, delim string) error {
	if delim == "" {
		delim = DefaultDelimiter
	}
	bw := bufio.NewWriter(w)
	lines := t.Rows
	if len(t.Headers) > 0 {
		lines = append([][]string{t.Headers}, t.Rows...)
	}
	for i, line := range lines {
		if i > 0 {
			bw.WriteString("\n")
		}
		for j, cell := range line {
			if j > 0 {
				bw.WriteString(delim)
			}
			bw.WriteString(`"`)
			bw.WriteString(strings.ReplaceAll(cell, `"`, `""`))
			bw.WriteString(`"`)
		}
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("export tsv: %w", err)
	}
	return nil
}

// Delimited returns t as written by WriteDelimited.
func Delimited(t Table, delim string) []byte {
	var buf bytes.Buffer
	_ = WriteDelimited(&buf, t, delim)
	return buf.Bytes()
}

// Filename returns name with ext, stripped of directories and quotes.
func Filename(name, ext string) string {
	name = strings.NewReplacer(`"`, "", "\\", "/", "\r", "", "\n", "").Replace(name)
	name = path.Base(name)
	if name == "." || name == "/" || name == "" {
		name = "export"
	}
	if !strings.HasSuffix(strings.ToLower(name), ext) {
		name += ext
	}
	return name
}

// Attachment sends t as a .tsv download.
func Attachment(c echo.Context, name string, t Table, delim string) error {
	c.Response().Header().Set(echo.HeaderContentType, MIMETSV)
	c.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf(`attachment; filename="%s"`, Filename(name, ".tsv")))
	c.Response().WriteHeader(http.StatusOK)
	return WriteDelimited(c.Response(), t, delim)
}
