package dataframe

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ReadCSV builds a Frame from comma or semicolon separated text. The
// first row is a header unless its first cell is a number, in which
// case columns are named "Column N". Surrounding quotes are trimmed,
// empty cells are skipped, and each column's mode is autodetected.
func ReadCSV(name string, r io.Reader) (*Frame, error) {
	br := bufio.NewReader(r)
	first, err := br.Peek(4096)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return nil, fmt.Errorf("failed to read csv: %w", err)
	}
	line := string(first)
	if i := strings.IndexByte(line, '\n'); i != -1 {
		line = line[:i]
	}

	reader := csv.NewReader(br)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	if strings.Contains(line, ";") && !strings.Contains(line, ",") {
		reader.Comma = ';'
	}

	headers, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv headers: %w", err)
	}

	f := &Frame{name: name}
	hasHeader := true
	if _, err := strconv.ParseFloat(trimCell(headers[0]), 64); err == nil {
		hasHeader = false
	}
	for i, h := range headers {
		cell := trimCell(h)
		if hasHeader {
			if _, err := f.AddColumn(cell); err != nil {
				return nil, err
			}
			continue
		}
		c, err := f.AddColumn(fmt.Sprintf("Column %d", i+1))
		if err != nil {
			return nil, err
		}
		if cell != "" {
			c.v = append(c.v, cell)
		}
	}

	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read csv row: %w", err)
		}
		for i, raw := range row {
			cell := trimCell(raw)
			if cell == "" {
				continue
			}
			if i >= len(f.cols) {
				return nil, fmt.Errorf("csv row has %d cells but only %d columns", len(row), len(f.cols))
			}
			f.cols[i].v = append(f.cols[i].v, cell)
		}
	}

	for _, c := range f.cols {
		c.AutodetectMode()
	}
	return f, nil
}

func trimCell(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && (s[0] == '"' || s[0] == '\'') && s[len(s)-1] == s[0] {
		s = s[1 : len(s)-1]
	}
	return strings.TrimSpace(s)
}

// WriteCSV writes a header row of column names followed by one row per
// index up to the longest column. Short columns are padded with empty
// cells.
func WriteCSV(w io.Writer, cols Columns) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(cols.Names()); err != nil {
		return err
	}
	n := cols.Len()
	row := make([]string, len(cols))
	for i := 0; i < n; i++ {
		for j, c := range cols {
			row[j] = ""
			if i < c.Len() {
				row[j] = c.StringAt(i)
			}
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
