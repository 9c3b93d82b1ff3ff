// Package pairio reads and writes the pair-list CSV format the
// overlap-checker writes and the imprinter reads.
package pairio

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
)

// Status is the CSV row's status column vocabulary.
type Status string

const (
	StatusTouch      Status = "touch"
	StatusOverlap    Status = "overlap"
	StatusBadOverlap Status = "bad_overlap"
)

// Row is one pair-list line: i, j, status[, vol_common, vol_i, vol_j]. The
// volume fields are only populated (and only written) for Overlap and
// BadOverlap rows.
type Row struct {
	I, J                  int
	Status                Status
	VolCommon, VolI, VolJ float64
	HasVolumes            bool
}

// Writer appends rows to the pair-list CSV format, one per call.
type Writer struct {
	w *csv.Writer
}

// NewWriter wraps w. Callers must call Flush when done.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: csv.NewWriter(w)}
}

func (wr *Writer) Write(r Row) error {
	rec := []string{
		strconv.Itoa(r.I),
		strconv.Itoa(r.J),
		string(r.Status),
	}
	if r.HasVolumes {
		rec = append(rec,
			strconv.FormatFloat(r.VolCommon, 'g', -1, 64),
			strconv.FormatFloat(r.VolI, 'g', -1, 64),
			strconv.FormatFloat(r.VolJ, 'g', -1, 64),
		)
	}
	return wr.w.Write(rec)
}

// Flush flushes any buffered rows and returns the first write error, if any.
func (wr *Writer) Flush() error {
	wr.w.Flush()
	return wr.w.Error()
}

// ReadAll parses every row of the pair-list format from r. A malformed row
// (wrong field count, non-integer ordinal, unknown status) is a structural
// error and aborts the whole read.
func ReadAll(r io.Reader) ([]Row, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	var rows []Row
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("pairio: %w", err)
		}
		row, err := parseRow(rec)
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func parseRow(rec []string) (Row, error) {
	if len(rec) != 3 && len(rec) != 6 {
		return Row{}, fmt.Errorf("pairio: row %v: expected 3 or 6 fields, got %d", rec, len(rec))
	}
	i, err := strconv.Atoi(rec[0])
	if err != nil || i < 0 {
		return Row{}, fmt.Errorf("pairio: row %v: invalid i ordinal", rec)
	}
	j, err := strconv.Atoi(rec[1])
	if err != nil || j < 0 {
		return Row{}, fmt.Errorf("pairio: row %v: invalid j ordinal", rec)
	}
	status := Status(rec[2])
	switch status {
	case StatusTouch, StatusOverlap, StatusBadOverlap:
	default:
		return Row{}, fmt.Errorf("pairio: row %v: unknown status %q", rec, rec[2])
	}
	row := Row{I: i, J: j, Status: status}
	if len(rec) == 6 {
		if status == StatusTouch {
			return Row{}, fmt.Errorf("pairio: row %v: touch rows must not carry volume fields", rec)
		}
		volCommon, err1 := strconv.ParseFloat(rec[3], 64)
		volI, err2 := strconv.ParseFloat(rec[4], 64)
		volJ, err3 := strconv.ParseFloat(rec[5], 64)
		if err1 != nil || err2 != nil || err3 != nil {
			return Row{}, fmt.Errorf("pairio: row %v: invalid volume field", rec)
		}
		row.VolCommon, row.VolI, row.VolJ, row.HasVolumes = volCommon, volI, volJ, true
	} else if status != StatusTouch {
		return Row{}, fmt.Errorf("pairio: row %v: %s rows must carry volume fields", rec, status)
	}
	return row, nil
}

// ForImprint filters rows to those the imprinter consumes: overlap and
// bad_overlap. Touch rows are accepted on input but ignored.
func ForImprint(rows []Row) []Row {
	out := make([]Row, 0, len(rows))
	for _, r := range rows {
		if r.Status == StatusOverlap || r.Status == StatusBadOverlap {
			out = append(out, r)
		}
	}
	return out
}
