package boxkernel

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/grailbio/base/file"

	"github.com/ukaea/overlap-checker/internal/docio"
	"github.com/ukaea/overlap-checker/internal/kernel"
	"github.com/ukaea/overlap-checker/internal/shape"
)

// FileCodec is this package's docio.Loader/docio.Saver: a one-box-per-line
// text format (lo.x lo.y lo.z hi.x hi.y hi.z), one line per top-level
// Document entry. It stands in for the "kernel's native BREP
// serialisation" a real binding would read and write, since boxkernel has
// no such format of its own; every top-level entry must be a single SOLID
// box, not a nested COMPOUND, which this reference format cannot express.
type FileCodec struct{}

// Load and Save go through grailbio/base/file rather than os directly, so
// input.brep/output.brep can be an s3:// URL as well as a local path.
func (FileCodec) Load(ctx context.Context, path string) (*shape.Document, error) {
	f, err := file.Open(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("boxkernel: open %s: %w", path, err)
	}
	defer f.Close(ctx) // nolint: errcheck
	doc, err := decodeDocument(f.Reader(ctx))
	if err != nil {
		return nil, fmt.Errorf("boxkernel: %s: %w", path, err)
	}
	return doc, nil
}

func (FileCodec) Save(ctx context.Context, path string, doc *shape.Document) error {
	f, err := file.Create(ctx, path)
	if err != nil {
		return fmt.Errorf("boxkernel: create %s: %w", path, err)
	}
	if err := encodeDocument(f.Writer(ctx), doc); err != nil {
		f.Close(ctx) // nolint: errcheck
		return fmt.Errorf("boxkernel: %s: %w", path, err)
	}
	if err := f.Close(ctx); err != nil {
		return fmt.Errorf("boxkernel: close %s: %w", path, err)
	}
	return nil
}

func decodeDocument(r io.Reader) (*shape.Document, error) {
	var solids []shape.Solid
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 6 {
			return nil, fmt.Errorf("malformed line %q: expected 6 fields, got %d", line, len(fields))
		}
		var v [6]float64
		for i, tok := range fields {
			val, err := strconv.ParseFloat(tok, 64)
			if err != nil {
				return nil, fmt.Errorf("malformed line %q: %w", line, err)
			}
			v[i] = val
		}
		lo := [3]float64{v[0], v[1], v[2]}
		hi := [3]float64{v[3], v[4], v[5]}
		for axis := 0; axis < 3; axis++ {
			if lo[axis] > hi[axis] {
				return nil, fmt.Errorf("malformed line %q: lo > hi on axis %d", line, axis)
			}
		}
		solids = append(solids, shape.Wrap(NewSolid(lo, hi)))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}
	return shape.NewDocument(solids), nil
}

func encodeDocument(w io.Writer, doc *shape.Document) error {
	bw := bufio.NewWriter(w)
	for i := 0; i < doc.Len(); i++ {
		s, ok := doc.At(i).Unwrap().(*Shape)
		if !ok {
			return fmt.Errorf("solid[%d]: not a boxkernel.Shape", i)
		}
		if s.kind != kernel.KindSolid {
			return fmt.Errorf("solid[%d]: top-level entry must be a single SOLID, not %v", i, s.kind)
		}
		if _, err := fmt.Fprintf(bw, "%s %s %s %s %s %s\n",
			strconv.FormatFloat(s.lo[0], 'g', -1, 64),
			strconv.FormatFloat(s.lo[1], 'g', -1, 64),
			strconv.FormatFloat(s.lo[2], 'g', -1, 64),
			strconv.FormatFloat(s.hi[0], 'g', -1, 64),
			strconv.FormatFloat(s.hi[1], 'g', -1, 64),
			strconv.FormatFloat(s.hi[2], 'g', -1, 64),
		); err != nil {
			return fmt.Errorf("solid[%d]: %w", i, err)
		}
	}
	return bw.Flush()
}

var (
	_ docio.Loader = FileCodec{}
	_ docio.Saver  = FileCodec{}
)
