// overlap-imprinter reads a pair list from stdin and rewrites each
// overlap/bad_overlap pair in a BREP assembly so their shared volume
// becomes an explicit child of the larger operand.
package main

/*
overlap-imprinter re-derives each pair's classification from scratch
(trusting geometry, not the pair list's recorded status) and applies the
fixed imprint recipe, replacing both solids' Document slots in place.
Touch rows are accepted on stdin and ignored.
*/

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/grailbio/base/grail"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/vcontext"

	"github.com/ukaea/overlap-checker/config"
	"github.com/ukaea/overlap-checker/internal/boolop"
	"github.com/ukaea/overlap-checker/internal/boxkernel"
	"github.com/ukaea/overlap-checker/internal/geompb"
	"github.com/ukaea/overlap-checker/internal/imprint"
	"github.com/ukaea/overlap-checker/internal/pairio"
	"github.com/ukaea/overlap-checker/internal/shape"
)

var (
	timePerPair = flag.Duration("time-per-pair", 60*time.Second, "Per-pair pave-fill timeout")
	inputFormat = flag.String("format", "csv", "Pair-list input format read from stdin: 'csv' or 'pb'")
	imprintEps  = flag.Float64("imprint-tolerance", 0.001, "Fuzzy value the pave-fill re-derivation uses")
)

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: %s [OPTIONS] input.brep output.brep < pairs\n", os.Args[0])
	flag.PrintDefaults()
}

func main() {
	flag.Usage = usage
	shutdown := grail.Init()
	defer shutdown()

	if flag.NArg() != 2 {
		log.Error.Printf("overlap-imprinter: expected input.brep and output.brep, got %v", flag.Args())
		os.Exit(1)
	}
	inputPath, outputPath := flag.Arg(0), flag.Arg(1)

	opts := config.DefaultOpts()
	opts.ImprintLadder = []float64{*imprintEps}
	opts.TimePerPair = *timePerPair
	if err := opts.ValidateImprinter(); err != nil {
		log.Error.Printf("overlap-imprinter: %v", err)
		os.Exit(1)
	}
	if *inputFormat != "csv" && *inputFormat != "pb" {
		log.Error.Printf("overlap-imprinter: --format must be 'csv' or 'pb', got %q", *inputFormat)
		os.Exit(1)
	}

	ctx := vcontext.Background()
	doc, err := boxkernel.FileCodec{}.Load(ctx, inputPath)
	if err != nil {
		log.Error.Printf("overlap-imprinter: %v", err)
		os.Exit(1)
	}

	rows, err := readPairs(os.Stdin, *inputFormat)
	if err != nil {
		log.Error.Printf("overlap-imprinter: %v", err)
		os.Exit(1)
	}
	if err := checkPairBounds(rows, doc.Len()); err != nil {
		log.Error.Printf("overlap-imprinter: %v", err)
		os.Exit(1)
	}

	pairs := make([]shape.Pair, 0, len(rows))
	for _, r := range pairio.ForImprint(rows) {
		pairs = append(pairs, shape.NewPair(r.I, r.J))
	}

	driver := boolop.New(boxkernel.New())
	results, failures, err := imprint.All(ctx, driver, doc, pairs, *imprintEps, opts.TimePerPair)
	if err != nil {
		log.Error.Printf("overlap-imprinter: %v", err)
		os.Exit(1)
	}

	if err := boxkernel.FileCodec{}.Save(ctx, outputPath, doc); err != nil {
		log.Error.Printf("overlap-imprinter: %v", err)
		os.Exit(1)
	}

	log.Info.Printf("overlap-imprinter: %d pairs imprinted, %d failed", len(results), failures)
	if failures > 0 {
		os.Exit(1)
	}
}

// checkPairBounds rejects a CSV row whose ordinal is out of range for
// doc, the structural-error class spec.md assigns to malformed pair lists.
func checkPairBounds(rows []pairio.Row, n int) error {
	for _, r := range rows {
		if r.I < 0 || r.I >= n || r.J < 0 || r.J >= n {
			return fmt.Errorf("pair (%d,%d) out of range for a %d-solid document", r.I, r.J, n)
		}
	}
	return nil
}

func readPairs(r io.Reader, format string) ([]pairio.Row, error) {
	if format == "pb" {
		return readPBPairs(r)
	}
	return pairio.ReadAll(bufio.NewReader(r))
}

func readPBPairs(r io.Reader) ([]pairio.Row, error) {
	var rows []pairio.Row
	for {
		p, err := geompb.ReadDelimited(r)
		if err == io.EOF {
			return rows, nil
		}
		if err != nil {
			return nil, fmt.Errorf("decode pb pair stream: %w", err)
		}
		rows = append(rows, pairToRow(p))
	}
}

func pairToRow(p *geompb.Pair) pairio.Row {
	row := pairio.Row{I: int(p.I), J: int(p.J)}
	switch p.Status {
	case geompb.Status_OVERLAP:
		row.Status = pairio.StatusOverlap
		row.VolCommon, row.VolI, row.VolJ, row.HasVolumes = p.VolCommon, p.VolI, p.VolJ, true
	case geompb.Status_BAD_OVERLAP:
		row.Status = pairio.StatusBadOverlap
		row.VolCommon, row.VolI, row.VolJ, row.HasVolumes = p.VolCommon, p.VolI, p.VolJ, true
	default:
		row.Status = pairio.StatusTouch
	}
	return row
}
