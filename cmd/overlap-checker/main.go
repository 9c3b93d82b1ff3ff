// overlap-checker scans a BREP assembly for intersecting pairs of solids
// and reports them as a pair-list CSV: touch, overlap, or bad_overlap.
package main

/*
overlap-checker enumerates candidate pairs via an oriented-bounding-box
broad phase, classifies each surviving pair with the tolerance-ladder
intersection classifier, and writes the result as a pair-list CSV (or,
with --format=pb, a length-prefixed protobuf stream). It never mutates
the input assembly.
*/

import (
	"bytes"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/grailbio/base/grail"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/vcontext"
	"github.com/klauspost/compress/gzip"

	"github.com/ukaea/overlap-checker/config"
	"github.com/ukaea/overlap-checker/internal/boolop"
	"github.com/ukaea/overlap-checker/internal/boxkernel"
	"github.com/ukaea/overlap-checker/internal/geompb"
	"github.com/ukaea/overlap-checker/internal/pairio"
	"github.com/ukaea/overlap-checker/internal/pool"
	"github.com/ukaea/overlap-checker/internal/schedule"
)

var (
	threads              = flag.Int("j", 0, "Number of worker threads; 0 = host core count")
	bboxClearance        = flag.Float64("bbox-clearance", 0.5, "Broad-phase oriented-bounding-box enlargement margin")
	maxCommonVolumeRatio = flag.Float64("max-common-volume-ratio", 0.01, "Overlap is reported bad_overlap when vol_common exceeds this fraction of the smaller of the two CUT (non-shared) volumes")
	timePerPair          = flag.Duration("time-per-pair", 60*time.Second, "Per-pair pave-fill timeout")
	outputFormat         = flag.String("format", "csv", "Pair-list output format: 'csv' or 'pb'")
	gzipOutput           = flag.Bool("gzip", false, "Compress the CSV pair list with gzip (ignored for --format=pb)")
)

var ladderFlag config.FloatListFlag

func init() {
	flag.Var(&ladderFlag, "imprint-tolerance", "Tolerance-ladder rung (repeatable); default ladder is 0.001, 0")
}

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: %s [OPTIONS] input.brep output.pairs\n", os.Args[0])
	flag.PrintDefaults()
}

func main() {
	flag.Usage = usage
	shutdown := grail.Init()
	defer shutdown()

	if flag.NArg() != 2 {
		log.Error.Printf("overlap-checker: expected input.brep and output.pairs, got %v", flag.Args())
		os.Exit(1)
	}
	inputPath, outputPath := flag.Arg(0), flag.Arg(1)

	opts := config.DefaultOpts()
	opts.Threads = *threads
	opts.BBoxClearance = *bboxClearance
	opts.MaxCommonVolumeRatio = *maxCommonVolumeRatio
	opts.TimePerPair = *timePerPair
	if len(ladderFlag.Values) > 0 {
		opts.ImprintLadder = ladderFlag.Values
	}
	if err := opts.ValidateChecker(); err != nil {
		log.Error.Printf("overlap-checker: %v", err)
		os.Exit(1)
	}
	if *outputFormat != "csv" && *outputFormat != "pb" {
		log.Error.Printf("overlap-checker: --format must be 'csv' or 'pb', got %q", *outputFormat)
		os.Exit(1)
	}

	ctx := vcontext.Background()
	doc, err := boxkernel.FileCodec{}.Load(ctx, inputPath)
	if err != nil {
		log.Error.Printf("overlap-checker: %v", err)
		os.Exit(1)
	}

	// pool.New(0) itself resolves to the host's schedulable core count.
	p := pool.New(opts.Threads)
	defer p.Close()

	driver := boolop.New(boxkernel.New())

	scheduleOpts := schedule.Opts{
		BBoxClearance:        opts.BBoxClearance,
		Ladder:               opts.ImprintLadder,
		TimePerPair:          opts.TimePerPair,
		MaxCommonVolumeRatio: opts.MaxCommonVolumeRatio,
	}

	// schedule.Run always writes pairio's CSV rows; a csv buffer so the
	// --format=pb path can re-encode the same rows without schedule
	// itself knowing about the wire-message format.
	var csvBuf bytes.Buffer
	summary, err := schedule.Run(ctx, p, driver, doc, pairio.NewWriter(&csvBuf), scheduleOpts)
	if err != nil {
		log.Error.Printf("overlap-checker: %v", err)
		os.Exit(1)
	}

	if err := writeResult(outputPath, &csvBuf, *outputFormat, *gzipOutput); err != nil {
		log.Error.Printf("overlap-checker: %v", err)
		os.Exit(1)
	}

	log.Info.Printf("overlap-checker: %d pairs: %d touch, %d overlap, %d bad_overlap, %d failed",
		summary.Pairs, summary.Touches, summary.Overlaps, summary.BadOverlaps, summary.Failed)

	if summary.Failed > 0 || summary.BadOverlaps > 0 {
		os.Exit(1)
	}
}

// writeResult persists the CSV rows schedule.Run produced to outputPath,
// either as-is (optionally gzipped) or re-encoded as a length-prefixed
// geompb stream.
func writeResult(outputPath string, csvBuf *bytes.Buffer, format string, gzipOut bool) error {
	out, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("create %s: %w", outputPath, err)
	}
	defer out.Close()

	if format == "pb" {
		rows, err := pairio.ReadAll(bytes.NewReader(csvBuf.Bytes()))
		if err != nil {
			return fmt.Errorf("decode scheduler output: %w", err)
		}
		for _, r := range rows {
			if err := geompb.WriteDelimited(out, rowToPair(r)); err != nil {
				return fmt.Errorf("encode pair (%d,%d): %w", r.I, r.J, err)
			}
		}
		return nil
	}

	var w io.Writer = out
	var gz *gzip.Writer
	if gzipOut {
		gz = gzip.NewWriter(out)
		w = gz
	}
	if _, err := w.Write(csvBuf.Bytes()); err != nil {
		return fmt.Errorf("write %s: %w", outputPath, err)
	}
	if gz != nil {
		if err := gz.Close(); err != nil {
			return fmt.Errorf("close gzip stream: %w", err)
		}
	}
	return nil
}

func rowToPair(r pairio.Row) *geompb.Pair {
	p := &geompb.Pair{I: int64(r.I), J: int64(r.J)}
	switch r.Status {
	case pairio.StatusOverlap:
		p.Status = geompb.Status_OVERLAP
	case pairio.StatusBadOverlap:
		p.Status = geompb.Status_BAD_OVERLAP
	default:
		p.Status = geompb.Status_TOUCH
	}
	if r.HasVolumes {
		p.VolCommon, p.VolI, p.VolJ = r.VolCommon, r.VolI, r.VolJ
	}
	return p
}
