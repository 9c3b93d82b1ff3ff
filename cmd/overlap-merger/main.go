// overlap-merger clusters and unifies the vertices, edges and faces
// abutting solids share, so a subsequent validity check does not see
// cracks at touching boundaries.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/grailbio/base/grail"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/vcontext"

	"github.com/ukaea/overlap-checker/config"
	"github.com/ukaea/overlap-checker/internal/boxkernel"
	"github.com/ukaea/overlap-checker/internal/merge"
)

var tolerance = flag.Float64("tolerance", 0.001, "Vertex/edge/face clustering tolerance")

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: %s [OPTIONS] input.brep output.brep\n", os.Args[0])
	flag.PrintDefaults()
}

func main() {
	flag.Usage = usage
	shutdown := grail.Init()
	defer shutdown()

	if flag.NArg() != 2 {
		log.Error.Printf("overlap-merger: expected input.brep and output.brep, got %v", flag.Args())
		os.Exit(1)
	}
	inputPath, outputPath := flag.Arg(0), flag.Arg(1)

	opts := config.DefaultOpts()
	opts.MergeTolerance = *tolerance
	if err := opts.ValidateMerger(); err != nil {
		log.Error.Printf("overlap-merger: %v", err)
		os.Exit(1)
	}

	ctx := vcontext.Background()
	codec := boxkernel.FileCodec{}
	doc, err := codec.Load(ctx, inputPath)
	if err != nil {
		log.Error.Printf("overlap-merger: %v", err)
		os.Exit(1)
	}

	m := merge.New(boxkernel.New(), opts.MergeTolerance)
	summary, err := m.Merge(doc)
	if err != nil {
		log.Error.Printf("overlap-merger: %v", err)
		os.Exit(1)
	}

	if err := codec.Save(ctx, outputPath, doc); err != nil {
		log.Error.Printf("overlap-merger: %v", err)
		os.Exit(1)
	}

	log.Info.Printf("overlap-merger: %d leaves, %d vertex clusters, %d edge groups, %d face groups",
		summary.Leaves, summary.VertexClusters, summary.EdgeGroups, summary.FaceGroups)
}
