// Command qinfer classifies 28x28 grayscale images with the quantized
// perceptron.
//
// Usage:
//
//	qinfer [flags] image.bin [image.bin ...]
//
// Each input is 784 raw pixel bytes, read from a path or any URI the
// blobstore understands. Without -weights the model is initialized from
// -seed.
//
// Examples:
//
//	qinfer digit.bin
//	qinfer -weights gs://models/mlp/weights.bin digit.bin
//	qinfer -repeat 10 -interval 500ms digit.bin
//	qinfer -compare -scalar digit.bin
//	qinfer -seed 7 -init weights.bin
//	qinfer -cpuinfo
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"text/tabwriter"
	"time"

	"k8s.io/klog/v2"

	"github.com/cwbudde/algo-infer/infer/arena"
	"github.com/cwbudde/algo-infer/infer/blobstore"
	"github.com/cwbudde/algo-infer/infer/layers"
	"github.com/cwbudde/algo-infer/infer/model"
	"github.com/cwbudde/algo-infer/infer/sched"
	"github.com/cwbudde/algo-infer/infer/vector"
	"github.com/cwbudde/algo-infer/internal/cpu"
)

type options struct {
	weights  string
	seed     int64
	initPath string
	repeat   int
	interval time.Duration
	compare  bool
	scalar   bool
	capacity int64
}

func main() {
	klog.InitFlags(nil)

	var opts options
	flag.StringVar(&opts.weights, "weights", "", "weight blob path or URI (file://, gs://, http(s)://); random init when empty")
	flag.Int64Var(&opts.seed, "seed", 1, "seed for random initialization")
	flag.StringVar(&opts.initPath, "init", "", "write the model's weight blob to this path and exit")
	flag.IntVar(&opts.repeat, "repeat", 1, "number of classification rounds")
	flag.DurationVar(&opts.interval, "interval", 0, "delay between rounds")
	flag.BoolVar(&opts.compare, "compare", false, "also print the float reference classification")
	flag.BoolVar(&opts.scalar, "scalar", false, "force the scalar kernels")
	flag.Int64Var(&opts.capacity, "arena", 64<<20, "arena capacity in bytes (0 = unbounded)")
	cpuInfo := flag.Bool("cpuinfo", false, "print detected CPU features and the selected kernels")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: qinfer [flags] image.bin [image.bin ...]\n\n")
		fmt.Fprintf(os.Stderr, "Classifies 784-byte grayscale images with a quantized perceptron.\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  qinfer digit.bin\n")
		fmt.Fprintf(os.Stderr, "  qinfer -weights gs://models/mlp/weights.bin digit.bin\n")
		fmt.Fprintf(os.Stderr, "  qinfer -repeat 10 -interval 500ms digit.bin\n")
		fmt.Fprintf(os.Stderr, "  qinfer -seed 7 -init weights.bin\n")
	}
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = klog.NewContext(ctx, klog.Background())

	engine := vector.Default()
	if opts.scalar {
		engine = vector.Scalar()
	}

	if *cpuInfo {
		printCPUInfo(engine)
		return
	}

	if opts.initPath == "" && flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	err := run(ctx, opts, engine, flag.Args())
	klog.Flush()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options, engine *vector.Engine, inputs []string) error {
	log := klog.FromContext(ctx)

	a := arena.New(arena.WithCapacity(opts.capacity), arena.WithLogger(log))
	defer func() {
		if err := a.Close(); err != nil {
			log.Error(err, "closing arena")
		}
	}()

	m, err := loadModel(ctx, opts, a, engine)
	if err != nil {
		return err
	}
	defer func() {
		if err := m.Close(); err != nil {
			log.Error(err, "closing model")
		}
	}()

	if opts.initPath != "" {
		return writeBlob(m, opts.initPath)
	}

	images := make([][]byte, len(inputs))
	for i, uri := range inputs {
		images[i], err = readImage(ctx, uri, m.Shape().In)
		if err != nil {
			return err
		}
	}

	s := sched.New(ctx)
	defer func() { _ = s.Close() }()

	for round := 0; round < max(opts.repeat, 1); round++ {
		delay := opts.interval
		if round == 0 {
			delay = 0
		}

		var roundErr error
		tm, err := s.ScheduleOnce(delay, func() {
			roundErr = classifyAll(m, inputs, images, opts.compare)
		})
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}

		select {
		case <-tm.Done():
		case <-ctx.Done():
			if _, err := s.Cancel(tm); err != nil {
				return err
			}
			<-tm.Done()
			return ctx.Err()
		}
		if roundErr != nil {
			return roundErr
		}
		log.V(1).Info("round complete", "round", round, "at_us", sched.Now())
	}
	return nil
}

func loadModel(ctx context.Context, opts options, a *arena.Arena, engine *vector.Engine) (*model.Model, error) {
	if opts.weights == "" {
		return model.NewRandom(ctx, model.DefaultShape, opts.seed, a, model.WithEngine(engine))
	}

	r, err := blobstore.Open(ctx, opts.weights)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	return model.Load(ctx, r, model.DefaultShape, a, model.WithEngine(engine))
}

func writeBlob(m *model.Model, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := m.WriteBlob(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func readImage(ctx context.Context, uri string, size int) ([]byte, error) {
	r, err := blobstore.Open(ctx, uri)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	pixels := make([]byte, size)
	if _, err := io.ReadFull(r, pixels); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("%s: want %d pixel bytes", uri, size)
		}
		return nil, fmt.Errorf("%s: %w", uri, err)
	}
	return pixels, nil
}

func classifyAll(m *model.Model, names []string, images [][]byte, compare bool) error {
	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	header := "Input\tClass\tConfidence\tScore"
	if compare {
		header += "\tReference"
	}
	fmt.Fprintln(tw, header)

	for i, pixels := range images {
		res, err := m.Classify(pixels)
		if err != nil {
			return fmt.Errorf("%s: %w", names[i], err)
		}
		line := fmt.Sprintf("%s\t%d\t%.2f%%\t%.4f", names[i], res.Class, res.Confidence*100, res.Scores[res.Class])
		if compare {
			refClass, err := referenceClass(m, pixels)
			if err != nil {
				return err
			}
			line += fmt.Sprintf("\t%d", refClass)
		}
		fmt.Fprintln(tw, line)
	}
	return tw.Flush()
}

func referenceClass(m *model.Model, pixels []byte) (int, error) {
	input := make([]float32, len(pixels))
	for i, p := range pixels {
		input[i] = float32(p) / 255
	}
	ref, err := m.ReferenceForward(input)
	if err != nil {
		return 0, err
	}
	scores := make([]float32, len(ref))
	for i, v := range ref {
		scores[i] = float32(v)
	}
	return layers.Argmax(scores), nil
}

func printCPUInfo(engine *vector.Engine) {
	f := cpu.DetectFeatures()
	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Architecture\t%s\n", f.Architecture)
	fmt.Fprintf(tw, "SSE2\t%v\n", f.HasSSE2)
	fmt.Fprintf(tw, "AVX\t%v\n", f.HasAVX)
	fmt.Fprintf(tw, "AVX2\t%v\n", f.HasAVX2)
	fmt.Fprintf(tw, "AVX-512\t%v\n", f.HasAVX512)
	fmt.Fprintf(tw, "NEON\t%v\n", f.HasNEON)
	fmt.Fprintf(tw, "Best level\t%s\n", f.Best())
	fmt.Fprintf(tw, "Kernels\t%s (%d lanes)\n", engine.Name(), engine.Lanes())
	if err := tw.Flush(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "error: failed to flush output: %v\n", err)
	}
}
