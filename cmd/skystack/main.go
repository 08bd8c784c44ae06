/*
NAME
  main.go

DESCRIPTION
  skystack is a standalone command-line front end for the stacking
  pipeline: it opens a video or image-list source, drives every stage to
  completion, and writes the resulting composite to a TIFF file.

AUTHORS
  skystack contributors

LICENSE
  Licensed under the MIT License. See LICENSE for details.
*/

// skystack drives the four-stage lucky-imaging pipeline over a single
// input and writes the stacked composite to disk.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/ausocean/utils/logging"

	"github.com/starvane/skystack/config"
	"github.com/starvane/skystack/container/tiff"
	"github.com/starvane/skystack/internal/ioerr"
	"github.com/starvane/skystack/internal/pixel"
	"github.com/starvane/skystack/pipeline"
	"github.com/starvane/skystack/source"
)

// Current software version.
const version = "v0.1.0"

// Logging defaults, mirroring the teacher CLI's lumberjack setup.
const (
	logMaxSizeMB  = 50
	logMaxBackups = 5
	logMaxAgeDays = 28
	pkg           = "skystack: "
)

func main() {
	var (
		inPath       = flag.String("input", "", "input video (AVI/SER) or image-list directory (BMP/TIFF)")
		outPath      = flag.String("output", "stack.tiff", "output composite path (.tiff)")
		flatPath     = flag.String("flatfield", "", "optional flatfield gain map (BMP/TIFF) to multiply every contribution by")
		alignMethod  = flag.String("align", "anchors", "image alignment method: anchors or centroid")
		logPath      = flag.String("log", "", "log file path (lumberjack rotation); empty logs to stderr")
		verbosity    = flag.Int("v", int(logging.Info), "log verbosity (see github.com/ausocean/utils/logging)")
		plotPrefix   = flag.String("plot", "", "if set, write <prefix>-quality.png and <prefix>-translation.png diagnostic charts")
		showVersion  = flag.Bool("version", false, "show version")
	)
	flag.Parse()
	if *showVersion {
		fmt.Println(version)
		os.Exit(0)
	}
	if *inPath == "" {
		fmt.Fprintln(os.Stderr, pkg+"-input is required")
		os.Exit(2)
	}

	var out io.Writer = os.Stderr
	if *logPath != "" {
		out = &lumberjack.Logger{
			Filename:   *logPath,
			MaxSize:    logMaxSizeMB,
			MaxBackups: logMaxBackups,
			MaxAge:     logMaxAgeDays,
		}
	}
	log := logging.New(int8(*verbosity), out, true)
	log.Info("starting skystack", "version", version)

	cfg := &config.Config{Logger: log, InputPath: *inPath, OutputPath: *outPath, FlatfieldPath: *flatPath}
	switch strings.ToLower(*alignMethod) {
	case "anchors":
		cfg.AlignMethod = config.AlignAnchors
	case "centroid":
		cfg.AlignMethod = config.AlignCentroid
	default:
		log.Fatal(pkg+"unknown -align value", "value", *alignMethod)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal(pkg+"invalid configuration", "error", err.Error())
	}

	src, err := openSource(*inPath)
	if err != nil {
		log.Fatal(pkg+"could not open input", "error", err.Error())
	}

	log.Debug("running pipeline")
	p := pipeline.New(src, cfg)
	stackStage, err := p.Run()
	if err != nil {
		log.Fatal(pkg+"pipeline failed", "error", err.Error())
	}
	log.Info("pipeline complete", "stats", fmt.Sprintf("%+v", p.Stats))

	if err := writeComposite(stackStage.Result(), *outPath); err != nil {
		log.Fatal(pkg+"could not write output", "error", err.Error())
	}
	log.Info("wrote composite", "path", *outPath)

	if *plotPrefix != "" {
		if err := writeDiagnostics(p, *plotPrefix); err != nil {
			log.Error(pkg+"could not write diagnostic plots", "error", err.Error())
		} else {
			log.Info("wrote diagnostic plots", "prefix", *plotPrefix)
		}
	}
}

// openSource dispatches inPath to source.OpenVideo or source.OpenImageList
// depending on whether it names a file or a directory.
func openSource(inPath string) (source.ImageSource, error) {
	fi, err := os.Stat(inPath)
	if err != nil {
		return nil, ioerr.Wrap(ioerr.CodeCannotOpenFile, err, "skystack: stat input path")
	}
	if fi.IsDir() {
		return source.OpenImageList(inPath)
	}
	return source.OpenVideo(inPath)
}

// writeComposite converts result (MONO32F or RGB32F) to the matching
// 16-bit TIFF format and encodes it. BMP output isn't supported: bmp.Encode
// only writes 8-bit paletted data, and nothing in the pipeline quantizes a
// composite down to a palette.
func writeComposite(result *pixel.Image, outPath string) error {
	switch strings.ToLower(filepath.Ext(outPath)) {
	case ".tiff", ".tif":
	default:
		return ioerr.New(ioerr.CodeUnsupportedFileFormat, "skystack: unsupported output extension %q (want .tiff)", outPath)
	}

	dstFmt := pixel.MONO16
	if result.Format.Channels() == 3 {
		dstFmt = pixel.RGB16
	}
	im, err := pixel.Convert(result, result.Bounds(), dstFmt)
	if err != nil {
		return err
	}

	f, err := os.Create(outPath)
	if err != nil {
		return ioerr.Wrap(ioerr.CodeCannotOpenFile, err, "skystack: creating output file")
	}
	defer f.Close()
	return tiff.Encode(f, im)
}

// writeDiagnostics renders two charts: the quality-estimation stage's
// per-frame summed tile quality, and reference-point alignment's per-frame
// mean accepted translation length.
func writeDiagnostics(p *pipeline.Pipeline, prefix string) error {
	frames := p.Stats.Frames

	qualityPts := make(plotter.XYs, frames)
	for i := 0; i < frames; i++ {
		qualityPts[i].X = float64(i)
		qualityPts[i].Y = p.Quality.FrameSum(i)
	}
	if err := savePlot(prefix+"-quality.png", "per-frame quality sum", "active frame", "quality sum", qualityPts); err != nil {
		return err
	}

	lengthPts := make(plotter.XYs, frames)
	for i := 0; i < frames; i++ {
		lengthPts[i].X = float64(i)
		lengthPts[i].Y = p.RefPoint.FrameMeanLength(i)
	}
	return savePlot(prefix+"-translation.png", "per-frame mean accepted translation length", "active frame", "length (px)", lengthPts)
}

func savePlot(path, title, xLabel, yLabel string, pts plotter.XYs) error {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = xLabel
	p.Y.Label.Text = yLabel

	line, err := plotter.NewLine(pts)
	if err != nil {
		return err
	}
	p.Add(line)

	return p.Save(8*vg.Inch, 4*vg.Inch, path)
}
