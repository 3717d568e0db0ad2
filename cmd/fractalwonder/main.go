// Command fractalwonder renders a deep-zoom Mandelbrot view to a PNG file:
// parse the viewport and render options from flags, run the scheduler, and
// colorize the resulting pixel buffer with a palette.
package main

import (
	"image"
	"image/png"
	"log"
	"os"
	"runtime"
	"runtime/pprof"
	"sync/atomic"

	"github.com/pkg/errors"
	"github.com/urfave/cli"

	"github.com/whalelogic/fractalwonder/fractalconfig"
	"github.com/whalelogic/fractalwonder/palette"
	"github.com/whalelogic/fractalwonder/scheduler"
	"github.com/whalelogic/fractalwonder/viewport"
)

// VERSION is injected by build flags.
var VERSION = "SELFBUILD"

func main() {
	app := cli.NewApp()
	app.Name = "fractalwonder"
	app.Usage = "deep-zoom Mandelbrot renderer"
	app.Version = VERSION
	app.Flags = []cli.Flag{
		cli.IntFlag{Name: "width", Value: 1600, Usage: "output image width in pixels"},
		cli.IntFlag{Name: "height", Value: 1200, Usage: "output image height in pixels"},
		cli.StringFlag{Name: "centerx", Value: "-0.5", Usage: "viewport center real part, as a decimal string (arbitrary precision)"},
		cli.StringFlag{Name: "centery", Value: "0.0", Usage: "viewport center imaginary part, as a decimal string"},
		cli.StringFlag{Name: "spanwidth", Value: "4.0", Usage: "viewport width in fractal-space units, as a decimal string"},
		cli.StringFlag{Name: "spanheight", Value: "4.0", Usage: "viewport height in fractal-space units, as a decimal string"},
		cli.IntFlag{Name: "precision", Value: 128, Usage: "working precision in bits"},
		cli.IntFlag{Name: "procs", Value: runtime.NumCPU(), Usage: "concurrent tile worker count"},
		cli.StringFlag{Name: "outfile", Value: "fractalwonder.png", Usage: "output PNG filename"},
		cli.StringFlag{Name: "palette", Value: "NebulaSpectre", Usage: "palette name (case-sensitive)"},
		cli.StringFlag{Name: "fractal", Value: "mandelbrot", Usage: "fractal type ID"},
		cli.StringFlag{Name: "cpuprofile", Usage: "write CPU profile to this file"},
		cli.StringFlag{Name: "memprofile", Usage: "write heap profile to this file"},
	}

	app.Action = run

	if err := app.Run(os.Args); err != nil {
		log.Fatalf("%+v", err)
	}
}

func run(c *cli.Context) error {
	if cpuProfile := c.String("cpuprofile"); cpuProfile != "" {
		f, err := os.Create(cpuProfile)
		if err != nil {
			return errors.Wrap(err, "fractalwonder: create cpu profile")
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			return errors.Wrap(err, "fractalwonder: start cpu profile")
		}
		defer pprof.StopCPUProfile()
	}

	precision := uint(c.Int("precision"))
	vp, err := viewport.FromStrings(
		c.String("centerx"), c.String("centery"),
		c.String("spanwidth"), c.String("spanheight"),
		precision,
	)
	if err != nil {
		return errors.Wrap(err, "fractalwonder: invalid viewport")
	}

	cfg, ok := fractalconfig.Get(c.String("fractal"))
	if !ok {
		return errors.Errorf("fractalwonder: unknown fractal type %q", c.String("fractal"))
	}

	cmap := palette.Get(c.String("palette"))
	if cmap == nil {
		log.Println("palette not found; available palettes:")
		for _, p := range palette.ColorPalettes {
			log.Println(" -", p.Keyword)
		}
		return errors.Errorf("fractalwonder: palette %q not found", c.String("palette"))
	}

	width := c.Int("width")
	height := c.Int("height")
	workers := c.Int("procs")

	var cancel atomic.Bool
	opts := scheduler.Options{WorkerCount: workers, PrecisionBits: precision, Cancel: &cancel}

	s := scheduler.New(nil)
	result, err := s.Render(vp, uint32(width), uint32(height), cfg, opts)
	if err != nil {
		return errors.Wrap(err, "fractalwonder: render")
	}

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			px := result.Pixels[y*width+x]
			img.SetRGBA(x, y, palette.ColorizePixel(px, cmap))
		}
	}

	outfile := c.String("outfile")
	f, err := os.Create(outfile)
	if err != nil {
		return errors.Wrap(err, "fractalwonder: create output file")
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		return errors.Wrap(err, "fractalwonder: encode png")
	}

	log.Printf("saved %s (%dx%d), render %d, total iterations %d",
		outfile, width, height, result.RenderID, result.Stats.TotalIterations)

	if memProfile := c.String("memprofile"); memProfile != "" {
		f, err := os.Create(memProfile)
		if err != nil {
			return errors.Wrap(err, "fractalwonder: create heap profile")
		}
		defer f.Close()
		runtime.GC()
		if err := pprof.WriteHeapProfile(f); err != nil {
			return errors.Wrap(err, "fractalwonder: write heap profile")
		}
	}

	return nil
}
