package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/lehigh-university-libraries/snapshot/internal/booth"
	"github.com/lehigh-university-libraries/snapshot/internal/client"
	"github.com/spf13/cobra"
)

func newCaptureCmd() *cobra.Command {
	var server string
	var devices []string
	var filterName string
	var presetsPath string
	var countdown float64
	var count int
	var interactive bool

	cmd := &cobra.Command{
		Use:   "capture",
		Short: "Run the photo booth against a SnapShot server",
		Long: `Runs the photo booth.

Each --device is a camera; the file-backed camera used here takes its
picture from an image file that is re-read on every frame. A capture runs
the countdown, grabs the frame, applies the filter and uploads the PNG.

In interactive mode press Enter to take a photo. Other commands:
  s            switch to the next camera
  f NAME       use filter NAME ("none" to clear)
  t SECONDS    set the countdown (0 is immediate, otherwise 1 to 5)
  g            show the gallery
  d FILENAME   delete a photo (asks first)
  x            clear the gallery (photos stay on the server)
  q            quit`,
		Example: `  # Take one photo with a sepia filter after three seconds
  snapshot capture --device ./frame.png --filter sepia

  # Interactive booth with two cameras and custom presets
  snapshot capture -i --device cam0.jpg --device cam1.jpg --filters filters.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(devices) == 0 {
				return fmt.Errorf("at least one --device is required")
			}

			presets, err := loadPresets(presetsPath)
			if err != nil {
				return err
			}
			filter, err := presets.Lookup(filterName)
			if err != nil {
				return fmt.Errorf("%w (available: %s)", err, strings.Join(presets.Names(), ", "))
			}

			out := cmd.OutOrStdout()
			status := &syncWriter{w: cmd.ErrOrStderr()}
			c := client.NewClient(server)
			gallery := booth.NewGallery(c.PhotoURL)
			if err := gallery.Hydrate(cmd.Context(), c); err != nil {
				slog.Warn("Unable to load gallery", "err", err)
			}

			engine := booth.NewEngine(booth.FileDevices(devices...), c,
				booth.WithGallery(gallery),
				booth.WithFlash(func() { fmt.Fprintln(status, "*flash*") }),
				booth.WithProgress(progressBar(status)),
			)
			defer engine.Close()
			engine.SetFilter(filter)
			engine.SetCountdown(secondsToDuration(countdown))

			startErr := engine.Start(cmd.Context())
			if !interactive {
				if startErr != nil {
					return startErr
				}
				return captureN(cmd.Context(), out, engine, count)
			}

			if startErr != nil {
				fmt.Fprintf(out, "%s: %v (press s to try the next camera)\n", booth.ErrorLabel, startErr)
			}
			s := &boothSession{
				engine:  engine,
				gallery: gallery,
				client:  c,
				presets: presets,
				in:      bufio.NewReader(cmd.InOrStdin()),
				out:     out,
			}
			return s.run(cmd.Context())
		},
	}

	cmd.Flags().StringVar(&server, "server", defaultServer, "Base URL of the SnapShot server")
	cmd.Flags().StringArrayVar(&devices, "device", nil, "Image file acting as a camera (repeatable)")
	cmd.Flags().StringVar(&filterName, "filter", "none", "Filter preset to apply")
	cmd.Flags().StringVar(&presetsPath, "filters", "filters.yaml", "YAML file with filter presets (built-in presets if missing)")
	cmd.Flags().Float64Var(&countdown, "countdown", booth.DefaultCountdown.Seconds(), "Countdown in seconds, 0 for immediate")
	cmd.Flags().IntVar(&count, "count", 1, "Number of photos to take")
	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "Read booth commands from stdin")

	return cmd
}

func loadPresets(path string) (*booth.Presets, error) {
	presets, err := booth.LoadPresets(path)
	if errors.Is(err, fs.ErrNotExist) {
		return booth.DefaultPresets(), nil
	}
	return presets, err
}

func secondsToDuration(s float64) time.Duration {
	return booth.ClampCountdown(time.Duration(s * float64(time.Second)))
}

// syncWriter serializes writes from the flash goroutine and the countdown.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}

func progressBar(w io.Writer) func(float64) {
	const width = 20
	return func(p float64) {
		filled := int(p * width)
		fmt.Fprintf(w, "\r[%-*s] %3.0f%%", width, strings.Repeat("#", filled), p*100)
		if p >= 1 {
			fmt.Fprintln(w)
		}
	}
}

func captureN(ctx context.Context, out io.Writer, engine *booth.Engine, n int) error {
	for i := 0; i < n; i++ {
		result, err := engine.Trigger(ctx)
		if errors.Is(err, booth.ErrVideoNotReady) {
			continue
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Saved %s\n", result.Filename)
	}
	return nil
}

// boothSession is the state of one interactive booth run.
type boothSession struct {
	engine  *booth.Engine
	gallery *booth.Gallery
	client  *client.Client
	presets *booth.Presets
	in      *bufio.Reader
	out     io.Writer
}

func (s *boothSession) run(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return nil
		}
		fmt.Fprint(s.out, "> ")
		line, err := s.in.ReadString('\n')
		if err != nil && line == "" {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		if quit := s.handle(ctx, strings.TrimSpace(line)); quit {
			return nil
		}
	}
}

func (s *boothSession) handle(ctx context.Context, line string) bool {
	command, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	switch command {
	case "", "c":
		result, err := s.engine.Trigger(ctx)
		switch {
		case errors.Is(err, booth.ErrVideoNotReady):
		case errors.Is(err, booth.ErrNotReady):
			_, label := s.engine.State()
			fmt.Fprintf(s.out, "%s\n", label)
		case err != nil:
			fmt.Fprintf(s.out, "Capture failed: %v\n", err)
		default:
			fmt.Fprintf(s.out, "Saved %s\n", result.Filename)
		}
	case "s":
		if err := s.engine.SwitchDevice(ctx); err != nil {
			fmt.Fprintf(s.out, "%s: %v\n", booth.ErrorLabel, err)
			break
		}
		fmt.Fprintf(s.out, "Using %s\n", s.engine.Device().Label())
	case "f":
		f, err := s.presets.Lookup(arg)
		if err != nil {
			fmt.Fprintf(s.out, "%v (available: %s)\n", err, strings.Join(s.presets.Names(), ", "))
			break
		}
		s.engine.SetFilter(f)
		fmt.Fprintf(s.out, "Filter %s\n", f.Name)
	case "t":
		secs, err := strconv.ParseFloat(arg, 64)
		if err != nil {
			fmt.Fprintf(s.out, "Invalid countdown %q\n", arg)
			break
		}
		s.engine.SetCountdown(secondsToDuration(secs))
		fmt.Fprintf(s.out, "Countdown %s\n", s.engine.Countdown())
	case "g":
		photos := s.gallery.List()
		if len(photos) == 0 {
			fmt.Fprintln(s.out, "Gallery is empty")
		}
		for i, p := range photos {
			fmt.Fprintf(s.out, "%2d. %s\n", i+1, p.URL)
		}
	case "d":
		removed, err := s.gallery.Remove(ctx, s.client, arg, func(p booth.Photo) bool {
			return confirm(s.in, s.out, fmt.Sprintf("Delete %s?", p.Filename))
		})
		switch {
		case err != nil:
			fmt.Fprintf(s.out, "Error deleting photo: %v\n", err)
		case removed:
			fmt.Fprintf(s.out, "Deleted %s\n", arg)
		}
	case "x":
		s.gallery.Clear()
		fmt.Fprintln(s.out, "Gallery cleared")
	case "q":
		return true
	default:
		fmt.Fprintf(s.out, "Unknown command %q\n", command)
	}
	return false
}
