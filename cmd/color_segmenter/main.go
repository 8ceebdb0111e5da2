package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"arpaint/lib"

	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"
)

const segmenterWindow = "Color Segmenter"

func main() {
	var (
		jsonPath string
		cameraID int
		mirror   bool
		debug    bool
	)
	flag.StringVar(&jsonPath, "json", "", "Full path to json file (required)")
	flag.StringVar(&jsonPath, "j", "", "Shorthand for -json")
	flag.IntVar(&cameraID, "camera", 0, "Camera device id")
	flag.BoolVar(&mirror, "mirror", true, "Flip camera frames horizontally")
	flag.BoolVar(&debug, "debug", false, "Enable debug logging")
	flag.Parse()

	if jsonPath == "" {
		fmt.Fprintln(os.Stderr, "the -json flag is required")
		flag.Usage()
		os.Exit(2)
	}

	logger := lib.NewLogger(debug)

	initial, err := initialLimits(jsonPath)
	if err != nil {
		logger.WithError(err).Fatal("Failed to load color limits")
	}

	fmt.Println(`Move the trackbars until only the marker is visible.`)
	fmt.Println(`Press "w" to save the limits and "q" to quit.`)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	camConfig := lib.DefaultCameraConfig()
	camConfig.CameraID = cameraID
	camConfig.Mirror = mirror

	if err := run(ctx, camConfig, jsonPath, initial, logger); err != nil {
		stop()
		logger.WithError(err).Fatal("Color segmenter stopped")
	}
}

// initialLimits starts from an existing limits file, or from the full range when there is none
func initialLimits(path string) (lib.Limits, error) {
	limits, err := lib.LoadLimits(path)
	if errors.Is(err, fs.ErrNotExist) {
		return lib.FullRange(), nil
	}
	return limits, err
}

func run(ctx context.Context, camConfig lib.CameraConfig, jsonPath string, initial lib.Limits, logger *logrus.Logger) error {
	camera, err := lib.OpenCamera(camConfig)
	if err != nil {
		return err
	}
	defer camera.Close()

	window := gocv.NewWindow(segmenterWindow)
	defer window.Close()

	bars := newTrackbars(window, initial)

	frame := gocv.NewMat()
	defer frame.Close()

	mask := gocv.NewMat()
	defer mask.Close()

	result := gocv.NewMat()
	defer result.Close()

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		err := camera.Read(&frame)
		switch {
		case errors.Is(err, lib.ErrCameraLost):
			return err
		case err != nil:
			logger.WithError(err).Warn("Skipping frame")
		default:
			limits := bars.Limits()
			limits.Threshold(frame, &mask)

			// Pixels outside the mask stay black
			if result.Rows() != frame.Rows() || result.Cols() != frame.Cols() {
				result.Close()
				result = gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), frame.Rows(), frame.Cols(), frame.Type())
			} else {
				result.SetTo(gocv.NewScalar(0, 0, 0, 0))
			}
			gocv.BitwiseAndWithMask(frame, frame, &result, mask)
			window.IMShow(result)
		}

		switch lib.CommandForKey(window.WaitKey(1)) {
		case lib.CmdSave:
			limits := bars.Limits()
			if err := lib.SaveLimits(jsonPath, limits); err != nil {
				logger.WithError(err).Warn("Limits not saved")
				continue
			}
			logger.WithFields(logrus.Fields{
				"file": jsonPath,
				"B":    limits.B,
				"G":    limits.G,
				"R":    limits.R,
			}).Info("Limits saved")
		case lib.CmdQuit:
			return nil
		}
	}
}

// trackbars are the six threshold sliders of the segmenter window
type trackbars struct {
	minB, maxB *gocv.Trackbar
	minG, maxG *gocv.Trackbar
	minR, maxR *gocv.Trackbar
}

func newTrackbars(window *gocv.Window, initial lib.Limits) *trackbars {
	create := func(name string, pos int) *gocv.Trackbar {
		tb := window.CreateTrackbar(name, 255)
		tb.SetPos(pos)
		return tb
	}

	return &trackbars{
		minB: create("min B", initial.B.Min),
		maxB: create("max B", initial.B.Max),
		minG: create("min G", initial.G.Min),
		maxG: create("max G", initial.G.Max),
		minR: create("min R", initial.R.Min),
		maxR: create("max R", initial.R.Max),
	}
}

// Limits reads the current slider positions
func (t *trackbars) Limits() lib.Limits {
	return lib.Limits{
		B: lib.Range{Min: t.minB.GetPos(), Max: t.maxB.GetPos()},
		G: lib.Range{Min: t.minG.GetPos(), Max: t.maxG.GetPos()},
		R: lib.Range{Min: t.minR.GetPos(), Max: t.maxR.GetPos()},
	}
}
