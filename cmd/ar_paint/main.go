package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"image/color"
	"os"
	"os/signal"
	"syscall"

	"arpaint/lib"

	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"
)

const (
	paintWindow  = "AR Paint"
	cameraWindow = "Camera"
	waitKeyDelay = 10 // ms
)

type options struct {
	jsonPath           string
	maskColor          string
	useMouse           bool
	useCamera          bool
	useShakePrevention bool
	zones              bool
	cameraID           int
	mirror             bool
	outDir             string
	httpAddr           string
	penPort            string
	penBaud            int
	debug              bool
}

func parseFlags() options {
	var o options
	flag.StringVar(&o.jsonPath, "json", "", "Full path to json file (required)")
	flag.StringVar(&o.jsonPath, "j", "", "Shorthand for -json")
	flag.StringVar(&o.maskColor, "mask_color", "green", "Color of the mask preview: green, red or blue")
	flag.StringVar(&o.maskColor, "mc", "green", "Shorthand for -mask_color")
	flag.BoolVar(&o.useMouse, "use_mouse", false, "Use the mouse instead of the colored marker")
	flag.BoolVar(&o.useMouse, "um", false, "Shorthand for -use_mouse")
	flag.BoolVar(&o.useCamera, "use_camera", false, "Draw directly on the image given by the camera")
	flag.BoolVar(&o.useCamera, "cam", false, "Shorthand for -use_camera")
	flag.BoolVar(&o.useShakePrevention, "use_shake_prevention", false, "Use shake prevention for cleaner lines")
	flag.BoolVar(&o.useShakePrevention, "usp", false, "Shorthand for -use_shake_prevention")
	flag.BoolVar(&o.zones, "zones", false, "Display a canvas with numbered zones to paint")
	flag.BoolVar(&o.zones, "z", false, "Shorthand for -zones")
	flag.IntVar(&o.cameraID, "camera", 0, "Camera device id")
	flag.BoolVar(&o.mirror, "mirror", true, "Flip camera frames horizontally")
	flag.StringVar(&o.outDir, "out", ".", "Directory for saved drawings")
	flag.StringVar(&o.httpAddr, "http", "", "Serve the remote control API on this address (e.g. :8080)")
	flag.StringVar(&o.penPort, "pen_port", "", "Serial port of a pen button")
	flag.IntVar(&o.penBaud, "pen_baud", 9600, "Baud rate of the pen button")
	flag.BoolVar(&o.debug, "debug", false, "Enable debug logging")
	flag.Parse()
	return o
}

func main() {
	opts := parseFlags()
	if opts.jsonPath == "" {
		fmt.Fprintln(os.Stderr, "the -json flag is required")
		flag.Usage()
		os.Exit(2)
	}

	logger := lib.NewLogger(opts.debug)

	limits, err := lib.LoadLimits(opts.jsonPath)
	if err != nil {
		logger.WithError(err).Fatal("Failed to load color limits")
	}

	maskColor, err := parseMaskColor(opts.maskColor)
	if err != nil {
		logger.WithError(err).Fatal("Invalid mask color")
	}

	printBanner()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, opts, limits, maskColor, logger); err != nil {
		stop()
		logger.WithError(err).Fatal("AR paint stopped")
	}
}

func parseMaskColor(name string) (color.RGBA, error) {
	switch name {
	case "green":
		return lib.Green, nil
	case "red":
		return lib.Red, nil
	case "blue":
		return lib.Blue, nil
	}
	return color.RGBA{}, fmt.Errorf("unknown mask color %q", name)
}

func printBanner() {
	fmt.Println("Welcome to the drawing game!")
	fmt.Println(`To change your drawing color to blue, red or green, press "b", "r" or "g".`)
	fmt.Println(`Press "+" or "-" to increase or decrease the pencil size.`)
	fmt.Println(`Press "c" to clear the board, "w" to save it as PNG or "p" to export it as PDF.`)
	fmt.Println(`Press "q" to quit.`)
}

func run(ctx context.Context, opts options, limits lib.Limits, maskColor color.RGBA, logger *logrus.Logger) error {
	camConfig := lib.DefaultCameraConfig()
	camConfig.CameraID = opts.cameraID
	camConfig.Mirror = opts.mirror

	camera, err := lib.OpenCamera(camConfig)
	if err != nil {
		return err
	}
	defer camera.Close()

	frame := gocv.NewMat()
	defer frame.Close()

	size, err := camera.WaitForFrame(ctx, &frame, logger)
	if errors.Is(err, context.Canceled) {
		logger.Info("Interrupted before the first frame")
		return nil
	}
	if err != nil {
		return err
	}

	sessConfig := lib.DefaultSessionConfig()
	sessConfig.UseCamera = opts.useCamera
	sessConfig.UseMouse = opts.useMouse
	sessConfig.UseShakePrevention = opts.useShakePrevention
	sessConfig.UsePenTrigger = opts.penPort != ""
	sessConfig.Zones = opts.zones
	sessConfig.OutDir = opts.outDir

	session := lib.NewSession(sessConfig, size, logger)
	defer session.Close()

	if session.Zones != nil {
		fmt.Printf("Paint each zone with its color: %s\n", session.Zones.Legend())
	}

	detConfig := lib.DefaultColorDetectionConfig(limits)
	detConfig.MaskColor = maskColor
	detector := lib.NewMarkerDetector(detConfig)
	defer detector.Close()

	window := gocv.NewWindow(paintWindow)
	defer window.Close()

	var preview *gocv.Window
	if !opts.useMouse {
		preview = gocv.NewWindow(cameraWindow)
		defer preview.Close()
	} else {
		window.SetMouseHandler(func(event, x, y, flags int, _ interface{}) {
			session.Mouse(event, x, y)
		}, nil)
	}

	commands := make(chan lib.Command, 16)

	if opts.penPort != "" {
		penConfig := lib.DefaultPenTriggerConfig(opts.penPort)
		penConfig.BaudRate = opts.penBaud

		trigger := lib.NewPenTrigger(penConfig, logger)
		if err := trigger.Connect(); err != nil {
			return err
		}
		defer trigger.Close()
		logger.WithField("port", opts.penPort).Info("Pen trigger connected")

		penCtx, cancel := context.WithCancel(ctx)
		penDone := make(chan struct{})
		go func() {
			defer close(penDone)
			if err := trigger.Run(penCtx, commands); err != nil {
				logger.WithError(err).Error("Pen trigger stopped")
			}
		}()
		// Stop the reader before the port is closed
		defer func() {
			cancel()
			<-penDone
		}()
	}

	if opts.httpAddr != "" {
		snapshot := &lib.Snapshot{}
		session.AttachSnapshot(snapshot)
		server := lib.NewRemoteServer(opts.httpAddr, commands, snapshot, logger)

		serverCtx, cancel := context.WithCancel(ctx)
		serverDone := make(chan struct{})
		go func() {
			defer close(serverDone)
			if err := server.Start(serverCtx); err != nil {
				logger.WithError(err).Error("Remote control server stopped")
			}
		}()
		defer func() {
			cancel()
			<-serverDone
		}()
	}

	annotated := gocv.NewMat()
	defer annotated.Close()

	display := gocv.NewMat()
	defer display.Close()

	logger.WithFields(logrus.Fields{
		"width":  size.X,
		"height": size.Y,
		"mouse":  opts.useMouse,
		"camera": opts.useCamera,
	}).Info("Drawing started")

	for {
		select {
		case <-ctx.Done():
			logger.Info("Interrupted, shutting down")
			return nil
		default:
		}

		err := camera.Read(&frame)
		switch {
		case errors.Is(err, lib.ErrCameraLost):
			return err
		case err != nil:
			logger.WithError(err).Warn("Skipping frame")
		case !opts.useMouse:
			det := detector.Detect(frame)
			session.Track(det)

			detector.Annotate(frame, det, &annotated)
			preview.IMShow(annotated)
		}

		session.Render(frame, &display)
		window.IMShow(display)

		pending := []lib.Command{lib.CommandForKey(window.WaitKey(waitKeyDelay))}
	drain:
		for {
			select {
			case cmd := <-commands:
				pending = append(pending, cmd)
			default:
				break drain
			}
		}

		for _, cmd := range pending {
			quit, err := session.Apply(cmd)
			if err != nil {
				logger.WithError(err).WithField("command", cmd).Error("Command failed")
			}
			if quit {
				return nil
			}
		}

		session.Publish()
	}
}
