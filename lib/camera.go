package lib

import (
	"context"
	"errors"
	"fmt"
	"image"
	"time"

	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"
)

// missedFrameDelay paces retries while the camera delivers nothing
const missedFrameDelay = 10 * time.Millisecond

var (
	// ErrNoFrame is returned when the capture device delivered no image
	ErrNoFrame = errors.New("no image from the camera")

	// ErrCameraLost is returned once the camera stopped delivering frames for good
	ErrCameraLost = errors.New("camera lost")
)

// CameraConfig holds the capture settings
type CameraConfig struct {
	CameraID        int
	Mirror          bool // Flip frames horizontally so drawing follows the hand like a mirror
	MaxMissedFrames int  // Consecutive empty reads tolerated before giving up
}

// DefaultCameraConfig returns the settings used by both tools
func DefaultCameraConfig() CameraConfig {
	return CameraConfig{
		CameraID:        0,
		Mirror:          true,
		MaxMissedFrames: 100,
	}
}

// Camera reads BGR frames from a webcam
type Camera struct {
	Config CameraConfig
	webcam *gocv.VideoCapture
	raw    gocv.Mat
	missed int
}

// OpenCamera opens the capture device
func OpenCamera(config CameraConfig) (*Camera, error) {
	webcam, err := gocv.OpenVideoCapture(config.CameraID)
	if err != nil {
		return nil, fmt.Errorf("error opening webcam %d: %w", config.CameraID, err)
	}

	return &Camera{
		Config: config,
		webcam: webcam,
		raw:    gocv.NewMat(),
	}, nil
}

// Close releases the capture device
func (c *Camera) Close() {
	if c.webcam != nil {
		c.webcam.Close()
	}
	c.raw.Close()
}

// Read grabs the next frame into frame. It returns ErrNoFrame for a missing frame,
// and ErrCameraLost once MaxMissedFrames reads in a row have failed.
func (c *Camera) Read(frame *gocv.Mat) error {
	if ok := c.webcam.Read(&c.raw); !ok || c.raw.Empty() {
		c.missed++
		if c.Config.MaxMissedFrames > 0 && c.missed >= c.Config.MaxMissedFrames {
			return fmt.Errorf("camera gave up after %d missed frames: %w", c.missed, ErrCameraLost)
		}
		return ErrNoFrame
	}
	c.missed = 0

	if c.Config.Mirror {
		gocv.Flip(c.raw, frame, 1)
	} else {
		c.raw.CopyTo(frame)
	}
	return nil
}

// WaitForFrame reads until the camera delivers an image and returns its size.
// It gives up when ctx is done or the camera is lost.
func (c *Camera) WaitForFrame(ctx context.Context, frame *gocv.Mat, logger *logrus.Logger) (image.Point, error) {
	return waitForFrame(ctx, c, frame, missedFrameDelay, logger)
}

type frameReader interface {
	Read(frame *gocv.Mat) error
}

func waitForFrame(ctx context.Context, r frameReader, frame *gocv.Mat, delay time.Duration, logger *logrus.Logger) (image.Point, error) {
	for {
		err := r.Read(frame)
		if err == nil {
			return image.Pt(frame.Cols(), frame.Rows()), nil
		}
		if errors.Is(err, ErrCameraLost) {
			return image.Point{}, err
		}
		logger.WithError(err).Debug("Waiting for the first frame")

		select {
		case <-ctx.Done():
			return image.Point{}, ctx.Err()
		case <-time.After(delay):
		}
	}
}
