package lib

import (
	"fmt"
	"image"
	"image/color"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"
)

// OpenCV mouse event codes delivered to gocv mouse handlers
const (
	MouseMove     = 0
	MouseLeftDown = 1
	MouseLeftUp   = 4
)

// SessionConfig holds the ar_paint options
type SessionConfig struct {
	UseCamera          bool // Composite the drawing over the camera frame
	UseMouse           bool // Draw with the mouse instead of the marker
	UseShakePrevention bool
	UsePenTrigger      bool // Marker draws only while the serial pen button is held
	Zones              bool
	ZoneCols           int
	ZoneRows           int
	OutDir             string
	PublishInterval    time.Duration // How often the remote snapshot is refreshed
}

// DefaultSessionConfig returns the options of a plain marker session
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		ZoneCols:        3,
		ZoneRows:        2,
		OutDir:          ".",
		PublishInterval: 500 * time.Millisecond,
	}
}

// Session is one drawing session: the canvas, the pencil and the options driving them.
// It is not safe for concurrent use; the render loop owns it.
type Session struct {
	Config   SessionConfig
	Canvas   *Canvas
	Pencil   *Pencil
	Zones    Zones
	snapshot *Snapshot
	logger   *logrus.Logger
	now      func() time.Time

	triggerHeld   bool
	markerFound   bool
	frames        int
	lastPublished time.Time
}

// NewSession creates a session drawing on a white canvas of the given size
func NewSession(config SessionConfig, size image.Point, logger *logrus.Logger) *Session {
	pencil := NewPencil()
	pencil.ShakePrevention = config.UseShakePrevention

	s := &Session{
		Config: config,
		Canvas: NewCanvas(size.X, size.Y),
		Pencil: pencil,
		logger: logger,
		now:    time.Now,
	}
	if config.Zones {
		s.Zones = NewZones(size, config.ZoneCols, config.ZoneRows)
	}
	return s
}

// Close releases the canvas
func (s *Session) Close() {
	s.Canvas.Close()
}

// AttachSnapshot makes Publish refresh the given snapshot
func (s *Session) AttachSnapshot(snapshot *Snapshot) {
	s.snapshot = snapshot
}

// Apply executes a command. It reports true when the session should end.
func (s *Session) Apply(cmd Command) (bool, error) {
	switch cmd {
	case CmdNone:
	case CmdRed:
		s.setColor(Red)
	case CmdGreen:
		s.setColor(Green)
	case CmdBlue:
		s.setColor(Blue)
	case CmdBigger:
		s.logger.WithField("size", s.Pencil.Grow()).Info("Increasing pencil size")
	case CmdSmaller:
		s.logger.WithField("size", s.Pencil.Shrink()).Info("Decreasing pencil size")
	case CmdClear:
		s.Canvas.Clear()
		s.logger.Info("Clearing canvas")
	case CmdSave:
		path, err := s.Canvas.Save(s.Config.OutDir, s.now())
		if err != nil {
			return false, err
		}
		s.logger.WithField("file", path).Info("Canvas saved")
	case CmdPDF:
		path, err := s.ExportPDF()
		if err != nil {
			return false, err
		}
		s.logger.WithField("file", path).Info("Canvas exported")
	case CmdPenDown:
		s.triggerHeld = true
	case CmdPenUp:
		s.triggerHeld = false
		s.Pencil.Lift()
	case CmdQuit:
		if s.Zones != nil {
			s.logScore()
		}
		s.logger.Info("Quitting the game...")
		return true, nil
	default:
		return false, fmt.Errorf("%w: %q", ErrUnknownCommand, cmd)
	}
	return false, nil
}

func (s *Session) setColor(c color.RGBA) {
	s.Pencil.Color = c
	s.logger.WithField("color", ColorName(c)).Info("Setting pencil color")
}

// ExportPDF writes the canvas to a timestamped PDF and returns its path
func (s *Session) ExportPDF() (string, error) {
	png, err := s.Canvas.EncodePNG()
	if err != nil {
		return "", err
	}
	path := filepath.Join(s.Config.OutDir, DrawingFileName(s.now(), ".pdf"))
	if err := ExportPDF(path, png, s.Canvas.Size()); err != nil {
		return "", err
	}
	return path, nil
}

// Track moves the pencil after a marker detection. The pen is down while the
// marker is visible (and the pen button held, when one is attached).
func (s *Session) Track(det Detection) {
	wasFound := s.markerFound
	s.markerFound = det.Found
	if !det.Found {
		if wasFound {
			s.logger.Info("No color")
		} else {
			s.logger.Debug("No color")
		}
		s.Pencil.Lift()
		return
	}

	down := !s.Config.UsePenTrigger || s.triggerHeld
	switch {
	case down && !s.Pencil.Down:
		s.Pencil.Press()
	case !down && s.Pencil.Down:
		s.Pencil.Lift()
	}

	stroke := s.Pencil.MoveTo(det.Centroid)
	s.Canvas.Draw(stroke)

	s.logger.WithFields(logrus.Fields{
		"x":    det.Centroid.X,
		"y":    det.Centroid.Y,
		"area": det.Area,
	}).Debug("Marker centroid")
}

// Mouse handles an OpenCV mouse event on the drawing window
func (s *Session) Mouse(event, x, y int) {
	switch event {
	case MouseLeftDown:
		s.Pencil.Press()
		s.logger.Debug("Pencil down set to True")
	case MouseLeftUp:
		s.Pencil.Lift()
		s.logger.Debug("Pencil down released")
		return
	}
	s.Canvas.Draw(s.Pencil.MoveTo(image.Pt(x, y)))
}

// Render writes the image to display for the current frame
func (s *Session) Render(frame gocv.Mat, dst *gocv.Mat) {
	s.frames++
	if s.Config.UseCamera && !frame.Empty() {
		s.Canvas.Composite(frame, dst)
	} else {
		s.Canvas.CopyTo(dst)
	}

	if s.Zones != nil {
		s.Zones.DrawOverlay(dst)
	}
}

// State returns the drawing state shown to remote clients
func (s *Session) State() SessionState {
	return SessionState{
		Color:     ColorName(s.Pencil.Color),
		Size:      s.Pencil.Size,
		PenDown:   s.Pencil.Down,
		Frames:    s.frames,
		Marker:    s.markerFound,
		UpdatedAt: s.now(),
	}
}

// Publish refreshes the attached snapshot at most once per PublishInterval
func (s *Session) Publish() {
	if s.snapshot == nil {
		return
	}
	now := s.now()
	if now.Sub(s.lastPublished) < s.Config.PublishInterval {
		return
	}
	s.lastPublished = now

	png, err := s.Canvas.EncodePNG()
	if err != nil {
		s.logger.WithError(err).Warn("Failed to publish canvas")
		return
	}

	state := s.State()
	if s.Zones != nil {
		score := s.score()
		state.Score = &score
	}
	s.snapshot.Publish(png, state)
}

func (s *Session) score() Score {
	img, err := s.Canvas.Image()
	if err != nil {
		s.logger.WithError(err).Warn("Failed to read canvas for scoring")
		return Score{}
	}
	return s.Zones.Score(img)
}

func (s *Session) logScore() {
	score := s.score()
	for _, zs := range score.Zones {
		s.logger.WithFields(logrus.Fields{
			"zone":     zs.Number,
			"accuracy": fmt.Sprintf("%.1f%%", zs.Accuracy*100),
			"coverage": fmt.Sprintf("%.1f%%", zs.Coverage*100),
		}).Info("Zone result")
	}
	s.logger.WithFields(logrus.Fields{
		"accuracy": fmt.Sprintf("%.1f%%", score.Accuracy*100),
		"coverage": fmt.Sprintf("%.1f%%", score.Coverage*100),
	}).Info("Painting result")
}
