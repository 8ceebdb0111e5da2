package lib

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

func TestLimitsValidate(t *testing.T) {
	testCases := []struct {
		name      string
		limits    Limits
		expectErr bool
	}{
		{
			name:   "full range",
			limits: FullRange(),
		},
		{
			name: "narrow red marker",
			limits: Limits{
				B: Range{Min: 0, Max: 60},
				G: Range{Min: 0, Max: 60},
				R: Range{Min: 150, Max: 255},
			},
		},
		{
			name: "single value channel",
			limits: Limits{
				B: Range{Min: 10, Max: 10},
				G: Range{Min: 0, Max: 255},
				R: Range{Min: 0, Max: 255},
			},
		},
		{
			name: "min above max",
			limits: Limits{
				B: Range{Min: 0, Max: 255},
				G: Range{Min: 200, Max: 100},
				R: Range{Min: 0, Max: 255},
			},
			expectErr: true,
		},
		{
			name: "negative min",
			limits: Limits{
				B: Range{Min: -1, Max: 255},
				G: Range{Min: 0, Max: 255},
				R: Range{Min: 0, Max: 255},
			},
			expectErr: true,
		},
		{
			name: "max above 255",
			limits: Limits{
				B: Range{Min: 0, Max: 255},
				G: Range{Min: 0, Max: 255},
				R: Range{Min: 0, Max: 256},
			},
			expectErr: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.limits.Validate()
			if tc.expectErr {
				assert.ErrorIs(t, err, ErrInvalidLimits)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoadLimitsFileFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "limits.json")
	data := `{"limits": {"B": {"min": 0, "max": 80}, "G": {"min": 10, "max": 90}, "R": {"min": 120, "max": 255}}}`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	limits, err := LoadLimits(path)
	require.NoError(t, err)

	assert.Equal(t, Limits{
		B: Range{Min: 0, Max: 80},
		G: Range{Min: 10, Max: 90},
		R: Range{Min: 120, Max: 255},
	}, limits)
}

func TestLoadLimitsErrors(t *testing.T) {
	dir := t.TempDir()

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadLimits(filepath.Join(dir, "nope.json"))
		assert.ErrorIs(t, err, fs.ErrNotExist)
	})

	t.Run("malformed json", func(t *testing.T) {
		path := filepath.Join(dir, "bad.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"limits": {"B": `), 0o644))
		_, err := LoadLimits(path)
		assert.Error(t, err)
	})

	missing := []struct {
		name string
		data string
	}{
		{"empty object", `{}`},
		{"flat channels", `{"B": {"min": 0, "max": 80}, "G": {"min": 0, "max": 80}, "R": {"min": 0, "max": 80}}`},
		{"missing channel", `{"limits": {"B": {"min": 0, "max": 80}, "G": {"min": 0, "max": 80}}}`},
		{"missing max", `{"limits": {"B": {"min": 0}, "G": {"min": 0, "max": 80}, "R": {"min": 0, "max": 80}}}`},
		{"null limits", `{"limits": null}`},
	}
	for _, tc := range missing {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(dir, "incomplete.json")
			require.NoError(t, os.WriteFile(path, []byte(tc.data), 0o644))
			_, err := LoadLimits(path)
			assert.ErrorIs(t, err, ErrInvalidLimits)
		})
	}

	t.Run("min above max", func(t *testing.T) {
		path := filepath.Join(dir, "inverted.json")
		data := `{"limits": {"B": {"min": 90, "max": 80}, "G": {"min": 0, "max": 255}, "R": {"min": 0, "max": 255}}}`
		require.NoError(t, os.WriteFile(path, []byte(data), 0o644))
		_, err := LoadLimits(path)
		assert.ErrorIs(t, err, ErrInvalidLimits)
	})
}

func TestSaveLimitsRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "limits.json")
	err := SaveLimits(path, Limits{B: Range{Min: 5, Max: 1}, G: Range{Max: 255}, R: Range{Max: 255}})
	assert.ErrorIs(t, err, ErrInvalidLimits)

	_, statErr := os.Stat(path)
	assert.ErrorIs(t, statErr, fs.ErrNotExist)
}

// Limits written by the segmenter and read back by ar_paint must threshold a frame identically
func TestLimitsRoundTripGivesSameMask(t *testing.T) {
	frame := gocv.NewMatWithSize(48, 64, gocv.MatTypeCV8UC3)
	defer frame.Close()
	gocv.RandU(&frame, gocv.NewScalar(0, 0, 0, 0), gocv.NewScalar(255, 255, 255, 0))

	saved := Limits{
		B: Range{Min: 20, Max: 140},
		G: Range{Min: 60, Max: 200},
		R: Range{Min: 100, Max: 255},
	}

	path := filepath.Join(t.TempDir(), "limits.json")
	require.NoError(t, SaveLimits(path, saved))

	loaded, err := LoadLimits(path)
	require.NoError(t, err)
	assert.Equal(t, saved, loaded)

	before := gocv.NewMat()
	defer before.Close()
	after := gocv.NewMat()
	defer after.Close()
	diff := gocv.NewMat()
	defer diff.Close()

	saved.Threshold(frame, &before)
	loaded.Threshold(frame, &after)
	gocv.BitwiseXor(before, after, &diff)

	assert.Greater(t, gocv.CountNonZero(before), 0)
	assert.Equal(t, 0, gocv.CountNonZero(diff))
}
