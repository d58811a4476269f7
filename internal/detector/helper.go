package detector

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gocv.io/x/gocv"
)

// helperScript is the file name of the dlib landmark helper.
const helperScript = "landmark_service.py"

// encodeFrame losslessly encodes img for transfer to the helper process.
func encodeFrame(img gocv.Mat) ([]byte, error) {
	if img.Empty() {
		return nil, errors.New("empty image")
	}
	buf, err := gocv.IMEncode(gocv.PNGFileExt, img)
	if err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	defer buf.Close()

	data := buf.GetBytes()
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

// helperArgs returns the command line shared by both helper modes.
func helperArgs(script string, config Config, extra ...string) []string {
	upsample := config.Upsample
	if upsample < 0 {
		upsample = 0
	}
	args := []string{
		script,
		"--predictor", config.PredictorPath,
		"--upsample", strconv.Itoa(upsample),
	}
	return append(args, extra...)
}

// resolveHelper checks the model file and locates the interpreter and script.
func resolveHelper(config Config) (python, script string, err error) {
	if config.PredictorPath == "" {
		return "", "", errors.New("landmark predictor path is required")
	}
	if _, err := os.Stat(config.PredictorPath); err != nil {
		return "", "", fmt.Errorf("landmark predictor not found: %w", err)
	}

	script = config.Script
	if script == "" {
		script = findHelperScript()
	}
	if script == "" {
		return "", "", fmt.Errorf("%s not found", helperScript)
	}

	python = config.Python
	if python == "" {
		python = findVenvPython()
	}
	if python == "" {
		python = "python3"
	}
	return python, script, nil
}

// jsonResponse is one reply line from the helper.
type jsonResponse struct {
	Faces [][]Point `json:"faces"`
	Error string    `json:"error,omitempty"`
}

// parseResponse decodes a helper reply into landmark sets.
func parseResponse(line []byte) ([]Landmarks, error) {
	var resp jsonResponse
	if err := json.Unmarshal(line, &resp); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("landmark helper: %s", resp.Error)
	}

	faces := make([]Landmarks, 0, len(resp.Faces))
	for i, pts := range resp.Faces {
		lm, ok := FromPoints(pts)
		if !ok {
			return nil, fmt.Errorf("face %d: expected %d points, got %d", i, NumLandmarks, len(pts))
		}
		faces = append(faces, lm)
	}
	return faces, nil
}

func findHelperScript() string {
	execPath, err := os.Executable()
	var execDir string
	if err == nil {
		execDir = filepath.Dir(execPath)
	}

	candidates := []string{
		filepath.Join("scripts", helperScript),
		filepath.Join("..", "scripts", helperScript),
		filepath.Join(execDir, "scripts", helperScript),
		filepath.Join(os.Getenv("HOME"), ".faceswap", "scripts", helperScript),
	}
	return firstExisting(candidates)
}

// findVenvPython looks for a Python interpreter in a virtual environment.
func findVenvPython() string {
	execPath, err := os.Executable()
	if err != nil {
		return ""
	}
	execDir := filepath.Dir(execPath)

	candidates := []string{
		"venv/bin/python",
		"../venv/bin/python",
		filepath.Join(execDir, "venv/bin/python"),
		filepath.Join(os.Getenv("HOME"), ".faceswap/venv/bin/python"),
	}
	return firstExisting(candidates)
}

func firstExisting(paths []string) string {
	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			absPath, err := filepath.Abs(path)
			if err == nil {
				return absPath
			}
			return path
		}
	}
	return ""
}
