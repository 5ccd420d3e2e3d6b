package ocr

import (
	"fmt"
	"strconv"
	"strings"
)

// OSD is the orientation and script report from a --psm 0 run.
type OSD struct {
	Orientation int     // current orientation in degrees
	Rotate      int     // degrees to rotate to correct it
	Conf        float64 // orientation confidence
	Script      string
}

// parseOSD reads the key: value lines tesseract prints for --psm 0. The
// Rotate line is the one callers act on; its absence is an error.
func parseOSD(s string) (OSD, error) {
	var o OSD
	found := false
	for _, line := range strings.Split(s, "\n") {
		key, val, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		val = strings.TrimSpace(val)
		switch strings.TrimSpace(key) {
		case "Orientation in degrees":
			o.Orientation, _ = strconv.Atoi(val)
		case "Rotate":
			o.Rotate, _ = strconv.Atoi(val)
			found = true
		case "Orientation confidence":
			o.Conf, _ = strconv.ParseFloat(val, 64)
		case "Script":
			o.Script = val
		}
	}
	if !found {
		return o, fmt.Errorf("no rotation line in OSD output")
	}
	return o, nil
}
