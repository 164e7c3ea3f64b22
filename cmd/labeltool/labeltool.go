package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/akamensky/argparse"
	"github.com/cyclopcam/logs"

	"github.com/boxlab/boxlab/pkg/anno"
	"github.com/boxlab/boxlab/pkg/interp"
	"github.com/boxlab/boxlab/pkg/track"
)

func check(err error) {
	if err != nil {
		panic(err)
	}
}

// labelFile is the on-disk shape of a per-frame label set. The schema lives
// here in the tool, not in the core packages.
type labelFile struct {
	Frames []*frameLabels `json:"frames"`
}

type frameLabels struct {
	Frame   int                `json:"frame"`
	Objects []*anno.Annotation `json:"objects"`
}

func main() {
	parser := argparse.NewParser("labeltool", "Interpolate and track boxes in a label file")
	input := parser.String("i", "input", &argparse.Options{Help: "Input label file", Required: true})
	output := parser.File("o", "output", os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0664, &argparse.Options{Help: "Output label file", Required: true})
	interpolate := parser.String("", "interpolate", &argparse.Options{Help: "Interpolate between two keyframes, as start:end or start:end:smooth", Required: false, Default: ""})
	runTrack := parser.Flag("t", "track", &argparse.Options{Help: "Assign track ids to all boxes", Required: false})
	window := parser.Int("w", "window", &argparse.Options{Help: "Tracker memory window, in frames", Required: false, Default: track.DefaultMemoryWindow})
	err := parser.Parse(os.Args)
	if err != nil {
		fmt.Print(parser.Usage(err))
		os.Exit(1)
	}

	logger, _ := logs.NewLog()

	raw, err := os.ReadFile(*input)
	check(err)
	labels := labelFile{}
	check(json.Unmarshal(raw, &labels))

	store := anno.NewFrameStore()
	for _, f := range labels.Frames {
		store.Set(f.Frame, f.Objects)
	}

	if *interpolate != "" {
		start, end, method, err := parseInterpolateArg(*interpolate)
		check(err)
		engine := interp.NewEngine(logger, store)
		if !engine.Interpolate(start, end, method) {
			logger.Warnf("Nothing to interpolate between frames %v and %v", start, end)
		}
	}

	if *runTrack {
		tracker := track.NewIoUTracker(logger, *window)
		tracker.AssignAll(store)
		for _, tr := range tracker.Tracks() {
			logger.Infof("Track %v (%v): %v sightings, frames %v..%v", tr.ID, tr.Class, tr.Sightings, tr.FirstSeen, tr.LastSeen)
		}
	}

	out := labelFile{}
	for _, f := range store.Frames() {
		out.Frames = append(out.Frames, &frameLabels{
			Frame:   f,
			Objects: store.Get(f),
		})
	}
	encoder := json.NewEncoder(output)
	encoder.SetIndent("", "  ")
	check(encoder.Encode(out))
}

func parseInterpolateArg(arg string) (start, end int, method interp.Method, err error) {
	parts := strings.Split(arg, ":")
	if len(parts) != 2 && len(parts) != 3 {
		return 0, 0, "", fmt.Errorf("expected start:end or start:end:method, got %q", arg)
	}
	start, err = strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, "", fmt.Errorf("bad start frame %q: %v", parts[0], err)
	}
	end, err = strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, "", fmt.Errorf("bad end frame %q: %v", parts[1], err)
	}
	method = interp.MethodLinear
	if len(parts) == 3 {
		switch parts[2] {
		case string(interp.MethodLinear), string(interp.MethodSmooth):
			method = interp.Method(parts[2])
		default:
			return 0, 0, "", fmt.Errorf("unknown method %q", parts[2])
		}
	}
	return start, end, method, nil
}
