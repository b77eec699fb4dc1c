package main

import (
	"context"
	"flag"
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"os"
	"time"

	"github.com/eleven-am/vlm-docking/internal/action"
	"github.com/eleven-am/vlm-docking/internal/camera"
	"github.com/eleven-am/vlm-docking/internal/vision"
)

func main() {
	inferenceURL := flag.String("url", "http://127.0.0.1:5001", "inference service base url")
	cameraID := flag.String("camera", string(camera.Forward), "camera id to tag the request with")
	timeout := flag.Duration("timeout", 10*time.Second, "request timeout")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: infer-probe [flags] <image.png> [command]\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(2)
	}
	command := "align with port"
	if flag.NArg() > 1 {
		command = flag.Arg(1)
	}

	id, err := camera.ParseID(*cameraID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid camera: %v\n", err)
		os.Exit(1)
	}

	frame, err := loadFrame(flag.Arg(0), id)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load image: %v\n", err)
		os.Exit(1)
	}

	img, err := vision.NewEncoder(png.DefaultCompression).Encode(frame)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to encode frame: %v\n", err)
		os.Exit(1)
	}

	client := vision.NewClient(vision.Config{InferenceURL: *inferenceURL, Timeout: *timeout}, nil)

	start := time.Now()
	resp, err := client.Infer(context.Background(), vision.NewRequest(id, img.Base64, command))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Inference failed (%s): %v\n", vision.KindOf(err), err)
		os.Exit(1)
	}

	_, known := action.Parse(resp.Action)
	fmt.Printf("camera:     %s\n", id)
	fmt.Printf("command:    %s\n", command)
	fmt.Printf("action:     %s\n", resp.Action)
	fmt.Printf("confidence: %.3f\n", resp.Confidence)
	fmt.Printf("known:      %t\n", known)
	fmt.Printf("latency:    %s\n", time.Since(start).Round(time.Millisecond))
}

func loadFrame(path string, id camera.ID) (*camera.Frame, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	src, err := png.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode png: %w", err)
	}

	b := src.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)

	return &camera.Frame{
		CameraID: id,
		Width:    b.Dx(),
		Height:   b.Dy(),
		Pixels:   dst.Pix,
	}, nil
}
