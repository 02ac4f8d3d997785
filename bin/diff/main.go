package main

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"flag"
	"fmt"
	"image"
	"log"
	"os"
	"time"
	"ui-regression/internal/capture"
	"ui-regression/internal/config"
	imagediff "ui-regression/internal/diff/image"
	"ui-regression/internal/storage"
)

type Rectangle struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

type DiffOutput struct {
	Equal      bool        `json:"equal"`
	DiffAmount float64     `json:"diffAmount"`
	DiffPath   string      `json:"diffPath,omitempty"`
	Regions    []Rectangle `json:"regions,omitempty"`
}

func main() {
	var configPath string
	var tolerance float64
	var colorSpace string
	var directory string
	flag.StringVar(&configPath, "config", "", "Path to a KEY=VALUE config file")
	flag.Float64Var(&tolerance, "tolerance", -1, "Color distance below which pixels are equal (defaults to TOLERANCE)")
	flag.StringVar(&colorSpace, "color-space", "", "Color space: lab, lab76 or yiq (defaults to COLOR_SPACE)")
	flag.StringVar(&directory, "directory", "", "Output directory for diff images (defaults to REPORT_DIR)")

	flag.Parse()

	args := flag.Args()
	if len(args) < 2 {
		log.Fatalf("standard, current not specified")
	}
	standardPath := args[0]
	currentPath := args[1]

	c, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if tolerance >= 0 {
		c.Tolerance = tolerance
	}
	if colorSpace != "" {
		cs, err := imagediff.ParseColorSpace(colorSpace)
		if err != nil {
			log.Fatalf("Invalid color space: %v", err)
		}
		c.ColorSpace = cs
	}
	if directory != "" {
		c.ReportDir = directory
	}

	ctx := context.Background()
	s, err := storage.New(ctx, c.StorageBackend, c.ReportDir, storage.S3Config{
		Bucket:      c.S3Bucket,
		Prefix:      c.S3Prefix,
		EndpointURL: c.S3EndpointURL,
	})
	if err != nil {
		log.Fatalf("Failed to create storage backend: %v", err)
	}

	differ, err := imagediff.NewPixelDiff(c.DiffOptions())
	if err != nil {
		log.Fatalf("Failed to create differ: %v", err)
	}

	standard, err := os.ReadFile(standardPath)
	if err != nil {
		log.Fatalf("Failed to read standard image: %v", err)
	}
	current, err := os.ReadFile(currentPath)
	if err != nil {
		log.Fatalf("Failed to read current image: %v", err)
	}

	result, err := differ.CalculateEncoded(standard, current)
	if err != nil {
		log.Fatalf("Failed to compare images: %v", err)
	}

	output := DiffOutput{
		Equal:      result.Equal,
		DiffAmount: result.DiffAmount,
		Regions:    rectangles(result.Regions),
	}
	if !result.Equal {
		data, err := capture.EncodePNG(result.Image)
		if err != nil {
			log.Fatalf("Failed to encode diff image: %v", err)
		}

		h := sha256.New()
		h.Write([]byte(standardPath + currentPath))
		hash := fmt.Sprintf("%x", h.Sum(nil))[:16]
		key := fmt.Sprintf("diff/%s/%s.png", hash, time.Now().Format("20060102150405"))

		output.DiffPath, err = s.Put(ctx, key, data)
		if err != nil {
			log.Fatalf("Failed to save diff image: %v", err)
		}
	}

	if err := json.NewEncoder(os.Stdout).Encode(output); err != nil {
		log.Fatalf("Failed to encode result: %v", err)
	}
	if !output.Equal {
		os.Exit(1)
	}
}

func rectangles(regions []image.Rectangle) []Rectangle {
	rects := make([]Rectangle, 0, len(regions))
	for _, r := range regions {
		rects = append(rects, Rectangle{X: r.Min.X, Y: r.Min.Y, Width: r.Dx(), Height: r.Dy()})
	}
	return rects
}
