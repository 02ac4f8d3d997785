package routes

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	imagediff "ui-regression/internal/diff/image"
	"ui-regression/internal/myhttp"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/xerrors"
)

const (
	maxUploadSize = 32 << 20
	// maxPixels bounds the decoded size of each uploaded image.
	maxPixels = 64 << 20
)

type Rectangle struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

type CompareResponse struct {
	Equal      bool        `json:"equal"`
	DiffAmount float64     `json:"diffAmount"`
	Regions    []Rectangle `json:"regions,omitempty"`
	// DiffData is the base64 encoded PNG diff image, empty when the images are equal.
	DiffData string `json:"diffData,omitempty"`
}

// NewComparisonsCounter counts comparisons by result, "equal" or "different".
func NewComparisonsCounter() *prometheus.CounterVec {
	return prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "visual_comparisons_total",
		Help: "Number of visual comparisons by result.",
	}, []string{"result"})
}

// Compare diffs the multipart files "standard" and "current". The optional form value "tolerance"
// overrides the configured tolerance.
func Compare(differ *imagediff.PixelDiff, comparisons *prometheus.CounterVec) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := myhttp.Logger(r.Context())

		if err := r.ParseMultipartForm(maxUploadSize); err != nil {
			http.Error(w, "Invalid multipart form", http.StatusBadRequest)
			return
		}

		d := differ
		if v := r.FormValue("tolerance"); v != "" {
			tolerance, err := strconv.ParseFloat(v, 64)
			if err != nil || tolerance < 0 {
				http.Error(w, "Invalid tolerance", http.StatusBadRequest)
				return
			}
			d = differ.WithTolerance(tolerance)
		}

		standard, err := readFormFile(r.MultipartForm, "standard")
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		current, err := readFormFile(r.MultipartForm, "current")
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		for name, data := range map[string][]byte{"standard": standard, "current": current} {
			if err := checkDimensions(data); err != nil {
				logger.Info(fmt.Sprintf("rejected %s image: %s", name, err))
				http.Error(w, "Invalid image", http.StatusBadRequest)
				return
			}
		}

		result, err := d.CalculateEncoded(standard, current)
		if err != nil {
			logger.Info(fmt.Sprintf("failed to compare images: %s", err))
			http.Error(w, "Invalid image", http.StatusBadRequest)
			return
		}

		response := CompareResponse{
			Equal:      result.Equal,
			DiffAmount: result.DiffAmount,
		}
		if result.Equal {
			comparisons.WithLabelValues("equal").Inc()
		} else {
			comparisons.WithLabelValues("different").Inc()

			var buffer bytes.Buffer
			if err := png.Encode(&buffer, result.Image); err != nil {
				logger.Error(fmt.Sprintf("failed to encode diff image: %s", err))
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				return
			}
			response.DiffData = base64.StdEncoding.EncodeToString(buffer.Bytes())
			response.Regions = rectangles(result.Regions)
		}

		writeJSON(w, http.StatusOK, response)
	}
}

func readFormFile(form *multipart.Form, name string) ([]byte, error) {
	files := form.File[name]
	if len(files) == 0 {
		return nil, xerrors.Errorf("missing file %q", name)
	}
	f, err := files[0].Open()
	if err != nil {
		return nil, xerrors.Errorf("failed to open %q: %w", name, err)
	}
	defer f.Close()
	return io.ReadAll(f)
}

// checkDimensions reads only the image header and rejects images above maxPixels.
func checkDimensions(data []byte) error {
	config, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return xerrors.Errorf("failed to decode image config: %w", err)
	}
	if config.Width <= 0 || config.Height <= 0 || int64(config.Width)*int64(config.Height) > maxPixels {
		return xerrors.Errorf("image of %dx%d exceeds %d pixels", config.Width, config.Height, maxPixels)
	}
	return nil
}

func rectangles(regions []image.Rectangle) []Rectangle {
	rects := make([]Rectangle, 0, len(regions))
	for _, r := range regions {
		rects = append(rects, Rectangle{X: r.Min.X, Y: r.Min.Y, Width: r.Dx(), Height: r.Dy()})
	}
	return rects
}
