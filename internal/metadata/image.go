package metadata

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"strconv"
	"strings"

	"github.com/rwcarlsen/goexif/exif"
	"github.com/rwcarlsen/goexif/tiff"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

var exifFields = []exif.FieldName{
	exif.DateTimeOriginal,
	exif.DateTime,
	exif.Make,
	exif.Model,
	exif.Orientation,
	exif.Software,
}

func extractImage(data []byte, sink factSink) error {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("cannot decode image: %w", err)
	}
	sink.add("format", format)
	sink.add("width", strconv.Itoa(cfg.Width))
	sink.add("height", strconv.Itoa(cfg.Height))

	x, err := exif.Decode(bytes.NewReader(data))
	if err != nil {
		sink.add("exif", "none found")
		return nil
	}

	found := 0
	values := make(map[exif.FieldName]string, len(exifFields))
	for _, name := range exifFields {
		tag, err := x.Get(name)
		if err != nil {
			continue
		}
		v := tagValue(tag)
		if v == "" {
			continue
		}
		values[name] = v
		sink.add(string(name), v)
		found++
	}

	if camera := strings.TrimSpace(values[exif.Make] + " " + values[exif.Model]); camera != "" {
		sink.add("Camera", camera)
	}

	if lat, long, err := x.LatLong(); err == nil {
		sink.add("GPSLatitude", strconv.FormatFloat(lat, 'f', 6, 64))
		sink.add("GPSLongitude", strconv.FormatFloat(long, 'f', 6, 64))
		found++
	}

	if found == 0 {
		sink.add("exif", "none found")
	}
	return nil
}

func tagValue(tag *tiff.Tag) string {
	if tag.Format() == tiff.StringVal {
		s, err := tag.StringVal()
		if err != nil {
			return ""
		}
		return strings.TrimSpace(strings.Trim(s, "\x00"))
	}
	return strings.Trim(tag.String(), `"`)
}
