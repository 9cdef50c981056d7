package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/askiada/go-segprep/pkg/channel"
)

// Format is the encoding of a pipeline configuration document.
type Format int

const (
	YAML Format = iota
	JSON
)

// FormatOf picks the document format from the file extension. Anything but
// .json and .jsonc is YAML.
func FormatOf(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".jsonc":
		return JSON
	default:
		return YAML
	}
}

// Padding is the largest padding applied on each side of the grid.
type Padding struct {
	Left   int `yaml:"left"`
	Right  int `yaml:"right"`
	Top    int `yaml:"top"`
	Bottom int `yaml:"bottom"`
}

// Slicer is written after partition and read back before reassembly.
type Slicer struct {
	Scheme      string  `yaml:"scheme"`
	TileWidth   int     `yaml:"tile_width"`
	TileHeight  int     `yaml:"tile_height"`
	Overlap     int     `yaml:"overlap"`
	Padding     Padding `yaml:"padding"`
	ImageWidth  int     `yaml:"image_width"`
	ImageHeight int     `yaml:"image_height"`
	NX          int     `yaml:"nx"`
	NY          int     `yaml:"ny"`
	NumTiles    int     `yaml:"num_tiles"`
	Codec       string  `yaml:"codec,omitempty"`
}

// Document is the pipeline configuration shared with the other stages. Keys
// this stage does not know are kept in Extra and written back unchanged.
type Document struct {
	SegmentationChannels   *channel.Request `yaml:"segmentation_channels,omitempty"`
	ChannelNames           []string         `yaml:"channel_names,omitempty"`
	SegmentationChannelIDs map[string][]int `yaml:"segmentation_channel_ids,omitempty"`
	PixelSizeX             *float64         `yaml:"pixel_size_x,omitempty"`
	PixelSizeY             *float64         `yaml:"pixel_size_y,omitempty"`
	PixelUnitX             string           `yaml:"pixel_unit_x,omitempty"`
	PixelUnitY             string           `yaml:"pixel_unit_y,omitempty"`
	Slicer                 *Slicer          `yaml:"slicer,omitempty"`

	Extra map[string]interface{} `yaml:",inline"`
}

// DecodeDocument parses a document. JSON documents may carry comments and
// trailing commas.
func DecodeDocument(data []byte, format Format) (*Document, error) {
	if format == JSON {
		data = jsonc.ToJSON(data)
	}

	doc := &Document{}
	if len(bytes.TrimSpace(data)) == 0 {
		return doc, nil
	}
	if err := yaml.Unmarshal(data, doc); err != nil {
		return nil, errors.Wrap(err, "could not decode pipeline config")
	}

	return doc, nil
}

// ReadDocument reads the document at path in the format of its extension.
func ReadDocument(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "could not read pipeline config")
	}

	return DecodeDocument(data, FormatOf(path))
}

// Encode serialises the document.
func (d *Document) Encode(format Format) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(d); err != nil {
		return nil, errors.Wrap(err, "could not encode pipeline config")
	}
	if err := enc.Close(); err != nil {
		return nil, errors.Wrap(err, "could not encode pipeline config")
	}
	if format == YAML {
		return buf.Bytes(), nil
	}

	var generic interface{}
	if err := yaml.Unmarshal(buf.Bytes(), &generic); err != nil {
		return nil, errors.Wrap(err, "could not convert pipeline config")
	}
	out, err := json.MarshalIndent(stringifyKeys(generic), "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, "could not encode pipeline config")
	}

	return append(out, '\n'), nil
}

// WriteDocument writes the document to path in the format of its extension.
func WriteDocument(path string, d *Document) error {
	data, err := d.Encode(FormatOf(path))
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return errors.Wrap(err, "could not write pipeline config")
	}

	return errors.Wrap(os.Rename(tmp, path), "could not write pipeline config")
}

// stringifyKeys turns the map[interface{}]interface{} values yaml produces
// for non-string keys into JSON objects.
func stringifyKeys(v interface{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		for k, item := range val {
			val[k] = stringifyKeys(item)
		}

		return val
	case map[interface{}]interface{}:
		out := make(map[string]interface{}, len(val))
		for k, item := range val {
			out[fmt.Sprint(k)] = stringifyKeys(item)
		}

		return out
	case []interface{}:
		for i, item := range val {
			val[i] = stringifyKeys(item)
		}

		return val
	default:
		return v
	}
}

// PixelSize returns the override for one axis and whether one is set. The
// unit may be empty.
func (d *Document) PixelSize(axis string) (float64, string, bool) {
	switch strings.ToUpper(axis) {
	case "X":
		if d.PixelSizeX != nil {
			return *d.PixelSizeX, d.PixelUnitX, true
		}
	case "Y":
		if d.PixelSizeY != nil {
			return *d.PixelSizeY, d.PixelUnitY, true
		}
	}

	return 0, "", false
}

// SetPixelSize records the physical size of one axis.
func (d *Document) SetPixelSize(axis string, value float64, unit string) {
	switch strings.ToUpper(axis) {
	case "X":
		d.PixelSizeX, d.PixelUnitX = &value, unit
	case "Y":
		d.PixelSizeY, d.PixelUnitY = &value, unit
	}
}
