package ome

import (
	"encoding/xml"

	"github.com/beevik/etree"
	"github.com/pkg/errors"

	"github.com/askiada/go-segprep/pkg/channel"
)

// Namespace is the OME schema namespace set on documents without one.
const Namespace = "http://www.openmicroscopy.org/Schemas/OME/2016-06"

// Metadata is a parsed OME-XML document. Element names carry no namespace
// prefix.
type Metadata struct {
	doc *etree.Document
}

// Parse reads an OME-XML document.
func Parse(data []byte) (*Metadata, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, errors.Wrap(err, "unable to parse OME-XML")
	}
	root := doc.Root()
	if root == nil {
		return nil, errors.New("OME-XML document has no root element")
	}
	// the declaration is written again by Bytes
	var insts []*etree.ProcInst
	for _, tok := range doc.Child {
		if inst, ok := tok.(*etree.ProcInst); ok {
			insts = append(insts, inst)
		}
	}
	for _, inst := range insts {
		doc.RemoveChild(inst)
	}
	stripNamespaces(root)

	return &Metadata{doc: doc}, nil
}

// stripNamespaces removes prefixes from element names and sets the namespace
// of root as the default namespace. Prefix declarations still used by
// attributes are kept.
func stripNamespaces(root *etree.Element) {
	space := root.NamespaceURI()
	if space == "" {
		space = Namespace
	}

	usedByAttr := map[string]bool{}
	walk(root, func(el *etree.Element) {
		for _, attr := range el.Attr {
			if attr.Space != "" && attr.Space != "xmlns" {
				usedByAttr[attr.Space] = true
			}
		}
	})
	walk(root, func(el *etree.Element) {
		el.Space = ""
		kept := el.Attr[:0]
		for _, attr := range el.Attr {
			if attr.Space == "" && attr.Key == "xmlns" {
				continue
			}
			if attr.Space == "xmlns" && !usedByAttr[attr.Key] {
				continue
			}
			kept = append(kept, attr)
		}
		el.Attr = kept
	})
	root.CreateAttr("xmlns", space)
}

func walk(el *etree.Element, fn func(*etree.Element)) {
	fn(el)
	for _, child := range el.ChildElements() {
		walk(child, fn)
	}
}

// Copy returns a deep copy of the document.
func (m *Metadata) Copy() *Metadata {
	return &Metadata{doc: m.doc.Copy()}
}

// Bytes serialises the document with an XML declaration.
func (m *Metadata) Bytes() ([]byte, error) {
	out, err := m.doc.WriteToBytes()
	if err != nil {
		return nil, errors.Wrap(err, "unable to write OME-XML")
	}

	return append([]byte(xml.Header), out...), nil
}

func (m *Metadata) root() *etree.Element {
	return m.doc.Root()
}

// pixels returns the Pixels element of the first Image.
func (m *Metadata) pixels() (*etree.Element, error) {
	image := m.root().SelectElement("Image")
	if image == nil {
		return nil, inconsistent("Image", "no Image element")
	}
	pixels := image.SelectElement("Pixels")
	if pixels == nil {
		return nil, inconsistent("Pixels", "no Pixels element")
	}

	return pixels, nil
}

// Channels returns the Channel records of the first image in document order.
func (m *Metadata) Channels() []channel.Channel {
	pixels, err := m.pixels()
	if err != nil {
		return nil
	}
	elements := pixels.SelectElements("Channel")
	channels := make([]channel.Channel, len(elements))
	for i, el := range elements {
		channels[i] = channel.Channel{
			Name:  el.SelectAttrValue("Name", ""),
			ID:    el.SelectAttrValue("ID", ""),
			Index: i,
		}
	}

	return channels
}

// Catalog indexes the channels of the first image.
func (m *Metadata) Catalog() *channel.Catalog {
	return channel.NewCatalog(m.Channels())
}

// Planes returns the TiffData records of the first image.
func (m *Metadata) Planes() ([]PlaneRecord, error) {
	pixels, err := m.pixels()
	if err != nil {
		return nil, err
	}
	elements := pixels.SelectElements("TiffData")
	records := make([]PlaneRecord, len(elements))
	for i, el := range elements {
		rec := PlaneRecord{PlaneCount: 1}
		fields := []struct {
			name string
			dst  *int
		}{
			{"FirstT", &rec.FirstT}, {"FirstC", &rec.FirstC}, {"FirstZ", &rec.FirstZ},
			{"IFD", &rec.IFD}, {"PlaneCount", &rec.PlaneCount},
		}
		for _, f := range fields {
			if _, err := optionalInt(el, f.name, f.dst); err != nil {
				return nil, err
			}
		}
		records[i] = rec
	}

	return records, nil
}
