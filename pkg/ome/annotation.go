package ome

import (
	"fmt"
	"strings"

	"github.com/beevik/etree"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/askiada/go-segprep/pkg/channel"
)

const (
	// ProvenanceKey is the OriginalMetadata key of the segmentation channels
	// annotation.
	ProvenanceKey = "SegmentationChannels"
	algorithmKey  = "SegmentationChannelsAlgorithm"
)

// Provenance records which channels were selected for each role.
type Provenance struct {
	Roles     []channel.Role
	Names     map[channel.Role][]string
	Algorithm string
}

func roleTag(role channel.Role) string {
	tag := cases.Title(language.Und).String(string(role))

	return strings.Join(strings.Fields(tag), "_")
}

func tagRole(tag string) channel.Role {
	return channel.Role(cases.Lower(language.Und).String(tag))
}

// setProvenance replaces any segmentation channels annotation and returns
// the ID of the new one.
func (m *Metadata) setProvenance(prov Provenance) string {
	root := m.root()
	annotations := root.SelectElement("StructuredAnnotations")
	if annotations == nil {
		annotations = etree.NewElement("StructuredAnnotations")
		index := len(root.Child)
		if images := root.SelectElements("Image"); len(images) > 0 {
			index = images[len(images)-1].Index() + 1
		}
		root.InsertChildAt(index, annotations)
	}
	for _, old := range provenanceAnnotations(annotations) {
		annotations.RemoveChild(old)
	}

	id := m.freeAnnotationID()
	xmlAnnotation := annotations.CreateElement("XMLAnnotation")
	xmlAnnotation.CreateAttr("ID", id)
	value := xmlAnnotation.CreateElement("Value")

	channels := originalMetadata(value, ProvenanceKey)
	for _, role := range prov.Roles {
		tag := roleTag(role)
		for _, name := range prov.Names[role] {
			channels.CreateElement(tag).SetText(name)
		}
	}
	originalMetadata(value, algorithmKey).SetText(prov.Algorithm)

	return id
}

// originalMetadata adds an OriginalMetadata entry under parent and returns
// its Value element.
func originalMetadata(parent *etree.Element, key string) *etree.Element {
	entry := parent.CreateElement("OriginalMetadata")
	entry.CreateElement("Key").SetText(key)

	return entry.CreateElement("Value")
}

func provenanceAnnotations(annotations *etree.Element) []*etree.Element {
	var found []*etree.Element
	for _, xmlAnnotation := range annotations.SelectElements("XMLAnnotation") {
		for _, entry := range xmlAnnotation.FindElements("./Value/OriginalMetadata") {
			if key := entry.SelectElement("Key"); key != nil && strings.TrimSpace(key.Text()) == ProvenanceKey {
				found = append(found, xmlAnnotation)

				break
			}
		}
	}

	return found
}

func (m *Metadata) freeAnnotationID() string {
	used := map[string]bool{}
	walk(m.root(), func(el *etree.Element) {
		if id := el.SelectAttrValue("ID", ""); id != "" {
			used[id] = true
		}
	})
	for n := 0; ; n++ {
		id := fmt.Sprintf("Annotation:%d", n)
		if !used[id] {
			return id
		}
	}
}

// Provenance reads back the segmentation channels annotation.
func (m *Metadata) Provenance() (Provenance, bool) {
	annotations := m.root().SelectElement("StructuredAnnotations")
	if annotations == nil {
		return Provenance{}, false
	}
	found := provenanceAnnotations(annotations)
	if len(found) == 0 {
		return Provenance{}, false
	}

	prov := Provenance{Names: map[channel.Role][]string{}}
	for _, entry := range found[0].FindElements("./Value/OriginalMetadata") {
		key, value := entry.SelectElement("Key"), entry.SelectElement("Value")
		if key == nil || value == nil {
			continue
		}
		switch strings.TrimSpace(key.Text()) {
		case ProvenanceKey:
			for _, el := range value.ChildElements() {
				role := tagRole(el.Tag)
				if _, ok := prov.Names[role]; !ok {
					prov.Roles = append(prov.Roles, role)
				}
				prov.Names[role] = append(prov.Names[role], el.Text())
			}
		case algorithmKey:
			prov.Algorithm = strings.TrimSpace(value.Text())
		}
	}

	return prov, true
}
