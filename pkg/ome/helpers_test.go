package ome_test

import (
	"fmt"
	"strings"
)

const sampleXML = `<?xml version="1.0" encoding="UTF-8"?>
<ome:OME xmlns:ome="http://www.openmicroscopy.org/Schemas/OME/2016-06"
         xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance"
         xsi:schemaLocation="http://www.openmicroscopy.org/Schemas/OME/2016-06 http://www.openmicroscopy.org/Schemas/OME/2016-06/ome.xsd">
  <ome:Image ID="Image:0" Name="region_001">
    <ome:Pixels ID="Pixels:0" DimensionOrder="XYCZT" Type="uint16"
                SizeX="1000" SizeY="800" SizeC="3" SizeZ="2" SizeT="1"
                PhysicalSizeX="0.377" PhysicalSizeXUnit="&#181;m"
                PhysicalSizeY="0.5" PhysicalSizeYUnit="&amp;micro;m">
      <ome:Channel ID="Channel:0:0" Name="DAPI" SamplesPerPixel="1"/>
      <ome:Channel ID="Channel:0:1" Name="CD45" SamplesPerPixel="1"/>
      <ome:Channel ID="ECAD" Name="E-cadherin" SamplesPerPixel="1"/>
      <ome:TiffData FirstC="0" FirstT="0" FirstZ="0" IFD="0" PlaneCount="4"/>
      <ome:TiffData FirstC="2" FirstT="0" FirstZ="0" IFD="4" PlaneCount="1"/>
      <ome:Plane TheC="0" TheT="0" TheZ="0"/>
    </ome:Pixels>
  </ome:Image>
  <ome:StructuredAnnotations>
    <ome:CommentAnnotation ID="Annotation:0"><ome:Value>acquired on scope 3</ome:Value></ome:CommentAnnotation>
  </ome:StructuredAnnotations>
</ome:OME>
`

type pixelsAttrs struct {
	sizeC, sizeZ string
	channels     int
	physicalX    string
	unitX        string
	physicalY    string
	unitY        string
}

func buildXML(p pixelsAttrs) string {
	var b strings.Builder
	b.WriteString(`<OME xmlns="http://www.openmicroscopy.org/Schemas/OME/2016-06"><Image ID="Image:0"><Pixels ID="Pixels:0" DimensionOrder="XYCZT" SizeX="10" SizeY="10" SizeT="1"`)
	attrs := []struct{ name, value string }{
		{"SizeC", p.sizeC}, {"SizeZ", p.sizeZ},
		{"PhysicalSizeX", p.physicalX}, {"PhysicalSizeXUnit", p.unitX},
		{"PhysicalSizeY", p.physicalY}, {"PhysicalSizeYUnit", p.unitY},
	}
	for _, a := range attrs {
		if a.value != "" {
			fmt.Fprintf(&b, ` %s="%s"`, a.name, a.value)
		}
	}
	b.WriteString(">")
	for i := 0; i < p.channels; i++ {
		fmt.Fprintf(&b, `<Channel ID="Channel:0:%d" Name="ch%d"/>`, i, i)
	}
	b.WriteString("</Pixels></Image></OME>")

	return b.String()
}
