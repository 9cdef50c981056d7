package stage_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/askiada/go-segprep/pkg/tiling"
)

const omeXML = `<?xml version="1.0" encoding="UTF-8"?>
<OME xmlns="http://www.openmicroscopy.org/Schemas/OME/2016-06">
  <Image ID="Image:0" Name="region_001">
    <Pixels ID="Pixels:0" DimensionOrder="XYCZT" Type="uint16" SizeX="10" SizeY="7" SizeC="3" SizeZ="1" SizeT="1"
            PhysicalSizeX="0.377" PhysicalSizeXUnit="µm" PhysicalSizeY="0.5" PhysicalSizeYUnit="µm">
      <Channel ID="Channel:0:0" Name="DAPI"/>
      <Channel ID="Channel:0:1" Name="CD45"/>
      <Channel ID="Channel:0:2" Name="E-cadherin"/>
      <TiffData IFD="0" PlaneCount="3"/>
    </Pixels>
  </Image>
</OME>
`

// plane returns a 7x10 plane whose pixel (i, j) is base+10*i+j.
func plane(base float64) *mat.Dense {
	m := mat.NewDense(7, 10, nil)
	for i := 0; i < 7; i++ {
		for j := 0; j < 10; j++ {
			m.Set(i, j, base+float64(10*i+j))
		}
	}

	return m
}

func testGrid(t *testing.T) tiling.Grid {
	t.Helper()

	g, err := tiling.NewGrid(10, 7, 4, 3, 1)
	require.NoError(t, err)

	return g
}
