package tilestore

import (
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/askiada/go-segprep/pkg/tiling"
)

// Store keeps tiles under root as
// region_{r}/R{r}_X{x}_Y{y}/R{r}_X{x}_Y{y}_{role}.{ext}. Each tile has its
// own file so concurrent writers never share one.
type Store struct {
	root  string
	codec Codec
}

// New returns a store writing tiles with codec under root.
func New(root string, codec Codec) *Store {
	return &Store{root: root, codec: codec}
}

// Root returns the root directory of the store.
func (s *Store) Root() string {
	return s.root
}

// Codec returns the codec of the store.
func (s *Store) Codec() Codec {
	return s.codec
}

// Path returns the file of the tile of role at c in region.
func (s *Store) Path(region int, c tiling.Coord, role string) string {
	return filepath.Join(s.root, tiling.RegionDir(region), tiling.TileDir(region, c), tiling.Name(region, c, role, s.codec.Ext()))
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (cw *countingWriter) Write(p []byte) (int, error) {
	n, err := cw.w.Write(p)
	cw.n += int64(n)

	return n, err
}

// Write encodes m to a temporary file next to its final path and renames it
// once complete, so a tile file is either absent or whole. It returns the
// number of bytes written.
func (s *Store) Write(region int, c tiling.Coord, role string, m mat.Matrix) (int64, error) {
	path := s.Path(region, c, role)
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, errors.Wrapf(err, "unable to create %s", dir)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return 0, errors.Wrapf(err, "unable to create temporary file in %s", dir)
	}
	defer func() {
		// no-op once renamed
		_ = os.Remove(tmp.Name())
	}()

	cw := &countingWriter{w: tmp}
	if err := s.codec.Encode(cw, m); err != nil {
		tmp.Close()

		return 0, errors.Wrapf(err, "unable to encode tile %s", c)
	}
	if err := tmp.Close(); err != nil {
		return 0, errors.Wrapf(err, "unable to close %s", tmp.Name())
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return 0, errors.Wrapf(err, "unable to move tile to %s", path)
	}

	return cw.n, nil
}

// Read decodes the tile of role at c in region. A missing tile returns an
// error matching os.ErrNotExist.
func (s *Store) Read(region int, c tiling.Coord, role string) (*mat.Dense, error) {
	path := s.Path(region, c, role)
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to open tile %s", c)
	}
	defer file.Close()

	m, err := s.codec.Decode(file)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to decode %s", path)
	}

	return m, nil
}

// List returns, row by row, the tiles of role stored for region.
func (s *Store) List(region int, role string) ([]tiling.TileName, error) {
	dir := filepath.Join(s.root, tiling.RegionDir(region))
	var names []tiling.TileName
	err := filepath.WalkDir(dir, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		name, err := tiling.ParseName(d.Name())
		if err != nil {
			// temporary files and foreign files
			return nil //nolint:nilerr
		}
		if name.Region == region && name.Role == role && name.Ext == s.codec.Ext() {
			names = append(names, name)
		}

		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "unable to list %s", dir)
	}
	sort.Slice(names, func(i, j int) bool { return names[i].Coord.Less(names[j].Coord) })

	return names, nil
}
