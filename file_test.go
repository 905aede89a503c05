package hdf5

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenFromDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fixture.h5")
	require.NoError(t, os.WriteFile(path, buildFixture(t), 0o600))

	f, err := Open(path)
	require.NoError(t, err)
	defer f.Close()

	names, err := f.List("/")
	require.NoError(t, err)
	assert.Len(t, names, 5)
}

func TestOpenNotHDF5(t *testing.T) {
	path := filepath.Join(t.TempDir(), "garbage.bin")
	require.NoError(t, os.WriteFile(path, bytes.Repeat([]byte{0xAB}, 2048), 0o600))

	_, err := Open(path)
	require.ErrorIs(t, err, ErrNotHDF5)
}

func TestOpenMissingFile(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "nope.h5"))
	require.Error(t, err)
}

func TestListRoot(t *testing.T) {
	f := openFixture(t)
	defer f.Close()

	names, err := f.List("/")
	require.NoError(t, err)
	assert.Equal(t, []string{"grid", "grp", "scalar", "vals", "virt"}, names)
}

func TestListNested(t *testing.T) {
	f := openFixture(t)
	defer f.Close()

	names, err := f.List("/grp")
	require.NoError(t, err)
	assert.Equal(t, []string{"leaf", "sub"}, names)
}

func TestResolveThreeLevels(t *testing.T) {
	f := openFixture(t)
	defer f.Close()

	kind, err := f.ObjectType("/grp/sub/deep")
	require.NoError(t, err)
	assert.Equal(t, KindDataset, kind)

	values, err := f.ReadDataset("/grp/sub/deep")
	require.NoError(t, err)
	assert.Equal(t, []any{int16(7), int16(8), int16(9)}, values)
}

func TestObjectType(t *testing.T) {
	f := openFixture(t)
	defer f.Close()

	tests := []struct {
		path string
		want ObjectKind
	}{
		{"/", KindGroup},
		{"/grp", KindGroup},
		{"/vals", KindDataset},
		{"/grid", KindDataset},
		{"/grp/leaf", KindDataset},
		{"/virt", KindDataset},
	}
	for _, tc := range tests {
		kind, err := f.ObjectType(tc.path)
		require.NoError(t, err, tc.path)
		assert.Equal(t, tc.want, kind, tc.path)
	}
}

func TestResolveErrors(t *testing.T) {
	f := openFixture(t)
	defer f.Close()

	_, err := f.List("/missing")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.List("/vals")
	assert.ErrorIs(t, err, ErrNotGroup)

	_, err = f.Dataset("/grp")
	assert.ErrorIs(t, err, ErrNotDataset)

	_, err = f.Group("/vals/deeper")
	assert.ErrorIs(t, err, ErrNotGroup)
}

func TestEmbeddedOffset(t *testing.T) {
	// The same payload behind 512 bytes of leading junk must parse
	// identically: the signature scan finds it and every address is
	// shifted by the start offset.
	raw := buildFixture(t)
	embedded := append(bytes.Repeat([]byte{0xFF}, 512), raw...)

	f, err := NewFile(bytes.NewReader(embedded), int64(len(embedded)))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, uint64(512), f.Superblock().StartOffset)

	values, err := f.ReadDataset("/vals")
	require.NoError(t, err)
	assert.Equal(t, []any{int32(1), int32(-2), int32(3), int32(-4), int32(5), int32(-6)}, values)
}

func TestMisalignedEmbeddingRejected(t *testing.T) {
	// The signature is only scanned at 512-byte steps; a payload at an
	// unaligned offset is not found.
	raw := buildFixture(t)
	embedded := append(bytes.Repeat([]byte{0xFF}, 100), raw...)

	_, err := NewFile(bytes.NewReader(embedded), int64(len(embedded)))
	require.ErrorIs(t, err, ErrNotHDF5)
}

func TestCloseIdempotent(t *testing.T) {
	f := openFixture(t)
	require.NoError(t, f.Close())
	require.NoError(t, f.Close())

	_, err := f.List("/")
	assert.ErrorIs(t, err, ErrClosed)

	_, err = f.ReadDataset("/vals")
	assert.ErrorIs(t, err, ErrClosed)
}

func TestTruncatedFile(t *testing.T) {
	raw := buildFixture(t)

	// Cut the file just past the superblock: opening still works, but
	// the root group header read must fail loudly.
	short := raw[:0x100]
	f, err := NewFile(bytes.NewReader(short), int64(len(short)))
	require.NoError(t, err)
	_, listErr := f.List("/")
	assert.Error(t, listErr)
}
