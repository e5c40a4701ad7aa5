package oh5

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newVolume(t *testing.T) *File {
	t.Helper()
	f := NewFile()
	attrs := []struct {
		path  string
		value Value
	}{
		{"/what/object", String("PVOL")},
		{"/what/date", Date{2000, 1, 2}},
		{"/what/time", Time{12, 5, 0}},
		{"/what/source", String("WMO:02606,RAD:SE50")},
		{"/where/lat", Double(56.3675)},
		{"/dataset1/where/elangle", Double(0.5)},
		{"/dataset1/data1/what/quantity", String("DBZH")},
		{"/dataset1/data1/what/gain", Double(0.4)},
		{"/how/simulated", Bool(false)},
		{"/dataset1/where/nbins", Int(120)},
	}
	for _, a := range attrs {
		_, err := f.SetAttribute(a.path, a.value)
		require.NoError(t, err, a.path)
	}
	return f
}

func TestFileAccessors(t *testing.T) {
	f := newVolume(t)

	assert.Equal(t, "PVOL", f.Object())
	d, ok := f.Date()
	require.True(t, ok)
	assert.Equal(t, Date{2000, 1, 2}, d)
	tm, ok := f.Time()
	require.True(t, ok)
	assert.Equal(t, Time{12, 5, 0}, tm)
	assert.Equal(t, "02606", f.Source()["WMO"])
	assert.Equal(t, "RAD:SE50,WMO:02606", f.Source().String())
	assert.Len(t, f.Attributes(), 10)
}

func TestFileFromRoot_RequiresRoot(t *testing.T) {
	_, err := FileFromRoot(NewGroup(KindGroup, "x"))
	assert.Error(t, err)

	f, err := FileFromRoot(NewRoot())
	require.NoError(t, err)
	assert.Equal(t, "", f.Object())
}

func TestHash_StableAndSensitive(t *testing.T) {
	a := newVolume(t)
	b := newVolume(t)
	assert.Equal(t, a.Hash(), b.Hash())
	assert.Len(t, a.Hash(), 64)

	_, err := b.SetAttribute("/dataset1/where/elangle", Double(1.5))
	require.NoError(t, err)
	assert.NotEqual(t, a.Hash(), b.Hash())
}

func TestYAMLCodec_RoundTrip(t *testing.T) {
	f := newVolume(t)
	_, err := f.EnsureGroup("/dataset1/data1/quality1", KindQualityGroup)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, YAMLCodec{}.Encode(f, &buf))

	back, err := YAMLCodec{}.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, f.Hash(), back.Hash())

	q, err := back.Root().Find("/dataset1/data1/quality1")
	require.NoError(t, err)
	assert.Equal(t, KindQualityGroup, q.Kind())
}

func TestYAMLCodec_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "volume.yaml")
	f := newVolume(t)

	codec := YAMLCodec{}
	require.NoError(t, codec.Write(f, path))
	back, err := codec.Read(path)
	require.NoError(t, err)
	assert.Equal(t, "PVOL", back.Object())
	assert.Equal(t, f.Hash(), back.Hash())
}

func TestYAMLCodec_BadType(t *testing.T) {
	doc := "attributes:\n  - path: /what/object\n    type: blob\n    value: x\n"
	_, err := YAMLCodec{}.Decode(bytes.NewBufferString(doc))
	assert.Error(t, err)
}
