package live

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"www.velocidex.com/golang/ntfsmon/parser"
	"www.velocidex.com/golang/ntfsmon/vtesting"
)

// A small volume: root(5) -> dir1(100) -> dir2(101) -> file.txt(150)
// and a corrupt record at 250.
func testVolumeDevice() *fakeDevice {
	dev := newFakeDevice(300)
	dev.SetRecord(0, vtesting.BuildMFTRecord(vtesting.MFTRecord{
		Entry: 0, Sequence: 1, Allocated: true,
		Created: vtesting.TestFiletime,
		FileNames: []vtesting.FileName{{
			Name: "$MFT", NameType: vtesting.NAME_TYPE_DOS_WIN32,
			Parent: vtesting.FRN(5, 5)}},
	}))
	dev.SetRecord(5, vtesting.BuildMFTRecord(vtesting.MFTRecord{
		Entry: 5, Sequence: 5, Allocated: true, Directory: true,
		Created: vtesting.TestFiletime,
		FileNames: []vtesting.FileName{{
			Name: ".", NameType: vtesting.NAME_TYPE_DOS_WIN32,
			Parent: vtesting.FRN(5, 5)}},
	}))
	dev.SetRecord(100, directoryRecord(100, "dir1", vtesting.FRN(5, 5)))
	dev.SetRecord(101, directoryRecord(101, "dir2", vtesting.FRN(100, 1)))
	dev.SetRecord(150, fileRecord(150, "file.txt", vtesting.FRN(101, 1),
		vtesting.TestFiletime))
	dev.SetRecord(250, []byte("this is not an MFT record"))
	return dev
}

func TestLiveVolumeGetMFTEntry(t *testing.T) {
	assert := assert.New(t)
	dev := testVolumeDevice()

	volume, err := OpenLiveVolumeWithOpener(`\\.\C:`,
		parser.GetDefaultOptions(), dev.opener)
	require.NoError(t, err)

	entry, err := volume.GetMFTEntry(101)
	require.NoError(t, err)
	assert.Equal(parser.EntryReference{Entry: 101, Sequence: 1}, entry.Reference)
	assert.True(entry.IsDir)
	assert.Equal("dir2", entry.BestFileName().Name)

	_, err = volume.GetMFTEntry(250)
	decode_error := &parser.DecodeError{}
	assert.True(errors.As(err, &decode_error))

	require.NoError(t, volume.Close())
	assert.Equal(1, dev.closed)
}

func TestLiveVolumeEntryIterator(t *testing.T) {
	assert := assert.New(t)
	dev := testVolumeDevice()

	volume, err := OpenLiveVolumeWithOpener(`\\.\C:`,
		parser.GetDefaultOptions(), dev.opener)
	require.NoError(t, err)

	entries := []int64{}
	errs := 0
	it := volume.EntryIterator()
	for it.Next() {
		entry, err := it.Entry()
		if err != nil {
			errs++
			continue
		}
		entries = append(entries, int64(entry.Reference.Entry))
	}

	assert.Equal([]int64{150, 101, 100, 5, 0}, entries)
	assert.Equal(1, errs)

	// Each fetch continues below the record the device returned.
	assert.Equal([]int64{299, 249, 149, 100, 99, 4}, dev.Fetches())
}

func TestLiveVolumeEntryIteratorFetchError(t *testing.T) {
	assert := assert.New(t)
	dev := testVolumeDevice()
	dev.fetch_error[149] = testError{code: 5}

	volume, err := OpenLiveVolumeWithOpener(`\\.\C:`,
		parser.GetDefaultOptions(), dev.opener)
	require.NoError(t, err)

	entries := []int64{}
	errs := []error{}
	it := volume.EntryIterator()
	for it.Next() {
		entry, err := it.Entry()
		if err != nil {
			errs = append(errs, err)
			continue
		}
		entries = append(entries, int64(entry.Reference.Entry))
	}

	// The failed fetch is yielded and the scan carries on one entry
	// lower.
	assert.Equal([]int64{150, 101, 100, 5, 0}, entries)
	assert.Equal(2, len(errs))
	assert.Equal([]int64{299, 249, 149, 148, 100, 99, 4}, dev.Fetches())

	device_error := &parser.DeviceError{}
	assert.True(errors.As(errs[1], &device_error))
	assert.Equal(uint32(5), device_error.Code)
}

func TestLiveVolumeFolderMapping(t *testing.T) {
	assert := assert.New(t)
	dev := testVolumeDevice()

	volume, err := OpenLiveVolumeWithOpener(`\\.\C:`,
		parser.GetDefaultOptions(), dev.opener)
	require.NoError(t, err)

	mapping := volume.GetFolderMapping()

	// Only directories are mapped.
	assert.Equal(3, mapping.Len())
	assert.Equal("[root]/dir1/dir2", mapping.EnumeratePath(
		parser.EntryReference{Entry: 101, Sequence: 1}))
	assert.False(mapping.ContainsReference(
		parser.EntryReference{Entry: 150, Sequence: 1}))
}

func TestLiveVolumeClone(t *testing.T) {
	assert := assert.New(t)
	dev := testVolumeDevice()

	opened := 0
	opener := func(path string) (Device, error) {
		opened++
		return dev, nil
	}

	volume, err := OpenLiveVolumeWithOpener(`\\.\C:`,
		parser.GetDefaultOptions(), opener)
	require.NoError(t, err)

	clone, err := volume.Clone()
	require.NoError(t, err)

	// Every clone opens its own handle.
	assert.Equal(2, opened)
	assert.Equal(volume.Path(), clone.Path())
	assert.Equal(volume.Geometry(), clone.Geometry())

	entry, err := clone.GetMFTEntry(100)
	require.NoError(t, err)
	assert.Equal("dir1", entry.BestFileName().Name)
}
