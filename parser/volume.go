package parser

import (
	"encoding/binary"
	"fmt"
)

// https://learn.microsoft.com/en-us/windows/win32/api/winioctl/ns-winioctl-ntfs_volume_data_buffer
const (
	NTFS_VOLUME_DATA_BUFFER_SIZE   = 96
	NTFS_EXTENDED_VOLUME_DATA_SIZE = 8
)

// VolumeGeometry is the decoded output of FSCTL_GET_NTFS_VOLUME_DATA.
type VolumeGeometry struct {
	VolumeSerialNumber           uint64
	NumberSectors                int64
	TotalClusters                int64
	FreeClusters                 int64
	TotalReserved                int64
	BytesPerSector               uint32
	BytesPerCluster              uint32
	BytesPerFileRecordSegment    uint32
	ClustersPerFileRecordSegment uint32
	MftValidDataLength           int64
	MftStartLcn                  int64
	Mft2StartLcn                 int64
	MftZoneStart                 int64
	MftZoneEnd                   int64

	// Only present when the device returned the extended block.
	MajorVersion uint16
	MinorVersion uint16
}

func DecodeVolumeGeometry(buf []byte) (*VolumeGeometry, error) {
	if len(buf) < NTFS_VOLUME_DATA_BUFFER_SIZE {
		return nil, fmt.Errorf("Volume data buffer too short: %d bytes", len(buf))
	}

	le := binary.LittleEndian
	result := &VolumeGeometry{
		VolumeSerialNumber:           le.Uint64(buf[0:8]),
		NumberSectors:                int64(le.Uint64(buf[8:16])),
		TotalClusters:                int64(le.Uint64(buf[16:24])),
		FreeClusters:                 int64(le.Uint64(buf[24:32])),
		TotalReserved:                int64(le.Uint64(buf[32:40])),
		BytesPerSector:               le.Uint32(buf[40:44]),
		BytesPerCluster:              le.Uint32(buf[44:48]),
		BytesPerFileRecordSegment:    le.Uint32(buf[48:52]),
		ClustersPerFileRecordSegment: le.Uint32(buf[52:56]),
		MftValidDataLength:           int64(le.Uint64(buf[56:64])),
		MftStartLcn:                  int64(le.Uint64(buf[64:72])),
		Mft2StartLcn:                 int64(le.Uint64(buf[72:80])),
		MftZoneStart:                 int64(le.Uint64(buf[80:88])),
		MftZoneEnd:                   int64(le.Uint64(buf[88:96])),
	}

	if len(buf) >= NTFS_VOLUME_DATA_BUFFER_SIZE+NTFS_EXTENDED_VOLUME_DATA_SIZE {
		ext := buf[NTFS_VOLUME_DATA_BUFFER_SIZE:]
		byte_count := le.Uint32(ext[0:4])
		if byte_count >= NTFS_EXTENDED_VOLUME_DATA_SIZE {
			result.MajorVersion = le.Uint16(ext[4:6])
			result.MinorVersion = le.Uint16(ext[6:8])
		}
	}

	if result.BytesPerFileRecordSegment == 0 {
		return nil, fmt.Errorf("Volume data has zero file record size")
	}

	return result, nil
}

// MaxEntry is the number of MFT entries covered by the valid data
// length of the $MFT.
func (self *VolumeGeometry) MaxEntry() int64 {
	return self.MftValidDataLength / int64(self.BytesPerFileRecordSegment)
}

func (self *VolumeGeometry) DebugString() string {
	result := "[NTFS_VOLUME_DATA_BUFFER]\n"
	result += fmt.Sprintf("  VolumeSerialNumber: %#0x\n", self.VolumeSerialNumber)
	result += fmt.Sprintf("  BytesPerSector: %v\n", self.BytesPerSector)
	result += fmt.Sprintf("  BytesPerCluster: %v\n", self.BytesPerCluster)
	result += fmt.Sprintf("  BytesPerFileRecordSegment: %v\n",
		self.BytesPerFileRecordSegment)
	result += fmt.Sprintf("  MftValidDataLength: %#0x\n", self.MftValidDataLength)
	result += fmt.Sprintf("  MftStartLcn: %#0x\n", self.MftStartLcn)
	result += fmt.Sprintf("  MaxEntry: %v\n", self.MaxEntry())
	return result
}
