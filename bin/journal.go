package main

import (
	"fmt"
	"os"

	"github.com/olekukonko/tablewriter"
	kingpin "gopkg.in/alecthomas/kingpin.v2"
	"www.velocidex.com/golang/ntfsmon/live"
	"www.velocidex.com/golang/ntfsmon/parser"
)

var (
	journal_command = app.Command(
		"journal", "Show the USN journal and volume geometry.")

	journal_command_volume = journal_command.Arg(
		"volume", `The volume device, e.g. \\.\C:`,
	).String()

	journal_command_debug = journal_command.Flag(
		"debug", "Dump the raw structures").Bool()
)

func doJournal() {
	config_obj := loadConfig()
	if *journal_command_volume != "" {
		config_obj.USN.Volume = *journal_command_volume
	}

	volume, err := live.OpenLiveVolume(
		config_obj.USN.Volume, config_obj.USN.ParserOptions())
	kingpin.FatalIfError(err, "Can not open volume")
	defer volume.Close()

	meta, err := live.QueryJournal(volume.Device())
	kingpin.FatalIfError(err, "Can not query journal")

	geometry := volume.Geometry()

	if *journal_command_debug {
		fmt.Println(parser.DebugString(meta, ""))
		fmt.Println(parser.DebugString(geometry, ""))
		parser.Debug(parser.NewReadRequest(meta))
		return
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Field", "Value"})
	table.SetCaption(true, fmt.Sprintf("USN journal of %v", volume.Path()))
	defer table.Render()

	for _, row := range [][]string{
		{"JournalVersion", meta.Version.String()},
		{"UsnJournalID", fmt.Sprintf("%#x", meta.UsnJournalID)},
		{"FirstUsn", fmt.Sprintf("%#x", meta.FirstUsn)},
		{"NextUsn", fmt.Sprintf("%#x", meta.NextUsn)},
		{"LowestValidUsn", fmt.Sprintf("%#x", meta.LowestValidUsn)},
		{"MaxUsn", fmt.Sprintf("%#x", meta.MaxUsn)},
		{"MaximumSize", fmt.Sprintf("%v", meta.MaximumSize)},
		{"AllocationDelta", fmt.Sprintf("%v", meta.AllocationDelta)},
		{"SupportedVersions", fmt.Sprintf("%v-%v",
			meta.MinSupportedMajorVersion, meta.MaxSupportedMajorVersion)},
		{"VolumeSerialNumber", fmt.Sprintf("%#x", geometry.VolumeSerialNumber)},
		{"NtfsVersion", fmt.Sprintf("%v.%v",
			geometry.MajorVersion, geometry.MinorVersion)},
		{"BytesPerCluster", fmt.Sprintf("%v", geometry.BytesPerCluster)},
		{"BytesPerFileRecordSegment", fmt.Sprintf("%v",
			geometry.BytesPerFileRecordSegment)},
		{"MftValidDataLength", fmt.Sprintf("%#x", geometry.MftValidDataLength)},
		{"MaxEntry", fmt.Sprintf("%v", geometry.MaxEntry())},
	} {
		table.Append(row)
	}
}

func init() {
	command_handlers = append(command_handlers, func(command string) bool {
		switch command {
		case journal_command.FullCommand():
			doJournal()
		default:
			return false
		}
		return true
	})
}
