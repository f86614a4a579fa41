package main

import (
	"context"
	"os"

	kingpin "gopkg.in/alecthomas/kingpin.v2"
	"www.velocidex.com/golang/ntfsmon/live"
	"www.velocidex.com/golang/ntfsmon/logging"
	"www.velocidex.com/golang/ntfsmon/parser"
)

var (
	listen_usn_command = app.Command(
		"listen_usn", "Follow the USN journal of a volume.")

	listen_usn_command_volume = listen_usn_command.Arg(
		"volume", `The volume device, e.g. \\.\C:`,
	).String()

	listen_usn_command_historical = listen_usn_command.Flag(
		"historical", "Replay the journal from its start").Bool()

	listen_usn_command_resume = listen_usn_command.Flag(
		"resume", "Resume from the saved checkpoint").Bool()

	listen_usn_command_paths = listen_usn_command.Flag(
		"enumerate_paths", "Resolve the full path of each record").Bool()

	listen_usn_command_mask = listen_usn_command.Flag(
		"reason_mask", "Only report these reasons, e.g. FILE_CREATE|FILE_DELETE").String()

	listen_usn_command_checkpoint = listen_usn_command.Flag(
		"checkpoint_path", "Directory to keep cursor checkpoints in").String()

	decode_usn_command = app.Command(
		"decode_usn", "Decode a saved USN journal read buffer or $J stream.")

	decode_usn_command_file_arg = decode_usn_command.Arg(
		"file", "The file to decode",
	).Required().File()

	decode_usn_command_stream = decode_usn_command.Flag(
		"stream", "The file is a raw $UsnJrnl:$J stream").Bool()
)

func doListenUSN() {
	config_obj := loadConfig()

	if *listen_usn_command_volume != "" {
		config_obj.USN.Volume = *listen_usn_command_volume
	}
	if *listen_usn_command_historical {
		config_obj.USN.Historical = true
	}
	if *listen_usn_command_resume {
		config_obj.USN.Resume = true
	}
	if *listen_usn_command_paths {
		config_obj.USN.EnumeratePaths = true
	}
	if *listen_usn_command_mask != "" {
		config_obj.USN.ReasonMask = *listen_usn_command_mask
	}
	if *listen_usn_command_checkpoint != "" {
		config_obj.USN.CheckpointPath = *listen_usn_command_checkpoint
	}

	if config_obj.USN.Volume == "" {
		kingpin.Fatalf("No volume specified")
	}

	volume, err := live.OpenLiveVolume(
		config_obj.USN.Volume, config_obj.USN.ParserOptions())
	kingpin.FatalIfError(err, "Can not open volume")
	defer volume.Close()

	options := listenerOptions(config_obj)
	options.Checkpoint = openCheckpoint(config_obj.USN.CheckpointPath)
	if options.Checkpoint != nil {
		defer options.Checkpoint.Close()
	}

	ctx, cancel := signalContext()
	defer cancel()

	listener := live.NewUSNVolumeListener(volume, options)
	output, err := listener.Listen(ctx)
	kingpin.FatalIfError(err, "Can not listen to journal")

	for record := range output {
		printJson(record.ToDict(), false)
	}
	logging.GetLogger().Debug(parser.STATS.DebugString())

	if ctx.Err() == nil {
		kingpin.FatalIfError(listener.Err(), "Listener failed")
	}
}

func doDecodeUSN() {
	loadConfig()
	fd := *decode_usn_command_file_arg

	if *decode_usn_command_stream {
		stat, err := fd.Stat()
		kingpin.FatalIfError(err, "Stat")

		reader, err := parser.NewPagedReader(fd, 0x1000, 1000)
		kingpin.FatalIfError(err, "Can not open stream")

		for record := range parser.ParseUSNStream(
			context.Background(), reader, stat.Size(), 0) {
			printJson(record.ToDict(), false)
		}
		return
	}

	buf, err := os.ReadFile(fd.Name())
	kingpin.FatalIfError(err, "Can not read file")

	it, err := parser.NewUSNRecordIterator(buf)
	kingpin.FatalIfError(err, "Can not decode buffer")

	for it.Next() {
		printJson(it.Record().ToDict(), false)
	}

	if it.Err() != nil {
		logging.GetLogger().Warnf("decode_usn: %v", it.Err())
	}
	logging.GetLogger().Infof("Next usn %#x", it.NextUsn())
}

func init() {
	command_handlers = append(command_handlers, func(command string) bool {
		switch command {
		case listen_usn_command.FullCommand():
			doListenUSN()
		case decode_usn_command.FullCommand():
			doDecodeUSN()
		default:
			return false
		}
		return true
	})
}
