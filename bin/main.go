package main

import (
	"os"

	kingpin "gopkg.in/alecthomas/kingpin.v2"
)

type CommandHandler func(command string) bool

var (
	app = kingpin.New("ntfsmon",
		"Follow changes on live NTFS volumes.")

	config_flag = app.Flag(
		"config", "Path to a config file.").String()

	verbose_flag = app.Flag(
		"verbose", "Log debug messages.").Short('v').Bool()

	log_level_flag = app.Flag(
		"log_level", "Log level (off, error, warn, info, debug, trace).").String()

	metrics_addr_flag = app.Flag(
		"metrics_addr", "Serve prometheus metrics on this address.").String()

	command_handlers []CommandHandler
)

func main() {
	app.HelpFlag.Short('h')
	app.UsageTemplate(kingpin.CompactUsageTemplate)
	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	for _, command_handler := range command_handlers {
		if command_handler(command) {
			break
		}
	}
}
