package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	kingpin "gopkg.in/alecthomas/kingpin.v2"
	"www.velocidex.com/golang/ntfsmon/checkpoint"
	"www.velocidex.com/golang/ntfsmon/config"
	"www.velocidex.com/golang/ntfsmon/json"
	"www.velocidex.com/golang/ntfsmon/live"
	"www.velocidex.com/golang/ntfsmon/logging"
)

// loadConfig reads the config file and applies the global flags
// over it.
func loadConfig() *config.Config {
	config_obj, err := config.LoadConfig(*config_flag)
	kingpin.FatalIfError(err, "Can not load config")

	if *log_level_flag != "" {
		config_obj.Logging.Level = *log_level_flag
	}
	if *verbose_flag {
		config_obj.Logging.Level = "debug"
	}
	if *metrics_addr_flag != "" {
		config_obj.Metrics.BindAddress = *metrics_addr_flag
	}

	kingpin.FatalIfError(config.Validate(config_obj), "Invalid config")
	kingpin.FatalIfError(logging.SetLevel(config_obj.Logging.Level), "Logging")
	kingpin.FatalIfError(logging.SetFormat(config_obj.Logging.Format), "Logging")

	startMetrics(config_obj)
	return config_obj
}

func startMetrics(config_obj *config.Config) {
	if config_obj.Metrics.BindAddress == "" {
		return
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	go func() {
		logging.GetLogger().Infof("Serving metrics on %v",
			config_obj.Metrics.BindAddress)
		err := http.ListenAndServe(config_obj.Metrics.BindAddress, mux)
		if err != nil {
			logging.GetLogger().Errorf("Metrics server: %v", err)
		}
	}()
}

// signalContext is cancelled on Ctrl-C.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

func openCheckpoint(path string) *checkpoint.Store {
	if path == "" {
		return nil
	}

	store, err := checkpoint.Open(path)
	kingpin.FatalIfError(err, "Can not open checkpoint store")
	return store
}

func listenerOptions(config_obj *config.Config) live.ListenerOptions {
	options := live.GetDefaultListenerOptions()
	options.Historical = config_obj.USN.Historical
	options.Resume = config_obj.USN.Resume
	options.EnumeratePaths = config_obj.USN.EnumeratePaths
	options.PollInterval = config_obj.USN.PollInterval
	options.OutputBuffer = config_obj.USN.OutputBuffer

	mask, err := config_obj.USN.ReasonMaskValue()
	kingpin.FatalIfError(err, "Reason mask")
	options.ReasonMask = mask

	return options
}

// printJson writes one JSON document per line.
func printJson(item interface{}, pretty bool) {
	var serialized []byte
	var err error

	if pretty {
		serialized, err = json.MarshalIndent(item)
	} else {
		serialized, err = json.Marshal(item)
	}
	kingpin.FatalIfError(err, "Marshal")

	fmt.Println(string(serialized))
}
