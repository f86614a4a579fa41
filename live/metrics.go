package live

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricJournalReads = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ntfsmon_usn_journal_reads",
			Help: "Number of reads issued against the USN journal.",
		})

	metricEmptyReads = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ntfsmon_usn_empty_reads",
			Help: "Number of journal reads which returned no records.",
		})

	metricReadFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ntfsmon_usn_read_failures",
			Help: "Number of journal reads which failed.",
		})

	metricRecordsEmitted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ntfsmon_usn_records_emitted",
			Help: "Number of USN records delivered to listeners.",
		})

	metricDiffsEmitted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ntfsmon_mft_diffs_emitted",
			Help: "Number of MFT entry differences delivered to listeners.",
		})

	metricFolderMappings = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ntfsmon_folder_mappings",
			Help: "Number of directories in the most recently updated folder mapping.",
		})
)
