package main

type Notifier interface {
	NotifyRunResults(job JobResult) error
}

// JobResult describes one finished upload or download job.
type JobResult struct {
	Action    string
	Local     string
	Container string
	Stats     TransferStats
	Err       error
}
