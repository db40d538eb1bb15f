package processor

import (
	"net/http"
	"time"

	"go.uber.org/zap"
)

// ConnectivityWatcher probes the endpoint on a fixed interval and feeds
// online/offline transitions to the processor. It is the service-side
// equivalent of the browser's online/offline events: a transition back to
// online is what triggers a drain cycle.
type ConnectivityWatcher struct {
	probeURL string
	interval time.Duration
	client   *http.Client
	proc     *SubmissionProcessor
	log      *zap.Logger
	stop     chan struct{}
}

func NewConnectivityWatcher(probeURL string, interval time.Duration, proc *SubmissionProcessor, log *zap.Logger) *ConnectivityWatcher {
	return &ConnectivityWatcher{
		probeURL: probeURL,
		interval: interval,
		client:   &http.Client{Timeout: 5 * time.Second},
		proc:     proc,
		log:      log,
		stop:     make(chan struct{}),
	}
}

// Start launches the probe loop in its own goroutine.
func (w *ConnectivityWatcher) Start() {
	go w.run()
}

// Stop ends the probe loop.
func (w *ConnectivityWatcher) Stop() {
	close(w.stop)
}

func (w *ConnectivityWatcher) run() {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stop:
			return
		case <-ticker.C:
			online := w.probe()
			if online != w.proc.Online() {
				w.log.Info("Connectivity changed", zap.Bool("online", online))
			}
			w.proc.SetOnline(online)
		}
	}
}

func (w *ConnectivityWatcher) probe() bool {
	req, err := http.NewRequest(http.MethodHead, w.probeURL, nil)
	if err != nil {
		return false
	}
	resp, err := w.client.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	// any HTTP response means the network path is up; the status is irrelevant
	return true
}
