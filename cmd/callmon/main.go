// Command callmon probes a set of URLs on a fixed cadence through
// monitored operations and prints the emitted events.
package main

import (
	"context"
	"flag"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jkbrsn/callmon"
	"github.com/jkbrsn/taskman"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const (
	probeComponent = "probe"
	probeUserAgent = "callmon-probe/0.1"
)

// probeTask is a taskman.Task that runs one monitored request.
type probeTask struct {
	url string
	op  callmon.Operation[int]
}

// Execute implements taskman.Task.
func (p probeTask) Execute() error {
	ctx := callmon.WithRequestInfo(context.Background(), callmon.RequestInfo{
		Header: http.Header{"User-Agent": {probeUserAgent}},
		URI:    p.url,
	})

	status, err := p.op(ctx)
	if err != nil {
		log.Warn().Err(err).Str("url", p.url).Msg("probe failed")
		return err
	}
	log.Debug().Int("status", status).Str("url", p.url).Msg("probe done")
	return nil
}

// newProbeOp builds the monitored operation for one target URL. Non-2xx
// responses become upstream errors so the monitor labels them by code.
func newProbeOp(m *callmon.Monitor, client *http.Client, target string) callmon.Operation[int] {
	strategy := callmon.AuditStrategy[int]{
		DataOnFailure: func(err error) map[string]string {
			return map[string]string{"error": err.Error()}
		},
	}

	return callmon.Observe(m, strategy, func(ctx context.Context) (int, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
		if err != nil {
			return 0, err
		}
		if info, ok := callmon.RequestInfoFrom(ctx); ok {
			for key, values := range info.Header {
				for _, value := range values {
					req.Header.Add(key, value)
				}
			}
		}

		resp, err := client.Do(req)
		if err != nil {
			return 0, err
		}
		defer func() { _ = resp.Body.Close() }()
		_, _ = io.Copy(io.Discard, resp.Body)

		if resp.StatusCode >= http.StatusBadRequest {
			return resp.StatusCode, callmon.UpstreamFromStatusCode(resp.StatusCode, target)
		}
		return resp.StatusCode, nil
	})
}

func main() {
	urls := flag.String("urls", "https://example.com", "comma-separated URLs to probe")
	cadence := flag.Duration("cadence", 10*time.Second, "probe cadence")
	flag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	recorder := callmon.NewChannelRecorder(256)
	logRecorder := callmon.NewLogRecorder(log.Logger)
	client := &http.Client{Timeout: 10 * time.Second}

	tm := taskman.New()
	for _, target := range strings.Split(*urls, ",") {
		target = strings.TrimSpace(target)
		if target == "" {
			continue
		}
		parsed, err := url.Parse(target)
		if err != nil {
			log.Fatal().Err(err).Str("url", target).Msg("invalid probe URL")
		}

		monitor, err := callmon.New(probeComponent, parsed.Hostname(),
			callmon.WithRecorder(recorder),
			callmon.WithSource("callmon"),
			callmon.WithLogger(log.Logger),
		)
		if err != nil {
			log.Fatal().Err(err).Msg("monitor setup failed")
		}

		job := taskman.Job{
			ID:       target,
			Cadence:  *cadence,
			NextExec: time.Now().Add(time.Second),
			Tasks:    []taskman.Task{probeTask{url: target, op: newProbeOp(monitor, client, target)}},
		}
		if err := tm.ScheduleJob(job); err != nil {
			log.Fatal().Err(err).Str("url", target).Msg("job scheduling failed")
		}
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		for {
			select {
			case ev := <-recorder.Events():
				logRecorder.Record(ctx, ev)
			case <-ctx.Done():
				return nil
			}
		}
	})
	_ = g.Wait()

	log.Info().Uint64("dropped", recorder.Dropped()).Msg("shutting down")
}
