// Command scrape_load hammers the exporter's metrics endpoint with concurrent
// scrapers, to check how a cached exporter holds up under parallel scrape load.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"os/signal"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"
)

func main() {
	var (
		targetURL    string
		scrapers     int
		interval     time.Duration
		testDuration time.Duration
	)

	flag.StringVar(&targetURL, "url", "http://localhost:8123/metrics", "metrics endpoint URL")
	flag.IntVar(&scrapers, "scrapers", 50, "number of concurrent scrapers")
	flag.DurationVar(&interval, "interval", time.Second, "pause between scrapes of one scraper")
	flag.DurationVar(&testDuration, "dur", 30*time.Second, "test duration (0 for until interrupted)")
	flag.Parse()

	if scrapers <= 0 {
		log.Fatalf("invalid scrapers: %d", scrapers)
	}

	log.Printf("starting scrape load: url=%s scrapers=%d interval=%s duration=%s", targetURL, scrapers, interval, testDuration)

	client := &http.Client{
		Transport: &http.Transport{
			MaxIdleConnsPerHost: scrapers,
			DialContext: (&net.Dialer{
				Timeout:   5 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
		},
		Timeout: 30 * time.Second,
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	if testDuration > 0 {
		var stop context.CancelFunc
		ctx, stop = context.WithTimeout(ctx, testDuration)
		defer stop()
	}

	var (
		ok      int64
		failed  int64
		samples int64
		wg      sync.WaitGroup
	)
	start := time.Now()

	for i := 0; i < scrapers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for ctx.Err() == nil {
				n, err := scrape(ctx, client, targetURL)
				if err != nil {
					if ctx.Err() == nil {
						atomic.AddInt64(&failed, 1)
					}
				} else {
					atomic.AddInt64(&ok, 1)
					atomic.AddInt64(&samples, int64(n))
				}
				select {
				case <-ctx.Done():
				case <-time.After(interval):
				}
			}
		}()
	}

	wg.Wait()

	elapsed := time.Since(start)
	fmt.Printf("done: ok=%d failed=%d samples=%d elapsed=%s scrapes/s=%.2f\n",
		atomic.LoadInt64(&ok),
		atomic.LoadInt64(&failed),
		atomic.LoadInt64(&samples),
		elapsed.Truncate(time.Millisecond),
		float64(ok+failed)/elapsed.Seconds(),
	)
}

func scrape(ctx context.Context, client *http.Client, url string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return 0, fmt.Errorf("status %d", resp.StatusCode)
	}
	return countSamples(resp.Body)
}

// countSamples counts exposition lines that are neither comments nor blank.
func countSamples(r io.Reader) (int, error) {
	n := 0
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		n++
	}
	return n, sc.Err()
}
