package crypt

import (
	"fmt"
	"os"
	"time"
)

// Performance accumulates throughput figures for one kind of operation.
// It is not safe for concurrent use; directives run sequentially.
type Performance struct {
	Caption string
	bytes   int64
	elapsed time.Duration
}

// NewPerformance returns an empty counter labelled caption.
func NewPerformance(caption string) *Performance {
	return &Performance{Caption: caption}
}

// Record adds the time spent since start and the size of file.
func (p *Performance) Record(start time.Time, file string) error {
	p.elapsed += time.Since(start)
	info, err := os.Stat(file)
	if err != nil {
		return fmt.Errorf("can't measure size of %s: %w", file, err)
	}
	p.bytes += info.Size()
	return nil
}

func (p *Performance) Bytes() int64 { return p.bytes }

func (p *Performance) Elapsed() time.Duration { return p.elapsed }

// Figures renders the counters, or "" when nothing was processed.
func (p *Performance) Figures() string {
	if p.bytes == 0 {
		return ""
	}
	seconds := p.elapsed.Seconds()
	rate := 0.0
	if seconds > 0 {
		rate = float64(p.bytes) / 1024 / seconds
	}
	return fmt.Sprintf("%s - %d bytes in %.3f seconds = %.1f KB/sec.", p.Caption, p.bytes, seconds, rate)
}
