package database

import (
	"testing"
	"time"
)

func TestReadingSpans(t *testing.T) {
	min := time.Date(2025, 7, 1, 6, 0, 0, 0, time.UTC)
	max := time.Date(2025, 7, 20, 23, 30, 0, 0, time.UTC)

	spans := readingSpans(min, max, 7)
	if len(spans) != 3 {
		t.Fatalf("got %d spans, want 3", len(spans))
	}
	if !spans[0].start.Equal(min) {
		t.Errorf("first span starts at %s, want %s", spans[0].start, min)
	}
	for i := 1; i < len(spans); i++ {
		if !spans[i].start.Equal(spans[i-1].end) {
			t.Errorf("span %d not contiguous: %s != %s", i, spans[i].start, spans[i-1].end)
		}
	}
	last := spans[len(spans)-1]
	if max.Before(last.start) || !max.Before(last.end) {
		t.Errorf("last span [%s, %s) does not cover max %s", last.start, last.end, max)
	}
}

func TestReadingSpansSingleChunk(t *testing.T) {
	min := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	max := time.Date(2025, 7, 2, 0, 0, 0, 0, time.UTC)

	for _, chunkDays := range []int{0, -1, 30} {
		spans := readingSpans(min, max, chunkDays)
		if len(spans) != 1 {
			t.Errorf("chunkDays %d: got %d spans, want 1", chunkDays, len(spans))
			continue
		}
		if max.Before(spans[0].start) || !max.Before(spans[0].end) {
			t.Errorf("chunkDays %d: span [%s, %s) does not cover max", chunkDays, spans[0].start, spans[0].end)
		}
	}
}

func TestReadingSpansSameDay(t *testing.T) {
	at := time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)
	spans := readingSpans(at, at, 7)
	if len(spans) != 1 {
		t.Fatalf("got %d spans, want 1", len(spans))
	}
}
