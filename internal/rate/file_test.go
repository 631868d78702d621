package rate

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/MattK1989/Peripherals-and-Embedded-OS/internal/events"
)

func TestReadFile(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		content string
		want    int64
		wantErr bool
	}{
		{"150\n", 150, false},
		{"  42 trailing words", 42, false},
		{"", 0, true},
		{"slow", 0, true},
	}

	for i, tt := range tests {
		path := filepath.Join(dir, "rate")
		if err := os.WriteFile(path, []byte(tt.content), 0o644); err != nil {
			t.Fatal(err)
		}
		got, err := ReadFile(path)
		if tt.wantErr {
			var perr *ParseError
			if !errors.As(err, &perr) {
				t.Errorf("case %d: error = %v, want *ParseError", i, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("case %d: ReadFile = %d, %v; want %d", i, got, err, tt.want)
		}
	}
}

func TestFileSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rate")
	if err := os.WriteFile(path, []byte("120"), 0o644); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	src, err := NewFileSource(ctx, path, 20*time.Millisecond, testLogger())
	if err != nil {
		t.Fatalf("NewFileSource: %v", err)
	}
	defer src.Close()

	v, err := src.ReadNextRate(ctx)
	if err != nil || v != 120 {
		t.Fatalf("initial ReadNextRate = %d, %v; want 120", v, err)
	}

	if err := os.WriteFile(path, []byte("60"), 0o644); err != nil {
		t.Fatal(err)
	}
	v, err = src.ReadNextRate(ctx)
	if err != nil || v != 60 {
		t.Fatalf("ReadNextRate after change = %d, %v; want 60", v, err)
	}
	if src.Name() != path {
		t.Errorf("Name() = %q, want %q", src.Name(), path)
	}
}

func TestFileSource_Cancel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rate")
	ctx, cancel := context.WithCancel(context.Background())

	src, err := NewFileSource(ctx, path, 20*time.Millisecond, testLogger())
	if err != nil {
		t.Fatalf("NewFileSource: %v", err)
	}
	defer src.Close()

	cancel()
	if _, err := src.ReadNextRate(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("ReadNextRate = %v, want context.Canceled", err)
	}
}

func TestFileSource_OfferKeepsLatest(t *testing.T) {
	f := &FileSource{reads: make(chan fileRead, 1)}
	f.offer(fileRead{value: 1})
	f.offer(fileRead{value: 2})
	f.offer(fileRead{value: 3})

	if r := <-f.reads; r.value != 3 || r.err != nil {
		t.Errorf("got %+v, want 3", r)
	}
}

func TestFileSource_LoadFailedForwardsParseErrors(t *testing.T) {
	f := &FileSource{reads: make(chan fileRead, 1)}

	f.loadFailed(os.ErrNotExist)
	select {
	case r := <-f.reads:
		t.Fatalf("read error forwarded: %+v", r)
	default:
	}

	f.loadFailed(&ParseError{Token: "fast", Err: errors.New("invalid syntax")})
	r := <-f.reads
	var perr *ParseError
	if !errors.As(r.err, &perr) || perr.Token != "fast" {
		t.Errorf("got %+v, want *ParseError for \"fast\"", r)
	}
}

func TestFileSource_BadValueReachesWorker(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rate")
	if err := os.WriteFile(path, []byte("120"), 0o644); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	src, err := NewFileSource(ctx, path, 20*time.Millisecond, testLogger())
	if err != nil {
		t.Fatalf("NewFileSource: %v", err)
	}
	defer src.Close()

	bus := events.New()
	rejected := make(chan events.RateInputErrorEvent, 4)
	changed := make(chan events.RateChangedEvent, 4)
	defer bus.Subscribe(func(e events.RateInputErrorEvent) { rejected <- e })()
	defer bus.Subscribe(func(e events.RateChangedEvent) { changed <- e })()

	cell := NewCell(DefaultMs)
	go func() { _ = NewWorker(src, path, cell, bus, testLogger()).Run(ctx) }()

	select {
	case e := <-changed:
		if e.Value != 120 {
			t.Fatalf("first RateChangedEvent.Value = %d, want 120", e.Value)
		}
	case <-ctx.Done():
		t.Fatal("initial value never published")
	}

	if err := os.WriteFile(path, []byte("sluggish"), 0o644); err != nil {
		t.Fatal(err)
	}
	// A read that lands between truncate and write sees an empty file.
	for found := false; !found; {
		select {
		case e := <-rejected:
			if e.Token == "" {
				continue
			}
			if e.Token != "sluggish" || e.Source != path {
				t.Fatalf("RateInputErrorEvent = %+v", e)
			}
			found = true
		case <-ctx.Done():
			t.Fatal("no RateInputErrorEvent for a bad file value")
		}
	}
	if got := cell.Load(); got != 120 {
		t.Errorf("cell = %d, want 120 kept after a bad value", got)
	}
}
