package storage

import (
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	ErrClosed     = errors.New("history writer is closed")
	ErrBufferFull = errors.New("history buffer full")
)

// HistoryWriter appends JSON lines to <baseDir>/<YYYY-MM-DD>/<subDir>/<name>.jsonl
// from a background goroutine. Files rotate by size within a day.
type HistoryWriter struct {
	baseDir   string
	subDir    string
	name      string
	maxSizeMB int
	now       func() time.Time

	writeCh   chan any
	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup

	mu          sync.Mutex
	currentDate string
	logger      *lumberjack.Logger
}

// NewHistoryWriter starts a writer. name is the file base name; empty uses the
// start time in Unix seconds.
func NewHistoryWriter(baseDir, subDir, name string, bufferSize, maxSizeMB int) *HistoryWriter {
	if name == "" {
		name = strconv.FormatInt(time.Now().Unix(), 10)
	}
	w := &HistoryWriter{
		baseDir:   baseDir,
		subDir:    subDir,
		name:      name,
		maxSizeMB: maxSizeMB,
		now:       time.Now,
		writeCh:   make(chan any, bufferSize),
		done:      make(chan struct{}),
	}
	w.wg.Add(1)
	go w.writeLoop()
	return w
}

// Write queues a record. It never blocks: a full buffer drops the record.
func (w *HistoryWriter) Write(record any) error {
	select {
	case <-w.done:
		return ErrClosed
	default:
	}
	select {
	case w.writeCh <- record:
		return nil
	default:
		slog.Warn("history buffer full, dropping record", "subdir", w.subDir)
		return ErrBufferFull
	}
}

// Close stops the writer after draining queued records.
func (w *HistoryWriter) Close() error {
	var err error
	w.closeOnce.Do(func() {
		close(w.done)
		w.wg.Wait()

		timeout := time.After(5 * time.Second)
	drain:
		for {
			select {
			case record := <-w.writeCh:
				w.writeRecord(record)
			case <-timeout:
				slog.Warn("history close timeout, some records may be lost", "subdir", w.subDir)
				break drain
			default:
				break drain
			}
		}

		w.mu.Lock()
		defer w.mu.Unlock()
		if w.logger != nil {
			err = w.logger.Close()
		}
	})
	return err
}

// Path is the file currently written to, empty before the first record.
func (w *HistoryWriter) Path() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.logger == nil {
		return ""
	}
	return w.logger.Filename
}

func (w *HistoryWriter) writeLoop() {
	defer w.wg.Done()
	for {
		select {
		case record := <-w.writeCh:
			w.writeRecord(record)
		case <-w.done:
			return
		}
	}
}

func (w *HistoryWriter) writeRecord(record any) {
	data, err := json.Marshal(record)
	if err != nil {
		slog.Error("history marshal failed", "error", err, "subdir", w.subDir)
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	date := w.now().UTC().Format("2006-01-02")
	if date != w.currentDate || w.logger == nil {
		w.rotateForDate(date)
	}
	if w.logger == nil {
		return
	}
	if _, err := w.logger.Write(append(data, '\n')); err != nil {
		slog.Error("history write failed", "error", err, "subdir", w.subDir)
	}
}

func (w *HistoryWriter) rotateForDate(date string) {
	if w.logger != nil {
		w.logger.Close()
		w.logger = nil
	}

	dir := filepath.Join(w.baseDir, date, w.subDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		slog.Error("history create dir failed", "error", err, "dir", dir)
		return
	}

	filename := filepath.Join(dir, w.name+".jsonl")
	w.logger = &lumberjack.Logger{
		Filename:   filename,
		MaxSize:    w.maxSizeMB,
		MaxBackups: 100,
		MaxAge:     30,
		LocalTime:  false,
	}
	w.currentDate = date
	slog.Info("history file opened", "file", filename, "subdir", w.subDir)
}
