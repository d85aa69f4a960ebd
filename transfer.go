package main

import (
	"fmt"
	"io"
	"os"
)

type nopObserver struct{}

func (nopObserver) OnStart(int64)       {}
func (nopObserver) OnTick(int64, int64) {}
func (nopObserver) OnEnd()              {}

func observerOrNop(observer TransferObserver) TransferObserver {
	if observer == nil {
		return nopObserver{}
	}
	return observer
}

// progressReader reports every chunk read through it.
type progressReader struct {
	r        io.Reader
	total    int64
	done     int64
	observer TransferObserver
}

func newProgressReader(r io.Reader, total int64, observer TransferObserver) *progressReader {
	return &progressReader{r: r, total: total, observer: observerOrNop(observer)}
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.done += int64(n)
		p.observer.OnTick(p.done, p.total)
	}
	return n, err
}

// progressWriterAt reports every chunk written through it. Writes arrive in
// order because downloads run with a single part in flight.
type progressWriterAt struct {
	w        io.WriterAt
	total    int64
	done     int64
	observer TransferObserver
}

func newProgressWriterAt(w io.WriterAt, total int64, observer TransferObserver) *progressWriterAt {
	return &progressWriterAt{w: w, total: total, observer: observerOrNop(observer)}
}

func (p *progressWriterAt) WriteAt(b []byte, off int64) (int, error) {
	n, err := p.w.WriteAt(b, off)
	if n > 0 {
		p.done += int64(n)
		p.observer.OnTick(p.done, p.total)
	}
	return n, err
}

func checkObjectSize(obj RemoteObject, written int64) error {
	if obj.Size < 0 || written != obj.Size {
		return fmt.Errorf("%s: expected %d bytes, received %d: %w", obj.Name, obj.Size, written, ErrInvalidObjectSize)
	}
	return nil
}

// saveStream copies r into a file at path, creating or truncating it. The file
// is closed before saveStream returns.
func saveStream(path string, obj RemoteObject, r io.Reader, observer TransferObserver) (err error) {
	fd, openErr := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if openErr != nil {
		return openErr
	}
	defer func() {
		if closeErr := fd.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	written, copyErr := io.Copy(fd, newProgressReader(r, obj.Size, observer))
	if copyErr != nil {
		return copyErr
	}

	return checkObjectSize(obj, written)
}
