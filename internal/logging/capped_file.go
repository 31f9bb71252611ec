package logging

import (
	"os"
	"sync"
)

// cappedFile is an append-only log file that rolls over to "<path>.1" once
// it would grow past maxBytes. Only one previous generation is kept.
type cappedFile struct {
	path     string
	maxBytes int64

	mu   sync.Mutex
	file *os.File
	size int64
}

func openCappedFile(path string, maxMB int) (*cappedFile, error) {
	if maxMB <= 0 {
		maxMB = 10
	}
	f, size, err := appendOpen(path)
	if err != nil {
		return nil, err
	}
	return &cappedFile{
		path:     path,
		maxBytes: int64(maxMB) * 1024 * 1024,
		file:     f,
		size:     size,
	}, nil
}

func (c *cappedFile) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.file == nil {
		f, size, err := appendOpen(c.path)
		if err != nil {
			return 0, err
		}
		c.file, c.size = f, size
	}
	if c.size > 0 && c.size+int64(len(p)) > c.maxBytes {
		if err := c.rollLocked(); err != nil {
			return 0, err
		}
	}
	n, err := c.file.Write(p)
	c.size += int64(n)
	return n, err
}

func (c *cappedFile) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.file == nil {
		return nil
	}
	err := c.file.Close()
	c.file = nil
	return err
}

func (c *cappedFile) rollLocked() error {
	if c.file != nil {
		_ = c.file.Close()
		c.file = nil
	}
	if err := os.Rename(c.path, c.path+".1"); err != nil && !os.IsNotExist(err) {
		return err
	}
	f, err := os.OpenFile(c.path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	c.file, c.size = f, 0
	return nil
}

func appendOpen(path string) (*os.File, int64, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, 0, err
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, 0, err
	}
	return f, info.Size(), nil
}
