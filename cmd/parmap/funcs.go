package main

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/utkarsh5026/procpool/pool"
)

// Report is what every built-in function returns for one input.
type Report struct {
	Input   string
	Detail  string
	Size    int64
	PID     int
	Elapsed time.Duration
}

var (
	sha256Fn = pool.Register("parmap.sha256", digestFile)
	linesFn  = pool.Register("parmap.lines", countLines)
	sleepFn  = pool.Register("parmap.sleep", sleepFor)
)

var builtins = map[string]*pool.Func[string, Report]{
	"sha256": sha256Fn,
	"lines":  linesFn,
	"sleep":  sleepFn,
}

func digestFile(_ context.Context, path string) (Report, error) {
	start := time.Now()

	f, err := os.Open(path)
	if err != nil {
		return Report{}, err
	}
	defer f.Close()

	h := sha256.New()
	n, err := io.Copy(h, f)
	if err != nil {
		return Report{}, fmt.Errorf("read %s: %w", path, err)
	}

	return Report{
		Input:   path,
		Detail:  hex.EncodeToString(h.Sum(nil)),
		Size:    n,
		PID:     os.Getpid(),
		Elapsed: time.Since(start),
	}, nil
}

func countLines(_ context.Context, path string) (Report, error) {
	start := time.Now()

	f, err := os.Open(path)
	if err != nil {
		return Report{}, err
	}
	defer f.Close()

	// A final line without a trailing newline still counts.
	var lines, size int64
	var last byte
	buf := make([]byte, 64<<10)
	for {
		n, err := f.Read(buf)
		if n > 0 {
			lines += int64(bytes.Count(buf[:n], []byte{'\n'}))
			size += int64(n)
			last = buf[n-1]
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return Report{}, fmt.Errorf("read %s: %w", path, err)
		}
	}
	if size > 0 && last != '\n' {
		lines++
	}

	return Report{
		Input:   path,
		Detail:  strconv.FormatInt(lines, 10) + " lines",
		Size:    size,
		PID:     os.Getpid(),
		Elapsed: time.Since(start),
	}, nil
}

func sleepFor(ctx context.Context, arg string) (Report, error) {
	secs, err := strconv.ParseFloat(arg, 64)
	if err != nil {
		return Report{}, fmt.Errorf("sleep: %q is not a number of seconds", arg)
	}
	if secs < 0 {
		return Report{}, fmt.Errorf("sleep: negative duration %q", arg)
	}

	start := time.Now()
	d := time.Duration(secs * float64(time.Second))
	select {
	case <-time.After(d):
	case <-ctx.Done():
		return Report{}, ctx.Err()
	}

	return Report{
		Input:   arg,
		Detail:  arg,
		PID:     os.Getpid(),
		Elapsed: time.Since(start),
	}, nil
}
