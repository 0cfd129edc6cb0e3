package variables

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/layerprompt/layerprompt/internal/core"
)

// DefaultStdinTimeout bounds the wait for piped input.
const DefaultStdinTimeout = 30 * time.Second

// IsPiped reports whether f is a pipe or redirected file rather than a terminal.
func IsPiped(f *os.File) bool {
	if f == nil {
		return false
	}
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice == 0
}

// ReadStdin reads r to EOF within timeout. A stalled writer yields
// StdinTimeout instead of hanging the run; the blocked read is abandoned and
// ends with the process.
func ReadStdin(ctx context.Context, r io.Reader, timeout time.Duration) (string, error) {
	if r == nil {
		return "", nil
	}
	if timeout <= 0 {
		timeout = DefaultStdinTimeout
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		data []byte
		err  error
	}
	done := make(chan result, 1)
	go func() {
		data, err := io.ReadAll(r)
		done <- result{data: data, err: err}
	}()

	select {
	case res := <-done:
		if res.err != nil {
			return "", &core.Error{Kind: core.KindFileReadError, Msg: "failed to read piped input", Value: "stdin", Err: res.err}
		}
		return string(res.data), nil
	case <-ctx.Done():
		return "", &core.Error{
			Kind:  core.KindStdinTimeout,
			Msg:   fmt.Sprintf("piped input did not complete within %s", timeout),
			Value: "stdin",
			Err:   ctx.Err(),
		}
	}
}
