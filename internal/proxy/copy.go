package proxy

import (
	"context"
	"io"
	"net"
	"sync"

	"golang.org/x/sync/errgroup"
)

// RelayResult holds the bytes moved in each direction by CopyBidirectional.
type RelayResult struct {
	ClientToDest int64
	DestToClient int64
}

// CopyBidirectional relays between client and dest until both directions
// reach EOF or either fails. EOF on one side half-closes the write side of
// the other so in-flight data can still drain. A hard error, or ctx being
// canceled, closes both streams. Both streams are closed on return.
func CopyBidirectional(ctx context.Context, client, dest net.Conn) (RelayResult, error) {
	var closeOnce sync.Once
	closeBoth := func() {
		closeOnce.Do(func() {
			_ = client.Close()
			_ = dest.Close()
		})
	}
	defer closeBoth()

	g, gctx := errgroup.WithContext(ctx)
	stop := context.AfterFunc(gctx, closeBoth)
	defer stop()

	var res RelayResult
	g.Go(func() error {
		n, err := copyHalf(dest, client)
		res.ClientToDest = n
		return err
	})
	g.Go(func() error {
		n, err := copyHalf(client, dest)
		res.DestToClient = n
		return err
	})

	err := g.Wait()
	if ctxErr := ctx.Err(); ctxErr != nil && err != nil {
		err = ctxErr
	}
	return res, err
}

func copyHalf(dst, src net.Conn) (int64, error) {
	buf := copyBuffers.Get()
	defer copyBuffers.Put(buf)

	n, err := io.CopyBuffer(dst, src, *buf)
	if err != nil {
		return n, err
	}
	// The peer may already be gone; the other direction reports that.
	_ = closeWrite(dst)
	return n, nil
}

// closeWrite shuts down the write side of c, looking through wrappers such as
// PROXY protocol connections. Streams without half-close are closed fully.
func closeWrite(c net.Conn) error {
	for {
		switch v := c.(type) {
		case interface{ CloseWrite() error }:
			return v.CloseWrite()
		case interface{ Raw() net.Conn }:
			c = v.Raw()
		default:
			return c.Close()
		}
	}
}
