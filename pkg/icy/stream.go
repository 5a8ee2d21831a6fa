package icy

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"
)

var (
	// ErrNoInbandMetadata is returned by Open when the server does not
	// advertise a metadata interval. The stream may still play fine; it just
	// cannot deliver titles over this channel.
	ErrNoInbandMetadata = errors.New("stream does not advertise inband metadata")

	// ErrStreamEnded is returned by NextMetadata when the server closed the
	// stream cleanly at a block boundary. No more data is forthcoming.
	ErrStreamEnded = errors.New("stream ended")
)

const userAgent = "radiogo/1.0"

// Stream is an open connection to a server that interleaves metadata blocks
// with the audio bytes. The audio itself is discarded; only the metadata
// side-channel is consumed.
type Stream struct {
	// The name of the server
	Name string

	// Bitrate of the server, if advertised
	Bitrate int

	// Amount of audio bytes between metadata blocks
	metaint int

	rc io.ReadCloser
	br *bufio.Reader
}

// Open connects to url requesting the metadata side-channel. The request is
// bound to ctx, so cancelling ctx unblocks any later read on the stream.
// A nil client gets a default with a connect timeout but no read deadline,
// since the body is read indefinitely.
func Open(ctx context.Context, client *http.Client, url string) (*Stream, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Add("accept", "*/*")
	req.Header.Add("user-agent", userAgent)
	req.Header.Add("icy-metadata", "1")

	if client == nil {
		client = newStreamClient()
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("unexpected status %d from %s", resp.StatusCode, url)
	}

	metaint, err := strconv.Atoi(resp.Header.Get("icy-metaint"))
	if err != nil || metaint <= 0 {
		_ = resp.Body.Close()
		return nil, ErrNoInbandMetadata
	}

	var bitrate int
	if rawBitrate := resp.Header.Get("icy-br"); rawBitrate != "" {
		// advisory only, ignore parse failures
		bitrate, _ = strconv.Atoi(rawBitrate)
	}

	return &Stream{
		Name:    resp.Header.Get("icy-name"),
		Bitrate: bitrate,
		metaint: metaint,
		rc:      resp.Body,
		br:      bufio.NewReader(resp.Body),
	}, nil
}

// newStreamClient builds a client suitable for long-lived streaming reads:
// timeouts apply to establishing the connection only, never to the body.
func newStreamClient() *http.Client {
	dialer := &net.Dialer{Timeout: 10 * time.Second}
	return &http.Client{
		Transport: &http.Transport{
			DialContext:           dialer.DialContext,
			ResponseHeaderTimeout: 10 * time.Second,
		},
	}
}

// NextMetadata blocks until the next metadata block arrives and returns it
// parsed. It skips exactly metaint audio bytes, reads the length byte, and
// reads length*16 bytes of metadata. A zero length byte is valid and means
// no metadata this round, so the loop continues.
//
// A clean EOF before any byte of a round was read yields ErrStreamEnded.
// Every other failure is a transient connection error; the caller is
// expected to reopen the stream after a backoff.
func (s *Stream) NextMetadata() (Metadata, error) {
	for {
		n, err := io.CopyN(io.Discard, s.br, int64(s.metaint))
		if err != nil {
			if n == 0 && errors.Is(err, io.EOF) {
				return Metadata{}, ErrStreamEnded
			}
			return Metadata{}, err
		}

		length, err := s.br.ReadByte()
		if err != nil {
			return Metadata{}, err
		}

		metaLen := int(length) * 16
		if metaLen == 0 {
			continue
		}

		buf := make([]byte, metaLen)
		if _, err := io.ReadFull(s.br, buf); err != nil {
			return Metadata{}, err
		}

		return NewMetadata(buf), nil
	}
}

// Close closes the underlying connection.
func (s *Stream) Close() error {
	return s.rc.Close()
}
