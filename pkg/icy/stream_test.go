package icy

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// metaBlock encodes a metadata payload as a length byte plus NUL-padded
// 16-byte chunks, the way servers frame it on the wire.
func metaBlock(payload string) []byte {
	chunks := (len(payload) + 15) / 16
	out := make([]byte, 1+chunks*16)
	out[0] = byte(chunks)
	copy(out[1:], payload)
	return out
}

// icyRound is metaint audio bytes followed by one metadata block.
func icyRound(metaint int, payload string) []byte {
	var buf bytes.Buffer
	buf.Write(bytes.Repeat([]byte{0xAA}, metaint))
	if payload == "" {
		buf.WriteByte(0)
		return buf.Bytes()
	}
	buf.Write(metaBlock(payload))
	return buf.Bytes()
}

func serveICY(metaint int, rounds ...[]byte) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("icy-metaint", strconv.Itoa(metaint))
		w.Header().Set("icy-name", "Test FM")
		w.Header().Set("icy-br", "128")
		for _, round := range rounds {
			if _, err := w.Write(round); err != nil {
				return
			}
		}
	}
}

func TestOpenNoMetadataInterval(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	_, err := Open(context.Background(), srv.Client(), srv.URL)
	require.ErrorIs(t, err, ErrNoInbandMetadata)
}

func TestOpenZeroMetadataInterval(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("icy-metaint", "0")
	}))
	defer srv.Close()

	_, err := Open(context.Background(), srv.Client(), srv.URL)
	require.ErrorIs(t, err, ErrNoInbandMetadata)
}

func TestOpenBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := Open(context.Background(), srv.Client(), srv.URL)
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrNoInbandMetadata)
}

func TestNextMetadata(t *testing.T) {
	// The canonical framing: after 16000 audio bytes a length byte of 5
	// announces 80 bytes of metadata, NUL-padded past the payload.
	const metaint = 16000
	round := bytes.Repeat([]byte{0xAA}, metaint)
	block := make([]byte, 81)
	block[0] = 5
	copy(block[1:], "StreamTitle='Amon Tobin - Four Ton Mantis';")
	round = append(round, block...)

	srv := httptest.NewServer(serveICY(metaint, round))
	defer srv.Close()

	s, err := Open(context.Background(), srv.Client(), srv.URL)
	require.NoError(t, err)
	defer s.Close()

	assert.Equal(t, "Test FM", s.Name)
	assert.Equal(t, 128, s.Bitrate)

	m, err := s.NextMetadata()
	require.NoError(t, err)
	assert.Equal(t, "Amon Tobin - Four Ton Mantis", m.StreamTitle)
}

func TestNextMetadataSkipsEmptyBlocks(t *testing.T) {
	const metaint = 64

	srv := httptest.NewServer(serveICY(metaint,
		icyRound(metaint, ""), // zero length byte, no metadata this round
		icyRound(metaint, "StreamTitle='Later Track';"),
	))
	defer srv.Close()

	s, err := Open(context.Background(), srv.Client(), srv.URL)
	require.NoError(t, err)
	defer s.Close()

	m, err := s.NextMetadata()
	require.NoError(t, err)
	assert.Equal(t, "Later Track", m.StreamTitle)
}

func TestNextMetadataStreamEnded(t *testing.T) {
	const metaint = 64

	srv := httptest.NewServer(serveICY(metaint,
		icyRound(metaint, "StreamTitle='Only Track';"),
	))
	defer srv.Close()

	s, err := Open(context.Background(), srv.Client(), srv.URL)
	require.NoError(t, err)
	defer s.Close()

	_, err = s.NextMetadata()
	require.NoError(t, err)

	// Server closed cleanly at a block boundary with nothing more to read.
	_, err = s.NextMetadata()
	require.ErrorIs(t, err, ErrStreamEnded)
}

func TestNextMetadataTruncatedIsNotEnded(t *testing.T) {
	const metaint = 64

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("icy-metaint", strconv.Itoa(metaint))
		// connection dies halfway through the audio payload
		_, _ = w.Write(bytes.Repeat([]byte{0xAA}, metaint/2))
	}))
	defer srv.Close()

	s, err := Open(context.Background(), srv.Client(), srv.URL)
	require.NoError(t, err)
	defer s.Close()

	_, err = s.NextMetadata()
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrStreamEnded)
}

func TestNextMetadataCancelledContext(t *testing.T) {
	const metaint = 64

	blockForever := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("icy-metaint", strconv.Itoa(metaint))
		w.WriteHeader(http.StatusOK)
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
		select {
		case <-blockForever:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(blockForever)

	ctx, cancel := context.WithCancel(context.Background())
	s, err := Open(ctx, srv.Client(), srv.URL)
	require.NoError(t, err)
	defer s.Close()

	cancel()

	_, err = s.NextMetadata()
	require.Error(t, err)
}
