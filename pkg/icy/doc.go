// Package icy reads the interleaved metadata side-channel of internet radio
// streams and extracts the currently playing track title.
//
// It is derived from github.com/romantomjak/shoutcast, reworked for metadata
// monitoring rather than audio capture:
//   - Audio bytes are skipped, not returned: only the metadata channel is consumed
//   - Playlist resolution: .pls and .m3u URLs are resolved to the actual stream URL
//   - A JSON status poller covers streams that publish titles out of band
//   - No client timeout on the stream so long-running monitoring is supported
package icy
