// Package ffmpeg re-muxes a source video with a synthesized audio track.
package ffmpeg
