// Package whisperx turns an extracted audio track into plain transcript text
// by running WhisperX through uvx and reading its JSON segment output.
package whisperx
