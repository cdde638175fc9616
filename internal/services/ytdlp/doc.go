// Package ytdlp wraps the yt-dlp CLI for pulling the audio track (and,
// when remuxing is enabled, the video) of a YouTube source into a job's
// working directory.
package ytdlp
