// Package tts synthesizes speech through the Google Cloud Text-to-Speech
// client. Long text is split under the per-request input limit and the
// returned MP3 segments are concatenated into one file.
package tts
