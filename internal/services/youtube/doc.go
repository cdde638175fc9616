// Package youtube recognizes YouTube video references and resolves video
// metadata (notably the original spoken language) through the Data API v3
// client.
package youtube
