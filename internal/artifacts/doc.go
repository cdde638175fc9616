// Package artifacts publishes finished job outputs (synthesized audio and
// re-muxed video) and returns the reference stored in the job result.
//
// Backends: a local directory, MinIO (or any S3-compatible endpoint via
// minio-go) and AWS S3 via aws-sdk-go-v2. The backend is chosen by
// storage.backend. Uploading the same destination name twice overwrites the
// previous object.
package artifacts
