// Package blobstore persists normalized audio and reports where it can be
// fetched.
//
// Keys are per submission (<prefix>/<yyyy>/<mm>/<submission-id>.<ext>) so a
// retried put targets the same object and identical clips never share one. Two backends exist: a local directory
// written with atomic renames and any S3-compatible bucket via minio-go.
// WithRetry layers bounded exponential backoff over either one.
package blobstore
