// Package storage wires the backing services: PostgreSQL for entities,
// Redis for the permission decision cache, and S3-compatible object
// storage for company file uploads.
//
// Object keys are namespaced per company ("companies/<id>/...") so a
// company deletion can sweep its files with one prefix delete. Transient
// S3 failures are retried a bounded number of times before the error
// surfaces to the caller.
package storage
