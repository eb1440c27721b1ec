// Package errors defines AppError, the structured error type shared by the
// job pipeline and the HTTP layer, along with the job failure taxonomy.
package errors
