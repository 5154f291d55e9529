// Package filesystem wraps the filesystem calls made against watch paths and
// the poster cache so they survive stale NFS file handles.
//
// Watch paths commonly live on network shares. When the server re-exports a
// share, open handles and cached lookups fail with ESTALE until the client
// revalidates them; a short retry with exponential backoff is usually enough.
// Any other error is returned on the first attempt.
//
// Retries, stale handle errors and time spent are exported as Prometheus
// metrics labelled by operation ("stat" or "open").
package filesystem
