// Package fetch implements a robust HTTP fetcher: bounded retries with
// exponential backoff and jitter, response classification, slow-response and
// keyword monitoring, and a JSONL event trail plus run summary.
package fetch
