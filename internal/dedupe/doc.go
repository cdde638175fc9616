// Package dedupe guards against launching two jobs for the same source and
// target language while one is still in flight.
//
// A reservation maps key (sourceId|language) to the job holding it. The
// workflow releases it when the job reaches a terminal state; the TTL only
// matters when a daemon dies without releasing.
package dedupe
