// Package download makes one manifest entry present and verified on disk.
//
// # Tasks
//
// A [Downloader] is built once per batch and hands out a [Task] per entry:
//
//	d, err := download.New(httpClient, download.WithLogger(logger))
//	if err != nil { ... }
//
//	task := d.Task(entry, indicator)
//	if err := task.Run(ctx); err != nil { ... }
//
// Run verifies the destination first and only downloads when the file is
// missing or its digest differs. Every failed attempt, whether a network
// error, a bad status or a short body, is followed by a fresh verification
// and a new attempt. Only a cancelled context or [ErrSetup] stops a task.
//
// # Verification
//
// [Verifier] hashes the file on disk with the configured digest (md5 by
// default, see [HashByName]) and compares hex strings without regard to
// case.
package download
